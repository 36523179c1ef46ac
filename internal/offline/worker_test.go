package offline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"
)

type upstream struct {
	srv  *httptest.Server
	hits atomic.Int64
}

func newUpstream(t *testing.T) *upstream {
	t.Helper()
	u := &upstream{}
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		u.hits.Add(1)
		switch r.URL.Path {
		case "/":
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html>home</html>"))
		case "/manifest.json", "/app.js", "/icons/icon-192x192.png":
			_, _ = w.Write([]byte("asset " + r.URL.Path))
		case "/broken":
			http.Error(w, "boom", http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	})
	u.srv = httptest.NewServer(mux)
	t.Cleanup(u.srv.Close)
	return u
}

func newStorage(t *testing.T) *CacheStorage {
	t.Helper()
	db, err := bbolt.Open(filepath.Join(t.TempDir(), "cache.db"), 0o600, &bbolt.Options{Timeout: time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	s, err := NewCacheStorage(db)
	require.NoError(t, err)
	return s
}

func newWorker(t *testing.T, up *upstream, m Manifest) *Worker {
	t.Helper()
	w, err := NewWorker(newStorage(t), m, Options{Upstream: up.srv.URL})
	require.NoError(t, err)
	return w
}

func TestInstallIsolatesFailingAssets(t *testing.T) {
	up := newUpstream(t)
	w := newWorker(t, up, Manifest{Version: "v2", Assets: []string{"/", "/missing.png", "/app.js"}})

	err := w.Install(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/missing.png")

	keys, err := w.Storage().Entries("yokaidle-v2")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"GET " + up.srv.URL + "/",
		"GET " + up.srv.URL + "/app.js",
	}, keys)
}

func TestInstallAtomicStoresNothingOnFailure(t *testing.T) {
	up := newUpstream(t)
	w := newWorker(t, up, Manifest{Version: "v2", Assets: []string{"/", "/missing.png"}, Atomic: true})

	require.Error(t, w.Install(context.Background()))

	keys, err := w.Storage().Keys()
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestFetchServesCachedEntryWithoutNetwork(t *testing.T) {
	up := newUpstream(t)
	w := newWorker(t, up, Manifest{Version: "v1", Assets: []string{"/app.js"}})
	require.NoError(t, w.Install(context.Background()))
	before := up.hits.Load()

	entry, hit, err := w.Fetch(context.Background(), httptest.NewRequest(http.MethodGet, "/app.js", nil))
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "asset /app.js", string(entry.Body))
	assert.Equal(t, before, up.hits.Load())
}

func TestFetchStoresSuccessfulSameOriginResponse(t *testing.T) {
	up := newUpstream(t)
	w := newWorker(t, up, Manifest{Version: "v1"})

	entry, hit, err := w.Fetch(context.Background(), httptest.NewRequest(http.MethodGet, "/manifest.json", nil))
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, http.StatusOK, entry.Status)
	w.Wait()

	keys, err := w.Storage().Entries(w.Names().Dynamic)
	require.NoError(t, err)
	assert.Equal(t, []string{"GET " + up.srv.URL + "/manifest.json"}, keys)

	_, hit, err = w.Fetch(context.Background(), httptest.NewRequest(http.MethodGet, "/manifest.json", nil))
	require.NoError(t, err)
	assert.True(t, hit)
}

func TestFetchNeverStoresErrorOrCrossOriginResponses(t *testing.T) {
	up := newUpstream(t)
	other := newUpstream(t)
	w := newWorker(t, up, Manifest{Version: "v1"})

	entry, _, err := w.Fetch(context.Background(), httptest.NewRequest(http.MethodGet, "/broken", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, entry.Status)

	cross := httptest.NewRequest(http.MethodGet, other.srv.URL+"/app.js", nil)
	entry, _, err = w.Fetch(context.Background(), cross)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, entry.Status)

	post := httptest.NewRequest(http.MethodPost, "/app.js", nil)
	_, _, err = w.Fetch(context.Background(), post)
	require.NoError(t, err)

	w.Wait()
	keys, err := w.Storage().Keys()
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestFetchFallsBackToCachedRootForPages(t *testing.T) {
	up := newUpstream(t)
	w := newWorker(t, up, Manifest{Version: "v1", Assets: []string{"/"}})
	require.NoError(t, w.Install(context.Background()))
	up.srv.Close()

	entry, hit, err := w.Fetch(context.Background(), httptest.NewRequest(http.MethodGet, "/daily.html", nil))
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "<html>home</html>", string(entry.Body))

	req := httptest.NewRequest(http.MethodGet, "/collection", nil)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	_, hit, err = w.Fetch(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, hit)

	_, _, err = w.Fetch(context.Background(), httptest.NewRequest(http.MethodGet, "/data.json", nil))
	assert.Error(t, err)
}

func TestServeHTTPMarksCacheStatus(t *testing.T) {
	up := newUpstream(t)
	w := newWorker(t, up, Manifest{Version: "v1"})

	rec := httptest.NewRecorder()
	w.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/app.js", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "miss", rec.Header().Get(CacheHeader))
	w.Wait()

	rec = httptest.NewRecorder()
	w.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/app.js", nil))
	assert.Equal(t, "hit", rec.Header().Get(CacheHeader))
	assert.Equal(t, "asset /app.js", rec.Body.String())

	up.srv.Close()
	rec = httptest.NewRecorder()
	w.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/other.js", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestActivateKeepsOnlyCurrentVersion(t *testing.T) {
	up := newUpstream(t)
	w := newWorker(t, up, Manifest{Version: "v3"})
	s := w.Storage()
	entry := &CacheEntry{Method: http.MethodGet, URL: up.srv.URL + "/", Status: http.StatusOK}
	for _, name := range []string{"yokaidle-v1", "yokaidle-dynamic-v1", "yokaidle-v3", "yokaidle-dynamic-v3", "unrelated"} {
		require.NoError(t, s.Put(name, entry))
	}

	removed, err := w.Activate(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"yokaidle-v1", "yokaidle-dynamic-v1", "yokaidle-dynamic-v3", "unrelated"}, removed)

	keys, err := s.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"yokaidle-v3"}, keys)
}

func TestParseManifest(t *testing.T) {
	m, err := ParseManifest([]byte(`
version = "v9"
precache_atomic = true
assets = ["/", " /app.js ", "/app.js", ""]
`), "v1")
	require.NoError(t, err)
	assert.Equal(t, "v9", m.Version)
	assert.True(t, m.Atomic)
	assert.Equal(t, []string{"/", "/app.js"}, m.Assets)

	_, err = ParseManifest([]byte(`assets = ["app.js"]`), "v1")
	assert.Error(t, err)

	names := NamesForVersion("v9")
	assert.Equal(t, names.Static, names.Current)
	assert.Equal(t, "yokaidle-dynamic-v9", names.Dynamic)
}
