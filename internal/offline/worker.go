// Package offline is the agent's caching front for the web app: it seeds a
// static bucket on install, reaps stale versions on activation and serves
// every other request cache-first.
package offline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/mixel34p/Yo-kaidle-sub002/internal/logging"
)

const CacheHeader = "X-Yokaidle-Cache"

var hopHeaders = []string{
	"Connection", "Keep-Alive", "Proxy-Authenticate", "Proxy-Authorization",
	"Te", "Trailer", "Transfer-Encoding", "Upgrade", "Content-Length",
}

type Options struct {
	Upstream string
	Client   *http.Client
	Logger   *logging.Logger
}

type Worker struct {
	storage  *CacheStorage
	names    CacheNames
	manifest Manifest
	origin   *url.URL
	client   *http.Client
	logger   *logging.Logger
	stores   sync.WaitGroup
}

func NewWorker(storage *CacheStorage, manifest Manifest, opts Options) (*Worker, error) {
	if storage == nil {
		return nil, fmt.Errorf("cache storage is required")
	}
	origin, err := url.Parse(strings.TrimRight(strings.TrimSpace(opts.Upstream), "/"))
	if err != nil || origin.Scheme == "" || origin.Host == "" {
		return nil, fmt.Errorf("upstream must be an absolute URL: %q", opts.Upstream)
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Worker{
		storage:  storage,
		names:    NamesForVersion(manifest.Version),
		manifest: manifest,
		origin:   origin,
		client:   client,
		logger:   opts.Logger,
	}, nil
}

func (w *Worker) Names() CacheNames { return w.names }

func (w *Worker) Storage() *CacheStorage { return w.storage }

// Install fetches every manifest asset and stores the successful ones in the
// static bucket. In atomic mode one failure leaves the bucket untouched.
func (w *Worker) Install(ctx context.Context) error {
	assets := w.manifest.Assets
	entries := make([]*CacheEntry, len(assets))
	errs := make([]error, len(assets))
	var wg sync.WaitGroup
	for i, asset := range assets {
		wg.Add(1)
		go func(i int, asset string) {
			defer wg.Done()
			entries[i], errs[i] = w.fetchAsset(ctx, asset)
		}(i, asset)
	}
	wg.Wait()

	failed := errors.Join(errs...)
	if w.manifest.Atomic && failed != nil {
		return fmt.Errorf("precache aborted: %w", failed)
	}
	stored := make([]*CacheEntry, 0, len(entries))
	for _, e := range entries {
		if e != nil {
			stored = append(stored, e)
		}
	}
	if len(stored) > 0 {
		if err := w.storage.Put(w.names.Static, stored...); err != nil {
			return errors.Join(failed, fmt.Errorf("store precache: %w", err))
		}
	}
	w.logger.Infof("[offline] precached %d/%d assets into %s", len(stored), len(assets), w.names.Static)
	return failed
}

func (w *Worker) fetchAsset(ctx context.Context, asset string) (*CacheEntry, error) {
	target := w.resolve(&url.URL{Path: asset})
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("precache %s: %w", asset, err)
	}
	entry, err := w.roundTrip(req)
	if err != nil {
		return nil, fmt.Errorf("precache %s: %w", asset, err)
	}
	if entry.Status < 200 || entry.Status > 299 {
		return nil, fmt.Errorf("precache %s: status %d", asset, entry.Status)
	}
	return entry, nil
}

// Activate deletes every cache bucket except the current version. Each
// deletion is independent; failures are joined.
func (w *Worker) Activate(ctx context.Context) ([]string, error) {
	names, err := w.storage.Keys()
	if err != nil {
		return nil, fmt.Errorf("list caches: %w", err)
	}
	var removed []string
	var errs []error
	for _, name := range names {
		if name == w.names.Current {
			continue
		}
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		ok, err := w.storage.Delete(name)
		if err != nil {
			errs = append(errs, fmt.Errorf("delete cache %s: %w", name, err))
			continue
		}
		if ok {
			w.logger.Infof("[offline] removed stale cache %s", name)
			removed = append(removed, name)
		}
	}
	return removed, errors.Join(errs...)
}

// Fetch answers req cache-first. hit reports whether the entry came from a cache bucket.
func (w *Worker) Fetch(ctx context.Context, req *http.Request) (entry *CacheEntry, hit bool, err error) {
	target := w.resolve(req.URL)
	key := target.String()
	if req.Method == http.MethodGet {
		cached, ok, err := w.storage.Match(req.Method, key)
		if err != nil {
			w.logger.Debugf("[offline] cache lookup %s: %v", key, err)
		}
		if ok {
			return cached, true, nil
		}
	}

	out, err := http.NewRequestWithContext(ctx, req.Method, key, req.Body)
	if err != nil {
		return nil, false, err
	}
	out.Header = req.Header.Clone()
	for _, h := range hopHeaders {
		out.Header.Del(h)
	}
	entry, err = w.roundTrip(out)
	if err != nil {
		if req.Method == http.MethodGet && isPageRequest(req, target) {
			root := w.resolve(&url.URL{Path: "/"}).String()
			if cached, ok, _ := w.storage.Match(http.MethodGet, root); ok {
				w.logger.Debugf("[offline] %s unreachable, serving cached root", key)
				return cached, true, nil
			}
		}
		return nil, false, err
	}

	if req.Method == http.MethodGet && entry.Status == http.StatusOK && w.sameOrigin(target) {
		w.storeDynamic(entry)
	}
	return entry, false, nil
}

func (w *Worker) storeDynamic(entry *CacheEntry) {
	copied := *entry
	copied.Header = entry.Header.Clone()
	copied.Body = append([]byte(nil), entry.Body...)
	w.stores.Add(1)
	go func() {
		defer w.stores.Done()
		if err := w.storage.Put(w.names.Dynamic, &copied); err != nil {
			w.logger.Debugf("[offline] store %s: %v", copied.URL, err)
		}
	}()
}

// Wait blocks until background cache stores have finished.
func (w *Worker) Wait() { w.stores.Wait() }

func (w *Worker) roundTrip(req *http.Request) (*CacheEntry, error) {
	resp, err := w.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", req.URL, err)
	}
	header := resp.Header.Clone()
	for _, h := range hopHeaders {
		header.Del(h)
	}
	return &CacheEntry{
		Method:   req.Method,
		URL:      req.URL.String(),
		Status:   resp.StatusCode,
		Header:   header,
		Body:     body,
		StoredAt: time.Now().UTC(),
	}, nil
}

func (w *Worker) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	entry, hit, err := w.Fetch(r.Context(), r)
	if err != nil {
		w.logger.Warnf("[offline] fetch %s failed: %v", r.URL.Path, err)
		http.Error(rw, "upstream unavailable", http.StatusBadGateway)
		return
	}
	for k, vs := range entry.Header {
		for _, v := range vs {
			rw.Header().Add(k, v)
		}
	}
	if hit {
		rw.Header().Set(CacheHeader, "hit")
	} else {
		rw.Header().Set(CacheHeader, "miss")
	}
	rw.WriteHeader(entry.Status)
	if r.Method != http.MethodHead {
		_, _ = rw.Write(entry.Body)
	}
}

func (w *Worker) resolve(u *url.URL) *url.URL {
	if u.IsAbs() {
		return u
	}
	rel := &url.URL{Path: u.Path, RawQuery: u.RawQuery}
	if rel.Path == "" {
		rel.Path = "/"
	}
	return w.origin.ResolveReference(rel)
}

func (w *Worker) sameOrigin(u *url.URL) bool {
	return strings.EqualFold(u.Scheme, w.origin.Scheme) && strings.EqualFold(u.Host, w.origin.Host)
}

func isPageRequest(req *http.Request, target *url.URL) bool {
	if strings.HasSuffix(target.Path, "/") || strings.Contains(target.Path, ".html") {
		return true
	}
	return strings.Contains(req.Header.Get("Accept"), "text/html")
}
