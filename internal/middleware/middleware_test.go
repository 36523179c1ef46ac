package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mixel34p/Yo-kaidle-sub002/internal/logging"
)

func newEngine(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw)
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func statusFor(r http.Handler, auth string) int {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec.Code
}

func TestAuth(t *testing.T) {
	open := newEngine(Auth(""))
	if got := statusFor(open, ""); got != http.StatusNoContent {
		t.Fatalf("open auth: got %d", got)
	}
	guarded := newEngine(Auth("tok"))
	cases := map[string]int{
		"":             http.StatusUnauthorized,
		"Bearer nope":  http.StatusUnauthorized,
		"Bearer tok":   http.StatusNoContent,
		"bearer  tok ": http.StatusNoContent,
	}
	for header, want := range cases {
		if got := statusFor(guarded, header); got != want {
			t.Fatalf("auth %q: got %d want %d", header, got, want)
		}
	}
}

func TestPushSecretIsExactMatch(t *testing.T) {
	r := newEngine(PushSecret("s3cret"))
	cases := map[string]int{
		"Bearer s3cret":  http.StatusNoContent,
		"bearer s3cret":  http.StatusUnauthorized,
		"Bearer s3cret ": http.StatusUnauthorized,
		"Bearer other":   http.StatusUnauthorized,
		"":               http.StatusUnauthorized,
	}
	for header, want := range cases {
		if got := statusFor(r, header); got != want {
			t.Fatalf("push secret %q: got %d want %d", header, got, want)
		}
	}
	if got := statusFor(newEngine(PushSecret("")), "Bearer "); got != http.StatusUnauthorized {
		t.Fatalf("empty secret must refuse, got %d", got)
	}
}

func TestRequestLoggerWritesLine(t *testing.T) {
	var buf bytes.Buffer
	r := newEngine(RequestLogger(logging.NewWithWriter("debug", &buf)))
	statusFor(r, "")
	if !strings.Contains(buf.String(), "GET /x 204") {
		t.Fatalf("unexpected log output %q", buf.String())
	}
}
