package retrieval

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/blogflow/server/internal/httputil"
)

func init() {
	httputil.RetryBaseDelay = 0
}

// withBase points an API base var at a test server for the duration of t.
func withBase(t *testing.T, base *string, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(h)
	old := *base
	*base = ts.URL
	t.Cleanup(func() {
		*base = old
		ts.Close()
	})
	return ts
}
