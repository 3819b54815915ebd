package ranking

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withCohere(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(h)
	old := cohereAPIBase
	cohereAPIBase = ts.URL
	t.Cleanup(func() {
		cohereAPIBase = old
		ts.Close()
	})
	return ts
}

func TestCohereReranker(t *testing.T) {
	var got cohereRerankRequest
	ts := withCohere(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/rerank", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"results":[
			{"index":2,"relevance_score":0.91},
			{"index":0,"relevance_score":0.40}
		]}`))
	})

	rr := &CohereReranker{Client: ts.Client(), APIKey: "secret"}
	out, err := rr.Rerank(context.Background(), "What is AI?", docsOf("x", "y", "z"), 2)
	require.NoError(t, err)

	assert.Equal(t, "rerank-english-v3.0", got.Model)
	assert.Equal(t, "What is AI?", got.Query)
	assert.Equal(t, []string{"x", "y", "z"}, got.Documents)
	assert.Equal(t, 2, got.TopN)

	assert.Equal(t, []string{"c", "a"}, ids(out))
	assert.InDelta(t, 0.91, out[0].Score(), 1e-9)
}

func TestCohereReranker_ClampsTopNAndIgnoresBadIndexes(t *testing.T) {
	var got cohereRerankRequest
	ts := withCohere(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"results":[{"index":7,"relevance_score":0.9},{"index":1,"relevance_score":0.8},{"index":1,"relevance_score":0.8}]}`))
	})

	rr := &CohereReranker{Client: ts.Client(), APIKey: "k"}
	out, err := rr.Rerank(context.Background(), "q", docsOf("x", "y"), 10)
	require.NoError(t, err)
	assert.Equal(t, 2, got.TopN)
	assert.Equal(t, []string{"b"}, ids(out))
}

func TestCohereReranker_HTTPError(t *testing.T) {
	ts := withCohere(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"message":"invalid api token"}`, http.StatusUnauthorized)
	})

	rr := &CohereReranker{Client: ts.Client()}
	_, err := rr.Rerank(context.Background(), "q", docsOf("x"), 1)
	assert.ErrorContains(t, err, "HTTP 401")
}

func TestCohereReranker_EmptyDocs(t *testing.T) {
	rr := &CohereReranker{}
	out, err := rr.Rerank(context.Background(), "q", nil, 10)
	require.NoError(t, err)
	assert.Empty(t, out)
}
