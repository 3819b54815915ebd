package retrieval

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blogflow/server/internal/agent/model"
)

const arxivFeedXML = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/2301.07041v1</id>
    <title>Artificial Intelligence:
      A Survey</title>
    <summary>  We survey the field
      of AI.  </summary>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/2302.00001v2</id>
    <title>Second Paper</title>
    <summary>Another abstract.</summary>
  </entry>
</feed>`

func TestArxivSearch(t *testing.T) {
	var query string
	ts := withBase(t, &arxivAPIBase, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query().Get("search_query")
		assert.Equal(t, "2", r.URL.Query().Get("max_results"))
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		w.Write([]byte(arxivFeedXML))
	})

	s := &ArxivSearcher{Client: ts.Client(), MaxResults: 2, UserAgent: "test-agent"}
	content, err := s.Search(context.Background(), "  artificial   intelligence ")
	require.NoError(t, err)

	assert.Equal(t, "all:artificial intelligence", query)
	assert.Equal(t, model.ContentItems, content.Kind)
	require.Len(t, content.Items, 2)
	assert.Equal(t, "Artificial Intelligence: A Survey", content.Items[0].Title)
	assert.Equal(t, "We survey the field of AI.", content.Items[0].Snippet)
	assert.Equal(t, "http://arxiv.org/abs/2301.07041v1", content.Items[0].URL)
}

func TestArxivSearch_EmptyQuery(t *testing.T) {
	s := &ArxivSearcher{}
	_, err := s.Search(context.Background(), "   ")
	assert.Error(t, err)
}

func TestArxivSearch_HTTPError(t *testing.T) {
	ts := withBase(t, &arxivAPIBase, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	s := &ArxivSearcher{Client: ts.Client()}
	_, err := s.Search(context.Background(), "ai")
	assert.ErrorContains(t, err, "HTTP 500")
}
