package retrieval

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/blogflow/server/internal/agent/model"
	"github.com/blogflow/server/internal/httputil"
)

// arxivAPIBase is the arXiv query endpoint, overridable in tests.
var arxivAPIBase = "https://export.arxiv.org/api/query"

// ArxivSearcher queries the arXiv Atom API.
type ArxivSearcher struct {
	Client     *http.Client
	MaxResults int
	UserAgent  string
}

type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID      string `xml:"id"`
	Title   string `xml:"title"`
	Summary string `xml:"summary"`
}

func (a *ArxivSearcher) Search(ctx context.Context, query string) (model.Content, error) {
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return model.Content{}, fmt.Errorf("empty arXiv query")
	}
	maxResults := a.MaxResults
	if maxResults <= 0 {
		maxResults = 3
	}

	params := url.Values{}
	params.Set("search_query", "all:"+strings.Join(terms, " "))
	params.Set("start", "0")
	params.Set("max_results", fmt.Sprint(maxResults))
	params.Set("sortBy", "relevance")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, arxivAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return model.Content{}, fmt.Errorf("creating request: %w", err)
	}
	if a.UserAgent != "" {
		req.Header.Set("User-Agent", a.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, a.Client, req, 0)
	if err != nil {
		return model.Content{}, fmt.Errorf("arXiv API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.Content{}, fmt.Errorf("arXiv API returned HTTP %d", resp.StatusCode)
	}

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return model.Content{}, fmt.Errorf("parsing arXiv response: %w", err)
	}

	items := make([]model.ContentItem, 0, len(feed.Entries))
	for _, e := range feed.Entries {
		items = append(items, model.ContentItem{
			Title:   collapseSpace(e.Title),
			URL:     strings.TrimSpace(e.ID),
			Snippet: collapseSpace(e.Summary),
		})
	}
	return model.ItemsContent(items), nil
}

// collapseSpace folds the hard-wrapped Atom text into single spaces.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
