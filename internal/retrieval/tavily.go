package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/blogflow/server/internal/agent/model"
	"github.com/blogflow/server/internal/httputil"
)

// tavilyAPIBase is a var so tests can point it at an httptest server.
var tavilyAPIBase = "https://api.tavily.com"

// TavilySearcher queries the Tavily web search API.
type TavilySearcher struct {
	Client     *http.Client
	APIKey     string
	MaxResults int
}

type tavilyRequest struct {
	APIKey     string `json:"api_key"`
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type tavilyResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

func (t *TavilySearcher) Search(ctx context.Context, query string) (model.Content, error) {
	if t.APIKey == "" {
		return model.Content{}, fmt.Errorf("tavily: TAVILY_API_KEY is not set")
	}
	maxResults := t.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}

	body, err := json.Marshal(tavilyRequest{APIKey: t.APIKey, Query: query, MaxResults: maxResults})
	if err != nil {
		return model.Content{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tavilyAPIBase+"/search", bytes.NewReader(body))
	if err != nil {
		return model.Content{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httputil.DoWithRetry(ctx, t.Client, req, 0)
	if err != nil {
		return model.Content{}, fmt.Errorf("tavily request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return model.Content{}, fmt.Errorf("tavily returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return model.Content{}, fmt.Errorf("parsing tavily response: %w", err)
	}

	items := make([]model.ContentItem, 0, len(out.Results))
	for _, r := range out.Results {
		items = append(items, model.ContentItem{
			Title:   strings.TrimSpace(r.Title),
			URL:     r.URL,
			Snippet: strings.TrimSpace(r.Content),
		})
	}
	return model.ItemsContent(items), nil
}
