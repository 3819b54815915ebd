package ranking

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/blogflow/server/internal/httputil"
)

// Reranker reorders docs by relevance to query and keeps at most topN.
type Reranker interface {
	Rerank(ctx context.Context, query string, docs []*schema.Document, topN int) ([]*schema.Document, error)
}

// cohereAPIBase is overridable in tests.
var cohereAPIBase = "https://api.cohere.com"

// CohereReranker calls the Cohere v2 rerank endpoint.
type CohereReranker struct {
	Client *http.Client
	APIKey string
	Model  string
}

var _ Reranker = (*CohereReranker)(nil)

type cohereRerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n"`
}

type cohereRerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

func (c *CohereReranker) Rerank(ctx context.Context, query string, docs []*schema.Document, topN int) ([]*schema.Document, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	if topN <= 0 || topN > len(docs) {
		topN = len(docs)
	}
	model := c.Model
	if model == "" {
		model = "rerank-english-v3.0"
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}
	body, err := json.Marshal(cohereRerankRequest{Model: model, Query: query, Documents: texts, TopN: topN})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cohereAPIBase+"/v2/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := httputil.DoWithRetry(ctx, c.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("cohere rerank: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("cohere rerank returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out cohereRerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("parsing cohere response: %w", err)
	}

	ranked := make([]*schema.Document, 0, len(out.Results))
	seen := make(map[int]bool, len(out.Results))
	for _, r := range out.Results {
		if r.Index < 0 || r.Index >= len(docs) || seen[r.Index] {
			continue
		}
		seen[r.Index] = true
		ranked = append(ranked, docs[r.Index].WithScore(r.RelevanceScore))
		if len(ranked) == topN {
			break
		}
	}
	return ranked, nil
}
