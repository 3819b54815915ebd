// Package retrieval adapts the external search providers (web, academic,
// encyclopedia) behind a common Searcher and turns their failures into
// captured SourceResults.
package retrieval

import (
	"context"
	"net/http"
	"time"

	"github.com/blogflow/server/internal/agent/model"
)

// Searcher queries one provider for a single sub-query.
type Searcher interface {
	Search(ctx context.Context, query string) (model.Content, error)
}

// SearcherFunc adapts a function to Searcher.
type SearcherFunc func(ctx context.Context, query string) (model.Content, error)

func (f SearcherFunc) Search(ctx context.Context, query string) (model.Content, error) {
	return f(ctx, query)
}

// Searchers bundles one searcher per source.
type Searchers struct {
	Web          Searcher
	Academic     Searcher
	Encyclopedia Searcher
}

// NewSearchers builds the production searchers from config.
func NewSearchers(cfg model.SearchConfig, client *http.Client) Searchers {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return Searchers{
		Web: &TavilySearcher{
			Client:     client,
			APIKey:     cfg.TavilyAPIKey,
			MaxResults: cfg.TavilyMaxResults,
		},
		Academic: &ArxivSearcher{
			Client:     client,
			MaxResults: cfg.ArxivMaxResults,
			UserAgent:  cfg.UserAgent,
		},
		Encyclopedia: &WikipediaSearcher{
			Client:     client,
			Language:   cfg.WikipediaLanguage,
			MaxResults: cfg.WikipediaMaxResults,
			UserAgent:  cfg.UserAgent,
		},
	}
}

// For returns the searcher bound to source, or nil.
func (s Searchers) For(source model.Source) Searcher {
	switch source {
	case model.SourceWeb:
		return s.Web
	case model.SourceAcademic:
		return s.Academic
	case model.SourceEncyclopedia:
		return s.Encyclopedia
	}
	return nil
}
