package retrieval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/blogflow/server/internal/agent/model"
	"github.com/blogflow/server/internal/metrics"
	logx "github.com/blogflow/server/pkg/logger"
)

// SourceRunner runs one searcher over every sub-query. Failures of any kind
// (error, timeout, panic) become error results; Run itself never fails.
type SourceRunner struct {
	Source      model.Source
	Searcher    Searcher
	Timeout     time.Duration
	Concurrency int
}

// Run returns exactly one result per query, in query order.
func (r *SourceRunner) Run(ctx context.Context, queries []string) []model.SourceResult {
	results := make([]model.SourceResult, len(queries))

	limit := r.Concurrency
	if limit <= 0 {
		limit = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, q := range queries {
		g.Go(func() error {
			results[i] = r.runOne(gctx, q)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (r *SourceRunner) runOne(ctx context.Context, query string) (res model.SourceResult) {
	res = model.SourceResult{Source: r.Source, Query: query}

	defer func() {
		if rec := recover(); rec != nil {
			res.Content = model.Content{}
			res.Error = fmt.Sprintf("panic: %v", rec)
		}
		status := metrics.StatusOK
		if res.Failed() {
			status = metrics.StatusError
			logx.Warn().
				Str("source", string(r.Source)).
				Str("query", query).
				Str("error", res.Error).
				Msg("retrieval failed")
		}
		metrics.SourceResults.WithLabelValues(string(r.Source), status).Inc()
	}()

	if r.Searcher == nil {
		res.Error = fmt.Sprintf("no searcher configured for %s", r.Source)
		return res
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	content, err := r.Searcher.Search(ctx, query)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("timed out after %s: %w", r.Timeout, err)
		}
		res.Error = err.Error()
		return res
	}
	res.Content = content
	return res
}
