package nodes

import (
	"context"

	"github.com/cloudwego/eino/compose"

	"github.com/blogflow/server/internal/agent/model"
	"github.com/blogflow/server/internal/retrieval"
	logx "github.com/blogflow/server/pkg/logger"
)

// NewRetrievalNode runs one source over all sub-queries. It never fails;
// per-query failures are carried in the results.
func NewRetrievalNode(runner *retrieval.SourceRunner) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, queries []string) ([]model.SourceResult, error) {
		return runner.Run(ctx, queries), nil
	})
}

// NewMergeNode concatenates the per-source outputs in fixed source order.
// A missing branch is logged and skipped.
func NewMergeNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in map[string]any) ([]model.SourceResult, error) {
		merged := make([]model.SourceResult, 0)
		for _, source := range model.Sources {
			v, ok := in[string(source)]
			if !ok {
				logx.Warn().Str("node", NodeMerge).Str("source", string(source)).Msg("source branch produced no output")
				continue
			}
			results, ok := v.([]model.SourceResult)
			if !ok {
				logx.Warn().Str("node", NodeMerge).Str("source", string(source)).Msgf("unexpected branch output %T", v)
				continue
			}
			merged = append(merged, results...)
		}
		return merged, nil
	})
}
