package observers

import (
	"context"
	"time"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/compose"

	"github.com/blogflow/server/internal/metrics"
	logx "github.com/blogflow/server/pkg/logger"
)

type startKey struct{}

// NewNodeCallbacks logs node lifecycle and records node duration and error
// metrics. Only lambda nodes are timed; nested components are covered by the
// component observers.
func NewNodeCallbacks() einocb.Handler {
	return einocb.NewHandlerBuilder().
		OnStartFn(func(ctx context.Context, info *einocb.RunInfo, _ einocb.CallbackInput) context.Context {
			if !timed(info) {
				return ctx
			}
			logx.Debug().Str("node", info.Name).Str("type", info.Type).Msg("node start")
			return context.WithValue(ctx, startKey{}, time.Now())
		}).
		OnEndFn(func(ctx context.Context, info *einocb.RunInfo, _ einocb.CallbackOutput) context.Context {
			if !timed(info) {
				return ctx
			}
			d := elapsed(ctx)
			metrics.NodeDuration.WithLabelValues(info.Name).Observe(d.Seconds())
			logx.Debug().Str("node", info.Name).Dur("elapsed", d).Msg("node end")
			return ctx
		}).
		OnErrorFn(func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			if !timed(info) {
				return ctx
			}
			metrics.NodeErrors.WithLabelValues(info.Name).Inc()
			logx.Error().Err(err).Str("node", info.Name).Dur("elapsed", elapsed(ctx)).Msg("node error")
			return ctx
		}).
		Build()
}

func timed(info *einocb.RunInfo) bool {
	if info == nil || info.Name == "" {
		return false
	}
	return info.Component == compose.ComponentOfLambda
}

func elapsed(ctx context.Context) time.Duration {
	if t, ok := ctx.Value(startKey{}).(time.Time); ok {
		return time.Since(t)
	}
	return 0
}
