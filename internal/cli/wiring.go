package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/blogflow/server/internal/agent/graph"
	"github.com/blogflow/server/internal/agent/graph/nodes"
	"github.com/blogflow/server/internal/agent/model"
	"github.com/blogflow/server/internal/agent/repo"
	"github.com/blogflow/server/internal/ranking"
	"github.com/blogflow/server/internal/retrieval"
	logx "github.com/blogflow/server/pkg/logger"
	"github.com/blogflow/server/pkg/sqldb"
)

// Store kinds accepted by STATE_STORE.
const (
	StoreRedis    = "redis"
	StorePostgres = sqldb.DriverPostgres
	StoreSQLite   = sqldb.DriverSQLite
	StoreMemory   = "memory"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// newStore opens the state store selected by STATE_STORE. The returned
// closer releases its connection.
func newStore(ctx context.Context, cfg *AppConfig) (model.StateStore, io.Closer, error) {
	switch cfg.Store.Kind {
	case StoreRedis:
		ttl, err := cfg.StateTTL()
		if err != nil {
			return nil, nil, err
		}
		rdb, err := cfg.Redis.New()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialise Redis client: %w", err)
		}
		logx.Debug().Msg("Connected to Redis successfully")
		return repo.NewRedisStateStore(rdb, ttl), rdb, nil

	case StorePostgres, StoreSQLite:
		db, err := cfg.SQL.Open(ctx, cfg.Store.Kind)
		if err != nil {
			return nil, nil, err
		}
		store, err := repo.NewSQLStateStore(ctx, db, cfg.Store.Kind)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return store, db, nil

	case StoreMemory:
		logx.Warn().Msg("Using in-memory state store; runs are lost on exit")
		return repo.NewMemoryStateStore(), nopCloser{}, nil

	default:
		return nil, nil, fmt.Errorf("unknown STATE_STORE %q (want %s, %s, %s or %s)",
			cfg.Store.Kind, StoreRedis, StorePostgres, StoreSQLite, StoreMemory)
	}
}

// buildEngine wires the providers, phase graphs and store into an engine.
func buildEngine(ctx context.Context, cfg *AppConfig, store model.StateStore) (*graph.Engine, error) {
	models, err := nodes.NewChatModels(ctx, nodes.ChatModelConfig{
		APIKey:          cfg.LLM.APIKey,
		BaseURL:         cfg.LLM.BaseURL,
		DecomposeConfig: &cfg.Decompose,
		SynthConfig:     &cfg.Synth,
	})
	if err != nil {
		return nil, err
	}

	searchTimeout, err := cfg.SearchTimeout()
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: searchTimeout + searchTimeout/2}

	var reranker ranking.Reranker
	if cfg.Ranking.CohereAPIKey != "" {
		reranker = &ranking.CohereReranker{
			Client: httpClient,
			APIKey: cfg.Ranking.CohereAPIKey,
			Model:  cfg.Ranking.RerankModel,
		}
	} else {
		logx.Warn().Msg("COHERE_API_KEY not set; evidence keeps the fused order")
	}
	embedder := ranking.NewGeminiEmbedder(models.Client, cfg.Ranking.EmbeddingModel)

	phases, err := graph.BuildPhases(ctx, &graph.GraphConfig{
		Decomposer:        nodes.NewDecomposer(models.Decompose, models.DecomposeModelName),
		Searchers:         retrieval.NewSearchers(cfg.Search, httpClient),
		Ranker:            ranking.NewPipeline(cfg.Ranking, embedder, reranker),
		Synthesizer:       nodes.NewSynthesizer(models.Synth, models.SynthModelName),
		SearchTimeout:     searchTimeout,
		SearchConcurrency: cfg.Search.Concurrency,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build graph: %w", err)
	}

	return graph.NewEngine(store, phases,
		graph.WithReviewPolicy(graph.ReviewPolicy{MaxRevisions: cfg.Review.MaxRevisions}),
	), nil
}
