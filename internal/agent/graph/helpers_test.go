package graph

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/require"

	"github.com/blogflow/server/internal/agent/graph/nodes"
	"github.com/blogflow/server/internal/agent/model"
	"github.com/blogflow/server/internal/agent/repo"
	"github.com/blogflow/server/internal/ranking"
	"github.com/blogflow/server/internal/retrieval"
)

const blogJSON = `{"title":"What is AI?","introduction":"Intro.","body_content":"AI is the simulation of human intelligence.","visuals_context":"Timeline.","conclusion":"Summary."}`

// scriptedModel answers decomposition and synthesis prompts. Failures are
// consumed one per call.
type scriptedModel struct {
	mu        sync.Mutex
	reply     string
	failures  int
	calls     int
	feedbacks []string
	usage     *schema.TokenUsage
}

func (m *scriptedModel) Generate(_ context.Context, in []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failures > 0 {
		m.failures--
		return nil, errors.New("model unavailable")
	}
	if len(in) > 0 {
		m.feedbacks = append(m.feedbacks, in[len(in)-1].Content)
	}
	msg := schema.AssistantMessage(m.reply, nil)
	if m.usage != nil {
		msg.ResponseMeta = &schema.ResponseMeta{Usage: m.usage}
	}
	return msg, nil
}

func okSearcher(label string) retrieval.Searcher {
	return retrieval.SearcherFunc(func(_ context.Context, q string) (model.Content, error) {
		return model.ItemsContent([]model.ContentItem{{Title: label + " on " + q, Snippet: "artificial intelligence " + q}}), nil
	})
}

func failingSearcher(msg string) retrieval.Searcher {
	return retrieval.SearcherFunc(func(context.Context, string) (model.Content, error) {
		return model.Content{}, errors.New(msg)
	})
}

type fixture struct {
	engine     *Engine
	store      *repo.MemoryStateStore
	decompose  *scriptedModel
	synthesize *scriptedModel
}

func newFixture(t *testing.T, searchers retrieval.Searchers, policy ReviewPolicy) *fixture {
	t.Helper()
	f := &fixture{
		store:      repo.NewMemoryStateStore(),
		decompose:  &scriptedModel{reply: `{"questions":["definition of AI","history of AI","applications of AI"]}`},
		synthesize: &scriptedModel{reply: blogJSON},
	}
	phases, err := BuildPhases(context.Background(), &GraphConfig{
		Decomposer:        nodes.NewDecomposer(f.decompose, "gemini-2.5-flash"),
		Searchers:         searchers,
		Ranker:            ranking.NewPipeline(model.RankingConfig{}, nil, nil),
		Synthesizer:       nodes.NewSynthesizer(f.synthesize, "gemini-2.5-flash"),
		SearchConcurrency: 2,
	})
	require.NoError(t, err)

	seq := 0
	f.engine = NewEngine(f.store, phases,
		WithReviewPolicy(policy),
		WithClock(nil, func() string {
			seq++
			return fmt.Sprintf("id-%d", seq)
		}),
	)
	return f
}
