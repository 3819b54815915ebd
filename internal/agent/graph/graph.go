package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/compose"

	"github.com/blogflow/server/internal/agent/graph/nodes"
	"github.com/blogflow/server/internal/agent/model"
	"github.com/blogflow/server/internal/retrieval"
	logx "github.com/blogflow/server/pkg/logger"
)

// Decomposer splits a question into sub-queries.
type Decomposer interface {
	Decompose(ctx context.Context, question string) (nodes.Decomposition, error)
}

// Ranker reduces merged retrieval results to ranked evidence.
type Ranker interface {
	Rank(ctx context.Context, question string, results []model.SourceResult) ([]model.EvidenceRecord, error)
}

// Synthesizer writes the blog post.
type Synthesizer interface {
	Synthesize(ctx context.Context, question string, records []model.EvidenceRecord, feedback string) (nodes.Synthesis, error)
}

// RerankInput is the rerank phase input.
type RerankInput struct {
	Question string
	Results  []model.SourceResult
}

// SynthesisInput is the synthesize phase input.
type SynthesisInput struct {
	Question string
	Evidence []model.EvidenceRecord
	Feedback string
}

// GraphConfig holds the collaborators wired into the phase graphs.
type GraphConfig struct {
	Decomposer        Decomposer
	Searchers         retrieval.Searchers
	Ranker            Ranker
	Synthesizer       Synthesizer
	SearchTimeout     time.Duration
	SearchConcurrency int
}

// Phases holds one compiled runnable per workflow phase.
type Phases struct {
	Decompose  compose.Runnable[string, nodes.Decomposition]
	Retrieve   compose.Runnable[[]string, []model.SourceResult]
	Rerank     compose.Runnable[RerankInput, []model.EvidenceRecord]
	Synthesize compose.Runnable[SynthesisInput, nodes.Synthesis]
}

// GraphBuilder handles the construction of the retrieval fan-out graph
type GraphBuilder struct {
	config *GraphConfig
	graph  *compose.Graph[[]string, []model.SourceResult]
}

// BuildPhases validates config and compiles every phase.
func BuildPhases(ctx context.Context, config *GraphConfig) (*Phases, error) {
	if config == nil {
		return nil, fmt.Errorf("graph config is nil")
	}
	if config.Decomposer == nil || config.Ranker == nil || config.Synthesizer == nil {
		return nil, fmt.Errorf("decomposer, ranker and synthesizer are required")
	}

	decompose, err := buildPhase(ctx, nodes.NodeDecompose, config.Decomposer.Decompose)
	if err != nil {
		return nil, err
	}
	retrieve, err := BuildRetrievalGraph(ctx, config)
	if err != nil {
		return nil, err
	}
	rerank, err := buildPhase(ctx, nodes.NodeRerank, func(ctx context.Context, in RerankInput) ([]model.EvidenceRecord, error) {
		return config.Ranker.Rank(ctx, in.Question, in.Results)
	})
	if err != nil {
		return nil, err
	}
	synthesize, err := buildPhase(ctx, nodes.NodeSynthesize, func(ctx context.Context, in SynthesisInput) (nodes.Synthesis, error) {
		return config.Synthesizer.Synthesize(ctx, in.Question, in.Evidence, in.Feedback)
	})
	if err != nil {
		return nil, err
	}

	logx.Debug().Msg("Workflow phases compiled successfully")
	return &Phases{
		Decompose:  decompose,
		Retrieve:   retrieve,
		Rerank:     rerank,
		Synthesize: synthesize,
	}, nil
}

// buildPhase wraps fn as a single-node graph so it runs with the same
// callbacks as the retrieval graph.
func buildPhase[I, O any](ctx context.Context, name string, fn func(context.Context, I) (O, error)) (compose.Runnable[I, O], error) {
	g := compose.NewGraph[I, O]()
	if err := g.AddLambdaNode(name, compose.InvokableLambda(fn), compose.WithNodeName(name)); err != nil {
		return nil, fmt.Errorf("error adding %s node: %w", name, err)
	}
	if err := g.AddEdge(compose.START, name); err != nil {
		return nil, err
	}
	if err := g.AddEdge(name, compose.END); err != nil {
		return nil, err
	}

	r, err := g.Compile(ctx, compose.WithGraphName("phase_"+name))
	if err != nil {
		logx.Error().Err(err).Str("node", name).Msg("Error compiling phase graph")
		return nil, fmt.Errorf("error compiling %s graph: %w", name, err)
	}
	return r, nil
}

// BuildRetrievalGraph compiles START -> {web, academic, encyclopedia} ->
// merge -> END. The merge node fires only after all three sources finish.
func BuildRetrievalGraph(ctx context.Context, config *GraphConfig) (compose.Runnable[[]string, []model.SourceResult], error) {
	if config == nil {
		return nil, fmt.Errorf("graph config is nil")
	}
	builder := &GraphBuilder{
		config: config,
		graph:  compose.NewGraph[[]string, []model.SourceResult](),
	}
	if err := builder.addNodes(); err != nil {
		return nil, err
	}
	if err := builder.addEdges(); err != nil {
		return nil, err
	}
	return builder.compile(ctx)
}

// addNodes adds one retrieval node per source plus the merge barrier
func (b *GraphBuilder) addNodes() error {
	for _, source := range model.Sources {
		runner := &retrieval.SourceRunner{
			Source:      source,
			Searcher:    b.config.Searchers.For(source),
			Timeout:     b.config.SearchTimeout,
			Concurrency: b.config.SearchConcurrency,
		}
		err := b.graph.AddLambdaNode(string(source),
			nodes.NewRetrievalNode(runner),
			compose.WithOutputKey(string(source)),
			compose.WithNodeName(string(source)),
		)
		if err != nil {
			logx.Error().Err(err).Str("node", string(source)).Msg("Error adding retrieval node")
			return fmt.Errorf("error adding %s node: %w", source, err)
		}
	}

	if err := b.graph.AddLambdaNode(nodes.NodeMerge, nodes.NewMergeNode(), compose.WithNodeName(nodes.NodeMerge)); err != nil {
		logx.Error().Err(err).Msg("Error adding merge node")
		return fmt.Errorf("error adding merge node: %w", err)
	}
	return nil
}

// addEdges creates the fan-out from START and the fan-in into merge
func (b *GraphBuilder) addEdges() error {
	var edges [][2]string
	for _, source := range model.Sources {
		edges = append(edges,
			[2]string{compose.START, string(source)},
			[2]string{string(source), nodes.NodeMerge},
		)
	}
	edges = append(edges, [2]string{nodes.NodeMerge, compose.END})

	for _, edge := range edges {
		if err := b.graph.AddEdge(edge[0], edge[1]); err != nil {
			return fmt.Errorf("error adding edge %s -> %s: %w", edge[0], edge[1], err)
		}
	}
	return nil
}

// compile finalizes and compiles the graph
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[[]string, []model.SourceResult], error) {
	runnable, err := b.graph.Compile(ctx,
		compose.WithGraphName("retrieval"),
		compose.WithNodeTriggerMode(compose.AllPredecessor),
	)
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling retrieval graph")
		return nil, fmt.Errorf("error compiling retrieval graph: %w", err)
	}

	logx.Debug().Msg("Retrieval graph compiled successfully")
	return runnable, nil
}
