package ranking

import (
	"context"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/schema"

	"github.com/blogflow/server/internal/agent/model"
	logx "github.com/blogflow/server/pkg/logger"
)

// Defaults for the hybrid ranking stage.
const (
	DefaultSemanticTopK   = 15
	DefaultKeywordTopK    = 15
	DefaultSemanticWeight = 0.7
	DefaultKeywordWeight  = 0.3
	DefaultRerankTopN     = 10
)

// Pipeline is the evidence reranker: normalize, hybrid retrieve, fuse,
// rerank. Embedder and Reranker are optional; without an embedder only
// keyword ranking is fused, without a reranker the fused list is truncated.
type Pipeline struct {
	Embedder embedding.Embedder
	Reranker Reranker

	SemanticTopK   int
	KeywordTopK    int
	SemanticWeight float64
	KeywordWeight  float64
	TopN           int
}

// NewPipeline applies config over the defaults.
func NewPipeline(cfg model.RankingConfig, embedder embedding.Embedder, reranker Reranker) *Pipeline {
	p := &Pipeline{
		Embedder:       embedder,
		Reranker:       reranker,
		SemanticTopK:   cfg.SemanticTopK,
		KeywordTopK:    cfg.KeywordTopK,
		SemanticWeight: cfg.SemanticWeight,
		KeywordWeight:  cfg.KeywordWeight,
		TopN:           cfg.RerankTopN,
	}
	if p.SemanticTopK <= 0 {
		p.SemanticTopK = DefaultSemanticTopK
	}
	if p.KeywordTopK <= 0 {
		p.KeywordTopK = DefaultKeywordTopK
	}
	if p.SemanticWeight <= 0 && p.KeywordWeight <= 0 {
		p.SemanticWeight, p.KeywordWeight = DefaultSemanticWeight, DefaultKeywordWeight
	}
	if p.TopN <= 0 {
		p.TopN = DefaultRerankTopN
	}
	return p
}

// Rank returns at most TopN evidence records, never more than len(results).
func (p *Pipeline) Rank(ctx context.Context, question string, results []model.SourceResult) ([]model.EvidenceRecord, error) {
	docs := Normalize(results)
	if len(docs) == 0 {
		return []model.EvidenceRecord{}, nil
	}

	var (
		lists   [][]*schema.Document
		weights []float64
	)
	if p.Embedder != nil {
		semantic, err := p.retrieve(ctx, NewSemanticRetriever(p.Embedder, docs, p.SemanticTopK), question)
		if err != nil {
			logx.Warn().Err(err).Msg("semantic ranking failed, using keyword ranking only")
		} else {
			lists = append(lists, semantic)
			weights = append(weights, p.SemanticWeight)
		}
	}
	keyword, err := p.retrieve(ctx, NewKeywordRetriever(docs, p.KeywordTopK), question)
	if err != nil {
		return nil, err
	}
	lists = append(lists, keyword)
	weights = append(weights, p.KeywordWeight)

	fused := FuseRRF(lists, weights)

	topN := min(p.TopN, len(fused))
	final := fused[:topN]
	if p.Reranker != nil {
		reranked, err := p.Reranker.Rerank(ctx, question, fused, topN)
		if err != nil {
			logx.Warn().Err(err).Msg("relevance rerank failed, keeping fused order")
		} else {
			final = reranked
		}
	}
	if len(final) > topN {
		final = final[:topN]
	}

	logx.Debug().
		Int("documents", len(docs)).
		Int("fused", len(fused)).
		Int("evidence", len(final)).
		Msg("evidence ranked")
	return ToEvidence(final), nil
}

func (p *Pipeline) retrieve(ctx context.Context, r retriever.Retriever, query string) ([]*schema.Document, error) {
	return r.Retrieve(ctx, query)
}
