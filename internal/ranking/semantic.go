package ranking

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/schema"
)

// SemanticRetriever ranks an in-memory document set by cosine similarity
// between embeddings. Document vectors are computed once, on first use.
type SemanticRetriever struct {
	embedder embedding.Embedder
	docs     []*schema.Document
	vectors  [][]float64
	topK     int
}

var _ retriever.Retriever = (*SemanticRetriever)(nil)

func NewSemanticRetriever(embedder embedding.Embedder, docs []*schema.Document, topK int) *SemanticRetriever {
	return &SemanticRetriever{embedder: embedder, docs: docs, topK: topK}
}

func (s *SemanticRetriever) Retrieve(ctx context.Context, query string, opts ...retriever.Option) ([]*schema.Document, error) {
	if len(s.docs) == 0 {
		return nil, nil
	}
	topK := s.topK
	if o := retriever.GetCommonOptions(&retriever.Options{}, opts...); o.TopK != nil {
		topK = *o.TopK
	}

	if s.vectors == nil {
		texts := make([]string, len(s.docs))
		for i, d := range s.docs {
			texts[i] = d.Content
		}
		vecs, err := s.embedder.EmbedStrings(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embedding documents: %w", err)
		}
		if len(vecs) != len(s.docs) {
			return nil, fmt.Errorf("embedding documents: got %d vectors for %d documents", len(vecs), len(s.docs))
		}
		s.vectors = vecs
	}

	qv, err := s.embedder.EmbedStrings(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(qv) != 1 {
		return nil, fmt.Errorf("embedding query: got %d vectors", len(qv))
	}

	scores := make([]float64, len(s.docs))
	for i, v := range s.vectors {
		scores[i] = cosine(qv[0], v)
	}
	idx := make([]int, len(s.docs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return scores[idx[a]] > scores[idx[b]] })
	if topK > 0 && topK < len(idx) {
		idx = idx[:topK]
	}

	out := make([]*schema.Document, 0, len(idx))
	for _, i := range idx {
		out = append(out, s.docs[i])
	}
	return out, nil
}

func cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
