package ranking

import (
	"context"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/schema"
)

// BM25 parameters.
const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// KeywordRetriever ranks an in-memory document set with Okapi BM25.
type KeywordRetriever struct {
	docs   []*schema.Document
	terms  []map[string]int
	lens   []int
	avgLen float64
	df     map[string]int
	topK   int
}

var _ retriever.Retriever = (*KeywordRetriever)(nil)

// NewKeywordRetriever indexes docs. topK <= 0 returns every document.
func NewKeywordRetriever(docs []*schema.Document, topK int) *KeywordRetriever {
	k := &KeywordRetriever{
		docs:  docs,
		terms: make([]map[string]int, len(docs)),
		lens:  make([]int, len(docs)),
		df:    map[string]int{},
		topK:  topK,
	}
	total := 0
	for i, d := range docs {
		toks := tokenize(d.Content)
		tf := make(map[string]int, len(toks))
		for _, t := range toks {
			tf[t]++
		}
		for t := range tf {
			k.df[t]++
		}
		k.terms[i] = tf
		k.lens[i] = len(toks)
		total += len(toks)
	}
	if len(docs) > 0 {
		k.avgLen = float64(total) / float64(len(docs))
	}
	return k
}

// Retrieve returns documents ordered by descending BM25 score; equal scores
// keep input order.
func (k *KeywordRetriever) Retrieve(_ context.Context, query string, opts ...retriever.Option) ([]*schema.Document, error) {
	topK := k.topK
	if o := retriever.GetCommonOptions(&retriever.Options{}, opts...); o.TopK != nil {
		topK = *o.TopK
	}

	scores := k.scores(tokenize(query))
	idx := make([]int, len(k.docs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return scores[idx[a]] > scores[idx[b]] })

	if topK > 0 && topK < len(idx) {
		idx = idx[:topK]
	}
	out := make([]*schema.Document, 0, len(idx))
	for _, i := range idx {
		out = append(out, k.docs[i])
	}
	return out, nil
}

func (k *KeywordRetriever) scores(query []string) []float64 {
	n := float64(len(k.docs))
	scores := make([]float64, len(k.docs))
	for _, q := range query {
		df := float64(k.df[q])
		if df == 0 {
			continue
		}
		idf := math.Log(1 + (n-df+0.5)/(df+0.5))
		for i, tf := range k.terms {
			f := float64(tf[q])
			if f == 0 {
				continue
			}
			norm := 1 - bm25B
			if k.avgLen > 0 {
				norm += bm25B * float64(k.lens[i]) / k.avgLen
			}
			scores[i] += idf * f * (bm25K1 + 1) / (f + bm25K1*norm)
		}
	}
	return scores
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
