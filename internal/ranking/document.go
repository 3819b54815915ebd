// Package ranking turns the merged retrieval results into a short,
// relevance-ordered evidence list: hybrid semantic + keyword retrieval,
// reciprocal-rank fusion, then a final relevance rerank.
package ranking

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/blogflow/server/internal/agent/model"
)

// Document metadata keys.
const (
	MetaSource = "source"
	MetaQuery  = "query"
	MetaError  = "error"
)

// ContentText renders a retrieval payload as rankable text. List payloads
// become "Title: t\nSnippet: s" blocks separated by blank lines.
func ContentText(c model.Content) string {
	if c.Kind != model.ContentItems {
		return c.Text
	}
	parts := make([]string, 0, len(c.Items))
	for _, it := range c.Items {
		parts = append(parts, fmt.Sprintf("Title: %s\nSnippet: %s", it.Title, it.Snippet))
	}
	return strings.Join(parts, "\n\n")
}

// Normalize converts results to documents, one per result, keeping order.
// Failed results stay in the set with their error as content.
func Normalize(results []model.SourceResult) []*schema.Document {
	docs := make([]*schema.Document, 0, len(results))
	for i, r := range results {
		meta := map[string]any{
			MetaSource: string(r.Source),
			MetaQuery:  r.Query,
		}
		text := ContentText(r.Content)
		if r.Failed() {
			meta[MetaError] = r.Error
			text = "Error: " + r.Error
		}
		docs = append(docs, &schema.Document{
			ID:       strconv.Itoa(i),
			Content:  text,
			MetaData: meta,
		})
	}
	return docs
}

// ToEvidence converts ranked documents back into evidence records.
func ToEvidence(docs []*schema.Document) []model.EvidenceRecord {
	out := make([]model.EvidenceRecord, 0, len(docs))
	for _, d := range docs {
		out = append(out, model.EvidenceRecord{
			Source:  metaString(d, MetaSource),
			Query:   metaString(d, MetaQuery),
			Content: d.Content,
			Error:   metaString(d, MetaError),
		})
	}
	return out
}

func metaString(d *schema.Document, key string) string {
	if d.MetaData == nil {
		return ""
	}
	s, _ := d.MetaData[key].(string)
	return s
}
