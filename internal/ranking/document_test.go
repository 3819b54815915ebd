package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blogflow/server/internal/agent/model"
)

func TestNormalize(t *testing.T) {
	results := []model.SourceResult{
		{
			Source: model.SourceWeb,
			Query:  "definition of AI",
			Content: model.ItemsContent([]model.ContentItem{
				{Title: "AI", Snippet: "Machines that think."},
				{Title: "ML", Snippet: "Learning from data."},
			}),
		},
		{Source: model.SourceAcademic, Query: "history of AI", Content: model.TextContent("Dartmouth 1956")},
		{Source: model.SourceEncyclopedia, Query: "history of AI", Error: "Wikipedia unavailable"},
	}

	docs := Normalize(results)
	require.Len(t, docs, 3)

	assert.Equal(t, "Title: AI\nSnippet: Machines that think.\n\nTitle: ML\nSnippet: Learning from data.", docs[0].Content)
	assert.Equal(t, "web", docs[0].MetaData[MetaSource])
	assert.Equal(t, "definition of AI", docs[0].MetaData[MetaQuery])

	assert.Equal(t, "Dartmouth 1956", docs[1].Content)
	assert.NotContains(t, docs[1].MetaData, MetaError)

	assert.Equal(t, "Error: Wikipedia unavailable", docs[2].Content)
	assert.Equal(t, "Wikipedia unavailable", docs[2].MetaData[MetaError])

	ids := map[string]bool{}
	for _, d := range docs {
		ids[d.ID] = true
	}
	assert.Len(t, ids, 3)
}

func TestToEvidence(t *testing.T) {
	docs := Normalize([]model.SourceResult{
		{Source: model.SourceEncyclopedia, Query: "q", Error: "boom"},
		{Source: model.SourceWeb, Query: "q", Content: model.TextContent("text")},
	})

	ev := ToEvidence(docs)
	assert.Equal(t, []model.EvidenceRecord{
		{Source: "encyclopedia", Query: "q", Content: "Error: boom", Error: "boom"},
		{Source: "web", Query: "q", Content: "text"},
	}, ev)
}
