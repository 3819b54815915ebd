package parsers

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errx "github.com/blogflow/server/internal/core/error"
)

func TestParseDecomposition(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
		wantErr bool
	}{
		{
			name:    "plain json",
			content: `{"questions":["definition of AI","history of AI"]}`,
			want:    []string{"definition of AI", "history of AI"},
		},
		{
			name:    "fenced with prose",
			content: "Here you go:\n```json\n{\"questions\": [\"  applications of AI \"]}\n```",
			want:    []string{"applications of AI"},
		},
		{
			name:    "blanks and duplicates dropped",
			content: `{"questions":["a", " ", "b", "a", ""]}`,
			want:    []string{"a", "b"},
		},
		{name: "empty list", content: `{"questions":[]}`, wantErr: true},
		{name: "only blanks", content: `{"questions":["  "]}`, wantErr: true},
		{name: "not json", content: "I cannot help with that.", wantErr: true},
		{name: "wrong type", content: `{"questions":"what is ai"}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDecomposition(tt.content)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDecomposition_CapsQuestions(t *testing.T) {
	qs := make([]string, 0, 30)
	for i := 0; i < 30; i++ {
		qs = append(qs, `"q`+strings.Repeat("x", i)+`"`)
	}
	got, err := ParseDecomposition(`{"questions":[` + strings.Join(qs, ",") + `]}`)
	require.NoError(t, err)
	assert.Len(t, got, maxQuestions)
}

const validDoc = `{
  "title": "What is AI?",
  "introduction": "An overview.",
  "body_content": "AI is the simulation of human intelligence by machines.",
  "visuals_context": "A timeline chart.",
  "conclusion": "AI keeps evolving."
}`

func TestParseDocument(t *testing.T) {
	doc, err := ParseDocument("```json\n" + validDoc + "\n```")
	require.NoError(t, err)
	assert.Equal(t, "What is AI?", doc.Title)
	assert.Equal(t, "An overview.", doc.Introduction)
	assert.Equal(t, "A timeline chart.", doc.VisualsContext)
	assert.Equal(t, "AI keeps evolving.", doc.Conclusion)
}

func TestParseDocument_SchemaViolations(t *testing.T) {
	tests := map[string]string{
		"not json":         "Sorry, no blog today.",
		"missing field":    `{"title":"t","introduction":"","body_content":"b","conclusion":""}`,
		"empty title":      `{"title":" ","introduction":"","body_content":"b","visuals_context":"","conclusion":""}`,
		"empty body":       `{"title":"t","introduction":"","body_content":"","visuals_context":"","conclusion":""}`,
		"wrong field type": `{"title":1,"introduction":"","body_content":"b","visuals_context":"","conclusion":""}`,
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseDocument(content)
			require.Error(t, err)
			assert.ErrorIs(t, err, errx.ErrSchemaViolation)
			assert.Equal(t, http.StatusBadGateway, errx.StatusOf(err))
		})
	}
}

func TestSafeSnippet(t *testing.T) {
	long := strings.Repeat("a", maxErrSnippet+50)
	assert.Len(t, safeSnippet(long), maxErrSnippet+3)
	assert.Equal(t, "short", safeSnippet("short"))
}
