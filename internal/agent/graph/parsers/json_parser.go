package parsers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/blogflow/server/internal/agent/model"
	errx "github.com/blogflow/server/internal/core/error"
	logx "github.com/blogflow/server/pkg/logger"
)

// basic safety limits to avoid pathological inputs
const (
	maxContentLen = 256 * 1024 // 256KB
	maxQuestions  = 20         // maximum number of sub-questions kept
	maxErrSnippet = 200        // limit error snippet size
)

var documentFields = []string{"title", "introduction", "body_content", "visuals_context", "conclusion"}

type decomposedQueries struct {
	Questions []string `json:"questions"`
}

// ParseDecomposition extracts the sub-questions from a model response.
// Entries are trimmed, blanks dropped, duplicates removed keeping the first
// occurrence. An error means the response carried no usable questions.
func ParseDecomposition(content string) (questions []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("component", "decompose_parser").Msgf("panic recovered: %v", r)
			questions = nil
			err = errx.New(fmt.Errorf("decompose parser panic"), http.StatusInternalServerError, errx.SystemErrorMessage)
		}
	}()

	body, err := objectBody(content)
	if err != nil {
		return nil, err
	}
	var out decomposedQueries
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		return nil, fmt.Errorf("decode response: %w (%q)", err, safeSnippet(body))
	}

	seen := make(map[string]bool, len(out.Questions))
	for _, q := range out.Questions {
		q = strings.TrimSpace(q)
		if q == "" || seen[q] {
			continue
		}
		seen[q] = true
		questions = append(questions, q)
		if len(questions) == maxQuestions {
			break
		}
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("no questions in response")
	}
	return questions, nil
}

// ParseDocument decodes a StructuredDocument. All five fields must be
// present and title/body_content non-empty; anything else is
// errx.ErrSchemaViolation.
func ParseDocument(content string) (doc *model.StructuredDocument, err error) {
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("component", "document_parser").Msgf("panic recovered: %v", r)
			doc = nil
			err = errx.New(fmt.Errorf("document parser panic"), http.StatusInternalServerError, errx.SystemErrorMessage)
		}
	}()

	body, err := objectBody(content)
	if err != nil {
		return nil, schemaViolation(err.Error())
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return nil, schemaViolation(fmt.Sprintf("decode response: %v (%q)", err, safeSnippet(body)))
	}
	for _, field := range documentFields {
		if _, ok := raw[field]; !ok {
			return nil, schemaViolation("missing field " + field)
		}
	}

	var out model.StructuredDocument
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		return nil, schemaViolation(err.Error())
	}
	out.Title = strings.TrimSpace(out.Title)
	if out.Title == "" {
		return nil, schemaViolation("empty title")
	}
	if strings.TrimSpace(out.BodyContent) == "" {
		return nil, schemaViolation("empty body_content")
	}
	return &out, nil
}

func schemaViolation(reason string) error {
	return errx.New(fmt.Errorf("%w: %s", errx.ErrSchemaViolation, reason), http.StatusBadGateway, errx.UpstreamErrorMessage)
}

// objectBody locates the JSON object in a model response: bare, fenced, or
// surrounded by prose.
func objectBody(content string) (string, error) {
	if len(content) > maxContentLen {
		logx.Warn().
			Str("component", "json_parser").
			Int("max_len", maxContentLen).
			Int("orig_len", len(content)).
			Msg("content truncated due to size limit")
		content = content[:maxContentLen]
	}
	if !utf8.ValidString(content) {
		return "", fmt.Errorf("content invalid utf8")
	}

	body := extractObject(content)
	if body == "" {
		return "", fmt.Errorf("no json object in response: %q", safeSnippet(content))
	}
	return body, nil
}

func extractObject(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

func safeSnippet(s string) string {
	if len(s) <= maxErrSnippet {
		return s
	}
	return s[:maxErrSnippet] + "..."
}
