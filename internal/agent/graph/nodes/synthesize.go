package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/blogflow/server/internal/agent/graph/parsers"
	"github.com/blogflow/server/internal/agent/graph/prompts"
	"github.com/blogflow/server/internal/agent/model"
	errx "github.com/blogflow/server/internal/core/error"
	logx "github.com/blogflow/server/pkg/logger"
)

const contextSeparator = "\n\n---\n\n"

// Synthesis is the synthesizer output.
type Synthesis struct {
	Document *model.StructuredDocument
	Usage    model.Usage
}

// UsageError carries the usage of a model call whose output was rejected,
// so the run is still charged for it.
type UsageError struct {
	Err   error
	Usage model.Usage
}

func (e *UsageError) Error() string { return e.Err.Error() }

func (e *UsageError) Unwrap() error { return e.Err }

// Synthesizer writes the blog post from the question, evidence and feedback.
type Synthesizer struct {
	Model     Generator
	ModelName string
}

func NewSynthesizer(m Generator, modelName string) *Synthesizer {
	return &Synthesizer{Model: m, ModelName: modelName}
}

// BuildContext serializes evidence into the prompt context block.
func BuildContext(records []model.EvidenceRecord) string {
	parts := make([]string, 0, len(records))
	for _, r := range records {
		source := r.Source
		if source == "" {
			source = "unknown"
		}
		if r.Error != "" {
			parts = append(parts, fmt.Sprintf("Source: %s\nQuery: %s\nError: %s", source, r.Query, r.Error))
			continue
		}
		parts = append(parts, fmt.Sprintf("Source: %s\nQuery: %s\nContent: %s", source, r.Query, r.Content))
	}
	return strings.Join(parts, contextSeparator)
}

// Synthesize returns a document with a non-empty title and body or an
// error; it never substitutes an empty document.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, records []model.EvidenceRecord, feedback string) (Synthesis, error) {
	if s.Model == nil {
		return Synthesis{}, errx.Upstream(fmt.Errorf("synthesize: %w", errx.ErrProviderMisconfig))
	}

	msgs, err := prompts.RenderSynthesize(ctx, question, BuildContext(records), feedback)
	if err != nil {
		return Synthesis{}, err
	}

	out, err := s.Model.Generate(ctx, msgs)
	if err != nil {
		logx.Error().Err(err).Str("node", NodeSynthesize).Msg("synthesis model call failed")
		return Synthesis{}, errx.Upstream(fmt.Errorf("synthesize: %w", err))
	}
	if out == nil {
		return Synthesis{}, errx.Upstream(fmt.Errorf("synthesize: empty model response"))
	}

	usage := model.UsageOf(out, s.ModelName)
	logUsage(NodeSynthesize, s.ModelName, usage)

	doc, err := parsers.ParseDocument(out.Content)
	if err != nil {
		logx.Error().Err(err).Str("node", NodeSynthesize).Msg("synthesis output rejected")
		return Synthesis{Usage: usage}, &UsageError{Err: err, Usage: usage}
	}
	return Synthesis{Document: doc, Usage: usage}, nil
}
