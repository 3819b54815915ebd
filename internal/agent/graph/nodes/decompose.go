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

// Decomposition is the decomposer output.
type Decomposition struct {
	Queries []string
	Usage   model.Usage
}

// Decomposer splits a question into self-contained sub-questions.
type Decomposer struct {
	Model     Generator
	ModelName string
}

func NewDecomposer(m Generator, modelName string) *Decomposer {
	return &Decomposer{Model: m, ModelName: modelName}
}

// Decompose never returns an empty list: unusable model output degrades to
// the question itself. Provider failures are returned as upstream errors.
func (d *Decomposer) Decompose(ctx context.Context, question string) (Decomposition, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Decomposition{}, errx.BadRequest(errx.ErrEmptyQuestion)
	}
	if d.Model == nil {
		return Decomposition{}, errx.Upstream(fmt.Errorf("decompose: %w", errx.ErrProviderMisconfig))
	}

	msgs, err := prompts.RenderDecompose(ctx, question)
	if err != nil {
		return Decomposition{}, err
	}

	out, err := d.Model.Generate(ctx, msgs)
	if err != nil {
		logx.Error().Err(err).Str("node", NodeDecompose).Msg("decompose model call failed")
		return Decomposition{}, errx.Upstream(fmt.Errorf("decompose: %w", err))
	}

	usage := model.UsageOf(out, d.ModelName)
	logUsage(NodeDecompose, d.ModelName, usage)

	content := ""
	if out != nil {
		content = out.Content
	}
	queries, err := parsers.ParseDecomposition(content)
	if err != nil {
		logx.Warn().Err(err).Str("node", NodeDecompose).Msg("unusable decomposition, falling back to the question")
		queries = []string{question}
	}
	return Decomposition{Queries: queries, Usage: usage}, nil
}
