// Package prompts renders the chat messages sent to the decomposition and
// synthesis models.
package prompts

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

//go:embed template/decompose_prompt.txt
var decomposeSystemPrompt string

//go:embed template/synthesize_prompt.txt
var synthesizeSystemPrompt string

// RenderDecompose renders the decomposition messages via the Eino prompt
// component so prompt callbacks fire.
func RenderDecompose(ctx context.Context, question string) ([]*schema.Message, error) {
	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(decomposeSystemPrompt),
		schema.UserMessage("Question: {{.Question}}"),
	)
	msgs, err := tpl.Format(ctx, map[string]any{"Question": question})
	if err != nil {
		return nil, fmt.Errorf("decompose prompt render: %w", err)
	}
	if len(msgs) == 0 {
		return nil, fmt.Errorf("decompose prompt render: empty result")
	}
	return msgs, nil
}

// RenderSynthesize renders the synthesis messages. feedback is the
// accumulated reviewer feedback, possibly empty.
func RenderSynthesize(ctx context.Context, question, evidence, feedback string) ([]*schema.Message, error) {
	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(synthesizeSystemPrompt),
		schema.UserMessage("Question: {{.Question}}\nContext:\n{{.Context}}\nUser_feedback:\n{{.Feedback}}"),
	)
	vars := map[string]any{
		"Question":    question,
		"Context":     evidence,
		"Feedback":    feedback,
		"HasFeedback": strings.TrimSpace(feedback) != "",
	}
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return nil, fmt.Errorf("synthesize prompt render: %w", err)
	}
	if len(msgs) == 0 {
		return nil, fmt.Errorf("synthesize prompt render: empty result")
	}
	return msgs, nil
}
