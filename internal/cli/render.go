package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/blogflow/server/internal/agent/model"
)

// Output formats for show.
const (
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
	FormatYAML     = "yaml"
)

func render(w io.Writer, state *model.WorkflowState, format string) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(state)
	case FormatYAML:
		if state.GenerateContext == nil {
			return fmt.Errorf("run %s has no draft yet (phase %s)", state.RunID, state.Phase)
		}
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(state.GenerateContext)
	case FormatMarkdown, "":
		_, err := io.WriteString(w, Markdown(state))
		return err
	default:
		return fmt.Errorf("unknown format %q (want %s, %s or %s)", format, FormatMarkdown, FormatJSON, FormatYAML)
	}
}

// Markdown renders the draft of a run, or a status line when there is none.
func Markdown(state *model.WorkflowState) string {
	doc := state.GenerateContext
	if doc == nil {
		var b strings.Builder
		fmt.Fprintf(&b, "Run %s is at phase %s.\n", state.RunID, state.Phase)
		if state.LastError != "" {
			fmt.Fprintf(&b, "Last error: %s\n", state.LastError)
		}
		return b.String()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", doc.Title)
	section := func(heading, body string) {
		if strings.TrimSpace(body) == "" {
			return
		}
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", heading, strings.TrimSpace(body))
	}
	section("Introduction", doc.Introduction)
	section("Body", doc.BodyContent)
	section("Visuals", doc.VisualsContext)
	section("Conclusion", doc.Conclusion)
	return b.String()
}

func printSummary(w io.Writer, state *model.WorkflowState) {
	fmt.Fprintf(w, "run:    %s\nphase:  %s\n", state.RunID, state.Phase)
	if state.Review.Token != "" {
		fmt.Fprintf(w, "token:  %s\n", state.Review.Token)
	}
	if state.LastError != "" {
		fmt.Fprintf(w, "error:  %s\n", state.LastError)
	}
	fmt.Fprintf(w, "cost:   $%.6f\n", state.TotalCostUSD)
}
