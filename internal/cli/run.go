package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blogflow/server/internal/agent/model"
	errx "github.com/blogflow/server/internal/core/error"
)

// reviewer is the slice of the engine the terminal loop drives.
type reviewer interface {
	Resume(ctx context.Context, runID string, input model.ReviewInput) (*model.WorkflowState, error)
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <question>",
		Short: "Research a question and review drafts in the terminal",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEngine(cmd.Context())
			if err != nil {
				return err
			}
			state, err := engine.Start(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				if state != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "run %s stopped at %s; retry with: blogflow retry %s\n", state.RunID, state.Phase, state.RunID)
				}
				return err
			}
			_, err = reviewLoop(cmd.Context(), engine, state, cmd.InOrStdin(), cmd.OutOrStdout())
			return err
		},
	}
}

// reviewLoop shows each draft and feeds the reviewer's answer back until the
// run finalizes. It returns the last state seen.
func reviewLoop(ctx context.Context, r reviewer, state *model.WorkflowState, in io.Reader, out io.Writer) (*model.WorkflowState, error) {
	scanner := bufio.NewScanner(in)
	for state.Phase.Suspended() {
		if err := render(out, state, FormatMarkdown); err != nil {
			return state, err
		}
		fmt.Fprint(out, "\nFeedback (or \"done\" to finalise): ")

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return state, err
			}
			fmt.Fprintf(out, "\nrun %s is still awaiting review\n", state.RunID)
			return state, nil
		}
		answer := strings.TrimSpace(scanner.Text())
		if answer == "" {
			continue
		}

		next, err := r.Resume(ctx, state.RunID, model.ReviewInput{Answer: answer, Token: state.Review.Token})
		switch {
		case errors.Is(err, errx.ErrRevisionLimit):
			fmt.Fprintln(out, err)
			continue
		case err != nil:
			return state, err
		}
		state = next
	}
	fmt.Fprintf(out, "run %s finalised\n", state.RunID)
	return state, nil
}
