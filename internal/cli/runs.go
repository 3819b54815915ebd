package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blogflow/server/internal/agent/model"
)

func newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start <question>",
		Short: "Start a run and stop at the first draft",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEngine(cmd.Context())
			if err != nil {
				return err
			}
			state, err := engine.Start(cmd.Context(), strings.Join(args, " "))
			if state != nil {
				printSummary(cmd.OutOrStdout(), state)
			}
			return err
		},
	}
}

func newReviewCmd() *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "review <run-id> <feedback|done>",
		Short: "Answer a suspended run with feedback or approval",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEngine(cmd.Context())
			if err != nil {
				return err
			}
			state, err := engine.Resume(cmd.Context(), args[0], model.ReviewInput{
				Answer: strings.Join(args[1:], " "),
				Token:  token,
			})
			if state != nil && err == nil {
				printSummary(cmd.OutOrStdout(), state)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "review token of the pending draft; rejects the answer if the draft changed")
	return cmd
}

func newRetryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "retry <run-id>",
		Short: "Continue a failed run from the phase that failed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEngine(cmd.Context())
			if err != nil {
				return err
			}
			state, err := engine.Retry(cmd.Context(), args[0])
			if state != nil {
				printSummary(cmd.OutOrStdout(), state)
			}
			return err
		},
	}
}

func newShowCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print a run's draft or full state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			state, err := store.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), state, format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", FormatMarkdown, "output format: markdown, json or yaml")
	return cmd
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Discard a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			if err := store.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}

