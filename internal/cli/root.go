// Package cli is the blogflow command line: terminal review loop, run
// management and the HTTP server.
package cli

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/blogflow/server/internal/agent/graph"
	"github.com/blogflow/server/internal/agent/model"
	logx "github.com/blogflow/server/pkg/logger"
)

// app holds what a command needs once the root has loaded config.
type app struct {
	cfg    *AppConfig
	store  model.StateStore
	closer io.Closer
	engine *graph.Engine
}

var current app

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:   "blogflow",
		Short: "Research a question and draft a reviewed blog post",
		Long: `blogflow decomposes a question into sub-queries, searches the web, arXiv and
Wikipedia, ranks the evidence and drafts a structured blog post. Every draft
waits for a reviewer: reply with feedback to regenerate or "done" to finalise.

Runs are checkpointed after every phase, so a failed run can be retried and a
suspended run can be reviewed from another process or over HTTP.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, dotenvErr, err := loadConfig(envFile)
			if err != nil {
				return err
			}
			logx.Init(logx.LoggerOpts{Environment: cfg.Env(), Level: cfg.LogLevel})
			if dotenvErr != nil {
				logx.Debug().Err(dotenvErr).Str("file", envFile).Msg("Could not load env file")
			}
			current.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")

	root.AddCommand(
		newRunCmd(),
		newStartCmd(),
		newReviewCmd(),
		newRetryCmd(),
		newShowCmd(),
		newDeleteCmd(),
		newServeCmd(),
	)
	return root
}

// Execute runs the root command with the process arguments.
func Execute(ctx context.Context) error {
	return execute(ctx, os.Args[1:])
}

// execute releases the store whether or not the command failed; cobra skips
// post-run hooks after a RunE error.
func execute(ctx context.Context, args []string) error {
	root := NewRootCmd()
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if cerr := closeApp(); cerr != nil {
		logx.Error().Err(cerr).Msg("failed to close state store")
		if err == nil {
			err = cerr
		}
	}
	return err
}

func closeApp() error {
	closer := current.closer
	current = app{}
	if closer == nil {
		return nil
	}
	return closer.Close()
}

// openStore opens only the store; used by commands that never call a provider.
func openStore(ctx context.Context) (model.StateStore, error) {
	if current.store != nil {
		return current.store, nil
	}
	store, closer, err := newStore(ctx, current.cfg)
	if err != nil {
		return nil, err
	}
	current.store, current.closer = store, closer
	return store, nil
}

// openEngine opens the store and wires the full engine.
func openEngine(ctx context.Context) (*graph.Engine, error) {
	if current.engine != nil {
		return current.engine, nil
	}
	store, err := openStore(ctx)
	if err != nil {
		return nil, err
	}
	engine, err := buildEngine(ctx, current.cfg, store)
	if err != nil {
		return nil, err
	}
	current.engine = engine
	return engine, nil
}
