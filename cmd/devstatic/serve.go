package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vango-dev/devstatic/internal/dev"
)

func serveCmd() *cobra.Command {
	var flags serverFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the static server in standalone mode",
		Long: `Start the static and live-reload servers and serve until interrupted.

Examples:
  devstatic serve
  devstatic serve --port=8080 --base=dist
  devstatic serve --rewrite 'docs/(.*)=/manual/$1'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSteps(&flags, []string{dev.StepStatic})
		},
	}

	flags.register(cmd.Flags())
	return cmd
}

func runCmd() *cobra.Command {
	var flags serverFlags

	cmd := &cobra.Command{
		Use:   "run [steps...]",
		Short: "Run steps in order, starting the server at the static step",
		Long: `Run a sequence of steps. The "static" step starts the server and the
sequence moves on once it is listening; every other step is a shell
command. The server stops when the last step finishes.

Examples:
  devstatic run static "npm test"
  devstatic run "make assets" static "go test ./e2e/..."`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSteps(&flags, args)
		},
	}

	flags.register(cmd.Flags())
	return cmd
}

func runSteps(flags *serverFlags, steps []string) error {
	logger := flags.logger()

	cfg, err := flags.load()
	if err != nil {
		return err
	}
	if cfg.Path() != "" {
		info("Using %s", cfg.Path())
	} else {
		warn("No config file found, using defaults")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = dev.RunTasks(ctx, steps, dev.TaskOptions{
		Server: dev.ServerOptions{
			Config: cfg,
			Logger: logger,
		},
	})
	if ctx.Err() != nil {
		info("Shutting down...")
		return nil
	}
	if err != nil {
		return err
	}
	success("Done")
	return nil
}
