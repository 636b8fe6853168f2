package dev

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/vango-dev/devstatic/internal/errors"
)

// TaskOptions configures RunTasks.
type TaskOptions struct {
	// Server configures the server started by the static step. Its
	// Standalone field is derived from the step list.
	Server ServerOptions

	// Dir is the working directory of command steps. Defaults to the config dir.
	Dir string

	// Stdout and Stderr receive command step output. Default: os.Stdout, os.Stderr.
	Stdout io.Writer
	Stderr io.Writer

	// Logger defaults to Server.Logger, then slog.Default().
	Logger *slog.Logger

	// OnServer is called with the server once it is constructed.
	OnServer func(*Server)
}

// Standalone reports whether steps runs the server and nothing else.
func Standalone(steps []string) bool {
	return len(steps) == 1 && steps[0] == StepStatic
}

// RunTasks runs steps in order. The static step starts the server and moves
// on once it is listening; every other step is a shell command that must
// exit zero. The server is shut down after the last step. When static is
// the only step, RunTasks serves until ctx is cancelled.
func RunTasks(ctx context.Context, steps []string, opts TaskOptions) error {
	if len(steps) == 0 {
		steps = []string{StepStatic}
	}

	logger := opts.Logger
	if logger == nil {
		logger = opts.Server.Logger
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var serverErr chan error
	for _, step := range steps {
		if step != StepStatic {
			if err := runCommand(ctx, step, opts, logger); err != nil {
				return err
			}
			continue
		}

		if serverErr != nil {
			logger.Warn("server already running, skipping step", "step", step)
			continue
		}

		serverOpts := opts.Server
		serverOpts.Standalone = Standalone(steps)
		srv, err := NewServer(serverOpts)
		if err != nil {
			return err
		}
		if opts.OnServer != nil {
			opts.OnServer(srv)
		}

		ready := make(chan struct{})
		serverErr = make(chan error, 1)
		go func() {
			serverErr <- srv.Start(ctx, func() { close(ready) })
		}()

		if serverOpts.Standalone {
			return <-serverErr
		}
		select {
		case <-ready:
		case err := <-serverErr:
			return err
		}
	}

	cancel()
	if serverErr != nil {
		return <-serverErr
	}
	return nil
}

func runCommand(ctx context.Context, command string, opts TaskOptions, logger *slog.Logger) error {
	dir := opts.Dir
	if dir == "" && opts.Server.Config != nil {
		dir = opts.Server.Config.Dir()
	}
	stdout, stderr := opts.Stdout, opts.Stderr
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}

	logger.Info("Running step", "step", command)
	start := time.Now()

	proc, err := startProcess(command, dir, os.Environ(), stdout, stderr)
	if err != nil {
		return errors.New(errors.CodeStepFailed).WithDetail(command).Wrap(err)
	}

	select {
	case err := <-proc.done:
		if err != nil {
			return errors.New(errors.CodeStepFailed).WithDetail(command).Wrap(err)
		}
	case <-ctx.Done():
		stopProcess(proc)
		return ctx.Err()
	}

	logger.Info("Finished step", "step", command, "duration", time.Since(start).Round(time.Millisecond))
	return nil
}
