package git

import (
	"context"
	"log/slog"
	"os/exec"
	"strings"
)

// CommandRunner abstracts process execution so git invocations can be
// replaced in tests.
type CommandRunner interface {
	// Run executes a command in dir and discards its output.
	Run(ctx context.Context, dir, name string, args ...string) error
	// Output executes a command in dir and returns its standard output.
	Output(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

// RealCommandRunner executes commands with os/exec. On failure the returned
// error is an *exec.ExitError whose Stderr field holds the command's stderr.
type RealCommandRunner struct {
	Logger *slog.Logger
}

// Run implements CommandRunner.
func (r *RealCommandRunner) Run(ctx context.Context, dir, name string, args ...string) error {
	_, err := r.Output(ctx, dir, name, args...)
	return err
}

// Output implements CommandRunner.
func (r *RealCommandRunner) Output(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	if r.Logger != nil {
		r.Logger.Debug("exec", "cmd", name+" "+strings.Join(args, " "), "dir", dir)
	}

	cmd := exec.CommandContext(ctx, name, args...)
	if dir != "" {
		cmd.Dir = dir
	}
	return cmd.Output()
}
