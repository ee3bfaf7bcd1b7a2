// Package hooks runs user-configured shell commands around named workflow
// actions.
//
// Every action is identified by a hook name such as "pull-request.fetch".
// Pre commands run before the action and abort it on failure; post commands
// run only after the action completed successfully.
package hooks

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sort"

	"github.com/google/uuid"

	"thoreinstein.com/prflow/pkg/config"
	prerrors "thoreinstein.com/prflow/pkg/errors"
)

// Hook phases.
const (
	PhasePre  = "pre"
	PhasePost = "post"
)

// Environment variables exported to every hook command.
const (
	EnvHook         = "PRFLOW_HOOK"
	EnvPhase        = "PRFLOW_HOOK_PHASE"
	EnvInvocationID = "PRFLOW_INVOCATION_ID"
)

// Bridge wraps an action with its pre and post hooks.
type Bridge interface {
	Wrap(ctx context.Context, name string, env map[string]string, fn func(context.Context) error) error
}

// CommandRunner executes one hook command line.
type CommandRunner interface {
	Run(ctx context.Context, command string, env []string) error
}

// ShellRunner runs hook commands through sh -c, inheriting the process
// environment.
type ShellRunner struct {
	Stdout io.Writer
	Stderr io.Writer
}

// Run implements CommandRunner.
func (r *ShellRunner) Run(ctx context.Context, command string, env []string) error {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Env = append(os.Environ(), env...)
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	return cmd.Run()
}

// Executor is the Bridge backed by the [[hooks]] configuration.
type Executor struct {
	hooks  map[string]config.HookConfig
	runner CommandRunner
	logger *slog.Logger
	newID  func() string
}

// Compile-time check that Executor implements Bridge.
var _ Bridge = (*Executor)(nil)

// Option configures an Executor.
type Option func(*Executor)

// WithRunner replaces the command runner.
func WithRunner(r CommandRunner) Option {
	return func(e *Executor) {
		e.runner = r
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		e.logger = logger
	}
}

// WithIDGenerator replaces the invocation ID source.
func WithIDGenerator(fn func() string) Option {
	return func(e *Executor) {
		e.newID = fn
	}
}

// NewExecutor builds an Executor from the configured hooks.
func NewExecutor(hooks []config.HookConfig, opts ...Option) *Executor {
	e := &Executor{
		hooks:  make(map[string]config.HookConfig, len(hooks)),
		logger: slog.Default(),
		newID:  uuid.NewString,
	}
	for _, h := range hooks {
		e.hooks[h.Name] = h
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.runner == nil {
		e.runner = &ShellRunner{Stdout: os.Stderr, Stderr: os.Stderr}
	}
	return e
}

// Wrap runs the pre hooks of name, then fn, then the post hooks. A failing
// pre hook aborts before fn. Post hooks are skipped when fn fails. fn's
// error is returned unchanged.
func (e *Executor) Wrap(ctx context.Context, name string, env map[string]string, fn func(context.Context) error) error {
	hook, ok := e.hooks[name]
	if !ok || (len(hook.Pre) == 0 && len(hook.Post) == 0) {
		return fn(ctx)
	}

	id := e.newID()
	logger := e.logger.With("hook", name, "invocation", id)

	if err := e.runPhase(ctx, logger, name, PhasePre, id, hook.Pre, env); err != nil {
		return err
	}

	if err := fn(ctx); err != nil {
		logger.Debug("action failed, skipping post hooks", "error", err)
		return err
	}

	return e.runPhase(ctx, logger, name, PhasePost, id, hook.Post, env)
}

func (e *Executor) runPhase(ctx context.Context, logger *slog.Logger, name, phase, id string, commands []string, env map[string]string) error {
	if len(commands) == 0 {
		return nil
	}

	vars := buildEnv(name, phase, id, env)
	for _, command := range commands {
		logger.Debug("running hook", "phase", phase, "command", command)
		if err := e.runner.Run(ctx, command, vars); err != nil {
			return prerrors.NewHookError(name, phase, command, err)
		}
	}
	return nil
}

// buildEnv renders KEY=value pairs with the fixed variables first and the
// caller's variables in key order.
func buildEnv(name, phase, id string, env map[string]string) []string {
	vars := []string{
		EnvHook + "=" + name,
		EnvPhase + "=" + phase,
		EnvInvocationID + "=" + id,
	}

	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		vars = append(vars, k+"="+env[k])
	}
	return vars
}
