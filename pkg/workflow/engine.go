package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"

	"thoreinstein.com/prflow/pkg/config"
	prerrors "thoreinstein.com/prflow/pkg/errors"
	"thoreinstein.com/prflow/pkg/github"
	"thoreinstein.com/prflow/pkg/hooks"
)

// Git is the working tree the engine drives. *git.Repository implements it.
type Git interface {
	FetchBranch(ctx context.Context, url, remoteBranch, localBranch string) error
	Checkout(ctx context.Context, branch string) error
	Merge(ctx context.Context, branch string) error
	Rebase(ctx context.Context, branch string) error
	Push(ctx context.Context, remote, branch string) error
	DeleteBranch(ctx context.Context, branch string) error
	CurrentBranch(ctx context.Context) (string, error)
	LastCommitMessage(ctx context.Context, branch string) (string, error)
	CountUserCommits(ctx context.Context, base, branch string) (int, error)
}

// Opener opens a URL, typically in the user's browser.
type Opener func(url string) error

type replacement struct {
	re   *regexp.Regexp
	repl string
}

// Engine resolves invocation options and runs the requested actions.
type Engine struct {
	github     github.Client
	git        Git
	codec      BranchCodec
	reconciler *Reconciler
	lister     *Lister
	bridge     hooks.Bridge
	open       Opener
	cfg        *config.Config
	replace    []replacement
	logger     *slog.Logger
}

// EngineOption is a functional option for configuring Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithBridge wraps every action with bridge instead of the hooks from
// configuration.
func WithBridge(bridge hooks.Bridge) EngineOption {
	return func(e *Engine) {
		e.bridge = bridge
	}
}

// WithOpener sets how the browser action opens URLs.
func WithOpener(open Opener) EngineOption {
	return func(e *Engine) {
		e.open = open
	}
}

// NewEngine creates a workflow engine.
//
// Parameters:
//   - gh: GitHub client (required)
//   - repo: working tree (required)
//   - cfg: configuration (required, validated)
func NewEngine(gh github.Client, repo Git, cfg *config.Config, opts ...EngineOption) (*Engine, error) {
	if cfg == nil {
		return nil, prerrors.NewConfigError("", "configuration is required")
	}

	e := &Engine{
		github: gh,
		git:    repo,
		codec:  NewBranchCodec(cfg.PullRequest.BranchPrefix),
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.bridge == nil {
		e.bridge = hooks.NewExecutor(cfg.Hooks, hooks.WithLogger(e.logger))
	}

	for i, rule := range cfg.PullRequest.Replacements {
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return nil, prerrors.NewConfigErrorWithCause("pull_request.replacements",
				"invalid pattern at index "+strconv.Itoa(i), err)
		}
		e.replace = append(e.replace, replacement{re: re, repl: rule.Replacement})
	}

	e.reconciler = NewReconciler(gh, e.logger)
	e.lister = NewLister(gh, e.logger)
	return e, nil
}

// Resolve fills defaults and derived fields of opts and validates them.
// It performs no remote or local mutation; failures are UserInputErrors.
func (e *Engine) Resolve(ctx context.Context, opts Options) (Options, error) {
	if opts.CurrentBranch == "" {
		branch, err := e.git.CurrentBranch(ctx)
		if err != nil {
			e.logger.Debug("could not read current branch", "error", err)
		} else {
			opts.CurrentBranch = branch
		}
	}

	if opts.Number == 0 && opts.CurrentBranch != "" {
		if n, ok := e.codec.Number(opts.CurrentBranch); ok {
			opts.Number = n
			e.logger.Debug("resolved pull request from branch", "branch", opts.CurrentBranch, "number", n)
		}
	}

	if opts.Number > 0 {
		opts.PullBranch = e.codec.Encode(opts.Number)
	}

	// Only an explicit base branch narrows a listing.
	if opts.ListBranch == "" {
		opts.ListBranch = opts.Branch
	}
	if opts.Branch == "" {
		opts.Branch = e.cfg.Git.BaseBranch
		if opts.Branch == "" {
			opts.Branch = "main"
		}
	}
	if opts.Remote == "" {
		opts.Remote = e.cfg.Git.Remote
		if opts.Remote == "" {
			opts.Remote = "origin"
		}
	}
	if opts.State == "" {
		opts.State = defaultString(e.cfg.PullRequest.State, github.StateOpen)
	}
	if opts.Sort == "" {
		opts.Sort = defaultString(e.cfg.PullRequest.Sort, SortCreated)
	}
	if opts.Direction == "" {
		opts.Direction = defaultString(e.cfg.PullRequest.Direction, DirectionDesc)
	}

	if opts.User == "" {
		return opts, prerrors.NewUserInputError("user", "repository owner is unknown")
	}
	if opts.Repo == "" {
		return opts, prerrors.NewUserInputError("repo", "repository name is unknown")
	}
	if opts.Number == 0 && opts.needsNumber() {
		return opts, prerrors.NewUserInputError("number",
			fmt.Sprintf("could not resolve a pull request number from branch %q", opts.CurrentBranch))
	}
	if opts.Number < 0 {
		return opts, prerrors.NewUserInputError("number", "pull request number must be positive")
	}

	if opts.LoggedUser == "" && opts.needsLoggedUser() {
		login, err := e.github.CurrentUser(ctx)
		if err != nil {
			return opts, prerrors.Wrap(err, "failed to determine the authenticated user")
		}
		opts.LoggedUser = login
	}

	return opts, nil
}

// Run resolves opts and runs every requested action in the fixed order.
// A failing action does not prevent later ones; all failures are joined
// into the returned error and recorded in Result.Actions.
func (e *Engine) Run(ctx context.Context, opts Options) (*Result, error) {
	opts, err := e.Resolve(ctx, opts)
	if err != nil {
		return nil, err
	}

	result := &Result{Options: opts}

	// Fetch takes precedence; with it, merge and rebase apply to the fetch.
	fetchOrMerge, fetchOrMergeAction := e.runFetch, ActionFetch
	if !opts.Fetch {
		fetchOrMerge, fetchOrMergeAction = e.runMerge, ActionMerge
	}

	actions := []struct {
		action  Action
		enabled bool
		fn      func(context.Context, Options, *Result) error
	}{
		{ActionBrowser, opts.Browser, e.runBrowser},
		{ActionClose, opts.Close, e.runClose},
		{ActionComment, opts.Comment != "", e.runComment},
		{fetchOrMergeAction, opts.Fetch || opts.Merge || opts.Rebase, fetchOrMerge},
		{ActionForward, opts.Forward != "", e.runForward},
		{ActionInfo, opts.Info, e.runInfo},
		{ActionList, opts.List, e.runList},
		{ActionOpen, opts.Open, e.runOpen},
		{ActionSubmit, opts.Submit != "", e.runSubmit},
	}

	var errs []error
	for _, a := range actions {
		if !a.enabled {
			continue
		}

		e.logger.Debug("running action", "action", a.action)
		fn := a.fn
		err := e.bridge.Wrap(ctx, a.action.HookName(), hookEnv(opts), func(ctx context.Context) error {
			return fn(ctx, opts, result)
		})
		if err != nil && !prerrors.IsHookError(err) {
			err = prerrors.NewWorkflowErrorWithCause(a.action.String(), err.Error(), err)
		}

		result.Actions = append(result.Actions, ActionResult{Action: a.action, Err: err})
		if err != nil {
			e.logger.Debug("action failed", "action", a.action, "error", err)
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return result, prerrors.Join(errs...)
	}
	return result, nil
}

// hookEnv describes the invocation to hook commands.
func hookEnv(opts Options) map[string]string {
	env := map[string]string{
		"PRFLOW_REPO":           opts.User + "/" + opts.Repo,
		"PRFLOW_BASE_BRANCH":    opts.Branch,
		"PRFLOW_CURRENT_BRANCH": opts.CurrentBranch,
		"PRFLOW_REMOTE":         opts.Remote,
	}
	if opts.Number > 0 {
		env["PRFLOW_PR_NUMBER"] = strconv.Itoa(opts.Number)
		env["PRFLOW_PULL_BRANCH"] = opts.PullBranch
	}
	return env
}

func defaultString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
