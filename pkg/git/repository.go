// Package git drives the local working tree through the git executable.
package git

import (
	"context"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	prerrors "thoreinstein.com/prflow/pkg/errors"
)

// Repository is a git working tree rooted at Dir. Every failing invocation
// is reported as a *prerrors.GitError carrying the arguments and stderr.
type Repository struct {
	Dir    string
	runner CommandRunner
	logger *slog.Logger
}

// Option configures a Repository.
type Option func(*Repository)

// WithRunner replaces the process runner. Used by tests.
func WithRunner(r CommandRunner) Option {
	return func(repo *Repository) {
		repo.runner = r
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(repo *Repository) {
		repo.logger = logger
	}
}

// NewRepository returns a Repository for the working tree at dir. An empty
// dir means the process working directory.
func NewRepository(dir string, opts ...Option) *Repository {
	r := &Repository{Dir: dir, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	if r.runner == nil {
		r.runner = &RealCommandRunner{Logger: r.logger}
	}
	return r
}

// FetchBranch fetches remoteBranch from url into localBranch.
func (r *Repository) FetchBranch(ctx context.Context, url, remoteBranch, localBranch string) error {
	return r.run(ctx, "fetch", "fetch", url, remoteBranch+":"+localBranch)
}

// Checkout switches the working tree to branch.
func (r *Repository) Checkout(ctx context.Context, branch string) error {
	return r.run(ctx, "checkout", "checkout", branch)
}

// Merge merges branch into the current branch.
func (r *Repository) Merge(ctx context.Context, branch string) error {
	return r.run(ctx, "merge", "merge", "--no-edit", branch)
}

// Rebase rebases the current branch onto branch.
func (r *Repository) Rebase(ctx context.Context, branch string) error {
	return r.run(ctx, "rebase", "rebase", branch)
}

// Push pushes branch to remote and records it as the upstream.
func (r *Repository) Push(ctx context.Context, remote, branch string) error {
	return r.run(ctx, "push", "push", "--set-upstream", remote, branch)
}

// DeleteBranch force-deletes the local branch.
func (r *Repository) DeleteBranch(ctx context.Context, branch string) error {
	return r.run(ctx, "branch", "branch", "-D", branch)
}

// CurrentBranch returns the name of the checked-out branch.
func (r *Repository) CurrentBranch(ctx context.Context) (string, error) {
	return r.output(ctx, "rev-parse", "rev-parse", "--abbrev-ref", "HEAD")
}

// LastCommitMessage returns the subject line of the last commit on branch.
func (r *Repository) LastCommitMessage(ctx context.Context, branch string) (string, error) {
	if branch == "" {
		branch = "HEAD"
	}
	return r.output(ctx, "log", "log", "-1", "--format=%s", branch)
}

// CountUserCommits counts commits reachable from branch but not from base
// that were authored by the configured user.email.
func (r *Repository) CountUserCommits(ctx context.Context, base, branch string) (int, error) {
	email, err := r.output(ctx, "config", "config", "user.email")
	if err != nil {
		return 0, err
	}

	out, err := r.output(ctx, "rev-list", "rev-list", "--count", "--author="+email, base+".."+branch)
	if err != nil {
		return 0, err
	}

	n, err := strconv.Atoi(out)
	if err != nil {
		return 0, errors.Wrapf(err, "unexpected rev-list output %q", out)
	}
	return n, nil
}

// RemoteURL returns the fetch URL configured for remote.
func (r *Repository) RemoteURL(ctx context.Context, remote string) (string, error) {
	return r.output(ctx, "remote", "remote", "get-url", remote)
}

// RemoteRepo parses the URL of remote into its host, owner and name.
func (r *Repository) RemoteRepo(ctx context.Context, remote string) (*RepoURL, error) {
	url, err := r.RemoteURL(ctx, remote)
	if err != nil {
		return nil, err
	}
	return ParseRemoteURL(url)
}

func (r *Repository) run(ctx context.Context, op string, args ...string) error {
	r.logger.Debug("git", "args", strings.Join(args, " "))
	if err := r.runner.Run(ctx, r.Dir, "git", args...); err != nil {
		return newGitError(op, args, err)
	}
	return nil
}

func (r *Repository) output(ctx context.Context, op string, args ...string) (string, error) {
	r.logger.Debug("git", "args", strings.Join(args, " "))
	out, err := r.runner.Output(ctx, r.Dir, "git", args...)
	if err != nil {
		return "", newGitError(op, args, err)
	}
	return strings.TrimSpace(string(out)), nil
}

func newGitError(op string, args []string, err error) error {
	var stderr string
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		stderr = strings.TrimSpace(string(exitErr.Stderr))
	}
	return prerrors.NewGitError(op, args, stderr, err)
}
