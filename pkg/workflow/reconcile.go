package workflow

import (
	"context"
	"log/slog"

	"thoreinstein.com/prflow/pkg/github"
)

// SubmitAttempt describes a pull request creation that failed.
type SubmitAttempt struct {
	TargetOwner  string // owner of the repository the pull request was opened against
	Repo         string
	TargetBranch string // base branch
	HeadBranch   string
	LocalUser    string // login owning the head branch
}

// Reconciler recovers from a failed pull request creation by finding an
// equivalent pull request that is already open.
type Reconciler struct {
	client github.Client
	logger *slog.Logger
}

// NewReconciler creates a Reconciler. A nil logger means slog.Default().
func NewReconciler(client github.Client, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{client: client, logger: logger}
}

// Reconcile looks for exactly one open pull request matching attempt and
// returns it as the result of the submission. Otherwise cause is returned
// unchanged, including when the lookup itself fails.
func (r *Reconciler) Reconcile(ctx context.Context, attempt SubmitAttempt, cause error) (*github.PullRequest, error) {
	prs, err := r.client.ListPullRequests(ctx, attempt.TargetOwner, attempt.Repo, github.ListOptions{State: github.StateOpen})
	if err != nil {
		r.logger.Debug("reconcile lookup failed", "error", err)
		return nil, cause
	}

	var match *github.PullRequest
	matches := 0
	for _, pr := range prs {
		if attempt.matches(pr) {
			match = pr
			matches++
		}
	}

	if matches != 1 {
		r.logger.Debug("no unique open pull request to reconcile with", "matches", matches)
		return nil, cause
	}

	r.logger.Info("pull request already open, using it", "number", match.Number, "url", match.URL)
	return match, nil
}

func (a SubmitAttempt) matches(pr *github.PullRequest) bool {
	return pr.Base.Ref == a.TargetBranch &&
		pr.Head.Ref == a.HeadBranch &&
		pr.Base.SHA == pr.Head.SHA &&
		pr.Base.Owner == a.TargetOwner &&
		pr.Head.Owner == a.LocalUser
}
