package workflow

import (
	"context"
	"fmt"
	"strings"

	prerrors "thoreinstein.com/prflow/pkg/errors"
	"thoreinstein.com/prflow/pkg/github"
)

// runFetch fetches the pull request head into the local pull branch and,
// unless silent, merges, rebases or checks it out.
func (e *Engine) runFetch(ctx context.Context, opts Options, result *Result) error {
	pr, err := e.fetch(ctx, opts)
	if err != nil {
		return err
	}

	if !opts.Silent {
		switch {
		case opts.Merge:
			err = e.git.Merge(ctx, opts.PullBranch)
		case opts.Rebase:
			err = e.git.Rebase(ctx, opts.PullBranch)
		default:
			err = e.git.Checkout(ctx, opts.PullBranch)
		}
		if err != nil {
			return err
		}
	}

	result.Fetched = pr
	return nil
}

// fetch retrieves the pull request and fetches its head into opts.PullBranch.
func (e *Engine) fetch(ctx context.Context, opts Options) (*github.PullRequest, error) {
	pr, err := e.github.GetPullRequest(ctx, opts.User, opts.Repo, opts.Number)
	if err != nil {
		return nil, err
	}

	url := pr.Head.CloneURL
	if e.cfg.GitHub.UseSSH && pr.Head.SSHURL != "" {
		url = pr.Head.SSHURL
	}
	if url == "" {
		return nil, prerrors.NewWorkflowError("fetch",
			fmt.Sprintf("head repository of #%d is no longer available", pr.Number))
	}

	e.logger.Info("fetching pull request", "number", pr.Number, "head", pr.SourceRef(), "branch", opts.PullBranch)
	if err := e.git.FetchBranch(ctx, url, pr.Head.Ref, opts.PullBranch); err != nil {
		return nil, err
	}
	return pr, nil
}

// runMerge integrates the local pull branch into the base branch, publishes
// the base branch and removes the pull branch. Nothing is rolled back when a
// later step fails.
func (e *Engine) runMerge(ctx context.Context, opts Options, result *Result) error {
	if err := e.git.Checkout(ctx, opts.Branch); err != nil {
		return err
	}

	var err error
	if opts.Rebase {
		err = e.git.Rebase(ctx, opts.PullBranch)
	} else {
		err = e.git.Merge(ctx, opts.PullBranch)
	}
	if err != nil {
		return err
	}

	if err := e.git.Push(ctx, opts.Remote, opts.Branch); err != nil {
		return err
	}
	if err := e.git.DeleteBranch(ctx, opts.PullBranch); err != nil {
		return err
	}

	e.logger.Info("merged pull branch", "branch", opts.PullBranch, "into", opts.Branch, "rebase", opts.Rebase)
	result.Merged = true
	return nil
}

// runSubmit pushes the working branch and opens a pull request against the
// Submit owner.
func (e *Engine) runSubmit(ctx context.Context, opts Options, result *Result) error {
	branch := opts.PullBranch
	if branch == "" {
		branch = opts.CurrentBranch
	}
	if branch == "" {
		return prerrors.NewUserInputError("branch", "no branch to submit")
	}

	pr, err := e.submit(ctx, opts, opts.Submit, branch, opts.Title, opts.Description)
	if err != nil {
		return err
	}
	result.Submitted = pr
	return nil
}

func (e *Engine) submit(ctx context.Context, opts Options, target, branch, title, body string) (*github.PullRequest, error) {
	upstream := opts.Remote + "/" + opts.Branch
	if n, err := e.git.CountUserCommits(ctx, upstream, branch); err != nil {
		e.logger.Debug("could not count commits", "range", upstream+".."+branch, "error", err)
	} else if n == 0 {
		e.logger.Warn("branch has no commits of yours that the base lacks", "branch", branch, "base", upstream)
	} else {
		e.logger.Info("submitting commits", "count", n, "branch", branch)
	}

	if err := e.git.Push(ctx, opts.Remote, branch); err != nil {
		return nil, err
	}

	if title == "" && opts.Issue == 0 {
		msg, err := e.git.LastCommitMessage(ctx, branch)
		if err != nil {
			return nil, err
		}
		title = msg
	}

	head := opts.LoggedUser + ":" + branch
	e.logger.Info("creating pull request", "repo", target+"/"+opts.Repo, "head", head, "base", opts.Branch)

	var pr *github.PullRequest
	var err error
	if opts.Issue > 0 {
		pr, err = e.github.CreatePullRequestFromIssue(ctx, target, opts.Repo, opts.Issue, head, opts.Branch)
	} else {
		pr, err = e.github.CreatePullRequest(ctx, target, opts.Repo, github.NewPullRequest{
			Title: title,
			Body:  body,
			Head:  head,
			Base:  opts.Branch,
		})
	}
	if err != nil {
		if prerrors.IsConflict(err) {
			e.logger.Info("pull request was rejected, looking for an existing one", "head", head, "error", err)
		} else {
			e.logger.Debug("pull request creation failed", "head", head, "error", err)
		}
		return e.reconciler.Reconcile(ctx, SubmitAttempt{
			TargetOwner:  target,
			Repo:         opts.Repo,
			TargetBranch: opts.Branch,
			HeadBranch:   branch,
			LocalUser:    opts.LoggedUser,
		}, err)
	}
	return pr, nil
}

// runForward fetches the pull request without touching the working tree and
// submits it again to the Forward owner.
func (e *Engine) runForward(ctx context.Context, opts Options, result *Result) error {
	pr, err := e.fetch(ctx, opts)
	if err != nil {
		return err
	}

	body := forwardBody(pr, opts)
	fwd, err := e.submit(ctx, opts, opts.Forward, opts.PullBranch, pr.Title, body)
	if err != nil {
		return err
	}
	result.Forwarded = fwd
	return nil
}

// forwardBody appends an attribution line to the original description.
func forwardBody(pr *github.PullRequest, opts Options) string {
	line := fmt.Sprintf("Forwarded from %s/%s#%d by @%s (%s).",
		opts.User, opts.Repo, pr.Number, pr.Author, pr.SourceRef())
	if strings.TrimSpace(pr.Body) == "" {
		return line
	}
	return pr.Body + "\n\n" + line
}

// runClose closes the pull request and removes the local pull branch.
func (e *Engine) runClose(ctx context.Context, opts Options, result *Result) error {
	pr, err := e.github.GetPullRequest(ctx, opts.User, opts.Repo, opts.Number)
	if err != nil {
		return err
	}

	closed, err := e.github.UpdatePullRequest(ctx, opts.User, opts.Repo, opts.Number, github.PullRequestUpdate{
		Title: e.rewrite(pr.Title),
		Body:  e.rewrite(pr.Body),
		State: github.StateClosed,
	})
	if err != nil {
		return err
	}
	result.Closed = closed

	if opts.CurrentBranch == opts.PullBranch {
		if err := e.git.Checkout(ctx, opts.Branch); err != nil {
			return err
		}
	}

	// The pull branch only exists locally if it was fetched before.
	if err := e.git.DeleteBranch(ctx, opts.PullBranch); err != nil {
		e.logger.Warn("could not delete local pull branch", "branch", opts.PullBranch, "error", err)
	}
	return nil
}

// rewrite applies the configured replacement rules in order.
func (e *Engine) rewrite(s string) string {
	for _, r := range e.replace {
		s = r.re.ReplaceAllString(s, r.repl)
	}
	return s
}

func (e *Engine) runOpen(ctx context.Context, opts Options, result *Result) error {
	pr, err := e.github.GetPullRequest(ctx, opts.User, opts.Repo, opts.Number)
	if err != nil {
		return err
	}

	opened, err := e.github.UpdatePullRequest(ctx, opts.User, opts.Repo, opts.Number, github.PullRequestUpdate{
		Title: pr.Title,
		Body:  pr.Body,
		State: github.StateOpen,
	})
	if err != nil {
		return err
	}
	result.Opened = opened
	return nil
}

func (e *Engine) runComment(ctx context.Context, opts Options, result *Result) error {
	if err := e.github.CreateComment(ctx, opts.User, opts.Repo, opts.Number, opts.Comment); err != nil {
		return err
	}
	result.Commented = true
	return nil
}

// runInfo retrieves one pull request with its status and complexity.
func (e *Engine) runInfo(ctx context.Context, opts Options, result *Result) error {
	pr, err := e.github.GetPullRequest(ctx, opts.User, opts.Repo, opts.Number)
	if err != nil {
		return err
	}

	status, err := e.github.GetCombinedStatus(ctx, opts.User, opts.Repo, pr.Head.SHA)
	if err != nil {
		e.logger.Warn("could not fetch status", "number", pr.Number, "error", err)
	} else {
		pr.CombinedStatus = status
	}
	pr.Complexity = Score(MetricsOf(pr))

	result.Info = pr
	return nil
}

func (e *Engine) runList(ctx context.Context, opts Options, result *Result) error {
	req := ListRequest{
		Owner:      opts.User,
		Repo:       opts.Repo,
		State:      opts.State,
		Sort:       opts.Sort,
		Direction:  opts.Direction,
		Mine:       opts.Mine,
		LoggedUser: opts.LoggedUser,
		Branch:     opts.ListBranch,
	}

	if opts.All {
		listings, err := e.lister.ListAll(ctx, AllRequest{User: opts.User, Org: opts.Org, ListRequest: req})
		if err != nil {
			return err
		}
		result.Listings = listings
		return nil
	}

	listing, err := e.lister.List(ctx, req)
	if err != nil {
		return err
	}
	result.Listings = []RepoListing{*listing}
	return nil
}

// runBrowser opens the pull request page, or the pull request list when no
// number was resolved.
func (e *Engine) runBrowser(_ context.Context, opts Options, result *Result) error {
	url := e.BrowseURL(opts)
	if e.open != nil {
		if err := e.open(url); err != nil {
			return prerrors.Wrapf(err, "failed to open %s", url)
		}
	}
	result.BrowsedURL = url
	return nil
}

// BrowseURL returns the web page for the resolved pull request or list.
func (e *Engine) BrowseURL(opts Options) string {
	host := e.cfg.GitHub.Host
	if host == "" {
		host = github.DefaultHost
	}
	base := fmt.Sprintf("https://%s/%s/%s", host, opts.User, opts.Repo)
	if opts.Number > 0 {
		return fmt.Sprintf("%s/pull/%d", base, opts.Number)
	}
	return base + "/pulls"
}
