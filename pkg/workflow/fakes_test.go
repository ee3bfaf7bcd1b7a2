package workflow

import (
	"context"
	"fmt"
	"strings"

	prerrors "thoreinstein.com/prflow/pkg/errors"
	"thoreinstein.com/prflow/pkg/github"
)

// fakeClient is an in-memory github.Client. Pull requests are keyed by
// "owner/repo".
type fakeClient struct {
	prs      map[string][]*github.PullRequest
	statuses map[string]string // head SHA -> state
	repos    []github.Repository
	login    string

	// ignoreState returns every record regardless of the state filter.
	ignoreState bool

	listErr   map[string]error
	getErr    error
	createErr error
	updateErr error
	statusErr error

	created   []github.NewPullRequest
	fromIssue []int
	updates   []github.PullRequestUpdate
	comments  []string
	calls     []string
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		prs:      make(map[string][]*github.PullRequest),
		statuses: make(map[string]string),
		listErr:  make(map[string]error),
		login:    "me",
	}
}

func (f *fakeClient) record(format string, args ...any) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeClient) add(owner, repo string, prs ...*github.PullRequest) {
	key := owner + "/" + repo
	f.prs[key] = append(f.prs[key], prs...)
}

func (f *fakeClient) GetPullRequest(_ context.Context, owner, repo string, number int) (*github.PullRequest, error) {
	f.record("get %s/%s#%d", owner, repo, number)
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, pr := range f.prs[owner+"/"+repo] {
		if pr.Number == number {
			cp := *pr
			return &cp, nil
		}
	}
	return nil, prerrors.NewGitHubErrorWithStatus("GetPullRequest", 404, "Not Found")
}

func (f *fakeClient) ListPullRequests(_ context.Context, owner, repo string, opts github.ListOptions) ([]*github.PullRequest, error) {
	key := owner + "/" + repo
	f.record("list %s state=%s sort=%s", key, opts.State, opts.Sort)
	if err := f.listErr[key]; err != nil {
		return nil, err
	}
	var out []*github.PullRequest
	for _, pr := range f.prs[key] {
		if !f.ignoreState && (opts.State == github.StateOpen || opts.State == github.StateClosed) {
			if pr.State != opts.State {
				continue
			}
		}
		cp := *pr
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeClient) CreatePullRequest(_ context.Context, owner, repo string, pr github.NewPullRequest) (*github.PullRequest, error) {
	f.record("create %s/%s head=%s base=%s", owner, repo, pr.Head, pr.Base)
	f.created = append(f.created, pr)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &github.PullRequest{Number: 100, Title: pr.Title, Body: pr.Body, State: github.StateOpen}, nil
}

func (f *fakeClient) CreatePullRequestFromIssue(_ context.Context, owner, repo string, issue int, head, base string) (*github.PullRequest, error) {
	f.record("create-from-issue %s/%s issue=%d head=%s base=%s", owner, repo, issue, head, base)
	f.fromIssue = append(f.fromIssue, issue)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &github.PullRequest{Number: issue, State: github.StateOpen}, nil
}

func (f *fakeClient) UpdatePullRequest(_ context.Context, owner, repo string, number int, upd github.PullRequestUpdate) (*github.PullRequest, error) {
	f.record("update %s/%s#%d state=%s", owner, repo, number, upd.State)
	f.updates = append(f.updates, upd)
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return &github.PullRequest{Number: number, Title: upd.Title, Body: upd.Body, State: upd.State}, nil
}

func (f *fakeClient) GetCombinedStatus(_ context.Context, owner, repo, ref string) (string, error) {
	f.record("status %s/%s@%s", owner, repo, ref)
	if f.statusErr != nil {
		return "", f.statusErr
	}
	return f.statuses[ref], nil
}

func (f *fakeClient) ListRepositories(_ context.Context, user, org string) ([]github.Repository, error) {
	f.record("repos user=%s org=%s", user, org)
	return f.repos, nil
}

func (f *fakeClient) CreateComment(_ context.Context, owner, repo string, number int, body string) error {
	f.record("comment %s/%s#%d", owner, repo, number)
	f.comments = append(f.comments, body)
	return nil
}

func (f *fakeClient) CurrentUser(_ context.Context) (string, error) {
	return f.login, nil
}

// fakeGit records git operations. failOn makes the named operation fail.
type fakeGit struct {
	current string
	message string
	commits int
	failOn  map[string]error
	calls   []string
}

func newFakeGit(current string) *fakeGit {
	return &fakeGit{current: current, message: "Last commit", commits: 1, failOn: make(map[string]error)}
}

func (g *fakeGit) do(op string, args ...string) error {
	g.calls = append(g.calls, strings.TrimSpace(op+" "+strings.Join(args, " ")))
	if err, ok := g.failOn[op]; ok {
		return err
	}
	return nil
}

func (g *fakeGit) FetchBranch(_ context.Context, url, remoteBranch, localBranch string) error {
	return g.do("fetch", url, remoteBranch+":"+localBranch)
}

func (g *fakeGit) Checkout(_ context.Context, branch string) error {
	if err := g.do("checkout", branch); err != nil {
		return err
	}
	g.current = branch
	return nil
}

func (g *fakeGit) Merge(_ context.Context, branch string) error {
	return g.do("merge", branch)
}

func (g *fakeGit) Rebase(_ context.Context, branch string) error {
	return g.do("rebase", branch)
}

func (g *fakeGit) Push(_ context.Context, remote, branch string) error {
	return g.do("push", remote, branch)
}

func (g *fakeGit) DeleteBranch(_ context.Context, branch string) error {
	return g.do("delete", branch)
}

func (g *fakeGit) CurrentBranch(_ context.Context) (string, error) {
	if err, ok := g.failOn["current"]; ok {
		return "", err
	}
	return g.current, nil
}

func (g *fakeGit) LastCommitMessage(_ context.Context, branch string) (string, error) {
	if err := g.do("message", branch); err != nil {
		return "", err
	}
	return g.message, nil
}

func (g *fakeGit) CountUserCommits(_ context.Context, base, branch string) (int, error) {
	if err := g.do("count", base+".."+branch); err != nil {
		return 0, err
	}
	return g.commits, nil
}

// recordingBridge records which hooks wrapped which actions.
type recordingBridge struct {
	names []string
	envs  []map[string]string
}

func (b *recordingBridge) Wrap(ctx context.Context, name string, env map[string]string, fn func(context.Context) error) error {
	b.names = append(b.names, name)
	b.envs = append(b.envs, env)
	return fn(ctx)
}

func pullRequest(number int, base string, opts ...func(*github.PullRequest)) *github.PullRequest {
	pr := &github.PullRequest{
		Number: number,
		Title:  fmt.Sprintf("PR %d", number),
		State:  github.StateOpen,
		Base:   github.Branch{Ref: base, SHA: "base-sha", Owner: "acme", Repo: "widgets"},
		Head: github.Branch{
			Ref:      fmt.Sprintf("feature-%d", number),
			SHA:      fmt.Sprintf("sha-%d", number),
			Owner:    "contrib",
			Repo:     "widgets",
			CloneURL: "https://github.com/contrib/widgets.git",
			SSHURL:   "git@github.com:contrib/widgets.git",
		},
		Author: "contrib",
	}
	for _, opt := range opts {
		opt(pr)
	}
	return pr
}
