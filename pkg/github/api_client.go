package github

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	gh "github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"

	prerrors "thoreinstein.com/prflow/pkg/errors"
)

// perPage is the page size requested from list endpoints.
const perPage = 100

// APIClient implements Client using the GitHub REST API.
type APIClient struct {
	client  *gh.Client
	logger  *slog.Logger
	host    string
	baseURL string
}

// APIClientOption is a functional option for configuring APIClient.
type APIClientOption func(*APIClient)

// WithAPILogger sets a custom logger for the API client.
func WithAPILogger(logger *slog.Logger) APIClientOption {
	return func(c *APIClient) {
		c.logger = logger
	}
}

// WithHost targets a GitHub Enterprise host instead of github.com.
func WithHost(host string) APIClientOption {
	return func(c *APIClient) {
		c.host = host
	}
}

// WithBaseURL points the client at an explicit API root, e.g. a test server.
func WithBaseURL(baseURL string) APIClientOption {
	return func(c *APIClient) {
		c.baseURL = baseURL
	}
}

// NewAPIClient creates a GitHub API client with the given token.
func NewAPIClient(token string, opts ...APIClientOption) (*APIClient, error) {
	if token == "" {
		return nil, prerrors.NewGitHubError("NewAPIClient", "token is required")
	}

	c := &APIClient{logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	client := gh.NewClient(oauth2.NewClient(context.Background(), ts))

	switch {
	case c.baseURL != "":
		base := c.baseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, prerrors.NewGitHubErrorWithCause("NewAPIClient", "invalid base URL", err)
		}
		client.BaseURL = u
		client.UploadURL = u

	case c.host != "" && c.host != DefaultHost:
		enterpriseURL := "https://" + c.host + "/"
		var err error
		client, err = client.WithEnterpriseURLs(enterpriseURL, enterpriseURL)
		if err != nil {
			return nil, prerrors.NewGitHubErrorWithCause("NewAPIClient", "invalid enterprise host", err)
		}
	}

	c.client = client
	return c, nil
}

// GetPullRequest retrieves a pull request including its size metrics.
func (c *APIClient) GetPullRequest(ctx context.Context, owner, repo string, number int) (*PullRequest, error) {
	c.logDebug("getting pull request", "repo", owner+"/"+repo, "number", number)

	pr, resp, err := c.client.PullRequests.Get(ctx, owner, repo, number)
	if err != nil {
		return nil, toGitHubError("GetPullRequest", resp, err)
	}
	return pullRequestFromGitHub(pr), nil
}

// ListPullRequests returns every page of pull requests matching opts.
func (c *APIClient) ListPullRequests(ctx context.Context, owner, repo string, opts ListOptions) ([]*PullRequest, error) {
	c.logDebug("listing pull requests", "repo", owner+"/"+repo, "state", opts.State, "sort", opts.Sort, "direction", opts.Direction)

	ghOpts := &gh.PullRequestListOptions{
		State:       opts.State,
		Sort:        opts.Sort,
		Direction:   opts.Direction,
		ListOptions: gh.ListOptions{PerPage: perPage},
	}

	var result []*PullRequest
	for {
		prs, resp, err := c.client.PullRequests.List(ctx, owner, repo, ghOpts)
		if err != nil {
			return nil, toGitHubError("ListPullRequests", resp, err)
		}
		for _, pr := range prs {
			result = append(result, pullRequestFromGitHub(pr))
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		ghOpts.Page = resp.NextPage
	}

	return result, nil
}

// CreatePullRequest opens a new pull request.
func (c *APIClient) CreatePullRequest(ctx context.Context, owner, repo string, pr NewPullRequest) (*PullRequest, error) {
	if pr.Title == "" {
		return nil, prerrors.NewGitHubError("CreatePullRequest", "title is required")
	}

	c.logDebug("creating pull request", "repo", owner+"/"+repo, "head", pr.Head, "base", pr.Base)

	created, resp, err := c.client.PullRequests.Create(ctx, owner, repo, &gh.NewPullRequest{
		Title: gh.Ptr(pr.Title),
		Body:  gh.Ptr(pr.Body),
		Head:  gh.Ptr(pr.Head),
		Base:  gh.Ptr(pr.Base),
	})
	if err != nil {
		return nil, toGitHubError("CreatePullRequest", resp, err)
	}
	return pullRequestFromGitHub(created), nil
}

// CreatePullRequestFromIssue converts an existing issue into a pull request.
func (c *APIClient) CreatePullRequestFromIssue(ctx context.Context, owner, repo string, issue int, head, base string) (*PullRequest, error) {
	c.logDebug("converting issue to pull request", "repo", owner+"/"+repo, "issue", issue, "head", head, "base", base)

	created, resp, err := c.client.PullRequests.Create(ctx, owner, repo, &gh.NewPullRequest{
		Issue: gh.Ptr(issue),
		Head:  gh.Ptr(head),
		Base:  gh.Ptr(base),
	})
	if err != nil {
		return nil, toGitHubError("CreatePullRequestFromIssue", resp, err)
	}
	return pullRequestFromGitHub(created), nil
}

// UpdatePullRequest edits title, body and state.
func (c *APIClient) UpdatePullRequest(ctx context.Context, owner, repo string, number int, upd PullRequestUpdate) (*PullRequest, error) {
	c.logDebug("updating pull request", "repo", owner+"/"+repo, "number", number, "state", upd.State)

	edit := &gh.PullRequest{
		Title: gh.Ptr(upd.Title),
		Body:  gh.Ptr(upd.Body),
	}
	if upd.State != "" {
		edit.State = gh.Ptr(upd.State)
	}

	pr, resp, err := c.client.PullRequests.Edit(ctx, owner, repo, number, edit)
	if err != nil {
		return nil, toGitHubError("UpdatePullRequest", resp, err)
	}
	return pullRequestFromGitHub(pr), nil
}

// GetCombinedStatus returns the combined commit status state for ref.
func (c *APIClient) GetCombinedStatus(ctx context.Context, owner, repo, ref string) (string, error) {
	status, resp, err := c.client.Repositories.GetCombinedStatus(ctx, owner, repo, ref, nil)
	if err != nil {
		return "", toGitHubError("GetCombinedStatus", resp, err)
	}
	return status.GetState(), nil
}

// ListRepositories lists every repository of org, or of user when org is empty.
func (c *APIClient) ListRepositories(ctx context.Context, user, org string) ([]Repository, error) {
	c.logDebug("listing repositories", "user", user, "org", org)

	var result []Repository
	appendRepos := func(repos []*gh.Repository) {
		for _, r := range repos {
			result = append(result, Repository{Owner: r.GetOwner().GetLogin(), Name: r.GetName()})
		}
	}

	if org != "" {
		opts := &gh.RepositoryListByOrgOptions{ListOptions: gh.ListOptions{PerPage: perPage}}
		for {
			repos, resp, err := c.client.Repositories.ListByOrg(ctx, org, opts)
			if err != nil {
				return nil, toGitHubError("ListRepositories", resp, err)
			}
			appendRepos(repos)
			if resp == nil || resp.NextPage == 0 {
				return result, nil
			}
			opts.Page = resp.NextPage
		}
	}

	opts := &gh.RepositoryListByUserOptions{ListOptions: gh.ListOptions{PerPage: perPage}}
	for {
		repos, resp, err := c.client.Repositories.ListByUser(ctx, user, opts)
		if err != nil {
			return nil, toGitHubError("ListRepositories", resp, err)
		}
		appendRepos(repos)
		if resp == nil || resp.NextPage == 0 {
			return result, nil
		}
		opts.Page = resp.NextPage
	}
}

// CreateComment adds a comment to the pull request's issue thread.
func (c *APIClient) CreateComment(ctx context.Context, owner, repo string, number int, body string) error {
	c.logDebug("commenting", "repo", owner+"/"+repo, "number", number)

	_, resp, err := c.client.Issues.CreateComment(ctx, owner, repo, number, &gh.IssueComment{Body: gh.Ptr(body)})
	if err != nil {
		return toGitHubError("CreateComment", resp, err)
	}
	return nil
}

// CurrentUser returns the login of the authenticated user.
func (c *APIClient) CurrentUser(ctx context.Context) (string, error) {
	user, resp, err := c.client.Users.Get(ctx, "")
	if err != nil {
		return "", toGitHubError("CurrentUser", resp, err)
	}
	return user.GetLogin(), nil
}

func (c *APIClient) logDebug(msg string, args ...any) {
	c.logger.Debug(msg, args...)
}

func pullRequestFromGitHub(pr *gh.PullRequest) *PullRequest {
	return &PullRequest{
		Number:         pr.GetNumber(),
		Title:          pr.GetTitle(),
		Body:           pr.GetBody(),
		State:          pr.GetState(),
		Base:           branchFromGitHub(pr.GetBase()),
		Head:           branchFromGitHub(pr.GetHead()),
		Author:         pr.GetUser().GetLogin(),
		URL:            pr.GetHTMLURL(),
		MergeableState: pr.GetMergeableState(),
		CreatedAt:      pr.GetCreatedAt().Time,
		Additions:      pr.GetAdditions(),
		Deletions:      pr.GetDeletions(),
		ChangedFiles:   pr.GetChangedFiles(),
		Comments:       pr.GetComments(),
		ReviewComments: pr.GetReviewComments(),
	}
}

func branchFromGitHub(b *gh.PullRequestBranch) Branch {
	return Branch{
		Ref:      b.GetRef(),
		SHA:      b.GetSHA(),
		Owner:    b.GetUser().GetLogin(),
		Repo:     b.GetRepo().GetName(),
		CloneURL: b.GetRepo().GetCloneURL(),
		SSHURL:   b.GetRepo().GetSSHURL(),
	}
}

func toGitHubError(operation string, resp *gh.Response, err error) error {
	if resp != nil && resp.StatusCode > 0 {
		msg := err.Error()
		var errResp *gh.ErrorResponse
		if prerrors.As(err, &errResp) && errResp.Message != "" {
			msg = errResp.Message
			for _, e := range errResp.Errors {
				if e.Message != "" {
					msg += ": " + e.Message
				}
			}
		}
		ghErr := prerrors.NewGitHubErrorWithStatus(operation, resp.StatusCode, msg)
		ghErr.Cause = err
		return ghErr
	}
	return prerrors.NewGitHubErrorWithCause(operation, "API request failed", err)
}
