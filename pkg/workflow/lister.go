package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"

	prerrors "thoreinstein.com/prflow/pkg/errors"
	"thoreinstein.com/prflow/pkg/github"
)

// ListRequest selects and orders the pull requests of one repository.
type ListRequest struct {
	Owner      string
	Repo       string
	State      string // "open", "closed" or "all"
	Sort       string // server-side key, or "complexity"
	Direction  string // "asc" or "desc"
	Mine       bool   // keep only pull requests authored by LoggedUser
	LoggedUser string
	Branch     string // keep only the group for this base branch
}

// AllRequest lists every repository of an organization or user.
// Owner and Repo of the embedded ListRequest are ignored.
type AllRequest struct {
	User string
	Org  string // takes precedence over User
	ListRequest
}

// Group holds the pull requests targeting one base branch.
type Group struct {
	Branch       string
	PullRequests []*github.PullRequest
}

// Count returns the number of pull requests in the group.
func (g Group) Count() int {
	return len(g.PullRequests)
}

// RepoListing is the listing of one repository. Warning is set when the
// repository could not be listed in a non-fatal way; Err is set when listing
// it failed during a multi-repository listing.
type RepoListing struct {
	Owner   string
	Repo    string
	Groups  []Group
	Warning string
	Err     error
}

// Total returns the number of pull requests across all groups.
func (l RepoListing) Total() int {
	n := 0
	for _, g := range l.Groups {
		n += g.Count()
	}
	return n
}

// Lister lists, annotates and groups pull requests.
type Lister struct {
	client github.Client
	logger *slog.Logger
}

// NewLister creates a Lister. A nil logger means slog.Default().
func NewLister(client github.Client, logger *slog.Logger) *Lister {
	if logger == nil {
		logger = slog.Default()
	}
	return &Lister{client: client, logger: logger}
}

// List returns the pull requests of one repository grouped by base branch.
// A repository that is missing or disabled yields an empty listing with a
// warning rather than an error.
func (l *Lister) List(ctx context.Context, req ListRequest) (*RepoListing, error) {
	listing := &RepoListing{Owner: req.Owner, Repo: req.Repo}

	remoteSort := req.Sort
	if remoteSort == SortComplexity {
		remoteSort = SortCreated
	}

	prs, err := l.client.ListPullRequests(ctx, req.Owner, req.Repo, github.ListOptions{
		State:     req.State,
		Sort:      remoteSort,
		Direction: req.Direction,
	})
	if err != nil {
		if prerrors.IsNotFound(err) {
			listing.Warning = fmt.Sprintf("%s/%s: repository not found or disabled", req.Owner, req.Repo)
			return listing, nil
		}
		return nil, err
	}

	prs = filterPullRequests(prs, req)

	for _, pr := range prs {
		status, err := l.client.GetCombinedStatus(ctx, req.Owner, req.Repo, pr.Head.SHA)
		if err != nil {
			l.logger.Warn("could not fetch status", "repo", req.Owner+"/"+req.Repo, "number", pr.Number, "error", err)
			continue
		}
		pr.CombinedStatus = status
	}

	if req.Sort == SortComplexity {
		if err := l.sortByComplexity(ctx, req, prs); err != nil {
			return nil, err
		}
	}

	listing.Groups = groupByBase(prs, req.Branch)
	return listing, nil
}

// ListAll lists every repository of req.Org, or of req.User when no
// organization is given. A failure in one repository is recorded on its
// listing and does not stop the others.
func (l *Lister) ListAll(ctx context.Context, req AllRequest) ([]RepoListing, error) {
	repos, err := l.client.ListRepositories(ctx, req.User, req.Org)
	if err != nil {
		return nil, prerrors.Wrap(err, "failed to list repositories")
	}

	listings := make([]RepoListing, 0, len(repos))
	for _, repo := range repos {
		one := req.ListRequest
		one.Owner = repo.Owner
		one.Repo = repo.Name

		listing, err := l.List(ctx, one)
		if err != nil {
			l.logger.Debug("listing failed", "repo", repo.FullName(), "error", err)
			listing = &RepoListing{Owner: repo.Owner, Repo: repo.Name, Err: err}
		}
		listings = append(listings, *listing)
	}

	return listings, nil
}

// sortByComplexity fetches each pull request's detail, scores it and orders
// prs by descending score, or ascending when requested.
func (l *Lister) sortByComplexity(ctx context.Context, req ListRequest, prs []*github.PullRequest) error {
	for _, pr := range prs {
		detail, err := l.client.GetPullRequest(ctx, req.Owner, req.Repo, pr.Number)
		if err != nil {
			return prerrors.Wrapf(err, "failed to fetch detail of #%d", pr.Number)
		}
		pr.Additions = detail.Additions
		pr.Deletions = detail.Deletions
		pr.ChangedFiles = detail.ChangedFiles
		pr.Comments = detail.Comments
		pr.ReviewComments = detail.ReviewComments
		pr.Complexity = Score(MetricsOf(pr))
	}

	sort.SliceStable(prs, func(i, j int) bool {
		return prs[i].Complexity > prs[j].Complexity
	})
	if req.Direction == DirectionAsc {
		slices.Reverse(prs)
	}
	return nil
}

// filterPullRequests drops records whose state does not match an open or
// closed filter, and records not authored by the logged user when Mine is set.
func filterPullRequests(prs []*github.PullRequest, req ListRequest) []*github.PullRequest {
	out := make([]*github.PullRequest, 0, len(prs))
	for _, pr := range prs {
		if (req.State == github.StateOpen || req.State == github.StateClosed) && pr.State != req.State {
			continue
		}
		if req.Mine && pr.Author != req.LoggedUser {
			continue
		}
		out = append(out, pr)
	}
	return out
}

// groupByBase groups prs by base branch in first-seen order. A non-empty
// branch keeps only that group.
func groupByBase(prs []*github.PullRequest, branch string) []Group {
	var groups []Group
	index := make(map[string]int)

	for _, pr := range prs {
		base := pr.Base.Ref
		if branch != "" && base != branch {
			continue
		}
		i, ok := index[base]
		if !ok {
			i = len(groups)
			index[base] = i
			groups = append(groups, Group{Branch: base})
		}
		groups[i].PullRequests = append(groups[i].PullRequests, pr)
	}

	return groups
}
