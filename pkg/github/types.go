// Package github provides the GitHub REST API collaborator used by the
// pull request workflows.
//
// The Client interface is the only surface the workflow engine sees; the
// go-github backed APIClient is the production implementation.
package github

import (
	"fmt"
	"time"
)

// AuthMethod represents the authentication method for GitHub.
type AuthMethod string

const (
	// AuthToken uses a personal access token for authentication.
	AuthToken AuthMethod = "token"
	// AuthOAuth uses the OAuth device flow with a cached token.
	AuthOAuth AuthMethod = "oauth"
	// AuthGHCLI borrows the token stored by the gh CLI.
	AuthGHCLI AuthMethod = "gh_cli"
)

// Pull request states.
const (
	StateOpen   = "open"
	StateClosed = "closed"
	StateAll    = "all"
)

// Branch is one side (base or head) of a pull request.
type Branch struct {
	Ref      string // branch name
	SHA      string // tip commit
	Owner    string // login owning the repository
	Repo     string // repository name
	CloneURL string // https clone URL of the repository
	SSHURL   string // ssh clone URL of the repository
}

// PullRequest is the normalized view of a GitHub pull request.
//
// Size metrics are only populated by GetPullRequest; list responses leave
// them zero. Complexity is computed locally and never sent to GitHub.
type PullRequest struct {
	Number         int
	Title          string
	Body           string
	State          string // "open" or "closed"
	Base           Branch
	Head           Branch
	Author         string
	URL            string
	MergeableState string
	CombinedStatus string // "success", "failure", "pending", ...
	Complexity     int
	CreatedAt      time.Time

	Additions      int
	Deletions      int
	ChangedFiles   int
	Comments       int
	ReviewComments int
}

// SourceRef returns owner:branch for the head of the pull request.
func (pr *PullRequest) SourceRef() string {
	return fmt.Sprintf("%s:%s", pr.Head.Owner, pr.Head.Ref)
}

// ListOptions filters and orders ListPullRequests. Sort must be one of the
// server-side keys: created, updated, popularity, long-running.
type ListOptions struct {
	State     string
	Sort      string
	Direction string
}

// NewPullRequest holds the fields for creating a pull request.
type NewPullRequest struct {
	Title string
	Body  string
	Head  string // "user:branch"
	Base  string
}

// PullRequestUpdate holds the editable fields of a pull request.
type PullRequestUpdate struct {
	Title string
	Body  string
	State string
}

// Repository identifies a repository returned by ListRepositories.
type Repository struct {
	Owner string
	Name  string
}

// FullName returns owner/name.
func (r Repository) FullName() string {
	return r.Owner + "/" + r.Name
}
