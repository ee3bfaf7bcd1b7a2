// Package workflow orchestrates pull request workflows across GitHub and the
// local working tree.
//
// A single invocation may request several actions. They run in a fixed
// order:
//  1. browser (open the pull request page)
//  2. close
//  3. comment
//  4. fetch, or merge when no fetch was requested
//  5. forward
//  6. info
//  7. list
//  8. open
//  9. submit
//
// Each action is an ordered pipeline of GitHub and git steps. The first
// failing step aborts its pipeline; nothing already done is rolled back.
// Later actions still run and all failures are reported together.
package workflow

import (
	"thoreinstein.com/prflow/pkg/github"
)

// Action names one user-visible workflow action.
type Action string

const (
	ActionBrowser Action = "browser"
	ActionClose   Action = "close"
	ActionComment Action = "comment"
	ActionFetch   Action = "fetch"
	ActionMerge   Action = "merge"
	ActionForward Action = "forward"
	ActionInfo    Action = "info"
	ActionList    Action = "list"
	ActionOpen    Action = "open"
	ActionSubmit  Action = "submit"
)

// String returns the string representation of the action.
func (a Action) String() string {
	return string(a)
}

// HookName returns the hook configuration name wrapping the action.
func (a Action) HookName() string {
	if a == ActionForward {
		return "pull-request.fwd"
	}
	return "pull-request." + string(a)
}

// Sort keys accepted by listing. SortComplexity is computed locally.
const (
	SortCreated     = "created"
	SortUpdated     = "updated"
	SortPopularity  = "popularity"
	SortLongRunning = "long-running"
	SortComplexity  = "complexity"
)

// Sort directions.
const (
	DirectionAsc  = "asc"
	DirectionDesc = "desc"
)

// Options describes one invocation. Zero values are filled by
// Engine.Resolve:
//   - User and Repo come from the remote (the cmd layer parses it)
//   - Branch defaults to git.base_branch, else "main"; ListBranch keeps the
//     value given before that default, so listings filter only on request
//   - CurrentBranch is read from git
//   - Number is decoded from CurrentBranch; PullBranch is encoded from Number
//   - State, Sort and Direction default from configuration ("open", "created", "desc")
//   - Remote defaults to git.remote, else "origin"
//   - LoggedUser is looked up when submit, forward or mine needs it
type Options struct {
	User          string // repository owner
	Repo          string // repository name
	Org           string // organization for --all listings
	Branch        string // base branch
	ListBranch    string // listing filter; the explicit Branch before defaulting
	CurrentBranch string
	Number        int
	PullBranch    string

	State     string
	Sort      string
	Direction string

	Fetch  bool
	Merge  bool
	Rebase bool
	Silent bool // fetch only, no merge, rebase or checkout

	Submit  string // target owner to submit to
	Forward string // target owner to forward to
	Issue   int    // issue number converted into a pull request on submit

	Title       string
	Description string
	Comment     string

	Close   bool
	Open    bool
	Info    bool
	List    bool
	All     bool
	Mine    bool
	Browser bool

	Remote     string
	LoggedUser string
}

// needsNumber reports whether any requested action requires a pull request number.
func (o Options) needsNumber() bool {
	return o.Close || o.Fetch || o.Merge || o.Rebase || o.Open || o.Forward != "" ||
		o.Comment != "" || o.Info
}

// needsLoggedUser reports whether any requested action needs the login of the
// authenticated user.
func (o Options) needsLoggedUser() bool {
	return o.Submit != "" || o.Forward != "" || o.Mine
}

// ActionResult records the outcome of one action.
type ActionResult struct {
	Action Action
	Err    error
}

// Result collects what an invocation did. Fields are populated only for
// actions that ran and succeeded.
type Result struct {
	Options Options

	BrowsedURL string
	Closed     *github.PullRequest
	Commented  bool
	Fetched    *github.PullRequest
	Merged     bool
	Forwarded  *github.PullRequest
	Info       *github.PullRequest
	Listings   []RepoListing
	Opened     *github.PullRequest
	Submitted  *github.PullRequest

	Actions []ActionResult
}

// Failed returns the actions that failed, in execution order.
func (r *Result) Failed() []ActionResult {
	var failed []ActionResult
	for _, a := range r.Actions {
		if a.Err != nil {
			failed = append(failed, a)
		}
	}
	return failed
}
