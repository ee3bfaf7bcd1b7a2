// Package ui renders workflow results for the terminal.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	prerrors "thoreinstein.com/prflow/pkg/errors"
	"thoreinstein.com/prflow/pkg/github"
	"thoreinstein.com/prflow/pkg/workflow"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	dimStyle   = lipgloss.NewStyle().Faint(true)
	boldStyle  = lipgloss.NewStyle().Bold(true)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	labelStyle = lipgloss.NewStyle().Faint(true).Width(10)
)

// maxTitleWidth truncates titles in listings.
const maxTitleWidth = 60

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Renderer writes workflow results. Styling is applied only when Styled is set.
type Renderer struct {
	w      io.Writer
	styled bool
}

// NewRenderer returns a Renderer writing to w.
func NewRenderer(w io.Writer, styled bool) *Renderer {
	return &Renderer{w: w, styled: styled}
}

func (r *Renderer) style(s lipgloss.Style, text string) string {
	if !r.styled {
		return text
	}
	return s.Render(text)
}

func (r *Renderer) printf(format string, args ...any) {
	fmt.Fprintf(r.w, format, args...)
}

// Result renders every populated part of result in action order, followed
// by the failures.
func (r *Renderer) Result(result *workflow.Result) {
	if result == nil {
		return
	}

	if result.BrowsedURL != "" {
		r.printf("Opened %s\n", result.BrowsedURL)
	}
	if result.Closed != nil {
		r.printf("%s #%d %s\n", r.style(okStyle, "Closed"), result.Closed.Number, result.Closed.Title)
	}
	if result.Commented {
		r.printf("%s on #%d\n", r.style(okStyle, "Commented"), result.Options.Number)
	}
	if result.Fetched != nil {
		r.printf("%s #%d into %s\n", r.style(okStyle, "Fetched"), result.Fetched.Number, result.Options.PullBranch)
	}
	if result.Merged {
		verb := "Merged"
		if result.Options.Rebase {
			verb = "Rebased"
		}
		r.printf("%s %s into %s and pushed to %s\n", r.style(okStyle, verb),
			result.Options.PullBranch, result.Options.Branch, result.Options.Remote)
	}
	if result.Forwarded != nil {
		r.printf("%s to %s/%s: %s\n", r.style(okStyle, "Forwarded"),
			result.Options.Forward, result.Options.Repo, result.Forwarded.URL)
	}
	if result.Info != nil {
		r.Info(result.Info)
	}
	for _, listing := range result.Listings {
		r.Listing(listing)
	}
	if result.Opened != nil {
		r.printf("%s #%d %s\n", r.style(okStyle, "Reopened"), result.Opened.Number, result.Opened.Title)
	}
	if result.Submitted != nil {
		r.printf("%s #%d %s\n", r.style(okStyle, "Submitted"), result.Submitted.Number, result.Submitted.URL)
	}

	for _, failed := range result.Failed() {
		r.Error(failed.Action.String(), failed.Err)
	}
}

// Error renders a failed action with an actionable message.
func (r *Renderer) Error(action string, err error) {
	r.printf("%s %s\n", r.style(errStyle, action+" failed:"), prerrors.FormatUserError(err))
}

// Info renders a single pull request.
func (r *Renderer) Info(pr *github.PullRequest) {
	r.printf("\n%s\n", r.style(titleStyle, fmt.Sprintf("#%d: %s", pr.Number, pr.Title)))
	r.printf("%s\n", r.style(dimStyle, pr.URL))
	r.field("State", pr.State)
	r.field("Author", pr.Author)
	r.field("Branches", fmt.Sprintf("%s -> %s", pr.SourceRef(), pr.Base.Ref))
	if pr.CombinedStatus != "" {
		r.field("Status", r.status(pr.CombinedStatus))
	}
	if pr.MergeableState != "" {
		r.field("Mergeable", pr.MergeableState)
	}
	r.field("Changes", fmt.Sprintf("+%d -%d in %d file(s)", pr.Additions, pr.Deletions, pr.ChangedFiles))
	r.field("Complexity", fmt.Sprintf("%d", pr.Complexity))
	if !pr.CreatedAt.IsZero() {
		r.field("Created", pr.CreatedAt.Format("2006-01-02 15:04"))
	}
	if body := strings.TrimSpace(pr.Body); body != "" {
		r.printf("\n%s\n", body)
	}
}

func (r *Renderer) field(label, value string) {
	if r.styled {
		r.printf("%s %s\n", labelStyle.Render(label+":"), value)
		return
	}
	r.printf("%-11s%s\n", label+":", value)
}

// Listing renders one repository's grouped pull requests.
func (r *Renderer) Listing(listing workflow.RepoListing) {
	name := listing.Owner + "/" + listing.Repo

	switch {
	case listing.Err != nil:
		r.Error(name, listing.Err)
		return
	case listing.Warning != "":
		r.printf("%s %s\n", r.style(warnStyle, "warning:"), listing.Warning)
		return
	case listing.Total() == 0:
		r.printf("%s\n", r.style(dimStyle, name+": no pull requests found"))
		return
	}

	r.printf("\n%s\n", r.style(titleStyle, name))
	for _, group := range listing.Groups {
		r.printf("%s %s\n", r.style(boldStyle, group.Branch), r.style(dimStyle, fmt.Sprintf("(%d)", group.Count())))
		for _, pr := range group.PullRequests {
			r.printf("  #%-5d %s %s %s\n", pr.Number, r.status(statusLabel(pr.CombinedStatus)),
				truncate(pr.Title, maxTitleWidth), r.style(dimStyle, "@"+pr.Author))
			if pr.Complexity > 0 {
				r.printf("         %s\n", r.style(dimStyle, fmt.Sprintf("complexity %d", pr.Complexity)))
			}
		}
	}
	r.printf("Total: %d pull request(s)\n", listing.Total())
}

func (r *Renderer) status(state string) string {
	switch state {
	case "success":
		return r.style(okStyle, state)
	case "failure", "error":
		return r.style(errStyle, state)
	case "pending":
		return r.style(warnStyle, state)
	default:
		return state
	}
}

func statusLabel(state string) string {
	if state == "" {
		return "-"
	}
	return state
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
