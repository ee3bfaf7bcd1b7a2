package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	prerrors "thoreinstein.com/prflow/pkg/errors"
	"thoreinstein.com/prflow/pkg/github"
	"thoreinstein.com/prflow/pkg/workflow"
)

func TestRenderer_Listing(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, false)

	r.Listing(workflow.RepoListing{
		Owner: "acme",
		Repo:  "widgets",
		Groups: []workflow.Group{
			{Branch: "main", PullRequests: []*github.PullRequest{
				{Number: 1, Title: "Fix sorting", Author: "alice", CombinedStatus: "success"},
				{Number: 2, Title: strings.Repeat("x", 80), Author: "bob", Complexity: 36},
			}},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "acme/widgets")
	assert.Contains(t, out, "main (2)")
	assert.Contains(t, out, "#1     success Fix sorting @alice")
	assert.Contains(t, out, strings.Repeat("x", 57)+"...")
	assert.Contains(t, out, "complexity 36")
	assert.Contains(t, out, "Total: 2 pull request(s)")
}

func TestRenderer_ListingWarningAndError(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, false)

	r.Listing(workflow.RepoListing{Owner: "acme", Repo: "gone", Warning: "acme/gone: repository not found or disabled"})
	r.Listing(workflow.RepoListing{Owner: "acme", Repo: "broken", Err: prerrors.NewGitHubErrorWithStatus("ListPullRequests", 500, "boom")})
	r.Listing(workflow.RepoListing{Owner: "acme", Repo: "empty"})

	out := buf.String()
	assert.Contains(t, out, "warning: acme/gone: repository not found or disabled")
	assert.Contains(t, out, "acme/broken failed:")
	assert.Contains(t, out, "acme/empty: no pull requests found")
}

func TestRenderer_Result(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, false)

	result := &workflow.Result{
		Options:   workflow.Options{Number: 42, PullBranch: "pr-42", Branch: "main", Remote: "origin"},
		Fetched:   &github.PullRequest{Number: 42},
		Merged:    true,
		Submitted: &github.PullRequest{Number: 43, URL: "https://github.com/acme/widgets/pull/43"},
		Actions: []workflow.ActionResult{
			{Action: workflow.ActionFetch},
			{Action: workflow.ActionClose, Err: prerrors.NewUserInputError("number", "missing")},
		},
	}
	r.Result(result)

	out := buf.String()
	assert.Contains(t, out, "Fetched #42 into pr-42")
	assert.Contains(t, out, "Merged pr-42 into main and pushed to origin")
	assert.Contains(t, out, "Submitted #43 https://github.com/acme/widgets/pull/43")
	assert.Contains(t, out, "close failed:")
}

func TestRenderer_Info(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, false)

	r.Info(&github.PullRequest{
		Number:         7,
		Title:          "Add widgets",
		State:          "open",
		Author:         "alice",
		Base:           github.Branch{Ref: "main"},
		Head:           github.Branch{Ref: "feature", Owner: "alice"},
		CombinedStatus: "pending",
		Additions:      3,
		Deletions:      1,
		ChangedFiles:   2,
		Complexity:     12,
		Body:           "Details here",
	})

	out := buf.String()
	assert.Contains(t, out, "#7: Add widgets")
	assert.Contains(t, out, "Branches:  alice:feature -> main")
	assert.Contains(t, out, "Status:    pending")
	assert.Contains(t, out, "Changes:   +3 -1 in 2 file(s)")
	assert.Contains(t, out, "Complexity:12")
	assert.Contains(t, out, "Details here")
}
