package errors

import (
	"fmt"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
)

func TestGitHubError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *GitHubError
		expected string
	}{
		{
			name:     "with status",
			err:      NewGitHubErrorWithStatus("ListPullRequests", 404, "Not Found"),
			expected: "github ListPullRequests failed (HTTP 404): Not Found",
		},
		{
			name:     "without status",
			err:      NewGitHubError("CreatePullRequest", "title is required"),
			expected: "github CreatePullRequest failed: title is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestGitHubError_Retryable(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{404, false},
		{422, false},
		{429, true},
		{502, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("HTTP %d", tt.status), func(t *testing.T) {
			err := NewGitHubErrorWithStatus("GetPullRequest", tt.status, "x")
			assert.Equal(t, tt.want, err.Retryable)
			assert.Equal(t, tt.want, IsRetryable(Wrap(err, "outer")))
		})
	}
}

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"404", NewGitHubErrorWithStatus("ListPullRequests", 404, "Not Found"), true},
		{"410 disabled repository", NewGitHubErrorWithStatus("ListPullRequests", 410, "Repository access blocked"), true},
		{"wrapped 404", Wrap(NewGitHubErrorWithStatus("ListPullRequests", 404, "Not Found"), "listing"), true},
		{"403", NewGitHubErrorWithStatus("ListPullRequests", 403, "Forbidden"), false},
		{"plain error", errors.New("boom"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsNotFound(tt.err))
		})
	}
}

func TestIsConflict(t *testing.T) {
	assert.True(t, IsConflict(NewGitHubErrorWithStatus("CreatePullRequest", 422, "A pull request already exists")))
	assert.True(t, IsConflict(NewGitHubErrorWithStatus("CreatePullRequest", 409, "conflict")))
	assert.False(t, IsConflict(NewGitHubErrorWithStatus("CreatePullRequest", 500, "boom")))
	assert.False(t, IsConflict(errors.New("boom")))
}

func TestGitError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *GitError
		expected string
	}{
		{
			name:     "with stderr",
			err:      NewGitError("push", []string{"push", "origin", "main"}, "rejected", nil),
			expected: "git push failed (git push origin main): rejected",
		},
		{
			name:     "with cause only",
			err:      NewGitError("checkout", nil, "", errors.New("exit status 1")),
			expected: "git checkout failed: exit status 1",
		},
		{
			name:     "bare",
			err:      NewGitError("merge", nil, "", nil),
			expected: "git merge failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestTypedErrorsUnwrap(t *testing.T) {
	cause := errors.New("underlying cause")

	tests := []struct {
		name string
		err  error
	}{
		{"config", NewConfigErrorWithCause("pull_request.branch_prefix", "empty", cause)},
		{"github", NewGitHubErrorWithCause("GetPullRequest", "request failed", cause)},
		{"git", NewGitError("fetch", nil, "", cause)},
		{"hook", NewHookError("pull-request.fetch", "pre", "make lint", cause)},
		{"workflow", NewWorkflowErrorWithCause("submit", "create failed", cause)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, errors.Is(tt.err, cause), "cause should be reachable through Unwrap")
		})
	}
}

func TestIsHelpers(t *testing.T) {
	wrapped := Wrap(NewUserInputError("number", "could not resolve pull request number"), "resolve")

	assert.True(t, IsUserInputError(wrapped))
	assert.False(t, IsGitHubError(wrapped))
	assert.True(t, IsGitError(Wrap(NewGitError("push", nil, "", nil), "merge")))
	assert.True(t, IsHookError(NewHookError("pull-request.close", "post", "", errors.New("x"))))
	assert.True(t, IsWorkflowError(NewWorkflowError("merge", "x")))
	assert.True(t, IsConfigError(NewConfigError("hooks", "x")))
}

func TestFormatUserError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantContain string
	}{
		{"nil", nil, ""},
		{"input number", NewUserInputError("number", "missing"), "prflow pr 123"},
		{"github 401", NewGitHubErrorWithStatus("GetPullRequest", 401, "Bad credentials"), "prflow auth login"},
		{"github 422", NewGitHubErrorWithStatus("CreatePullRequest", 422, "exists"), "already exist"},
		{"git push", NewGitError("push", nil, "rejected", nil), "nothing was rolled back"},
		{"pre hook", NewHookError("pull-request.merge", "pre", "make test", errors.New("exit 2")), "was not started"},
		{"workflow merge", NewWorkflowError("merge", "push failed"), "not rolled back"},
		{"plain", errors.New("plain failure"), "plain failure"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, FormatUserError(tt.err), tt.wantContain)
		})
	}
}
