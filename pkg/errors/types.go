// Package errors provides typed errors for prflow.
//
// Each subsystem (configuration, user input, GitHub, git, hooks, workflow)
// has its own error type carrying structured context. All types implement
// the error interface and support errors.Is() and errors.As() from both the
// standard library and cockroachdb/errors.
package errors

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// ConfigError represents configuration-related errors.
type ConfigError struct {
	Field   string // Which config field has the issue
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config error in %s: %s", e.Field, e.Message)
	}
	return "config error: " + e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// NewConfigErrorWithCause creates a new ConfigError with an underlying cause.
func NewConfigErrorWithCause(field, message string, cause error) *ConfigError {
	return &ConfigError{Field: field, Message: message, Cause: cause}
}

// UserInputError reports missing or invalid invocation context, such as a
// pull request number that could not be resolved. It is always fatal and is
// raised before any remote or local action runs.
type UserInputError struct {
	Field   string // e.g. "number", "repo"
	Message string
}

// Error implements the error interface.
func (e *UserInputError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid input for %s: %s", e.Field, e.Message)
	}
	return "invalid input: " + e.Message
}

// NewUserInputError creates a new UserInputError.
func NewUserInputError(field, message string) *UserInputError {
	return &UserInputError{Field: field, Message: message}
}

// GitHubError represents GitHub API errors.
type GitHubError struct {
	Operation  string // e.g., "CreatePullRequest", "ListPullRequests"
	StatusCode int    // HTTP status code if applicable
	Message    string
	Retryable  bool
	Cause      error
}

// Error implements the error interface.
func (e *GitHubError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("github %s failed (HTTP %d): %s", e.Operation, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("github %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *GitHubError) Unwrap() error {
	return e.Cause
}

// NewGitHubError creates a new GitHubError.
func NewGitHubError(operation, message string) *GitHubError {
	return &GitHubError{Operation: operation, Message: message}
}

// NewGitHubErrorWithStatus creates a new GitHubError with HTTP status code.
func NewGitHubErrorWithStatus(operation string, statusCode int, message string) *GitHubError {
	return &GitHubError{
		Operation:  operation,
		StatusCode: statusCode,
		Message:    message,
		Retryable:  isRetryableHTTPStatus(statusCode),
	}
}

// NewGitHubErrorWithCause creates a new GitHubError with an underlying cause.
func NewGitHubErrorWithCause(operation, message string, cause error) *GitHubError {
	return &GitHubError{
		Operation: operation,
		Message:   message,
		Retryable: IsRetryable(cause),
		Cause:     cause,
	}
}

// GitError represents a failed git invocation.
type GitError struct {
	Operation string   // e.g., "fetch", "checkout", "push"
	Args      []string // git arguments, without the leading "git"
	Stderr    string
	Cause     error
}

// Error implements the error interface.
func (e *GitError) Error() string {
	msg := fmt.Sprintf("git %s failed", e.Operation)
	if len(e.Args) > 0 {
		msg += fmt.Sprintf(" (git %s)", strings.Join(e.Args, " "))
	}
	if e.Stderr != "" {
		return msg + ": " + e.Stderr
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *GitError) Unwrap() error {
	return e.Cause
}

// NewGitError creates a new GitError.
func NewGitError(operation string, args []string, stderr string, cause error) *GitError {
	return &GitError{Operation: operation, Args: args, Stderr: stderr, Cause: cause}
}

// HookError represents a failed pre or post hook command.
type HookError struct {
	Hook    string // e.g., "pull-request.fetch"
	Phase   string // "pre" or "post"
	Command string
	Cause   error
}

// Error implements the error interface.
func (e *HookError) Error() string {
	if e.Command != "" {
		return fmt.Sprintf("%s-%s hook %q failed: %v", e.Phase, e.Hook, e.Command, e.Cause)
	}
	return fmt.Sprintf("%s-%s hook failed: %v", e.Phase, e.Hook, e.Cause)
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *HookError) Unwrap() error {
	return e.Cause
}

// NewHookError creates a new HookError.
func NewHookError(hook, phase, command string, cause error) *HookError {
	return &HookError{Hook: hook, Phase: phase, Command: command, Cause: cause}
}

// WorkflowError represents a failed step of a pull request pipeline.
type WorkflowError struct {
	Step      string // e.g., "fetch", "merge", "submit", "close"
	Message   string
	Retryable bool
	Cause     error
}

// Error implements the error interface.
func (e *WorkflowError) Error() string {
	if e.Step != "" {
		return fmt.Sprintf("workflow step %s failed: %s", e.Step, e.Message)
	}
	return "workflow error: " + e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *WorkflowError) Unwrap() error {
	return e.Cause
}

// NewWorkflowError creates a new WorkflowError.
func NewWorkflowError(step, message string) *WorkflowError {
	return &WorkflowError{Step: step, Message: message}
}

// NewWorkflowErrorWithCause creates a new WorkflowError with an underlying cause.
func NewWorkflowErrorWithCause(step, message string, cause error) *WorkflowError {
	return &WorkflowError{
		Step:      step,
		Message:   message,
		Retryable: IsRetryable(cause),
		Cause:     cause,
	}
}

// IsRetryable reports whether the first typed error in the chain is marked
// retryable. Nothing in prflow retries automatically; the flag only changes
// the guidance printed to the user.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var ghErr *GitHubError
	if errors.As(err, &ghErr) {
		return ghErr.Retryable
	}

	var wfErr *WorkflowError
	if errors.As(err, &wfErr) {
		return wfErr.Retryable
	}

	return false
}

// IsConfigError checks if an error or any error in its chain is a ConfigError.
func IsConfigError(err error) bool {
	var configErr *ConfigError
	return errors.As(err, &configErr)
}

// IsUserInputError checks if an error or any error in its chain is a UserInputError.
func IsUserInputError(err error) bool {
	var inputErr *UserInputError
	return errors.As(err, &inputErr)
}

// IsGitHubError checks if an error or any error in its chain is a GitHubError.
func IsGitHubError(err error) bool {
	var ghErr *GitHubError
	return errors.As(err, &ghErr)
}

// IsGitError checks if an error or any error in its chain is a GitError.
func IsGitError(err error) bool {
	var gitErr *GitError
	return errors.As(err, &gitErr)
}

// IsHookError checks if an error or any error in its chain is a HookError.
func IsHookError(err error) bool {
	var hookErr *HookError
	return errors.As(err, &hookErr)
}

// IsWorkflowError checks if an error or any error in its chain is a WorkflowError.
func IsWorkflowError(err error) bool {
	var wfErr *WorkflowError
	return errors.As(err, &wfErr)
}

// IsNotFound reports whether err carries a GitHub "not found" class status.
// 410 Gone is included because GitHub answers it for disabled repositories.
func IsNotFound(err error) bool {
	var ghErr *GitHubError
	if !errors.As(err, &ghErr) {
		return false
	}
	return ghErr.StatusCode == 404 || ghErr.StatusCode == 410
}

// IsConflict reports whether err carries a GitHub conflict or validation
// status, which is how pull request creation reports an existing PR.
func IsConflict(err error) bool {
	var ghErr *GitHubError
	if !errors.As(err, &ghErr) {
		return false
	}
	return ghErr.StatusCode == 409 || ghErr.StatusCode == 422
}

// isRetryableHTTPStatus returns true for HTTP status codes that are typically retryable.
func isRetryableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, // Request Timeout
		429, // Too Many Requests
		500, // Internal Server Error
		502, // Bad Gateway
		503, // Service Unavailable
		504: // Gateway Timeout
		return true
	default:
		return false
	}
}

// Re-export commonly used functions from cockroachdb/errors so callers can
// use prerrors.Wrap() instead of importing two packages.
var (
	// New creates a new error with the given message.
	New = errors.New

	// Newf creates a new error with formatted message.
	Newf = errors.Newf

	// Wrap wraps an error with additional context.
	Wrap = errors.Wrap

	// Wrapf wraps an error with formatted additional context.
	Wrapf = errors.Wrapf

	// Is reports whether any error in err's chain matches target.
	Is = errors.Is

	// As finds the first error in err's chain that matches target.
	As = errors.As

	// Join combines several errors into one, dropping nils.
	Join = errors.Join
)
