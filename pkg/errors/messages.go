package errors

import (
	"fmt"
	"strings"
)

// FormatUserError returns a user-friendly error message with actionable guidance.
// It examines the error chain and provides context-appropriate help text.
func FormatUserError(err error) string {
	if err == nil {
		return ""
	}

	var inputErr *UserInputError
	if As(err, &inputErr) {
		return formatUserInputError(inputErr)
	}

	var configErr *ConfigError
	if As(err, &configErr) {
		return formatConfigError(configErr)
	}

	var hookErr *HookError
	if As(err, &hookErr) {
		return formatHookError(hookErr)
	}

	var ghErr *GitHubError
	if As(err, &ghErr) {
		return formatGitHubError(ghErr)
	}

	var gitErr *GitError
	if As(err, &gitErr) {
		return formatGitError(gitErr)
	}

	var wfErr *WorkflowError
	if As(err, &wfErr) {
		return formatWorkflowError(wfErr)
	}

	return err.Error()
}

func formatUserInputError(err *UserInputError) string {
	var b strings.Builder

	b.WriteString(err.Error())
	b.WriteString("\n")

	switch err.Field {
	case "number":
		b.WriteString("\nTo fix this:\n")
		b.WriteString("  • Pass the pull request number explicitly: prflow pr 123 ...\n")
		b.WriteString("  • Or check out a pull branch (e.g. pr-123) created by 'prflow pr 123 --fetch'\n")
	case "user", "repo":
		b.WriteString("\nTo fix this:\n")
		b.WriteString("  • Run from a clone whose 'origin' remote points at GitHub\n")
		b.WriteString("  • Or pass --user and --repo explicitly\n")
	}

	return b.String()
}

// formatConfigError formats a ConfigError with actionable guidance.
func formatConfigError(err *ConfigError) string {
	var b strings.Builder

	if err.Field != "" {
		fmt.Fprintf(&b, "Configuration error in '%s': %s\n", err.Field, err.Message)
	} else {
		fmt.Fprintf(&b, "Configuration error: %s\n", err.Message)
	}

	b.WriteString("\nTo fix this:\n")
	b.WriteString("  • Check your config file: ~/.config/prflow/config.toml\n")
	b.WriteString("  • Run 'prflow config show' to inspect the effective configuration\n")

	if err.Cause != nil {
		fmt.Fprintf(&b, "\nUnderlying error: %v", err.Cause)
	}

	return b.String()
}

// formatGitHubError formats a GitHubError with actionable guidance based on status code.
func formatGitHubError(err *GitHubError) string {
	var b strings.Builder

	fmt.Fprintf(&b, "GitHub error during %s: %s\n", err.Operation, err.Message)

	switch err.StatusCode {
	case 401:
		b.WriteString("\nAuthentication failed. To fix this:\n")
		b.WriteString("  • Run 'prflow auth login' to authenticate\n")
		b.WriteString("  • Or set the PRFLOW_GITHUB_TOKEN environment variable\n")
		b.WriteString("  • Ensure your token has the required scopes (repo, read:org)\n")

	case 403:
		b.WriteString("\nPermission denied. To fix this:\n")
		b.WriteString("  • Ensure you have write access to this repository\n")
		b.WriteString("  • Check that your token has the 'repo' scope\n")
		b.WriteString("  • If using SSO, ensure the token is authorized for your organization\n")

	case 404, 410:
		b.WriteString("\nResource not found. To fix this:\n")
		b.WriteString("  • Verify the repository name and owner are correct\n")
		b.WriteString("  • Ensure the pull request exists\n")

	case 422:
		b.WriteString("\nValidation failed. To fix this:\n")
		b.WriteString("  • A pull request for this branch may already exist\n")
		b.WriteString("  • Make sure the branch has been pushed and differs from the base\n")

	case 429:
		b.WriteString("\nRate limit exceeded. Wait a few minutes before trying again.\n")

	case 500, 502, 503, 504:
		b.WriteString("\nGitHub server error. To fix this:\n")
		b.WriteString("  • Wait a few moments and try again\n")
		b.WriteString("  • Check GitHub Status: https://www.githubstatus.com\n")
	}

	if err.Retryable {
		b.WriteString("\nThis error may be temporary. You can try running the command again.\n")
	}

	if err.Cause != nil {
		fmt.Fprintf(&b, "\nUnderlying error: %v", err.Cause)
	}

	return b.String()
}

func formatGitError(err *GitError) string {
	var b strings.Builder

	b.WriteString(err.Error())
	b.WriteString("\n")

	switch err.Operation {
	case "merge", "rebase":
		b.WriteString("\nThe working tree may now be mid-merge. To recover:\n")
		b.WriteString("  • Resolve conflicts and commit, or run 'git merge --abort' / 'git rebase --abort'\n")
	case "push":
		b.WriteString("\nLocal changes were kept; nothing was rolled back. To recover:\n")
		b.WriteString("  • Check your remote permissions and push again manually\n")
	case "fetch":
		b.WriteString("\nCheck that the head repository is still reachable.\n")
	}

	return b.String()
}

func formatHookError(err *HookError) string {
	var b strings.Builder

	b.WriteString(err.Error())
	b.WriteString("\n")

	if err.Phase == "pre" {
		b.WriteString("\nThe action was not started because its pre hook failed.\n")
	} else {
		b.WriteString("\nThe action completed; only its post hook failed.\n")
	}
	b.WriteString("Hooks are configured under [[hooks]] in ~/.config/prflow/config.toml\n")

	return b.String()
}

// formatWorkflowError formats a WorkflowError with actionable guidance.
func formatWorkflowError(err *WorkflowError) string {
	var b strings.Builder

	if err.Step != "" {
		fmt.Fprintf(&b, "Workflow error in '%s' step: %s\n", err.Step, err.Message)
	} else {
		fmt.Fprintf(&b, "Workflow error: %s\n", err.Message)
	}

	switch err.Step {
	case "merge":
		b.WriteString("\nMerge did not complete. Earlier steps are not rolled back:\n")
		b.WriteString("  • Check 'git status' on the base branch\n")
		b.WriteString("  • A local merge may exist that was never pushed\n")

	case "submit":
		b.WriteString("\nSubmit failed. To fix this:\n")
		b.WriteString("  • Make sure the branch was pushed to your fork\n")
		b.WriteString("  • Check whether an equivalent pull request is already open\n")

	case "close":
		b.WriteString("\nClose did not complete. The remote pull request may already be closed.\n")

	default:
		b.WriteString("\nTo troubleshoot:\n")
		b.WriteString("  • Run with --verbose for more details\n")
	}

	if err.Cause != nil {
		fmt.Fprintf(&b, "\nUnderlying error: %v", err.Cause)
	}

	return b.String()
}
