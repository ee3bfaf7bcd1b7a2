package github

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"thoreinstein.com/prflow/pkg/config"
	prerrors "thoreinstein.com/prflow/pkg/errors"
)

// Client defines the GitHub operations the pull request workflows need.
// Every repository-scoped call names its owner and repository explicitly;
// submit and forward target a different owner than the local checkout.
type Client interface {
	// GetPullRequest retrieves a pull request including its size metrics.
	GetPullRequest(ctx context.Context, owner, repo string, number int) (*PullRequest, error)

	// ListPullRequests returns every page of pull requests matching opts.
	ListPullRequests(ctx context.Context, owner, repo string, opts ListOptions) ([]*PullRequest, error)

	// CreatePullRequest opens a new pull request.
	CreatePullRequest(ctx context.Context, owner, repo string, pr NewPullRequest) (*PullRequest, error)

	// CreatePullRequestFromIssue converts an existing issue into a pull request.
	CreatePullRequestFromIssue(ctx context.Context, owner, repo string, issue int, head, base string) (*PullRequest, error)

	// UpdatePullRequest edits title, body and state.
	UpdatePullRequest(ctx context.Context, owner, repo string, number int, upd PullRequestUpdate) (*PullRequest, error)

	// GetCombinedStatus returns the combined commit status state for ref.
	GetCombinedStatus(ctx context.Context, owner, repo, ref string) (string, error)

	// ListRepositories lists the repositories of org, or of user when org is empty.
	ListRepositories(ctx context.Context, user, org string) ([]Repository, error)

	// CreateComment adds a comment to the pull request's issue thread.
	CreateComment(ctx context.Context, owner, repo string, number int, body string) error

	// CurrentUser returns the login of the authenticated user.
	CurrentUser(ctx context.Context) (string, error)
}

// Compile-time check that APIClient satisfies the Client interface.
var _ Client = (*APIClient)(nil)

// Environment variables consulted for a token, in order.
var tokenEnvVars = []string{"PRFLOW_GITHUB_TOKEN", "GITHUB_TOKEN"}

// NewClient creates a GitHub client based on the provided configuration.
//
// Token resolution order:
//  1. PRFLOW_GITHUB_TOKEN environment variable
//  2. GITHUB_TOKEN environment variable
//  3. Token from config file (github.token)
//  4. Cached OAuth token (keychain or file)
//  5. OAuth device flow (auth_method "oauth" with client_id configured)
//  6. Token stored by the gh CLI (`gh auth token`)
func NewClient(ctx context.Context, cfg *config.GitHubConfig, logger *slog.Logger) (Client, error) {
	if cfg == nil {
		return nil, prerrors.NewGitHubError("NewClient", "github config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := []APIClientOption{WithAPILogger(logger), WithHost(cfg.Host)}

	token := envToken()
	if token == "" {
		token = cfg.Token
	}

	switch AuthMethod(cfg.AuthMethod) {
	case AuthToken:
		if token == "" {
			return nil, prerrors.NewGitHubError("NewClient",
				"token auth requires PRFLOW_GITHUB_TOKEN, GITHUB_TOKEN, or github.token in config")
		}
		return NewAPIClient(token, opts...)

	case AuthOAuth:
		if token != "" {
			return NewAPIClient(token, opts...)
		}
		cache, err := NewTokenCache(cfg.Host)
		if err != nil {
			return nil, err
		}
		oauthToken, err := oauthToken(cfg, cache, os.Stdout, logger)
		if err != nil {
			return nil, err
		}
		return NewAPIClient(oauthToken, opts...)

	case AuthGHCLI, "":
		if token != "" {
			return NewAPIClient(token, opts...)
		}
		if cache, err := NewTokenCache(cfg.Host); err != nil {
			logger.Debug("token cache unavailable", "error", err)
		} else if cached := cachedAccessToken(cache, logger); cached != "" {
			return NewAPIClient(cached, opts...)
		}
		ghToken, err := GHCLIToken(ctx, cfg.Host)
		if err != nil {
			return nil, prerrors.NewGitHubErrorWithCause("NewClient",
				"no GitHub token found; run 'prflow auth login' or set PRFLOW_GITHUB_TOKEN", err)
		}
		return NewAPIClient(ghToken, opts...)

	default:
		return nil, prerrors.NewGitHubError("NewClient", "unknown auth method: "+cfg.AuthMethod)
	}
}

func envToken() string {
	for _, name := range tokenEnvVars {
		if token := os.Getenv(name); token != "" {
			return token
		}
	}
	return ""
}

// cachedAccessToken returns a still-valid cached OAuth token, or "".
func cachedAccessToken(cache TokenCache, logger *slog.Logger) string {
	token, err := cache.Get()
	if err != nil {
		logger.Debug("failed to read cached token", "error", err)
		return ""
	}
	if token == nil || !token.Valid() {
		return ""
	}
	logger.Debug("using cached OAuth token")
	return token.AccessToken
}

// oauthToken returns a cached token or runs the device flow and caches the result.
func oauthToken(cfg *config.GitHubConfig, cache TokenCache, stdout io.Writer, logger *slog.Logger) (string, error) {
	if cached := cachedAccessToken(cache, logger); cached != "" {
		return cached, nil
	}

	if cfg.ClientID == "" {
		return "", prerrors.NewGitHubError("NewClient",
			"oauth auth requires github.client_id in config; alternatively use gh_cli auth method")
	}

	token, err := Login(cfg, cache, stdout)
	if err != nil {
		return "", err
	}
	return token.AccessToken, nil
}

// GHCLIToken asks the gh CLI for its stored token.
func GHCLIToken(ctx context.Context, host string) (string, error) {
	args := []string{"auth", "token"}
	if host != "" && host != DefaultHost {
		args = append(args, "--hostname", host)
	}

	out, err := exec.CommandContext(ctx, "gh", args...).Output()
	if err != nil {
		return "", err
	}

	token := strings.TrimSpace(string(out))
	if token == "" {
		return "", prerrors.New("gh returned an empty token")
	}
	return token, nil
}
