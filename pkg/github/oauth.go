package github

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/cli/browser"
	"github.com/cli/oauth"
	"golang.org/x/oauth2"

	"thoreinstein.com/prflow/pkg/config"
	prerrors "thoreinstein.com/prflow/pkg/errors"
)

// DefaultHost is the hostname of public GitHub.
const DefaultHost = "github.com"

// loginScopes cover pushing branches, editing pull requests and listing
// organization repositories.
var loginScopes = []string{"repo", "read:org"}

// normalizeHost reduces a configured host ("https://GHE.example.com/") to the
// bare lowercase hostname used to key cached tokens.
func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	host = strings.TrimPrefix(host, "https://")
	host = strings.TrimPrefix(host, "http://")
	host = strings.TrimSuffix(host, "/")
	if host == "" {
		return DefaultHost
	}
	return host
}

// deviceFlow prepares the OAuth device flow for the app clientID on host.
// Prompts go to stdout; Enter opens the verification page in the browser.
func deviceFlow(host, clientID string, stdout io.Writer) (*oauth.Flow, error) {
	if clientID == "" {
		return nil, prerrors.NewGitHubError("Login", "client_id is required for the OAuth device flow")
	}

	ghHost, err := oauth.NewGitHubHost("https://" + normalizeHost(host))
	if err != nil {
		return nil, prerrors.NewGitHubErrorWithCause("Login", "invalid GitHub host "+strconv.Quote(host), err)
	}

	return &oauth.Flow{
		Host:     ghHost,
		ClientID: clientID,
		Scopes:   loginScopes,
		Stdout:   stdout,
		Stdin:    os.Stdin,
		DisplayCode: func(code, verificationURL string) error {
			fmt.Fprintf(stdout, "\n! One-time code for %s: %s\n", normalizeHost(host), code)
			fmt.Fprintf(stdout, "- Press Enter to open %s in your browser...\n", verificationURL)
			return nil
		},
		BrowseURL: browser.OpenURL,
	}, nil
}

// Login runs the device flow against cfg.Host and stores the token in cache.
// A cache failure is logged; the token is still returned.
func Login(cfg *config.GitHubConfig, cache TokenCache, stdout io.Writer) (*oauth2.Token, error) {
	flow, err := deviceFlow(cfg.Host, cfg.ClientID, stdout)
	if err != nil {
		return nil, err
	}

	access, err := flow.DeviceFlow()
	if err != nil {
		return nil, prerrors.NewGitHubErrorWithCause("Login", "device flow failed", err)
	}

	token := &oauth2.Token{
		AccessToken:  access.Token,
		TokenType:    access.Type,
		RefreshToken: access.RefreshToken,
	}
	if err := cache.Set(token); err != nil {
		slog.Warn("token could not be cached, the next run will ask again", "host", normalizeHost(cfg.Host), "error", err)
	}
	return token, nil
}
