package git

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"
)

// RepoURL represents a parsed repository remote URL.
type RepoURL struct {
	Original  string // Original input
	Canonical string // Normalized URL
	Protocol  string // "ssh" or "https"
	Host      string // e.g. "github.com" or an enterprise hostname
	Owner     string // org/user
	Repo      string // Repository name (without .git)
}

// URL parsing patterns for remote URLs. The host is captured so enterprise
// installations parse the same way as github.com.
var (
	// SSH format: git@host:owner/repo.git or git@host:owner/repo
	sshURLRegex = regexp.MustCompile(`^git@([a-zA-Z0-9.-]+):([a-zA-Z0-9_.-]+)/([a-zA-Z0-9_.-]+?)(?:\.git)?/?$`)

	// SSH URL format: ssh://git@host/owner/repo.git
	sshSchemeURLRegex = regexp.MustCompile(`^ssh://git@([a-zA-Z0-9.-]+)(?::\d+)?/([a-zA-Z0-9_.-]+)/([a-zA-Z0-9_.-]+?)(?:\.git)?/?$`)

	// HTTPS format: https://host/owner/repo or https://user@host/owner/repo.git
	httpsURLRegex = regexp.MustCompile(`^https?://(?:[^@/]+@)?([a-zA-Z0-9.-]+)/([a-zA-Z0-9_.-]+)/([a-zA-Z0-9_.-]+?)(?:\.git)?/?$`)
)

// ParseRemoteURL parses the URL formats git accepts for a remote and returns
// a normalized RepoURL.
// Supported formats:
//   - SSH: git@github.com:owner/repo.git
//   - SSH URL: ssh://git@github.com/owner/repo.git
//   - HTTPS: https://github.com/owner/repo
func ParseRemoteURL(input string) (*RepoURL, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, errors.New("empty URL provided")
	}

	for _, re := range []*regexp.Regexp{sshURLRegex, sshSchemeURLRegex} {
		if m := re.FindStringSubmatch(input); len(m) == 4 {
			return &RepoURL{
				Original:  input,
				Canonical: fmt.Sprintf("git@%s:%s/%s.git", m[1], m[2], m[3]),
				Protocol:  "ssh",
				Host:      m[1],
				Owner:     m[2],
				Repo:      m[3],
			}, nil
		}
	}

	if m := httpsURLRegex.FindStringSubmatch(input); len(m) == 4 {
		return &RepoURL{
			Original:  input,
			Canonical: fmt.Sprintf("https://%s/%s/%s.git", m[1], m[2], m[3]),
			Protocol:  "https",
			Host:      m[1],
			Owner:     m[2],
			Repo:      m[3],
		}, nil
	}

	return nil, errors.Newf("unrecognized remote URL format: %q", input)
}
