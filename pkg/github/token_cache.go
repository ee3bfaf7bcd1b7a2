package github

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/zalando/go-keyring"
	"golang.org/x/oauth2"

	"thoreinstein.com/prflow/pkg/bootstrap"
	prerrors "thoreinstein.com/prflow/pkg/errors"
)

// keyringService groups prflow's keychain entries. Each GitHub host is one
// account under it, so github.com and Enterprise logins coexist.
const keyringService = "prflow"

// tokenFileName is the fallback store inside the prflow config directory.
const tokenFileName = "tokens.json" //nolint:gosec // file name, not a credential

// TokenCache stores the OAuth token of a single GitHub host.
type TokenCache interface {
	// Get returns the stored token, or nil when there is none.
	Get() (*oauth2.Token, error)
	Set(token *oauth2.Token) error
	Clear() error
}

// NewTokenCache returns the token cache for host. The system keychain is used
// when it accepts writes; otherwise tokens live in the file at TokenCachePath,
// keyed by host.
func NewTokenCache(host string) (TokenCache, error) {
	host = normalizeHost(host)
	if keychainAvailable() {
		return &keychainCache{host: host}, nil
	}

	path, err := TokenCachePath()
	if err != nil {
		return nil, prerrors.NewGitHubErrorWithCause("TokenCache", "no keychain and no config directory for tokens", err)
	}
	return newFileCache(path, host), nil
}

// TokenCachePath returns the fallback token file, next to the config file.
func TokenCachePath() (string, error) {
	dir, err := bootstrap.DefaultConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, tokenFileName), nil
}

func keychainAvailable() bool {
	probe := keyringService + "-probe"
	if err := keyring.Set(probe, "probe", "probe"); err != nil {
		return false
	}
	_ = keyring.Delete(probe, "probe")
	return true
}

// storedToken is the persisted form of an OAuth token.
type storedToken struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Expiry       time.Time `json:"expiry,omitzero"`
}

func newStoredToken(t *oauth2.Token) storedToken {
	return storedToken{
		AccessToken:  t.AccessToken,
		TokenType:    t.TokenType,
		RefreshToken: t.RefreshToken,
		Expiry:       t.Expiry,
	}
}

func (s storedToken) token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  s.AccessToken,
		TokenType:    s.TokenType,
		RefreshToken: s.RefreshToken,
		Expiry:       s.Expiry,
	}
}

// keychainCache keeps one JSON-encoded token per host in the system keychain.
type keychainCache struct {
	host string
}

func (k *keychainCache) Get() (*oauth2.Token, error) {
	data, err := keyring.Get(keyringService, k.host)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, prerrors.NewGitHubErrorWithCause("TokenCache.Get", "failed to read keychain entry for "+k.host, err)
	}

	var stored storedToken
	if err := json.Unmarshal([]byte(data), &stored); err != nil {
		return nil, prerrors.NewGitHubErrorWithCause("TokenCache.Get", "keychain entry for "+k.host+" is not a token", err)
	}
	return stored.token(), nil
}

func (k *keychainCache) Set(token *oauth2.Token) error {
	data, err := json.Marshal(newStoredToken(token))
	if err != nil {
		return prerrors.NewGitHubErrorWithCause("TokenCache.Set", "failed to encode token", err)
	}
	if err := keyring.Set(keyringService, k.host, string(data)); err != nil {
		return prerrors.NewGitHubErrorWithCause("TokenCache.Set", "failed to write keychain entry for "+k.host, err)
	}
	return nil
}

func (k *keychainCache) Clear() error {
	err := keyring.Delete(keyringService, k.host)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return prerrors.NewGitHubErrorWithCause("TokenCache.Clear", "failed to delete keychain entry for "+k.host, err)
	}
	return nil
}

// fileCache shares one 0600 JSON file, a map of host to token, between hosts.
// The file is removed once the last host is cleared.
type fileCache struct {
	path string
	host string
}

func newFileCache(path, host string) *fileCache {
	return &fileCache{path: path, host: normalizeHost(host)}
}

func (f *fileCache) Get() (*oauth2.Token, error) {
	tokens, err := f.load()
	if err != nil {
		return nil, err
	}
	stored, ok := tokens[f.host]
	if !ok {
		return nil, nil
	}
	return stored.token(), nil
}

func (f *fileCache) Set(token *oauth2.Token) error {
	tokens, err := f.load()
	if err != nil {
		return err
	}
	tokens[f.host] = newStoredToken(token)
	return f.save(tokens)
}

func (f *fileCache) Clear() error {
	tokens, err := f.load()
	if err != nil {
		return err
	}
	if _, ok := tokens[f.host]; !ok {
		return nil
	}
	delete(tokens, f.host)
	return f.save(tokens)
}

func (f *fileCache) load() (map[string]storedToken, error) {
	tokens := make(map[string]storedToken)

	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return tokens, nil
	}
	if err != nil {
		return nil, prerrors.NewGitHubErrorWithCause("TokenCache", "failed to read "+f.path, err)
	}
	if err := json.Unmarshal(data, &tokens); err != nil {
		return nil, prerrors.NewGitHubErrorWithCause("TokenCache", f.path+" is not a token file", err)
	}
	return tokens, nil
}

func (f *fileCache) save(tokens map[string]storedToken) error {
	if len(tokens) == 0 {
		if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return prerrors.NewGitHubErrorWithCause("TokenCache", "failed to remove "+f.path, err)
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return prerrors.NewGitHubErrorWithCause("TokenCache", "failed to create token directory", err)
	}
	data, err := json.MarshalIndent(tokens, "", "  ")
	if err != nil {
		return prerrors.NewGitHubErrorWithCause("TokenCache", "failed to encode tokens", err)
	}
	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return prerrors.NewGitHubErrorWithCause("TokenCache", "failed to write "+f.path, err)
	}
	return nil
}
