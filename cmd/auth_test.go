package cmd

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"thoreinstein.com/prflow/pkg/config"
	prerrors "thoreinstein.com/prflow/pkg/errors"
)

type memoryCache struct {
	token   *oauth2.Token
	cleared bool
}

func (m *memoryCache) Get() (*oauth2.Token, error) { return m.token, nil }
func (m *memoryCache) Set(t *oauth2.Token) error  { m.token = t; return nil }
func (m *memoryCache) Clear() error {
	m.token = nil
	m.cleared = true
	return nil
}

func TestRunAuthLogout(t *testing.T) {
	cache := &memoryCache{token: &oauth2.Token{AccessToken: "abc"}}

	var buf bytes.Buffer
	require.NoError(t, runAuthLogout(&buf, "ghe.example.com", cache))
	assert.True(t, cache.cleared)
	assert.Nil(t, cache.token)
	assert.Contains(t, buf.String(), "ghe.example.com removed")
}

func TestRunAuthLogin_RequiresClientID(t *testing.T) {
	err := runAuthLogin(&cobra.Command{}, &config.GitHubConfig{}, &memoryCache{})
	require.Error(t, err)

	var cfgErr *prerrors.ConfigError
	require.True(t, prerrors.As(err, &cfgErr))
	assert.Equal(t, "github.client_id", cfgErr.Field)
}

func TestHostName(t *testing.T) {
	assert.Equal(t, "github.com", hostName(&config.GitHubConfig{}))
	assert.Equal(t, "ghe.example.com", hostName(&config.GitHubConfig{Host: "ghe.example.com"}))
}
