package github

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thoreinstein.com/prflow/pkg/config"
)

func TestNewClient_NilConfig(t *testing.T) {
	_, err := NewClient(t.Context(), nil, nil)
	assert.Error(t, err)
}

func TestNewClient_UnknownAuthMethod(t *testing.T) {
	_, err := NewClient(t.Context(), &config.GitHubConfig{AuthMethod: "magic"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown auth method")
}

func TestNewClient_TokenAuthMissingToken(t *testing.T) {
	t.Setenv("PRFLOW_GITHUB_TOKEN", "")
	t.Setenv("GITHUB_TOKEN", "")

	_, err := NewClient(t.Context(), &config.GitHubConfig{AuthMethod: "token"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PRFLOW_GITHUB_TOKEN")
}

func TestNewClient_TokenSources(t *testing.T) {
	tests := []struct {
		name      string
		prflowEnv string
		githubEnv string
		cfgToken  string
	}{
		{"prflow env", "env-token", "", ""},
		{"github env", "", "env-token", ""},
		{"config", "", "", "cfg-token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("PRFLOW_GITHUB_TOKEN", tt.prflowEnv)
			t.Setenv("GITHUB_TOKEN", tt.githubEnv)

			client, err := NewClient(t.Context(), &config.GitHubConfig{AuthMethod: "token", Token: tt.cfgToken}, nil)
			require.NoError(t, err)
			assert.IsType(t, &APIClient{}, client)
		})
	}
}

func TestEnvTokenPrecedence(t *testing.T) {
	t.Setenv("PRFLOW_GITHUB_TOKEN", "first")
	t.Setenv("GITHUB_TOKEN", "second")
	assert.Equal(t, "first", envToken())
}
