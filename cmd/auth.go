package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"thoreinstein.com/prflow/pkg/config"
	prerrors "thoreinstein.com/prflow/pkg/errors"
	"thoreinstein.com/prflow/pkg/github"
)

// authCmd groups GitHub authentication commands.
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage GitHub authentication",
	Long: `Manage the GitHub credentials prflow uses.

Tokens are resolved in this order: PRFLOW_GITHUB_TOKEN, GITHUB_TOKEN,
github.token in config, a cached OAuth token, then the gh CLI.`,
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in with the OAuth device flow",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cache, err := github.NewTokenCache(appConfig.GitHub.Host)
		if err != nil {
			return err
		}
		return runAuthLogin(cmd, &appConfig.GitHub, cache)
	},
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the cached OAuth token of the configured host",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cache, err := github.NewTokenCache(appConfig.GitHub.Host)
		if err != nil {
			return err
		}
		return runAuthLogout(cmd.OutOrStdout(), hostName(&appConfig.GitHub), cache)
	},
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the authenticated GitHub user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := github.NewClient(cmd.Context(), &appConfig.GitHub, logger)
		if err != nil {
			return err
		}
		login, err := client.CurrentUser(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Logged in to %s as %s\n", hostName(&appConfig.GitHub), login)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd, authLogoutCmd, authStatusCmd)
}

func runAuthLogin(cmd *cobra.Command, cfg *config.GitHubConfig, cache github.TokenCache) error {
	if cfg.ClientID == "" {
		return prerrors.NewConfigError("github.client_id", "an OAuth app client ID is required for device login")
	}

	if _, err := github.Login(cfg, cache, cmd.OutOrStdout()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Logged in to %s\n", hostName(cfg))
	return nil
}

func runAuthLogout(w io.Writer, host string, cache github.TokenCache) error {
	if err := cache.Clear(); err != nil {
		return prerrors.Wrap(err, "failed to remove cached token")
	}
	fmt.Fprintf(w, "Cached token for %s removed\n", host)
	return nil
}

func hostName(cfg *config.GitHubConfig) string {
	if cfg.Host == "" {
		return github.DefaultHost
	}
	return cfg.Host
}
