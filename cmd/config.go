package cmd

import (
	"fmt"
	"io"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"thoreinstein.com/prflow/pkg/bootstrap"
	"thoreinstein.com/prflow/pkg/config"
	prerrors "thoreinstein.com/prflow/pkg/errors"
)

// configCmd groups configuration commands.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect prflow configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as TOML",
	Long: `Print the configuration after merging defaults, the config file,
the repository-local .prflow.toml and PRFLOW_* environment variables.
The GitHub token is masked.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if used := viper.ConfigFileUsed(); used != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", used)
		}
		return runConfigShow(cmd.OutOrStdout(), appConfig)
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the default config directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := bootstrap.DefaultConfigDir()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), dir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd, configPathCmd)
}

func runConfigShow(w io.Writer, cfg *config.Config) error {
	shown := *cfg
	if shown.GitHub.Token != "" {
		shown.GitHub.Token = "********"
	}

	out, err := toml.Marshal(shown)
	if err != nil {
		return prerrors.Wrap(err, "failed to render configuration")
	}
	_, err = w.Write(out)
	return err
}
