package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"thoreinstein.com/prflow/pkg/bootstrap"
	"thoreinstein.com/prflow/pkg/config"
	prerrors "thoreinstein.com/prflow/pkg/errors"
	"thoreinstein.com/prflow/pkg/logging"
	"thoreinstein.com/prflow/pkg/ui"
)

var cfgFile string
var verbose bool
var appConfig *config.Config
var logger = slog.Default()

// errReported is returned once failures have already been shown to the user.
var errReported = prerrors.New("one or more actions failed")

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "prflow",
	Short: "prflow - pull request workflow automation",
	Long: `prflow is a CLI for pull request workflow automation that ties a local git
working tree to GitHub: fetch, merge, submit, forward, close and list pull
requests from the command line.

Pull requests are checked out into local branches named after their number
(pr-42 by default), so most commands work without arguments while such a
branch is checked out.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig(cmd.ErrOrStderr())
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		if !prerrors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, prerrors.FormatUserError(err))
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "C", "", "config file (default is $HOME/.config/prflow/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// initConfig reads in config file and ENV variables, then installs the
// configured logger as the default.
func initConfig(stderr io.Writer) error {
	noColor := !ui.IsTerminal(os.Stderr)
	logger = logging.NewLogger(stderr, logging.Level("", verbose), noColor)

	cfg, err := bootstrap.InitConfig(cfgFile, logger)
	if err != nil {
		return err
	}
	appConfig = cfg

	logger = logging.NewLogger(stderr, logging.Level(cfg.Log.Level, verbose), noColor)
	slog.SetDefault(logger)
	return nil
}
