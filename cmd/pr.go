package cmd

import (
	"context"
	"os"
	"strconv"

	"github.com/cli/browser"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"thoreinstein.com/prflow/pkg/config"
	prerrors "thoreinstein.com/prflow/pkg/errors"
	"thoreinstein.com/prflow/pkg/git"
	"thoreinstein.com/prflow/pkg/github"
	"thoreinstein.com/prflow/pkg/ui"
	"thoreinstein.com/prflow/pkg/workflow"
)

// prFlags holds the flags of the pr command.
type prFlags struct {
	user        string
	repo        string
	org         string
	branch      string
	remote      string
	state       string
	sort        string
	direction   string
	fetch       bool
	merge       bool
	rebase      bool
	silent      bool
	submit      string
	forward     string
	issue       int
	title       string
	description string
	comment     string
	close       bool
	open        bool
	info        bool
	list        bool
	all         bool
	mine        bool
	browser     bool
}

var prOpts prFlags

// prCmd runs pull request workflows.
var prCmd = &cobra.Command{
	Use:   "pr [number]",
	Short: "Run pull request workflows",
	Long: `Run one or more pull request workflows against the current repository.

The pull request number defaults to the one encoded in the current branch
name (pr-42 -> 42). Owner and repository default to the configured remote.
Several actions may be combined; they run in a fixed order (browser, close,
comment, fetch or merge, forward, info, list, open, submit) and later
actions still run when an earlier one fails.

Examples:
  prflow pr 42 --fetch             # Fetch #42 into pr-42 and check it out
  prflow pr 42 --fetch --merge     # Fetch #42 and merge it into the current branch
  prflow pr --merge                # Merge the checked-out pr-N into the base branch and push
  prflow pr --submit upstream      # Push the current branch and open a PR on upstream
  prflow pr 42 --fwd maintainer    # Forward #42 to another fork
  prflow pr 42 --close             # Close #42 and delete pr-42
  prflow pr --list --sort complexity
  prflow pr --list --all --org acme`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := prOpts.options(args)
		if err != nil {
			return err
		}
		return runPR(cmd.Context(), cmd, opts)
	},
}

func init() {
	rootCmd.AddCommand(prCmd)
	addPRFlags(prCmd.Flags(), &prOpts)
}

// addPRFlags binds the pr command flags in fs to p.
func addPRFlags(fs *pflag.FlagSet, p *prFlags) {
	fs.StringVarP(&p.user, "user", "u", "", "Repository owner (default from remote)")
	fs.StringVarP(&p.repo, "repo", "r", "", "Repository name (default from remote)")
	fs.StringVar(&p.org, "org", "", "Organization to list with --all")
	fs.StringVarP(&p.branch, "branch", "b", "", "Base branch (default git.base_branch)")
	fs.StringVar(&p.remote, "remote", "", "Remote to push to (default git.remote)")
	fs.StringVarP(&p.state, "state", "S", "", "List state: open, closed or all")
	fs.StringVar(&p.sort, "sort", "", "List order: created, updated, popularity, long-running or complexity")
	fs.StringVarP(&p.direction, "direction", "d", "", "List direction: asc or desc")
	fs.BoolVarP(&p.fetch, "fetch", "f", false, "Fetch the pull request into its local branch")
	fs.BoolVarP(&p.merge, "merge", "M", false, "Merge (with --fetch: into the current branch; alone: into the base branch and push)")
	fs.BoolVarP(&p.rebase, "rebase", "R", false, "Like --merge, rebasing instead")
	fs.BoolVar(&p.silent, "silent", false, "With --fetch, do not checkout, merge or rebase")
	fs.StringVarP(&p.submit, "submit", "s", "", "Submit the current branch as a pull request to this owner")
	fs.StringVar(&p.forward, "fwd", "", "Forward the pull request to this owner")
	fs.IntVarP(&p.issue, "issue", "i", 0, "Convert this issue into the submitted pull request")
	fs.StringVarP(&p.title, "title", "t", "", "Title for --submit (default last commit subject)")
	fs.StringVarP(&p.description, "description", "D", "", "Description for --submit")
	fs.StringVarP(&p.comment, "comment", "c", "", "Comment on the pull request")
	fs.BoolVar(&p.close, "close", false, "Close the pull request and delete its local branch")
	fs.BoolVarP(&p.open, "open", "o", false, "Reopen the pull request")
	fs.BoolVar(&p.info, "info", false, "Show pull request details")
	fs.BoolVarP(&p.list, "list", "l", false, "List pull requests")
	fs.BoolVarP(&p.all, "all", "a", false, "With --list, list every repository of --user or --org")
	fs.BoolVarP(&p.mine, "mine", "m", false, "With --list, only pull requests you authored")
	fs.BoolVarP(&p.browser, "browser", "B", false, "Open the pull request in the browser")
}

// options maps flags and the optional number argument to workflow options.
func (f prFlags) options(args []string) (workflow.Options, error) {
	opts := workflow.Options{
		User:        f.user,
		Repo:        f.repo,
		Org:         f.org,
		Branch:      f.branch,
		Remote:      f.remote,
		State:       f.state,
		Sort:        f.sort,
		Direction:   f.direction,
		Fetch:       f.fetch,
		Merge:       f.merge,
		Rebase:      f.rebase,
		Silent:      f.silent,
		Submit:      f.submit,
		Forward:     f.forward,
		Issue:       f.issue,
		Title:       f.title,
		Description: f.description,
		Comment:     f.comment,
		Close:       f.close,
		Open:        f.open,
		Info:        f.info,
		List:        f.list,
		All:         f.all,
		Mine:        f.mine,
		Browser:     f.browser,
	}

	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return opts, prerrors.NewUserInputError("number", "invalid pull request number "+strconv.Quote(args[0]))
		}
		opts.Number = n
	}

	if err := validateChoice("state", opts.State, config.ValidStates); err != nil {
		return opts, err
	}
	if err := validateChoice("sort", opts.Sort, config.ValidSorts); err != nil {
		return opts, err
	}
	if err := validateChoice("direction", opts.Direction, config.ValidDirections); err != nil {
		return opts, err
	}
	if opts.Merge && opts.Rebase {
		return opts, prerrors.NewUserInputError("rebase", "--merge and --rebase are mutually exclusive")
	}

	return opts, nil
}

func validateChoice(field, value string, allowed []string) error {
	if value == "" {
		return nil
	}
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return prerrors.NewUserInputError(field, "unsupported value "+strconv.Quote(value))
}

func runPR(ctx context.Context, cmd *cobra.Command, opts workflow.Options) error {
	cfg := appConfig
	repo := git.NewRepository("", git.WithLogger(logger))

	if opts.User == "" || opts.Repo == "" {
		fillFromRemote(ctx, repo, cfg, &opts)
	}

	client, err := github.NewClient(ctx, &cfg.GitHub, logger)
	if err != nil {
		return err
	}

	engine, err := workflow.NewEngine(client, repo, cfg,
		workflow.WithLogger(logger),
		workflow.WithOpener(browser.OpenURL),
	)
	if err != nil {
		return err
	}

	result, err := engine.Run(ctx, opts)
	if result == nil {
		return err
	}

	ui.NewRenderer(cmd.OutOrStdout(), ui.IsTerminal(os.Stdout)).Result(result)
	if err != nil {
		return errReported
	}
	return nil
}

// fillFromRemote defaults owner and repository from the configured remote.
// Failures are left for the engine to report as missing input.
func fillFromRemote(ctx context.Context, repo *git.Repository, cfg *config.Config, opts *workflow.Options) {
	remote := opts.Remote
	if remote == "" {
		remote = cfg.Git.Remote
	}

	url, err := repo.RemoteRepo(ctx, remote)
	if err != nil {
		logger.Debug("could not read remote", "remote", remote, "error", err)
		return
	}

	if opts.User == "" {
		opts.User = url.Owner
	}
	if opts.Repo == "" {
		opts.Repo = url.Repo
	}
	if cfg.GitHub.Host != "" && url.Host != "" && url.Host != cfg.GitHub.Host {
		logger.Warn("remote host differs from configured GitHub host", "remote", url.Host, "configured", cfg.GitHub.Host)
	}
}
