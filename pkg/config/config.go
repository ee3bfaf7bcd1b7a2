package config

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"

	prerrors "thoreinstein.com/prflow/pkg/errors"
)

// Config represents the application configuration.
// Repository owner and name are derived from git, not configuration.
type Config struct {
	GitHub      GitHubConfig      `mapstructure:"github" toml:"github"`
	Git         GitConfig         `mapstructure:"git" toml:"git"`
	PullRequest PullRequestConfig `mapstructure:"pull_request" toml:"pull_request"`
	Hooks       []HookConfig      `mapstructure:"hooks" toml:"hooks"`
	Log         LogConfig         `mapstructure:"log" toml:"log"`
}

// GitHubConfig holds GitHub integration configuration
type GitHubConfig struct {
	AuthMethod string `mapstructure:"auth_method" toml:"auth_method"` // "token", "oauth", "gh_cli"
	ClientID   string `mapstructure:"client_id" toml:"client_id"`     // OAuth app client ID (for device flow)
	Token      string `mapstructure:"token" toml:"token"`             // PRFLOW_GITHUB_TOKEN env var takes precedence
	Host       string `mapstructure:"host" toml:"host"`               // e.g. "github.com" or a GHE hostname
	UseSSH     bool   `mapstructure:"use_ssh" toml:"use_ssh"`         // fetch pull heads over SSH instead of HTTPS
}

// GitConfig holds git working tree defaults
type GitConfig struct {
	Remote     string `mapstructure:"remote" toml:"remote"`           // remote pushed to by merge/submit
	BaseBranch string `mapstructure:"base_branch" toml:"base_branch"` // default base branch for merge/submit
}

// PullRequestConfig holds pull request workflow defaults
type PullRequestConfig struct {
	BranchPrefix string            `mapstructure:"branch_prefix" toml:"branch_prefix"`
	State        string            `mapstructure:"state" toml:"state"`
	Sort         string            `mapstructure:"sort" toml:"sort"`
	Direction    string            `mapstructure:"direction" toml:"direction"`
	Replacements []ReplacementRule `mapstructure:"replacements" toml:"replacements"`
}

// ReplacementRule rewrites pull request text on close. Pattern is a Go
// regular expression; Replacement may reference capture groups ($1).
type ReplacementRule struct {
	Pattern     string `mapstructure:"pattern" toml:"pattern"`
	Replacement string `mapstructure:"replacement" toml:"replacement"`
}

// HookConfig binds shell commands to the pre and post extension points of a
// named action such as "pull-request.fetch".
type HookConfig struct {
	Name string   `mapstructure:"name" toml:"name"`
	Pre  []string `mapstructure:"pre" toml:"pre"`
	Post []string `mapstructure:"post" toml:"post"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `mapstructure:"level" toml:"level"` // "debug", "info", "warn", "error"
}

// Accepted values for pull request listing options.
var (
	ValidStates     = []string{"open", "closed", "all"}
	ValidSorts      = []string{"created", "updated", "popularity", "long-running", "complexity"}
	ValidDirections = []string{"asc", "desc"}
)

// Load loads the configuration from viper's current state (file, env, defaults).
func Load() (*Config, error) {
	config := &Config{}

	setDefaults()

	if err := viper.Unmarshal(config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return config, nil
}

// Validate validates the configuration and returns any validation errors.
func (c *Config) Validate() error {
	// An empty prefix would make every branch decode to a pull request
	// identifier, so it is rejected up front.
	if strings.TrimSpace(c.PullRequest.BranchPrefix) == "" {
		return prerrors.NewConfigError("pull_request.branch_prefix", "must not be empty")
	}
	if strings.ContainsAny(c.PullRequest.BranchPrefix, " ~^:?*[\\") {
		return prerrors.NewConfigError("pull_request.branch_prefix", "contains characters not allowed in git branch names")
	}

	if err := validateOneOf("pull_request.state", c.PullRequest.State, ValidStates); err != nil {
		return err
	}
	if err := validateOneOf("pull_request.sort", c.PullRequest.Sort, ValidSorts); err != nil {
		return err
	}
	if err := validateOneOf("pull_request.direction", c.PullRequest.Direction, ValidDirections); err != nil {
		return err
	}

	for i, rule := range c.PullRequest.Replacements {
		if _, err := regexp.Compile(rule.Pattern); err != nil {
			return prerrors.NewConfigErrorWithCause("pull_request.replacements",
				"invalid pattern at index "+strconv.Itoa(i), err)
		}
	}

	seen := make(map[string]bool, len(c.Hooks))
	for _, h := range c.Hooks {
		if h.Name == "" {
			return prerrors.NewConfigError("hooks", "hook entry without a name")
		}
		if seen[h.Name] {
			return prerrors.NewConfigError("hooks", "duplicate hook entry "+h.Name)
		}
		seen[h.Name] = true
	}

	return nil
}

// Hook returns the hook configuration registered for name, if any.
func (c *Config) Hook(name string) (HookConfig, bool) {
	for _, h := range c.Hooks {
		if h.Name == name {
			return h, true
		}
	}
	return HookConfig{}, false
}

func validateOneOf(field, value string, allowed []string) error {
	if value == "" {
		return nil // Empty is allowed, will use default
	}
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return prerrors.NewConfigError(field, "must be one of: "+strings.Join(allowed, ", "))
}

// setDefaults sets default configuration values
func setDefaults() {
	// GitHub defaults
	viper.SetDefault("github.auth_method", "")
	viper.SetDefault("github.client_id", "")
	viper.SetDefault("github.token", "")
	viper.SetDefault("github.host", "github.com")
	viper.SetDefault("github.use_ssh", false)

	// Git defaults
	viper.SetDefault("git.remote", "origin")
	viper.SetDefault("git.base_branch", "main")

	// Pull request defaults
	viper.SetDefault("pull_request.branch_prefix", "pr-")
	viper.SetDefault("pull_request.state", "open")
	viper.SetDefault("pull_request.sort", "created")
	viper.SetDefault("pull_request.direction", "desc")

	// Log defaults
	viper.SetDefault("log.level", "info")
}
