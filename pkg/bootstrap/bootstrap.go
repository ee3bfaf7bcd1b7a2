// Package bootstrap wires viper to prflow's configuration sources before
// any command runs.
package bootstrap

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"

	"thoreinstein.com/prflow/pkg/config"
)

// RepoConfigName is the repository-local config file merged over the user config.
const RepoConfigName = ".prflow.toml"

// InitConfig reads the config file, the repository-local override and
// PRFLOW_* environment variables, then loads and validates the result.
func InitConfig(cfgFile string, logger *slog.Logger) (*config.Config, error) {
	if logger == nil {
		logger = slog.Default()
	}

	// Reset Viper state to avoid carrying over stale settings from previous loads.
	viper.Reset()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		dir, err := DefaultConfigDir()
		if err != nil {
			return nil, err
		}
		viper.AddConfigPath(dir)
		viper.SetConfigType("toml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("PRFLOW")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "failed to read config file")
		}
	} else {
		logger.Debug("using config file", "path", viper.ConfigFileUsed())
	}

	LoadRepoLocalConfig(logger)

	return config.Load()
}

// DefaultConfigDir returns ~/.config/prflow.
func DefaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to get home directory")
	}
	return filepath.Join(home, ".config", "prflow"), nil
}

// LoadRepoLocalConfig merges .prflow.toml from the git root and, when
// different, the current directory. Unreadable files are logged and skipped.
func LoadRepoLocalConfig(logger *slog.Logger) {
	var localConfigPaths []string

	if gitRoot, err := FindGitRoot(); err == nil && gitRoot != "" {
		localConfigPaths = append(localConfigPaths, filepath.Join(gitRoot, RepoConfigName))
		cwd, _ := os.Getwd()
		if cwd != gitRoot {
			localConfigPaths = append(localConfigPaths, RepoConfigName)
		}
	} else {
		localConfigPaths = append(localConfigPaths, RepoConfigName)
	}

	for _, configPath := range localConfigPaths {
		if _, err := os.Stat(configPath); err != nil {
			continue
		}

		localViper := viper.New()
		localViper.SetConfigFile(configPath)
		localViper.SetConfigType("toml")

		if err := localViper.ReadInConfig(); err != nil {
			logger.Warn("could not read repository config", "path", configPath, "error", err)
			continue
		}

		logger.Debug("using repository config", "path", configPath)

		if err := viper.MergeConfigMap(localViper.AllSettings()); err != nil {
			logger.Warn("could not merge repository config", "path", configPath, "error", err)
		}
	}
}

// FindGitRoot walks up from the working directory to the directory holding
// .git. It returns "" when no repository encloses the working directory.
func FindGitRoot() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	dir := cwd
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			if info.IsDir() || info.Mode().IsRegular() {
				return dir, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}
