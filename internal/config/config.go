// Package config loads and validates the cw configuration file.
// Configuration is read once per invocation and passed explicitly into
// each component; there is no ambient mutable state.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/wbnns/cw/internal/errors"
)

const (
	// DefaultFileName is the config file looked up in the user's home directory.
	DefaultFileName = ".claude-worktrees.toml"
	// EnvConfigPath overrides the config file location. Used by tests.
	EnvConfigPath = "CW_CONFIG"
)

// Strategy selects how dependency directories are provisioned into a
// new worktree.
type Strategy string

const (
	// StrategySymlink links dependency directories from the main repo.
	StrategySymlink Strategy = "symlink"
	// StrategyCopy clones dependency directories (copy-on-write where supported).
	StrategyCopy Strategy = "copy"
	// StrategyCustom runs a user-configured hook command instead.
	StrategyCustom Strategy = "custom"
)

// Config is the full cw configuration. Zero values are never used
// directly; start from Default and decode the user file over it.
type Config struct {
	Global GlobalConfig `toml:"global"`
	Deps   DepsConfig   `toml:"deps"`
	GitHub GitHubConfig `toml:"github"`
	Agent  AgentConfig  `toml:"agent"`
}

// GlobalConfig holds pool-wide settings.
type GlobalConfig struct {
	// WorktreeBase is where worktrees are stored, one subdirectory per
	// repository. Supports a leading "~".
	WorktreeBase string `toml:"worktree_base"`
	// AutoCleanup gates the hidden `cw cleanup --auto` invocation used
	// by the post-merge hook. Explicit cleanup ignores it.
	AutoCleanup bool `toml:"auto_cleanup"`
}

// DepsConfig controls dependency provisioning for new worktrees.
type DepsConfig struct {
	Strategy Strategy `toml:"strategy"`
	// PostCreateHook is the command run by the custom strategy.
	// Required iff Strategy is "custom".
	PostCreateHook string `toml:"post_create_hook"`
	// ExtraDirs are appended to the built-in dependency directory list.
	ExtraDirs []string `toml:"extra_dirs"`
}

// GitHubConfig controls remote PR state queries.
type GitHubConfig struct {
	CheckPRStatus bool `toml:"check_pr_status"`
}

// AgentConfig identifies the coding-agent executable to launch.
type AgentConfig struct {
	Command string `toml:"command"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Global: GlobalConfig{
			WorktreeBase: "~/.claude-worktrees",
			AutoCleanup:  true,
		},
		Deps: DepsConfig{
			Strategy: StrategySymlink,
		},
		GitHub: GitHubConfig{
			CheckPRStatus: true,
		},
		Agent: AgentConfig{
			Command: "claude",
		},
	}
}

// Path returns the config file location: $CW_CONFIG when set, otherwise
// ~/.claude-worktrees.toml.
func Path() (string, error) {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot locate home directory: %w", err)
	}
	return filepath.Join(home, DefaultFileName), nil
}

// Load reads the config file if present and applies it over defaults.
// A missing file yields the defaults; a malformed or invalid file is an
// error.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, errors.E(errors.Op("config.Load"), errors.KindConfig, err)
	}
	return LoadFrom(path)
}

// LoadFrom reads the config file at path, applying it over defaults.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, errors.ConfigLoadFailed(path, err)
	}

	// Decoding over the defaults struct leaves absent keys at their
	// default values.
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, errors.ConfigLoadFailed(path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enum fields and cross-field requirements.
func (c *Config) Validate() error {
	switch c.Deps.Strategy {
	case StrategySymlink, StrategyCopy, StrategyCustom:
	default:
		return errors.ConfigInvalid(fmt.Sprintf("unknown deps.strategy %q (expected symlink, copy, or custom)", c.Deps.Strategy))
	}
	if c.Deps.Strategy == StrategyCustom && strings.TrimSpace(c.Deps.PostCreateHook) == "" {
		return errors.ConfigInvalid("deps.post_create_hook is required when deps.strategy = \"custom\"")
	}
	if strings.TrimSpace(c.Global.WorktreeBase) == "" {
		return errors.ConfigInvalid("global.worktree_base must not be empty")
	}
	if strings.TrimSpace(c.Agent.Command) == "" {
		return errors.ConfigInvalid("agent.command must not be empty")
	}
	return nil
}

// WorktreeBaseDir returns Global.WorktreeBase with a leading "~"
// expanded to the user's home directory.
func (c *Config) WorktreeBaseDir() (string, error) {
	return expandHome(c.Global.WorktreeBase)
}

// RepoPoolDir returns the directory holding all worktrees for the named
// repository.
func (c *Config) RepoPoolDir(repoName string) (string, error) {
	base, err := c.WorktreeBaseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, repoName), nil
}

func expandHome(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot expand %q: %w", path, err)
		}
		if path == "~" {
			return home, nil
		}
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}

// defaultFileContent is written by `cw init` when no config file exists.
const defaultFileContent = `# Claude Worktrees Configuration

[global]
worktree_base = "~/.claude-worktrees"  # Where worktrees are stored
auto_cleanup = true                    # Allow the post-merge hook to run cleanup

[deps]
strategy = "symlink"  # symlink | copy | custom
# Strategies:
#   symlink - Symlink node_modules, .venv, etc. from the main repo (fast, shared)
#   copy    - Copy-on-write clone of dependency dirs (isolated)
#   custom  - Run post_create_hook instead (full control)
#
# For the custom strategy, set post_create_hook:
# post_create_hook = "pnpm install --frozen-lockfile"
#
# Extra directories to provision on top of the built-in list:
# extra_dirs = ["target"]

[github]
check_pr_status = true  # Use the gh CLI to check whether a PR is merged

[agent]
command = "claude"  # Executable launched inside new worktrees
`

// WriteDefault creates the default config file if it does not already
// exist. It reports whether a file was created.
func WriteDefault() (bool, error) {
	path, err := Path()
	if err != nil {
		return false, errors.E(errors.Op("config.WriteDefault"), errors.KindConfig, err)
	}
	return WriteDefaultTo(path)
}

// WriteDefaultTo creates the default config file at path if it does not
// already exist.
func WriteDefaultTo(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, errors.E(errors.Op("config.WriteDefault"), errors.KindIO, err)
	}
	if err := os.WriteFile(path, []byte(defaultFileContent), 0644); err != nil {
		return false, errors.E(errors.Op("config.WriteDefault"), errors.KindIO, fmt.Sprintf("failed to write %s", path), err)
	}
	return true, nil
}
