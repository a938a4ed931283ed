// Package deps provisions dependency directories and untracked config
// files into freshly created worktrees, so an agent can build and run
// code without reinstalling packages per worktree.
package deps

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/wbnns/cw/internal/config"
	"github.com/wbnns/cw/internal/errors"
	cwexec "github.com/wbnns/cw/internal/exec"
	"github.com/wbnns/cw/internal/logger"
)

// DefaultDirs are the dependency directories provisioned into new
// worktrees when they exist in the main repo. Ordered roughly by
// ecosystem: JavaScript, Ruby, Python, Go/Elixir, iOS, JVM.
var DefaultDirs = []string{
	"node_modules",
	".pnpm-store",
	".yarn/cache",
	"vendor/bundle",
	".bundle",
	".venv",
	"venv",
	"env",
	"vendor",
	"deps",
	"Pods",
	".gradle",
}

// DefaultDotfiles are untracked configuration files provisioned into
// new worktrees after the directories.
var DefaultDotfiles = []string{
	".env",
	".env.local",
	".envrc",
	".tool-versions",
	".npmrc",
}

// Spec lists what to provision for one worktree.
type Spec struct {
	Dirs     []string
	Dotfiles []string
}

// NewSpec returns the default provisioning spec with extraDirs
// appended. Duplicates are dropped.
func NewSpec(extraDirs []string) Spec {
	seen := make(map[string]bool, len(DefaultDirs)+len(extraDirs))
	dirs := make([]string, 0, len(DefaultDirs)+len(extraDirs))
	for _, d := range DefaultDirs {
		if !seen[d] {
			seen[d] = true
			dirs = append(dirs, d)
		}
	}
	for _, d := range extraDirs {
		d = strings.TrimSpace(d)
		if d != "" && !seen[d] {
			seen[d] = true
			dirs = append(dirs, d)
		}
	}
	return Spec{Dirs: dirs, Dotfiles: DefaultDotfiles}
}

// Result reports what Provision actually did.
type Result struct {
	// Provisioned lists dependency directories linked or copied.
	Provisioned []string
	// Dotfiles lists config files linked or copied.
	Dotfiles []string
	// Skipped lists entries that were already provisioned.
	Skipped []string
	// HookRan is true when the custom post-create hook executed.
	HookRan bool
}

// Provisioner applies one provisioning strategy to new worktrees.
type Provisioner struct {
	executor cwexec.CommandExecutor
	strategy config.Strategy
	hook     string
}

// NewProvisioner creates a Provisioner from config, backed by real
// command execution.
func NewProvisioner(cfg *config.Config) *Provisioner {
	return NewProvisionerWithExecutor(cfg, cwexec.NewRealExecutor())
}

// NewProvisionerWithExecutor creates a Provisioner with a custom
// executor. This is primarily used for testing.
func NewProvisionerWithExecutor(cfg *config.Config, executor cwexec.CommandExecutor) *Provisioner {
	return &Provisioner{
		executor: executor,
		strategy: cfg.Deps.Strategy,
		hook:     cfg.Deps.PostCreateHook,
	}
}

// Provision sets up dependencies in worktreePath from the main repo at
// repoRoot. Entries already provisioned are left alone, so re-running
// is safe; an existing destination that is not ours is refused, never
// overwritten. Per-entry failures do not stop the remaining entries;
// they are aggregated into the returned error.
func (p *Provisioner) Provision(ctx context.Context, repoRoot, worktreePath string, spec Spec) (*Result, error) {
	const op errors.Op = "deps.Provision"
	result := &Result{}
	var failures []string

	switch p.strategy {
	case config.StrategyCustom:
		if err := p.runHook(ctx, worktreePath); err != nil {
			failures = append(failures, err.Error())
		} else {
			result.HookRan = true
		}
	default:
		for _, dir := range spec.Dirs {
			status, err := p.provisionDir(ctx, repoRoot, worktreePath, dir)
			if err != nil {
				failures = append(failures, fmt.Sprintf("%s: %v", dir, err))
				continue
			}
			switch status {
			case provisioned:
				result.Provisioned = append(result.Provisioned, dir)
			case skipped:
				result.Skipped = append(result.Skipped, dir)
			}
		}
	}

	// Dotfiles come after directories. The custom hook cannot know
	// which untracked files the repo relies on, so they are provisioned
	// under every strategy.
	for _, name := range spec.Dotfiles {
		status, err := p.provisionDotfile(repoRoot, worktreePath, name)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		switch status {
		case provisioned:
			result.Dotfiles = append(result.Dotfiles, name)
		case skipped:
			result.Skipped = append(result.Skipped, name)
		}
	}

	if len(failures) > 0 {
		return result, errors.E(op, errors.KindProvision, strings.Join(failures, "; "))
	}
	return result, nil
}

type entryStatus int

const (
	absent entryStatus = iota
	provisioned
	skipped
)

// provisionDir links or copies one dependency directory.
func (p *Provisioner) provisionDir(ctx context.Context, repoRoot, worktreePath, dir string) (entryStatus, error) {
	src := filepath.Join(repoRoot, filepath.FromSlash(dir))
	if _, err := os.Stat(src); err != nil {
		return absent, nil
	}
	absSrc, err := filepath.Abs(src)
	if err != nil {
		return absent, err
	}

	dst := filepath.Join(worktreePath, filepath.FromSlash(dir))
	if info, err := os.Lstat(dst); err == nil {
		if err := p.checkExisting(dst, info, absSrc); err != nil {
			return absent, err
		}
		logger.Debug("deps: %s already provisioned, skipping", dir)
		return skipped, nil
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return absent, err
	}

	if p.strategy == config.StrategyCopy {
		if err := p.copyTree(ctx, src, dst); err != nil {
			return absent, err
		}
	} else {
		if err := os.Symlink(absSrc, dst); err != nil {
			return absent, err
		}
	}
	return provisioned, nil
}

// checkExisting decides whether an existing destination is an
// acceptable no-op. Under the symlink strategy only a link back to the
// same source qualifies; anything else is refused so real data is never
// overwritten. Under the copy strategy any existing target counts as a
// finished copy.
func (p *Provisioner) checkExisting(dst string, info os.FileInfo, absSrc string) error {
	if p.strategy != config.StrategySymlink {
		return nil
	}
	if info.Mode()&os.ModeSymlink != 0 {
		target, err := os.Readlink(dst)
		if err == nil && target == absSrc {
			return nil
		}
		return fmt.Errorf("exists and links to %q, not the main repo", target)
	}
	return fmt.Errorf("already exists and is not a link to the main repo")
}

// provisionDotfile links (symlink strategy) or copies (copy and custom
// strategies) one untracked config file into the worktree.
func (p *Provisioner) provisionDotfile(repoRoot, worktreePath, name string) (entryStatus, error) {
	src := filepath.Join(repoRoot, name)
	info, err := os.Stat(src)
	if err != nil || info.IsDir() {
		return absent, nil
	}
	absSrc, err := filepath.Abs(src)
	if err != nil {
		return absent, err
	}

	dst := filepath.Join(worktreePath, name)
	if dstInfo, err := os.Lstat(dst); err == nil {
		if err := p.checkExisting(dst, dstInfo, absSrc); err != nil {
			return absent, err
		}
		return skipped, nil
	}

	if p.strategy == config.StrategySymlink {
		if err := os.Symlink(absSrc, dst); err != nil {
			return absent, err
		}
		return provisioned, nil
	}
	if err := copyFile(src, dst, info.Mode().Perm()); err != nil {
		return absent, err
	}
	return provisioned, nil
}

// copyTree copies src to dst, preferring a copy-on-write clone where
// the filesystem supports it (cp -c on APFS).
func (p *Provisioner) copyTree(ctx context.Context, src, dst string) error {
	if _, err := p.executor.CombinedOutput(ctx, filepath.Dir(src), "cp", "-cR", src, dst); err == nil {
		return nil
	}
	output, err := p.executor.CombinedOutput(ctx, filepath.Dir(src), "cp", "-R", src, dst)
	if err != nil {
		return fmt.Errorf("cp failed: %s: %w", strings.TrimSpace(string(output)), err)
	}
	return nil
}

// runHook executes the configured post-create hook inside the worktree.
func (p *Provisioner) runHook(ctx context.Context, worktreePath string) error {
	logger.Debug("deps: running post-create hook: %s", p.hook)
	output, err := p.executor.CombinedOutput(ctx, worktreePath, "sh", "-c", p.hook)
	if err != nil {
		return fmt.Errorf("post-create hook failed: %s: %w", strings.TrimSpace(string(output)), err)
	}
	return nil
}

// copyFile copies one regular file, refusing to overwrite.
func copyFile(src, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		os.Remove(dst)
		return err
	}
	return nil
}

// CleanupLinks removes provisioned symlinks from a worktree ahead of
// its removal, so deleting the worktree can never reach into the main
// repo through a link. Real directories (copy strategy) are left for
// git to delete with the worktree.
func CleanupLinks(worktreePath string, spec Spec) error {
	var failures []string
	entries := make([]string, 0, len(spec.Dirs)+len(spec.Dotfiles))
	entries = append(entries, spec.Dirs...)
	entries = append(entries, spec.Dotfiles...)

	for _, entry := range entries {
		path := filepath.Join(worktreePath, filepath.FromSlash(entry))
		info, err := os.Lstat(path)
		if err != nil || info.Mode()&os.ModeSymlink == 0 {
			continue
		}
		if err := os.Remove(path); err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", entry, err))
		}
	}

	if len(failures) > 0 {
		return errors.E(errors.Op("deps.CleanupLinks"), errors.KindProvision, strings.Join(failures, "; "))
	}
	return nil
}
