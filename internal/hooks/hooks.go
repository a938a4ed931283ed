// Package hooks installs the git hook that triggers automatic cleanup.
// A post-merge hook (which also fires after `git pull`) runs
// `cw cleanup --auto`; the marker comment identifies the managed
// section so install stays idempotent and uninstall never touches a
// user's own hook lines.
package hooks

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/wbnns/cw/internal/errors"
	cwexec "github.com/wbnns/cw/internal/exec"
	"github.com/wbnns/cw/internal/logger"
)

// HookName is the git hook cw manages.
const HookName = "post-merge"

// marker identifies hook sections managed by cw.
const marker = "Claude Worktrees"

// managedSection is the hook body cw installs. The trailing `fi` closes
// the block that uninstall strips.
const managedSection = `# Claude Worktrees - Automatic cleanup hook
# Runs after 'git merge' (including pull) to remove merged worktrees.
if command -v cw >/dev/null 2>&1; then
    cw cleanup --auto 2>/dev/null || true
fi
`

const shebang = "#!/bin/bash"

// InstallResult reports what Install did.
type InstallResult int

const (
	// Installed means a fresh hook file was written.
	Installed InstallResult = iota
	// AlreadyInstalled means the managed section was already present.
	AlreadyInstalled
	// Appended means the section was added to an existing foreign hook.
	Appended
)

func (r InstallResult) String() string {
	switch r {
	case AlreadyInstalled:
		return "post-merge hook already installed"
	case Appended:
		return "added cleanup to existing post-merge hook"
	default:
		return "installed post-merge hook"
	}
}

// UninstallResult reports what Uninstall did.
type UninstallResult int

const (
	// RemovedFile means the hook file was deleted entirely.
	RemovedFile UninstallResult = iota
	// RemovedSection means the managed section was stripped and the
	// rest of the hook kept.
	RemovedSection
	// NotPresent means there was no hook file.
	NotPresent
	// NotManaged means a hook exists but cw does not own any of it.
	NotManaged
)

func (r UninstallResult) String() string {
	switch r {
	case RemovedSection:
		return "removed cleanup from post-merge hook"
	case NotPresent:
		return "no post-merge hook installed"
	case NotManaged:
		return "post-merge hook is not managed by cw, leaving it alone"
	default:
		return "removed post-merge hook"
	}
}

// Service manages the repository's cleanup hook.
type Service struct {
	executor cwexec.CommandExecutor
}

// NewService creates a Service backed by real command execution.
func NewService() *Service {
	return &Service{executor: cwexec.NewRealExecutor()}
}

// NewServiceWithExecutor creates a Service with a custom executor.
// This is primarily used for testing.
func NewServiceWithExecutor(executor cwexec.CommandExecutor) *Service {
	return &Service{executor: executor}
}

// HooksDir resolves the hooks directory for the repository at repoPath.
// `git rev-parse --git-path hooks` honors core.hooksPath and resolves
// to the shared hooks of the main repository even from inside a linked
// worktree.
func (s *Service) HooksDir(ctx context.Context, repoPath string) (string, error) {
	output, err := s.executor.Output(ctx, repoPath, "git", "rev-parse", "--git-path", "hooks")
	if err != nil {
		return "", errors.E(errors.Op("hooks.HooksDir"), errors.KindGit, "cannot resolve hooks directory", err)
	}
	dir := strings.TrimSpace(string(output))
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(repoPath, dir)
	}
	return dir, nil
}

// Install writes the post-merge cleanup hook. An existing foreign hook
// gets the managed section appended; a hook that already carries the
// marker is left untouched.
func (s *Service) Install(ctx context.Context, repoPath string) (InstallResult, error) {
	const op errors.Op = "hooks.Install"

	dir, err := s.HooksDir(ctx, repoPath)
	if err != nil {
		return Installed, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return Installed, errors.E(op, errors.KindIO, err)
	}

	path := filepath.Join(dir, HookName)
	existing, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return Installed, errors.E(op, errors.KindIO, err)
		}
		content := shebang + "\n" + managedSection
		if err := os.WriteFile(path, []byte(content), 0755); err != nil {
			return Installed, errors.E(op, errors.KindIO, err)
		}
		logger.Info("hooks: installed %s hook at %s", HookName, path)
		return Installed, nil
	}

	if strings.Contains(string(existing), marker) {
		return AlreadyInstalled, nil
	}

	content := string(existing)
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	content += "\n" + managedSection
	if err := os.WriteFile(path, []byte(content), 0755); err != nil {
		return Appended, errors.E(op, errors.KindIO, err)
	}
	logger.Info("hooks: appended cleanup section to existing %s hook", HookName)
	return Appended, nil
}

// Uninstall strips the managed section from the post-merge hook,
// deleting the file when nothing else remains.
func (s *Service) Uninstall(ctx context.Context, repoPath string) (UninstallResult, error) {
	const op errors.Op = "hooks.Uninstall"

	dir, err := s.HooksDir(ctx, repoPath)
	if err != nil {
		return NotPresent, err
	}

	path := filepath.Join(dir, HookName)
	existing, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NotPresent, nil
		}
		return NotPresent, errors.E(op, errors.KindIO, err)
	}

	if !strings.Contains(string(existing), marker) {
		return NotManaged, nil
	}

	remainder := stripManaged(string(existing))
	if remainder == "" || remainder == shebang {
		if err := os.Remove(path); err != nil {
			return RemovedFile, errors.E(op, errors.KindIO, err)
		}
		logger.Info("hooks: removed %s hook file", HookName)
		return RemovedFile, nil
	}

	if err := os.WriteFile(path, []byte(remainder+"\n"), 0755); err != nil {
		return RemovedSection, errors.E(op, errors.KindIO, err)
	}
	logger.Info("hooks: stripped managed section from %s hook", HookName)
	return RemovedSection, nil
}

// Installed reports whether the managed section is present in the
// repository's post-merge hook.
func (s *Service) Installed(ctx context.Context, repoPath string) bool {
	dir, err := s.HooksDir(ctx, repoPath)
	if err != nil {
		return false
	}
	content, err := os.ReadFile(filepath.Join(dir, HookName))
	if err != nil {
		return false
	}
	return strings.Contains(string(content), marker)
}

// stripManaged removes the managed section: from the marker comment
// through the closing `fi`, plus the blank line that precedes it.
func stripManaged(content string) string {
	lines := strings.Split(content, "\n")
	var kept []string
	inSection := false

	for _, line := range lines {
		if !inSection && strings.Contains(line, marker) {
			inSection = true
			// Drop the blank separator left above the section.
			if n := len(kept); n > 0 && strings.TrimSpace(kept[n-1]) == "" {
				kept = kept[:n-1]
			}
			continue
		}
		if inSection {
			if strings.TrimSpace(line) == "fi" {
				inSection = false
			}
			continue
		}
		kept = append(kept, line)
	}

	return strings.TrimRight(strings.Join(kept, "\n"), "\n")
}
