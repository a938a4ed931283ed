// Package git wraps the git CLI operations cw needs: repository
// discovery, worktree lifecycle, and branch/status queries. All
// commands run through a CommandExecutor so tests can substitute a
// mock.
package git

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/wbnns/cw/internal/errors"
	cwexec "github.com/wbnns/cw/internal/exec"
	"github.com/wbnns/cw/internal/logger"
)

// Repo identifies the repository cw operates on. Root is always the
// main working tree, even when cw is invoked from inside a linked
// worktree.
type Repo struct {
	Root          string
	Name          string
	DefaultBranch string
}

// GitService executes git operations for a repository.
type GitService struct {
	executor cwexec.CommandExecutor
}

// NewGitService creates a GitService backed by real command execution.
func NewGitService() *GitService {
	return &GitService{executor: cwexec.NewRealExecutor()}
}

// NewGitServiceWithExecutor creates a GitService with a custom executor.
// This is primarily used for testing.
func NewGitServiceWithExecutor(executor cwexec.CommandExecutor) *GitService {
	return &GitService{executor: executor}
}

// Executor returns the service's command executor so collaborating
// components can share it.
func (s *GitService) Executor() cwexec.CommandExecutor {
	return s.executor
}

// ResolveRepo discovers the repository containing dir. The main working
// tree is the first entry of `git worktree list`, which holds even when
// dir is itself a linked worktree.
func (s *GitService) ResolveRepo(ctx context.Context, dir string) (*Repo, error) {
	output, err := s.executor.Output(ctx, dir, "git", "worktree", "list", "--porcelain")
	if err != nil {
		return nil, errors.GitNotRepo(dir)
	}

	worktrees := ParseWorktreeList(output)
	if len(worktrees) == 0 {
		return nil, errors.GitNotRepo(dir)
	}

	root := worktrees[0].Path
	repo := &Repo{
		Root:          root,
		Name:          filepath.Base(root),
		DefaultBranch: s.GetDefaultBranch(ctx, root),
	}
	logger.Debug("git: resolved repo root=%s default=%s", repo.Root, repo.DefaultBranch)
	return repo, nil
}

// GetDefaultBranch returns the default branch name for the repo.
// It prefers origin's HEAD reference, then falls back to a local main
// or master branch, and finally to "main".
func (s *GitService) GetDefaultBranch(ctx context.Context, repoPath string) string {
	output, err := s.executor.Output(ctx, repoPath, "git", "symbolic-ref", "refs/remotes/origin/HEAD")
	if err == nil {
		ref := strings.TrimSpace(string(output))
		if strings.HasPrefix(ref, "refs/remotes/origin/") {
			return strings.TrimPrefix(ref, "refs/remotes/origin/")
		}
	}

	if _, _, err := s.executor.Run(ctx, repoPath, "git", "rev-parse", "--verify", "--quiet", "refs/heads/main"); err == nil {
		return "main"
	}

	if _, _, err := s.executor.Run(ctx, repoPath, "git", "rev-parse", "--verify", "--quiet", "refs/heads/master"); err == nil {
		return "master"
	}

	return "main"
}

// HasRemoteOrigin checks if the repository has a remote named "origin".
func (s *GitService) HasRemoteOrigin(ctx context.Context, repoPath string) bool {
	if insp, err := OpenInspector(repoPath); err == nil {
		return insp.HasOrigin()
	}
	_, _, err := s.executor.Run(ctx, repoPath, "git", "remote", "get-url", "origin")
	return err == nil
}

// BranchExists checks if a local branch exists in the repo. Ref reads
// go through go-git in-process; the CLI answers only when the
// repository cannot be opened directly.
func (s *GitService) BranchExists(ctx context.Context, repoPath, branch string) bool {
	if insp, err := OpenInspector(repoPath); err == nil {
		return insp.BranchExists(branch)
	}
	_, _, err := s.executor.Run(ctx, repoPath, "git", "rev-parse", "--verify", "--quiet", "refs/heads/"+branch)
	return err == nil
}

// RemoteBranchExists checks if the branch exists on origin, going by
// the local remote-tracking refs.
func (s *GitService) RemoteBranchExists(ctx context.Context, repoPath, branch string) bool {
	if insp, err := OpenInspector(repoPath); err == nil {
		return insp.RemoteBranchExists(branch)
	}
	_, _, err := s.executor.Run(ctx, repoPath, "git", "rev-parse", "--verify", "--quiet", "refs/remotes/origin/"+branch)
	return err == nil
}

// RevisionExists checks whether a revision (branch, tag, or commit)
// resolves in the repo.
func (s *GitService) RevisionExists(ctx context.Context, repoPath, revision string) bool {
	if insp, err := OpenInspector(repoPath); err == nil {
		return insp.RevisionExists(revision)
	}
	_, _, err := s.executor.Run(ctx, repoPath, "git", "rev-parse", "--verify", "--quiet", revision+"^{commit}")
	return err == nil
}

// Pull fast-forwards the current branch from its upstream. It returns
// the combined output for display; callers treat failure as advisory.
func (s *GitService) Pull(ctx context.Context, repoPath string) (string, error) {
	output, err := s.executor.CombinedOutput(ctx, repoPath, "git", "pull", "--ff-only")
	if err != nil {
		return string(output), errors.E(errors.Op("git.Pull"), errors.KindGit, strings.TrimSpace(string(output)), err)
	}
	return string(output), nil
}

// MergedBranches returns the set of local branches already merged into
// target.
func (s *GitService) MergedBranches(ctx context.Context, repoPath, target string) (map[string]bool, error) {
	output, err := s.executor.Output(ctx, repoPath, "git", "branch", "--merged", target, "--format=%(refname:short)")
	if err != nil {
		return nil, errors.E(errors.Op("git.MergedBranches"), errors.KindGit, fmt.Sprintf("failed to list branches merged into %s", target), err)
	}

	merged := make(map[string]bool)
	for _, line := range strings.Split(string(output), "\n") {
		branch := strings.TrimSpace(line)
		if branch != "" {
			merged[branch] = true
		}
	}
	return merged, nil
}

// DeleteBranch force-deletes a local branch.
func (s *GitService) DeleteBranch(ctx context.Context, repoPath, branch string) error {
	output, err := s.executor.CombinedOutput(ctx, repoPath, "git", "branch", "-D", branch)
	if err != nil {
		return errors.E(errors.Op("git.DeleteBranch"), errors.KindGit, fmt.Sprintf("failed to delete branch %s: %s", branch, strings.TrimSpace(string(output))), err)
	}
	return nil
}

// IsDirty reports whether the worktree at path has uncommitted changes,
// including untracked files. Errors are reported as clean so a broken
// checkout never blocks listing.
func (s *GitService) IsDirty(ctx context.Context, worktreePath string) (bool, error) {
	output, err := s.executor.Output(ctx, worktreePath, "git", "status", "--porcelain")
	if err != nil {
		return false, errors.E(errors.Op("git.IsDirty"), errors.KindGit, err)
	}
	return len(strings.TrimSpace(string(output))) > 0, nil
}

// DiskUsage returns the size in bytes of the tree rooted at path,
// measured with `du -sk`.
func (s *GitService) DiskUsage(ctx context.Context, path string) (int64, error) {
	output, err := s.executor.Output(ctx, filepath.Dir(path), "du", "-sk", path)
	if err != nil {
		return 0, errors.E(errors.Op("git.DiskUsage"), errors.KindIO, err)
	}
	fields := strings.Fields(string(output))
	if len(fields) == 0 {
		return 0, errors.E(errors.Op("git.DiskUsage"), errors.KindIO, "empty du output")
	}
	kb, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return 0, errors.E(errors.Op("git.DiskUsage"), errors.KindIO, fmt.Sprintf("unparseable du output %q", fields[0]), err)
	}
	return kb * 1024, nil
}
