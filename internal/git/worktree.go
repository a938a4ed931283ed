package git

import (
	"context"
	"fmt"
	"strings"

	"github.com/wbnns/cw/internal/errors"
	"github.com/wbnns/cw/internal/logger"
)

// WorktreeInfo describes one entry of `git worktree list --porcelain`.
type WorktreeInfo struct {
	Path     string
	Head     string
	Branch   string
	Bare     bool
	Detached bool
}

// ParseWorktreeList parses `git worktree list --porcelain` output.
// Entries are blocks of attribute lines separated by blank lines; the
// main working tree is always the first entry.
func ParseWorktreeList(output []byte) []WorktreeInfo {
	var worktrees []WorktreeInfo
	var current *WorktreeInfo

	flush := func() {
		if current != nil {
			worktrees = append(worktrees, *current)
			current = nil
		}
	}

	for _, line := range strings.Split(string(output), "\n") {
		line = strings.TrimRight(line, "\r")
		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, "worktree "):
			flush()
			current = &WorktreeInfo{Path: strings.TrimPrefix(line, "worktree ")}
		case current == nil:
			// Attribute line without a preceding worktree line; skip.
		case strings.HasPrefix(line, "HEAD "):
			current.Head = strings.TrimPrefix(line, "HEAD ")
		case strings.HasPrefix(line, "branch "):
			ref := strings.TrimPrefix(line, "branch ")
			current.Branch = strings.TrimPrefix(ref, "refs/heads/")
		case line == "bare":
			current.Bare = true
		case line == "detached":
			current.Detached = true
		}
	}
	flush()
	return worktrees
}

// ListWorktrees returns all worktrees attached to the repo, main
// working tree first.
func (s *GitService) ListWorktrees(ctx context.Context, repoPath string) ([]WorktreeInfo, error) {
	output, err := s.executor.Output(ctx, repoPath, "git", "worktree", "list", "--porcelain")
	if err != nil {
		return nil, errors.E(errors.Op("git.ListWorktrees"), errors.KindGit, "failed to list worktrees", err)
	}
	return ParseWorktreeList(output), nil
}

// AddWorktree creates a new worktree at worktreePath with a new branch
// starting from startPoint. An empty startPoint branches from HEAD.
func (s *GitService) AddWorktree(ctx context.Context, repoPath, worktreePath, branch, startPoint string) error {
	args := []string{"worktree", "add", "-b", branch, worktreePath}
	if startPoint != "" {
		args = append(args, startPoint)
	}

	logger.Debug("git: adding worktree branch=%s path=%s start=%q", branch, worktreePath, startPoint)
	output, err := s.executor.CombinedOutput(ctx, repoPath, "git", args...)
	if err != nil {
		return errors.GitWorktreeFailed(branch, fmt.Errorf("%s: %w", strings.TrimSpace(string(output)), err))
	}
	return nil
}

// AttachWorktree creates a worktree at worktreePath checking out an
// existing branch. With track set, the branch is first created from
// origin/<branch> with upstream tracking.
func (s *GitService) AttachWorktree(ctx context.Context, repoPath, worktreePath, branch string, track bool) error {
	args := []string{"worktree", "add"}
	if track {
		args = append(args, "--track", "-b", branch, worktreePath, "origin/"+branch)
	} else {
		args = append(args, worktreePath, branch)
	}

	logger.Debug("git: attaching worktree branch=%s path=%s track=%v", branch, worktreePath, track)
	output, err := s.executor.CombinedOutput(ctx, repoPath, "git", args...)
	if err != nil {
		return errors.GitWorktreeFailed(branch, fmt.Errorf("%s: %w", strings.TrimSpace(string(output)), err))
	}
	return nil
}

// RemoveWorktree detaches and deletes the worktree at worktreePath.
// With force set, uncommitted changes are discarded.
func (s *GitService) RemoveWorktree(ctx context.Context, repoPath, worktreePath string, force bool) error {
	args := []string{"worktree", "remove"}
	if force {
		args = append(args, "--force")
	}
	args = append(args, worktreePath)

	logger.Debug("git: removing worktree path=%s force=%v", worktreePath, force)
	output, err := s.executor.CombinedOutput(ctx, repoPath, "git", args...)
	if err != nil {
		return errors.E(errors.Op("git.RemoveWorktree"), errors.KindGit, fmt.Sprintf("failed to remove worktree %s: %s", worktreePath, strings.TrimSpace(string(output))), err)
	}
	return nil
}

// PruneWorktrees drops stale administrative entries for worktrees whose
// directories no longer exist.
func (s *GitService) PruneWorktrees(ctx context.Context, repoPath string) error {
	_, _, err := s.executor.Run(ctx, repoPath, "git", "worktree", "prune")
	if err != nil {
		return errors.E(errors.Op("git.PruneWorktrees"), errors.KindGit, err)
	}
	return nil
}

// FetchOrigin fetches the latest changes from origin. A repo without an
// origin remote or an unreachable network is not an error; cw keeps
// working offline.
func (s *GitService) FetchOrigin(ctx context.Context, repoPath string) error {
	if !s.HasRemoteOrigin(ctx, repoPath) {
		logger.Debug("git: no origin remote, skipping fetch")
		return nil
	}

	output, err := s.executor.CombinedOutput(ctx, repoPath, "git", "fetch", "origin")
	if err != nil {
		logger.Warn("git: fetch from origin failed: %s", strings.TrimSpace(string(output)))
		return nil
	}
	return nil
}
