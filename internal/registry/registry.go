// Package registry derives the authoritative set of managed worktree
// records for a repository. Nothing is persisted: every listing is
// rebuilt from `git worktree list`, classified against the local merge
// graph and (optionally) remote PR state.
package registry

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/wbnns/cw/internal/config"
	"github.com/wbnns/cw/internal/errors"
	"github.com/wbnns/cw/internal/git"
	"github.com/wbnns/cw/internal/github"
	"github.com/wbnns/cw/internal/logger"
	"github.com/wbnns/cw/internal/naming"
)

// MergeState classifies how finished a record's branch is.
type MergeState int

const (
	// StateUnknown means remote state could not be determined.
	StateUnknown MergeState = iota
	// StateUnmerged is an active branch with work not yet in the
	// default branch.
	StateUnmerged
	// StateMergedLocally means the branch is an ancestor of the default
	// branch.
	StateMergedLocally
	// StatePRMerged means the branch's pull request was merged.
	StatePRMerged
	// StatePRClosed means the branch's pull request was closed without
	// merging.
	StatePRClosed
)

// Merged reports whether the state means the branch's work landed in
// the default branch.
func (s MergeState) Merged() bool {
	return s == StateMergedLocally || s == StatePRMerged
}

// Finished reports whether the branch needs no further work: merged, or
// abandoned via a closed PR.
func (s MergeState) Finished() bool {
	return s.Merged() || s == StatePRClosed
}

func (s MergeState) String() string {
	switch s {
	case StateUnmerged:
		return "unmerged"
	case StateMergedLocally:
		return "merged"
	case StatePRMerged:
		return "pr-merged"
	case StatePRClosed:
		return "pr-closed"
	default:
		return "unknown"
	}
}

// Record is one managed worktree.
type Record struct {
	Branch         string
	Path           string
	Head           string
	CreatedAt      time.Time
	MergeState     MergeState
	Dirty          bool
	PR             *github.PullRequest
	PRQueryFailed  bool
	DiskUsageBytes int64
}

// Generated reports whether the record's branch was allocated by the
// tool rather than named by the user.
func (r *Record) Generated() bool {
	return naming.IsGenerated(r.Branch)
}

// Age returns how long ago the record was created, from now's
// perspective.
func (r *Record) Age(now time.Time) time.Duration {
	if r.CreatedAt.IsZero() {
		return 0
	}
	return now.Sub(r.CreatedAt)
}

// GitOps is the slice of git capability the registry consumes.
type GitOps interface {
	ListWorktrees(ctx context.Context, repoPath string) ([]git.WorktreeInfo, error)
	MergedBranches(ctx context.Context, repoPath, target string) (map[string]bool, error)
	IsDirty(ctx context.Context, worktreePath string) (bool, error)
	DiskUsage(ctx context.Context, path string) (int64, error)
}

// PRLister fetches pull request state keyed by head branch.
type PRLister interface {
	ListPRs(ctx context.Context, repoPath string) (map[string]github.PullRequest, error)
}

// Options tune what a listing computes.
type Options struct {
	// PRStatus enables the bulk pull request query.
	PRStatus bool
	// DiskUsage computes per-record disk usage. Off by default because
	// du over node_modules is the slowest part of a listing.
	DiskUsage bool
}

// Registry builds worktree records for one repository.
type Registry struct {
	git GitOps
	prs PRLister
	cfg *config.Config
	log *slog.Logger
}

// New creates a Registry over the given capabilities.
func New(gitOps GitOps, prs PRLister, cfg *config.Config) *Registry {
	return &Registry{
		git: gitOps,
		prs: prs,
		cfg: cfg,
		log: logger.WithComponent("registry"),
	}
}

// List returns the records for repo sorted by creation time, oldest
// first. Worktrees outside the repo's pool directory (including the
// main working tree) are not records.
func (r *Registry) List(ctx context.Context, repo *git.Repo, opts Options) ([]Record, error) {
	poolDir, err := r.cfg.RepoPoolDir(repo.Name)
	if err != nil {
		return nil, err
	}

	worktrees, err := r.git.ListWorktrees(ctx, repo.Root)
	if err != nil {
		return nil, err
	}

	merged := r.mergedSet(ctx, repo)
	prs, prFailed := r.prSet(ctx, repo, opts)

	var records []Record
	for _, wt := range worktrees {
		if wt.Bare || !underDir(poolDir, wt.Path) {
			continue
		}
		if wt.Detached || wt.Branch == "" {
			r.log.Debug("skipping detached worktree", "path", wt.Path)
			continue
		}

		rec := Record{
			Branch:    wt.Branch,
			Path:      wt.Path,
			Head:      wt.Head,
			CreatedAt: createdAt(wt.Branch, wt.Path),
		}
		rec.MergeState = classify(wt.Branch, merged, prs, prFailed, &rec)

		if dirty, err := r.git.IsDirty(ctx, wt.Path); err == nil {
			rec.Dirty = dirty
		} else {
			r.log.Debug("dirty check failed", "path", wt.Path, "error", err)
		}

		if opts.DiskUsage {
			if size, err := r.git.DiskUsage(ctx, wt.Path); err == nil {
				rec.DiskUsageBytes = size
			}
		}

		records = append(records, rec)
	}

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].Branch < records[j].Branch
		}
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
	r.log.Debug("listed worktrees", "repo", repo.Name, "count", len(records))
	return records, nil
}

// Find returns the record for branch, or a not-found error.
func (r *Registry) Find(ctx context.Context, repo *git.Repo, branch string) (*Record, error) {
	records, err := r.List(ctx, repo, Options{})
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].Branch == branch {
			return &records[i], nil
		}
	}
	return nil, errors.WorktreeNotFound(branch)
}

// mergedSet queries the local merge graph. Failure degrades to an empty
// set; classification then leans on PR state or stays Unmerged.
func (r *Registry) mergedSet(ctx context.Context, repo *git.Repo) map[string]bool {
	merged, err := r.git.MergedBranches(ctx, repo.Root, repo.DefaultBranch)
	if err != nil {
		r.log.Warn("merged-branch query failed", "error", err)
		return nil
	}
	return merged
}

// prSet runs the bulk PR query when enabled. The second return reports
// a failed query, which degrades affected records to Unknown instead of
// failing the listing.
func (r *Registry) prSet(ctx context.Context, repo *git.Repo, opts Options) (map[string]github.PullRequest, bool) {
	if !opts.PRStatus || !r.cfg.GitHub.CheckPRStatus || r.prs == nil {
		return nil, false
	}
	prs, err := r.prs.ListPRs(ctx, repo.Root)
	if err != nil {
		r.log.Warn("PR query failed, states degrade to unknown", "error", err)
		return nil, true
	}
	return prs, false
}

// classify settles a record's merge state. The local merge graph is
// ground truth: a locally-merged branch stays merged no matter what the
// remote says or whether it could be reached.
func classify(branch string, merged map[string]bool, prs map[string]github.PullRequest, prFailed bool, rec *Record) MergeState {
	state := StateUnmerged
	if merged[branch] {
		state = StateMergedLocally
	}

	if prFailed {
		rec.PRQueryFailed = true
		if state != StateMergedLocally {
			return StateUnknown
		}
		return state
	}

	if pr, ok := prs[branch]; ok {
		rec.PR = &pr
		if state == StateMergedLocally {
			return state
		}
		switch pr.State {
		case github.StateMerged:
			return StatePRMerged
		case github.StateClosed:
			return StatePRClosed
		}
	}
	return state
}

// createdAt recovers a record's creation time: generated names encode
// it, other worktrees fall back to the mtime of their .git entry.
func createdAt(branch, path string) time.Time {
	if ts, ok := naming.GeneratedTime(branch); ok {
		return ts
	}
	if info, err := os.Stat(filepath.Join(path, ".git")); err == nil {
		return info.ModTime()
	}
	if info, err := os.Stat(path); err == nil {
		return info.ModTime()
	}
	return time.Time{}
}

// underDir reports whether path sits inside dir.
func underDir(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && rel != "."
}
