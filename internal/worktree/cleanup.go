package worktree

import (
	"context"
	"fmt"
	"time"

	"github.com/wbnns/cw/internal/git"
	"github.com/wbnns/cw/internal/github"
	"github.com/wbnns/cw/internal/logger"
	"github.com/wbnns/cw/internal/registry"
)

// StaleAge is how old an unmerged worktree with no open PR must be
// before cleanup considers it abandoned.
const StaleAge = 7 * 24 * time.Hour

// Candidate is one worktree cleanup would remove, with the reason it
// qualifies.
type Candidate struct {
	Record registry.Record
	Reason string
}

// CleanupOptions control a cleanup batch.
type CleanupOptions struct {
	// DryRun reports the plan without removing anything.
	DryRun bool
	// Force removes without prompting. Dirty worktrees are skipped.
	Force bool
	// Auto marks the hook-driven invocation: like Force, but silent to
	// the terminal.
	Auto bool
	// Confirm asks the user about one removal. Nil rejects, so a batch
	// without a prompt wired in never removes interactively.
	Confirm func(title, description string) bool
}

// CleanupFailure is one failed removal inside a batch.
type CleanupFailure struct {
	Branch string
	Err    error
}

// CleanupSummary aggregates one cleanup batch.
type CleanupSummary struct {
	// Candidates is the plan the batch worked through.
	Candidates []Candidate
	// Removed lists branches whose worktrees were deleted.
	Removed []string
	// SkippedDirty lists dirty worktrees passed over under force/auto.
	SkippedDirty []string
	// Declined lists worktrees the user kept during confirmation.
	Declined []string
	// Failed lists removals that errored. Failures never abort the
	// batch.
	Failed []CleanupFailure
}

// Plan lists the worktrees cleanup would remove and why. A worktree
// qualifies when its branch is finished (merged locally, PR merged, or
// PR closed), or when it has gone stale: older than StaleAge with no
// open PR vouching for it.
func (m *Manager) Plan(ctx context.Context, repo *git.Repo) ([]Candidate, error) {
	records, err := m.reg.List(ctx, repo, registry.Options{PRStatus: true})
	if err != nil {
		return nil, err
	}

	now := m.now()
	var candidates []Candidate
	for _, rec := range records {
		if reason, ok := eligible(&rec, repo.DefaultBranch, now); ok {
			candidates = append(candidates, Candidate{Record: rec, Reason: reason})
		}
	}
	return candidates, nil
}

// eligible decides whether one record is cleanup-worthy and names the
// reason shown to the user.
func eligible(rec *registry.Record, defaultBranch string, now time.Time) (string, bool) {
	switch rec.MergeState {
	case registry.StateMergedLocally:
		return fmt.Sprintf("merged into %s", defaultBranch), true
	case registry.StatePRMerged:
		return fmt.Sprintf("PR #%d merged", rec.PR.Number), true
	case registry.StatePRClosed:
		return fmt.Sprintf("PR #%d closed", rec.PR.Number), true
	}

	age := rec.Age(now)
	if age <= StaleAge {
		return "", false
	}
	if rec.PR != nil && rec.PR.State == github.StateOpen {
		return "", false
	}
	return fmt.Sprintf("no activity for %d days, no open PR", int(age.Hours()/24)), true
}

// Cleanup plans and removes finished worktrees. Per-item failures are
// collected into the summary; the batch never aborts early except on
// context cancellation, and removals completed before a cancellation
// stay removed.
func (m *Manager) Cleanup(ctx context.Context, repo *git.Repo, opts CleanupOptions) (*CleanupSummary, error) {
	candidates, err := m.Plan(ctx, repo)
	if err != nil {
		return nil, err
	}

	summary := &CleanupSummary{Candidates: candidates}
	if opts.DryRun {
		return summary, nil
	}

	for i := range candidates {
		cand := &candidates[i]
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		switch m.approveRemoval(cand, opts) {
		case removalApproved:
		case removalSkippedDirty:
			summary.SkippedDirty = append(summary.SkippedDirty, cand.Record.Branch)
			continue
		case removalDeclined:
			summary.Declined = append(summary.Declined, cand.Record.Branch)
			continue
		}

		deleteBranch := cand.Record.MergeState.Merged() || cand.Record.Generated()
		if err := m.removeRecord(ctx, repo, &cand.Record, deleteBranch, true); err != nil {
			logger.Error("cleanup: failed to remove %s: %v", cand.Record.Branch, err)
			summary.Failed = append(summary.Failed, CleanupFailure{Branch: cand.Record.Branch, Err: err})
			continue
		}
		summary.Removed = append(summary.Removed, cand.Record.Branch)
	}
	return summary, nil
}

type removalDecision int

const (
	removalApproved removalDecision = iota
	removalSkippedDirty
	removalDeclined
)

// approveRemoval applies the dirty gate and interactive confirmation
// for one candidate. Cleanup never force-removes a dirty worktree on
// its own: under force/auto dirty records are skipped, interactively
// they need an extra confirmation on top of the usual one.
func (m *Manager) approveRemoval(cand *Candidate, opts CleanupOptions) removalDecision {
	rec := &cand.Record
	if rec.Dirty {
		if opts.Force || opts.Auto {
			logger.Warn("cleanup: skipping %s (uncommitted changes)", rec.Branch)
			return removalSkippedDirty
		}
		if !confirm(opts, fmt.Sprintf("Worktree %s has uncommitted changes. Remove anyway?", rec.Branch), cand.Reason) {
			return removalDeclined
		}
	}

	if opts.Force || opts.Auto {
		return removalApproved
	}
	if !confirm(opts, fmt.Sprintf("Remove worktree for %q?", rec.Branch), fmt.Sprintf("%s (%s)", rec.Path, cand.Reason)) {
		return removalDeclined
	}
	return removalApproved
}

func confirm(opts CleanupOptions, title, description string) bool {
	return opts.Confirm != nil && opts.Confirm(title, description)
}
