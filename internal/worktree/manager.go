// Package worktree drives the lifecycle of managed worktrees: creating
// them, tearing them down, planning and running cleanup batches, and
// reopening existing ones. It orchestrates the git service, the
// registry, the dependency provisioner and the agent launcher; all
// output decisions stay with the caller.
package worktree

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wbnns/cw/internal/config"
	"github.com/wbnns/cw/internal/deps"
	"github.com/wbnns/cw/internal/errors"
	"github.com/wbnns/cw/internal/git"
	"github.com/wbnns/cw/internal/logger"
	"github.com/wbnns/cw/internal/naming"
	"github.com/wbnns/cw/internal/registry"
)

// Launcher starts the coding agent inside a worktree.
type Launcher interface {
	Available() bool
	Launch(ctx context.Context, dir string) error
}

// Manager drives worktree lifecycle operations for one repository.
type Manager struct {
	cfg       *config.Config
	git       *git.GitService
	reg       *registry.Registry
	prov      *deps.Provisioner
	launcher  Launcher
	allocator *naming.Allocator
	now       func() time.Time
}

// NewManager assembles a Manager over its collaborators.
func NewManager(cfg *config.Config, gitSvc *git.GitService, reg *registry.Registry, prov *deps.Provisioner, launcher Launcher) *Manager {
	return &Manager{
		cfg:       cfg,
		git:       gitSvc,
		reg:       reg,
		prov:      prov,
		launcher:  launcher,
		allocator: naming.NewAllocator(),
		now:       time.Now,
	}
}

// CreateOptions control Create.
type CreateOptions struct {
	// Branch is the explicit branch name. Empty allocates a generated
	// one, unless From is set.
	Branch string
	// From checks out an existing local or remote branch instead of
	// creating a new one.
	From string
	// SkipDeps skips dependency provisioning.
	SkipDeps bool
}

// CreateResult reports what Create did.
type CreateResult struct {
	// Record is the finalized registry record for the new worktree.
	Record registry.Record
	// UsedExisting is set when the requested branch already existed and
	// the worktree attached to it instead of branching.
	UsedExisting bool
	// TrackingRemote is set when From existed only on origin and a
	// local tracking branch was created.
	TrackingRemote bool
	// Provision describes what the provisioner did. Nil when skipped.
	Provision *deps.Result
	// ProvisionErr carries a degraded provisioning failure. The
	// worktree stays usable; callers warn.
	ProvisionErr error
}

// target is the resolved checkout plan for one Create call.
type target struct {
	branch string
	attach bool // branch exists; check it out instead of creating
	track  bool // create the branch from origin/<branch> with upstream
	reused bool // explicit name already existed locally
}

// Create makes a new managed worktree. The worktree path is derived
// from the branch name; an occupied path or a branch already backed by
// a record is refused before git is asked to mutate anything.
// Provisioning failures degrade: the worktree is kept and the error is
// reported on the result instead.
func (m *Manager) Create(ctx context.Context, repo *git.Repo, opts CreateOptions) (*CreateResult, error) {
	const op errors.Op = "worktree.Create"

	base, err := m.cfg.WorktreeBaseDir()
	if err != nil {
		return nil, err
	}

	tgt, err := m.resolveTarget(ctx, repo, base, opts)
	if err != nil {
		return nil, err
	}

	path := naming.WorktreePath(base, repo.Name, tgt.branch)
	if _, err := os.Lstat(path); err == nil {
		return nil, errors.E(op, errors.KindNameConflict, fmt.Sprintf("worktree path already exists: %s", path))
	}
	if tgt.attach && !tgt.track {
		if _, err := m.reg.Find(ctx, repo, tgt.branch); err == nil {
			return nil, errors.NameConflict(tgt.branch)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.E(op, errors.KindIO, fmt.Sprintf("cannot create %s", filepath.Dir(path)), err)
	}

	if tgt.attach {
		err = m.git.AttachWorktree(ctx, repo.Root, path, tgt.branch, tgt.track)
	} else {
		err = m.git.AddWorktree(ctx, repo.Root, path, tgt.branch, "")
	}
	if err != nil {
		return nil, err
	}

	result := &CreateResult{UsedExisting: tgt.reused, TrackingRemote: tgt.track}

	if !opts.SkipDeps {
		provResult, provErr := m.prov.Provision(ctx, repo.Root, path, deps.NewSpec(m.cfg.Deps.ExtraDirs))
		result.Provision = provResult
		if provErr != nil {
			logger.Warn("worktree: provisioning degraded for %s: %v", tgt.branch, provErr)
			result.ProvisionErr = provErr
		}
	}

	rec, err := m.reg.Find(ctx, repo, tgt.branch)
	if err != nil {
		// The worktree was just created, so a lookup miss means
		// something interfered underneath us.
		return nil, err
	}
	result.Record = *rec
	return result, nil
}

// resolveTarget decides which branch the new worktree checks out and
// whether that branch already exists locally or on origin.
func (m *Manager) resolveTarget(ctx context.Context, repo *git.Repo, base string, opts CreateOptions) (target, error) {
	if opts.From != "" {
		if err := naming.Validate(opts.From); err != nil {
			return target{}, err
		}
		if m.git.BranchExists(ctx, repo.Root, opts.From) {
			return target{branch: opts.From, attach: true}, nil
		}
		// Freshen remote-tracking refs so a branch pushed since the
		// last fetch still resolves. Offline the check runs against the
		// last-known refs.
		_ = m.git.FetchOrigin(ctx, repo.Root)
		if m.git.RemoteBranchExists(ctx, repo.Root, opts.From) {
			return target{branch: opts.From, attach: true, track: true}, nil
		}
		return target{}, errors.BranchNotFound(opts.From)
	}

	if opts.Branch != "" {
		if err := naming.Validate(opts.Branch); err != nil {
			return target{}, err
		}
		if m.git.BranchExists(ctx, repo.Root, opts.Branch) {
			return target{branch: opts.Branch, attach: true, reused: true}, nil
		}
		return target{branch: opts.Branch}, nil
	}

	branch, err := m.allocator.Allocate("", func(candidate string) bool {
		if m.git.BranchExists(ctx, repo.Root, candidate) {
			return true
		}
		_, statErr := os.Lstat(naming.WorktreePath(base, repo.Name, candidate))
		return statErr == nil
	})
	if err != nil {
		return target{}, err
	}
	return target{branch: branch}, nil
}

// Remove deletes the managed worktree for branch. Uncommitted changes
// require force. The backing branch is deleted only when tool-generated
// or forced; a user's named branch survives its worktree.
func (m *Manager) Remove(ctx context.Context, repo *git.Repo, branch string, force bool) error {
	rec, err := m.reg.Find(ctx, repo, branch)
	if err != nil {
		return err
	}

	if rec.Dirty && !force {
		return errors.DirtyWorktree(branch)
	}

	return m.removeRecord(ctx, repo, rec, force || rec.Generated(), force)
}

// removeRecord tears one worktree down: provisioned links first, so
// deletion can never chase a symlink into the main repo, then the
// worktree itself, then the branch when policy says so. A branch that
// refuses deletion is logged, not fatal; the worktree is already gone.
func (m *Manager) removeRecord(ctx context.Context, repo *git.Repo, rec *registry.Record, deleteBranch, force bool) error {
	if err := deps.CleanupLinks(rec.Path, deps.NewSpec(m.cfg.Deps.ExtraDirs)); err != nil {
		logger.Warn("worktree: link cleanup failed for %s: %v", rec.Branch, err)
	}

	if err := m.git.RemoveWorktree(ctx, repo.Root, rec.Path, force); err != nil {
		return err
	}
	if err := m.git.PruneWorktrees(ctx, repo.Root); err != nil {
		logger.Debug("worktree: prune failed: %v", err)
	}

	if deleteBranch {
		if err := m.git.DeleteBranch(ctx, repo.Root, rec.Branch); err != nil {
			logger.Warn("worktree: branch %s not deleted: %v", rec.Branch, err)
		}
	}

	m.pruneEmptyParents(repo, rec.Path)
	return nil
}

// pruneEmptyParents removes now-empty directories between a removed
// worktree and the repo's pool dir, left behind by slashed branch
// names. Climbing stops at the first non-empty directory.
func (m *Manager) pruneEmptyParents(repo *git.Repo, path string) {
	poolDir, err := m.cfg.RepoPoolDir(repo.Name)
	if err != nil {
		return
	}
	sep := string(filepath.Separator)
	for dir := filepath.Dir(path); strings.HasPrefix(dir, poolDir+sep); dir = filepath.Dir(dir) {
		if err := os.Remove(dir); err != nil {
			return
		}
	}
}

// Open looks up the managed worktree for branch so the caller can hand
// its path to the launcher.
func (m *Manager) Open(ctx context.Context, repo *git.Repo, branch string) (*registry.Record, error) {
	return m.reg.Find(ctx, repo, branch)
}

// Launch starts the agent in dir. A missing agent is not an error: the
// first return reports whether it ran, and callers print a hint when it
// did not. The agent's own exit status is logged by the launcher, never
// interpreted.
func (m *Manager) Launch(ctx context.Context, dir string) (bool, error) {
	if m.launcher == nil || !m.launcher.Available() {
		return false, nil
	}
	return true, m.launcher.Launch(ctx, dir)
}
