package git

import (
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/wbnns/cw/internal/errors"
)

// Inspector answers read-only repository questions in-process via
// go-git. Worktree lifecycle and status stay on the git CLI because
// go-git's linked-worktree support is incomplete.
type Inspector struct {
	repo *gogit.Repository
}

// OpenInspector opens the repository containing dir, walking up parent
// directories to find the .git directory.
func OpenInspector(dir string) (*Inspector, error) {
	repo, err := gogit.PlainOpenWithOptions(dir, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, errors.GitNotRepo(dir)
	}
	return &Inspector{repo: repo}, nil
}

// BranchExists reports whether a local branch with the given name
// exists.
func (i *Inspector) BranchExists(branch string) bool {
	_, err := i.repo.Reference(plumbing.NewBranchReferenceName(branch), true)
	return err == nil
}

// HasOrigin reports whether the repository configures a remote named
// "origin".
func (i *Inspector) HasOrigin() bool {
	_, err := i.repo.Remote("origin")
	return err == nil
}

// RemoteBranchExists reports whether origin has the branch, judged by
// the local remote-tracking ref.
func (i *Inspector) RemoteBranchExists(branch string) bool {
	_, err := i.repo.Reference(plumbing.NewRemoteReferenceName("origin", branch), true)
	return err == nil
}

// RevisionExists reports whether a revision (branch, tag, remote ref,
// or commit hash) resolves in the repository.
func (i *Inspector) RevisionExists(revision string) bool {
	_, err := i.repo.ResolveRevision(plumbing.Revision(revision))
	return err == nil
}
