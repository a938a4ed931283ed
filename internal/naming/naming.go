// Package naming validates branch names and allocates generated ones
// for worktree sessions.
package naming

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/wbnns/cw/internal/errors"
)

// GeneratedPrefix marks branch names created by the tool. A branch is
// considered tool-generated when the prefix is followed by a Unix
// timestamp and nothing else.
const GeneratedPrefix = "claude-"

// DefaultMaxAttempts bounds how many candidate names Allocate tries
// before giving up.
const DefaultMaxAttempts = 5

// MaxBranchNameLen is the maximum length for user-provided branch names.
const MaxBranchNameLen = 100

// validBranchNameRegex matches valid git branch name characters.
// Git branch names cannot contain: space, ~, ^, :, ?, *, [, \, or control characters.
// They also cannot start with - or end with .lock.
var validBranchNameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9/_.-]*$`)

// Validate checks whether a branch name is acceptable to git. An empty
// name is allowed; it means the caller will allocate a generated one.
func Validate(branch string) error {
	const op errors.Op = "naming.Validate"

	if branch == "" {
		return nil
	}

	if len(branch) > MaxBranchNameLen {
		return errors.E(op, errors.KindInvalid, fmt.Sprintf("branch name too long (max %d characters)", MaxBranchNameLen))
	}

	if strings.HasPrefix(branch, "-") {
		return errors.E(op, errors.KindInvalid, "branch name cannot start with '-'")
	}

	if strings.HasSuffix(branch, ".lock") {
		return errors.E(op, errors.KindInvalid, "branch name cannot end with '.lock'")
	}

	if strings.Contains(branch, "..") {
		return errors.E(op, errors.KindInvalid, "branch name cannot contain '..'")
	}

	if strings.HasSuffix(branch, "/") {
		return errors.E(op, errors.KindInvalid, "branch name cannot end with '/'")
	}

	if !validBranchNameRegex.MatchString(branch) {
		return errors.E(op, errors.KindInvalid, "branch name contains invalid characters (use letters, numbers, /, _, ., -)")
	}

	return nil
}

// Allocator produces generated branch names of the form
// "claude-<unix-seconds>". Name collisions bump the timestamp by one
// second per attempt.
type Allocator struct {
	// Now supplies the clock. Defaults to time.Now.
	Now func() time.Time
	// MaxAttempts bounds the collision retries. Defaults to
	// DefaultMaxAttempts.
	MaxAttempts int
}

// NewAllocator returns an Allocator using the real clock.
func NewAllocator() *Allocator {
	return &Allocator{Now: time.Now, MaxAttempts: DefaultMaxAttempts}
}

// Allocate resolves the branch name for a new worktree. An explicit
// name is validated and checked against taken; an empty one is
// synthesized from the clock, bumping the timestamp until taken reports
// false or the attempt budget runs out.
func (a *Allocator) Allocate(explicit string, taken func(branch string) bool) (string, error) {
	if explicit != "" {
		if err := Validate(explicit); err != nil {
			return "", err
		}
		if taken != nil && taken(explicit) {
			return "", errors.NameConflict(explicit)
		}
		return explicit, nil
	}

	now := a.Now
	if now == nil {
		now = time.Now
	}
	attempts := a.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}

	base := now().Unix()
	for i := 0; i < attempts; i++ {
		candidate := GeneratedPrefix + strconv.FormatInt(base+int64(i), 10)
		if taken == nil || !taken(candidate) {
			return candidate, nil
		}
	}
	return "", errors.NameExhausted(attempts)
}

// IsGenerated reports whether branch was produced by Allocate:
// the generated prefix followed only by digits.
func IsGenerated(branch string) bool {
	rest, ok := strings.CutPrefix(branch, GeneratedPrefix)
	if !ok || rest == "" {
		return false
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// GeneratedTime returns the creation time encoded in a generated branch
// name. The second return is false for non-generated names.
func GeneratedTime(branch string) (time.Time, bool) {
	if !IsGenerated(branch) {
		return time.Time{}, false
	}
	secs, err := strconv.ParseInt(strings.TrimPrefix(branch, GeneratedPrefix), 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(secs, 0), true
}

// WorktreePath returns the checkout location for a branch:
// <base>/<repoName>/<branch>. Slashes in the branch name map to nested
// directories, mirroring git's own branch namespace, so no two branches
// share a path.
func WorktreePath(base, repoName, branch string) string {
	return filepath.Join(base, repoName, filepath.FromSlash(branch))
}
