// Package errors provides structured error types for cw.
// These errors provide context about what operation failed and where.
package errors

import (
	"errors"
	"fmt"
)

// Op describes an operation, usually as "package.function".
type Op string

// Kind categorizes the type of error.
type Kind int

const (
	KindUnknown Kind = iota
	KindNameConflict
	KindNameExhausted
	KindBranchNotFound
	KindNotFound
	KindDirty
	KindProvision
	KindRemoteQuery
	KindGit
	KindConfig
	KindInvalid
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindNameConflict:
		return "name conflict"
	case KindNameExhausted:
		return "name allocation exhausted"
	case KindBranchNotFound:
		return "branch not found"
	case KindNotFound:
		return "not found"
	case KindDirty:
		return "dirty worktree"
	case KindProvision:
		return "provision error"
	case KindRemoteQuery:
		return "remote query error"
	case KindGit:
		return "git error"
	case KindConfig:
		return "configuration error"
	case KindInvalid:
		return "invalid"
	case KindIO:
		return "I/O error"
	default:
		return "unknown error"
	}
}

// Error is the structured error type for cw.
type Error struct {
	Op      Op     // Operation that failed
	Kind    Kind   // Category of error
	Err     error  // Underlying error
	Context string // Additional context
}

// Error returns the error message.
func (e *Error) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Context, e.Err)
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Err)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// E creates a new Error. Arguments can be:
// - Op: the operation name
// - Kind: the error kind
// - string: context message
// - error: the underlying error
func E(args ...interface{}) error {
	e := &Error{}
	for _, arg := range args {
		switch a := arg.(type) {
		case Op:
			e.Op = a
		case Kind:
			e.Kind = a
		case string:
			e.Context = a
		case error:
			e.Err = a
		}
	}
	if e.Err == nil {
		e.Err = errors.New(e.Context)
		e.Context = ""
	}
	return e
}

// Is reports whether err is of the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// GetKind returns the Kind of an error.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// UserMessage renders err for terminal display: the innermost message
// without the operation prefixes Error() accumulates.
func UserMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return err.Error()
	}
	for {
		var inner *Error
		if !errors.As(e.Err, &inner) {
			break
		}
		e = inner
	}
	if e.Context != "" {
		return fmt.Sprintf("%s: %s", e.Context, e.Err)
	}
	return e.Err.Error()
}

// Naming errors
func NameConflict(branch string) error {
	return E(Op("naming.Allocate"), KindNameConflict, fmt.Sprintf("branch %q is already in use", branch))
}

func NameExhausted(attempts int) error {
	return E(Op("naming.Allocate"), KindNameExhausted, fmt.Sprintf("no free identifier after %d attempts", attempts))
}

// Lifecycle errors
func BranchNotFound(branch string) error {
	return E(Op("worktree.Create"), KindBranchNotFound, fmt.Sprintf("branch %q does not exist", branch))
}

func WorktreeNotFound(branch string) error {
	return E(Op("worktree.Lookup"), KindNotFound, fmt.Sprintf("no worktree found for branch %q", branch))
}

func DirtyWorktree(branch string) error {
	return E(Op("worktree.Remove"), KindDirty, fmt.Sprintf("worktree for %q has uncommitted changes", branch))
}

// Config errors
func ConfigLoadFailed(path string, err error) error {
	return E(Op("config.Load"), KindConfig, fmt.Sprintf("failed to load config from %s", path), err)
}

func ConfigInvalid(reason string) error {
	return E(Op("config.Validate"), KindConfig, reason)
}

// Git errors
func GitNotRepo(path string) error {
	return E(Op("git.Discover"), KindGit, fmt.Sprintf("%s is not a git repository", path))
}

func GitWorktreeFailed(branch string, err error) error {
	return E(Op("git.AddWorktree"), KindGit, fmt.Sprintf("failed to create worktree for branch %s", branch), err)
}
