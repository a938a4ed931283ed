// Package github queries pull request state for branches through the
// gh CLI. Results feed the worktree list and cleanup decisions; every
// failure here is degradable because cw must keep working without
// network access or gh installed.
package github

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/wbnns/cw/internal/errors"
	cwexec "github.com/wbnns/cw/internal/exec"
	"github.com/wbnns/cw/internal/logger"
)

// queryTimeout bounds the bulk PR query so a hung gh process cannot
// stall listing.
const queryTimeout = 30 * time.Second

// prListLimit caps the bulk query. 200 covers any realistic number of
// concurrent session branches.
const prListLimit = "200"

// State is a normalized pull request state.
type State string

const (
	StateOpen   State = "open"
	StateClosed State = "closed"
	StateMerged State = "merged"
)

// PullRequest is the subset of PR data cw cares about.
type PullRequest struct {
	Number int
	State  State
	Branch string
	URL    string
}

// ghPR mirrors the JSON fields requested from gh.
type ghPR struct {
	Number      int    `json:"number"`
	State       string `json:"state"`
	HeadRefName string `json:"headRefName"`
	URL         string `json:"url"`
}

// Service fetches PR data via the gh CLI.
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

// Available reports whether the gh CLI is installed and authenticated.
func (s *Service) Available(ctx context.Context) bool {
	_, _, err := s.executor.Run(ctx, "", "gh", "auth", "status")
	return err == nil
}

// ListPRs fetches pull requests for the repository at repoPath, keyed
// by head branch name. Branches with several PRs keep the most
// conclusive one: merged beats closed beats open.
func (s *Service) ListPRs(ctx context.Context, repoPath string) (map[string]PullRequest, error) {
	const op errors.Op = "github.ListPRs"

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	output, err := s.executor.Output(ctx, repoPath, "gh", "pr", "list",
		"--state", "all",
		"--json", "number,state,headRefName,url",
		"--limit", prListLimit,
	)
	if err != nil {
		return nil, errors.E(op, errors.KindRemoteQuery, "gh pr list failed", err)
	}

	var prs []ghPR
	if err := json.Unmarshal(output, &prs); err != nil {
		return nil, errors.E(op, errors.KindRemoteQuery, "failed to parse gh output", err)
	}

	result := make(map[string]PullRequest, len(prs))
	for _, pr := range prs {
		branch := strings.TrimSpace(pr.HeadRefName)
		if branch == "" {
			continue
		}
		candidate := PullRequest{
			Number: pr.Number,
			State:  normalizeState(pr.State),
			Branch: branch,
			URL:    strings.TrimSpace(pr.URL),
		}
		if existing, ok := result[branch]; ok && rank(existing.State) >= rank(candidate.State) {
			continue
		}
		result[branch] = candidate
	}

	logger.Debug("github: fetched %d PRs covering %d branches", len(prs), len(result))
	return result, nil
}

// normalizeState maps gh's PR states onto cw's. Unknown states (such
// as drafts reported by future gh versions) count as open: an active
// PR must never look finished.
func normalizeState(state string) State {
	switch strings.ToUpper(strings.TrimSpace(state)) {
	case "MERGED":
		return StateMerged
	case "CLOSED":
		return StateClosed
	default:
		return StateOpen
	}
}

// rank orders states by how conclusive they are.
func rank(s State) int {
	switch s {
	case StateMerged:
		return 2
	case StateClosed:
		return 1
	default:
		return 0
	}
}
