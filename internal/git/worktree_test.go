package git

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/wbnns/cw/internal/errors"
	cwexec "github.com/wbnns/cw/internal/exec"
)

func TestParseWorktreeList(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   []WorktreeInfo
	}{
		{
			name:   "empty output",
			output: "",
			want:   nil,
		},
		{
			name:   "single main worktree",
			output: "worktree /home/dev/myapp\nHEAD abc1234\nbranch refs/heads/main\n\n",
			want: []WorktreeInfo{
				{Path: "/home/dev/myapp", Head: "abc1234", Branch: "main"},
			},
		},
		{
			name: "main plus linked worktrees",
			output: "worktree /home/dev/myapp\nHEAD abc1234\nbranch refs/heads/main\n\n" +
				"worktree /pool/myapp/claude-1712345678\nHEAD def5678\nbranch refs/heads/claude-1712345678\n\n" +
				"worktree /pool/myapp/feature/auth\nHEAD 9876543\nbranch refs/heads/feature/auth\n\n",
			want: []WorktreeInfo{
				{Path: "/home/dev/myapp", Head: "abc1234", Branch: "main"},
				{Path: "/pool/myapp/claude-1712345678", Head: "def5678", Branch: "claude-1712345678"},
				{Path: "/pool/myapp/feature/auth", Head: "9876543", Branch: "feature/auth"},
			},
		},
		{
			name:   "detached worktree",
			output: "worktree /pool/myapp/detached\nHEAD abc1234\ndetached\n\n",
			want: []WorktreeInfo{
				{Path: "/pool/myapp/detached", Head: "abc1234", Detached: true},
			},
		},
		{
			name:   "bare repository entry",
			output: "worktree /srv/repos/myapp.git\nbare\n\n",
			want: []WorktreeInfo{
				{Path: "/srv/repos/myapp.git", Bare: true},
			},
		},
		{
			name:   "missing trailing blank line",
			output: "worktree /home/dev/myapp\nHEAD abc1234\nbranch refs/heads/main",
			want: []WorktreeInfo{
				{Path: "/home/dev/myapp", Head: "abc1234", Branch: "main"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseWorktreeList([]byte(tt.output))
			if len(got) != len(tt.want) {
				t.Fatalf("parsed %d worktrees, want %d: %+v", len(got), len(tt.want), got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("worktree[%d] = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestWorktreeLifecycle(t *testing.T) {
	repoPath := createTestRepo(t)
	svc := NewGitService()

	wtPath := filepath.Join(t.TempDir(), "pool", "myapp", "claude-1712345678")

	if err := svc.AddWorktree(ctx, repoPath, wtPath, "claude-1712345678", ""); err != nil {
		t.Fatalf("AddWorktree() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(wtPath, "test.txt")); err != nil {
		t.Errorf("worktree should contain checked-out files: %v", err)
	}
	if !svc.BranchExists(ctx, repoPath, "claude-1712345678") {
		t.Error("AddWorktree should create the branch")
	}

	worktrees, err := svc.ListWorktrees(ctx, repoPath)
	if err != nil {
		t.Fatalf("ListWorktrees() error = %v", err)
	}
	if len(worktrees) != 2 {
		t.Fatalf("got %d worktrees, want 2", len(worktrees))
	}
	if worktrees[1].Branch != "claude-1712345678" {
		t.Errorf("linked worktree branch = %q", worktrees[1].Branch)
	}

	if err := svc.RemoveWorktree(ctx, repoPath, wtPath, false); err != nil {
		t.Fatalf("RemoveWorktree() error = %v", err)
	}
	if _, err := os.Stat(wtPath); !os.IsNotExist(err) {
		t.Error("worktree directory should be gone")
	}

	worktrees, err = svc.ListWorktrees(ctx, repoPath)
	if err != nil {
		t.Fatalf("ListWorktrees() error = %v", err)
	}
	if len(worktrees) != 1 {
		t.Errorf("got %d worktrees after removal, want 1", len(worktrees))
	}
}

func TestAddWorktree_FromStartPoint(t *testing.T) {
	repoPath := createTestRepo(t)
	svc := NewGitService()

	// Advance main past the start point.
	gitRun(t, repoPath, "checkout", "-b", "base")
	gitRun(t, repoPath, "checkout", "main")
	if err := os.WriteFile(filepath.Join(repoPath, "extra.txt"), []byte("extra"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	gitRun(t, repoPath, "add", ".")
	gitRun(t, repoPath, "commit", "-m", "Extra commit")

	wtPath := filepath.Join(t.TempDir(), "from-base")
	if err := svc.AddWorktree(ctx, repoPath, wtPath, "claude-2", "base"); err != nil {
		t.Fatalf("AddWorktree() error = %v", err)
	}

	// The worktree starts at base, which predates extra.txt.
	if _, err := os.Stat(filepath.Join(wtPath, "extra.txt")); !os.IsNotExist(err) {
		t.Error("worktree from base should not contain extra.txt")
	}
}

func TestAttachWorktree_ExistingBranch(t *testing.T) {
	repoPath := createTestRepo(t)
	svc := NewGitService()

	gitRun(t, repoPath, "branch", "feature/auth")

	wtPath := filepath.Join(t.TempDir(), "feature", "auth")
	if err := svc.AttachWorktree(ctx, repoPath, wtPath, "feature/auth", false); err != nil {
		t.Fatalf("AttachWorktree() error = %v", err)
	}

	worktrees, err := svc.ListWorktrees(ctx, repoPath)
	if err != nil {
		t.Fatalf("ListWorktrees() error = %v", err)
	}
	found := false
	for _, wt := range worktrees {
		if wt.Branch == "feature/auth" {
			found = true
		}
	}
	if !found {
		t.Error("attached worktree should appear in the list")
	}
}

func TestAttachWorktree_BranchCheckedOutElsewhere(t *testing.T) {
	repoPath := createTestRepo(t)
	svc := NewGitService()

	// main is already checked out in the main working tree.
	err := svc.AttachWorktree(ctx, repoPath, filepath.Join(t.TempDir(), "wt"), "main", false)
	if err == nil {
		t.Fatal("AttachWorktree() should refuse a branch that is already checked out")
	}
	if !errors.Is(err, errors.KindGit) {
		t.Errorf("kind = %v, want KindGit", errors.GetKind(err))
	}
}

func TestAttachWorktree_TrackingCommand(t *testing.T) {
	mockExec := cwexec.NewMockExecutor(nil)
	svc := NewGitServiceWithExecutor(mockExec)

	mockExec.AddExactMatch("git", []string{"worktree", "add", "--track", "-b", "release-1.0", "/pool/app/release-1.0", "origin/release-1.0"}, cwexec.MockResponse{})

	if err := svc.AttachWorktree(ctx, "/repo", "/pool/app/release-1.0", "release-1.0", true); err != nil {
		t.Fatalf("AttachWorktree(track) error = %v", err)
	}
}

func TestAddWorktree_DuplicateBranch(t *testing.T) {
	repoPath := createTestRepo(t)
	svc := NewGitService()

	gitRun(t, repoPath, "branch", "taken")

	err := svc.AddWorktree(ctx, repoPath, filepath.Join(t.TempDir(), "wt"), "taken", "")
	if err == nil {
		t.Fatal("AddWorktree() should fail for an existing branch")
	}
	if !errors.Is(err, errors.KindGit) {
		t.Errorf("kind = %v, want KindGit", errors.GetKind(err))
	}
}

func TestRemoveWorktree_DirtyRequiresForce(t *testing.T) {
	repoPath := createTestRepo(t)
	svc := NewGitService()

	wtPath := filepath.Join(t.TempDir(), "dirty-wt")
	if err := svc.AddWorktree(ctx, repoPath, wtPath, "claude-3", ""); err != nil {
		t.Fatalf("AddWorktree() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(wtPath, "uncommitted.txt"), []byte("changes"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := svc.RemoveWorktree(ctx, repoPath, wtPath, false); err == nil {
		t.Fatal("RemoveWorktree() without force should refuse a dirty worktree")
	}

	if err := svc.RemoveWorktree(ctx, repoPath, wtPath, true); err != nil {
		t.Fatalf("RemoveWorktree(force) error = %v", err)
	}
	if _, err := os.Stat(wtPath); !os.IsNotExist(err) {
		t.Error("forced removal should delete the worktree")
	}
}

func TestPruneWorktrees(t *testing.T) {
	repoPath := createTestRepo(t)
	svc := NewGitService()

	wtPath := filepath.Join(t.TempDir(), "vanishing")
	if err := svc.AddWorktree(ctx, repoPath, wtPath, "claude-4", ""); err != nil {
		t.Fatalf("AddWorktree() error = %v", err)
	}

	// Simulate a worktree deleted behind git's back.
	if err := os.RemoveAll(wtPath); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := svc.PruneWorktrees(ctx, repoPath); err != nil {
		t.Fatalf("PruneWorktrees() error = %v", err)
	}

	worktrees, err := svc.ListWorktrees(ctx, repoPath)
	if err != nil {
		t.Fatalf("ListWorktrees() error = %v", err)
	}
	for _, wt := range worktrees {
		if wt.Path == wtPath {
			t.Error("pruned worktree should not be listed")
		}
	}
}

func TestFetchOrigin_NoRemoteIsNotAnError(t *testing.T) {
	mockExec := cwexec.NewMockExecutor(nil)
	svc := NewGitServiceWithExecutor(mockExec)

	// No rule for `git remote get-url origin`, so the mock reports
	// failure and fetch must be skipped.
	if err := svc.FetchOrigin(ctx, "/repo"); err != nil {
		t.Fatalf("FetchOrigin() error = %v", err)
	}

	for _, call := range mockExec.Calls() {
		if len(call.Args) > 0 && call.Args[0] == "fetch" {
			t.Error("fetch should not run without an origin remote")
		}
	}
}

func TestFetchOrigin_FailureIsAdvisory(t *testing.T) {
	mockExec := cwexec.NewMockExecutor(nil)
	svc := NewGitServiceWithExecutor(mockExec)

	mockExec.AddExactMatch("git", []string{"remote", "get-url", "origin"}, cwexec.MockResponse{
		Stdout: []byte("https://github.com/test/test.git\n"),
	})
	mockExec.AddExactMatch("git", []string{"fetch", "origin"}, cwexec.MockResponse{
		Stderr: []byte("fatal: unable to access remote\n"),
		Err:    errMockFailure,
	})

	if err := svc.FetchOrigin(ctx, "/repo"); err != nil {
		t.Errorf("FetchOrigin() should swallow network failures, got %v", err)
	}
}
