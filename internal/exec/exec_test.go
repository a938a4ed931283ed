package exec

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestMockExecutor_ExactMatch(t *testing.T) {
	mock := NewMockExecutor(nil)
	mock.AddExactMatch("git", []string{"status", "--porcelain"}, MockResponse{
		Stdout: []byte(" M file.go\n"),
	})

	stdout, stderr, err := mock.Run(context.Background(), "/repo", "git", "status", "--porcelain")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if string(stdout) != " M file.go\n" {
		t.Errorf("stdout = %q, want %q", stdout, " M file.go\n")
	}
	if len(stderr) != 0 {
		t.Errorf("stderr = %q, want empty", stderr)
	}
}

func TestMockExecutor_ExactMatch_ArgsMustMatchFully(t *testing.T) {
	mock := NewMockExecutor(nil)
	mock.AddExactMatch("git", []string{"status"}, MockResponse{Stdout: []byte("ok")})

	_, _, err := mock.Run(context.Background(), "", "git", "status", "--porcelain")
	if err == nil {
		t.Fatal("expected error for unmatched arguments")
	}
	if !strings.Contains(err.Error(), "no mock response") {
		t.Errorf("error = %v, want no-mock-response error", err)
	}
}

func TestMockExecutor_PrefixMatch(t *testing.T) {
	mock := NewMockExecutor(nil)
	mock.AddPrefixMatch("git", []string{"worktree", "add"}, MockResponse{
		Stdout: []byte("Preparing worktree\n"),
	})

	out, err := mock.CombinedOutput(context.Background(), "/repo", "git", "worktree", "add", "-b", "feature", "/tmp/wt")
	if err != nil {
		t.Fatalf("CombinedOutput() error = %v", err)
	}
	if string(out) != "Preparing worktree\n" {
		t.Errorf("output = %q", out)
	}
}

func TestMockExecutor_LaterRuleWins(t *testing.T) {
	mock := NewMockExecutor(nil)
	mock.AddExactMatch("git", []string{"remote"}, MockResponse{Stdout: []byte("origin\n")})
	mock.AddExactMatch("git", []string{"remote"}, MockResponse{Stdout: []byte("")})

	out, err := mock.Output(context.Background(), "", "git", "remote")
	if err != nil {
		t.Fatalf("Output() error = %v", err)
	}
	if len(out) != 0 {
		t.Errorf("output = %q, want empty (later rule should win)", out)
	}
}

func TestMockExecutor_ErrorResponse(t *testing.T) {
	wantErr := errors.New("exit status 128")
	mock := NewMockExecutor(nil)
	mock.AddExactMatch("git", []string{"rev-parse", "--verify", "missing"}, MockResponse{
		Stderr: []byte("fatal: Needed a single revision\n"),
		Err:    wantErr,
	})

	_, stderr, err := mock.Run(context.Background(), "", "git", "rev-parse", "--verify", "missing")
	if !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want %v", err, wantErr)
	}
	if !strings.Contains(string(stderr), "single revision") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestMockExecutor_RecordsCalls(t *testing.T) {
	mock := NewMockExecutor(nil)
	mock.AddPrefixMatch("git", []string{}, MockResponse{})

	mock.Run(context.Background(), "/a", "git", "status")
	mock.Output(context.Background(), "/b", "git", "remote")

	calls := mock.Calls()
	if len(calls) != 2 {
		t.Fatalf("len(Calls()) = %d, want 2", len(calls))
	}
	if calls[0].Dir != "/a" || calls[0].Name != "git" || calls[0].Args[0] != "status" {
		t.Errorf("first call = %+v", calls[0])
	}
	if calls[1].Dir != "/b" || calls[1].Args[0] != "remote" {
		t.Errorf("second call = %+v", calls[1])
	}
}

func TestMockExecutor_CombinedOutputJoinsStreams(t *testing.T) {
	mock := NewMockExecutor(nil)
	mock.AddExactMatch("sh", []string{"-c", "hook"}, MockResponse{
		Stdout: []byte("out"),
		Stderr: []byte("err"),
	})

	out, err := mock.CombinedOutput(context.Background(), "", "sh", "-c", "hook")
	if err != nil {
		t.Fatalf("CombinedOutput() error = %v", err)
	}
	if string(out) != "outerr" {
		t.Errorf("output = %q, want %q", out, "outerr")
	}
}

func TestMockExecutor_FallbackDelegation(t *testing.T) {
	mock := NewMockExecutor(NewRealExecutor())

	out, err := mock.Output(context.Background(), "", "sh", "-c", "echo hello")
	if err != nil {
		t.Fatalf("Output() error = %v", err)
	}
	if strings.TrimSpace(string(out)) != "hello" {
		t.Errorf("output = %q, want hello", out)
	}
}

func TestRealExecutor_SeparatesStreams(t *testing.T) {
	real := NewRealExecutor()

	stdout, stderr, err := real.Run(context.Background(), "", "sh", "-c", "echo out; echo err 1>&2")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if strings.TrimSpace(string(stdout)) != "out" {
		t.Errorf("stdout = %q", stdout)
	}
	if strings.TrimSpace(string(stderr)) != "err" {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestRealExecutor_WorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	real := NewRealExecutor()

	out, err := real.Output(context.Background(), dir, "pwd")
	if err != nil {
		t.Fatalf("Output() error = %v", err)
	}
	got := strings.TrimSpace(string(out))
	if !strings.HasSuffix(got, strings.TrimPrefix(dir, "/private")) && got != dir {
		// macOS resolves /tmp through /private; accept either spelling.
		t.Errorf("pwd = %q, want %q", got, dir)
	}
}

func TestRealExecutor_CommandFailure(t *testing.T) {
	real := NewRealExecutor()

	_, err := real.Output(context.Background(), "", "sh", "-c", "exit 3")
	if err == nil {
		t.Fatal("expected error for non-zero exit")
	}
}
