package hooks

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

var ctx = context.Background()

func gitRun(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %v failed: %v\n%s", args, err, output)
	}
}

func createTestRepo(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	gitRun(t, dir, "init")
	gitRun(t, dir, "symbolic-ref", "HEAD", "refs/heads/main")
	gitRun(t, dir, "config", "user.email", "test@example.com")
	gitRun(t, dir, "config", "user.name", "Test User")
	if err := os.WriteFile(filepath.Join(dir, "test.txt"), []byte("test"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	gitRun(t, dir, "add", ".")
	gitRun(t, dir, "commit", "-m", "Initial commit")

	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		t.Fatalf("resolve temp dir: %v", err)
	}
	return resolved
}

func hookPath(t *testing.T, svc *Service, repoPath string) string {
	t.Helper()
	dir, err := svc.HooksDir(ctx, repoPath)
	if err != nil {
		t.Fatalf("HooksDir() error = %v", err)
	}
	return filepath.Join(dir, HookName)
}

func TestInstall_Fresh(t *testing.T) {
	repoPath := createTestRepo(t)
	svc := NewService()

	result, err := svc.Install(ctx, repoPath)
	if err != nil {
		t.Fatalf("Install() error = %v", err)
	}
	if result != Installed {
		t.Errorf("result = %v, want Installed", result)
	}

	path := hookPath(t, svc, repoPath)
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("hook file missing: %v", err)
	}
	if !strings.HasPrefix(string(content), shebang) {
		t.Error("fresh hook should start with a shebang")
	}
	if !strings.Contains(string(content), "cw cleanup --auto") {
		t.Error("hook should run cw cleanup --auto")
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode()&0111 == 0 {
		t.Error("hook file should be executable")
	}

	if !svc.Installed(ctx, repoPath) {
		t.Error("Installed() should report true after install")
	}
}

func TestInstall_Idempotent(t *testing.T) {
	repoPath := createTestRepo(t)
	svc := NewService()

	if _, err := svc.Install(ctx, repoPath); err != nil {
		t.Fatalf("first Install() error = %v", err)
	}
	before, _ := os.ReadFile(hookPath(t, svc, repoPath))

	result, err := svc.Install(ctx, repoPath)
	if err != nil {
		t.Fatalf("second Install() error = %v", err)
	}
	if result != AlreadyInstalled {
		t.Errorf("result = %v, want AlreadyInstalled", result)
	}

	after, _ := os.ReadFile(hookPath(t, svc, repoPath))
	if string(before) != string(after) {
		t.Error("reinstall must not change the hook file")
	}
}

func TestInstall_AppendsToForeignHook(t *testing.T) {
	repoPath := createTestRepo(t)
	svc := NewService()

	path := hookPath(t, svc, repoPath)
	foreign := "#!/bin/sh\necho post-merge ran\n"
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(foreign), 0755); err != nil {
		t.Fatalf("write: %v", err)
	}

	result, err := svc.Install(ctx, repoPath)
	if err != nil {
		t.Fatalf("Install() error = %v", err)
	}
	if result != Appended {
		t.Errorf("result = %v, want Appended", result)
	}

	content, _ := os.ReadFile(path)
	if !strings.HasPrefix(string(content), foreign) {
		t.Error("foreign hook content must be preserved at the top")
	}
	if !strings.Contains(string(content), marker) {
		t.Error("managed section must be appended")
	}
}

func TestUninstall_RemovesFreshHookFile(t *testing.T) {
	repoPath := createTestRepo(t)
	svc := NewService()

	if _, err := svc.Install(ctx, repoPath); err != nil {
		t.Fatalf("Install() error = %v", err)
	}

	result, err := svc.Uninstall(ctx, repoPath)
	if err != nil {
		t.Fatalf("Uninstall() error = %v", err)
	}
	if result != RemovedFile {
		t.Errorf("result = %v, want RemovedFile", result)
	}
	if _, err := os.Stat(hookPath(t, svc, repoPath)); !os.IsNotExist(err) {
		t.Error("hook file should be gone")
	}
}

func TestUninstall_KeepsForeignLines(t *testing.T) {
	repoPath := createTestRepo(t)
	svc := NewService()

	path := hookPath(t, svc, repoPath)
	foreign := "#!/bin/sh\necho post-merge ran\n"
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(foreign), 0755); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := svc.Install(ctx, repoPath); err != nil {
		t.Fatalf("Install() error = %v", err)
	}

	result, err := svc.Uninstall(ctx, repoPath)
	if err != nil {
		t.Fatalf("Uninstall() error = %v", err)
	}
	if result != RemovedSection {
		t.Errorf("result = %v, want RemovedSection", result)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("hook file should survive: %v", err)
	}
	if !strings.Contains(string(content), "echo post-merge ran") {
		t.Error("foreign lines must survive uninstall")
	}
	if strings.Contains(string(content), marker) {
		t.Error("managed section must be stripped")
	}
}

func TestUninstall_ForeignHookLeftAlone(t *testing.T) {
	repoPath := createTestRepo(t)
	svc := NewService()

	path := hookPath(t, svc, repoPath)
	foreign := "#!/bin/sh\necho mine\n"
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(foreign), 0755); err != nil {
		t.Fatalf("write: %v", err)
	}

	result, err := svc.Uninstall(ctx, repoPath)
	if err != nil {
		t.Fatalf("Uninstall() error = %v", err)
	}
	if result != NotManaged {
		t.Errorf("result = %v, want NotManaged", result)
	}

	content, _ := os.ReadFile(path)
	if string(content) != foreign {
		t.Error("unmanaged hook must be untouched")
	}
}

func TestUninstall_NoHook(t *testing.T) {
	repoPath := createTestRepo(t)
	svc := NewService()

	result, err := svc.Uninstall(ctx, repoPath)
	if err != nil {
		t.Fatalf("Uninstall() error = %v", err)
	}
	if result != NotPresent {
		t.Errorf("result = %v, want NotPresent", result)
	}
}

func TestHooksDir_FromLinkedWorktree(t *testing.T) {
	repoPath := createTestRepo(t)
	svc := NewService()

	wtPath := filepath.Join(t.TempDir(), "wt")
	gitRun(t, repoPath, "worktree", "add", "-b", "claude-1712345678", wtPath)

	mainDir, err := svc.HooksDir(ctx, repoPath)
	if err != nil {
		t.Fatalf("HooksDir(main) error = %v", err)
	}
	wtDir, err := svc.HooksDir(ctx, wtPath)
	if err != nil {
		t.Fatalf("HooksDir(worktree) error = %v", err)
	}

	mainResolved, _ := filepath.EvalSymlinks(mainDir)
	wtResolved, _ := filepath.EvalSymlinks(wtDir)
	if mainResolved != wtResolved {
		t.Errorf("worktree hooks dir %q should resolve to the shared %q", wtDir, mainDir)
	}
}

func TestStripManaged(t *testing.T) {
	managed := shebang + "\n" + managedSection

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "fresh managed hook strips to shebang",
			content: managed,
			want:    shebang,
		},
		{
			name:    "appended section leaves foreign lines",
			content: "#!/bin/sh\necho mine\n\n" + managedSection,
			want:    "#!/bin/sh\necho mine",
		},
		{
			name:    "foreign lines after the section survive",
			content: shebang + "\n" + managedSection + "\necho after\n",
			want:    shebang + "\n\necho after",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripManaged(tt.content); got != tt.want {
				t.Errorf("stripManaged() = %q, want %q", got, tt.want)
			}
		})
	}
}
