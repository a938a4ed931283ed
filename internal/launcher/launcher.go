// Package launcher starts the coding-agent process inside a worktree.
// The launch is foreground with the caller's terminal attached; cw's
// responsibility ends at invocation, so the agent's exit status is
// logged but never interpreted.
package launcher

import (
	"context"
	"os"
	"os/exec"

	"github.com/wbnns/cw/internal/logger"
)

// Agent launches the configured coding-agent executable.
type Agent struct {
	command string
}

// New returns an Agent for the given executable name.
func New(command string) *Agent {
	return &Agent{command: command}
}

// Command returns the configured executable name.
func (a *Agent) Command() string {
	return a.command
}

// Available reports whether the agent executable is on PATH.
func (a *Agent) Available() bool {
	_, err := exec.LookPath(a.command)
	return err == nil
}

// Launch runs the agent in dir with stdin, stdout, and stderr attached
// and blocks until it exits.
func (a *Agent) Launch(ctx context.Context, dir string) error {
	cmd := exec.CommandContext(ctx, a.command)
	cmd.Dir = dir
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	logger.Info("launcher: starting %s in %s", a.command, dir)
	err := cmd.Run()
	if err != nil {
		logger.Info("launcher: %s exited: %v", a.command, err)
	}
	return err
}
