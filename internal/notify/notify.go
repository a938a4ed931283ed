// Package notify provides cross-platform desktop notifications.
// Cleanup triggered by the post-merge hook has no visible terminal, so
// its summary is delivered here instead of stdout.
package notify

import (
	"fmt"

	"github.com/gen2brain/beeep"

	"github.com/wbnns/cw/internal/logger"
)

// notifier delivers notifications. Swappable for tests via SetNotifier.
var notifier = beeep.Notify

// SetNotifier replaces the notification delivery function.
// This is primarily used for testing.
func SetNotifier(fn func(title, message string, appIcon any) error) {
	notifier = fn
}

// ResetNotifier restores delivery through beeep.
func ResetNotifier() {
	notifier = beeep.Notify
}

// Send sends a desktop notification with the given title and message.
// On macOS, beeep uses terminal-notifier or AppleScript; on Linux,
// D-Bus or notify-send.
func Send(title, message string) error {
	logger.Debug("notify: sending title=%q message=%q", title, message)
	// Empty icon; beeep handles platform defaults.
	err := notifier(title, message, "")
	if err != nil {
		logger.Warn("notify: delivery failed: %v", err)
	}
	return err
}

// CleanupCompleted reports the outcome of an automatic cleanup run for
// a repository.
func CleanupCompleted(repoName string, removed, failed int) error {
	message := fmt.Sprintf("%s: removed %d worktree(s)", repoName, removed)
	if failed > 0 {
		message += fmt.Sprintf(", %d failed", failed)
	}
	return Send("Claude Worktrees", message)
}
