package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wbnns/cw/internal/logger"
	"github.com/wbnns/cw/internal/notify"
	"github.com/wbnns/cw/internal/ui"
	"github.com/wbnns/cw/internal/worktree"
)

var (
	cleanupDryRun bool
	cleanupForce  bool
	cleanupAuto   bool
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove worktrees whose work is finished",
	Long: `Removes worktrees whose branches are merged into the default branch,
whose pull requests are merged or closed, or that have seen no activity
for over a week and have no open pull request.

Each removal is confirmed individually unless --force is given. Dirty
worktrees need an extra confirmation, and are skipped outright under
--force.`,
	Args: cobra.NoArgs,
	RunE: runCleanup,
}

func init() {
	cleanupCmd.Flags().BoolVar(&cleanupDryRun, "dry-run", false, "Show what would be removed without removing anything")
	cleanupCmd.Flags().BoolVar(&cleanupForce, "force", false, "Remove without prompting")
	cleanupCmd.Flags().BoolVar(&cleanupAuto, "auto", false, "Run as the post-merge hook")
	_ = cleanupCmd.Flags().MarkHidden("auto")
	rootCmd.AddCommand(cleanupCmd)
}

func runCleanup(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := loadApp(ctx)
	if err != nil {
		return err
	}

	if cleanupAuto && !a.cfg.Global.AutoCleanup {
		logger.Debug("cleanup: auto run disabled by config")
		return nil
	}

	opts := worktree.CleanupOptions{DryRun: cleanupDryRun, Force: cleanupForce, Auto: cleanupAuto}
	if !cleanupForce && !cleanupAuto {
		opts.Confirm = ui.Confirm
	}

	summary, err := a.manager.Cleanup(ctx, a.repo, opts)
	if err != nil {
		return err
	}

	if len(summary.Candidates) == 0 {
		fmt.Println(ui.Dim("No worktrees to clean up."))
		return nil
	}

	if cleanupDryRun {
		fmt.Println("Would remove the following worktrees:")
		for _, cand := range summary.Candidates {
			fmt.Printf("  • %s %s (%s)\n", ui.Branch(cand.Record.Branch), cand.Record.Path, cand.Reason)
		}
		return nil
	}

	for _, branch := range summary.SkippedDirty {
		fmt.Printf("%s %s (has uncommitted changes)\n", ui.Warn("Skipping"), branch)
	}
	for _, branch := range summary.Removed {
		fmt.Printf("%s Removed %s\n", ui.OK("✓"), branch)
	}
	for _, failure := range summary.Failed {
		fmt.Printf("%s Failed to remove %s: %v\n", ui.Error("✗"), failure.Branch, failure.Err)
	}
	if len(summary.Removed) == 0 && len(summary.Failed) == 0 && len(summary.SkippedDirty) == 0 {
		fmt.Println("Nothing removed.")
	}

	// Cleanup runs from a hook have no visible terminal, so surface the
	// outcome as a desktop notification instead.
	if cleanupAuto && len(summary.Removed)+len(summary.Failed) > 0 {
		if err := notify.CleanupCompleted(a.repo.Name, len(summary.Removed), len(summary.Failed)); err != nil {
			logger.Debug("cleanup: notification failed: %v", err)
		}
	}
	return nil
}
