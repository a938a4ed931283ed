package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wbnns/cw/internal/ui"
)

var openCmd = &cobra.Command{
	Use:   "open <branch>",
	Short: "Launch the agent in an existing worktree",
	Long:  `Starts a fresh agent session in the worktree for the given branch.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runOpen,
}

func init() {
	rootCmd.AddCommand(openCmd)
}

func runOpen(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := loadApp(ctx)
	if err != nil {
		return err
	}

	rec, err := a.manager.Open(ctx, a.repo, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Launching %s in %s...\n", a.cfg.Agent.Command, rec.Path)
	ran, err := a.manager.Launch(ctx, rec.Path)
	if err != nil {
		return err
	}
	if !ran {
		fmt.Printf("%s %s not found in PATH\n", ui.Warn("Warning:"), a.cfg.Agent.Command)
		fmt.Printf("  cd %s\n", rec.Path)
	}
	return nil
}
