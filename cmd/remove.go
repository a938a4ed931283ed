package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wbnns/cw/internal/errors"
	"github.com/wbnns/cw/internal/ui"
)

var removeForce bool

var removeCmd = &cobra.Command{
	Use:   "remove <branch>",
	Short: "Remove a single worktree by branch name",
	Long: `Removes the worktree for the given branch. Generated branches are
deleted with their worktree; branches you named yourself survive unless
--force is given.

A worktree with uncommitted changes is refused without --force.`,
	Args: cobra.ExactArgs(1),
	RunE: runRemove,
}

func init() {
	removeCmd.Flags().BoolVar(&removeForce, "force", false, "Discard uncommitted changes and delete the branch too")
	rootCmd.AddCommand(removeCmd)
}

func runRemove(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := loadApp(ctx)
	if err != nil {
		return err
	}

	branch := args[0]
	if err := a.manager.Remove(ctx, a.repo, branch, removeForce); err != nil {
		if errors.GetKind(err) == errors.KindDirty {
			fmt.Println("Use --force to discard uncommitted changes.")
		}
		return err
	}
	fmt.Printf("%s Removed worktree for '%s'\n", ui.OK("✓"), branch)
	return nil
}
