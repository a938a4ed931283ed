package cmd

import (
	"github.com/spf13/cobra"

	"github.com/wbnns/cw/internal/worktree"
)

var (
	newFrom     string
	newNoDeps   bool
	newNoClaude bool
)

var newCmd = &cobra.Command{
	Use:   "new [branch]",
	Short: "Create a worktree with a chosen branch name",
	Long: `Creates a worktree on the named branch. Without a branch argument a
timestamped name is generated. If the branch already exists the worktree
attaches to it instead of creating a new branch.

Use --from to attach to an existing branch by name; if it only exists on
origin, a local tracking branch is created for it.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runNew,
}

func init() {
	newCmd.Flags().StringVar(&newFrom, "from", "", "Attach to this existing local or remote branch")
	newCmd.Flags().BoolVar(&newNoDeps, "no-deps", false, "Skip dependency provisioning")
	newCmd.Flags().BoolVar(&newNoClaude, "no-claude", false, "Don't launch the agent after creation")
	rootCmd.AddCommand(newCmd)
}

func runNew(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := loadApp(ctx)
	if err != nil {
		return err
	}

	opts := worktree.CreateOptions{From: newFrom, SkipDeps: newNoDeps}
	if len(args) == 1 {
		opts.Branch = args[0]
	}
	return createAndLaunch(ctx, a, opts, !newNoClaude)
}
