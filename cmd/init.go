package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wbnns/cw/internal/config"
	"github.com/wbnns/cw/internal/errors"
	"github.com/wbnns/cw/internal/hooks"
	"github.com/wbnns/cw/internal/ui"
)

var initUninstall bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Set up cw for this repository",
	Long: `Creates the config file if missing, creates the worktree base
directory, and installs a post-merge hook that cleans up merged
worktrees automatically. Use --uninstall to remove the hook again.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initUninstall, "uninstall", false, "Remove the post-merge hook")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := loadApp(ctx)
	if err != nil {
		return err
	}

	hookSvc := hooks.NewService()

	if initUninstall {
		result, err := hookSvc.Uninstall(ctx, a.repo.Root)
		if err != nil {
			return err
		}
		fmt.Printf("%s %s\n", ui.OK("✓"), result)
		return nil
	}

	fmt.Printf("Initializing cw for %s\n", ui.Branch(a.repo.Name))

	created, err := config.WriteDefault()
	if err != nil {
		return err
	}
	cfgPath, err := config.Path()
	if err != nil {
		return err
	}
	if created {
		fmt.Printf("  %s Created config file: %s\n", ui.OK("✓"), cfgPath)
	} else {
		fmt.Printf("  %s Config file already exists: %s\n", ui.Dim("○"), cfgPath)
	}

	base, err := a.cfg.WorktreeBaseDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(base, 0755); err != nil {
		return errors.E(errors.Op("init"), errors.KindIO, err)
	}
	fmt.Printf("  %s Worktree directory: %s\n", ui.OK("✓"), base)

	result, err := hookSvc.Install(ctx, a.repo.Root)
	if err != nil {
		fmt.Printf("  %s %v\n", ui.Error("✗"), err)
	} else {
		fmt.Printf("  %s %s\n", ui.OK("✓"), result)
	}

	fmt.Printf("\n%s\n", ui.OK("Initialization complete!"))
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  cw              Create a new worktree and launch your agent")
	fmt.Println("  cw list         List active worktrees")
	fmt.Println("  cw cleanup      Clean up merged worktrees")
	return nil
}
