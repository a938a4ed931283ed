package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wbnns/cw/internal/config"
	"github.com/wbnns/cw/internal/deps"
	"github.com/wbnns/cw/internal/git"
	"github.com/wbnns/cw/internal/github"
	"github.com/wbnns/cw/internal/launcher"
	"github.com/wbnns/cw/internal/logger"
	"github.com/wbnns/cw/internal/registry"
	"github.com/wbnns/cw/internal/ui"
	"github.com/wbnns/cw/internal/worktree"
)

var (
	debugMode             bool
	quietMode             bool
	version, commit, date string
)

// SetVersionInfo sets version information from ldflags
func SetVersionInfo(v, c, d string) {
	version, commit, date = v, c, d
}

var rootCmd = &cobra.Command{
	Use:   "cw",
	Short: "Pooled git worktrees for parallel coding-agent sessions",
	Long: `cw gives every coding-agent session its own git worktree so parallel
sessions never collide on a working tree. Run it bare from inside a
repository to get a fresh worktree with dependencies provisioned and
your agent already running in it.`,
	Args:          cobra.NoArgs,
	RunE:          runRoot,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(initLogging)
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", true, "Enable debug logging (on by default)")
	rootCmd.PersistentFlags().BoolVarP(&quietMode, "quiet", "q", false, "Reduce logging to info level only")
}

func initLogging() {
	if quietMode {
		logger.SetDebug(false)
	} else if debugMode {
		logger.SetDebug(true)
	}
}

// Execute runs the root command
func Execute(ctx context.Context) error {
	rootCmd.Version = version
	rootCmd.SetVersionTemplate(versionTemplate())
	return rootCmd.ExecuteContext(ctx)
}

func versionTemplate() string {
	if commit != "none" && commit != "" {
		return fmt.Sprintf("cw %s\n  commit: %s\n  built:  %s\n", version, commit, date)
	}
	return fmt.Sprintf("cw %s\n", version)
}

// app bundles the collaborators a subcommand needs, wired once per
// invocation.
type app struct {
	cfg     *config.Config
	git     *git.GitService
	repo    *git.Repo
	reg     *registry.Registry
	manager *worktree.Manager
}

// loadApp loads configuration and resolves the repository containing
// the current directory. Every subcommand except init starts here.
func loadApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	gitSvc := git.NewGitService()
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("cannot determine working directory: %w", err)
	}
	repo, err := gitSvc.ResolveRepo(ctx, wd)
	if err != nil {
		return nil, err
	}

	reg := registry.New(gitSvc, github.NewService(), cfg)
	manager := worktree.NewManager(cfg, gitSvc, reg, deps.NewProvisioner(cfg), launcher.New(cfg.Agent.Command))

	return &app{cfg: cfg, git: gitSvc, repo: repo, reg: reg, manager: manager}, nil
}

// createAndLaunch is the shared tail of `cw` and `cw new`: make the
// worktree, report what happened, and hand the directory to the agent.
func createAndLaunch(ctx context.Context, a *app, opts worktree.CreateOptions, launch bool) error {
	result, err := a.manager.Create(ctx, a.repo, opts)
	if err != nil {
		return err
	}
	rec := result.Record

	if result.UsedExisting {
		fmt.Printf("%s Branch '%s' already exists, using it\n", ui.Warn("Note:"), rec.Branch)
	}
	if result.TrackingRemote {
		fmt.Printf("%s Branch '%s' exists remotely, will track it\n", ui.Warn("Note:"), opts.From)
	}
	fmt.Printf("Creating worktree %s for %s...\n", ui.Branch(rec.Branch), a.repo.Name)
	fmt.Printf("  %s Created worktree at %s\n", ui.OK("✓"), rec.Path)

	if !opts.SkipDeps {
		fmt.Println("Setting up dependencies...")
		if result.ProvisionErr != nil {
			fmt.Printf("  %s %v\n", ui.Warn("Warning:"), result.ProvisionErr)
		} else if result.Provision != nil {
			fmt.Printf("  %s %s\n", ui.OK("✓"), provisionSummary(a.cfg, result.Provision))
		}
	}

	fmt.Printf("\n%s\n", ui.OK("Worktree ready!"))
	fmt.Printf("  Path: %s\n", rec.Path)

	if !launch {
		return nil
	}
	fmt.Printf("Launching %s...\n", a.cfg.Agent.Command)
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

// provisionSummary condenses a provisioning result into one line,
// phrased per strategy.
func provisionSummary(cfg *config.Config, prov *deps.Result) string {
	if prov.HookRan {
		return "Custom hook completed: " + cfg.Deps.PostCreateHook
	}
	items := append(append([]string{}, prov.Provisioned...), prov.Dotfiles...)
	if len(items) == 0 {
		return "No dependency directories found"
	}
	verb := "Symlinked"
	if cfg.Deps.Strategy == config.StrategyCopy {
		verb = "Copied (CoW)"
	}
	return fmt.Sprintf("%s: %s", verb, strings.Join(items, ", "))
}

// runRoot is the bare `cw` flow: freshen the default branch when a
// remote exists, then create a generated-name worktree and launch.
func runRoot(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := loadApp(ctx)
	if err != nil {
		return err
	}

	if a.git.HasRemoteOrigin(ctx, a.repo.Root) {
		fmt.Println("Pulling latest changes...")
		if out, err := a.git.Pull(ctx, a.repo.Root); err != nil {
			// A failed pull is worth knowing about but never blocks the
			// session; the worktree just starts from the local tip.
			fmt.Printf("Note: pull failed, starting from local %s: %v\n", a.repo.DefaultBranch, err)
			logger.Warn("root: pull failed: %v", err)
		} else {
			logger.Debug("root: pull: %s", out)
		}
	}

	return createAndLaunch(ctx, a, worktree.CreateOptions{}, true)
}
