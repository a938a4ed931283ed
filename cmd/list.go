package cmd

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/wbnns/cw/internal/registry"
	"github.com/wbnns/cw/internal/ui"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List managed worktrees for this repository",
	Long: `Lists every worktree cw manages for the current repository, with merge
and pull request status, age, and disk usage. Finished worktrees are
dimmed; clean them up with cw cleanup.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := loadApp(ctx)
	if err != nil {
		return err
	}

	records, err := a.reg.List(ctx, a.repo, registry.Options{PRStatus: true, DiskUsage: true})
	if err != nil {
		return err
	}

	if len(records) == 0 {
		fmt.Println(ui.Dim("No managed worktrees found."))
		fmt.Println()
		fmt.Println("Run cw to create one.")
		return nil
	}

	now := time.Now()
	rows := make([]ui.ListRow, 0, len(records))
	for i := range records {
		rec := &records[i]
		rows = append(rows, ui.ListRow{
			Branch: rec.Branch,
			Status: statusLabel(rec),
			PR:     prLabel(rec),
			Age:    ageLabel(rec, now),
			Size:   sizeLabel(rec),
			Path:   rec.Path,
			Stale:  rec.MergeState.Finished() && !rec.Dirty,
		})
	}
	fmt.Print(ui.RenderList(rows))
	return nil
}

// statusLabel picks the one-word status shown in the listing. Dirty
// outranks merge state: a modified worktree needs attention no matter
// where its branch landed.
func statusLabel(rec *registry.Record) string {
	switch {
	case rec.Dirty:
		return "modified"
	case rec.MergeState.Merged():
		return "merged"
	case rec.MergeState == registry.StatePRClosed:
		return "closed"
	case rec.MergeState == registry.StateUnknown:
		return "unknown"
	default:
		return "active"
	}
}

func prLabel(rec *registry.Record) string {
	if rec.PRQueryFailed {
		return "?"
	}
	if rec.PR == nil {
		return "no PR"
	}
	return fmt.Sprintf("PR #%d %s", rec.PR.Number, rec.PR.State)
}

func ageLabel(rec *registry.Record, now time.Time) string {
	if rec.CreatedAt.IsZero() {
		return "-"
	}
	return humanize.RelTime(rec.CreatedAt, now, "ago", "from now")
}

func sizeLabel(rec *registry.Record) string {
	if rec.DiskUsageBytes == 0 {
		return "-"
	}
	return humanize.Bytes(uint64(rec.DiskUsageBytes))
}
