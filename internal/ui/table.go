package ui

import "strings"

// ListRow is one rendered line of the worktree listing.
type ListRow struct {
	Branch string
	Status string
	PR     string
	Age    string
	Size   string
	Path   string
	// Stale rows (finished branches awaiting cleanup) are dimmed.
	Stale bool
}

const (
	branchWidth = 28
	statusWidth = 10
	prWidth     = 15
	ageWidth    = 14
	sizeWidth   = 9
)

// RenderList renders the `cw list` table. The path column is last and
// never trimmed so it stays copy-pasteable.
func RenderList(rows []ListRow) string {
	var b strings.Builder
	b.WriteString(Header(formatListLine("BRANCH", "STATUS", "PR", "AGE", "SIZE", "PATH")))
	b.WriteString("\n")
	for _, row := range rows {
		line := formatListLine(row.Branch, row.Status, row.PR, row.Age, row.Size, row.Path)
		if row.Stale {
			line = Dim(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func formatListLine(branch, status, pr, age, size, path string) string {
	return PadOrTrim(branch, branchWidth) + " " +
		PadOrTrim(status, statusWidth) + " " +
		PadOrTrim(pr, prWidth) + " " +
		PadOrTrim(age, ageWidth) + " " +
		PadOrTrim(size, sizeWidth) + " " +
		path
}

// PadOrTrim fits s into exactly width cells, right-padding short values
// with spaces and cutting long ones.
func PadOrTrim(s string, width int) string {
	runes := []rune(s)
	if len(runes) > width {
		return string(runes[:width])
	}
	return s + strings.Repeat(" ", width-len(runes))
}
