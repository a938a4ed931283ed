package ui

import (
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

func confirmTheme() *huh.Theme {
	t := *huh.ThemeCharm()
	t.Focused.FocusedButton = t.Focused.FocusedButton.Background(lipgloss.Color("#7D56F4"))
	t.Focused.Next = t.Focused.FocusedButton
	return &t
}

// Confirm asks a yes/no question and reports the answer. Any form
// error (including ctrl-c) counts as "No".
func Confirm(title, description string) bool {
	confirmed := false
	confirm := huh.NewConfirm().
		Title(title).
		Description(description).
		Affirmative("Yes").
		Negative("No").
		Value(&confirmed)

	form := huh.NewForm(huh.NewGroup(confirm)).
		WithTheme(confirmTheme()).
		WithShowHelp(false)

	if err := form.Run(); err != nil {
		return false
	}
	return confirmed
}
