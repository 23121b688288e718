package home

import (
	"strings"

	"wave-portal-tui/styles"

	"github.com/charmbracelet/huh"
)

// TempSelection stores the home menu selection
var TempSelection string

// CreateForm creates the home menu form
func CreateForm() *huh.Form {
	TempSelection = ""

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Options(
					huh.NewOption("Wave Feed", "feed"),
					huh.NewOption("Accounts", "accounts"),
					huh.NewOption("RPC Settings", "settings"),
				).
				Title("Main Menu").
				Description("Send a wave or change how you connect").
				Value(&TempSelection),
		),
	).WithTheme(huh.ThemeCatppuccin())

	form.Init()
	return form
}

// Render renders the home view with a one-line session summary below the menu
func Render(form *huh.Form, summary string) string {
	if form == nil {
		return "Loading menu..."
	}
	return form.View() + "\n\n" + styles.Muted(summary)
}

// Nav returns the navigation bar for home view
func Nav(width int) string {
	left := strings.Join([]string{
		styles.Key("↑/↓") + " select",
		styles.Key("Enter") + " go",
		styles.Key("l") + " logger",
		styles.Key("Esc") + " feed",
	}, "   ")

	return styles.NavStyle.Width(width).Render(left)
}
