package log

import (
	"fmt"

	"wave-portal-tui/helpers"
	"wave-portal-tui/styles"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
)

// Height is the number of viewport rows the panel uses for a terminal of the
// given height.
func Height(termHeight int) int {
	// header, nav, title and borders
	reservedHeight := 10
	availableHeight := helpers.Max(5, termHeight-reservedHeight)
	maxLogHeight := helpers.Min(termHeight/3, 15)
	return helpers.Min(availableHeight, maxLogHeight)
}

// Render renders the log panel
func Render(width, height int, logReady bool, logSpinnerView string, vp viewport.Model) string {
	title := lipgloss.NewStyle().
		Foreground(styles.CAccent2).
		Bold(true).
		Render("Log")

	logPanelHeight := Height(height)
	vp.Height = logPanelHeight

	border := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(styles.CBorder).
		Padding(0, 1).
		Width(helpers.Max(0, width-2)).
		Height(logPanelHeight + 2)

	if !logReady {
		return border.Render(title + "\n\n" + "initializing...\n" + logSpinnerView)
	}

	info := ""
	if n := vp.TotalLineCount(); n > 0 {
		info = fmt.Sprintf(" %d lines", n)
		if n > vp.Height {
			info += fmt.Sprintf(" [%d%%]", int(vp.ScrollPercent()*100))
		}
		info = styles.Muted(info)
	}

	return border.Render(title + info + "\n\n" + vp.View())
}
