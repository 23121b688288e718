package feed

import (
	"fmt"
	"strings"

	"wave-portal-tui/config"
	"wave-portal-tui/helpers"
	"wave-portal-tui/history"
	"wave-portal-tui/styles"

	"github.com/charmbracelet/lipgloss"
	"github.com/ethereum/go-ethereum/common"
)

// linesPerWave is the height of one rendered wave including the gap after it.
const linesPerWave = 4

// State is what the feed panel shows.
type State struct {
	Records  []history.WaveRecord
	Total    uint64
	Loading  bool
	LoadErr  error
	Self     common.Address
	Selected int
	Offset   int
	Spinner  string
}

// Nav returns the navigation bar for the feed view
func Nav(width int, composing bool) string {
	var left string
	if composing {
		left = strings.Join([]string{
			styles.Key("Enter") + " wave",
			styles.Key("Tab") + " feed",
			styles.Key("Esc") + " leave input",
		}, "   ")
	} else {
		left = strings.Join([]string{
			styles.Key("↑/↓") + " scroll",
			styles.Key("Tab") + " compose",
			styles.Key("w") + " connect",
			styles.Key("r") + " reload",
			styles.Key("c") + " copy sender",
			styles.Key("t") + " copy tx",
			styles.Key("x") + " tx QR",
			styles.Key("a") + " accounts",
			styles.Key("s") + " settings",
			styles.Key("h") + " home",
			styles.Key("l") + " log",
			styles.Key("Esc") + " dismiss",
			styles.Key("q") + " quit",
		}, "   ")
	}

	return styles.NavStyle.Width(width).Render(left)
}

// PageSize is how many waves fit in height rows
func PageSize(height int) int {
	return helpers.Max(1, height/linesPerWave)
}

// Render renders at most maxItems waves starting at s.Offset. originY is the
// screen row of the first line; area X offsets are relative to the content.
func Render(width, maxItems, originY int, s State) (string, []config.ClickableArea) {
	header := styles.TitleStyle.Render("👋 Wave Portal")
	counter := styles.Muted(fmt.Sprintf("%d total waves", s.Total))
	top := header + "  " + counter

	switch {
	case s.Loading && len(s.Records) == 0:
		return top + "\n\n" + s.Spinner + " loading waves…", nil
	case s.LoadErr != nil && len(s.Records) == 0:
		msg := lipgloss.NewStyle().Foreground(styles.CWarn).Render("⚠ Could not load waves: " + s.LoadErr.Error())
		return top + "\n\n" + msg, nil
	case len(s.Records) == 0:
		return top + "\n\n" + styles.Muted("No waves yet. Be the first!"), nil
	}

	end := helpers.Min(len(s.Records), s.Offset+maxItems)
	var items []string
	var areas []config.ClickableArea
	y := originY + 2

	for i := s.Offset; i < end; i++ {
		r := s.Records[i]
		sender := r.Sender.Hex()

		marker := "  "
		if i == s.Selected {
			marker = lipgloss.NewStyle().Foreground(styles.CAccent2).Bold(true).Render("▶ ")
		}

		who := lipgloss.NewStyle().Foreground(helpers.SenderColor(sender)).Bold(true).Render(helpers.ShortenAddr(sender))
		if helpers.SameAccount(r.Sender, s.Self) {
			who += lipgloss.NewStyle().Foreground(styles.CAccent).Render(" (you)")
		}
		when := styles.Muted(helpers.WaveTime(r.Timestamp))

		body := lipgloss.NewStyle().
			Foreground(styles.CText).
			Width(helpers.Max(10, width-6)).
			Height(2).
			MaxHeight(2).
			Render(r.Message)

		items = append(items, marker+who+"  "+when+"\n  "+strings.ReplaceAll(body, "\n", "\n  "))

		areas = append(areas, config.ClickableArea{
			X:       2,
			Y:       y,
			Width:   lipgloss.Width(helpers.ShortenAddr(sender)),
			Height:  1,
			Address: sender,
		})
		y += linesPerWave
	}

	more := ""
	if end < len(s.Records) {
		more = "\n" + styles.Muted(fmt.Sprintf("… %d older", len(s.Records)-end))
	}

	return top + "\n\n" + strings.Join(items, "\n\n") + more, areas
}
