package settings

import (
	"fmt"
	"strings"

	"wave-portal-tui/config"
	"wave-portal-tui/styles"

	"github.com/charmbracelet/lipgloss"
)

// Status is the live state of the active endpoint.
type Status struct {
	ConnectedURL string
	ChainID      uint64
	TargetChain  uint64
}

// Nav returns the navigation bar for settings view
func Nav(width int, settingsMode string) string {
	var left string
	if settingsMode == "add" || settingsMode == "edit" {
		left = strings.Join([]string{
			styles.Key("l") + " debug log",
			styles.Key("Esc") + " cancel",
		}, "   ")
	} else {
		left = strings.Join([]string{
			styles.Key("↑/↓") + " select",
			styles.Key("Enter") + " activate",
			styles.Key("a") + " add",
			styles.Key("e") + " edit",
			styles.Key("d") + " delete",
			styles.Key("f") + " feed",
			styles.Key("h") + " home",
			styles.Key("l") + " debug log",
			styles.Key("Esc") + " back",
		}, "   ")
	}

	return styles.NavStyle.Width(width).Render(left)
}

// Render renders the RPC settings view
func Render(rpcURLs []config.RPCUrl, selectedIdx int, status Status) string {
	h := styles.TitleStyle.Render("RPC Settings")
	lines := []string{h, ""}

	if len(rpcURLs) == 0 {
		lines = append(lines, styles.Muted("No RPC URLs configured."))
		lines = append(lines, "")
		lines = append(lines, styles.Muted("Press ")+styles.Key("a")+styles.Muted(" to add a websocket endpoint (ws://…)."))
		return strings.Join(lines, "\n")
	}

	lines = append(lines, styles.Muted("Configured RPC Endpoints:"))
	lines = append(lines, "")

	for i, rpc := range rpcURLs {
		var marker string
		if rpc.Active {
			marker = lipgloss.NewStyle().Foreground(styles.CAccent).Render("● ")
		} else {
			marker = styles.Muted("○ ")
		}

		nameStyle := lipgloss.NewStyle().Foreground(styles.CText)
		urlStyle := lipgloss.NewStyle().Foreground(styles.CMuted)

		if i == selectedIdx {
			nameStyle = nameStyle.Background(styles.CPanel).Foreground(styles.CAccent2).Bold(true)
			urlStyle = urlStyle.Background(styles.CPanel)
			marker = lipgloss.NewStyle().Foreground(styles.CAccent2).Render("▶ ")
		}

		line := marker + nameStyle.Render(rpc.Name)
		if rpc.URL == status.ConnectedURL && status.ChainID != 0 {
			line += "  " + chainBadge(status.ChainID, status.TargetChain)
		}
		lines = append(lines, line)
		lines = append(lines, "  "+urlStyle.Render(rpc.URL))
		if !strings.HasPrefix(rpc.URL, "ws") {
			lines = append(lines, "  "+lipgloss.NewStyle().Foreground(styles.CWarn).Render("live updates need a websocket endpoint"))
		}
		lines = append(lines, "")
	}

	return strings.Join(lines, "\n")
}

func chainBadge(chainID, target uint64) string {
	text := fmt.Sprintf("chain %d", chainID)
	if chainID == target {
		return lipgloss.NewStyle().Foreground(styles.CAccent).Render(text)
	}
	return lipgloss.NewStyle().Foreground(styles.CWarn).Render(text + " (expected " + fmt.Sprint(target) + ")")
}
