package accounts

import (
	"fmt"
	"strings"

	"wave-portal-tui/config"
	"wave-portal-tui/helpers"
	"wave-portal-tui/rpc"
	"wave-portal-tui/styles"

	"github.com/charmbracelet/lipgloss"
)

// Nav returns the navigation bar for the accounts view
func Nav(width int, nicknaming bool) string {
	var left string
	if nicknaming {
		left = strings.Join([]string{
			styles.Key("Enter") + " save",
			styles.Key("Esc") + " cancel",
		}, "   ")
	} else {
		left = strings.Join([]string{
			styles.Key("↑/↓") + " move",
			styles.Key("Enter") + " use account",
			styles.Key("n") + " nickname",
			styles.Key("c") + " copy address",
			styles.Key("r") + " refresh",
			styles.Key("f") + " feed",
			styles.Key("l") + " log",
			styles.Key("Esc") + " back",
		}, "   ")
	}

	return styles.NavStyle.Width(width).Render(left)
}

// RenderList renders the keystore accounts. connected is the address of the
// session account, if any. Areas are relative to the first line of the list.
func RenderList(entries []config.AccountEntry, selectedIdx int, connected string) (string, []config.ClickableArea) {
	var listItems []string
	var areas []config.ClickableArea
	currentY := 0

	if len(entries) == 0 {
		listItems = append(listItems, styles.Muted("The keystore has no accounts."))
		listItems = append(listItems, styles.Muted("Create one with ")+styles.Key("geth account new")+styles.Muted(" or set WAVE_KEYSTORE."))
		return strings.Join(listItems, "\n\n"), areas
	}

	for i, e := range entries {
		var itemStyle lipgloss.Style
		var marker, fullAddr string
		shortAddr := helpers.ShortenAddr(e.Address)

		if i == selectedIdx {
			marker = lipgloss.NewStyle().Foreground(styles.CAccent2).Bold(true).Render("▶ ")
			itemStyle = lipgloss.NewStyle().Foreground(styles.CAccent2).Bold(true)
			fullAddr = lipgloss.NewStyle().Foreground(styles.CText).Render(e.Address)
		} else {
			marker = "  "
			itemStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#e1a2aa"))
			fullAddr = helpers.FadeString(e.Address, "#7D5AFC", "#FF87D7")
			shortAddr = helpers.FadeString(shortAddr, "#F25D94", "#EDFF82")
		}

		if e.Name != "" {
			shortAddr = e.Name + " - " + shortAddr
		}
		if e.Active {
			shortAddr = "★ " + shortAddr
		}
		if helpers.SameAddress(e.Address, connected) {
			shortAddr += lipgloss.NewStyle().Foreground(styles.CAccent).Render("  ● unlocked")
		}
		listItems = append(listItems, marker+itemStyle.Render(shortAddr)+"\n  "+fullAddr)

		areas = append(areas, config.ClickableArea{
			X:       2,
			Y:       currentY,
			Width:   42,
			Height:  2,
			Address: e.Address,
		})
		currentY += 3
	}

	return strings.Join(listItems, "\n\n"), areas
}

// Render renders the full accounts list
func Render(entries []config.AccountEntry, selectedIdx int, connected string) (string, []config.ClickableArea) {
	header := styles.TitleStyle.Render("Accounts")
	subtitle := styles.Muted("Keystore accounts available for waving")

	listView, areas := RenderList(entries, selectedIdx, connected)
	statusBar := styles.Muted(fmt.Sprintf("%d accounts", len(entries)))

	return header + "\n" + subtitle + "\n\n" + listView + "\n\n" + statusBar, areas
}

// RenderDetails renders the on-chain state of one account
func RenderDetails(d rpc.AccountDetails, nickname string, explorer string, loading bool, copiedMsg string, spinnerView string) string {
	h := styles.TitleStyle.Render("Account Details")

	addrStyle := lipgloss.NewStyle().Foreground(styles.CMuted).Underline(true)
	sub := addrStyle.Render(d.Address)
	if explorer != "" {
		// OSC 8 hyperlink
		url := fmt.Sprintf("%s/address/%s", strings.TrimRight(explorer, "/"), d.Address)
		sub = fmt.Sprintf("\x1b]8;;%s\x1b\\%s\x1b]8;;\x1b\\", url, sub)
	}
	if nickname != "" {
		sub = lipgloss.NewStyle().Foreground(styles.CAccent2).Italic(true).Render("\""+nickname+"\"") + "  " + sub
	}
	if copiedMsg != "" {
		sub += "  " + lipgloss.NewStyle().Foreground(styles.CAccent).Render(copiedMsg)
	}

	if loading {
		return h + "\n" + sub + "\n\n" + spinnerView + " fetching balance…"
	}

	if d.ErrMessage != "" {
		msg := lipgloss.NewStyle().Foreground(styles.CWarn).Render("⚠ " + d.ErrMessage)
		hint := styles.Muted("Press ") + styles.Key("r") + styles.Muted(" to refresh.")
		return h + "\n" + sub + "\n\n" + msg + "\n\n" + hint
	}

	ethLine := fmt.Sprintf("%s  %s",
		lipgloss.NewStyle().Foreground(styles.CAccent2).Bold(true).Render("ETH"),
		lipgloss.NewStyle().Foreground(styles.CText).Render(helpers.FormatETH(d.EthWei)),
	)
	nonceLine := styles.Muted(fmt.Sprintf("nonce %d", d.Nonce))

	lines := []string{h, sub, "", ethLine, nonceLine}
	if !d.LoadedAt.IsZero() {
		lines = append(lines, "", styles.Muted("loaded "+d.LoadedAt.Format("15:04:05")))
	}
	return strings.Join(lines, "\n")
}
