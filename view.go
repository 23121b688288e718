package main

import (
	"fmt"
	"strings"

	"wave-portal-tui/config"
	"wave-portal-tui/helpers"
	"wave-portal-tui/rpc"
	"wave-portal-tui/styles"
	"wave-portal-tui/views/accounts"
	"wave-portal-tui/views/compose"
	"wave-portal-tui/views/feed"
	"wave-portal-tui/views/home"
	logview "wave-portal-tui/views/log"
	"wave-portal-tui/views/settings"

	"github.com/charmbracelet/lipgloss"
)

// -------------------- VIEW --------------------

// dialogBoxStyle frames the modal dialogs
var dialogBoxStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("#874BFD")).
	Padding(1, 0).
	BorderTop(true).
	BorderLeft(true).
	BorderRight(true).
	BorderBottom(true)

func (m model) renderRPCDeleteDialog() string {
	buttonStyle := styles.ButtonStyle.MarginTop(1)
	activeButtonStyle := styles.ActiveButtonStyle.MarginTop(1).MarginRight(2)

	msg := helpers.FadeString("Are you sure you want to delete the RPC endpoint "+m.deleteRPCDialogName+"?", "#F25D94", "#EDFF82")
	question := lipgloss.NewStyle().Width(50).Align(lipgloss.Center).Render(msg)

	var okButton, cancelButton string
	if m.deleteRPCDialogYesSelected {
		okButton = activeButtonStyle.Render("Yes")
		cancelButton = buttonStyle.Render("No")
	} else {
		okButton = buttonStyle.MarginRight(2).Render("Yes")
		cancelButton = activeButtonStyle.MarginRight(0).Render("No")
	}

	buttons := lipgloss.JoinHorizontal(lipgloss.Top, okButton, cancelButton)
	ui := lipgloss.JoinVertical(lipgloss.Center, question, buttons)

	return lipgloss.Place(
		m.w, m.h,
		lipgloss.Center, lipgloss.Center,
		dialogBoxStyle.Render(ui),
	)
}

func (m model) renderPasswordDialog() string {
	content := lipgloss.NewStyle().Width(56).Padding(0, 2).Render(m.passwordForm.View())
	return lipgloss.Place(
		m.w, m.h,
		lipgloss.Center, lipgloss.Center,
		dialogBoxStyle.Render(content),
	)
}

func (m model) renderTxPanel() string {
	url := rpc.TxURL(m.cfg.Explorer, m.lastTx)

	content := styles.TitleStyle.Render("Last Transaction") + "\n\n"
	content += rpc.GenerateQRCode(url) + "\n"
	content += lipgloss.NewStyle().Foreground(cAccent).Render(m.lastTx.Hex()) + "\n"
	content += styles.Muted(url)
	content += "\n\n" + styles.Muted("Scan to open the transaction in a block explorer")
	content += "\n" + styles.Muted("t: copy hash • Esc: close")
	if m.copiedMsg != "" {
		content += "\n" + lipgloss.NewStyle().Foreground(cAccent).Bold(true).Render(m.copiedMsg)
	}

	centered := lipgloss.NewStyle().Width(max(0, m.w-8)).Align(lipgloss.Center).Render(content)
	panel := panelStyle.Width(max(0, m.w-4)).Render(centered)
	return appStyle.Render(lipgloss.Place(
		m.w, m.h,
		lipgloss.Center, lipgloss.Center,
		panel,
	))
}

func (m *model) globalHeader() string {
	availableWidth := max(0, m.w-8) // Account for panel padding

	var addrDisplay string
	if m.sess.HasAccount() {
		label := helpers.ShortenAddr(m.sess.Account.Hex())
		if name := m.nickname(m.sess.Account.Hex()); name != "" {
			label = name + " " + label
		}
		addrDisplay = lipgloss.NewStyle().
			Foreground(cAccent2).
			Bold(true).
			Render("Account: " + helpers.FadeString(label, "#F25D94", "#EDFF82"))
	} else {
		addrDisplay = lipgloss.NewStyle().
			Foreground(cMuted).
			Render("Account: not connected")
	}

	// RPC Status with green dot
	var statusIcon string
	var statusColor lipgloss.Color
	var statusText string

	switch {
	case m.rpcURL == "":
		statusIcon, statusColor, statusText = "○", styles.CError, "No RPC"
	case m.rpcConnecting:
		statusIcon, statusColor, statusText = "○", styles.CError, "Connecting..."
	case !m.rpcConnected:
		statusIcon, statusColor, statusText = "○", styles.CError, "Connection Failed"
	default:
		statusIcon, statusColor = "●", cAccent
		statusText = "Connected"
		if r, ok := m.cfg.ActiveRPC(); ok && r.URL == m.rpcURL && r.Name != "" {
			statusText = r.Name
		}
		if m.sess.ChainKnown() {
			network := helpers.NetworkName(m.sess.ChainID)
			if !m.portal.IsTargetNetwork() {
				statusColor = cWarn
			}
			statusText += " · " + network
		}
	}

	rpcDisplay := lipgloss.NewStyle().
		Foreground(statusColor).
		Bold(true).
		Render(statusIcon + " " + statusText)

	titleText := lipgloss.NewStyle().
		Bold(true).
		Render(helpers.FadeString("wave portal", "#7EE787", "#82CFFD"))

	addrWidth := lipgloss.Width(addrDisplay)
	rpcWidth := lipgloss.Width(rpcDisplay)
	titleWidth := lipgloss.Width(titleText)
	totalOtherWidth := addrWidth + rpcWidth + titleWidth

	var headerLine string
	if totalOtherWidth+4 > availableWidth {
		// Not enough space, stack vertically
		headerLine = addrDisplay + "\n" + titleText + "\n" + rpcDisplay
	} else {
		// Three-column layout: Account | Title (centered) | RPC
		remainingSpace := availableWidth - totalOtherWidth
		leftPadding := remainingSpace / 2
		rightPadding := remainingSpace - leftPadding

		headerLine = addrDisplay + strings.Repeat(" ", max(1, leftPadding)) + titleText + strings.Repeat(" ", max(1, rightPadding)) + rpcDisplay
	}

	separator := lipgloss.NewStyle().
		Foreground(cBorder).
		Render(strings.Repeat("─", availableWidth))

	return headerLine + "\n" + separator
}

// renderBanners stacks the network notice and the pending banners, newest last
func (m model) renderBanners() string {
	width := max(0, m.w-4)
	var out []string
	if m.sess.ChainKnown() && !m.portal.IsTargetNetwork() {
		target := m.portal.TargetChainID()
		out = append(out, styles.Banner(width, cWarn, fmt.Sprintf(
			"You are on %s. Please switch to %s (chain %d) to send waves.",
			helpers.NetworkName(m.sess.ChainID), helpers.NetworkName(target), target)))
	}
	if m.liveStopped {
		out = append(out, styles.Banner(width, cWarn, "Live updates stopped. Press r to reconnect."))
	}
	for _, b := range m.banners {
		out = append(out, styles.Banner(width, b.color, b.text))
	}
	return strings.Join(out, "\n")
}

func (m *model) View() string {
	if m.passwordForm != nil {
		return m.renderPasswordDialog()
	}
	if m.showTxPanel {
		return m.renderTxPanel()
	}

	// Clear clickable areas for fresh render
	m.clickableAreas = nil

	headerPanel := panelStyle.Width(max(0, m.w-2)).Render(m.globalHeader())
	bannerBlock := m.renderBanners()
	top := headerPanel
	if bannerBlock != "" {
		top = lipgloss.JoinVertical(lipgloss.Left, headerPanel, bannerBlock)
	}
	topHeight := lipgloss.Height(top)

	// Render log panel only if enabled
	var logPanel string
	if m.logEnabled {
		// Ensure viewport height stays in sync with the rendered panel
		m.logViewport.Height = logview.Height(m.h)
		logPanel = logview.Render(m.w, m.h, m.logReady, m.logSpinner.View(), m.logViewport)
	}

	// panel border and padding before the first content row and column
	const contentTop, contentLeft = 2, 3

	var pageContent string
	var nav string

	switch m.activePage {
	case config.PageHome:
		summary := fmt.Sprintf("%d waves so far on %s", m.total, helpers.ShortenAddr(m.portal.ContractAddress().Hex()))
		if m.sess.HasAccount() {
			summary += " • waving as " + helpers.ShortenAddr(m.sess.Account.Hex())
		}
		pageContent = panelStyle.Width(max(0, m.w-2)).Render(home.Render(m.homeForm, summary))
		nav = home.Nav(m.w - 2)

	case config.PageFeed:
		sub := m.portal.Submission()
		composeView := compose.Render(m.input, compose.State{
			Connected: m.sess.HasAccount(),
			OnTarget:  m.portal.IsTargetNetwork(),
			Focused:   m.composing,
			CanSubmit: sub.CanSubmit(),
			Phase:     sub.State(),
			LastTx:    sub.LastTxHash(),
			Spinner:   m.spin.View(),
		})
		nav = feed.Nav(m.w-2, m.composing)

		// rows left for the waves: everything minus the surrounding chrome
		used := topHeight + lipgloss.Height(composeView) + 1 + 2*contentTop + lipgloss.Height(nav) + 2
		if logPanel != "" {
			used += lipgloss.Height(logPanel)
		}
		m.pageSize = feed.PageSize(max(0, m.h-used))

		originY := topHeight + contentTop + lipgloss.Height(composeView) + 1
		feedView, areas := feed.Render(max(0, m.w-8), m.pageSize, originY, feed.State{
			Records:  m.records,
			Total:    m.total,
			Loading:  m.portal.Loading() && m.sess.HasAccount(),
			LoadErr:  m.portal.LoadErr(),
			Self:     m.sess.Account,
			Selected: m.selected,
			Offset:   m.offset,
			Spinner:  m.spin.View(),
		})
		for _, area := range areas {
			area.X += contentLeft
			m.clickableAreas = append(m.clickableAreas, area)
		}

		pageContent = panelStyle.Width(max(0, m.w-2)).Render(composeView + "\n\n" + feedView)

	case config.PageAccounts:
		connected := ""
		if m.sess.HasAccount() {
			connected = m.sess.Account.Hex()
		}
		listContent, areas := accounts.Render(m.accountEntries, m.selectedAcct, connected)
		// title, subtitle and a blank line precede the list
		listTop := topHeight + contentTop + 3
		for _, area := range areas {
			area.X += contentLeft
			area.Y += listTop
			m.clickableAreas = append(m.clickableAreas, area)
		}

		detailsContent := accounts.RenderDetails(m.details, m.nickname(m.details.Address), m.cfg.Explorer, m.loading, m.copiedMsg, m.spin.View())
		if m.nicknaming && m.form != nil {
			detailsContent = styles.TitleStyle.Render("Nickname") + "\n\n" + m.form.View()
		}

		// Calculate panel widths (split 40/60)
		listWidth := max(0, (m.w*4)/10-2)
		detailsWidth := max(0, (m.w*6)/10-2)

		leftPanel := panelStyle.Width(listWidth).Render(listContent)
		rightPanel := panelStyle.
			Width(detailsWidth + 1).
			Height(max(0, lipgloss.Height(leftPanel)-2)).
			Render(detailsContent)

		pageContent = lipgloss.JoinHorizontal(lipgloss.Top, leftPanel, rightPanel)
		nav = accounts.Nav(m.w-2, m.nicknaming)

	case config.PageSettings:
		if m.showRPCDeleteDialog {
			return m.renderRPCDeleteDialog()
		}
		status := settings.Status{ChainID: m.sess.ChainID, TargetChain: m.portal.TargetChainID()}
		if m.rpcConnected {
			status.ConnectedURL = m.rpcURL
		}
		settingsContent := settings.Render(m.cfg.RPCURLs, m.selectedRPCIdx, status)
		if (m.settingsMode == "add" || m.settingsMode == "edit") && m.form != nil {
			settingsContent = styles.TitleStyle.Render("RPC Settings") + "\n\n" + m.form.View()
		}
		pageContent = panelStyle.Width(max(0, m.w-2)).Render(settingsContent)
		nav = settings.Nav(m.w-2, m.settingsMode)
	}

	sections := []string{top, pageContent, nav}
	if logPanel != "" {
		sections = append(sections, logPanel)
	}
	return appStyle.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}
