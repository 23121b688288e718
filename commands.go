package main

import (
	"context"
	"strings"
	"time"

	"wave-portal-tui/portal"
	"wave-portal-tui/rpc"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"
)

// -------------------- COMMAND FUNCTIONS --------------------
// Functions that return tea.Cmd for async operations

// dialRPC connects the wallet provider to an Ethereum node
func dialRPC(ctx context.Context, wallet *rpc.Provider, url string) tea.Cmd {
	return func() tea.Msg {
		dialCtx, cancel := context.WithTimeout(ctx, 8*time.Second)
		defer cancel()
		changed, err := wallet.Dial(dialCtx, url)
		return rpcConnectedMsg{url: url, changed: changed, err: err}
	}
}

// startPortal registers the session watches and adopts an unlocked account
func startPortal(ctx context.Context, pt *portal.Portal) tea.Cmd {
	return func() tea.Msg {
		return portalStartedMsg{err: pt.Start(ctx)}
	}
}

// connectWallet asks the wallet for an account, prompting for its passphrase
func connectWallet(ctx context.Context, pt *portal.Portal) tea.Cmd {
	return func() tea.Msg {
		return walletConnectedMsg{err: pt.Connect(ctx)}
	}
}

// submitWave sends message and waits until it is mined
func submitWave(ctx context.Context, pt *portal.Portal, message string) tea.Cmd {
	return func() tea.Msg {
		return waveSubmittedMsg{message: message, err: pt.Submit(ctx, message)}
	}
}

// loadAccountDetails fetches the balance and nonce of addr
func loadAccountDetails(client *rpc.Client, addr common.Address) tea.Cmd {
	return func() tea.Msg {
		return accountDetailsMsg{d: rpc.LoadAccountDetails(client, addr)}
	}
}

// copyToClipboard copies text to clipboard
func copyToClipboard(text, what string) tea.Cmd {
	return func() tea.Msg {
		err := clipboard.WriteAll(text)
		if err == nil {
			return clipboardCopiedMsg{what: what}
		}
		return nil
	}
}

// clipboardFeedback is how long the copy confirmation stays up
const clipboardFeedback = 2 * time.Second

// clearClipboard waits then clears the clipboard feedback
func clearClipboard() tea.Cmd {
	return tea.Tick(clipboardFeedback, func(t time.Time) tea.Msg {
		return clearClipboardMsg{}
	})
}

// clearBanner expires banner id
func clearBanner(id int) tea.Cmd {
	return tea.Tick(bannerTimeout, func(t time.Time) tea.Msg {
		return bannerExpiredMsg{id: id}
	})
}

// initLogViewport initializes the log viewport
func initLogViewport() tea.Cmd {
	return func() tea.Msg {
		return logInitMsg{}
	}
}

// -------------------- MODEL HELPER METHODS --------------------
// These methods help with state management and command generation

// addLog adds a log entry with timestamp and type
func (m *model) addLog(logType, message string) {
	if m.logger == nil {
		return
	}

	switch logType {
	case "info":
		m.logger.Info(message)
	case "success":
		m.logger.Info("✓", "msg", message)
	case "error":
		m.logger.Error(message)
	case "warning":
		m.logger.Warn(message)
	case "debug":
		m.logger.Debug(message)
	default:
		m.logger.Print(message)
	}

	m.updateLogViewport()
}

// updateLogViewport refreshes the viewport content with log output
func (m *model) updateLogViewport() {
	if !m.logEnabled || !m.logReady || m.logSink == nil {
		return
	}

	atBottom := m.logViewport.AtBottom()
	m.logViewport.SetContent(m.logSink.String())
	// Keep following the tail unless the user scrolled up
	if atBottom {
		m.logViewport.GotoBottom()
	}
}

// loadSelectedAccountDetails loads details for the highlighted account,
// serving them from the cache when possible
func (m *model) loadSelectedAccountDetails(force bool) tea.Cmd {
	if len(m.accountEntries) == 0 {
		return nil
	}
	addr := m.accountEntries[m.selectedAcct].Address
	if cached, ok := m.detailsCache[strings.ToLower(addr)]; ok && !force {
		m.details = cached
		m.loading = false
		return nil
	}

	m.loading = true
	m.details = rpc.AccountDetails{Address: addr}
	return loadAccountDetails(m.wallet.Client(), common.HexToAddress(addr))
}

// textInputActive returns true if any text input is currently active
func (m model) textInputActive() bool {
	if m.composing {
		return true
	}
	if m.passwordForm != nil {
		return true
	}
	if m.nicknaming && m.form != nil {
		return true
	}
	if (m.settingsMode == "add" || m.settingsMode == "edit") && m.form != nil {
		return true
	}
	return false
}
