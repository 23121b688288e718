package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"wave-portal-tui/config"
	"wave-portal-tui/helpers"
	"wave-portal-tui/provider"
	"wave-portal-tui/rpc"
	"wave-portal-tui/styles"
	"wave-portal-tui/views/home"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
)

// -------------------- TEMP FORM STORAGE --------------------
// Temporary form field storage (package-level to avoid pointer-to-copy issues)
var (
	tempRPCFormName   string
	tempRPCFormURL    string
	tempNicknameField string
	tempPassword      string
)

func validateRPCURL(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("url is required")
	}
	for _, scheme := range []string{"ws://", "wss://", "http://", "https://"} {
		if strings.HasPrefix(s, scheme) {
			return nil
		}
	}
	return fmt.Errorf("url must start with ws://, wss://, http:// or https://")
}

func (m *model) createAddRPCForm() {
	tempRPCFormName = ""
	tempRPCFormURL = ""

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("RPC Name").
				Description("A friendly name for this RPC endpoint").
				Value(&tempRPCFormName).
				Placeholder("My Rinkeby Node"),

			huh.NewInput().
				Title("RPC URL").
				Description("A websocket URL receives live waves (wss://...)").
				Value(&tempRPCFormURL).
				Placeholder("wss://rinkeby.infura.io/ws/v3/...").
				Validate(validateRPCURL),
		),
	).WithTheme(huh.ThemeCatppuccin())

	// Initialize the form
	m.form.Init()
}

func (m *model) createEditRPCForm(idx int) {
	if idx < 0 || idx >= len(m.cfg.RPCURLs) {
		return
	}

	rpcURL := m.cfg.RPCURLs[idx]
	tempRPCFormName = rpcURL.Name
	tempRPCFormURL = rpcURL.URL

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("RPC Name").
				Value(&tempRPCFormName).
				Placeholder("My Node"),

			huh.NewInput().
				Title("RPC URL").
				Value(&tempRPCFormURL).
				Placeholder("wss://...").
				Validate(validateRPCURL),
		),
	).WithTheme(huh.ThemeCatppuccin())

	// Initialize the form
	m.form.Init()
}

func (m *model) createNicknameForm() {
	tempNicknameField = m.nickname(m.details.Address)

	placeholderText := "Enter nickname"
	if tempNicknameField != "" {
		placeholderText = tempNicknameField
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Account Nickname").
				Description("Set a friendly name for this account").
				Value(&tempNicknameField).
				Placeholder(placeholderText),
		),
	).WithTheme(huh.ThemeCatppuccin())

	// Initialize the form
	m.form.Init()
}

func (m *model) createPasswordForm(account accounts.Account) {
	tempPassword = ""

	title := "Unlock " + helpers.ShortenAddr(account.Address.Hex())
	if name := m.nickname(account.Address.Hex()); name != "" {
		title = "Unlock " + name
	}

	m.passwordForm = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(title).
				Description("Keystore passphrase (Esc to cancel)").
				EchoMode(huh.EchoModePassword).
				Value(&tempPassword),
		),
	).WithTheme(huh.ThemeCatppuccin())

	m.passwordForm.Init()
}

// answerPassword replies to the pending passphrase request and closes the form
func (m *model) answerPassword(password string, err error) {
	if m.passwordReply != nil {
		m.passwordReply <- passwordReply{password: password, err: err}
	}
	m.passwordReply = nil
	m.passwordForm = nil
	tempPassword = ""
}

// -------------------- UPDATE --------------------

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// app messages are handled no matter which form is open
	if cmd, handled := m.handleEvent(msg); handled {
		return m, cmd
	}

	if cmd, handled := m.updateForms(msg); handled {
		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	case tea.MouseMsg:
		return m, m.handleMouse(msg)
	}
	return m, nil
}

// handleEvent folds the results of commands and the portal's notifications
func (m *model) handleEvent(msg tea.Msg) (tea.Cmd, bool) {
	switch msg := msg.(type) {

	case logInitMsg:
		if !m.logEnabled {
			return nil, true
		}
		m.logReady = true
		m.addLog("info", "Logger enabled")
		return nil, true

	case tea.WindowSizeMsg:
		m.w, m.h = msg.Width, msg.Height
		m.input.Width = max(20, msg.Width-24)

		// Only initialize viewport if log is enabled
		if m.logEnabled {
			// Width accounts for border and padding
			m.logViewport.Width = max(0, msg.Width-6)
			m.updateLogViewport()
		}
		return nil, true

	case spinner.TickMsg:
		var cmd tea.Cmd
		var cmds []tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		cmds = append(cmds, cmd)
		// Update log spinner too if log is enabled but not ready
		if m.logEnabled && !m.logReady {
			m.logSpinner, cmd = m.logSpinner.Update(msg)
			cmds = append(cmds, cmd)
		}
		// core components log on their own goroutines
		m.updateLogViewport()
		return tea.Batch(cmds...), true

	case rpcConnectedMsg:
		m.rpcConnecting = false
		if msg.err != nil {
			m.rpcConnected = false
			m.addLog("error", fmt.Sprintf("RPC connection failed: `%s`", msg.err.Error()))
			return m.pushBanner(styles.CError, "Could not reach "+msg.url), true
		}
		m.rpcConnected = true
		m.rpcURL = msg.url
		m.detailsCache = make(map[string]rpc.AccountDetails)
		m.addLog("success", fmt.Sprintf("RPC connected to `%s`", msg.url))
		if !m.started {
			m.started = true
			return startPortal(m.ctx, m.portal), true
		}
		m.liveStopped = false
		// a chain change resets the session on its own
		if !msg.changed {
			m.portal.Restart("rpc endpoint changed")
		}
		return nil, true

	case portalStartedMsg:
		m.refreshSession()
		switch {
		case errors.Is(msg.err, provider.ErrNoWalletProvider):
			m.addLog("warning", fmt.Sprintf("No keystore accounts found in `%s`", m.cfg.KeystoreDir))
		case msg.err != nil:
			m.addLog("error", "Starting the session failed: "+msg.err.Error())
		case m.sess.HasAccount():
			m.addLog("success", fmt.Sprintf("Using unlocked account `%s`", helpers.ShortenAddr(m.sess.Account.Hex())))
		default:
			m.addLog("info", "Press w to unlock an account")
		}
		return nil, true

	case walletConnectedMsg:
		m.connecting = false
		m.refreshSession()
		switch {
		case errors.Is(msg.err, provider.ErrUserRejected):
			m.addLog("warning", "Unlock cancelled: "+msg.err.Error())
		case msg.err != nil:
			m.addLog("error", "Connecting the wallet failed: "+msg.err.Error())
			return m.pushBanner(styles.CError, "Could not connect the wallet."), true
		default:
			m.addLog("success", fmt.Sprintf("Connected `%s`", helpers.ShortenAddr(m.sess.Account.Hex())))
		}
		return nil, true

	case waveSubmittedMsg:
		switch {
		case msg.err == nil:
			m.input.SetValue(m.portal.Submission().Draft())
			m.addLog("success", fmt.Sprintf("Wave `%s` mined", msg.message))
		case errors.Is(msg.err, provider.ErrWrongNetwork):
			m.addLog("warning", "Waving is disabled on this network")
		case errors.Is(msg.err, provider.ErrInvalidState), errors.Is(msg.err, provider.ErrInvalidArgument):
			m.addLog("debug", "Wave not sent: "+msg.err.Error())
		default:
			// the banner comes with the submission error notification
			m.addLog("error", "Wave failed: "+msg.err.Error())
		}
		return nil, true

	case sessionChangedMsg:
		prev := m.sess
		m.refreshSession()
		if !helpers.SameAccount(prev.Account, m.sess.Account) {
			if m.sess.HasAccount() {
				m.addLog("info", fmt.Sprintf("Account `%s` connected", helpers.ShortenAddr(m.sess.Account.Hex())))
			} else if prev.HasAccount() {
				m.addLog("info", "Account disconnected")
			}
		}
		if prev.ChainID != m.sess.ChainID && m.sess.ChainKnown() {
			m.addLog("info", fmt.Sprintf("Network is %s", helpers.NetworkName(m.sess.ChainID)))
		}
		if !m.sess.HasAccount() || !m.portal.IsTargetNetwork() {
			m.composing = false
			m.input.Blur()
		}
		return nil, true

	case feedChangedMsg:
		before := len(m.records)
		m.refreshSession()
		// keep the highlighted wave in place when newer ones arrive
		if delta := len(m.records) - before; delta > 0 && before > 0 && m.selected > 0 {
			m.selected += delta
			m.offset += delta
		}
		if err := m.portal.LoadErr(); err != nil {
			m.addLog("error", "Loading waves failed: "+err.Error())
		}
		return nil, true

	case prizeWonMsg:
		amount := helpers.FormatETH(msg.prize.Amount)
		m.addLog("success", "Prize won: "+amount)
		return m.pushBanner(styles.CPrize, fmt.Sprintf("Congratulations! You have won %s!", amount)), true

	case submissionStateMsg:
		if msg.state.TxHash != (common.Hash{}) {
			m.lastTx = msg.state.TxHash
		}
		m.addLog("debug", "Submission "+msg.state.State)
		return nil, true

	case submissionErrorMsg:
		return m.pushBanner(styles.CError, msg.failure.Message), true

	case liveStoppedMsg:
		m.liveStopped = true
		m.addLog("error", fmt.Sprintf("Live updates stopped (%s): %v", msg.stopped.Event, msg.stopped.Err))
		return nil, true

	case bannerExpiredMsg:
		m.dropBanner(msg.id)
		return nil, true

	case accountDetailsMsg:
		d := msg.d
		m.detailsCache[strings.ToLower(d.Address)] = d
		if strings.EqualFold(m.details.Address, d.Address) {
			m.loading = false
			m.details = d
		}
		if d.ErrMessage != "" {
			m.addLog("error", fmt.Sprintf("Account `%s`: %s", helpers.ShortenAddr(d.Address), d.ErrMessage))
		} else {
			m.addLog("success", fmt.Sprintf("Loaded details for `%s` - ETH: %s", helpers.ShortenAddr(d.Address), helpers.FormatETH(d.EthWei)))
		}
		return nil, true

	case clipboardCopiedMsg:
		m.copiedMsg = "✓ Copied " + msg.what
		m.copiedMsgTime = time.Now()
		m.addLog("info", "Copied "+msg.what+" to clipboard")
		return clearClipboard(), true

	case clearClipboardMsg:
		if time.Now().Sub(m.copiedMsgTime) >= clipboardFeedback {
			m.copiedMsg = ""
		}
		return nil, true

	case passwordRequestMsg:
		if m.passwordForm != nil {
			// one prompt at a time
			msg.reply <- passwordReply{err: rpc.ErrPromptCancelled}
			return nil, true
		}
		m.composing = false
		m.input.Blur()
		m.passwordReply = msg.reply
		m.createPasswordForm(msg.account)
		return nil, true
	}
	return nil, false
}

// updateForms routes msg to the form that owns the screen, if any
func (m *model) updateForms(msg tea.Msg) (tea.Cmd, bool) {
	keyMsg, isKey := msg.(tea.KeyMsg)

	if m.passwordForm != nil {
		if isKey && keyMsg.String() == "esc" {
			m.answerPassword("", rpc.ErrPromptCancelled)
			return nil, true
		}
		form, cmd := m.passwordForm.Update(msg)
		if f, ok := form.(*huh.Form); ok {
			m.passwordForm = f
			switch f.State {
			case huh.StateCompleted:
				m.answerPassword(tempPassword, nil)
				return nil, true
			case huh.StateAborted:
				m.answerPassword("", rpc.ErrPromptCancelled)
				return nil, true
			}
		}
		return cmd, true
	}

	if m.activePage == config.PageAccounts && m.nicknaming && m.form != nil {
		// Intercept ESC key to cancel form
		if isKey && keyMsg.String() == "esc" {
			m.nicknaming = false
			m.form = nil
			return nil, true
		}

		form, cmd := m.form.Update(msg)
		if f, ok := form.(*huh.Form); ok {
			m.form = f

			if m.form.State == huh.StateCompleted {
				m.saveNickname(strings.TrimSpace(tempNicknameField))
				m.nicknaming = false
				m.form = nil
				return nil, true
			}

			if m.form.State == huh.StateAborted {
				m.nicknaming = false
				m.form = nil
				return nil, true
			}
		}
		return cmd, true
	}

	if m.activePage == config.PageSettings && (m.settingsMode == "add" || m.settingsMode == "edit") && m.form != nil {
		// Intercept ESC key to cancel form
		if isKey && keyMsg.String() == "esc" {
			m.settingsMode = "list"
			m.form = nil
			return nil, true
		}

		form, cmd := m.form.Update(msg)
		if f, ok := form.(*huh.Form); ok {
			m.form = f

			if m.form.State == huh.StateCompleted {
				name := strings.TrimSpace(tempRPCFormName)
				url := strings.TrimSpace(tempRPCFormURL)
				if name == "" {
					name = url
				}
				if m.settingsMode == "add" {
					if url != "" {
						m.cfg.RPCURLs = append(m.cfg.RPCURLs, config.RPCUrl{Name: name, URL: url, Active: false})
						m.saveConfig()
						m.addLog("success", fmt.Sprintf("Added RPC endpoint: `%s` (%s)", name, url))
					}
				} else if m.selectedRPCIdx >= 0 && m.selectedRPCIdx < len(m.cfg.RPCURLs) {
					m.cfg.RPCURLs[m.selectedRPCIdx].Name = name
					m.cfg.RPCURLs[m.selectedRPCIdx].URL = url
					m.saveConfig()
					m.addLog("success", fmt.Sprintf("Updated RPC endpoint: `%s`", name))
				}
				m.settingsMode = "list"
				m.form = nil
				// Return without the form's cmd to ensure we're back in list mode
				return nil, true
			}

			if m.form.State == huh.StateAborted {
				m.settingsMode = "list"
				m.form = nil
				return nil, true
			}
		}
		return cmd, true
	}

	if m.activePage == config.PageHome {
		if m.homeForm == nil {
			m.homeForm = home.CreateForm()
		}
		if isKey {
			switch keyMsg.String() {
			case "esc":
				m.homeForm = nil
				m.activePage = config.PageFeed
				return nil, true
			case "ctrl+c":
				return tea.Quit, true
			case "l", "L":
				return m.toggleLog(), true
			}
		}

		form, cmd := m.homeForm.Update(msg)
		if f, ok := form.(*huh.Form); ok {
			m.homeForm = f
			if f.State == huh.StateCompleted {
				m.homeForm = nil
				return m.gotoPage(home.TempSelection), true
			}
			if f.State == huh.StateAborted {
				m.homeForm = nil
				m.activePage = config.PageFeed
				return nil, true
			}
		}
		return cmd, true
	}

	return nil, false
}

// gotoPage switches to the page a menu entry names
func (m *model) gotoPage(name string) tea.Cmd {
	switch name {
	case "accounts":
		m.activePage = config.PageAccounts
		m.refreshAccounts()
		return m.loadSelectedAccountDetails(false)
	case "settings":
		m.activePage = config.PageSettings
		m.settingsMode = "list"
	case "home":
		m.activePage = config.PageHome
		m.homeForm = home.CreateForm()
	default:
		m.activePage = config.PageFeed
	}
	return nil
}

// toggleLog opens or closes the log panel
func (m *model) toggleLog() tea.Cmd {
	m.logEnabled = !m.logEnabled
	if m.logEnabled {
		// Initialize viewport when enabling
		if m.w > 0 {
			m.logViewport.Width = m.w - 6
		}
		m.logReady = false
		m.saveConfig()
		return tea.Batch(initLogViewport(), m.logSpinner.Tick)
	}
	// Clear logs and de-initialize when disabling
	if m.logSink != nil {
		m.logSink.Reset()
	}
	m.logReady = false
	m.saveConfig()
	return nil
}

func (m *model) handleKey(msg tea.KeyMsg) tea.Cmd {
	// Handle transaction panel FIRST (before any other keys)
	if m.showTxPanel {
		switch msg.String() {
		case "t", "ctrl+c":
			return copyToClipboard(m.lastTx.Hex(), "transaction hash")
		case "esc", "enter", "x":
			m.showTxPanel = false
		}
		return nil
	}

	if m.composing {
		return m.handleComposeKey(msg)
	}

	allowMenuHotkeys := !m.textInputActive()
	// global keys
	if allowMenuHotkeys {
		switch msg.String() {
		case "ctrl+c", "q":
			return tea.Quit

		case "l", "L":
			return m.toggleLog()

		case "pageup", "pagedown":
			// Allow scrolling in log viewport when enabled
			if m.logEnabled && m.logReady {
				var cmd tea.Cmd
				m.logViewport, cmd = m.logViewport.Update(msg)
				return cmd
			}

		case "esc":
			if len(m.banners) > 0 {
				m.banners = m.banners[:len(m.banners)-1]
				return nil
			}
		}
	}

	// page-specific behavior
	switch m.activePage {

	case config.PageFeed:
		return m.handleFeedKey(msg)

	case config.PageAccounts:
		return m.handleAccountsKey(msg)

	case config.PageSettings:
		return m.handleSettingsKey(msg)
	}
	return nil
}

func (m *model) handleComposeKey(msg tea.KeyMsg) tea.Cmd {
	sub := m.portal.Submission()
	switch msg.String() {
	case "ctrl+c":
		return tea.Quit
	case "esc", "tab":
		m.composing = false
		m.input.Blur()
		return nil
	case "enter":
		message := m.input.Value()
		sub.SetDraft(message)
		if !sub.CanSubmit() {
			return nil
		}
		m.addLog("info", fmt.Sprintf("Sending wave `%s`", message))
		return submitWave(m.ctx, m.portal, message)
	}

	if !sub.InputEnabled() {
		return nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	sub.SetDraft(m.input.Value())
	return cmd
}

func (m *model) handleFeedKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "up", "k":
		if m.selected > 0 {
			m.selected--
			if m.selected < m.offset {
				m.offset = m.selected
			}
		}

	case "down", "j":
		if m.selected < len(m.records)-1 {
			m.selected++
			if page := max(1, m.pageSize); m.selected >= m.offset+page {
				m.offset = m.selected - page + 1
			}
		}

	case "g", "home":
		m.selected, m.offset = 0, 0

	case "tab":
		if m.sess.HasAccount() && m.portal.IsTargetNetwork() {
			m.composing = true
			return m.input.Focus()
		}

	case "w", "W":
		return m.connect()

	case "r", "R":
		return m.reload()

	case "c", "C":
		if m.selected < len(m.records) {
			return copyToClipboard(m.records[m.selected].Sender.Hex(), "sender address")
		}

	case "t", "T":
		if m.lastTx != (common.Hash{}) {
			return copyToClipboard(m.lastTx.Hex(), "transaction hash")
		}

	case "x", "X":
		if m.lastTx != (common.Hash{}) {
			m.showTxPanel = true
		}

	case "a", "A":
		return m.gotoPage("accounts")

	case "s", "S":
		return m.gotoPage("settings")

	case "h", "H":
		return m.gotoPage("home")
	}
	return nil
}

// reload rebuilds the session, which resubscribes to the contract events and
// reads the history again
func (m *model) reload() tea.Cmd {
	if !m.started || !m.rpcConnected {
		m.addLog("warning", "Not connected to a node yet")
		return nil
	}
	m.liveStopped = false
	m.addLog("info", "Reloading waves")
	m.portal.Restart("reload requested")
	return nil
}

// connect starts the wallet connection unless one is already established
func (m *model) connect() tea.Cmd {
	switch {
	case m.connecting || m.sess.HasAccount():
		return nil
	case !m.started:
		m.addLog("warning", "Not connected to a node yet")
		return nil
	case !m.sess.WalletPresent:
		m.addLog("warning", fmt.Sprintf("No keystore accounts found in `%s`", m.cfg.KeystoreDir))
		return m.pushBanner(styles.CWarn, "No wallet found. Point --keystore at a directory with key files.")
	}
	m.connecting = true
	return connectWallet(m.ctx, m.portal)
}

func (m *model) handleAccountsKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc", "f", "F":
		m.activePage = config.PageFeed

	case "up", "k":
		if m.selectedAcct > 0 {
			m.selectedAcct--
			return m.loadSelectedAccountDetails(false)
		}

	case "down", "j":
		if m.selectedAcct < len(m.accountEntries)-1 {
			m.selectedAcct++
			return m.loadSelectedAccountDetails(false)
		}

	case "enter":
		if m.selectedAcct < len(m.accountEntries) {
			return m.useAccount(m.accountEntries[m.selectedAcct].Address)
		}

	case "n", "N":
		if m.details.Address != "" {
			m.nicknaming = true
			m.createNicknameForm()
		}

	case "c", "C":
		if m.details.Address != "" {
			return copyToClipboard(m.details.Address, "address")
		}

	case "r", "R":
		return m.loadSelectedAccountDetails(true)

	case "s", "S":
		return m.gotoPage("settings")

	case "h", "H":
		return m.gotoPage("home")
	}
	return nil
}

// useAccount makes addr the wallet's account. The provider announces the
// change, which resets the session.
func (m *model) useAccount(addr string) tea.Cmd {
	if err := m.wallet.SetPreferredAccount(common.HexToAddress(addr)); err != nil {
		m.addLog("error", "Switching account failed: "+err.Error())
		return nil
	}
	m.cfg.SetActiveAccount(addr)
	m.saveConfig()
	m.refreshAccounts()
	m.addLog("success", fmt.Sprintf("Activated account `%s`", helpers.ShortenAddr(addr)))
	return nil
}

// saveNickname stores name for the account shown in the details panel
func (m *model) saveNickname(name string) {
	addr := m.details.Address
	found := false
	for i := range m.cfg.Accounts {
		if strings.EqualFold(m.cfg.Accounts[i].Address, addr) {
			m.cfg.Accounts[i].Name = name
			found = true
			break
		}
	}
	if !found {
		m.cfg.Accounts = append(m.cfg.Accounts, config.AccountEntry{Address: addr, Name: name})
	}
	m.saveConfig()
	m.refreshAccounts()

	if name == "" {
		m.addLog("info", fmt.Sprintf("Cleared nickname for account `%s`", helpers.ShortenAddr(addr)))
	} else {
		m.addLog("success", fmt.Sprintf("Set nickname `%s` for account `%s`", name, helpers.ShortenAddr(addr)))
	}
}

func (m *model) handleSettingsKey(msg tea.KeyMsg) tea.Cmd {
	if m.showRPCDeleteDialog {
		switch msg.String() {
		case "left", "right", "tab":
			m.deleteRPCDialogYesSelected = !m.deleteRPCDialogYesSelected
		case "enter":
			if m.deleteRPCDialogYesSelected {
				idx := m.deleteRPCDialogIdx
				if idx >= 0 && idx < len(m.cfg.RPCURLs) {
					m.cfg.RPCURLs = append(m.cfg.RPCURLs[:idx], m.cfg.RPCURLs[idx+1:]...)
					if m.selectedRPCIdx >= len(m.cfg.RPCURLs) && m.selectedRPCIdx > 0 {
						m.selectedRPCIdx--
					}
					m.saveConfig()
					m.addLog("warning", fmt.Sprintf("Deleted RPC endpoint `%s`", m.deleteRPCDialogName))
				}
			}
			m.showRPCDeleteDialog = false
		case "esc":
			m.showRPCDeleteDialog = false
		}
		return nil
	}

	// Only handle list mode controls here (form handled in updateForms)
	if m.settingsMode != "list" {
		return nil
	}
	switch msg.String() {
	case "esc", "f", "F":
		m.activePage = config.PageFeed

	case "h", "H":
		return m.gotoPage("home")

	case "a", "A":
		m.settingsMode = "add"
		m.createAddRPCForm()

	case "e", "E":
		if len(m.cfg.RPCURLs) > 0 {
			m.settingsMode = "edit"
			m.createEditRPCForm(m.selectedRPCIdx)
		}

	case "d", "delete", "backspace":
		if m.selectedRPCIdx < len(m.cfg.RPCURLs) {
			m.showRPCDeleteDialog = true
			m.deleteRPCDialogYesSelected = true
			m.deleteRPCDialogIdx = m.selectedRPCIdx
			name := strings.TrimSpace(m.cfg.RPCURLs[m.selectedRPCIdx].Name)
			if name == "" {
				name = m.cfg.RPCURLs[m.selectedRPCIdx].URL
			}
			m.deleteRPCDialogName = name
		}

	case "up", "k":
		if m.selectedRPCIdx > 0 {
			m.selectedRPCIdx--
		}

	case "down", "j":
		if m.selectedRPCIdx < len(m.cfg.RPCURLs)-1 {
			m.selectedRPCIdx++
		}

	case "enter", " ":
		// Set as active
		if m.selectedRPCIdx < len(m.cfg.RPCURLs) {
			for i := range m.cfg.RPCURLs {
				m.cfg.RPCURLs[i].Active = (i == m.selectedRPCIdx)
			}
			url := m.cfg.RPCURLs[m.selectedRPCIdx].URL
			m.saveConfig()
			m.addLog("info", fmt.Sprintf("Switching RPC to `%s`", url))
			// Set connecting state and reconnect with new RPC
			m.rpcURL = url
			m.rpcConnecting = true
			m.rpcConnected = false
			return dialRPC(m.ctx, m.wallet, url)
		}
	}
	return nil
}

func (m *model) handleMouse(msg tea.MouseMsg) tea.Cmd {
	switch msg.Type {
	case tea.MouseWheelUp:
		if m.activePage == config.PageFeed && m.offset > 0 {
			m.offset--
			m.selected = min(m.selected, m.offset+max(1, m.pageSize)-1)
		}
		return nil

	case tea.MouseWheelDown:
		if m.activePage == config.PageFeed && m.offset+max(1, m.pageSize) < len(m.records) {
			m.offset++
			m.selected = max(m.selected, m.offset)
		}
		return nil

	case tea.MouseLeft:
		for idx, area := range m.clickableAreas {
			if !area.Contains(msg.X, msg.Y) {
				continue
			}
			m.addLog("debug", fmt.Sprintf("Click matched area %d: addr=%s at (%d,%d)", idx, helpers.ShortenAddr(area.Address), area.X, area.Y))

			switch m.activePage {
			case config.PageFeed:
				m.selected = m.offset + idx
				return copyToClipboard(area.Address, "sender address")

			case config.PageAccounts:
				for i, e := range m.accountEntries {
					if strings.EqualFold(e.Address, area.Address) {
						m.selectedAcct = i
						break
					}
				}
				return m.loadSelectedAccountDetails(false)
			}
		}
	}
	return nil
}
