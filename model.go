package main

import (
	"context"
	"strings"
	"time"

	"wave-portal-tui/config"
	"wave-portal-tui/history"
	"wave-portal-tui/portal"
	"wave-portal-tui/rpc"
	"wave-portal-tui/session"
	"wave-portal-tui/styles"
	"wave-portal-tui/views/compose"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/common"
)

// -------------------- MODEL --------------------

// banner is a dismissible notice shown under the header
type banner struct {
	id    int
	color lipgloss.Color
	text  string
}

// bannerTimeout is how long prize and error banners stay up
const bannerTimeout = 6 * time.Second

// model represents the application state following The Elm Architecture
type model struct {
	w, h int

	ctx        context.Context
	portal     *portal.Portal
	wallet     *rpc.Provider
	cfg        config.Config
	configPath string

	activePage config.Page

	// session and feed snapshots, refreshed from the portal on notifications
	sess     session.Session
	records  []history.WaveRecord
	total    uint64
	selected int
	offset   int
	pageSize int // waves that fit on screen, set by View

	// compose box
	input     textinput.Model
	composing bool
	lastTx    common.Hash

	// liveStopped is set when the contract event stream ended on its own
	liveStopped bool

	// banners
	banners   []banner
	bannerSeq int

	// rpc state
	rpcURL        string
	rpcConnected  bool
	rpcConnecting bool
	started       bool
	connecting    bool // wallet connect in progress

	// accounts page
	accountEntries []config.AccountEntry
	selectedAcct   int
	details        rpc.AccountDetails
	detailsCache   map[string]rpc.AccountDetails
	loading        bool
	nicknaming     bool

	// clipboard feedback
	copiedMsg     string
	copiedMsgTime time.Time

	// tx QR panel
	showTxPanel bool

	// settings state
	settingsMode   string // "list", "add", "edit"
	selectedRPCIdx int
	form           *huh.Form

	showRPCDeleteDialog        bool
	deleteRPCDialogName        string
	deleteRPCDialogIdx         int
	deleteRPCDialogYesSelected bool

	// password prompt
	passwordForm  *huh.Form
	passwordReply chan<- passwordReply

	// home form
	homeForm *huh.Form

	spin spinner.Model

	// clickable areas for mouse support
	clickableAreas []config.ClickableArea

	// logger panel
	logEnabled  bool
	logger      *log.Logger
	logSink     *logSink
	logViewport viewport.Model
	logReady    bool
	logSpinner  spinner.Model
}

// -------------------- INIT --------------------

// newModel creates the initial model around a portal that has not been started
func newModel(ctx context.Context, cfg config.Config, configPath string, pt *portal.Portal, wallet *rpc.Provider, sink *logSink, logger *log.Logger) model {
	// spinner
	sp := spinner.New()
	sp.Spinner = spinner.Line
	sp.Style = lipgloss.NewStyle().Foreground(styles.CAccent2)

	// Initialize log viewport
	vp := viewport.New(0, 20) // Will be resized in Update on first WindowSizeMsg
	vp.Style = lipgloss.NewStyle().
		Foreground(styles.CText).
		Background(styles.CPanel)

	// Initialize log spinner
	logSpin := spinner.New()
	logSpin.Spinner = spinner.Dot
	logSpin.Style = lipgloss.NewStyle().Foreground(styles.CAccent2)

	var activeRPC string
	if r, ok := cfg.ActiveRPC(); ok {
		activeRPC = r.URL
	}

	m := model{
		ctx:          ctx,
		portal:       pt,
		wallet:       wallet,
		cfg:          cfg,
		configPath:   configPath,
		activePage:   config.PageFeed,
		input:        compose.NewInput(),
		spin:         sp,
		rpcURL:       activeRPC,
		settingsMode: "list",
		detailsCache: make(map[string]rpc.AccountDetails),
		logEnabled:   cfg.Logger,
		logger:       logger,
		logSink:      sink,
		logViewport:  vp,
		logSpinner:   logSpin,
	}
	m.refreshAccounts()
	return m
}

// Init implements tea.Model interface and returns initial commands
func (m *model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spin.Tick}
	if m.logEnabled {
		cmds = append(cmds, initLogViewport(), m.logSpinner.Tick)
	}
	// connect if rpc is set
	if m.rpcURL != "" {
		m.rpcConnecting = true
		cmds = append(cmds, dialRPC(m.ctx, m.wallet, m.rpcURL))
	} else {
		m.addLog("warning", "No RPC endpoint configured, add one in settings")
	}
	return tea.Batch(cmds...)
}

// refreshSession copies the portal's session, feed and submission state
func (m *model) refreshSession() {
	m.sess = m.portal.Session()
	m.records = m.portal.Store().Snapshot()
	m.total = m.portal.Store().Total()
	if m.selected >= len(m.records) {
		m.selected = max(0, len(m.records)-1)
	}
	if m.offset > m.selected {
		m.offset = m.selected
	}
	m.refreshAccounts()
}

// refreshAccounts lists the keystore accounts with their saved nicknames
func (m *model) refreshAccounts() {
	preferred := m.wallet.Preferred()
	var entries []config.AccountEntry
	for _, addr := range m.wallet.Accounts() {
		entry := config.AccountEntry{Address: addr.Hex(), Active: addr == preferred}
		for _, saved := range m.cfg.Accounts {
			if strings.EqualFold(saved.Address, entry.Address) {
				entry.Name = saved.Name
				break
			}
		}
		entries = append(entries, entry)
	}
	m.accountEntries = entries
	if m.selectedAcct >= len(entries) {
		m.selectedAcct = max(0, len(entries)-1)
	}
}

// pushBanner shows a banner that expires on its own
func (m *model) pushBanner(color lipgloss.Color, text string) tea.Cmd {
	m.bannerSeq++
	m.banners = append(m.banners, banner{id: m.bannerSeq, color: color, text: text})
	return clearBanner(m.bannerSeq)
}

func (m *model) dropBanner(id int) {
	for i, b := range m.banners {
		if b.id == id {
			m.banners = append(m.banners[:i], m.banners[i+1:]...)
			return
		}
	}
}

// nickname returns the saved name of addr
func (m model) nickname(addr string) string {
	for _, a := range m.cfg.Accounts {
		if strings.EqualFold(a.Address, addr) {
			return a.Name
		}
	}
	return ""
}

func (m *model) saveConfig() {
	m.cfg.Logger = m.logEnabled
	if err := config.Save(m.configPath, m.cfg); err != nil {
		m.addLog("error", "Saving config failed: "+err.Error())
	}
}
