// Package session tracks which wallet account and network the client is using
// and decides when a provider notification requires a full re-initialization.
package session

import (
	"context"
	"sync"

	errorsmod "cosmossdk.io/errors"
	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/common"

	"wave-portal-tui/notify"
	"wave-portal-tui/provider"
)

// Session is a read-only snapshot of the wallet identity.
type Session struct {
	Account       common.Address
	ChainID       uint64
	WalletPresent bool
}

// HasAccount reports whether an account has been authorized.
func (s Session) HasAccount() bool {
	return s.Account != (common.Address{})
}

// ChainKnown reports whether a network notification has arrived.
func (s Session) ChainKnown() bool {
	return s.ChainID != 0
}

// Hooks are called by the manager outside its lock.
type Hooks struct {
	// Ready fires once an account is established.
	Ready func(Session)
	// Reset fires when the session must be rebuilt from scratch.
	Reset func(reason string)
}

// Manager owns the Session.
type Manager struct {
	provider provider.Provider
	target   uint64
	hooks    Hooks
	bus      *notify.Bus
	logger   *log.Logger

	mu       sync.RWMutex
	session  Session
	watching []provider.Subscription
}

// NewManager creates a manager for the network identified by targetChainID.
func NewManager(p provider.Provider, targetChainID uint64, hooks Hooks, bus *notify.Bus, logger *log.Logger) *Manager {
	return &Manager{
		provider: p,
		target:   targetChainID,
		hooks:    hooks,
		bus:      bus,
		logger:   logger,
	}
}

// Initialize checks for a wallet and adopts an already-authorized account
// without prompting. A missing wallet is terminal and reported as
// ErrNoWalletProvider.
func (m *Manager) Initialize(ctx context.Context) error {
	if !m.provider.HasWalletProvider() {
		m.update(func(s *Session) { s.WalletPresent = false })
		m.logger.Warn("no wallet provider available")
		return provider.ErrNoWalletProvider
	}
	m.update(func(s *Session) { s.WalletPresent = true })

	accounts, err := m.provider.QueryAuthorizedAccounts(ctx)
	if err != nil {
		return provider.Classify(err, provider.ErrProvider)
	}
	if len(accounts) == 0 {
		m.logger.Info("no authorized account found")
		return nil
	}
	m.logger.Info("found an authorized account", "account", accounts[0].Hex())
	m.becomeReady(accounts[0])
	return nil
}

// Connect asks the wallet for an account, prompting the user if needed.
func (m *Manager) Connect(ctx context.Context) error {
	if !m.provider.HasWalletProvider() {
		return provider.ErrNoWalletProvider
	}
	accounts, err := m.provider.RequestAccounts(ctx)
	if err != nil {
		return provider.Classify(err, provider.ErrProvider)
	}
	if len(accounts) == 0 {
		return errorsmod.Wrap(provider.ErrUserRejected, "wallet returned no accounts")
	}
	m.logger.Info("connected", "account", accounts[0].Hex())
	m.becomeReady(accounts[0])
	return nil
}

func (m *Manager) becomeReady(account common.Address) {
	var snap Session
	m.update(func(s *Session) {
		s.Account = account
		snap = *s
	})
	if m.hooks.Ready != nil {
		m.hooks.Ready(snap)
	}
}

// Watch registers for network and account notifications, releasing any earlier
// registration first. The returned function releases this registration.
func (m *Manager) Watch() func() {
	m.release()

	netSub := m.provider.OnNetworkChange(m.handleNetwork)
	acctSub := m.provider.OnAccountsChange(m.handleAccounts)

	m.mu.Lock()
	m.watching = []provider.Subscription{netSub, acctSub}
	m.mu.Unlock()

	return m.release
}

func (m *Manager) release() {
	m.mu.Lock()
	subs := m.watching
	m.watching = nil
	m.mu.Unlock()

	for _, sub := range subs {
		sub.Unsubscribe()
	}
}

// Watching reports whether notifications are registered.
func (m *Manager) Watching() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.watching) > 0
}

func (m *Manager) handleNetwork(chainID uint64) {
	var prev uint64
	m.update(func(s *Session) {
		prev = s.ChainID
		s.ChainID = chainID
	})

	switch {
	case prev == 0:
		m.logger.Debug("network announced", "chain", chainID, "target", chainID == m.target)
	case prev != chainID:
		m.logger.Warn("network changed", "from", prev, "to", chainID)
		m.reset("network changed")
	}
}

func (m *Manager) handleAccounts(accounts []common.Address) {
	var next common.Address
	if len(accounts) > 0 {
		next = accounts[0]
	}

	m.mu.RLock()
	current := m.session.Account
	m.mu.RUnlock()

	// our own Connect is echoed back as an accounts notification
	if next == current {
		return
	}
	m.logger.Warn("accounts changed", "account", next.Hex())
	m.reset("accounts changed")
}

func (m *Manager) reset(reason string) {
	if m.hooks.Reset != nil {
		m.hooks.Reset(reason)
	}
}

// Reset forgets account and network and releases the watches, ready for a
// fresh Watch and Initialize.
func (m *Manager) Reset() {
	m.release()
	m.update(func(s *Session) {
		s.Account = common.Address{}
		s.ChainID = 0
	})
}

// Session returns a snapshot of the current session.
func (m *Manager) Session() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session
}

// CurrentAccount returns the session account, if any.
func (m *Manager) CurrentAccount() (common.Address, bool) {
	s := m.Session()
	return s.Account, s.HasAccount()
}

// TargetChainID is the network this deployment writes to.
func (m *Manager) TargetChainID() uint64 {
	return m.target
}

// IsTargetNetwork reports whether the known network is the target network.
func (m *Manager) IsTargetNetwork() bool {
	s := m.Session()
	return s.ChainKnown() && s.ChainID == m.target
}

func (m *Manager) update(fn func(*Session)) {
	m.mu.Lock()
	fn(&m.session)
	m.mu.Unlock()
	m.bus.Publish(notify.TopicSessionChanged)
}
