// Package portal wires the session, event watcher, history store and
// submission controller into one client and runs the ready/reset cycle.
package portal

import (
	"context"
	"sync"

	errorsmod "cosmossdk.io/errors"
	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/common"

	"wave-portal-tui/history"
	"wave-portal-tui/notify"
	"wave-portal-tui/provider"
	"wave-portal-tui/session"
	"wave-portal-tui/submit"
	"wave-portal-tui/watcher"
)

// Config selects the deployment the portal talks to.
type Config struct {
	Contract common.Address
	ChainID  uint64
	GasLimit uint64
}

// Portal is the client core.
type Portal struct {
	provider provider.Provider
	cfg      Config
	bus      *notify.Bus
	logger   *log.Logger

	session *session.Manager
	store   *history.Store
	watcher *watcher.Watcher
	submit  *submit.Controller

	root      context.Context
	restartMu sync.Mutex
	resets    sync.WaitGroup
	// watchMu serializes subscribing with the epoch check that follows it
	watchMu sync.Mutex

	mu      sync.Mutex
	epoch   uint64
	cancel  context.CancelFunc
	binding provider.Contract
	loading bool
	loadErr error
	closed  bool
}

// New assembles a portal on p. Nothing touches the provider until Start.
func New(p provider.Provider, cfg Config, bus *notify.Bus, logger *log.Logger) *Portal {
	if bus == nil {
		bus = notify.New()
	}
	pt := &Portal{
		provider: p,
		cfg:      cfg,
		bus:      bus,
		logger:   logger,
		store:    history.NewStore(),
		root:     context.Background(),
	}
	pt.session = session.NewManager(p, cfg.ChainID, session.Hooks{
		Ready: pt.onReady,
		Reset: pt.onReset,
	}, bus, logger.WithPrefix("session"))
	pt.watcher = watcher.New(pt.store, pt.session, bus, logger.WithPrefix("watcher"))
	pt.submit = submit.NewController(pt, pt.session, cfg.GasLimit, bus, logger.WithPrefix("submit"))
	return pt
}

// Start registers the session watches and adopts an authorized account if the
// wallet already has one. ctx bounds every later re-initialization.
func (p *Portal) Start(ctx context.Context) error {
	p.mu.Lock()
	p.root = ctx
	p.mu.Unlock()

	p.session.Watch()
	return p.session.Initialize(ctx)
}

// Connect prompts the wallet for an account.
func (p *Portal) Connect(ctx context.Context) error {
	return p.session.Connect(ctx)
}

// Submit sends a wave.
func (p *Portal) Submit(ctx context.Context, message string) error {
	return p.submit.Submit(ctx, message)
}

// Restart tears the session down and initializes it again, as a network or
// account change does.
func (p *Portal) Restart(reason string) {
	p.onReset(reason)
}

// Close stops the portal. It waits for a running restart to finish.
func (p *Portal) Close() {
	p.mu.Lock()
	p.closed = true
	p.epoch++
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.binding = nil
	p.mu.Unlock()

	p.resets.Wait()
	p.watcher.Stop()
	p.session.Reset()
}

// Contract returns the binding of the current session.
func (p *Portal) Contract() (provider.Contract, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.binding == nil {
		return nil, errorsmod.Wrap(provider.ErrNoWalletProvider, "no connected account")
	}
	return p.binding, nil
}

func (p *Portal) Session() session.Session { return p.session.Session() }

func (p *Portal) IsTargetNetwork() bool { return p.session.IsTargetNetwork() }

func (p *Portal) CurrentAccount() (common.Address, bool) { return p.session.CurrentAccount() }

func (p *Portal) TargetChainID() uint64 { return p.cfg.ChainID }

func (p *Portal) ContractAddress() common.Address { return p.cfg.Contract }

// Store is the wave history of the current session.
func (p *Portal) Store() *history.Store { return p.store }

func (p *Portal) Submission() *submit.Controller { return p.submit }

func (p *Portal) Watcher() *watcher.Watcher { return p.watcher }

// Loading reports whether the history of the current session is being read.
func (p *Portal) Loading() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loading
}

// LoadErr is the error of the last history load, if it failed.
func (p *Portal) LoadErr() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loadErr
}

// beginEpoch cancels the previous epoch and returns the context and id of a
// new one.
func (p *Portal) beginEpoch() (context.Context, uint64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, 0, false
	}
	if p.cancel != nil {
		p.cancel()
	}
	p.epoch++
	ctx, cancel := context.WithCancel(p.root)
	p.cancel = cancel
	p.binding = nil
	p.loading = true
	p.loadErr = nil
	return ctx, p.epoch, true
}

// onReady binds the contract, registers the event handlers, then reads the
// chain height and loads the history pinned at it. A wave mined while the
// handlers are being registered is either below that height and part of the
// history, or above it and delivered live.
func (p *Portal) onReady(s session.Session) {
	ctx, id, ok := p.beginEpoch()
	if !ok {
		return
	}
	p.logger.Info("session ready", "account", s.Account.Hex(), "epoch", id)

	binding, err := p.provider.BindContract(p.cfg.Contract)
	if err != nil {
		p.fail(id, provider.Classify(err, provider.ErrProvider))
		return
	}

	sub, current, err := p.subscribe(id, binding)
	if !current {
		return
	}
	if err != nil {
		// history is still worth showing without live updates
		p.logger.Error("event subscription failed", "err", err)
	}

	height, err := p.provider.CurrentBlockHeight(ctx)
	if err != nil {
		p.unsubscribe(id)
		p.fail(id, provider.Classify(err, provider.ErrRPC))
		return
	}
	if sub != nil {
		sub.Commit(height)
	}

	waves, err := binding.GetAllWaves(ctx, height)
	if err != nil {
		p.fail(id, provider.Classify(err, provider.ErrRPC))
		return
	}
	total, err := binding.GetTotalWaves(ctx, height)
	if err != nil {
		p.fail(id, provider.Classify(err, provider.ErrRPC))
		return
	}

	records := make([]history.WaveRecord, len(waves))
	for i, w := range waves {
		records[i] = history.WaveRecord{Sender: w.Sender, Timestamp: w.Timestamp, Message: w.Message}
	}

	p.mu.Lock()
	if p.epoch != id {
		p.mu.Unlock()
		p.logger.Debug("discarding stale history", "epoch", id)
		return
	}
	p.store.LoadAll(records)
	p.store.SetTotal(total)
	p.loading = false
	p.mu.Unlock()

	p.logger.Info("history loaded", "waves", len(records), "total", total, "block", height)
	p.bus.Publish(notify.TopicFeedChanged)
}

// subscribe registers the watcher for epoch id and publishes the binding. It
// reports false when a newer epoch took over meanwhile.
func (p *Portal) subscribe(id uint64, binding provider.Contract) (*watcher.Subscription, bool, error) {
	p.watchMu.Lock()
	defer p.watchMu.Unlock()

	if !p.isEpoch(id) {
		return nil, false, nil
	}
	sub, err := p.watcher.Subscribe(binding)

	p.mu.Lock()
	current := p.epoch == id
	if current {
		p.binding = binding
	}
	p.mu.Unlock()

	if !current {
		if err == nil {
			p.watcher.Stop()
		}
		return nil, false, nil
	}
	return sub, true, err
}

func (p *Portal) unsubscribe(id uint64) {
	p.watchMu.Lock()
	defer p.watchMu.Unlock()
	if p.isEpoch(id) {
		p.watcher.Stop()
	}
}

func (p *Portal) isEpoch(id uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.epoch == id
}

func (p *Portal) fail(id uint64, err error) {
	p.mu.Lock()
	if p.epoch != id {
		p.mu.Unlock()
		return
	}
	p.loading = false
	p.loadErr = err
	p.mu.Unlock()

	p.logger.Error("loading waves failed", "err", err)
	p.bus.Publish(notify.TopicFeedChanged)
}

// onReset runs on the provider's callback goroutine, so the rebuild happens
// on its own goroutine.
func (p *Portal) onReset(reason string) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.epoch++
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.binding = nil
	root := p.root
	p.resets.Add(1)
	p.mu.Unlock()

	p.logger.Info("resetting session", "reason", reason)
	go func() {
		defer p.resets.Done()
		p.restart(root)
	}()
}

func (p *Portal) restart(ctx context.Context) {
	p.restartMu.Lock()
	defer p.restartMu.Unlock()

	p.watcher.Stop()
	p.store.Reset()
	p.session.Reset()
	p.bus.Publish(notify.TopicFeedChanged)

	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return
	}

	p.session.Watch()
	if err := p.session.Initialize(ctx); err != nil {
		p.logger.Error("re-initialization failed", "err", err)
	}
}
