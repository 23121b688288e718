// Package watcher folds live WavePortal contract events into the wave feed.
//
// Handlers are registered before the baseline height is read. Events that
// arrive in between are held until Commit; after that, events mined at or
// below the baseline were already part of the bulk history load and are
// dropped, so nothing is missed and nothing is counted twice.
package watcher

import (
	"sync"
	"sync/atomic"

	errorsmod "cosmossdk.io/errors"
	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/common"

	"wave-portal-tui/helpers"
	"wave-portal-tui/history"
	"wave-portal-tui/notify"
	"wave-portal-tui/provider"
)

// Baseline is the chain height a subscription started at.
type Baseline struct {
	StartBlock uint64
}

// AccountSource reports the session account prizes are matched against.
type AccountSource interface {
	CurrentAccount() (common.Address, bool)
}

// Watcher subscribes to NewWave and PrizeEarned for one session at a time.
type Watcher struct {
	store    *history.Store
	accounts AccountSource
	bus      *notify.Bus
	logger   *log.Logger

	mu  sync.Mutex
	sub *Subscription
}

// Subscription owns the handlers registered by one Subscribe.
type Subscription struct {
	w       *Watcher
	handles []provider.Subscription
	quit    chan struct{}
	once    sync.Once
	stopped atomic.Bool

	mu        sync.Mutex
	baseline  Baseline
	committed bool
	held      []func()
}

// New creates an inactive watcher.
func New(store *history.Store, accounts AccountSource, bus *notify.Bus, logger *log.Logger) *Watcher {
	return &Watcher{
		store:    store,
		accounts: accounts,
		bus:      bus,
		logger:   logger,
	}
}

// Start subscribes and commits atBlock as the baseline right away.
func (w *Watcher) Start(binding provider.Contract, atBlock uint64) error {
	sub, err := w.Subscribe(binding)
	if err != nil {
		return err
	}
	sub.Commit(atBlock)
	return nil
}

// Subscribe tears down any previous subscription, then registers both
// contract event handlers. Events are held until Commit.
func (w *Watcher) Subscribe(binding provider.Contract) (*Subscription, error) {
	w.Stop()

	sub := &Subscription{w: w, quit: make(chan struct{})}

	waves, err := binding.OnNewWave(func(ev provider.NewWaveEvent) { sub.deliver(func() { w.handleNewWave(sub, ev) }) })
	if err != nil {
		subscriptionsTotal.WithLabelValues("failed").Inc()
		return nil, errorsmod.Wrapf(provider.Classify(err, provider.ErrProvider), "subscribe NewWave")
	}
	prizes, err := binding.OnPrizeEarned(func(ev provider.PrizeEarnedEvent) { sub.deliver(func() { w.handlePrize(sub, ev) }) })
	if err != nil {
		waves.Unsubscribe()
		subscriptionsTotal.WithLabelValues("failed").Inc()
		return nil, errorsmod.Wrapf(provider.Classify(err, provider.ErrProvider), "subscribe PrizeEarned")
	}
	sub.handles = []provider.Subscription{waves, prizes}

	w.mu.Lock()
	w.sub = sub
	w.mu.Unlock()

	w.monitor(sub, "NewWave", waves)
	w.monitor(sub, "PrizeEarned", prizes)

	subscriptionsTotal.WithLabelValues("started").Inc()
	w.logger.Debug("contract event handlers registered")
	return sub, nil
}

// Commit fixes the baseline and handles the events held since Subscribe.
// Only the first call has an effect.
func (s *Subscription) Commit(atBlock uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.committed {
		return
	}
	s.baseline = Baseline{StartBlock: atBlock}
	s.committed = true
	held := s.held
	s.held = nil
	for _, fn := range held {
		fn()
	}
	s.w.logger.Info("watching contract events", "baseline", atBlock, "held", len(held))
}

// Baseline reports the committed baseline.
func (s *Subscription) Baseline() (Baseline, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.baseline, s.committed
}

func (s *Subscription) deliver(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.committed {
		s.held = append(s.held, fn)
		return
	}
	fn()
}

func (s *Subscription) stop() bool {
	first := false
	s.once.Do(func() {
		first = true
		s.stopped.Store(true)
		close(s.quit)
		for _, h := range s.handles {
			h.Unsubscribe()
		}
	})
	return first
}

// Stop releases both handlers. It is safe to call when not started.
func (w *Watcher) Stop() {
	w.mu.Lock()
	sub := w.sub
	w.sub = nil
	w.mu.Unlock()

	if sub == nil || !sub.stop() {
		return
	}
	w.logger.Debug("stopped watching contract events")
}

// Active reports whether a subscription is registered.
func (w *Watcher) Active() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.sub != nil
}

// Baseline returns the current subscription's baseline once it is committed.
func (w *Watcher) Baseline() (Baseline, bool) {
	w.mu.Lock()
	sub := w.sub
	w.mu.Unlock()
	if sub == nil {
		return Baseline{}, false
	}
	return sub.Baseline()
}

// monitor tears sub down when h ends on its own and announces that live
// updates stopped.
func (w *Watcher) monitor(sub *Subscription, event string, h provider.Subscription) {
	d, ok := h.(provider.Droppable)
	if !ok {
		return
	}
	go func() {
		select {
		case <-d.Done():
		case <-sub.quit:
			return
		}

		w.mu.Lock()
		if w.sub == sub {
			w.sub = nil
		}
		w.mu.Unlock()
		if !sub.stop() {
			return
		}

		err := d.Err()
		subscriptionsTotal.WithLabelValues("dropped").Inc()
		w.logger.Warn("contract event stream ended", "event", event, "err", err)
		w.bus.Publish(notify.TopicLiveStopped, notify.LiveStopped{Event: event, Err: err})
	}()
}

// handleNewWave runs with sub.mu held and the baseline committed.
func (w *Watcher) handleNewWave(sub *Subscription, ev provider.NewWaveEvent) {
	if sub.stopped.Load() {
		eventsTotal.WithLabelValues("NewWave", outcomeStale).Inc()
		return
	}
	if ev.Meta.BlockNumber <= sub.baseline.StartBlock {
		eventsTotal.WithLabelValues("NewWave", outcomeReplayed).Inc()
		w.logger.Debug("dropping replayed wave", "block", ev.Meta.BlockNumber, "baseline", sub.baseline.StartBlock)
		return
	}

	w.store.Append(history.WaveRecord{
		Sender:    ev.Sender,
		Timestamp: ev.Timestamp,
		Message:   ev.Message,
	})
	eventsTotal.WithLabelValues("NewWave", outcomeAccepted).Inc()
	w.logger.Info("new wave", "from", helpers.ShortenAddr(ev.Sender.Hex()), "block", ev.Meta.BlockNumber)
	w.bus.Publish(notify.TopicFeedChanged)
}

func (w *Watcher) handlePrize(sub *Subscription, ev provider.PrizeEarnedEvent) {
	if sub.stopped.Load() {
		eventsTotal.WithLabelValues("PrizeEarned", outcomeStale).Inc()
		return
	}
	if ev.Meta.BlockNumber <= sub.baseline.StartBlock {
		eventsTotal.WithLabelValues("PrizeEarned", outcomeReplayed).Inc()
		return
	}

	account, ok := w.accounts.CurrentAccount()
	if !ok || !helpers.SameAccount(ev.Winner, account) {
		eventsTotal.WithLabelValues("PrizeEarned", outcomeIgnored).Inc()
		return
	}

	eventsTotal.WithLabelValues("PrizeEarned", outcomeAccepted).Inc()
	w.logger.Info("prize won", "amount", helpers.FormatETH(ev.Amount))
	w.bus.Publish(notify.TopicPrizeWon, notify.PrizeWon{
		Winner: ev.Winner,
		Amount: ev.Amount,
		TxHash: ev.Meta.TxHash,
	})
}
