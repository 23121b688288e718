// Package providertest provides an in-memory provider.Provider for tests.
// Callbacks fire synchronously on the goroutine that emits them.
package providertest

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"wave-portal-tui/provider"
)

// Provider is a scriptable provider.Provider.
type Provider struct {
	mu sync.Mutex

	Wallet      bool
	Authorized  []common.Address
	Requestable []common.Address
	RequestErr  error
	QueryErr    error
	ChainID     uint64
	Height      uint64
	HeightErr   error
	BindErr     error
	Contract    *Contract
	// Binding, when set, is returned by BindContract instead of Contract.
	Binding provider.Contract

	RequestCalls int
	BindCalls    int

	nextID       int
	netHandlers  map[int]func(uint64)
	acctHandlers map[int]func([]common.Address)
}

// New returns a provider with a wallet, the given chain and an empty contract.
func New(chainID uint64) *Provider {
	return &Provider{
		Wallet:       true,
		ChainID:      chainID,
		Contract:     NewContract(),
		netHandlers:  make(map[int]func(uint64)),
		acctHandlers: make(map[int]func([]common.Address)),
	}
}

func (p *Provider) HasWalletProvider() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Wallet
}

func (p *Provider) QueryAuthorizedAccounts(ctx context.Context) ([]common.Address, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.QueryErr != nil {
		return nil, p.QueryErr
	}
	return append([]common.Address(nil), p.Authorized...), nil
}

func (p *Provider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.RequestCalls++
	if p.RequestErr != nil {
		return nil, p.RequestErr
	}
	p.Authorized = append([]common.Address(nil), p.Requestable...)
	return append([]common.Address(nil), p.Requestable...), nil
}

func (p *Provider) CurrentChainID(ctx context.Context) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ChainID, nil
}

// OnNetworkChange registers fn. Unlike the rpc provider the fake does not
// announce the current network; tests call EmitNetwork.
func (p *Provider) OnNetworkChange(fn func(chainID uint64)) provider.Subscription {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	p.netHandlers[id] = fn
	return provider.SubscriptionFunc(func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.netHandlers, id)
	})
}

func (p *Provider) OnAccountsChange(fn func(accounts []common.Address)) provider.Subscription {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	p.acctHandlers[id] = fn
	return provider.SubscriptionFunc(func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.acctHandlers, id)
	})
}

func (p *Provider) CurrentBlockHeight(ctx context.Context) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Height, p.HeightErr
}

func (p *Provider) BindContract(address common.Address) (provider.Contract, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.BindCalls++
	if p.BindErr != nil {
		return nil, p.BindErr
	}
	if p.Binding != nil {
		return p.Binding, nil
	}
	return p.Contract, nil
}

// Binds returns how many times BindContract was called.
func (p *Provider) Binds() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.BindCalls
}

// SetHeight moves the chain head.
func (p *Provider) SetHeight(h uint64) {
	p.mu.Lock()
	p.Height = h
	p.mu.Unlock()
}

// EmitNetwork delivers a network notification to every registered handler.
func (p *Provider) EmitNetwork(chainID uint64) {
	p.mu.Lock()
	p.ChainID = chainID
	handlers := make([]func(uint64), 0, len(p.netHandlers))
	for _, h := range p.netHandlers {
		handlers = append(handlers, h)
	}
	p.mu.Unlock()
	for _, h := range handlers {
		h(chainID)
	}
}

// EmitAccounts delivers an accounts notification to every registered handler.
func (p *Provider) EmitAccounts(accounts ...common.Address) {
	p.mu.Lock()
	p.Authorized = append([]common.Address(nil), accounts...)
	handlers := make([]func([]common.Address), 0, len(p.acctHandlers))
	for _, h := range p.acctHandlers {
		handlers = append(handlers, h)
	}
	p.mu.Unlock()
	for _, h := range handlers {
		h(append([]common.Address(nil), accounts...))
	}
}

// NetworkWatchers returns the number of registered network handlers.
func (p *Provider) NetworkWatchers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.netHandlers)
}

// AccountWatchers returns the number of registered account handlers.
func (p *Provider) AccountWatchers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.acctHandlers)
}

// Contract is a scriptable provider.Contract.
type Contract struct {
	mu sync.Mutex

	Waves        []provider.Wave
	Total        uint64
	LoadErr      error
	SubscribeErr map[string]error
	WaveErr      error
	NextTx       *Tx

	WaveCalls    []string
	LoadedAt     []uint64
	LastGasLimit uint64

	nextID        int
	mined         []minedWave
	subs          []*Sub
	waveHandlers  map[int]func(provider.NewWaveEvent)
	prizeHandlers map[int]func(provider.PrizeEarnedEvent)
}

type minedWave struct {
	block uint64
	wave  provider.Wave
}

// NewContract returns an empty contract.
func NewContract() *Contract {
	return &Contract{
		SubscribeErr:  make(map[string]error),
		waveHandlers:  make(map[int]func(provider.NewWaveEvent)),
		prizeHandlers: make(map[int]func(provider.PrizeEarnedEvent)),
	}
}

func (c *Contract) GetAllWaves(ctx context.Context, atBlock uint64) ([]provider.Wave, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.LoadedAt = append(c.LoadedAt, atBlock)
	if c.LoadErr != nil {
		return nil, c.LoadErr
	}
	out := append([]provider.Wave(nil), c.Waves...)
	for _, m := range c.mined {
		if m.block <= atBlock {
			out = append(out, m.wave)
		}
	}
	return out, nil
}

func (c *Contract) GetTotalWaves(ctx context.Context, atBlock uint64) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.LoadErr != nil {
		return 0, c.LoadErr
	}
	if c.Total == 0 {
		n := uint64(len(c.Waves))
		for _, m := range c.mined {
			if m.block <= atBlock {
				n++
			}
		}
		return n, nil
	}
	return c.Total, nil
}

// Mine adds w to the stored history at block. Loads pinned below block do not
// see it. No event is emitted.
func (c *Contract) Mine(block uint64, w provider.Wave) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mined = append(c.mined, minedWave{block: block, wave: w})
}

func (c *Contract) Wave(ctx context.Context, message string, opts provider.TxOptions) (provider.TxHandle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.WaveCalls = append(c.WaveCalls, message)
	c.LastGasLimit = opts.GasLimit
	if c.WaveErr != nil {
		return nil, c.WaveErr
	}
	if c.NextTx != nil {
		return c.NextTx, nil
	}
	return NewTx(common.HexToHash("0x01"), types.ReceiptStatusSuccessful, nil), nil
}

func (c *Contract) OnNewWave(fn func(provider.NewWaveEvent)) (provider.Subscription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.SubscribeErr["NewWave"]; err != nil {
		return nil, err
	}
	id := c.nextID
	c.nextID++
	c.waveHandlers[id] = fn
	sub := newSub(func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.waveHandlers, id)
	})
	c.subs = append(c.subs, sub)
	return sub, nil
}

func (c *Contract) OnPrizeEarned(fn func(provider.PrizeEarnedEvent)) (provider.Subscription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.SubscribeErr["PrizeEarned"]; err != nil {
		return nil, err
	}
	id := c.nextID
	c.nextID++
	c.prizeHandlers[id] = fn
	sub := newSub(func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.prizeHandlers, id)
	})
	c.subs = append(c.subs, sub)
	return sub, nil
}

// Drop ends every event subscription with err, as a lost node connection does.
func (c *Contract) Drop(err error) {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()
	for _, s := range subs {
		s.drop(err)
	}
}

// EmitNewWave delivers ev to every NewWave handler.
func (c *Contract) EmitNewWave(ev provider.NewWaveEvent) {
	c.mu.Lock()
	handlers := make([]func(provider.NewWaveEvent), 0, len(c.waveHandlers))
	for _, h := range c.waveHandlers {
		handlers = append(handlers, h)
	}
	c.mu.Unlock()
	for _, h := range handlers {
		h(ev)
	}
}

// EmitPrize delivers ev to every PrizeEarned handler.
func (c *Contract) EmitPrize(ev provider.PrizeEarnedEvent) {
	c.mu.Lock()
	handlers := make([]func(provider.PrizeEarnedEvent), 0, len(c.prizeHandlers))
	for _, h := range c.prizeHandlers {
		handlers = append(handlers, h)
	}
	c.mu.Unlock()
	for _, h := range handlers {
		h(ev)
	}
}

// Handlers returns the number of registered NewWave and PrizeEarned handlers.
func (c *Contract) Handlers() (waves, prizes int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waveHandlers), len(c.prizeHandlers)
}

// Calls returns the messages sent through Wave so far.
func (c *Contract) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.WaveCalls...)
}

// Sub is an event subscription that can be dropped from the test side.
type Sub struct {
	mu      sync.Mutex
	release func()
	done    chan struct{}
	err     error
	ended   bool
}

func newSub(release func()) *Sub {
	return &Sub{release: release, done: make(chan struct{})}
}

func (s *Sub) Unsubscribe() {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	s.mu.Unlock()
	s.release()
}

func (s *Sub) Done() <-chan struct{} { return s.done }

func (s *Sub) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Sub) drop(err error) {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	s.err = err
	s.mu.Unlock()
	s.release()
	close(s.done)
}

// Tx is a scriptable provider.TxHandle. When Hold is set, Wait blocks until
// Release is called.
type Tx struct {
	hash    common.Hash
	status  uint64
	err     error
	hold    chan struct{}
	waiting chan struct{}
	once    sync.Once
}

// NewTx returns a transaction that confirms immediately with status, or fails
// with err when err is non-nil.
func NewTx(hash common.Hash, status uint64, err error) *Tx {
	return &Tx{hash: hash, status: status, err: err, waiting: make(chan struct{})}
}

// Hold makes Wait block until Release.
func (t *Tx) Hold() *Tx {
	t.hold = make(chan struct{})
	return t
}

// Release unblocks a held Wait.
func (t *Tx) Release() {
	if t.hold != nil {
		close(t.hold)
	}
}

// Waiting is closed once Wait has been entered.
func (t *Tx) Waiting() <-chan struct{} {
	return t.waiting
}

func (t *Tx) Hash() common.Hash { return t.hash }

func (t *Tx) Wait(ctx context.Context) (*provider.Receipt, error) {
	t.once.Do(func() { close(t.waiting) })
	if t.hold != nil {
		select {
		case <-t.hold:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if t.err != nil {
		return nil, t.err
	}
	return &provider.Receipt{TxHash: t.hash, BlockNumber: 1, Status: t.status}, nil
}

// Wave builds a provider.Wave at unix second ts.
func Wave(sender common.Address, ts int64, message string) provider.Wave {
	return provider.Wave{Sender: sender, Timestamp: time.Unix(ts, 0), Message: message}
}

// NewWaveAt builds a NewWave event mined at block.
func NewWaveAt(block uint64, sender common.Address, ts int64, message string) provider.NewWaveEvent {
	return provider.NewWaveEvent{
		Sender:    sender,
		Timestamp: time.Unix(ts, 0),
		Message:   message,
		Meta:      provider.EventMeta{BlockNumber: block},
	}
}

// PrizeAt builds a PrizeEarned event mined at block.
func PrizeAt(block uint64, winner common.Address, wei int64) provider.PrizeEarnedEvent {
	return provider.PrizeEarnedEvent{
		Winner: winner,
		Amount: big.NewInt(wei),
		Meta:   provider.EventMeta{BlockNumber: block},
	}
}
