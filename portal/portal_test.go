package portal

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wave-portal-tui/history"
	"wave-portal-tui/notify"
	"wave-portal-tui/provider"
	"wave-portal-tui/provider/providertest"
)

const rinkeby = 4

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob   = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	wpc   = common.HexToAddress("0x699F31453abf3443c321FD88a32a9349d23C3d44")
)

func newPortal(t *testing.T, p provider.Provider) *Portal {
	t.Helper()
	pt := New(p, Config{Contract: wpc, ChainID: rinkeby}, notify.New(), log.New(io.Discard))
	t.Cleanup(pt.Close)
	return pt
}

func messages(s *history.Store) []string {
	var out []string
	for r := range s.Records() {
		out = append(out, r.Message)
	}
	return out
}

func TestStartLoadsPinnedHistory(t *testing.T) {
	p := providertest.New(rinkeby)
	p.Authorized = []common.Address{alice}
	p.Height = 100
	p.Contract.Waves = []provider.Wave{
		providertest.Wave(alice, 1, "first"),
		providertest.Wave(bob, 2, "second"),
	}
	pt := newPortal(t, p)

	require.NoError(t, pt.Start(context.Background()))

	assert.Equal(t, []string{"second", "first"}, messages(pt.Store()))
	assert.Equal(t, uint64(2), pt.Store().Total())
	assert.Equal(t, []uint64{100}, p.Contract.LoadedAt, "history is read at the baseline height")
	assert.True(t, pt.Watcher().Active())
	assert.False(t, pt.Loading())
	assert.NoError(t, pt.LoadErr())

	baseline, ok := pt.Watcher().Baseline()
	require.True(t, ok)
	assert.Equal(t, uint64(100), baseline.StartBlock)
}

func TestStartWithoutAccount(t *testing.T) {
	p := providertest.New(rinkeby)
	pt := newPortal(t, p)

	require.NoError(t, pt.Start(context.Background()))
	assert.Zero(t, p.BindCalls)
	assert.False(t, pt.Watcher().Active())

	_, err := pt.Contract()
	assert.ErrorIs(t, err, provider.ErrNoWalletProvider)
	assert.ErrorIs(t, pt.Submit(context.Background(), "gm"), provider.ErrWrongNetwork)
}

func TestStartWithoutWallet(t *testing.T) {
	p := providertest.New(rinkeby)
	p.Wallet = false
	pt := newPortal(t, p)

	assert.ErrorIs(t, pt.Start(context.Background()), provider.ErrNoWalletProvider)
	assert.False(t, pt.Session().WalletPresent)
}

func TestLiveWaveAfterHistory(t *testing.T) {
	p := providertest.New(rinkeby)
	p.Requestable = []common.Address{alice}
	p.Height = 10
	p.Contract.Waves = []provider.Wave{providertest.Wave(alice, 1, "A")}
	pt := newPortal(t, p)

	require.NoError(t, pt.Start(context.Background()))
	require.NoError(t, pt.Connect(context.Background()))

	p.Contract.EmitNewWave(providertest.NewWaveAt(10, alice, 1, "A"))
	p.Contract.EmitNewWave(providertest.NewWaveAt(11, bob, 2, "B"))

	assert.Equal(t, []string{"B", "A"}, messages(pt.Store()))
	assert.Equal(t, uint64(2), pt.Store().Total())
}

func TestSubmitThroughPortal(t *testing.T) {
	p := providertest.New(rinkeby)
	p.Authorized = []common.Address{alice}
	pt := newPortal(t, p)
	require.NoError(t, pt.Start(context.Background()))

	// the chain is unknown until the network is announced
	assert.ErrorIs(t, pt.Submit(context.Background(), "gm"), provider.ErrWrongNetwork)

	p.EmitNetwork(rinkeby)
	require.NoError(t, pt.Submit(context.Background(), "gm"))
	assert.Equal(t, []string{"gm"}, p.Contract.Calls())
	assert.Zero(t, pt.Store().Len(), "the feed only changes through events")
}

func TestNetworkChangeRestarts(t *testing.T) {
	p := providertest.New(rinkeby)
	p.Authorized = []common.Address{alice}
	p.Contract.Waves = []provider.Wave{providertest.Wave(alice, 1, "A")}
	pt := newPortal(t, p)
	require.NoError(t, pt.Start(context.Background()))

	p.EmitNetwork(rinkeby)
	p.Contract.EmitNewWave(providertest.NewWaveAt(1, bob, 2, "live"))
	require.Equal(t, 2, pt.Store().Len())

	p.EmitNetwork(1)

	assert.Eventually(t, func() bool {
		return p.Binds() == 2 && pt.Store().Loaded() && !pt.Loading()
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"A"}, messages(pt.Store()), "live records of the old session are dropped")

	waves, prizes := p.Contract.Handlers()
	assert.Equal(t, 1, waves)
	assert.Equal(t, 1, prizes)
	assert.Equal(t, 1, p.NetworkWatchers())
	assert.Equal(t, 1, p.AccountWatchers())
}

func TestAccountChangeRestarts(t *testing.T) {
	p := providertest.New(rinkeby)
	p.Authorized = []common.Address{alice}
	pt := newPortal(t, p)
	require.NoError(t, pt.Start(context.Background()))

	p.EmitAccounts(alice)
	assert.Equal(t, 1, p.BindCalls, "echo of the current account is ignored")

	p.EmitAccounts(bob)
	assert.Eventually(t, func() bool {
		acct, ok := pt.CurrentAccount()
		return ok && acct == bob && !pt.Loading()
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, p.Binds())
}

func TestLoadFailure(t *testing.T) {
	p := providertest.New(rinkeby)
	p.Authorized = []common.Address{alice}
	p.Contract.LoadErr = errors.New("execution reverted")
	pt := newPortal(t, p)

	require.NoError(t, pt.Start(context.Background()))
	assert.ErrorIs(t, pt.LoadErr(), provider.ErrRPC)
	assert.False(t, pt.Loading())
	assert.False(t, pt.Store().Loaded())
	assert.True(t, pt.Watcher().Active(), "live updates survive a failed load")
}

type gatedContract struct {
	*providertest.Contract
	calls   atomic.Int32
	entered chan struct{}
	gate    chan struct{}
	stale   []provider.Wave
}

func (c *gatedContract) GetAllWaves(ctx context.Context, atBlock uint64) ([]provider.Wave, error) {
	if c.calls.Add(1) == 1 {
		close(c.entered)
		<-c.gate
		return c.stale, nil
	}
	return c.Contract.GetAllWaves(ctx, atBlock)
}

type gatedProvider struct {
	*providertest.Provider
	contract *gatedContract
}

func (p *gatedProvider) BindContract(common.Address) (provider.Contract, error) {
	return p.contract, nil
}

func TestStaleLoadDiscarded(t *testing.T) {
	fake := providertest.New(rinkeby)
	fake.Authorized = []common.Address{alice}
	fake.Contract.Waves = []provider.Wave{providertest.Wave(bob, 2, "current")}
	gp := &gatedProvider{
		Provider: fake,
		contract: &gatedContract{
			Contract: fake.Contract,
			entered:  make(chan struct{}),
			gate:     make(chan struct{}),
			stale:    []provider.Wave{providertest.Wave(alice, 1, "stale")},
		},
	}
	pt := newPortal(t, gp)

	started := make(chan error, 1)
	go func() { started <- pt.Start(context.Background()) }()
	<-gp.contract.entered

	pt.Restart("test")
	assert.Eventually(t, func() bool {
		return pt.Store().Loaded()
	}, time.Second, 5*time.Millisecond)

	close(gp.contract.gate)
	require.NoError(t, <-started)
	assert.Equal(t, []string{"current"}, messages(pt.Store()))
}

func TestCloseStopsEverything(t *testing.T) {
	p := providertest.New(rinkeby)
	p.Authorized = []common.Address{alice}
	pt := New(p, Config{Contract: wpc, ChainID: rinkeby}, notify.New(), log.New(io.Discard))
	require.NoError(t, pt.Start(context.Background()))

	pt.Close()
	assert.False(t, pt.Watcher().Active())
	assert.Zero(t, p.NetworkWatchers())
	assert.Zero(t, p.AccountWatchers())

	pt.Restart("after close")
	assert.Equal(t, 1, p.BindCalls)
}

// liveOnlyContract mines a wave while the NewWave handler is being
// registered. Like eth_subscribe it never replays: a wave mined before the
// handler is live is only visible in the stored history.
type liveOnlyContract struct {
	*providertest.Contract
	chain *providertest.Provider
	// before runs ahead of registering the handler, after runs once it is live
	before, after func(c *liveOnlyContract)
}

func (c *liveOnlyContract) OnNewWave(fn func(provider.NewWaveEvent)) (provider.Subscription, error) {
	if c.before != nil {
		c.before(c)
	}
	sub, err := c.Contract.OnNewWave(fn)
	if err == nil && c.after != nil {
		c.after(c)
	}
	return sub, err
}

func TestWavesMinedWhileSubscribing(t *testing.T) {
	setup := func(t *testing.T, before, after func(c *liveOnlyContract)) (*Portal, *providertest.Provider) {
		p := providertest.New(rinkeby)
		p.Authorized = []common.Address{alice}
		p.Height = 100
		p.Contract.Waves = []provider.Wave{providertest.Wave(alice, 1, "old")}
		p.Binding = &liveOnlyContract{Contract: p.Contract, chain: p, before: before, after: after}
		pt := newPortal(t, p)
		require.NoError(t, pt.Start(context.Background()))
		return pt, p
	}

	t.Run("mined before the handler is live", func(t *testing.T) {
		pt, p := setup(t, func(c *liveOnlyContract) {
			c.Mine(101, providertest.Wave(bob, 2, "in-the-gap"))
			c.chain.SetHeight(101)
		}, nil)

		assert.Equal(t, []string{"in-the-gap", "old"}, messages(pt.Store()))
		assert.Equal(t, uint64(2), pt.Store().Total())
		assert.Equal(t, []uint64{101}, p.Contract.LoadedAt)
	})

	t.Run("delivered before the height is read", func(t *testing.T) {
		pt, _ := setup(t, nil, func(c *liveOnlyContract) {
			c.Mine(101, providertest.Wave(bob, 2, "raced"))
			c.chain.SetHeight(101)
			c.EmitNewWave(providertest.NewWaveAt(101, bob, 2, "raced"))
		})

		assert.Equal(t, []string{"raced", "old"}, messages(pt.Store()))
		assert.Equal(t, uint64(2), pt.Store().Total())
	})

	t.Run("delivered above the height", func(t *testing.T) {
		pt, _ := setup(t, nil, func(c *liveOnlyContract) {
			c.Mine(101, providertest.Wave(bob, 2, "new"))
			c.EmitNewWave(providertest.NewWaveAt(101, bob, 2, "new"))
		})

		assert.Equal(t, []string{"new", "old"}, messages(pt.Store()))
		assert.Equal(t, uint64(2), pt.Store().Total())
	})
}

// slowSubscribeContract blocks NewWave registration until gate is closed.
type slowSubscribeContract struct {
	*providertest.Contract
	entered chan struct{}
	gate    chan struct{}
}

func (c *slowSubscribeContract) OnNewWave(fn func(provider.NewWaveEvent)) (provider.Subscription, error) {
	close(c.entered)
	<-c.gate
	return c.Contract.OnNewWave(fn)
}

func TestAccessorsDoNotWaitForSubscription(t *testing.T) {
	p := providertest.New(rinkeby)
	p.Authorized = []common.Address{alice}
	slow := &slowSubscribeContract{Contract: p.Contract, entered: make(chan struct{}), gate: make(chan struct{})}
	p.Binding = slow
	pt := newPortal(t, p)

	started := make(chan error, 1)
	go func() { started <- pt.Start(context.Background()) }()
	<-slow.entered

	answered := make(chan bool, 1)
	go func() {
		_ = pt.LoadErr()
		answered <- pt.Loading()
	}()
	select {
	case loading := <-answered:
		assert.True(t, loading)
	case <-time.After(time.Second):
		t.Fatal("Loading blocked while the event handlers were being registered")
	}

	close(slow.gate)
	require.NoError(t, <-started)
	assert.False(t, pt.Loading())
}

func TestLiveStreamDropIsAnnounced(t *testing.T) {
	p := providertest.New(rinkeby)
	p.Authorized = []common.Address{alice}
	bus := notify.New()
	stopped := make(chan notify.LiveStopped, 2)
	_, err := bus.Subscribe(notify.TopicLiveStopped, func(ev notify.LiveStopped) { stopped <- ev })
	require.NoError(t, err)

	pt := New(p, Config{Contract: wpc, ChainID: rinkeby}, bus, log.New(io.Discard))
	t.Cleanup(pt.Close)
	require.NoError(t, pt.Start(context.Background()))
	require.True(t, pt.Watcher().Active())

	p.Contract.Drop(errors.New("websocket: close 1006"))

	select {
	case ev := <-stopped:
		assert.ErrorContains(t, ev.Err, "close 1006")
	case <-time.After(time.Second):
		t.Fatal("no live-stopped notification")
	}
	assert.Eventually(t, func() bool { return !pt.Watcher().Active() }, time.Second, 5*time.Millisecond)

	pt.Restart("reconnect")
	assert.Eventually(t, func() bool {
		return pt.Watcher().Active() && !pt.Loading()
	}, time.Second, 5*time.Millisecond)
}
