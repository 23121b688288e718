package session

import (
	"context"
	"errors"
	"io"
	"testing"

	errorsmod "cosmossdk.io/errors"
	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wave-portal-tui/notify"
	"wave-portal-tui/provider"
	"wave-portal-tui/provider/providertest"
)

const rinkeby = 4

var account = common.HexToAddress("0x00000000000000000000000000000000000000a1")

type recorder struct {
	ready  []Session
	resets []string
}

func (r *recorder) hooks() Hooks {
	return Hooks{
		Ready: func(s Session) { r.ready = append(r.ready, s) },
		Reset: func(reason string) { r.resets = append(r.resets, reason) },
	}
}

func newManager(p provider.Provider) (*Manager, *recorder) {
	rec := &recorder{}
	return NewManager(p, rinkeby, rec.hooks(), notify.New(), log.New(io.Discard)), rec
}

func TestInitialize(t *testing.T) {
	t.Run("no wallet provider", func(t *testing.T) {
		p := providertest.New(rinkeby)
		p.Wallet = false
		m, rec := newManager(p)

		err := m.Initialize(context.Background())
		assert.ErrorIs(t, err, provider.ErrNoWalletProvider)
		assert.False(t, m.Session().WalletPresent)
		assert.False(t, m.Session().HasAccount())
		assert.Empty(t, rec.ready)
	})

	t.Run("no authorized account", func(t *testing.T) {
		p := providertest.New(rinkeby)
		m, rec := newManager(p)

		require.NoError(t, m.Initialize(context.Background()))
		assert.True(t, m.Session().WalletPresent)
		assert.False(t, m.Session().HasAccount())
		assert.Empty(t, rec.ready)
		assert.Zero(t, p.RequestCalls, "initialize must not prompt")
	})

	t.Run("authorized account becomes ready", func(t *testing.T) {
		p := providertest.New(rinkeby)
		p.Authorized = []common.Address{account}
		m, rec := newManager(p)

		require.NoError(t, m.Initialize(context.Background()))
		require.Len(t, rec.ready, 1)
		assert.Equal(t, account, rec.ready[0].Account)
		acct, ok := m.CurrentAccount()
		assert.True(t, ok)
		assert.Equal(t, account, acct)
	})

	t.Run("query failure is a provider error", func(t *testing.T) {
		p := providertest.New(rinkeby)
		p.QueryErr = errors.New("boom")
		m, _ := newManager(p)

		assert.ErrorIs(t, m.Initialize(context.Background()), provider.ErrProvider)
	})
}

func TestConnect(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		p := providertest.New(rinkeby)
		p.Requestable = []common.Address{account}
		m, rec := newManager(p)

		require.NoError(t, m.Connect(context.Background()))
		assert.Equal(t, 1, p.RequestCalls)
		require.Len(t, rec.ready, 1)
		assert.Equal(t, account, m.Session().Account)
	})

	t.Run("user rejected", func(t *testing.T) {
		p := providertest.New(rinkeby)
		p.RequestErr = errorsmod.Wrap(provider.ErrUserRejected, "denied")
		m, rec := newManager(p)

		err := m.Connect(context.Background())
		assert.ErrorIs(t, err, provider.ErrUserRejected)
		assert.False(t, m.Session().HasAccount())
		assert.Empty(t, rec.ready)
	})

	t.Run("provider failure", func(t *testing.T) {
		p := providertest.New(rinkeby)
		p.RequestErr = errors.New("socket closed")
		m, _ := newManager(p)

		assert.ErrorIs(t, m.Connect(context.Background()), provider.ErrProvider)
	})

	t.Run("no wallet", func(t *testing.T) {
		p := providertest.New(rinkeby)
		p.Wallet = false
		m, _ := newManager(p)

		assert.ErrorIs(t, m.Connect(context.Background()), provider.ErrNoWalletProvider)
		assert.Zero(t, p.RequestCalls)
	})

	t.Run("empty account list", func(t *testing.T) {
		p := providertest.New(rinkeby)
		m, rec := newManager(p)

		assert.ErrorIs(t, m.Connect(context.Background()), provider.ErrUserRejected)
		assert.Empty(t, rec.ready)
	})
}

func TestNetworkWatch(t *testing.T) {
	t.Run("first notification never resets", func(t *testing.T) {
		p := providertest.New(rinkeby)
		m, rec := newManager(p)
		m.Watch()

		p.EmitNetwork(1)
		assert.Empty(t, rec.resets)
		assert.Equal(t, uint64(1), m.Session().ChainID)
		assert.False(t, m.IsTargetNetwork())
	})

	t.Run("same network again is not a switch", func(t *testing.T) {
		p := providertest.New(rinkeby)
		m, rec := newManager(p)
		m.Watch()

		p.EmitNetwork(rinkeby)
		p.EmitNetwork(rinkeby)
		assert.Empty(t, rec.resets)
		assert.True(t, m.IsTargetNetwork())
	})

	t.Run("different network always resets", func(t *testing.T) {
		p := providertest.New(rinkeby)
		m, rec := newManager(p)
		m.Watch()

		p.EmitNetwork(rinkeby)
		p.EmitNetwork(1)
		p.EmitNetwork(rinkeby)
		assert.Equal(t, []string{"network changed", "network changed"}, rec.resets)
	})

	t.Run("unknown network is not the target", func(t *testing.T) {
		m, _ := newManager(providertest.New(rinkeby))
		assert.False(t, m.IsTargetNetwork())
	})
}

func TestAccountWatch(t *testing.T) {
	t.Run("no account to one account resets", func(t *testing.T) {
		p := providertest.New(rinkeby)
		m, rec := newManager(p)
		m.Watch()

		p.EmitAccounts(account)
		assert.Equal(t, []string{"accounts changed"}, rec.resets)
	})

	t.Run("echo of the current account is ignored", func(t *testing.T) {
		p := providertest.New(rinkeby)
		p.Requestable = []common.Address{account}
		m, rec := newManager(p)
		m.Watch()
		require.NoError(t, m.Connect(context.Background()))

		p.EmitAccounts(account)
		assert.Empty(t, rec.resets)
	})

	t.Run("switching or dropping the account resets", func(t *testing.T) {
		p := providertest.New(rinkeby)
		p.Requestable = []common.Address{account}
		m, rec := newManager(p)
		m.Watch()
		require.NoError(t, m.Connect(context.Background()))

		p.EmitAccounts(common.HexToAddress("0x00000000000000000000000000000000000000b2"))
		p.EmitAccounts()
		assert.Len(t, rec.resets, 2)
	})
}

func TestWatchReleasesBeforeRegistering(t *testing.T) {
	p := providertest.New(rinkeby)
	m, _ := newManager(p)

	m.Watch()
	m.Watch()
	assert.Equal(t, 1, p.NetworkWatchers())
	assert.Equal(t, 1, p.AccountWatchers())

	release := m.Watch()
	release()
	assert.Zero(t, p.NetworkWatchers())
	assert.Zero(t, p.AccountWatchers())
	assert.False(t, m.Watching())

	// releasing twice is harmless
	release()
}

func TestResetForgetsIdentity(t *testing.T) {
	p := providertest.New(rinkeby)
	p.Authorized = []common.Address{account}
	m, rec := newManager(p)
	m.Watch()
	p.EmitNetwork(rinkeby)
	require.NoError(t, m.Initialize(context.Background()))

	m.Reset()
	assert.False(t, m.Session().HasAccount())
	assert.False(t, m.Session().ChainKnown())
	assert.Zero(t, p.NetworkWatchers())

	// after a fresh watch the first notification is an announcement again
	m.Watch()
	p.EmitNetwork(1)
	assert.Empty(t, rec.resets)
}

func TestSessionChangedPublished(t *testing.T) {
	bus := notify.New()
	changes := 0
	_, err := bus.Subscribe(notify.TopicSessionChanged, func() { changes++ })
	require.NoError(t, err)

	p := providertest.New(rinkeby)
	m := NewManager(p, rinkeby, Hooks{}, bus, log.New(io.Discard))
	m.Watch()
	p.EmitNetwork(rinkeby)
	assert.Positive(t, changes)
}
