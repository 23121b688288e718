package rpc

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wave-portal-tui/provider"
)

const passphrase = "correct horse"

func newKeystore(t *testing.T, n int) (*keystore.KeyStore, []common.Address) {
	t.Helper()
	ks := keystore.NewKeyStore(t.TempDir(), keystore.LightScryptN, keystore.LightScryptP)
	var addrs []common.Address
	for i := 0; i < n; i++ {
		acct, err := ks.NewAccount(passphrase)
		require.NoError(t, err)
		addrs = append(addrs, acct.Address)
	}
	return ks, addrs
}

func newProvider(t *testing.T, opts Options) *Provider {
	t.Helper()
	opts.Logger = log.New(io.Discard)
	p, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(p.Close)
	return p
}

func staticPrompt(pass string, err error) PasswordFunc {
	return func(ctx context.Context, account accounts.Account) (string, error) {
		return pass, err
	}
}

func TestDispatcherOrder(t *testing.T) {
	d := newDispatcher(4)

	var mu sync.Mutex
	var got []int
	for i := 0; i < 50; i++ {
		i := i
		require.True(t, d.post(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		}))
	}

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 50
	}, time.Second, 5*time.Millisecond)
	for i, v := range got {
		assert.Equal(t, i, v)
	}

	d.close()
	assert.False(t, d.post(func() {}), "post after close")
	d.close()
}

func TestHasWalletProvider(t *testing.T) {
	assert.False(t, newProvider(t, Options{}).HasWalletProvider(), "no keystore")

	empty, _ := newKeystore(t, 0)
	assert.False(t, newProvider(t, Options{Keystore: empty}).HasWalletProvider(), "no accounts")

	ks, _ := newKeystore(t, 1)
	assert.True(t, newProvider(t, Options{Keystore: ks}).HasWalletProvider())
}

func TestRequestAccounts(t *testing.T) {
	t.Run("prompt unlocks", func(t *testing.T) {
		ks, addrs := newKeystore(t, 1)
		p := newProvider(t, Options{Keystore: ks, Prompt: staticPrompt(passphrase, nil)})

		before, err := p.QueryAuthorizedAccounts(context.Background())
		require.NoError(t, err)
		assert.Empty(t, before)

		got, err := p.RequestAccounts(context.Background())
		require.NoError(t, err)
		assert.Equal(t, addrs, got)

		after, err := p.QueryAuthorizedAccounts(context.Background())
		require.NoError(t, err)
		assert.Equal(t, addrs, after)
	})

	t.Run("cancelled prompt", func(t *testing.T) {
		ks, _ := newKeystore(t, 1)
		p := newProvider(t, Options{Keystore: ks, Prompt: staticPrompt("", ErrPromptCancelled)})

		_, err := p.RequestAccounts(context.Background())
		assert.ErrorIs(t, err, provider.ErrUserRejected)
	})

	t.Run("wrong passphrase", func(t *testing.T) {
		ks, _ := newKeystore(t, 1)
		p := newProvider(t, Options{Keystore: ks, Prompt: staticPrompt("nope", nil)})

		_, err := p.RequestAccounts(context.Background())
		assert.ErrorIs(t, err, provider.ErrUserRejected)
	})

	t.Run("prompt failure", func(t *testing.T) {
		ks, _ := newKeystore(t, 1)
		p := newProvider(t, Options{Keystore: ks, Prompt: staticPrompt("", errors.New("tty gone"))})

		_, err := p.RequestAccounts(context.Background())
		assert.ErrorIs(t, err, provider.ErrProvider)
	})

	t.Run("no keystore", func(t *testing.T) {
		p := newProvider(t, Options{})
		_, err := p.RequestAccounts(context.Background())
		assert.ErrorIs(t, err, provider.ErrNoWalletProvider)
	})
}

func TestQueryWithPassphrase(t *testing.T) {
	ks, addrs := newKeystore(t, 2)
	p := newProvider(t, Options{Keystore: ks, Passphrase: passphrase, Preferred: addrs[1]})

	got, err := p.QueryAuthorizedAccounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []common.Address{addrs[1]}, got)
	assert.Equal(t, addrs[1], p.Preferred())
}

func TestSetPreferredAccount(t *testing.T) {
	ks, addrs := newKeystore(t, 2)
	p := newProvider(t, Options{Keystore: ks, Prompt: staticPrompt(passphrase, nil), Preferred: addrs[0]})

	notified := make(chan []common.Address, 4)
	sub := p.OnAccountsChange(func(list []common.Address) { notified <- list })
	defer sub.Unsubscribe()

	_, err := p.RequestAccounts(context.Background())
	require.NoError(t, err)

	require.NoError(t, p.SetPreferredAccount(addrs[1]))
	select {
	case list := <-notified:
		assert.Empty(t, list, "the new account is still locked")
	case <-time.After(time.Second):
		t.Fatal("no accounts notification")
	}

	require.NoError(t, p.SetPreferredAccount(addrs[0]))
	select {
	case list := <-notified:
		assert.Equal(t, []common.Address{addrs[0]}, list, "previously unlocked account is authorized again")
	case <-time.After(time.Second):
		t.Fatal("no accounts notification")
	}

	err = p.SetPreferredAccount(common.HexToAddress("0x0bad"))
	assert.ErrorIs(t, err, provider.ErrInvalidArgument)
}

func TestNotConnected(t *testing.T) {
	p := newProvider(t, Options{})

	_, err := p.CurrentChainID(context.Background())
	assert.ErrorIs(t, err, provider.ErrRPC)
	_, err = p.CurrentBlockHeight(context.Background())
	assert.ErrorIs(t, err, provider.ErrRPC)
	_, err = p.BindContract(common.HexToAddress("0x01"))
	assert.ErrorIs(t, err, provider.ErrRPC)
	assert.Nil(t, p.Client())

	_, err = p.Dial(context.Background(), "not-a-valid-url")
	assert.ErrorIs(t, err, provider.ErrRPC)
}

func TestNetworkHandlersRemoved(t *testing.T) {
	p := newProvider(t, Options{})

	calls := make(chan uint64, 4)
	sub := p.OnNetworkChange(func(id uint64) { calls <- id })
	p.emitNetwork(4)
	select {
	case id := <-calls:
		assert.Equal(t, uint64(4), id)
	case <-time.After(time.Second):
		t.Fatal("no network notification")
	}

	sub.Unsubscribe()
	p.emitNetwork(5)
	done := make(chan struct{})
	p.disp.post(func() { close(done) })
	<-done
	assert.Empty(t, calls)
}
