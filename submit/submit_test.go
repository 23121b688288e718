package submit

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wave-portal-tui/notify"
	"wave-portal-tui/provider"
	"wave-portal-tui/provider/providertest"
)

type binder struct {
	contract *providertest.Contract
	err      error
}

func (b *binder) Contract() (provider.Contract, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.contract, nil
}

type network bool

func (n network) IsTargetNetwork() bool { return bool(n) }

type events struct {
	mu     sync.Mutex
	states []string
	errs   []notify.SubmissionError
}

func (e *events) States() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.states...)
}

func newController(t *testing.T, b Binder, guard NetworkGuard) (*Controller, *events) {
	t.Helper()
	bus := notify.New()
	ev := &events{}
	_, err := bus.Subscribe(notify.TopicSubmissionState, func(s notify.SubmissionState) {
		ev.mu.Lock()
		ev.states = append(ev.states, s.State)
		ev.mu.Unlock()
	})
	require.NoError(t, err)
	_, err = bus.Subscribe(notify.TopicSubmissionError, func(s notify.SubmissionError) {
		ev.mu.Lock()
		ev.errs = append(ev.errs, s)
		ev.mu.Unlock()
	})
	require.NoError(t, err)
	return NewController(b, guard, 0, bus, log.New(io.Discard)), ev
}

func TestSubmitSuccess(t *testing.T) {
	contract := providertest.NewContract()
	c, ev := newController(t, &binder{contract: contract}, network(true))

	require.True(t, c.SetDraft("gm"))
	require.NoError(t, c.Submit(context.Background(), "gm"))

	assert.Equal(t, []string{"gm"}, contract.Calls())
	assert.Equal(t, DefaultGasLimit, contract.LastGasLimit)
	assert.Equal(t, Idle, c.State())
	assert.Empty(t, c.Draft(), "draft is cleared after confirmation")
	assert.Equal(t, common.HexToHash("0x01"), c.LastTxHash())
	assert.Equal(t, []string{"submitting", "mining", "succeeded", "idle"}, ev.States())
	assert.Empty(t, ev.errs)
}

func TestSubmitRejectsBeforeNetwork(t *testing.T) {
	tests := []struct {
		name    string
		message string
		guard   NetworkGuard
		binder  *binder
		want    error
	}{
		{name: "empty message", message: "", guard: network(true), want: provider.ErrInvalidArgument},
		{name: "whitespace message", message: "  \t", guard: network(true), want: provider.ErrInvalidArgument},
		{name: "wrong network", message: "gm", guard: network(false), want: provider.ErrWrongNetwork},
		{
			name:    "no binding",
			message: "gm",
			guard:   network(true),
			binder:  &binder{err: errors.New("not connected")},
			want:    provider.ErrNoWalletProvider,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			contract := providertest.NewContract()
			b := tt.binder
			if b == nil {
				b = &binder{contract: contract}
			}
			c, ev := newController(t, b, tt.guard)

			err := c.Submit(context.Background(), tt.message)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, contract.Calls(), "provider must not be called")
			assert.Equal(t, Idle, c.State())
			assert.Empty(t, ev.States())
		})
	}
}

func TestSubmitWhileMining(t *testing.T) {
	contract := providertest.NewContract()
	tx := providertest.NewTx(common.HexToHash("0xabc"), types.ReceiptStatusSuccessful, nil).Hold()
	contract.NextTx = tx
	c, _ := newController(t, &binder{contract: contract}, network(true))

	done := make(chan error, 1)
	go func() { done <- c.Submit(context.Background(), "first") }()

	select {
	case <-tx.Waiting():
	case <-time.After(time.Second):
		t.Fatal("submission never reached mining")
	}
	require.Equal(t, Mining, c.State())
	assert.False(t, c.InputEnabled())
	assert.False(t, c.CanSubmit())
	assert.False(t, c.SetDraft("edited"))

	err := c.Submit(context.Background(), "gm")
	assert.ErrorIs(t, err, provider.ErrInvalidState)
	assert.Equal(t, Mining, c.State(), "state is unchanged")
	assert.Equal(t, common.HexToHash("0xabc"), c.LastTxHash())
	assert.Equal(t, []string{"first"}, contract.Calls())

	tx.Release()
	require.NoError(t, <-done)
	assert.Equal(t, Idle, c.State())
}

func TestSubmitFailure(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*providertest.Contract)
		want  error
	}{
		{
			name: "user rejected",
			setup: func(c *providertest.Contract) {
				c.WaveErr = provider.ErrUserRejected
			},
			want: provider.ErrUserRejected,
		},
		{
			name: "send failure",
			setup: func(c *providertest.Contract) {
				c.WaveErr = errors.New("nonce too low")
			},
			want: provider.ErrTransactionFailed,
		},
		{
			name: "reverted",
			setup: func(c *providertest.Contract) {
				c.NextTx = providertest.NewTx(common.HexToHash("0x02"), types.ReceiptStatusFailed, nil)
			},
			want: provider.ErrTransactionFailed,
		},
		{
			name: "wait failure",
			setup: func(c *providertest.Contract) {
				c.NextTx = providertest.NewTx(common.HexToHash("0x03"), 0, context.DeadlineExceeded)
			},
			want: provider.ErrRPC,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			contract := providertest.NewContract()
			tt.setup(contract)
			c, ev := newController(t, &binder{contract: contract}, network(true))
			c.SetDraft("gm")

			err := c.Submit(context.Background(), "gm")
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, Idle, c.State())
			assert.Equal(t, "gm", c.Draft(), "draft is kept for a retry")
			assert.True(t, c.CanSubmit())

			states := ev.States()
			require.GreaterOrEqual(t, len(states), 3)
			assert.Equal(t, []string{"failed", "idle"}, states[len(states)-2:])
			require.Len(t, ev.errs, 1)
			assert.Equal(t, ErrorMessage, ev.errs[0].Message)
		})
	}
}

func TestInputGating(t *testing.T) {
	c := NewController(&binder{contract: providertest.NewContract()}, network(true), 0, notify.New(), log.New(io.Discard))

	assert.True(t, c.InputEnabled())
	assert.False(t, c.CanSubmit(), "empty draft")
	c.SetDraft("   ")
	assert.False(t, c.CanSubmit(), "blank draft")
	c.SetDraft("gm")
	assert.True(t, c.CanSubmit())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "mining", Mining.String())
	assert.Equal(t, "unknown", State(42).String())
}
