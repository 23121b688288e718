package main

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"wave-portal-tui/config"
	"wave-portal-tui/notify"
	"wave-portal-tui/rpc"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nextMsg(t *testing.T, r *relay) tea.Msg {
	t.Helper()
	select {
	case msg := <-r.msgs:
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message queued")
		return nil
	}
}

func TestRelayForwardsNotifications(t *testing.T) {
	r := newRelay()
	defer r.close()
	bus := notify.New()

	release, err := r.subscribe(bus)
	require.NoError(t, err)

	bus.Publish(notify.TopicFeedChanged)
	assert.IsType(t, feedChangedMsg{}, nextMsg(t, r))

	winner := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	bus.Publish(notify.TopicPrizeWon, notify.PrizeWon{Winner: winner, Amount: big.NewInt(1)})
	msg := nextMsg(t, r)
	require.IsType(t, prizeWonMsg{}, msg)
	assert.Equal(t, winner, msg.(prizeWonMsg).prize.Winner)

	bus.Publish(notify.TopicSubmissionError, notify.SubmissionError{Message: "boom"})
	msg = nextMsg(t, r)
	require.IsType(t, submissionErrorMsg{}, msg)
	assert.Equal(t, "boom", msg.(submissionErrorMsg).failure.Message)

	bus.Publish(notify.TopicLiveStopped, notify.LiveStopped{Event: "NewWave", Err: errors.New("eof")})
	msg = nextMsg(t, r)
	require.IsType(t, liveStoppedMsg{}, msg)
	assert.Equal(t, "NewWave", msg.(liveStoppedMsg).stopped.Event)

	release()
	assert.False(t, bus.HasSubscribers(notify.TopicFeedChanged))
	assert.False(t, bus.HasSubscribers(notify.TopicLiveStopped))
	assert.False(t, bus.HasSubscribers(notify.TopicSessionChanged))
}

func TestRelaySendAfterClose(t *testing.T) {
	r := newRelay()
	for i := 0; i < cap(r.msgs); i++ {
		r.send(feedChangedMsg{})
	}
	r.close()
	r.close()

	done := make(chan struct{})
	go func() {
		r.send(feedChangedMsg{})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("send blocked on a closed relay")
	}
}

func TestRelayPassword(t *testing.T) {
	acct := accounts.Account{Address: common.HexToAddress("0x00000000000000000000000000000000000000bb")}

	t.Run("answered", func(t *testing.T) {
		r := newRelay()
		defer r.close()
		go func() {
			req := (<-r.msgs).(passwordRequestMsg)
			req.reply <- passwordReply{password: "hunter2"}
		}()
		pw, err := r.Password(context.Background(), acct)
		require.NoError(t, err)
		assert.Equal(t, "hunter2", pw)
	})

	t.Run("cancelled by context", func(t *testing.T) {
		r := newRelay()
		defer r.close()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := r.Password(ctx, acct)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("relay closed", func(t *testing.T) {
		r := newRelay()
		go func() {
			<-r.msgs
			r.close()
		}()
		_, err := r.Password(context.Background(), acct)
		assert.True(t, errors.Is(err, rpc.ErrPromptCancelled))
	})
}

func TestLogSinkTrims(t *testing.T) {
	s := &logSink{}
	line := strings.Repeat("x", 99) + "\n"
	for i := 0; i < (maxLogBytes/len(line))+10; i++ {
		_, err := s.Write([]byte(line))
		require.NoError(t, err)
	}

	out := s.String()
	assert.LessOrEqual(t, len(out), maxLogBytes)
	assert.True(t, strings.HasPrefix(out, "x"), "trimmed buffer should start on a line boundary")
	assert.True(t, strings.HasSuffix(out, "\n"))

	s.Reset()
	assert.Empty(t, s.String())
}

func TestApplyFlags(t *testing.T) {
	cfg := config.DefaultConfig()

	t.Run("untouched flags keep config", func(t *testing.T) {
		got := applyFlags(rootCmd, cfg)
		assert.Equal(t, cfg.ChainID, got.ChainID)
		assert.Equal(t, cfg.Contract, got.Contract)
	})

	t.Run("given flags override", func(t *testing.T) {
		f := rootCmd.Flags()
		require.NoError(t, f.Set("chain-id", "31337"))
		require.NoError(t, f.Set("gas-limit", "120000"))
		require.NoError(t, f.Set("rpc", "ws://127.0.0.1:8545"))
		t.Cleanup(func() {
			for _, name := range []string{"chain-id", "gas-limit", "rpc"} {
				f.Lookup(name).Changed = false
			}
			flags.chainID, flags.gasLimit, flags.rpcURL = 0, 0, ""
		})

		got := applyFlags(rootCmd, cfg)
		assert.Equal(t, uint64(31337), got.ChainID)
		assert.Equal(t, uint64(120000), got.GasLimit)
		active, ok := got.ActiveRPC()
		require.True(t, ok)
		assert.Equal(t, "ws://127.0.0.1:8545", active.URL)
	})
}
