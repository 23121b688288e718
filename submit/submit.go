// Package submit drives a wave transaction through its lifecycle.
package submit

import (
	"context"
	"strings"
	"sync"

	errorsmod "cosmossdk.io/errors"
	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/common"

	"wave-portal-tui/notify"
	"wave-portal-tui/provider"
)

// DefaultGasLimit is the gas ceiling of a wave transaction.
const DefaultGasLimit uint64 = 300000

// ErrorMessage is the text shown when a submission fails.
const ErrorMessage = "An error occurred. If you recently sent a wave, please wait a few minutes and try again."

// State is the lifecycle of one submission.
type State int

const (
	Idle State = iota
	Submitting
	Mining
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Submitting:
		return "submitting"
	case Mining:
		return "mining"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Binder resolves the contract binding of the current session.
type Binder interface {
	Contract() (provider.Contract, error)
}

// NetworkGuard reports whether writes may go to the current network.
type NetworkGuard interface {
	IsTargetNetwork() bool
}

// Controller owns the submission state and the drafted message.
type Controller struct {
	binder   Binder
	guard    NetworkGuard
	gasLimit uint64
	bus      *notify.Bus
	logger   *log.Logger

	mu     sync.Mutex
	state  State
	draft  string
	txHash common.Hash
}

// NewController creates an idle controller. A zero gasLimit selects
// DefaultGasLimit.
func NewController(binder Binder, guard NetworkGuard, gasLimit uint64, bus *notify.Bus, logger *log.Logger) *Controller {
	if gasLimit == 0 {
		gasLimit = DefaultGasLimit
	}
	return &Controller{
		binder:   binder,
		guard:    guard,
		gasLimit: gasLimit,
		bus:      bus,
		logger:   logger,
	}
}

// Submit sends message as a wave and waits for it to be mined. On success the
// draft is cleared; on failure it is kept so the user can retry. The feed is
// not touched here: the new wave arrives through the event watcher.
func (c *Controller) Submit(ctx context.Context, message string) error {
	c.mu.Lock()
	if c.state != Idle {
		state := c.state
		c.mu.Unlock()
		return errorsmod.Wrapf(provider.ErrInvalidState, "submission already %s", state)
	}
	if strings.TrimSpace(message) == "" {
		c.mu.Unlock()
		return errorsmod.Wrap(provider.ErrInvalidArgument, "message is empty")
	}
	if c.guard != nil && !c.guard.IsTargetNetwork() {
		c.mu.Unlock()
		return provider.ErrWrongNetwork
	}
	binding, err := c.binder.Contract()
	if err != nil {
		c.mu.Unlock()
		return provider.Classify(err, provider.ErrNoWalletProvider)
	}
	c.state = Submitting
	c.draft = message
	c.txHash = common.Hash{}
	c.mu.Unlock()
	c.publish(Submitting, common.Hash{})

	tx, err := binding.Wave(ctx, message, provider.TxOptions{GasLimit: c.gasLimit})
	if err != nil {
		return c.fail(provider.Classify(err, provider.ErrTransactionFailed))
	}

	hash := tx.Hash()
	c.transition(Mining, hash)
	c.logger.Info("mining", "tx", hash.Hex())

	receipt, err := tx.Wait(ctx)
	if err != nil {
		return c.fail(provider.Classify(err, provider.ErrRPC))
	}
	if !receipt.Succeeded() {
		return c.fail(errorsmod.Wrapf(provider.ErrTransactionFailed, "transaction %s reverted", hash.Hex()))
	}

	c.logger.Info("mined", "tx", hash.Hex(), "block", receipt.BlockNumber)
	c.transition(Succeeded, hash)

	c.mu.Lock()
	c.draft = ""
	c.state = Idle
	c.mu.Unlock()
	c.publish(Idle, hash)
	return nil
}

func (c *Controller) fail(err error) error {
	c.mu.Lock()
	hash := c.txHash
	c.mu.Unlock()

	c.logger.Error("wave failed", "err", err)
	c.transition(Failed, hash)
	c.bus.Publish(notify.TopicSubmissionError, notify.SubmissionError{Message: ErrorMessage, Err: err})
	c.transition(Idle, hash)
	return err
}

func (c *Controller) transition(s State, hash common.Hash) {
	c.mu.Lock()
	c.state = s
	c.txHash = hash
	c.mu.Unlock()
	c.publish(s, hash)
}

func (c *Controller) publish(s State, hash common.Hash) {
	c.bus.Publish(notify.TopicSubmissionState, notify.SubmissionState{State: s.String(), TxHash: hash})
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetDraft replaces the drafted message. It is ignored while a submission is in
// flight and reports whether the draft was changed.
func (c *Controller) SetDraft(message string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if busy(c.state) {
		return false
	}
	c.draft = message
	return true
}

// Draft returns the drafted message.
func (c *Controller) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// LastTxHash is the hash of the most recent transaction, if one was sent.
func (c *Controller) LastTxHash() common.Hash {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.txHash
}

// InputEnabled reports whether the message input accepts edits.
func (c *Controller) InputEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !busy(c.state)
}

// CanSubmit reports whether the submit action should be enabled.
func (c *Controller) CanSubmit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !busy(c.state) && strings.TrimSpace(c.draft) != ""
}

func busy(s State) bool {
	return s == Submitting || s == Mining
}
