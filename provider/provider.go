// Package provider describes the wallet and chain capability the portal core
// consumes. The rpc package implements it on top of go-ethereum; the
// providertest package implements it in memory.
package provider

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Subscription is a registered callback. Unsubscribe must be safe to call more
// than once.
type Subscription interface {
	Unsubscribe()
}

// SubscriptionFunc adapts a plain function to Subscription.
type SubscriptionFunc func()

// Unsubscribe calls f.
func (f SubscriptionFunc) Unsubscribe() { f() }

// Droppable is a Subscription that can end on its own, for example when the
// node connection goes away. Done is closed at that point and Err returns the
// cause. Neither fires after Unsubscribe.
type Droppable interface {
	Subscription
	Done() <-chan struct{}
	Err() error
}

// Provider is a wallet plus its connection to a chain node.
type Provider interface {
	// HasWalletProvider reports whether a wallet is available at all.
	HasWalletProvider() bool
	// QueryAuthorizedAccounts returns accounts already authorized, without prompting.
	QueryAuthorizedAccounts(ctx context.Context) ([]common.Address, error)
	// RequestAccounts asks for authorization and may prompt the user.
	RequestAccounts(ctx context.Context) ([]common.Address, error)
	CurrentChainID(ctx context.Context) (uint64, error)
	// OnNetworkChange registers fn for network notifications. The first
	// notification after registration announces the current network.
	OnNetworkChange(fn func(chainID uint64)) Subscription
	OnAccountsChange(fn func(accounts []common.Address)) Subscription
	CurrentBlockHeight(ctx context.Context) (uint64, error)
	BindContract(address common.Address) (Contract, error)
}

// Contract is a WavePortal binding.
type Contract interface {
	// GetAllWaves returns the full history, oldest first, as of atBlock.
	GetAllWaves(ctx context.Context, atBlock uint64) ([]Wave, error)
	GetTotalWaves(ctx context.Context, atBlock uint64) (uint64, error)
	Wave(ctx context.Context, message string, opts TxOptions) (TxHandle, error)
	OnNewWave(fn func(NewWaveEvent)) (Subscription, error)
	OnPrizeEarned(fn func(PrizeEarnedEvent)) (Subscription, error)
}

// TxOptions are the write options the core controls.
type TxOptions struct {
	GasLimit uint64
}

// TxHandle is a transaction accepted into the pending pool.
type TxHandle interface {
	Hash() common.Hash
	Wait(ctx context.Context) (*Receipt, error)
}

// Receipt is the confirmation of a mined transaction.
type Receipt struct {
	TxHash      common.Hash
	BlockNumber uint64
	Status      uint64
}

// Succeeded reports whether the transaction executed without reverting.
func (r *Receipt) Succeeded() bool {
	return r != nil && r.Status == types.ReceiptStatusSuccessful
}

// Wave is one entry of the contract's stored history.
type Wave struct {
	Sender    common.Address
	Timestamp time.Time
	Message   string
}

// EventMeta locates a log on chain.
type EventMeta struct {
	BlockNumber uint64
	TxHash      common.Hash
	LogIndex    uint
}

// NewWaveEvent is a decoded NewWave log.
type NewWaveEvent struct {
	Sender    common.Address
	Timestamp time.Time
	Message   string
	Meta      EventMeta
}

// PrizeEarnedEvent is a decoded PrizeEarned log.
type PrizeEarnedEvent struct {
	Winner    common.Address
	Timestamp time.Time
	Amount    *big.Int
	Meta      EventMeta
}
