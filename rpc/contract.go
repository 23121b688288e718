package rpc

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"sync/atomic"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"

	"wave-portal-tui/contract"
	"wave-portal-tui/provider"
)

// boundContract is the WavePortal binding on one node connection.
type boundContract struct {
	p       *Provider
	client  *Client
	address common.Address
	bound   *bind.BoundContract
}

func newBoundContract(p *Provider, client *Client, address common.Address) *boundContract {
	return &boundContract{
		p:       p,
		client:  client,
		address: address,
		bound:   bind.NewBoundContract(address, p.abi, client.Client, client.Client, client.Client),
	}
}

// callOpts pins a call at atBlock. Height 0 is the genesis block, not latest.
func callOpts(ctx context.Context, atBlock uint64) *bind.CallOpts {
	return &bind.CallOpts{Context: ctx, BlockNumber: new(big.Int).SetUint64(atBlock)}
}

// GetAllWaves reads every wave as of atBlock, oldest first.
func (c *boundContract) GetAllWaves(ctx context.Context, atBlock uint64) ([]provider.Wave, error) {
	var out []interface{}
	if err := c.bound.Call(callOpts(ctx, atBlock), &out, contract.MethodGetAllWaves); err != nil {
		return nil, provider.Classify(err, provider.ErrRPC)
	}
	raw, err := contract.UnpackWaves(out)
	if err != nil {
		return nil, errorsmod.Wrap(provider.ErrRPC, err.Error())
	}
	waves := make([]provider.Wave, len(raw))
	for i, w := range raw {
		waves[i] = w.Wave()
	}
	return waves, nil
}

func (c *boundContract) GetTotalWaves(ctx context.Context, atBlock uint64) (uint64, error) {
	var out []interface{}
	if err := c.bound.Call(callOpts(ctx, atBlock), &out, contract.MethodGetTotalWaves); err != nil {
		return 0, provider.Classify(err, provider.ErrRPC)
	}
	total, err := contract.UnpackTotal(out)
	if err != nil {
		return 0, errorsmod.Wrap(provider.ErrRPC, err.Error())
	}
	return total, nil
}

// Wave signs and sends wave(message) from the authorized account.
func (c *boundContract) Wave(ctx context.Context, message string, opts provider.TxOptions) (provider.TxHandle, error) {
	acct, chainID, err := c.p.signer()
	if err != nil {
		return nil, err
	}
	auth, err := bind.NewKeyStoreTransactorWithChainID(c.p.ks, acct, new(big.Int).SetUint64(chainID))
	if err != nil {
		return nil, errorsmod.Wrap(provider.ErrProvider, err.Error())
	}
	auth.Context = ctx
	auth.GasLimit = opts.GasLimit

	tx, err := c.bound.Transact(auth, contract.MethodWave, message)
	if errors.Is(err, keystore.ErrLocked) {
		return nil, errorsmod.Wrap(provider.ErrUserRejected, err.Error())
	}
	if err != nil {
		return nil, provider.Classify(err, provider.ErrTransactionFailed)
	}
	return &txHandle{tx: tx, client: c.client}, nil
}

func (c *boundContract) OnNewWave(fn func(provider.NewWaveEvent)) (provider.Subscription, error) {
	return c.watch(contract.EventNewWave, func(l types.Log) {
		ev, err := contract.DecodeNewWave(c.p.abi, l)
		if err != nil {
			c.p.logger.Warn("undecodable log", "event", contract.EventNewWave, "tx", l.TxHash.Hex(), "err", err)
			return
		}
		fn(ev.Event())
	})
}

func (c *boundContract) OnPrizeEarned(fn func(provider.PrizeEarnedEvent)) (provider.Subscription, error) {
	return c.watch(contract.EventPrizeEarned, func(l types.Log) {
		ev, err := contract.DecodePrizeEarned(c.p.abi, l)
		if err != nil {
			c.p.logger.Warn("undecodable log", "event", contract.EventPrizeEarned, "tx", l.TxHash.Hex(), "err", err)
			return
		}
		fn(ev.Event())
	})
}

// watch subscribes to name from the chain head and forwards each log to the
// dispatcher. Logs queued after Unsubscribe are not delivered.
func (c *boundContract) watch(name string, deliver func(types.Log)) (provider.Subscription, error) {
	logs, sub, err := c.bound.WatchLogs(&bind.WatchOpts{Context: c.p.ctx}, name)
	if err != nil {
		return nil, errorsmod.Wrapf(provider.ErrProvider, "watch %s: %s", name, err)
	}

	ls := &logSubscription{sub: sub, done: make(chan struct{})}
	go func() {
		for {
			select {
			case l := <-logs:
				if l.Removed {
					continue
				}
				c.p.disp.post(func() {
					if !ls.stopped.Load() {
						deliver(l)
					}
				})
			case err, ok := <-sub.Err():
				if ok && err != nil && !ls.stopped.Load() {
					c.p.logger.Warn("log subscription ended", "event", name, "err", err)
					ls.fail(errorsmod.Wrapf(provider.ErrRPC, "%s stream: %s", name, err))
				}
				return
			}
		}
	}()
	return ls, nil
}

// logSubscription is a provider.Droppable over a WatchLogs subscription.
type logSubscription struct {
	sub     event.Subscription
	stopped atomic.Bool
	done    chan struct{}
	once    sync.Once
	err     error
}

func (s *logSubscription) Unsubscribe() {
	s.stopped.Store(true)
	s.sub.Unsubscribe()
}

func (s *logSubscription) Done() <-chan struct{} { return s.done }

// Err is valid once Done is closed.
func (s *logSubscription) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

func (s *logSubscription) fail(err error) {
	s.once.Do(func() {
		s.err = err
		close(s.done)
	})
}

type txHandle struct {
	tx     *types.Transaction
	client *Client
}

func (t *txHandle) Hash() common.Hash { return t.tx.Hash() }

func (t *txHandle) Wait(ctx context.Context) (*provider.Receipt, error) {
	r, err := bind.WaitMined(ctx, t.client.Client, t.tx)
	if err != nil {
		return nil, provider.Classify(err, provider.ErrRPC)
	}
	var block uint64
	if r.BlockNumber != nil {
		block = r.BlockNumber.Uint64()
	}
	return &provider.Receipt{TxHash: r.TxHash, BlockNumber: block, Status: r.Status}, nil
}
