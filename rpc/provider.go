package rpc

import (
	"context"
	"errors"
	"sync"

	errorsmod "cosmossdk.io/errors"
	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"

	"wave-portal-tui/contract"
	"wave-portal-tui/provider"
)

// ErrPromptCancelled is returned by a PasswordFunc when the user dismisses the
// prompt.
var ErrPromptCancelled = errors.New("password prompt cancelled")

// PasswordFunc asks the user for the passphrase of account.
type PasswordFunc func(ctx context.Context, account accounts.Account) (string, error)

// Options configures a Provider.
type Options struct {
	// KeystoreDir is the directory of encrypted key files. Ignored when
	// Keystore is set.
	KeystoreDir string
	Keystore    *keystore.KeyStore
	// Passphrase unlocks the preferred account without prompting.
	Passphrase string
	Prompt     PasswordFunc
	Preferred  common.Address
	Logger     *log.Logger
}

// Provider is a provider.Provider backed by a local keystore wallet and a
// JSON-RPC node. All push callbacks run on one dispatcher goroutine.
type Provider struct {
	ks         *keystore.KeyStore
	passphrase string
	prompt     PasswordFunc
	abi        abi.ABI
	logger     *log.Logger
	disp       *dispatcher

	ctx    context.Context
	cancel context.CancelFunc
	ksSub  event.Subscription

	mu           sync.Mutex
	client       *Client
	chainID      uint64
	preferred    common.Address
	authorized   common.Address
	unlocked     map[common.Address]bool
	nextID       int
	netHandlers  map[int]func(uint64)
	acctHandlers map[int]func([]common.Address)
}

var _ provider.Provider = (*Provider)(nil)

// New opens the keystore and starts the dispatcher. The provider has no node
// until Dial is called.
func New(opts Options) (*Provider, error) {
	parsed, err := contract.ParseABI()
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	ks := opts.Keystore
	if ks == nil && opts.KeystoreDir != "" {
		ks = keystore.NewKeyStore(opts.KeystoreDir, keystore.StandardScryptN, keystore.StandardScryptP)
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Provider{
		ks:           ks,
		passphrase:   opts.Passphrase,
		prompt:       opts.Prompt,
		abi:          parsed,
		logger:       logger,
		disp:         newDispatcher(256),
		ctx:          ctx,
		cancel:       cancel,
		preferred:    opts.Preferred,
		unlocked:     make(map[common.Address]bool),
		netHandlers:  make(map[int]func(uint64)),
		acctHandlers: make(map[int]func([]common.Address)),
	}

	if ks != nil {
		events := make(chan accounts.WalletEvent, 16)
		p.ksSub = ks.Subscribe(events)
		go p.watchWallets(events)
	}
	return p, nil
}

// Dial connects to url and makes it the active node. It reports whether the
// chain id changed, in which case network handlers are notified.
func (p *Provider) Dial(ctx context.Context, url string) (bool, error) {
	res := connect(ctx, url)
	if res.Error != nil {
		return false, errorsmod.Wrapf(provider.ErrRPC, "dial %s: %s", url, res.Error)
	}

	p.mu.Lock()
	old := p.client
	prev := p.chainID
	p.client = res.Client
	p.chainID = res.ChainID
	p.mu.Unlock()

	if old != nil {
		old.Close()
	}
	p.logger.Info("connected", "url", url, "chain", res.ChainID)

	if prev == res.ChainID {
		return false, nil
	}
	p.emitNetwork(res.ChainID)
	return true, nil
}

// Client returns the active node client, or nil before Dial.
func (p *Provider) Client() *Client {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.client
}

// Close stops the dispatcher and releases the node and keystore watches.
func (p *Provider) Close() {
	p.cancel()
	if p.ksSub != nil {
		p.ksSub.Unsubscribe()
	}
	p.disp.close()

	p.mu.Lock()
	client := p.client
	p.client = nil
	p.mu.Unlock()
	if client != nil {
		client.Close()
	}
}

func (p *Provider) HasWalletProvider() bool {
	return p.ks != nil && len(p.ks.Accounts()) > 0
}

// QueryAuthorizedAccounts returns the unlocked account, if any. When a
// passphrase is configured the preferred account is unlocked with it first.
func (p *Provider) QueryAuthorizedAccounts(ctx context.Context) ([]common.Address, error) {
	if p.ks == nil {
		return nil, provider.ErrNoWalletProvider
	}
	acct, ok := p.account()
	if !ok {
		return nil, nil
	}
	if p.isUnlocked(acct.Address) {
		p.setAuthorized(acct.Address)
		return []common.Address{acct.Address}, nil
	}
	if p.passphrase == "" {
		return nil, nil
	}
	if err := p.ks.Unlock(acct, p.passphrase); err != nil {
		p.logger.Warn("configured passphrase does not unlock account", "account", acct.Address.Hex(), "err", err)
		return nil, nil
	}
	p.markUnlocked(acct.Address)
	return []common.Address{acct.Address}, nil
}

// RequestAccounts unlocks the preferred account, prompting for its passphrase.
func (p *Provider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	if p.ks == nil {
		return nil, provider.ErrNoWalletProvider
	}
	acct, ok := p.account()
	if !ok {
		return nil, errorsmod.Wrap(provider.ErrNoWalletProvider, "keystore has no accounts")
	}
	if p.isUnlocked(acct.Address) {
		p.setAuthorized(acct.Address)
		return []common.Address{acct.Address}, nil
	}

	pass := p.passphrase
	if p.prompt != nil {
		var err error
		pass, err = p.prompt(ctx, acct)
		if errors.Is(err, ErrPromptCancelled) {
			return nil, errorsmod.Wrap(provider.ErrUserRejected, err.Error())
		}
		if err != nil {
			return nil, provider.Classify(err, provider.ErrProvider)
		}
	} else if pass == "" {
		return nil, errorsmod.Wrap(provider.ErrUserRejected, "no passphrase available")
	}

	if err := p.ks.Unlock(acct, pass); err != nil {
		if errors.Is(err, keystore.ErrDecrypt) {
			return nil, errorsmod.Wrap(provider.ErrUserRejected, "wrong passphrase")
		}
		return nil, errorsmod.Wrap(provider.ErrProvider, err.Error())
	}
	p.markUnlocked(acct.Address)
	p.logger.Info("account unlocked", "account", acct.Address.Hex())
	return []common.Address{acct.Address}, nil
}

// Accounts lists the keystore accounts.
func (p *Provider) Accounts() []common.Address {
	if p.ks == nil {
		return nil
	}
	all := p.ks.Accounts()
	out := make([]common.Address, len(all))
	for i, a := range all {
		out[i] = a.Address
	}
	return out
}

// Preferred returns the account RequestAccounts will unlock.
func (p *Provider) Preferred() common.Address {
	acct, _ := p.account()
	return acct.Address
}

// SetPreferredAccount switches the active account and notifies account
// handlers with the new authorization.
func (p *Provider) SetPreferredAccount(addr common.Address) error {
	if p.ks == nil || !p.ks.HasAddress(addr) {
		return errorsmod.Wrapf(provider.ErrInvalidArgument, "account %s is not in the keystore", addr.Hex())
	}

	p.mu.Lock()
	if p.preferred == addr && p.authorized == addr {
		p.mu.Unlock()
		return nil
	}
	p.preferred = addr
	if p.unlocked[addr] {
		p.authorized = addr
	} else {
		p.authorized = common.Address{}
	}
	current := p.authorizedList()
	p.mu.Unlock()

	p.emitAccounts(current)
	return nil
}

func (p *Provider) CurrentChainID(ctx context.Context) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client == nil {
		return 0, errorsmod.Wrap(provider.ErrRPC, "not connected")
	}
	return p.chainID, nil
}

func (p *Provider) CurrentBlockHeight(ctx context.Context) (uint64, error) {
	client := p.Client()
	if client == nil {
		return 0, errorsmod.Wrap(provider.ErrRPC, "not connected")
	}
	height, err := client.BlockNumber(ctx)
	if err != nil {
		return 0, provider.Classify(err, provider.ErrRPC)
	}
	return height, nil
}

// OnNetworkChange registers fn and, when the chain is known, announces it.
func (p *Provider) OnNetworkChange(fn func(chainID uint64)) provider.Subscription {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.netHandlers[id] = fn
	chainID := p.chainID
	p.mu.Unlock()

	if chainID != 0 {
		p.disp.post(func() {
			if h := p.netHandler(id); h != nil {
				h(chainID)
			}
		})
	}
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

func (p *Provider) BindContract(address common.Address) (provider.Contract, error) {
	client := p.Client()
	if client == nil {
		return nil, errorsmod.Wrap(provider.ErrRPC, "not connected")
	}
	return newBoundContract(p, client, address), nil
}

func (p *Provider) watchWallets(events <-chan accounts.WalletEvent) {
	for {
		select {
		case ev := <-events:
			for _, acct := range ev.Wallet.Accounts() {
				switch ev.Kind {
				case accounts.WalletArrived:
					p.logger.Debug("keystore account arrived", "account", acct.Address.Hex())
				case accounts.WalletDropped:
					p.dropAccount(acct.Address)
				}
			}
		case <-p.ksSub.Err():
			return
		case <-p.ctx.Done():
			return
		}
	}
}

func (p *Provider) dropAccount(addr common.Address) {
	p.mu.Lock()
	delete(p.unlocked, addr)
	wasAuthorized := p.authorized == addr
	if wasAuthorized {
		p.authorized = common.Address{}
	}
	p.mu.Unlock()

	p.logger.Warn("keystore account removed", "account", addr.Hex())
	if wasAuthorized {
		p.emitAccounts(nil)
	}
}

func (p *Provider) emitNetwork(chainID uint64) {
	p.disp.post(func() {
		for _, h := range p.networkHandlers() {
			h(chainID)
		}
	})
}

func (p *Provider) emitAccounts(list []common.Address) {
	p.disp.post(func() {
		for _, h := range p.accountHandlers() {
			h(append([]common.Address(nil), list...))
		}
	})
}

func (p *Provider) netHandler(id int) func(uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.netHandlers[id]
}

func (p *Provider) networkHandlers() []func(uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]func(uint64), 0, len(p.netHandlers))
	for _, h := range p.netHandlers {
		out = append(out, h)
	}
	return out
}

func (p *Provider) accountHandlers() []func([]common.Address) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]func([]common.Address), 0, len(p.acctHandlers))
	for _, h := range p.acctHandlers {
		out = append(out, h)
	}
	return out
}

// account resolves the preferred account, falling back to the first one.
func (p *Provider) account() (accounts.Account, bool) {
	p.mu.Lock()
	preferred := p.preferred
	p.mu.Unlock()

	if preferred != (common.Address{}) {
		if acct, err := p.ks.Find(accounts.Account{Address: preferred}); err == nil {
			return acct, true
		}
	}
	all := p.ks.Accounts()
	if len(all) == 0 {
		return accounts.Account{}, false
	}
	return all[0], true
}

// signer returns the authorized account, which is unlocked.
func (p *Provider) signer() (accounts.Account, uint64, error) {
	p.mu.Lock()
	addr := p.authorized
	chainID := p.chainID
	p.mu.Unlock()

	if addr == (common.Address{}) {
		return accounts.Account{}, 0, errorsmod.Wrap(provider.ErrUserRejected, "no unlocked account")
	}
	acct, err := p.ks.Find(accounts.Account{Address: addr})
	if err != nil {
		return accounts.Account{}, 0, errorsmod.Wrap(provider.ErrProvider, err.Error())
	}
	return acct, chainID, nil
}

func (p *Provider) isUnlocked(addr common.Address) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.unlocked[addr]
}

func (p *Provider) markUnlocked(addr common.Address) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.unlocked[addr] = true
	p.authorized = addr
}

func (p *Provider) setAuthorized(addr common.Address) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.authorized = addr
}

// authorizedList must be called with p.mu held.
func (p *Provider) authorizedList() []common.Address {
	if p.authorized == (common.Address{}) {
		return nil
	}
	return []common.Address{p.authorized}
}
