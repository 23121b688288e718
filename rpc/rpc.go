package rpc

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Client wraps an Ethereum RPC client
type Client struct {
	*ethclient.Client
	URL string
}

// ConnectResult holds the result of an RPC connection attempt
type ConnectResult struct {
	Client  *Client
	ChainID uint64
	Error   error
}

// Connect attempts to connect to an Ethereum RPC endpoint
func Connect(url string) ConnectResult {
	return ConnectWithTimeout(url, 8*time.Second)
}

// ConnectWithTimeout attempts to connect with a custom timeout
func ConnectWithTimeout(url string, timeout time.Duration) ConnectResult {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return connect(ctx, url)
}

func connect(ctx context.Context, url string) ConnectResult {
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return ConnectResult{Error: err}
	}

	// the chain id doubles as a liveness check
	id, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return ConnectResult{Error: err}
	}

	return ConnectResult{
		Client: &Client{
			Client: client,
			URL:    url,
		},
		ChainID: id.Uint64(),
	}
}

// AccountDetails is the on-chain state of a keystore account shown in the
// accounts view.
type AccountDetails struct {
	Address    string
	EthWei     *big.Int
	Nonce      uint64
	LoadedAt   time.Time
	ErrMessage string
}

// LoadAccountDetails fetches the balance and nonce of addr
func LoadAccountDetails(client *Client, addr common.Address) AccountDetails {
	return LoadAccountDetailsWithTimeout(client, addr, 12*time.Second)
}

// LoadAccountDetailsWithTimeout fetches account details with a custom timeout
func LoadAccountDetailsWithTimeout(client *Client, addr common.Address, timeout time.Duration) AccountDetails {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	d := AccountDetails{
		Address:  addr.Hex(),
		EthWei:   big.NewInt(0),
		LoadedAt: time.Now(),
	}

	if client == nil || client.Client == nil {
		d.ErrMessage = "No RPC client (set ETH_RPC_URL)."
		return d
	}

	wei, err := client.BalanceAt(ctx, addr, nil)
	if err != nil {
		d.ErrMessage = "Failed to load ETH balance."
		return d
	}
	d.EthWei = wei

	nonce, err := client.NonceAt(ctx, addr, nil)
	if err != nil {
		d.ErrMessage = "Failed to load nonce."
		return d
	}
	d.Nonce = nonce

	return d
}
