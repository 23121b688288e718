package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v10"
)

// Defaults of the original deployment.
const (
	DefaultContract = "0x699F31453abf3443c321FD88a32a9349d23C3d44"
	DefaultChainID  = 4
	DefaultGasLimit = 300000
	DefaultExplorer = "https://rinkeby.etherscan.io"
	FileName        = ".wave-portal-config.json"
)

// Config represents the application configuration
type Config struct {
	RPCURLs     []RPCUrl       `json:"rpc_urls"`
	Accounts    []AccountEntry `json:"accounts"`
	Contract    string         `json:"contract"`
	ChainID     uint64         `json:"chain_id"`
	KeystoreDir string         `json:"keystore_dir"`
	Explorer    string         `json:"explorer,omitempty"`
	GasLimit    uint64         `json:"gas_limit,omitempty"`
	MetricsAddr string         `json:"metrics_addr,omitempty"`
	Logger      bool           `json:"logger"`
}

// RPCUrl represents an RPC endpoint
type RPCUrl struct {
	Name   string `json:"name"`
	URL    string `json:"url"`
	Active bool   `json:"active"`
}

// AccountEntry is a keystore account with an optional nickname
type AccountEntry struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
	Active  bool   `json:"active"`
}

// Env holds the environment overrides. Empty values leave the file setting in
// place.
type Env struct {
	RPCURL      string `env:"ETH_RPC_URL"`
	Contract    string `env:"WAVE_CONTRACT"`
	ChainID     uint64 `env:"WAVE_CHAIN_ID"`
	KeystoreDir string `env:"WAVE_KEYSTORE"`
	Password    string `env:"WAVE_PASSWORD"`
	MetricsAddr string `env:"WAVE_METRICS_ADDR"`
	GasLimit    uint64 `env:"WAVE_GAS_LIMIT"`
}

// DefaultPath is the config file in the user's home directory
func DefaultPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, FileName)
}

// LoadEnv reads the environment overrides
func LoadEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return e, err
	}
	return e, nil
}

// Load reads the config from the specified path
func Load(path string) Config {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}
	}

	return cfg
}

// Save writes the config to the specified path
func Save(path string, cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// DefaultConfig returns a new configuration with sensible defaults
func DefaultConfig() Config {
	homeDir, _ := os.UserHomeDir()
	return Config{
		RPCURLs: []RPCUrl{
			{
				Name:   "Rinkeby (local node)",
				URL:    "ws://127.0.0.1:8546",
				Active: true,
			},
		},
		Contract:    DefaultContract,
		ChainID:     DefaultChainID,
		KeystoreDir: filepath.Join(homeDir, ".ethereum", "rinkeby", "keystore"),
		Explorer:    DefaultExplorer,
		GasLimit:    DefaultGasLimit,
		Logger:      false,
	}
}

// LoadOrCreate loads config from path, or creates a default one if not found
func LoadOrCreate(path string) Config {
	data, err := os.ReadFile(path)
	if err != nil {
		cfg := DefaultConfig()
		_ = Save(path, cfg)
		return cfg
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig()
	}

	return cfg.WithDefaults()
}

// WithDefaults fills every unset deployment field
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.Contract == "" {
		c.Contract = d.Contract
	}
	if c.ChainID == 0 {
		c.ChainID = d.ChainID
	}
	if c.KeystoreDir == "" {
		c.KeystoreDir = d.KeystoreDir
	}
	if c.GasLimit == 0 {
		c.GasLimit = d.GasLimit
	}
	return c
}

// WithEnv applies the environment overrides. An RPC URL from the environment
// becomes the active endpoint.
func (c Config) WithEnv(e Env) Config {
	if url := strings.TrimSpace(e.RPCURL); url != "" {
		c = c.WithActiveURL("Environment", url)
	}
	if e.Contract != "" {
		c.Contract = e.Contract
	}
	if e.ChainID != 0 {
		c.ChainID = e.ChainID
	}
	if e.KeystoreDir != "" {
		c.KeystoreDir = e.KeystoreDir
	}
	if e.MetricsAddr != "" {
		c.MetricsAddr = e.MetricsAddr
	}
	if e.GasLimit != 0 {
		c.GasLimit = e.GasLimit
	}
	return c
}

// WithActiveURL makes url the active endpoint, adding it under name when it is
// not configured yet.
func (c Config) WithActiveURL(name, url string) Config {
	urls := make([]RPCUrl, 0, len(c.RPCURLs)+1)
	found := false
	for _, r := range c.RPCURLs {
		r.Active = r.URL == url
		found = found || r.Active
		urls = append(urls, r)
	}
	if !found {
		urls = append(urls, RPCUrl{Name: name, URL: url, Active: true})
	}
	c.RPCURLs = urls
	return c
}

// ActiveRPC returns the active endpoint, falling back to the first one
func (c Config) ActiveRPC() (RPCUrl, bool) {
	for _, r := range c.RPCURLs {
		if r.Active {
			return r, true
		}
	}
	if len(c.RPCURLs) > 0 {
		return c.RPCURLs[0], true
	}
	return RPCUrl{}, false
}

// ActiveAccount returns the account marked active, if any
func (c Config) ActiveAccount() (AccountEntry, bool) {
	for _, a := range c.Accounts {
		if a.Active {
			return a, true
		}
	}
	return AccountEntry{}, false
}

// SetActiveAccount marks addr active, adding it if it is new
func (c *Config) SetActiveAccount(addr string) {
	found := false
	for i := range c.Accounts {
		c.Accounts[i].Active = strings.EqualFold(c.Accounts[i].Address, addr)
		found = found || c.Accounts[i].Active
	}
	if !found {
		c.Accounts = append(c.Accounts, AccountEntry{Address: addr, Active: true})
	}
}
