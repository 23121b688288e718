package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"wave-portal-tui/config"
	"wave-portal-tui/helpers"
	"wave-portal-tui/notify"
	"wave-portal-tui/portal"
	"wave-portal-tui/rpc"
	"wave-portal-tui/styles"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

// -------------------- MAIN --------------------

var (
	rootCmd = &cobra.Command{
		Use:          "wave-portal",
		Short:        "Wave at the Wave Portal contract from your terminal.",
		Long:         `A terminal client for the WavePortal contract: unlock a keystore account, send a wave and watch everyone else's waves arrive live.`,
		RunE:         run,
		SilenceUsage: true,
	}
	flags struct {
		configPath  string
		rpcURL      string
		keystoreDir string
		contract    string
		chainID     uint64
		gasLimit    uint64
		metricsAddr string
		logger      bool
	}
)

func init() {
	f := rootCmd.Flags()
	f.StringVar(&flags.configPath, "config", config.DefaultPath(), "config file")
	f.StringVar(&flags.rpcURL, "rpc", "", "websocket RPC endpoint, made the active one")
	f.StringVar(&flags.keystoreDir, "keystore", "", "keystore directory")
	f.StringVar(&flags.contract, "contract", "", "WavePortal contract address")
	f.Uint64Var(&flags.chainID, "chain-id", 0, "chain id the contract is deployed on")
	f.Uint64Var(&flags.gasLimit, "gas-limit", 0, "gas limit of a wave transaction")
	f.StringVar(&flags.metricsAddr, "metrics", "", "serve prometheus metrics on this address")
	f.BoolVar(&flags.logger, "log", false, "open the log panel")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg := config.LoadOrCreate(flags.configPath)
	envOverrides, err := config.LoadEnv()
	if err != nil {
		return fmt.Errorf("environment: %w", err)
	}
	cfg = applyFlags(cmd, cfg.WithEnv(envOverrides))
	if !helpers.IsValidEthAddress(cfg.Contract) {
		return fmt.Errorf("invalid contract address %q", cfg.Contract)
	}

	sink := &logSink{}
	logger := newLogger(sink)

	var preferred common.Address
	if a, ok := cfg.ActiveAccount(); ok && common.IsHexAddress(a.Address) {
		preferred = common.HexToAddress(a.Address)
	}

	bridge := newRelay()
	defer bridge.close()

	prov, err := rpc.New(rpc.Options{
		KeystoreDir: cfg.KeystoreDir,
		Passphrase:  envOverrides.Password,
		Prompt:      bridge.Password,
		Preferred:   preferred,
		Logger:      logger.WithPrefix("rpc"),
	})
	if err != nil {
		return err
	}
	defer prov.Close()

	bus := notify.New()
	pt := portal.New(prov, portal.Config{
		Contract: common.HexToAddress(cfg.Contract),
		ChainID:  cfg.ChainID,
		GasLimit: cfg.GasLimit,
	}, bus, logger.WithPrefix("portal"))
	defer pt.Close()

	release, err := bridge.subscribe(bus)
	if err != nil {
		return err
	}
	defer release()

	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, logger)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := newModel(ctx, cfg, flags.configPath, pt, prov, sink, logger)
	p := tea.NewProgram(&m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	bridge.attach(p)
	_, err = p.Run()
	return err
}

// applyFlags overrides cfg with the flags given on the command line
func applyFlags(cmd *cobra.Command, cfg config.Config) config.Config {
	changed := cmd.Flags().Changed
	if changed("rpc") && strings.TrimSpace(flags.rpcURL) != "" {
		cfg = cfg.WithActiveURL("Command line", strings.TrimSpace(flags.rpcURL))
	}
	if changed("keystore") {
		cfg.KeystoreDir = flags.keystoreDir
	}
	if changed("contract") {
		cfg.Contract = flags.contract
	}
	if changed("chain-id") {
		cfg.ChainID = flags.chainID
	}
	if changed("gas-limit") {
		cfg.GasLimit = flags.gasLimit
	}
	if changed("metrics") {
		cfg.MetricsAddr = flags.metricsAddr
	}
	if changed("log") {
		cfg.Logger = flags.logger
	}
	return cfg
}

func serveMetrics(addr string, logger *log.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logger.Info("metrics server listening", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server stopped", "err", err)
	}
}

// newLogger creates the logger behind the log panel
func newLogger(w io.Writer) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
		Prefix:          "",
	})
	logger.SetLevel(log.DebugLevel)
	logger.SetStyles(&log.Styles{
		Timestamp: lipgloss.NewStyle().Foreground(styles.CMuted),
		Caller:    lipgloss.NewStyle().Faint(true),
		Prefix:    lipgloss.NewStyle().Bold(true).Foreground(styles.CAccent2),
		Message:   lipgloss.NewStyle().Foreground(styles.CText),
		Key:       lipgloss.NewStyle().Foreground(styles.CAccent),
		Value:     lipgloss.NewStyle().Foreground(styles.CText),
		Separator: lipgloss.NewStyle().Faint(true),
		Levels: map[log.Level]lipgloss.Style{
			log.DebugLevel: lipgloss.NewStyle().Foreground(styles.CMuted).SetString("DEBUG"),
			log.InfoLevel:  lipgloss.NewStyle().Foreground(styles.CAccent2).SetString("INFO"),
			log.WarnLevel:  lipgloss.NewStyle().Foreground(styles.CWarn).SetString("WARN"),
			log.ErrorLevel: lipgloss.NewStyle().Foreground(styles.CError).SetString("ERROR"),
		},
	})
	return logger
}
