// Command tradingbot runs the autonomous DEX trading agent: it wires the
// registry, pool cache, GalaChain gateway client, notification channel,
// arbitrage detector, executor, and scheduler engine together, then serves
// the control surface until an OS signal requests shutdown.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/sentientforest/gswap-interesting-trader-bot/internal/arbitrage"
	"github.com/sentientforest/gswap-interesting-trader-bot/internal/config"
	"github.com/sentientforest/gswap-interesting-trader-bot/internal/control"
	"github.com/sentientforest/gswap-interesting-trader-bot/internal/engine"
	"github.com/sentientforest/gswap-interesting-trader-bot/internal/executor"
	"github.com/sentientforest/gswap-interesting-trader-bot/internal/gswap"
	"github.com/sentientforest/gswap-interesting-trader-bot/internal/poolcache"
	"github.com/sentientforest/gswap-interesting-trader-bot/internal/registry"
	"github.com/sentientforest/gswap-interesting-trader-bot/internal/tokenkey"
	"github.com/sentientforest/gswap-interesting-trader-bot/pkg/errs"
)

// unconfiguredSigner rejects every signing request. The private-key signer
// is explicitly out of scope (spec.md §1); a live-trading deployment must
// supply a real Signer and wire it in place of this one.
type unconfiguredSigner struct{}

func (unconfiguredSigner) Sign(ctx context.Context, params gswap.SwapParams) (string, error) {
	return "", errs.Config(nil, "no signer configured: the private-key signer is out of scope and must be supplied by the deployment")
}

func main() {
	_ = godotenv.Load()

	// GALACHAIN_PRIVATE_KEY is the one secret value (spec.md §6's "required,
	// never logged" column); its absence gets its own exit code (2),
	// distinct from every other configuration error (1).
	if os.Getenv("GALACHAIN_PRIVATE_KEY") == "" {
		log.Error("missing required secret", "var", "GALACHAIN_PRIVATE_KEY")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Error("configuration error", "err", err)
		os.Exit(1)
	}

	tokensPath := getenvDefault("TOKENS_CSV_PATH", "testdata/tokens.csv")
	poolsPath := getenvDefault("POOLS_CSV_PATH", "testdata/pools.csv")
	reg, err := registry.Load(tokensPath, poolsPath)
	if err != nil {
		log.Error("registry load failed", "err", err)
		os.Exit(1)
	}

	client := gswap.New(cfg.Endpoints)
	cache := poolcache.New(client, cfg.ArbitragePoolCacheTTL)

	notifier := gswap.NewNotificationChannel(cfg.NotificationURL)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	if err := notifier.Open(ctx); err != nil {
		log.Warn("notification channel open failed, continuing without it", "err", err)
	}

	detector := arbitrage.New(cache, reg, arbitrage.Config{
		BaseToken:        cfg.PreferredTokenKey,
		MaxHops:          cfg.ArbitrageMaxHops,
		MinLiquidity:     cfg.ArbitrageMinLiquidity,
		Notional:         cfg.ArbitrageMaxTradeSize,
		MinProfitPercent: cfg.ArbitrageMinProfitPercent,
	})

	exec := executor.New(client, cache, notifier, unconfiguredSigner{}, executor.Config{
		WalletAddress:       cfg.WalletAddress,
		EnableTrading:       cfg.EnableTrading,
		MaxSlippagePercent:  cfg.MaxSlippagePercent,
		NotificationTimeout: cfg.TransactionTimeout,
		Intermediates:       routedIntermediates(reg, cfg.GalaTokenKey),
	})

	eng := engine.New(engine.Config{
		TradeInterval:          cfg.TradeInterval,
		ArbitrageCheckInterval: cfg.ArbitrageCheckInterval,
		EnableArbitrage:        cfg.EnableArbitrage,
		WalletAddress:          cfg.WalletAddress,
		PreferredToken:         cfg.PreferredTokenKey,
		GasToken:               cfg.GalaTokenKey,
		MinGasBalance:          cfg.MinimumGalaBalance,
		// The config holds a percent (10 = 10%); the engine takes a fraction.
		TradeAmountPercentage: cfg.TradeAmountPercentage.Div(decimal.NewFromInt(100)),
	}, client, detector, exec, cache)

	mode := "dry-run"
	if cfg.EnableTrading {
		mode = "live"
	}
	log.Info("starting trading bot", "mode", mode, "preferredToken", cfg.PreferredTokenName, "port", cfg.Port)

	eng.Start(ctx)

	srv := control.New(eng, cfg, ctx)
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: srv.Handler(),
	}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("control server failed", "err", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")

	eng.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("control server shutdown error", "err", err)
	}
	cancel()

	if err := notifier.Close(); err != nil {
		log.Warn("notification channel close error", "err", err)
	}
	stop()

	os.Exit(0)
}

func getenvDefault(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

// routedIntermediates returns the well-known tokens the executor's routed
// (two-hop) fallback may pivot through: the gas token plus any registered
// bridged-stablecoin symbols, since those are the deepest, most liquid
// pairs against most other tokens.
func routedIntermediates(reg *registry.Registry, gasToken tokenkey.Key) []tokenkey.Key {
	intermediates := []tokenkey.Key{gasToken}
	for _, symbol := range []string{"GUSDC"} {
		if t, ok := reg.TokenBySymbol(symbol); ok && !t.Key.Equal(gasToken) {
			intermediates = append(intermediates, t.Key)
		}
	}
	return intermediates
}
