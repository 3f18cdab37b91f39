// Package config loads the engine's configuration from environment
// variables (§6), generalizing the teacher's YAML-file-backed
// configs.Config into the env-var-backed shape spec.md requires.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/sentientforest/gswap-interesting-trader-bot/internal/gswap"
	"github.com/sentientforest/gswap-interesting-trader-bot/internal/tokenkey"
	"github.com/sentientforest/gswap-interesting-trader-bot/pkg/errs"
)

// Config is the engine's full, immutable runtime configuration (§6).
type Config struct {
	PreferredTokenKey  tokenkey.Key
	PreferredTokenName string
	GalaTokenKey       tokenkey.Key
	MinimumGalaBalance decimal.Decimal

	TradeInterval         time.Duration
	MaxSlippagePercent    decimal.Decimal
	TradeAmountPercentage decimal.Decimal

	EnableArbitrage           bool
	ArbitrageCheckInterval    time.Duration
	ArbitrageMinProfitPercent decimal.Decimal
	ArbitrageMaxTradeSize     decimal.Decimal
	ArbitrageMaxHops          int
	ArbitrageMinLiquidity     decimal.Decimal
	ArbitragePoolCacheTTL     time.Duration

	WalletAddress       string
	GalachainPrivateKey string
	EnableTrading       bool
	TransactionTimeout  time.Duration
	Port                int

	Endpoints       gswap.Endpoints
	NotificationURL string
}

// Redacted is the subset of Config safe to expose over the control surface.
// It omits GalachainPrivateKey, and also ArbitragePoolCacheTTL, Endpoints and
// NotificationURL.
type Redacted struct {
	PreferredTokenKey  string `json:"preferredTokenKey"`
	PreferredTokenName string `json:"preferredTokenName"`
	GalaTokenKey       string `json:"galaTokenKey"`
	MinimumGalaBalance string `json:"minimumGalaBalance"`

	TradeIntervalMs int64  `json:"tradeIntervalMs"`
	MaxSlippage     string `json:"maxSlippage"`
	TradeAmountPct  string `json:"tradeAmountPercentage"`

	EnableArbitrage           bool   `json:"enableArbitrage"`
	ArbitrageCheckIntervalMs  int64  `json:"arbitrageCheckIntervalMs"`
	ArbitrageMinProfitPercent string `json:"arbitrageMinProfitPercent"`
	ArbitrageMaxTradeSize     string `json:"arbitrageMaxTradeSize"`
	ArbitrageMaxHops          int    `json:"arbitrageMaxHops"`
	ArbitrageMinLiquidity     string `json:"arbitrageMinLiquidity"`

	WalletAddress      string `json:"walletAddress"`
	EnableTrading      bool   `json:"enableTrading"`
	TransactionTimeoutMs int64 `json:"transactionTimeoutMs"`
	Port               int    `json:"port"`
}

// Redact strips GalachainPrivateKey and every other secret field, returning
// a value safe to serve over /api/config.
func (c Config) Redact() Redacted {
	return Redacted{
		PreferredTokenKey:         c.PreferredTokenKey.String(),
		PreferredTokenName:        c.PreferredTokenName,
		GalaTokenKey:              c.GalaTokenKey.String(),
		MinimumGalaBalance:        c.MinimumGalaBalance.String(),
		TradeIntervalMs:           c.TradeInterval.Milliseconds(),
		MaxSlippage:               c.MaxSlippagePercent.String(),
		TradeAmountPct:            c.TradeAmountPercentage.String(),
		EnableArbitrage:           c.EnableArbitrage,
		ArbitrageCheckIntervalMs:  c.ArbitrageCheckInterval.Milliseconds(),
		ArbitrageMinProfitPercent: c.ArbitrageMinProfitPercent.String(),
		ArbitrageMaxTradeSize:     c.ArbitrageMaxTradeSize.String(),
		ArbitrageMaxHops:          c.ArbitrageMaxHops,
		ArbitrageMinLiquidity:     c.ArbitrageMinLiquidity.String(),
		WalletAddress:             c.WalletAddress,
		EnableTrading:             c.EnableTrading,
		TransactionTimeoutMs:      c.TransactionTimeout.Milliseconds(),
		Port:                      c.Port,
	}
}

// Load reads a .env file if present (missing is non-fatal, matching
// godotenv's own convention) then parses every enumerated environment
// variable from §6, applying defaults for anything unset. WALLET_ADDRESS and
// GALACHAIN_PRIVATE_KEY are required; their absence is a *ConfigError. main
// checks GALACHAIN_PRIVATE_KEY itself before calling Load and exits 2 when it
// is missing; every error Load returns, a missing WALLET_ADDRESS included,
// exits 1.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{}
	var err error

	cfg.PreferredTokenKey, err = parseTokenKey("PREFERRED_TOKEN_KEY", "GALA|Unit|none|none")
	if err != nil {
		return Config{}, err
	}
	cfg.PreferredTokenName = getString("PREFERRED_TOKEN_NAME", "$GALA")
	cfg.GalaTokenKey, err = parseTokenKey("GALA_TOKEN_KEY", "GALA|Unit|none|none")
	if err != nil {
		return Config{}, err
	}
	cfg.MinimumGalaBalance, err = getDecimal("MINIMUM_GALA_BALANCE", "100")
	if err != nil {
		return Config{}, err
	}

	tradeIntervalMs, err := getInt64("TRADE_INTERVAL_MS", 60000)
	if err != nil {
		return Config{}, err
	}
	cfg.TradeInterval = time.Duration(tradeIntervalMs) * time.Millisecond

	cfg.MaxSlippagePercent, err = getDecimal("MAX_SLIPPAGE", "5")
	if err != nil {
		return Config{}, err
	}
	cfg.TradeAmountPercentage, err = getDecimal("TRADE_AMOUNT_PERCENTAGE", "10")
	if err != nil {
		return Config{}, err
	}

	cfg.EnableArbitrage, err = getBool("ENABLE_ARBITRAGE", false)
	if err != nil {
		return Config{}, err
	}
	arbIntervalMs, err := getInt64("ARBITRAGE_CHECK_INTERVAL_MS", 120000)
	if err != nil {
		return Config{}, err
	}
	cfg.ArbitrageCheckInterval = time.Duration(arbIntervalMs) * time.Millisecond
	cfg.ArbitrageMinProfitPercent, err = getDecimal("ARBITRAGE_MIN_PROFIT_PERCENT", "1.0")
	if err != nil {
		return Config{}, err
	}
	cfg.ArbitrageMaxTradeSize, err = getDecimal("ARBITRAGE_MAX_TRADE_SIZE", "100")
	if err != nil {
		return Config{}, err
	}
	maxHops, err := getInt64("ARBITRAGE_MAX_HOPS", 3)
	if err != nil {
		return Config{}, err
	}
	if maxHops < 2 || maxHops > 4 {
		return Config{}, errs.Config(nil, "ARBITRAGE_MAX_HOPS must be 2..4, got %d", maxHops)
	}
	cfg.ArbitrageMaxHops = int(maxHops)
	cfg.ArbitrageMinLiquidity, err = getDecimal("ARBITRAGE_MIN_LIQUIDITY", "1000")
	if err != nil {
		return Config{}, err
	}
	poolCacheTTLMs, err := getInt64("ARBITRAGE_POOL_CACHE_TTL", 60000)
	if err != nil {
		return Config{}, err
	}
	cfg.ArbitragePoolCacheTTL = time.Duration(poolCacheTTLMs) * time.Millisecond

	cfg.WalletAddress = os.Getenv("WALLET_ADDRESS")
	if cfg.WalletAddress == "" {
		return Config{}, errs.Config(nil, "WALLET_ADDRESS is required")
	}
	cfg.GalachainPrivateKey = os.Getenv("GALACHAIN_PRIVATE_KEY")
	if cfg.GalachainPrivateKey == "" {
		return Config{}, errs.Config(nil, "GALACHAIN_PRIVATE_KEY is required")
	}

	cfg.EnableTrading, err = getBool("ENABLE_TRADING", false)
	if err != nil {
		return Config{}, err
	}
	txTimeoutMs, err := getInt64("TRANSACTION_TIMEOUT_MS", 600000)
	if err != nil {
		return Config{}, err
	}
	cfg.TransactionTimeout = time.Duration(txTimeoutMs) * time.Millisecond

	port, err := getInt64("PORT", 3000)
	if err != nil {
		return Config{}, err
	}
	cfg.Port = int(port)

	cfg.Endpoints = gswap.Endpoints{
		GatewayBaseURL:  getString("GSWAP_GATEWAY_BASE_URL", "https://dex-backend-prod1.defi.gala.com"),
		BundlerBaseURL:  getString("GSWAP_BUNDLER_BASE_URL", "https://bundle-backend-prod1.defi.gala.com"),
		BackendBaseURL:  getString("GSWAP_BACKEND_BASE_URL", "https://dex-backend-prod1.defi.gala.com"),
		DexContractPath: getString("GSWAP_DEX_CONTRACT_BASE_PATH", "/api/asset/dexv3-contract"),
	}
	cfg.NotificationURL = getString("GSWAP_SOCKET_URL", "https://bundle-backend-prod1.defi.gala.com")

	return cfg, nil
}

func parseTokenKey(name, def string) (tokenkey.Key, error) {
	raw := getString(name, def)
	key, err := tokenkey.Parse(raw)
	if err != nil {
		return tokenkey.Key{}, errs.Config(err, "%s is not a valid token key: %q", name, raw)
	}
	return key, nil
}

func getString(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

func getInt64(name string, def int64) (int64, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, errs.Config(err, "%s must be an integer, got %q", name, v)
	}
	return n, nil
}

func getBool(name string, def bool) (bool, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, errs.Config(err, "%s must be a boolean, got %q", name, v)
	}
	return b, nil
}

func getDecimal(name, def string) (decimal.Decimal, error) {
	v := os.Getenv(name)
	if v == "" {
		v = def
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Decimal{}, errs.Config(err, "%s must be a decimal number, got %q", name, v)
	}
	return d, nil
}
