// Package registry implements the Token/Pool Registry (C1): a static catalog
// of known tokens and candidate pool pairs loaded from CSV, with a built-in
// fallback token list and a non-fatal empty-pool fallback.
package registry

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/ethereum/go-ethereum/log"
	"github.com/shopspring/decimal"

	"github.com/sentientforest/gswap-interesting-trader-bot/internal/tokenkey"
	"github.com/sentientforest/gswap-interesting-trader-bot/pkg/errs"
)

// AllowedFees is the closed set of valid fee tiers (§3).
var AllowedFees = map[int]bool{500: true, 3000: true, 10000: true}

// Token is one catalog entry.
type Token struct {
	Symbol      string
	Key         tokenkey.Key
	Decimals    int32
	Description string
}

// Pool is a candidate pool pair the arbitrage scan and rebalancer may consider.
type Pool struct {
	Token0    tokenkey.Key
	Token1    tokenkey.Key
	Fee       int
	Liquidity decimal.Decimal
}

// Contains reports whether the pool connects the given token.
func (p Pool) Contains(t tokenkey.Key) bool {
	return p.Token0.Equal(t) || p.Token1.Equal(t)
}

// Other returns the pool endpoint that is not t. Panics-free: returns the
// zero Key if t is not one of the pool's endpoints.
func (p Pool) Other(t tokenkey.Key) tokenkey.Key {
	if p.Token0.Equal(t) {
		return p.Token1
	}
	if p.Token1.Equal(t) {
		return p.Token0
	}
	return tokenkey.Key{}
}

// defaultTokens is the built-in fallback catalog used when tokens.csv is
// missing or unreadable (§4.1).
var defaultTokens = []Token{
	{Symbol: "GALA", Key: tokenkey.FromSymbol("GALA"), Decimals: 8, Description: "GalaChain native gas token"},
	{Symbol: "SILK", Key: tokenkey.FromSymbol("SILK"), Decimals: 8, Description: "Preferred token (default)"},
	{Symbol: "GUSDC", Key: tokenkey.FromSymbol("GUSDC"), Decimals: 6, Description: "Bridged USDC"},
	{Symbol: "GWBTC", Key: tokenkey.FromSymbol("GWBTC"), Decimals: 8, Description: "Bridged WBTC"},
	{Symbol: "GWETH", Key: tokenkey.FromSymbol("GWETH"), Decimals: 8, Description: "Bridged WETH"},
}

// Registry is the immutable, loaded-once token/pool catalog.
type Registry struct {
	tokensByKey    map[tokenkey.Key]Token
	tokensBySymbol map[string]Token
	pools          []Pool
	poolsByToken   map[tokenkey.Key][]Pool
}

// Load reads tokensPath and poolsPath and builds a Registry. A missing or
// unreadable token file falls back to defaultTokens (non-fatal). A missing
// pool file yields an empty pool set (non-fatal — the arbitrage loop simply
// finds no paths). Malformed well-known lines (fewer than 4 required fields)
// are a *ConfigError.
func Load(tokensPath, poolsPath string) (*Registry, error) {
	tokens, err := loadTokens(tokensPath)
	if err != nil {
		return nil, err
	}

	r := &Registry{
		tokensByKey:    make(map[tokenkey.Key]Token, len(tokens)),
		tokensBySymbol: make(map[string]Token, len(tokens)),
		poolsByToken:   make(map[tokenkey.Key][]Pool),
	}
	for _, t := range tokens {
		r.tokensByKey[t.Key] = t
		r.tokensBySymbol[t.Symbol] = t
	}

	pools, err := loadPools(poolsPath, r.tokensBySymbol)
	if err != nil {
		return nil, err
	}
	r.pools = pools
	for _, p := range pools {
		r.poolsByToken[p.Token0] = append(r.poolsByToken[p.Token0], p)
		r.poolsByToken[p.Token1] = append(r.poolsByToken[p.Token1], p)
	}

	return r, nil
}

func loadTokens(path string) ([]Token, error) {
	f, err := os.Open(path)
	if err != nil {
		log.Warn("tokens.csv unreadable, using built-in default token list", "path", path, "err", err)
		return defaultTokens, nil
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	var out []Token
	header := true
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errs.Config(err, "malformed tokens.csv")
		}
		if header {
			header = false
			continue
		}
		if len(rec) < 4 {
			return nil, errs.Config(nil, "tokens.csv row has %d fields, need at least 4: %v", len(rec), rec)
		}
		symbol := rec[0]
		key, err := tokenkey.Parse(rec[1])
		if err != nil {
			key = tokenkey.FromSymbol(symbol)
		}
		decimals, err := strconv.ParseInt(rec[2], 10, 32)
		if err != nil {
			return nil, errs.Config(err, "tokens.csv row has invalid decimals: %v", rec)
		}
		desc := ""
		if len(rec) >= 4 {
			desc = rec[3]
		}
		out = append(out, Token{Symbol: symbol, Key: key, Decimals: int32(decimals), Description: desc})
	}
	if len(out) == 0 {
		return defaultTokens, nil
	}
	return out, nil
}

func loadPools(path string, tokensBySymbol map[string]Token) ([]Pool, error) {
	f, err := os.Open(path)
	if err != nil {
		log.Warn("pools.csv unreadable, arbitrage loop will find no paths", "path", path, "err", err)
		return nil, nil
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	var out []Pool
	header := true
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errs.Config(err, "malformed pools.csv")
		}
		if header {
			header = false
			continue
		}
		if len(rec) < 4 {
			return nil, errs.Config(nil, "pools.csv row has %d fields, need at least 4: %v", len(rec), rec)
		}
		t0, ok0 := tokensBySymbol[rec[0]]
		t1, ok1 := tokensBySymbol[rec[1]]
		if !ok0 || !ok1 {
			log.Warn("pools.csv references unknown token symbol, skipping row", "row", rec)
			continue
		}
		fee, err := strconv.Atoi(rec[2])
		if err != nil || !AllowedFees[fee] {
			return nil, errs.Config(err, "pools.csv row has invalid fee tier: %v", rec)
		}
		liq, err := decimal.NewFromString(rec[3])
		if err != nil {
			return nil, errs.Config(err, "pools.csv row has invalid liquidity: %v", rec)
		}
		out = append(out, Pool{Token0: t0.Key, Token1: t1.Key, Fee: fee, Liquidity: liq})
	}
	return out, nil
}

// TokenByKey looks up a token by its full key.
func (r *Registry) TokenByKey(k tokenkey.Key) (Token, bool) {
	t, ok := r.tokensByKey[k]
	return t, ok
}

// TokenBySymbol looks up a token by its symbol (collection field).
func (r *Registry) TokenBySymbol(symbol string) (Token, bool) {
	t, ok := r.tokensBySymbol[symbol]
	return t, ok
}

// AllPools returns every registered candidate pool, in load order.
func (r *Registry) AllPools() []Pool {
	out := make([]Pool, len(r.pools))
	copy(out, r.pools)
	return out
}

// PoolsForToken returns every registered pool touching the given token, in
// load order.
func (r *Registry) PoolsForToken(k tokenkey.Key) []Pool {
	pools := r.poolsByToken[k]
	out := make([]Pool, len(pools))
	copy(out, pools)
	return out
}

// PoolsAboveLiquidity returns every pool whose observed liquidity exceeds
// threshold, preserving load order.
func (r *Registry) PoolsAboveLiquidity(threshold decimal.Decimal) []Pool {
	var out []Pool
	for _, p := range r.pools {
		if p.Liquidity.GreaterThan(threshold) {
			out = append(out, p)
		}
	}
	return out
}
