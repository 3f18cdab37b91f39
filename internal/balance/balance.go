// Package balance implements the Balance Manager (C7): fetches the wallet's
// asset inventory, partitions it into preferred/gas/other, and derives
// prioritized trade intents.
package balance

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/sentientforest/gswap-interesting-trader-bot/internal/gswap"
	"github.com/sentientforest/gswap-interesting-trader-bot/internal/tokenkey"
)

// DustThreshold is the minimum intent amount worth emitting.
var DustThreshold = decimal.NewFromFloat(0.000001)

// Reason identifies why a trade intent was generated.
type Reason string

const (
	ReasonRefillGas      Reason = "RefillGas"
	ReasonDCAToPreferred Reason = "DCAToPreferred"
	ReasonSpendExcessGas Reason = "SpendExcessGas"
	ReasonArbitrage      Reason = "Arbitrage"
)

// Intent is one proposed rebalance trade.
type Intent struct {
	SourceToken tokenkey.Key
	TargetToken tokenkey.Key
	Amount      decimal.Decimal
	Reason      Reason
}

// Line is one wallet asset, resolved to a token key.
type Line struct {
	Key      tokenkey.Key
	Symbol   string
	Quantity decimal.Decimal
	Decimals int32
}

// Summary partitions a wallet's inventory.
type Summary struct {
	Preferred Line
	Gas       Line
	Other     []Line
}

// Fetcher retrieves a wallet's raw asset inventory. gswap.Client implements it.
type Fetcher interface {
	GetUserAssets(ctx context.Context, address string, page, pageSize int) ([]gswap.Asset, error)
}

// keyForAsset builds an asset's token key from the nested tokenClassKey
// field when present, else falls back to the flat symbol with the template
// tail (spec.md §4.7/§9's "variant parse" rule).
func keyForAsset(a gswap.Asset) tokenkey.Key {
	if a.TokenClassKey != nil && *a.TokenClassKey != "" {
		if k, err := tokenkey.Parse(*a.TokenClassKey); err == nil {
			return k
		}
	}
	return tokenkey.FromSymbol(a.Symbol)
}

// Fetch retrieves every page of the wallet's inventory and partitions it into
// preferred, gas, and other lines.
func Fetch(ctx context.Context, fetcher Fetcher, address string, preferred, gas tokenkey.Key, pageSize int) (Summary, error) {
	var all []gswap.Asset
	for page := 1; ; page++ {
		assets, err := fetcher.GetUserAssets(ctx, address, page, pageSize)
		if err != nil {
			return Summary{}, err
		}
		all = append(all, assets...)
		if len(assets) < pageSize {
			break
		}
	}

	summary := Summary{
		Preferred: Line{Key: preferred},
		Gas:       Line{Key: gas},
	}

	for _, a := range all {
		k := keyForAsset(a)
		qty, err := decimal.NewFromString(a.Quantity)
		if err != nil {
			continue
		}
		line := Line{Key: k, Symbol: a.Symbol, Quantity: qty, Decimals: a.Decimals}

		switch {
		case k.Equal(preferred):
			summary.Preferred = line
		case k.Equal(gas):
			summary.Gas = line
		default:
			summary.Other = append(summary.Other, line)
		}
	}

	return summary, nil
}

// DeriveIntents computes prioritized rebalance intents from summary, per
// spec.md §4.7's exact three-step order: refill gas, DCA to preferred, spend
// excess gas. minGasBalance, percentage, and preferred/gas identity are all
// caller-supplied so this function has no hidden configuration state.
// percentage is a fraction of each balance: 0.1 trades 10%.
func DeriveIntents(summary Summary, preferred, gas tokenkey.Key, minGasBalance, percentage decimal.Decimal) []Intent {
	var intents []Intent

	if summary.Gas.Quantity.LessThan(minGasBalance) {
		for _, other := range sortedOthers(summary.Other) {
			amount := other.Quantity.Mul(percentage)
			if amount.LessThan(DustThreshold) {
				continue
			}
			intents = append(intents, Intent{SourceToken: other.Key, TargetToken: gas, Amount: amount, Reason: ReasonRefillGas})
		}
	}

	for _, other := range sortedOthers(summary.Other) {
		amount := other.Quantity.Mul(percentage)
		if amount.LessThan(DustThreshold) {
			continue
		}
		intents = append(intents, Intent{SourceToken: other.Key, TargetToken: preferred, Amount: amount, Reason: ReasonDCAToPreferred})
	}

	twiceMinGas := minGasBalance.Mul(decimal.NewFromInt(2))
	if summary.Gas.Quantity.GreaterThan(twiceMinGas) && !preferred.Equal(gas) {
		excess := summary.Gas.Quantity.Sub(minGasBalance).Mul(percentage)
		amount := excess.Div(decimal.NewFromInt(2))
		if amount.GreaterThanOrEqual(DustThreshold) {
			intents = append(intents, Intent{SourceToken: gas, TargetToken: preferred, Amount: amount, Reason: ReasonSpendExcessGas})
		}
	}

	return intents
}

// sortedOthers returns summary.Other sorted by symbol so intent order is
// deterministic regardless of the backend's page ordering.
func sortedOthers(lines []Line) []Line {
	out := make([]Line, len(lines))
	copy(out, lines)
	sort.Slice(out, func(i, j int) bool { return out[i].Key.Symbol() < out[j].Key.Symbol() })
	return out
}
