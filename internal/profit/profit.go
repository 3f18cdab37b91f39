// Package profit implements the Profit Calculator (C5): chains the offline
// quote engine along a candidate path, haircuts the result for on-chain
// overhead, and ranks surviving opportunities.
package profit

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sentientforest/gswap-interesting-trader-bot/internal/pathfinder"
	"github.com/sentientforest/gswap-interesting-trader-bot/internal/quote"
	"github.com/sentientforest/gswap-interesting-trader-bot/pkg/errs"
)

// FeeHaircut is the fixed multiplicative haircut applied to gross profit to
// approximate per-hop on-chain cost. This is a documented approximation:
// the correct accounting would convert a gas-denominated cost into the base
// token via the pool cache, which requires a live gas/preferred-token quote
// path this engine does not yet have. See the Open Question resolution in
// DESIGN.md.
const FeeHaircut = "0.02"

// HopResult is one leg's quote result within an evaluated path.
type HopResult struct {
	Hop    pathfinder.Hop
	Result *quote.Result
}

// Opportunity is a fully evaluated circular arbitrage candidate.
type Opportunity struct {
	Path           pathfinder.Path
	InputAmount    decimal.Decimal
	OutputAmount   decimal.Decimal
	GrossProfit    decimal.Decimal
	NetProfit      decimal.Decimal
	ProfitPercent  decimal.Decimal
	MaxPriceImpact decimal.Decimal
	Hops           []HopResult
	DetectedAt     time.Time
}

// Evaluate simulates path with inputAmount of the base token and returns the
// resulting opportunity, independent of any profitability threshold. Callers
// that want filtering/sorting should use EvaluateAll.
//
// TODO: replace the flat FeeHaircut with a real gas-to-base-token conversion
// once the pool cache can quote the gas token directly, instead of
// approximating on-chain cost as a fixed percentage of gross profit.
func Evaluate(path pathfinder.Path, inputAmount decimal.Decimal, detectedAt time.Time) (*Opportunity, error) {
	if inputAmount.Sign() <= 0 {
		return nil, errs.Quote(nil, "inputAmount must be positive")
	}

	current := inputAmount
	hopResults := make([]HopResult, 0, len(path.Hops))
	maxImpact := decimal.Zero

	for _, hop := range path.Hops {
		result, err := quote.ExactInput(hop.Snapshot, hop.From, current)
		if err != nil {
			return nil, err
		}
		hopResults = append(hopResults, HopResult{Hop: hop, Result: result})
		if result.PriceImpactPercent.GreaterThan(maxImpact) {
			maxImpact = result.PriceImpactPercent
		}
		current = result.AmountOut
	}

	gross := current.Sub(inputAmount)
	haircut, _ := decimal.NewFromString(FeeHaircut)
	net := gross.Mul(decimal.NewFromInt(1).Sub(haircut))
	percent := decimal.Zero
	if inputAmount.Sign() != 0 {
		percent = net.DivRound(inputAmount, 10).Mul(decimal.NewFromInt(100))
	}

	return &Opportunity{
		Path:           path,
		InputAmount:    inputAmount,
		OutputAmount:   current,
		GrossProfit:    gross,
		NetProfit:      net,
		ProfitPercent:  percent,
		MaxPriceImpact: maxImpact,
		Hops:           hopResults,
		DetectedAt:     detectedAt,
	}, nil
}

// EvaluateAll evaluates every path, discards failures and non-positive-net or
// below-threshold opportunities, and returns the survivors sorted by
// descending profit percent, ties broken by fewer hops then earliest
// detection.
func EvaluateAll(paths []pathfinder.Path, inputAmount decimal.Decimal, minProfitPercent decimal.Decimal, detectedAt time.Time) []*Opportunity {
	opportunities := make([]*Opportunity, 0, len(paths))
	for _, path := range paths {
		opp, err := Evaluate(path, inputAmount, detectedAt)
		if err != nil {
			continue
		}
		if opp.NetProfit.Sign() <= 0 {
			continue
		}
		if opp.ProfitPercent.LessThan(minProfitPercent) {
			continue
		}
		opportunities = append(opportunities, opp)
	}

	sortOpportunities(opportunities)
	return opportunities
}

// sortOpportunities orders by descending profit percent, ties broken by
// fewer hops then by earliest detection.
func sortOpportunities(opportunities []*Opportunity) {
	sort.SliceStable(opportunities, func(i, j int) bool {
		a, b := opportunities[i], opportunities[j]
		if !a.ProfitPercent.Equal(b.ProfitPercent) {
			return a.ProfitPercent.GreaterThan(b.ProfitPercent)
		}
		if a.Path.Len() != b.Path.Len() {
			return a.Path.Len() < b.Path.Len()
		}
		return a.DetectedAt.Before(b.DetectedAt)
	})
}
