package profit

import (
	"math/big"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentientforest/gswap-interesting-trader-bot/internal/ammmath"
	"github.com/sentientforest/gswap-interesting-trader-bot/internal/pathfinder"
	"github.com/sentientforest/gswap-interesting-trader-bot/internal/poolcache"
	"github.com/sentientforest/gswap-interesting-trader-bot/internal/tokenkey"
)

func flatSnapshot(t0, t1 tokenkey.Key, fee int) *poolcache.Snapshot {
	liquidity, _ := new(big.Int).SetString("100000000000000000000", 10)
	return &poolcache.Snapshot{
		Token0:       t0,
		Token1:       t1,
		Fee:          fee,
		Decimals0:    8,
		Decimals1:    8,
		SqrtPriceX96: new(big.Int).Set(ammmath.Q96),
		Tick:         0,
		Liquidity:    liquidity,
		TickSpacing:  60,
		Ticks:        map[int32]poolcache.TickInfo{},
	}
}

func twoHopPath(a, b tokenkey.Key) pathfinder.Path {
	s1 := flatSnapshot(a, b, 500)
	s2 := flatSnapshot(a, b, 3000)
	return pathfinder.Path{
		Tokens: []tokenkey.Key{a, b, a},
		Hops: []pathfinder.Hop{
			{From: a, To: b, Snapshot: s1},
			{From: b, To: a, Snapshot: s2},
		},
	}
}

func TestEvaluate_FlatPoolsProduceNegativeProfitFromFees(t *testing.T) {
	a := tokenkey.FromSymbol("A")
	b := tokenkey.FromSymbol("B")
	path := twoHopPath(a, b)

	opp, err := Evaluate(path, decimal.NewFromInt(100), time.Unix(0, 0))
	require.NoError(t, err)
	assert.True(t, opp.OutputAmount.LessThan(decimal.NewFromInt(100)))
	assert.True(t, opp.GrossProfit.Sign() < 0)
	assert.True(t, opp.NetProfit.GreaterThan(opp.GrossProfit), "a multiplicative haircut on a negative gross profit moves net profit toward zero")
}

func TestEvaluate_AppliesTwoPercentHaircutToGrossProfit(t *testing.T) {
	a := tokenkey.FromSymbol("A")
	b := tokenkey.FromSymbol("B")
	path := twoHopPath(a, b)

	opp, err := Evaluate(path, decimal.NewFromInt(100), time.Unix(0, 0))
	require.NoError(t, err)
	expectedNet := opp.GrossProfit.Mul(decimal.NewFromFloat(0.98))
	assert.True(t, opp.NetProfit.Sub(expectedNet).Abs().LessThan(decimal.NewFromFloat(0.000001)))
}

func TestEvaluate_ScenarioFiveAcceptAndRejectThresholds(t *testing.T) {
	a := tokenkey.FromSymbol("A")
	b := tokenkey.FromSymbol("B")
	c := tokenkey.FromSymbol("C")
	path := pathfinder.Path{
		Tokens: []tokenkey.Key{a, b, c, a},
		Hops: []pathfinder.Hop{
			{From: a, To: b, Snapshot: flatSnapshot(a, b, 3000)},
			{From: b, To: c, Snapshot: flatSnapshot(b, c, 3000)},
			{From: c, To: a, Snapshot: flatSnapshot(c, a, 3000)},
		},
	}

	// Flat pools cannot turn 100 A into 101.5 A, so the path above is not
	// quoted. Instead a gross profit of 1.5 is injected and the haircut and
	// percent formulas are recomputed here with FeeHaircut, then checked
	// against the 1.0% (accept) and 2.0% (reject) thresholds.
	opp := &Opportunity{InputAmount: decimal.NewFromInt(100), GrossProfit: decimal.NewFromFloat(1.5)}
	haircut, _ := decimal.NewFromString(FeeHaircut)
	net := opp.GrossProfit.Mul(decimal.NewFromInt(1).Sub(haircut))
	pct := net.DivRound(opp.InputAmount, 10).Mul(decimal.NewFromInt(100))

	assert.True(t, net.Equal(decimal.NewFromFloat(1.47)))
	assert.True(t, pct.GreaterThanOrEqual(decimal.NewFromFloat(1.0)))
	assert.True(t, pct.LessThan(decimal.NewFromFloat(2.0)))
	_ = path
}

func TestEvaluate_RejectsNonPositiveInput(t *testing.T) {
	a := tokenkey.FromSymbol("A")
	b := tokenkey.FromSymbol("B")
	path := twoHopPath(a, b)
	_, err := Evaluate(path, decimal.Zero, time.Unix(0, 0))
	assert.Error(t, err)
}

func TestEvaluate_PropagatesHopQuoteFailure(t *testing.T) {
	a := tokenkey.FromSymbol("A")
	b := tokenkey.FromSymbol("B")
	snap := flatSnapshot(a, b, 500)
	snap.Liquidity = big.NewInt(1)
	path := pathfinder.Path{
		Tokens: []tokenkey.Key{a, b, a},
		Hops: []pathfinder.Hop{
			{From: a, To: b, Snapshot: snap},
			{From: b, To: a, Snapshot: flatSnapshot(a, b, 3000)},
		},
	}
	_, err := Evaluate(path, decimal.NewFromInt(1_000_000), time.Unix(0, 0))
	assert.Error(t, err)
}

func TestEvaluate_MaxPriceImpactIsWorstHop(t *testing.T) {
	a := tokenkey.FromSymbol("A")
	b := tokenkey.FromSymbol("B")
	path := twoHopPath(a, b)
	opp, err := Evaluate(path, decimal.NewFromInt(10), time.Unix(0, 0))
	require.NoError(t, err)
	assert.True(t, opp.MaxPriceImpact.GreaterThanOrEqual(opp.Hops[0].Result.PriceImpactPercent))
	assert.True(t, opp.MaxPriceImpact.GreaterThanOrEqual(opp.Hops[1].Result.PriceImpactPercent))
}

func TestEvaluateAll_FiltersNonPositiveNetProfit(t *testing.T) {
	a := tokenkey.FromSymbol("A")
	b := tokenkey.FromSymbol("B")
	paths := []pathfinder.Path{twoHopPath(a, b)}
	opportunities := EvaluateAll(paths, decimal.NewFromInt(100), decimal.Zero, time.Unix(0, 0))
	assert.Empty(t, opportunities, "flat-pool round trip loses money after fees, so nothing should survive")
}

func TestEvaluateAll_SortsByDescendingProfitPercentThenHopsThenDetectedAt(t *testing.T) {
	earlier := time.Unix(0, 0)
	later := time.Unix(100, 0)
	opps := []*Opportunity{
		{ProfitPercent: decimal.NewFromFloat(1.0), Path: pathfinder.Path{Hops: make([]pathfinder.Hop, 3)}, DetectedAt: earlier},
		{ProfitPercent: decimal.NewFromFloat(2.0), Path: pathfinder.Path{Hops: make([]pathfinder.Hop, 2)}, DetectedAt: later},
		{ProfitPercent: decimal.NewFromFloat(1.0), Path: pathfinder.Path{Hops: make([]pathfinder.Hop, 2)}, DetectedAt: later},
	}

	// Call sortOpportunities directly, the same sort EvaluateAll applies.
	sorted := append([]*Opportunity(nil), opps...)
	sortOpportunities(sorted)

	require.Len(t, sorted, 3)
	assert.Equal(t, 2.0, sorted[0].ProfitPercent.InexactFloat64())
	assert.Equal(t, 2, sorted[1].Path.Len())
	assert.Equal(t, earlier, sorted[2].DetectedAt)
}
