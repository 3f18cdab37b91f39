package quote

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentientforest/gswap-interesting-trader-bot/internal/ammmath"
	"github.com/sentientforest/gswap-interesting-trader-bot/internal/poolcache"
	"github.com/sentientforest/gswap-interesting-trader-bot/internal/tokenkey"
)

func flatSnapshot() *poolcache.Snapshot {
	gala := tokenkey.FromSymbol("GALA")
	silk := tokenkey.FromSymbol("SILK")
	liquidity, _ := new(big.Int).SetString("100000000000000000000", 10)
	return &poolcache.Snapshot{
		Token0:       gala,
		Token1:       silk,
		Fee:          3000,
		Decimals0:    8,
		Decimals1:    8,
		SqrtPriceX96: new(big.Int).Set(ammmath.Q96),
		Tick:         0,
		Liquidity:    liquidity,
		TickSpacing:  60,
		Ticks:        map[int32]poolcache.TickInfo{},
	}
}

func TestExactInput_BasicSwapProducesLessThanInputDueToFee(t *testing.T) {
	snap := flatSnapshot()
	result, err := ExactInput(snap, snap.Token0, decimal.NewFromInt(10))
	require.NoError(t, err)
	assert.True(t, result.AmountOut.LessThan(decimal.NewFromInt(10)))
	assert.True(t, result.AmountOut.GreaterThan(decimal.NewFromFloat(9.0)))
}

func TestExactInput_Deterministic(t *testing.T) {
	snap := flatSnapshot()
	r1, err := ExactInput(snap, snap.Token0, decimal.NewFromInt(10))
	require.NoError(t, err)
	r2, err := ExactInput(snap, snap.Token0, decimal.NewFromInt(10))
	require.NoError(t, err)
	assert.True(t, r1.AmountOut.Equal(r2.AmountOut))
	assert.Equal(t, r1.NewSqrtPrice.String(), r2.NewSqrtPrice.String())
}

func TestExactInput_ReverseDirection(t *testing.T) {
	snap := flatSnapshot()
	result, err := ExactInput(snap, snap.Token1, decimal.NewFromInt(10))
	require.NoError(t, err)
	assert.True(t, result.AmountOut.Sign() > 0)
	assert.True(t, result.NewSqrtPrice.Cmp(snap.SqrtPriceX96) > 0)
}

func TestExactInput_RejectsNonPoolToken(t *testing.T) {
	snap := flatSnapshot()
	_, err := ExactInput(snap, tokenkey.FromSymbol("GUSDC"), decimal.NewFromInt(10))
	assert.Error(t, err)
}

func TestExactInput_RejectsNonPositiveAmount(t *testing.T) {
	snap := flatSnapshot()
	_, err := ExactInput(snap, snap.Token0, decimal.Zero)
	assert.Error(t, err)
}

func TestExactInput_InsufficientLiquidityFails(t *testing.T) {
	snap := flatSnapshot()
	snap.Liquidity = big.NewInt(1)
	_, err := ExactInput(snap, snap.Token0, decimal.NewFromInt(1_000_000))
	assert.Error(t, err)
}

func TestExactInput_PriceImpactGrowsWithSize(t *testing.T) {
	snap := flatSnapshot()
	small, err := ExactInput(snap, snap.Token0, decimal.NewFromInt(1))
	require.NoError(t, err)
	large, err := ExactInput(snap, snap.Token0, decimal.NewFromInt(1000))
	require.NoError(t, err)
	assert.True(t, large.PriceImpactPercent.GreaterThan(small.PriceImpactPercent))
}
