// Package quote implements the Offline Quote Engine (C3): local, exact-input
// swap simulation against a cached pool snapshot, walking ticks the way the
// on-chain AMM does so the engine never needs a round trip for a quote.
package quote

import (
	"math/big"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/sentientforest/gswap-interesting-trader-bot/internal/ammmath"
	"github.com/sentientforest/gswap-interesting-trader-bot/internal/poolcache"
	"github.com/sentientforest/gswap-interesting-trader-bot/internal/tokenkey"
	"github.com/sentientforest/gswap-interesting-trader-bot/pkg/errs"
)

const feeDenominator = 1_000_000

// Result is the outcome of an offline exact-input swap simulation.
type Result struct {
	AmountIn           decimal.Decimal
	AmountOut          decimal.Decimal
	CurrentSqrtPrice   *big.Int
	NewSqrtPrice       *big.Int
	PriceImpactPercent decimal.Decimal
}

func sortedTicks(ticks map[int32]poolcache.TickInfo) []int32 {
	out := make([]int32, 0, len(ticks))
	for t := range ticks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// locateTickIndex returns, for zeroForOne, the index of the greatest tick
// strictly below currentTick (searching downward), or for !zeroForOne the
// index of the smallest tick strictly above currentTick (searching upward).
// Returns -1 / len(ticks) respectively when none remain in that direction.
func locateTickIndex(ticks []int32, currentTick int32, zeroForOne bool) int {
	if zeroForOne {
		idx := sort.Search(len(ticks), func(i int) bool { return ticks[i] >= currentTick })
		return idx - 1
	}
	idx := sort.Search(len(ticks), func(i int) bool { return ticks[i] > currentTick })
	return idx
}

func toRawUnits(amount decimal.Decimal, decimals int32) *big.Int {
	scaled := amount.Shift(decimals)
	return scaled.Truncate(0).BigInt()
}

func fromRawUnits(raw *big.Int, decimals int32) decimal.Decimal {
	return decimal.NewFromBigInt(raw, 0).Shift(-decimals)
}

// swapStep advances the price from currentSqrtPrice toward boundSqrtPrice
// (inclusive) consuming up to remainingIn raw input units, fee included.
// Returns the raw output produced, the raw input consumed (including fee),
// the new √price, and whether the step fully reached boundSqrtPrice.
func swapStep(currentSqrtPrice, boundSqrtPrice, liquidity, remainingIn *big.Int, feeTier int, zeroForOne bool) (outRaw, inConsumed, newSqrtPrice *big.Int, filled bool) {
	feeAmount := new(big.Int).Mul(remainingIn, big.NewInt(int64(feeTier)))
	feeAmount.Div(feeAmount, big.NewInt(feeDenominator))
	amountAfterFee := new(big.Int).Sub(remainingIn, feeAmount)
	if amountAfterFee.Sign() < 0 {
		amountAfterFee = new(big.Int)
	}

	var maxAmountForStep *big.Int
	if zeroForOne {
		maxAmountForStep = ammmath.Amount0ForLiquidity(boundSqrtPrice, currentSqrtPrice, liquidity)
	} else {
		maxAmountForStep = ammmath.Amount1ForLiquidity(currentSqrtPrice, boundSqrtPrice, liquidity)
	}

	if amountAfterFee.Cmp(maxAmountForStep) >= 0 {
		var out *big.Int
		if zeroForOne {
			out = ammmath.Amount1ForLiquidity(boundSqrtPrice, currentSqrtPrice, liquidity)
		} else {
			out = ammmath.Amount0ForLiquidity(currentSqrtPrice, boundSqrtPrice, liquidity)
		}
		stepFee := new(big.Int).Mul(maxAmountForStep, big.NewInt(int64(feeTier)))
		stepFee.Div(stepFee, big.NewInt(feeDenominator-int64(feeTier)))
		consumed := new(big.Int).Add(maxAmountForStep, stepFee)
		if consumed.Cmp(remainingIn) > 0 {
			consumed = new(big.Int).Set(remainingIn)
		}
		return out, consumed, new(big.Int).Set(boundSqrtPrice), true
	}

	var newPrice *big.Int
	var out *big.Int
	if zeroForOne {
		newPrice = ammmath.NextSqrtPriceFromAmount0(currentSqrtPrice, liquidity, amountAfterFee)
		out = ammmath.Amount1ForLiquidity(newPrice, currentSqrtPrice, liquidity)
	} else {
		newPrice = ammmath.NextSqrtPriceFromAmount1(currentSqrtPrice, liquidity, amountAfterFee)
		out = ammmath.Amount0ForLiquidity(currentSqrtPrice, newPrice, liquidity)
	}
	return out, new(big.Int).Set(remainingIn), newPrice, false
}

func priceImpactPercent(currentSqrtPrice, newSqrtPrice *big.Int) decimal.Decimal {
	cur := decimal.NewFromBigInt(currentSqrtPrice, 0)
	next := decimal.NewFromBigInt(newSqrtPrice, 0)
	curSq := cur.Mul(cur)
	nextSq := next.Mul(next)
	if curSq.Sign() == 0 {
		return decimal.Zero
	}
	diff := nextSq.Sub(curSq).Abs()
	return diff.DivRound(curSq, 10).Mul(decimal.NewFromInt(100))
}

// ExactInput computes the output of an exact-input swap against snapshot.
// All arithmetic is integer or decimal.Decimal; no floats in the hot path.
// It never mutates snapshot. Quoting the same inputs twice yields identical
// outputs (no wall-clock or randomness enters the computation).
func ExactInput(snapshot *poolcache.Snapshot, tokenIn tokenkey.Key, amountIn decimal.Decimal) (*Result, error) {
	if amountIn.Sign() <= 0 {
		return nil, errs.Quote(nil, "amountIn must be positive")
	}

	zeroForOne := tokenIn.Equal(snapshot.Token0)
	if !zeroForOne && !tokenIn.Equal(snapshot.Token1) {
		return nil, errs.Quote(nil, "tokenIn %s is not part of pool %s/%s", tokenIn, snapshot.Token0, snapshot.Token1)
	}

	decimalsIn := snapshot.Decimals0
	decimalsOut := snapshot.Decimals1
	if !zeroForOne {
		decimalsIn, decimalsOut = snapshot.Decimals1, snapshot.Decimals0
	}

	remainingIn := toRawUnits(amountIn, decimalsIn)
	if remainingIn.Sign() <= 0 {
		return nil, errs.Quote(nil, "amountIn rounds to zero raw units")
	}

	ticks := sortedTicks(snapshot.Ticks)
	tickIdx := locateTickIndex(ticks, snapshot.Tick, zeroForOne)

	currentSqrtPrice := new(big.Int).Set(snapshot.SqrtPriceX96)
	liquidity := new(big.Int).Set(snapshot.Liquidity)
	totalOutRaw := new(big.Int)

	const maxSteps = 500
	for step := 0; remainingIn.Sign() > 0; step++ {
		if step >= maxSteps {
			return nil, errs.Quote(nil, "swap simulation exceeded maximum tick-walk steps")
		}
		if liquidity.Sign() <= 0 {
			return nil, errs.Quote(nil, "insufficient liquidity to absorb input")
		}

		var boundSqrtPrice *big.Int
		crossing := -1
		if zeroForOne {
			if tickIdx >= 0 {
				boundSqrtPrice = ammmath.TickToSqrtPriceX96(int(ticks[tickIdx]))
				crossing = tickIdx
			} else {
				boundSqrtPrice = ammmath.TickToSqrtPriceX96(ammmath.MinTick)
			}
		} else {
			if tickIdx < len(ticks) {
				boundSqrtPrice = ammmath.TickToSqrtPriceX96(int(ticks[tickIdx]))
				crossing = tickIdx
			} else {
				boundSqrtPrice = ammmath.TickToSqrtPriceX96(ammmath.MaxTick)
			}
		}

		outRaw, inConsumed, newSqrtPrice, filled := swapStep(currentSqrtPrice, boundSqrtPrice, liquidity, remainingIn, snapshot.Fee, zeroForOne)
		totalOutRaw.Add(totalOutRaw, outRaw)
		remainingIn.Sub(remainingIn, inConsumed)
		currentSqrtPrice = newSqrtPrice

		if !filled {
			break
		}
		if crossing < 0 {
			return nil, errs.Quote(nil, "insufficient liquidity to absorb input")
		}

		tickInfo := snapshot.Ticks[ticks[crossing]]
		net := tickInfo.NetLiquidity
		if net == nil {
			net = new(big.Int)
		}
		if zeroForOne {
			liquidity = new(big.Int).Sub(liquidity, net)
			tickIdx--
		} else {
			liquidity = new(big.Int).Add(liquidity, net)
			tickIdx++
		}
		if liquidity.Sign() < 0 {
			liquidity = new(big.Int)
		}
	}

	return &Result{
		AmountIn:           amountIn,
		AmountOut:          fromRawUnits(totalOutRaw, decimalsOut),
		CurrentSqrtPrice:   snapshot.SqrtPriceX96,
		NewSqrtPrice:       currentSqrtPrice,
		PriceImpactPercent: priceImpactPercent(snapshot.SqrtPriceX96, currentSqrtPrice),
	}, nil
}
