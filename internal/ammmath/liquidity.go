package ammmath

import (
	"math/big"
)

func sortSqrt(a, b *big.Int) (*big.Int, *big.Int) {
	if a.Cmp(b) > 0 {
		return b, a
	}
	return a, b
}

// liquidityForAmount0 returns the liquidity that amount0 buys across
// [sqrtA, sqrtB], for any ordering of sqrtA, sqrtB.
func liquidityForAmount0(sqrtA, sqrtB, amount0 *big.Int) *big.Int {
	lo, hi := sortSqrt(sqrtA, sqrtB)
	diff := new(big.Int).Sub(hi, lo)
	if diff.Sign() == 0 {
		return new(big.Int)
	}
	intermediate := new(big.Int).Mul(lo, hi)
	intermediate.Div(intermediate, Q96)
	num := new(big.Int).Mul(amount0, intermediate)
	return num.Div(num, diff)
}

// liquidityForAmount1 returns the liquidity that amount1 buys across
// [sqrtA, sqrtB], for any ordering of sqrtA, sqrtB.
func liquidityForAmount1(sqrtA, sqrtB, amount1 *big.Int) *big.Int {
	lo, hi := sortSqrt(sqrtA, sqrtB)
	diff := new(big.Int).Sub(hi, lo)
	if diff.Sign() == 0 {
		return new(big.Int)
	}
	num := new(big.Int).Mul(amount1, Q96)
	return num.Div(num, diff)
}

// amount0ForLiquidity returns the amount of token0 represented by liquidity
// across [sqrtA, sqrtB], for any ordering of sqrtA, sqrtB.
func amount0ForLiquidity(sqrtA, sqrtB, liquidity *big.Int) *big.Int {
	lo, hi := sortSqrt(sqrtA, sqrtB)
	if lo.Sign() == 0 || hi.Sign() == 0 {
		return new(big.Int)
	}
	diff := new(big.Int).Sub(hi, lo)
	num := new(big.Int).Mul(liquidity, Q96)
	num.Mul(num, diff)
	num.Div(num, hi)
	return num.Div(num, lo)
}

// amount1ForLiquidity returns the amount of token1 represented by liquidity
// across [sqrtA, sqrtB], for any ordering of sqrtA, sqrtB.
func amount1ForLiquidity(sqrtA, sqrtB, liquidity *big.Int) *big.Int {
	lo, hi := sortSqrt(sqrtA, sqrtB)
	diff := new(big.Int).Sub(hi, lo)
	num := new(big.Int).Mul(liquidity, diff)
	return num.Div(num, Q96)
}

// Amount0ForLiquidity returns the amount of token0 represented by liquidity
// across [sqrtA, sqrtB], for any ordering of sqrtA, sqrtB. Exported for the
// tick-walking quote engine, which needs it per-step rather than per-position.
func Amount0ForLiquidity(sqrtA, sqrtB, liquidity *big.Int) *big.Int {
	return amount0ForLiquidity(sqrtA, sqrtB, liquidity)
}

// Amount1ForLiquidity returns the amount of token1 represented by liquidity
// across [sqrtA, sqrtB], for any ordering of sqrtA, sqrtB.
func Amount1ForLiquidity(sqrtA, sqrtB, liquidity *big.Int) *big.Int {
	return amount1ForLiquidity(sqrtA, sqrtB, liquidity)
}

// NextSqrtPriceFromAmount0 returns the √price reached after liquidity L
// absorbs amountIn of token0 starting from sqrtP (price decreases).
func NextSqrtPriceFromAmount0(sqrtP, liquidity, amountIn *big.Int) *big.Int {
	if amountIn.Sign() == 0 {
		return new(big.Int).Set(sqrtP)
	}
	liquidityQ96 := new(big.Int).Mul(liquidity, Q96)
	numerator := new(big.Int).Mul(liquidityQ96, sqrtP)
	product := new(big.Int).Mul(amountIn, sqrtP)
	denominator := new(big.Int).Add(liquidityQ96, product)
	if denominator.Sign() <= 0 {
		return new(big.Int)
	}
	return numerator.Div(numerator, denominator)
}

// NextSqrtPriceFromAmount1 returns the √price reached after liquidity L
// absorbs amountIn of token1 starting from sqrtP (price increases).
func NextSqrtPriceFromAmount1(sqrtP, liquidity, amountIn *big.Int) *big.Int {
	if liquidity.Sign() == 0 {
		return new(big.Int).Set(sqrtP)
	}
	delta := new(big.Int).Mul(amountIn, Q96)
	delta.Div(delta, liquidity)
	return new(big.Int).Add(sqrtP, delta)
}
