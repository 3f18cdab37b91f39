// Package ammmath implements the concentrated-liquidity (Uniswap-v3-style)
// tick and Q64.96 √price arithmetic used by the offline quote engine. All
// arithmetic here is integer-only.
package ammmath

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

// MinTick and MaxTick bound the valid concentrated-liquidity tick range.
const (
	MinTick = -887272
	MaxTick = 887272
)

// Q96 is 2^96, the fixed-point scale for √price.
var Q96 = new(big.Int).Lsh(big.NewInt(1), 96)

func hex128(s string) *uint256.Int {
	v, err := uint256.FromHex("0x" + s)
	if err != nil {
		panic("ammmath: bad magic constant " + s)
	}
	return v
}

// tickRatioConstants are the Q128.128 per-bit multipliers from the Uniswap v3
// TickMath.getSqrtRatioAtTick algorithm, indexed by bit position 0..18.
var tickRatioConstants = []*uint256.Int{
	hex128("fffcb933bd6fad37aa2d162d1a594001"),
	hex128("fff97272373d413259a46990580e213a"),
	hex128("fff2e50f5f656932ef12357cf3c7fdcc"),
	hex128("ffe5caca7e10e4e61c3624eaa0941cd0"),
	hex128("ffcb9843d60f6159c9db58835c926644"),
	hex128("ff973b41fa98c081472e6896dfb254c0"),
	hex128("ff2ea16466c96a3843ec78b326b52861"),
	hex128("fe5dee046a99a2a811c461f1969c3053"),
	hex128("fcbe86c7900a88aedcffc83b479aa3a4"),
	hex128("f987a7253ac413176f2b074cf7815e54"),
	hex128("f3392b0822b70005940c7a398e4b70f3"),
	hex128("e7159475a2c29b7443b29c7fa6e889d9"),
	hex128("d097f3bdfd2022b8845ad8f792aa5825"),
	hex128("a9f746462d870fdf8a65dc1f90e061e5"),
	hex128("70d869a156d2a1b890bb3df62baf32f7"),
	hex128("31be135f97d08fd981231505542fcfa6"),
	hex128("09aa508b5b7a84e1c677de54f3e99bc9"),
	hex128("5d6af8dedb81196699c329225ee604"),
	hex128("2216e584f5fa1ea926041bedfe98"),
}

var oneQ128 = hex128("100000000000000000000000000000000")

// mulShift128 computes (a*b) >> 128 for two Q128.128 values whose product
// fits within 256 bits, which holds for every step of getSqrtRatioAtTick.
func mulShift128(a, b *uint256.Int) *uint256.Int {
	z := new(uint256.Int).Mul(a, b)
	return z.Rsh(z, 128)
}

// GetSqrtRatioAtTick returns the Q64.96 √price for a tick, following the
// Uniswap v3 TickMath bit-decomposition algorithm.
func GetSqrtRatioAtTick(tick int32) (*uint256.Int, error) {
	if tick < MinTick || tick > MaxTick {
		return nil, fmt.Errorf("ammmath: tick %d out of range [%d,%d]", tick, MinTick, MaxTick)
	}

	absTick := tick
	if absTick < 0 {
		absTick = -absTick
	}
	mask := uint32(absTick)

	var ratio *uint256.Int
	if mask&0x1 != 0 {
		ratio = new(uint256.Int).Set(tickRatioConstants[0])
	} else {
		ratio = new(uint256.Int).Set(oneQ128)
	}
	for i := 1; i < 19; i++ {
		bit := uint32(1) << uint(i)
		if mask&bit != 0 {
			ratio = mulShift128(ratio, tickRatioConstants[i])
		}
	}

	if tick > 0 {
		maxU256 := new(uint256.Int).Not(uint256.NewInt(0))
		ratio = new(uint256.Int).Div(maxU256, ratio)
	}

	// Shift down from Q128.128 to Q128.96, rounding up.
	sqrtPriceX96 := new(uint256.Int).Rsh(ratio, 32)
	remainder := new(uint256.Int).Mod(ratio, uint256.NewInt(1<<32))
	if !remainder.IsZero() {
		sqrtPriceX96.AddUint64(sqrtPriceX96, 1)
	}
	return sqrtPriceX96, nil
}

// TickToSqrtPriceX96 returns the Q64.96 √price for a tick as a *big.Int, the
// representation the rest of this package's liquidity math uses.
func TickToSqrtPriceX96(tick int) *big.Int {
	r, err := GetSqrtRatioAtTick(int32(tick))
	if err != nil {
		return new(big.Int)
	}
	return r.ToBig()
}
