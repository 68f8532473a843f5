package engine

import (
	"math/big"

	"github.com/holiman/uint256"
)

// Fee growth accumulators are unsigned X128 fixed-point values that wrap
// modulo 2^256. uint256 arithmetic wraps natively, so subtraction between two
// snapshots is a plain Sub; the modular difference is always meaningful.

// insideGrowth computes the fee growth accrued inside [lower, upper) for a
// single accumulator, from the global value and the two per-tick outside
// values. Three regions: price below the range, above it, or within it.
func insideGrowth(lower, upper, current int32, outsideLower, outsideUpper, global *uint256.Int) *uint256.Int {
	growth := new(uint256.Int)
	switch {
	case current < lower:
		growth.Sub(outsideLower, outsideUpper)
	case current >= upper:
		growth.Sub(outsideUpper, outsideLower)
	default:
		growth.Sub(global, outsideLower)
		growth.Sub(growth, outsideUpper)
	}
	return growth
}

// owedDelta converts a wrapped fee-growth delta into a token amount:
// (inside - insideLast) * liquidity >> 128. The subtraction wraps; the
// product is taken over big.Int so it cannot silently truncate.
func owedDelta(inside, insideLast *uint256.Int, liquidity *big.Int) *big.Int {
	delta := new(uint256.Int).Sub(inside, insideLast)
	owed := new(big.Int).Mul(delta.ToBig(), liquidity)
	return owed.Rsh(owed, 128)
}
