package engine

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"
)

func TestInsideGrowthThreeRegions(t *testing.T) {
	global := uint256.NewInt(1000)
	outsideLower := uint256.NewInt(300)
	outsideUpper := uint256.NewInt(100)

	// price below the range
	got := insideGrowth(100, 200, 50, outsideLower, outsideUpper, global)
	if want := uint256.NewInt(200); got.Cmp(want) != 0 {
		t.Fatalf("below: got %v, want %v", got, want)
	}

	// price above the range
	got = insideGrowth(100, 200, 250, outsideLower, outsideUpper, global)
	want := new(uint256.Int).Sub(outsideUpper, outsideLower) // wraps negative
	if got.Cmp(want) != 0 {
		t.Fatalf("above: got %v, want %v", got, want)
	}

	// price within the range
	got = insideGrowth(100, 200, 150, outsideLower, outsideUpper, global)
	if want := uint256.NewInt(600); got.Cmp(want) != 0 {
		t.Fatalf("within: got %v, want %v", got, want)
	}
}

func TestInsideGrowthWraps(t *testing.T) {
	// global wrapped past zero while outside snapshots were taken before
	// the wrap; the modular difference is still the true growth.
	global := uint256.NewInt(5)
	outsideLower := new(uint256.Int).Sub(new(uint256.Int), uint256.NewInt(10)) // 2^256 - 10
	outsideUpper := new(uint256.Int)

	got := insideGrowth(100, 200, 150, outsideLower, outsideUpper, global)
	if want := uint256.NewInt(15); got.Cmp(want) != 0 {
		t.Fatalf("wrapped inside growth = %v, want %v", got, want)
	}
}

func TestOwedDelta(t *testing.T) {
	inside := new(uint256.Int).Lsh(uint256.NewInt(7), 128)
	last := new(uint256.Int).Lsh(uint256.NewInt(3), 128)
	liquidity := big.NewInt(10)

	got := owedDelta(inside, last, liquidity)
	if want := big.NewInt(40); got.Cmp(want) != 0 {
		t.Fatalf("owed = %s, want %s", got, want)
	}
}

func TestOwedDeltaWraps(t *testing.T) {
	// inside wrapped below last; the wrapped difference of 1<<128 is one
	// full token per unit of liquidity.
	last := new(uint256.Int).Sub(new(uint256.Int), uint256.NewInt(1)) // 2^256 - 1
	inside := new(uint256.Int).Sub(new(uint256.Int).Lsh(uint256.NewInt(1), 128), uint256.NewInt(1))

	got := owedDelta(inside, last, big.NewInt(3))
	if want := big.NewInt(3); got.Cmp(want) != 0 {
		t.Fatalf("wrapped owed = %s, want %s", got, want)
	}
}
