package engine

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/holiman/uint256"
)

const (
	// MinTick and MaxTick bound the tick index range, matching V3 TickMath.
	MinTick int32 = -887272
	MaxTick int32 = 887272
)

var (
	maxUint128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
	maxInt128  = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
	minInt128  = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
)

// CheckTick rejects tick indexes outside the representable range.
func CheckTick(tick int32) error {
	if tick < MinTick || tick > MaxTick {
		return fmt.Errorf("%w: tick %d out of bounds", ErrArithmetic, tick)
	}
	return nil
}

// TickEntry holds the per-tick aggregates shared by every position that
// references the tick as a boundary.
type TickEntry struct {
	LiquidityGross        *big.Int
	LiquidityNet          *big.Int
	FeeGrowthOutside0X128 *uint256.Int
	FeeGrowthOutside1X128 *uint256.Int
}

func newTickEntry() *TickEntry {
	return &TickEntry{
		LiquidityGross:        new(big.Int),
		LiquidityNet:          new(big.Int),
		FeeGrowthOutside0X128: new(uint256.Int),
		FeeGrowthOutside1X128: new(uint256.Int),
	}
}

// Clone returns a deep value copy.
func (t *TickEntry) Clone() *TickEntry {
	return &TickEntry{
		LiquidityGross:        new(big.Int).Set(t.LiquidityGross),
		LiquidityNet:          new(big.Int).Set(t.LiquidityNet),
		FeeGrowthOutside0X128: new(uint256.Int).Set(t.FeeGrowthOutside0X128),
		FeeGrowthOutside1X128: new(uint256.Int).Set(t.FeeGrowthOutside1X128),
	}
}

// TickLedger indexes tick entries by tick. Entries are created lazily when a
// boundary first gains gross liquidity and removed when it returns to zero,
// clearing the outside snapshots with it.
type TickLedger struct {
	ticks map[int32]*TickEntry
}

func NewTickLedger() *TickLedger {
	return &TickLedger{ticks: make(map[int32]*TickEntry)}
}

// Get returns the entry for tick, or nil if the tick is uninitialized.
func (l *TickLedger) Get(tick int32) *TickEntry {
	return l.ticks[tick]
}

// IsInitialized reports whether the tick carries any gross liquidity.
func (l *TickLedger) IsInitialized(tick int32) bool {
	entry, ok := l.ticks[tick]
	return ok && entry.LiquidityGross.Sign() != 0
}

// Update applies a signed liquidity delta at a boundary tick. upper selects
// the sign convention for the net contribution. A tick initialized by this
// call gets its fee-growth-outside assigned: the full global value when the
// tick is at or below the current tick, zero otherwise. Returns true when
// the tick flipped between initialized and uninitialized.
func (l *TickLedger) Update(tick, currentTick int32, delta *big.Int, upper bool, global0, global1 *uint256.Int) (bool, error) {
	if err := CheckTick(tick); err != nil {
		return false, err
	}

	entry, ok := l.ticks[tick]
	if !ok {
		entry = newTickEntry()
	}

	grossBefore := entry.LiquidityGross
	grossAfter := new(big.Int).Add(grossBefore, delta)
	if grossAfter.Sign() < 0 {
		return false, fmt.Errorf("%w: gross liquidity below zero at tick %d", ErrArithmetic, tick)
	}
	if grossAfter.Cmp(maxUint128) > 0 {
		return false, fmt.Errorf("%w: gross liquidity overflow at tick %d", ErrArithmetic, tick)
	}
	flipped := (grossAfter.Sign() == 0) != (grossBefore.Sign() == 0)

	if grossBefore.Sign() == 0 && tick <= currentTick {
		entry.FeeGrowthOutside0X128 = new(uint256.Int).Set(global0)
		entry.FeeGrowthOutside1X128 = new(uint256.Int).Set(global1)
	}

	net := new(big.Int).Set(entry.LiquidityNet)
	if upper {
		net.Sub(net, delta)
	} else {
		net.Add(net, delta)
	}
	if net.Cmp(maxInt128) > 0 || net.Cmp(minInt128) < 0 {
		return false, fmt.Errorf("%w: net liquidity out of int128 at tick %d", ErrArithmetic, tick)
	}

	entry.LiquidityGross = grossAfter
	entry.LiquidityNet = net

	if grossAfter.Sign() == 0 {
		delete(l.ticks, tick)
	} else {
		l.ticks[tick] = entry
	}
	return flipped, nil
}

// Cross flips the fee-growth-outside snapshots as the price moves through an
// initialized tick and returns the signed net liquidity to apply.
func (l *TickLedger) Cross(tick int32, global0, global1 *uint256.Int) *big.Int {
	entry, ok := l.ticks[tick]
	if !ok {
		return new(big.Int)
	}
	entry.FeeGrowthOutside0X128 = new(uint256.Int).Sub(global0, entry.FeeGrowthOutside0X128)
	entry.FeeGrowthOutside1X128 = new(uint256.Int).Sub(global1, entry.FeeGrowthOutside1X128)
	return new(big.Int).Set(entry.LiquidityNet)
}

// InitializedBetween returns the initialized ticks in (from, to], ordered in
// crossing direction. Used when advancing the pool price.
func (l *TickLedger) InitializedBetween(from, to int32) []int32 {
	if from == to {
		return nil
	}
	lo, hi := from, to
	if lo > hi {
		lo, hi = hi, lo
	}
	var out []int32
	for tick := range l.ticks {
		if tick > lo && tick <= hi {
			out = append(out, tick)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	if to < from {
		// moving down: cross highest first, and (from, to] becomes (to, from]
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}

// ledgerSnapshot is a value copy of a handful of entries, taken before a
// mutation so a failed call can restore them verbatim.
type ledgerSnapshot map[int32]*TickEntry

// Snapshot captures the named ticks. Absent ticks are recorded as nil so a
// restore removes entries created after the snapshot.
func (l *TickLedger) Snapshot(ticks ...int32) ledgerSnapshot {
	snap := make(ledgerSnapshot, len(ticks))
	for _, tick := range ticks {
		if entry, ok := l.ticks[tick]; ok {
			snap[tick] = entry.Clone()
		} else {
			snap[tick] = nil
		}
	}
	return snap
}

// Restore replaces the captured ticks wholesale. Applied as value
// replacement, not increments, so it is safe regardless of how far the
// failed mutation got.
func (l *TickLedger) Restore(snap ledgerSnapshot) {
	for tick, entry := range snap {
		if entry == nil {
			delete(l.ticks, tick)
		} else {
			l.ticks[tick] = entry.Clone()
		}
	}
}
