package engine

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"rangeshift/internal/model"
)

// UpdateParams carries the caller's arguments for a range move.
type UpdateParams struct {
	NewLower            int32
	NewUpper            int32
	MustContinueTrading bool
	Data                []byte
}

// UpdateRange atomically relocates the active range of a position. The call
// either commits fully or leaves the pool bit-for-bit unchanged; a new range
// equal to the old one is a successful no-op that touches nothing and emits
// nothing.
func (e *Engine) UpdateRange(ctx context.Context, poolID, positionID common.Hash, sender common.Address, params UpdateParams) (model.Position, error) {
	if err := ctx.Err(); err != nil {
		return model.Position{}, err
	}

	p, err := e.pool(poolID)
	if err != nil {
		return model.Position{}, err
	}

	// Scoped guard: held across both hooks, released on every exit path.
	// A hook that re-enters any operation on this pool observes the held
	// lock and fails with ErrReentrancy.
	if !p.mu.TryLock() {
		return model.Position{}, fmt.Errorf("%w: pool %s", ErrReentrancy, poolID.Hex())
	}
	defer p.mu.Unlock()

	record := p.positions.Get(positionID)
	if record == nil {
		return model.Position{}, fmt.Errorf("%w: %s", ErrInvalidPosition, positionID.Hex())
	}
	if sender != record.Owner && !p.isApproved(record.Owner, sender) {
		return model.Position{}, fmt.Errorf("%w: %s is not owner or delegate", ErrAccessDenied, sender.Hex())
	}
	if record.Liquidity.Sign() <= 0 {
		return model.Position{}, fmt.Errorf("%w: liquidity is zero", ErrInvalidPosition)
	}
	if params.NewLower >= params.NewUpper {
		return model.Position{}, fmt.Errorf("%w: [%d, %d)", ErrInvalidRange, params.NewLower, params.NewUpper)
	}
	if err := CheckTick(params.NewLower); err != nil {
		return model.Position{}, err
	}
	if err := CheckTick(params.NewUpper); err != nil {
		return model.Position{}, err
	}

	// Authoritative no-op path.
	if params.NewLower == record.Lower && params.NewUpper == record.Upper {
		return positionView(positionID, poolID, record), nil
	}

	// Single pool-state snapshot; every calculation below uses it so the
	// old-range settlement and the new-range baseline describe the same
	// instant.
	currentTick := p.state.Tick
	global0 := new(uint256.Int).Set(p.state.FeeGrowthGlobal0X128)
	global1 := new(uint256.Int).Set(p.state.FeeGrowthGlobal1X128)

	if params.MustContinueTrading && (currentTick < params.NewLower || currentTick >= params.NewUpper) {
		return model.Position{}, fmt.Errorf("%w: tick %d outside [%d, %d)", ErrContinuityViolation, currentTick, params.NewLower, params.NewUpper)
	}

	if err := p.gateway.before(sender, p.key, params); err != nil {
		return model.Position{}, err
	}

	oldLower, oldUpper := record.Lower, record.Upper
	liquidity := record.Liquidity

	ledgerSnap := p.ticks.Snapshot(oldLower, oldUpper, params.NewLower, params.NewUpper)
	recordSnap := record.Clone()

	next, err := p.applyMove(record, currentTick, global0, global1, params)
	if err != nil {
		p.ticks.Restore(ledgerSnap)
		return model.Position{}, err
	}
	p.positions.Put(positionID, next)

	if err := p.gateway.after(sender, p.key, params, *next.Clone()); err != nil {
		p.ticks.Restore(ledgerSnap)
		p.positions.Put(positionID, recordSnap)
		return model.Position{}, err
	}

	p.sequence++
	result := model.RangeUpdateRecord{
		Pool:        poolID.Hex(),
		Position:    positionID.Hex(),
		Owner:       next.Owner.Hex(),
		Sequence:    p.sequence,
		OldLower:    oldLower,
		OldUpper:    oldUpper,
		NewLower:    next.Lower,
		NewUpper:    next.Upper,
		Liquidity:   liquidity.String(),
		TokensOwed0: next.TokensOwed0.String(),
		TokensOwed1: next.TokensOwed1.String(),
		UpdatedAt:   time.Now().UTC().Format(time.RFC3339Nano),
	}
	if e.emitter != nil {
		e.emitter.Emit(result)
	}

	e.logger.Info("range updated",
		zap.String("pool", poolID.Hex()),
		zap.String("position", positionID.Hex()),
		zap.Int32("old_lower", oldLower),
		zap.Int32("old_upper", oldUpper),
		zap.Int32("new_lower", next.Lower),
		zap.Int32("new_upper", next.Upper),
	)
	return positionView(positionID, poolID, next), nil
}

// applyMove performs settlement and the ledger/position mutations. It works
// on a clone and returns the replacement record; the caller commits it and
// owns rollback.
func (p *pool) applyMove(record *PositionRecord, currentTick int32, global0, global1 *uint256.Int, params UpdateParams) (*PositionRecord, error) {
	next := record.Clone()
	liquidity := next.Liquidity

	// Settle fees accrued under the old range against the snapshot.
	insideOld0, insideOld1 := p.insideGrowthPair(next.Lower, next.Upper, currentTick, global0, global1)
	next.TokensOwed0.Add(next.TokensOwed0, owedDelta(insideOld0, next.FeeGrowthInside0LastX128, liquidity))
	next.TokensOwed1.Add(next.TokensOwed1, owedDelta(insideOld1, next.FeeGrowthInside1LastX128, liquidity))

	// Retire the old boundaries: the exact reverse of how they were
	// installed.
	negLiquidity := new(big.Int).Neg(liquidity)
	if _, err := p.ticks.Update(next.Lower, currentTick, negLiquidity, false, global0, global1); err != nil {
		return nil, err
	}
	if _, err := p.ticks.Update(next.Upper, currentTick, negLiquidity, true, global0, global1); err != nil {
		return nil, err
	}

	// Install the new boundaries; freshly initialized ticks get their
	// outside values assigned by convention inside Update.
	if _, err := p.ticks.Update(params.NewLower, currentTick, liquidity, false, global0, global1); err != nil {
		return nil, err
	}
	if _, err := p.ticks.Update(params.NewUpper, currentTick, liquidity, true, global0, global1); err != nil {
		return nil, err
	}

	// Re-baseline against the new range so future settlements only count
	// growth from this instant on.
	insideNew0, insideNew1 := p.insideGrowthPair(params.NewLower, params.NewUpper, currentTick, global0, global1)
	next.Lower = params.NewLower
	next.Upper = params.NewUpper
	next.FeeGrowthInside0LastX128 = insideNew0
	next.FeeGrowthInside1LastX128 = insideNew1
	return next, nil
}
