package engine

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"rangeshift/internal/model"
)

// PoolKey identifies a pool by its immutable parameters.
type PoolKey struct {
	Token0      common.Address
	Token1      common.Address
	Fee         uint32
	TickSpacing int32
}

// ID derives the pool identifier from the key fields.
func (k PoolKey) ID() common.Hash {
	var tail [8]byte
	binary.BigEndian.PutUint32(tail[:4], k.Fee)
	binary.BigEndian.PutUint32(tail[4:], uint32(k.TickSpacing))
	return common.BytesToHash(crypto.Keccak256(k.Token0[:], k.Token1[:], tail[:]))
}

// PoolState is the pool-level state read by a range update. The update
// itself never mutates it; swaps and fee accrual do.
type PoolState struct {
	Tick                 int32
	SqrtPriceX96         *big.Int
	FeeGrowthGlobal0X128 *uint256.Int
	FeeGrowthGlobal1X128 *uint256.Int
}

type pool struct {
	// mu doubles as the reentrancy guard: every pool-mutating operation
	// TryLocks it and treats a held lock as re-entry.
	mu sync.Mutex

	key       PoolKey
	state     PoolState
	gateway   *hookGateway
	ticks     *TickLedger
	positions *PositionStore
	approvals map[common.Address]map[common.Address]bool
	sequence  uint64
}

func (p *pool) isApproved(owner, operator common.Address) bool {
	ops, ok := p.approvals[owner]
	return ok && ops[operator]
}

// Emitter receives one record per committed range move.
type Emitter interface {
	Emit(record model.RangeUpdateRecord)
}

// Engine hosts pools and executes range updates against them.
type Engine struct {
	mu      sync.RWMutex
	pools   map[common.Hash]*pool
	emitter Emitter
	logger  *zap.Logger
}

// New builds an Engine. emitter may be nil; logger defaults to a nop logger.
func New(emitter Emitter, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		pools:   make(map[common.Hash]*pool),
		emitter: emitter,
		logger:  logger,
	}
}

// PoolConfig carries pool creation parameters. Permissions and the hook are
// fixed here and never change afterwards.
type PoolConfig struct {
	Key                  PoolKey
	Tick                 int32
	SqrtPriceX96         *big.Int
	FeeGrowthGlobal0X128 *uint256.Int
	FeeGrowthGlobal1X128 *uint256.Int
	Permissions          Permissions
	Hook                 Hook
}

// CreatePool registers a pool and returns its id.
func (e *Engine) CreatePool(cfg PoolConfig) (common.Hash, error) {
	if err := CheckTick(cfg.Tick); err != nil {
		return common.Hash{}, err
	}

	id := cfg.Key.ID()

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.pools[id]; ok {
		return common.Hash{}, fmt.Errorf("pool %s already exists", id.Hex())
	}

	state := PoolState{
		Tick:                 cfg.Tick,
		SqrtPriceX96:         new(big.Int),
		FeeGrowthGlobal0X128: new(uint256.Int),
		FeeGrowthGlobal1X128: new(uint256.Int),
	}
	if cfg.SqrtPriceX96 != nil {
		state.SqrtPriceX96.Set(cfg.SqrtPriceX96)
	}
	if cfg.FeeGrowthGlobal0X128 != nil {
		state.FeeGrowthGlobal0X128.Set(cfg.FeeGrowthGlobal0X128)
	}
	if cfg.FeeGrowthGlobal1X128 != nil {
		state.FeeGrowthGlobal1X128.Set(cfg.FeeGrowthGlobal1X128)
	}

	e.pools[id] = &pool{
		key:       cfg.Key,
		state:     state,
		gateway:   newHookGateway(cfg.Permissions, cfg.Hook, e.logger),
		ticks:     NewTickLedger(),
		positions: NewPositionStore(),
		approvals: make(map[common.Address]map[common.Address]bool),
	}

	e.logger.Info("pool created",
		zap.String("pool", id.Hex()),
		zap.Int32("tick", cfg.Tick),
		zap.Uint8("permissions", uint8(cfg.Permissions)),
	)
	return id, nil
}

func (e *Engine) pool(id common.Hash) (*pool, error) {
	e.mu.RLock()
	p, ok := e.pools[id]
	e.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPool, id.Hex())
	}
	return p, nil
}

// SeedPosition installs an active position with the given liquidity and
// returns its stable id. The engine only moves existing positions; seeding
// is how they come to exist in the first place.
func (e *Engine) SeedPosition(poolID common.Hash, owner common.Address, salt common.Hash, lower, upper int32, liquidity *big.Int) (common.Hash, error) {
	p, err := e.pool(poolID)
	if err != nil {
		return common.Hash{}, err
	}
	if !p.mu.TryLock() {
		return common.Hash{}, fmt.Errorf("%w: pool %s", ErrReentrancy, poolID.Hex())
	}
	defer p.mu.Unlock()

	if lower >= upper {
		return common.Hash{}, fmt.Errorf("%w: [%d, %d)", ErrInvalidRange, lower, upper)
	}
	if err := CheckTick(lower); err != nil {
		return common.Hash{}, err
	}
	if err := CheckTick(upper); err != nil {
		return common.Hash{}, err
	}
	if liquidity == nil || liquidity.Sign() <= 0 {
		return common.Hash{}, fmt.Errorf("%w: liquidity must be positive", ErrInvalidPosition)
	}

	id := PositionID(poolID, owner, salt)
	if p.positions.Get(id) != nil {
		return common.Hash{}, fmt.Errorf("position %s already exists", id.Hex())
	}

	cur := p.state.Tick
	g0, g1 := p.state.FeeGrowthGlobal0X128, p.state.FeeGrowthGlobal1X128

	snap := p.ticks.Snapshot(lower, upper)
	if _, err := p.ticks.Update(lower, cur, liquidity, false, g0, g1); err != nil {
		p.ticks.Restore(snap)
		return common.Hash{}, err
	}
	if _, err := p.ticks.Update(upper, cur, liquidity, true, g0, g1); err != nil {
		p.ticks.Restore(snap)
		return common.Hash{}, err
	}

	inside0, inside1 := p.insideGrowthPair(lower, upper, cur, g0, g1)
	p.positions.Put(id, &PositionRecord{
		Owner:                    owner,
		Salt:                     salt,
		Lower:                    lower,
		Upper:                    upper,
		Liquidity:                new(big.Int).Set(liquidity),
		FeeGrowthInside0LastX128: inside0,
		FeeGrowthInside1LastX128: inside1,
		TokensOwed0:              new(big.Int),
		TokensOwed1:              new(big.Int),
	})

	e.logger.Info("position seeded",
		zap.String("pool", poolID.Hex()),
		zap.String("position", id.Hex()),
		zap.Int32("lower", lower),
		zap.Int32("upper", upper),
		zap.String("liquidity", liquidity.String()),
	)
	return id, nil
}

// Approve grants or revokes an operator's right to move owner's positions in
// this pool.
func (e *Engine) Approve(poolID common.Hash, owner, operator common.Address, approved bool) error {
	p, err := e.pool(poolID)
	if err != nil {
		return err
	}
	if !p.mu.TryLock() {
		return fmt.Errorf("%w: pool %s", ErrReentrancy, poolID.Hex())
	}
	defer p.mu.Unlock()

	ops, ok := p.approvals[owner]
	if !ok {
		ops = make(map[common.Address]bool)
		p.approvals[owner] = ops
	}
	if approved {
		ops[operator] = true
	} else {
		delete(ops, operator)
	}
	return nil
}

// AccrueGlobal advances the global fee-growth accumulators, wrapping modulo
// 2^256. Stands in for the fee side of swap execution.
func (e *Engine) AccrueGlobal(poolID common.Hash, fee0X128, fee1X128 *uint256.Int) error {
	p, err := e.pool(poolID)
	if err != nil {
		return err
	}
	if !p.mu.TryLock() {
		return fmt.Errorf("%w: pool %s", ErrReentrancy, poolID.Hex())
	}
	defer p.mu.Unlock()

	if fee0X128 != nil {
		p.state.FeeGrowthGlobal0X128.Add(p.state.FeeGrowthGlobal0X128, fee0X128)
	}
	if fee1X128 != nil {
		p.state.FeeGrowthGlobal1X128.Add(p.state.FeeGrowthGlobal1X128, fee1X128)
	}
	return nil
}

// AdvanceTick moves the current tick, crossing every initialized tick in
// between so their fee-growth-outside snapshots flip. Stands in for the
// price side of swap execution.
func (e *Engine) AdvanceTick(poolID common.Hash, newTick int32) error {
	p, err := e.pool(poolID)
	if err != nil {
		return err
	}
	if !p.mu.TryLock() {
		return fmt.Errorf("%w: pool %s", ErrReentrancy, poolID.Hex())
	}
	defer p.mu.Unlock()

	if err := CheckTick(newTick); err != nil {
		return err
	}

	g0, g1 := p.state.FeeGrowthGlobal0X128, p.state.FeeGrowthGlobal1X128
	for _, tick := range p.ticks.InitializedBetween(p.state.Tick, newTick) {
		p.ticks.Cross(tick, g0, g1)
	}
	p.state.Tick = newTick
	return nil
}

// Position returns the external view of a position.
func (e *Engine) Position(poolID, positionID common.Hash) (model.Position, error) {
	p, err := e.pool(poolID)
	if err != nil {
		return model.Position{}, err
	}
	if !p.mu.TryLock() {
		return model.Position{}, fmt.Errorf("%w: pool %s", ErrReentrancy, poolID.Hex())
	}
	defer p.mu.Unlock()

	record := p.positions.Get(positionID)
	if record == nil {
		return model.Position{}, fmt.Errorf("%w: %s", ErrInvalidPosition, positionID.Hex())
	}
	return positionView(positionID, poolID, record), nil
}

// CurrentTick returns the pool's current tick.
func (e *Engine) CurrentTick(poolID common.Hash) (int32, error) {
	p, err := e.pool(poolID)
	if err != nil {
		return 0, err
	}
	if !p.mu.TryLock() {
		return 0, fmt.Errorf("%w: pool %s", ErrReentrancy, poolID.Hex())
	}
	defer p.mu.Unlock()
	return p.state.Tick, nil
}

// TickInitialized reports whether a tick carries gross liquidity.
func (e *Engine) TickInitialized(poolID common.Hash, tick int32) (bool, error) {
	p, err := e.pool(poolID)
	if err != nil {
		return false, err
	}
	if !p.mu.TryLock() {
		return false, fmt.Errorf("%w: pool %s", ErrReentrancy, poolID.Hex())
	}
	defer p.mu.Unlock()
	return p.ticks.IsInitialized(tick), nil
}

// TickNetLiquidity returns the signed net liquidity at a tick, zero when
// uninitialized.
func (e *Engine) TickNetLiquidity(poolID common.Hash, tick int32) (*big.Int, error) {
	p, err := e.pool(poolID)
	if err != nil {
		return nil, err
	}
	if !p.mu.TryLock() {
		return nil, fmt.Errorf("%w: pool %s", ErrReentrancy, poolID.Hex())
	}
	defer p.mu.Unlock()

	entry := p.ticks.Get(tick)
	if entry == nil {
		return new(big.Int), nil
	}
	return new(big.Int).Set(entry.LiquidityNet), nil
}

// insideGrowthPair evaluates the inside-growth formula for both accumulators
// against the given snapshot. Uninitialized boundaries contribute zero
// outside values.
func (p *pool) insideGrowthPair(lower, upper, current int32, global0, global1 *uint256.Int) (*uint256.Int, *uint256.Int) {
	outLower0, outLower1 := new(uint256.Int), new(uint256.Int)
	outUpper0, outUpper1 := new(uint256.Int), new(uint256.Int)
	if entry := p.ticks.Get(lower); entry != nil {
		outLower0.Set(entry.FeeGrowthOutside0X128)
		outLower1.Set(entry.FeeGrowthOutside1X128)
	}
	if entry := p.ticks.Get(upper); entry != nil {
		outUpper0.Set(entry.FeeGrowthOutside0X128)
		outUpper1.Set(entry.FeeGrowthOutside1X128)
	}
	inside0 := insideGrowth(lower, upper, current, outLower0, outUpper0, global0)
	inside1 := insideGrowth(lower, upper, current, outLower1, outUpper1, global1)
	return inside0, inside1
}
