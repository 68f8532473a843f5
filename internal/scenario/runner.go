package scenario

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"rangeshift/internal/engine"
	"rangeshift/internal/model"
	"rangeshift/internal/storage"
)

// RunConfig holds runtime settings for scenario replay.
type RunConfig struct {
	In                string
	BatchSize         int
	CheckpointPath    string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration
	Hook              engine.Hook
}

// Runner replays a scenario file through the engine and writes the emitted
// range-update records to storage.
type Runner struct {
	cfg        RunConfig
	engine     *engine.Engine
	sink       storage.Sink
	logger     *zap.Logger
	checkpoint *CheckpointStore

	pools     map[string]common.Hash
	positions map[string]common.Hash
	summaries map[string]*Summary
	buffer    []model.RangeUpdateRecord
}

// NewRunner builds a Runner. The runner owns its engine and registers itself
// as the emitter, so every committed range move lands in its flush buffer.
func NewRunner(cfg RunConfig, sink storage.Sink, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	r := &Runner{
		cfg:        cfg,
		sink:       sink,
		logger:     logger,
		checkpoint: NewCheckpointStore(cfg.CheckpointPath, cfg.CheckpointEnabled),
		pools:      make(map[string]common.Hash),
		positions:  make(map[string]common.Hash),
		summaries:  make(map[string]*Summary),
	}
	r.engine = engine.New(r, logger)
	return r
}

// Emit buffers a committed record for the next flush.
func (r *Runner) Emit(record model.RangeUpdateRecord) {
	r.buffer = append(r.buffer, record)
	r.summaryFor(record.Pool).AddRecord(record)
}

// Run replays the scenario.
func (r *Runner) Run(ctx context.Context) error {
	if r.sink == nil {
		return fmt.Errorf("sink is nil")
	}
	if r.cfg.In == "" {
		return fmt.Errorf("input path is required")
	}

	var resumeFrom uint64
	if cp, ok, err := r.checkpoint.Load(); err != nil {
		return err
	} else if ok {
		resumeFrom = cp.LastProcessedLine
		r.logger.Info("resume from checkpoint", zap.Uint64("last_processed", resumeFrom))
	}

	file, err := os.Open(r.cfg.In)
	if err != nil {
		return fmt.Errorf("open scenario: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	var line, applied, failed uint64
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		line++
		if line <= resumeFrom {
			continue
		}

		cmd, err := ParseCommand(raw)
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if err := r.apply(ctx, cmd); err != nil {
			failed++
			r.logger.Warn("command failed",
				zap.Uint64("line", line),
				zap.String("op", cmd.Op),
				zap.Error(err),
			)
		} else {
			applied++
		}

		if len(r.buffer) >= r.cfg.BatchSize {
			if err := r.flush(ctx); err != nil {
				return err
			}
			if err := r.checkpoint.Save(line); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read scenario: %w", err)
	}

	if err := r.flush(ctx); err != nil {
		return err
	}
	if err := r.checkpoint.Save(line); err != nil {
		return err
	}

	for pool, summary := range r.summaries {
		r.logger.Info("pool summary",
			zap.String("pool", pool),
			zap.Uint64("updates", summary.Updates),
			zap.String("tokens_owed0", summary.TokensOwed0().String()),
			zap.String("tokens_owed1", summary.TokensOwed1().String()),
		)
	}
	r.logger.Info("replay done",
		zap.Uint64("lines", line),
		zap.Uint64("applied", applied),
		zap.Uint64("failed", failed),
	)
	return nil
}

func (r *Runner) flush(ctx context.Context) error {
	if len(r.buffer) == 0 {
		return nil
	}
	batch := r.buffer
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		return r.sink.PutUpdateBatch(ctx, batch)
	})
	if err != nil {
		return fmt.Errorf("flush records: %w", err)
	}
	r.buffer = r.buffer[:0]
	return nil
}

func (r *Runner) apply(ctx context.Context, cmd Command) error {
	switch cmd.Op {
	case OpCreatePool:
		return r.applyCreatePool(cmd)
	case OpSeedPosition:
		return r.applySeedPosition(cmd)
	case OpApprove:
		return r.applyApprove(cmd)
	case OpAccrue:
		return r.applyAccrue(cmd)
	case OpAdvanceTick:
		return r.applyAdvanceTick(cmd)
	case OpUpdateRange:
		return r.applyUpdateRange(ctx, cmd)
	default:
		return fmt.Errorf("unknown op %q", cmd.Op)
	}
}

func (r *Runner) applyCreatePool(cmd Command) error {
	if cmd.Seed == nil {
		return fmt.Errorf("create_pool requires seed")
	}
	if cmd.Pool == "" {
		return fmt.Errorf("create_pool requires pool label")
	}
	if _, ok := r.pools[cmd.Pool]; ok {
		return fmt.Errorf("pool label %q already used", cmd.Pool)
	}

	global0, err := parseUint256(cmd.Seed.FeeGrowthGlobal0X128)
	if err != nil {
		return fmt.Errorf("fee_growth_global0_x128: %w", err)
	}
	global1, err := parseUint256(cmd.Seed.FeeGrowthGlobal1X128)
	if err != nil {
		return fmt.Errorf("fee_growth_global1_x128: %w", err)
	}
	sqrtPrice, err := parseBigInt(cmd.Seed.SqrtPriceX96)
	if err != nil {
		return fmt.Errorf("sqrt_price_x96: %w", err)
	}

	var perms engine.Permissions
	for _, name := range cmd.Seed.Permissions {
		switch name {
		case "before":
			perms |= engine.PermBeforeUpdateRange
		case "after":
			perms |= engine.PermAfterUpdateRange
		default:
			return fmt.Errorf("unknown permission %q", name)
		}
	}

	id, err := r.engine.CreatePool(engine.PoolConfig{
		Key: engine.PoolKey{
			Token0:      common.HexToAddress(cmd.Seed.Token0),
			Token1:      common.HexToAddress(cmd.Seed.Token1),
			Fee:         cmd.Seed.Fee,
			TickSpacing: cmd.Seed.TickSpacing,
		},
		Tick:                 cmd.Seed.Tick,
		SqrtPriceX96:         sqrtPrice,
		FeeGrowthGlobal0X128: global0,
		FeeGrowthGlobal1X128: global1,
		Permissions:          perms,
		Hook:                 r.cfg.Hook,
	})
	if err != nil {
		return err
	}
	r.pools[cmd.Pool] = id
	return nil
}

func (r *Runner) poolID(label string) (common.Hash, error) {
	id, ok := r.pools[label]
	if !ok {
		return common.Hash{}, fmt.Errorf("unknown pool label %q", label)
	}
	return id, nil
}

func (r *Runner) applySeedPosition(cmd Command) error {
	poolID, err := r.poolID(cmd.Pool)
	if err != nil {
		return err
	}
	if cmd.Position == "" {
		return fmt.Errorf("seed_position requires position label")
	}
	if _, ok := r.positions[cmd.Position]; ok {
		return fmt.Errorf("position label %q already used", cmd.Position)
	}
	liquidity, err := parseBigInt(cmd.Liquidity)
	if err != nil {
		return fmt.Errorf("liquidity: %w", err)
	}

	id, err := r.engine.SeedPosition(
		poolID,
		common.HexToAddress(cmd.Owner),
		common.HexToHash(cmd.Salt),
		cmd.Lower,
		cmd.Upper,
		liquidity,
	)
	if err != nil {
		return err
	}
	r.positions[cmd.Position] = id
	return nil
}

func (r *Runner) applyApprove(cmd Command) error {
	poolID, err := r.poolID(cmd.Pool)
	if err != nil {
		return err
	}
	return r.engine.Approve(poolID, common.HexToAddress(cmd.Owner), common.HexToAddress(cmd.Operator), cmd.Approved)
}

func (r *Runner) applyAccrue(cmd Command) error {
	poolID, err := r.poolID(cmd.Pool)
	if err != nil {
		return err
	}
	fee0, err := parseUint256(cmd.Fee0X128)
	if err != nil {
		return fmt.Errorf("fee0_x128: %w", err)
	}
	fee1, err := parseUint256(cmd.Fee1X128)
	if err != nil {
		return fmt.Errorf("fee1_x128: %w", err)
	}
	return r.engine.AccrueGlobal(poolID, fee0, fee1)
}

func (r *Runner) applyAdvanceTick(cmd Command) error {
	poolID, err := r.poolID(cmd.Pool)
	if err != nil {
		return err
	}
	return r.engine.AdvanceTick(poolID, cmd.Tick)
}

func (r *Runner) applyUpdateRange(ctx context.Context, cmd Command) error {
	poolID, err := r.poolID(cmd.Pool)
	if err != nil {
		return err
	}
	positionID, ok := r.positions[cmd.Position]
	if !ok {
		return fmt.Errorf("unknown position label %q", cmd.Position)
	}

	var data []byte
	if cmd.Data != "" {
		data, err = hexutil.Decode(cmd.Data)
		if err != nil {
			return fmt.Errorf("data: %w", err)
		}
	}

	_, err = r.engine.UpdateRange(ctx, poolID, positionID, common.HexToAddress(cmd.Sender), engine.UpdateParams{
		NewLower:            cmd.Lower,
		NewUpper:            cmd.Upper,
		MustContinueTrading: cmd.MustContinueTrading,
		Data:                data,
	})
	return err
}

func (r *Runner) summaryFor(pool string) *Summary {
	summary, ok := r.summaries[pool]
	if !ok {
		summary = NewSummary(pool)
		r.summaries[pool] = summary
	}
	return summary
}
