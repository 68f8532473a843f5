package poolstate

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"rangeshift/internal/chain"
	"rangeshift/internal/model"
)

// Fetch captures a live V3 pool's state into a PoolSeed, optionally pinned
// to a block height (0 means latest).
func Fetch(ctx context.Context, chainClient *chain.Client, pool common.Address, blockNumber uint64, logger *zap.Logger) (model.PoolSeed, error) {
	if chainClient == nil {
		return model.PoolSeed{}, fmt.Errorf("chain client is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	poolABI, err := V3PoolABI()
	if err != nil {
		return model.PoolSeed{}, fmt.Errorf("parse pool abi: %w", err)
	}

	var blockPtr *big.Int
	if blockNumber > 0 {
		blockPtr = new(big.Int).SetUint64(blockNumber)
	}

	seed := model.PoolSeed{Address: pool.Hex()}

	chainID, err := chainClient.GetChainID(ctx)
	if err != nil {
		return model.PoolSeed{}, fmt.Errorf("get chain id: %w", err)
	}
	if chainID.IsUint64() {
		seed.ChainID = chainID.Uint64()
	}

	values, err := callPoolMethod(ctx, chainClient, pool, poolABI, "token0", blockPtr)
	if err != nil {
		return model.PoolSeed{}, err
	}
	token0, err := asAddress(values[0])
	if err != nil {
		return model.PoolSeed{}, fmt.Errorf("token0: %w", err)
	}
	seed.Token0 = token0.Hex()

	values, err = callPoolMethod(ctx, chainClient, pool, poolABI, "token1", blockPtr)
	if err != nil {
		return model.PoolSeed{}, err
	}
	token1, err := asAddress(values[0])
	if err != nil {
		return model.PoolSeed{}, fmt.Errorf("token1: %w", err)
	}
	seed.Token1 = token1.Hex()

	values, err = callPoolMethod(ctx, chainClient, pool, poolABI, "fee", blockPtr)
	if err != nil {
		return model.PoolSeed{}, err
	}
	fee, err := asBigInt(values[0])
	if err != nil {
		return model.PoolSeed{}, fmt.Errorf("fee: %w", err)
	}
	seed.Fee = uint32(fee.Uint64())

	values, err = callPoolMethod(ctx, chainClient, pool, poolABI, "tickSpacing", blockPtr)
	if err != nil {
		return model.PoolSeed{}, err
	}
	spacing, err := asBigInt(values[0])
	if err != nil {
		return model.PoolSeed{}, fmt.Errorf("tick spacing: %w", err)
	}
	seed.TickSpacing, err = int24FromBig(spacing)
	if err != nil {
		return model.PoolSeed{}, fmt.Errorf("tick spacing: %w", err)
	}

	values, err = callPoolMethod(ctx, chainClient, pool, poolABI, "slot0", blockPtr)
	if err != nil {
		return model.PoolSeed{}, err
	}
	if len(values) < 2 {
		return model.PoolSeed{}, fmt.Errorf("slot0: short response")
	}
	sqrtPrice, err := asBigInt(values[0])
	if err != nil {
		return model.PoolSeed{}, fmt.Errorf("slot0 sqrt price: %w", err)
	}
	seed.SqrtPriceX96 = sqrtPrice.String()
	tickBig, err := asBigInt(values[1])
	if err != nil {
		return model.PoolSeed{}, fmt.Errorf("slot0 tick: %w", err)
	}
	seed.Tick, err = int24FromBig(tickBig)
	if err != nil {
		return model.PoolSeed{}, fmt.Errorf("slot0 tick: %w", err)
	}

	values, err = callPoolMethod(ctx, chainClient, pool, poolABI, "feeGrowthGlobal0X128", blockPtr)
	if err != nil {
		return model.PoolSeed{}, err
	}
	global0, err := asBigInt(values[0])
	if err != nil {
		return model.PoolSeed{}, fmt.Errorf("fee growth global0: %w", err)
	}
	seed.FeeGrowthGlobal0X128 = global0.String()

	values, err = callPoolMethod(ctx, chainClient, pool, poolABI, "feeGrowthGlobal1X128", blockPtr)
	if err != nil {
		return model.PoolSeed{}, err
	}
	global1, err := asBigInt(values[0])
	if err != nil {
		return model.PoolSeed{}, fmt.Errorf("fee growth global1: %w", err)
	}
	seed.FeeGrowthGlobal1X128 = global1.String()

	// liquidity is informational only; a missing method is not fatal
	if values, err := callPoolMethod(ctx, chainClient, pool, poolABI, "liquidity", blockPtr); err == nil {
		if liq, err := asBigInt(values[0]); err == nil {
			seed.Liquidity = liq.String()
		}
	} else {
		logger.Debug("liquidity call failed", zap.String("pool", pool.Hex()), zap.Error(err))
	}

	return seed, nil
}

func callPoolMethod(ctx context.Context, chainClient *chain.Client, pool common.Address, poolABI abi.ABI, method string, block *big.Int) ([]interface{}, error) {
	data, err := poolABI.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &pool, Data: data}
	resp, err := chainClient.CallContract(ctx, msg, block)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := poolABI.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}

func asAddress(value interface{}) (common.Address, error) {
	addr, ok := value.(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("not an address: %T", value)
	}
	return addr, nil
}

func asBigInt(value interface{}) (*big.Int, error) {
	n, ok := value.(*big.Int)
	if !ok {
		return nil, fmt.Errorf("not a big int: %T", value)
	}
	return n, nil
}

func int24FromBig(n *big.Int) (int32, error) {
	if !n.IsInt64() {
		return 0, fmt.Errorf("value %s does not fit int24", n)
	}
	v := n.Int64()
	if v < -8388608 || v > 8388607 {
		return 0, fmt.Errorf("value %d does not fit int24", v)
	}
	return int32(v), nil
}
