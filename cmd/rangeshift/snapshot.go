package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"rangeshift/internal/chain"
	"rangeshift/internal/config"
	"rangeshift/internal/poolstate"
	"rangeshift/internal/scenario"
)

func runSnapshot(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadSnapshot(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if !common.IsHexAddress(cfg.Pool) {
		return fmt.Errorf("valid pool address is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	logger.Info("snapshot start",
		zap.String("rpc", cfg.RPCURL),
		zap.String("pool", cfg.Pool),
		zap.Uint64("block", cfg.Block),
		zap.String("out", cfg.Out),
	)

	seed, err := poolstate.Fetch(ctx, chainClient, common.HexToAddress(cfg.Pool), cfg.Block, logger)
	if err != nil {
		return fmt.Errorf("fetch pool state: %w", err)
	}

	line, err := json.Marshal(scenario.Command{
		Op:   scenario.OpCreatePool,
		Pool: cfg.PoolName,
		Seed: &seed,
	})
	if err != nil {
		return fmt.Errorf("marshal seed: %w", err)
	}

	dir := filepath.Dir(cfg.Out)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	file, err := os.OpenFile(cfg.Out, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	if _, err := writer.Write(line); err != nil {
		return fmt.Errorf("write seed: %w", err)
	}
	if err := writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("write newline: %w", err)
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	logger.Info("snapshot written",
		zap.String("pool", seed.Address),
		zap.Int32("tick", seed.Tick),
		zap.String("fee_growth_global0_x128", seed.FeeGrowthGlobal0X128),
		zap.String("fee_growth_global1_x128", seed.FeeGrowthGlobal1X128),
	)
	return nil
}
