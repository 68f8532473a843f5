package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "rangeshift",
		Short:        "Concentrated-liquidity range update engine",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	replayCmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay a scenario file through the engine",
		RunE:  runReplay,
	}

	replayCmd.Flags().String("in", "", "scenario JSONL path")
	replayCmd.Flags().String("out", "./data/range_updates.jsonl", "output JSONL path")
	replayCmd.Flags().String("pg-dsn", "", "Postgres DSN (writes to Postgres instead of JSONL)")
	replayCmd.Flags().Int("batch-size", 100, "records per flush")
	replayCmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path")
	replayCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	replayCmd.Flags().Int("max-retries", 5, "maximum retry attempts for flushes")
	replayCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	replayCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(replayCmd)

	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Capture a live V3 pool's state as a scenario seed",
		RunE:  runSnapshot,
	}

	snapshotCmd.Flags().String("rpc", "", "RPC URL")
	snapshotCmd.Flags().String("pool", "", "pool contract address")
	snapshotCmd.Flags().Uint64("block", 0, "block height, 0 means latest")
	snapshotCmd.Flags().String("pool-name", "pool", "pool label used in the scenario")
	snapshotCmd.Flags().String("out", "./data/scenario.jsonl", "output scenario path")
	snapshotCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(snapshotCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
