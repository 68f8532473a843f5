package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestLoadReplayDefaults(t *testing.T) {
	cfg, err := LoadReplay("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BatchSize != 100 {
		t.Fatalf("batch size default = %d", cfg.BatchSize)
	}
	if cfg.RetryBackoff != 500*time.Millisecond {
		t.Fatalf("retry backoff default = %s", cfg.RetryBackoff)
	}
	if !cfg.CheckpointEnabled {
		t.Fatalf("checkpoint should default to enabled")
	}
}

func TestLoadReplayFlagsOverride(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("in", "", "")
	flags.Int("batch-size", 100, "")
	if err := flags.Parse([]string{"--in", "scenario.jsonl", "--batch-size", "7"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := LoadReplay("", flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.In != "scenario.jsonl" {
		t.Fatalf("in = %q", cfg.In)
	}
	if cfg.BatchSize != 7 {
		t.Fatalf("batch size = %d", cfg.BatchSize)
	}
}
