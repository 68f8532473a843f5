package scenario

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"rangeshift/internal/model"
)

type memorySink struct {
	records []model.RangeUpdateRecord
	batches int
}

func (s *memorySink) PutUpdateBatch(ctx context.Context, records []model.RangeUpdateRecord) error {
	s.records = append(s.records, records...)
	s.batches++
	return nil
}

const testScenario = `{"op":"create_pool","pool":"wbnb-usdt","seed":{"token0":"0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa","token1":"0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb","fee":3000,"tick_spacing":60,"tick":180,"sqrt_price_x96":"79228162514264337593543950336","fee_growth_global0_x128":"0","fee_growth_global1_x128":"0"}}
{"op":"seed_position","pool":"wbnb-usdt","position":"alice-1","owner":"0x1111111111111111111111111111111111111111","salt":"0x01","lower":100,"upper":200,"liquidity":"1000"}
{"op":"accrue","pool":"wbnb-usdt","fee0_x128":"2381976568446569244243622252022377480192","fee1_x128":"0"}
{"op":"update_range","pool":"wbnb-usdt","position":"alice-1","sender":"0x1111111111111111111111111111111111111111","lower":150,"upper":250}
{"op":"update_range","pool":"wbnb-usdt","position":"alice-1","sender":"0x2222222222222222222222222222222222222222","lower":160,"upper":260}
`

func writeScenario(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "scenario.jsonl")
	if err := os.WriteFile(path, []byte(testScenario), 0o644); err != nil {
		t.Fatalf("write scenario: %v", err)
	}
	return path
}

func TestRunnerReplay(t *testing.T) {
	dir := t.TempDir()
	sink := &memorySink{}

	runner := NewRunner(RunConfig{
		In:        writeScenario(t, dir),
		BatchSize: 10,
	}, sink, nil)

	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	// the second update comes from an unapproved sender and must fail
	// without stopping the replay
	if len(sink.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(sink.records))
	}
	rec := sink.records[0]
	if rec.NewLower != 150 || rec.NewUpper != 250 {
		t.Fatalf("record range wrong: %+v", rec)
	}
	// 7 << 128 accrued over liquidity 1000
	if rec.TokensOwed0 != "7000" {
		t.Fatalf("tokens owed0 = %s, want 7000", rec.TokensOwed0)
	}
}

func TestRunnerCheckpointResume(t *testing.T) {
	dir := t.TempDir()
	path := writeScenario(t, dir)
	checkpointPath := filepath.Join(dir, "checkpoint.json")

	sink := &memorySink{}
	first := NewRunner(RunConfig{
		In:                path,
		BatchSize:         10,
		CheckpointPath:    checkpointPath,
		CheckpointEnabled: true,
	}, sink, nil)
	if err := first.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if len(sink.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(sink.records))
	}

	// a resumed run starts past the processed lines and replays nothing
	resumed := NewRunner(RunConfig{
		In:                path,
		BatchSize:         10,
		CheckpointPath:    checkpointPath,
		CheckpointEnabled: true,
	}, sink, nil)
	if err := resumed.Run(context.Background()); err != nil {
		t.Fatalf("resumed run: %v", err)
	}
	if len(sink.records) != 1 {
		t.Fatalf("resume replayed records: got %d", len(sink.records))
	}
}

func TestParseCommand(t *testing.T) {
	cmd, err := ParseCommand([]byte(`{"op":"advance_tick","pool":"p","tick":-42}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cmd.Op != OpAdvanceTick || cmd.Pool != "p" || cmd.Tick != -42 {
		t.Fatalf("parsed command wrong: %+v", cmd)
	}

	if _, err := ParseCommand([]byte(`{"pool":"p"}`)); err == nil {
		t.Fatalf("expected error for missing op")
	}
	if _, err := ParseCommand([]byte(`{`)); err == nil {
		t.Fatalf("expected error for bad json")
	}
}

func TestSummaryTracksLatestOwed(t *testing.T) {
	summary := NewSummary("p")
	summary.AddRecord(model.RangeUpdateRecord{Position: "a", Sequence: 1, TokensOwed0: "100", TokensOwed1: "5"})
	summary.AddRecord(model.RangeUpdateRecord{Position: "a", Sequence: 2, TokensOwed0: "250", TokensOwed1: "5"})
	summary.AddRecord(model.RangeUpdateRecord{Position: "b", Sequence: 3, TokensOwed0: "50", TokensOwed1: "0"})

	if summary.Updates != 3 || summary.LastSequence != 3 {
		t.Fatalf("summary counts wrong: %+v", summary)
	}
	if got := summary.TokensOwed0().String(); got != "300" {
		t.Fatalf("owed0 total = %s, want 300", got)
	}
	if got := summary.TokensOwed1().String(); got != "5" {
		t.Fatalf("owed1 total = %s, want 5", got)
	}
}
