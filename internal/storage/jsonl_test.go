package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"rangeshift/internal/model"
)

func TestJsonlSinkAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "records.jsonl")
	sink := NewJsonlSink(path)

	first := model.RangeUpdateRecord{Pool: "0x01", Position: "0x02", Sequence: 1, OldLower: 100, OldUpper: 200, NewLower: 150, NewUpper: 250}
	second := model.RangeUpdateRecord{Pool: "0x01", Position: "0x02", Sequence: 2, OldLower: 150, OldUpper: 250, NewLower: 160, NewUpper: 260}

	if err := sink.PutUpdateBatch(context.Background(), []model.RangeUpdateRecord{first}); err != nil {
		t.Fatalf("first batch: %v", err)
	}
	if err := sink.PutUpdateBatch(context.Background(), []model.RangeUpdateRecord{second}); err != nil {
		t.Fatalf("second batch: %v", err)
	}
	if err := sink.PutUpdateBatch(context.Background(), nil); err != nil {
		t.Fatalf("empty batch: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer file.Close()

	var got []model.RangeUpdateRecord
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var record model.RangeUpdateRecord
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			t.Fatalf("parse line: %v", err)
		}
		got = append(got, record)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0] != first || got[1] != second {
		t.Fatalf("records mismatch: %+v", got)
	}
}
