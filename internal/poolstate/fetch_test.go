package poolstate

import (
	"math/big"
	"testing"
)

func TestV3PoolABIParses(t *testing.T) {
	parsed, err := V3PoolABI()
	if err != nil {
		t.Fatalf("parse abi: %v", err)
	}
	for _, method := range []string{"slot0", "feeGrowthGlobal0X128", "feeGrowthGlobal1X128", "tickSpacing"} {
		if _, ok := parsed.Methods[method]; !ok {
			t.Fatalf("abi missing method %s", method)
		}
	}
}

func TestInt24FromBig(t *testing.T) {
	got, err := int24FromBig(big.NewInt(-887272))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != -887272 {
		t.Fatalf("got %d", got)
	}

	if _, err := int24FromBig(big.NewInt(8388608)); err == nil {
		t.Fatalf("expected error for int24 overflow")
	}
	if _, err := int24FromBig(new(big.Int).Lsh(big.NewInt(1), 80)); err == nil {
		t.Fatalf("expected error for non-int64 value")
	}
}
