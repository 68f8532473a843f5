package scenario

import (
	"math/big"

	"rangeshift/internal/model"
)

// Summary aggregates replay results per pool.
type Summary struct {
	Pool         string
	Updates      uint64
	LastSequence uint64

	// owed counters in records are cumulative per position, so the summary
	// keeps the latest value per position and sums on demand
	owed0 map[string]*big.Int
	owed1 map[string]*big.Int
}

func NewSummary(pool string) *Summary {
	return &Summary{
		Pool:  pool,
		owed0: make(map[string]*big.Int),
		owed1: make(map[string]*big.Int),
	}
}

// AddRecord folds one committed range move into the summary.
func (s *Summary) AddRecord(record model.RangeUpdateRecord) {
	s.Updates++
	if record.Sequence > s.LastSequence {
		s.LastSequence = record.Sequence
	}
	if owed, ok := new(big.Int).SetString(record.TokensOwed0, 10); ok {
		s.owed0[record.Position] = owed
	}
	if owed, ok := new(big.Int).SetString(record.TokensOwed1, 10); ok {
		s.owed1[record.Position] = owed
	}
}

// TokensOwed0 returns the total uncollected token0 across positions.
func (s *Summary) TokensOwed0() *big.Int {
	return sumOwed(s.owed0)
}

// TokensOwed1 returns the total uncollected token1 across positions.
func (s *Summary) TokensOwed1() *big.Int {
	return sumOwed(s.owed1)
}

func sumOwed(owed map[string]*big.Int) *big.Int {
	total := new(big.Int)
	for _, amount := range owed {
		total.Add(total, amount)
	}
	return total
}
