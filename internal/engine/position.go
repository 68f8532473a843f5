package engine

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"rangeshift/internal/model"
)

// PositionID derives a stable identifier from pool, owner, and salt. The
// range is deliberately not part of the key: a range move is an in-place
// field update on the same record, never a delete-and-recreate.
func PositionID(pool common.Hash, owner common.Address, salt common.Hash) common.Hash {
	return common.BytesToHash(crypto.Keccak256(pool[:], owner[:], salt[:]))
}

// PositionRecord is the mutable per-position state. Mutated only under the
// pool guard, and committed as a whole-record replacement.
type PositionRecord struct {
	Owner                    common.Address
	Salt                     common.Hash
	Lower                    int32
	Upper                    int32
	Liquidity                *big.Int
	FeeGrowthInside0LastX128 *uint256.Int
	FeeGrowthInside1LastX128 *uint256.Int
	TokensOwed0              *big.Int
	TokensOwed1              *big.Int
}

// Clone returns a deep value copy.
func (p *PositionRecord) Clone() *PositionRecord {
	return &PositionRecord{
		Owner:                    p.Owner,
		Salt:                     p.Salt,
		Lower:                    p.Lower,
		Upper:                    p.Upper,
		Liquidity:                new(big.Int).Set(p.Liquidity),
		FeeGrowthInside0LastX128: new(uint256.Int).Set(p.FeeGrowthInside0LastX128),
		FeeGrowthInside1LastX128: new(uint256.Int).Set(p.FeeGrowthInside1LastX128),
		TokensOwed0:              new(big.Int).Set(p.TokensOwed0),
		TokensOwed1:              new(big.Int).Set(p.TokensOwed1),
	}
}

// PositionStore maps stable position ids to records.
type PositionStore struct {
	positions map[common.Hash]*PositionRecord
}

func NewPositionStore() *PositionStore {
	return &PositionStore{positions: make(map[common.Hash]*PositionRecord)}
}

// Get returns the record for id, or nil.
func (s *PositionStore) Get(id common.Hash) *PositionRecord {
	return s.positions[id]
}

// Put commits a record as a single replacement.
func (s *PositionStore) Put(id common.Hash, record *PositionRecord) {
	s.positions[id] = record
}

func positionView(id, pool common.Hash, record *PositionRecord) model.Position {
	return model.Position{
		ID:                       id.Hex(),
		Pool:                     pool.Hex(),
		Owner:                    record.Owner.Hex(),
		TickLower:                record.Lower,
		TickUpper:                record.Upper,
		Liquidity:                record.Liquidity.String(),
		FeeGrowthInside0LastX128: record.FeeGrowthInside0LastX128.Dec(),
		FeeGrowthInside1LastX128: record.FeeGrowthInside1LastX128.Dec(),
		TokensOwed0:              record.TokensOwed0.String(),
		TokensOwed1:              record.TokensOwed1.String(),
	}
}
