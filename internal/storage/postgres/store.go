package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rangeshift/internal/model"
)

// Store provides Postgres persistence for range-update records.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// PutUpdateBatch inserts or updates range-update records. A replayed record
// for the same pool, position, and sequence overwrites the earlier row, so
// re-running a scenario is idempotent.
func (s *Store) PutUpdateBatch(ctx context.Context, records []model.RangeUpdateRecord) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, record := range records {
		batch.Queue(`
			INSERT INTO range_updates (
				pool, position, owner, sequence, old_lower, old_upper, new_lower, new_upper,
				liquidity, tokens_owed0, tokens_owed1, updated_at, created_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,now())
			ON CONFLICT (pool, position, sequence)
			DO UPDATE SET
				old_lower = EXCLUDED.old_lower,
				old_upper = EXCLUDED.old_upper,
				new_lower = EXCLUDED.new_lower,
				new_upper = EXCLUDED.new_upper,
				liquidity = EXCLUDED.liquidity,
				tokens_owed0 = EXCLUDED.tokens_owed0,
				tokens_owed1 = EXCLUDED.tokens_owed1,
				updated_at = EXCLUDED.updated_at
		`,
			record.Pool,
			record.Position,
			record.Owner,
			int64(record.Sequence),
			record.OldLower,
			record.OldUpper,
			record.NewLower,
			record.NewUpper,
			record.Liquidity,
			record.TokensOwed0,
			record.TokensOwed1,
			record.UpdatedAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range records {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
