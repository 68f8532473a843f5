package storage

import (
	"context"

	"rangeshift/internal/model"
)

// Sink defines a destination for range-update records.
type Sink interface {
	PutUpdateBatch(ctx context.Context, records []model.RangeUpdateRecord) error
}
