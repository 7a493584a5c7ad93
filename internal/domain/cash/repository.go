package cash

import (
	"context"
	"time"
)

// Repository persists cash entries. The ledger is append-only.
type Repository interface {
	Append(ctx context.Context, entry Entry) error
	ListByDate(ctx context.Context, date time.Time) ([]Entry, error)
	ListByRange(ctx context.Context, from, to time.Time) ([]Entry, error)
}
