// Package numerator adapts the generic sequence service to order numbering.
package numerator

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"tradeledger/internal/domain/orders"
	"tradeledger/internal/infrastructure/storage/postgres"
	seq "tradeledger/pkg/numerator"
)

// OrderNumbering issues supplier and client order numbers, one yearly
// sequence per prefix.
type OrderNumbering struct {
	svc *seq.Service
	now func() time.Time
}

var _ orders.Numbering = (*OrderNumbering)(nil)

// New creates order numbering that runs its sequence bump through the ambient
// transaction, so a rolled-back order rolls the number back with it.
func New(txManager *postgres.TxManager) *OrderNumbering {
	return &OrderNumbering{
		svc: seq.New(txQuerier{tx: txManager}),
		now: time.Now,
	}
}

// Next allocates the next number for the prefix, e.g. OP-2026-00042.
// Strict strategy: order numbers must be gapless.
func (n *OrderNumbering) Next(ctx context.Context, prefix string) (string, error) {
	cfg := seq.DefaultConfig(prefix)
	return n.svc.GetNextNumber(ctx, cfg, nil, n.now())
}

// txQuerier resolves the querier per call so the UPSERT joins a transaction
// carried in ctx instead of taking its own pool connection.
type txQuerier struct {
	tx *postgres.TxManager
}

func (q txQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return q.tx.GetQuerier(ctx).QueryRow(ctx, sql, args...)
}
