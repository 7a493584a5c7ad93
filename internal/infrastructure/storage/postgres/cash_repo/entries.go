// Package cash_repo provides the PostgreSQL implementation of the cash ledger.
package cash_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"tradeledger/internal/domain/cash"
	"tradeledger/internal/infrastructure/storage/postgres"
)

const entriesTable = "cash_entries"

var entryColumns = postgres.ExtractDBColumns[cash.Entry]()

// EntryRepo implements cash.Repository. The ledger is append-only.
type EntryRepo struct {
	tx      *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewEntryRepo creates a new cash entry repository.
func NewEntryRepo(tx *postgres.TxManager) *EntryRepo {
	return &EntryRepo{
		tx:      tx,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var _ cash.Repository = (*EntryRepo)(nil)

func (r *EntryRepo) Append(ctx context.Context, entry cash.Entry) error {
	sql, args, err := r.builder.
		Insert(entriesTable).
		SetMap(postgres.StructToMap(entry)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.tx.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("append cash entry: %w", err)
	}
	return nil
}

func (r *EntryRepo) ListByDate(ctx context.Context, date time.Time) ([]cash.Entry, error) {
	return r.list(ctx, date, date)
}

func (r *EntryRepo) ListByRange(ctx context.Context, from, to time.Time) ([]cash.Entry, error) {
	return r.list(ctx, from, to)
}

func (r *EntryRepo) list(ctx context.Context, from, to time.Time) ([]cash.Entry, error) {
	sql, args, err := r.builder.
		Select(entryColumns...).
		From(entriesTable).
		Where(squirrel.GtOrEq{"date": from}).
		Where(squirrel.LtOrEq{"date": to}).
		OrderBy("date", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var entries []cash.Entry
	if err := pgxscan.Select(ctx, r.tx.GetQuerier(ctx), &entries, sql, args...); err != nil {
		return nil, fmt.Errorf("list cash entries: %w", err)
	}
	return entries, nil
}
