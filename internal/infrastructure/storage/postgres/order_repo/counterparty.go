package order_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"tradeledger/internal/domain/orders"
	"tradeledger/internal/infrastructure/storage/postgres"
)

const counterpartiesTable = "counterparties"

// CounterpartyRepo implements orders.CounterpartyRepository, the remembered
// names offered as buttons during order entry.
type CounterpartyRepo struct {
	tx      *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewCounterpartyRepo creates a new counterparty repository.
func NewCounterpartyRepo(tx *postgres.TxManager) *CounterpartyRepo {
	return &CounterpartyRepo{
		tx:      tx,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var _ orders.CounterpartyRepository = (*CounterpartyRepo)(nil)

func (r *CounterpartyRepo) Upsert(ctx context.Context, name, kind string) error {
	sql, args, err := r.builder.
		Insert(counterpartiesTable).
		Columns("name", "kind").
		Values(name, kind).
		Suffix("ON CONFLICT (name, kind) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}
	if _, err := r.tx.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("upsert counterparty: %w", err)
	}
	return nil
}

func (r *CounterpartyRepo) List(ctx context.Context, kind string) ([]string, error) {
	sql, args, err := r.builder.
		Select("name").
		From(counterpartiesTable).
		Where(squirrel.Eq{"kind": kind}).
		OrderBy("name").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var names []string
	if err := pgxscan.Select(ctx, r.tx.GetQuerier(ctx), &names, sql, args...); err != nil {
		return nil, fmt.Errorf("list counterparties: %w", err)
	}
	return names, nil
}
