// Package warehouse_repo provides the PostgreSQL implementation of the
// warehouse unit repository.
package warehouse_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"tradeledger/internal/core/apperror"
	"tradeledger/internal/domain/warehouse"
	"tradeledger/internal/infrastructure/storage/postgres"
)

const unitsTable = "warehouse_units"

var unitColumns = postgres.ExtractDBColumns[warehouse.Unit]()

// UnitRepo implements warehouse.UnitRepository.
type UnitRepo struct {
	tx      *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewUnitRepo creates a new warehouse unit repository.
func NewUnitRepo(tx *postgres.TxManager) *UnitRepo {
	return &UnitRepo{
		tx:      tx,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var _ warehouse.UnitRepository = (*UnitRepo)(nil)

func (r *UnitRepo) querier(ctx context.Context) postgres.Querier {
	return r.tx.GetQuerier(ctx)
}

func (r *UnitRepo) InsertBatch(ctx context.Context, units []warehouse.Unit) error {
	if len(units) == 0 {
		return nil
	}

	q := r.builder.Insert(unitsTable).Columns(unitColumns...)
	for _, u := range units {
		q = q.Values(u.Serial, u.ProductName, u.SupplierOrderID, u.ClientOrderID, u.UnitCost)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert units: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert units: %w", err)
	}
	return nil
}

func (r *UnitRepo) GetBySerials(ctx context.Context, serials []string) ([]warehouse.Unit, error) {
	if len(serials) == 0 {
		return nil, nil
	}

	sql, args, err := r.builder.
		Select(unitColumns...).
		From(unitsTable).
		Where(squirrel.Eq{"serial": serials}).
		OrderBy("serial").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var units []warehouse.Unit
	if err := pgxscan.Select(ctx, r.querier(ctx), &units, sql, args...); err != nil {
		return nil, fmt.Errorf("get units by serials: %w", err)
	}
	return units, nil
}

func (r *UnitRepo) GetBySerial(ctx context.Context, serial string) (*warehouse.Unit, error) {
	sql, args, err := r.builder.
		Select(unitColumns...).
		From(unitsTable).
		Where(squirrel.Eq{"serial": serial}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var unit warehouse.Unit
	if err := pgxscan.Get(ctx, r.querier(ctx), &unit, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("warehouse unit", serial)
		}
		return nil, fmt.Errorf("get unit: %w", err)
	}
	return &unit, nil
}

// ClaimSerials links free units to a client order. The conditional update only
// touches rows that are still unsold; the caller compares the affected count
// against the batch size.
func (r *UnitRepo) ClaimSerials(ctx context.Context, serials []string, clientOrderID string) (int64, error) {
	sql, args, err := r.builder.
		Update(unitsTable).
		Set("client_order_id", clientOrderID).
		Where(squirrel.Eq{"serial": serials}).
		Where(squirrel.Eq{"client_order_id": nil}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build claim: %w", err)
	}

	tag, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("claim serials: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *UnitRepo) ReleaseByClientOrder(ctx context.Context, clientOrderID string) error {
	sql, args, err := r.builder.
		Update(unitsTable).
		Set("client_order_id", nil).
		Where(squirrel.Eq{"client_order_id": clientOrderID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build release: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("release units: %w", err)
	}
	return nil
}

func (r *UnitRepo) ReleaseSerials(ctx context.Context, serials []string, clientOrderID string) error {
	sql, args, err := r.builder.
		Update(unitsTable).
		Set("client_order_id", nil).
		Where(squirrel.Eq{"serial": serials}).
		Where(squirrel.Eq{"client_order_id": clientOrderID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build release: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("release serials: %w", err)
	}
	return nil
}

func (r *UnitRepo) ListBySupplierOrder(ctx context.Context, supplierOrderID string) ([]warehouse.Unit, error) {
	sql, args, err := r.builder.
		Select(unitColumns...).
		From(unitsTable).
		Where(squirrel.Eq{"supplier_order_id": supplierOrderID}).
		OrderBy("serial").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var units []warehouse.Unit
	if err := pgxscan.Select(ctx, r.querier(ctx), &units, sql, args...); err != nil {
		return nil, fmt.Errorf("list supplier units: %w", err)
	}
	return units, nil
}

func (r *UnitRepo) ListBySupplierLine(ctx context.Context, supplierOrderID, productName string) ([]warehouse.Unit, error) {
	sql, args, err := r.builder.
		Select(unitColumns...).
		From(unitsTable).
		Where(squirrel.Eq{
			"supplier_order_id": supplierOrderID,
			"product_name":      productName,
		}).
		OrderBy("serial").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var units []warehouse.Unit
	if err := pgxscan.Select(ctx, r.querier(ctx), &units, sql, args...); err != nil {
		return nil, fmt.Errorf("list line units: %w", err)
	}
	return units, nil
}

func (r *UnitRepo) DeleteBySupplierOrder(ctx context.Context, supplierOrderID string) error {
	sql, args, err := r.builder.
		Delete(unitsTable).
		Where(squirrel.Eq{"supplier_order_id": supplierOrderID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete supplier units: %w", err)
	}
	return nil
}

func (r *UnitRepo) DeleteSerials(ctx context.Context, serials []string) error {
	sql, args, err := r.builder.
		Delete(unitsTable).
		Where(squirrel.Eq{"serial": serials}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete serials: %w", err)
	}
	return nil
}
