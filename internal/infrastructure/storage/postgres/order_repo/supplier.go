// Package order_repo provides PostgreSQL implementations of the order
// repositories. Line rows never store serial numbers; serial sets are
// reassembled from warehouse_units on load.
package order_repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"

	"tradeledger/internal/core/apperror"
	"tradeledger/internal/domain/orders"
	"tradeledger/internal/infrastructure/storage/postgres"
)

const (
	supplierOrdersTable     = "supplier_orders"
	supplierOrderLinesTable = "supplier_order_lines"
)

var lineColumns = []string{
	"line_id", "line_no", "product_code", "product_name",
	"quantity", "unit_price", "total_price",
}

// uniqueViolation is the PostgreSQL error code for duplicate keys.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// SupplierRepo implements orders.SupplierRepository.
type SupplierRepo struct {
	tx      *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewSupplierRepo creates a new supplier order repository.
func NewSupplierRepo(tx *postgres.TxManager) *SupplierRepo {
	return &SupplierRepo{
		tx:      tx,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var _ orders.SupplierRepository = (*SupplierRepo)(nil)

func (r *SupplierRepo) querier(ctx context.Context) postgres.Querier {
	return r.tx.GetQuerier(ctx)
}

func (r *SupplierRepo) Insert(ctx context.Context, order *orders.SupplierOrder) error {
	now := time.Now()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = now
	}

	sql, args, err := r.builder.
		Insert(supplierOrdersTable).
		SetMap(postgres.StructToMap(order)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		if isUniqueViolation(err) {
			return apperror.NewDuplicate("supplier order", "id", order.ID)
		}
		return apperror.NewPersistence(err)
	}

	return r.saveLines(ctx, order.ID, order.Lines)
}

func (r *SupplierRepo) Update(ctx context.Context, order *orders.SupplierOrder) error {
	sql, args, err := r.builder.
		Update(supplierOrdersTable).
		Set("date", order.Date).
		Set("supplier", order.Supplier).
		Set("updated_at", order.UpdatedAt).
		Where(squirrel.Eq{"id": order.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return apperror.NewPersistence(err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("supplier order", order.ID)
	}

	return r.saveLines(ctx, order.ID, order.Lines)
}

func (r *SupplierRepo) Delete(ctx context.Context, orderID string) error {
	if _, err := r.querier(ctx).Exec(ctx,
		"DELETE FROM "+supplierOrderLinesTable+" WHERE order_id = $1", orderID); err != nil {
		return apperror.NewPersistence(err)
	}

	tag, err := r.querier(ctx).Exec(ctx,
		"DELETE FROM "+supplierOrdersTable+" WHERE id = $1", orderID)
	if err != nil {
		return apperror.NewPersistence(err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("supplier order", orderID)
	}
	return nil
}

func (r *SupplierRepo) GetByID(ctx context.Context, orderID string) (*orders.SupplierOrder, error) {
	sql, args, err := r.builder.
		Select("id", "date", "supplier", "created_at", "updated_at").
		From(supplierOrdersTable).
		Where(squirrel.Eq{"id": orderID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var order orders.SupplierOrder
	if err := pgxscan.Get(ctx, r.querier(ctx), &order, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("supplier order", orderID)
		}
		return nil, fmt.Errorf("get supplier order: %w", err)
	}

	if err := r.loadLines(ctx, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// saveLines replaces the full line set (delete existing + insert new).
func (r *SupplierRepo) saveLines(ctx context.Context, orderID string, lines []orders.Line) error {
	querier := r.querier(ctx)

	deleteSQL := "DELETE FROM " + supplierOrderLinesTable + " WHERE order_id = $1"
	if _, err := querier.Exec(ctx, deleteSQL, orderID); err != nil {
		return fmt.Errorf("delete existing lines: %w", err)
	}

	if len(lines) == 0 {
		return nil
	}

	q := r.builder.
		Insert(supplierOrderLinesTable).
		Columns(append([]string{"order_id"}, lineColumns...)...)
	for _, line := range lines {
		q = q.Values(
			orderID, line.LineID, line.LineNo, line.ProductCode, line.ProductName,
			line.Quantity, line.UnitPrice, line.TotalPrice,
		)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert lines: %w", err)
	}
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert lines: %w", err)
	}
	return nil
}

// loadLines fetches the line rows and reattaches serial sets from the
// warehouse.
func (r *SupplierRepo) loadLines(ctx context.Context, order *orders.SupplierOrder) error {
	sql, args, err := r.builder.
		Select(lineColumns...).
		From(supplierOrderLinesTable).
		Where(squirrel.Eq{"order_id": order.ID}).
		OrderBy("line_no").
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	querier := r.querier(ctx)
	if err := pgxscan.Select(ctx, querier, &order.Lines, sql, args...); err != nil {
		return fmt.Errorf("get lines: %w", err)
	}

	rows, err := querier.Query(ctx,
		"SELECT serial, product_name FROM warehouse_units WHERE supplier_order_id = $1 ORDER BY serial",
		order.ID)
	if err != nil {
		return fmt.Errorf("get line serials: %w", err)
	}
	defer rows.Close()

	byProduct := make(map[string][]string)
	for rows.Next() {
		var serial, product string
		if err := rows.Scan(&serial, &product); err != nil {
			return fmt.Errorf("scan serial: %w", err)
		}
		byProduct[product] = append(byProduct[product], serial)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate serials: %w", err)
	}

	for i := range order.Lines {
		order.Lines[i].Serials = byProduct[order.Lines[i].ProductName]
	}
	return nil
}

func (r *SupplierRepo) Search(ctx context.Context, filter orders.SearchFilter) ([]orders.SupplierOrder, error) {
	q := r.builder.
		Select("o.id", "o.date", "o.supplier", "o.created_at", "o.updated_at").
		From(supplierOrdersTable + " o").
		OrderBy("o.date DESC", "o.id")

	if filter.ID != "" {
		q = q.Where(squirrel.Eq{"o.id": filter.ID})
	}
	if filter.Date != nil {
		q = q.Where(squirrel.Eq{"o.date": *filter.Date})
	}
	if filter.ProductQuery != "" {
		pattern := "%" + filter.ProductQuery + "%"
		q = q.Where(`EXISTS (
			SELECT 1 FROM `+supplierOrderLinesTable+` l
			WHERE l.order_id = o.id AND (l.product_name ILIKE ? OR l.product_code ILIKE ?)
		)`, pattern, pattern)
	}
	if filter.Serial != "" {
		q = q.Where(`EXISTS (
			SELECT 1 FROM warehouse_units u
			WHERE u.supplier_order_id = o.id AND u.serial = ?
		)`, filter.Serial)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var found []orders.SupplierOrder
	if err := pgxscan.Select(ctx, r.querier(ctx), &found, sql, args...); err != nil {
		return nil, fmt.Errorf("search supplier orders: %w", err)
	}

	for i := range found {
		if err := r.loadLines(ctx, &found[i]); err != nil {
			return nil, err
		}
	}
	return found, nil
}

func (r *SupplierRepo) ListByDateRange(ctx context.Context, from, to time.Time) ([]orders.SupplierOrder, error) {
	sql, args, err := r.builder.
		Select("id", "date", "supplier", "created_at", "updated_at").
		From(supplierOrdersTable).
		Where(squirrel.GtOrEq{"date": from}).
		Where(squirrel.LtOrEq{"date": to}).
		OrderBy("date", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var found []orders.SupplierOrder
	if err := pgxscan.Select(ctx, r.querier(ctx), &found, sql, args...); err != nil {
		return nil, fmt.Errorf("list supplier orders: %w", err)
	}

	for i := range found {
		if err := r.loadLines(ctx, &found[i]); err != nil {
			return nil, err
		}
	}
	return found, nil
}

// ListWithoutSerials finds orders with at least one line whose recorded unit
// count is below the line quantity.
func (r *SupplierRepo) ListWithoutSerials(ctx context.Context) ([]orders.SupplierOrder, error) {
	query := `
		SELECT o.id, o.date, o.supplier, o.created_at, o.updated_at
		FROM ` + supplierOrdersTable + ` o
		WHERE EXISTS (
			SELECT 1 FROM ` + supplierOrderLinesTable + ` l
			WHERE l.order_id = o.id
			  AND l.quantity > (
				SELECT COUNT(*) FROM warehouse_units u
				WHERE u.supplier_order_id = o.id AND u.product_name = l.product_name
			  )
		)
		ORDER BY o.date, o.id
	`

	var found []orders.SupplierOrder
	if err := pgxscan.Select(ctx, r.querier(ctx), &found, query); err != nil {
		return nil, fmt.Errorf("list deferred orders: %w", err)
	}

	for i := range found {
		if err := r.loadLines(ctx, &found[i]); err != nil {
			return nil, err
		}
	}
	return found, nil
}
