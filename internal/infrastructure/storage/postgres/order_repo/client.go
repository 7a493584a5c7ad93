package order_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"tradeledger/internal/core/apperror"
	"tradeledger/internal/domain/orders"
	"tradeledger/internal/infrastructure/storage/postgres"
)

const (
	clientOrdersTable     = "client_orders"
	clientOrderLinesTable = "client_order_lines"
)

// Client lines additionally carry the originating supply reference.
var clientLineColumns = append(append([]string{}, lineColumns...), "supplier_order_id")

// ClientRepo implements orders.ClientRepository.
type ClientRepo struct {
	tx      *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewClientRepo creates a new client order repository.
func NewClientRepo(tx *postgres.TxManager) *ClientRepo {
	return &ClientRepo{
		tx:      tx,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var _ orders.ClientRepository = (*ClientRepo)(nil)

func (r *ClientRepo) querier(ctx context.Context) postgres.Querier {
	return r.tx.GetQuerier(ctx)
}

func (r *ClientRepo) Insert(ctx context.Context, order *orders.ClientOrder) error {
	now := time.Now()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = now
	}

	sql, args, err := r.builder.
		Insert(clientOrdersTable).
		SetMap(postgres.StructToMap(order)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		if isUniqueViolation(err) {
			return apperror.NewDuplicate("client order", "id", order.ID)
		}
		return apperror.NewPersistence(err)
	}

	return r.saveLines(ctx, order.ID, order.Lines)
}

func (r *ClientRepo) Update(ctx context.Context, order *orders.ClientOrder) error {
	sql, args, err := r.builder.
		Update(clientOrdersTable).
		Set("date", order.Date).
		Set("client", order.Client).
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
		return apperror.NewNotFound("client order", order.ID)
	}

	return r.saveLines(ctx, order.ID, order.Lines)
}

func (r *ClientRepo) Delete(ctx context.Context, orderID string) error {
	if _, err := r.querier(ctx).Exec(ctx,
		"DELETE FROM "+clientOrderLinesTable+" WHERE order_id = $1", orderID); err != nil {
		return apperror.NewPersistence(err)
	}

	tag, err := r.querier(ctx).Exec(ctx,
		"DELETE FROM "+clientOrdersTable+" WHERE id = $1", orderID)
	if err != nil {
		return apperror.NewPersistence(err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("client order", orderID)
	}
	return nil
}

func (r *ClientRepo) GetByID(ctx context.Context, orderID string) (*orders.ClientOrder, error) {
	sql, args, err := r.builder.
		Select("id", "date", "client", "created_at", "updated_at").
		From(clientOrdersTable).
		Where(squirrel.Eq{"id": orderID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var order orders.ClientOrder
	if err := pgxscan.Get(ctx, r.querier(ctx), &order, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("client order", orderID)
		}
		return nil, fmt.Errorf("get client order: %w", err)
	}

	if err := r.loadLines(ctx, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *ClientRepo) saveLines(ctx context.Context, orderID string, lines []orders.Line) error {
	querier := r.querier(ctx)

	deleteSQL := "DELETE FROM " + clientOrderLinesTable + " WHERE order_id = $1"
	if _, err := querier.Exec(ctx, deleteSQL, orderID); err != nil {
		return fmt.Errorf("delete existing lines: %w", err)
	}

	if len(lines) == 0 {
		return nil
	}

	q := r.builder.
		Insert(clientOrderLinesTable).
		Columns(append([]string{"order_id"}, clientLineColumns...)...)
	for _, line := range lines {
		q = q.Values(
			orderID, line.LineID, line.LineNo, line.ProductCode, line.ProductName,
			line.Quantity, line.UnitPrice, line.TotalPrice, line.SupplierOrderID,
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

// loadLines fetches the line rows and reattaches the serial sets claimed by
// this order.
func (r *ClientRepo) loadLines(ctx context.Context, order *orders.ClientOrder) error {
	sql, args, err := r.builder.
		Select(clientLineColumns...).
		From(clientOrderLinesTable).
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
		"SELECT serial, product_name, supplier_order_id FROM warehouse_units WHERE client_order_id = $1 ORDER BY serial",
		order.ID)
	if err != nil {
		return fmt.Errorf("get line serials: %w", err)
	}
	defer rows.Close()

	type lineKey struct {
		product string
		supply  string
	}
	byKey := make(map[lineKey][]string)
	for rows.Next() {
		var serial, product, supply string
		if err := rows.Scan(&serial, &product, &supply); err != nil {
			return fmt.Errorf("scan serial: %w", err)
		}
		byKey[lineKey{product, supply}] = append(byKey[lineKey{product, supply}], serial)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate serials: %w", err)
	}

	for i := range order.Lines {
		l := &order.Lines[i]
		l.Serials = byKey[lineKey{l.ProductName, l.SupplierOrderID}]
	}
	return nil
}

func (r *ClientRepo) Search(ctx context.Context, filter orders.SearchFilter) ([]orders.ClientOrder, error) {
	q := r.builder.
		Select("o.id", "o.date", "o.client", "o.created_at", "o.updated_at").
		From(clientOrdersTable + " o").
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
			SELECT 1 FROM `+clientOrderLinesTable+` l
			WHERE l.order_id = o.id AND (l.product_name ILIKE ? OR l.product_code ILIKE ?)
		)`, pattern, pattern)
	}
	if filter.Serial != "" {
		q = q.Where(`EXISTS (
			SELECT 1 FROM warehouse_units u
			WHERE u.client_order_id = o.id AND u.serial = ?
		)`, filter.Serial)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var found []orders.ClientOrder
	if err := pgxscan.Select(ctx, r.querier(ctx), &found, sql, args...); err != nil {
		return nil, fmt.Errorf("search client orders: %w", err)
	}

	for i := range found {
		if err := r.loadLines(ctx, &found[i]); err != nil {
			return nil, err
		}
	}
	return found, nil
}

func (r *ClientRepo) ListByDateRange(ctx context.Context, from, to time.Time) ([]orders.ClientOrder, error) {
	sql, args, err := r.builder.
		Select("id", "date", "client", "created_at", "updated_at").
		From(clientOrdersTable).
		Where(squirrel.GtOrEq{"date": from}).
		Where(squirrel.LtOrEq{"date": to}).
		OrderBy("date", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var found []orders.ClientOrder
	if err := pgxscan.Select(ctx, r.querier(ctx), &found, sql, args...); err != nil {
		return nil, fmt.Errorf("list client orders: %w", err)
	}

	for i := range found {
		if err := r.loadLines(ctx, &found[i]); err != nil {
			return nil, err
		}
	}
	return found, nil
}
