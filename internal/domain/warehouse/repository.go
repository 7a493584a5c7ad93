package warehouse

import (
	"context"
)

// StockCount is an in-stock tally for one product.
type StockCount struct {
	ProductName string `db:"product_name" json:"productName"`
	InStock     int    `db:"in_stock" json:"inStock"`
}

// UnitRepository is the persistence contract for warehouse units.
// Implementations resolve the active transaction from context.
type UnitRepository interface {
	// InsertBatch inserts new units. Fails on any serial collision.
	InsertBatch(ctx context.Context, units []Unit) error

	// GetBySerials returns units for the given serials; missing serials are
	// simply absent from the result.
	GetBySerials(ctx context.Context, serials []string) ([]Unit, error)

	// GetBySerial returns a single unit or a not-found error.
	GetBySerial(ctx context.Context, serial string) (*Unit, error)

	// ClaimSerials links the given serials to a client order, touching only
	// rows that are currently unlinked. Returns the number of rows updated so
	// the caller can detect a lost race and roll back.
	ClaimSerials(ctx context.Context, serials []string, clientOrderID string) (int64, error)

	// ReleaseByClientOrder unlinks every unit claimed by the client order.
	// Idempotent.
	ReleaseByClientOrder(ctx context.Context, clientOrderID string) error

	// ReleaseSerials unlinks the given serials from the given client order,
	// touching only units actually linked to it.
	ReleaseSerials(ctx context.Context, serials []string, clientOrderID string) error

	// ListBySupplierOrder returns all units created by a supplier order.
	ListBySupplierOrder(ctx context.Context, supplierOrderID string) ([]Unit, error)

	// ListBySupplierLine returns units for one (supplier order, product) line.
	ListBySupplierLine(ctx context.Context, supplierOrderID, productName string) ([]Unit, error)

	// DeleteBySupplierOrder removes all units created by a supplier order.
	DeleteBySupplierOrder(ctx context.Context, supplierOrderID string) error

	// DeleteSerials removes specific units by serial.
	DeleteSerials(ctx context.Context, serials []string) error
}
