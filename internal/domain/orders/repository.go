package orders

import (
	"context"
	"time"
)

// SearchFilter selects orders for the search flows. Exactly one field is
// normally set; combined filters intersect.
type SearchFilter struct {
	ID           string
	Date         *time.Time
	ProductQuery string
	Serial       string
}

// SupplierRepository persists supplier orders and their lines.
type SupplierRepository interface {
	Insert(ctx context.Context, order *SupplierOrder) error
	Update(ctx context.Context, order *SupplierOrder) error
	Delete(ctx context.Context, orderID string) error
	GetByID(ctx context.Context, orderID string) (*SupplierOrder, error)
	Search(ctx context.Context, filter SearchFilter) ([]SupplierOrder, error)
	ListByDateRange(ctx context.Context, from, to time.Time) ([]SupplierOrder, error)

	// ListWithoutSerials returns orders having at least one line whose
	// serial intake is still deferred (fewer warehouse units than quantity).
	ListWithoutSerials(ctx context.Context) ([]SupplierOrder, error)
}

// ClientRepository persists client orders and their lines.
type ClientRepository interface {
	Insert(ctx context.Context, order *ClientOrder) error
	Update(ctx context.Context, order *ClientOrder) error
	Delete(ctx context.Context, orderID string) error
	GetByID(ctx context.Context, orderID string) (*ClientOrder, error)
	Search(ctx context.Context, filter SearchFilter) ([]ClientOrder, error)
	ListByDateRange(ctx context.Context, from, to time.Time) ([]ClientOrder, error)
}

// CounterpartyRepository remembers names used on past orders so the dialogue
// can offer them as shortcuts.
type CounterpartyRepository interface {
	Upsert(ctx context.Context, name, kind string) error
	List(ctx context.Context, kind string) ([]string, error)
}

// Numbering issues the next human-readable order number for a prefix.
type Numbering interface {
	Next(ctx context.Context, prefix string) (string, error)
}
