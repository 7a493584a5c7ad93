// Package orders holds supplier and client order documents and their lifecycle.
package orders

import (
	"fmt"
	"time"

	"tradeledger/internal/core/apperror"
	"tradeledger/internal/core/id"
	"tradeledger/internal/core/types"
)

// Kind distinguishes the two order documents.
type Kind string

const (
	KindSupplier Kind = "supplier"
	KindClient   Kind = "client"
)

// Number prefixes for the two document kinds.
const (
	SupplierPrefix = "OP"
	ClientPrefix   = "OC"
)

// Line is one product entry within an order.
//
// On supplier lines Serials holds the serial set entered at intake; it must be
// empty (deferred) or exactly Quantity long. Serial sets are persisted as
// warehouse units, not on the line row itself.
//
// On client lines SupplierOrderID traces the originating supply, or is empty
// when the sale was entered manually without traceable stock.
type Line struct {
	LineID          id.ID       `db:"line_id" json:"lineId"`
	LineNo          int         `db:"line_no" json:"lineNo"`
	ProductCode     string      `db:"product_code" json:"productCode"`
	ProductName     string      `db:"product_name" json:"productName"`
	Quantity        int         `db:"quantity" json:"quantity"`
	UnitPrice       types.Money `db:"unit_price" json:"unitPrice"`
	TotalPrice      types.Money `db:"total_price" json:"totalPrice"`
	SupplierOrderID string      `db:"supplier_order_id" json:"supplierOrderId,omitempty"`

	Serials []string `db:"-" json:"serials,omitempty"`
}

// NewLine builds a line with a fresh id and computed total.
func NewLine(no int, code, name string, quantity int, unitPrice types.Money) Line {
	return Line{
		LineID:      id.New(),
		LineNo:      no,
		ProductCode: code,
		ProductName: name,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		TotalPrice:  unitPrice.Mul(types.NewMoneyFromInt(int64(quantity))),
	}
}

// Recalculate refreshes the computed total after quantity or price edits.
func (l *Line) Recalculate() {
	l.TotalPrice = l.UnitPrice.Mul(types.NewMoneyFromInt(int64(l.Quantity)))
}

// Validate checks a single line as entered at intake: the serial set is
// either empty (deferred) or complete.
func (l Line) Validate() error {
	return l.validate(false)
}

func (l Line) validate(allowPartialSerials bool) error {
	if l.ProductName == "" {
		return apperror.NewValidation("line product name must not be empty")
	}
	if l.Quantity < 1 {
		return apperror.NewValidation("line quantity must be at least 1")
	}
	if !l.UnitPrice.IsPositive() {
		return apperror.NewValidation("line unit price must be positive")
	}
	expected := l.UnitPrice.Mul(types.NewMoneyFromInt(int64(l.Quantity)))
	if !l.TotalPrice.Equal(expected) {
		return apperror.NewValidation("line total does not match quantity times unit price")
	}
	// A stored line mid-deferred-intake legitimately carries fewer serials
	// than quantity; edits must not be blocked by that.
	if allowPartialSerials {
		if len(l.Serials) > l.Quantity {
			return apperror.NewValidation("serial set exceeds line quantity")
		}
		return nil
	}
	if n := len(l.Serials); n != 0 && n != l.Quantity {
		return apperror.NewValidation("serial set must be empty or match line quantity")
	}
	return nil
}

// SupplierOrder is a purchase from a supplier.
type SupplierOrder struct {
	ID        string    `db:"id" json:"id"`
	Date      time.Time `db:"date" json:"date"`
	Supplier  string    `db:"supplier" json:"supplier"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`

	Lines []Line `db:"-" json:"lines"`
}

// Total sums the line totals.
func (o *SupplierOrder) Total() types.Money {
	return sumLines(o.Lines)
}

// Validate checks the order and every line with intake-time strictness.
func (o *SupplierOrder) Validate() error {
	if o.Supplier == "" {
		return apperror.NewValidation("supplier name must not be empty")
	}
	return validateOrder(o.Date, o.Lines, false, supplierLineKey)
}

// ValidateEdit checks an edited working copy. It tolerates lines whose
// deferred serial intake is still in progress.
func (o *SupplierOrder) ValidateEdit() error {
	if o.Supplier == "" {
		return apperror.NewValidation("supplier name must not be empty")
	}
	return validateOrder(o.Date, o.Lines, true, supplierLineKey)
}

// Clone deep-copies the order so an editor can mutate a working copy while
// keeping the original snapshot intact.
func (o *SupplierOrder) Clone() *SupplierOrder {
	out := *o
	out.Lines = cloneLines(o.Lines)
	return &out
}

// ClientOrder is a sale to a client.
type ClientOrder struct {
	ID        string    `db:"id" json:"id"`
	Date      time.Time `db:"date" json:"date"`
	Client    string    `db:"client" json:"client"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`

	Lines []Line `db:"-" json:"lines"`
}

// Total sums the line totals.
func (o *ClientOrder) Total() types.Money {
	return sumLines(o.Lines)
}

// Validate checks the order and every line with intake-time strictness.
func (o *ClientOrder) Validate() error {
	if o.Client == "" {
		return apperror.NewValidation("client name must not be empty")
	}
	return validateOrder(o.Date, o.Lines, false, clientLineKey)
}

// ValidateEdit checks an edited working copy. It tolerates lines whose
// deferred serial intake is still in progress.
func (o *ClientOrder) ValidateEdit() error {
	if o.Client == "" {
		return apperror.NewValidation("client name must not be empty")
	}
	return validateOrder(o.Date, o.Lines, true, clientLineKey)
}

// Clone deep-copies the order so an editor can mutate a working copy while
// keeping the original snapshot intact.
func (o *ClientOrder) Clone() *ClientOrder {
	out := *o
	out.Lines = cloneLines(o.Lines)
	return &out
}

// supplierLineKey identifies a supplier line for duplicate detection. Serial
// sets are persisted per (order, product), so two lines of the same product
// would become indistinguishable in the warehouse.
func supplierLineKey(l Line) string {
	return l.ProductName
}

// clientLineKey allows the same product from different supplies on one order.
func clientLineKey(l Line) string {
	return l.ProductName + "\x00" + l.SupplierOrderID
}

func validateOrder(date time.Time, lines []Line, allowPartialSerials bool, lineKey func(Line) string) error {
	if date.IsZero() {
		return apperror.NewValidation("order date must be set")
	}
	if len(lines) == 0 {
		return apperror.NewValidation("order must have at least one line")
	}
	seen := make(map[string]bool, len(lines))
	for _, l := range lines {
		if err := l.validate(allowPartialSerials); err != nil {
			return err
		}
		key := lineKey(l)
		if seen[key] {
			return apperror.NewValidation(fmt.Sprintf("order already has a line for %s", l.ProductName))
		}
		seen[key] = true
	}
	return nil
}

func cloneLines(lines []Line) []Line {
	out := make([]Line, len(lines))
	copy(out, lines)
	for i := range out {
		out[i].Serials = append([]string(nil), out[i].Serials...)
	}
	return out
}

func sumLines(lines []Line) types.Money {
	total := types.Zero()
	for _, l := range lines {
		total = total.Add(l.TotalPrice)
	}
	return total
}

// Counterparty kinds for the remembered-names catalog.
const (
	CounterpartySupplier = "supplier"
	CounterpartyClient   = "client"
)
