package dto

import (
	"tradeledger/internal/domain/orders"
)

// SearchOrdersRequest carries the search criteria. Filters that are present
// intersect; at least one must be set.
type SearchOrdersRequest struct {
	ID      string `form:"id"`
	Date    string `form:"date"`
	Product string `form:"product"`
	Serial  string `form:"serial"`
}

// Empty reports whether no criterion was provided.
func (r SearchOrdersRequest) Empty() bool {
	return r.ID == "" && r.Date == "" && r.Product == "" && r.Serial == ""
}

// SearchOrdersResponse returns matches from both order books.
type SearchOrdersResponse struct {
	Suppliers []orders.SupplierOrder `json:"suppliers"`
	Clients   []orders.ClientOrder   `json:"clients"`
}
