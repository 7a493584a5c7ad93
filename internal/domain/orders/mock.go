package orders

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"tradeledger/internal/core/apperror"
)

// MemoryNumbering issues sequential numbers per prefix, for tests.
type MemoryNumbering struct {
	mu   sync.Mutex
	next map[string]int
}

// NewMemoryNumbering creates a fresh in-memory sequencer.
func NewMemoryNumbering() *MemoryNumbering {
	return &MemoryNumbering{next: make(map[string]int)}
}

func (n *MemoryNumbering) Next(_ context.Context, prefix string) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.next[prefix]++
	return fmt.Sprintf("%s-%d", prefix, n.next[prefix]), nil
}

// MemorySupplierRepository is an in-memory SupplierRepository for tests.
// ListWithoutSerials needs warehouse knowledge and is driven by the Deferred
// set, which tests populate explicitly.
type MemorySupplierRepository struct {
	mu       sync.Mutex
	orders   map[string]SupplierOrder
	Deferred map[string]bool
}

// NewMemorySupplierRepository creates an empty repository.
func NewMemorySupplierRepository() *MemorySupplierRepository {
	return &MemorySupplierRepository{
		orders:   make(map[string]SupplierOrder),
		Deferred: make(map[string]bool),
	}
}

func (m *MemorySupplierRepository) Insert(_ context.Context, order *SupplierOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.orders[order.ID]; exists {
		return apperror.NewDuplicate("supplier order", "id", order.ID)
	}
	m.orders[order.ID] = cloneSupplier(*order)
	return nil
}

func (m *MemorySupplierRepository) Update(_ context.Context, order *SupplierOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.orders[order.ID]; !exists {
		return apperror.NewNotFound("supplier order", order.ID)
	}
	m.orders[order.ID] = cloneSupplier(*order)
	return nil
}

func (m *MemorySupplierRepository) Delete(_ context.Context, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.orders[orderID]; !exists {
		return apperror.NewNotFound("supplier order", orderID)
	}
	delete(m.orders, orderID)
	return nil
}

func (m *MemorySupplierRepository) GetByID(_ context.Context, orderID string) (*SupplierOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, exists := m.orders[orderID]
	if !exists {
		return nil, apperror.NewNotFound("supplier order", orderID)
	}
	out := cloneSupplier(o)
	return &out, nil
}

func (m *MemorySupplierRepository) Search(_ context.Context, filter SearchFilter) ([]SupplierOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []SupplierOrder
	for _, o := range m.orders {
		if matchesSupplier(o, filter) {
			out = append(out, cloneSupplier(o))
		}
	}
	sortSuppliers(out)
	return out, nil
}

func (m *MemorySupplierRepository) ListByDateRange(_ context.Context, from, to time.Time) ([]SupplierOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []SupplierOrder
	for _, o := range m.orders {
		if !o.Date.Before(from) && !o.Date.After(to) {
			out = append(out, cloneSupplier(o))
		}
	}
	sortSuppliers(out)
	return out, nil
}

func (m *MemorySupplierRepository) ListWithoutSerials(_ context.Context) ([]SupplierOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []SupplierOrder
	for id, o := range m.orders {
		if m.Deferred[id] {
			out = append(out, cloneSupplier(o))
		}
	}
	sortSuppliers(out)
	return out, nil
}

func matchesSupplier(o SupplierOrder, filter SearchFilter) bool {
	if filter.ID != "" && o.ID != filter.ID {
		return false
	}
	if filter.Date != nil && !sameDay(o.Date, *filter.Date) {
		return false
	}
	if filter.ProductQuery != "" {
		found := false
		q := strings.ToLower(filter.ProductQuery)
		for _, l := range o.Lines {
			if strings.Contains(strings.ToLower(l.ProductName), q) ||
				strings.Contains(strings.ToLower(l.ProductCode), q) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// MemoryClientRepository is an in-memory ClientRepository for tests.
type MemoryClientRepository struct {
	mu     sync.Mutex
	orders map[string]ClientOrder
}

// NewMemoryClientRepository creates an empty repository.
func NewMemoryClientRepository() *MemoryClientRepository {
	return &MemoryClientRepository{orders: make(map[string]ClientOrder)}
}

func (m *MemoryClientRepository) Insert(_ context.Context, order *ClientOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.orders[order.ID]; exists {
		return apperror.NewDuplicate("client order", "id", order.ID)
	}
	m.orders[order.ID] = cloneClient(*order)
	return nil
}

func (m *MemoryClientRepository) Update(_ context.Context, order *ClientOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.orders[order.ID]; !exists {
		return apperror.NewNotFound("client order", order.ID)
	}
	m.orders[order.ID] = cloneClient(*order)
	return nil
}

func (m *MemoryClientRepository) Delete(_ context.Context, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.orders[orderID]; !exists {
		return apperror.NewNotFound("client order", orderID)
	}
	delete(m.orders, orderID)
	return nil
}

func (m *MemoryClientRepository) GetByID(_ context.Context, orderID string) (*ClientOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, exists := m.orders[orderID]
	if !exists {
		return nil, apperror.NewNotFound("client order", orderID)
	}
	out := cloneClient(o)
	return &out, nil
}

func (m *MemoryClientRepository) Search(_ context.Context, filter SearchFilter) ([]ClientOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ClientOrder
	for _, o := range m.orders {
		if matchesClient(o, filter) {
			out = append(out, cloneClient(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryClientRepository) ListByDateRange(_ context.Context, from, to time.Time) ([]ClientOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ClientOrder
	for _, o := range m.orders {
		if !o.Date.Before(from) && !o.Date.After(to) {
			out = append(out, cloneClient(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func matchesClient(o ClientOrder, filter SearchFilter) bool {
	if filter.ID != "" && o.ID != filter.ID {
		return false
	}
	if filter.Date != nil && !sameDay(o.Date, *filter.Date) {
		return false
	}
	if filter.ProductQuery != "" {
		found := false
		q := strings.ToLower(filter.ProductQuery)
		for _, l := range o.Lines {
			if strings.Contains(strings.ToLower(l.ProductName), q) ||
				strings.Contains(strings.ToLower(l.ProductCode), q) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// MemoryCounterpartyRepository is an in-memory CounterpartyRepository.
type MemoryCounterpartyRepository struct {
	mu    sync.Mutex
	names map[string]map[string]bool // kind -> name set
}

// NewMemoryCounterpartyRepository creates an empty catalog.
func NewMemoryCounterpartyRepository() *MemoryCounterpartyRepository {
	return &MemoryCounterpartyRepository{names: make(map[string]map[string]bool)}
}

func (m *MemoryCounterpartyRepository) Upsert(_ context.Context, name, kind string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.names[kind] == nil {
		m.names[kind] = make(map[string]bool)
	}
	m.names[kind][name] = true
	return nil
}

func (m *MemoryCounterpartyRepository) List(_ context.Context, kind string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for name := range m.names[kind] {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

func cloneSupplier(o SupplierOrder) SupplierOrder {
	o.Lines = cloneLines(o.Lines)
	return o
}

func cloneClient(o ClientOrder) ClientOrder {
	o.Lines = cloneLines(o.Lines)
	return o
}

func sortSuppliers(orders []SupplierOrder) {
	sort.Slice(orders, func(i, j int) bool { return orders[i].ID < orders[j].ID })
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
