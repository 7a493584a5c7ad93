package warehouse

import (
	"context"
	"sort"
	"sync"

	"tradeledger/internal/core/apperror"
)

// MemoryUnitRepository is an in-memory UnitRepository for tests.
type MemoryUnitRepository struct {
	mu    sync.Mutex
	units map[string]Unit
}

// NewMemoryUnitRepository creates an empty in-memory repository.
func NewMemoryUnitRepository() *MemoryUnitRepository {
	return &MemoryUnitRepository{units: make(map[string]Unit)}
}

// Seed inserts units directly, bypassing duplicate checks. Test setup only.
func (m *MemoryUnitRepository) Seed(units ...Unit) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range units {
		m.units[u.Serial] = u
	}
}

// Len returns the number of stored units.
func (m *MemoryUnitRepository) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.units)
}

func (m *MemoryUnitRepository) InsertBatch(_ context.Context, units []Unit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range units {
		if _, exists := m.units[u.Serial]; exists {
			return apperror.NewDuplicateSerial(u.Serial)
		}
	}
	for _, u := range units {
		m.units[u.Serial] = u
	}
	return nil
}

func (m *MemoryUnitRepository) GetBySerials(_ context.Context, serials []string) ([]Unit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Unit
	for _, s := range serials {
		if u, ok := m.units[s]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *MemoryUnitRepository) GetBySerial(_ context.Context, serial string) (*Unit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.units[serial]; ok {
		return &u, nil
	}
	return nil, apperror.NewNotFound("warehouse unit", serial)
}

func (m *MemoryUnitRepository) ClaimSerials(_ context.Context, serials []string, clientOrderID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var affected int64
	for _, s := range serials {
		if u, ok := m.units[s]; ok && u.ClientOrderID == nil {
			id := clientOrderID
			u.ClientOrderID = &id
			m.units[s] = u
			affected++
		}
	}
	return affected, nil
}

func (m *MemoryUnitRepository) ReleaseByClientOrder(_ context.Context, clientOrderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for s, u := range m.units {
		if u.ClientOrderID != nil && *u.ClientOrderID == clientOrderID {
			u.ClientOrderID = nil
			m.units[s] = u
		}
	}
	return nil
}

func (m *MemoryUnitRepository) ReleaseSerials(_ context.Context, serials []string, clientOrderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range serials {
		if u, ok := m.units[s]; ok && u.ClientOrderID != nil && *u.ClientOrderID == clientOrderID {
			u.ClientOrderID = nil
			m.units[s] = u
		}
	}
	return nil
}

func (m *MemoryUnitRepository) ListBySupplierOrder(_ context.Context, supplierOrderID string) ([]Unit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Unit
	for _, u := range m.units {
		if u.SupplierOrderID == supplierOrderID {
			out = append(out, u)
		}
	}
	sortUnits(out)
	return out, nil
}

func (m *MemoryUnitRepository) ListBySupplierLine(_ context.Context, supplierOrderID, productName string) ([]Unit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Unit
	for _, u := range m.units {
		if u.SupplierOrderID == supplierOrderID && u.ProductName == productName {
			out = append(out, u)
		}
	}
	sortUnits(out)
	return out, nil
}

func (m *MemoryUnitRepository) DeleteBySupplierOrder(_ context.Context, supplierOrderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for s, u := range m.units {
		if u.SupplierOrderID == supplierOrderID {
			delete(m.units, s)
		}
	}
	return nil
}

func (m *MemoryUnitRepository) DeleteSerials(_ context.Context, serials []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range serials {
		delete(m.units, s)
	}
	return nil
}

func sortUnits(units []Unit) {
	sort.Slice(units, func(i, j int) bool { return units[i].Serial < units[j].Serial })
}
