package orders

import (
	"context"
	"fmt"
	"time"

	"tradeledger/internal/core/apperror"
	"tradeledger/internal/core/tx"
	"tradeledger/internal/core/types"
	"tradeledger/internal/domain/cash"
	"tradeledger/internal/domain/warehouse"
	"tradeledger/pkg/logger"
)

// AttachBatch is a serial set to register in the warehouse when an order
// commit lands. One batch per supplier line carrying serials.
type AttachBatch struct {
	SupplierOrderID string
	ProductName     string
	UnitCost        types.Money
	Serials         []string
	// LineQuantity bounds deferred intake; zero means a fresh line whose
	// serial set is already complete.
	LineQuantity int
}

// SerialOps collects the warehouse side effects of an order edit, gathered by
// the editor while the user works on the copy and applied atomically at commit.
type SerialOps struct {
	Attach []AttachBatch
	Remove []string
	// ForceRemove deletes units even when sold; set only after the user
	// explicitly confirmed the cascading removal.
	ForceRemove []string
	Claim       []string
	Release     []string
}

// Service owns the order lifecycle: finalize, edit commit, delete, search.
// All mutations run in a single transaction together with their warehouse and
// cash side effects.
type Service struct {
	suppliers      SupplierRepository
	clients        ClientRepository
	counterparties CounterpartyRepository
	cashRepo       cash.Repository
	reconciler     *warehouse.Reconciler
	numbering      Numbering
	txManager      tx.Manager
}

// NewService wires the order service.
func NewService(
	suppliers SupplierRepository,
	clients ClientRepository,
	counterparties CounterpartyRepository,
	cashRepo cash.Repository,
	reconciler *warehouse.Reconciler,
	numbering Numbering,
	txManager tx.Manager,
) *Service {
	return &Service{
		suppliers:      suppliers,
		clients:        clients,
		counterparties: counterparties,
		cashRepo:       cashRepo,
		reconciler:     reconciler,
		numbering:      numbering,
		txManager:      txManager,
	}
}

// Reconciler exposes the inventory reconciler for flows that classify serials
// before an order exists (by-serial client intake).
func (s *Service) Reconciler() *warehouse.Reconciler {
	return s.reconciler
}

// --- Finalize ---

// FinalizeSupplier persists a completed supplier draft. Lines carrying
// serials create warehouse units; lines without serials stay deferred.
// Nothing is written if any serial conflicts.
func (s *Service) FinalizeSupplier(ctx context.Context, order *SupplierOrder) error {
	if err := order.Validate(); err != nil {
		return err
	}

	// The number is allocated inside the transaction so a failed finalize
	// rolls the sequence back and leaves no gap.
	assignedNumber := false
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if order.ID == "" {
			number, err := s.numbering.Next(ctx, SupplierPrefix)
			if err != nil {
				return fmt.Errorf("allocate order number: %w", err)
			}
			order.ID = number
			assignedNumber = true
		}
		if err := s.suppliers.Insert(ctx, order); err != nil {
			return err
		}
		for _, line := range order.Lines {
			if len(line.Serials) == 0 {
				continue
			}
			if err := s.reconciler.AttachSupply(ctx, line.Serials, order.ID, line.ProductName, line.UnitPrice); err != nil {
				return err
			}
		}
		return s.counterparties.Upsert(ctx, order.Supplier, CounterpartySupplier)
	})
	if err != nil {
		if assignedNumber {
			order.ID = ""
		}
		return err
	}

	logger.Info(ctx, "supplier order finalized",
		"order_id", order.ID, "supplier", order.Supplier, "lines", len(order.Lines))
	return nil
}

// FinalizeClient persists a completed client draft and claims the serials its
// lines carry. A claim conflict (a serial sold between entry and commit)
// rejects the whole order; the caller keeps the draft for correction.
func (s *Service) FinalizeClient(ctx context.Context, order *ClientOrder) error {
	if err := order.Validate(); err != nil {
		return err
	}

	assignedNumber := false
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if order.ID == "" {
			number, err := s.numbering.Next(ctx, ClientPrefix)
			if err != nil {
				return fmt.Errorf("allocate order number: %w", err)
			}
			order.ID = number
			assignedNumber = true
		}
		if err := s.clients.Insert(ctx, order); err != nil {
			return err
		}
		var serials []string
		for _, line := range order.Lines {
			serials = append(serials, line.Serials...)
		}
		if len(serials) > 0 {
			if err := s.reconciler.Claim(ctx, serials, order.ID); err != nil {
				return err
			}
		}
		return s.counterparties.Upsert(ctx, order.Client, CounterpartyClient)
	})
	if err != nil {
		if assignedNumber {
			order.ID = ""
		}
		return err
	}

	logger.Info(ctx, "client order finalized",
		"order_id", order.ID, "client", order.Client, "lines", len(order.Lines))
	return nil
}

// --- Delete ---

// DeleteSupplier removes a supplier order and its warehouse units. Rejected
// with the blocking client order ids if any unit is already sold.
func (s *Service) DeleteSupplier(ctx context.Context, orderID string) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.suppliers.GetByID(ctx, orderID); err != nil {
			return err
		}
		if err := s.reconciler.DetachSupply(ctx, orderID); err != nil {
			return err
		}
		if err := s.suppliers.Delete(ctx, orderID); err != nil {
			return err
		}
		logger.Info(ctx, "supplier order deleted", "order_id", orderID)
		return nil
	})
}

// DeleteClient removes a client order. Its warehouse units are released back
// to stock, never deleted.
func (s *Service) DeleteClient(ctx context.Context, orderID string) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.clients.GetByID(ctx, orderID); err != nil {
			return err
		}
		if err := s.reconciler.Release(ctx, orderID); err != nil {
			return err
		}
		if err := s.clients.Delete(ctx, orderID); err != nil {
			return err
		}
		logger.Info(ctx, "client order deleted", "order_id", orderID)
		return nil
	})
}

// --- Edit commit ---

// CommitSupplierEdit atomically applies an edited working copy plus its
// warehouse side effects. Removed serials must be unsold.
func (s *Service) CommitSupplierEdit(ctx context.Context, working *SupplierOrder, ops SerialOps) error {
	if err := working.ValidateEdit(); err != nil {
		return err
	}
	working.UpdatedAt = time.Now()

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if len(ops.Remove) > 0 {
			if err := s.reconciler.RemoveSerials(ctx, ops.Remove); err != nil {
				return err
			}
		}
		if len(ops.ForceRemove) > 0 {
			if err := s.reconciler.ForceRemoveSerials(ctx, ops.ForceRemove); err != nil {
				return err
			}
		}
		for _, batch := range ops.Attach {
			if batch.LineQuantity > 0 {
				if err := s.reconciler.AttachDeferred(ctx, batch.Serials, batch.SupplierOrderID, batch.ProductName, batch.UnitCost, batch.LineQuantity); err != nil {
					return err
				}
				continue
			}
			if err := s.reconciler.AttachSupply(ctx, batch.Serials, batch.SupplierOrderID, batch.ProductName, batch.UnitCost); err != nil {
				return err
			}
		}
		if err := s.suppliers.Update(ctx, working); err != nil {
			return err
		}
		return s.counterparties.Upsert(ctx, working.Supplier, CounterpartySupplier)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "supplier order updated", "order_id", working.ID)
	return nil
}

// CommitClientEdit atomically applies an edited client order. A non-zero
// priceDelta (new total minus old total) posts one compensating cash entry
// dated editDate, the day the edit was made.
func (s *Service) CommitClientEdit(ctx context.Context, working *ClientOrder, ops SerialOps, priceDelta types.Money, editDate time.Time) error {
	if err := working.ValidateEdit(); err != nil {
		return err
	}
	working.UpdatedAt = time.Now()

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if len(ops.Release) > 0 {
			if err := s.reconciler.ReleaseSerials(ctx, ops.Release, working.ID); err != nil {
				return err
			}
		}
		if len(ops.Claim) > 0 {
			if err := s.reconciler.Claim(ctx, ops.Claim, working.ID); err != nil {
				return err
			}
		}
		if err := s.clients.Update(ctx, working); err != nil {
			return err
		}
		if !priceDelta.IsZero() {
			entry := compensationEntry(working, priceDelta, editDate)
			if err := s.cashRepo.Append(ctx, entry); err != nil {
				return err
			}
		}
		return s.counterparties.Upsert(ctx, working.Client, CounterpartyClient)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "client order updated",
		"order_id", working.ID, "price_delta", priceDelta)
	return nil
}

func compensationEntry(order *ClientOrder, delta types.Money, editDate time.Time) cash.Entry {
	comment := fmt.Sprintf("price adjustment for order %s", order.ID)
	if delta.IsPositive() {
		return cash.NewIncome(editDate, delta, comment)
	}
	return cash.NewExpense(editDate, delta.Neg(), comment)
}

// --- Deferred serial intake ---

// AttachDeferredSerials records serials for a supplier line whose intake was
// deferred at finalize time.
func (s *Service) AttachDeferredSerials(ctx context.Context, orderID, productName string, serials []string) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		order, err := s.suppliers.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		for _, line := range order.Lines {
			if line.ProductName != productName {
				continue
			}
			return s.reconciler.AttachDeferred(ctx, serials, orderID, productName, line.UnitPrice, line.Quantity)
		}
		return apperror.NewNotFound("order line", fmt.Sprintf("%s/%s", orderID, productName))
	})
}

// ListDeferred returns supplier orders still missing serials on some line.
func (s *Service) ListDeferred(ctx context.Context) ([]SupplierOrder, error) {
	return s.suppliers.ListWithoutSerials(ctx)
}

// --- Reads ---

// GetSupplier loads one supplier order with lines.
func (s *Service) GetSupplier(ctx context.Context, orderID string) (*SupplierOrder, error) {
	return s.suppliers.GetByID(ctx, orderID)
}

// GetClient loads one client order with lines.
func (s *Service) GetClient(ctx context.Context, orderID string) (*ClientOrder, error) {
	return s.clients.GetByID(ctx, orderID)
}

// SearchSuppliers finds supplier orders by id, date, product or serial.
func (s *Service) SearchSuppliers(ctx context.Context, filter SearchFilter) ([]SupplierOrder, error) {
	return s.suppliers.Search(ctx, filter)
}

// SearchClients finds client orders by id, date, product or serial.
func (s *Service) SearchClients(ctx context.Context, filter SearchFilter) ([]ClientOrder, error) {
	return s.clients.Search(ctx, filter)
}

// Counterparties lists remembered names of the given kind.
func (s *Service) Counterparties(ctx context.Context, kind string) ([]string, error) {
	return s.counterparties.List(ctx, kind)
}
