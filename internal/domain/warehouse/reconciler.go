package warehouse

import (
	"context"
	"fmt"
	"sort"

	"tradeledger/internal/core/apperror"
	"tradeledger/internal/core/tx"
	"tradeledger/internal/core/types"
	"tradeledger/pkg/logger"
)

// Reconciler matches serial numbers against warehouse state and performs the
// linking and unlinking of units to orders. All mutating operations are
// transactional and all-or-nothing.
type Reconciler struct {
	units     UnitRepository
	txManager tx.Manager
}

// NewReconciler creates a reconciler.
func NewReconciler(units UnitRepository, txManager tx.Manager) *Reconciler {
	return &Reconciler{units: units, txManager: txManager}
}

// Classify sorts the requested serials into available, sold and unknown.
// Read-only; duplicate inputs are collapsed.
func (r *Reconciler) Classify(ctx context.Context, serials []string) (Classification, error) {
	var result Classification

	serials = dedupe(serials)
	if len(serials) == 0 {
		return result, nil
	}

	units, err := r.units.GetBySerials(ctx, serials)
	if err != nil {
		return result, fmt.Errorf("classify serials: %w", err)
	}

	known := make(map[string]bool, len(units))
	for _, u := range units {
		known[u.Serial] = true
		if u.InStock() {
			result.Available = append(result.Available, u)
		} else {
			result.Sold = append(result.Sold, u)
		}
	}
	for _, s := range serials {
		if !known[s] {
			result.Unknown = append(result.Unknown, s)
		}
	}
	return result, nil
}

// Claim links the serials to a client order. Either every serial is claimed
// or none are: any unknown or already-sold serial fails the whole batch, and
// a lost race on the conditional update rolls the transaction back.
func (r *Reconciler) Claim(ctx context.Context, serials []string, clientOrderID string) error {
	serials = dedupe(serials)
	if len(serials) == 0 {
		return nil
	}

	return r.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		cls, err := r.Classify(ctx, serials)
		if err != nil {
			return err
		}
		if !cls.Clean() {
			return apperror.NewSerialConflict(cls.SoldSerials(), cls.Unknown)
		}

		affected, err := r.units.ClaimSerials(ctx, serials, clientOrderID)
		if err != nil {
			return apperror.NewPersistence(err)
		}
		if affected != int64(len(serials)) {
			// Someone claimed part of the batch between classify and update.
			return apperror.NewSerialConflict(nil, nil).
				WithDetail("requested", len(serials)).
				WithDetail("claimed", affected)
		}

		logger.Debug(ctx, "serials claimed",
			"client_order_id", clientOrderID, "count", len(serials))
		return nil
	})
}

// Release unlinks every unit claimed by the client order. Idempotent.
func (r *Reconciler) Release(ctx context.Context, clientOrderID string) error {
	return r.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := r.units.ReleaseByClientOrder(ctx, clientOrderID); err != nil {
			return apperror.NewPersistence(err)
		}
		return nil
	})
}

// ReleaseSerials unlinks specific serials from a client order. Serials linked
// elsewhere or not linked at all are left untouched. Idempotent.
func (r *Reconciler) ReleaseSerials(ctx context.Context, serials []string, clientOrderID string) error {
	serials = dedupe(serials)
	if len(serials) == 0 {
		return nil
	}
	return r.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := r.units.ReleaseSerials(ctx, serials, clientOrderID); err != nil {
			return apperror.NewPersistence(err)
		}
		return nil
	})
}

// AttachSupply registers new units for a supplier order line. Fails if any
// serial repeats within the batch or already exists anywhere in the warehouse.
func (r *Reconciler) AttachSupply(ctx context.Context, serials []string, supplierOrderID, productName string, unitCost types.Money) error {
	if dup := findBatchDuplicates(serials); len(dup) > 0 {
		return apperror.NewDuplicateSerial(dup...)
	}

	return r.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		existing, err := r.units.GetBySerials(ctx, serials)
		if err != nil {
			return fmt.Errorf("check existing serials: %w", err)
		}
		if len(existing) > 0 {
			taken := make([]string, 0, len(existing))
			for _, u := range existing {
				taken = append(taken, u.Serial)
			}
			return apperror.NewDuplicateSerial(taken...)
		}

		units := make([]Unit, 0, len(serials))
		for _, s := range serials {
			units = append(units, Unit{
				Serial:          s,
				ProductName:     productName,
				SupplierOrderID: supplierOrderID,
				UnitCost:        unitCost,
			})
		}
		if err := r.units.InsertBatch(ctx, units); err != nil {
			return apperror.NewPersistence(err)
		}

		logger.Debug(ctx, "supply attached",
			"supplier_order_id", supplierOrderID,
			"product", productName, "count", len(units))
		return nil
	})
}

// AttachDeferred adds serials to a supplier line whose intake was deferred.
// The resulting serial count must not exceed the line quantity; a complete
// line must end up with exactly quantity serials, so callers add serials
// until HasAll becomes true.
func (r *Reconciler) AttachDeferred(ctx context.Context, serials []string, supplierOrderID, productName string, unitCost types.Money, lineQuantity int) error {
	if dup := findBatchDuplicates(serials); len(dup) > 0 {
		return apperror.NewDuplicateSerial(dup...)
	}

	return r.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		recorded, err := r.units.ListBySupplierLine(ctx, supplierOrderID, productName)
		if err != nil {
			return fmt.Errorf("list recorded serials: %w", err)
		}
		if len(recorded)+len(serials) > lineQuantity {
			return apperror.NewValidation(
				fmt.Sprintf("line holds %d of %d serials, cannot add %d more",
					len(recorded), lineQuantity, len(serials)))
		}
		return r.AttachSupply(ctx, serials, supplierOrderID, productName, unitCost)
	})
}

// DetachSupply removes every unit created by a supplier order. If any unit is
// currently sold the whole operation fails and the error names the blocking
// client orders.
func (r *Reconciler) DetachSupply(ctx context.Context, supplierOrderID string) error {
	return r.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		units, err := r.units.ListBySupplierOrder(ctx, supplierOrderID)
		if err != nil {
			return fmt.Errorf("list supplier units: %w", err)
		}
		if blocked := linkedClientOrders(units); len(blocked) > 0 {
			return apperror.NewInUse("supplier order", supplierOrderID, blocked)
		}
		if err := r.units.DeleteBySupplierOrder(ctx, supplierOrderID); err != nil {
			return apperror.NewPersistence(err)
		}
		return nil
	})
}

// RemoveSerials deletes specific units, refusing if any of them is sold.
// Used when an editor shrinks a line's serial set.
func (r *Reconciler) RemoveSerials(ctx context.Context, serials []string) error {
	serials = dedupe(serials)
	if len(serials) == 0 {
		return nil
	}

	return r.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		units, err := r.units.GetBySerials(ctx, serials)
		if err != nil {
			return fmt.Errorf("lookup serials: %w", err)
		}
		if blocked := linkedClientOrders(units); len(blocked) > 0 {
			return apperror.NewInUse("serial set", serials, blocked)
		}
		if err := r.units.DeleteSerials(ctx, serials); err != nil {
			return apperror.NewPersistence(err)
		}
		return nil
	})
}

// ForceRemoveSerials deletes units even when they are sold. Used when the
// user explicitly confirms a cascading removal; the referencing client orders
// keep their lines and the discrepancy is theirs to resolve.
func (r *Reconciler) ForceRemoveSerials(ctx context.Context, serials []string) error {
	serials = dedupe(serials)
	if len(serials) == 0 {
		return nil
	}
	return r.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := r.units.DeleteSerials(ctx, serials); err != nil {
			return apperror.NewPersistence(err)
		}
		logger.Warn(ctx, "serials force-removed", "count", len(serials))
		return nil
	})
}

// LineUnits lists the units recorded for one supplier order line.
func (r *Reconciler) LineUnits(ctx context.Context, supplierOrderID, productName string) ([]Unit, error) {
	return r.units.ListBySupplierLine(ctx, supplierOrderID, productName)
}

// linkedClientOrders collects distinct client order ids holding units.
func linkedClientOrders(units []Unit) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, u := range units {
		if u.ClientOrderID != nil && !seen[*u.ClientOrderID] {
			seen[*u.ClientOrderID] = true
			ids = append(ids, *u.ClientOrderID)
		}
	}
	sort.Strings(ids)
	return ids
}

// dedupe removes duplicates preserving first-seen order.
func dedupe(serials []string) []string {
	seen := make(map[string]bool, len(serials))
	out := make([]string, 0, len(serials))
	for _, s := range serials {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// findBatchDuplicates returns serials appearing more than once in the input.
func findBatchDuplicates(serials []string) []string {
	counts := make(map[string]int, len(serials))
	for _, s := range serials {
		counts[s]++
	}
	var dup []string
	for _, s := range serials {
		if counts[s] > 1 {
			dup = append(dup, s)
			counts[s] = 0
		}
	}
	sort.Strings(dup)
	return dup
}
