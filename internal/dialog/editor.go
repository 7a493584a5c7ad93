package dialog

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"tradeledger/internal/core/apperror"
	"tradeledger/internal/core/types"
	"tradeledger/internal/domain/orders"
)

// editorState enumerates the order editor steps.
type editorState int

const (
	editorChoosingKind editorState = iota
	editorChoosingOrder
	editorChoosingField
	editorChangingDate
	editorChangingCounterparty
	editorChoosingItem
	editorChoosingItemAction
	editorChangingQuantity
	editorEnteringNewSerials
	editorChoosingReleaseSerials
	editorChangingPrice
	editorRemoveBlocked
	editorAddingItem
	editorConfirming
)

// editorFlow mutates an already-finalized order. It keeps the loaded order as
// an immutable snapshot next to a working copy, gathers warehouse side
// effects as it goes, and applies everything atomically after the user
// confirms the diff. Cancelling at any point leaves the store untouched.
type editorFlow struct {
	engine *Engine

	state editorState
	kind  orders.Kind

	supSnapshot *orders.SupplierOrder
	supWorking  *orders.SupplierOrder
	cliSnapshot *orders.ClientOrder
	cliWorking  *orders.ClientOrder

	ops orders.SerialOps
	// priceDelta accumulates client price edits for the compensating entry.
	priceDelta types.Money

	itemIdx int
	item    *itemEntry

	// quantity-change bookkeeping
	newQuantity  int
	serialTarget int
	newSerials   []string
	releasable   []string
	toRelease    []string
	// removal blocked by these client orders, pending force confirmation
	blockedBy []string
}

func newEditorFlow(engine *Engine) *editorFlow {
	return &editorFlow{engine: engine, priceDelta: types.Zero()}
}

func (f *editorFlow) handle(ctx context.Context, ev Event) (Prompt, error) {
	switch f.state {
	case editorChoosingKind:
		return f.handleKind(ev)
	case editorChoosingOrder:
		return f.handleOrderID(ctx, ev)
	case editorChoosingField:
		return f.handleField(ev)
	case editorChangingDate:
		return f.handleDate(ev)
	case editorChangingCounterparty:
		return f.handleCounterparty(ev)
	case editorChoosingItem:
		return f.handleItemChoice(ctx, ev)
	case editorChoosingItemAction:
		return f.handleItemAction(ctx, ev)
	case editorChangingQuantity:
		return f.handleQuantity(ctx, ev)
	case editorEnteringNewSerials:
		return f.handleNewSerial(ctx, ev)
	case editorChoosingReleaseSerials:
		return f.handleReleaseChoice(ev)
	case editorChangingPrice:
		return f.handlePrice(ev)
	case editorRemoveBlocked:
		return f.handleRemoveBlocked(ev)
	case editorAddingItem:
		return f.handleAddItem(ctx, ev)
	case editorConfirming:
		return f.handleConfirm(ctx, ev)
	default:
		return Prompt{}, apperror.NewInternal(fmt.Errorf("order editor in unknown state %d", f.state))
	}
}

// --- loading ---

func (f *editorFlow) handleKind(ev Event) (Prompt, error) {
	switch ev.Callback {
	case cbKindSupplier:
		f.kind = orders.KindSupplier
	case cbKindClient:
		f.kind = orders.KindClient
	default:
		return Prompt{}, apperror.NewValidation("choose the order kind")
	}
	f.state = editorChoosingOrder
	return f.prompt(), nil
}

func (f *editorFlow) handleOrderID(ctx context.Context, ev Event) (Prompt, error) {
	orderID := strings.TrimSpace(ev.Text)
	if orderID == "" {
		return Prompt{}, apperror.NewValidation("enter the order number")
	}

	if f.kind == orders.KindSupplier {
		order, err := f.engine.orders.GetSupplier(ctx, orderID)
		if err != nil {
			return Prompt{}, err
		}
		f.supSnapshot = order
		f.supWorking = order.Clone()
	} else {
		order, err := f.engine.orders.GetClient(ctx, orderID)
		if err != nil {
			return Prompt{}, err
		}
		f.cliSnapshot = order
		f.cliWorking = order.Clone()
	}
	f.state = editorChoosingField
	return f.prompt(), nil
}

// --- field selection ---

func (f *editorFlow) handleField(ev Event) (Prompt, error) {
	switch ev.Callback {
	case fieldDate:
		f.state = editorChangingDate
	case fieldCounterparty:
		f.state = editorChangingCounterparty
	case fieldItems:
		f.state = editorChoosingItem
	case fieldDone:
		f.state = editorConfirming
	default:
		return Prompt{}, apperror.NewValidation("choose what to change")
	}
	return f.prompt(), nil
}

func (f *editorFlow) handleDate(ev Event) (Prompt, error) {
	date, err := types.ParseDate(ev.Text)
	if err != nil {
		return Prompt{}, err
	}
	if f.kind == orders.KindSupplier {
		f.supWorking.Date = date
	} else {
		f.cliWorking.Date = date
	}
	f.state = editorChoosingField
	return f.prompt(), nil
}

func (f *editorFlow) handleCounterparty(ev Event) (Prompt, error) {
	name, err := types.ParseName(ev.Text)
	if err != nil {
		return Prompt{}, err
	}
	if f.kind == orders.KindSupplier {
		f.supWorking.Supplier = name
	} else {
		f.cliWorking.Client = name
	}
	f.state = editorChoosingField
	return f.prompt(), nil
}

// --- items ---

func (f *editorFlow) handleItemChoice(ctx context.Context, ev Event) (Prompt, error) {
	if ev.Callback == itemActionAdd {
		f.item = newItemEntry(f.engine, f.kind == orders.KindSupplier)
		f.state = editorAddingItem
		return f.item.prompt(), nil
	}

	idxStr, ok := strings.CutPrefix(ev.Callback, prefixLine)
	if !ok {
		return Prompt{}, apperror.NewValidation("pick a line or add a new one")
	}
	idx, err := strconv.Atoi(idxStr)
	if err != nil || idx < 0 || idx >= len(*f.lines()) {
		return Prompt{}, apperror.NewNotFound("order line", idxStr)
	}
	f.itemIdx = idx
	f.state = editorChoosingItemAction
	return f.prompt(), nil
}

func (f *editorFlow) handleItemAction(ctx context.Context, ev Event) (Prompt, error) {
	switch ev.Callback {
	case itemActionRemove:
		return f.removeItem(ctx)
	case itemActionQuantity:
		f.state = editorChangingQuantity
		return f.prompt(), nil
	case itemActionPrice:
		f.state = editorChangingPrice
		return f.prompt(), nil
	default:
		return Prompt{}, apperror.NewValidation("choose an action for the line")
	}
}

func (f *editorFlow) removeItem(ctx context.Context) (Prompt, error) {
	lines := f.lines()
	line := (*lines)[f.itemIdx]

	if f.kind == orders.KindSupplier {
		units, err := f.engine.orders.Reconciler().LineUnits(ctx, f.orderID(), line.ProductName)
		if err != nil {
			return Prompt{}, err
		}
		var serials, blocked []string
		seen := make(map[string]bool)
		for _, u := range units {
			serials = append(serials, u.Serial)
			if u.ClientOrderID != nil && !seen[*u.ClientOrderID] {
				seen[*u.ClientOrderID] = true
				blocked = append(blocked, *u.ClientOrderID)
			}
		}
		if len(blocked) > 0 {
			f.blockedBy = blocked
			f.newSerials = serials // reused as the pending removal set
			f.state = editorRemoveBlocked
			return f.prompt(), nil
		}
		f.ops.Remove = append(f.ops.Remove, serials...)
	} else {
		f.ops.Release = append(f.ops.Release, line.Serials...)
	}

	f.dropLine()
	f.state = editorChoosingField
	return prompt(fmt.Sprintf("Removed %s from the order.", line.ProductName),
		f.fieldChoices()...), nil
}

func (f *editorFlow) handleRemoveBlocked(ev Event) (Prompt, error) {
	switch ev.Callback {
	case cbConfirmYes:
		line := (*f.lines())[f.itemIdx]
		f.ops.ForceRemove = append(f.ops.ForceRemove, f.newSerials...)
		f.newSerials = nil
		f.blockedBy = nil
		f.dropLine()
		f.state = editorChoosingField
		return prompt(fmt.Sprintf("%s will be removed together with its sold units.", line.ProductName),
			f.fieldChoices()...), nil
	case cbConfirmNo:
		f.newSerials = nil
		f.blockedBy = nil
		f.state = editorChoosingItem
		return f.prompt(), nil
	default:
		return Prompt{}, apperror.NewValidation("confirm or abort the removal")
	}
}

func (f *editorFlow) dropLine() {
	lines := f.lines()
	*lines = append((*lines)[:f.itemIdx], (*lines)[f.itemIdx+1:]...)
	for i := range *lines {
		(*lines)[i].LineNo = i + 1
	}
}

func (f *editorFlow) handleQuantity(ctx context.Context, ev Event) (Prompt, error) {
	quantity, err := types.ParseQuantity(ev.Text)
	if err != nil {
		return Prompt{}, err
	}
	lines := f.lines()
	line := &(*lines)[f.itemIdx]

	if quantity == line.Quantity {
		f.state = editorChoosingField
		return f.prompt(), nil
	}

	if f.kind == orders.KindClient {
		if len(line.Serials) > 0 {
			return Prompt{}, apperror.NewValidation(
				"this line is tied to serial numbers; remove it and re-add with the right serials")
		}
		line.Quantity = quantity
		line.Recalculate()
		f.state = editorChoosingField
		return f.prompt(), nil
	}

	units, err := f.engine.orders.Reconciler().LineUnits(ctx, f.orderID(), line.ProductName)
	if err != nil {
		return Prompt{}, err
	}

	if quantity > line.Quantity {
		delta := quantity - line.Quantity
		f.newQuantity = quantity
		if len(units) == 0 {
			// Intake was deferred; the serial set stays deferred.
			line.Quantity = quantity
			line.Recalculate()
			f.state = editorChoosingField
			return f.prompt(), nil
		}
		f.serialTarget = delta
		f.newSerials = nil
		f.state = editorEnteringNewSerials
		return f.prompt(), nil
	}

	// Decrease: the surplus serials must be released, and only unlinked
	// units qualify.
	surplus := line.Quantity - quantity
	var unlinked int
	f.releasable = nil
	for _, u := range units {
		if u.InStock() {
			f.releasable = append(f.releasable, u.Serial)
			unlinked++
		}
	}
	if len(units) == 0 {
		line.Quantity = quantity
		line.Recalculate()
		f.state = editorChoosingField
		return f.prompt(), nil
	}
	if unlinked < surplus {
		return Prompt{}, apperror.NewValidation(
			fmt.Sprintf("need to release %d unit(s) but only %d are unsold", surplus, unlinked))
	}
	f.newQuantity = quantity
	f.serialTarget = surplus
	f.toRelease = nil
	f.state = editorChoosingReleaseSerials
	return f.prompt(), nil
}

func (f *editorFlow) handleNewSerial(ctx context.Context, ev Event) (Prompt, error) {
	serial := strings.TrimSpace(ev.Text)
	if serial == "" {
		return Prompt{}, apperror.NewValidation("serial number must not be empty")
	}
	for _, s := range f.newSerials {
		if s == serial {
			return Prompt{}, apperror.NewDuplicateSerial(serial)
		}
	}
	cls, err := f.engine.orders.Reconciler().Classify(ctx, []string{serial})
	if err != nil {
		return Prompt{}, err
	}
	if len(cls.Unknown) == 0 {
		return Prompt{}, apperror.NewDuplicateSerial(serial)
	}

	f.newSerials = append(f.newSerials, serial)
	if len(f.newSerials) < f.serialTarget {
		return f.prompt(), nil
	}

	lines := f.lines()
	line := &(*lines)[f.itemIdx]
	f.ops.Attach = append(f.ops.Attach, orders.AttachBatch{
		SupplierOrderID: f.orderID(),
		ProductName:     line.ProductName,
		UnitCost:        line.UnitPrice,
		Serials:         append([]string(nil), f.newSerials...),
		LineQuantity:    f.newQuantity,
	})
	line.Quantity = f.newQuantity
	if len(line.Serials) > 0 {
		line.Serials = append(line.Serials, f.newSerials...)
	}
	line.Recalculate()
	f.newSerials = nil
	f.state = editorChoosingField
	return f.prompt(), nil
}

func (f *editorFlow) handleReleaseChoice(ev Event) (Prompt, error) {
	serial, ok := strings.CutPrefix(ev.Callback, prefixSerial)
	if !ok {
		return Prompt{}, apperror.NewValidation("pick a serial to release")
	}
	found := false
	for i, s := range f.releasable {
		if s == serial {
			f.releasable = append(f.releasable[:i], f.releasable[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		return Prompt{}, apperror.NewNotFound("serial", serial)
	}

	f.toRelease = append(f.toRelease, serial)
	if len(f.toRelease) < f.serialTarget {
		return f.prompt(), nil
	}

	lines := f.lines()
	line := &(*lines)[f.itemIdx]
	f.ops.Remove = append(f.ops.Remove, f.toRelease...)
	line.Quantity = f.newQuantity
	if len(line.Serials) > 0 {
		removed := make(map[string]bool, len(f.toRelease))
		for _, s := range f.toRelease {
			removed[s] = true
		}
		kept := line.Serials[:0]
		for _, s := range line.Serials {
			if !removed[s] {
				kept = append(kept, s)
			}
		}
		line.Serials = kept
	}
	line.Recalculate()
	f.toRelease = nil
	f.state = editorChoosingField
	return f.prompt(), nil
}

func (f *editorFlow) handlePrice(ev Event) (Prompt, error) {
	price, err := types.ParsePrice(ev.Text)
	if err != nil {
		return Prompt{}, err
	}
	lines := f.lines()
	line := &(*lines)[f.itemIdx]

	oldTotal := line.TotalPrice
	line.UnitPrice = price
	line.Recalculate()

	if f.kind == orders.KindClient {
		f.priceDelta = f.priceDelta.Add(line.TotalPrice.Sub(oldTotal))
	}
	f.state = editorChoosingField
	return f.prompt(), nil
}

func (f *editorFlow) handleAddItem(ctx context.Context, ev Event) (Prompt, error) {
	p, done, err := f.item.handle(ctx, ev)
	if err != nil {
		return p, err
	}
	if !done {
		return p, nil
	}

	lines := f.lines()
	line := f.item.line(len(*lines) + 1)
	*lines = append(*lines, line)

	if f.kind == orders.KindSupplier && len(line.Serials) > 0 {
		f.ops.Attach = append(f.ops.Attach, orders.AttachBatch{
			SupplierOrderID: f.orderID(),
			ProductName:     line.ProductName,
			UnitCost:        line.UnitPrice,
			Serials:         line.Serials,
		})
	}
	f.item = nil
	f.state = editorChoosingField
	return f.prompt(), nil
}

// --- confirmation ---

func (f *editorFlow) handleConfirm(ctx context.Context, ev Event) (Prompt, error) {
	switch ev.Callback {
	case cbConfirmYes:
		if f.kind == orders.KindSupplier {
			if err := f.engine.orders.CommitSupplierEdit(ctx, f.supWorking, f.ops); err != nil {
				return Prompt{}, err
			}
			return terminal(fmt.Sprintf("Order %s updated.", f.supWorking.ID)), nil
		}
		if err := f.engine.orders.CommitClientEdit(ctx, f.cliWorking, f.ops, f.priceDelta, f.engine.today()); err != nil {
			return Prompt{}, err
		}
		return terminal(fmt.Sprintf("Order %s updated.", f.cliWorking.ID)), nil
	case cbConfirmNo:
		return terminal("Edit discarded, nothing changed."), nil
	default:
		return Prompt{}, apperror.NewValidation("confirm or discard the changes")
	}
}

func (f *editorFlow) diff() orders.Diff {
	if f.kind == orders.KindSupplier {
		return orders.DiffSupplier(f.supSnapshot, f.supWorking)
	}
	return orders.DiffClient(f.cliSnapshot, f.cliWorking)
}

// --- helpers ---

func (f *editorFlow) lines() *[]orders.Line {
	if f.kind == orders.KindSupplier {
		return &f.supWorking.Lines
	}
	return &f.cliWorking.Lines
}

func (f *editorFlow) orderID() string {
	if f.kind == orders.KindSupplier {
		return f.supWorking.ID
	}
	return f.cliWorking.ID
}

func (f *editorFlow) date() time.Time {
	if f.kind == orders.KindSupplier {
		return f.supWorking.Date
	}
	return f.cliWorking.Date
}

func (f *editorFlow) counterparty() string {
	if f.kind == orders.KindSupplier {
		return f.supWorking.Supplier
	}
	return f.cliWorking.Client
}

func (f *editorFlow) fieldChoices() []Choice {
	return []Choice{
		{Label: "Date", Callback: fieldDate},
		{Label: "Counterparty", Callback: fieldCounterparty},
		{Label: "Items", Callback: fieldItems},
		{Label: "Review and save", Callback: fieldDone},
		cancelChoice,
	}
}

// prompt returns the question for the current editor step.
func (f *editorFlow) prompt() Prompt {
	switch f.state {
	case editorChoosingKind:
		return prompt("Which order kind?",
			Choice{Label: "Supplier order", Callback: cbKindSupplier},
			Choice{Label: "Client order", Callback: cbKindClient},
			cancelChoice)
	case editorChoosingOrder:
		return prompt("Enter the order number.", cancelChoice)
	case editorChoosingField:
		return prompt(fmt.Sprintf("Editing %s (%s, %s). What do you want to change?",
			f.orderID(), f.counterparty(), f.date().Format(types.DateFormat)),
			f.fieldChoices()...)
	case editorChangingDate:
		return prompt("Enter the new date as day.month.year.", cancelChoice)
	case editorChangingCounterparty:
		return prompt("Enter the new name.", cancelChoice)
	case editorChoosingItem:
		lines := *f.lines()
		choices := make([]Choice, 0, len(lines)+2)
		for i, l := range lines {
			choices = append(choices, Choice{
				Label:    fmt.Sprintf("%s x%d @ %s", l.ProductName, l.Quantity, l.UnitPrice),
				Callback: prefixLine + strconv.Itoa(i),
			})
		}
		choices = append(choices,
			Choice{Label: "Add item", Callback: itemActionAdd},
			cancelChoice)
		return prompt("Pick a line to edit:", choices...)
	case editorChoosingItemAction:
		line := (*f.lines())[f.itemIdx]
		return prompt(fmt.Sprintf("%s x%d @ %s:", line.ProductName, line.Quantity, line.UnitPrice),
			Choice{Label: "Remove", Callback: itemActionRemove},
			Choice{Label: "Change quantity", Callback: itemActionQuantity},
			Choice{Label: "Change price", Callback: itemActionPrice},
			cancelChoice)
	case editorChangingQuantity:
		return prompt("Enter the new quantity.", cancelChoice)
	case editorEnteringNewSerials:
		return prompt(fmt.Sprintf("Enter new serial %d of %d.", len(f.newSerials)+1, f.serialTarget), cancelChoice)
	case editorChoosingReleaseSerials:
		choices := make([]Choice, 0, len(f.releasable)+1)
		for _, s := range f.releasable {
			choices = append(choices, Choice{Label: s, Callback: prefixSerial + s})
		}
		choices = append(choices, cancelChoice)
		return prompt(fmt.Sprintf("Pick serial to release (%d of %d chosen):",
			len(f.toRelease), f.serialTarget), choices...)
	case editorChangingPrice:
		return prompt("Enter the new unit price.", cancelChoice)
	case editorRemoveBlocked:
		return prompt(fmt.Sprintf("Units of this line are sold in: %s. Remove anyway?",
			strings.Join(f.blockedBy, ", ")),
			Choice{Label: "Remove anyway", Callback: cbConfirmYes},
			Choice{Label: "Keep the line", Callback: cbConfirmNo},
			cancelChoice)
	case editorAddingItem:
		return f.item.prompt()
	case editorConfirming:
		return prompt(renderDiff(f.diff()),
			Choice{Label: "Save", Callback: cbConfirmYes},
			Choice{Label: "Discard", Callback: cbConfirmNo})
	default:
		return MainMenu()
	}
}

// renderDiff formats the confirmation summary.
func renderDiff(d orders.Diff) string {
	if d.Empty() {
		return "No changes were made. Save anyway?"
	}
	var b strings.Builder
	b.WriteString("About to apply:\n")
	if d.DateChanged {
		fmt.Fprintf(&b, "- date: %s -> %s\n",
			d.OldDate.Format(types.DateFormat), d.NewDate.Format(types.DateFormat))
	}
	if d.CounterpartyChanged {
		fmt.Fprintf(&b, "- counterparty: %s -> %s\n", d.OldCounterparty, d.NewCounterparty)
	}
	for _, l := range d.Added {
		fmt.Fprintf(&b, "+ %s x%d @ %s\n", l.ProductName, l.Quantity, l.UnitPrice)
	}
	for _, l := range d.Removed {
		fmt.Fprintf(&b, "- %s x%d @ %s\n", l.ProductName, l.Quantity, l.UnitPrice)
	}
	for _, c := range d.Changed {
		fmt.Fprintf(&b, "~ %s: x%d @ %s -> x%d @ %s\n", c.After.ProductName,
			c.Before.Quantity, c.Before.UnitPrice, c.After.Quantity, c.After.UnitPrice)
	}
	if delta := d.TotalDelta(); !delta.IsZero() {
		fmt.Fprintf(&b, "Total change: %s\n", delta)
	}
	b.WriteString("Confirm?")
	return b.String()
}
