package dialog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tradeledger/internal/core/apperror"
	"tradeledger/internal/core/types"
	"tradeledger/internal/domain/orders"
	"tradeledger/internal/domain/warehouse"
)

// builderState enumerates the order builder steps.
type builderState int

const (
	builderChoosingDate builderState = iota
	builderCustomDate
	builderCounterparty
	builderCollectingClaims
	builderOfferSupplyFix
	builderPricingGroup
	builderItem
	builderItemAdded
)

// builderFlow walks the user through creating one order. The draft lives
// entirely in this struct until finalize; cancelling discards it without any
// store writes.
type builderFlow struct {
	engine   *Engine
	kind     orders.Kind
	bySerial bool

	state        builderState
	date         time.Time
	counterparty string
	lines        []orders.Line
	item         *itemEntry

	// by-serial client intake
	claims   []string
	conflict warehouse.Classification
	groups   []warehouse.SupplyGroup
	groupIdx int
	nested   *builderFlow
}

func newBuilderFlow(engine *Engine, kind orders.Kind, bySerial bool) *builderFlow {
	return &builderFlow{engine: engine, kind: kind, bySerial: bySerial}
}

func (f *builderFlow) handle(ctx context.Context, ev Event) (Prompt, error) {
	// A nested supplier order in progress swallows all events until done.
	if f.nested != nil {
		p, err := f.nested.handle(ctx, ev)
		if err != nil {
			return p, err
		}
		if p.Terminal {
			f.nested = nil
			f.state = builderCollectingClaims
			return prompt(p.Text+"\nSend more serials, or press Done to re-check.",
				Choice{Label: "Done", Callback: cbSerialsDone}, cancelChoice), nil
		}
		return p, nil
	}

	switch f.state {
	case builderChoosingDate:
		return f.handleDate(ctx, ev)
	case builderCustomDate:
		return f.handleCustomDate(ctx, ev)
	case builderCounterparty:
		return f.handleCounterparty(ev)
	case builderCollectingClaims:
		return f.handleClaimSerial(ctx, ev)
	case builderOfferSupplyFix:
		return f.handleSupplyFix(ev)
	case builderPricingGroup:
		return f.handleGroupPrice(ev)
	case builderItem:
		return f.handleItem(ctx, ev)
	case builderItemAdded:
		return f.handleItemAdded(ctx, ev)
	default:
		return Prompt{}, apperror.NewInternal(fmt.Errorf("order builder in unknown state %d", f.state))
	}
}

func (f *builderFlow) handleDate(ctx context.Context, ev Event) (Prompt, error) {
	switch {
	case ev.Callback == cbDateToday:
		f.date = f.engine.today()
	case ev.Callback == cbDateCustom:
		f.state = builderCustomDate
		return f.prompt(), nil
	case ev.Text != "":
		date, err := types.ParseDate(ev.Text)
		if err != nil {
			return Prompt{}, err
		}
		f.date = date
	default:
		return Prompt{}, apperror.NewValidation("choose a date")
	}
	f.state = builderCounterparty
	return f.counterpartyPrompt(ctx), nil
}

func (f *builderFlow) handleCustomDate(ctx context.Context, ev Event) (Prompt, error) {
	date, err := types.ParseDate(ev.Text)
	if err != nil {
		return Prompt{}, err
	}
	f.date = date
	f.state = builderCounterparty
	return f.counterpartyPrompt(ctx), nil
}

func (f *builderFlow) handleCounterparty(ev Event) (Prompt, error) {
	var name string
	if picked, ok := strings.CutPrefix(ev.Callback, prefixName); ok {
		name = picked
	} else {
		parsed, err := types.ParseName(ev.Text)
		if err != nil {
			return Prompt{}, err
		}
		name = parsed
	}
	f.counterparty = name

	if f.bySerial {
		f.state = builderCollectingClaims
	} else {
		f.startItem()
	}
	return f.prompt(), nil
}

func (f *builderFlow) startItem() {
	f.item = newItemEntry(f.engine, f.kind == orders.KindSupplier)
	f.state = builderItem
}

func (f *builderFlow) handleItem(ctx context.Context, ev Event) (Prompt, error) {
	p, done, err := f.item.handle(ctx, ev)
	if err != nil {
		return p, err
	}
	if !done {
		return p, nil
	}
	f.lines = append(f.lines, f.item.line(len(f.lines)+1))
	f.item = nil
	f.state = builderItemAdded
	return f.prompt(), nil
}

func (f *builderFlow) handleItemAdded(ctx context.Context, ev Event) (Prompt, error) {
	switch ev.Callback {
	case cbItemAdd:
		f.startItem()
		return f.prompt(), nil
	case cbItemFinalize:
		return f.finalize(ctx)
	default:
		return Prompt{}, apperror.NewValidation("add another item or finalize the order")
	}
}

// --- by-serial client intake ---

func (f *builderFlow) handleClaimSerial(ctx context.Context, ev Event) (Prompt, error) {
	if ev.Callback == cbSerialsDone {
		if len(f.claims) == 0 {
			return Prompt{}, apperror.NewValidation("enter at least one serial number first")
		}
		return f.classifyClaims(ctx)
	}

	serial := strings.TrimSpace(ev.Text)
	if serial == "" {
		return Prompt{}, apperror.NewValidation("serial number must not be empty")
	}
	for _, s := range f.claims {
		if s == serial {
			return Prompt{}, apperror.NewDuplicateSerial(serial)
		}
	}
	f.claims = append(f.claims, serial)
	return f.prompt(), nil
}

func (f *builderFlow) classifyClaims(ctx context.Context) (Prompt, error) {
	cls, err := f.engine.orders.Reconciler().Classify(ctx, f.claims)
	if err != nil {
		return Prompt{}, err
	}
	if !cls.Clean() {
		f.conflict = cls
		f.state = builderOfferSupplyFix
		return f.prompt(), nil
	}
	f.groups = warehouse.GroupBySupply(cls.Available)
	f.groupIdx = 0
	f.state = builderPricingGroup
	return f.prompt(), nil
}

func (f *builderFlow) handleSupplyFix(ev Event) (Prompt, error) {
	switch ev.Callback {
	case cbSupplyFix:
		// Register the missing stock through a nested supplier order, then
		// come back and re-check the serials.
		f.nested = newBuilderFlow(f.engine, orders.KindSupplier, false)
		return f.nested.prompt(), nil
	case cbSupplyAbort:
		// Drop the problem serials and continue with what is available.
		available := make(map[string]bool)
		for _, u := range f.conflict.Available {
			available[u.Serial] = true
		}
		var kept []string
		for _, s := range f.claims {
			if available[s] {
				kept = append(kept, s)
			}
		}
		f.claims = kept
		f.conflict = warehouse.Classification{}
		f.state = builderCollectingClaims
		if len(f.claims) == 0 {
			return prompt("No usable serials left. Enter serial numbers.", cancelChoice), nil
		}
		return prompt(fmt.Sprintf("Continuing with %d serial(s). Press Done to re-check.", len(f.claims)),
			Choice{Label: "Done", Callback: cbSerialsDone}, cancelChoice), nil
	default:
		return Prompt{}, apperror.NewValidation("choose how to handle the unavailable serials")
	}
}

func (f *builderFlow) handleGroupPrice(ev Event) (Prompt, error) {
	price, err := types.ParsePrice(ev.Text)
	if err != nil {
		return Prompt{}, err
	}

	group := f.groups[f.groupIdx]
	line := orders.NewLine(len(f.lines)+1, "", group.ProductName, group.Quantity(), price)
	line.Serials = group.Serials
	line.SupplierOrderID = group.SupplierOrderID
	f.lines = append(f.lines, line)

	f.groupIdx++
	if f.groupIdx < len(f.groups) {
		return f.prompt(), nil
	}
	f.state = builderItemAdded
	return f.prompt(), nil
}

// --- finalize ---

func (f *builderFlow) finalize(ctx context.Context) (Prompt, error) {
	if f.kind == orders.KindSupplier {
		order := &orders.SupplierOrder{Date: f.date, Supplier: f.counterparty, Lines: f.lines}
		if err := f.engine.orders.FinalizeSupplier(ctx, order); err != nil {
			return Prompt{}, err
		}
		return terminal(fmt.Sprintf("Supplier order %s saved, total %s.", order.ID, order.Total())), nil
	}

	order := &orders.ClientOrder{Date: f.date, Client: f.counterparty, Lines: f.lines}
	if err := f.engine.orders.FinalizeClient(ctx, order); err != nil {
		return Prompt{}, err
	}
	return terminal(fmt.Sprintf("Client order %s saved, total %s.", order.ID, order.Total())), nil
}

// prompt returns the question for the current builder step.
func (f *builderFlow) prompt() Prompt {
	if f.nested != nil {
		return f.nested.prompt()
	}
	switch f.state {
	case builderChoosingDate:
		return prompt("Order date?",
			Choice{Label: "Today", Callback: cbDateToday},
			Choice{Label: "Another date", Callback: cbDateCustom},
			cancelChoice)
	case builderCustomDate:
		return prompt("Enter the date as day.month.year.", cancelChoice)
	case builderCounterparty:
		return f.counterpartyPrompt(context.Background())
	case builderCollectingClaims:
		return prompt(fmt.Sprintf("Enter serial number (%d so far), or press Done.", len(f.claims)),
			Choice{Label: "Done", Callback: cbSerialsDone}, cancelChoice)
	case builderOfferSupplyFix:
		var parts []string
		if sold := f.conflict.SoldSerials(); len(sold) > 0 {
			parts = append(parts, "already sold: "+strings.Join(sold, ", "))
		}
		if len(f.conflict.Unknown) > 0 {
			parts = append(parts, "not in warehouse: "+strings.Join(f.conflict.Unknown, ", "))
		}
		return prompt("Some serials are unavailable ("+strings.Join(parts, "; ")+"). Create a supplier order for the missing stock?",
			Choice{Label: "Create supplier order", Callback: cbSupplyFix},
			Choice{Label: "Skip them", Callback: cbSupplyAbort},
			cancelChoice)
	case builderPricingGroup:
		group := f.groups[f.groupIdx]
		return prompt(fmt.Sprintf("Sale price per unit for %s (%d pcs from %s)?",
			group.ProductName, group.Quantity(), group.SupplierOrderID), cancelChoice)
	case builderItem:
		return f.item.prompt()
	case builderItemAdded:
		last := f.lines[len(f.lines)-1]
		return prompt(fmt.Sprintf("Added %s x%d for %s. %d item(s) in the order.",
			last.ProductName, last.Quantity, last.TotalPrice, len(f.lines)),
			Choice{Label: "Add another item", Callback: cbItemAdd},
			Choice{Label: "Finalize", Callback: cbItemFinalize},
			cancelChoice)
	default:
		return MainMenu()
	}
}

func (f *builderFlow) counterpartyPrompt(ctx context.Context) Prompt {
	kind := orders.CounterpartySupplier
	who := "supplier"
	if f.kind == orders.KindClient {
		kind = orders.CounterpartyClient
		who = "client"
	}

	choices := []Choice{cancelChoice}
	if names, err := f.engine.orders.Counterparties(ctx, kind); err == nil {
		known := make([]Choice, 0, len(names))
		for _, n := range names {
			known = append(known, Choice{Label: n, Callback: prefixName + n})
		}
		choices = append(known, cancelChoice)
	}
	return prompt(fmt.Sprintf("Enter the %s name.", who), choices...)
}
