package dialog

import (
	"context"
	"fmt"
	"strings"

	"tradeledger/internal/core/apperror"
	"tradeledger/internal/core/types"
	"tradeledger/internal/domain/catalog"
	"tradeledger/internal/domain/orders"
)

// itemState enumerates the steps of entering one line item.
type itemState int

const (
	itemStateProductQuery itemState = iota
	itemStateChoosingMatch
	itemStateQuantity
	itemStatePrice
	itemStateSerialTiming
	itemStateSerials
)

// itemEntry collects one line item step by step. The supplier flow also
// gathers serial numbers; manual client lines never carry serials. The same
// sub-flow serves the order builder and the editor's add-item action.
type itemEntry struct {
	engine      *Engine
	withSerials bool

	state    itemState
	product  catalog.Product
	matches  []catalog.Product
	quantity int
	price    types.Money
	serials  []string
}

func newItemEntry(engine *Engine, withSerials bool) *itemEntry {
	return &itemEntry{engine: engine, withSerials: withSerials}
}

// line materializes the collected item.
func (it *itemEntry) line(no int) orders.Line {
	l := orders.NewLine(no, it.product.Code, it.product.Name, it.quantity, it.price)
	l.Serials = it.serials
	return l
}

// handle advances the sub-flow one event. done is true once the item is
// complete.
func (it *itemEntry) handle(ctx context.Context, ev Event) (p Prompt, done bool, err error) {
	switch it.state {
	case itemStateProductQuery:
		return it.handleProductQuery(ctx, ev)
	case itemStateChoosingMatch:
		return it.handleMatchChoice(ev)
	case itemStateQuantity:
		return it.handleQuantity(ev)
	case itemStatePrice:
		return it.handlePrice(ev)
	case itemStateSerialTiming:
		return it.handleSerialTiming(ev)
	case itemStateSerials:
		return it.handleSerial(ctx, ev)
	default:
		return Prompt{}, false, apperror.NewInternal(fmt.Errorf("item entry in unknown state %d", it.state))
	}
}

func (it *itemEntry) handleProductQuery(ctx context.Context, ev Event) (Prompt, bool, error) {
	query := strings.TrimSpace(ev.Text)
	if query == "" {
		return Prompt{}, false, apperror.NewValidation("enter part of a product code or name")
	}

	matches, err := it.engine.directory.Search(ctx, query)
	if err != nil {
		return Prompt{}, false, err
	}
	switch len(matches) {
	case 0:
		return Prompt{}, false, apperror.NewNotFound("product", query)
	case 1:
		it.product = matches[0]
		it.state = itemStateQuantity
		return it.prompt(), false, nil
	default:
		it.matches = matches
		it.state = itemStateChoosingMatch
		return it.prompt(), false, nil
	}
}

func (it *itemEntry) handleMatchChoice(ev Event) (Prompt, bool, error) {
	code, ok := strings.CutPrefix(ev.Callback, prefixProduct)
	if !ok {
		return Prompt{}, false, apperror.NewValidation("pick one of the listed products")
	}
	for _, p := range it.matches {
		if p.Code == code {
			it.product = p
			it.matches = nil
			it.state = itemStateQuantity
			return it.prompt(), false, nil
		}
	}
	return Prompt{}, false, apperror.NewNotFound("product", code)
}

func (it *itemEntry) handleQuantity(ev Event) (Prompt, bool, error) {
	quantity, err := types.ParseQuantity(ev.Text)
	if err != nil {
		return Prompt{}, false, err
	}
	it.quantity = quantity
	it.state = itemStatePrice
	return it.prompt(), false, nil
}

func (it *itemEntry) handlePrice(ev Event) (Prompt, bool, error) {
	price, err := types.ParsePrice(ev.Text)
	if err != nil {
		return Prompt{}, false, err
	}
	it.price = price
	if !it.withSerials {
		return Prompt{}, true, nil
	}
	it.state = itemStateSerialTiming
	return it.prompt(), false, nil
}

func (it *itemEntry) handleSerialTiming(ev Event) (Prompt, bool, error) {
	switch ev.Callback {
	case cbSerialsNow:
		it.state = itemStateSerials
		return it.prompt(), false, nil
	case cbSerialsLater:
		// Deferred intake: the item completes with an empty serial set.
		it.serials = nil
		return Prompt{}, true, nil
	default:
		return Prompt{}, false, apperror.NewValidation("choose whether to enter serials now or later")
	}
}

func (it *itemEntry) handleSerial(ctx context.Context, ev Event) (Prompt, bool, error) {
	serial := strings.TrimSpace(ev.Text)
	if serial == "" {
		return Prompt{}, false, apperror.NewValidation("serial number must not be empty")
	}
	for _, s := range it.serials {
		if s == serial {
			return Prompt{}, false, apperror.NewDuplicateSerial(serial)
		}
	}

	// The serial must be new to the whole system, not just this session.
	cls, err := it.engine.orders.Reconciler().Classify(ctx, []string{serial})
	if err != nil {
		return Prompt{}, false, err
	}
	if len(cls.Unknown) == 0 {
		return Prompt{}, false, apperror.NewDuplicateSerial(serial)
	}

	it.serials = append(it.serials, serial)
	if len(it.serials) == it.quantity {
		return Prompt{}, true, nil
	}
	return it.prompt(), false, nil
}

// prompt returns the question for the current step.
func (it *itemEntry) prompt() Prompt {
	switch it.state {
	case itemStateProductQuery:
		return prompt("Enter part of a product code or name.", cancelChoice)
	case itemStateChoosingMatch:
		choices := make([]Choice, 0, len(it.matches)+1)
		for _, p := range it.matches {
			choices = append(choices, Choice{
				Label:    fmt.Sprintf("%s (%s)", p.Name, p.Code),
				Callback: prefixProduct + p.Code,
			})
		}
		choices = append(choices, cancelChoice)
		return prompt("Several products match, pick one:", choices...)
	case itemStateQuantity:
		return prompt(fmt.Sprintf("%s: enter quantity.", it.product.Name), cancelChoice)
	case itemStatePrice:
		return prompt("Enter unit price.", cancelChoice)
	case itemStateSerialTiming:
		return prompt("Enter serial numbers now or later?",
			Choice{Label: "Now", Callback: cbSerialsNow},
			Choice{Label: "Later", Callback: cbSerialsLater},
			cancelChoice)
	case itemStateSerials:
		return prompt(fmt.Sprintf("Enter serial number %d of %d.", len(it.serials)+1, it.quantity), cancelChoice)
	default:
		return MainMenu()
	}
}
