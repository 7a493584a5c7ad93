package dialog

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"tradeledger/internal/core/apperror"
	"tradeledger/internal/core/types"
	"tradeledger/internal/domain/cash"
	"tradeledger/internal/domain/orders"
	"tradeledger/internal/domain/reports"
)

// --- delete flow ---

type deleteState int

const (
	deleteChoosingKind deleteState = iota
	deleteChoosingOrder
	deleteConfirming
)

// deleteFlow removes one order after an explicit confirmation.
type deleteFlow struct {
	engine  *Engine
	state   deleteState
	kind    orders.Kind
	orderID string
	summary string
}

func newDeleteFlow(engine *Engine) *deleteFlow {
	return &deleteFlow{engine: engine}
}

func (f *deleteFlow) handle(ctx context.Context, ev Event) (Prompt, error) {
	switch f.state {
	case deleteChoosingKind:
		switch ev.Callback {
		case cbKindSupplier:
			f.kind = orders.KindSupplier
		case cbKindClient:
			f.kind = orders.KindClient
		default:
			return Prompt{}, apperror.NewValidation("choose the order kind")
		}
		f.state = deleteChoosingOrder
		return f.prompt(), nil

	case deleteChoosingOrder:
		orderID := strings.TrimSpace(ev.Text)
		if orderID == "" {
			return Prompt{}, apperror.NewValidation("enter the order number")
		}
		if f.kind == orders.KindSupplier {
			order, err := f.engine.orders.GetSupplier(ctx, orderID)
			if err != nil {
				return Prompt{}, err
			}
			f.summary = fmt.Sprintf("%s, %s, %d line(s), total %s",
				order.Supplier, order.Date.Format(types.DateFormat), len(order.Lines), order.Total())
		} else {
			order, err := f.engine.orders.GetClient(ctx, orderID)
			if err != nil {
				return Prompt{}, err
			}
			f.summary = fmt.Sprintf("%s, %s, %d line(s), total %s",
				order.Client, order.Date.Format(types.DateFormat), len(order.Lines), order.Total())
		}
		f.orderID = orderID
		f.state = deleteConfirming
		return f.prompt(), nil

	case deleteConfirming:
		switch ev.Callback {
		case cbConfirmYes:
			var err error
			if f.kind == orders.KindSupplier {
				err = f.engine.orders.DeleteSupplier(ctx, f.orderID)
			} else {
				err = f.engine.orders.DeleteClient(ctx, f.orderID)
			}
			if err != nil {
				return Prompt{}, err
			}
			return terminal(fmt.Sprintf("Order %s deleted.", f.orderID)), nil
		case cbConfirmNo:
			return terminal("Nothing deleted."), nil
		default:
			return Prompt{}, apperror.NewValidation("confirm or abort the deletion")
		}

	default:
		return Prompt{}, apperror.NewInternal(fmt.Errorf("delete flow in unknown state %d", f.state))
	}
}

func (f *deleteFlow) prompt() Prompt {
	switch f.state {
	case deleteChoosingKind:
		return prompt("Delete which order kind?",
			Choice{Label: "Supplier order", Callback: cbKindSupplier},
			Choice{Label: "Client order", Callback: cbKindClient},
			cancelChoice)
	case deleteChoosingOrder:
		return prompt("Enter the order number to delete.", cancelChoice)
	case deleteConfirming:
		return prompt(fmt.Sprintf("Delete %s (%s)?", f.orderID, f.summary),
			Choice{Label: "Delete", Callback: cbConfirmYes},
			Choice{Label: "Keep", Callback: cbConfirmNo})
	default:
		return MainMenu()
	}
}

// --- search flow ---

type searchState int

const (
	searchChoosingField searchState = iota
	searchEnteringValue
)

// searchFlow finds orders of both kinds by a single criterion.
type searchFlow struct {
	engine *Engine
	state  searchState
	field  string
}

func newSearchFlow(engine *Engine) *searchFlow {
	return &searchFlow{engine: engine}
}

func (f *searchFlow) handle(ctx context.Context, ev Event) (Prompt, error) {
	switch f.state {
	case searchChoosingField:
		switch ev.Callback {
		case cbSearchID, cbSearchDate, cbSearchProduct, cbSearchSerial:
			f.field = ev.Callback
		default:
			return Prompt{}, apperror.NewValidation("choose what to search by")
		}
		f.state = searchEnteringValue
		return f.prompt(), nil

	case searchEnteringValue:
		value := strings.TrimSpace(ev.Text)
		if value == "" {
			return Prompt{}, apperror.NewValidation("enter a search value")
		}
		filter, err := f.buildFilter(value)
		if err != nil {
			return Prompt{}, err
		}

		suppliers, err := f.engine.orders.SearchSuppliers(ctx, filter)
		if err != nil {
			return Prompt{}, err
		}
		clients, err := f.engine.orders.SearchClients(ctx, filter)
		if err != nil {
			return Prompt{}, err
		}
		return terminal(renderSearchResults(suppliers, clients)), nil

	default:
		return Prompt{}, apperror.NewInternal(fmt.Errorf("search flow in unknown state %d", f.state))
	}
}

func (f *searchFlow) prompt() Prompt {
	switch f.state {
	case searchChoosingField:
		return prompt("Search by what?",
			Choice{Label: "Order number", Callback: cbSearchID},
			Choice{Label: "Date", Callback: cbSearchDate},
			Choice{Label: "Product", Callback: cbSearchProduct},
			Choice{Label: "Serial number", Callback: cbSearchSerial},
			cancelChoice)
	case searchEnteringValue:
		return prompt("Enter the search value.", cancelChoice)
	default:
		return MainMenu()
	}
}

func (f *searchFlow) buildFilter(value string) (orders.SearchFilter, error) {
	var filter orders.SearchFilter
	switch f.field {
	case cbSearchID:
		filter.ID = value
	case cbSearchDate:
		date, err := types.ParseDate(value)
		if err != nil {
			return filter, err
		}
		filter.Date = &date
	case cbSearchProduct:
		filter.ProductQuery = value
	case cbSearchSerial:
		filter.Serial = value
	}
	return filter, nil
}

func renderSearchResults(suppliers []orders.SupplierOrder, clients []orders.ClientOrder) string {
	if len(suppliers) == 0 && len(clients) == 0 {
		return "Nothing found."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d order(s).\n", len(suppliers)+len(clients))
	for _, o := range suppliers {
		fmt.Fprintf(&b, "%s  %s  %s  %s\n",
			o.ID, o.Date.Format(types.DateFormat), o.Supplier, o.Total())
	}
	for _, o := range clients {
		fmt.Fprintf(&b, "%s  %s  %s  %s\n",
			o.ID, o.Date.Format(types.DateFormat), o.Client, o.Total())
	}
	return strings.TrimRight(b.String(), "\n")
}

// --- period report flow ---

type reportState int

const (
	reportEnteringFrom reportState = iota
	reportEnteringTo
)

// reportFlow asks for a date range and renders the period report.
type reportFlow struct {
	engine *Engine
	state  reportState
	from   time.Time
}

func newReportFlow(engine *Engine) *reportFlow {
	return &reportFlow{engine: engine}
}

func (f *reportFlow) handle(ctx context.Context, ev Event) (Prompt, error) {
	switch f.state {
	case reportEnteringFrom:
		date, err := types.ParseDate(ev.Text)
		if err != nil {
			return Prompt{}, err
		}
		f.from = date
		f.state = reportEnteringTo
		return f.prompt(), nil

	case reportEnteringTo:
		to, err := types.ParseDate(ev.Text)
		if err != nil {
			return Prompt{}, err
		}
		report, err := f.engine.reports.Period(ctx, f.from, to)
		if err != nil {
			return Prompt{}, err
		}
		return terminal(renderPeriodReport(report)), nil

	default:
		return Prompt{}, apperror.NewInternal(fmt.Errorf("report flow in unknown state %d", f.state))
	}
}

func (f *reportFlow) prompt() Prompt {
	switch f.state {
	case reportEnteringFrom:
		return prompt("Report start date (day.month.year)?", cancelChoice)
	case reportEnteringTo:
		return prompt("Report end date?", cancelChoice)
	default:
		return MainMenu()
	}
}

// --- cash flow ---

type cashState int

const (
	cashChoosingAction cashState = iota
	cashExpenseAmount
	cashExpenseComment
	cashBalanceAmount
	cashDayDate
	cashMonthDate
	cashPositionDate
)

// cashFlow covers expense recording, balance counting and the day, month and
// position views.
type cashFlow struct {
	engine *Engine
	state  cashState
	amount types.Money
}

func newCashFlow(engine *Engine) *cashFlow {
	return &cashFlow{engine: engine}
}

func (f *cashFlow) handle(ctx context.Context, ev Event) (Prompt, error) {
	switch f.state {
	case cashChoosingAction:
		switch ev.Callback {
		case cbCashExpense:
			f.state = cashExpenseAmount
		case cbCashBalance:
			f.state = cashBalanceAmount
		case cbCashDay:
			f.state = cashDayDate
		case cbCashMonth:
			f.state = cashMonthDate
		case cbCashPosition:
			f.state = cashPositionDate
		default:
			return Prompt{}, apperror.NewValidation("choose a cash action")
		}
		return f.prompt(), nil

	case cashExpenseAmount:
		amount, err := types.ParseAmount(ev.Text)
		if err != nil {
			return Prompt{}, err
		}
		f.amount = amount
		f.state = cashExpenseComment
		return f.prompt(), nil

	case cashExpenseComment:
		comment := strings.TrimSpace(ev.Text)
		if comment == "" {
			return Prompt{}, apperror.NewValidation("describe what the money was spent on")
		}
		entry, err := f.engine.cash.RecordExpense(ctx, f.engine.today(), f.amount, comment)
		if err != nil {
			return Prompt{}, err
		}
		return terminal(fmt.Sprintf("Expense %s recorded for %s.",
			entry.Expense, entry.Date.Format(types.DateFormat))), nil

	case cashBalanceAmount:
		amount, err := types.ParseAmount(ev.Text)
		if err != nil {
			return Prompt{}, err
		}
		entry, err := f.engine.cash.SetBalance(ctx, f.engine.today(), amount)
		if err != nil {
			return Prompt{}, err
		}
		return terminal(fmt.Sprintf("Cash balance %s recorded for %s.",
			entry.Income, entry.Date.Format(types.DateFormat))), nil

	case cashDayDate:
		date, err := types.ParseDate(ev.Text)
		if err != nil {
			return Prompt{}, err
		}
		entries, err := f.engine.cash.DayEntries(ctx, date)
		if err != nil {
			return Prompt{}, err
		}
		return terminal(renderCashEntries(
			fmt.Sprintf("Cash for %s", date.Format(types.DateFormat)), entries)), nil

	case cashMonthDate:
		date, err := types.ParseDate(ev.Text)
		if err != nil {
			return Prompt{}, err
		}
		entries, err := f.engine.cash.MonthEntries(ctx, date.Year(), date.Month())
		if err != nil {
			return Prompt{}, err
		}
		return terminal(renderCashEntries(
			fmt.Sprintf("Cash for %s", date.Format("01.2006")), entries)), nil

	case cashPositionDate:
		date, err := types.ParseDate(ev.Text)
		if err != nil {
			return Prompt{}, err
		}
		pos, err := f.engine.reports.CashPosition(ctx, date)
		if err != nil {
			return Prompt{}, err
		}
		return terminal(fmt.Sprintf(
			"Position on %s:\ncash balance %s\nstock at cost %s\nexpenses %s\ntotal %s",
			pos.Date.Format(types.DateFormat), pos.CashBalance,
			pos.StockValue, pos.Expenses, pos.Total)), nil

	default:
		return Prompt{}, apperror.NewInternal(fmt.Errorf("cash flow in unknown state %d", f.state))
	}
}

func (f *cashFlow) prompt() Prompt {
	switch f.state {
	case cashChoosingAction:
		return prompt("Cash:",
			Choice{Label: "Record expense", Callback: cbCashExpense},
			Choice{Label: "Count balance", Callback: cbCashBalance},
			Choice{Label: "Day view", Callback: cbCashDay},
			Choice{Label: "Month view", Callback: cbCashMonth},
			Choice{Label: "Position", Callback: cbCashPosition},
			cancelChoice)
	case cashExpenseAmount:
		return prompt("Expense amount?", cancelChoice)
	case cashExpenseComment:
		return prompt("What was it spent on?", cancelChoice)
	case cashBalanceAmount:
		return prompt("Counted cash balance?", cancelChoice)
	case cashDayDate, cashPositionDate:
		return prompt("For which date?", cancelChoice)
	case cashMonthDate:
		return prompt("Any date within the month?", cancelChoice)
	default:
		return MainMenu()
	}
}

func renderPeriodReport(report *reports.PeriodReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Report %s to %s\n",
		report.From.Format(types.DateFormat), report.To.Format(types.DateFormat))
	for _, l := range report.Lines {
		tag := "+"
		if l.Kind == reports.MovementSupply {
			tag = "-"
		}
		fmt.Fprintf(&b, "%s %s  %s x%d  %s\n",
			tag, l.Date.Format(types.DateFormat), l.ProductName, l.Quantity, l.Total)
	}
	fmt.Fprintf(&b, "Supply: %d pcs for %s\n", report.SupplyQty, report.SupplyTotal)
	fmt.Fprintf(&b, "Sales: %d pcs for %s\n", report.SalesQty, report.SalesTotal)
	fmt.Fprintf(&b, "Net profit: %s", report.NetProfit)
	return b.String()
}

func renderCashEntries(title string, entries []cash.Entry) string {
	if len(entries) == 0 {
		return title + ": no entries."
	}
	income, expense := types.Zero(), types.Zero()
	var b strings.Builder
	b.WriteString(title + ":\n")
	for _, e := range entries {
		if !e.Income.IsZero() {
			fmt.Fprintf(&b, "%s  +%s  %s\n", e.Date.Format(types.DateFormat), e.Income, e.Comment)
		} else {
			fmt.Fprintf(&b, "%s  -%s  %s\n", e.Date.Format(types.DateFormat), e.Expense, e.Comment)
		}
		income = income.Add(e.Income)
		expense = expense.Add(e.Expense)
	}
	fmt.Fprintf(&b, "Income %s, expenses %s, net %s", income, expense, income.Sub(expense))
	return b.String()
}

// --- deferred serial intake flow ---

type deferredState int

const (
	deferredChoosingOrder deferredState = iota
	deferredChoosingLine
	deferredEnteringSerials
)

// deferredFlow records serial numbers for supplier lines whose intake was
// postponed at finalize time.
type deferredFlow struct {
	engine  *Engine
	state   deferredState
	pending []orders.SupplierOrder
	order   *orders.SupplierOrder
	lineIdx int
	missing int
	serials []string
}

func newDeferredFlow(ctx context.Context, engine *Engine) (*deferredFlow, error) {
	pending, err := engine.orders.ListDeferred(ctx)
	if err != nil {
		return nil, err
	}
	return &deferredFlow{engine: engine, pending: pending}, nil
}

func (f *deferredFlow) handle(ctx context.Context, ev Event) (Prompt, error) {
	switch f.state {
	case deferredChoosingOrder:
		orderID, ok := strings.CutPrefix(ev.Callback, prefixOrder)
		if !ok {
			return Prompt{}, apperror.NewValidation("pick an order from the list")
		}
		for i := range f.pending {
			if f.pending[i].ID == orderID {
				f.order = &f.pending[i]
				f.state = deferredChoosingLine
				return f.prompt(), nil
			}
		}
		return Prompt{}, apperror.NewNotFound("supplier order", orderID)

	case deferredChoosingLine:
		idxStr, ok := strings.CutPrefix(ev.Callback, prefixLine)
		if !ok {
			return Prompt{}, apperror.NewValidation("pick a line from the list")
		}
		idx, err := strconv.Atoi(idxStr)
		if err != nil || idx < 0 || idx >= len(f.order.Lines) {
			return Prompt{}, apperror.NewNotFound("order line", idxStr)
		}
		line := f.order.Lines[idx]
		units, err := f.engine.orders.Reconciler().LineUnits(ctx, f.order.ID, line.ProductName)
		if err != nil {
			return Prompt{}, err
		}
		missing := line.Quantity - len(units)
		if missing <= 0 {
			return Prompt{}, apperror.NewValidation("this line already has all its serials")
		}
		f.lineIdx = idx
		f.missing = missing
		f.serials = nil
		f.state = deferredEnteringSerials
		return f.prompt(), nil

	case deferredEnteringSerials:
		if ev.Callback == cbSerialsDone {
			if len(f.serials) == 0 {
				return Prompt{}, apperror.NewValidation("enter at least one serial number first")
			}
			line := f.order.Lines[f.lineIdx]
			err := f.engine.orders.AttachDeferredSerials(ctx, f.order.ID, line.ProductName, f.serials)
			if err != nil {
				return Prompt{}, err
			}
			return terminal(fmt.Sprintf("Recorded %d serial(s) for %s on %s.",
				len(f.serials), line.ProductName, f.order.ID)), nil
		}

		serial := strings.TrimSpace(ev.Text)
		if serial == "" {
			return Prompt{}, apperror.NewValidation("serial number must not be empty")
		}
		for _, s := range f.serials {
			if s == serial {
				return Prompt{}, apperror.NewDuplicateSerial(serial)
			}
		}
		if len(f.serials) >= f.missing {
			return Prompt{}, apperror.NewValidation(
				fmt.Sprintf("the line only needs %d more serial(s)", f.missing))
		}
		f.serials = append(f.serials, serial)
		return f.prompt(), nil

	default:
		return Prompt{}, apperror.NewInternal(fmt.Errorf("deferred intake flow in unknown state %d", f.state))
	}
}

func (f *deferredFlow) prompt() Prompt {
	switch f.state {
	case deferredChoosingOrder:
		if len(f.pending) == 0 {
			return terminal("No orders are waiting for serials.")
		}
		choices := make([]Choice, 0, len(f.pending)+1)
		for _, o := range f.pending {
			choices = append(choices, Choice{
				Label:    fmt.Sprintf("%s  %s  %s", o.ID, o.Date.Format(types.DateFormat), o.Supplier),
				Callback: prefixOrder + o.ID,
			})
		}
		choices = append(choices, cancelChoice)
		return prompt("Which order to record serials for?", choices...)
	case deferredChoosingLine:
		choices := make([]Choice, 0, len(f.order.Lines)+1)
		for i, l := range f.order.Lines {
			choices = append(choices, Choice{
				Label:    fmt.Sprintf("%s x%d", l.ProductName, l.Quantity),
				Callback: prefixLine + strconv.Itoa(i),
			})
		}
		choices = append(choices, cancelChoice)
		return prompt("Which line?", choices...)
	case deferredEnteringSerials:
		return prompt(fmt.Sprintf("Enter serial (%d of up to %d), or press Done.",
			len(f.serials)+1, f.missing),
			Choice{Label: "Done", Callback: cbSerialsDone}, cancelChoice)
	default:
		return MainMenu()
	}
}
