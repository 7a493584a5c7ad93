package dialog

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"tradeledger/internal/core/apperror"
	"tradeledger/internal/domain/cash"
	"tradeledger/internal/domain/catalog"
	"tradeledger/internal/domain/orders"
	"tradeledger/internal/domain/reports"
	"tradeledger/pkg/logger"
)

// flow is one multi-step conversation. handle advances it by one event and
// prompt re-renders the current question after a recoverable error.
type flow interface {
	handle(ctx context.Context, ev Event) (Prompt, error)
	prompt() Prompt
}

// session is one user's active flow.
type session struct {
	flow flow
}

// Engine routes user events to per-user flows. Recoverable domain errors are
// turned into a message plus the re-issued current question; anything else
// aborts the flow and falls back to the main menu.
type Engine struct {
	orders    *orders.Service
	cash      *cash.Service
	reports   *reports.Service
	directory *catalog.Directory

	mu       sync.Mutex
	sessions map[int64]*session

	now func() time.Time
}

// NewEngine wires the dialog engine.
func NewEngine(
	orderSvc *orders.Service,
	cashSvc *cash.Service,
	reportSvc *reports.Service,
	directory *catalog.Directory,
) *Engine {
	return &Engine{
		orders:    orderSvc,
		cash:      cashSvc,
		reports:   reportSvc,
		directory: directory,
		sessions:  make(map[int64]*session),
		now:       time.Now,
	}
}

// today returns the current date truncated to midnight UTC.
func (e *Engine) today() time.Time {
	y, m, d := e.now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Handle processes one user event and returns the next prompt. It never
// returns an error: failures are rendered into the prompt text.
func (e *Engine) Handle(ctx context.Context, ev Event) Prompt {
	e.mu.Lock()
	sess := e.sessions[ev.UserID]
	e.mu.Unlock()

	if ev.Callback == CallbackCancel {
		e.endSession(ev.UserID)
		if sess != nil {
			return withMenuNote("Cancelled, nothing saved.")
		}
		return MainMenu()
	}

	if sess == nil {
		return e.handleMenu(ctx, ev)
	}

	p, err := sess.flow.handle(ctx, ev)
	if err != nil {
		return e.renderError(ctx, ev.UserID, sess, err)
	}
	if p.Terminal {
		e.endSession(ev.UserID)
	}
	return p
}

// handleMenu starts a flow or serves a single-shot menu action.
func (e *Engine) handleMenu(ctx context.Context, ev Event) Prompt {
	switch ev.Callback {
	case MenuNewSupplier:
		return e.startFlow(ev.UserID, newBuilderFlow(e, orders.KindSupplier, false))
	case MenuNewClient:
		return e.startFlow(ev.UserID, newBuilderFlow(e, orders.KindClient, false))
	case MenuClientBySerial:
		return e.startFlow(ev.UserID, newBuilderFlow(e, orders.KindClient, true))
	case MenuEdit:
		return e.startFlow(ev.UserID, newEditorFlow(e))
	case MenuDelete:
		return e.startFlow(ev.UserID, newDeleteFlow(e))
	case MenuSearch:
		return e.startFlow(ev.UserID, newSearchFlow(e))
	case MenuReport:
		return e.startFlow(ev.UserID, newReportFlow(e))
	case MenuCash:
		return e.startFlow(ev.UserID, newCashFlow(e))
	case MenuDeferred:
		f, err := newDeferredFlow(ctx, e)
		if err != nil {
			logger.Error(ctx, "list deferred orders", "error", err)
			return withMenuNote("Something went wrong, try again.")
		}
		p := f.prompt()
		if p.Terminal {
			return withMenuNote(p.Text)
		}
		return e.startFlow(ev.UserID, f)
	case MenuWarehouse:
		view, err := e.reports.Stock(ctx)
		if err != nil {
			logger.Error(ctx, "stock view", "error", err)
			return withMenuNote("Something went wrong, try again.")
		}
		return withMenuNote(renderStockView(view))
	case MenuRefreshCatalog:
		e.directory.Invalidate()
		return withMenuNote("Catalog will be reloaded on the next lookup.")
	default:
		return MainMenu()
	}
}

func (e *Engine) startFlow(userID int64, f flow) Prompt {
	e.mu.Lock()
	e.sessions[userID] = &session{flow: f}
	e.mu.Unlock()
	return f.prompt()
}

func (e *Engine) endSession(userID int64) {
	e.mu.Lock()
	delete(e.sessions, userID)
	e.mu.Unlock()
}

// renderError decides whether the flow survives the failure. User-correctable
// errors keep the session and repeat the current question; everything else is
// logged, the session is dropped and the user lands on the main menu.
func (e *Engine) renderError(ctx context.Context, userID int64, sess *session, err error) Prompt {
	if appErr, ok := apperror.AsAppError(err); ok && recoverable(appErr.Code) {
		p := sess.flow.prompt()
		p.Text = appErr.Message + "\n" + p.Text
		return p
	}

	logger.Error(ctx, "dialog flow failed", "user_id", userID, "error", err)
	e.endSession(userID)
	return withMenuNote("Something went wrong, the operation was aborted.")
}

func recoverable(code string) bool {
	switch code {
	case apperror.CodeValidation,
		apperror.CodeBusinessRule,
		apperror.CodeNotFound,
		apperror.CodeConflict,
		apperror.CodeInUse,
		apperror.CodeDuplicate,
		apperror.CodeDuplicateSerial,
		apperror.CodeSerialConflict:
		return true
	}
	return false
}

// withMenuNote prefixes the main menu with a status line.
func withMenuNote(note string) Prompt {
	p := MainMenu()
	p.Text = note + "\n" + p.Text
	return p
}

func renderStockView(view *reports.StockView) string {
	if len(view.Rows) == 0 {
		return "Warehouse is empty."
	}
	var b strings.Builder
	b.WriteString("In stock:\n")
	for _, r := range view.Rows {
		fmt.Fprintf(&b, "%s: %d pcs\n", r.ProductName, r.InStock)
	}
	fmt.Fprintf(&b, "Total %d unit(s)", view.TotalUnits)
	return b.String()
}
