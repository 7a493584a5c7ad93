// Package dialog drives the conversational order flows. It is transport
// agnostic: the front-end delivers user text and button callbacks as Events
// and renders the returned Prompts however it likes.
package dialog

// Event is one user action routed to the engine. Exactly one of Text and
// Callback is set: free text input or a button press identifier.
type Event struct {
	UserID   int64
	Text     string
	Callback string
}

// IsCallback reports whether the event is a button press.
func (e Event) IsCallback() bool {
	return e.Callback != ""
}

// Choice is one labeled button offered with a prompt.
type Choice struct {
	Label    string `json:"label"`
	Callback string `json:"callback"`
}

// Prompt is what the engine asks the front-end to render next. Terminal
// prompts end the active flow; the front-end typically follows them with the
// main menu.
type Prompt struct {
	Text     string   `json:"text"`
	Choices  []Choice `json:"choices,omitempty"`
	Terminal bool     `json:"terminal,omitempty"`
}

func prompt(text string, choices ...Choice) Prompt {
	return Prompt{Text: text, Choices: choices}
}

func terminal(text string) Prompt {
	return Prompt{Text: text, Terminal: true}
}

// Callback identifiers understood by the engine.
const (
	CallbackCancel = "cancel"

	MenuNewSupplier    = "menu:new_supplier"
	MenuNewClient      = "menu:new_client"
	MenuClientBySerial = "menu:new_client_serial"
	MenuEdit           = "menu:edit"
	MenuDelete         = "menu:delete"
	MenuSearch         = "menu:search"
	MenuWarehouse      = "menu:warehouse"
	MenuReport         = "menu:report"
	MenuCash           = "menu:cash"
	MenuDeferred       = "menu:deferred"
	MenuRefreshCatalog = "menu:refresh_catalog"

	cbDateToday     = "date:today"
	cbDateCustom    = "date:custom"
	cbSerialsNow    = "serials:now"
	cbSerialsLater  = "serials:later"
	cbSerialsDone   = "serials:done"
	cbItemAdd       = "item:add"
	cbItemFinalize  = "item:finalize"
	cbSupplyFix     = "supplyfix:create"
	cbSupplyAbort   = "supplyfix:abort"
	cbConfirmYes    = "confirm:yes"
	cbConfirmNo     = "confirm:no"
	cbKindSupplier  = "kind:supplier"
	cbKindClient    = "kind:client"
	cbSearchID      = "search:id"
	cbSearchDate    = "search:date"
	cbSearchProduct = "search:product"
	cbSearchSerial  = "search:serial"
	cbCashExpense   = "cash:expense"
	cbCashBalance   = "cash:balance"
	cbCashDay       = "cash:day"
	cbCashMonth     = "cash:month"
	cbCashPosition  = "cash:position"

	prefixProduct = "product:"
	prefixName    = "name:"
	prefixOrder   = "order:"
	prefixLine    = "line:"
	prefixSerial  = "serial:"

	fieldDate         = "field:date"
	fieldCounterparty = "field:counterparty"
	fieldItems        = "field:items"
	fieldDone         = "field:done"

	itemActionAdd      = "itemaction:add"
	itemActionRemove   = "itemaction:remove"
	itemActionQuantity = "itemaction:quantity"
	itemActionPrice    = "itemaction:price"
)

// cancelChoice is offered on nearly every step.
var cancelChoice = Choice{Label: "Cancel", Callback: CallbackCancel}

// MainMenu is the top-level prompt.
func MainMenu() Prompt {
	return prompt("What would you like to do?",
		Choice{Label: "New supplier order", Callback: MenuNewSupplier},
		Choice{Label: "New client order", Callback: MenuNewClient},
		Choice{Label: "New client order by serials", Callback: MenuClientBySerial},
		Choice{Label: "Edit order", Callback: MenuEdit},
		Choice{Label: "Delete order", Callback: MenuDelete},
		Choice{Label: "Find orders", Callback: MenuSearch},
		Choice{Label: "Warehouse", Callback: MenuWarehouse},
		Choice{Label: "Period report", Callback: MenuReport},
		Choice{Label: "Cash", Callback: MenuCash},
		Choice{Label: "Record deferred serials", Callback: MenuDeferred},
		Choice{Label: "Refresh catalog", Callback: MenuRefreshCatalog},
	)
}
