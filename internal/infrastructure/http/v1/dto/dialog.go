package dto

import (
	"tradeledger/internal/dialog"
)

// DialogEventRequest is one user action forwarded by the front-end. Exactly
// one of text and callback should be set.
type DialogEventRequest struct {
	UserID   int64  `json:"userId" binding:"required"`
	Text     string `json:"text"`
	Callback string `json:"callback"`
}

// ToEvent converts the request into an engine event.
func (r DialogEventRequest) ToEvent() dialog.Event {
	return dialog.Event{
		UserID:   r.UserID,
		Text:     r.Text,
		Callback: r.Callback,
	}
}
