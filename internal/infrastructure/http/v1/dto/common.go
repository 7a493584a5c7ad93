// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"time"

	"tradeledger/internal/core/apperror"
)

// DateFormat is the wire format for date-only query parameters.
const DateFormat = "2006-01-02"

// ParseDate parses a date-only parameter.
func ParseDate(name, value string) (time.Time, error) {
	t, err := time.Parse(DateFormat, value)
	if err != nil {
		return time.Time{}, apperror.NewValidation("invalid " + name + ", expected YYYY-MM-DD")
	}
	return t, nil
}

// SuccessResponse for operations without data.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse for error details.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}
