package types

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tradeledger/internal/core/apperror"
)

// DateFormat is the canonical display format for order and cash dates.
const DateFormat = "02.01.2006"

// dateFormats lists accepted input layouts, most specific first.
// Two-digit years are interpreted in the 2000s by time.Parse.
var dateFormats = []string{
	"02.01.2006",
	"2.1.2006",
	"02.01.06",
	"2.1.06",
}

// ParseDate parses a user-entered date in day.month.year form.
// Both 4-digit and 2-digit years are accepted.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, apperror.NewValidation("date must not be empty")
	}
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, apperror.NewValidation("date must be in day.month.year form, e.g. 07.03.2025")
}

// ParsePrice parses a user-entered positive price. Both "." and "," are
// accepted as the decimal separator.
func ParsePrice(s string) (Money, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return decimal.Zero, apperror.NewValidation("price must not be empty")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, apperror.NewValidation("price must be a number").WithCause(err)
	}
	if !d.IsPositive() {
		return decimal.Zero, apperror.NewValidation("price must be greater than zero")
	}
	return d, nil
}

// ParseAmount parses a non-negative money amount (cash entries allow zero).
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return decimal.Zero, apperror.NewValidation("amount must not be empty")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, apperror.NewValidation("amount must be a number").WithCause(err)
	}
	if d.IsNegative() {
		return decimal.Zero, apperror.NewValidation("amount must not be negative")
	}
	return d, nil
}

// ParseQuantity parses a user-entered integer quantity, minimum 1.
func ParseQuantity(s string) (int, error) {
	s = strings.TrimSpace(s)
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, apperror.NewValidation("quantity must be a whole number").WithCause(err)
	}
	if n < 1 {
		return 0, apperror.NewValidation("quantity must be at least 1")
	}
	return n, nil
}

// ParseName validates a free-text counterparty or comment field.
func ParseName(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", apperror.NewValidation("value must not be empty")
	}
	return s, nil
}
