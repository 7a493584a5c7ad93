package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeledger/internal/core/apperror"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{name: "full year", input: "07.03.2025", want: time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC)},
		{name: "short year", input: "07.03.25", want: time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC)},
		{name: "no leading zeros", input: "7.3.2025", want: time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC)},
		{name: "surrounding spaces", input: " 01.12.2024 ", want: time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)},
		{name: "empty", input: "", wantErr: true},
		{name: "iso format rejected", input: "2025-03-07", wantErr: true},
		{name: "garbage", input: "yesterday", wantErr: true},
		{name: "month out of range", input: "07.13.2025", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperror.IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v", got)
		})
	}
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "dot separator", input: "1000.50", want: "1000.5"},
		{name: "comma separator", input: "1000,50", want: "1000.5"},
		{name: "integer", input: "1500", want: "1500"},
		{name: "zero rejected", input: "0", wantErr: true},
		{name: "negative rejected", input: "-10", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "text", input: "free", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePrice(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperror.IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestParseAmount(t *testing.T) {
	got, err := ParseAmount("0")
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	_, err = ParseAmount("-5,00")
	require.Error(t, err)
}

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{name: "valid", input: "5", want: 5},
		{name: "spaces", input: " 3 ", want: 3},
		{name: "zero rejected", input: "0", wantErr: true},
		{name: "negative rejected", input: "-1", wantErr: true},
		{name: "fraction rejected", input: "2.5", wantErr: true},
		{name: "text rejected", input: "two", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseQuantity(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseName(t *testing.T) {
	got, err := ParseName("  Acme Ltd ")
	require.NoError(t, err)
	assert.Equal(t, "Acme Ltd", got)

	_, err = ParseName("   ")
	require.Error(t, err)
}
