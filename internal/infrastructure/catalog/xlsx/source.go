// Package xlsx reads the product catalog from a spreadsheet file.
package xlsx

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"tradeledger/internal/domain/catalog"
	"tradeledger/pkg/logger"
)

// Source loads code/name pairs from a workbook. The expected layout is a
// header row followed by one product per row: code in the first column,
// name in the second.
type Source struct {
	path  string
	sheet string
}

// NewSource creates a source for the given workbook. An empty sheet name
// selects the workbook's first sheet.
func NewSource(path, sheet string) *Source {
	return &Source{path: path, sheet: sheet}
}

// Load reads the full product list.
func (s *Source) Load(ctx context.Context) ([]catalog.Product, error) {
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("open catalog workbook: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			logger.Warn(ctx, "close catalog workbook", "error", cerr)
		}
	}()

	sheet := s.sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	var products []catalog.Product
	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		if len(row) < 2 {
			continue
		}
		code := strings.TrimSpace(row[0])
		name := strings.TrimSpace(row[1])
		if code == "" && name == "" {
			continue
		}
		products = append(products, catalog.Product{Code: code, Name: name})
	}
	return products, nil
}
