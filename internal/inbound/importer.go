package inbound

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"wms-backend/internal/models"

	"github.com/xuri/excelize/v2"
)

type column int

const (
	colSKU column = iota
	colProductName
	colCustomerName
	colApartment
	colQuantity
	colNotes
)

var headerAliases = map[string]column{
	"SKU":           colSKU,
	"PRODUCT SKU":   colSKU,
	"PRODUCT":       colProductName,
	"PRODUCT NAME":  colProductName,
	"NAME":          colProductName,
	"CUSTOMER":      colCustomerName,
	"CUSTOMER NAME": colCustomerName,
	"APARTMENT":     colApartment,
	"FLAT":          colApartment,
	"QTY":           colQuantity,
	"QUANTITY":      colQuantity,
	"NOTES":         colNotes,
	"NOTE":          colNotes,
}

// positional layouts used when the sheet has no header row
var defaultLayouts = map[models.VendorType][]column{
	models.VendorSKU:  {colSKU, colProductName, colQuantity, colNotes},
	models.VendorFlat: {colCustomerName, colApartment, colQuantity, colNotes},
}

// headerLayout maps a header row to columns. It returns nil when the row holds no
// known header.
func headerLayout(row []string) map[int]column {
	layout := map[int]column{}
	for i, cell := range row {
		if c, ok := headerAliases[strings.ToUpper(strings.TrimSpace(cell))]; ok {
			layout[i] = c
		}
	}
	if len(layout) == 0 {
		return nil
	}
	return layout
}

// ParseLinesXLSX reads receipt lines from the first sheet of a workbook. A header row
// is detected by its column names; otherwise columns follow the vendor type layout.
// Blank rows are skipped and a blank quantity means 1.
func ParseLinesXLSX(r io.Reader, vendor models.VendorType) ([]LineInput, error) {
	if !vendor.Valid() {
		return nil, ErrInvalidVendorType
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSheet, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrInvalidSheet)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSheet, err)
	}

	start := 0
	layout := map[int]column{}
	if len(rows) > 0 {
		if h := headerLayout(rows[0]); h != nil {
			layout = h
			start = 1
		}
	}
	if start == 0 {
		for i, c := range defaultLayouts[vendor] {
			layout[i] = c
		}
	}

	lines := make([]LineInput, 0, len(rows))
	for i := start; i < len(rows); i++ {
		var (
			line  LineInput
			blank = true
		)
		for idx, cell := range rows[i] {
			c, ok := layout[idx]
			cell = strings.TrimSpace(cell)
			if !ok || cell == "" {
				continue
			}
			blank = false
			switch c {
			case colSKU:
				line.ProductSKU = cell
			case colProductName:
				line.ProductName = cell
			case colCustomerName:
				line.CustomerName = cell
			case colApartment:
				line.Apartment = cell
			case colNotes:
				line.Notes = cell
			case colQuantity:
				qty, err := strconv.Atoi(cell)
				if err != nil || qty < 0 {
					return nil, fmt.Errorf("%w: row %d has invalid quantity %q", ErrInvalidSheet, i+1, cell)
				}
				line.Quantity = qty
			}
		}
		if blank {
			continue
		}
		if line.Quantity == 0 {
			line.Quantity = 1
		}
		lines = append(lines, line)
	}
	return lines, nil
}
