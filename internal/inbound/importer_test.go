package inbound

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"wms-backend/internal/models"

	"github.com/xuri/excelize/v2"
)

func workbook(t *testing.T, rows ...[]any) *bytes.Reader {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}
	return bytes.NewReader(buf.Bytes())
}

func TestParseLinesXLSXWithHeader(t *testing.T) {
	r := workbook(t,
		[]any{"Quantity", "SKU", "Product Name", "Notes"},
		[]any{3, "SKU-1", "Tomatoes", "fragile"},
		[]any{"", "", "", ""},
		[]any{nil, "SKU-2", "Onions"},
	)

	lines, err := ParseLinesXLSX(r, models.VendorSKU)
	if err != nil {
		t.Fatalf("ParseLinesXLSX: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %+v", len(lines), lines)
	}
	if l := lines[0]; l.ProductSKU != "SKU-1" || l.ProductName != "Tomatoes" || l.Quantity != 3 || l.Notes != "fragile" {
		t.Errorf("line 1 = %+v", l)
	}
	if l := lines[1]; l.ProductSKU != "SKU-2" || l.Quantity != 1 {
		t.Errorf("line 2 = %+v", l)
	}
}

func TestParseLinesXLSXPositionalFlat(t *testing.T) {
	r := workbook(t,
		[]any{"Jane Doe", "12B", 2},
		[]any{"John Roe", "4A"},
	)

	lines, err := ParseLinesXLSX(r, models.VendorFlat)
	if err != nil {
		t.Fatalf("ParseLinesXLSX: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("got %d lines", len(lines))
	}
	if l := lines[0]; l.CustomerName != "Jane Doe" || l.Apartment != "12B" || l.Quantity != 2 {
		t.Errorf("line 1 = %+v", l)
	}
	if lines[1].Quantity != 1 {
		t.Errorf("blank quantity = %d, want 1", lines[1].Quantity)
	}
}

func TestParseLinesXLSXErrors(t *testing.T) {
	_, err := ParseLinesXLSX(workbook(t, []any{"SKU", "Qty"}, []any{"A", "many"}), models.VendorSKU)
	if !errors.Is(err, ErrInvalidSheet) || !strings.Contains(err.Error(), "row 2") {
		t.Errorf("bad quantity: %v", err)
	}
	if _, err := ParseLinesXLSX(strings.NewReader("not a workbook"), models.VendorSKU); !errors.Is(err, ErrInvalidSheet) {
		t.Errorf("garbage input: %v", err)
	}
	if _, err := ParseLinesXLSX(workbook(t), "BULK"); !errors.Is(err, ErrInvalidVendorType) {
		t.Errorf("vendor type: %v", err)
	}
}
