package inbound

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"testing"

	"wms-backend/internal/apperr"
	"wms-backend/internal/models"
	"wms-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func newTestApp(svc *Service) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: apperr.ErrorHandler(svc.log)})
	api := app.Group("/api/inbound")
	api.Post("/receipts/import", ImportReceiptHandler(svc))
	api.Get("/receipts/:id", GetReceiptHandler(svc))
	api.Put("/receipts/:id/status", UpdateStatusHandler(svc))
	api.Post("/receipts/:id/auto-allocate", AutoAllocateHandler(svc))
	return app
}

func TestAutoAllocateHandler(t *testing.T) {
	svc, db := newTestService(t)
	whID := uuid.New()
	testutil.SeedWarehouseConfig(t, db, whID, "ABC")
	testutil.SeedRack(t, db, whID, "R001", 1, 2, models.RackStatusActive)
	rec := mustCreateReceipt(t, svc, whID, models.VendorSKU, skuLines(3))
	app := newTestApp(svc)

	resp, err := app.Test(httptest.NewRequest("POST", "/api/inbound/receipts/"+rec.ID.String()+"/auto-allocate", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var res AllocationResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Bound != 2 || res.Unbound != 1 {
		t.Errorf("bound/unbound = %d/%d", res.Bound, res.Unbound)
	}

	tests := []struct {
		name, method, path, body string
		want                     int
	}{
		{"unknown receipt", "POST", "/api/inbound/receipts/" + uuid.NewString() + "/auto-allocate", "", fiber.StatusNotFound},
		{"bad id", "GET", "/api/inbound/receipts/nope", "", fiber.StatusBadRequest},
		{"derived status", "PUT", "/api/inbound/receipts/" + rec.ID.String() + "/status", `{"status":"READY_FOR_PICKING"}`, fiber.StatusBadRequest},
		{"explicit status", "PUT", "/api/inbound/receipts/" + rec.ID.String() + "/status", `{"status":"UNLOADING"}`, fiber.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body io.Reader
			if tt.body != "" {
				body = bytes.NewBufferString(tt.body)
			}
			req := httptest.NewRequest(tt.method, tt.path, body)
			req.Header.Set("Content-Type", "application/json")
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestImportReceiptHandler(t *testing.T) {
	svc, db := newTestService(t)
	whID := uuid.New()
	testutil.SeedWarehouseConfig(t, db, whID, "ABC")
	app := newTestApp(svc)

	sheet, err := io.ReadAll(workbook(t,
		[]any{"SKU", "Product", "Qty"},
		[]any{"SKU-1", "Rice", 5},
		[]any{"SKU-2", "Beans", 2},
	))
	if err != nil {
		t.Fatalf("read workbook: %v", err)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("warehouse_id", whID.String())
	mw.WriteField("vendor_id", uuid.NewString())
	mw.WriteField("vendor_type", "sku")
	fw, _ := mw.CreateFormFile("file", "lines.xlsx")
	fw.Write(sheet)
	mw.Close()

	req := httptest.NewRequest("POST", "/api/inbound/receipts/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusCreated {
		msg, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d: %s", resp.StatusCode, msg)
	}
	var rec models.InboundReceipt
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Code != "RCPT-ABC-000001" || len(rec.Lines) != 2 || rec.Lines[0].Quantity != 5 {
		t.Errorf("imported receipt = %s with %d lines", rec.Code, len(rec.Lines))
	}
}
