package inbound

import (
	"context"
	"errors"
	"testing"

	"wms-backend/internal/lock"
	"wms-backend/internal/models"
	"wms-backend/internal/testutil"
	"wms-backend/internal/warehouse"

	"github.com/google/uuid"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	log := zaptest.NewLogger(t)
	return NewService(db, warehouse.NewService(db, lock.NewKeyedMutex(), log), log), db
}

func skuLines(n int) []LineInput {
	lines := make([]LineInput, n)
	for i := range lines {
		pid := uuid.New()
		lines[i] = LineInput{ProductID: &pid, ProductSKU: "SKU-" + string(rune('A'+i)), Quantity: i + 2}
	}
	return lines
}

func flatLines(n int) []LineInput {
	lines := make([]LineInput, n)
	for i := range lines {
		lines[i] = LineInput{CustomerName: "Customer", Apartment: string(rune('A' + i))}
	}
	return lines
}

func mustCreateReceipt(t *testing.T, svc *Service, whID uuid.UUID, vendor models.VendorType, lines []LineInput) *models.InboundReceipt {
	t.Helper()
	rec, err := svc.CreateReceipt(context.Background(), ReceiptInput{
		WarehouseID: whID,
		VendorID:    uuid.New(),
		VendorType:  vendor,
		Lines:       lines,
	}, nil)
	if err != nil {
		t.Fatalf("CreateReceipt: %v", err)
	}
	return rec
}

func countBins(t *testing.T, db *gorm.DB, status models.BinStatus) int64 {
	t.Helper()
	var n int64
	if err := db.Model(&models.Bin{}).Where("status = ?", string(status)).Count(&n).Error; err != nil {
		t.Fatalf("count bins: %v", err)
	}
	return n
}

func TestAutoAllocateFirstFitSKU(t *testing.T) {
	svc, db := newTestService(t)
	whID := uuid.New()
	testutil.SeedWarehouseConfig(t, db, whID, "ABC")
	rack := testutil.SeedRack(t, db, whID, "R001", 2, 2, models.RackStatusActive)
	rec := mustCreateReceipt(t, svc, whID, models.VendorSKU, skuLines(3))

	res, err := svc.AutoAllocate(context.Background(), rec.ID, nil)
	if err != nil {
		t.Fatalf("AutoAllocate: %v", err)
	}
	if res.Bound != 3 || res.Unbound != 0 {
		t.Errorf("bound/unbound = %d/%d, want 3/0", res.Bound, res.Unbound)
	}
	if res.Receipt.Status != models.ReceiptReadyForPicking {
		t.Errorf("status = %s, want READY_FOR_PICKING", res.Receipt.Status)
	}

	want := [][2]int{{0, 0}, {0, 1}, {1, 0}}
	for i, line := range res.Receipt.Lines {
		expected := testutil.BinAt(t, db, rack.ID, want[i][0], want[i][1])
		if line.BinID == nil || *line.BinID != expected.ID {
			t.Fatalf("line %d bound to %v, want %s", line.LineNo, line.BinID, expected.Code)
		}
		if line.Bin == nil || line.Bin.Code != expected.Code {
			t.Errorf("line %d bin not joined", line.LineNo)
		}
		if expected.Status != models.BinReserved {
			t.Errorf("bin %s status = %s", expected.Code, expected.Status)
		}
		if expected.ProductID == nil || *expected.ProductID != *line.ProductID {
			t.Errorf("bin %s product not copied", expected.Code)
		}
		if expected.Quantity == nil || *expected.Quantity != line.Quantity {
			t.Errorf("bin %s quantity = %v, want %d", expected.Code, expected.Quantity, line.Quantity)
		}
	}
	if free := testutil.BinAt(t, db, rack.ID, 1, 1); free.Status != models.BinEmpty {
		t.Errorf("untouched bin status = %s", free.Status)
	}
}

func TestAutoAllocateExhaustionLeavesLinesUnbound(t *testing.T) {
	svc, db := newTestService(t)
	whID := uuid.New()
	testutil.SeedWarehouseConfig(t, db, whID, "ABC")
	testutil.SeedRack(t, db, whID, "R001", 1, 2, models.RackStatusActive)
	rec := mustCreateReceipt(t, svc, whID, models.VendorSKU, skuLines(3))

	res, err := svc.AutoAllocate(context.Background(), rec.ID, nil)
	if err != nil {
		t.Fatalf("AutoAllocate: %v", err)
	}
	if res.Bound != 2 || res.Unbound != 1 {
		t.Errorf("bound/unbound = %d/%d, want 2/1", res.Bound, res.Unbound)
	}
	if res.Receipt.Status == models.ReceiptReadyForPicking {
		t.Error("partially bound receipt advanced to READY_FOR_PICKING")
	}
	if res.Receipt.Lines[2].BinID != nil {
		t.Error("third line should stay unbound")
	}
}

func TestAutoAllocateIdempotent(t *testing.T) {
	svc, db := newTestService(t)
	whID := uuid.New()
	testutil.SeedWarehouseConfig(t, db, whID, "ABC")
	testutil.SeedRack(t, db, whID, "R001", 2, 3, models.RackStatusActive)
	rec := mustCreateReceipt(t, svc, whID, models.VendorSKU, skuLines(2))

	first, err := svc.AutoAllocate(context.Background(), rec.ID, nil)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := svc.AutoAllocate(context.Background(), rec.ID, nil)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if second.Bound != 0 {
		t.Errorf("second call bound %d lines", second.Bound)
	}
	for i := range first.Receipt.Lines {
		if *first.Receipt.Lines[i].BinID != *second.Receipt.Lines[i].BinID {
			t.Errorf("line %d moved between calls", i+1)
		}
	}
	if n := countBins(t, db, models.BinReserved); n != 2 {
		t.Errorf("reserved bins = %d, want 2", n)
	}
}

func TestAutoAllocateOnlyActiveRacksOfWarehouse(t *testing.T) {
	svc, db := newTestService(t)
	whID := uuid.New()
	testutil.SeedWarehouseConfig(t, db, whID, "ABC")
	testutil.SeedRack(t, db, whID, "R001", 1, 2, "maintenance")
	active := testutil.SeedRack(t, db, whID, "R002", 1, 2, models.RackStatusActive)
	testutil.SeedRack(t, db, uuid.New(), "R000", 1, 2, models.RackStatusActive)
	rec := mustCreateReceipt(t, svc, whID, models.VendorSKU, skuLines(2))

	res, err := svc.AutoAllocate(context.Background(), rec.ID, nil)
	if err != nil {
		t.Fatalf("AutoAllocate: %v", err)
	}
	for _, l := range res.Receipt.Lines {
		if l.Bin == nil || l.Bin.RackID != active.ID {
			t.Errorf("line %d bound outside the active rack: %+v", l.LineNo, l.Bin)
		}
	}
}

func TestAutoAllocateFlatSegregation(t *testing.T) {
	svc, db := newTestService(t)
	whID := uuid.New()
	testutil.SeedWarehouseConfig(t, db, whID, "ABC")
	stocked := testutil.SeedRack(t, db, whID, "R001", 1, 2, models.RackStatusActive)
	clean := testutil.SeedRack(t, db, whID, "R002", 1, 2, models.RackStatusActive)
	pid := uuid.New()
	db.Model(testutil.BinAt(t, db, stocked.ID, 0, 0)).Updates(map[string]any{"status": "occupied", "product_id": pid})

	rec := mustCreateReceipt(t, svc, whID, models.VendorFlat, flatLines(2))
	res, err := svc.AutoAllocate(context.Background(), rec.ID, nil)
	if err != nil {
		t.Fatalf("AutoAllocate: %v", err)
	}
	for _, l := range res.Receipt.Lines {
		if l.Bin == nil || l.Bin.RackID != clean.ID {
			t.Fatalf("flat line %d not placed in product-free rack", l.LineNo)
		}
		if l.Bin.ProductID != nil {
			t.Errorf("flat bin %s got a product", l.Bin.Code)
		}
	}

	// product-free racks are full now; the stocked rack is used rather than nothing
	next := mustCreateReceipt(t, svc, whID, models.VendorFlat, flatLines(1))
	res, err = svc.AutoAllocate(context.Background(), next.ID, nil)
	if err != nil {
		t.Fatalf("fallback: %v", err)
	}
	want := testutil.BinAt(t, db, stocked.ID, 0, 1)
	if got := res.Receipt.Lines[0].BinID; got == nil || *got != want.ID {
		t.Errorf("fallback bound to %v, want %s", got, want.Code)
	}
}

func TestAutoAllocateTerminalReceiptNotAdvanced(t *testing.T) {
	svc, db := newTestService(t)
	whID := uuid.New()
	testutil.SeedWarehouseConfig(t, db, whID, "ABC")
	testutil.SeedRack(t, db, whID, "R001", 1, 2, models.RackStatusActive)
	rec := mustCreateReceipt(t, svc, whID, models.VendorSKU, skuLines(1))
	if _, err := svc.UpdateStatus(context.Background(), rec.ID, models.ReceiptCancelled, nil); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	res, err := svc.AutoAllocate(context.Background(), rec.ID, nil)
	if err != nil {
		t.Fatalf("AutoAllocate: %v", err)
	}
	if res.Receipt.Status != models.ReceiptCancelled {
		t.Errorf("status = %s, want CANCELLED", res.Receipt.Status)
	}
}

func TestAutoAllocateEmptyReceipt(t *testing.T) {
	svc, db := newTestService(t)
	whID := uuid.New()
	testutil.SeedWarehouseConfig(t, db, whID, "ABC")
	rec := mustCreateReceipt(t, svc, whID, models.VendorSKU, nil)

	res, err := svc.AutoAllocate(context.Background(), rec.ID, nil)
	if err != nil {
		t.Fatalf("AutoAllocate: %v", err)
	}
	if res.Receipt.Status != models.ReceiptAwaitingUnloading {
		t.Errorf("receipt without lines advanced to %s", res.Receipt.Status)
	}
}

func TestReassignLine(t *testing.T) {
	svc, db := newTestService(t)
	whID := uuid.New()
	testutil.SeedWarehouseConfig(t, db, whID, "ABC")
	rack := testutil.SeedRack(t, db, whID, "R001", 1, 2, models.RackStatusActive)
	rec := mustCreateReceipt(t, svc, whID, models.VendorSKU, skuLines(1))
	res, err := svc.AutoAllocate(context.Background(), rec.ID, nil)
	if err != nil {
		t.Fatalf("AutoAllocate: %v", err)
	}
	lineID := res.Receipt.Lines[0].ID
	first := testutil.BinAt(t, db, rack.ID, 0, 0)
	second := testutil.BinAt(t, db, rack.ID, 0, 1)

	line, err := svc.ReassignLine(context.Background(), lineID, nil)
	if err != nil {
		t.Fatalf("ReassignLine: %v", err)
	}
	if line.BinID == nil || *line.BinID != second.ID {
		t.Fatalf("reassigned to %v, want %s", line.BinID, second.Code)
	}
	freed := testutil.ReloadBin(t, db, first.ID)
	if freed.Status != models.BinEmpty || freed.ProductID != nil || freed.Quantity != nil {
		t.Errorf("freed bin not cleared: %+v", freed)
	}

	// only the bin just freed is free; it is excluded so the line ends unbound
	line, err = svc.ReassignLine(context.Background(), lineID, nil)
	if err != nil {
		t.Fatalf("ReassignLine exhausted: %v", err)
	}
	if line.BinID != nil {
		t.Errorf("line bound to %v, want unbound", line.BinID)
	}
	if n := countBins(t, db, models.BinReserved); n != 0 {
		t.Errorf("reserved bins = %d, want 0", n)
	}

	if _, err := svc.ReassignLine(context.Background(), uuid.New(), nil); !errors.Is(err, ErrLineNotFound) {
		t.Errorf("unknown line: %v", err)
	}
}

func TestClearThenReassignRoundTrip(t *testing.T) {
	svc, db := newTestService(t)
	whID := uuid.New()
	testutil.SeedWarehouseConfig(t, db, whID, "ABC")
	testutil.SeedRack(t, db, whID, "R001", 2, 2, models.RackStatusActive)
	rec := mustCreateReceipt(t, svc, whID, models.VendorSKU, skuLines(1))
	res, err := svc.AutoAllocate(context.Background(), rec.ID, nil)
	if err != nil {
		t.Fatalf("AutoAllocate: %v", err)
	}
	lineID := res.Receipt.Lines[0].ID
	original := *res.Receipt.Lines[0].BinID

	line, err := svc.ClearLine(context.Background(), lineID, nil)
	if err != nil {
		t.Fatalf("ClearLine: %v", err)
	}
	if line.BinID != nil {
		t.Fatal("line still bound after clear")
	}
	if b := testutil.ReloadBin(t, db, original); b.Status != models.BinEmpty {
		t.Errorf("cleared bin status = %s", b.Status)
	}
	if _, err := svc.ClearLine(context.Background(), lineID, nil); err != nil {
		t.Errorf("clearing an unbound line: %v", err)
	}

	line, err = svc.ReassignLine(context.Background(), lineID, nil)
	if err != nil {
		t.Fatalf("ReassignLine: %v", err)
	}
	if line.BinID == nil {
		t.Fatal("line unbound after reassign")
	}
	if b := testutil.ReloadBin(t, db, *line.BinID); b.Status != models.BinReserved {
		t.Errorf("bound bin status = %s", b.Status)
	}
	if n := countBins(t, db, models.BinReserved); n != 1 {
		t.Errorf("reserved bins = %d, want 1", n)
	}

	if _, err := svc.ClearLine(context.Background(), uuid.New(), nil); !errors.Is(err, ErrLineNotFound) {
		t.Errorf("unknown line: %v", err)
	}
}

func TestAutoAllocateUnknownReceipt(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.AutoAllocate(context.Background(), uuid.New(), nil); !errors.Is(err, ErrReceiptNotFound) {
		t.Errorf("got %v", err)
	}
}
