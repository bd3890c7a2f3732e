package storage

import (
	"context"
	"errors"
	"testing"

	"wms-backend/internal/inbound"
	"wms-backend/internal/models"
	"wms-backend/internal/testutil"

	"github.com/google/uuid"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

func newInbound(t *testing.T, db *gorm.DB, seq inbound.Sequencer) *inbound.Service {
	t.Helper()
	return inbound.NewService(db, seq, zaptest.NewLogger(t))
}

func receiptFor(t *testing.T, in *inbound.Service, whID uuid.UUID, vendor models.VendorType, lines []inbound.LineInput) *models.InboundReceipt {
	t.Helper()
	rec, err := in.CreateReceipt(context.Background(), inbound.ReceiptInput{
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

func linesOnBin(t *testing.T, db *gorm.DB, binID uuid.UUID) int64 {
	t.Helper()
	var n int64
	if err := db.Model(&models.InboundReceiptLine{}).Where("bin_id = ?", binID).Count(&n).Error; err != nil {
		t.Fatalf("count lines: %v", err)
	}
	return n
}

func TestUpdateBinKeepsLineAllocation(t *testing.T) {
	svc, wh, db := newTestService(t)
	in := newInbound(t, db, wh)
	ctx := context.Background()
	whID := uuid.New()
	testutil.SeedWarehouseConfig(t, db, whID, "ABC")
	rack := testutil.SeedRack(t, db, whID, "R001", 1, 1, models.RackStatusActive)
	bin := testutil.BinAt(t, db, rack.ID, 0, 0)

	pid := uuid.New()
	first := receiptFor(t, in, whID, models.VendorSKU, []inbound.LineInput{{ProductID: &pid, ProductSKU: "SKU-A", Quantity: 4}})
	if res, err := in.AutoAllocate(ctx, first.ID, nil); err != nil || res.Bound != 1 {
		t.Fatalf("AutoAllocate = %+v, %v", res, err)
	}

	empty := string(models.BinEmpty)
	blocked := string(models.BinBlocked)
	otherProduct := uuid.New()
	rejected := []struct {
		name string
		in   BinUpdate
	}{
		{"back to empty", BinUpdate{Status: &empty}},
		{"blocked", BinUpdate{Status: &blocked}},
		{"different product", BinUpdate{ProductID: &otherProduct}},
		{"store product", BinUpdate{StoreProductID: &otherProduct}},
	}
	for _, tt := range rejected {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.UpdateBin(ctx, bin.ID, tt.in, nil); !errors.Is(err, ErrBinInUse) {
				t.Errorf("UpdateBin = %v, want ErrBinInUse", err)
			}
		})
	}

	occupied := string(models.BinOccupied)
	updated, err := svc.UpdateBin(ctx, bin.ID, BinUpdate{Status: &occupied, ProductID: &pid, Quantity: intp(3)}, nil)
	if err != nil {
		t.Fatalf("UpdateBin on bound bin: %v", err)
	}
	if updated.Status != models.BinOccupied || *updated.Quantity != 3 {
		t.Errorf("updated = %+v", updated)
	}

	second := receiptFor(t, in, whID, models.VendorSKU, []inbound.LineInput{{ProductID: &otherProduct, ProductSKU: "SKU-B", Quantity: 1}})
	res, err := in.AutoAllocate(ctx, second.ID, nil)
	if err != nil {
		t.Fatalf("AutoAllocate second: %v", err)
	}
	if res.Bound != 0 || res.Unbound != 1 {
		t.Errorf("second receipt bound %d, unbound %d", res.Bound, res.Unbound)
	}
	if n := linesOnBin(t, db, bin.ID); n != 1 {
		t.Errorf("lines on bin = %d, want 1", n)
	}
}

func TestCratedBinLeavesAllocationPool(t *testing.T) {
	svc, wh, db := newTestService(t)
	in := newInbound(t, db, wh)
	ctx := context.Background()
	whID := uuid.New()
	testutil.SeedWarehouseConfig(t, db, whID, "ABC")
	rack := testutil.SeedRack(t, db, whID, "R001", 1, 2, models.RackStatusActive)
	held := testutil.BinAt(t, db, rack.ID, 0, 0)
	free := testutil.BinAt(t, db, rack.ID, 0, 1)

	rec := receiptFor(t, in, whID, models.VendorFlat, []inbound.LineInput{{CustomerName: "Customer", Apartment: "A"}})
	res, err := in.AutoAllocate(ctx, rec.ID, nil)
	if err != nil || res.Bound != 1 {
		t.Fatalf("AutoAllocate = %+v, %v", res, err)
	}
	line := res.Receipt.Lines[0]
	if line.BinID == nil || *line.BinID != held.ID {
		t.Fatalf("line bound to %v, want %s", line.BinID, held.Code)
	}

	crate, err := svc.CreateCrate(ctx, CrateInput{WarehouseID: whID}, nil)
	if err != nil {
		t.Fatalf("CreateCrate: %v", err)
	}
	if _, err := svc.PlaceCrate(ctx, held.ID, crate.ID, nil); err != nil {
		t.Fatalf("PlaceCrate into reserved bin: %v", err)
	}

	if _, err := in.ClearLine(ctx, line.ID, nil); err != nil {
		t.Fatalf("ClearLine: %v", err)
	}
	got := testutil.ReloadBin(t, db, held.ID)
	if got.Status != models.BinOccupied || got.CrateID == nil || *got.CrateID != crate.ID {
		t.Errorf("cleared bin with crate = %+v, want occupied with crate", got)
	}

	next := receiptFor(t, in, whID, models.VendorFlat, []inbound.LineInput{
		{CustomerName: "Customer", Apartment: "B"},
		{CustomerName: "Customer", Apartment: "C"},
	})
	res, err = in.AutoAllocate(ctx, next.ID, nil)
	if err != nil {
		t.Fatalf("AutoAllocate next: %v", err)
	}
	if res.Bound != 1 || res.Unbound != 1 {
		t.Errorf("bound %d, unbound %d, want 1/1", res.Bound, res.Unbound)
	}
	if b := res.Receipt.Lines[0].BinID; b == nil || *b != free.ID {
		t.Errorf("first line bound to %v, want %s", b, free.Code)
	}
	if n := linesOnBin(t, db, held.ID); n != 0 {
		t.Errorf("crated bin holds %d lines", n)
	}
}

func TestEmptyBinWithCrateIsSkipped(t *testing.T) {
	svc, wh, db := newTestService(t)
	in := newInbound(t, db, wh)
	ctx := context.Background()
	whID := uuid.New()
	testutil.SeedWarehouseConfig(t, db, whID, "ABC")
	rack := testutil.SeedRack(t, db, whID, "R001", 1, 1, models.RackStatusActive)
	bin := testutil.BinAt(t, db, rack.ID, 0, 0)

	crate, err := svc.CreateCrate(ctx, CrateInput{WarehouseID: whID}, nil)
	if err != nil {
		t.Fatalf("CreateCrate: %v", err)
	}
	if _, err := svc.UpdateBin(ctx, bin.ID, BinUpdate{CrateID: &crate.ID}, nil); err != nil {
		t.Fatalf("UpdateBin: %v", err)
	}

	rec := receiptFor(t, in, whID, models.VendorFlat, []inbound.LineInput{{CustomerName: "Customer", Apartment: "A"}})
	res, err := in.AutoAllocate(ctx, rec.ID, nil)
	if err != nil {
		t.Fatalf("AutoAllocate: %v", err)
	}
	if res.Bound != 0 {
		t.Errorf("bound %d lines to a bin holding a crate", res.Bound)
	}
}
