package inbound

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"wms-backend/internal/audit"
	"wms-backend/internal/codegen"
	"wms-backend/internal/models"
	"wms-backend/internal/warehouse"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type LineInput struct {
	ProductID    *uuid.UUID `json:"product_id"`
	ProductSKU   string     `json:"product_sku"`
	ProductName  string     `json:"product_name"`
	CustomerID   *uuid.UUID `json:"customer_id"`
	CustomerName string     `json:"customer_name"`
	Apartment    string     `json:"apartment"`
	Quantity     int        `json:"quantity"`
	Notes        string     `json:"notes"`
}

type ReceiptInput struct {
	WarehouseID    uuid.UUID         `json:"warehouse_id"`
	VendorID       uuid.UUID         `json:"vendor_id"`
	VendorType     models.VendorType `json:"vendor_type"`
	Reference      string            `json:"reference"`
	PlannedArrival *time.Time        `json:"planned_arrival"`
	Notes          string            `json:"notes"`
	Lines          []LineInput       `json:"lines"`
}

// LineUpdate edits the counting fields of a line; bins are only changed by allocation.
type LineUpdate struct {
	ReceivedQty *int    `json:"received_qty"`
	Damaged     *int    `json:"damaged"`
	Missing     *int    `json:"missing"`
	Notes       *string `json:"notes"`
}

type Filter struct {
	WarehouseID uuid.UUID
	VendorType  models.VendorType
	Status      models.ReceiptStatus
	Search      string
	From        *time.Time
	To          *time.Time
}

type KPIs struct {
	TotalReceipts  int64 `json:"totalReceipts"`
	OpenReceipts   int64 `json:"openReceipts"`
	Pending        int64 `json:"pending"`
	CompletedToday int64 `json:"completedToday"`
	LateArrivals   int64 `json:"lateArrivals"`
	SKUReceipts    int64 `json:"skuReceipts"`
	FlatReceipts   int64 `json:"flatReceipts"`
	BinsAllocated  int64 `json:"binsAllocated"`
}

var terminalStatuses = []string{string(models.ReceiptCompleted), string(models.ReceiptCancelled)}

func linesInOrder(db *gorm.DB) *gorm.DB {
	return db.Order("line_no ASC")
}

func withLines(db *gorm.DB) *gorm.DB {
	return db.Preload("Lines", linesInOrder).Preload("Lines.Bin")
}

func loadReceipt(tx *gorm.DB, id uuid.UUID) (*models.InboundReceipt, error) {
	var rec models.InboundReceipt
	if err := withLines(tx).First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReceiptNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func loadLine(tx *gorm.DB, id uuid.UUID) (*models.InboundReceiptLine, error) {
	var line models.InboundReceiptLine
	if err := tx.First(&line, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLineNotFound
		}
		return nil, err
	}
	return &line, nil
}

func nonNegative(vals ...*int) bool {
	for _, v := range vals {
		if v != nil && *v < 0 {
			return false
		}
	}
	return true
}

// CreateReceipt stores a receipt with its lines numbered in input order. The code is
// drawn from the warehouse receipt sequence.
func (s *Service) CreateReceipt(ctx context.Context, in ReceiptInput, actorID *uuid.UUID) (*models.InboundReceipt, error) {
	if !in.VendorType.Valid() {
		return nil, ErrInvalidVendorType
	}
	for _, l := range in.Lines {
		if l.Quantity < 0 {
			return nil, ErrInvalidQuantity
		}
	}

	cfg, seq, err := s.seq.ConsumeNext(ctx, in.WarehouseID, warehouse.CounterReceipt)
	if err != nil {
		return nil, err
	}

	rec := models.InboundReceipt{
		Code:           codegen.ReceiptCode(cfg.ReceiptPrefix, cfg.ShortCode, seq),
		WarehouseID:    in.WarehouseID,
		VendorID:       in.VendorID,
		VendorType:     in.VendorType,
		Reference:      strings.TrimSpace(in.Reference),
		PlannedArrival: in.PlannedArrival,
		Status:         models.ReceiptAwaitingUnloading,
		Notes:          in.Notes,
	}
	for i, l := range in.Lines {
		rec.Lines = append(rec.Lines, models.InboundReceiptLine{
			LineNo:       i + 1,
			ProductID:    l.ProductID,
			ProductSKU:   strings.TrimSpace(l.ProductSKU),
			ProductName:  strings.TrimSpace(l.ProductName),
			CustomerID:   l.CustomerID,
			CustomerName: strings.TrimSpace(l.CustomerName),
			Apartment:    strings.TrimSpace(l.Apartment),
			Quantity:     l.Quantity,
			Notes:        l.Notes,
		})
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&rec).Error; err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			ActorID:     actorID,
			EntityType:  entityReceipt,
			EntityID:    rec.ID.String(),
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("receipt %s created with %d lines", rec.Code, len(rec.Lines)),
			Changes: audit.Created(map[string]any{
				"code":       rec.Code,
				"vendorType": string(rec.VendorType),
				"status":     string(rec.Status),
			}),
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("receipt created",
		zap.String("code", rec.Code),
		zap.String("warehouse_id", rec.WarehouseID.String()),
		zap.Int("lines", len(rec.Lines)),
	)
	return &rec, nil
}

// GetReceipt returns a receipt with its lines in order, each joined to its bin.
func (s *Service) GetReceipt(ctx context.Context, id uuid.UUID) (*models.InboundReceipt, error) {
	return loadReceipt(s.db.WithContext(ctx), id)
}

// ListReceipts returns receipts newest first.
func (s *Service) ListReceipts(ctx context.Context, f Filter) ([]models.InboundReceipt, error) {
	q := withLines(s.db.WithContext(ctx))
	if f.WarehouseID != uuid.Nil {
		q = q.Where("warehouse_id = ?", f.WarehouseID)
	}
	if f.VendorType != "" {
		q = q.Where("vendor_type = ?", string(f.VendorType))
	}
	if f.Status != "" {
		q = q.Where("status = ?", string(f.Status))
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		q = q.Where("(LOWER(code) LIKE ? OR LOWER(reference) LIKE ?)", like, like)
	}
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at <= ?", *f.To)
	}

	var receipts []models.InboundReceipt
	if err := q.Order("created_at DESC").Find(&receipts).Error; err != nil {
		return nil, err
	}
	return receipts, nil
}

// UpdateStatus moves a receipt to an explicitly requested status. READY_FOR_PICKING is
// never accepted here and terminal receipts stay terminal.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status models.ReceiptStatus, actorID *uuid.UUID) (*models.InboundReceipt, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%q: %w", status, ErrInvalidStatus)
	}
	if status.Derived() {
		return nil, ErrDerivedStatus
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec models.InboundReceipt
		if err := tx.First(&rec, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrReceiptNotFound
			}
			return err
		}
		if rec.Status == status {
			return nil
		}
		if rec.Status.Terminal() {
			return ErrTerminalReceipt
		}

		updates := map[string]any{"status": string(status)}
		// first move off the dock door marks the physical arrival
		if rec.Status == models.ReceiptAwaitingUnloading && rec.ActualArrival == nil && status != models.ReceiptCancelled {
			updates["actual_arrival"] = s.now()
		}
		if err := tx.Model(&rec).Updates(updates).Error; err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			ActorID:    actorID,
			EntityType: entityReceipt,
			EntityID:   rec.ID.String(),
			Action:     models.AuditActionUpdate,
			Changes: map[string]audit.Change{
				"status": {Before: string(rec.Status), After: string(status)},
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return s.GetReceipt(ctx, id)
}

// UpdateLine records counted, damaged and missing quantities.
func (s *Service) UpdateLine(ctx context.Context, lineID uuid.UUID, in LineUpdate, actorID *uuid.UUID) (*models.InboundReceiptLine, error) {
	if !nonNegative(in.ReceivedQty, in.Damaged, in.Missing) {
		return nil, ErrInvalidQuantity
	}

	var line *models.InboundReceiptLine
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		line, err = loadLine(tx, lineID)
		if err != nil {
			return err
		}

		changes := map[string]audit.Change{}
		updates := map[string]any{}
		for _, f := range []struct {
			key, column string
			cur         **int
			val         *int
		}{
			{"receivedQty", "received_qty", &line.ReceivedQty, in.ReceivedQty},
			{"damaged", "damaged", &line.Damaged, in.Damaged},
			{"missing", "missing", &line.Missing, in.Missing},
		} {
			if f.val == nil || (*f.cur != nil && **f.cur == *f.val) {
				continue
			}
			var before any
			if *f.cur != nil {
				before = **f.cur
			}
			changes[f.key] = audit.Change{Before: before, After: *f.val}
			updates[f.column] = *f.val
			v := *f.val
			*f.cur = &v
		}
		if in.Notes != nil && *in.Notes != line.Notes {
			changes["notes"] = audit.Change{Before: line.Notes, After: *in.Notes}
			updates["notes"] = *in.Notes
			line.Notes = *in.Notes
		}
		if len(updates) == 0 {
			return nil
		}

		if err := tx.Model(line).Updates(updates).Error; err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			ActorID:    actorID,
			EntityType: entityLine,
			EntityID:   line.ID.String(),
			Action:     models.AuditActionUpdate,
			Changes:    changes,
		})
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

// KPIs summarises goods-in for the dashboard. uuid.Nil covers every warehouse.
func (s *Service) KPIs(ctx context.Context, warehouseID uuid.UUID) (*KPIs, error) {
	db := s.db.WithContext(ctx)
	scope := func(db *gorm.DB) *gorm.DB {
		q := db.Model(&models.InboundReceipt{})
		if warehouseID != uuid.Nil {
			q = q.Where("warehouse_id = ?", warehouseID)
		}
		return q
	}

	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	tomorrow := today.AddDate(0, 0, 1)

	var k KPIs
	counts := []struct {
		dst   *int64
		query func(*gorm.DB) *gorm.DB
	}{
		{&k.TotalReceipts, func(q *gorm.DB) *gorm.DB { return q }},
		{&k.OpenReceipts, func(q *gorm.DB) *gorm.DB { return q.Where("status NOT IN ?", terminalStatuses) }},
		{&k.Pending, func(q *gorm.DB) *gorm.DB {
			return q.Where("status = ?", string(models.ReceiptAwaitingUnloading))
		}},
		{&k.CompletedToday, func(q *gorm.DB) *gorm.DB {
			return q.Where("status = ? AND updated_at >= ? AND updated_at < ?", string(models.ReceiptCompleted), today, tomorrow)
		}},
		{&k.LateArrivals, func(q *gorm.DB) *gorm.DB {
			return q.Where("planned_arrival IS NOT NULL AND planned_arrival < ? AND status NOT IN ?", today, terminalStatuses)
		}},
		{&k.SKUReceipts, func(q *gorm.DB) *gorm.DB { return q.Where("vendor_type = ?", string(models.VendorSKU)) }},
		{&k.FlatReceipts, func(q *gorm.DB) *gorm.DB { return q.Where("vendor_type = ?", string(models.VendorFlat)) }},
	}
	for _, c := range counts {
		if err := c.query(scope(db)).Count(c.dst).Error; err != nil {
			return nil, err
		}
	}

	// bound lines of receipts still in progress
	if err := db.Model(&models.InboundReceiptLine{}).
		Where("bin_id IS NOT NULL").
		Where("receipt_id IN (?)", scope(db).Select("id").Where("status NOT IN ?", terminalStatuses)).
		Count(&k.BinsAllocated).Error; err != nil {
		return nil, err
	}
	return &k, nil
}
