package inbound

import (
	"context"
	"fmt"

	"wms-backend/internal/audit"
	"wms-backend/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AllocationResult is the receipt after an allocation call. Bound counts the lines
// bound by this call; Unbound the lines still without a bin.
type AllocationResult struct {
	Receipt *models.InboundReceipt `json:"receipt"`
	Bound   int                    `json:"bound"`
	Unbound int                    `json:"unbound"`
}

// candidateBins selects the free bins of active racks in a warehouse in first-fit order.
func candidateBins(tx *gorm.DB, warehouseID uuid.UUID) *gorm.DB {
	return tx.Model(&models.Bin{}).
		Select("bins.*").
		Joins("JOIN racks ON racks.id = bins.rack_id").
		Where("racks.warehouse_id = ? AND racks.status = ? AND bins.status = ? AND bins.crate_id IS NULL",
			warehouseID, models.RackStatusActive, string(models.BinEmpty)).
		Order("racks.name ASC, bins.stack_index ASC, bins.bin_index ASC")
}

// productFreeRacks narrows candidates to racks that hold no SKU stock, keeping flat
// deliveries away from product storage.
func productFreeRacks(q, tx *gorm.DB) *gorm.DB {
	return q.Where("bins.rack_id NOT IN (?)",
		tx.Model(&models.Bin{}).Select("rack_id").Where("product_id IS NOT NULL"))
}

// claimBin reserves bin for line if it is still empty. It reports false when another
// request took the bin first.
func claimBin(tx *gorm.DB, bin *models.Bin, line *models.InboundReceiptLine, vendor models.VendorType) (bool, error) {
	updates := map[string]any{"status": string(models.BinReserved)}
	if vendor == models.VendorSKU {
		updates["product_id"] = line.ProductID
		updates["quantity"] = line.Quantity
	}
	res := tx.Model(&models.Bin{}).
		Where("id = ? AND status = ? AND crate_id IS NULL", bin.ID, string(models.BinEmpty)).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	bin.Status = models.BinReserved
	if vendor == models.VendorSKU {
		qty := line.Quantity
		bin.ProductID = line.ProductID
		bin.Quantity = &qty
	}
	if err := tx.Model(line).Update("bin_id", bin.ID).Error; err != nil {
		return false, err
	}
	line.BinID = &bin.ID
	line.Bin = bin
	return true, nil
}

// releaseBin drops a line's claim on a bin. A crate placed in the meantime stays put
// and keeps the bin occupied.
func releaseBin(tx *gorm.DB, binID uuid.UUID) error {
	return tx.Model(&models.Bin{}).Where("id = ?", binID).Updates(map[string]any{
		"status": gorm.Expr("CASE WHEN crate_id IS NULL THEN ? ELSE ? END",
			string(models.BinEmpty), string(models.BinOccupied)),
		"product_id":       nil,
		"store_product_id": nil,
		"quantity":         nil,
	}).Error
}

// advanceIfReady moves a fully bound, non-terminal receipt to READY_FOR_PICKING.
func advanceIfReady(tx *gorm.DB, rec *models.InboundReceipt, actorID *uuid.UUID) error {
	if rec.Status.Terminal() || rec.Status == models.ReceiptReadyForPicking || !rec.FullyBound() {
		return nil
	}
	before := rec.Status
	if err := tx.Model(rec).Update("status", string(models.ReceiptReadyForPicking)).Error; err != nil {
		return err
	}
	rec.Status = models.ReceiptReadyForPicking
	return audit.WriteLog(tx, audit.LogOptions{
		ActorID:     actorID,
		EntityType:  entityReceipt,
		EntityID:    rec.ID.String(),
		Action:      models.AuditActionUpdate,
		Description: "all lines hold a bin",
		Changes: map[string]audit.Change{
			"status": {Before: string(before), After: string(models.ReceiptReadyForPicking)},
		},
	})
}

// AutoAllocate binds every unbound line of a receipt to a free bin, first-fit in rack
// name then grid order. Lines left over when bins run out stay unbound; that is not
// an error. Lines that already hold a bin are never moved.
func (s *Service) AutoAllocate(ctx context.Context, receiptID uuid.UUID, actorID *uuid.UUID) (*AllocationResult, error) {
	bound := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := loadReceipt(tx, receiptID)
		if err != nil {
			return err
		}

		var pending []*models.InboundReceiptLine
		for i := range rec.Lines {
			if rec.Lines[i].BinID == nil {
				pending = append(pending, &rec.Lines[i])
			}
		}

		if len(pending) > 0 {
			var candidates []models.Bin
			if rec.VendorType == models.VendorFlat {
				if err := productFreeRacks(candidateBins(tx, rec.WarehouseID), tx).Find(&candidates).Error; err != nil {
					return err
				}
			}
			if len(candidates) == 0 {
				if err := candidateBins(tx, rec.WarehouseID).Find(&candidates).Error; err != nil {
					return err
				}
			}

			changes := map[string]audit.Change{}
			next := 0
			for _, line := range pending {
				for next < len(candidates) {
					bin := &candidates[next]
					next++
					ok, err := claimBin(tx, bin, line, rec.VendorType)
					if err != nil {
						return err
					}
					if ok {
						bound++
						changes[fmt.Sprintf("line %d", line.LineNo)] = audit.Change{After: bin.Code}
						break
					}
				}
				if next >= len(candidates) && line.BinID == nil {
					break
				}
			}

			if bound > 0 {
				if err := audit.WriteLog(tx, audit.LogOptions{
					ActorID:     actorID,
					EntityType:  entityReceipt,
					EntityID:    rec.ID.String(),
					Action:      models.AuditActionAllocate,
					Description: fmt.Sprintf("%d of %d lines bound", bound, len(pending)),
					Changes:     changes,
				}); err != nil {
					return err
				}
			}
		}

		return advanceIfReady(tx, rec, actorID)
	})
	if err != nil {
		return nil, err
	}

	rec, err := s.GetReceipt(ctx, receiptID)
	if err != nil {
		return nil, err
	}
	unbound := 0
	for _, l := range rec.Lines {
		if l.BinID == nil {
			unbound++
		}
	}

	s.log.Info("receipt allocated",
		zap.String("code", rec.Code),
		zap.Int("bound", bound),
		zap.Int("unbound", unbound),
	)
	return &AllocationResult{Receipt: rec, Bound: bound, Unbound: unbound}, nil
}

// ReassignLine frees the line's bin and binds the first other free bin. Segregation is
// not applied. When nothing is free the line comes back unbound.
func (s *Service) ReassignLine(ctx context.Context, lineID uuid.UUID, actorID *uuid.UUID) (*models.InboundReceiptLine, error) {
	var line *models.InboundReceiptLine
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		line, err = loadLine(tx, lineID)
		if err != nil {
			return err
		}
		rec, err := loadReceipt(tx, line.ReceiptID)
		if err != nil {
			return err
		}

		freed := line.BinID
		if freed != nil {
			if err := releaseBin(tx, *freed); err != nil {
				return err
			}
			if err := tx.Model(line).Update("bin_id", nil).Error; err != nil {
				return err
			}
			line.BinID = nil
			line.Bin = nil
		}

		q := candidateBins(tx, rec.WarehouseID)
		if freed != nil {
			q = q.Where("bins.id <> ?", *freed)
		}
		var candidates []models.Bin
		if err := q.Find(&candidates).Error; err != nil {
			return err
		}
		for i := range candidates {
			ok, err := claimBin(tx, &candidates[i], line, rec.VendorType)
			if err != nil {
				return err
			}
			if ok {
				break
			}
		}

		change := audit.Change{}
		if freed != nil {
			change.Before = freed.String()
		}
		if line.BinID != nil {
			change.After = line.BinID.String()
		}
		if err := audit.WriteLog(tx, audit.LogOptions{
			ActorID:    actorID,
			EntityType: entityLine,
			EntityID:   line.ID.String(),
			Action:     models.AuditActionAllocate,
			Changes:    map[string]audit.Change{"binId": change},
		}); err != nil {
			return err
		}

		for i := range rec.Lines {
			if rec.Lines[i].ID == line.ID {
				rec.Lines[i].BinID = line.BinID
			}
		}
		return advanceIfReady(tx, rec, actorID)
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

// ClearLine frees the line's bin and leaves the line unbound. Clearing an unbound
// line is a no-op.
func (s *Service) ClearLine(ctx context.Context, lineID uuid.UUID, actorID *uuid.UUID) (*models.InboundReceiptLine, error) {
	var line *models.InboundReceiptLine
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		line, err = loadLine(tx, lineID)
		if err != nil {
			return err
		}
		if line.BinID == nil {
			return nil
		}

		freed := *line.BinID
		if err := releaseBin(tx, freed); err != nil {
			return err
		}
		if err := tx.Model(line).Update("bin_id", nil).Error; err != nil {
			return err
		}
		line.BinID = nil
		return audit.WriteLog(tx, audit.LogOptions{
			ActorID:    actorID,
			EntityType: entityLine,
			EntityID:   line.ID.String(),
			Action:     models.AuditActionRelease,
			Changes:    map[string]audit.Change{"binId": {Before: freed.String()}},
		})
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}
