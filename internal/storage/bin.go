package storage

import (
	"context"
	"errors"
	"fmt"

	"wms-backend/internal/audit"
	"wms-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BinInput struct {
	StackIndex     int        `json:"stack_index"`
	BinIndex       int        `json:"bin_index"`
	Status         string     `json:"status"`
	CrateID        *uuid.UUID `json:"crate_id"`
	ProductID      *uuid.UUID `json:"product_id"`
	StoreProductID *uuid.UUID `json:"store_product_id"`
	Quantity       *int       `json:"quantity"`
}

// BinUpdate carries the fields to change; nil leaves a field as it is.
type BinUpdate struct {
	StackIndex     *int       `json:"stack_index"`
	BinIndex       *int       `json:"bin_index"`
	Status         *string    `json:"status"`
	CrateID        *uuid.UUID `json:"crate_id"`
	ProductID      *uuid.UUID `json:"product_id"`
	StoreProductID *uuid.UUID `json:"store_product_id"`
	Quantity       *int       `json:"quantity"`
}

func binFields(b models.Bin) map[string]any {
	f := map[string]any{
		"stackIndex": b.StackIndex,
		"binIndex":   b.BinIndex,
		"code":       b.Code,
		"status":     string(b.Status),
	}
	if b.CrateID != nil {
		f["crateId"] = b.CrateID.String()
	}
	if b.ProductID != nil {
		f["productId"] = b.ProductID.String()
	}
	if b.Quantity != nil {
		f["quantity"] = *b.Quantity
	}
	return f
}

func loadBin(tx *gorm.DB, id uuid.UUID) (*models.Bin, error) {
	var bin models.Bin
	if err := tx.First(&bin, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBinNotFound
		}
		return nil, err
	}
	return &bin, nil
}

func coordinatesTaken(tx *gorm.DB, rackID uuid.UUID, stack, bin int, except uuid.UUID) (bool, error) {
	var n int64
	err := tx.Model(&models.Bin{}).
		Where("rack_id = ? AND stack_index = ? AND bin_index = ? AND id <> ?", rackID, stack, bin, except).
		Count(&n).Error
	return n > 0, err
}

// lineBound reports whether a receipt line holds the bin.
func lineBound(tx *gorm.DB, binID uuid.UUID) (bool, error) {
	var n int64
	err := tx.Model(&models.InboundReceiptLine{}).Where("bin_id = ?", binID).Count(&n).Error
	return n > 0, err
}

func sameID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func parseBinStatus(s string) (models.BinStatus, error) {
	if s == "" {
		return models.BinEmpty, nil
	}
	st := models.BinStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("%q: %w", s, ErrInvalidBinStatus)
	}
	return st, nil
}

func (s *Service) ListBins(ctx context.Context, rackID uuid.UUID) ([]models.Bin, error) {
	db := s.db.WithContext(ctx)
	if _, err := loadRack(db, rackID); err != nil {
		return nil, err
	}
	var bins []models.Bin
	if err := orderedBins(db.Where("rack_id = ?", rackID)).Find(&bins).Error; err != nil {
		return nil, err
	}
	return bins, nil
}

// CreateBin adds a single bin to a rack, outside the grid materialisation.
func (s *Service) CreateBin(ctx context.Context, rackID uuid.UUID, in BinInput, actorID *uuid.UUID) (*models.Bin, error) {
	if in.StackIndex < 0 || in.BinIndex < 0 {
		return nil, ErrInvalidCoordinates
	}
	status, err := parseBinStatus(in.Status)
	if err != nil {
		return nil, err
	}

	var bin models.Bin
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rack, err := loadRack(tx, rackID)
		if err != nil {
			return err
		}
		taken, err := coordinatesTaken(tx, rackID, in.StackIndex, in.BinIndex, uuid.Nil)
		if err != nil {
			return err
		}
		if taken {
			return ErrBinExists
		}
		cfg, err := warehouseConfig(tx, rack.WarehouseID)
		if err != nil {
			return err
		}

		bin = models.Bin{
			RackID:         rackID,
			StackIndex:     in.StackIndex,
			BinIndex:       in.BinIndex,
			Code:           binCode(cfg, rack.Name, in.StackIndex, in.BinIndex),
			Status:         status,
			CrateID:        in.CrateID,
			ProductID:      in.ProductID,
			StoreProductID: in.StoreProductID,
			Quantity:       in.Quantity,
		}
		if err := tx.Create(&bin).Error; err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			ActorID:    actorID,
			EntityType: entityBin,
			EntityID:   bin.ID.String(),
			Action:     models.AuditActionCreate,
			Changes:    audit.Created(binFields(bin)),
		})
	})
	if err != nil {
		return nil, err
	}
	return &bin, nil
}

// UpdateBin edits a bin. The code is always recomputed from the resulting coordinates.
func (s *Service) UpdateBin(ctx context.Context, binID uuid.UUID, in BinUpdate, actorID *uuid.UUID) (*models.Bin, error) {
	var bin *models.Bin
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		bin, err = loadBin(tx, binID)
		if err != nil {
			return err
		}
		before := binFields(*bin)
		product, storeProduct := bin.ProductID, bin.StoreProductID

		if in.StackIndex != nil {
			bin.StackIndex = *in.StackIndex
		}
		if in.BinIndex != nil {
			bin.BinIndex = *in.BinIndex
		}
		if bin.StackIndex < 0 || bin.BinIndex < 0 {
			return ErrInvalidCoordinates
		}
		if in.Status != nil {
			st, err := parseBinStatus(*in.Status)
			if err != nil {
				return err
			}
			bin.Status = st
		}
		if in.CrateID != nil {
			bin.CrateID = in.CrateID
		}
		if in.ProductID != nil {
			bin.ProductID = in.ProductID
		}
		if in.StoreProductID != nil {
			bin.StoreProductID = in.StoreProductID
		}
		if in.Quantity != nil {
			bin.Quantity = in.Quantity
		}

		// a bound bin keeps the status and product its line was allocated with
		if in.Status != nil || in.ProductID != nil || in.StoreProductID != nil {
			bound, err := lineBound(tx, bin.ID)
			if err != nil {
				return err
			}
			held := bin.Status == models.BinReserved || bin.Status == models.BinOccupied
			if bound && (!held || !sameID(product, bin.ProductID) || !sameID(storeProduct, bin.StoreProductID)) {
				return ErrBinInUse
			}
		}

		taken, err := coordinatesTaken(tx, bin.RackID, bin.StackIndex, bin.BinIndex, bin.ID)
		if err != nil {
			return err
		}
		if taken {
			return ErrBinExists
		}

		rack, err := loadRack(tx, bin.RackID)
		if err != nil {
			return err
		}
		cfg, err := warehouseConfig(tx, rack.WarehouseID)
		if err != nil {
			return err
		}
		bin.Code = binCode(cfg, rack.Name, bin.StackIndex, bin.BinIndex)

		if err := tx.Save(bin).Error; err != nil {
			return err
		}
		changes := audit.Diff(before, binFields(*bin))
		if len(changes) == 0 {
			return nil
		}
		return audit.WriteLog(tx, audit.LogOptions{
			ActorID:    actorID,
			EntityType: entityBin,
			EntityID:   bin.ID.String(),
			Action:     models.AuditActionUpdate,
			Changes:    changes,
		})
	})
	if err != nil {
		return nil, err
	}
	return bin, nil
}

func (s *Service) DeleteBin(ctx context.Context, binID uuid.UUID, actorID *uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bin, err := loadBin(tx, binID)
		if err != nil {
			return err
		}
		bound, err := lineBound(tx, binID)
		if err != nil {
			return err
		}
		if bound {
			return ErrBinInUse
		}
		if err := tx.Delete(bin).Error; err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			ActorID:    actorID,
			EntityType: entityBin,
			EntityID:   bin.ID.String(),
			Action:     models.AuditActionDelete,
			Changes:    audit.Diff(binFields(*bin), nil),
		})
	})
}
