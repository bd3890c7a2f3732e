package storage

import (
	"context"
	"errors"
	"fmt"

	"wms-backend/internal/audit"
	"wms-backend/internal/codegen"
	"wms-backend/internal/models"
	"wms-backend/internal/warehouse"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxBulkCrates = 500

type CrateInput struct {
	WarehouseID uuid.UUID          `json:"warehouse_id"`
	Type        models.CrateType   `json:"type"`
	Status      models.CrateStatus `json:"status"`
}

func (in *CrateInput) normalize() error {
	if in.Type == "" {
		in.Type = models.CrateStandard
	}
	if in.Status == "" {
		in.Status = models.CrateActive
	}
	if !in.Type.Valid() || !in.Status.Valid() {
		return ErrInvalidCrate
	}
	return nil
}

// CreateCrate names a crate from the warehouse crate sequence. The QR payload is the name.
func (s *Service) CreateCrate(ctx context.Context, in CrateInput, actorID *uuid.UUID) (*models.Crate, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	cfg, seq, err := s.seq.ConsumeNext(ctx, in.WarehouseID, warehouse.CounterCrate)
	if err != nil {
		return nil, err
	}
	name := codegen.CrateName(cfg.ShortCode, cfg.CratePrefix, cfg.CrateSuffix, int(seq))

	crate := models.Crate{
		WarehouseID: in.WarehouseID,
		Name:        name,
		QRCode:      name,
		Status:      in.Status,
		Type:        in.Type,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var taken int64
		if err := tx.Model(&models.Crate{}).Where("qr_code = ?", crate.QRCode).Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return fmt.Errorf("crate %s: %w", crate.Name, ErrCrateNameTaken)
		}
		if err := tx.Create(&crate).Error; err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			ActorID:     actorID,
			EntityType:  entityCrate,
			EntityID:    crate.ID.String(),
			Action:      models.AuditActionCreate,
			Description: "crate " + crate.Name + " created",
		})
	})
	if err != nil {
		return nil, err
	}
	return &crate, nil
}

// CreateCrates creates count crates, each consuming its own sequence value. Crates
// created before a failure are kept and returned with the error.
func (s *Service) CreateCrates(ctx context.Context, in CrateInput, count int, actorID *uuid.UUID) ([]models.Crate, error) {
	if count < 1 || count > maxBulkCrates {
		return nil, ErrInvalidCount
	}
	crates := make([]models.Crate, 0, count)
	for i := 0; i < count; i++ {
		c, err := s.CreateCrate(ctx, in, actorID)
		if err != nil {
			return crates, err
		}
		crates = append(crates, *c)
	}
	s.log.Info("crates created",
		zap.String("warehouse_id", in.WarehouseID.String()),
		zap.Int("count", len(crates)),
	)
	return crates, nil
}

// ListCrates returns crates by name; uuid.Nil lists every warehouse.
func (s *Service) ListCrates(ctx context.Context, warehouseID uuid.UUID) ([]models.Crate, error) {
	q := s.db.WithContext(ctx).Order("name ASC")
	if warehouseID != uuid.Nil {
		q = q.Where("warehouse_id = ?", warehouseID)
	}
	var crates []models.Crate
	if err := q.Find(&crates).Error; err != nil {
		return nil, err
	}
	return crates, nil
}

// PlaceCrate puts a crate into a bin. The bin becomes occupied and the crate in use.
func (s *Service) PlaceCrate(ctx context.Context, binID, crateID uuid.UUID, actorID *uuid.UUID) (*models.Bin, error) {
	var bin *models.Bin
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		bin, err = loadBin(tx, binID)
		if err != nil {
			return err
		}
		var crate models.Crate
		if err := tx.First(&crate, "id = ?", crateID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCrateNotFound
			}
			return err
		}

		if bin.CrateID != nil && *bin.CrateID == crateID {
			return nil
		}
		if bin.CrateID != nil || (bin.Status != models.BinEmpty && bin.Status != models.BinReserved) {
			return ErrBinUnavailable
		}
		if crate.Status != models.CrateActive && crate.Status != models.CrateReserved {
			return ErrCrateUnavailable
		}
		rack, err := loadRack(tx, bin.RackID)
		if err != nil {
			return err
		}
		if rack.WarehouseID != crate.WarehouseID {
			return ErrCrateWarehouse
		}
		var elsewhere int64
		if err := tx.Model(&models.Bin{}).Where("crate_id = ?", crateID).Count(&elsewhere).Error; err != nil {
			return err
		}
		if elsewhere > 0 {
			return ErrCrateUnavailable
		}

		before := binFields(*bin)
		bin.CrateID = &crateID
		bin.Status = models.BinOccupied
		if err := tx.Model(bin).Updates(map[string]any{
			"crate_id": crateID,
			"status":   models.BinOccupied,
		}).Error; err != nil {
			return err
		}
		if err := tx.Model(&crate).Update("status", models.CrateInUse).Error; err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			ActorID:     actorID,
			EntityType:  entityBin,
			EntityID:    bin.ID.String(),
			Action:      models.AuditActionAllocate,
			Description: "crate " + crate.Name + " placed in " + bin.Code,
			Changes:     audit.Diff(before, binFields(*bin)),
		})
	})
	if err != nil {
		return nil, err
	}
	return bin, nil
}
