// Package storage manages the physical topology of a warehouse: racks, the grid of
// bins they own, and the crates placed into bins.
package storage

import (
	"context"

	"wms-backend/internal/models"
	"wms-backend/internal/warehouse"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	entityRack  = "rack"
	entityBin   = "bin"
	entityCrate = "crate"
)

// Sequencer hands out generated-name sequences and system defaults.
type Sequencer interface {
	ConsumeNext(ctx context.Context, warehouseID uuid.UUID, counter warehouse.Counter) (*models.WarehouseConfig, int64, error)
	DefaultRackStatus(ctx context.Context) string
}

type Service struct {
	db  *gorm.DB
	seq Sequencer
	log *zap.Logger
}

func NewService(db *gorm.DB, seq Sequencer, log *zap.Logger) *Service {
	return &Service{db: db, seq: seq, log: log.Named("storage")}
}

// warehouseConfig returns the naming config of a warehouse, or nil when it has none.
// Bin codes fall back to the default prefix without a short code in that case.
func warehouseConfig(tx *gorm.DB, warehouseID uuid.UUID) (*models.WarehouseConfig, error) {
	var cfgs []models.WarehouseConfig
	if err := tx.Where("warehouse_id = ?", warehouseID).Limit(1).Find(&cfgs).Error; err != nil {
		return nil, err
	}
	if len(cfgs) == 0 {
		return nil, nil
	}
	return &cfgs[0], nil
}
