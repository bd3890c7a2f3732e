// Package inbound implements the goods-in receipt lifecycle and the engine that binds
// receipt lines to storage bins.
package inbound

import (
	"context"
	"time"

	"wms-backend/internal/models"
	"wms-backend/internal/warehouse"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	entityReceipt = "inbound_receipt"
	entityLine    = "inbound_receipt_line"
)

// Sequencer hands out receipt code sequences.
type Sequencer interface {
	ConsumeNext(ctx context.Context, warehouseID uuid.UUID, counter warehouse.Counter) (*models.WarehouseConfig, int64, error)
}

type Service struct {
	db  *gorm.DB
	seq Sequencer
	log *zap.Logger
	now func() time.Time
}

func NewService(db *gorm.DB, seq Sequencer, log *zap.Logger) *Service {
	return &Service{
		db:  db,
		seq: seq,
		log: log.Named("inbound"),
		now: func() time.Time { return time.Now().UTC() },
	}
}
