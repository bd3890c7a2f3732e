package warehouse

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"wms-backend/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Counter names one of the sequences kept in a warehouse config.
type Counter int

const (
	CounterRack Counter = iota
	CounterCrate
	CounterReceipt
)

func (c Counter) String() string {
	switch c {
	case CounterRack:
		return "rack"
	case CounterCrate:
		return "crate"
	case CounterReceipt:
		return "receipt"
	}
	return fmt.Sprintf("counter(%d)", int(c))
}

// clamp forces an administratively supplied value into the counter's range.
func (c Counter) clamp(v int64) int64 {
	if v < 1 {
		return 1
	}
	if ceil := c.ceiling(); ceil > 0 && v > ceil {
		return ceil
	}
	return v
}

// ceiling is the largest value a counter hands out; 0 means unbounded.
func (c Counter) ceiling() int64 {
	switch c {
	case CounterRack:
		return models.MaxRackSeq
	case CounterCrate:
		return models.MaxCrateSeq
	case CounterReceipt:
		return 0
	}
	return 0
}

func (c Counter) get(cfg *models.WarehouseConfig) int64 {
	switch c {
	case CounterRack:
		return int64(cfg.NextRackSeq)
	case CounterCrate:
		return int64(cfg.NextCrateSeq)
	case CounterReceipt:
		return cfg.NextReceiptSeq
	}
	return 1
}

func (c Counter) column() string {
	switch c {
	case CounterRack:
		return "next_rack_seq"
	case CounterCrate:
		return "next_crate_seq"
	case CounterReceipt:
		return "next_receipt_seq"
	}
	return ""
}

func (c Counter) set(cfg *models.WarehouseConfig, v int64) {
	switch c {
	case CounterRack:
		cfg.NextRackSeq = int(v)
	case CounterCrate:
		cfg.NextCrateSeq = int(v)
	case CounterReceipt:
		cfg.NextReceiptSeq = v
	}
}

// advance returns the value to hand out now and the value to store.
func (c Counter) advance(current int64) (use, next int64) {
	ceil := c.ceiling()
	use = current
	if use < 1 || (ceil > 0 && use > ceil) {
		use = 1
	}
	next = use + 1
	if ceil > 0 && next > ceil {
		next = 1
	}
	return use, next
}

func lockKey(warehouseID uuid.UUID) string {
	return "warehouse-config:" + warehouseID.String()
}

// ConsumeNext claims the current value of counter for warehouseID and advances it.
// Concurrent callers for the same warehouse are serialised by the keyed lock and by a
// row lock on the config; callers for other warehouses proceed independently.
func (s *Service) ConsumeNext(ctx context.Context, warehouseID uuid.UUID, counter Counter) (*models.WarehouseConfig, int64, error) {
	release, err := s.locker.Lock(ctx, lockKey(warehouseID))
	if err != nil {
		return nil, 0, fmt.Errorf("lock %s sequence: %w", counter, err)
	}
	defer release()

	var (
		cfg  models.WarehouseConfig
		used int64
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx
		if tx.Dialector.Name() == "postgres" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		if err := q.Where("warehouse_id = ?", warehouseID).First(&cfg).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrConfigurationMissing
			}
			return err
		}
		if strings.TrimSpace(cfg.ShortCode) == "" {
			return ErrShortCodeMissing
		}

		var next int64
		used, next = counter.advance(counter.get(&cfg))
		counter.set(&cfg, next)
		return tx.Model(&cfg).Update(counter.column(), next).Error
	})
	if err != nil {
		return nil, 0, err
	}

	s.log.Debug("sequence consumed",
		zap.String("warehouse_id", warehouseID.String()),
		zap.Stringer("counter", counter),
		zap.Int64("value", used),
	)
	return &cfg, used, nil
}
