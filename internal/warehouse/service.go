package warehouse

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"wms-backend/internal/audit"
	"wms-backend/internal/lock"
	"wms-backend/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	entityWarehouseConfig = "warehouse_config"
	entitySystemConfig    = "system_config"
)

// Service is the warehouse configuration store and sequence allocator.
type Service struct {
	db     *gorm.DB
	locker lock.Locker
	log    *zap.Logger
}

func NewService(db *gorm.DB, locker lock.Locker, log *zap.Logger) *Service {
	return &Service{db: db, locker: locker, log: log.Named("warehouse")}
}

// ConfigInput is an administrative write. ShortCode is always required; any other nil
// field keeps its current value. A blank prefix resets it to the default.
type ConfigInput struct {
	WarehouseName  *string `json:"warehouseName"`
	ShortCode      string  `json:"shortCode"`
	RackPrefix     *string `json:"rackPrefix"`
	CratePrefix    *string `json:"cratePrefix"`
	CrateSuffix    *string `json:"crateSuffix"`
	ReceiptPrefix  *string `json:"receiptPrefix"`
	NextRackSeq    *int64  `json:"nextRackSeq"`
	NextCrateSeq   *int64  `json:"nextCrateSeq"`
	NextReceiptSeq *int64  `json:"nextReceiptSeq"`
}

func (s *Service) Get(ctx context.Context, warehouseID uuid.UUID) (*models.WarehouseConfig, error) {
	var cfg models.WarehouseConfig
	err := s.db.WithContext(ctx).Where("warehouse_id = ?", warehouseID).First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrConfigurationMissing
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validShortCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return false
		}
	}
	return true
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}

func prefixOr(in *string, current, def string) string {
	if in != nil {
		return orDefault(*in, def)
	}
	return orDefault(current, def)
}

// Upsert creates or updates the warehouse config. Sequences may only be raised.
func (s *Service) Upsert(ctx context.Context, warehouseID uuid.UUID, in ConfigInput, actorID *uuid.UUID) (*models.WarehouseConfig, error) {
	short := strings.ToUpper(strings.TrimSpace(in.ShortCode))
	if !validShortCode(short) {
		return nil, ErrInvalidShortCode
	}

	// same key as ConsumeNext so an admin write never races a consumer
	release, err := s.locker.Lock(ctx, lockKey(warehouseID))
	if err != nil {
		return nil, fmt.Errorf("lock warehouse config: %w", err)
	}
	defer release()

	var cfg models.WarehouseConfig
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var taken int64
		if err := tx.Model(&models.WarehouseConfig{}).
			Where("warehouse_id <> ? AND short_code = ?", warehouseID, short).
			Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return ErrDuplicateShortCode
		}

		q := tx
		if tx.Dialector.Name() == "postgres" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		exists := true
		if err := q.Where("warehouse_id = ?", warehouseID).First(&cfg).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			exists = false
			cfg = models.WarehouseConfig{WarehouseID: warehouseID, NextRackSeq: 1, NextCrateSeq: 1, NextReceiptSeq: 1}
		}
		before := cfg.Fields()

		for _, c := range []struct {
			counter Counter
			in      *int64
		}{
			{CounterRack, in.NextRackSeq},
			{CounterCrate, in.NextCrateSeq},
			{CounterReceipt, in.NextReceiptSeq},
		} {
			if c.in == nil {
				continue
			}
			v := c.counter.clamp(*c.in)
			if exists && v < c.counter.clamp(c.counter.get(&cfg)) {
				return fmt.Errorf("%s sequence %d is below current %d: %w",
					c.counter, v, c.counter.get(&cfg), ErrSequenceRegression)
			}
			c.counter.set(&cfg, v)
		}

		if in.WarehouseName != nil {
			cfg.WarehouseName = strings.TrimSpace(*in.WarehouseName)
		}
		if in.CrateSuffix != nil {
			cfg.CrateSuffix = strings.TrimSpace(*in.CrateSuffix)
		}
		cfg.ShortCode = short
		cfg.RackPrefix = strings.ToUpper(prefixOr(in.RackPrefix, cfg.RackPrefix, models.DefaultRackPrefix))
		cfg.CratePrefix = prefixOr(in.CratePrefix, cfg.CratePrefix, models.DefaultCratePrefix)
		cfg.ReceiptPrefix = strings.ToUpper(prefixOr(in.ReceiptPrefix, cfg.ReceiptPrefix, models.DefaultReceiptPrefix))

		opts := audit.LogOptions{
			ActorID:    actorID,
			EntityType: entityWarehouseConfig,
			EntityID:   warehouseID.String(),
		}
		if exists {
			opts.Action = models.AuditActionUpdate
			opts.Changes = audit.Diff(before, cfg.Fields())
			if err := tx.Save(&cfg).Error; err != nil {
				return err
			}
			if len(opts.Changes) == 0 {
				return nil
			}
		} else {
			opts.Action = models.AuditActionCreate
			opts.Changes = audit.Created(cfg.Fields())
			if err := tx.Create(&cfg).Error; err != nil {
				return err
			}
		}
		return audit.WriteLog(tx, opts)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("warehouse config saved",
		zap.String("warehouse_id", warehouseID.String()),
		zap.String("short_code", cfg.ShortCode),
	)
	return &cfg, nil
}

// GetSystem returns the latest system settings document, empty when none exists.
func (s *Service) GetSystem(ctx context.Context) (map[string]any, error) {
	var row models.SystemConfig
	err := s.db.WithContext(ctx).Order("created_at DESC").First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, err
	}
	if row.Data == nil {
		return map[string]any{}, nil
	}
	return row.Data, nil
}

// UpsertSystem replaces the system settings document.
func (s *Service) UpsertSystem(ctx context.Context, data map[string]any, actorID *uuid.UUID) (map[string]any, error) {
	if data == nil {
		data = map[string]any{}
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.SystemConfig
		err := tx.Order("created_at DESC").First(&row).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			row = models.SystemConfig{Data: datatypes.JSONMap(data)}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
			return audit.WriteLog(tx, audit.LogOptions{
				ActorID:    actorID,
				EntityType: entitySystemConfig,
				Action:     models.AuditActionCreate,
				Changes:    audit.Created(data),
			})
		case err != nil:
			return err
		}

		changes := audit.Diff(row.Data, data)
		row.Data = datatypes.JSONMap(data)
		if err := tx.Save(&row).Error; err != nil {
			return err
		}
		if len(changes) == 0 {
			return nil
		}
		return audit.WriteLog(tx, audit.LogOptions{
			ActorID:    actorID,
			EntityType: entitySystemConfig,
			Action:     models.AuditActionUpdate,
			Changes:    changes,
		})
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// DefaultRackStatus is the status given to racks created without one.
func (s *Service) DefaultRackStatus(ctx context.Context) string {
	data, err := s.GetSystem(ctx)
	if err != nil {
		s.log.Warn("system config unavailable, using default rack status", zap.Error(err))
		return models.RackStatusActive
	}
	if v, ok := data["defaultRackStatus"].(string); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return models.RackStatusActive
}
