package database

import (
	"fmt"
	"time"

	"wms-backend/internal/config"
	"wms-backend/internal/models"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Init opens the Postgres connection and runs migrations.
func Init(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	gormLogLevel := logger.Warn
	if cfg.LogLevel == "debug" {
		gormLogLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{
		Logger:  logger.Default.LogMode(gormLogLevel),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Info("database connected, migrations applied")
	return db, nil
}

// Migrate creates or updates every table the core owns.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.WarehouseConfig{},
		&models.SystemConfig{},
		&models.Rack{},
		&models.Bin{},
		&models.Crate{},
		&models.InboundReceipt{},
		&models.InboundReceiptLine{},
		&models.AuditLog{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate failed: %w", err)
	}
	return nil
}
