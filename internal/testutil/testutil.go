// Package testutil provides an isolated database and seed helpers for package tests.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"wms-backend/internal/database"
	"wms-backend/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB opens a private in-memory database with every table migrated.
// A single connection keeps the in-memory database alive and serialises access.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		NowFunc:                                  func() time.Time { return time.Now().UTC() },
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := database.Migrate(db); err != nil {
		t.Fatalf("Failed to migrate test tables: %v", err)
	}

	t.Cleanup(func() {
		sqlDB.Close()
	})
	return db
}

// SeedWarehouseConfig stores a config row the way an administrator would set it up.
func SeedWarehouseConfig(t *testing.T, db *gorm.DB, warehouseID uuid.UUID, shortCode string) *models.WarehouseConfig {
	t.Helper()
	cfg := &models.WarehouseConfig{
		WarehouseID:    warehouseID,
		WarehouseName:  "Test " + shortCode,
		ShortCode:      shortCode,
		RackPrefix:     models.DefaultRackPrefix,
		CratePrefix:    models.DefaultCratePrefix,
		ReceiptPrefix:  models.DefaultReceiptPrefix,
		NextRackSeq:    1,
		NextCrateSeq:   1,
		NextReceiptSeq: 1,
	}
	if err := db.Create(cfg).Error; err != nil {
		t.Fatalf("Failed to seed warehouse config: %v", err)
	}
	return cfg
}

// SeedRack inserts a rack with a fully materialised grid, bypassing the sequence.
func SeedRack(t *testing.T, db *gorm.DB, warehouseID uuid.UUID, name string, stacks, binsPerStack int, status string) *models.Rack {
	t.Helper()
	rack := &models.Rack{
		WarehouseID:  warehouseID,
		Name:         name,
		Stacks:       stacks,
		BinsPerStack: binsPerStack,
		Status:       status,
	}
	if err := db.Create(rack).Error; err != nil {
		t.Fatalf("Failed to seed rack: %v", err)
	}
	for s := 0; s < stacks; s++ {
		for b := 0; b < binsPerStack; b++ {
			bin := models.Bin{
				RackID:     rack.ID,
				StackIndex: s,
				BinIndex:   b,
				Code:       fmt.Sprintf("%s-S%03d-B%03d", name, s+1, b+1),
				Status:     models.BinEmpty,
			}
			if err := db.Create(&bin).Error; err != nil {
				t.Fatalf("Failed to seed bin: %v", err)
			}
			rack.Bins = append(rack.Bins, bin)
		}
	}
	return rack
}

// BinAt returns the bin at the given coordinates of a rack.
func BinAt(t *testing.T, db *gorm.DB, rackID uuid.UUID, stack, bin int) *models.Bin {
	t.Helper()
	var b models.Bin
	if err := db.Where("rack_id = ? AND stack_index = ? AND bin_index = ?", rackID, stack, bin).First(&b).Error; err != nil {
		t.Fatalf("Failed to load bin %d/%d: %v", stack, bin, err)
	}
	return &b
}

// ReloadBin re-reads a bin by id.
func ReloadBin(t *testing.T, db *gorm.DB, id uuid.UUID) *models.Bin {
	t.Helper()
	var b models.Bin
	if err := db.First(&b, "id = ?", id).Error; err != nil {
		t.Fatalf("Failed to reload bin: %v", err)
	}
	return &b
}
