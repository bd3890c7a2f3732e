package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BinStatus string

const (
	BinEmpty       BinStatus = "empty"
	BinOccupied    BinStatus = "occupied"
	BinReserved    BinStatus = "reserved"
	BinBlocked     BinStatus = "blocked"
	BinMaintenance BinStatus = "maintenance"
)

func (s BinStatus) Valid() bool {
	switch s {
	case BinEmpty, BinOccupied, BinReserved, BinBlocked, BinMaintenance:
		return true
	}
	return false
}

// Occupies reports whether a bin in this status counts against rack capacity.
func (s BinStatus) Occupies() bool {
	switch s {
	case BinOccupied, BinReserved, BinBlocked, BinMaintenance:
		return true
	case BinEmpty:
		return false
	}
	return false
}

// OccupyingBinStatuses is the set used by capacity queries.
var OccupyingBinStatuses = []BinStatus{BinOccupied, BinReserved, BinBlocked, BinMaintenance}

// Bin is one addressable slot of a rack. Code is derived from the rack name and the
// coordinates and is regenerated whenever the coordinates change.
type Bin struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	RackID         uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_bins_grid" json:"rack_id"`
	StackIndex     int        `gorm:"not null;uniqueIndex:idx_bins_grid" json:"stack_index"`
	BinIndex       int        `gorm:"not null;uniqueIndex:idx_bins_grid" json:"bin_index"`
	Code           string     `gorm:"size:100;index" json:"code"`
	Status         BinStatus  `gorm:"size:20;not null;default:empty;index" json:"status"`
	CrateID        *uuid.UUID `gorm:"type:uuid" json:"crate_id"`
	ProductID      *uuid.UUID `gorm:"type:uuid;index" json:"product_id"`
	StoreProductID *uuid.UUID `gorm:"type:uuid" json:"store_product_id"`
	Quantity       *int       `json:"quantity"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (b *Bin) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.Status == "" {
		b.Status = BinEmpty
	}
	return nil
}

// Occupied mirrors the rack stats rule: a crate counts even before the status changes.
func (b Bin) Occupied() bool {
	return b.Status.Occupies() || b.CrateID != nil
}
