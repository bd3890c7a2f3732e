package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const RackStatusActive = "active"

// Rack is a storage fixture organised as a grid of stacks x bins.
type Rack struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	WarehouseID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_racks_warehouse_name" json:"warehouse_id"`
	Name         string    `gorm:"size:255;not null;uniqueIndex:idx_racks_warehouse_name" json:"name"`
	Stacks       int       `gorm:"not null;default:1" json:"stacks"`
	BinsPerStack int       `gorm:"not null;default:1" json:"bins_per_stack"`
	Description  string    `gorm:"type:text" json:"description"`
	// active, maintenance, inactive; only active racks take allocations
	Status    string    `gorm:"size:50;not null;default:active" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Bins []Bin `gorm:"foreignKey:RackID;constraint:OnDelete:CASCADE" json:"bins,omitempty"`
}

func (r *Rack) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// TotalBins is the size of the rack grid.
func (r Rack) TotalBins() int {
	if r.Stacks < 0 || r.BinsPerStack < 0 {
		return 0
	}
	return r.Stacks * r.BinsPerStack
}
