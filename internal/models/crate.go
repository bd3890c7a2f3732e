package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CrateStatus string

const (
	CrateActive   CrateStatus = "active"
	CrateInUse    CrateStatus = "in_use"
	CrateReserved CrateStatus = "reserved"
	CrateDamaged  CrateStatus = "damaged"
	CrateInactive CrateStatus = "inactive"
)

func (s CrateStatus) Valid() bool {
	switch s {
	case CrateActive, CrateInUse, CrateReserved, CrateDamaged, CrateInactive:
		return true
	}
	return false
}

type CrateType string

const (
	CrateStandard     CrateType = "standard"
	CrateRefrigerated CrateType = "refrigerated"
	CrateLarge        CrateType = "large"
)

func (t CrateType) Valid() bool {
	switch t {
	case CrateStandard, CrateRefrigerated, CrateLarge:
		return true
	}
	return false
}

type Crate struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	WarehouseID uuid.UUID `gorm:"type:uuid;index;not null" json:"warehouse_id"`
	Name        string    `gorm:"size:64;index;not null" json:"name"`
	// QR payload is the human readable name so scans show the code
	QRCode    string      `gorm:"size:64;uniqueIndex;not null" json:"qr_code"`
	Status    CrateStatus `gorm:"size:20;not null;default:active" json:"status"`
	Type      CrateType   `gorm:"size:20;not null;default:standard" json:"type"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

func (c *Crate) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
