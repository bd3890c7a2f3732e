package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	MaxRackSeq  = 999
	MaxCrateSeq = 9999

	DefaultRackPrefix    = "R"
	DefaultCratePrefix   = "CR"
	DefaultReceiptPrefix = "RCPT"
)

// WarehouseConfig holds the naming fragments and next-sequence counters of one warehouse.
// Counters are only advanced through the sequence allocator; administrative writes may
// raise them but never lower them.
type WarehouseConfig struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	WarehouseID   uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"warehouse_id"`
	WarehouseName string    `gorm:"size:255" json:"warehouse_name"`

	// 3 character namespace used as prefix in generated codes
	ShortCode string `gorm:"size:3;index" json:"short_code"`

	RackPrefix    string `gorm:"size:16" json:"rack_prefix"`
	CratePrefix   string `gorm:"size:16" json:"crate_prefix"`
	CrateSuffix   string `gorm:"size:16" json:"crate_suffix"`
	ReceiptPrefix string `gorm:"size:16" json:"receipt_prefix"`

	NextRackSeq    int   `gorm:"not null;default:1" json:"next_rack_seq"`
	NextCrateSeq   int   `gorm:"not null;default:1" json:"next_crate_seq"`
	NextReceiptSeq int64 `gorm:"not null;default:1" json:"next_receipt_seq"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *WarehouseConfig) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Fields returns the audited view of the config, keyed like the API payload.
func (c WarehouseConfig) Fields() map[string]any {
	return map[string]any{
		"warehouseName":  c.WarehouseName,
		"shortCode":      c.ShortCode,
		"rackPrefix":     c.RackPrefix,
		"cratePrefix":    c.CratePrefix,
		"crateSuffix":    c.CrateSuffix,
		"receiptPrefix":  c.ReceiptPrefix,
		"nextRackSeq":    c.NextRackSeq,
		"nextCrateSeq":   c.NextCrateSeq,
		"nextReceiptSeq": c.NextReceiptSeq,
	}
}
