package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SystemConfig is a free-form settings document. Only the latest row is read.
type SystemConfig struct {
	ID        uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	Data      datatypes.JSONMap `json:"data"`
	CreatedAt time.Time         `gorm:"index" json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func (c *SystemConfig) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
