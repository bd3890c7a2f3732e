package audit

import (
	"encoding/json"
	"fmt"
	"reflect"

	"wms-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const MaskedValue = "***"

// SensitiveFields never reach the audit table in clear text.
var SensitiveFields = map[string]struct{}{
	"apiToken":       {},
	"passwordPolicy": {},
}

type Change struct {
	Before any `json:"before"`
	After  any `json:"after"`
}

type LogOptions struct {
	ActorID     *uuid.UUID
	EntityType  string
	EntityID    string
	Action      models.AuditAction
	Description string
	Changes     map[string]Change
}

// Mask replaces sensitive string values.
func Mask(key string, val any) any {
	if _, ok := SensitiveFields[key]; !ok {
		return val
	}
	if _, isString := val.(string); isString {
		return MaskedValue
	}
	return val
}

// Diff returns the masked field changes between two snapshots.
func Diff(before, after map[string]any) map[string]Change {
	changes := make(map[string]Change)
	for k, a := range after {
		b := before[k]
		if !reflect.DeepEqual(b, a) {
			changes[k] = Change{Before: Mask(k, b), After: Mask(k, a)}
		}
	}
	for k, b := range before {
		if _, ok := after[k]; !ok {
			changes[k] = Change{Before: Mask(k, b), After: nil}
		}
	}
	return changes
}

// Created returns the masked changes for a freshly created entity.
func Created(after map[string]any) map[string]Change {
	return Diff(nil, after)
}

// WriteLog persists one audit fact. Pass the transaction of the mutation so the fact
// commits or rolls back with it.
func WriteLog(db *gorm.DB, opts LogOptions) error {
	raw := []byte("{}")
	if len(opts.Changes) > 0 {
		b, err := json.Marshal(opts.Changes)
		if err != nil {
			return fmt.Errorf("audit changes could not be encoded: %w", err)
		}
		raw = b
	}

	log := models.AuditLog{
		ActorUserID: opts.ActorID,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
		Changes:     datatypes.JSON(raw),
	}
	if err := db.Create(&log).Error; err != nil {
		return fmt.Errorf("audit log could not be saved: %w", err)
	}
	return nil
}

type Filter struct {
	EntityType string
	EntityID   string
	ActorID    *uuid.UUID
	Limit      int
}

func List(db *gorm.DB, f Filter) ([]models.AuditLog, error) {
	q := db.Model(&models.AuditLog{})
	if f.EntityType != "" {
		q = q.Where("entity_type = ?", f.EntityType)
	}
	if f.EntityID != "" {
		q = q.Where("entity_id = ?", f.EntityID)
	}
	if f.ActorID != nil {
		q = q.Where("actor_user_id = ?", *f.ActorID)
	}
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var logs []models.AuditLog
	if err := q.Order("created_at DESC").Limit(limit).Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// DecodeChanges is the inverse of the stored changes column.
func DecodeChanges(l models.AuditLog) (map[string]Change, error) {
	changes := map[string]Change{}
	if len(l.Changes) == 0 {
		return changes, nil
	}
	if err := json.Unmarshal(l.Changes, &changes); err != nil {
		return nil, err
	}
	return changes, nil
}
