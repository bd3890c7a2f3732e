package audit

import (
	"time"

	"wms-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AuditLogResponse struct {
	ID          uuid.UUID          `json:"id"`
	CreatedAt   string             `json:"created_at"`
	ActorUserID *uuid.UUID         `json:"actor_user_id"`
	EntityType  string             `json:"entity_type"`
	EntityID    string             `json:"entity_id"`
	Action      models.AuditAction `json:"action"`
	Description string             `json:"description"`
	Changes     map[string]Change  `json:"changes"`
}

// GET /api/audit-logs?entity_type=warehouse_config&entity_id=...&user_id=...&limit=50
func ListAuditLogsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		f := Filter{
			EntityType: c.Query("entity_type"),
			EntityID:   c.Query("entity_id"),
			Limit:      c.QueryInt("limit", 100),
		}
		if uid := c.Query("user_id"); uid != "" {
			id, err := uuid.Parse(uid)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "user_id must be a uuid")
			}
			f.ActorID = &id
		}

		logs, err := List(db.WithContext(c.UserContext()), f)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "audit logs could not be loaded")
		}

		resp := make([]AuditLogResponse, 0, len(logs))
		for _, l := range logs {
			changes, err := DecodeChanges(l)
			if err != nil {
				changes = map[string]Change{}
			}
			resp = append(resp, AuditLogResponse{
				ID:          l.ID,
				CreatedAt:   l.CreatedAt.Format(time.RFC3339),
				ActorUserID: l.ActorUserID,
				EntityType:  l.EntityType,
				EntityID:    l.EntityID,
				Action:      l.Action,
				Description: l.Description,
				Changes:     changes,
			})
		}
		return c.JSON(resp)
	}
}
