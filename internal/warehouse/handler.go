package warehouse

import (
	"wms-backend/internal/auth"
	"wms-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ConfigResponse struct {
	WarehouseID    uuid.UUID `json:"warehouseId"`
	WarehouseName  string    `json:"warehouseName"`
	ShortCode      string    `json:"shortCode"`
	RackPrefix     string    `json:"rackPrefix"`
	CratePrefix    string    `json:"cratePrefix"`
	CrateSuffix    string    `json:"crateSuffix"`
	ReceiptPrefix  string    `json:"receiptPrefix"`
	NextRackSeq    int       `json:"nextRackSeq"`
	NextCrateSeq   int       `json:"nextCrateSeq"`
	NextReceiptSeq int64     `json:"nextReceiptSeq"`
	UpdatedAt      string    `json:"updatedAt"`
}

func toConfigResponse(cfg *models.WarehouseConfig) ConfigResponse {
	return ConfigResponse{
		WarehouseID:    cfg.WarehouseID,
		WarehouseName:  cfg.WarehouseName,
		ShortCode:      cfg.ShortCode,
		RackPrefix:     cfg.RackPrefix,
		CratePrefix:    cfg.CratePrefix,
		CrateSuffix:    cfg.CrateSuffix,
		ReceiptPrefix:  cfg.ReceiptPrefix,
		NextRackSeq:    cfg.NextRackSeq,
		NextCrateSeq:   cfg.NextCrateSeq,
		NextReceiptSeq: cfg.NextReceiptSeq,
		UpdatedAt:      cfg.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
}

func warehouseParam(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid warehouse id")
	}
	return id, nil
}

// GET /api/warehouses/:id/config
func GetConfigHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		whID, err := warehouseParam(c)
		if err != nil {
			return err
		}

		cfg, err := svc.Get(c.UserContext(), whID)
		if err != nil {
			return err
		}
		return c.JSON(toConfigResponse(cfg))
	}
}

// PUT /api/warehouses/:id/config
func UpsertConfigHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		whID, err := warehouseParam(c)
		if err != nil {
			return err
		}

		var body ConfigInput
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		cfg, err := svc.Upsert(c.UserContext(), whID, body, auth.ActorID(c))
		if err != nil {
			return err
		}
		return c.JSON(toConfigResponse(cfg))
	}
}

// GET /api/system/config
func GetSystemConfigHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		data, err := svc.GetSystem(c.UserContext())
		if err != nil {
			return err
		}
		return c.JSON(data)
	}
}

// PUT /api/system/config
func UpsertSystemConfigHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body map[string]any
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		data, err := svc.UpsertSystem(c.UserContext(), body, auth.ActorID(c))
		if err != nil {
			return err
		}
		return c.JSON(data)
	}
}
