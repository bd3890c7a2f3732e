package storage

import (
	"wms-backend/internal/apperr"
	"wms-backend/internal/auth"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type PlaceCrateRequest struct {
	CrateID uuid.UUID `json:"crate_id"`
}

type BulkCrateRequest struct {
	CrateInput
	Count int `json:"count"`
}

func idParam(c *fiber.Ctx, what string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid "+what+" id")
	}
	return id, nil
}

// GET /api/warehouses/:id/racks
func ListRacksHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		whID, err := idParam(c, "warehouse")
		if err != nil {
			return err
		}
		racks, err := svc.ListRacks(c.UserContext(), whID)
		if err != nil {
			return err
		}
		return c.JSON(racks)
	}
}

// POST /api/racks
func CreateRackHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RackInput
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if body.WarehouseID == uuid.Nil {
			return fiber.NewError(fiber.StatusBadRequest, "warehouse_id is required")
		}

		rack, err := svc.CreateRack(c.UserContext(), body, auth.ActorID(c))
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(rack)
	}
}

// GET /api/racks/:id
func GetRackHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := idParam(c, "rack")
		if err != nil {
			return err
		}
		rack, err := svc.GetRack(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(rack)
	}
}

// PUT /api/racks/:id
func UpdateRackHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := idParam(c, "rack")
		if err != nil {
			return err
		}
		var body RackUpdate
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		rack, err := svc.UpdateRack(c.UserContext(), id, body, auth.ActorID(c))
		if err != nil {
			return err
		}
		return c.JSON(rack)
	}
}

// DELETE /api/racks/:id
func DeleteRackHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := idParam(c, "rack")
		if err != nil {
			return err
		}
		if err := svc.DeleteRack(c.UserContext(), id, auth.ActorID(c)); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// GET /api/racks/:id/bins
func ListBinsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := idParam(c, "rack")
		if err != nil {
			return err
		}
		bins, err := svc.ListBins(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(bins)
	}
}

// POST /api/racks/:id/bins
func CreateBinHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := idParam(c, "rack")
		if err != nil {
			return err
		}
		var body BinInput
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		bin, err := svc.CreateBin(c.UserContext(), id, body, auth.ActorID(c))
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(bin)
	}
}

// PUT /api/bins/:id
func UpdateBinHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := idParam(c, "bin")
		if err != nil {
			return err
		}
		var body BinUpdate
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		bin, err := svc.UpdateBin(c.UserContext(), id, body, auth.ActorID(c))
		if err != nil {
			return err
		}
		return c.JSON(bin)
	}
}

// DELETE /api/bins/:id
func DeleteBinHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := idParam(c, "bin")
		if err != nil {
			return err
		}
		if err := svc.DeleteBin(c.UserContext(), id, auth.ActorID(c)); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// POST /api/bins/:id/crate
func PlaceCrateHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := idParam(c, "bin")
		if err != nil {
			return err
		}
		var body PlaceCrateRequest
		if err := c.BodyParser(&body); err != nil || body.CrateID == uuid.Nil {
			return fiber.NewError(fiber.StatusBadRequest, "crate_id is required")
		}
		bin, err := svc.PlaceCrate(c.UserContext(), id, body.CrateID, auth.ActorID(c))
		if err != nil {
			return err
		}
		return c.JSON(bin)
	}
}

// GET /api/crates?warehouse_id=...
func ListCratesHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		whID := uuid.Nil
		if raw := c.Query("warehouse_id"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "invalid warehouse_id")
			}
			whID = id
		}
		crates, err := svc.ListCrates(c.UserContext(), whID)
		if err != nil {
			return err
		}
		return c.JSON(crates)
	}
}

// POST /api/crates
func CreateCrateHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CrateInput
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if body.WarehouseID == uuid.Nil {
			return fiber.NewError(fiber.StatusBadRequest, "warehouse_id is required")
		}
		crate, err := svc.CreateCrate(c.UserContext(), body, auth.ActorID(c))
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(crate)
	}
}

// POST /api/crates/bulk
func BulkCreateCratesHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body BulkCrateRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if body.WarehouseID == uuid.Nil {
			return fiber.NewError(fiber.StatusBadRequest, "warehouse_id is required")
		}
		crates, err := svc.CreateCrates(c.UserContext(), body.CrateInput, body.Count, auth.ActorID(c))
		if err != nil {
			if len(crates) > 0 {
				return c.Status(fiber.StatusMultiStatus).JSON(fiber.Map{
					"crates": crates,
					"error":  apperr.ToFiber(err).Error(),
				})
			}
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(crates)
	}
}
