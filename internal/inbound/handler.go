package inbound

import (
	"strings"
	"time"

	"wms-backend/internal/auth"
	"wms-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type StatusRequest struct {
	Status models.ReceiptStatus `json:"status"`
}

func idParam(c *fiber.Ctx, what string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid "+what+" id")
	}
	return id, nil
}

func optionalUUID(raw, name string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

func optionalTime(raw, name string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		d, derr := time.Parse("2006-01-02", raw)
		if derr != nil {
			return nil, fiber.NewError(fiber.StatusBadRequest, name+" must be RFC3339 or YYYY-MM-DD")
		}
		t = d
	}
	t = t.UTC()
	return &t, nil
}

// GET /api/inbound/receipts?warehouse_id=&vendor_type=&status=&search=&date_from=&date_to=
func ListReceiptsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		whID, err := optionalUUID(c.Query("warehouse_id"), "warehouse_id")
		if err != nil {
			return err
		}
		from, err := optionalTime(c.Query("date_from"), "date_from")
		if err != nil {
			return err
		}
		to, err := optionalTime(c.Query("date_to"), "date_to")
		if err != nil {
			return err
		}

		receipts, err := svc.ListReceipts(c.UserContext(), Filter{
			WarehouseID: whID,
			VendorType:  models.VendorType(strings.ToUpper(c.Query("vendor_type"))),
			Status:      models.ReceiptStatus(strings.ToUpper(c.Query("status"))),
			Search:      c.Query("search"),
			From:        from,
			To:          to,
		})
		if err != nil {
			return err
		}
		return c.JSON(receipts)
	}
}

// POST /api/inbound/receipts
func CreateReceiptHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body ReceiptInput
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if body.WarehouseID == uuid.Nil || body.VendorID == uuid.Nil {
			return fiber.NewError(fiber.StatusBadRequest, "warehouse_id and vendor_id are required")
		}
		body.VendorType = models.VendorType(strings.ToUpper(string(body.VendorType)))

		rec, err := svc.CreateReceipt(c.UserContext(), body, auth.ActorID(c))
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(rec)
	}
}

// POST /api/inbound/receipts/import (multipart: file, warehouse_id, vendor_id, vendor_type, reference)
func ImportReceiptHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		whID, err := optionalUUID(c.FormValue("warehouse_id"), "warehouse_id")
		if err != nil {
			return err
		}
		vendorID, err := optionalUUID(c.FormValue("vendor_id"), "vendor_id")
		if err != nil {
			return err
		}
		if whID == uuid.Nil || vendorID == uuid.Nil {
			return fiber.NewError(fiber.StatusBadRequest, "warehouse_id and vendor_id are required")
		}
		vendor := models.VendorType(strings.ToUpper(c.FormValue("vendor_type")))

		fileHeader, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "file upload missing")
		}
		if !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".xlsx") {
			return fiber.NewError(fiber.StatusBadRequest, "only .xlsx files are accepted")
		}
		file, err := fileHeader.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "uploaded file could not be opened")
		}
		defer file.Close()

		lines, err := ParseLinesXLSX(file, vendor)
		if err != nil {
			return err
		}

		rec, err := svc.CreateReceipt(c.UserContext(), ReceiptInput{
			WarehouseID: whID,
			VendorID:    vendorID,
			VendorType:  vendor,
			Reference:   c.FormValue("reference"),
			Lines:       lines,
		}, auth.ActorID(c))
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(rec)
	}
}

// GET /api/inbound/receipts/:id
func GetReceiptHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := idParam(c, "receipt")
		if err != nil {
			return err
		}
		rec, err := svc.GetReceipt(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(rec)
	}
}

// PUT /api/inbound/receipts/:id/status
func UpdateStatusHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := idParam(c, "receipt")
		if err != nil {
			return err
		}
		var body StatusRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		rec, err := svc.UpdateStatus(c.UserContext(), id, body.Status, auth.ActorID(c))
		if err != nil {
			return err
		}
		return c.JSON(rec)
	}
}

// PATCH /api/inbound/lines/:id
func UpdateLineHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := idParam(c, "line")
		if err != nil {
			return err
		}
		var body LineUpdate
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		line, err := svc.UpdateLine(c.UserContext(), id, body, auth.ActorID(c))
		if err != nil {
			return err
		}
		return c.JSON(line)
	}
}

// POST /api/inbound/receipts/:id/auto-allocate
func AutoAllocateHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := idParam(c, "receipt")
		if err != nil {
			return err
		}
		res, err := svc.AutoAllocate(c.UserContext(), id, auth.ActorID(c))
		if err != nil {
			return err
		}
		return c.JSON(res)
	}
}

// POST /api/inbound/lines/:id/reassign
func ReassignLineHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := idParam(c, "line")
		if err != nil {
			return err
		}
		line, err := svc.ReassignLine(c.UserContext(), id, auth.ActorID(c))
		if err != nil {
			return err
		}
		return c.JSON(line)
	}
}

// POST /api/inbound/lines/:id/clear
func ClearLineHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := idParam(c, "line")
		if err != nil {
			return err
		}
		line, err := svc.ClearLine(c.UserContext(), id, auth.ActorID(c))
		if err != nil {
			return err
		}
		return c.JSON(line)
	}
}

// GET /api/inbound/kpis?warehouse_id=
func KPIsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		whID, err := optionalUUID(c.Query("warehouse_id"), "warehouse_id")
		if err != nil {
			return err
		}
		k, err := svc.KPIs(c.UserContext(), whID)
		if err != nil {
			return err
		}
		return c.JSON(k)
	}
}
