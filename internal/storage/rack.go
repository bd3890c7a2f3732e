package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"wms-backend/internal/audit"
	"wms-backend/internal/codegen"
	"wms-backend/internal/models"
	"wms-backend/internal/warehouse"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type RackInput struct {
	WarehouseID  uuid.UUID `json:"warehouse_id"`
	Stacks       int       `json:"stacks"`
	BinsPerStack int       `json:"bins_per_stack"`
	Description  string    `json:"description"`
	Status       string    `json:"status"`
}

type RackUpdate struct {
	Stacks       *int    `json:"stacks"`
	BinsPerStack *int    `json:"bins_per_stack"`
	Description  *string `json:"description"`
	Status       *string `json:"status"`
}

type RackStats struct {
	TotalBins    int   `json:"total_bins"`
	OccupiedBins int64 `json:"occupied_bins"`
}

// RackView is a rack with its capacity figures.
type RackView struct {
	models.Rack
	RackStats
}

func rackFields(r models.Rack) map[string]any {
	return map[string]any{
		"name":         r.Name,
		"stacks":       r.Stacks,
		"binsPerStack": r.BinsPerStack,
		"description":  r.Description,
		"status":       r.Status,
	}
}

func occupyingStatuses() []string {
	out := make([]string, 0, len(models.OccupyingBinStatuses))
	for _, s := range models.OccupyingBinStatuses {
		out = append(out, string(s))
	}
	return out
}

// occupiedScope matches bins that count against capacity.
func occupiedScope(db *gorm.DB) *gorm.DB {
	return db.Where("(status IN ? OR crate_id IS NOT NULL)", occupyingStatuses())
}

func binCode(cfg *models.WarehouseConfig, rackName string, stack, bin int) string {
	if cfg == nil {
		return codegen.BinCode("", "", rackName, stack, bin)
	}
	return codegen.BinCode(cfg.ShortCode, cfg.RackPrefix, rackName, stack, bin)
}

// gridBins builds the bins of rack that are not in have, in stack then bin order.
func gridBins(cfg *models.WarehouseConfig, rack *models.Rack, have map[[2]int]bool) []models.Bin {
	var bins []models.Bin
	for s := 0; s < rack.Stacks; s++ {
		for b := 0; b < rack.BinsPerStack; b++ {
			if have[[2]int{s, b}] {
				continue
			}
			bins = append(bins, models.Bin{
				RackID:     rack.ID,
				StackIndex: s,
				BinIndex:   b,
				Code:       binCode(cfg, rack.Name, s, b),
				Status:     models.BinEmpty,
			})
		}
	}
	return bins
}

// CreateRack names a new rack from the warehouse rack sequence and materialises its
// full grid of empty bins.
func (s *Service) CreateRack(ctx context.Context, in RackInput, actorID *uuid.UUID) (*RackView, error) {
	if in.Stacks < 0 || in.BinsPerStack < 0 {
		return nil, ErrInvalidGrid
	}
	status := strings.TrimSpace(in.Status)
	if status == "" {
		status = s.seq.DefaultRackStatus(ctx)
	}

	// the consumed value is committed even if the insert below fails
	cfg, seq, err := s.seq.ConsumeNext(ctx, in.WarehouseID, warehouse.CounterRack)
	if err != nil {
		return nil, err
	}

	rack := models.Rack{
		WarehouseID:  in.WarehouseID,
		Name:         codegen.RackName(cfg.RackPrefix, int(seq)),
		Stacks:       in.Stacks,
		BinsPerStack: in.BinsPerStack,
		Description:  strings.TrimSpace(in.Description),
		Status:       status,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var taken int64
		if err := tx.Model(&models.Rack{}).
			Where("warehouse_id = ? AND name = ?", rack.WarehouseID, rack.Name).
			Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return fmt.Errorf("rack %s: %w", rack.Name, ErrRackNameTaken)
		}

		if err := tx.Omit("Bins").Create(&rack).Error; err != nil {
			return err
		}
		if bins := gridBins(cfg, &rack, nil); len(bins) > 0 {
			if err := tx.CreateInBatches(&bins, 200).Error; err != nil {
				return err
			}
			rack.Bins = bins
		}

		return audit.WriteLog(tx, audit.LogOptions{
			ActorID:     actorID,
			EntityType:  entityRack,
			EntityID:    rack.ID.String(),
			Action:      models.AuditActionCreate,
			Description: "rack " + rack.Name + " created",
			Changes:     audit.Created(rackFields(rack)),
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("rack created",
		zap.String("warehouse_id", rack.WarehouseID.String()),
		zap.String("rack", rack.Name),
		zap.Int("bins", len(rack.Bins)),
	)
	return &RackView{Rack: rack, RackStats: RackStats{TotalBins: rack.TotalBins()}}, nil
}

// Stats returns the capacity figures of a rack.
func (s *Service) Stats(ctx context.Context, rack *models.Rack) (RackStats, error) {
	var occupied int64
	err := s.db.WithContext(ctx).Model(&models.Bin{}).
		Where("rack_id = ?", rack.ID).
		Scopes(occupiedScope).
		Count(&occupied).Error
	if err != nil {
		return RackStats{}, err
	}
	return RackStats{TotalBins: rack.TotalBins(), OccupiedBins: occupied}, nil
}

func loadRack(tx *gorm.DB, id uuid.UUID) (*models.Rack, error) {
	var rack models.Rack
	if err := tx.First(&rack, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRackNotFound
		}
		return nil, err
	}
	return &rack, nil
}

func orderedBins(db *gorm.DB) *gorm.DB {
	return db.Order("stack_index ASC, bin_index ASC")
}

// GetRack returns a rack with its bins in grid order.
func (s *Service) GetRack(ctx context.Context, id uuid.UUID) (*RackView, error) {
	var rack models.Rack
	err := s.db.WithContext(ctx).Preload("Bins", orderedBins).First(&rack, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRackNotFound
	}
	if err != nil {
		return nil, err
	}

	stats, err := s.Stats(ctx, &rack)
	if err != nil {
		return nil, err
	}
	return &RackView{Rack: rack, RackStats: stats}, nil
}

// ListRacks returns the racks of a warehouse by name, with stats and without bins.
func (s *Service) ListRacks(ctx context.Context, warehouseID uuid.UUID) ([]RackView, error) {
	db := s.db.WithContext(ctx)

	var racks []models.Rack
	if err := db.Where("warehouse_id = ?", warehouseID).Order("name ASC").Find(&racks).Error; err != nil {
		return nil, err
	}
	if len(racks) == 0 {
		return []RackView{}, nil
	}

	ids := make([]uuid.UUID, 0, len(racks))
	for _, r := range racks {
		ids = append(ids, r.ID)
	}
	var counts []struct {
		RackID uuid.UUID
		N      int64
	}
	if err := db.Model(&models.Bin{}).
		Select("rack_id, COUNT(*) AS n").
		Where("rack_id IN ?", ids).
		Scopes(occupiedScope).
		Group("rack_id").
		Scan(&counts).Error; err != nil {
		return nil, err
	}
	occupied := make(map[uuid.UUID]int64, len(counts))
	for _, c := range counts {
		occupied[c.RackID] = c.N
	}

	out := make([]RackView, 0, len(racks))
	for _, r := range racks {
		out = append(out, RackView{
			Rack:      r,
			RackStats: RackStats{TotalBins: r.TotalBins(), OccupiedBins: occupied[r.ID]},
		})
	}
	return out, nil
}

// UpdateRack edits rack attributes. Growing the grid materialises the new bins;
// shrinking removes out-of-grid bins and fails if any of them is in use.
func (s *Service) UpdateRack(ctx context.Context, id uuid.UUID, in RackUpdate, actorID *uuid.UUID) (*RackView, error) {
	var rack *models.Rack
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		rack, err = loadRack(tx, id)
		if err != nil {
			return err
		}
		before := rackFields(*rack)

		if in.Description != nil {
			rack.Description = strings.TrimSpace(*in.Description)
		}
		if in.Status != nil && strings.TrimSpace(*in.Status) != "" {
			rack.Status = strings.TrimSpace(*in.Status)
		}

		gridChanged := false
		if in.Stacks != nil && *in.Stacks != rack.Stacks {
			rack.Stacks = *in.Stacks
			gridChanged = true
		}
		if in.BinsPerStack != nil && *in.BinsPerStack != rack.BinsPerStack {
			rack.BinsPerStack = *in.BinsPerStack
			gridChanged = true
		}
		if rack.Stacks < 0 || rack.BinsPerStack < 0 {
			return ErrInvalidGrid
		}
		if gridChanged {
			if err := s.reshapeGrid(tx, rack); err != nil {
				return err
			}
		}

		if err := tx.Omit("Bins").Save(rack).Error; err != nil {
			return err
		}

		changes := audit.Diff(before, rackFields(*rack))
		if len(changes) == 0 {
			return nil
		}
		return audit.WriteLog(tx, audit.LogOptions{
			ActorID:    actorID,
			EntityType: entityRack,
			EntityID:   rack.ID.String(),
			Action:     models.AuditActionUpdate,
			Changes:    changes,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.GetRack(ctx, id)
}

func (s *Service) reshapeGrid(tx *gorm.DB, rack *models.Rack) error {
	var outside []models.Bin
	if err := tx.Where("rack_id = ? AND (stack_index >= ? OR bin_index >= ?)",
		rack.ID, rack.Stacks, rack.BinsPerStack).Find(&outside).Error; err != nil {
		return err
	}
	if len(outside) > 0 {
		ids := make([]uuid.UUID, 0, len(outside))
		for _, b := range outside {
			if b.Occupied() {
				return ErrGridShrinkOccupied
			}
			ids = append(ids, b.ID)
		}
		var bound int64
		if err := tx.Model(&models.InboundReceiptLine{}).Where("bin_id IN ?", ids).Count(&bound).Error; err != nil {
			return err
		}
		if bound > 0 {
			return ErrGridShrinkOccupied
		}
		if err := tx.Where("id IN ?", ids).Delete(&models.Bin{}).Error; err != nil {
			return err
		}
	}

	var existing []models.Bin
	if err := tx.Select("stack_index", "bin_index").Where("rack_id = ?", rack.ID).Find(&existing).Error; err != nil {
		return err
	}
	have := make(map[[2]int]bool, len(existing))
	for _, b := range existing {
		have[[2]int{b.StackIndex, b.BinIndex}] = true
	}

	cfg, err := warehouseConfig(tx, rack.WarehouseID)
	if err != nil {
		return err
	}
	if bins := gridBins(cfg, rack, have); len(bins) > 0 {
		if err := tx.CreateInBatches(&bins, 200).Error; err != nil {
			return err
		}
		s.log.Info("rack grid extended", zap.String("rack", rack.Name), zap.Int("new_bins", len(bins)))
	}
	return nil
}

// DeleteRack removes a rack and its bins. Racks with bins bound to inbound lines stay.
func (s *Service) DeleteRack(ctx context.Context, id uuid.UUID, actorID *uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rack, err := loadRack(tx, id)
		if err != nil {
			return err
		}

		var bound int64
		if err := tx.Model(&models.InboundReceiptLine{}).
			Where("bin_id IN (?)", tx.Model(&models.Bin{}).Select("id").Where("rack_id = ?", id)).
			Count(&bound).Error; err != nil {
			return err
		}
		if bound > 0 {
			return ErrRackInUse
		}

		if err := tx.Where("rack_id = ?", id).Delete(&models.Bin{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(rack).Error; err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			ActorID:     actorID,
			EntityType:  entityRack,
			EntityID:    rack.ID.String(),
			Action:      models.AuditActionDelete,
			Description: "rack " + rack.Name + " deleted",
			Changes:     audit.Diff(rackFields(*rack), nil),
		})
	})
}
