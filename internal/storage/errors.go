package storage

import "wms-backend/internal/apperr"

var (
	ErrRackNotFound       = apperr.NotFound("rack not found")
	ErrBinNotFound        = apperr.NotFound("bin not found")
	ErrCrateNotFound      = apperr.NotFound("crate not found")
	ErrInvalidGrid        = apperr.Precondition("stacks and bins per stack must not be negative")
	ErrInvalidCoordinates = apperr.Precondition("stack and bin index must not be negative")
	ErrInvalidBinStatus   = apperr.Precondition("invalid bin status")
	ErrInvalidCrate       = apperr.Precondition("invalid crate type or status")
	ErrInvalidCount       = apperr.Precondition("crate count must be between 1 and 500")
	ErrGridShrinkOccupied = apperr.Precondition("cannot shrink rack, bins outside the new grid are in use")
	ErrRackInUse          = apperr.Precondition("rack has bins assigned to inbound lines")
	ErrBinInUse           = apperr.Precondition("bin is assigned to an inbound line")
	ErrBinUnavailable     = apperr.Precondition("bin cannot take a crate in its current status")
	ErrCrateUnavailable   = apperr.Precondition("crate is not available for placement")
	ErrCrateWarehouse     = apperr.Precondition("crate belongs to another warehouse")
	ErrBinExists          = apperr.Conflict("a bin already exists at these coordinates")
	ErrRackNameTaken      = apperr.Conflict("generated rack name already exists, raise the rack sequence")
	ErrCrateNameTaken     = apperr.Conflict("generated crate name already exists, raise the crate sequence")
)
