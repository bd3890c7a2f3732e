package inbound

import "wms-backend/internal/apperr"

var (
	ErrReceiptNotFound   = apperr.NotFound("inbound receipt not found")
	ErrLineNotFound      = apperr.NotFound("inbound receipt line not found")
	ErrInvalidStatus     = apperr.Precondition("invalid receipt status")
	ErrDerivedStatus     = apperr.Precondition("READY_FOR_PICKING is set by allocation once every line holds a bin")
	ErrTerminalReceipt   = apperr.Precondition("receipt is completed or cancelled")
	ErrInvalidVendorType = apperr.Precondition("vendor type must be SKU or FLAT")
	ErrInvalidQuantity   = apperr.Precondition("quantities must not be negative")
	ErrInvalidSheet      = apperr.Precondition("spreadsheet could not be read")
)
