package warehouse

import "wms-backend/internal/apperr"

var (
	ErrConfigurationMissing = apperr.Precondition("warehouse configuration missing, set it up in system configuration")
	ErrShortCodeMissing     = apperr.Precondition("warehouse short code missing, complete system configuration for this warehouse")
	ErrInvalidShortCode     = apperr.Precondition("short code must be a 3-character alphanumeric value")
	ErrDuplicateShortCode   = apperr.Precondition("warehouse short code must be unique")
	ErrSequenceRegression   = apperr.Precondition("sequences can only be increased, decreasing may cause duplicate ids")
)
