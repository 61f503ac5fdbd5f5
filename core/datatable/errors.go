package datatable

import "github.com/pkg/errors"

var (
	ErrUnknownColumn     = errors.New("unknown column")
	ErrUnknownRow        = errors.New("unknown row")
	ErrSelectionDisabled = errors.New("row selection is disabled")
	ErrActionUnavailable = errors.New("action unavailable")
	ErrNoPagination      = errors.New("pagination is disabled")
	ErrInvalidPage       = errors.New("invalid page")
	ErrInvalidOptions    = errors.New("invalid table options")
)

// IsUserError reports whether err was caused by a bad table intent
// (unknown column/row, unavailable action, invalid page...) rather than a failure.
func IsUserError(err error) bool {
	switch errors.Cause(err) {
	case ErrUnknownColumn, ErrUnknownRow, ErrSelectionDisabled, ErrActionUnavailable, ErrNoPagination, ErrInvalidPage:
		return true
	}
	return false
}
