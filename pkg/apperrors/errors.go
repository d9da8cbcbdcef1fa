package apperrors

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrUnsafeValue   = errors.New("value failed safety check")
	ErrInvalidEntity = errors.New("invalid entity type")
	ErrImportTooBig  = errors.New("import exceeds configured limits")
)
