package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidParameter    = errors.New("invalid parameter")
	ErrForbidden           = errors.New("forbidden")
	ErrOperationNotAllowed = errors.New("operation not allowed")
	ErrUnsupported         = errors.New("unsupported")
	ErrUpload              = errors.New("upload failed")
)
