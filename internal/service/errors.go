package service

import "errors"

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")
	// ErrInvalidCode is returned when an execute link carries a code that does not match the order
	ErrInvalidCode = errors.New("invalid order code")
	ErrForbidden   = errors.New("forbidden")
)
