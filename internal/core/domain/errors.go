package domain

import (
	"errors"
	"fmt"
)

var (
	ErrSchemaNotFound      = errors.New("schema not found")
	ErrDuplicateSchema     = errors.New("duplicate schema name")
	ErrWorksheetUnreadable = errors.New("worksheet unreadable")
	ErrValidation          = errors.New("record validation failed")
	ErrUnknownTag          = errors.New("unknown type tag")
)

// ValidationError reports why a normalized record was rejected for a schema.
type ValidationError struct {
	Schema string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("schema %q: %s", e.Schema, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
