package store

import (
	"errors"
	"fmt"
)

// Store errors
var (
	ErrNotFound         = errors.New("record not found")
	ErrUnknownField     = errors.New("unknown field")
	ErrRelationMismatch = errors.New("relation kind mismatch")
	ErrUnsavedInstance  = errors.New("instance has not been saved")
)

func newUnknownFieldError(table, field string) error {
	return fmt.Errorf("%w: '%s' on %s", ErrUnknownField, field, table)
}

func newRelationMismatchError(table, field, want, got string) error {
	return fmt.Errorf("%w: '%s' on %s is %s, not %s", ErrRelationMismatch, field, table, got, want)
}

func newUnsavedInstanceError(table, details string) error {
	return fmt.Errorf("%w: %s: %s", ErrUnsavedInstance, table, details)
}
