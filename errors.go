package serx

import (
	"errors"
	"fmt"

	"github.com/hengadev/serx/internal/schema"
	"github.com/hengadev/serx/internal/store"
)

var (
	// Configuration errors, raised when definitions are resolved
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrUnknownSerializer    = errors.New("unknown serializer")
	ErrUnknownModel         = errors.New("unknown model")
	ErrRegistryFrozen       = errors.New("registry already resolved")

	// Per-call errors
	ErrShapeMismatch = errors.New("shape mismatch")

	// Model and conversion errors
	ErrInvalidModel    = schema.ErrInvalidModel
	ErrUnsupportedType = schema.ErrUnsupportedType
	ErrTypeConversion  = schema.ErrTypeConversion
	ErrNilPointer      = schema.ErrNilPointer

	// Persistence errors raised by the bundled SQLite store
	ErrNotFound         = store.ErrNotFound
	ErrUnknownField     = store.ErrUnknownField
	ErrRelationMismatch = store.ErrRelationMismatch
	ErrUnsavedInstance  = store.ErrUnsavedInstance
)

// Shape names a plain-data shape in shape mismatch errors.
type Shape string

const (
	ShapeMapping  Shape = "mapping"
	ShapeSequence Shape = "sequence"
)

func NewShapeMismatchError(path string, expected Shape, got any) error {
	return fmt.Errorf("%w: '%s' must be a %s, got %T", ErrShapeMismatch, path, expected, got)
}

func NewUnknownSerializerError(name string) error {
	return fmt.Errorf("%w: '%s'", ErrUnknownSerializer, name)
}

func NewUnknownModelError(name string) error {
	return fmt.Errorf("%w: '%s'", ErrUnknownModel, name)
}

func NewMissingBindingError(serializer, field string) error {
	return fmt.Errorf("%w: relation field '%s' of serializer '%s' has no nested serializer",
		ErrInvalidConfiguration, field, serializer)
}

func NewFieldConversionError(path string, err error) error {
	return fmt.Errorf("field '%s': %w", path, err)
}

// IsConfigurationError returns true if the error comes from resolving serializer definitions.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration) ||
		errors.Is(err, ErrUnknownSerializer) ||
		errors.Is(err, ErrUnknownModel) ||
		errors.Is(err, ErrInvalidModel) ||
		errors.Is(err, ErrRegistryFrozen)
}

// IsShapeMismatchError returns true if a nested value had the wrong shape for its relation.
func IsShapeMismatchError(err error) bool {
	return errors.Is(err, ErrShapeMismatch)
}

// IsValidationError returns true if the error represents a data validation problem.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrShapeMismatch) ||
		errors.Is(err, ErrTypeConversion) ||
		errors.Is(err, ErrNilPointer)
}
