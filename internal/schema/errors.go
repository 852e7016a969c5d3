package schema

import (
	"errors"
	"fmt"
	"reflect"
)

// Schema errors
var (
	ErrInvalidModel    = errors.New("invalid model")
	ErrUnsupportedType = errors.New("unsupported type")
	ErrTypeConversion  = errors.New("type conversion failed")
	ErrNilPointer      = errors.New("nil pointer encountered")
)

func newInvalidModelError(t reflect.Type, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidModel, t, fmt.Sprintf(format, args...))
}

func newConversionError(x any, t reflect.Type) error {
	return fmt.Errorf("%w: cannot use %T value as %s", ErrTypeConversion, x, t)
}
