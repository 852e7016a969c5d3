package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"
)

// setter assigns a plain or database value to a reflected field.
type setter func(dst reflect.Value, x any) error

var timeType = reflect.TypeOf(time.Time{})

// timeLayouts are tried in order when a time arrives as text.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// newSetter resolves the setter for a scalar type once, at schema build time.
func newSetter(t reflect.Type) (setter, error) {
	if t == timeType {
		return nilable(setTime), nil
	}
	switch t.Kind() {
	case reflect.String:
		return nilable(setString), nil
	case reflect.Bool:
		return nilable(setBool), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return nilable(setInt), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return nilable(setUint), nil
	case reflect.Float32, reflect.Float64:
		return nilable(setFloat), nil
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return nilable(setBytes), nil
		}
	case reflect.Pointer:
		elem, err := newSetter(t.Elem())
		if err != nil {
			return nil, err
		}
		return func(dst reflect.Value, x any) error {
			if x == nil {
				dst.Set(reflect.Zero(dst.Type()))
				return nil
			}
			p := reflect.New(t.Elem())
			if err := elem(p.Elem(), x); err != nil {
				return err
			}
			dst.Set(p)
			return nil
		}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, t)
}

// nilable resets dst to its zero value when x is nil.
func nilable(s setter) setter {
	return func(dst reflect.Value, x any) error {
		if x == nil {
			dst.Set(reflect.Zero(dst.Type()))
			return nil
		}
		return s(dst, x)
	}
}

func setString(dst reflect.Value, x any) error {
	switch v := x.(type) {
	case string:
		dst.SetString(v)
	case []byte:
		dst.SetString(string(v))
	default:
		return newConversionError(x, dst.Type())
	}
	return nil
}

func setBool(dst reflect.Value, x any) error {
	switch v := x.(type) {
	case bool:
		dst.SetBool(v)
	case int64:
		dst.SetBool(v != 0)
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return newConversionError(x, dst.Type())
		}
		dst.SetBool(b)
	default:
		return newConversionError(x, dst.Type())
	}
	return nil
}

func setInt(dst reflect.Value, x any) error {
	n, ok := toInt64(x)
	if !ok || dst.OverflowInt(n) {
		return newConversionError(x, dst.Type())
	}
	dst.SetInt(n)
	return nil
}

func setUint(dst reflect.Value, x any) error {
	n, ok := toInt64(x)
	if !ok || n < 0 || dst.OverflowUint(uint64(n)) {
		if u, isUint := x.(uint64); isUint && !dst.OverflowUint(u) {
			dst.SetUint(u)
			return nil
		}
		return newConversionError(x, dst.Type())
	}
	dst.SetUint(uint64(n))
	return nil
}

func setFloat(dst reflect.Value, x any) error {
	f, ok := toFloat64(x)
	if !ok || dst.OverflowFloat(f) {
		return newConversionError(x, dst.Type())
	}
	dst.SetFloat(f)
	return nil
}

func setBytes(dst reflect.Value, x any) error {
	switch v := x.(type) {
	case []byte:
		dst.SetBytes(append([]byte(nil), v...))
	case string:
		dst.SetBytes([]byte(v))
	default:
		return newConversionError(x, dst.Type())
	}
	return nil
}

func setTime(dst reflect.Value, x any) error {
	switch v := x.(type) {
	case time.Time:
		dst.Set(reflect.ValueOf(v))
		return nil
	case string:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				dst.Set(reflect.ValueOf(t))
				return nil
			}
		}
	case []byte:
		return setTime(dst, string(v))
	}
	return newConversionError(x, dst.Type())
}

func toInt64(x any) (int64, bool) {
	switch v := x.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		return int64(v), v <= math.MaxInt64
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		return int64(v), v <= math.MaxInt64
	case float32:
		return toInt64(float64(v))
	case float64:
		if v != math.Trunc(v) || v >= math.MaxInt64 || v < math.MinInt64 {
			return 0, false
		}
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	default:
		return 0, false
	}
}

func toFloat64(x any) (float64, bool) {
	switch v := x.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		n, ok := toInt64(x)
		return float64(n), ok
	}
}
