package serx

import (
	"context"
	"fmt"
	"reflect"
)

// related fetches what a relation field of instance refers to through the
// store, normalized to a list: empty or one element for single relations, the
// ordered members for reverse collections.
func (r *Registry) related(ctx context.Context, instance any, b Binding) ([]any, error) {
	out, err := r.store.GetRelated(ctx, instance, b.Field, b.Kind)
	if err != nil {
		return nil, err
	}
	return instanceList(out), nil
}

// instanceList flattens nil, a single instance or a slice of instances.
func instanceList(v any) []any {
	if v == nil {
		return nil
	}
	switch items := v.(type) {
	case []any:
		return items
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return []any{v}
	case reflect.Slice, reflect.Array:
		out := make([]any, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out = append(out, rv.Index(i).Interface())
		}
		return out
	default:
		return []any{v}
	}
}

// asMapping returns v as Data when it is a mapping with string keys.
func asMapping(path string, v any) (Data, error) {
	switch m := v.(type) {
	case map[string]any:
		return m, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, NewShapeMismatchError(path, ShapeMapping, v)
	}
	out := make(Data, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, nil
}

// asSequence returns the elements of v when it is a slice or an array. Strings
// and byte slices are scalars, not sequences.
func asSequence(path string, v any) ([]any, error) {
	switch s := v.(type) {
	case []any:
		return s, nil
	case []Data:
		out := make([]any, len(s))
		for i := range s {
			out[i] = s[i]
		}
		return out, nil
	case []byte, string:
		return nil, NewShapeMismatchError(path, ShapeSequence, v)
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, NewShapeMismatchError(path, ShapeSequence, v)
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}

func fieldPath(parent, field string) string {
	if parent == "" {
		return field
	}
	return parent + "." + field
}

func indexPath(parent string, i int) string {
	return fmt.Sprintf("%s[%d]", parent, i)
}
