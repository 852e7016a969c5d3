package serx

import (
	"context"
	"fmt"
	"reflect"

	"github.com/hengadev/serx/internal/schema"
)

// Serializer converts instances of one model to Data and back, following its
// resolved Opts. Obtain one from Registry.Serializer.
type Serializer struct {
	registry *Registry
	opts     *Opts
	model    *schema.Model
}

// Opts exposes the resolved field configuration.
func (s *Serializer) Opts() *Opts {
	return s.opts
}

// Name returns the serializer name.
func (s *Serializer) Name() string {
	return s.opts.name
}

// ModelType returns the struct type converted by the serializer.
func (s *Serializer) ModelType() reflect.Type {
	return s.model.Type
}

// New returns a pointer to a zero instance of the model.
func (s *Serializer) New() any {
	return s.model.New().Interface()
}

// instance returns the struct value behind instance, checking its model.
func (s *Serializer) instance(instance any) (reflect.Value, error) {
	v, m, err := schema.For(instance)
	if err != nil {
		return reflect.Value{}, err
	}
	if m != s.model {
		return reflect.Value{}, fmt.Errorf("%w: serializer '%s' converts *%s, got %T",
			ErrTypeConversion, s.opts.name, s.model.Type, instance)
	}
	return v, nil
}

// Save deserializes data into a new instance of the model and returns it typed.
func Save[T any](ctx context.Context, s *Serializer, data Data) (*T, error) {
	inst, err := s.Save(ctx, data)
	if err != nil {
		return nil, err
	}
	out, ok := inst.(*T)
	if !ok {
		return nil, fmt.Errorf("%w: serializer '%s' builds %T, not *%s",
			ErrTypeConversion, s.opts.name, inst, reflect.TypeOf((*T)(nil)).Elem())
	}
	return out, nil
}

// SerializeAll serializes each instance in its own call, so the recursion
// guard of one instance never hides parts of another.
func SerializeAll[T any](ctx context.Context, s *Serializer, instances []*T) ([]Data, error) {
	out := make([]Data, 0, len(instances))
	for i, inst := range instances {
		data, err := s.Serialize(ctx, inst)
		if err != nil {
			return nil, fmt.Errorf("instance %d: %w", i, err)
		}
		out = append(out, data)
	}
	return out, nil
}
