package serx

// Test utilities for examples and external tests.

import (
	"context"
)

// NewTestRegistry returns a registry over a fresh in-memory store holding the
// tables of models (model name to prototype), with defs registered and
// resolved. Close the returned store when done.
//
//	r, st, err := serx.NewTestRegistry(ctx, map[string]any{"foo": Foo{}}, fooDef)
//	defer st.Close()
func NewTestRegistry(ctx context.Context, models map[string]any, defs ...Definition) (*Registry, *SQLiteStore, error) {
	return NewTestRegistryWithOptions(ctx, models, defs, nil)
}

// NewTestRegistryWithOptions is NewTestRegistry with registry options.
func NewTestRegistryWithOptions(ctx context.Context, models map[string]any, defs []Definition, options []RegistryOption) (*Registry, *SQLiteStore, error) {
	st, err := NewInMemoryStore()
	if err != nil {
		return nil, nil, err
	}
	r, err := newRegistryWithModels(ctx, st, models, options...)
	if err == nil {
		for _, def := range defs {
			if err = r.Register(def); err != nil {
				break
			}
		}
	}
	if err == nil {
		err = r.Resolve()
	}
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	return r, st, nil
}
