package serx

import (
	"context"
	"errors"
	"testing"

	"github.com/hengadev/errsx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBareRegistry(t *testing.T) *Registry {
	t.Helper()
	st, err := NewInMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	r, err := NewRegistry(st)
	require.NoError(t, err)
	for name, proto := range testModels() {
		require.NoError(t, r.RegisterModel(name, proto))
	}
	return r
}

// resolveProblems resolves r and returns the per-serializer problems.
func resolveProblems(t *testing.T, r *Registry) errsx.Map {
	t.Helper()
	err := r.Resolve()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
	assert.True(t, IsConfigurationError(err))

	var problems errsx.Map
	require.True(t, errors.As(err, &problems), "expected an errsx.Map in %v", err)
	return problems
}

func TestRegistry_Resolve(t *testing.T) {
	tests := []struct {
		name        string
		defs        []Definition
		wantInvalid []string
		wantErr     error
	}{
		{
			name: "relation field without nested serializer",
			defs: []Definition{fooDefinition(), bazDefinition(), {
				Name:          "bar",
				Model:         "bar",
				PublishFields: []string{"number", "foo"},
				UpdateFields:  []string{"number"},
			}},
			wantInvalid: []string{"serializer 'bar'"},
			wantErr:     ErrInvalidConfiguration,
		},
		{
			name: "unknown model",
			defs: []Definition{{
				Name:          "ghost",
				Model:         "ghost",
				PublishFields: []string{"name"},
			}},
			wantInvalid: []string{"serializer 'ghost'"},
			wantErr:     ErrUnknownModel,
		},
		{
			name: "unknown field",
			defs: []Definition{{
				Name:          "foo",
				Model:         "foo",
				PublishFields: []string{"test_field_a", "test_field_c"},
			}},
			wantInvalid: []string{"serializer 'foo'"},
			wantErr:     ErrUnknownField,
		},
		{
			name: "unknown nested serializer",
			defs: []Definition{{
				Name:          "foo",
				Model:         "foo",
				PublishFields: []string{"bars"},
				Related:       map[string]string{"bars": "bar"},
			}},
			wantInvalid: []string{"serializer 'foo'"},
			wantErr:     ErrUnknownSerializer,
		},
		{
			name: "nested serializer of another model",
			defs: []Definition{barDefinition(), bazDefinition(), {
				Name:          "foo",
				Model:         "foo",
				PublishFields: []string{"bars"},
				Related:       map[string]string{"bars": "baz"},
			}},
			wantInvalid: []string{"serializer 'foo'"},
			wantErr:     ErrInvalidConfiguration,
		},
		{
			name: "serializer bound to a scalar",
			defs: []Definition{barDefinition(), bazDefinition(), fooDefinition(), {
				Name:          "broken",
				Model:         "bar",
				PublishFields: []string{"number"},
				Related:       map[string]string{"number": "foo"},
			}},
			wantInvalid: []string{"serializer 'broken'"},
			wantErr:     ErrInvalidConfiguration,
		},
		{
			name: "every broken definition is reported",
			defs: []Definition{
				{Name: "one", Model: "nope", PublishFields: []string{"x"}},
				{Name: "two", Model: "foo", PublishFields: []string{"y"}},
				plainDefinition(),
			},
			wantInvalid: []string{"serializer 'one'", "serializer 'two'"},
			wantErr:     ErrInvalidConfiguration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newBareRegistry(t)
			for _, def := range tt.defs {
				require.NoError(t, r.Register(def))
			}

			problems := resolveProblems(t, r)
			assert.Len(t, problems, len(tt.wantInvalid))
			for _, key := range tt.wantInvalid {
				assert.Contains(t, problems, key)
			}
			assert.ErrorContains(t, r.Resolve(), tt.wantErr.Error())
		})
	}
}

func TestRegistry_ResolveCycle(t *testing.T) {
	r := newBareRegistry(t)
	require.NoError(t, r.Register(fooDefinition()))
	require.NoError(t, r.Register(barDefinition()))
	require.NoError(t, r.Register(bazDefinition()))
	require.NoError(t, r.Resolve())

	foo, err := r.Serializer("foo")
	require.NoError(t, err)
	b, ok := foo.Opts().Binding("bars")
	require.True(t, ok)

	bar, err := r.Serializer(b.Serializer)
	require.NoError(t, err)
	back, ok := bar.Opts().Binding("foo")
	require.True(t, ok)
	assert.Equal(t, "foo", back.Serializer)
	assert.Equal(t, Forward, back.Kind)
}

func TestRegistry_ResolveOnce(t *testing.T) {
	r := newBareRegistry(t)
	require.NoError(t, r.Register(Definition{Name: "ghost", Model: "ghost"}))

	first := r.Resolve()
	require.Error(t, first)
	assert.Same(t, first, r.Resolve())

	_, err := r.Serializer("ghost")
	assert.Same(t, first, err)

	assert.ErrorIs(t, r.Register(plainDefinition()), ErrRegistryFrozen)
	assert.ErrorIs(t, r.RegisterModel("other", FooModel{}), ErrRegistryFrozen)
}

func TestRegistry_SerializerResolvesLazily(t *testing.T) {
	r := newBareRegistry(t)
	require.NoError(t, r.Register(plainDefinition()))

	s, err := r.Serializer("plain")
	require.NoError(t, err)
	assert.Equal(t, "plain", s.Name())
	assert.Equal(t, "foo", s.Opts().Model())
	assert.Equal(t, "FooModel", s.ModelType().Name())
	assert.IsType(t, &FooModel{}, s.New())

	_, err = r.Serializer("missing")
	assert.ErrorIs(t, err, ErrUnknownSerializer)
	assert.True(t, IsConfigurationError(err))

	assert.ErrorIs(t, r.Register(fooDefinition()), ErrRegistryFrozen)
}

func TestRegistry_Register(t *testing.T) {
	r := newBareRegistry(t)
	require.NoError(t, r.Register(plainDefinition()))

	err := r.Register(plainDefinition())
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
	assert.Contains(t, err.Error(), "already registered")

	err = r.Register(Definition{Model: "foo"})
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	def := fooDefinition()
	require.NoError(t, r.Register(def))
	def.PublishFields[0] = "changed"
	def.Related["bars"] = "changed"
	assert.Equal(t, "test_field_a", r.defs["foo"].PublishFields[0])
	assert.Equal(t, "bar", r.defs["foo"].Related["bars"])
}

func TestRegistry_RegisterModel(t *testing.T) {
	st, err := NewInMemoryStore()
	require.NoError(t, err)
	defer st.Close()

	r, err := NewRegistry(st)
	require.NoError(t, err)

	require.NoError(t, r.RegisterModel("foo", &FooModel{}))
	assert.ErrorIs(t, r.RegisterModel("foo", FooModel{}), ErrInvalidConfiguration)
	assert.ErrorIs(t, r.RegisterModel("", FooModel{}), ErrInvalidConfiguration)
	assert.ErrorIs(t, r.RegisterModel("nil", nil), ErrInvalidModel)

	type noKey struct {
		Name string `serx:"name"`
	}
	assert.ErrorIs(t, r.RegisterModel("nokey", noKey{}), ErrInvalidModel)
	assert.ErrorIs(t, r.RegisterModel("text", "not a model"), ErrInvalidModel)
}

func TestRegistry_RegisterAll(t *testing.T) {
	r := newBareRegistry(t)
	defs := Definitions{
		Version: DefinitionsVersion,
		Serializers: map[string]Definition{
			"foo": fooDefinition(),
			"bar": barDefinition(),
			"baz": bazDefinition(),
		},
	}
	require.NoError(t, r.RegisterAll(defs))
	require.NoError(t, r.Resolve())

	for _, name := range defs.Names() {
		_, err := r.Serializer(name)
		assert.NoError(t, err)
	}
}

func TestNewRegistry(t *testing.T) {
	_, err := NewRegistry(nil)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	st, err := NewInMemoryStore()
	require.NoError(t, err)
	defer st.Close()

	_, err = NewRegistry(st, WithLogger(nil))
	assert.Error(t, err)
	_, err = NewRegistry(st, WithObservabilityHook(nil))
	assert.Error(t, err)
	_, err = NewRegistry(st, WithMetricsCollector(nil))
	assert.Error(t, err)

	r, err := NewRegistry(st, WithMetricsCollector(NewInMemoryMetricsCollector()), WithObservabilityHook(NoOpObservabilityHook{}))
	require.NoError(t, err)
	assert.Same(t, st, r.Store())
}

func TestRegistry_Prototypes(t *testing.T) {
	r := newBareRegistry(t)
	protos := r.Prototypes()
	require.Len(t, protos, 3)
	assert.IsType(t, &BarModel{}, protos[0])
	assert.IsType(t, &BazModel{}, protos[1])
	assert.IsType(t, &FooModel{}, protos[2])
}

type errorStore struct {
	Store
	err error
}

func (s errorStore) GetRelated(context.Context, any, string, RelationKind) (any, error) {
	return nil, s.err
}

func (s errorStore) CreateOrUpdate(context.Context, any) error {
	return s.err
}

func TestStoreErrorsAreReturnedUnchanged(t *testing.T) {
	_, st := newTestRegistry(t)
	failure := errors.New("disk on fire")

	r, err := NewRegistry(errorStore{Store: st, err: failure})
	require.NoError(t, err)
	for name, proto := range testModels() {
		require.NoError(t, r.RegisterModel(name, proto))
	}
	for _, def := range testDefinitions() {
		require.NoError(t, r.Register(def))
	}
	foo := mustSerializer(t, r, "foo")

	_, err = foo.Save(context.Background(), Data{"test_field_a": "x"})
	assert.Same(t, failure, err)

	_, err = foo.Serialize(context.Background(), &FooModel{ID: 1})
	assert.Same(t, failure, err)
}

// callStore records the call id seen by every write.
type callStore struct {
	Store
	ids []string
}

func (s *callStore) CreateOrUpdate(ctx context.Context, instance any) error {
	id, _ := CallID(ctx)
	s.ids = append(s.ids, id)
	return s.Store.CreateOrUpdate(ctx, instance)
}

func TestCallIDReachesTheStore(t *testing.T) {
	_, st := newTestRegistry(t)
	recorder := &callStore{Store: st}

	r, err := NewRegistry(recorder)
	require.NoError(t, err)
	for name, proto := range testModels() {
		require.NoError(t, r.RegisterModel(name, proto))
	}
	for _, def := range testDefinitions() {
		require.NoError(t, r.Register(def))
	}
	foo := mustSerializer(t, r, "foo")

	_, err = foo.Save(context.Background(), Data{
		"test_field_a": "x",
		"bars":         []any{Data{"number": 1}, Data{"number": 2}},
	})
	require.NoError(t, err)
	require.NotEmpty(t, recorder.ids)
	first := recorder.ids[0]
	assert.NotEmpty(t, first)
	for _, id := range recorder.ids {
		assert.Equal(t, first, id)
	}

	recorder.ids = nil
	_, err = foo.Save(context.Background(), Data{"test_field_a": "y"})
	require.NoError(t, err)
	require.Len(t, recorder.ids, 1)
	assert.NotEqual(t, first, recorder.ids[0])
}
