package serx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type FooModel struct {
	ID         int64       `serx:"id,pk"`
	TestFieldA string      `serx:"test_field_a"`
	TestFieldB string      `serx:"test_field_b"`
	Bars       []*BarModel `serx:"bars,reverse=foo"`
}

type BarModel struct {
	ID     int64     `serx:"id,pk"`
	Number int       `serx:"number"`
	Foo    *FooModel `serx:"foo,fk"`
	Baz    *BazModel `serx:"baz,reverse=bar"`
}

type BazModel struct {
	ID   int64     `serx:"id,pk"`
	Name string    `serx:"name"`
	Bar  *BarModel `serx:"bar,one_to_one"`
}

func testModels() map[string]any {
	return map[string]any{
		"foo": FooModel{},
		"bar": BarModel{},
		"baz": BazModel{},
	}
}

func fooDefinition() Definition {
	return Definition{
		Name:          "foo",
		Model:         "foo",
		PublishFields: []string{"test_field_a", "test_field_b", "bars"},
		UpdateFields:  []string{"test_field_a", "test_field_b", "bars"},
		Related:       map[string]string{"bars": "bar"},
	}
}

func barDefinition() Definition {
	return Definition{
		Name:          "bar",
		Model:         "bar",
		PublishFields: []string{"number", "foo", "baz"},
		UpdateFields:  []string{"number", "foo", "baz"},
		Related:       map[string]string{"foo": "foo", "baz": "baz"},
	}
}

func bazDefinition() Definition {
	return Definition{
		Name:          "baz",
		Model:         "baz",
		PublishFields: []string{"name", "bar"},
		UpdateFields:  []string{"name", "bar"},
		Related:       map[string]string{"bar": "bar"},
	}
}

// plainDefinition only knows the scalars of FooModel.
func plainDefinition() Definition {
	return Definition{
		Name:          "plain",
		Model:         "foo",
		PublishFields: []string{"id", "test_field_a", "test_field_b"},
		UpdateFields:  []string{"test_field_a", "test_field_b"},
	}
}

func testDefinitions() []Definition {
	return []Definition{fooDefinition(), barDefinition(), bazDefinition(), plainDefinition()}
}

// newTestRegistry returns a resolved registry over a fresh in-memory store.
func newTestRegistry(t *testing.T, options ...RegistryOption) (*Registry, *SQLiteStore) {
	t.Helper()
	r, st, err := NewTestRegistryWithOptions(context.Background(), testModels(), testDefinitions(), options)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return r, st
}

func mustSerializer(t *testing.T, r *Registry, name string) *Serializer {
	t.Helper()
	s, err := r.Serializer(name)
	require.NoError(t, err)
	return s
}
