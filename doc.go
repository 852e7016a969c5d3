// Package serx converts persisted model instances to plain nested data and
// back, following forward references, reverse collections and one-to-one
// relations.
//
// Serializers are declared, not coded: a Definition names the model, the
// fields published by Serialize, the fields accepted by Save and Update, and
// the serializer bound to each relation field. A Registry resolves every
// definition once, checking it against the model declarations, and hands out
// immutable serializers safe for concurrent use.
//
// # Models
//
// Models are plain structs described with the serx struct tag:
//
//	type FooModel struct {
//	    ID         int64       `serx:"id,pk"`
//	    TestFieldA string      `serx:"test_field_a"`
//	    TestFieldB string      `serx:"test_field_b"`
//	    Bars       []*BarModel `serx:"bars,reverse=foo"`
//	}
//
//	type BarModel struct {
//	    ID     int64     `serx:"id,pk"`
//	    Number int       `serx:"number"`
//	    Foo    *FooModel `serx:"foo,fk"`
//	    Baz    *BazModel `serx:"baz,reverse=bar"`
//	}
//
//	type BazModel struct {
//	    ID   int64     `serx:"id,pk"`
//	    Name string    `serx:"name"`
//	    Bar  *BarModel `serx:"bar,one_to_one"`
//	}
//
// Tag options:
//   - pk: integer primary key, required once per model
//   - fk: forward reference, a *T field stored as <name>_id
//   - one_to_one: owning side of a one-to-one, a *T field stored as a unique <name>_id
//   - reverse=<remote>: inverse side, []*T for a reverse collection, *T for a one-to-one
//
// # Serializers
//
//	r, err := serx.NewRegistry(store)
//	r.RegisterModel("foo", FooModel{})
//	r.RegisterModel("bar", BarModel{})
//	r.Register(serx.Definition{
//	    Name:          "foo",
//	    Model:         "foo",
//	    PublishFields: []string{"test_field_a", "test_field_b", "bars"},
//	    UpdateFields:  []string{"test_field_a", "test_field_b", "bars"},
//	    Related:       map[string]string{"bars": "bar"},
//	})
//	// ...
//	foos, err := r.Serializer("foo")
//
//	foo, err := serx.Save[FooModel](ctx, foos, serx.Data{
//	    "test_field_a": "foo",
//	    "bars":         []any{serx.Data{"number": 52}, serx.Data{"number": 42}},
//	})
//	data, err := foos.Serialize(ctx, foo)
//
// Definitions can also be loaded from YAML with LoadDefinitions and
// Registry.RegisterAll, see Definitions for the format.
//
// # Recursion
//
// Serialize keeps the set of instances embedded by the current call. A
// related instance already in the set is omitted, so serializers bound in a
// cycle (foo embeds its bars, each bar embeds its foo) terminate.
//
// # Errors
//
// Definition problems surface from Registry.Resolve as ErrInvalidConfiguration.
// A payload whose relation value has the wrong shape fails with
// ErrShapeMismatch. Errors from the Store are returned unchanged.
package serx
