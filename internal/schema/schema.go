package schema

import (
	"reflect"
	"strings"
	"sync"
	"unicode"
)

// TagName is the struct tag read from model fields.
//
//	serx:"name[,option...]"
//
// Options:
//   - pk: int primary key
//   - fk: forward reference, field type *T
//   - one_to_one: owning side of a one-to-one, field type *T
//   - reverse=<remote>: inverse side, []*T for a reverse collection or *T for a one-to-one
//
// A name of "-" skips the field. Untagged exported fields are scalars named in snake_case.
const TagName = "serx"

// Tabler lets a model choose its table name.
type Tabler interface {
	TableName() string
}

// Field describes one model field and carries its typed setter.
type Field struct {
	Name     string
	GoName   string
	Index    []int
	Type     reflect.Type
	PK       bool
	Relation RelationKind
	// Inverse marks a relation whose column lives on the remote model.
	Inverse bool
	Remote  string
	Target  reflect.Type
	Column  string

	set setter
}

// IsRelation reports whether the field refers to another model.
func (f *Field) IsRelation() bool {
	return f.Relation != None
}

// Owning reports whether the relation column is stored on this model.
func (f *Field) Owning() bool {
	return f.IsRelation() && !f.Inverse
}

// Value returns the reflected field inside the struct value v.
func (f *Field) Value(v reflect.Value) reflect.Value {
	return v.FieldByIndex(f.Index)
}

// Get returns the plain value of the field. Nil scalar pointers yield nil.
func (f *Field) Get(v reflect.Value) any {
	fv := v.FieldByIndex(f.Index)
	if f.Relation == None && fv.Kind() == reflect.Pointer {
		if fv.IsNil() {
			return nil
		}
		return fv.Elem().Interface()
	}
	return fv.Interface()
}

// Set assigns x through the setter resolved for the field type.
func (f *Field) Set(v reflect.Value, x any) error {
	if f.set == nil {
		return newInvalidModelError(v.Type(), "field '%s' has no setter", f.Name)
	}
	return f.set(v.FieldByIndex(f.Index), x)
}

// Link points a single relation at target (a *T), or clears it when target is nil.
func (f *Field) Link(v reflect.Value, target any) error {
	fv := v.FieldByIndex(f.Index)
	if f.Relation.Multiple() {
		return newInvalidModelError(v.Type(), "field '%s' is a collection", f.Name)
	}
	if target == nil {
		fv.Set(reflect.Zero(fv.Type()))
		return nil
	}
	tv := reflect.ValueOf(target)
	if tv.Type() != fv.Type() {
		return newConversionError(target, fv.Type())
	}
	fv.Set(tv)
	return nil
}

// Fill replaces the contents of a reverse collection with items, each a *T.
func (f *Field) Fill(v reflect.Value, items []any) error {
	if f.Relation != Reverse {
		return newInvalidModelError(v.Type(), "field '%s' is not a reverse collection", f.Name)
	}
	fv := v.FieldByIndex(f.Index)
	out := reflect.MakeSlice(fv.Type(), 0, len(items))
	for _, item := range items {
		iv := reflect.ValueOf(item)
		if !iv.IsValid() || iv.Type() != fv.Type().Elem() {
			return newConversionError(item, fv.Type().Elem())
		}
		out = reflect.Append(out, iv)
	}
	fv.Set(out)
	return nil
}

// Model is the reflected description of a model struct.
type Model struct {
	Type   reflect.Type
	Table  string
	PK     *Field
	Fields []*Field

	byName map[string]*Field
}

// Field returns the field published under name.
func (m *Model) Field(name string) (*Field, bool) {
	f, ok := m.byName[name]
	return f, ok
}

// Columns returns the stored fields except the primary key, in declaration order.
func (m *Model) Columns() []*Field {
	cols := make([]*Field, 0, len(m.Fields))
	for _, f := range m.Fields {
		if f.PK || f.Inverse {
			continue
		}
		cols = append(cols, f)
	}
	return cols
}

// ID returns the primary key of the struct value v.
func (m *Model) ID(v reflect.Value) int64 {
	return v.FieldByIndex(m.PK.Index).Int()
}

// SetID assigns the primary key of the struct value v.
func (m *Model) SetID(v reflect.Value, id int64) {
	v.FieldByIndex(m.PK.Index).SetInt(id)
}

// New allocates a zero instance and returns the pointer.
func (m *Model) New() reflect.Value {
	return reflect.New(m.Type)
}

// Validate checks inverse relations against the remote models.
func (m *Model) Validate() error {
	for _, f := range m.Fields {
		if !f.IsRelation() {
			continue
		}
		target, err := Of(f.Target)
		if err != nil {
			return err
		}
		if !f.Inverse {
			continue
		}
		remote, ok := target.Field(f.Remote)
		if !ok {
			return newInvalidModelError(m.Type, "field '%s' mirrors unknown field '%s' on %s", f.Name, f.Remote, target.Type)
		}
		if remote.Inverse || remote.Target != m.Type {
			return newInvalidModelError(m.Type, "field '%s' mirrors '%s' which does not point back", f.Name, f.Remote)
		}
		switch f.Relation {
		case Reverse:
			if remote.Relation != Forward {
				return newInvalidModelError(m.Type, "reverse collection '%s' must mirror a fk, '%s' is %s", f.Name, f.Remote, remote.Relation)
			}
		case OneToOne:
			if remote.Relation != OneToOne {
				return newInvalidModelError(m.Type, "one-to-one '%s' must mirror a one_to_one, '%s' is %s", f.Name, f.Remote, remote.Relation)
			}
		}
	}
	return nil
}

var cache sync.Map // reflect.Type -> *Model

// Of returns the cached model description of t (a struct or pointer to struct).
func Of(t reflect.Type) (*Model, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, newInvalidModelError(t, "not a struct")
	}
	if m, ok := cache.Load(t); ok {
		return m.(*Model), nil
	}
	m, err := build(t)
	if err != nil {
		return nil, err
	}
	actual, _ := cache.LoadOrStore(t, m)
	return actual.(*Model), nil
}

// For returns the struct value behind instance, which must be a non-nil pointer to a struct.
func For(instance any) (reflect.Value, *Model, error) {
	if instance == nil {
		return reflect.Value{}, nil, ErrNilPointer
	}
	pv := reflect.ValueOf(instance)
	if pv.Kind() != reflect.Pointer {
		return reflect.Value{}, nil, newInvalidModelError(pv.Type(), "must be a pointer to a struct")
	}
	if pv.IsNil() {
		return reflect.Value{}, nil, ErrNilPointer
	}
	m, err := Of(pv.Type())
	if err != nil {
		return reflect.Value{}, nil, err
	}
	return pv.Elem(), m, nil
}

func build(t reflect.Type) (*Model, error) {
	m := &Model{
		Type:   t,
		Table:  tableName(t),
		byName: make(map[string]*Field),
	}
	if err := m.collect(t, nil); err != nil {
		return nil, err
	}
	if m.PK == nil {
		return nil, newInvalidModelError(t, "no primary key, tag an int field with 'pk'")
	}
	return m, nil
}

func (m *Model) collect(t reflect.Type, prefix []int) error {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag, tagged := sf.Tag.Lookup(TagName)
		if tag == "-" {
			continue
		}
		index := append(append([]int(nil), prefix...), i)
		if sf.Anonymous && !tagged && sf.Type.Kind() == reflect.Struct {
			if err := m.collect(sf.Type, index); err != nil {
				return err
			}
			continue
		}
		if !sf.IsExported() {
			continue
		}
		f, err := parseField(m.Type, sf, index, tag)
		if err != nil {
			return err
		}
		if _, dup := m.byName[f.Name]; dup {
			return newInvalidModelError(m.Type, "duplicate field name '%s'", f.Name)
		}
		if f.PK {
			if m.PK != nil {
				return newInvalidModelError(m.Type, "more than one primary key")
			}
			m.PK = f
		}
		m.byName[f.Name] = f
		m.Fields = append(m.Fields, f)
	}
	return nil
}

func parseField(owner reflect.Type, sf reflect.StructField, index []int, tag string) (*Field, error) {
	parts := strings.Split(tag, ",")
	name := strings.TrimSpace(parts[0])
	if name == "" {
		name = SnakeCase(sf.Name)
	}
	f := &Field{
		Name:   name,
		GoName: sf.Name,
		Index:  index,
		Type:   sf.Type,
	}

	for _, opt := range parts[1:] {
		key, val, _ := strings.Cut(strings.TrimSpace(opt), "=")
		switch key {
		case "pk":
			f.PK = true
		case "fk":
			f.Relation = Forward
		case "one_to_one":
			f.Relation = OneToOne
		case "reverse":
			if val == "" {
				return nil, newInvalidModelError(owner, "field '%s': reverse needs the remote field name", name)
			}
			f.Inverse = true
			f.Remote = val
		case "":
		default:
			return nil, newInvalidModelError(owner, "field '%s': unknown tag option '%s'", name, key)
		}
	}

	switch {
	case f.PK:
		if f.Relation != None || f.Inverse {
			return nil, newInvalidModelError(owner, "primary key '%s' cannot be a relation", name)
		}
		switch sf.Type.Kind() {
		case reflect.Int, reflect.Int32, reflect.Int64:
		default:
			return nil, newInvalidModelError(owner, "primary key '%s' must be an int, got %s", name, sf.Type)
		}
		f.Column = name
		f.set = nilable(setInt)
	case f.Inverse:
		if f.Relation == Forward {
			return nil, newInvalidModelError(owner, "field '%s' cannot be both fk and reverse", name)
		}
		switch {
		case isStructPointer(sf.Type):
			f.Relation = OneToOne
			f.Target = sf.Type.Elem()
		case sf.Type.Kind() == reflect.Slice && isStructPointer(sf.Type.Elem()):
			if f.Relation == OneToOne {
				return nil, newInvalidModelError(owner, "one-to-one '%s' cannot be a slice", name)
			}
			f.Relation = Reverse
			f.Target = sf.Type.Elem().Elem()
		default:
			return nil, newInvalidModelError(owner, "reverse field '%s' must be *T or []*T, got %s", name, sf.Type)
		}
	case f.Relation != None:
		if !isStructPointer(sf.Type) {
			return nil, newInvalidModelError(owner, "%s field '%s' must be a pointer to a struct, got %s", f.Relation, name, sf.Type)
		}
		f.Target = sf.Type.Elem()
		f.Column = name + "_id"
	default:
		s, err := newSetter(sf.Type)
		if err != nil {
			return nil, newInvalidModelError(owner, "field '%s': %v", name, err)
		}
		f.Column = name
		f.set = s
	}
	return f, nil
}

func isStructPointer(t reflect.Type) bool {
	return t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Struct
}

func tableName(t reflect.Type) string {
	if tabler, ok := reflect.New(t).Interface().(Tabler); ok {
		return tabler.TableName()
	}
	return SnakeCase(t.Name())
}

// SnakeCase converts a Go identifier such as "TestFieldA" or "HTTPServer" to snake_case.
func SnakeCase(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
