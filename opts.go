package serx

import "sort"

// Binding ties a relation field to the serializer converting its values.
type Binding struct {
	Field      string
	Kind       RelationKind
	Serializer string
}

// Opts is the resolved, immutable field configuration of a serializer.
type Opts struct {
	name      string
	model     string
	publish   []string
	update    []string
	publishes map[string]struct{}
	updates   map[string]struct{}
	bindings  map[string]Binding
}

func newOpts(def Definition, bindings map[string]Binding) *Opts {
	o := &Opts{
		name:      def.Name,
		model:     def.Model,
		publish:   append([]string(nil), def.PublishFields...),
		update:    append([]string(nil), def.UpdateFields...),
		publishes: make(map[string]struct{}, len(def.PublishFields)),
		updates:   make(map[string]struct{}, len(def.UpdateFields)),
		bindings:  bindings,
	}
	for _, f := range o.publish {
		o.publishes[f] = struct{}{}
	}
	for _, f := range o.update {
		o.updates[f] = struct{}{}
	}
	return o
}

// Name returns the serializer name.
func (o *Opts) Name() string { return o.name }

// Model returns the registered model name.
func (o *Opts) Model() string { return o.model }

// PublishFields returns a copy of the fields emitted by Serialize, in order.
func (o *Opts) PublishFields() []string {
	return append([]string(nil), o.publish...)
}

// UpdateFields returns a copy of the fields honored by Save and Update, in order.
func (o *Opts) UpdateFields() []string {
	return append([]string(nil), o.update...)
}

// HasPublishField reports whether Serialize emits name.
func (o *Opts) HasPublishField(name string) bool {
	_, ok := o.publishes[name]
	return ok
}

// HasUpdateField reports whether Save and Update read name.
func (o *Opts) HasUpdateField(name string) bool {
	_, ok := o.updates[name]
	return ok
}

// Binding returns the nested serializer bound to a relation field.
func (o *Opts) Binding(field string) (Binding, bool) {
	b, ok := o.bindings[field]
	return b, ok
}

// Bindings returns every binding sorted by field name.
func (o *Opts) Bindings() []Binding {
	out := make([]Binding, 0, len(o.bindings))
	for _, b := range o.bindings {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}
