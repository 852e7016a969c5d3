package serx

import (
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"sort"
	"sync"

	"github.com/hengadev/errsx"

	"github.com/hengadev/serx/internal/monitoring"
	"github.com/hengadev/serx/internal/schema"
)

// Registry holds models and serializer definitions and resolves them, once,
// into serializers.
//
// Definitions refer to models and to each other by name, so serializers bound
// in a cycle (foo embeds bar, bar embeds foo) are declared without ordering
// constraints. Resolve checks every definition against the model declarations
// and fails on the first call with every problem found. After Resolve the
// registry is frozen and its serializers are safe for concurrent use.
type Registry struct {
	mu     sync.Mutex
	store  Store
	logger *slog.Logger
	hooks  []ObservabilityHook
	hook   ObservabilityHook

	models map[string]*schema.Model
	defs   map[string]Definition
	order  []string

	resolved    bool
	err         error
	serializers map[string]*Serializer
}

// NewRegistry creates an empty registry persisting through store.
func NewRegistry(store Store, options ...RegistryOption) (*Registry, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store is required", ErrInvalidConfiguration)
	}
	r := &Registry{
		store:  store,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		models: make(map[string]*schema.Model),
		defs:   make(map[string]Definition),
	}
	for _, opt := range options {
		if err := opt(r); err != nil {
			return nil, fmt.Errorf("failed to apply registry option: %w", err)
		}
	}
	switch len(r.hooks) {
	case 0:
		r.hook = monitoring.NoOpObservabilityHook{}
	case 1:
		r.hook = r.hooks[0]
	default:
		r.hook = monitoring.NewCompositeObservabilityHook(r.hooks...)
	}
	return r, nil
}

// Store returns the persistence collaborator.
func (r *Registry) Store() Store {
	return r.store
}

// RegisterModel registers the model of prototype (a struct or a pointer to
// one) under name. Definitions refer to models by that name.
func (r *Registry) RegisterModel(name string, prototype any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.resolved {
		return ErrRegistryFrozen
	}
	if name == "" {
		return fmt.Errorf("%w: model name is required", ErrInvalidConfiguration)
	}
	if prototype == nil {
		return fmt.Errorf("%w: model '%s': nil prototype", ErrInvalidModel, name)
	}
	if _, dup := r.models[name]; dup {
		return fmt.Errorf("%w: model '%s' is already registered", ErrInvalidConfiguration, name)
	}
	m, err := schema.Of(reflect.TypeOf(prototype))
	if err != nil {
		return fmt.Errorf("model '%s': %w", name, err)
	}
	r.models[name] = m
	r.logger.Debug("model registered", "model", name, "table", m.Table, "fields", len(m.Fields))
	return nil
}

// Register adds a serializer definition.
func (r *Registry) Register(def Definition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.resolved {
		return ErrRegistryFrozen
	}
	if err := def.Validate(); err != nil {
		return err
	}
	if _, dup := r.defs[def.Name]; dup {
		return fmt.Errorf("%w: serializer '%s' is already registered", ErrInvalidConfiguration, def.Name)
	}

	related := make(map[string]string, len(def.Related))
	for field, name := range def.Related {
		related[field] = name
	}
	def.Related = related
	def.PublishFields = append([]string(nil), def.PublishFields...)
	def.UpdateFields = append([]string(nil), def.UpdateFields...)

	r.defs[def.Name] = def
	r.order = append(r.order, def.Name)
	r.logger.Debug("serializer registered", "serializer", def.Name, "model", def.Model)
	return nil
}

// RegisterAll validates and registers every definition of defs.
func (r *Registry) RegisterAll(defs Definitions) error {
	if err := defs.Validate(); err != nil {
		return err
	}
	var errs errsx.Map
	for _, name := range defs.Names() {
		def := defs.Serializers[name]
		def.Name = name
		if err := r.Register(def); err != nil {
			errs.Set(name, err)
		}
	}
	if len(errs) > 0 {
		return errs.AsError()
	}
	return nil
}

// Resolve builds every serializer. It runs once: later calls return the first
// outcome, and the registry accepts no more models or definitions.
func (r *Registry) Resolve() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolveLocked()
}

// Serializer returns the serializer registered under name, resolving the
// registry first if needed.
func (r *Registry) Serializer(name string) (*Serializer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.resolveLocked(); err != nil {
		return nil, err
	}
	s, ok := r.serializers[name]
	if !ok {
		return nil, NewUnknownSerializerError(name)
	}
	return s, nil
}

// Prototypes returns a pointer to a zero instance of every registered model,
// sorted by model name, for store migrations.
func (r *Registry) Prototypes() []any {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]any, 0, len(names))
	for _, name := range names {
		out = append(out, r.models[name].New().Interface())
	}
	return out
}

// lookup returns a resolved serializer. Only called once resolution succeeded,
// when the serializer map is no longer written.
func (r *Registry) lookup(name string) *Serializer {
	return r.serializers[name]
}

func (r *Registry) resolveLocked() error {
	if r.resolved {
		return r.err
	}
	r.resolved = true

	serializers, err := r.resolve()
	if err != nil {
		r.err = err
		r.logger.Error("serializer resolution failed", "error", err)
		return err
	}
	r.serializers = serializers
	r.logger.Debug("serializers resolved", "count", len(serializers))
	return nil
}

func (r *Registry) resolve() (map[string]*Serializer, error) {
	var errs errsx.Map
	serializers := make(map[string]*Serializer, len(r.order))
	for _, name := range r.order {
		m, opts, err := r.resolveDefinition(r.defs[name])
		if err != nil {
			errs.Set(fmt.Sprintf("serializer '%s'", name), err)
			continue
		}
		serializers[name] = &Serializer{registry: r, opts: opts, model: m}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfiguration, errs.AsError())
	}
	return serializers, nil
}

func (r *Registry) resolveDefinition(def Definition) (*schema.Model, *Opts, error) {
	m, ok := r.models[def.Model]
	if !ok {
		return nil, nil, NewUnknownModelError(def.Model)
	}
	if err := m.Validate(); err != nil {
		return nil, nil, err
	}

	var errs errsx.Map
	bindings := make(map[string]Binding, len(def.Related))
	for _, field := range def.relatedFields() {
		key := "related." + field
		name := def.Related[field]
		f, ok := m.Field(field)
		if !ok {
			errs.Set(key, fmt.Errorf("%w: '%s' on model '%s'", ErrUnknownField, field, def.Model))
			continue
		}
		if !f.IsRelation() {
			errs.Set(key, fmt.Errorf("%w: '%s' is a scalar field and cannot bind a serializer", ErrInvalidConfiguration, field))
			continue
		}
		nested, ok := r.defs[name]
		if !ok {
			errs.Set(key, NewUnknownSerializerError(name))
			continue
		}
		// An unknown nested model is reported by the nested definition itself.
		if target, ok := r.models[nested.Model]; ok && target.Type != f.Target {
			errs.Set(key, fmt.Errorf("%w: serializer '%s' converts %s but '%s' refers to %s",
				ErrInvalidConfiguration, name, target.Type, field, f.Target))
			continue
		}
		bindings[field] = Binding{Field: field, Kind: f.Relation, Serializer: name}
	}

	check := func(list string, fields []string) {
		for _, field := range fields {
			f, ok := m.Field(field)
			if !ok {
				errs.Set(list+"."+field, fmt.Errorf("%w: '%s' on model '%s'", ErrUnknownField, field, def.Model))
				continue
			}
			if _, bound := def.Related[field]; f.IsRelation() && !bound {
				errs.Set(list+"."+field, NewMissingBindingError(def.Name, field))
			}
		}
	}
	check("publish_fields", def.PublishFields)
	check("update_fields", def.UpdateFields)

	if len(errs) > 0 {
		return nil, nil, errs.AsError()
	}
	return m, newOpts(def, bindings), nil
}
