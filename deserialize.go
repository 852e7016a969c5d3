package serx

import (
	"context"
)

// Save deserializes data into a new instance of the model, persists it with
// its related instances and returns it.
//
// Only keys listed in the update fields are read, other keys are ignored and
// absent keys are left untouched. Values of forward and one-to-one relations
// must be mappings, values of reverse collections sequences of mappings; the
// whole payload is checked before anything is written, and a wrong shape
// fails with ErrShapeMismatch naming its path (e.g. "bars[1].foo").
//
// Write order: related instances held by the model (fk, one_to_one) first,
// then the instance itself, then the instances pointing back at it (reverse
// collections, inverse one-to-ones), each group in update field order. A nil
// value clears a single relation. In the mapping of an instance pointing back,
// the key of the back-reference is ignored: it always points at the instance
// being saved.
func (s *Serializer) Save(ctx context.Context, data Data) (any, error) {
	c := s.registry.begin(ctx, OperationSave, s)
	instance := s.New()
	err := s.deserializeRoot(c, instance, data)
	c.end(err)
	if err != nil {
		return nil, err
	}
	return instance, nil
}

// Update deserializes data into instance, an existing pointer to the model,
// and persists it the way Save does. Nested mappings always build new related
// instances, unless they carry the primary key of an existing one in the
// nested serializer's update fields. Given reverse children are added to the
// stored ones, and the collection of instance is reloaded to hold them all.
func (s *Serializer) Update(ctx context.Context, instance any, data Data) (any, error) {
	c := s.registry.begin(ctx, OperationUpdate, s)
	err := s.deserializeRoot(c, instance, data)
	c.end(err)
	if err != nil {
		return nil, err
	}
	return instance, nil
}

func (s *Serializer) deserializeRoot(c *call, instance any, data Data) error {
	if _, err := s.instance(instance); err != nil {
		return err
	}
	if err := s.checkShape(data, ""); err != nil {
		return err
	}
	return s.deserialize(c, instance, data, "")
}

// checkShape walks the relation values of data that the update fields honor.
func (s *Serializer) checkShape(data Data, path string) error {
	for _, name := range s.opts.update {
		raw, ok := data[name]
		if !ok || raw == nil {
			continue
		}
		b, ok := s.opts.Binding(name)
		if !ok {
			continue
		}
		nested := s.registry.lookup(b.Serializer)
		p := fieldPath(path, name)

		if b.Kind == Reverse {
			items, err := asSequence(p, raw)
			if err != nil {
				return err
			}
			for i, item := range items {
				ip := indexPath(p, i)
				m, err := asMapping(ip, item)
				if err != nil {
					return err
				}
				if err := nested.checkShape(m, ip); err != nil {
					return err
				}
			}
			continue
		}

		m, err := asMapping(p, raw)
		if err != nil {
			return err
		}
		if err := nested.checkShape(m, p); err != nil {
			return err
		}
	}
	return nil
}

func (s *Serializer) deserialize(c *call, instance any, data Data, path string) error {
	v, err := s.instance(instance)
	if err != nil {
		return err
	}
	st := s.registry.store

	for _, name := range s.opts.update {
		raw, ok := data[name]
		if !ok {
			continue
		}
		f, _ := s.model.Field(name)
		if f.IsRelation() {
			continue
		}
		if err := f.Set(v, raw); err != nil {
			return NewFieldConversionError(fieldPath(path, name), err)
		}
	}

	for _, name := range s.opts.update {
		raw, ok := data[name]
		f, _ := s.model.Field(name)
		if !ok || !f.Owning() {
			continue
		}
		b, _ := s.opts.Binding(name)
		c.relation(name, b.Kind, false)

		var child any
		if raw != nil {
			child, err = s.registry.lookup(b.Serializer).build(c, raw, fieldPath(path, name))
			if err != nil {
				return err
			}
		}
		if err := st.SetRelated(c.ctx, instance, name, child); err != nil {
			return err
		}
	}

	if err := st.CreateOrUpdate(c.ctx, instance); err != nil {
		return err
	}
	c.persisted(s.model.Table, s.model.ID(v))

	for _, name := range s.opts.update {
		raw, ok := data[name]
		f, _ := s.model.Field(name)
		if !ok || !f.Inverse {
			continue
		}
		b, _ := s.opts.Binding(name)
		nested := s.registry.lookup(b.Serializer)
		p := fieldPath(path, name)
		c.relation(name, b.Kind, false)

		switch b.Kind {
		case Reverse:
			if raw == nil {
				continue
			}
			items, err := asSequence(p, raw)
			if err != nil {
				return err
			}
			children := make([]any, 0, len(items))
			for i, item := range items {
				ip := indexPath(p, i)
				m, err := asMapping(ip, item)
				if err != nil {
					return err
				}
				child, err := nested.build(c, without(m, f.Remote), ip)
				if err != nil {
					return err
				}
				children = append(children, child)
			}
			if err := st.SetRelated(c.ctx, instance, name, children); err != nil {
				return err
			}
			// Update keeps the children already stored.
			stored, err := st.GetRelated(c.ctx, instance, name, Reverse)
			if err != nil {
				return err
			}
			current := instanceList(v.FieldByIndex(f.Index).Interface())
			if err := f.Fill(v, nested.merge(instanceList(stored), current, children)); err != nil {
				return err
			}
		case OneToOne:
			var child any
			if raw != nil {
				m, err := asMapping(p, raw)
				if err != nil {
					return err
				}
				child, err = nested.build(c, without(m, f.Remote), p)
				if err != nil {
					return err
				}
			}
			if err := st.SetRelated(c.ctx, instance, name, child); err != nil {
				return err
			}
			if err := f.Link(v, child); err != nil {
				return err
			}
		}
	}
	return nil
}

// build deserializes a nested mapping into a new, persisted instance.
func (s *Serializer) build(c *call, raw any, path string) (any, error) {
	m, err := asMapping(path, raw)
	if err != nil {
		return nil, err
	}
	child := s.New()
	if err := s.deserialize(c, child, m, path); err != nil {
		return nil, err
	}
	return child, nil
}

// without returns m minus the field key. The back-reference of a child is
// always the instance being deserialized, never what the payload says.
func without(m Data, field string) Data {
	if _, ok := m[field]; !ok {
		return m
	}
	out := make(Data, len(m)-1)
	for k, v := range m {
		if k != field {
			out[k] = v
		}
	}
	return out
}

// merge swaps the stored instances for the in-memory ones sharing their
// primary key, keeping the store order. Later lists win.
func (s *Serializer) merge(stored []any, known ...[]any) []any {
	byID := make(map[int64]any)
	for _, list := range known {
		for _, item := range list {
			if v, err := s.instance(item); err == nil {
				byID[s.model.ID(v)] = item
			}
		}
	}
	out := make([]any, 0, len(stored))
	for _, item := range stored {
		v, err := s.instance(item)
		if err != nil {
			continue
		}
		if b, ok := byID[s.model.ID(v)]; ok {
			item = b
		}
		out = append(out, item)
	}
	return out
}
