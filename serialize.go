package serx

import (
	"context"
	"reflect"
)

// Serialize converts instance, a pointer to the serializer's model, into Data
// holding exactly the publish fields that can be emitted.
//
// Scalars are copied as is. A forward or one-to-one relation becomes a nested
// Data, or nil when nothing is related. A reverse collection becomes a []Data,
// possibly empty. Instances already embedded higher up in the same call are
// omitted: the key is left out for a single relation and the element is
// skipped in a collection. Serialize only reads from the store.
func (s *Serializer) Serialize(ctx context.Context, instance any) (Data, error) {
	c := s.registry.begin(ctx, OperationSerialize, s)
	data, err := s.serializeRoot(c, instance)
	c.end(err)
	return data, err
}

func (s *Serializer) serializeRoot(c *call, instance any) (Data, error) {
	v, err := s.instance(instance)
	if err != nil {
		return nil, err
	}
	g := make(guard)
	g.visit(s.model, v)
	return s.serialize(c, g, instance, v)
}

func (s *Serializer) serialize(c *call, g guard, instance any, v reflect.Value) (Data, error) {
	out := make(Data, len(s.opts.publish))
	for _, name := range s.opts.publish {
		f, _ := s.model.Field(name)
		if !f.IsRelation() {
			out[name] = f.Get(v)
			continue
		}

		b, _ := s.opts.Binding(name)
		nested := s.registry.lookup(b.Serializer)
		related, err := s.registry.related(c.ctx, instance, b)
		if err != nil {
			return nil, err
		}

		switch b.Kind {
		case Reverse:
			items := make([]Data, 0, len(related))
			for _, item := range related {
				data, ok, err := nested.embed(c, g, b, item)
				if err != nil {
					return nil, err
				}
				if ok {
					items = append(items, data)
				}
			}
			out[name] = items
		case Forward, OneToOne:
			if len(related) == 0 {
				out[name] = nil
				continue
			}
			data, ok, err := nested.embed(c, g, b, related[0])
			if err != nil {
				return nil, err
			}
			if ok {
				out[name] = data
			}
		}
	}
	return out, nil
}

// embed serializes a related instance unless the guard already holds it.
func (s *Serializer) embed(c *call, g guard, b Binding, item any) (Data, bool, error) {
	v, err := s.instance(item)
	if err != nil {
		return nil, false, err
	}
	if !g.visit(s.model, v) {
		c.relation(b.Field, b.Kind, true)
		return nil, false, nil
	}
	c.relation(b.Field, b.Kind, false)
	data, err := s.serialize(c, g, item, v)
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}
