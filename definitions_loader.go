package serx

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/hengadev/errsx"
	"gopkg.in/yaml.v3"
)

// Definitions is the content of a serializer definitions file.
//
//	version: "1"
//	serializers:
//	  foo:
//	    model: foo
//	    publish_fields: [test_field_a, test_field_b, bars]
//	    update_fields: [test_field_a, test_field_b, bars]
//	    related: {bars: bar}
type Definitions struct {
	Version     string                `yaml:"version"`
	Serializers map[string]Definition `yaml:"serializers"`
}

// LoadDefinitions reads and validates the definitions file at path.
func LoadDefinitions(path string) (Definitions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Definitions{}, fmt.Errorf("failed to read definitions file: %w", err)
	}
	defs, err := ParseDefinitions(data)
	if err != nil {
		return Definitions{}, fmt.Errorf("%s: %w", path, err)
	}
	return defs, nil
}

// ParseDefinitions decodes YAML definitions, rejecting unknown keys, and validates them.
func ParseDefinitions(data []byte) (Definitions, error) {
	var defs Definitions
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&defs); err != nil {
		if errors.Is(err, io.EOF) {
			return Definitions{}, fmt.Errorf("%w: empty definitions document", ErrInvalidConfiguration)
		}
		return Definitions{}, fmt.Errorf("%w: failed to parse definitions: %w", ErrInvalidConfiguration, err)
	}
	for name, def := range defs.Serializers {
		def.Name = name
		defs.Serializers[name] = def
	}
	if err := defs.Validate(); err != nil {
		return Definitions{}, err
	}
	return defs, nil
}

// Validate checks the file version, every definition, and that bindings name
// serializers declared in the same file.
func (d Definitions) Validate() error {
	var errs errsx.Map
	if d.Version != DefinitionsVersion {
		errs.Set("version", fmt.Sprintf("unsupported version '%s', expected '%s'", d.Version, DefinitionsVersion))
	}
	if len(d.Serializers) == 0 {
		errs.Set("serializers", "no serializer defined")
	}
	for _, name := range d.Names() {
		def := d.Serializers[name]
		if def.Name == "" {
			def.Name = name
		}
		if def.Name != name {
			errs.Set(name, fmt.Sprintf("definition is named '%s'", def.Name))
			continue
		}
		if err := def.Validate(); err != nil {
			errs.Set(name, err)
			continue
		}
		for _, field := range def.relatedFields() {
			if _, ok := d.Serializers[def.Related[field]]; !ok {
				errs.Set(fmt.Sprintf("%s.related.%s", name, field), NewUnknownSerializerError(def.Related[field]))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfiguration, errs.AsError())
	}
	return nil
}

// Names returns the serializer names in sorted order.
func (d Definitions) Names() []string {
	names := make([]string, 0, len(d.Serializers))
	for name := range d.Serializers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Marshal encodes the definitions as YAML.
func (d Definitions) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return nil, fmt.Errorf("failed to marshal definitions: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// StarterDefinitions returns a small definitions set covering the three
// relation kinds: a reverse collection, a forward reference and a one-to-one.
func StarterDefinitions() Definitions {
	defs := Definitions{
		Version: DefinitionsVersion,
		Serializers: map[string]Definition{
			"foo": {
				Model:         "foo",
				PublishFields: []string{"test_field_a", "test_field_b", "bars"},
				UpdateFields:  []string{"test_field_a", "test_field_b", "bars"},
				Related:       map[string]string{"bars": "bar"},
			},
			"bar": {
				Model:         "bar",
				PublishFields: []string{"number", "foo", "baz"},
				UpdateFields:  []string{"number", "foo"},
				Related:       map[string]string{"foo": "foo", "baz": "baz"},
			},
			"baz": {
				Model:         "baz",
				PublishFields: []string{"name", "bar"},
				UpdateFields:  []string{"name", "bar"},
				Related:       map[string]string{"bar": "bar"},
			},
		},
	}
	for name, def := range defs.Serializers {
		def.Name = name
		defs.Serializers[name] = def
	}
	return defs
}
