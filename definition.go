package serx

import (
	"fmt"
	"sort"

	"github.com/hengadev/errsx"
)

// Definition is the declarative configuration of one serializer.
//
// PublishFields lists, in order, the fields emitted by Serialize. UpdateFields
// lists the fields honored by Save and Update. Related binds each relation
// field to the name of the serializer converting its values.
type Definition struct {
	Name          string            `yaml:"-"`
	Model         string            `yaml:"model"`
	PublishFields []string          `yaml:"publish_fields"`
	UpdateFields  []string          `yaml:"update_fields"`
	Related       map[string]string `yaml:"related,omitempty"`
}

// Validate runs the checks that need no model: names are set and fields are
// listed once. Model-dependent checks run when a Registry resolves.
func (d Definition) Validate() error {
	var errs errsx.Map
	if d.Name == "" {
		errs.Set("name", "serializer name is required")
	}
	if d.Model == "" {
		errs.Set("model", "model name is required")
	}
	if err := checkFieldList(d.PublishFields); err != nil {
		errs.Set("publish_fields", err)
	}
	if err := checkFieldList(d.UpdateFields); err != nil {
		errs.Set("update_fields", err)
	}
	for _, field := range d.relatedFields() {
		if field == "" {
			errs.Set("related", "empty relation field name")
			continue
		}
		if d.Related[field] == "" {
			errs.Set(fmt.Sprintf("related.%s", field), "nested serializer name is required")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: serializer '%s': %w", ErrInvalidConfiguration, d.Name, errs.AsError())
	}
	return nil
}

// relatedFields returns the keys of Related in sorted order.
func (d Definition) relatedFields() []string {
	fields := make([]string, 0, len(d.Related))
	for field := range d.Related {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

func checkFieldList(fields []string) error {
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if f == "" {
			return fmt.Errorf("empty field name")
		}
		if _, dup := seen[f]; dup {
			return fmt.Errorf("field '%s' is listed twice", f)
		}
		seen[f] = struct{}{}
	}
	return nil
}
