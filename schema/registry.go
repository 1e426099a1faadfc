// Package schema provides envelope payload validation, schema version
// compatibility, and migration between payload schema versions.
package schema

import (
	"fmt"
	"sync"

	"github.com/mathonsunday/agentic-ui-lab-sub001/errors"
)

// FieldType constrains a descriptor field.
type FieldType string

const (
	FieldString FieldType = "string"
	FieldNumber FieldType = "number"
	FieldBool   FieldType = "bool"
	FieldObject FieldType = "object"
	FieldArray  FieldType = "array"
	FieldAny    FieldType = "any"
)

// Field describes one payload field. Object fields may carry a nested
// descriptor for their own shape.
type Field struct {
	Type   FieldType
	Nested *Descriptor
}

// Descriptor is a declarative payload shape: required field names plus
// per-field type constraints. It is used for envelope validation at
// ingress. Validation is lenient: unknown fields are allowed, supporting
// forward compatibility and schema evolution.
type Descriptor struct {
	Required []string
	Fields   map[string]Field
}

// ValidationError describes one failed constraint.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"` // required | type
}

// Registry maintains a name-to-descriptor mapping.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]Descriptor
}

// NewRegistry creates an empty schema registry.
func NewRegistry() *Registry {
	return &Registry{schemas: make(map[string]Descriptor)}
}

// Register stores a descriptor under name, replacing any previous entry.
func (r *Registry) Register(name string, d Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemas[name] = d
}

// Get retrieves a descriptor by name.
func (r *Registry) Get(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.schemas[name]
	return d, ok
}

// Names returns all registered schema names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		names = append(names, name)
	}
	return names
}

// Validate checks data against the named descriptor and returns all
// constraint violations found. An unregistered name is an error.
func (r *Registry) Validate(name string, data map[string]any) ([]ValidationError, error) {
	d, ok := r.Get(name)
	if !ok {
		return nil, errors.WrapInvalid(
			fmt.Errorf("schema %q not registered", name),
			"Registry", "Validate", "schema lookup")
	}
	return validate(d, data), nil
}

func validate(d Descriptor, data map[string]any) []ValidationError {
	var errs []ValidationError

	for _, required := range d.Required {
		if _, exists := data[required]; !exists {
			errs = append(errs, ValidationError{
				Field:   required,
				Message: fmt.Sprintf("field %q is required", required),
				Code:    "required",
			})
		}
	}

	for name, value := range data {
		field, known := d.Fields[name]
		if !known {
			// Unknown fields are allowed
			continue
		}
		if verr := checkType(name, value, field); verr != nil {
			errs = append(errs, *verr)
			continue
		}
		if field.Type == FieldObject && field.Nested != nil {
			if nested, ok := value.(map[string]any); ok {
				for _, ne := range validate(*field.Nested, nested) {
					ne.Field = name + "." + ne.Field
					errs = append(errs, ne)
				}
			}
		}
	}

	return errs
}

func checkType(name string, value any, field Field) *ValidationError {
	if value == nil || field.Type == FieldAny {
		return nil
	}

	ok := false
	switch field.Type {
	case FieldString:
		_, ok = value.(string)
	case FieldNumber:
		switch value.(type) {
		case float64, float32, int, int32, int64:
			ok = true
		}
	case FieldBool:
		_, ok = value.(bool)
	case FieldObject:
		_, ok = value.(map[string]any)
	case FieldArray:
		_, ok = value.([]any)
	}

	if !ok {
		return &ValidationError{
			Field:   name,
			Message: fmt.Sprintf("field %q must be %s", name, field.Type),
			Code:    "type",
		}
	}
	return nil
}
