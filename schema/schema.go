package schema

import (
	"reflect"
	"strings"
)

// Schema type names.
const (
	typeObject  = "object"
	typeArray   = "array"
	typeString  = "string"
	typeInteger = "integer"
	typeNumber  = "number"
	typeBoolean = "boolean"
)

// Schema represents a JSON Schema describing a tool's arguments.
type Schema struct {
	Type        string             `json:"type,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Description string             `json:"description,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Enum        []any              `json:"enum,omitempty"`
}

// Generate creates a JSON Schema from a Go value.
func Generate(v any) (*Schema, error) {
	return FromType(reflect.TypeOf(v))
}

// FromType creates a JSON Schema from a reflect.Type.
func FromType(t reflect.Type) (*Schema, error) {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	switch t.Kind() {
	case reflect.Struct:
		return structSchema(t)
	case reflect.String:
		return &Schema{Type: typeString}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &Schema{Type: typeInteger}, nil
	case reflect.Float32, reflect.Float64:
		return &Schema{Type: typeNumber}, nil
	case reflect.Bool:
		return &Schema{Type: typeBoolean}, nil
	case reflect.Slice, reflect.Array:
		items, err := FromType(t.Elem())
		if err != nil {
			return nil, err
		}
		return &Schema{Type: typeArray, Items: items}, nil
	case reflect.Map:
		return &Schema{Type: typeObject}, nil
	default:
		return &Schema{}, nil
	}
}

func structSchema(t reflect.Type) (*Schema, error) {
	s := &Schema{
		Type:       typeObject,
		Properties: make(map[string]*Schema),
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		jsonTag := field.Tag.Get("json")
		if jsonTag == "-" {
			continue
		}

		name := field.Name
		if jsonTag != "" {
			if first := strings.Split(jsonTag, ",")[0]; first != "" {
				name = first
			}
		}

		fieldSchema, err := FromType(field.Type)
		if err != nil {
			return nil, err
		}

		applySchemaTag(field.Tag.Get("jsonschema"), name, fieldSchema, s)
		s.Properties[name] = fieldSchema
	}

	return s, nil
}

// applySchemaTag interprets the comma-separated jsonschema struct tag.
// Recognized directives: "required" and "description=...".
func applySchemaTag(tag, fieldName string, field *Schema, parent *Schema) {
	if tag == "" {
		return
	}

	for _, part := range strings.Split(tag, ",") {
		part = strings.TrimSpace(part)
		switch {
		case part == "required":
			parent.Required = append(parent.Required, fieldName)
		case strings.HasPrefix(part, "description="):
			field.Description = strings.TrimPrefix(part, "description=")
		}
	}
}
