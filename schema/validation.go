package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// ValidationError describes a single schema violation.
type ValidationError struct {
	Path    string // JSON path to the invalid field, e.g. "filters.limit"
	Message string
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []*ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString("validation failed:")
	for _, err := range e {
		sb.WriteString("\n  - ")
		sb.WriteString(err.Error())
	}
	return sb.String()
}

// Validate checks raw JSON data against the schema. It returns nil when the
// data satisfies the schema, or ValidationErrors describing every violation.
func (s *Schema) Validate(data json.RawMessage) error {
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return &ValidationError{Message: fmt.Sprintf("invalid JSON: %s", err)}
	}
	return s.ValidateValue(value)
}

// ValidateValue checks a decoded Go value against the schema.
func (s *Schema) ValidateValue(value any) error {
	var errs ValidationErrors
	s.check("", value, &errs)
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (s *Schema) check(path string, value any, errs *ValidationErrors) {
	if value == nil {
		// Null is tolerated for optional fields; required presence is
		// enforced by the enclosing object check.
		return
	}

	switch s.Type {
	case typeObject:
		s.checkObject(path, value, errs)
	case typeArray:
		s.checkArray(path, value, errs)
	case typeString:
		if _, ok := value.(string); !ok {
			fail(errs, path, "expected string, got %T", value)
			return
		}
		s.checkEnum(path, value, errs)
	case typeInteger:
		n, ok := value.(float64)
		if !ok {
			fail(errs, path, "expected integer, got %T", value)
			return
		}
		if n != math.Trunc(n) {
			fail(errs, path, "expected integer, got %v", n)
		}
	case typeNumber:
		if _, ok := value.(float64); !ok {
			fail(errs, path, "expected number, got %T", value)
		}
	case typeBoolean:
		if _, ok := value.(bool); !ok {
			fail(errs, path, "expected boolean, got %T", value)
		}
	}
}

func (s *Schema) checkObject(path string, value any, errs *ValidationErrors) {
	obj, ok := value.(map[string]any)
	if !ok {
		fail(errs, path, "expected object, got %T", value)
		return
	}

	for _, req := range s.Required {
		if _, exists := obj[req]; !exists {
			fail(errs, joinPath(path, req), "required field missing")
		}
	}

	for name, fieldSchema := range s.Properties {
		fieldValue, exists := obj[name]
		if !exists {
			continue
		}
		fieldSchema.check(joinPath(path, name), fieldValue, errs)
	}
}

func (s *Schema) checkArray(path string, value any, errs *ValidationErrors) {
	arr, ok := value.([]any)
	if !ok {
		fail(errs, path, "expected array, got %T", value)
		return
	}

	if s.Items == nil {
		return
	}
	for i, item := range arr {
		s.Items.check(fmt.Sprintf("%s[%d]", path, i), item, errs)
	}
}

func (s *Schema) checkEnum(path string, value any, errs *ValidationErrors) {
	if len(s.Enum) == 0 {
		return
	}
	for _, allowed := range s.Enum {
		if value == allowed {
			return
		}
	}
	fail(errs, path, "value %v not in enum", value)
}

func fail(errs *ValidationErrors, path, format string, args ...any) {
	*errs = append(*errs, &ValidationError{
		Path:    path,
		Message: fmt.Sprintf(format, args...),
	})
}

func joinPath(base, field string) string {
	if base == "" {
		return field
	}
	return base + "." + field
}
