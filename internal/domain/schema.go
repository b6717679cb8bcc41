package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FieldType is a primitive argument type understood by the validator.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeInteger FieldType = "integer"
	TypeBoolean FieldType = "boolean"
	TypeEnum    FieldType = "enum"
)

// Field declares one tool argument.
type Field struct {
	Name        string
	Type        FieldType
	Required    bool
	Allowed     []string    // enum members, case-sensitive
	Default     interface{} // applied when an optional field is absent
	Min         *int        // inclusive lower bound for integers
	Description string
}

// Schema is the ordered argument declaration of a tool.
type Schema struct {
	Fields []Field
}

// Validate checks args against the schema and returns a new map holding the
// declared fields coerced to their declared types, with defaults applied.
// Fields are checked in declaration order and the first failure is returned
// as a *ValidationError. Arguments not declared in the schema are ignored.
func (s Schema) Validate(args map[string]interface{}) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(s.Fields))

	for _, f := range s.Fields {
		raw, present := args[f.Name]
		if raw == nil {
			present = false
		}
		if present && f.Type != TypeBoolean && f.Type != TypeInteger {
			if str, ok := raw.(string); ok && strings.TrimSpace(str) == "" {
				present = false
			}
		}

		if !present {
			if f.Required {
				return nil, &ValidationError{Field: f.Name, Reason: ReasonMissing}
			}
			if f.Default != nil {
				out[f.Name] = f.Default
			}
			continue
		}

		value, err := f.coerce(raw)
		if err != nil {
			return nil, err
		}
		out[f.Name] = value
	}

	return out, nil
}

// coerce converts raw to the field's declared type.
func (f Field) coerce(raw interface{}) (interface{}, error) {
	mismatch := func() error {
		return &ValidationError{
			Field:    f.Name,
			Reason:   ReasonTypeMismatch,
			Expected: string(f.Type),
			Actual:   jsonTypeName(raw),
		}
	}

	switch f.Type {
	case TypeString:
		s, ok := raw.(string)
		if !ok {
			return nil, mismatch()
		}
		return s, nil

	case TypeEnum:
		s, ok := raw.(string)
		if !ok {
			return nil, mismatch()
		}
		for _, allowed := range f.Allowed {
			if s == allowed {
				return s, nil
			}
		}
		return nil, &ValidationError{
			Field:   f.Name,
			Reason:  ReasonInvalidEnum,
			Actual:  s,
			Allowed: append([]string(nil), f.Allowed...),
		}

	case TypeInteger:
		n, ok := toInt(raw)
		if !ok {
			return nil, mismatch()
		}
		if f.Min != nil && n < *f.Min {
			return nil, &ValidationError{
				Field:    f.Name,
				Reason:   ReasonOutOfRange,
				Expected: fmt.Sprintf(">= %d", *f.Min),
				Actual:   strconv.Itoa(n),
			}
		}
		return n, nil

	case TypeBoolean:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case string:
			t := strings.TrimSpace(v)
			if strings.EqualFold(t, "true") {
				return true, nil
			}
			if strings.EqualFold(t, "false") {
				return false, nil
			}
		}
		return nil, mismatch()
	}

	return nil, fmt.Errorf("schema field %q has unsupported type %q", f.Name, f.Type)
}

// toInt accepts integral JSON numbers, Go integer kinds and decimal strings.
func toInt(raw interface{}) (int, bool) {
	var n int64
	switch v := raw.(type) {
	case int:
		n = int64(v)
	case int32:
		n = int64(v)
	case int64:
		n = v
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) || v > math.MaxInt32 || v < math.MinInt32 {
			return 0, false
		}
		n = int64(v)
	case json.Number:
		parsed, err := v.Int64()
		if err != nil {
			return 0, false
		}
		n = parsed
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, false
		}
		n = parsed
	default:
		return 0, false
	}
	// Every input form shares the 32-bit range.
	if n > math.MaxInt32 || n < math.MinInt32 {
		return 0, false
	}
	return int(n), true
}

// jsonTypeName names the JSON type of a decoded value for error messages.
func jsonTypeName(v interface{}) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, float32, int, int32, int64, json.Number:
		return "number"
	case map[string]interface{}:
		return "object"
	case []interface{}:
		return "array"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// JSONSchema renders the declaration as an MCP inputSchema.
func (s Schema) JSONSchema() JSONSchema {
	props := make(map[string]interface{}, len(s.Fields))
	required := []string{}

	for _, f := range s.Fields {
		prop := map[string]interface{}{}
		switch f.Type {
		case TypeEnum:
			prop["type"] = "string"
			prop["enum"] = append([]string(nil), f.Allowed...)
		default:
			prop["type"] = string(f.Type)
		}
		if f.Description != "" {
			prop["description"] = f.Description
		}
		if f.Default != nil {
			prop["default"] = f.Default
		}
		if f.Min != nil {
			prop["minimum"] = *f.Min
		}
		props[f.Name] = prop

		if f.Required {
			required = append(required, f.Name)
		}
	}

	return JSONSchema{
		Type:       "object",
		Properties: props,
		Required:   required,
	}
}

// IntPtr returns a pointer to n, for Field.Min.
func IntPtr(n int) *int {
	return &n
}
