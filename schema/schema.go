// Package schema validates settings values against JSON Schema documents.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"slices"
	"sort"
	"strings"
)

// ErrViolation is wrapped by every validation failure.
var ErrViolation = errors.New("schema violation")

// Registry maps a root key to the schema its value must satisfy.
type Registry map[string]map[string]any

// LoadRegistry reads a registry from a JSON file of the form
// {"<root key>": {<schema>}, ...}.
func LoadRegistry(path string) (Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg Registry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("schema: parse %s: %w", path, err)
	}
	return reg, nil
}

// Check validates value against the schema registered for key. Keys
// without a schema always pass.
func (r Registry) Check(key string, value any) error {
	s, ok := r[key]
	if !ok {
		return nil
	}
	return Validate(s, value, key)
}

// Validate checks a value against a JSON Schema (draft-07 subset).
// root names the value in error messages.
//
// Supported JSON Schema keywords:
//   - type (string or list of: string, number, integer, boolean, object, array, null)
//   - enum
//   - properties, required, additionalProperties
//   - items, minItems, maxItems
//   - minimum, maximum, exclusiveMinimum, exclusiveMaximum
//   - minLength, maxLength
func Validate(schema map[string]any, value any, root string) error {
	if schema == nil {
		return nil
	}
	if root == "" {
		root = "$"
	}
	if msg := check(schema, value, root); msg != "" {
		return fmt.Errorf("%w: %s", ErrViolation, msg)
	}
	return nil
}

func check(schema map[string]any, value any, path string) string {
	if msg := checkType(schema["type"], value, path); msg != "" {
		return msg
	}
	if allowed, ok := schema["enum"].([]any); ok {
		if !slices.ContainsFunc(allowed, func(a any) bool { return reflect.DeepEqual(a, value) }) {
			return fmt.Sprintf("%s: value not in enum %v", path, allowed)
		}
	}

	switch v := value.(type) {
	case map[string]any:
		return checkObject(schema, v, path)
	case []any:
		return checkArray(schema, v, path)
	case string:
		return checkBounds(schema, "minLength", "maxLength", float64(len(v)), path, "string length")
	}
	if n, ok := number(value); ok {
		if msg := checkBounds(schema, "minimum", "maximum", n, path, "value"); msg != "" {
			return msg
		}
		if lim, ok := number(schema["exclusiveMinimum"]); ok && n <= lim {
			return fmt.Sprintf("%s: %v is not greater than exclusiveMinimum %v", path, n, lim)
		}
		if lim, ok := number(schema["exclusiveMaximum"]); ok && n >= lim {
			return fmt.Sprintf("%s: %v is not less than exclusiveMaximum %v", path, n, lim)
		}
	}
	return ""
}

func checkType(want any, value any, path string) string {
	var allowed []string
	switch t := want.(type) {
	case string:
		allowed = []string{t}
	case []any:
		for _, e := range t {
			if s, ok := e.(string); ok {
				allowed = append(allowed, s)
			}
		}
	default:
		return ""
	}
	actual := jsonType(value)
	for _, a := range allowed {
		if a == actual || (a == "number" && actual == "integer") {
			return ""
		}
	}
	return fmt.Sprintf("%s: expected type %s, got %q", path, strings.Join(allowed, "|"), actual)
}

func jsonType(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case int, int64:
		return "integer"
	case float64:
		if x == float64(int64(x)) {
			return "integer"
		}
		return "number"
	case json.Number:
		if _, err := x.Int64(); err == nil {
			return "integer"
		}
		return "number"
	default:
		return reflect.TypeOf(v).String()
	}
}

func checkObject(schema map[string]any, obj map[string]any, path string) string {
	if req, ok := schema["required"].([]any); ok {
		for _, r := range req {
			if field, ok := r.(string); ok {
				if _, exists := obj[field]; !exists {
					return fmt.Sprintf("%s: missing required field %q", path, field)
				}
			}
		}
	}

	props, _ := schema["properties"].(map[string]any)
	fields := make([]string, 0, len(obj))
	for field := range obj {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var extra []string
	for _, field := range fields {
		ps, defined := props[field].(map[string]any)
		if !defined {
			if _, listed := props[field]; !listed {
				extra = append(extra, field)
			}
			continue
		}
		if msg := check(ps, obj[field], path+"."+field); msg != "" {
			return msg
		}
	}

	switch ap := schema["additionalProperties"].(type) {
	case bool:
		if !ap && len(extra) > 0 {
			return fmt.Sprintf("%s: additional properties not allowed: %s", path, strings.Join(extra, ", "))
		}
	case map[string]any:
		for _, field := range extra {
			if msg := check(ap, obj[field], path+"."+field); msg != "" {
				return msg
			}
		}
	}
	return ""
}

func checkArray(schema map[string]any, arr []any, path string) string {
	if msg := checkBounds(schema, "minItems", "maxItems", float64(len(arr)), path, "array length"); msg != "" {
		return msg
	}
	if itemSchema, ok := schema["items"].(map[string]any); ok {
		for i, elem := range arr {
			if msg := check(itemSchema, elem, fmt.Sprintf("%s[%d]", path, i)); msg != "" {
				return msg
			}
		}
	}
	return ""
}

func checkBounds(schema map[string]any, minKey, maxKey string, n float64, path, what string) string {
	if lim, ok := number(schema[minKey]); ok && n < lim {
		return fmt.Sprintf("%s: %s %v is less than %s %v", path, what, n, minKey, lim)
	}
	if lim, ok := number(schema[maxKey]); ok && n > lim {
		return fmt.Sprintf("%s: %s %v is greater than %s %v", path, what, n, maxKey, lim)
	}
	return ""
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
