// Package structuredoutput derives JSON schemas from Go struct types so a
// model can be asked for responses that unmarshal back into them.
package structuredoutput

import (
	"reflect"
	"strings"

	"github.com/tagus/agentlab/pkg/interfaces"
)

// NewResponseFormat builds a ResponseFormat whose schema mirrors the given
// struct type. Property names follow the json tag, `description` tags become
// property descriptions, and fields without omitempty are required.
func NewResponseFormat(v interface{}) *interfaces.ResponseFormat {
	t := reflect.TypeOf(v)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	return &interfaces.ResponseFormat{
		Type:   interfaces.ResponseFormatJSON,
		Name:   t.Name(),
		Schema: interfaces.JSONSchema(objectSchema(t)),
	}
}

func objectSchema(t reflect.Type) map[string]any {
	properties := make(map[string]any, t.NumField())
	required := []string{}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		name, optional := propertyName(field)

		schema := typeSchema(field.Type)
		if description := field.Tag.Get("description"); description != "" {
			schema["description"] = description
		}

		properties[name] = schema
		if !optional {
			required = append(required, name)
		}
	}

	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

// propertyName resolves the JSON name of a field and whether the field is
// optional, meaning it carries omitempty.
func propertyName(field reflect.StructField) (string, bool) {
	tag := field.Tag.Get("json")
	name := strings.Split(tag, ",")[0]
	if name == "" {
		name = field.Name
	}
	return name, strings.Contains(tag, "omitempty")
}

// typeSchema maps a Go type to its JSON schema fragment. Pointers describe
// their element type; nested structs, slices, and maps recurse.
func typeSchema(t reflect.Type) map[string]any {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	switch t.Kind() {
	case reflect.Struct:
		return objectSchema(t)
	case reflect.Slice, reflect.Array:
		return map[string]any{
			"type":  "array",
			"items": typeSchema(t.Elem()),
		}
	case reflect.Map:
		return map[string]any{
			"type":                 "object",
			"additionalProperties": typeSchema(t.Elem()),
		}
	default:
		return map[string]any{"type": scalarType(t.Kind())}
	}
}

func scalarType(kind reflect.Kind) string {
	switch kind {
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Interface:
		return "object"
	default:
		return "string"
	}
}
