// Package vectorstore holds pieces shared by the store backends.
package vectorstore

import (
	"fmt"
	"reflect"
	"strings"
)

// Comparison operators accepted by Cond.
const (
	OpEq       = "="
	OpNe       = "!="
	OpGt       = ">"
	OpGte      = ">="
	OpLt       = "<"
	OpLte      = "<="
	OpContains = "contains"
	OpIn       = "in"
)

// Cond is a non-equality filter condition. A plain value in a filter map
// means equality; wrap it in a Cond to compare with another operator.
type Cond struct {
	Op    string
	Value interface{}
}

// Matches reports whether the metadata satisfies every filter. Filter values
// are matched by equality unless they are a Cond. A field missing from the
// metadata never matches.
func Matches(metadata map[string]interface{}, filters map[string]interface{}) bool {
	for field, expected := range filters {
		actual, ok := metadata[field]
		if !ok {
			return false
		}

		cond, isCond := expected.(Cond)
		if !isCond {
			cond = Cond{Op: OpEq, Value: expected}
		}
		if !evaluate(actual, cond) {
			return false
		}
	}
	return true
}

func evaluate(actual interface{}, cond Cond) bool {
	switch cond.Op {
	case OpEq:
		return equal(actual, cond.Value)
	case OpNe:
		return !equal(actual, cond.Value)
	case OpGt:
		return compare(actual, cond.Value) > 0
	case OpGte:
		return compare(actual, cond.Value) >= 0
	case OpLt:
		return compare(actual, cond.Value) < 0
	case OpLte:
		return compare(actual, cond.Value) <= 0
	case OpContains:
		return strings.Contains(fmt.Sprint(actual), fmt.Sprint(cond.Value))
	case OpIn:
		return in(actual, cond.Value)
	default:
		return false
	}
}

// equal compares numbers by value regardless of their Go type, so a JSON
// float64 matches an int filter. Everything else falls back to string form.
func equal(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == b
	}
	if isNumeric(a) && isNumeric(b) {
		return toFloat64(a) == toFloat64(b)
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func compare(a, b interface{}) int {
	if isNumeric(a) && isNumeric(b) {
		af, bf := toFloat64(a), toFloat64(b)
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func in(a, b interface{}) bool {
	list := reflect.ValueOf(b)
	if list.Kind() != reflect.Slice && list.Kind() != reflect.Array {
		return equal(a, b)
	}
	for i := 0; i < list.Len(); i++ {
		if equal(a, list.Index(i).Interface()) {
			return true
		}
	}
	return false
}

func isNumeric(v interface{}) bool {
	switch reflect.ValueOf(v).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func toFloat64(v interface{}) float64 {
	val := reflect.ValueOf(v)
	switch val.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(val.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(val.Uint())
	case reflect.Float32, reflect.Float64:
		return val.Float()
	}
	return 0
}
