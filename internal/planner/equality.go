package planner

import (
	"github.com/arkilian/drift/pkg/types"
)

// valuesEqual reports canonical structural equality between two JSON-shaped
// values: maps are compared key-order-independently, sequences in order,
// numbers across int/float representations. nil is equal only to nil, never
// to an empty container.
func valuesEqual(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	switch av := a.(type) {
	case map[string]interface{}:
		bv, ok := b.(map[string]interface{})
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, ae := range av {
			be, ok := bv[k]
			if !ok || !valuesEqual(ae, be) {
				return false
			}
		}
		return true

	case []interface{}:
		bv, ok := b.([]interface{})
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !valuesEqual(av[i], bv[i]) {
				return false
			}
		}
		return true

	default:
		an, aIsNum := asFloat(a)
		bn, bIsNum := asFloat(b)
		if aIsNum || bIsNum {
			return aIsNum && bIsNum && an == bn
		}
		return a == b
	}
}

// asFloat normalizes the numeric types produced by the JSON and YAML
// decoders so that 1, int64(1), and 1.0 compare equal.
func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// fieldsEqual compares two field definitions structurally. An absent
// definition equals only another absent definition.
func fieldsEqual(a, b types.FieldDefinition) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return valuesEqual(map[string]interface{}(a), map[string]interface{}(b))
}

// indexesEqual compares two index definitions structurally, with the same
// absence rule as fieldsEqual.
func indexesEqual(a, b types.IndexDefinition) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return valuesEqual(map[string]interface{}(a), map[string]interface{}(b))
}

// permissionsEqual compares two permission tables, excluding the ignored
// action keys from both sides. The ignore-set accommodates backend versions
// that silently inject permission actions the caller never declared.
func permissionsEqual(a, b types.Permissions, ignored []string) bool {
	skip := make(map[string]bool, len(ignored))
	for _, k := range ignored {
		skip[k] = true
	}

	keys := make(map[string]bool, len(a)+len(b))
	for k := range a {
		if !skip[k] {
			keys[k] = true
		}
	}
	for k := range b {
		if !skip[k] {
			keys[k] = true
		}
	}

	for k := range keys {
		ar, aok := a[k]
		br, bok := b[k]
		if aok != bok {
			return false
		}
		if len(ar) != len(br) {
			return false
		}
		for role, allowed := range ar {
			if got, ok := br[role]; !ok || got != allowed {
				return false
			}
		}
	}
	return true
}
