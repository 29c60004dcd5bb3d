package pagequery

import (
	"cmp"
	"reflect"
	"time"
)

// Matches evaluates c against a single row. lookup resolves a column to its
// value in the row; a missing column or a nil value never satisfies a
// comparison, the same way SQL treats NULL. Always matches every row.
func Matches(c Condition, lookup func(Column) (any, bool)) bool {
	switch node := c.(type) {
	case nil, Always:
		return true
	case Comparison:
		value, ok := lookup(node.Field)
		if !ok {
			return false
		}

		result, comparable := CompareValues(value, node.Value)
		if !comparable {
			return false
		}

		return node.Operator.holds(result)
	case Conjunction:
		return Matches(node.Left, lookup) && Matches(node.Right, lookup)
	default:
		return false
	}
}

// CompareValues orders two column values. Integers, unsigned integers and
// floats compare numerically across kinds, strings lexicographically, times
// chronologically and booleans with false < true. Pointers are dereferenced.
// The second result is false when either value is nil or the kinds cannot be
// compared.
func CompareValues(a, b any) (int, bool) {
	a, b = indirect(a), indirect(b)
	if a == nil || b == nil {
		return 0, false
	}

	if at, ok := a.(time.Time); ok {
		bt, ok := b.(time.Time)
		if !ok {
			return 0, false
		}

		return at.Compare(bt), true
	}

	av, bv := reflect.ValueOf(a), reflect.ValueOf(b)
	switch {
	case isNumber(av.Kind()) && isNumber(bv.Kind()):
		return compareNumbers(av, bv), true
	case av.Kind() == reflect.String && bv.Kind() == reflect.String:
		return cmp.Compare(av.String(), bv.String()), true
	case av.Kind() == reflect.Bool && bv.Kind() == reflect.Bool:
		return compareBools(av.Bool(), bv.Bool()), true
	}

	return 0, false
}

func indirect(v any) any {
	if v == nil {
		return nil
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}

	return rv.Interface()
}

func isNumber(k reflect.Kind) bool {
	return isInt(k) || isUint(k) || k == reflect.Float32 || k == reflect.Float64
}

func isInt(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

func isUint(k reflect.Kind) bool {
	return k >= reflect.Uint && k <= reflect.Uintptr
}

func compareNumbers(a, b reflect.Value) int {
	switch {
	case isInt(a.Kind()) && isInt(b.Kind()):
		return cmp.Compare(a.Int(), b.Int())
	case isUint(a.Kind()) && isUint(b.Kind()):
		return cmp.Compare(a.Uint(), b.Uint())
	}

	return cmp.Compare(toFloat(a), toFloat(b))
}

func toFloat(v reflect.Value) float64 {
	switch {
	case isInt(v.Kind()):
		return float64(v.Int())
	case isUint(v.Kind()):
		return float64(v.Uint())
	default:
		return v.Float()
	}
}

func compareBools(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}
