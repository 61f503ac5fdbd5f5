package datatable

import (
	"database/sql/driver"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"
)

// normalize unwraps pointers, interfaces and driver.Valuer values (null.String, sql.NullInt64, ...).
// It reports false when the value is null.
func normalize(v any) (any, bool) {
	for i := 0; i < 8; i++ { // bounded: a Valuer may return another Valuer
		if v == nil {
			return nil, false
		}
		if valuer, ok := v.(driver.Valuer); ok {
			rv := reflect.ValueOf(v)
			if rv.Kind() == reflect.Ptr && rv.IsNil() {
				return nil, false
			}
			val, err := valuer.Value()
			if err != nil || val == nil {
				return nil, false
			}
			if _, again := val.(driver.Valuer); !again {
				return checkNaN(val)
			}
			v = val
			continue
		}

		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.Ptr, reflect.Interface:
			if rv.IsNil() {
				return nil, false
			}
			v = rv.Elem().Interface()
			continue
		case reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			if rv.IsNil() {
				return nil, false
			}
		}
		return checkNaN(v)
	}
	return v, true
}

func checkNaN(v any) (any, bool) {
	switch f := v.(type) {
	case float64:
		if math.IsNaN(f) {
			return nil, false
		}
	case float32:
		if math.IsNaN(float64(f)) {
			return nil, false
		}
	}
	return v, true
}

// isNull reports whether v sorts as a missing value.
func isNull(v any) bool {
	_, ok := normalize(v)
	return !ok
}

// compareValues compares two non-null values by their runtime kind:
// numbers (mixed kinds as float64), strings, bools, time.Time, fmt.Stringer, else fmt.Sprint.
func compareValues(a, b any) int {
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Compare(tb)
		}
	}

	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	ka, kb := ra.Kind(), rb.Kind()

	switch {
	case isInt(ka) && isInt(kb):
		return cmpOrdered(ra.Int(), rb.Int())
	case isUint(ka) && isUint(kb):
		return cmpOrdered(ra.Uint(), rb.Uint())
	case isNumber(ka) && isNumber(kb):
		return cmpOrdered(toFloat(ra), toFloat(rb))
	case ka == reflect.String && kb == reflect.String:
		return strings.Compare(ra.String(), rb.String())
	case ka == reflect.Bool && kb == reflect.Bool:
		return cmpBool(ra.Bool(), rb.Bool())
	}

	sa, oka := a.(fmt.Stringer)
	sb, okb := b.(fmt.Stringer)
	if oka && okb {
		return strings.Compare(sa.String(), sb.String())
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func cmpOrdered[N int64 | uint64 | float64](a, b N) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	}
	return 1
}

func isInt(k reflect.Kind) bool   { return k >= reflect.Int && k <= reflect.Int64 }
func isUint(k reflect.Kind) bool  { return k >= reflect.Uint && k <= reflect.Uintptr }
func isFloat(k reflect.Kind) bool { return k == reflect.Float32 || k == reflect.Float64 }

func isNumber(k reflect.Kind) bool { return isInt(k) || isUint(k) || isFloat(k) }

func toFloat(v reflect.Value) float64 {
	switch {
	case isInt(v.Kind()):
		return float64(v.Int())
	case isUint(v.Kind()):
		return float64(v.Uint())
	}
	return v.Float()
}
