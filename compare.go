package tideline

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"reflect"
	"strconv"
	"time"

	"golang.org/x/exp/constraints"
)

func compareOrdered[V constraints.Ordered](a, b V) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// normalizeValue reduces a column value to one of: nil, int64, uint64, float64,
// string, []byte, bool or time.Time.
func normalizeValue(value any) any {
	switch v := value.(type) {
	case nil:
		return nil
	case driver.Valuer:
		inner, err := v.Value()
		if err != nil {
			return v
		}
		return normalizeValue(inner)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return string(v)
	case int:
		return int64(v)
	case int8:
		return int64(v)
	case int16:
		return int64(v)
	case int32:
		return int64(v)
	case int64:
		return v
	case uint:
		return uint64(v)
	case uint8:
		return uint64(v)
	case uint16:
		return uint64(v)
	case uint32:
		return uint64(v)
	case uint64:
		return v
	case float32:
		return float64(v)
	case float64:
		return v
	case string, []byte, bool, time.Time:
		return v
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		return normalizeValue(rv.Elem().Interface())
	}
	return value
}

// compareValues orders two column values. Nil sorts before every other value.
// The second result is false when the values have no common ordering.
func compareValues(a, b any) (int, bool) {
	a = normalizeValue(a)
	b = normalizeValue(b)

	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0, true
		case a == nil:
			return -1, true
		default:
			return 1, true
		}
	}

	switch av := a.(type) {
	case int64:
		switch bv := b.(type) {
		case int64:
			return compareOrdered(av, bv), true
		case uint64:
			if av < 0 {
				return -1, true
			}
			return compareOrdered(uint64(av), bv), true
		case float64:
			return compareOrdered(float64(av), bv), true
		case string:
			if f, err := strconv.ParseFloat(bv, 64); err == nil {
				return compareOrdered(float64(av), f), true
			}
		}

	case uint64:
		switch bv := b.(type) {
		case uint64:
			return compareOrdered(av, bv), true
		case int64:
			if bv < 0 {
				return 1, true
			}
			return compareOrdered(av, uint64(bv)), true
		case float64:
			return compareOrdered(float64(av), bv), true
		}

	case float64:
		switch bv := b.(type) {
		case float64:
			return compareOrdered(av, bv), true
		case int64:
			return compareOrdered(av, float64(bv)), true
		case uint64:
			return compareOrdered(av, float64(bv)), true
		case string:
			if f, err := strconv.ParseFloat(bv, 64); err == nil {
				return compareOrdered(av, f), true
			}
		}

	case string:
		switch bv := b.(type) {
		case string:
			return compareOrdered(av, bv), true
		case []byte:
			return compareOrdered(av, string(bv)), true
		case time.Time:
			if at, ok := parseTime(av); ok {
				return at.Compare(bv), true
			}
		case int64, uint64, float64:
			cmp, ok := compareValues(b, a)
			return -cmp, ok
		}

	case []byte:
		switch bv := b.(type) {
		case []byte:
			return bytes.Compare(av, bv), true
		case string:
			return compareOrdered(string(av), bv), true
		}

	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case av == bv:
				return 0, true
			case !av:
				return -1, true
			default:
				return 1, true
			}
		}

	case time.Time:
		switch bv := b.(type) {
		case time.Time:
			return av.Compare(bv), true
		case string:
			if bt, ok := parseTime(bv); ok {
				return av.Compare(bt), true
			}
		}
	}

	return 0, false
}

func parseTime(value string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999999", time.DateOnly} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
