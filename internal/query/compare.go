package query

import (
	"cmp"
	"encoding/json"
	"strings"
	"time"

	"github.com/desertthunder/hsx/internal/models"
)

// Compare orders two field values naturally: numbers numerically, times chronologically,
// booleans false first and strings fold-case. Missing values sort first. Values of different
// kinds are compared by their text form.
func Compare(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}

	if x, ok := number(a); ok {
		if y, ok := number(b); ok {
			return cmp.Compare(x, y)
		}
	}

	switch x := a.(type) {
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y)
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0
			case !x:
				return -1
			default:
				return 1
			}
		}
	case string:
		if y, ok := b.(string); ok {
			return compareText(x, y)
		}
	}

	return compareText(models.FormatValue(a), models.FormatValue(b))
}

// CompareField orders two records by one field in the given direction.
func CompareField(a, b models.Record, s models.Sort) int {
	c := Compare(a.Value(s.Key), b.Value(s.Key))
	if s.Direction == models.Descending {
		return -c
	}
	return c
}

func compareText(x, y string) int {
	if c := strings.Compare(Fold(x), Fold(y)); c != 0 {
		return c
	}
	return strings.Compare(x, y)
}

func number(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	}
	return 0, false
}
