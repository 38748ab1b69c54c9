package query

import (
	"math"
	"strconv"
	"strings"
)

// ToInt64 converts the scalar types database drivers return for COUNT(*) into
// an int64. It reports false when the value cannot be represented exactly.
func ToInt64(v any) (int64, bool) {
	switch val := v.(type) {
	case int:
		return int64(val), true
	case int8:
		return int64(val), true
	case int16:
		return int64(val), true
	case int32:
		return int64(val), true
	case int64:
		return val, true
	case uint:
		if uint64(val) > math.MaxInt64 {
			return 0, false
		}
		return int64(val), true
	case uint8:
		return int64(val), true
	case uint16:
		return int64(val), true
	case uint32:
		return int64(val), true
	case uint64:
		if val > math.MaxInt64 {
			return 0, false
		}
		return int64(val), true
	case float32:
		return floatToInt64(float64(val))
	case float64:
		return floatToInt64(val)
	case []byte:
		return parseInt64(string(val))
	case string:
		return parseInt64(val)
	default:
		return 0, false
	}
}

// floatToInt64 rejects fractions, NaN and anything outside [-2^63, 2^63).
// float64(math.MaxInt64) rounds up to 2^63, so the upper bound is exclusive.
func floatToInt64(f float64) (int64, bool) {
	if f != math.Trunc(f) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

func parseInt64(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return floatToInt64(f)
	}
	return 0, false
}
