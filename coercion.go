package attrbucket

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CoercionProvider supplies the per-kind coercion a persistence layer applies
// to its native columns, so a bucketed attribute coerces exactly like a native
// column of the same declared type would.
//
// Each method returns the coerced value or an error when v cannot be
// represented. The caster validates the kind of whatever is returned.
type CoercionProvider interface {
	CoerceString(v any) (any, error)
	CoerceInteger(v any) (any, error)
	CoerceFloat(v any) (any, error)
	CoerceDecimal(v any) (any, error)
	CoerceBinary(v any) (any, error)
	CoerceBoolean(v any) (any, error)
	CoerceDatetime(v any) (any, error)
	CoerceTime(v any) (any, error)
	CoerceDate(v any) (any, error)
}

var (
	errNotNumeric = errors.New("not a number")
	errBlank      = errors.New("blank value")
)

type (
	integerValue interface {
		~int | ~int8 | ~int16 | ~int32 | ~int64 | ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
	}
	floatValue interface {
		~float32 | ~float64
	}
)

var datetimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
}

var timeOfDayLayouts = []string{
	"15:04:05.999999999",
	"15:04",
}

// dummyDate anchors time-of-day values, matching how SQL stores TIME columns.
var dummyDate = [3]int{2000, 1, 1}

var trueStrings = map[string]bool{
	"1": true, "t": true, "T": true, "true": true, "TRUE": true, "True": true,
	"on": true, "ON": true, "yes": true, "YES": true,
}

// NativeCoercion is the default CoercionProvider. It follows the coercion
// rules of a typical SQL column adapter.
type NativeCoercion struct {
	// Location is used for strings without a zone offset. Nil means UTC.
	Location *time.Location
}

func (c NativeCoercion) location() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

func (NativeCoercion) CoerceString(v any) (any, error) {
	switch v := v.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case bool:
		return strconv.FormatBool(v), nil
	case time.Time:
		return v.Format(time.RFC3339Nano), nil
	case decimal.Decimal:
		return v.String(), nil
	case fmt.Stringer:
		return v.String(), nil
	}
	if i, ok := integerOf(v); ok {
		return strconv.FormatInt(i, 10), nil
	}
	if u, ok := v.(uint64); ok {
		return strconv.FormatUint(u, 10), nil
	}
	if f, ok := floatOf(v); ok {
		return strconv.FormatFloat(f, 'g', -1, 64), nil
	}
	return fmt.Sprint(v), nil
}

func (NativeCoercion) CoerceInteger(v any) (any, error) {
	if i, ok := integerOf(v); ok {
		return i, nil
	}
	if f, ok := floatOf(v); ok {
		if i, ok := truncateFloat(f); ok {
			return i, nil
		}
		return nil, errNotNumeric
	}
	switch v := v.(type) {
	case decimal.Decimal:
		return v.IntPart(), nil
	case string:
		s := strings.TrimSpace(v)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			if i, ok := truncateFloat(f); ok {
				return i, nil
			}
		}
	}
	return nil, errNotNumeric
}

func (NativeCoercion) CoerceFloat(v any) (any, error) {
	if f, ok := floatOf(v); ok {
		return f, nil
	}
	if i, ok := integerOf(v); ok {
		return float64(i), nil
	}
	switch v := v.(type) {
	case decimal.Decimal:
		return v.InexactFloat64(), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, errNotNumeric
		}
		return f, nil
	}
	return nil, errNotNumeric
}

func (NativeCoercion) CoerceDecimal(v any) (any, error) {
	switch v := v.(type) {
	case decimal.Decimal:
		return v, nil
	case string:
		return decimal.NewFromString(strings.TrimSpace(v))
	case float32:
		if f := float64(v); math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, errNotNumeric
		}
		return decimal.NewFromFloat32(v), nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errNotNumeric
		}
		return decimal.NewFromFloat(v), nil
	}
	if i, ok := integerOf(v); ok {
		return decimal.NewFromInt(i), nil
	}
	return nil, errNotNumeric
}

func (NativeCoercion) CoerceBinary(v any) (any, error) {
	switch v := v.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	}
	return nil, fmt.Errorf("%T is not binary data", v)
}

func (NativeCoercion) CoerceBoolean(v any) (any, error) {
	switch v := v.(type) {
	case bool:
		return v, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, errBlank
		}
		return trueStrings[strings.TrimSpace(v)], nil
	}
	if i, ok := integerOf(v); ok {
		return i == 1, nil
	}
	return false, nil
}

func (c NativeCoercion) CoerceDatetime(v any) (any, error) {
	switch v := v.(type) {
	case time.Time:
		return v, nil
	case string:
		return parseTime(strings.TrimSpace(v), datetimeLayouts, c.location())
	}
	return nil, fmt.Errorf("%T is not a time", v)
}

func (c NativeCoercion) CoerceTime(v any) (any, error) {
	loc := c.location()
	switch v := v.(type) {
	case time.Time:
		return v, nil
	case string:
		s := strings.TrimSpace(v)
		if t, err := parseTime(s, timeOfDayLayouts, loc); err == nil {
			return time.Date(dummyDate[0], time.Month(dummyDate[1]), dummyDate[2], t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc), nil
		}
		return parseTime(s, datetimeLayouts, loc)
	}
	return nil, fmt.Errorf("%T is not a time", v)
}

func (c NativeCoercion) CoerceDate(v any) (any, error) {
	var t time.Time
	switch v := v.(type) {
	case time.Time:
		t = v
	case string:
		var err error
		t, err = parseTime(strings.TrimSpace(v), datetimeLayouts, c.location())
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%T is not a date", v)
	}
	return truncateToDate(t), nil
}

func truncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func parseTime(s string, layouts []string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Time{}, errBlank
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as time", s)
}

func integerOf(v any) (int64, bool) {
	switch v := v.(type) {
	case int:
		return widenInt(v)
	case int8:
		return widenInt(v)
	case int16:
		return widenInt(v)
	case int32:
		return widenInt(v)
	case int64:
		return v, true
	case uint:
		return widenInt(v)
	case uint8:
		return widenInt(v)
	case uint16:
		return widenInt(v)
	case uint32:
		return widenInt(v)
	case uint64:
		if v > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case uintptr:
		return widenInt(v)
	default:
		return 0, false
	}
}

func widenInt[T integerValue](v T) (int64, bool) {
	return int64(v), true
}

// truncateFloat converts f to int64 towards zero. NaN, infinities and values
// outside the int64 range are rejected.
func truncateFloat(f float64) (int64, bool) {
	if math.IsNaN(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

func floatOf(v any) (float64, bool) {
	switch v := v.(type) {
	case float32:
		return widenFloat(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}

func widenFloat[T floatValue](v T) float64 {
	return float64(v)
}
