package attrbucket

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testAssembler = &Assembler{
	Now: func() time.Time { return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC) },
}

func cast(t *testing.T, value any, def AttrDef) (any, CastOutcome) {
	t.Helper()
	v, outcome, err := Cast(value, def, NativeCoercion{}, testAssembler)
	require.NoError(t, err)
	return v, outcome
}

func TestCast_NilShortCircuits(t *testing.T) {
	for _, typ := range []AttrType{String, Text, Integer, Float, Decimal, Datetime, Timestamp, Time, Date, Binary, Boolean} {
		v, outcome := cast(t, nil, Typed("a", typ))
		assert.Nil(t, v, "%v", typ)
		assert.Equal(t, CastNil, outcome)
	}

	called := false
	v, outcome := cast(t, nil, Custom("a", func(any) any { called = true; return 1 }))
	assert.Nil(t, v)
	assert.Equal(t, CastNil, outcome)
	assert.False(t, called)
}

func TestCast_CustomCasterPassthrough(t *testing.T) {
	var calls []any
	def := Custom("tags", func(v any) any {
		calls = append(calls, v)
		return struct{ N int }{len(v.(string))}
	})
	v, outcome := cast(t, "abc", def)
	assert.Equal(t, struct{ N int }{3}, v)
	assert.Equal(t, CastCustom, outcome)
	assert.Equal(t, []any{"abc"}, calls)
}

func TestCast_IntegerFallback(t *testing.T) {
	v, outcome := cast(t, "abc", Typed("age", Integer))
	assert.Equal(t, int64(1), v)
	assert.Equal(t, CastIntegerFallback, outcome)

	v, outcome = cast(t, false, Typed("age", Integer))
	assert.Equal(t, int64(0), v)
	assert.Equal(t, CastIntegerFallback, outcome)

	v, _ = cast(t, true, Typed("age", Integer))
	assert.Equal(t, int64(1), v)

	v, outcome = cast(t, "42", Typed("age", Integer))
	assert.Equal(t, int64(42), v)
	assert.Equal(t, CastOK, outcome)

	for _, in := range []any{1e20, "1e20", -1e300} {
		v, outcome = cast(t, in, Typed("age", Integer))
		assert.Equal(t, int64(1), v, "%#v", in)
		assert.Equal(t, CastIntegerFallback, outcome, "%#v", in)
	}
}

func TestCast_NonFiniteDecimal(t *testing.T) {
	for _, in := range []any{float32(math.NaN()), float32(math.Inf(1)), math.Inf(-1)} {
		v, outcome, err := Cast(in, Typed("price", Decimal), NativeCoercion{}, testAssembler)
		assert.ErrorIs(t, err, ErrUnableToCast, "%#v", in)
		assert.Nil(t, v)
		assert.Equal(t, CastFailed, outcome)
	}
}

func TestCast_Kinds(t *testing.T) {
	v, _ := cast(t, 12, Typed("s", String))
	assert.Equal(t, "12", v)

	v, _ = cast(t, "1.25", Typed("f", Float))
	assert.Equal(t, 1.25, v)

	v, _ = cast(t, "t", Typed("b", Boolean))
	assert.Equal(t, true, v)

	v, _ = cast(t, "bin", Typed("x", Binary))
	assert.Equal(t, []byte("bin"), v)

	v, _ = cast(t, "2020-05-06", Typed("d", Date))
	assert.Equal(t, time.Date(2020, 5, 6, 0, 0, 0, 0, time.UTC), v)

	v, _ = cast(t, "2020-05-06 07:08:09", Typed("ts", Timestamp))
	assert.Equal(t, time.Date(2020, 5, 6, 7, 8, 9, 0, time.UTC), v)

	v, _ = cast(t, "07:08", Typed("tm", Time))
	assert.Equal(t, time.Date(2000, 1, 1, 7, 8, 0, 0, time.UTC), v)
}

func TestCast_Composite(t *testing.T) {
	v, outcome := cast(t, []any{2020, nil, nil}, Typed("born", Date))
	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), v)
	assert.Equal(t, CastOK, outcome)

	v, outcome = cast(t, []any{nil, "", nil}, Typed("born", Date))
	assert.Nil(t, v)
	assert.Equal(t, CastBlank, outcome)

	v, outcome = cast(t, []any{"2021", "2", "30"}, Typed("born", Date))
	assert.Equal(t, time.Date(2021, 3, 2, 0, 0, 0, 0, time.UTC), v)
	assert.Equal(t, CastLenient, outcome)
}

func TestCast_Failures(t *testing.T) {
	_, outcome, err := Cast("abc", Typed("f", Float), NativeCoercion{}, testAssembler)
	require.Error(t, err)
	assert.Equal(t, CastFailed, outcome)
	assert.ErrorIs(t, err, ErrUnableToCast)

	var ce *CastError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "abc", ce.Value)
	assert.Equal(t, Float, ce.Type)
	assert.Equal(t, "f", ce.Attr)

	_, _, err = Cast(3, Typed("d", Date), NativeCoercion{}, testAssembler)
	assert.ErrorIs(t, err, ErrUnableToCast)

	_, _, err = Cast(1, AttrDef{Name: "x"}, NativeCoercion{}, testAssembler)
	assert.ErrorContains(t, err, "invalid declared type")
}

type lyingCoercion struct{ NativeCoercion }

func (lyingCoercion) CoerceInteger(v any) (any, error) { return "not an int", nil }
func (lyingCoercion) CoerceBoolean(v any) (any, error) { return nil, errors.New("boom") }

func TestCast_ValidatesProviderResult(t *testing.T) {
	_, outcome, err := Cast(5, Typed("n", Integer), lyingCoercion{}, testAssembler)
	assert.Equal(t, CastFailed, outcome)
	assert.ErrorIs(t, err, ErrUnableToCast)
	assert.ErrorContains(t, err, "coerced to string")

	_, _, err = Cast("yes", Typed("b", Boolean), lyingCoercion{}, testAssembler)
	assert.ErrorIs(t, err, ErrUnableToCast)
	assert.ErrorContains(t, err, "boom")
}
