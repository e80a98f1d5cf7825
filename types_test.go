package attrbucket

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAttrType(t *testing.T) {
	for _, typ := range []AttrType{String, Text, Integer, Float, Decimal, Datetime, Timestamp, Time, Date, Binary, Boolean} {
		got, err := ParseAttrType(typ.String())
		require.NoError(t, err)
		assert.Equal(t, typ, got)
	}

	got, err := ParseAttrType(" Int ")
	require.NoError(t, err)
	assert.Equal(t, Integer, got)

	got, err = ParseAttrType("bool")
	require.NoError(t, err)
	assert.Equal(t, Boolean, got)

	_, err = ParseAttrType("uuid")
	assert.ErrorContains(t, err, `unknown attribute type "uuid"`)

	_, err = ParseAttrType("invalid")
	assert.Error(t, err)
}

func TestAttrType_TextMarshaling(t *testing.T) {
	var typ AttrType
	require.NoError(t, typ.UnmarshalText([]byte("timestamp")))
	assert.Equal(t, Timestamp, typ)

	b, err := Decimal.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "decimal", string(b))

	_, err = InvalidType.MarshalText()
	assert.Error(t, err)
	assert.Equal(t, "invalid type 42", AttrType(42).String())
}

func TestAttrType_Accepts(t *testing.T) {
	assert.True(t, Integer.accepts(int64(1)))
	assert.False(t, Integer.accepts(1))
	assert.True(t, Date.accepts(time.Time{}))
	assert.True(t, Decimal.accepts(decimal.NewFromInt(1)))
	assert.True(t, Binary.accepts([]byte{}))
	assert.False(t, Boolean.accepts("true"))
	assert.False(t, InvalidType.accepts(nil))
}

func TestAttrDefHelpers(t *testing.T) {
	defs := Names("a", "b")
	require.Len(t, defs, 2)
	assert.Equal(t, AttrDef{Name: "a", Type: String}, defs[0])
	assert.Equal(t, "b:string", defs[1].String())

	assert.Equal(t, "age:integer", Typed("age", Integer).String())

	c := Custom("tags", func(v any) any { return v })
	assert.True(t, c.IsCustom())
	assert.Equal(t, "tags:custom", c.String())
}

func TestIsBlank(t *testing.T) {
	for _, v := range []any{nil, "", "  \t", []byte{}, []any{}, map[string]any{}, []string{}, map[int]int{}, (*int)(nil)} {
		assert.True(t, IsBlank(v), "IsBlank(%#v)", v)
	}
	for _, v := range []any{"x", 0, false, []string{"a"}, map[string]any{"a": 1}, time.Time{}} {
		assert.False(t, IsBlank(v), "IsBlank(%#v)", v)
	}
}
