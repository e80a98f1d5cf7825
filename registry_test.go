package attrbucket_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreyvit/attrbucket"
	"github.com/andreyvit/attrbucket/attrbuckettest"
)

var userColumns = map[string]attrbucket.ColumnType{
	"id":       attrbucket.ColumnInteger,
	"settings": attrbucket.ColumnText,
	"profile":  attrbucket.ColumnJSON,
	"extra":    attrbucket.ColumnString,
	"avatar":   attrbucket.ColumnBinary,
}

func TestDeclare_Basic(t *testing.T) {
	rt, schema := attrbuckettest.NewRecordType(t, "users", userColumns, nil)
	require.NoError(t, rt.Declare("settings", attrbucket.Names("nickname")))
	require.NoError(t, rt.Declare("profile", []attrbucket.AttrDef{
		attrbucket.Typed("age", attrbucket.Integer),
		attrbucket.Typed("born", attrbucket.Date),
	}))

	decl := rt.Declaration()
	assert.Equal(t, []string{"settings", "profile"}, decl.Columns())
	assert.Equal(t, []string{"settings", "profile"}, schema.Serialized())

	col, ok := decl.BucketOf("born")
	assert.True(t, ok)
	assert.Equal(t, "profile", col)

	typ, ok := decl.TypeOf("age")
	assert.True(t, ok)
	assert.Equal(t, attrbucket.Integer, typ)

	var names []string
	for _, acc := range decl.Attrs() {
		names = append(names, acc.Name())
	}
	assert.Equal(t, []string{"nickname", "age", "born"}, names)
	assert.Equal(t, attrbucket.ColumnJSON, decl.Bucket("profile").ColumnType())
	assert.Len(t, decl.Bucket("profile").Attrs(), 2)
	assert.Equal(t, "users.settings.nickname", rt.Accessor("nickname").String())
}

func TestDeclare_AppendOnly(t *testing.T) {
	rt, schema := attrbuckettest.NewRecordType(t, "users", userColumns, nil)
	require.NoError(t, rt.Declare("settings", attrbucket.Names("a")))
	before := rt.Declaration()
	require.NoError(t, rt.Declare("settings", attrbucket.Names("b", "c")))

	assert.Equal(t, []string{"settings"}, schema.Serialized(), "hook runs once per column")
	assert.Len(t, rt.Declaration().Bucket("settings").Attrs(), 3)
	assert.Len(t, before.Bucket("settings").Attrs(), 1, "published declarations are immutable")
	assert.NotNil(t, rt.Accessor("a"))
	assert.NotNil(t, rt.Accessor("c"))
}

func TestDeclare_ConfigurationErrors(t *testing.T) {
	rt, _ := attrbuckettest.NewRecordType(t, "users", userColumns, nil)

	err := rt.Declare("missing", attrbucket.Names("x"))
	var ce *attrbucket.ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "missing", ce.Column)
	assert.EqualError(t, err, "users.missing: no such column")

	err = rt.Declare("avatar", attrbucket.Names("x"))
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, err.Error(), "column type binary cannot hold a serialized bucket")
	assert.Nil(t, rt.Accessor("x"), "no partial accessors")

	err = rt.Declare("settings", []attrbucket.AttrDef{{Name: "bad"}})
	assert.ErrorContains(t, err, "users.settings[bad]: invalid attribute type")

	err = rt.Declare("settings", attrbucket.Names(""))
	assert.ErrorContains(t, err, "empty attribute name")

	err = rt.Declare("settings", attrbucket.Names("born(1i)"))
	assert.ErrorContains(t, err, "invalid attribute name")

	err = rt.Declare("settings", attrbucket.Names("a", "a"))
	assert.ErrorContains(t, err, "attribute listed twice")

	err = rt.Declare("settings", attrbucket.Names("a"), attrbucket.Exposure{})
	assert.ErrorContains(t, err, "no allow list configured")

	err = rt.Declare("settings", attrbucket.Names("a"), attrbucket.Exposure{}, attrbucket.Exposure{})
	assert.ErrorContains(t, err, "at most one exposure")

	assert.Empty(t, rt.Declaration().Attrs())
}

func TestDeclare_DuplicateAcrossBucketsRejected(t *testing.T) {
	rt, _ := attrbuckettest.NewRecordType(t, "users", userColumns, nil)
	require.NoError(t, rt.Declare("settings", attrbucket.Names("color")))

	err := rt.Declare("profile", attrbucket.Names("color"))
	assert.ErrorContains(t, err, "attribute already declared in bucket settings")

	col, _ := rt.Declaration().BucketOf("color")
	assert.Equal(t, "settings", col)
}

func TestDeclareBuckets_FailFast(t *testing.T) {
	rt, schema := attrbuckettest.NewRecordType(t, "users", userColumns, nil)
	err := rt.DeclareBuckets(
		attrbucket.BucketDef{Column: "settings", Attrs: attrbucket.Names("a")},
		attrbucket.BucketDef{Column: "id", Attrs: attrbucket.Names("b")},
		attrbucket.BucketDef{Column: "profile", Attrs: attrbucket.Names("c")},
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "users.id")

	assert.NotNil(t, rt.Accessor("a"))
	assert.Nil(t, rt.Accessor("b"))
	assert.Nil(t, rt.Accessor("c"), "buckets after the failing one are not processed")
	assert.Equal(t, []string{"settings"}, schema.Serialized())
}

func TestDeclare_SerializeHookFailure(t *testing.T) {
	rt, schema := attrbuckettest.NewRecordType(t, "users", userColumns, nil)
	schema.SerializeErr = errors.New("read-only schema")

	err := rt.Declare("settings", attrbucket.Names("a"))
	assert.ErrorContains(t, err, "cannot serialize column: read-only schema")
	assert.Nil(t, rt.Accessor("a"))
}

func TestDeclare_SealedAfterUse(t *testing.T) {
	rt, _ := attrbuckettest.NewRecordType(t, "users", userColumns, nil)
	require.NoError(t, rt.Declare("settings", attrbucket.Names("a")))
	assert.False(t, rt.IsSealed())

	rec := attrbuckettest.NewRecord(rt)
	assert.Nil(t, attrbucket.Get(rec, "a"))
	assert.True(t, rt.IsSealed())

	err := rt.Declare("settings", attrbucket.Names("b"))
	assert.ErrorIs(t, err, attrbucket.ErrSealed)
	assert.Nil(t, rt.Accessor("b"))
}

type blockingSchema struct {
	*attrbuckettest.Schema
	entered chan struct{}
	release chan struct{}
}

func (s *blockingSchema) SerializeColumn(column string) error {
	close(s.entered)
	<-s.release
	return s.Schema.SerializeColumn(column)
}

func TestDeclare_SealWaitsForDeclare(t *testing.T) {
	schema := &blockingSchema{
		Schema:  attrbuckettest.NewSchema(userColumns),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	rt := attrbucket.NewRecordType("users", schema, attrbucket.Options{})

	declared := make(chan error, 1)
	go func() { declared <- rt.Declare("settings", attrbucket.Names("a")) }()
	<-schema.entered

	loaded := make(chan error, 1)
	go func() {
		loaded <- attrbucket.Load(attrbuckettest.NewRecord(rt), "settings", nil)
	}()

	select {
	case <-loaded:
		t.Fatal("first use completed while a declare call was publishing")
	case <-time.After(50 * time.Millisecond):
	}
	assert.False(t, rt.IsSealed())

	close(schema.release)
	require.NoError(t, <-declared)
	require.NoError(t, <-loaded, "first use sees the bucket declared before sealing")
	assert.True(t, rt.IsSealed())
	assert.NotNil(t, rt.Accessor("a"))

	err := rt.Declare("profile", attrbucket.Names("b"))
	assert.ErrorIs(t, err, attrbucket.ErrSealed)
}

func TestDeclare_Exposure(t *testing.T) {
	allow := attrbucket.NewRoleAllowList()
	rt, _ := attrbuckettest.NewRecordType(t, "users", userColumns, &attrbucket.Options{AllowList: allow})

	require.NoError(t, rt.Declare("settings", attrbucket.Names("nickname"), attrbucket.Exposure{}))
	require.NoError(t, rt.Declare("profile", attrbucket.Names("role_note"), attrbucket.Exposure{Scope: map[string]any{"as": "admin"}}))
	require.NoError(t, rt.Declare("extra", attrbucket.Names("secret")))

	assert.True(t, allow.Allowed("nickname", "anyone"))
	assert.True(t, allow.Allowed("role_note", "admin"))
	assert.False(t, allow.Allowed("role_note", "user"))
	assert.False(t, allow.Allowed("secret", "admin"))

	exp, ok := rt.Accessor("role_note").Exposure()
	assert.True(t, ok)
	assert.Equal(t, map[string]any{"as": "admin"}, exp.Scope)
	_, ok = rt.Accessor("secret").Exposure()
	assert.False(t, ok)
}

func TestMustAccessor_Panics(t *testing.T) {
	rt, _ := attrbuckettest.NewRecordType(t, "users", userColumns, nil)
	assert.PanicsWithError(t, `users: unknown bucketed attribute "nope"`, func() {
		rt.MustAccessor("nope")
	})
}
