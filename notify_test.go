package attrbucket_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/andreyvit/attrbucket"
)

func TestChangeTracker(t *testing.T) {
	var tr attrbucket.ChangeTracker
	assert.False(t, tr.IsDirty())

	tr.MarkChanged("b")
	tr.MarkChanged("a")
	tr.MarkChanged("b")
	assert.True(t, tr.IsDirty())
	assert.True(t, tr.Changed("a"))
	assert.False(t, tr.Changed("c"))
	assert.Equal(t, []string{"b", "a"}, tr.ChangedColumns())
	assert.Equal(t, uint64(3), tr.Edits())

	cols := tr.ChangedColumns()
	cols[0] = "mutated"
	assert.Equal(t, []string{"b", "a"}, tr.ChangedColumns())

	tr.ClearChanges()
	assert.False(t, tr.IsDirty())
	assert.Empty(t, tr.ChangedColumns())
	assert.Equal(t, uint64(0), tr.Edits())
}

func TestBuckets(t *testing.T) {
	var b attrbucket.Buckets
	_, ok := b.Lookup("settings", "age")
	assert.False(t, ok)
	assert.False(t, b.Has("settings"))

	b.Bucket("settings")["age"] = int64(3)
	v, ok := b.Lookup("settings", "age")
	assert.True(t, ok)
	assert.Equal(t, int64(3), v)

	snap := b.Snapshot("settings")
	snap["age"] = int64(4)
	v, _ = b.Lookup("settings", "age")
	assert.Equal(t, int64(3), v)

	b.Replace("profile", nil)
	assert.True(t, b.Has("profile"))
	assert.Equal(t, []string{"profile", "settings"}, b.Columns())
}
