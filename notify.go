package attrbucket

import (
	"slices"
)

// notifyChange marks the whole bucket column as changed. Storage only knows
// the column, so a change to any logical attribute dirties the column.
func (rt *RecordType) notifyChange(e Entity, column, attr string) {
	e.MarkChanged(column)
	rt.logger.Trace().Str("record", rt.name).Str("column", column).Str("attr", attr).Msg("bucket will change")
	if rt.observer != nil {
		rt.observer.ObserveChange(rt.name, column)
	}
}

// ChangeSource is implemented by entities that can tell the persistence
// layer which columns need saving.
type ChangeSource interface {
	ChangedColumns() []string
	ClearChanges()
}

// ChangeTracker is a ready-made implementation of the MarkChanged half of
// Entity, plus ChangeSource. Embed it into a record struct.
type ChangeTracker struct {
	changed []string
	edits   uint64
}

func (t *ChangeTracker) MarkChanged(column string) {
	t.edits++
	if !slices.Contains(t.changed, column) {
		t.changed = append(t.changed, column)
	}
}

func (t *ChangeTracker) Changed(column string) bool {
	return slices.Contains(t.changed, column)
}

// ChangedColumns returns changed columns in the order of their first change.
func (t *ChangeTracker) ChangedColumns() []string {
	return slices.Clone(t.changed)
}

func (t *ChangeTracker) IsDirty() bool {
	return len(t.changed) > 0
}

// Edits returns the number of MarkChanged calls since the last ClearChanges.
func (t *ChangeTracker) Edits() uint64 {
	return t.edits
}

func (t *ChangeTracker) ClearChanges() {
	t.changed = t.changed[:0]
	t.edits = 0
}
