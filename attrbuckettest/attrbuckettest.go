// Package attrbuckettest provides an in-memory persistence fake and a generic
// record for testing code built on attrbucket.
package attrbuckettest

import (
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/andreyvit/attrbucket"
)

// Now is the fixed clock used by NewRecordType.
var Now = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

// Schema is an in-memory attrbucket.Schema.
type Schema struct {
	Columns map[string]attrbucket.ColumnType

	// SerializeErr, if set, is returned by SerializeColumn.
	SerializeErr error

	mu         sync.Mutex
	serialized []string
}

func NewSchema(columns map[string]attrbucket.ColumnType) *Schema {
	return &Schema{Columns: columns}
}

func (s *Schema) ColumnType(column string) (attrbucket.ColumnType, bool) {
	ct, ok := s.Columns[column]
	return ct, ok
}

func (s *Schema) SerializeColumn(column string) error {
	if s.SerializeErr != nil {
		return s.SerializeErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.serialized = append(s.serialized, column)
	return nil
}

// Serialized returns the columns SerializeColumn was called for, in order.
func (s *Schema) Serialized() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.serialized)
}

// Record is a generic entity of any record type.
type Record struct {
	Type *attrbucket.RecordType
	attrbucket.Buckets
	attrbucket.ChangeTracker

	// Notifications lists every MarkChanged call, duplicates included.
	Notifications []string
}

func NewRecord(rt *attrbucket.RecordType) *Record {
	return &Record{Type: rt}
}

func (r *Record) BucketRecordType() *attrbucket.RecordType {
	return r.Type
}

func (r *Record) MarkChanged(column string) {
	r.Notifications = append(r.Notifications, column)
	r.ChangeTracker.MarkChanged(column)
}

// CastEvent is one ObserveCast call recorded by Observer.
type CastEvent struct {
	Record  string
	Attr    string
	Outcome attrbucket.CastOutcome
}

// Observer records everything it observes.
type Observer struct {
	mu      sync.Mutex
	casts   []CastEvent
	changes []string
}

func (o *Observer) ObserveCast(record string, def attrbucket.AttrDef, outcome attrbucket.CastOutcome) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.casts = append(o.casts, CastEvent{record, def.Name, outcome})
}

func (o *Observer) ObserveChange(record, column string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.changes = append(o.changes, record+"."+column)
}

func (o *Observer) Casts() []CastEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	return slices.Clone(o.casts)
}

func (o *Observer) Changes() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return slices.Clone(o.changes)
}

// Logger returns a trace-level logger writing to the test log.
func Logger(t testing.TB) *zerolog.Logger {
	logger := zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.TraceLevel)
	return &logger
}

// NewRecordType creates a record type over an in-memory schema with the
// given columns, logging to t and using the fixed Now clock. The options may
// be nil.
func NewRecordType(t testing.TB, name string, columns map[string]attrbucket.ColumnType, opt *attrbucket.Options) (*attrbucket.RecordType, *Schema) {
	schema := NewSchema(columns)
	var o attrbucket.Options
	if opt != nil {
		o = *opt
	}
	if o.Logger == nil {
		o.Logger = Logger(t)
	}
	if o.Now == nil {
		o.Now = func() time.Time { return Now }
	}
	return attrbucket.NewRecordType(name, schema, o), schema
}
