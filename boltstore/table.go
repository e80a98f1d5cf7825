package boltstore

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/andreyvit/attrbucket"
	"github.com/andreyvit/attrbucket/codec"
)

// Table describes the columns of one record kind stored in Bolt. It
// implements attrbucket.Schema, so a record type can be declared over it.
type Table struct {
	name     string
	encoding codec.Encoding
	columns  map[string]attrbucket.ColumnType
	order    []string

	mu         sync.RWMutex
	serialized map[string]codec.Encoding
}

type TableBuilder struct {
	tbl *Table
}

// DefineTable creates a table whose serialized columns use enc.
func DefineTable(name string, enc codec.Encoding, f func(b *TableBuilder)) *Table {
	tbl := &Table{
		name:       name,
		encoding:   enc,
		columns:    make(map[string]attrbucket.ColumnType),
		serialized: make(map[string]codec.Encoding),
	}
	f(&TableBuilder{tbl})
	return tbl
}

func (b *TableBuilder) Column(name string, ct attrbucket.ColumnType) {
	if name == "" {
		panic("empty column name")
	}
	if _, dup := b.tbl.columns[name]; dup {
		panic(fmt.Errorf("%s: duplicate column %q", b.tbl.name, name))
	}
	b.tbl.columns[name] = ct
	b.tbl.order = append(b.tbl.order, name)
}

func (tbl *Table) Name() string             { return tbl.name }
func (tbl *Table) String() string           { return tbl.name }
func (tbl *Table) Encoding() codec.Encoding { return tbl.encoding }
func (tbl *Table) ColumnNames() []string    { return slices.Clone(tbl.order) }

func (tbl *Table) ColumnType(column string) (attrbucket.ColumnType, bool) {
	ct, ok := tbl.columns[column]
	return ct, ok
}

// SerializeColumn registers column as holding an encoded bucket mapping.
func (tbl *Table) SerializeColumn(column string) error {
	ct, ok := tbl.columns[column]
	if !ok {
		return fmt.Errorf("%s: no column %q", tbl.name, column)
	}
	if !ct.IsSerializable() {
		return fmt.Errorf("%s.%s: %v column cannot be serialized", tbl.name, column, ct)
	}
	tbl.mu.Lock()
	defer tbl.mu.Unlock()
	tbl.serialized[column] = tbl.encoding
	return nil
}

// SerializedColumns returns the columns registered via SerializeColumn,
// sorted.
func (tbl *Table) SerializedColumns() []string {
	tbl.mu.RLock()
	defer tbl.mu.RUnlock()
	return slices.Sorted(maps.Keys(tbl.serialized))
}

func (tbl *Table) columnEncoding(column string) (codec.Encoding, bool) {
	tbl.mu.RLock()
	defer tbl.mu.RUnlock()
	enc, ok := tbl.serialized[column]
	return enc, ok
}
