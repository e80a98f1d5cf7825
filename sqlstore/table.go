package sqlstore

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/andreyvit/attrbucket"
	"github.com/andreyvit/attrbucket/codec"
)

// Table is an attrbucket.Schema over a live SQLite table.
type Table struct {
	db       *DB
	name     string
	pk       string
	encoding codec.Encoding
	columns  map[string]attrbucket.ColumnType
	declared map[string]string

	mu         sync.RWMutex
	serialized map[string]bool
}

// Table introspects the named table. It must exist and have a single-column
// primary key.
func (db *DB) Table(ctx context.Context, name string) (*Table, error) {
	rows, err := db.QueryContext(ctx, "PRAGMA table_info("+quoteIdent(name)+")")
	if err != nil {
		return nil, fmt.Errorf("introspect %s: %w", name, err)
	}
	defer rows.Close()

	tbl := &Table{
		db:         db,
		name:       name,
		encoding:   db.encoding,
		columns:    make(map[string]attrbucket.ColumnType),
		declared:   make(map[string]string),
		serialized: make(map[string]bool),
	}
	var pks []string
	for rows.Next() {
		var (
			cid       int
			column    string
			declType  string
			notNull   int
			dfltValue any
			pk        int
		)
		if err := rows.Scan(&cid, &column, &declType, &notNull, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("scan %s column: %w", name, err)
		}
		tbl.columns[column] = ColumnTypeOf(declType)
		tbl.declared[column] = declType
		if pk > 0 {
			pks = append(pks, column)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("introspect %s: %w", name, err)
	}
	if len(tbl.columns) == 0 {
		return nil, fmt.Errorf("table %s does not exist", name)
	}
	if len(pks) != 1 {
		return nil, fmt.Errorf("table %s must have a single-column primary key, has %d", name, len(pks))
	}
	tbl.pk = pks[0]

	db.logger.Debug().Str("table", name).Int("columns", len(tbl.columns)).Str("pk", tbl.pk).Msg("table introspected")
	return tbl, nil
}

// ColumnTypeOf maps a declared SQLite column type to a ColumnType, following
// SQLite's affinity rules and the common type names that carry more meaning.
func ColumnTypeOf(declType string) attrbucket.ColumnType {
	t := strings.ToUpper(declType)
	switch {
	case strings.Contains(t, "JSON"):
		return attrbucket.ColumnJSON
	case strings.Contains(t, "BOOL"):
		return attrbucket.ColumnBoolean
	case strings.Contains(t, "INT"):
		return attrbucket.ColumnInteger
	case strings.Contains(t, "CHAR"):
		return attrbucket.ColumnString
	case strings.Contains(t, "CLOB"), strings.Contains(t, "TEXT"):
		return attrbucket.ColumnText
	case t == "", strings.Contains(t, "BLOB"):
		return attrbucket.ColumnBinary
	case strings.Contains(t, "REAL"), strings.Contains(t, "FLOA"), strings.Contains(t, "DOUB"):
		return attrbucket.ColumnFloat
	case strings.Contains(t, "DATETIME"), strings.Contains(t, "TIMESTAMP"):
		return attrbucket.ColumnDatetime
	case strings.Contains(t, "DATE"):
		return attrbucket.ColumnDate
	case strings.Contains(t, "TIME"):
		return attrbucket.ColumnTime
	default:
		return attrbucket.ColumnDecimal
	}
}

func (tbl *Table) Name() string       { return tbl.name }
func (tbl *Table) PrimaryKey() string { return tbl.pk }

func (tbl *Table) ColumnType(column string) (attrbucket.ColumnType, bool) {
	ct, ok := tbl.columns[column]
	return ct, ok
}

// DeclaredType returns the column type exactly as written in the schema.
func (tbl *Table) DeclaredType(column string) string {
	return tbl.declared[column]
}

// SerializeColumn registers column as holding an encoded bucket mapping.
// MsgPack buckets are bound as blobs, which SQLite keeps as-is even in
// TEXT columns.
func (tbl *Table) SerializeColumn(column string) error {
	ct, ok := tbl.columns[column]
	if !ok {
		return fmt.Errorf("%s: no column %q", tbl.name, column)
	}
	if column == tbl.pk {
		return fmt.Errorf("%s.%s: primary key cannot hold a bucket", tbl.name, column)
	}
	if !ct.IsSerializable() {
		return fmt.Errorf("%s.%s: %v column cannot be serialized", tbl.name, column, ct)
	}
	tbl.mu.Lock()
	defer tbl.mu.Unlock()
	tbl.serialized[column] = true
	return nil
}

func (tbl *Table) SerializedColumns() []string {
	tbl.mu.RLock()
	defer tbl.mu.RUnlock()
	return slices.Sorted(maps.Keys(tbl.serialized))
}

func (tbl *Table) isSerialized(column string) bool {
	tbl.mu.RLock()
	defer tbl.mu.RUnlock()
	return tbl.serialized[column]
}
