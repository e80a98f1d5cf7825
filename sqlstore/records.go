package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/andreyvit/attrbucket"
)

func (tbl *Table) encode(e attrbucket.Entity, column string) (any, error) {
	data, err := tbl.encoding.EncodeBucket(e.AttrBuckets().Snapshot(column))
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %w", tbl.name, column, err)
	}
	if tbl.encoding.IsText() {
		return string(data), nil
	}
	return data, nil
}

// Insert stores a new record with a fresh id and all of its bucket columns.
func (tbl *Table) Insert(ctx context.Context, e attrbucket.Entity) (string, error) {
	id := NewID()
	columns := tbl.SerializedColumns()

	names := []string{quoteIdent(tbl.pk)}
	args := []any{id}
	for _, column := range columns {
		v, err := tbl.encode(e, column)
		if err != nil {
			return "", err
		}
		names = append(names, quoteIdent(column))
		args = append(args, v)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(args)), ", ")
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quoteIdent(tbl.name), strings.Join(names, ", "), placeholders)

	if _, err := tbl.db.ExecContext(ctx, query, args...); err != nil {
		return "", fmt.Errorf("insert %s: %w", tbl.name, err)
	}
	if cs, ok := e.(attrbucket.ChangeSource); ok {
		cs.ClearChanges()
	}
	tbl.db.logger.Debug().Str("table", tbl.name).Str("id", id).Strs("columns", columns).Msg("inserted")
	return id, nil
}

// Update writes the bucket columns of an existing record. Entities that
// implement attrbucket.ChangeSource only get their changed columns written;
// when nothing changed, no statement is executed.
func (tbl *Table) Update(ctx context.Context, id string, e attrbucket.Entity) error {
	columns := tbl.SerializedColumns()
	cs, tracked := e.(attrbucket.ChangeSource)
	if tracked {
		changed := cs.ChangedColumns()
		columns = slices.DeleteFunc(columns, func(c string) bool { return !slices.Contains(changed, c) })
	}
	if len(columns) == 0 {
		return nil
	}

	sets := make([]string, 0, len(columns))
	args := make([]any, 0, len(columns)+1)
	for _, column := range columns {
		v, err := tbl.encode(e, column)
		if err != nil {
			return err
		}
		sets = append(sets, quoteIdent(column)+" = ?")
		args = append(args, v)
	}
	args = append(args, id)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?", quoteIdent(tbl.name), strings.Join(sets, ", "), quoteIdent(tbl.pk))

	res, err := tbl.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", tbl.name, id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update %s/%s: %w", tbl.name, id, ErrNotFound)
	}
	if tracked {
		cs.ClearChanges()
	}
	tbl.db.logger.Debug().Str("table", tbl.name).Str("id", id).Strs("columns", columns).Msg("updated")
	return nil
}

// Load reads the bucket columns declared on the entity's record type. It
// returns false if there is no such record.
func (tbl *Table) Load(ctx context.Context, id string, e attrbucket.Entity) (bool, error) {
	decl := e.BucketRecordType().Declaration()
	columns := decl.Columns()
	if len(columns) == 0 {
		return false, fmt.Errorf("load %s: record type %v declares no buckets", tbl.name, e.BucketRecordType())
	}
	for _, column := range columns {
		if !tbl.isSerialized(column) {
			return false, fmt.Errorf("load %s: column %s is not serialized", tbl.name, column)
		}
	}

	names := make([]string, len(columns))
	for i, column := range columns {
		names[i] = quoteIdent(column)
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?", strings.Join(names, ", "), quoteIdent(tbl.name), quoteIdent(tbl.pk))

	raw := make([][]byte, len(columns))
	dest := make([]any, len(columns))
	for i := range raw {
		dest[i] = &raw[i]
	}
	err := tbl.db.QueryRowContext(ctx, query, id).Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("load %s/%s: %w", tbl.name, id, err)
	}

	for i, column := range columns {
		m, err := tbl.encoding.DecodeBucket(raw[i], decl.TypeOf)
		if err != nil {
			return false, fmt.Errorf("load %s/%s: %s: %w", tbl.name, id, column, err)
		}
		if err := attrbucket.Load(e, column, m); err != nil {
			return false, err
		}
	}
	if cs, ok := e.(attrbucket.ChangeSource); ok {
		cs.ClearChanges()
	}
	tbl.db.logger.Debug().Str("table", tbl.name).Str("id", id).Int("columns", len(columns)).Msg("loaded")
	return true, nil
}
