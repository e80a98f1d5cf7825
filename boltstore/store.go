// Package boltstore persists the bucket columns of attrbucket records in a
// Bolt database.
//
// Each table is a root Bolt bucket. Record ids live in its "rows" sub-bucket,
// and every serialized column gets a "col:<name>" sub-bucket mapping the
// record id to the encoded bucket mapping.
package boltstore

import (
	"errors"
	"fmt"
	"slices"
	"time"
	"unsafe"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.etcd.io/bbolt"

	"github.com/andreyvit/attrbucket"
)

const rowsBucket = "rows"

var ErrNotFound = errors.New("record not found")

type DB struct {
	bdb    *bbolt.DB
	logger *zerolog.Logger
}

type Options struct {
	Logger    *zerolog.Logger
	IsTesting bool
	Timeout   time.Duration
}

func Open(path string, opt Options) (*DB, error) {
	bopt := *bbolt.DefaultOptions
	bopt.Timeout = 10 * time.Second
	if opt.Timeout != 0 {
		bopt.Timeout = opt.Timeout
	}
	if opt.IsTesting {
		bopt.NoSync = true
		bopt.NoFreelistSync = true
	} else {
		bopt.FreelistType = bbolt.FreelistMapType
	}

	bdb, err := bbolt.Open(path, 0666, &bopt)
	if err != nil {
		return nil, fmt.Errorf("boltstore: %w", err)
	}

	logger := opt.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &DB{bdb: bdb, logger: logger}, nil
}

func (db *DB) Bolt() *bbolt.DB {
	return db.bdb
}

func (db *DB) Close() error {
	return db.bdb.Close()
}

// NewID returns a fresh random record id.
func NewID() string {
	return uuid.NewString()
}

func columnBucket(column string) []byte {
	return []byte("col:" + column)
}

// Save writes the entity's bucket columns under id. Entities that implement
// attrbucket.ChangeSource only get their changed columns written, and have
// their changes cleared on success.
func (db *DB) Save(tbl *Table, id string, e attrbucket.Entity) error {
	columns := tbl.SerializedColumns()
	cs, tracked := e.(attrbucket.ChangeSource)
	if tracked {
		changed := cs.ChangedColumns()
		columns = slices.DeleteFunc(columns, func(c string) bool { return !slices.Contains(changed, c) })
	}
	bkts := e.AttrBuckets()

	err := db.bdb.Update(func(btx *bbolt.Tx) error {
		root, err := btx.CreateBucketIfNotExists(unsafeBytesFromString(tbl.name))
		if err != nil {
			return err
		}
		rows, err := root.CreateBucketIfNotExists([]byte(rowsBucket))
		if err != nil {
			return err
		}
		if err := rows.Put([]byte(id), []byte{}); err != nil {
			return err
		}
		for _, column := range columns {
			enc, _ := tbl.columnEncoding(column)
			data, err := enc.EncodeBucket(bkts.Snapshot(column))
			if err != nil {
				return fmt.Errorf("%s.%s: %w", tbl.name, column, err)
			}
			cb, err := root.CreateBucketIfNotExists(columnBucket(column))
			if err != nil {
				return err
			}
			if err := cb.Put([]byte(id), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("boltstore: saving %s/%s: %w", tbl.name, id, err)
	}

	db.logger.Debug().Str("table", tbl.name).Str("id", id).Strs("columns", columns).Msg("saved")
	if tracked {
		cs.ClearChanges()
	}
	return nil
}

// Load reads the record with the given id into e, replacing the content of
// every bucket column declared on its record type. It returns false if there
// is no such record.
func (db *DB) Load(tbl *Table, id string, e attrbucket.Entity) (bool, error) {
	decl := e.BucketRecordType().Declaration()
	loaded := make(map[string]map[string]any)

	err := db.bdb.View(func(btx *bbolt.Tx) error {
		root := btx.Bucket(unsafeBytesFromString(tbl.name))
		if root == nil {
			return ErrNotFound
		}
		rows := root.Bucket([]byte(rowsBucket))
		if rows == nil || rows.Get([]byte(id)) == nil {
			return ErrNotFound
		}
		for _, column := range decl.Columns() {
			enc, ok := tbl.columnEncoding(column)
			if !ok {
				return fmt.Errorf("%s.%s: column is not serialized", tbl.name, column)
			}
			var data []byte
			if cb := root.Bucket(columnBucket(column)); cb != nil {
				data = cb.Get([]byte(id))
			}
			m, err := enc.DecodeBucket(data, decl.TypeOf)
			if err != nil {
				return fmt.Errorf("%s.%s: %w", tbl.name, column, err)
			}
			loaded[column] = m
		}
		return nil
	})
	if errors.Is(err, ErrNotFound) {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("boltstore: loading %s/%s: %w", tbl.name, id, err)
	}

	for column, m := range loaded {
		if err := attrbucket.Load(e, column, m); err != nil {
			return false, err
		}
	}
	if cs, ok := e.(attrbucket.ChangeSource); ok {
		cs.ClearChanges()
	}
	db.logger.Debug().Str("table", tbl.name).Str("id", id).Int("columns", len(loaded)).Msg("loaded")
	return true, nil
}

// Delete removes the record and all of its bucket columns. It returns false
// if there was no such record.
func (db *DB) Delete(tbl *Table, id string) (bool, error) {
	var found bool
	err := db.bdb.Update(func(btx *bbolt.Tx) error {
		root := btx.Bucket(unsafeBytesFromString(tbl.name))
		if root == nil {
			return nil
		}
		rows := root.Bucket([]byte(rowsBucket))
		if rows == nil || rows.Get([]byte(id)) == nil {
			return nil
		}
		found = true
		if err := rows.Delete([]byte(id)); err != nil {
			return err
		}
		for _, column := range tbl.ColumnNames() {
			if cb := root.Bucket(columnBucket(column)); cb != nil {
				if err := cb.Delete([]byte(id)); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("boltstore: deleting %s/%s: %w", tbl.name, id, err)
	}
	if found {
		db.logger.Debug().Str("table", tbl.name).Str("id", id).Msg("deleted")
	}
	return found, nil
}

// IDs returns the ids of all records in the table, in byte order.
func (db *DB) IDs(tbl *Table) ([]string, error) {
	var ids []string
	err := db.bdb.View(func(btx *bbolt.Tx) error {
		root := btx.Bucket(unsafeBytesFromString(tbl.name))
		if root == nil {
			return nil
		}
		rows := root.Bucket([]byte(rowsBucket))
		if rows == nil {
			return nil
		}
		c := rows.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			ids = append(ids, string(k))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("boltstore: listing %s: %w", tbl.name, err)
	}
	return ids, nil
}

// RawColumn returns a copy of the encoded bucket stored for the record, or
// nil if there is none.
func (db *DB) RawColumn(tbl *Table, id, column string) ([]byte, error) {
	var data []byte
	err := db.bdb.View(func(btx *bbolt.Tx) error {
		root := btx.Bucket(unsafeBytesFromString(tbl.name))
		if root == nil {
			return nil
		}
		if cb := root.Bucket(columnBucket(column)); cb != nil {
			if v := cb.Get([]byte(id)); v != nil {
				data = append([]byte(nil), v...)
			}
		}
		return nil
	})
	return data, err
}

// unsafeBytesFromString must only be used for bucket names, which Bolt
// copies when creating buckets.
func unsafeBytesFromString(s string) []byte {
	return unsafe.Slice(unsafe.StringData(s), len(s))
}
