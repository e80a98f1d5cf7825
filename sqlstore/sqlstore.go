// Package sqlstore persists the bucket columns of attrbucket records in
// SQLite tables, introspecting column types from the live schema.
package sqlstore

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/andreyvit/attrbucket/codec"
)

var ErrNotFound = errors.New("record not found")

// DB wraps a SQLite database connection.
type DB struct {
	*sql.DB
	logger   *zerolog.Logger
	encoding codec.Encoding
}

type Options struct {
	Logger *zerolog.Logger
	// Encoding of bucket columns in tables opened via this DB.
	Encoding codec.Encoding
}

// Open creates a new SQLite database connection.
func Open(path string, opt Options) (*DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	logger := opt.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &DB{DB: db, logger: logger, encoding: opt.Encoding}, nil
}

// NewID returns a fresh random record id.
func NewID() string {
	return uuid.NewString()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
