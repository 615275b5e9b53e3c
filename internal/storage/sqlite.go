package storage

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Klingon-tech/klingnet-dex/internal/log"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS kv (
	k BLOB NOT NULL PRIMARY KEY,
	v BLOB NOT NULL
) WITHOUT ROWID;
`

// SQLiteDB implements DB on a single SQLite table.
type SQLiteDB struct {
	db *sql.DB
}

// NewSQLite opens (or creates) a SQLite database file at path.
func NewSQLite(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %s: %w", path, err)
	}
	// One connection serialises writers and keeps ":memory:" databases whole.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating sqlite schema: %w", err)
	}
	log.Storage.Debug().Str("backend", "sqlite").Str("path", path).Msg("Database opened")
	return &SQLiteDB{db: db}, nil
}

// Get retrieves a value by key.
func (s *SQLiteDB) Get(key []byte) ([]byte, error) {
	var val []byte
	err := s.db.QueryRow(`SELECT v FROM kv WHERE k = ?`, key).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite get: %w", err)
	}
	if val == nil {
		val = []byte{}
	}
	return val, nil
}

// Put stores a key-value pair.
func (s *SQLiteDB) Put(key, value []byte) error {
	if _, err := s.db.Exec(`INSERT OR REPLACE INTO kv (k, v) VALUES (?, ?)`, key, nonNil(value)); err != nil {
		return fmt.Errorf("sqlite put: %w", err)
	}
	return nil
}

// Delete removes a key.
func (s *SQLiteDB) Delete(key []byte) error {
	if _, err := s.db.Exec(`DELETE FROM kv WHERE k = ?`, key); err != nil {
		return fmt.Errorf("sqlite delete: %w", err)
	}
	return nil
}

// Has checks if a key exists.
func (s *SQLiteDB) Has(key []byte) (bool, error) {
	var one int
	err := s.db.QueryRow(`SELECT 1 FROM kv WHERE k = ?`, key).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("sqlite has: %w", err)
	}
	return true, nil
}

// ForEach iterates over all keys with the given prefix in key order.
// Rows are read completely before fn runs, so fn may write to the database.
func (s *SQLiteDB) ForEach(prefix []byte, fn func(key, value []byte) error) error {
	var (
		rows *sql.Rows
		err  error
	)
	if end := prefixEnd(prefix); end != nil {
		rows, err = s.db.Query(`SELECT k, v FROM kv WHERE k >= ? AND k < ? ORDER BY k`, nonNil(prefix), end)
	} else {
		rows, err = s.db.Query(`SELECT k, v FROM kv WHERE k >= ? ORDER BY k`, nonNil(prefix))
	}
	if err != nil {
		return fmt.Errorf("sqlite foreach: %w", err)
	}

	var entries []batchOp
	for rows.Next() {
		var e batchOp
		if err := rows.Scan(&e.key, &e.value); err != nil {
			rows.Close()
			return fmt.Errorf("sqlite foreach scan: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("sqlite foreach: %w", err)
	}
	rows.Close()

	for _, e := range entries {
		if err := fn(e.key, e.value); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database.
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// NewBatch creates an atomic batch committed in one SQL transaction.
func (s *SQLiteDB) NewBatch() Batch {
	return &sqliteBatch{db: s.db}
}

type sqliteBatch struct {
	db  *sql.DB
	ops []batchOp
}

func (sb *sqliteBatch) Put(key, value []byte) error {
	sb.ops = append(sb.ops, putOp(key, value))
	return nil
}

func (sb *sqliteBatch) Delete(key []byte) error {
	sb.ops = append(sb.ops, deleteOp(key))
	return nil
}

func (sb *sqliteBatch) Commit() error {
	tx, err := sb.db.Begin()
	if err != nil {
		return fmt.Errorf("sqlite batch begin: %w", err)
	}
	for _, op := range sb.ops {
		if op.value == nil {
			_, err = tx.Exec(`DELETE FROM kv WHERE k = ?`, op.key)
		} else {
			_, err = tx.Exec(`INSERT OR REPLACE INTO kv (k, v) VALUES (?, ?)`, op.key, op.value)
		}
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlite batch write: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite batch commit: %w", err)
	}
	sb.ops = nil
	return nil
}

// prefixEnd returns the smallest key greater than every key with the given
// prefix, or nil if there is none (empty or all-0xFF prefix).
func prefixEnd(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xFF {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}

// nonNil maps nil to an empty slice; the driver binds nil as SQL NULL.
func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
