package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const currentSchemaVersion = 1

// SQLiteStore keeps the profile document in a single-row table. Replacing
// the row happens inside a transaction, so readers see either the old or
// the new document.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	locked bool
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := OpenDB(dbPath)
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db, path: dbPath}, nil
}

func OpenDB(dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("creating parent directories: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if err := migrateSchema(db, dbPath); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func migrateSchema(db *sql.DB, dbPath string) error {
	var tableName string
	err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&tableName)

	var version int
	if errors.Is(err, sql.ErrNoRows) {
		version = 0
	} else if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	} else if err := db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("reading schema version: %w", err)
	}

	if version > currentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported (max: %d); upgrade go-ontrack or move %s away",
			version, currentSchemaVersion, dbPath)
	}
	if version == 0 {
		if err := migrateV0ToV1(db); err != nil {
			return fmt.Errorf("migration v0→v1: %w", err)
		}
	}
	return nil
}

func migrateV0ToV1(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	statements := []string{
		`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`,
		`INSERT INTO schema_version (version) VALUES (1)`,
		`CREATE TABLE IF NOT EXISTS profile_snapshot (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			data BLOB NOT NULL,
			saved_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS profile_quarantine (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			data BLOB NOT NULL,
			saved_at TEXT NOT NULL,
			quarantined_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS writer_lock (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			pid INTEGER NOT NULL,
			acquired_at TEXT NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("applying %q: %w", firstLine(stmt), err)
		}
	}
	return tx.Commit()
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' || r == '(' {
			return s[:i]
		}
	}
	return s
}

func (s *SQLiteStore) Location() string { return "sqlite:" + s.path }

func (s *SQLiteStore) Load() ([]byte, error) {
	var data []byte
	err := s.db.QueryRow("SELECT data FROM profile_snapshot WHERE id = 1").Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading profile snapshot: %w", err)
	}
	return data, nil
}

func (s *SQLiteStore) Save(data []byte) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(`INSERT INTO profile_snapshot (id, data, saved_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data, saved_at = excluded.saved_at`,
		data, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("writing profile snapshot: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) Quarantine() (string, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("starting transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(`INSERT INTO profile_quarantine (data, saved_at, quarantined_at)
		SELECT data, saved_at, ? FROM profile_snapshot WHERE id = 1`,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return "", fmt.Errorf("copying profile snapshot: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return "", ErrNotFound
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("reading quarantine id: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM profile_snapshot WHERE id = 1"); err != nil {
		return "", fmt.Errorf("removing profile snapshot: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s#profile_quarantine/%d", s.Location(), id), nil
}

// Lock records this process as the writer. A row left behind by a process
// that no longer exists is taken over.
func (s *SQLiteStore) Lock() error {
	if s.locked {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var pid int
	err = tx.QueryRow("SELECT pid FROM writer_lock WHERE id = 1").Scan(&pid)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("reading writer lock: %w", err)
	case pid != os.Getpid() && processAlive(pid):
		return ErrLocked
	}

	_, err = tx.Exec(`INSERT INTO writer_lock (id, pid, acquired_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET pid = excluded.pid, acquired_at = excluded.acquired_at`,
		os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("writing writer lock: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.locked = true
	return nil
}

func (s *SQLiteStore) Close() error {
	if s.locked {
		if _, err := s.db.Exec("DELETE FROM writer_lock WHERE id = 1 AND pid = ?", os.Getpid()); err != nil {
			_ = s.db.Close()
			return fmt.Errorf("releasing writer lock: %w", err)
		}
		s.locked = false
	}
	return s.db.Close()
}
