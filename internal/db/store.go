package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS definitions (
	word TEXT PRIMARY KEY,
	definition TEXT NOT NULL,
	createdAt REAL NOT NULL
);`

// Store caches definitions across runs.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// DefaultDBPath returns the default database path.
func DefaultDBPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".livenotes", "definitions.sqlite")
}

// Open opens (creating if needed) the database in WAL mode.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Verify connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Lookup returns the cached definition for word, or nil if there is none.
func (s *Store) Lookup(word string) (*Definition, error) {
	row := s.db.QueryRow(`
		SELECT word, definition, createdAt
		FROM definitions
		WHERE word = ?
	`, normalizeWord(word))

	var d Definition
	var createdAt float64
	if err := row.Scan(&d.Word, &d.Text, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan definition: %w", err)
	}
	d.CreatedAt = timeFromUnix(createdAt)
	return &d, nil
}

// Save stores or replaces the definition for word.
func (s *Store) Save(word, text string) error {
	ts := float64(s.now().UnixNano()) / 1e9
	_, err := s.db.Exec(`
		INSERT INTO definitions (word, definition, createdAt)
		VALUES (?, ?, ?)
		ON CONFLICT(word) DO UPDATE SET definition = excluded.definition, createdAt = excluded.createdAt
	`, normalizeWord(word), text, ts)
	if err != nil {
		return fmt.Errorf("save definition: %w", err)
	}
	return nil
}

// CachedDefinition adapts Lookup to the lookup package's store contract.
func (s *Store) CachedDefinition(word string) (string, bool, error) {
	d, err := s.Lookup(word)
	if err != nil || d == nil {
		return "", false, err
	}
	return d.Text, true, nil
}

// SaveDefinition adapts Save to the lookup package's store contract.
func (s *Store) SaveDefinition(word, text string) error {
	return s.Save(word, text)
}

// Count returns the number of cached definitions.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM definitions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count definitions: %w", err)
	}
	return n, nil
}

func normalizeWord(word string) string {
	return strings.ToLower(strings.TrimSpace(word))
}

func timeFromUnix(ts float64) time.Time {
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}
