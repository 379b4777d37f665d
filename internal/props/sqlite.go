package props

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLite is the durable Store. One table, key-ordered; prefix scans
// ride the primary key index. Safe for a single process only — there
// is deliberately no cross-process locking.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the properties database at
// dbPath.
func OpenSQLite(dbPath string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open properties db %s: %w", dbPath, err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS properties (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)
	`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create properties table: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) Get(key string) (string, bool, error) {
	var v string
	err := s.db.QueryRow("SELECT value FROM properties WHERE key = ?", key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return v, true, nil
}

func (s *SQLite) Set(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO properties (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (s *SQLite) Delete(key string) error {
	if _, err := s.db.Exec("DELETE FROM properties WHERE key = ?", key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// likePattern escapes LIKE metacharacters so a prefix is matched
// literally.
func likePattern(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(prefix) + "%"
}

func (s *SQLite) List(prefix string) ([]KV, error) {
	rows, err := s.db.Query(
		`SELECT key, value FROM properties WHERE key LIKE ? ESCAPE '\' ORDER BY key`,
		likePattern(prefix))
	if err != nil {
		return nil, fmt.Errorf("list %s*: %w", prefix, err)
	}
	defer func() { _ = rows.Close() }()

	var out []KV
	for rows.Next() {
		var kv KV
		if err := rows.Scan(&kv.Key, &kv.Value); err != nil {
			return nil, fmt.Errorf("scan property: %w", err)
		}
		out = append(out, kv)
	}
	return out, rows.Err()
}

// Replace swaps all entries under prefix in a single transaction.
func (s *SQLite) Replace(prefix string, entries []KV) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer func() { _ = tx.Rollback() }() // no-op if committed

	if _, err := tx.Exec(`DELETE FROM properties WHERE key LIKE ? ESCAPE '\'`, likePattern(prefix)); err != nil {
		return fmt.Errorf("clear %s*: %w", prefix, err)
	}
	stmt, err := tx.Prepare("INSERT INTO properties (key, value) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, e := range entries {
		if _, err := stmt.Exec(e.Key, e.Value); err != nil {
			return fmt.Errorf("write %s: %w", e.Key, err)
		}
	}
	return tx.Commit()
}
