package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/logscout/logscout/internal/errors"
)

// CorpusStore persists the indexed log corpus and extracted metadata in
// SQLite so indexing and querying can happen in separate process runs.
type CorpusStore struct {
	db *sql.DB
}

const corpusSchema = `
CREATE TABLE IF NOT EXISTS documents (
	rowid     INTEGER PRIMARY KEY AUTOINCREMENT,
	id        TEXT UNIQUE NOT NULL,
	text      TEXT NOT NULL,
	service   TEXT NOT NULL DEFAULT '',
	level     TEXT NOT NULL DEFAULT '',
	error_type TEXT NOT NULL DEFAULT '',
	component TEXT NOT NULL DEFAULT '',
	severity  REAL NOT NULL DEFAULT 0.3
);
CREATE INDEX IF NOT EXISTS idx_documents_level ON documents(level);
CREATE INDEX IF NOT EXISTS idx_documents_service ON documents(service);

CREATE TABLE IF NOT EXISTS state (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// OpenCorpusStore opens (creating if needed) the corpus database at path.
func OpenCorpusStore(path string) (*CorpusStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCorpusLoad, "create corpus directory")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCorpusLoad, "open corpus database")
	}
	// Single writer keeps transactions simple with the pure Go driver.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, errors.Wrapf(err, errors.ErrCodeCorpusLoad, "apply %s", pragma)
		}
	}

	if _, err := db.Exec(corpusSchema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.ErrCodeStoreCorrupt, "create corpus schema")
	}
	return &CorpusStore{db: db}, nil
}

// SaveDocuments upserts documents in a single transaction.
func (s *CorpusStore) SaveDocuments(ctx context.Context, docs []Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO documents (id, text, service, level, error_type, component, severity)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			text=excluded.text, service=excluded.service, level=excluded.level,
			error_type=excluded.error_type, component=excluded.component,
			severity=excluded.severity`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, doc := range docs {
		md := doc.Metadata
		if _, err := stmt.ExecContext(ctx, doc.ID, doc.Text,
			md.Service, md.Level, md.ErrorType, md.Component, md.SeverityScore); err != nil {
			return fmt.Errorf("upsert document %s: %w", doc.ID, err)
		}
	}
	return tx.Commit()
}

// LoadDocuments returns the full corpus in insertion order.
func (s *CorpusStore) LoadDocuments(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, text, service, level, error_type, component, severity
		FROM documents ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var doc Document
		if err := rows.Scan(&doc.ID, &doc.Text,
			&doc.Metadata.Service, &doc.Metadata.Level, &doc.Metadata.ErrorType,
			&doc.Metadata.Component, &doc.Metadata.SeverityScore); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Count returns the number of stored documents.
func (s *CorpusStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n)
	return n, err
}

// LevelCounts returns the number of documents per log level. Documents
// with no extracted level are keyed by the empty string.
func (s *CorpusStore) LevelCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT level, COUNT(*) FROM documents GROUP BY level`)
	if err != nil {
		return nil, fmt.Errorf("query level counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var level string
		var n int
		if err := rows.Scan(&level, &n); err != nil {
			return nil, err
		}
		counts[level] = n
	}
	return counts, rows.Err()
}

// GetState reads a state value. Missing keys return ("", nil).
func (s *CorpusStore) GetState(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM state WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// SetState writes a state value.
func (s *CorpusStore) SetState(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO state (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value`, key, value)
	return err
}

// Close closes the database.
func (s *CorpusStore) Close() error {
	return s.db.Close()
}
