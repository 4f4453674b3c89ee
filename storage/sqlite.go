// SQLite-backed document storage.
//
// Information Hiding:
// - SQLite connection management hidden behind DocumentStore
// - Schema details encapsulated
// - Thread-safe via sql.DB's built-in connection pooling

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SqliteStore implements DocumentStore backed by a SQLite database file,
// giving ingested documents a durable home independent of the filesystem
// layout of the ingestion pipeline.
type SqliteStore struct {
	db *sql.DB
}

// OpenSqlite opens or creates a SQLite database at the given path.
// Creates parent directories if they don't exist.
func OpenSqlite(path string) (*SqliteStore, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	store := &SqliteStore{db: db}
	if err := store.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// NewSqliteInMemory creates an in-memory database (useful for testing).
func NewSqliteInMemory() (*SqliteStore, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite: %w", err)
	}

	store := &SqliteStore{db: db}
	if err := store.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *SqliteStore) Close() error {
	return s.db.Close()
}

func (s *SqliteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS documents (
			source_id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			ingested_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_documents_ingested
		ON documents(ingested_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Put inserts or replaces a document. Content must be valid JSON.
func (s *SqliteStore) Put(ctx context.Context, sourceID string, content json.RawMessage) error {
	if !json.Valid(content) {
		return fmt.Errorf("document %s is not valid JSON", sourceID)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO documents (source_id, content, ingested_at) VALUES (?, ?, ?)`,
		sourceID, string(content), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to store document %s: %w", sourceID, err)
	}
	return nil
}

// Delete removes a document. Deleting a missing document is not an error.
func (s *SqliteStore) Delete(ctx context.Context, sourceID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE source_id = ?`, sourceID)
	if err != nil {
		return fmt.Errorf("failed to delete document %s: %w", sourceID, err)
	}
	return nil
}

// Load returns all stored documents keyed by source identifier.
func (s *SqliteStore) Load(ctx context.Context) (map[string]json.RawMessage, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT source_id, content FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("failed to load documents: %w", err)
	}
	defer rows.Close()

	docs := map[string]json.RawMessage{}
	for rows.Next() {
		var id, content string
		if err := rows.Scan(&id, &content); err != nil {
			return nil, fmt.Errorf("failed to scan document row: %w", err)
		}
		docs[id] = json.RawMessage(content)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}
	return docs, nil
}
