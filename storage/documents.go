// Package storage provides access to ingested invoice documents.
//
// Information Hiding:
// - Where documents live (directory of JSON files, SQLite) hidden behind
//   the DocumentStore interface
// - The orchestrator only needs "give me everything available" semantics
package storage

import (
	"context"
	"encoding/json"
)

// DocumentStore exposes all ingested documents as a mapping from source
// identifier (typically the original filename) to its parsed JSON record.
type DocumentStore interface {
	// Load returns every available document. An empty map means no data has
	// been ingested yet; that is not an error.
	Load(ctx context.Context) (map[string]json.RawMessage, error)
}

// MemoryStore is an in-memory DocumentStore, used in tests and as a seed
// store for pre-supplied data.
type MemoryStore struct {
	docs map[string]json.RawMessage
}

// NewMemoryStore creates a MemoryStore with the given documents.
func NewMemoryStore(docs map[string]json.RawMessage) *MemoryStore {
	if docs == nil {
		docs = map[string]json.RawMessage{}
	}
	return &MemoryStore{docs: docs}
}

// Load returns a copy of the stored documents.
func (m *MemoryStore) Load(ctx context.Context) (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(m.docs))
	for k, v := range m.docs {
		out[k] = v
	}
	return out, nil
}

// MarshalDataset renders a document map as indented JSON suitable for
// embedding in a prompt. Map keys marshal in sorted order, so the rendering
// is stable across calls.
func MarshalDataset(docs map[string]json.RawMessage) (string, error) {
	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
