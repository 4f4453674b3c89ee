package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// DirStore reads documents from a directory of JSON files, one file per
// ingested document. This matches the layout the ingestion pipeline writes
// to: processed/<original-name>.json.
type DirStore struct {
	dir    string
	logger *zap.Logger
}

// NewDirStore creates a DirStore over the given directory. A nil logger is
// replaced with a no-op logger.
func NewDirStore(dir string, logger *zap.Logger) *DirStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirStore{dir: dir, logger: logger}
}

// Load reads every *.json file in the directory, keyed by base filename.
// Files that are unreadable or contain invalid JSON are skipped with a log
// line rather than failing the whole load. A missing directory yields an
// empty map.
func (s *DirStore) Load(ctx context.Context) (map[string]json.RawMessage, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan document directory %s: %w", s.dir, err)
	}

	docs := make(map[string]json.RawMessage, len(matches))
	for _, path := range matches {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		data, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn("skipping unreadable document", zap.String("path", path), zap.Error(err))
			continue
		}
		if !json.Valid(data) {
			s.logger.Warn("skipping invalid JSON document", zap.String("path", path))
			continue
		}
		docs[filepath.Base(path)] = json.RawMessage(data)
	}

	s.logger.Info("loaded documents", zap.String("dir", s.dir), zap.Int("count", len(docs)))
	return docs, nil
}
