// Package search provides the semantic-search collaborator over the
// knowledge base of ingested document chunks.
package search

import "context"

// Hit is one semantic-search result.
type Hit struct {
	ID       string
	Score    float32
	Metadata map[string]string
}

// Filter restricts a search to a document category or an original filename.
// At most one field may be set.
type Filter struct {
	Category string
	Filename string
}

// Searcher is the vector-search collaborator. A nil filter searches the
// whole namespace.
type Searcher interface {
	Search(ctx context.Context, query, namespace string, topK int, filter *Filter) ([]Hit, error)
}

// Embedder converts query text into an embedding vector. The knowledge base
// is indexed with the same embedder at ingestion time.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
