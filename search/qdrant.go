package search

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// QdrantConfig holds configuration for connecting to Qdrant.
type QdrantConfig struct {
	URL        string // e.g. "https://xyz.cloud.qdrant.io:6333" or "http://localhost:6333"
	APIKey     string
	Collection string
}

// QdrantSearcher implements Searcher backed by Qdrant. Query text is
// embedded with the configured Embedder before the vector query.
type QdrantSearcher struct {
	client     *qdrant.Client
	embedder   Embedder
	collection string
	logger     *zap.Logger

	healthGroup singleflight.Group
}

// parseQdrantURL extracts host, port, and TLS flag from a Qdrant URL.
// Accepts forms like "https://host:6333", "http://host:6333", or "host:6334".
func parseQdrantURL(rawURL string) (host string, port int, useTLS bool, err error) {
	u, parseErr := url.Parse(rawURL)
	if parseErr != nil || u.Host == "" {
		return "", 0, false, fmt.Errorf("search: invalid qdrant URL: %q", rawURL)
	}

	useTLS = u.Scheme == "https"
	host = u.Hostname()

	if portStr := u.Port(); portStr != "" {
		p, err := strconv.Atoi(portStr)
		if err != nil {
			return "", 0, false, fmt.Errorf("search: invalid port in qdrant URL: %q", portStr)
		}
		// If the user specified the REST port (6333), use the gRPC port (6334).
		if p == 6333 {
			port = 6334
		} else {
			port = p
		}
	} else {
		port = 6334
	}

	return host, port, useTLS, nil
}

// NewQdrantSearcher creates a QdrantSearcher and connects via gRPC.
func NewQdrantSearcher(cfg QdrantConfig, embedder Embedder, logger *zap.Logger) (*QdrantSearcher, error) {
	host, port, useTLS, err := parseQdrantURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("search: connect to qdrant at %s:%d: %w", host, port, err)
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &QdrantSearcher{
		client:     client,
		embedder:   embedder,
		collection: cfg.Collection,
		logger:     logger,
	}, nil
}

// Healthy checks connectivity to the Qdrant server. Concurrent callers
// share one in-flight check.
func (q *QdrantSearcher) Healthy(ctx context.Context) error {
	_, err, _ := q.healthGroup.Do("health", func() (interface{}, error) {
		checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		_, err := q.client.HealthCheck(checkCtx)
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("search: qdrant health check: %w", err)
	}
	return nil
}

// Search embeds the query and runs a vector query against the collection.
// The namespace and any filter become payload match conditions.
func (q *QdrantSearcher) Search(ctx context.Context, query, namespace string, topK int, filter *Filter) ([]Hit, error) {
	embedding, err := q.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search: embed query: %w", err)
	}

	var must []*qdrant.Condition
	if namespace != "" {
		must = append(must, qdrant.NewMatch("namespace", namespace))
	}
	if filter != nil {
		if filter.Category != "" && filter.Filename != "" {
			return nil, fmt.Errorf("search: category and filename filters are mutually exclusive")
		}
		if filter.Category != "" {
			must = append(must, qdrant.NewMatch("category", filter.Category))
		}
		if filter.Filename != "" {
			must = append(must, qdrant.NewMatch("original_filename", filter.Filename))
		}
	}

	var qdrantFilter *qdrant.Filter
	if len(must) > 0 {
		qdrantFilter = &qdrant.Filter{Must: must}
	}

	limit := uint64(topK)
	scored, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQueryDense(embedding),
		Filter:         qdrantFilter,
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("search: qdrant query: %w", err)
	}

	hits := make([]Hit, 0, len(scored))
	for _, sp := range scored {
		hit := Hit{
			ID:       pointID(sp.Id),
			Score:    sp.Score,
			Metadata: map[string]string{},
		}
		for key, value := range sp.Payload {
			if s := value.GetStringValue(); s != "" {
				hit.Metadata[key] = s
			}
		}
		hits = append(hits, hit)
	}

	q.logger.Debug("qdrant search complete", zap.String("query", query), zap.Int("hits", len(hits)))
	return hits, nil
}

// pointID renders a Qdrant point ID (uuid or numeric) as a string.
func pointID(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	if u := id.GetUuid(); u != "" {
		return u
	}
	return strconv.FormatUint(id.GetNum(), 10)
}
