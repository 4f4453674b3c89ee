// Command execution for CLI commands.
//
// Information Hiding:
// - Agent wiring and collaborator setup hidden
// - Output formatting hidden

package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/coderttxi/invoicecopilot/agent"
	"github.com/coderttxi/invoicecopilot/config"
	"github.com/coderttxi/invoicecopilot/llm"
	"github.com/coderttxi/invoicecopilot/observability"
	"github.com/coderttxi/invoicecopilot/search"
	"github.com/coderttxi/invoicecopilot/storage"
)

// Options holds CLI execution options.
type Options struct {
	Provider string
	MaxIter  int
	Verbose  bool
}

// runtime bundles the wired agent with its lifecycle handles.
type runtime struct {
	agent    *agent.Agent
	maxIter  int
	logger   *zap.Logger
	shutdown observability.Shutdown
}

func (r *runtime) close() {
	_ = r.shutdown(context.Background())
	_ = r.logger.Sync()
}

// Ask processes a single request and prints the final response.
func Ask(ctx context.Context, query string, opts Options) error {
	rt, err := buildRuntime(ctx, opts)
	if err != nil {
		return err
	}
	defer rt.close()

	response, err := rt.agent.ProcessRequest(ctx, query, rt.maxIter)
	if err != nil {
		return err
	}
	fmt.Println(response)
	return nil
}

// Chat runs an interactive loop, processing one request per line.
func Chat(ctx context.Context, opts Options) error {
	rt, err := buildRuntime(ctx, opts)
	if err != nil {
		return err
	}
	defer rt.close()

	fmt.Println("Invoice Copilot - type a request, or 'exit' to quit.")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}

		response, err := rt.agent.ProcessRequest(ctx, line, rt.maxIter)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}
		fmt.Println(response)
		fmt.Println()
	}
	return scanner.Err()
}

// buildRuntime wires the agent from settings and environment configuration.
func buildRuntime(ctx context.Context, opts Options) (*runtime, error) {
	settings, err := config.New(opts.Provider)
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(opts.Verbose)
	if err != nil {
		return nil, err
	}

	provider, err := createProvider(settings)
	if err != nil {
		return nil, err
	}

	shutdown, err := observability.Init(ctx,
		settings.Observability.Endpoint, "invoicecopilot", "1.0.0",
		settings.Observability.Insecure)
	if err != nil {
		logger.Warn("tracing setup failed", zap.Error(err))
		shutdown = func(context.Context) error { return nil }
	}

	a := agent.New(llm.NewClient(provider), settings.Agent.WorkingDir, logger).
		WithStore(createStore(settings, logger)).
		WithTracker(createTracker(settings, logger))

	if searcher := createSearcher(settings, logger); searcher != nil {
		a = a.WithSearcher(searcher, settings.Search.Namespace)
	}

	maxIter := opts.MaxIter
	if maxIter <= 0 {
		maxIter = settings.Agent.MaxIterations
	}
	return &runtime{agent: a, maxIter: maxIter, logger: logger, shutdown: shutdown}, nil
}

func createProvider(settings config.Settings) (llm.Provider, error) {
	providerType, err := llm.ParseProviderType(settings.LLM.Provider)
	if err != nil {
		return nil, err
	}
	return llm.NewProviderBuilder(providerType).
		Model(settings.LLM.Model).
		MaxTokens(settings.LLM.MaxTokens).
		Temperature(float32(settings.LLM.Temperature)).
		FromEnv()
}

// createStore prefers the SQLite store when a database path is configured,
// falling back to the processed-files directory.
func createStore(settings config.Settings, logger *zap.Logger) storage.DocumentStore {
	if settings.Storage.DBPath != "" {
		store, err := storage.OpenSqlite(settings.Storage.DBPath)
		if err == nil {
			return store
		}
		logger.Warn("sqlite store unavailable, falling back to directory store",
			zap.String("path", settings.Storage.DBPath), zap.Error(err))
	}
	return storage.NewDirStore(settings.Storage.ProcessedDir, logger)
}

func createSearcher(settings config.Settings, logger *zap.Logger) search.Searcher {
	if settings.Search.QdrantURL == "" {
		return nil
	}
	embedder := search.NewOpenAIEmbedder(os.Getenv("OPENAI_API_KEY"), settings.Search.EmbeddingModel)
	searcher, err := search.NewQdrantSearcher(search.QdrantConfig{
		URL:        settings.Search.QdrantURL,
		APIKey:     settings.Search.QdrantAPIKey,
		Collection: settings.Search.Collection,
	}, embedder, logger)
	if err != nil {
		logger.Warn("qdrant setup failed, search disabled", zap.Error(err))
		return nil
	}
	return searcher
}

func createTracker(settings config.Settings, logger *zap.Logger) observability.Tracker {
	if settings.Observability.Endpoint == "" {
		return observability.NoopTracker{}
	}
	return observability.NewOTelTracker(logger)
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}
