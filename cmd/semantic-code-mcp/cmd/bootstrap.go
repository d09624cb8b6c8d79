package cmd

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aman-cerp/semantic-code-mcp/internal/config"
	"github.com/aman-cerp/semantic-code-mcp/internal/embed"
	"github.com/aman-cerp/semantic-code-mcp/internal/search"
	"github.com/aman-cerp/semantic-code-mcp/internal/store"
	"github.com/aman-cerp/semantic-code-mcp/internal/telemetry"
)

// projectID derives the stable project identifier from its root path, the
// same convention the indexer uses to key rows in the metadata store.
func projectID(root string) string {
	h := sha256.Sum256([]byte(root))
	return hex.EncodeToString(h[:])[:16]
}

// project bundles the open handles a command needs to read or write the
// index. Close releases them in reverse-acquisition order.
type project struct {
	Root     string
	DataDir  string
	Config   *config.Config
	Metadata store.MetadataStore
	BM25     store.BM25Index
	Vector   store.VectorStore
	Embedder embed.Embedder
	Engine   *search.Engine
	Metrics  *telemetry.QueryMetrics
}

func (p *project) Close() error {
	if p.Metrics != nil {
		_ = p.Metrics.Close()
	}
	if p.Embedder != nil {
		_ = p.Embedder.Close()
	}
	if p.Vector != nil {
		_ = p.Vector.Close()
	}
	if p.BM25 != nil {
		_ = p.BM25.Close()
	}
	if p.Metadata != nil {
		_ = p.Metadata.Close()
	}
	return nil
}

// resolveRoot turns the --root flag into an absolute, canonical project
// root; config.FindProjectRoot walks up for a .git directory or project
// config file.
func resolveRoot() (string, error) {
	abs, err := filepath.Abs(flagRootDir)
	if err != nil {
		return "", fmt.Errorf("resolve root: %w", err)
	}
	if root, err := config.FindProjectRoot(abs); err == nil {
		return root, nil
	}
	return abs, nil
}

// resolveDataDir honors an explicit --data-dir override, otherwise the
// configured index directory beneath the root.
func resolveDataDir(root string, cfg *config.Config) string {
	if flagDataDir != "" {
		abs, err := filepath.Abs(flagDataDir)
		if err == nil {
			return abs
		}
		return flagDataDir
	}
	if cfg != nil {
		return cfg.ResolveIndexDir(root)
	}
	return filepath.Join(root, config.DefaultIndexDir)
}

// metadataPath returns the path to the persisted metadata database, used to
// detect whether an index already exists.
func metadataPath(dataDir string) string {
	return filepath.Join(dataDir, "metadata.db")
}

func indexExists(dataDir string) bool {
	_, err := os.Stat(metadataPath(dataDir))
	return err == nil
}

// vectorPath returns the path to the persisted HNSW graph sidecar.
func vectorPath(dataDir string) string {
	return filepath.Join(dataDir, "vectors.hnsw")
}

// openProject opens every store and facade a search-side command needs
// against an existing index. It does not create the index if missing;
// callers decide whether to trigger indexing first (cmd/index.go) or in
// the background (cmd/mcp.go).
func openProject(ctx context.Context) (*project, error) {
	root, err := resolveRoot()
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(root)
	if err != nil {
		cfg = config.NewConfig()
	}
	dataDir := resolveDataDir(root, cfg)

	p := &project{Root: root, DataDir: dataDir, Config: cfg}

	p.Metadata, err = store.NewSQLiteStore(metadataPath(dataDir))
	if err != nil {
		return nil, fmt.Errorf("open metadata store: %w", err)
	}

	bm25Config := store.DefaultBM25Config()
	p.BM25, err = store.NewBM25IndexWithBackend(filepath.Join(dataDir, "bm25"), bm25Config, cfg.Search.BM25Backend)
	if err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("open BM25 index: %w", err)
	}

	if flagOffline {
		p.Embedder = embed.NewStaticEmbedder768()
	} else {
		provider := embed.ParseProvider(cfg.Embeddings.Provider)
		p.Embedder, err = embed.NewEmbedder(ctx, provider, cfg.Embeddings.Model)
		if err != nil && cfg.Embeddings.Provider == "" {
			// No provider configured: auto-detect falls back to static embeddings.
			p.Embedder, err = embed.NewStaticEmbedder768(), nil
		}
		if err != nil {
			_ = p.Close()
			return nil, fmt.Errorf("create embedder: %w", err)
		}
	}

	vecPath := vectorPath(dataDir)
	vectorCfg := store.DefaultVectorStoreConfig(p.Embedder.Dimensions())
	p.Vector, err = store.NewHNSWStore(vectorCfg)
	if err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("create vector store: %w", err)
	}
	if _, statErr := os.Stat(vecPath); statErr == nil {
		if loadErr := p.Vector.Load(vecPath); loadErr != nil {
			// Dimension mismatch or corruption: the error is dropped and the
			// vector store stays empty, so searches return no vector matches
			// (BM25 still works). `cache info` shows the index's model beside
			// the current one.
			_ = loadErr
		}
	}

	engineCfg := search.DefaultConfig()
	if cfg.Search.MaxResults > 0 {
		engineCfg.DefaultLimit = cfg.Search.MaxResults
	}
	if cfg.Search.BM25Weight > 0 || cfg.Search.SemanticWeight > 0 {
		engineCfg.DefaultWeights = search.Weights{BM25: cfg.Search.BM25Weight, Semantic: cfg.Search.SemanticWeight}
	}
	if cfg.Search.CandidateMultiplier > 0 {
		engineCfg.CandidateMultiplier = cfg.Search.CandidateMultiplier
	}
	var opts []search.EngineOption
	if cfg.Search.RerankEnabled {
		if reranker, rerankErr := search.NewCrossEncoderReranker(ctx, search.CrossEncoderConfig{
			Endpoint: cfg.Embeddings.RerankerEndpoint,
			Model:    cfg.Embeddings.RerankerModel,
		}); rerankErr == nil {
			opts = append(opts, search.WithReranker(reranker))
		}
	}
	if sqlite, ok := p.Metadata.(*store.SQLiteStore); ok {
		if err := store.InitTelemetrySchema(sqlite.DB()); err == nil {
			if metricsStore, err := telemetry.NewSQLiteMetricsStore(sqlite.DB()); err == nil {
				p.Metrics = telemetry.NewQueryMetrics(metricsStore)
				opts = append(opts, search.WithMetrics(p.Metrics))
			}
		}
	}

	p.Engine, err = search.NewEngine(p.BM25, p.Vector, p.Embedder, p.Metadata, engineCfg, opts...)
	if err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("build search engine: %w", err)
	}

	return p, nil
}
