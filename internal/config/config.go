package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ProjectType identifies the kind of project rooted at a directory,
// detected from its marker files.
type ProjectType string

const (
	ProjectTypeGo      ProjectType = "go"
	ProjectTypeNode    ProjectType = "node"
	ProjectTypePython  ProjectType = "python"
	ProjectTypeUnknown ProjectType = "unknown"
)

// Config is the complete engine configuration. Values are layered:
// built-in defaults, then the user config file, then the project
// config file, then SEMCODE_* environment variables.
type Config struct {
	Version     int               `yaml:"version" json:"version"`
	Paths       PathsConfig       `yaml:"paths" json:"paths"`
	Search      SearchConfig      `yaml:"search" json:"search"`
	Embeddings  EmbeddingsConfig  `yaml:"embeddings" json:"embeddings"`
	Performance PerformanceConfig `yaml:"performance" json:"performance"`
	Server      ServerConfig      `yaml:"server" json:"server"`
}

// PathsConfig selects which files are indexed and where the index lives.
type PathsConfig struct {
	Include []string `yaml:"include" json:"include"`
	Exclude []string `yaml:"exclude" json:"exclude"`

	// IndexDir is where the persisted index lives, relative to the
	// project root unless absolute.
	IndexDir string `yaml:"index_dir" json:"index_dir"`

	// ModelCacheDir is where embedder and reranker weights are stored.
	// Empty resolves to the user cache directory.
	ModelCacheDir string `yaml:"model_cache_dir" json:"model_cache_dir"`
}

// SearchConfig tunes the hybrid retrieval pipeline.
type SearchConfig struct {
	// BM25Weight and SemanticWeight split the fused score between the
	// keyword and vector channels. They must sum to 1.0.
	BM25Weight     float64 `yaml:"bm25_weight" json:"bm25_weight"`
	SemanticWeight float64 `yaml:"semantic_weight" json:"semantic_weight"`

	// RRFConstant is the smoothing constant k in reciprocal-rank fusion.
	RRFConstant int `yaml:"rrf_constant" json:"rrf_constant"`

	// BM25Backend selects the keyword index: "sqlite" (FTS5, safe for
	// concurrent reader/writer goroutines via WAL) or "bleve".
	BM25Backend string `yaml:"bm25_backend" json:"bm25_backend"`

	ChunkSize    int `yaml:"chunk_size" json:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap" json:"chunk_overlap"`
	MaxResults   int `yaml:"max_results" json:"max_results"`

	// CandidateMultiplier widens the candidate pool handed to the
	// reranker: limit × multiplier candidates are fetched.
	CandidateMultiplier int `yaml:"candidate_multiplier" json:"candidate_multiplier"`

	// RerankEnabled opts into cross-encoder reranking. Off unless a
	// reranker endpoint is actually running; the pipeline falls back to
	// the boosted ordering when scoring fails.
	RerankEnabled bool `yaml:"rerank_enabled" json:"rerank_enabled"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	Provider             string        `yaml:"provider" json:"provider"`
	Model                string        `yaml:"model" json:"model"`
	Dimensions           int           `yaml:"dimensions" json:"dimensions"`
	BatchSize            int           `yaml:"batch_size" json:"batch_size"`
	ModelDownloadTimeout time.Duration `yaml:"model_download_timeout" json:"model_download_timeout"`

	// OllamaHost overrides the Ollama API endpoint. Empty uses
	// http://localhost:11434.
	OllamaHost string `yaml:"ollama_host" json:"ollama_host"`

	// RerankerEndpoint and RerankerModel point at the local
	// cross-encoder server used when search.rerank_enabled is set.
	RerankerEndpoint string `yaml:"reranker_endpoint" json:"reranker_endpoint"`
	RerankerModel    string `yaml:"reranker_model" json:"reranker_model"`

	// InterBatchDelay pauses between embedding batches ("200ms"; empty
	// disables). TimeoutProgression grows per-batch timeouts over a long
	// indexing run; RetryTimeoutMultiplier grows them per retry.
	InterBatchDelay        string  `yaml:"inter_batch_delay" json:"inter_batch_delay"`
	TimeoutProgression     float64 `yaml:"timeout_progression" json:"timeout_progression"`
	RetryTimeoutMultiplier float64 `yaml:"retry_timeout_multiplier" json:"retry_timeout_multiplier"`
}

// PerformanceConfig bounds resource use during indexing and search.
type PerformanceConfig struct {
	MaxFiles      int    `yaml:"max_files" json:"max_files"`
	IndexWorkers  int    `yaml:"index_workers" json:"index_workers"`
	WatchDebounce string `yaml:"watch_debounce" json:"watch_debounce"`
	CacheSize     int    `yaml:"cache_size" json:"cache_size"`
	MemoryLimit   string `yaml:"memory_limit" json:"memory_limit"`
	Quantization  string `yaml:"quantization" json:"quantization"`
	SQLiteCacheMB int    `yaml:"sqlite_cache_mb" json:"sqlite_cache_mb"`
}

// ServerConfig configures the MCP server surface.
type ServerConfig struct {
	Transport string `yaml:"transport" json:"transport"`
	Port      int    `yaml:"port" json:"port"`
	LogLevel  string `yaml:"log_level" json:"log_level"`
	LogFormat string `yaml:"log_format" json:"log_format"`
}

// DefaultIndexDir is the index location beneath the project root.
const DefaultIndexDir = ".semantic-code/index"

// defaultExcludePatterns are skipped during every scan, on top of any
// user-supplied excludes. The index directory itself is excluded so the
// watcher never feeds the index back into the index.
var defaultExcludePatterns = []string{
	"**/node_modules/**",
	"**/.git/**",
	"**/dist/**",
	"**/build/**",
	"**/.next/**",
	"**/coverage/**",
	"**/__pycache__/**",
	"**/venv/**",
	"**/.venv/**",
	"**/target/**",
	"**/vendor/**",
	"**/.semantic-code/**",
	"**/*.min.js",
	"**/*.min.css",
	"**/*.bundle.js",
	"**/*.map",
	"**/package-lock.json",
	"**/yarn.lock",
	"**/pnpm-lock.yaml",
	"**/go.sum",
}

// NewConfig returns a Config populated with the built-in defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Paths: PathsConfig{
			Include:  []string{},
			Exclude:  defaultExcludePatterns,
			IndexDir: DefaultIndexDir,
		},
		Search: SearchConfig{
			BM25Weight:          0.65,
			SemanticWeight:      0.35,
			RRFConstant:         60,
			BM25Backend:         "sqlite",
			ChunkSize:           1500,
			ChunkOverlap:        200,
			MaxResults:          20,
			CandidateMultiplier: 5,
			RerankEnabled:       false,
		},
		Embeddings: EmbeddingsConfig{
			Provider:             "", // empty = auto-detect: ollama, then static
			Model:                "qwen3-embedding:8b",
			Dimensions:           0, // taken from the embedder once loaded
			BatchSize:            32,
			ModelDownloadTimeout: 10 * time.Minute,
			OllamaHost:           "",
			RerankerEndpoint:     "",
			RerankerModel:        "",
			InterBatchDelay:      "",
			TimeoutProgression:   1.5,
			RetryTimeoutMultiplier: 1.0,
		},
		Performance: PerformanceConfig{
			MaxFiles:      100000,
			IndexWorkers:  runtime.NumCPU(),
			WatchDebounce: "1s",
			CacheSize:     1000,
			MemoryLimit:   "auto",
			Quantization:  "F16",
			SQLiteCacheMB: 64,
		},
		Server: ServerConfig{
			Transport: "stdio",
			Port:      8765,
			LogLevel:  "info",
			LogFormat: "text",
		},
	}
}

// ResolveIndexDir returns the absolute index directory for a project root.
func (c *Config) ResolveIndexDir(root string) string {
	dir := c.Paths.IndexDir
	if dir == "" {
		dir = DefaultIndexDir
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(root, dir)
}

// ResolveModelCacheDir returns the directory for downloaded model weights.
func (c *Config) ResolveModelCacheDir() string {
	if c.Paths.ModelCacheDir != "" {
		return c.Paths.ModelCacheDir
	}
	cache, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "semantic-code", "models")
	}
	return filepath.Join(cache, "semantic-code", "models")
}

// userConfigPath returns the user-level config location, honoring
// XDG_CONFIG_HOME when set.
func userConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "semantic-code", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "semantic-code", "config.yaml")
	}
	return filepath.Join(home, ".config", "semantic-code", "config.yaml")
}

// Load builds the effective configuration for a project directory.
// Precedence, lowest to highest: defaults, user config, project config
// (.semantic-code.yaml), SEMCODE_* environment variables.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if p := userConfigPath(); fileExists(p) {
		if err := cfg.loadYAML(p); err != nil {
			return nil, fmt.Errorf("load user config: %w", err)
		}
	}

	if err := cfg.loadProjectFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadProjectFile(dir string) error {
	for _, name := range []string{".semantic-code.yaml", ".semantic-code.yml"} {
		p := filepath.Join(dir, name)
		if fileExists(p) {
			return c.loadYAML(p)
		}
	}
	return nil // no project config is fine
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	c.mergeWith(&parsed)
	return nil
}

// mergeWith copies non-zero values from other onto c. Excludes are
// appended to the defaults rather than replacing them, so a project
// config can only tighten the ignore set.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if len(other.Paths.Include) > 0 {
		c.Paths.Include = other.Paths.Include
	}
	if len(other.Paths.Exclude) > 0 {
		c.Paths.Exclude = append(c.Paths.Exclude, other.Paths.Exclude...)
	}
	if other.Paths.IndexDir != "" {
		c.Paths.IndexDir = other.Paths.IndexDir
	}
	if other.Paths.ModelCacheDir != "" {
		c.Paths.ModelCacheDir = other.Paths.ModelCacheDir
	}

	if other.Search.BM25Weight != 0 {
		c.Search.BM25Weight = other.Search.BM25Weight
	}
	if other.Search.SemanticWeight != 0 {
		c.Search.SemanticWeight = other.Search.SemanticWeight
	}
	if other.Search.RRFConstant != 0 {
		c.Search.RRFConstant = other.Search.RRFConstant
	}
	if other.Search.BM25Backend != "" {
		c.Search.BM25Backend = other.Search.BM25Backend
	}
	if other.Search.ChunkSize != 0 {
		c.Search.ChunkSize = other.Search.ChunkSize
	}
	if other.Search.ChunkOverlap != 0 {
		c.Search.ChunkOverlap = other.Search.ChunkOverlap
	}
	if other.Search.MaxResults != 0 {
		c.Search.MaxResults = other.Search.MaxResults
	}
	if other.Search.CandidateMultiplier != 0 {
		c.Search.CandidateMultiplier = other.Search.CandidateMultiplier
	}
	if other.Search.RerankEnabled {
		c.Search.RerankEnabled = true
	}

	if other.Embeddings.Provider != "" {
		c.Embeddings.Provider = other.Embeddings.Provider
	}
	if other.Embeddings.Model != "" {
		c.Embeddings.Model = other.Embeddings.Model
	}
	if other.Embeddings.Dimensions != 0 {
		c.Embeddings.Dimensions = other.Embeddings.Dimensions
	}
	if other.Embeddings.BatchSize != 0 {
		c.Embeddings.BatchSize = other.Embeddings.BatchSize
	}
	if other.Embeddings.ModelDownloadTimeout != 0 {
		c.Embeddings.ModelDownloadTimeout = other.Embeddings.ModelDownloadTimeout
	}
	if other.Embeddings.OllamaHost != "" {
		c.Embeddings.OllamaHost = other.Embeddings.OllamaHost
	}
	if other.Embeddings.RerankerEndpoint != "" {
		c.Embeddings.RerankerEndpoint = other.Embeddings.RerankerEndpoint
	}
	if other.Embeddings.RerankerModel != "" {
		c.Embeddings.RerankerModel = other.Embeddings.RerankerModel
	}
	if other.Embeddings.InterBatchDelay != "" {
		c.Embeddings.InterBatchDelay = other.Embeddings.InterBatchDelay
	}
	if other.Embeddings.TimeoutProgression != 0 {
		c.Embeddings.TimeoutProgression = other.Embeddings.TimeoutProgression
	}
	if other.Embeddings.RetryTimeoutMultiplier != 0 {
		c.Embeddings.RetryTimeoutMultiplier = other.Embeddings.RetryTimeoutMultiplier
	}

	if other.Performance.MaxFiles != 0 {
		c.Performance.MaxFiles = other.Performance.MaxFiles
	}
	if other.Performance.IndexWorkers != 0 {
		c.Performance.IndexWorkers = other.Performance.IndexWorkers
	}
	if other.Performance.WatchDebounce != "" {
		c.Performance.WatchDebounce = other.Performance.WatchDebounce
	}
	if other.Performance.CacheSize != 0 {
		c.Performance.CacheSize = other.Performance.CacheSize
	}
	if other.Performance.MemoryLimit != "" {
		c.Performance.MemoryLimit = other.Performance.MemoryLimit
	}
	if other.Performance.Quantization != "" {
		c.Performance.Quantization = other.Performance.Quantization
	}
	if other.Performance.SQLiteCacheMB != 0 {
		c.Performance.SQLiteCacheMB = other.Performance.SQLiteCacheMB
	}

	if other.Server.Transport != "" {
		c.Server.Transport = other.Server.Transport
	}
	if other.Server.Port != 0 {
		c.Server.Port = other.Server.Port
	}
	if other.Server.LogLevel != "" {
		c.Server.LogLevel = other.Server.LogLevel
	}
	if other.Server.LogFormat != "" {
		c.Server.LogFormat = other.Server.LogFormat
	}
}

// applyEnvOverrides applies SEMCODE_* environment variables, the
// highest-precedence layer.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SEMCODE_BM25_WEIGHT"); v != "" {
		if w, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && w >= 0 && w <= 1 {
			c.Search.BM25Weight = w
		}
	}
	if v := os.Getenv("SEMCODE_SEMANTIC_WEIGHT"); v != "" {
		if w, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && w >= 0 && w <= 1 {
			c.Search.SemanticWeight = w
		}
	}
	if v := os.Getenv("SEMCODE_RRF_CONSTANT"); v != "" {
		if k, err := strconv.Atoi(v); err == nil && k > 0 {
			c.Search.RRFConstant = k
		}
	}
	if v := os.Getenv("SEMCODE_EMBEDDINGS_PROVIDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("SEMCODE_EMBEDDINGS_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("SEMCODE_OLLAMA_HOST"); v != "" {
		c.Embeddings.OllamaHost = v
	}
	if v := os.Getenv("SEMCODE_INDEX_DIR"); v != "" {
		c.Paths.IndexDir = v
	}
	if v := os.Getenv("SEMCODE_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("SEMCODE_LOG_FORMAT"); v != "" {
		c.Server.LogFormat = v
	}
	if v := os.Getenv("SEMCODE_TRANSPORT"); v != "" {
		c.Server.Transport = v
	}
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.Search.BM25Weight < 0 || c.Search.BM25Weight > 1 {
		return fmt.Errorf("bm25_weight must be between 0 and 1, got %f", c.Search.BM25Weight)
	}
	if c.Search.SemanticWeight < 0 || c.Search.SemanticWeight > 1 {
		return fmt.Errorf("semantic_weight must be between 0 and 1, got %f", c.Search.SemanticWeight)
	}
	if sum := c.Search.BM25Weight + c.Search.SemanticWeight; math.Abs(sum-1.0) > 0.01 {
		return fmt.Errorf("bm25_weight + semantic_weight must equal 1.0, got %.2f", sum)
	}
	if c.Search.MaxResults < 0 {
		return fmt.Errorf("max_results must be non-negative, got %d", c.Search.MaxResults)
	}
	if c.Search.ChunkSize < 0 {
		return fmt.Errorf("chunk_size must be non-negative, got %d", c.Search.ChunkSize)
	}
	if c.Search.CandidateMultiplier < 0 {
		return fmt.Errorf("candidate_multiplier must be non-negative, got %d", c.Search.CandidateMultiplier)
	}

	if c.Embeddings.Provider != "" { // empty means auto-detect
		switch strings.ToLower(c.Embeddings.Provider) {
		case "ollama", "static":
		default:
			return fmt.Errorf("embeddings.provider must be 'ollama', 'static', or empty (auto-detect), got %s", c.Embeddings.Provider)
		}
	}

	switch strings.ToLower(c.Server.Transport) {
	case "stdio", "sse":
	default:
		return fmt.Errorf("server.transport must be 'stdio' or 'sse', got %s", c.Server.Transport)
	}

	switch strings.ToLower(c.Server.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel)
	}

	switch strings.ToLower(c.Server.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("server.log_format must be 'text' or 'json', got %s", c.Server.LogFormat)
	}

	return nil
}

// DetectProjectType inspects marker files at dir. go.mod wins over
// package.json, which wins over the Python markers.
func DetectProjectType(dir string) ProjectType {
	if fileExists(filepath.Join(dir, "go.mod")) {
		return ProjectTypeGo
	}
	if fileExists(filepath.Join(dir, "package.json")) {
		return ProjectTypeNode
	}
	if fileExists(filepath.Join(dir, "pyproject.toml")) ||
		fileExists(filepath.Join(dir, "requirements.txt")) {
		return ProjectTypePython
	}
	return ProjectTypeUnknown
}

// FindProjectRoot walks up from startDir looking for a .git directory
// or a project config file. Falls back to startDir itself when neither
// is found before the filesystem root.
func FindProjectRoot(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", startDir, err)
	}

	dir := absDir
	for {
		if dirExists(filepath.Join(dir, ".git")) {
			return dir, nil
		}
		if fileExists(filepath.Join(dir, ".semantic-code.yaml")) ||
			fileExists(filepath.Join(dir, ".semantic-code.yml")) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return absDir, nil
		}
		dir = parent
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func (p ProjectType) String() string { return string(p) }

// IsKnown reports whether detection matched a marker file.
func (p ProjectType) IsKnown() bool { return p != ProjectTypeUnknown }
