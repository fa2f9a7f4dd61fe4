package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// HierarchyRuleType names the supported hierarchy-labeling strategies for a
// Root (spec.md §3 "Root").
type HierarchyRuleType string

const (
	// HierarchyPathSegments labels chunks using directory depth under the
	// root: segment 0 = module, segment 1 = submodule, etc.
	HierarchyPathSegments HierarchyRuleType = "path-segments"
	// HierarchyFlat applies no hierarchy labeling.
	HierarchyFlat HierarchyRuleType = "flat"
)

// VectorBackendConfig configures the vector backend endpoint (spec.md §6
// Configuration).
type VectorBackendConfig struct {
	Host    string            `yaml:"host" json:"host"`
	Port    int               `yaml:"port" json:"port"`
	SSL     bool              `yaml:"ssl" json:"ssl"`
	Headers map[string]string `yaml:"headers" json:"headers"`
}

// LexicalBackendConfig configures the optional lexical (BM25) backend.
type LexicalBackendConfig struct {
	// IndexDir is the on-disk bleve index directory. All apps share this one
	// index, told apart by each document's `app` field; no per-app
	// subdirectory is created.
	IndexDir string `yaml:"index_dir" json:"index_dir"`
}

// MetadataBackendConfig configures the SQLite metadata store.
type MetadataBackendConfig struct {
	Path    string `yaml:"path" json:"path"`
	Driver  string `yaml:"driver" json:"driver"` // "sqlite3" or "modernc" (default "sqlite3")
	CacheMB int    `yaml:"cache_mb" json:"cache_mb"`
}

// CollectionConfig declares the one-to-one `app` → collection-name mapping
// of spec.md §3 "Collection".
type CollectionConfig struct {
	Name string `yaml:"name" json:"name"`
	App  string `yaml:"app" json:"app"`
}

// RootConfig binds a filesystem ingestion root to an app and a
// hierarchy-labeling rule (spec.md §3 "Root").
type RootConfig struct {
	Path      string            `yaml:"path" json:"path"`
	App       string            `yaml:"app" json:"app"`
	Hierarchy HierarchyRuleType `yaml:"hierarchy" json:"hierarchy"`
}

// ChunkConfig configures the Chunker's target token count and overlap
// (spec.md §4.2).
type ChunkConfig struct {
	Tokens  int `yaml:"tokens" json:"tokens"`
	Overlap int `yaml:"overlap" json:"overlap"`
}

// IngestConfig configures batch size and backend throttling for the Ingest
// Orchestrator (spec.md §4.4, §5).
type IngestConfig struct {
	BatchSize            int    `yaml:"batch_size" json:"batch_size"`
	InterBatchDelayMS    int    `yaml:"inter_batch_delay_ms" json:"inter_batch_delay_ms"`
	DedupLSHThreshold    int    `yaml:"dedup_lsh_threshold" json:"dedup_lsh_threshold"`
	DataDir              string `yaml:"data_dir" json:"data_dir"`
	LockPath             string `yaml:"lock_path" json:"lock_path"`
}

// EmbedderConfig points at the artifact-based Embedder's serialized
// vocabulary/projection (spec.md §9 "Pickled embedder").
type EmbedderConfig struct {
	ArtifactPath string `yaml:"artifact_path" json:"artifact_path"`
}

// ServerConfig configures the HTTP API listener (spec.md §6).
type ServerConfig struct {
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	LogLevel string `yaml:"log_level" json:"log_level"`
}

// Config is the single YAML configuration document of spec.md §6.
type Config struct {
	VectorBackend      VectorBackendConfig   `yaml:"vector_backend" json:"vector_backend"`
	LexicalBackend      LexicalBackendConfig  `yaml:"lexical_backend" json:"lexical_backend"`
	MetadataBackend     MetadataBackendConfig `yaml:"metadata_backend" json:"metadata_backend"`
	Collections         []CollectionConfig    `yaml:"collections" json:"collections"`
	Roots               []RootConfig          `yaml:"roots" json:"roots"`
	Chunk               ChunkConfig           `yaml:"chunk" json:"chunk"`
	IncludeExtensions   []string              `yaml:"include_extensions" json:"include_extensions"`
	MaxMB               float64               `yaml:"max_mb" json:"max_mb"`
	Ingest              IngestConfig          `yaml:"ingest" json:"ingest"`
	Embedder            EmbedderConfig        `yaml:"embedder" json:"embedder"`
	Server              ServerConfig          `yaml:"server" json:"server"`
}

// NewConfig returns a Config populated with sensible defaults, following
// the teacher's NewConfig/defaults pattern.
func NewConfig() *Config {
	return &Config{
		VectorBackend: VectorBackendConfig{
			Host: "localhost",
			Port: 8000,
			SSL:  false,
		},
		LexicalBackend: LexicalBackendConfig{
			IndexDir: "data/lexical",
		},
		MetadataBackend: MetadataBackendConfig{
			Path:    "data/metadata.db",
			Driver:  "sqlite3",
			CacheMB: 64,
		},
		Chunk: ChunkConfig{
			Tokens:  400,
			Overlap: 60,
		},
		IncludeExtensions: []string{".md", ".txt"},
		MaxMB:             20,
		Ingest: IngestConfig{
			BatchSize:         256,
			InterBatchDelayMS: 50,
			DedupLSHThreshold: 50000,
			DataDir:           "data",
			LockPath:          "data/.ingest.lock",
		},
		Embedder: EmbedderConfig{
			ArtifactPath: "data/embedder.artifact",
		},
		Server: ServerConfig{
			Host:     "0.0.0.0",
			Port:     8080,
			LogLevel: "info",
		},
	}
}

// Load builds a Config by layering, in order of increasing precedence:
//  1. NewConfig's hardcoded defaults
//  2. the YAML file at path, if it exists
//  3. DOCRETRIEVE_* environment variable overrides
//
// The result is validated before being returned.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cfg.loadYAML(path); err != nil {
				return nil, err
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: stat %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	c.mergeWith(&parsed)
	return nil
}

// mergeWith overlays non-zero fields from other onto c.
func (c *Config) mergeWith(other *Config) {
	if other.VectorBackend.Host != "" {
		c.VectorBackend.Host = other.VectorBackend.Host
	}
	if other.VectorBackend.Port != 0 {
		c.VectorBackend.Port = other.VectorBackend.Port
	}
	c.VectorBackend.SSL = other.VectorBackend.SSL
	if len(other.VectorBackend.Headers) > 0 {
		c.VectorBackend.Headers = other.VectorBackend.Headers
	}

	if other.LexicalBackend.IndexDir != "" {
		c.LexicalBackend.IndexDir = other.LexicalBackend.IndexDir
	}

	if other.MetadataBackend.Path != "" {
		c.MetadataBackend.Path = other.MetadataBackend.Path
	}
	if other.MetadataBackend.Driver != "" {
		c.MetadataBackend.Driver = other.MetadataBackend.Driver
	}
	if other.MetadataBackend.CacheMB != 0 {
		c.MetadataBackend.CacheMB = other.MetadataBackend.CacheMB
	}

	if len(other.Collections) > 0 {
		c.Collections = other.Collections
	}
	if len(other.Roots) > 0 {
		c.Roots = other.Roots
	}

	if other.Chunk.Tokens != 0 {
		c.Chunk.Tokens = other.Chunk.Tokens
	}
	if other.Chunk.Overlap != 0 {
		c.Chunk.Overlap = other.Chunk.Overlap
	}

	if len(other.IncludeExtensions) > 0 {
		c.IncludeExtensions = other.IncludeExtensions
	}
	if other.MaxMB != 0 {
		c.MaxMB = other.MaxMB
	}

	if other.Ingest.BatchSize != 0 {
		c.Ingest.BatchSize = other.Ingest.BatchSize
	}
	if other.Ingest.InterBatchDelayMS != 0 {
		c.Ingest.InterBatchDelayMS = other.Ingest.InterBatchDelayMS
	}
	if other.Ingest.DedupLSHThreshold != 0 {
		c.Ingest.DedupLSHThreshold = other.Ingest.DedupLSHThreshold
	}
	if other.Ingest.DataDir != "" {
		c.Ingest.DataDir = other.Ingest.DataDir
	}
	if other.Ingest.LockPath != "" {
		c.Ingest.LockPath = other.Ingest.LockPath
	}

	if other.Embedder.ArtifactPath != "" {
		c.Embedder.ArtifactPath = other.Embedder.ArtifactPath
	}

	if other.Server.Host != "" {
		c.Server.Host = other.Server.Host
	}
	if other.Server.Port != 0 {
		c.Server.Port = other.Server.Port
	}
	if other.Server.LogLevel != "" {
		c.Server.LogLevel = other.Server.LogLevel
	}
}

// applyEnvOverrides applies DOCRETRIEVE_* environment variable overrides,
// highest precedence, mirroring the teacher's AMANMCP_* override set.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("DOCRETRIEVE_VECTOR_BACKEND_HOST"); v != "" {
		c.VectorBackend.Host = v
	}
	if v := os.Getenv("DOCRETRIEVE_VECTOR_BACKEND_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.VectorBackend.Port = p
		}
	}
	if v := os.Getenv("DOCRETRIEVE_LEXICAL_INDEX_DIR"); v != "" {
		c.LexicalBackend.IndexDir = v
	}
	if v := os.Getenv("DOCRETRIEVE_METADATA_PATH"); v != "" {
		c.MetadataBackend.Path = v
	}
	if v := os.Getenv("DOCRETRIEVE_DATA_DIR"); v != "" {
		c.Ingest.DataDir = v
	}
	if v := os.Getenv("DOCRETRIEVE_EMBEDDER_ARTIFACT"); v != "" {
		c.Embedder.ArtifactPath = v
	}
	if v := os.Getenv("DOCRETRIEVE_SERVER_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("DOCRETRIEVE_SERVER_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := os.Getenv("DOCRETRIEVE_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.Chunk.Tokens <= 0 {
		return fmt.Errorf("chunk.tokens must be positive, got %d", c.Chunk.Tokens)
	}
	if c.Chunk.Overlap < 0 {
		return fmt.Errorf("chunk.overlap must be non-negative, got %d", c.Chunk.Overlap)
	}
	if c.Chunk.Overlap >= c.Chunk.Tokens {
		return fmt.Errorf("chunk.overlap (%d) must be smaller than chunk.tokens (%d)", c.Chunk.Overlap, c.Chunk.Tokens)
	}
	if c.MaxMB <= 0 {
		return fmt.Errorf("max_mb must be positive, got %f", c.MaxMB)
	}
	if c.Ingest.BatchSize <= 0 {
		return fmt.Errorf("ingest.batch_size must be positive, got %d", c.Ingest.BatchSize)
	}

	seenApps := make(map[string]bool)
	for _, col := range c.Collections {
		if col.Name == "" || col.App == "" {
			return fmt.Errorf("collections entries require both name and app")
		}
		if seenApps[col.App] {
			return fmt.Errorf("collections: app %q mapped more than once", col.App)
		}
		seenApps[col.App] = true
	}

	for _, r := range c.Roots {
		if r.Path == "" || r.App == "" {
			return fmt.Errorf("roots entries require both path and app")
		}
		switch r.Hierarchy {
		case "", HierarchyPathSegments, HierarchyFlat:
		default:
			return fmt.Errorf("roots: unknown hierarchy rule %q for root %q", r.Hierarchy, r.Path)
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if c.Server.LogLevel != "" && !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return fmt.Errorf("server.log_level must be one of debug/info/warn/error, got %s", c.Server.LogLevel)
	}

	return nil
}

// WriteYAML writes the configuration to path, as used by `docretrieve
// config init`.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: mkdir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// CollectionForApp returns the configured collection name for app, falling
// back to app itself (spec.md §3's one-to-one app/collection mapping is the
// identity mapping unless overridden).
func (c *Config) CollectionForApp(app string) string {
	for _, col := range c.Collections {
		if col.App == app {
			return col.Name
		}
	}
	return app
}

// RootsForApp returns every configured root bound to app.
func (c *Config) RootsForApp(app string) []RootConfig {
	var out []RootConfig
	for _, r := range c.Roots {
		if r.App == app {
			out = append(out, r)
		}
	}
	return out
}

// Apps returns the distinct set of apps named by Roots, in configuration
// order.
func (c *Config) Apps() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range c.Roots {
		if !seen[r.App] {
			seen[r.App] = true
			out = append(out, r.App)
		}
	}
	return out
}
