// Package config loads and watches the preflight plugin configuration.
// The config file is JSON5 (~/.preflight/config.json5 by default) so
// hosts can keep comments and trailing commas in it.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/titanous/json5"
)

// EnvConfigPath overrides the config file location when set.
const EnvConfigPath = "PREFLIGHT_CONFIG"

// Config is the root configuration for the preflight plugin.
type Config struct {
	Workspace  string           `json:"workspace"` // agent workspace root (memory files live here)
	Normalizer NormalizerConfig `json:"normalizer"`
	Extractor  ExtractorConfig  `json:"extractor"`
	Keyword    KeywordConfig    `json:"keyword"`
	Semantic   SemanticConfig   `json:"semantic"`
	Preview    PreviewConfig    `json:"preview"`
	Audit      AuditConfig      `json:"audit"`
	Tracing    TracingConfig    `json:"tracing"`
}

// NormalizerConfig controls turn eligibility.
type NormalizerConfig struct {
	MinRawLen   int      `json:"minRawLen"`   // shorter raw turns are skipped
	MinCleanLen int      `json:"minCleanLen"` // shorter cleaned turns are skipped
	ExtraAcks   []string `json:"extraAcks"`   // extra acknowledgement words to skip
}

// ExtractorConfig controls the term extraction stage.
type ExtractorConfig struct {
	OllamaURL      string  `json:"ollamaUrl"`      // e.g. "http://localhost:11434"
	Model          string  `json:"model"`          // extraction model name
	NumPredict     int     `json:"numPredict"`     // generation budget
	Temperature    float64 `json:"temperature"`    // 0 for reproducible output
	TimeoutSeconds int     `json:"timeoutSeconds"` // HTTP timeout
	MaxResponseLen int     `json:"maxResponseLen"` // longer responses are rejected
	MaxTerms       int     `json:"maxTerms"`       // terms kept for the keyword query
	Fallback       bool    `json:"fallback"`       // enable deterministic stop-word fallback
	RatePerMinute  int     `json:"ratePerMinute"`  // extractor call budget, 0 = unlimited
}

// KeywordConfig controls the external keyword index call.
type KeywordConfig struct {
	Command        string `json:"command"`        // e.g. "qmd search --csv"
	TimeoutSeconds int    `json:"timeoutSeconds"` // hard process timeout
	MaxResults     int    `json:"maxResults"`     // top-K
	URIPrefix      string `json:"uriPrefix"`      // rewritten to a workspace-relative path
}

// SemanticConfig controls the semantic fallback search.
type SemanticConfig struct {
	Enabled       bool    `json:"enabled"`
	MaxQueryChars int     `json:"maxQueryChars"` // normalized text is cut to this before querying
	MinScore      float64 `json:"minScore"`
	MaxResults    int     `json:"maxResults"`
	DBPath        string  `json:"dbPath"`     // built-in index location ("" = <workspace>/.preflight/index.db)
	EmbedModel    string  `json:"embedModel"` // "" = FTS-only search
}

// PreviewConfig controls hit preview fetching.
type PreviewConfig struct {
	MaxBytes  int `json:"maxBytes"`  // bytes read from the head of a matched file
	MaxLen    int `json:"maxLen"`    // preview characters kept after cleaning
	CacheSize int `json:"cacheSize"` // LRU entries
}

// AuditConfig controls the append-only search log.
type AuditConfig struct {
	Path      string `json:"path"`      // "" = <workspace>/.preflight/search.log
	PromptLen int    `json:"promptLen"` // prompt characters kept per record
}

// TracingConfig configures optional OTLP stage-span export.
type TracingConfig struct {
	Endpoint    string `json:"endpoint"` // "" = tracing disabled
	Protocol    string `json:"protocol"` // "grpc" (default) or "http"
	Insecure    bool   `json:"insecure"`
	ServiceName string `json:"serviceName"`
}

// Default returns a config with all defaults applied.
func Default() *Config {
	return &Config{
		Normalizer: NormalizerConfig{
			MinRawLen:   10,
			MinCleanLen: 3,
		},
		Extractor: ExtractorConfig{
			OllamaURL:      "http://localhost:11434",
			Model:          "qwen2.5:1.5b",
			NumPredict:     40,
			Temperature:    0,
			TimeoutSeconds: 10,
			MaxResponseLen: 120,
			MaxTerms:       3,
			Fallback:       true,
		},
		Keyword: KeywordConfig{
			Command:        "qmd search --csv",
			TimeoutSeconds: 5,
			MaxResults:     5,
			URIPrefix:      "qmd://",
		},
		Semantic: SemanticConfig{
			Enabled:       true,
			MaxQueryChars: 200,
			MinScore:      0.3,
			MaxResults:    5,
		},
		Preview: PreviewConfig{
			MaxBytes:  2048,
			MaxLen:    150,
			CacheSize: 128,
		},
		Audit: AuditConfig{
			PromptLen: 200,
		},
		Tracing: TracingConfig{
			Protocol:    "grpc",
			ServiceName: "preflight",
		},
	}
}

// Load reads a JSON5 config file and applies it on top of Default().
// A missing file returns defaults, not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyBounds()
	return cfg, nil
}

// applyBounds clamps values a bad config could zero out.
func (c *Config) applyBounds() {
	if c.Normalizer.MinRawLen <= 0 {
		c.Normalizer.MinRawLen = 10
	}
	if c.Normalizer.MinCleanLen <= 0 {
		c.Normalizer.MinCleanLen = 3
	}
	if c.Extractor.MaxTerms <= 0 {
		c.Extractor.MaxTerms = 3
	}
	if c.Extractor.MaxResponseLen <= 0 {
		c.Extractor.MaxResponseLen = 120
	}
	if c.Keyword.MaxResults <= 0 {
		c.Keyword.MaxResults = 5
	}
	if c.Keyword.TimeoutSeconds <= 0 {
		c.Keyword.TimeoutSeconds = 5
	}
	if c.Semantic.MaxQueryChars <= 0 {
		c.Semantic.MaxQueryChars = 200
	}
	if c.Semantic.MaxResults <= 0 {
		c.Semantic.MaxResults = 5
	}
	if c.Preview.MaxBytes <= 0 {
		c.Preview.MaxBytes = 2048
	}
	if c.Preview.MaxLen <= 0 {
		c.Preview.MaxLen = 150
	}
	if c.Preview.CacheSize <= 0 {
		c.Preview.CacheSize = 128
	}
	if c.Audit.PromptLen <= 0 {
		c.Audit.PromptLen = 200
	}
}

// ExtractorTimeout returns the extractor HTTP timeout as a duration.
func (c *Config) ExtractorTimeout() time.Duration {
	if c.Extractor.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Extractor.TimeoutSeconds) * time.Second
}

// KeywordTimeout returns the keyword process hard timeout.
func (c *Config) KeywordTimeout() time.Duration {
	return time.Duration(c.Keyword.TimeoutSeconds) * time.Second
}

// AuditPath resolves the audit log location.
func (c *Config) AuditPath() string {
	if c.Audit.Path != "" {
		return c.Audit.Path
	}
	return filepath.Join(c.Workspace, ".preflight", "search.log")
}

// IndexDBPath resolves the built-in semantic index location.
func (c *Config) IndexDBPath() string {
	if c.Semantic.DBPath != "" {
		return c.Semantic.DBPath
	}
	return filepath.Join(c.Workspace, ".preflight", "index.db")
}

// ResolvePath returns the config file path: $PREFLIGHT_CONFIG if set,
// otherwise ~/.preflight/config.json5.
func ResolvePath() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.json5"
	}
	return filepath.Join(home, ".preflight", "config.json5")
}
