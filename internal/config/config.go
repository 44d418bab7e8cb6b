package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all tagfilter settings. Values come from an optional
// YAML file with environment variables taking precedence.
type Config struct {
	Port string

	// API auth; empty disables authentication (local use).
	APIKey string

	// Selection persistence location (file path, *.db, or http URL).
	Store       string
	StoreAPIKey string

	// Serve documents from a directory instead of uploads only.
	DocsDir   string
	WatchDocs bool

	// Uploaded document lifetime in the registry.
	DocTTL time.Duration

	// Quiescence window for search-input recomputes.
	DebounceWindow time.Duration

	// Upload limits.
	MaxUploadBytes int64
}

// fileConfig is the YAML shape; durations are strings there.
type fileConfig struct {
	Port           string `yaml:"port"`
	APIKey         string `yaml:"api_key"`
	Store          string `yaml:"store"`
	StoreAPIKey    string `yaml:"store_api_key"`
	DocsDir        string `yaml:"docs_dir"`
	WatchDocs      *bool  `yaml:"watch_docs"`
	DocTTL         string `yaml:"doc_ttl"`
	DebounceWindow string `yaml:"debounce_window"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
}

// Load builds the configuration: defaults, then the YAML file at path
// (if non-empty), then environment overrides.
func Load(path string) (Config, error) {
	cfg := Config{
		Port:           "8091",
		DocTTL:         24 * time.Hour,
		DebounceWindow: 100 * time.Millisecond,
		MaxUploadBytes: 10485760, // 10MB
	}

	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return cfg, err
		}
	}

	cfg.Port = envOr("TAGFILTER_PORT", cfg.Port)
	cfg.APIKey = envOr("TAGFILTER_API_KEY", cfg.APIKey)
	cfg.Store = envOr("TAGFILTER_STORE", cfg.Store)
	cfg.StoreAPIKey = envOr("TAGFILTER_STORE_API_KEY", cfg.StoreAPIKey)
	cfg.DocsDir = envOr("TAGFILTER_DOCS_DIR", cfg.DocsDir)
	cfg.WatchDocs = envBool("TAGFILTER_WATCH_DOCS", cfg.WatchDocs)
	cfg.DocTTL = envDuration("TAGFILTER_DOC_TTL", cfg.DocTTL)
	cfg.DebounceWindow = envDuration("TAGFILTER_DEBOUNCE", cfg.DebounceWindow)
	cfg.MaxUploadBytes = envInt64("TAGFILTER_MAX_UPLOAD_BYTES", cfg.MaxUploadBytes)

	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	if fc.Port != "" {
		c.Port = fc.Port
	}
	if fc.APIKey != "" {
		c.APIKey = fc.APIKey
	}
	if fc.Store != "" {
		c.Store = fc.Store
	}
	if fc.StoreAPIKey != "" {
		c.StoreAPIKey = fc.StoreAPIKey
	}
	if fc.DocsDir != "" {
		c.DocsDir = fc.DocsDir
	}
	if fc.WatchDocs != nil {
		c.WatchDocs = *fc.WatchDocs
	}
	if fc.DocTTL != "" {
		d, err := time.ParseDuration(fc.DocTTL)
		if err != nil {
			return fmt.Errorf("parse doc_ttl: %w", err)
		}
		c.DocTTL = d
	}
	if fc.DebounceWindow != "" {
		d, err := time.ParseDuration(fc.DebounceWindow)
		if err != nil {
			return fmt.Errorf("parse debounce_window: %w", err)
		}
		c.DebounceWindow = d
	}
	if fc.MaxUploadBytes > 0 {
		c.MaxUploadBytes = fc.MaxUploadBytes
	}
	return nil
}

// Validate checks the configuration for inconsistencies.
func (c Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port must not be empty")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("max_upload_bytes must be positive")
	}
	if c.DocTTL <= 0 {
		return fmt.Errorf("doc_ttl must be positive")
	}
	if c.WatchDocs && c.DocsDir == "" {
		return fmt.Errorf("watch_docs requires docs_dir")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
