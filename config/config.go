// Package config provides configuration loading and management for the
// iSamples transform tooling.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/isamples/classify"
	"github.com/c360studio/isamples/localcontexts"
	"github.com/c360studio/isamples/taxonomy"
)

// Config represents the complete configuration
type Config struct {
	ModelServer   ModelServerConfig   `yaml:"model_server"`
	Vocabulary    VocabularyConfig    `yaml:"vocabulary"`
	Taxonomy      TaxonomyConfig      `yaml:"taxonomy"`
	LocalContexts LocalContextsConfig `yaml:"local_contexts"`
	Pipeline      PipelineConfig      `yaml:"pipeline"`
	NATS          NATSConfig          `yaml:"nats"`
}

// ModelServerConfig configures the classification model server
type ModelServerConfig struct {
	// URL is the model server base URL (empty disables classification)
	URL string `yaml:"url"`
	// CacheSize bounds the prediction response cache
	CacheSize int `yaml:"cache_size"`
	// Timeout is the per-request HTTP timeout
	Timeout time.Duration `yaml:"timeout"`
}

// VocabularyConfig selects where vocabulary documents come from
type VocabularyConfig struct {
	// RepositoryURL is a term repository endpoint; it takes precedence over Dir
	RepositoryURL string `yaml:"repository_url"`
	// Dir holds material.json, materialsample.json and anysampledfeature.json
	Dir string `yaml:"dir"`
}

// TaxonomyConfig configures GBIF kingdom lookups
type TaxonomyConfig struct {
	// GBIFURL is the species-match endpoint (empty disables lookups)
	GBIFURL string `yaml:"gbif_url"`
	// CacheSize bounds the in-memory lookup cache
	CacheSize int `yaml:"cache_size"`
	// DBPath is the SQLite file persisting lookups (empty = memory only)
	DBPath string `yaml:"db_path"`
	// RequestsPerSecond limits GBIF queries (0 = unlimited)
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// LocalContextsConfig configures the Local Contexts Hub client
type LocalContextsConfig struct {
	URL       string `yaml:"url"`
	CacheSize int    `yaml:"cache_size"`
}

// PipelineConfig configures batch transforms
type PipelineConfig struct {
	// Workers is the number of records transformed concurrently
	Workers int `yaml:"workers"`
	// IncludeH3 attaches H3 cells to canonical records
	IncludeH3 bool `yaml:"include_h3"`
}

// NATSConfig configures publishing of search documents
type NATSConfig struct {
	// URL is the NATS server URL (empty = write files instead)
	URL string `yaml:"url"`
	// Subject is the subject documents are published on
	Subject string `yaml:"subject"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		ModelServer: ModelServerConfig{
			URL:       classify.DefaultBaseURL,
			CacheSize: classify.DefaultCacheSize,
			Timeout:   30 * time.Second,
		},
		Vocabulary: VocabularyConfig{
			Dir: "vocabularies",
		},
		Taxonomy: TaxonomyConfig{
			GBIFURL:           taxonomy.DefaultGBIFURL,
			CacheSize:         taxonomy.DefaultCacheSize,
			RequestsPerSecond: taxonomy.DefaultRequestsPerSecond,
		},
		LocalContexts: LocalContextsConfig{
			URL:       localcontexts.DefaultAPIURL,
			CacheSize: localcontexts.DefaultCacheSize,
		},
		Pipeline: PipelineConfig{
			Workers:   4,
			IncludeH3: true,
		},
		NATS: NATSConfig{
			Subject: "isamples.documents",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Vocabulary.RepositoryURL == "" && c.Vocabulary.Dir == "" {
		return fmt.Errorf("vocabulary.repository_url or vocabulary.dir is required")
	}
	if c.ModelServer.CacheSize <= 0 {
		return fmt.Errorf("model_server.cache_size must be positive")
	}
	if c.ModelServer.Timeout < 0 {
		return fmt.Errorf("model_server.timeout cannot be negative")
	}
	if c.Taxonomy.CacheSize <= 0 {
		return fmt.Errorf("taxonomy.cache_size must be positive")
	}
	if c.Taxonomy.RequestsPerSecond < 0 {
		return fmt.Errorf("taxonomy.requests_per_second cannot be negative")
	}
	if c.LocalContexts.CacheSize <= 0 {
		return fmt.Errorf("local_contexts.cache_size must be positive")
	}
	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("pipeline.workers must be at least 1")
	}
	if c.NATS.URL != "" && c.NATS.Subject == "" {
		return fmt.Errorf("nats.subject is required when nats.url is set")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Model server
	if other.ModelServer.URL != "" {
		c.ModelServer.URL = other.ModelServer.URL
	}
	if other.ModelServer.CacheSize != 0 {
		c.ModelServer.CacheSize = other.ModelServer.CacheSize
	}
	if other.ModelServer.Timeout != 0 {
		c.ModelServer.Timeout = other.ModelServer.Timeout
	}

	// Vocabulary
	if other.Vocabulary.RepositoryURL != "" {
		c.Vocabulary.RepositoryURL = other.Vocabulary.RepositoryURL
	}
	if other.Vocabulary.Dir != "" {
		c.Vocabulary.Dir = other.Vocabulary.Dir
	}

	// Taxonomy
	if other.Taxonomy.GBIFURL != "" {
		c.Taxonomy.GBIFURL = other.Taxonomy.GBIFURL
	}
	if other.Taxonomy.CacheSize != 0 {
		c.Taxonomy.CacheSize = other.Taxonomy.CacheSize
	}
	if other.Taxonomy.DBPath != "" {
		c.Taxonomy.DBPath = other.Taxonomy.DBPath
	}
	if other.Taxonomy.RequestsPerSecond != 0 {
		c.Taxonomy.RequestsPerSecond = other.Taxonomy.RequestsPerSecond
	}

	// Local Contexts
	if other.LocalContexts.URL != "" {
		c.LocalContexts.URL = other.LocalContexts.URL
	}
	if other.LocalContexts.CacheSize != 0 {
		c.LocalContexts.CacheSize = other.LocalContexts.CacheSize
	}

	// Pipeline. IncludeH3 is a bool whose default is true, so a file that
	// sets it is taken as is.
	if other.Pipeline.Workers != 0 {
		c.Pipeline.Workers = other.Pipeline.Workers
	}
	c.Pipeline.IncludeH3 = other.Pipeline.IncludeH3

	// NATS
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}
	if other.NATS.Subject != "" {
		c.NATS.Subject = other.NATS.Subject
	}
}
