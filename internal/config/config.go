// Package config provides configuration loading and structs for the Chalkbot server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/thechalk/chalkbot/internal/models"
)

// Config holds all configuration for the application.
type Config struct {
	Debug    bool           `yaml:"debug"`
	Server   ServerConfig   `yaml:"server"`
	Store    StoreConfig    `yaml:"store"`
	Corpus   CorpusConfig   `yaml:"corpus"`
	Provider ProviderConfig `yaml:"provider"`
	Answer   AnswerConfig   `yaml:"answer"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StoreConfig holds the embedding artifact directory.
type StoreConfig struct {
	Dir string `yaml:"dir"`
}

// CorpusConfig holds the document sources indexes are built from. When
// DatabasePath is set, platform content (materials, posts, comments) comes
// from SQLite; when Directory is set, shared course files are read from
// disk. Both may be set.
type CorpusConfig struct {
	DatabasePath string   `yaml:"database_path"`
	Directory    string   `yaml:"directory"`
	Extensions   []string `yaml:"extensions"`
}

// ProviderConfig selects and configures the model vendor.
type ProviderConfig struct {
	Vendor string       `yaml:"vendor"` // "gemini", "openai", or "mock"
	Gemini VendorConfig `yaml:"gemini"`
	OpenAI VendorConfig `yaml:"openai"`
}

// VendorConfig holds one vendor's connection settings. Zero values fall
// back to the vendor client's own defaults.
type VendorConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	EmbedModel     string `yaml:"embed_model"`
	GenerateModel  string `yaml:"generate_model"`
	EmbedDimension int    `yaml:"embed_dimension"`
	MaxRetries     int    `yaml:"max_retries"`
}

// AnswerConfig holds retrieval and validation settings.
type AnswerConfig struct {
	TopK            int      `yaml:"top_k"`
	MinSimilarity   float64  `yaml:"min_similarity"`
	ChunkSize       int      `yaml:"chunk_size"`
	MinAnswerLength int      `yaml:"min_answer_length"`
	RefusalPhrases  []string `yaml:"refusal_phrases"`
	Apology         string   `yaml:"apology"`
}

// Load reads and parses the config file at path and expands paths. Defaults
// are applied before parsing, so an absent key gets its default while an
// explicit value always stands, including valid zeros such as
// min_similarity: 0. Returns an error if the file cannot be read or parsed,
// or if the result fails validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	ApplyDefaults(&cfg)
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	configDir := filepath.Dir(path)
	cfg.Store.Dir = expandPath(cfg.Store.Dir, configDir)
	if cfg.Corpus.DatabasePath != "" {
		cfg.Corpus.DatabasePath = expandPath(cfg.Corpus.DatabasePath, configDir)
	}
	if cfg.Corpus.Directory != "" {
		cfg.Corpus.Directory = expandPath(cfg.Corpus.Directory, configDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	if c.Answer.ChunkSize < 1 {
		return fmt.Errorf("%w: chunk_size must be at least 1, got %d", models.ErrInvalidConfiguration, c.Answer.ChunkSize)
	}
	if c.Answer.TopK < 1 {
		return fmt.Errorf("%w: top_k must be at least 1, got %d", models.ErrInvalidConfiguration, c.Answer.TopK)
	}
	if c.Answer.MinSimilarity < -1 || c.Answer.MinSimilarity > 1 {
		return fmt.Errorf("%w: min_similarity must be in [-1, 1], got %g", models.ErrInvalidConfiguration, c.Answer.MinSimilarity)
	}
	switch c.Provider.Vendor {
	case "gemini", "openai", "mock":
	default:
		return fmt.Errorf("%w: unknown provider vendor %q", models.ErrInvalidConfiguration, c.Provider.Vendor)
	}
	return nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
