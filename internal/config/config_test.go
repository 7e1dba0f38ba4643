package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/thechalk/chalkbot/internal/models"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9000
store:
  dir: "./embeddings"
provider:
  vendor: "openai"
  openai:
    api_key: "sk-test"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Provider.Vendor != "openai" || cfg.Provider.OpenAI.APIKey != "sk-test" {
		t.Errorf("unexpected provider config: %+v", cfg.Provider)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
	// Defaults fill the answer section.
	if cfg.Answer.TopK != 3 || cfg.Answer.MinSimilarity != 0.3 || cfg.Answer.ChunkSize != 500 {
		t.Errorf("answer defaults: %+v", cfg.Answer)
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	path := writeConfig(t, `
store:
  dir: "./data/embeddings"
corpus:
  database_path: "./data/platform.db"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	dir := filepath.Dir(path)
	if want := filepath.Join(dir, "data", "embeddings"); cfg.Store.Dir != want {
		t.Errorf("store dir = %s, want %s", cfg.Store.Dir, want)
	}
	if want := filepath.Join(dir, "data", "platform.db"); cfg.Corpus.DatabasePath != want {
		t.Errorf("database_path = %s, want %s", cfg.Corpus.DatabasePath, want)
	}
}

func TestLoad_InvalidSettings(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"negative chunk size", "answer:\n  chunk_size: -5\n"},
		{"negative top_k", "answer:\n  top_k: -1\n"},
		{"similarity above range", "answer:\n  min_similarity: 1.5\n"},
		{"unknown vendor", "provider:\n  vendor: \"palm\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			if _, err := Load(path); !errors.Is(err, models.ErrInvalidConfiguration) {
				t.Errorf("err=%v, want ErrInvalidConfiguration", err)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" {
		t.Errorf("default host: got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default port: got %d", cfg.Server.Port)
	}
	if cfg.Provider.Vendor != "gemini" {
		t.Errorf("default vendor: got %s", cfg.Provider.Vendor)
	}
	if cfg.Answer.TopK != 3 {
		t.Errorf("default top_k: got %d", cfg.Answer.TopK)
	}
	if cfg.Answer.MinSimilarity != 0.3 {
		t.Errorf("default min_similarity: got %f", cfg.Answer.MinSimilarity)
	}
	if cfg.Answer.ChunkSize != 500 {
		t.Errorf("default chunk_size: got %d", cfg.Answer.ChunkSize)
	}
	if cfg.Answer.MinAnswerLength != 50 {
		t.Errorf("default min_answer_length: got %d", cfg.Answer.MinAnswerLength)
	}
	if len(cfg.Corpus.Extensions) == 0 || cfg.Corpus.Extensions[0] != ".txt" {
		t.Errorf("corpus extensions: got %v", cfg.Corpus.Extensions)
	}
}

func TestValidate_DefaultsPass(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_ExplicitZeroThresholdKept(t *testing.T) {
	path := writeConfig(t, `
answer:
  min_similarity: 0
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Answer.MinSimilarity != 0 {
		t.Errorf("min_similarity = %g, explicit 0 must not be replaced by the default", cfg.Answer.MinSimilarity)
	}
	// Absent keys still get defaults.
	if cfg.Answer.TopK != 3 {
		t.Errorf("top_k = %d, want default 3", cfg.Answer.TopK)
	}
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.yaml")
	cfg := &Config{
		Server: ServerConfig{Host: "localhost", Port: 9090},
		Store:  StoreConfig{Dir: "/tmp/embeddings"},
	}
	ApplyDefaults(cfg)
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("loaded port: got %d", loaded.Server.Port)
	}
}
