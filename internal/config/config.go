// Package config loads pipeline configuration from an optional YAML file
// with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/complium/adgmreview/internal/embedding"
)

// Config holds every tunable of the review pipeline.
type Config struct {
	DocumentsDir string `yaml:"documents_dir"`
	CorpusDir    string `yaml:"corpus_dir"`
	IndexPath    string `yaml:"index_path"`
	Collection   string `yaml:"collection"`
	OutputDir    string `yaml:"output_dir"`

	// Model is a provider:model string, e.g. "openai:gpt-4o-mini".
	Model string `yaml:"model"`

	Embedding embedding.Config `yaml:"embedding"`

	QueryLimit  int     `yaml:"query_limit"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DocumentsDir: "documents",
		CorpusDir:    "rag_docs",
		IndexPath:    "db/index.db",
		Collection:   "policy",
		OutputDir:    "corrected_documents",
		Model:        "openai:gpt-4o-mini",
		Embedding:    embedding.DefaultConfig(),
		QueryLimit:   10,
		Temperature:  0.3,
		MaxTokens:    4096,
	}
}

// Load builds the configuration: defaults, then the YAML file at path (or
// ./adgmreview.yaml when path is empty; a missing default file is fine),
// then environment variable overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if path == "" {
		path = "adgmreview.yaml"
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing %s: %w", path, err)
		}
	case explicit:
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	envOverride(&cfg.DocumentsDir, "ADGMREVIEW_DOCUMENTS_DIR")
	envOverride(&cfg.CorpusDir, "ADGMREVIEW_CORPUS_DIR")
	envOverride(&cfg.IndexPath, "ADGMREVIEW_INDEX_PATH")
	envOverride(&cfg.Collection, "ADGMREVIEW_COLLECTION")
	envOverride(&cfg.OutputDir, "ADGMREVIEW_OUTPUT_DIR")
	envOverride(&cfg.Model, "ADGMREVIEW_MODEL")
	envOverride(&cfg.Embedding.Provider, "ADGMREVIEW_EMBEDDING_PROVIDER")
	envOverride(&cfg.Embedding.OllamaEndpoint, "OLLAMA_ENDPOINT")
	envOverride(&cfg.Embedding.OllamaModel, "OLLAMA_EMBED_MODEL")
	envOverride(&cfg.Embedding.GenAIAPIKey, "GEMINI_API_KEY")
	envOverride(&cfg.Embedding.GenAIModel, "GEMINI_EMBED_MODEL")
	envOverrideInt(&cfg.QueryLimit, "ADGMREVIEW_QUERY_LIMIT")
	envOverrideInt(&cfg.MaxTokens, "ADGMREVIEW_MAX_TOKENS")

	if cfg.Collection == "" {
		return Config{}, fmt.Errorf("collection name must not be empty")
	}
	if cfg.QueryLimit <= 0 {
		return Config{}, fmt.Errorf("query_limit must be positive, got %d", cfg.QueryLimit)
	}
	return cfg, nil
}

func envOverride(target *string, key string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

func envOverrideInt(target *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*target = n
		}
	}
}
