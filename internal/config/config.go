package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	ProviderGoogleAI = "googleai"
	ProviderOpenAI   = "openai"
	ProviderOllama   = "ollama"

	BackendChromem  = "chromem"
	BackendPGVector = "pgvector"

	DriverPgdriver = "pgdriver"
	DriverPQ       = "pq"
)

type Config struct {
	Log      LogConfig      `yaml:"log"`
	Fetch    FetchConfig    `yaml:"fetch"`
	RAG      RAGConfig      `yaml:"rag"`
	EmbedLLM LLMConfig      `yaml:"embed_llm"`
	LLM      LLMConfig      `yaml:"llm"`
	Index    IndexConfig    `yaml:"index"`
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type FetchConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	MaxBytes  int64         `yaml:"max_bytes"`
	UserAgent string        `yaml:"user_agent"`
}

type RAGConfig struct {
	ChunkSize    int     `yaml:"chunk_size"`
	ChunkOverlap int     `yaml:"chunk_overlap"`
	TopK         int     `yaml:"top_k"`
	Temperature  float64 `yaml:"temperature"`
}

// LLMConfig configures one remote model. Key wins over KeyEnv when both are set.
type LLMConfig struct {
	Provider  string `yaml:"provider"`
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	Key       string `yaml:"key"`
	KeyEnv    string `yaml:"key_env"`
	BatchSize int    `yaml:"batch_size"`
}

type IndexConfig struct {
	Backend       string `yaml:"backend"`
	Path          string `yaml:"path"`
	Collection    string `yaml:"collection"`
	Compress      bool   `yaml:"compress"`
	EncryptionKey string `yaml:"encryption_key"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	Table  string `yaml:"table"`
	Debug  bool   `yaml:"debug"`
}

type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// LoadConfig reads the YAML file at path. A missing file yields the defaults.
// A .env file in the working directory is loaded first so that API keys can
// live there.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	ApplyDefaults(&cfg)
	cfg.EmbedLLM.resolveKey()
	cfg.LLM.resolveKey()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *LLMConfig) resolveKey() {
	if c.Key == "" && c.KeyEnv != "" {
		c.Key = os.Getenv(c.KeyEnv)
	}
}

// Validate checks the combinations ApplyDefaults cannot repair.
func (c *Config) Validate() error {
	if c.RAG.ChunkSize <= 0 {
		return fmt.Errorf("rag.chunk_size must be positive, got %d", c.RAG.ChunkSize)
	}
	if c.RAG.ChunkOverlap < 0 || c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		return fmt.Errorf("rag.chunk_overlap must be in [0, %d), got %d", c.RAG.ChunkSize, c.RAG.ChunkOverlap)
	}
	if c.RAG.TopK <= 0 {
		return fmt.Errorf("rag.top_k must be positive, got %d", c.RAG.TopK)
	}
	for name, l := range map[string]LLMConfig{"embed_llm": c.EmbedLLM, "llm": c.LLM} {
		switch l.Provider {
		case ProviderGoogleAI, ProviderOpenAI:
			if l.Key == "" {
				return fmt.Errorf("%s: missing API key, set %s", name, l.KeyEnv)
			}
		case ProviderOllama:
		default:
			return fmt.Errorf("%s: unknown provider %q", name, l.Provider)
		}
	}
	switch c.Index.Backend {
	case BackendChromem:
		if c.Index.EncryptionKey != "" && len(c.Index.EncryptionKey) != 32 {
			return errors.New("index.encryption_key must be 32 bytes")
		}
	case BackendPGVector:
		if c.Database.DSN == "" {
			return errors.New("database.dsn is required for the pgvector backend")
		}
		if c.Database.Driver != DriverPgdriver && c.Database.Driver != DriverPQ {
			return fmt.Errorf("unknown database.driver %q", c.Database.Driver)
		}
	default:
		return fmt.Errorf("unknown index.backend %q", c.Index.Backend)
	}
	return nil
}
