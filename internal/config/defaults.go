package config

import "time"

const (
	defaultChunkSize    = 10000 // characters
	defaultChunkOverlap = 1000  // characters
	defaultTopK         = 4
	defaultTemperature  = 0.3
	defaultFetchTimeout = 10 * time.Second
	defaultMaxPDFBytes  = 64 << 20
	defaultKeyEnv       = "GOOGLE_API_KEY"
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Fetch.Timeout == 0 {
		cfg.Fetch.Timeout = defaultFetchTimeout
	}
	if cfg.Fetch.MaxBytes == 0 {
		cfg.Fetch.MaxBytes = defaultMaxPDFBytes
	}
	if cfg.Fetch.UserAgent == "" {
		cfg.Fetch.UserAgent = "chat-pdf/1.0"
	}
	if cfg.RAG.ChunkSize == 0 {
		cfg.RAG.ChunkSize = defaultChunkSize
	}
	if cfg.RAG.ChunkOverlap == 0 {
		cfg.RAG.ChunkOverlap = defaultChunkOverlap
	}
	if cfg.RAG.TopK == 0 {
		cfg.RAG.TopK = defaultTopK
	}
	if cfg.RAG.Temperature == 0 {
		cfg.RAG.Temperature = defaultTemperature
	}

	applyLLMDefaults(&cfg.EmbedLLM, "embedding-001", "text-embedding-3-small", "nomic-embed-text")
	applyLLMDefaults(&cfg.LLM, "gemini-1.5-flash", "gpt-4o-mini", "llama3")
	if cfg.EmbedLLM.BatchSize == 0 {
		cfg.EmbedLLM.BatchSize = 100
	}

	if cfg.Index.Backend == "" {
		cfg.Index.Backend = BackendChromem
	}
	if cfg.Index.Path == "" {
		cfg.Index.Path = "faiss_index"
	}
	if cfg.Index.Collection == "" {
		cfg.Index.Collection = "pdf_chunks"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DriverPgdriver
	}
	if cfg.Database.Table == "" {
		cfg.Database.Table = "pdf_chunks"
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8501
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 5 * time.Minute
	}
}

func applyLLMDefaults(l *LLMConfig, googleModel, openaiModel, ollamaModel string) {
	if l.Provider == "" {
		l.Provider = ProviderGoogleAI
	}
	if l.KeyEnv == "" {
		switch l.Provider {
		case ProviderOpenAI:
			l.KeyEnv = "OPENAI_API_KEY"
		default:
			l.KeyEnv = defaultKeyEnv
		}
	}
	if l.Model != "" {
		return
	}
	switch l.Provider {
	case ProviderGoogleAI:
		l.Model = googleModel
	case ProviderOpenAI:
		l.Model = openaiModel
	case ProviderOllama:
		l.Model = ollamaModel
	}
}
