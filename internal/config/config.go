package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
)

type LLMConfig struct {
	Name        string   `json:"name"`
	URL         string   `json:"url"`
	ContextSize int      `json:"context_size"`
	Temperature *float64 `json:"temperature"`
}

type EmbeddingConfig struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type QdrantConfig struct {
	URL        string `json:"url"`
	Collection string `json:"collection"`
	APIKey     string `json:"api_key"`
}

type RetrievalConfig struct {
	TopK      int      `json:"top_k"`
	Threshold *float64 `json:"threshold"`
}

type DialogueConfig struct {
	TerminationTurns int `json:"termination_turns"`
	SummaryMinTurns  int `json:"summary_min_turns"`
}

type Config struct {
	Server struct {
		Host      string `json:"host"`
		Port      int    `json:"port"`
		Subpath   string `json:"subpath"`
		JWTSecret string `json:"jwtSecret"`
	} `json:"server"`
	Postgres struct {
		DSN string `json:"dsn"`
	} `json:"postgres"`
	Redis struct {
		Addr     string `json:"addr"`
		Password string `json:"password"`
		DB       int    `json:"db"`
	} `json:"redis"`
	LLM       LLMConfig       `json:"llm"`
	Embedding EmbeddingConfig `json:"embedding"`
	Qdrant    QdrantConfig    `json:"qdrant"`
	Retrieval RetrievalConfig `json:"retrieval"`
	Dialogue  DialogueConfig  `json:"dialogue"`
}

var (
	once   sync.Once
	cfg    *Config
	cfgErr error
)

// LoadConfig reads config.json from disk (singleton)
func LoadConfig(path string) (*Config, error) {
	once.Do(func() {
		raw, err := os.ReadFile(path)
		if err != nil {
			cfgErr = fmt.Errorf("failed to read config file: %w", err)
			return
		}
		var c Config
		if err := json.Unmarshal(raw, &c); err != nil {
			cfgErr = fmt.Errorf("invalid config format: %w", err)
			return
		}
		// Minimal validation
		if c.Server.JWTSecret == "" {
			cfgErr = errors.New("jwtSecret must be set in config")
			return
		}
		c.ApplyDefaults()
		cfg = &c
	})
	return cfg, cfgErr
}

// Float is a literal helper for the pointer-typed tunables.
func Float(v float64) *float64 { return &v }

// ApplyDefaults fills in the documented defaults for tunables left unset.
// Threshold and Temperature are pointers because zero is a meaningful value
// for both: an absent key gets the default, an explicit 0 stays 0.
func (c *Config) ApplyDefaults() {
	if c.Retrieval.TopK == 0 {
		c.Retrieval.TopK = 3
	}
	if c.Retrieval.Threshold == nil {
		c.Retrieval.Threshold = Float(0.3)
	}
	if c.Dialogue.TerminationTurns == 0 {
		c.Dialogue.TerminationTurns = 20
	}
	if c.Dialogue.SummaryMinTurns == 0 {
		c.Dialogue.SummaryMinTurns = 10
	}
	if c.LLM.ContextSize == 0 {
		c.LLM.ContextSize = 8192
	}
	if c.LLM.Temperature == nil {
		c.LLM.Temperature = Float(0.7)
	}
}

// GetConfig returns the loaded config (must call LoadConfig first)
func GetConfig() *Config {
	return cfg
}

// ResetConfigForTest resets the singleton state (for testing only)
func ResetConfigForTest() {
	once = sync.Once{}
	cfg = nil
	cfgErr = nil
}
