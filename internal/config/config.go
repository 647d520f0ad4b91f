// ABOUTME: Centralized configuration for the datachat CLI and MCP server
// ABOUTME: Loads an optional TOML file, then environment overrides, with validation and defaults
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"
)

// Provider names accepted by LLM_PROVIDER
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Cache backends accepted by CACHE_BACKEND
const (
	BackendFS     = "fs"
	BackendSQLite = "sqlite"
	BackendCharm  = "charm"
)

// Config holds all configuration for datachat
type Config struct {
	// LLM settings
	Provider        string        `toml:"provider"`
	OpenAIKey       string        `toml:"openai_api_key"`
	GeminiKey       string        `toml:"gemini_api_key"`
	ChatModel       string        `toml:"chat_model"`
	EmbeddingModel  string        `toml:"embedding_model"`
	TranscribeModel string        `toml:"transcribe_model"`
	Temperature     float64       `toml:"temperature"`
	Timeout         time.Duration `toml:"timeout"`
	MaxRetries      int           `toml:"max_retries"`
	RetryDelay      time.Duration `toml:"retry_delay"`

	// Storage settings
	CacheBackend string `toml:"cache_backend"`
	DataDir      string `toml:"data_dir"`
	CacheDir     string `toml:"cache_dir"`
	CharmHost    string `toml:"charm_host"`
	AutoSync     bool   `toml:"charm_auto_sync"`

	// Pipeline settings
	ChunkSize           int    `toml:"chunk_size"`
	ChunkOverlap        int    `toml:"chunk_overlap"`
	SummaryChunkSize    int    `toml:"summary_chunk_size"`
	SummaryChunkOverlap int    `toml:"summary_chunk_overlap"`
	TopK                int    `toml:"top_k"`
	SegmentMinutes      int    `toml:"segment_minutes"`
	FFmpegPath          string `toml:"ffmpeg_path"`

	LogLevel string `toml:"log_level"`
}

// Default returns a Config with every default applied
func Default() *Config {
	return &Config{
		Provider:            ProviderOpenAI,
		ChatModel:           "gpt-4o-mini",
		EmbeddingModel:      "text-embedding-3-small",
		TranscribeModel:     "whisper-1",
		Temperature:         0.1,
		Timeout:             30 * time.Second,
		MaxRetries:          0,
		RetryDelay:          2 * time.Second,
		CacheBackend:        BackendFS,
		DataDir:             filepath.Join(xdg.DataHome, "datachat"),
		CacheDir:            filepath.Join(xdg.CacheHome, "datachat"),
		CharmHost:           "cloud.charm.sh",
		AutoSync:            false,
		ChunkSize:           600,
		ChunkOverlap:        100,
		SummaryChunkSize:    800,
		SummaryChunkOverlap: 100,
		TopK:                4,
		SegmentMinutes:      10,
		FFmpegPath:          "ffmpeg",
		LogLevel:            "info",
	}
}

// DefaultPath returns the config file location, honoring DATACHAT_CONFIG
func DefaultPath() string {
	if p := os.Getenv("DATACHAT_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(xdg.ConfigHome, "datachat", "config.toml")
}

// Load reads the config file at DefaultPath (if present) and applies
// environment overrides on top
func Load() (*Config, error) {
	return LoadFile(DefaultPath())
}

// LoadFile reads the TOML file at path, falling back to defaults when it does
// not exist, then applies environment overrides
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() {
	c.Provider = getEnv("LLM_PROVIDER", c.Provider)
	c.OpenAIKey = getEnv("OPENAI_API_KEY", c.OpenAIKey)
	c.GeminiKey = getEnv("GEMINI_API_KEY", c.GeminiKey)
	c.ChatModel = getEnv("DATACHAT_CHAT_MODEL", c.ChatModel)
	c.EmbeddingModel = getEnv("DATACHAT_EMBEDDING_MODEL", c.EmbeddingModel)
	c.TranscribeModel = getEnv("DATACHAT_TRANSCRIBE_MODEL", c.TranscribeModel)
	c.Temperature = getEnvFloat("DATACHAT_TEMPERATURE", c.Temperature)
	c.Timeout = getEnvDuration("OPENAI_TIMEOUT", c.Timeout)
	c.MaxRetries = getEnvInt("OPENAI_MAX_RETRIES", c.MaxRetries)
	c.RetryDelay = getEnvDuration("OPENAI_RETRY_DELAY", c.RetryDelay)
	c.CacheBackend = getEnv("CACHE_BACKEND", c.CacheBackend)
	c.DataDir = getEnv("DATACHAT_DATA_DIR", c.DataDir)
	c.CacheDir = getEnv("DATACHAT_CACHE_DIR", c.CacheDir)
	c.CharmHost = getEnv("CHARM_HOST", c.CharmHost)
	c.AutoSync = getEnvBool("CHARM_AUTO_SYNC", c.AutoSync)
	c.ChunkSize = getEnvInt("CHUNK_SIZE", c.ChunkSize)
	c.ChunkOverlap = getEnvInt("CHUNK_OVERLAP", c.ChunkOverlap)
	c.SummaryChunkSize = getEnvInt("SUMMARY_CHUNK_SIZE", c.SummaryChunkSize)
	c.SummaryChunkOverlap = getEnvInt("SUMMARY_CHUNK_OVERLAP", c.SummaryChunkOverlap)
	c.TopK = getEnvInt("RETRIEVER_TOP_K", c.TopK)
	c.SegmentMinutes = getEnvInt("AUDIO_SEGMENT_MINUTES", c.SegmentMinutes)
	c.FFmpegPath = getEnv("FFMPEG_PATH", c.FFmpegPath)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
}

func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("LLM_PROVIDER must be %q or %q, got %q", ProviderOpenAI, ProviderGemini, c.Provider)
	}
	switch c.CacheBackend {
	case BackendFS, BackendSQLite, BackendCharm:
	default:
		return fmt.Errorf("CACHE_BACKEND must be fs, sqlite or charm, got %q", c.CacheBackend)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("DATACHAT_TEMPERATURE must be 0-2, got %f", c.Temperature)
	}
	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		return fmt.Errorf("OPENAI_MAX_RETRIES must be 0-10, got %d", c.MaxRetries)
	}
	if c.ChunkSize <= 0 || c.SummaryChunkSize <= 0 {
		return fmt.Errorf("chunk sizes must be positive, got %d and %d", c.ChunkSize, c.SummaryChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_SIZE), got %d", c.ChunkOverlap)
	}
	if c.SummaryChunkOverlap < 0 || c.SummaryChunkOverlap >= c.SummaryChunkSize {
		return fmt.Errorf("SUMMARY_CHUNK_OVERLAP must be in [0, SUMMARY_CHUNK_SIZE), got %d", c.SummaryChunkOverlap)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("RETRIEVER_TOP_K must be positive, got %d", c.TopK)
	}
	if c.SegmentMinutes <= 0 {
		return fmt.Errorf("AUDIO_SEGMENT_MINUTES must be positive, got %d", c.SegmentMinutes)
	}
	return nil
}

// APIKey returns the key for the configured provider
func (c *Config) APIKey() string {
	if c.Provider == ProviderGemini {
		return c.GeminiKey
	}
	return c.OpenAIKey
}

// Helper functions
func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v == "true" || v == "1"
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
