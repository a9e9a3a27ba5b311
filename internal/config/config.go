package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

const (
	DefaultModel       = "claude-sonnet-4-5-20250929"
	DefaultMaxTokens   = 1024
	DefaultTemperature = 0.8
	DefaultHost        = "0.0.0.0"
	DefaultPort        = 18820
	DefaultBufSize     = 100

	DefaultCompanionName = "Pal"

	DefaultSessionResetHours   = 4
	DefaultThoughtIdleMinutes  = 10
	DefaultDreamIdleMinutes    = 30
	DefaultIdleTickSpec        = "@every 1m"
	DefaultRetrievalLimit      = 5
	DefaultEmbeddingTimeoutMs  = 15000
	DefaultEmbeddingBatchSize  = 16
	DefaultEmbeddingDimension  = 0 // accept whatever the provider returns
)

type Config struct {
	Companion CompanionConfig `json:"companion"`
	Provider  ProviderConfig  `json:"provider"`
	Embedding EmbeddingConfig `json:"embedding"`
	Memory    MemoryConfig    `json:"memory"`
	Session   SessionConfig   `json:"session"`
	Channels  ChannelsConfig  `json:"channels"`
	Gateway   GatewayConfig   `json:"gateway"`
}

type CompanionConfig struct {
	Name        string  `json:"name"`
	Model       string  `json:"model"`
	MaxTokens   int     `json:"maxTokens"`
	Temperature float64 `json:"temperature"`
}

type ProviderConfig struct {
	APIKey  string `json:"apiKey"`
	BaseURL string `json:"baseUrl,omitempty"`
}

type EmbeddingConfig struct {
	BaseURL   string `json:"baseUrl,omitempty"`
	APIKey    string `json:"apiKey,omitempty"`
	Model     string `json:"model,omitempty"`
	Dimension int    `json:"dimension,omitempty"`
	TimeoutMs int    `json:"timeoutMs,omitempty"`
	BatchSize int    `json:"batchSize,omitempty"`
}

type MemoryConfig struct {
	DBPath         string `json:"dbPath,omitempty"`
	RetrievalLimit int    `json:"retrievalLimit,omitempty"`
}

type SessionConfig struct {
	ResetHours         int `json:"resetHours,omitempty"`
	ThoughtIdleMinutes int `json:"thoughtIdleMinutes,omitempty"`
	DreamIdleMinutes   int `json:"dreamIdleMinutes,omitempty"`
}

type ChannelsConfig struct {
	Telegram TelegramConfig `json:"telegram"`
	Web      WebConfig      `json:"web"`
}

type TelegramConfig struct {
	Enabled   bool     `json:"enabled"`
	Token     string   `json:"token"`
	AllowFrom []string `json:"allowFrom"`
}

type WebConfig struct {
	Enabled bool `json:"enabled"`
}

type GatewayConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

func DefaultConfig() *Config {
	return &Config{
		Companion: CompanionConfig{
			Name:        DefaultCompanionName,
			Model:       DefaultModel,
			MaxTokens:   DefaultMaxTokens,
			Temperature: DefaultTemperature,
		},
		Provider: ProviderConfig{},
		Memory: MemoryConfig{
			RetrievalLimit: DefaultRetrievalLimit,
		},
		Session: SessionConfig{
			ResetHours:         DefaultSessionResetHours,
			ThoughtIdleMinutes: DefaultThoughtIdleMinutes,
			DreamIdleMinutes:   DefaultDreamIdleMinutes,
		},
		Channels: ChannelsConfig{
			Web: WebConfig{Enabled: true},
		},
		Gateway: GatewayConfig{
			Host: DefaultHost,
			Port: DefaultPort,
		},
	}
}

func ConfigDir() string {
	home := os.Getenv("HOME")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return filepath.Join(home, ".pal")
}

func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

// IdentityPath is the default location of the persisted companion identity.
func IdentityPath() string {
	return filepath.Join(ConfigDir(), "identity.json")
}

func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if key := os.Getenv("PAL_API_KEY"); key != "" {
		cfg.Provider.APIKey = key
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" && cfg.Provider.APIKey == "" {
		cfg.Provider.APIKey = key
	}
	if url := os.Getenv("PAL_BASE_URL"); url != "" {
		cfg.Provider.BaseURL = url
	}
	if url := os.Getenv("ANTHROPIC_BASE_URL"); url != "" && cfg.Provider.BaseURL == "" {
		cfg.Provider.BaseURL = url
	}
	if token := os.Getenv("PAL_TELEGRAM_TOKEN"); token != "" {
		cfg.Channels.Telegram.Token = token
	}
	if key := os.Getenv("PAL_EMBEDDING_API_KEY"); key != "" {
		cfg.Embedding.APIKey = key
	}
	if url := os.Getenv("PAL_EMBEDDING_BASE_URL"); url != "" {
		cfg.Embedding.BaseURL = url
	}
	if model := os.Getenv("PAL_EMBEDDING_MODEL"); model != "" {
		cfg.Embedding.Model = model
	}
	if dbPath := os.Getenv("PAL_MEMORY_DB_PATH"); dbPath != "" {
		cfg.Memory.DBPath = dbPath
	}
	if port := os.Getenv("PAL_GATEWAY_PORT"); port != "" {
		if parsed, err := strconv.Atoi(port); err == nil {
			cfg.Gateway.Port = parsed
		}
	}

	if cfg.Companion.Name == "" {
		cfg.Companion.Name = DefaultCompanionName
	}
	if cfg.Companion.Model == "" {
		cfg.Companion.Model = DefaultModel
	}
	if cfg.Companion.MaxTokens <= 0 {
		cfg.Companion.MaxTokens = DefaultMaxTokens
	}
	if cfg.Memory.DBPath == "" {
		cfg.Memory.DBPath = filepath.Join(ConfigDir(), "memories")
	}
	if cfg.Memory.RetrievalLimit <= 0 {
		cfg.Memory.RetrievalLimit = DefaultRetrievalLimit
	}
	if cfg.Session.ResetHours <= 0 {
		cfg.Session.ResetHours = DefaultSessionResetHours
	}
	if cfg.Session.ThoughtIdleMinutes <= 0 {
		cfg.Session.ThoughtIdleMinutes = DefaultThoughtIdleMinutes
	}
	if cfg.Session.DreamIdleMinutes <= 0 {
		cfg.Session.DreamIdleMinutes = DefaultDreamIdleMinutes
	}

	return cfg, nil
}

func SaveConfig(cfg *Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(ConfigPath(), data, 0644)
}
