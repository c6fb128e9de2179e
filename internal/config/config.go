package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

const (
	DefaultBufSize     = 100
	DefaultGeminiModel = "gemini-2.0-flash"
	DefaultMaxTokens   = 1024
	DefaultMemoryFile  = "memory.json"
	DefaultStyleFile   = "my_style.txt"
)

// DefaultNames are the aliases that count as a direct mention of the bot.
var DefaultNames = []string{"Bahrom", "Baxrom", "Бахром", "aytchi", "iltmos yordam bering"}

type Config struct {
	Persona   PersonaConfig   `json:"persona"`
	Channels  ChannelsConfig  `json:"channels"`
	Generator GeneratorConfig `json:"generator"`
	Memory    MemoryConfig    `json:"memory"`
	Gateway   GatewayConfig   `json:"gateway"`
}

type PersonaConfig struct {
	// Names are matched as whole words (case-insensitive) to detect a
	// direct mention.
	Names []string `json:"names"`
	// OwnerID is the user whose messages seed the style corpus.
	OwnerID string `json:"ownerId" env:"AYTCHI_OWNER_ID"`
}

type ChannelsConfig struct {
	Telegram TelegramConfig `json:"telegram"`
}

type TelegramConfig struct {
	Token     string   `json:"token" env:"AYTCHI_TELEGRAM_TOKEN"`
	AllowFrom []string `json:"allowFrom"`
	Proxy     string   `json:"proxy,omitempty" env:"AYTCHI_TELEGRAM_PROXY"`
}

type GeneratorConfig struct {
	// Provider is "gemini" (default), "openai" or "anthropic".
	Provider  string `json:"provider,omitempty" env:"AYTCHI_GENERATOR_PROVIDER"`
	APIKey    string `json:"apiKey" env:"AYTCHI_GENERATOR_API_KEY"`
	BaseURL   string `json:"baseUrl,omitempty" env:"AYTCHI_GENERATOR_BASE_URL"`
	Model     string `json:"model,omitempty" env:"AYTCHI_GENERATOR_MODEL"`
	MaxTokens int    `json:"maxTokens,omitempty"`
}

type MemoryConfig struct {
	// MemoryFile holds the fact snapshot, StyleFile the append-only style
	// corpus log. Relative paths resolve under DataDir().
	MemoryFile string `json:"memoryFile,omitempty"`
	StyleFile  string `json:"styleFile,omitempty"`
}

type GatewayConfig struct {
	BufSize int `json:"bufSize,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Persona: PersonaConfig{
			Names: append([]string(nil), DefaultNames...),
		},
		Generator: GeneratorConfig{
			Provider:  "gemini",
			Model:     DefaultGeminiModel,
			MaxTokens: DefaultMaxTokens,
		},
		Memory: MemoryConfig{
			MemoryFile: DefaultMemoryFile,
			StyleFile:  DefaultStyleFile,
		},
		Gateway: GatewayConfig{
			BufSize: DefaultBufSize,
		},
	}
}

func ConfigDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".aytchi")
}

func DataDir() string {
	return filepath.Join(ConfigDir(), "data")
}

func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

// Load reads the config file at path (defaults applied for anything unset)
// and then layers environment variable overrides on top.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// first run, defaults + env only
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env overrides: %w", err)
	}

	if len(cfg.Persona.Names) == 0 {
		cfg.Persona.Names = append([]string(nil), DefaultNames...)
	}
	if cfg.Gateway.BufSize <= 0 {
		cfg.Gateway.BufSize = DefaultBufSize
	}
	return cfg, nil
}

// Validate enforces the credentials required to start at all. A partially
// configured process must not come up.
func (c *Config) Validate() error {
	if c.Channels.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required (config channels.telegram.token or AYTCHI_TELEGRAM_TOKEN)")
	}
	if c.Generator.APIKey == "" {
		return fmt.Errorf("generator API key is required (config generator.apiKey or AYTCHI_GENERATOR_API_KEY)")
	}
	return nil
}

// MemoryPath resolves the fact snapshot location.
func (c *Config) MemoryPath() string {
	return resolveDataPath(c.Memory.MemoryFile, DefaultMemoryFile)
}

// StylePath resolves the style corpus log location.
func (c *Config) StylePath() string {
	return resolveDataPath(c.Memory.StyleFile, DefaultStyleFile)
}

func resolveDataPath(p, fallback string) string {
	if p == "" {
		p = fallback
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(DataDir(), p)
}

// Save writes the config as indented JSON, creating the directory if needed.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}
