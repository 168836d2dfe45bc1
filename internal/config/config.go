// Package config loads the sorma YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rcliao/sorma/internal/model"
)

// Environment variables consulted by Load.
const (
	EnvConfig  = "SORMA_CONFIG"
	EnvDataDir = "SORMA_DATA_DIR"
	EnvBackend = "SORMA_BACKEND"
	EnvAPIKey  = "ANTHROPIC_API_KEY"
	EnvOllama  = "OLLAMA_HOST"
)

// Config is the full sorma configuration.
type Config struct {
	DataDir string        `yaml:"data_dir"`
	Storage StorageConfig `yaml:"storage"`
	Memory  MemoryConfig  `yaml:"memory"`
	Owner   OwnerConfig   `yaml:"owner"`
	Models  ModelsConfig  `yaml:"models"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Backend     string `yaml:"backend"` // sqlite, json, redis
	RedisAddr   string `yaml:"redis_addr"`
	RedisPrefix string `yaml:"redis_prefix"`
}

// MemoryConfig bounds the memory collections.
type MemoryConfig struct {
	ShortTermLimit int `yaml:"short_term_limit"`
	LongTermLimit  int `yaml:"long_term_limit"` // 0 = unlimited
	ContextLimit   int `yaml:"context_limit"`
}

// OwnerConfig seeds the owner profile. Non-empty values override the
// stored profile.
type OwnerConfig struct {
	Name        string   `yaml:"name"`
	AuthPhrases []string `yaml:"auth_phrases"`
	WakeWords   []string `yaml:"wake_words"`
}

// ModelsConfig configures the language-model backends.
type ModelsConfig struct {
	Prefer []string   `yaml:"prefer"` // order of "cloud" and "local"
	Local  LocalModel `yaml:"local"`
	Cloud  CloudModel `yaml:"cloud"`
}

// LocalModel configures the Ollama backend.
type LocalModel struct {
	URL     string        `yaml:"url"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// CloudModel configures the Anthropic backend.
type CloudModel struct {
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	MaxTokens int64  `yaml:"max_tokens"`
	BaseURL   string `yaml:"base_url"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host       string        `yaml:"host"`
	Port       int           `yaml:"port"`
	SessionTTL time.Duration `yaml:"session_ttl"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// DefaultDataDir returns ~/.sorma.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".sorma"
	}
	return filepath.Join(home, ".sorma")
}

// Default returns a configuration with defaults filled in.
func Default() *Config {
	return &Config{
		DataDir: DefaultDataDir(),
		Storage: StorageConfig{Backend: "sqlite", RedisPrefix: "sorma:"},
		Memory:  MemoryConfig{ShortTermLimit: 50, ContextLimit: 5},
		Models: ModelsConfig{
			Prefer: []string{"cloud", "local"},
			Local:  LocalModel{Model: "llama3.2", Timeout: 60 * time.Second},
			Cloud:  CloudModel{Model: "claude-3-5-haiku-latest", MaxTokens: 1000},
		},
		Server:  ServerConfig{Host: "127.0.0.1", Port: 8000, SessionTTL: 12 * time.Hour},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// Resolve picks the config file path: the explicit path, then $SORMA_CONFIG,
// then config.yaml in the default data directory if it exists. It returns ""
// when no file applies.
func Resolve(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv(EnvConfig); env != "" {
		return env
	}
	candidate := filepath.Join(DefaultDataDir(), "config.yaml")
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return ""
}

// Load reads path (when non-empty) over the defaults, applies environment
// overrides and validates. ${VAR} references in the file are expanded.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvDataDir); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv(EnvBackend); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv(EnvAPIKey); v != "" && c.Models.Cloud.APIKey == "" {
		c.Models.Cloud.APIKey = v
	}
	if v := os.Getenv(EnvOllama); v != "" && c.Models.Local.URL == "" {
		c.Models.Local.URL = v
	}
}

var (
	validBackends = []string{"sqlite", "json", "redis"}
	validLevels   = []string{"debug", "info", "warn", "error"}
	validFormats  = []string{"json", "text"}
	validModels   = []string{"cloud", "local"}
)

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.DataDir) == "" {
		errs = append(errs, errors.New("data_dir is required"))
	}
	if !slices.Contains(validBackends, c.Storage.Backend) {
		errs = append(errs, fmt.Errorf("storage.backend %q is invalid (valid: %s)", c.Storage.Backend, strings.Join(validBackends, ", ")))
	}
	if c.Storage.Backend == "redis" && c.Storage.RedisAddr == "" {
		errs = append(errs, errors.New("storage.redis_addr is required for the redis backend"))
	}
	if c.Memory.ShortTermLimit <= 0 {
		errs = append(errs, fmt.Errorf("memory.short_term_limit must be positive, got %d", c.Memory.ShortTermLimit))
	}
	if c.Memory.LongTermLimit < 0 {
		errs = append(errs, fmt.Errorf("memory.long_term_limit must not be negative, got %d", c.Memory.LongTermLimit))
	}
	if c.Memory.ContextLimit <= 0 {
		errs = append(errs, fmt.Errorf("memory.context_limit must be positive, got %d", c.Memory.ContextLimit))
	}
	for _, p := range c.Models.Prefer {
		if !slices.Contains(validModels, p) {
			errs = append(errs, fmt.Errorf("models.prefer: unknown backend %q", p))
		}
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid server port: %d", c.Server.Port))
	}
	if c.Server.SessionTTL <= 0 {
		errs = append(errs, errors.New("server.session_ttl must be positive"))
	}
	if !slices.Contains(validLevels, c.Logging.Level) {
		errs = append(errs, fmt.Errorf("logging.level %q is invalid", c.Logging.Level))
	}
	if !slices.Contains(validFormats, c.Logging.Format) {
		errs = append(errs, fmt.Errorf("logging.format %q is invalid", c.Logging.Format))
	}
	return errors.Join(errs...)
}

// ApplyTo overlays the configured owner fields onto a copy of p. A nil p
// with no configured name or phrases stays nil.
func (o OwnerConfig) ApplyTo(p *model.OwnerProfile) *model.OwnerProfile {
	if p == nil {
		if o.Name == "" && len(o.AuthPhrases) == 0 {
			return nil
		}
		p = &model.OwnerProfile{}
	} else {
		p = p.Clone()
	}
	if o.Name != "" {
		p.Name = o.Name
	}
	if len(o.AuthPhrases) > 0 {
		p.AuthPhrases = slices.Clone(o.AuthPhrases)
		p.AuthPhrase = ""
	}
	if len(o.WakeWords) > 0 {
		p.WakeWords = slices.Clone(o.WakeWords)
	}
	return p
}
