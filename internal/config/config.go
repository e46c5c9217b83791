// Package config loads application configuration from YAML and environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/xiaot623/clouseau/internal/adapter/llm"
)

const (
	// EnvConfigPath overrides the config file location.
	EnvConfigPath = "CLOUSEAU_CONFIG"
	// DefaultConfigPath is read when present and no path is given.
	DefaultConfigPath = "config.yaml"
	// EnvPrefix prefixes environment overrides, e.g. CLOUSEAU_SERVER_PORT.
	EnvPrefix = "CLOUSEAU"
)

// Config is the full application configuration.
type Config struct {
	Server          ServerConfig        `mapstructure:"server"`
	Database        DatabaseConfig      `mapstructure:"database"`
	General         GeneralConfig       `mapstructure:"general"`
	Models          ModelsConfig        `mapstructure:"models"`
	Performance     PerformanceConfig   `mapstructure:"performance"`
	LLMProviders    []LLMProviderConfig `mapstructure:"llm_providers" validate:"dive"`
	DefaultProvider string              `mapstructure:"default_provider"`
	Mode            string              `mapstructure:"mode"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port" validate:"min=1,max=65535"`
	ReadTimeout     int    `mapstructure:"read_timeout" validate:"min=0"`
	WriteTimeout    int    `mapstructure:"write_timeout" validate:"min=0"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" validate:"min=0"`
}

// DatabaseConfig configures the SQLite store.
type DatabaseConfig struct {
	DSN string `mapstructure:"dsn" validate:"required"`
}

// GeneralConfig holds logging settings.
type GeneralConfig struct {
	LogLevel string `mapstructure:"log_level" validate:"oneof=debug info warn warning error"`
	LogFile  string `mapstructure:"log_file"`
}

// ModelsConfig holds generation defaults. Nil MaxTokens or Temperature means
// the parameter is left out of vendor requests.
type ModelsConfig struct {
	DefaultSystemPrompt string   `mapstructure:"default_system_prompt"`
	DefaultMaxTokens    *int     `mapstructure:"default_max_tokens" validate:"omitnil,min=1"`
	DefaultTemperature  *float64 `mapstructure:"default_temperature" validate:"omitnil,min=0,max=2"`
	RetryOnFailure      bool     `mapstructure:"retry_on_failure"`
	MaxRetries          int      `mapstructure:"max_retries" validate:"min=0"`
	RequestTimeout      int      `mapstructure:"request_timeout" validate:"min=0"`
}

// PerformanceConfig configures the provider response cache.
type PerformanceConfig struct {
	CacheResponses bool `mapstructure:"cache_responses"`
	CacheTTL       int  `mapstructure:"cache_ttl" validate:"min=0"`
	MaxCacheSize   int  `mapstructure:"max_cache_size" validate:"min=0"`
}

// LLMProviderConfig is one entry of llm_providers.
type LLMProviderConfig struct {
	Name         string   `mapstructure:"name" validate:"required"`
	ProviderType string   `mapstructure:"provider_type" validate:"required,oneof=mock anthropic openai"`
	Endpoint     string   `mapstructure:"endpoint"`
	APIKey       string   `mapstructure:"api_key"`
	DefaultModel string   `mapstructure:"default_model" validate:"required"`
	MaxTokens    *int     `mapstructure:"max_tokens" validate:"omitnil,min=1"`
	Temperature  *float64 `mapstructure:"temperature" validate:"omitnil,min=0,max=2"`
	Timeout      int      `mapstructure:"timeout" validate:"min=0"`
	Enabled      *bool    `mapstructure:"enabled"`
}

// IsEnabled reports whether the entry should be registered. Entries are
// enabled unless explicitly disabled.
func (p LLMProviderConfig) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

// Load reads configuration. An empty path falls back to $CLOUSEAU_CONFIG and
// then to ./config.yaml; only an explicitly named file must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	required := true
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path == "" {
		path = DefaultConfigPath
		required = false
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		v.SetConfigType("yaml")
		if err := v.ReadConfig(bytes.NewReader([]byte(SubstituteEnv(string(data))))); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && !required:
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.General.LogLevel = strings.ToLower(cfg.General.LogLevel)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 300)
	v.SetDefault("server.shutdown_timeout", 10)

	// Database
	v.SetDefault("database.dsn", "clouseau.db")

	// General
	v.SetDefault("general.log_level", "info")
	v.SetDefault("general.log_file", "")

	// Models
	v.SetDefault("models.default_system_prompt", "You are a helpful AI assistant.")
	v.SetDefault("models.retry_on_failure", true)
	v.SetDefault("models.max_retries", 3)
	v.SetDefault("models.request_timeout", 60)

	// Performance
	v.SetDefault("performance.cache_responses", false)
	v.SetDefault("performance.cache_ttl", 3600)
	v.SetDefault("performance.max_cache_size", 100)

	v.SetDefault("default_provider", "")
	v.SetDefault("mode", "")
}

// Addr returns the listen address.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// MockMode reports whether every provider should be a mock.
func (c *Config) MockMode() bool {
	return strings.EqualFold(c.Mode, llm.ModeMock)
}

// RegistryConfig converts the provider section for the llm factory. Disabled
// entries are dropped; a provider without its own timeout inherits
// models.request_timeout.
func (c *Config) RegistryConfig() llm.RegistryConfig {
	rc := llm.RegistryConfig{
		DefaultProvider: c.DefaultProvider,
		Mock:            c.MockMode(),
		CacheResponses:  c.Performance.CacheResponses,
		CacheTTL:        time.Duration(c.Performance.CacheTTL) * time.Second,
		MaxCacheSize:    c.Performance.MaxCacheSize,
	}
	for _, p := range c.LLMProviders {
		if !p.IsEnabled() {
			continue
		}
		timeout := p.Timeout
		if timeout == 0 {
			timeout = c.Models.RequestTimeout
		}
		rc.Providers = append(rc.Providers, llm.ProviderConfig{
			Name:        p.Name,
			Type:        p.ProviderType,
			Model:       p.DefaultModel,
			APIKey:      p.APIKey,
			Endpoint:    p.Endpoint,
			MaxTokens:   p.MaxTokens,
			Temperature: p.Temperature,
			Timeout:     time.Duration(timeout) * time.Second,
		})
	}
	return rc
}

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// SubstituteEnv expands ${VAR} and ${VAR:-default}. Unset variables without
// a default expand to the empty string.
func SubstituteEnv(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if value, ok := os.LookupEnv(groups[1]); ok {
			return value
		}
		return groups[2]
	})
}
