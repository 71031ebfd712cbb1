// Package config provides configuration management using the Singleton pattern.
// It loads configuration from environment variables and config.yaml using Viper.
package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/polychat/polychat-api/internal/domain"
)

// Configuration holds all application configuration values.
type Configuration struct {
	// Server configuration
	Server ServerConfig `json:"server" mapstructure:"server"`

	// Providers holds per-provider API keys and the outbound call timeout.
	Providers ProvidersConfig `json:"providers" mapstructure:"providers"`

	// Storage selects and configures the conversation store backend.
	Storage StorageConfig `json:"storage" mapstructure:"storage"`

	// CORS configuration
	CORS CORSConfig `json:"cors" mapstructure:"cors"`

	// Logging configuration
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	// Host is the server bind address.
	Host string `json:"host" mapstructure:"host"`

	// Port is the server port number.
	Port int `json:"port" mapstructure:"port"`

	// ReadTimeoutSeconds is the maximum duration for reading the entire request.
	ReadTimeoutSeconds int `json:"read_timeout_seconds" mapstructure:"read_timeout_seconds"`

	// WriteTimeoutSeconds is the maximum duration before timing out response writes.
	WriteTimeoutSeconds int `json:"write_timeout_seconds" mapstructure:"write_timeout_seconds"`

	// ShutdownTimeoutSeconds is how long to wait for active connections on shutdown.
	ShutdownTimeoutSeconds int `json:"shutdown_timeout_seconds" mapstructure:"shutdown_timeout_seconds"`
}

// ProvidersConfig holds provider credentials. A provider with an empty key is
// simply not registered; at least one key must be present.
type ProvidersConfig struct {
	// OpenAIAPIKey authenticates against the OpenAI API.
	OpenAIAPIKey string `json:"-" mapstructure:"openai_api_key"`

	// GoogleAPIKey authenticates against the Gemini API.
	GoogleAPIKey string `json:"-" mapstructure:"google_api_key"`

	// AnthropicAPIKey authenticates against the Anthropic API.
	AnthropicAPIKey string `json:"-" mapstructure:"anthropic_api_key"`

	// TimeoutSeconds bounds each outbound provider call.
	TimeoutSeconds int `json:"timeout_seconds" mapstructure:"timeout_seconds"`
}

// StorageConfig selects the conversation store backend.
type StorageConfig struct {
	// Backend is "memory" or "bolt".
	Backend string `json:"backend" mapstructure:"backend"`

	// Path is the database file for the bolt backend.
	Path string `json:"path" mapstructure:"path"`
}

// CORSConfig holds cross-origin configuration.
type CORSConfig struct {
	// AllowedOrigins is a comma-separated list of allowed origins.
	// "*" allows any origin.
	AllowedOrigins string `json:"allowed_origins" mapstructure:"allowed_origins"`
}

// OriginsList splits AllowedOrigins into individual origins.
func (c CORSConfig) OriginsList() []string {
	parts := strings.Split(c.AllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `json:"level" mapstructure:"level"`

	// Format is the log format (json, text).
	Format string `json:"format" mapstructure:"format"`
}

// configInstance holds the singleton configuration instance.
var (
	configInstance *Configuration
	configOnce     sync.Once
	configErr      error
	loadedPath     string
)

// GetConfig returns the singleton Configuration instance.
// It initializes the configuration on first call using the default config path.
func GetConfig() (*Configuration, error) {
	configOnce.Do(func() {
		loadedPath = ""
		configInstance, configErr = loadConfig("")
	})
	return configInstance, configErr
}

// GetConfigWithPath returns the singleton Configuration instance loaded from a
// custom config file path. It returns an error if the singleton was already
// initialized from a different path, since the requested file cannot take
// effect anymore.
func GetConfigWithPath(configPath string) (*Configuration, error) {
	configOnce.Do(func() {
		loadedPath = configPath
		configInstance, configErr = loadConfig(configPath)
	})
	if loadedPath != configPath {
		return nil, &ConfigError{
			Op:  "load",
			Err: fmt.Errorf("configuration already initialized from %q, cannot load %q", loadedPath, configPath),
		}
	}
	return configInstance, configErr
}

// ResetConfig resets the singleton instance. Testing only.
func ResetConfig() {
	configOnce = sync.Once{}
	configInstance = nil
	configErr = nil
	loadedPath = ""
}

// Validate validates the configuration and returns an error if required
// fields are missing or out of range.
func (c *Configuration) Validate() error {
	var validationErrors []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		validationErrors = append(validationErrors, "server.port must be between 1 and 65535")
	}

	if !c.HasAnyProviderKey() {
		validationErrors = append(validationErrors,
			"at least one provider API key is required (OPENAI_API_KEY, GOOGLE_API_KEY or ANTHROPIC_API_KEY)")
	}

	switch c.Storage.Backend {
	case "memory":
	case "bolt":
		if c.Storage.Path == "" {
			validationErrors = append(validationErrors, "storage.path is required for the bolt backend")
		}
	default:
		validationErrors = append(validationErrors, fmt.Sprintf(
			"storage.backend '%s' is invalid, must be one of: memory, bolt", c.Storage.Backend))
	}

	if c.Logging.Level != "" && !isValidLogLevel(c.Logging.Level) {
		validationErrors = append(validationErrors, fmt.Sprintf(
			"logging.level '%s' is invalid, must be one of: debug, info, warn, error", c.Logging.Level))
	}

	if len(validationErrors) > 0 {
		return &ValidationError{Errors: validationErrors}
	}

	return nil
}

// HasAnyProviderKey reports whether at least one provider is configured.
func (c *Configuration) HasAnyProviderKey() bool {
	p := c.Providers
	return p.OpenAIAPIKey != "" || p.GoogleAPIKey != "" || p.AnthropicAPIKey != ""
}

// ProviderKey returns the configured API key for the given provider type.
func (c *Configuration) ProviderKey(provider domain.ProviderType) string {
	switch provider {
	case domain.ProviderOpenAI:
		return c.Providers.OpenAIAPIKey
	case domain.ProviderGoogle:
		return c.Providers.GoogleAPIKey
	case domain.ProviderAnthropic:
		return c.Providers.AnthropicAPIKey
	default:
		return ""
	}
}

// isValidLogLevel checks if the log level is valid.
func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}
