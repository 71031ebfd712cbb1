// Package config provides configuration management using the Singleton pattern.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	defaultConfigName = "config"
	defaultConfigType = "yaml"
	envPrefix         = "POLYCHAT"
)

// Provider API keys are read from the conventional vendor environment
// variables first; the prefixed POLYCHAT_PROVIDERS_* form and config.yaml
// remain available as fallbacks for local development.
const (
	EnvOpenAIKey    = "OPENAI_API_KEY"
	EnvGoogleKey    = "GOOGLE_API_KEY"
	EnvAnthropicKey = "ANTHROPIC_API_KEY"
)

// loadConfig loads the configuration from environment variables and files.
// Priority order (highest to lowest):
//  1. Conventional provider env vars (OPENAI_API_KEY, ...)
//  2. Environment variables prefixed with POLYCHAT_
//  3. config.yaml
//  4. Default values
func loadConfig(configPath string) (*Configuration, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName(defaultConfigName)
	v.SetConfigType(defaultConfigType)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/polychat")
		v.AddConfigPath("$HOME/.polychat")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, &ConfigError{
				Op:  "read",
				Err: fmt.Errorf("failed to read config file: %w", err),
			}
		}
		// Config file not found is fine: env vars cover everything.
	}

	var cfg Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &ConfigError{
			Op:  "unmarshal",
			Err: fmt.Errorf("failed to unmarshal config: %w", err),
		}
	}

	// Conventional provider env vars override anything from file or the
	// prefixed namespace.
	if key := os.Getenv(EnvOpenAIKey); key != "" {
		cfg.Providers.OpenAIAPIKey = key
	}
	if key := os.Getenv(EnvGoogleKey); key != "" {
		cfg.Providers.GoogleAPIKey = key
	}
	if key := os.Getenv(EnvAnthropicKey); key != "" {
		cfg.Providers.AnthropicAPIKey = key
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout_seconds", 30)
	v.SetDefault("server.write_timeout_seconds", 120)
	v.SetDefault("server.shutdown_timeout_seconds", 15)

	// Provider defaults
	v.SetDefault("providers.timeout_seconds", 60)

	// Storage defaults
	v.SetDefault("storage.backend", "memory")
	v.SetDefault("storage.path", "data/polychat.db")

	// CORS defaults
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
