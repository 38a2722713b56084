package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	API  APIConfig  `mapstructure:"api"`
	Auth AuthConfig `mapstructure:"auth"`
	Log  LogConfig  `mapstructure:"log"`
}

type APIConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
}

// AuthConfig selects where the access token comes from. Exactly one of
// TokenCommand, TokenFile or TokenEnv is used, checked in that order.
type AuthConfig struct {
	TokenCommand string        `mapstructure:"token_command"`
	TokenFile    string        `mapstructure:"token_file"`
	TokenEnv     string        `mapstructure:"token_env"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

func Default() Config {
	return Config{
		API: APIConfig{
			BaseURL:    "https://localhost:8001",
			Timeout:    30 * time.Second,
			MaxRetries: 3,
			RetryDelay: time.Second,
		},
		Auth: AuthConfig{
			TokenEnv: "MYSTIC_ACCESS_TOKEN",
			CacheTTL: 30 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from an optional YAML file, with environment
// variables (MYSTIC_ prefix) overriding file values and defaults filling
// the rest. A missing file is only an error when the path was given
// explicitly.
func Load(path string) (Config, error) {
	v := viper.New()

	defaults := Default()
	v.SetDefault("api.base_url", defaults.API.BaseURL)
	v.SetDefault("api.timeout", defaults.API.Timeout)
	v.SetDefault("api.max_retries", defaults.API.MaxRetries)
	v.SetDefault("api.retry_delay", defaults.API.RetryDelay)
	v.SetDefault("auth.token_command", defaults.Auth.TokenCommand)
	v.SetDefault("auth.token_file", defaults.Auth.TokenFile)
	v.SetDefault("auth.token_env", defaults.Auth.TokenEnv)
	v.SetDefault("auth.cache_ttl", defaults.Auth.CacheTTL)
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.format", defaults.Log.Format)
	v.SetDefault("log.file", defaults.Log.File)

	v.SetEnvPrefix("MYSTIC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	} else {
		v.SetConfigName("mystic-chat")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/mystic-chat")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, err
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
