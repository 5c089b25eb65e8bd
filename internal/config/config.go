package config

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	DefaultBaseURL = "https://www.googleapis.com/books/v1"
	configDirName  = "bookbinder"
	configFileName = "config.json"
	envPrefix      = "BOOKBINDER"
)

var ErrMissingAPIKey = errors.New("google books api key not configured")

type GoogleBooksConfig struct {
	APIKey    string  `mapstructure:"api_key" json:"api_key"`
	BaseURL   string  `mapstructure:"base_url" json:"base_url"`
	RateLimit float64 `mapstructure:"rate_limit" json:"rate_limit"`
}

type Config struct {
	GoogleBooks GoogleBooksConfig `mapstructure:"google_books" json:"google_books"`
	Verbose     bool              `mapstructure:"verbose" json:"verbose"`
	LogLevel    string            `mapstructure:"log_level" json:"log_level"`
	MetricsAddr string            `mapstructure:"metrics_addr" json:"metrics_addr,omitempty"`
}

func DefaultConfig() Config {
	return Config{
		GoogleBooks: GoogleBooksConfig{BaseURL: DefaultBaseURL},
		LogLevel:    "info",
	}
}

func ConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("unable to resolve config dir: %w", err)
	}

	return filepath.Join(configDir, configDirName), nil
}

func ConfigPath() (string, error) {
	configDir, err := ConfigDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(configDir, configFileName), nil
}

func newViper() *viper.Viper {
	v := viper.New()
	defaults := DefaultConfig()
	v.SetDefault("google_books.api_key", defaults.GoogleBooks.APIKey)
	v.SetDefault("google_books.base_url", defaults.GoogleBooks.BaseURL)
	v.SetDefault("google_books.rate_limit", defaults.GoogleBooks.RateLimit)
	v.SetDefault("verbose", defaults.Verbose)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("metrics_addr", defaults.MetricsAddr)

	v.SetEnvPrefix(envPrefix)
	_ = v.BindEnv("google_books.api_key", envPrefix+"_API_KEY")
	_ = v.BindEnv("google_books.base_url", envPrefix+"_BASE_URL")
	_ = v.BindEnv("google_books.rate_limit", envPrefix+"_RATE_LIMIT")
	_ = v.BindEnv("verbose", envPrefix+"_VERBOSE")
	_ = v.BindEnv("log_level", envPrefix+"_LOG_LEVEL")
	_ = v.BindEnv("metrics_addr", envPrefix+"_METRICS_ADDR")

	return v
}

// Load reads path, or the default config file when path is empty. A missing
// default file is not an error; a missing explicit file is.
func Load(path string) (Config, string, error) {
	v := newViper()

	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		defaultPath, err := ConfigPath()
		if err != nil {
			return DefaultConfig(), "", err
		}
		path = defaultPath
	}
	v.SetConfigFile(path)
	v.SetConfigType("json")

	if err := v.ReadInConfig(); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return DefaultConfig(), path, fmt.Errorf("unable to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return DefaultConfig(), path, fmt.Errorf("unable to parse config: %w", err)
	}
	cfg.GoogleBooks.APIKey = strings.TrimSpace(cfg.GoogleBooks.APIKey)
	cfg.GoogleBooks.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.GoogleBooks.BaseURL), "/")

	return cfg, path, nil
}

func Save(cfg Config, path string) error {
	if strings.TrimSpace(path) == "" {
		defaultPath, err := ConfigPath()
		if err != nil {
			return err
		}
		path = defaultPath
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("unable to create config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("json")
	v.Set("google_books.api_key", cfg.GoogleBooks.APIKey)
	v.Set("google_books.base_url", cfg.GoogleBooks.BaseURL)
	v.Set("google_books.rate_limit", cfg.GoogleBooks.RateLimit)
	v.Set("verbose", cfg.Verbose)
	v.Set("log_level", cfg.LogLevel)
	if cfg.MetricsAddr != "" {
		v.Set("metrics_addr", cfg.MetricsAddr)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("unable to write config: %w", err)
	}

	return nil
}

func (cfg Config) Validate() error {
	if cfg.GoogleBooks.APIKey == "" {
		return ErrMissingAPIKey
	}
	if _, err := NormalizeBaseURL(cfg.GoogleBooks.BaseURL); err != nil {
		return err
	}
	if math.IsNaN(cfg.GoogleBooks.RateLimit) || cfg.GoogleBooks.RateLimit < 0 {
		return errors.New("rate limit must be a non-negative number")
	}
	return nil
}

func NormalizeBaseURL(rawURL string) (string, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return "", errors.New("base url is empty")
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("invalid base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("base url must use http or https: %s", trimmed)
	}
	if parsed.Host == "" {
		return "", errors.New("base url missing host")
	}

	parsed.Path = strings.TrimRight(parsed.Path, "/")
	return parsed.String(), nil
}
