// Package config loads adreview settings from flags, ADREVIEW_* environment
// variables and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/sprite-ai/adreview/internal/backend"
	"github.com/sprite-ai/adreview/internal/model"
	"github.com/sprite-ai/adreview/internal/review"
)

// EnvPrefix is prepended to every environment variable.
const EnvPrefix = "ADREVIEW"

type Config struct {
	BaseURL         string        `mapstructure:"base_url"`
	Timeout         time.Duration `mapstructure:"timeout"`
	Token           string        `mapstructure:"token"`
	TokenFile       string        `mapstructure:"token_file"`
	PageSize        int           `mapstructure:"page_size"`
	ReviewType      string        `mapstructure:"review_type"`
	RefreshDelay    time.Duration `mapstructure:"refresh_delay"`
	RefreshAttempts int           `mapstructure:"refresh_attempts"`
	LogLevel        string        `mapstructure:"log_level"`
	LogFormat       string        `mapstructure:"log_format"`
	LogFile         string        `mapstructure:"log_file"`
}

// New returns a viper instance with defaults and environment binding.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault("base_url", backend.DefaultBaseURL)
	v.SetDefault("timeout", backend.DefaultTimeout)
	v.SetDefault("page_size", review.DefaultListParams.PageSize)
	v.SetDefault("review_type", string(review.DefaultListParams.Type))
	v.SetDefault("refresh_delay", review.DefaultRefreshDelay)
	v.SetDefault("refresh_attempts", review.DefaultRefreshAttempts)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	// Keys with no default still need to be known to viper for env lookup.
	v.SetDefault("token", "")
	v.SetDefault("token_file", "")
	v.SetDefault("log_file", "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	return v
}

// LoadEnvFile exports the variables in a dotenv file into the process
// environment. Variables that are already set win. A missing file is not
// an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("reading env file %s: %w", path, err)
	}
	return nil
}

// Load reads the optional config file and decodes v.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", file, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the client cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %s", c.Timeout))
	}
	if c.PageSize <= 0 {
		errs = append(errs, fmt.Errorf("page_size must be positive, got %d", c.PageSize))
	}
	switch model.MaterialType(c.ReviewType) {
	case model.TypeImage, model.TypeVideo:
	default:
		errs = append(errs, fmt.Errorf("review_type must be image or video, got %q", c.ReviewType))
	}
	if c.RefreshDelay <= 0 {
		errs = append(errs, fmt.Errorf("refresh_delay must be positive, got %s", c.RefreshDelay))
	}
	if c.RefreshAttempts <= 0 {
		errs = append(errs, fmt.Errorf("refresh_attempts must be positive, got %d", c.RefreshAttempts))
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format must be text or json, got %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

// ListParams is the collection query the controller loads.
func (c *Config) ListParams() backend.ListParams {
	return backend.ListParams{
		Page:     1,
		PageSize: c.PageSize,
		Type:     model.MaterialType(c.ReviewType),
	}
}

// ClientConfig is the reconciliation tuning for review.Client.
func (c *Config) ClientConfig() review.ClientConfig {
	return review.ClientConfig{
		RefreshDelay:    c.RefreshDelay,
		RefreshAttempts: c.RefreshAttempts,
	}
}
