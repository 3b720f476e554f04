package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/takutakahashi/storefront/pkg/client"
	"github.com/takutakahashi/storefront/pkg/credentials"
	"github.com/takutakahashi/storefront/pkg/logger"
)

// EnvPrefix prefixes every environment override, e.g. STOREFRONT_API_BASE_URL
const EnvPrefix = "STOREFRONT"

// Config represents the storefront CLI configuration
type Config struct {
	// API configures the backend connection
	API client.Config `json:"api" mapstructure:"api"`
	// Store selects where credentials are kept between invocations
	Store credentials.Config `json:"store" mapstructure:"store"`
	// Log configures structured logging
	Log logger.Config `json:"log" mapstructure:"log"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		API: client.DefaultConfig(),
		Store: credentials.Config{
			Type:     credentials.StoreTypeFile,
			FilePath: credentials.DefaultFilePath(),
		},
		Log: logger.Config{
			Level:  "warn",
			Format: logger.FormatText,
		},
	}
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/storefront/config.yaml or its platform equivalent
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".storefront", "config.yaml")
	}
	return filepath.Join(dir, "storefront", "config.yaml")
}

// NewViper creates a viper instance seeded with the defaults and reading
// STOREFRONT_* environment variables
func NewViper() *viper.Viper {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// setDefaults registers every key so AutomaticEnv can override it during Unmarshal
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("api.base_url", d.API.BaseURL)
	v.SetDefault("api.timeout", d.API.Timeout)
	v.SetDefault("api.tracing", d.API.Tracing)

	v.SetDefault("store.type", string(d.Store.Type))
	v.SetDefault("store.file_path", d.Store.FilePath)
	v.SetDefault("store.encrypt", d.Store.Encrypt)
	v.SetDefault("store.redis_addr", d.Store.RedisAddr)
	v.SetDefault("store.redis_password", d.Store.RedisPassword)
	v.SetDefault("store.redis_db", d.Store.RedisDB)
	v.SetDefault("store.s3_bucket", d.Store.S3Bucket)
	v.SetDefault("store.s3_region", d.Store.S3Region)
	v.SetDefault("store.s3_endpoint", d.Store.S3Endpoint)
	v.SetDefault("store.s3_access_key", d.Store.S3AccessKey)
	v.SetDefault("store.s3_secret_key", d.Store.S3SecretKey)
	v.SetDefault("store.prefix", d.Store.Prefix)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", string(d.Log.Format))
}

// Load reads configuration in order of precedence: flags bound to v,
// environment, the config file, then defaults. An explicit path must exist;
// the default path is optional.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigFile(DefaultConfigPath())
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file %s: %w", DefaultConfigPath(), err)
			}
		} else {
			slog.Debug("loaded config file", "path", v.ConfigFileUsed())
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks the configuration
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
