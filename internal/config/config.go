package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultBaseURL is used when neither config.yaml nor VALUATION_API_BASE_URL
// names the backend.
const DefaultBaseURL = "http://localhost:8000/api/v1"

// Config holds the full application configuration.
type Config struct {
	API    APIConfig    `yaml:"api" mapstructure:"api"`
	Wizard WizardConfig `yaml:"wizard" mapstructure:"wizard"`
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// APIConfig configures the backend request layer.
type APIConfig struct {
	BaseURL        string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout        time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxRetries     int           `yaml:"max_retries" mapstructure:"max_retries"`
	RetryBaseDelay time.Duration `yaml:"retry_base_delay" mapstructure:"retry_base_delay"`
	CacheTTL       time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
	RateLimit      int           `yaml:"rate_limit" mapstructure:"rate_limit"`
	RateWindow     time.Duration `yaml:"rate_window" mapstructure:"rate_window"`
	LogRequests    bool          `yaml:"log_requests" mapstructure:"log_requests"`
}

// WizardConfig configures the report wizard.
type WizardConfig struct {
	HistoryLimit int `yaml:"history_limit" mapstructure:"history_limit"`
}

// StoreConfig configures local persistence and the dev backend database.
type StoreConfig struct {
	// LocalPath is the SQLite file holding wizard snapshots and the auth token.
	LocalPath   string `yaml:"local_path" mapstructure:"local_path"`
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the dev backend.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	Token          string   `yaml:"token" mapstructure:"token"`
	RateLimit      float64  `yaml:"rate_limit" mapstructure:"rate_limit"`
	RateBurst      int      `yaml:"rate_burst" mapstructure:"rate_burst"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	MaxUploadMB    int64    `yaml:"max_upload_mb" mapstructure:"max_upload_mb"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile reads configuration from path, or from ./config.yaml when path
// is empty. Environment variables prefixed VALUATION_ override both.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	// Config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Environment
	v.SetEnvPrefix("VALUATION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("api.base_url", DefaultBaseURL)
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("api.max_retries", 3)
	v.SetDefault("api.retry_base_delay", time.Second)
	v.SetDefault("api.cache_ttl", 5*time.Minute)
	v.SetDefault("api.rate_limit", 60)
	v.SetDefault("api.rate_window", time.Minute)
	v.SetDefault("api.log_requests", false)
	v.SetDefault("wizard.history_limit", 50)
	v.SetDefault("store.local_path", "valuation.db")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "valuation-server.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.token", "")
	v.SetDefault("server.rate_limit", 20.0)
	v.SetDefault("server.rate_burst", 40)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.max_upload_mb", 32)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// Read config file (optional unless named explicitly)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode needs. Mode is "wizard" for
// the report commands or "serve" for the dev backend.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Sprintf("log.format %q must be json or console", c.Log.Format))
	}

	switch mode {
	case "wizard":
		if c.API.BaseURL == "" {
			errs = append(errs, "api.base_url is required")
		}
		if c.Store.LocalPath == "" {
			errs = append(errs, "store.local_path is required")
		}
		if c.Wizard.HistoryLimit < 2 {
			errs = append(errs, "wizard.history_limit must be >= 2")
		}
		if c.API.MaxRetries < 0 {
			errs = append(errs, "api.max_retries must be >= 0")
		}
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		switch c.Store.Driver {
		case "sqlite", "postgres":
		default:
			errs = append(errs, fmt.Sprintf("store.driver %q must be sqlite or postgres", c.Store.Driver))
		}
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
