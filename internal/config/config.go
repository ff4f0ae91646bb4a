package config

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Ingest     IngestConfig     `yaml:"ingest" mapstructure:"ingest"`
	Reconcile  ReconcileConfig  `yaml:"reconcile" mapstructure:"reconcile"`
	Report     ReportConfig     `yaml:"report" mapstructure:"report"`
	Retry      RetryConfig      `yaml:"retry" mapstructure:"retry"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
}

// StoreConfig selects the run store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// LogConfig configures the global zap logger.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ServerConfig configures the read-only HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	RateLimit      float64  `yaml:"rate_limit" mapstructure:"rate_limit"` // requests per second, 0 disables
	Burst          int      `yaml:"burst" mapstructure:"burst"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// IngestConfig controls how input files are read.
type IngestConfig struct {
	ExcludedStores []string `yaml:"excluded_stores" mapstructure:"excluded_stores"`
	XMLWorkers     int      `yaml:"xml_workers" mapstructure:"xml_workers"`
	CountDelimiter string   `yaml:"count_delimiter" mapstructure:"count_delimiter"`
	OrderSheets    []string `yaml:"order_sheets" mapstructure:"order_sheets"`
}

// ReconcileConfig tunes the engine.
type ReconcileConfig struct {
	OverridesPath string `yaml:"overrides_path" mapstructure:"overrides_path"`
	RunIDFormat   string `yaml:"run_id_format" mapstructure:"run_id_format"`
}

// ReportConfig controls generated artifacts.
type ReportConfig struct {
	OutputDir string `yaml:"output_dir" mapstructure:"output_dir"`
}

// RetryConfig controls the connect retry policy of the Postgres store.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
}

// MonitoringConfig controls divergence alerts sent after a run.
type MonitoringConfig struct {
	WebhookURL              string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	DivergenceRateThreshold float64 `yaml:"divergence_rate_threshold" mapstructure:"divergence_rate_threshold"`
	MinRecords              int     `yaml:"min_records" mapstructure:"min_records"`
	ShortageThreshold       float64 `yaml:"shortage_threshold" mapstructure:"shortage_threshold"` // total missing quantity, 0 disables
}

// Load reads configuration from config.yaml, an optional .env file and
// RECON_* environment variables. Environment wins over the file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RECON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Every key needs one so AutomaticEnv sees it during Unmarshal.
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "recon.db")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("store.min_conns", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit", 10.0)
	v.SetDefault("server.burst", 20)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("ingest.excluded_stores", []string{"Loja_5"})
	v.SetDefault("ingest.xml_workers", 4)
	v.SetDefault("ingest.count_delimiter", ",")
	v.SetDefault("ingest.order_sheets", []string{})
	v.SetDefault("reconcile.overrides_path", "")
	v.SetDefault("reconcile.run_id_format", "timestamp")
	v.SetDefault("report.output_dir", ".")
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 500)
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("monitoring.divergence_rate_threshold", 0.25)
	v.SetDefault("monitoring.min_records", 5)
	v.SetDefault("monitoring.shortage_threshold", 0.0)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command depends on. Mode is one of
// "reconcile", "report", "runs" or "serve".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "reconcile", "report", "runs":
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
		if c.Server.RateLimit < 0 {
			errs = append(errs, "server.rate_limit must be >= 0")
		}
		if c.Server.RateLimit > 0 && c.Server.Burst < 1 {
			errs = append(errs, "server.burst must be >= 1 when rate limiting")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	errs = append(errs, c.validateStore()...)

	if mode == "reconcile" {
		if c.Ingest.XMLWorkers < 1 || c.Ingest.XMLWorkers > 64 {
			errs = append(errs, "ingest.xml_workers must be between 1 and 64")
		}
		if len([]rune(c.Ingest.CountDelimiter)) != 1 {
			errs = append(errs, "ingest.count_delimiter must be a single character")
		}
		if t := c.Monitoring.DivergenceRateThreshold; t < 0 || t > 1 {
			errs = append(errs, "monitoring.divergence_rate_threshold must be between 0 and 1")
		}
		if c.Monitoring.ShortageThreshold < 0 {
			errs = append(errs, "monitoring.shortage_threshold must be >= 0")
		}
		switch c.Reconcile.RunIDFormat {
		case "", "timestamp", "uuid":
		default:
			errs = append(errs, "reconcile.run_id_format must be timestamp or uuid")
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateStore() []string {
	var errs []string
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, "store.driver must be sqlite or postgres")
	}
	if c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}
	if c.Store.MaxConns < 0 || c.Store.MinConns < 0 || (c.Store.MaxConns > 0 && c.Store.MinConns > c.Store.MaxConns) {
		errs = append(errs, "store.min_conns must be between 0 and store.max_conns")
	}
	return errs
}

// CountDelimiterRune returns the configured count CSV delimiter, or ','.
func (c *Config) CountDelimiterRune() rune {
	r := []rune(c.Ingest.CountDelimiter)
	if len(r) != 1 {
		return ','
	}
	return r[0]
}

// InitLogger configures the global zap logger based on config.
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
