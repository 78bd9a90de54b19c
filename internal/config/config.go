// Package config loads application configuration from file and environment
// and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/volcanica/petro-cli/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Catalog   CatalogConfig   `yaml:"catalog" mapstructure:"catalog"`
	Match     MatchConfig     `yaml:"match" mapstructure:"match"`
	Summarize SummarizeConfig `yaml:"summarize" mapstructure:"summarize"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// CatalogConfig points at the volcano reference catalog.
type CatalogConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// MatchConfig tunes the proximity matcher.
type MatchConfig struct {
	InitialRadiusKM float64 `yaml:"initial_radius_km" mapstructure:"initial_radius_km"`
	FloorRadiusKM   float64 `yaml:"floor_radius_km" mapstructure:"floor_radius_km"`
	StepKM          float64 `yaml:"step_km" mapstructure:"step_km"`
	Concurrency     int     `yaml:"concurrency" mapstructure:"concurrency"`
}

// SummarizeConfig tunes the per-bucket summarizer.
type SummarizeConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// CacheConfig locates the artifact cache directory.
type CacheConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string            `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string            `yaml:"database_url" mapstructure:"database_url"`
	Pool        *store.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// ServerConfig configures the query API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PETRO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("catalog.path", "data/volcanoes.csv")
	v.SetDefault("match.initial_radius_km", 50.0)
	v.SetDefault("match.floor_radius_km", 5.0)
	v.SetDefault("match.step_km", 1.0)
	v.SetDefault("match.concurrency", 8)
	v.SetDefault("summarize.concurrency", 4)
	v.SetDefault("cache.dir", "cache")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "petro.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

// Validate checks the fields a command mode actually uses. Modes: ingest,
// summarize, serve.
func (c *Config) Validate(mode string) error {
	var problems []string

	if c.Match.InitialRadiusKM <= 0 || c.Match.FloorRadiusKM <= 0 || c.Match.StepKM <= 0 {
		problems = append(problems, "match radii must be > 0")
	}
	if c.Match.FloorRadiusKM > c.Match.InitialRadiusKM {
		problems = append(problems, "match.floor_radius_km must not exceed match.initial_radius_km")
	}
	if c.Match.Concurrency < 1 || c.Match.Concurrency > 64 {
		problems = append(problems, "match.concurrency must be between 1 and 64")
	}

	switch mode {
	case "ingest":
		if c.Catalog.Path == "" {
			problems = append(problems, "catalog.path is required")
		}
	case "summarize":
		if c.Catalog.Path == "" {
			problems = append(problems, "catalog.path is required")
		}
		if c.Summarize.Concurrency < 1 {
			problems = append(problems, "summarize.concurrency must be >= 1")
		}
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
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
