// Package config loads the YAML configuration of the pricefit server and CLI.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/YuminosukeSato/pricefit/linear"
	"github.com/YuminosukeSato/pricefit/pkg/errors"
	"github.com/YuminosukeSato/pricefit/pkg/log"
	"github.com/YuminosukeSato/pricefit/store"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Config is the top-level configuration.
type Config struct {
	Log      LogConfig          `yaml:"log"`
	Data     DataConfig         `yaml:"data"`
	Training linear.TrainConfig `yaml:"training"`
	Store    StoreConfig        `yaml:"store"`
	HTTP     HTTPConfig         `yaml:"http"`
}

// LogConfig selects the log backend and optional rotating file output.
type LogConfig struct {
	Level      string `yaml:"level"`
	Backend    string `yaml:"backend"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// DataConfig points at the CSV with the house sales.
type DataConfig struct {
	CSV           string `yaml:"csv"`
	FeatureColumn string `yaml:"feature_column"`
	LabelColumn   string `yaml:"label_column"`
}

// StoreConfig selects where trained models are kept.
type StoreConfig struct {
	Backend   string `yaml:"backend"`
	Path      string `yaml:"path"`
	Key       string `yaml:"key"`
	CacheSize int    `yaml:"cache_size"`
	Watch     bool   `yaml:"watch"`
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	Gzip            bool          `yaml:"gzip"`
	AllowedOrigin   string        `yaml:"allowed_origin"`
	Locale          string        `yaml:"locale"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Log: LogConfig{
			Level:   "info",
			Backend: log.BackendSlog,
		},
		Data: DataConfig{
			CSV:           "kc_house_data.csv",
			FeatureColumn: "sqft_living",
			LabelColumn:   "price",
		},
		Training: linear.DefaultTrainConfig(),
		Store: StoreConfig{
			Backend:   BackendFile,
			Path:      "models",
			Key:       store.DefaultKey,
			CacheSize: 8,
		},
		HTTP: HTTPConfig{
			Addr:            ":5000",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			Gzip:            true,
			AllowedOrigin:   "*",
			Locale:          "en-US",
		},
	}
}

// Load reads path over Default. Keys missing from the file keep their defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "parse config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every section.
func (c Config) Validate() error {
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return errors.NewValidationError("log.level", err.Error(), c.Log.Level)
	}
	switch c.Log.Backend {
	case log.BackendSlog, log.BackendZerolog, log.BackendZap:
	default:
		return errors.NewValidationError("log.backend", "must be slog, zerolog or zap", c.Log.Backend)
	}
	if c.Data.FeatureColumn == "" || c.Data.LabelColumn == "" {
		return errors.NewValidationError("data", "feature_column and label_column are required", c.Data)
	}
	if err := c.Training.Validate(); err != nil {
		return err
	}
	switch c.Store.Backend {
	case BackendMemory:
	case BackendFile, BackendSQLite:
		if c.Store.Path == "" {
			return errors.NewValidationError("store.path", "is required for the "+c.Store.Backend+" backend", c.Store.Path)
		}
	default:
		return errors.NewValidationError("store.backend", "must be memory, file or sqlite", c.Store.Backend)
	}
	if c.Store.Watch && c.Store.Backend != BackendFile {
		return errors.NewValidationError("store.watch", "only supported with the file backend", c.Store.Backend)
	}
	if c.Store.CacheSize < 0 {
		return errors.NewValidationError("store.cache_size", "must not be negative", c.Store.CacheSize)
	}
	if err := store.ValidateKey(c.Store.Key); err != nil {
		return err
	}
	if c.HTTP.Addr == "" {
		return errors.NewValidationError("http.addr", "is required", c.HTTP.Addr)
	}
	return nil
}
