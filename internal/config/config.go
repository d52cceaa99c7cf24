// Package config loads the server's startup configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/roach88/patchbay/internal/logging"
)

// Store drivers.
const (
	StoreNone   = "none"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// Host modes.
const (
	HostNone = "none"
	HostLog  = "log"
)

// Config is the server's startup info.
type Config struct {
	Listen          string        `mapstructure:"listen"`
	Modules         Modules       `mapstructure:"modules"`
	Store           Store         `mapstructure:"store"`
	Host            Host          `mapstructure:"host"`
	Log             Log           `mapstructure:"log"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Modules names the directories interface definitions are loaded from.
type Modules struct {
	SystemDir     string `mapstructure:"system_dir"`
	ThirdPartyDir string `mapstructure:"third_party_dir"`
}

type Store struct {
	Driver     string `mapstructure:"driver"`
	SQLitePath string `mapstructure:"sqlite_path"`
	Redis      Redis  `mapstructure:"redis"`
}

type Redis struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type Host struct {
	Mode      string `mapstructure:"mode"`
	QueueSize int    `mapstructure:"queue_size"`

	// DataDir receives copies of input files set through the API. Empty
	// leaves file paths as given.
	DataDir string `mapstructure:"data_dir"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	// Spans logs every command span at debug level.
	Spans bool `mapstructure:"spans"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Listen: "127.0.0.1:8090",
		Modules: Modules{
			SystemDir: "modules/system",
		},
		Store: Store{
			Driver:     StoreSQLite,
			SQLitePath: "patchbay.db",
			Redis: Redis{
				Addr:   "127.0.0.1:6379",
				Prefix: "patchbay:snapshot:",
			},
		},
		Host: Host{
			Mode:      HostLog,
			QueueSize: 1024,
		},
		Log: Log{
			Level:  "info",
			Format: string(logging.FormatText),
		},
		ShutdownTimeout: 5 * time.Second,
	}
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
// Durations accept Go duration strings ("30s"); unknown keys are errors.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return Config{}, fmt.Errorf("config decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid field, joined.
func (c Config) Validate() error {
	var errs []error
	if c.Listen == "" {
		errs = append(errs, errors.New("listen: required"))
	}
	if c.Modules.SystemDir == "" && c.Modules.ThirdPartyDir == "" {
		errs = append(errs, errors.New("modules: at least one of system_dir, third_party_dir required"))
	}
	switch c.Store.Driver {
	case StoreNone:
	case StoreSQLite:
		if c.Store.SQLitePath == "" {
			errs = append(errs, errors.New("store.sqlite_path: required for sqlite driver"))
		}
	case StoreRedis:
		if c.Store.Redis.Addr == "" {
			errs = append(errs, errors.New("store.redis.addr: required for redis driver"))
		}
		if c.Store.Redis.TTL < 0 {
			errs = append(errs, errors.New("store.redis.ttl: must not be negative"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.driver: unknown driver %q", c.Store.Driver))
	}
	switch c.Host.Mode {
	case HostNone, HostLog:
	default:
		errs = append(errs, fmt.Errorf("host.mode: unknown mode %q", c.Host.Mode))
	}
	if c.Host.QueueSize < 0 {
		errs = append(errs, errors.New("host.queue_size: must not be negative"))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if _, err := logging.ParseFormat(c.Log.Format); err != nil {
		errs = append(errs, fmt.Errorf("log.format: %w", err))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("shutdown_timeout: must be positive"))
	}
	return errors.Join(errs...)
}
