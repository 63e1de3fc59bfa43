// Package config loads reqcap server settings from defaults, an optional YAML
// file, REQCAP_* environment variables and command-line flags, in increasing
// order of precedence. Sources records where each value came from.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/getmockd/reqcap/pkg/logging"
	"github.com/getmockd/reqcap/pkg/request"
	"github.com/getmockd/reqcap/pkg/requestlog"
)

// Defaults.
const (
	DefaultPort          = 4280
	DefaultMaxLogEntries = requestlog.DefaultMaxEntries
	DefaultMaxBodySize   = 10 << 20
	DefaultStoreDriver   = StoreMemory
	DefaultDBPath        = "reqcap.db"
)

// Store drivers.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Value sources, lowest precedence first.
const (
	SourceDefault = "default"
	SourceFile    = "file"
	SourceEnv     = "env"
	SourceFlag    = "flag"
)

// Config is the complete server configuration.
type Config struct {
	Port             int         `yaml:"port" json:"port"`
	MaxLogEntries    int         `yaml:"maxLogEntries" json:"maxLogEntries"`
	MaxBodySize      int64       `yaml:"maxBodySize" json:"maxBodySize"`
	DefaultAuthority string      `yaml:"defaultAuthority" json:"defaultAuthority"`
	Log              LogConfig   `yaml:"log" json:"log"`
	Store            StoreConfig `yaml:"store" json:"store"`

	// Sources maps a setting key ("port", "log.level", ...) to where its value came from.
	Sources map[string]string `yaml:"-" json:"-"`
}

// LogConfig selects log level and format. File, when set, receives a copy of
// everything written to stderr.
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	File   string `yaml:"file,omitempty" json:"file,omitempty"`
}

// StoreConfig selects the request log backend.
type StoreConfig struct {
	Driver string `yaml:"driver" json:"driver"`
	Path   string `yaml:"path" json:"path"`
}

// Setting keys used in Sources.
const (
	KeyPort             = "port"
	KeyMaxLogEntries    = "maxLogEntries"
	KeyMaxBodySize      = "maxBodySize"
	KeyDefaultAuthority = "defaultAuthority"
	KeyLogLevel         = "log.level"
	KeyLogFormat        = "log.format"
	KeyLogFile          = "log.file"
	KeyStoreDriver      = "store.driver"
	KeyStorePath        = "store.path"
)

// Default returns a Config with every value at its default.
func Default() *Config {
	cfg := &Config{
		Port:             DefaultPort,
		MaxLogEntries:    DefaultMaxLogEntries,
		MaxBodySize:      DefaultMaxBodySize,
		DefaultAuthority: request.DefaultAuthority,
		Log: LogConfig{
			Level:  "info",
			Format: string(logging.FormatText),
		},
		Store: StoreConfig{
			Driver: DefaultStoreDriver,
			Path:   DefaultDBPath,
		},
		Sources: make(map[string]string),
	}
	for _, key := range []string{
		KeyPort, KeyMaxLogEntries, KeyMaxBodySize, KeyDefaultAuthority,
		KeyLogLevel, KeyLogFormat, KeyLogFile, KeyStoreDriver, KeyStorePath,
	} {
		cfg.Sources[key] = SourceDefault
	}
	return cfg
}

// Load returns defaults overlaid with the file at path (if path is not empty)
// and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		file, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		Merge(cfg, file, SourceFile)
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoggingConfig converts the log settings for logging.New.
func (c *Config) LoggingConfig() logging.Config {
	lc := logging.DefaultConfig()
	lc.Level = logging.ParseLevel(c.Log.Level)
	lc.Format = logging.ParseFormat(c.Log.Format)
	lc.File = c.Log.File
	return lc
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	var errs []error
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d is out of range (0-65535)", c.Port))
	}
	if c.MaxLogEntries <= 0 {
		errs = append(errs, fmt.Errorf("maxLogEntries %d must be positive", c.MaxLogEntries))
	}
	if c.MaxBodySize < 0 {
		errs = append(errs, fmt.Errorf("maxBodySize %d must not be negative", c.MaxBodySize))
	}
	if strings.ContainsAny(c.DefaultAuthority, "/?# ") {
		errs = append(errs, fmt.Errorf("defaultAuthority %q is not a host[:port]", c.DefaultAuthority))
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not one of text, json", c.Log.Format))
	}
	switch c.Store.Driver {
	case StoreMemory:
	case StoreSQLite:
		if c.Store.Path == "" {
			errs = append(errs, errors.New("store.path is required for the sqlite store"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.driver %q is not one of memory, sqlite", c.Store.Driver))
	}
	return errors.Join(errs...)
}
