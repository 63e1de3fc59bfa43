package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
)

// Environment variable names.
const (
	EnvPort             = "REQCAP_PORT"
	EnvMaxLogEntries    = "REQCAP_MAX_LOG_ENTRIES"
	EnvMaxBodySize      = "REQCAP_MAX_BODY_SIZE"
	EnvDefaultAuthority = "REQCAP_DEFAULT_AUTHORITY"
	EnvLogLevel         = "REQCAP_LOG_LEVEL"
	EnvLogFormat        = "REQCAP_LOG_FORMAT"
	EnvLogFile          = "REQCAP_LOG_FILE"
	EnvStore            = "REQCAP_STORE"
	EnvDBPath           = "REQCAP_DB_PATH"
	EnvConfig           = "REQCAP_CONFIG"
)

// ApplyEnv overlays the REQCAP_* variables that are set. A malformed number
// is an error rather than being ignored. REQCAP_MAX_BODY_SIZE accepts the same
// sizes as --max-body-size ("4096", "512KiB", "10MB").
func ApplyEnv(cfg *Config) error {
	if cfg.Sources == nil {
		cfg.Sources = make(map[string]string)
	}

	str := func(env, key string, dst *string) {
		if v := os.Getenv(env); v != "" {
			*dst = v
			cfg.Sources[key] = SourceEnv
		}
	}
	num := func(env, key string, apply func(int64)) error {
		v := os.Getenv(env)
		if v == "" {
			return nil
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: invalid number %q", env, v)
		}
		apply(n)
		cfg.Sources[key] = SourceEnv
		return nil
	}

	if err := num(EnvPort, KeyPort, func(n int64) { cfg.Port = int(n) }); err != nil {
		return err
	}
	if err := num(EnvMaxLogEntries, KeyMaxLogEntries, func(n int64) { cfg.MaxLogEntries = int(n) }); err != nil {
		return err
	}
	if v := os.Getenv(EnvMaxBodySize); v != "" {
		n, err := humanize.ParseBytes(v)
		if err != nil {
			return fmt.Errorf("%s: invalid size %q", EnvMaxBodySize, v)
		}
		cfg.MaxBodySize = int64(n)
		cfg.Sources[KeyMaxBodySize] = SourceEnv
	}
	str(EnvDefaultAuthority, KeyDefaultAuthority, &cfg.DefaultAuthority)
	str(EnvLogLevel, KeyLogLevel, &cfg.Log.Level)
	str(EnvLogFormat, KeyLogFormat, &cfg.Log.Format)
	str(EnvLogFile, KeyLogFile, &cfg.Log.File)
	str(EnvStore, KeyStoreDriver, &cfg.Store.Driver)
	str(EnvDBPath, KeyStorePath, &cfg.Store.Path)
	return nil
}

// ConfigFileFromEnv returns REQCAP_CONFIG, or "".
func ConfigFileFromEnv() string {
	return os.Getenv(EnvConfig)
}
