package config

import (
	"bytes"
	"errors"
	"io"
	"os"
	"regexp"
	"strconv"

	"gopkg.in/yaml.v3"
)

// FileError is a configuration file error with location info when known.
type FileError struct {
	Path    string
	Line    int
	Message string
}

func (e *FileError) Error() string {
	if e.Line > 0 {
		return e.Path + " (line " + strconv.Itoa(e.Line) + "): " + e.Message
	}
	return e.Path + ": " + e.Message
}

var yamlLine = regexp.MustCompile(`line (\d+)`)

// LoadFile reads a YAML configuration file. Unknown keys are rejected so
// typos do not silently fall back to defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		fe := &FileError{Path: path, Message: err.Error()}
		if m := yamlLine.FindStringSubmatch(err.Error()); m != nil {
			fe.Line, _ = strconv.Atoi(m[1])
		}
		return nil, fe
	}
	cfg.Sources = make(map[string]string)
	return &cfg, nil
}

// Merge copies the non-zero values of src into dst and records source for each.
func Merge(dst, src *Config, source string) {
	if src == nil {
		return
	}
	if dst.Sources == nil {
		dst.Sources = make(map[string]string)
	}
	set := func(key string, ok bool, apply func()) {
		if ok {
			apply()
			dst.Sources[key] = source
		}
	}
	set(KeyPort, src.Port != 0, func() { dst.Port = src.Port })
	set(KeyMaxLogEntries, src.MaxLogEntries != 0, func() { dst.MaxLogEntries = src.MaxLogEntries })
	set(KeyMaxBodySize, src.MaxBodySize != 0, func() { dst.MaxBodySize = src.MaxBodySize })
	set(KeyDefaultAuthority, src.DefaultAuthority != "", func() { dst.DefaultAuthority = src.DefaultAuthority })
	set(KeyLogLevel, src.Log.Level != "", func() { dst.Log.Level = src.Log.Level })
	set(KeyLogFormat, src.Log.Format != "", func() { dst.Log.Format = src.Log.Format })
	set(KeyLogFile, src.Log.File != "", func() { dst.Log.File = src.Log.File })
	set(KeyStoreDriver, src.Store.Driver != "", func() { dst.Store.Driver = src.Store.Driver })
	set(KeyStorePath, src.Store.Path != "", func() { dst.Store.Path = src.Store.Path })
}
