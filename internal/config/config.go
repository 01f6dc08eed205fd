// Package config loads histree settings from .histree.yaml, HISTREE_* environment
// variables and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/Sumatoshi-tech/histree/pkg/observability"
	"github.com/Sumatoshi-tech/histree/pkg/version"
)

// Input sources.
const (
	SourceAuto = "auto"
	SourceCSV  = "csv"
	SourceGit  = "git"
)

// Defaults applied before file and environment values.
const (
	DefaultInputSource         = SourceAuto
	DefaultInputPath           = "."
	DefaultSnapshotCacheSize   = "64MB"
	DefaultSnapshotCompress    = true
	DefaultServerAddr          = "127.0.0.1:8080"
	DefaultServerReadTimeout   = 15 * time.Second
	DefaultServerWriteTimeout  = 60 * time.Second
	DefaultLoggingLevel        = "info"
	DefaultTelemetrySample     = 1.0
	DefaultTelemetryPrometheus = true
)

// Config is the top-level configuration struct for histree.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	Input     InputConfig     `mapstructure:"input"`
	Snapshot  SnapshotConfig  `mapstructure:"snapshot"`
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// InputConfig selects where the commit history comes from.
type InputConfig struct {
	// Source is auto, csv or git. Auto picks git when Path holds a repository.
	Source      string `mapstructure:"source"`
	Path        string `mapstructure:"path"`
	FirstParent bool   `mapstructure:"first_parent"`
	Since       string `mapstructure:"since"`
	Until       string `mapstructure:"until"`
}

// SnapshotConfig holds snapshot cache settings.
type SnapshotConfig struct {
	// CacheSize is a byte size such as "64MB"; "0" selects the built-in default, "off" disables caching.
	CacheSize     string `mapstructure:"cache_size"`
	CacheCompress bool   `mapstructure:"cache_compress"`
	SkipVendored  bool   `mapstructure:"skip_vendored"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// TelemetryConfig holds OpenTelemetry export settings.
type TelemetryConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPHeaders  string  `mapstructure:"otlp_headers"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
	Environment  string  `mapstructure:"environment"`
	Prometheus   bool    `mapstructure:"prometheus"`
}

// cacheDisabled is the CacheSize value that turns the snapshot cache off.
const cacheDisabled = "off"

// Sentinel errors for configuration validation.
var (
	// ErrInvalidSource indicates an unknown input.source.
	ErrInvalidSource = errors.New("input.source must be auto, csv or git")
	// ErrEmptyInputPath indicates input.path is empty.
	ErrEmptyInputPath = errors.New("input.path must not be empty")
	// ErrInvalidCacheSize indicates snapshot.cache_size is not a byte size.
	ErrInvalidCacheSize = errors.New("snapshot.cache_size must be a byte size such as 64MB or off")
	// ErrInvalidTimeout indicates a negative server timeout.
	ErrInvalidTimeout = errors.New("server timeouts must be non-negative")
	// ErrInvalidLogLevel indicates an unknown logging.level.
	ErrInvalidLogLevel = errors.New("logging.level must be debug, info, warn or error")
	// ErrInvalidSampleRatio indicates telemetry.sample_ratio is out of range.
	ErrInvalidSampleRatio = errors.New("telemetry.sample_ratio must be between 0 and 1")
)

// Validate checks all configuration values for correctness.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Input.Source) {
	case SourceAuto, SourceCSV, SourceGit, "":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidSource, c.Input.Source)
	}

	if strings.TrimSpace(c.Input.Path) == "" {
		return ErrEmptyInputPath
	}

	_, cacheErr := c.Snapshot.CacheBytes()
	if cacheErr != nil {
		return cacheErr
	}

	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 {
		return ErrInvalidTimeout
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error", "":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Logging.Level)
	}

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return ErrInvalidSampleRatio
	}

	return nil
}

// CacheBytes returns the snapshot cache bound in bytes, -1 when disabled.
func (s SnapshotConfig) CacheBytes() (int64, error) {
	raw := strings.TrimSpace(s.CacheSize)
	if strings.EqualFold(raw, cacheDisabled) {
		return -1, nil
	}

	if raw == "" {
		return 0, nil
	}

	size, err := humanize.ParseBytes(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCacheSize, s.CacheSize)
	}

	if size > math.MaxInt64 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCacheSize, s.CacheSize)
	}

	return int64(size), nil
}

// Observability maps logging and telemetry settings onto an observability config.
func (c *Config) Observability(mode observability.AppMode) observability.Config {
	cfg := observability.DefaultConfig()
	cfg.ServiceVersion = version.Version
	cfg.Mode = mode
	cfg.Environment = c.Telemetry.Environment
	cfg.OTLPEndpoint = c.Telemetry.OTLPEndpoint
	cfg.OTLPHeaders = observability.ParseOTLPHeaders(c.Telemetry.OTLPHeaders)
	cfg.OTLPInsecure = c.Telemetry.OTLPInsecure
	cfg.SampleRatio = c.Telemetry.SampleRatio
	cfg.Prometheus = c.Telemetry.Prometheus && mode == observability.ModeServe
	cfg.LogLevel = observability.ParseLogLevel(c.Logging.Level)
	cfg.LogJSON = c.Logging.JSON

	return cfg
}
