// Package config provides configuration structs and utilities for the repopack application.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Config represents the root configuration for the repopack application.
type Config struct {
	Pack          PackConfig          `yaml:"pack"`
	Metrics       MetricsConfig       `yaml:"metrics"`
	Remote        RemoteConfig        `yaml:"remote"`
	History       HistoryConfig       `yaml:"history"`
	Logging       LoggingConfig       `yaml:"logging"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// PackConfig holds configuration for local repository packing.
type PackConfig struct {
	Output         string   `yaml:"output"`
	Style          string   `yaml:"style"` // markdown, xml, plain
	LineNumbers    bool     `yaml:"line_numbers"`
	IgnorePatterns []string `yaml:"ignore_patterns"`
	MaxFileSize    int64    `yaml:"max_file_size"` // Maximum file size in bytes
	IncludeHidden  bool     `yaml:"include_hidden"`
}

// MetricsConfig holds configuration for token metrics computation.
type MetricsConfig struct {
	Encoding    string `yaml:"encoding"`    // o200k_base, cl100k_base
	Concurrency int    `yaml:"concurrency"` // Worker count for parallel output counting
}

// RemoteConfig holds configuration for the remote generation API.
type RemoteConfig struct {
	APIURL  string        `yaml:"api_url"`
	APIKey  string        `yaml:"api_key,omitempty"`
	Timeout time.Duration `yaml:"timeout"` // Per-request timeout, not a job deadline
}

// HistoryConfig holds configuration for the local job history store.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"` // SQLite database path
}

// LoggingConfig holds configuration for application logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// ObservabilityConfig holds configuration for distributed tracing.
type ObservabilityConfig struct {
	Tracing TracingConfig `yaml:"tracing"`
}

// TracingConfig holds configuration for distributed tracing.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	ExporterType string  `yaml:"exporter_type"` // none, stdout, otlp
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	SampleRate   float64 `yaml:"sample_rate"` // Sampling rate (0.0 to 1.0)
	ServiceName  string  `yaml:"service_name"`
}

// Default configuration values.
const (
	DefaultOutput         = "repopack-output.md"
	DefaultStyle          = "markdown"
	DefaultEncoding       = "o200k_base"
	DefaultConcurrency    = 4
	DefaultMaxFileSize    = 1024 * 1024 // 1 MB
	DefaultAPIURL         = "https://api.repopack.dev"
	DefaultRemoteTimeout  = 30 * time.Second
	DefaultHistoryEnabled = true
	DefaultHistoryPath    = "~/.repopack/history.db"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"

	// Observability defaults
	DefaultTracingEnabled      = false
	DefaultTracingExporterType = "none"
	DefaultTracingSampleRate   = 1.0
	DefaultTracingServiceName  = "repopack"
)

// Valid log levels.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Valid log formats.
var validLogFormats = map[string]bool{
	"json": true,
	"text": true,
}

// Valid output styles.
var validStyles = map[string]bool{
	"markdown": true,
	"xml":      true,
	"plain":    true,
}

// Valid token encodings.
var validEncodings = map[string]bool{
	"o200k_base":  true,
	"cl100k_base": true,
}

// Valid tracing exporter types.
var validTracingExporterTypes = map[string]bool{
	"none":   true,
	"stdout": true,
	"otlp":   true,
}

// NewDefaultConfig creates a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		Pack: PackConfig{
			Output:      DefaultOutput,
			Style:       DefaultStyle,
			MaxFileSize: DefaultMaxFileSize,
		},
		Metrics: MetricsConfig{
			Encoding:    DefaultEncoding,
			Concurrency: DefaultConcurrency,
		},
		Remote: RemoteConfig{
			APIURL:  DefaultAPIURL,
			Timeout: DefaultRemoteTimeout,
		},
		History: HistoryConfig{
			Enabled: DefaultHistoryEnabled,
			Path:    DefaultHistoryPath,
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Observability: ObservabilityConfig{
			Tracing: TracingConfig{
				Enabled:      DefaultTracingEnabled,
				ExporterType: DefaultTracingExporterType,
				SampleRate:   DefaultTracingSampleRate,
				ServiceName:  DefaultTracingServiceName,
			},
		},
	}
}

// Validate checks if the configuration is valid and returns an error if not.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Pack.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("pack: %w", err))
	}

	if err := c.Metrics.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("metrics: %w", err))
	}

	if err := c.Remote.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("remote: %w", err))
	}

	if err := c.History.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("history: %w", err))
	}

	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("logging: %w", err))
	}

	if err := c.Observability.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("observability: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Validate checks if the PackConfig is valid.
func (p *PackConfig) Validate() error {
	var errs []error

	if p.Output == "" {
		errs = append(errs, errors.New("output is required"))
	}

	if p.Style != "" && !validStyles[p.Style] {
		errs = append(errs, fmt.Errorf("invalid style %q: must be one of markdown, xml, plain", p.Style))
	}

	if p.MaxFileSize < 0 {
		errs = append(errs, errors.New("max_file_size must be non-negative"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Validate checks if the MetricsConfig is valid.
func (m *MetricsConfig) Validate() error {
	var errs []error

	if m.Encoding != "" && !validEncodings[m.Encoding] {
		errs = append(errs, fmt.Errorf("invalid encoding %q: must be one of o200k_base, cl100k_base", m.Encoding))
	}

	if m.Concurrency <= 0 {
		errs = append(errs, errors.New("concurrency must be positive"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Validate checks if the RemoteConfig is valid.
func (r *RemoteConfig) Validate() error {
	var errs []error

	if r.APIURL == "" {
		errs = append(errs, errors.New("api_url is required"))
	} else {
		parsedURL, err := url.Parse(r.APIURL)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid api_url: %w", err))
		} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			errs = append(errs, errors.New("api_url must use http or https scheme"))
		}
	}

	if r.Timeout < 0 {
		errs = append(errs, errors.New("timeout must be non-negative"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Validate checks if the HistoryConfig is valid.
func (h *HistoryConfig) Validate() error {
	if h.Enabled && h.Path == "" {
		return errors.New("path is required when history is enabled")
	}
	return nil
}

// Validate checks if the LoggingConfig is valid.
func (l *LoggingConfig) Validate() error {
	var errs []error

	if l.Level != "" && !validLogLevels[l.Level] {
		errs = append(errs, fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", l.Level))
	}

	if l.Format != "" && !validLogFormats[l.Format] {
		errs = append(errs, fmt.Errorf("invalid log format %q: must be one of json, text", l.Format))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Validate checks if the ObservabilityConfig is valid.
func (o *ObservabilityConfig) Validate() error {
	if err := o.Tracing.Validate(); err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	return nil
}

// Validate checks if the TracingConfig is valid.
func (t *TracingConfig) Validate() error {
	var errs []error

	if t.Enabled {
		if t.ExporterType != "" && !validTracingExporterTypes[t.ExporterType] {
			errs = append(errs, fmt.Errorf("invalid exporter_type %q: must be one of none, stdout, otlp", t.ExporterType))
		}
		if t.ExporterType == "otlp" && t.OTLPEndpoint == "" {
			errs = append(errs, errors.New("otlp_endpoint is required when exporter_type is 'otlp'"))
		}
		if t.SampleRate < 0 || t.SampleRate > 1 {
			errs = append(errs, errors.New("sample_rate must be between 0.0 and 1.0"))
		}
		if t.ServiceName == "" {
			errs = append(errs, errors.New("service_name is required when tracing is enabled"))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}
