package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	if cfg == nil {
		t.Fatal("NewDefaultConfig returned nil")
	}

	// Check pack defaults
	if cfg.Pack.Output != DefaultOutput {
		t.Errorf("expected output %q, got %q", DefaultOutput, cfg.Pack.Output)
	}
	if cfg.Pack.Style != DefaultStyle {
		t.Errorf("expected style %q, got %q", DefaultStyle, cfg.Pack.Style)
	}
	if cfg.Pack.MaxFileSize != DefaultMaxFileSize {
		t.Errorf("expected max file size %d, got %d", DefaultMaxFileSize, cfg.Pack.MaxFileSize)
	}

	// Check metrics defaults
	if cfg.Metrics.Encoding != DefaultEncoding {
		t.Errorf("expected encoding %q, got %q", DefaultEncoding, cfg.Metrics.Encoding)
	}
	if cfg.Metrics.Concurrency != DefaultConcurrency {
		t.Errorf("expected concurrency %d, got %d", DefaultConcurrency, cfg.Metrics.Concurrency)
	}

	// Check remote defaults
	if cfg.Remote.APIURL != DefaultAPIURL {
		t.Errorf("expected api url %q, got %q", DefaultAPIURL, cfg.Remote.APIURL)
	}
	if cfg.Remote.Timeout != DefaultRemoteTimeout {
		t.Errorf("expected timeout %v, got %v", DefaultRemoteTimeout, cfg.Remote.Timeout)
	}

	// Check logging defaults
	if cfg.Logging.Level != DefaultLogLevel {
		t.Errorf("expected log level %q, got %q", DefaultLogLevel, cfg.Logging.Level)
	}
	if cfg.Logging.Format != DefaultLogFormat {
		t.Errorf("expected log format %q, got %q", DefaultLogFormat, cfg.Logging.Format)
	}

	// Check history defaults
	if !cfg.History.Enabled {
		t.Error("expected history to be enabled by default")
	}
	if cfg.History.Path != DefaultHistoryPath {
		t.Errorf("expected history path %q, got %q", DefaultHistoryPath, cfg.History.Path)
	}

	// Check tracing defaults
	if cfg.Observability.Tracing.Enabled {
		t.Error("expected tracing to be disabled by default")
	}
}

func TestConfig_Validate_DefaultIsValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid, got error: %v", err)
	}
}

func TestPackConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  PackConfig
		wantErr bool
	}{
		{
			name:    "valid markdown style",
			config:  PackConfig{Output: "out.md", Style: "markdown"},
			wantErr: false,
		},
		{
			name:    "valid xml style",
			config:  PackConfig{Output: "out.xml", Style: "xml"},
			wantErr: false,
		},
		{
			name:    "empty style is allowed",
			config:  PackConfig{Output: "out.md"},
			wantErr: false,
		},
		{
			name:    "missing output",
			config:  PackConfig{Style: "markdown"},
			wantErr: true,
		},
		{
			name:    "invalid style",
			config:  PackConfig{Output: "out.md", Style: "html"},
			wantErr: true,
		},
		{
			name:    "negative max file size",
			config:  PackConfig{Output: "out.md", MaxFileSize: -1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMetricsConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  MetricsConfig
		wantErr bool
	}{
		{
			name:    "valid o200k_base",
			config:  MetricsConfig{Encoding: "o200k_base", Concurrency: 4},
			wantErr: false,
		},
		{
			name:    "valid cl100k_base",
			config:  MetricsConfig{Encoding: "cl100k_base", Concurrency: 1},
			wantErr: false,
		},
		{
			name:    "unknown encoding",
			config:  MetricsConfig{Encoding: "p50k_base", Concurrency: 4},
			wantErr: true,
		},
		{
			name:    "zero concurrency",
			config:  MetricsConfig{Encoding: "o200k_base", Concurrency: 0},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRemoteConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  RemoteConfig
		wantErr bool
	}{
		{
			name:    "valid https url",
			config:  RemoteConfig{APIURL: "https://api.repopack.dev"},
			wantErr: false,
		},
		{
			name:    "valid http url for self-hosted",
			config:  RemoteConfig{APIURL: "http://localhost:3002"},
			wantErr: false,
		},
		{
			name:    "missing api url",
			config:  RemoteConfig{},
			wantErr: true,
		},
		{
			name:    "non-http scheme",
			config:  RemoteConfig{APIURL: "ftp://api.repopack.dev"},
			wantErr: true,
		},
		{
			name:    "negative timeout",
			config:  RemoteConfig{APIURL: "https://api.repopack.dev", Timeout: -1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTracingConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  TracingConfig
		wantErr bool
	}{
		{
			name:    "disabled skips validation",
			config:  TracingConfig{Enabled: false},
			wantErr: false,
		},
		{
			name: "valid stdout exporter",
			config: TracingConfig{
				Enabled: true, ExporterType: "stdout",
				SampleRate: 1.0, ServiceName: "repopack",
			},
			wantErr: false,
		},
		{
			name: "otlp without endpoint",
			config: TracingConfig{
				Enabled: true, ExporterType: "otlp",
				SampleRate: 1.0, ServiceName: "repopack",
			},
			wantErr: true,
		},
		{
			name: "sample rate out of range",
			config: TracingConfig{
				Enabled: true, ExporterType: "stdout",
				SampleRate: 1.5, ServiceName: "repopack",
			},
			wantErr: true,
		},
		{
			name: "missing service name",
			config: TracingConfig{
				Enabled: true, ExporterType: "stdout", SampleRate: 1.0,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoader_Load(t *testing.T) {
	t.Run("missing file returns defaults", func(t *testing.T) {
		dir := t.TempDir()
		loader, err := NewLoader(dir)
		if err != nil {
			t.Fatalf("NewLoader failed: %v", err)
		}

		cfg, err := loader.Load("")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if cfg.Pack.Style != DefaultStyle {
			t.Errorf("expected default style %q, got %q", DefaultStyle, cfg.Pack.Style)
		}
	})

	t.Run("loads values over defaults", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.yaml")
		content := "pack:\n  output: custom.xml\n  style: xml\nmetrics:\n  encoding: cl100k_base\n"
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		loader, err := NewLoader(dir)
		if err != nil {
			t.Fatalf("NewLoader failed: %v", err)
		}

		cfg, err := loader.Load(path)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if cfg.Pack.Output != "custom.xml" {
			t.Errorf("expected output custom.xml, got %q", cfg.Pack.Output)
		}
		if cfg.Pack.Style != "xml" {
			t.Errorf("expected style xml, got %q", cfg.Pack.Style)
		}
		if cfg.Metrics.Encoding != "cl100k_base" {
			t.Errorf("expected encoding cl100k_base, got %q", cfg.Metrics.Encoding)
		}
		// Untouched sections keep defaults
		if cfg.Remote.APIURL != DefaultAPIURL {
			t.Errorf("expected default api url, got %q", cfg.Remote.APIURL)
		}
	})

	t.Run("invalid yaml returns error", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.yaml")
		if err := os.WriteFile(path, []byte("pack: [broken"), 0600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		loader, err := NewLoader(dir)
		if err != nil {
			t.Fatalf("NewLoader failed: %v", err)
		}

		if _, err := loader.Load(path); err == nil {
			t.Error("expected error for invalid yaml")
		}
	})
}

func TestLoader_Save(t *testing.T) {
	dir := t.TempDir()
	loader, err := NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader failed: %v", err)
	}

	cfg := NewDefaultConfig()
	cfg.Pack.Style = "plain"

	if err := loader.Save(cfg, ""); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := loader.LoadFromFile(loader.DefaultConfigPath())
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if loaded.Pack.Style != "plain" {
		t.Errorf("expected style plain after round trip, got %q", loaded.Pack.Style)
	}

	info, err := os.Stat(loader.DefaultConfigPath())
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("expected file mode 0600, got %v", info.Mode().Perm())
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "tilde only", in: "~", want: home},
		{name: "tilde prefix", in: "~/.repopack/history.db", want: filepath.Join(home, ".repopack", "history.db")},
		{name: "absolute path unchanged", in: "/var/lib/repopack.db", want: "/var/lib/repopack.db"},
		{name: "empty path unchanged", in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandPath(tt.in)
			if err != nil {
				t.Fatalf("ExpandPath failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("ExpandPath(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
