// Package application provides application-level services and dependency injection.
package application

import (
	"context"
	"fmt"

	"github.com/codetide/repopack/internal/adapters/remote"
	"github.com/codetide/repopack/internal/adapters/render"
	appmetrics "github.com/codetide/repopack/internal/application/metrics"
	apppack "github.com/codetide/repopack/internal/application/pack"
	"github.com/codetide/repopack/internal/application/ports"
	"github.com/codetide/repopack/internal/domain/metrics"
	"github.com/codetide/repopack/internal/infrastructure/config"
	"github.com/codetide/repopack/internal/infrastructure/filesystem"
	"github.com/codetide/repopack/internal/infrastructure/logging"
	"github.com/codetide/repopack/internal/infrastructure/storage"
	"github.com/codetide/repopack/internal/infrastructure/tokenizer"
	"github.com/codetide/repopack/internal/infrastructure/tracing"
	"github.com/codetide/repopack/internal/infrastructure/workerpool"
)

// Container holds all application dependencies and provides a central
// point for dependency injection. It manages the lifecycle of services
// and ensures proper initialization order.
type Container struct {
	config  *config.Config
	verbose bool // Override log level to debug when true

	logger *logging.Logger
	tracer *tracing.Tracer

	counters *tokenizer.Registry
	pools    *workerpool.Registry
	engine   *appmetrics.Engine

	collector *filesystem.Collector
	renderer  *render.Renderer
	packSvc   *apppack.Service

	jobRunner ports.JobRunner
	history   ports.JobHistory
}

// NewContainer creates a new dependency injection container with all
// services initialized based on the provided configuration.
func NewContainer(cfg *config.Config, verbose bool) (*Container, error) {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}

	c := &Container{
		config:  cfg,
		verbose: verbose,
	}

	c.initLogging()

	if err := c.initTracing(); err != nil {
		return nil, err
	}

	c.initMetrics()
	c.initPack()

	if err := c.initRemote(); err != nil {
		return nil, err
	}

	return c, nil
}

// initLogging configures the global logger from configuration.
func (c *Container) initLogging() {
	level := logging.Level(c.config.Logging.Level)
	if c.verbose {
		level = logging.LevelDebug
	}

	c.logger = logging.Init(logging.Config{
		Level:  level,
		Format: logging.Format(c.config.Logging.Format),
	})
}

// initTracing sets up the OpenTelemetry tracer.
func (c *Container) initTracing() error {
	tcfg := c.config.Observability.Tracing

	tracer, err := tracing.Init(context.Background(), tracing.Config{
		Enabled:      tcfg.Enabled,
		ExporterType: tracing.ExporterType(tcfg.ExporterType),
		OTLPEndpoint: tcfg.OTLPEndpoint,
		ServiceName:  tcfg.ServiceName,
		SampleRate:   tcfg.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	c.tracer = tracer
	return nil
}

// initMetrics wires the tokenizer registry, the worker pool registry, and
// the metrics engine.
func (c *Container) initMetrics() {
	c.counters = tokenizer.NewRegistry(nil, c.logger)
	c.pools = workerpool.NewRegistry(c.logger)
	c.engine = appmetrics.NewEngine(c.counters, c.pools, c.tracer, c.logger)
}

// initPack wires the collector, renderer, and pack service.
func (c *Container) initPack() {
	collectorCfg := filesystem.DefaultCollectorConfig()
	collectorCfg.IgnorePatterns = c.config.Pack.IgnorePatterns
	collectorCfg.IncludeHidden = c.config.Pack.IncludeHidden
	if c.config.Pack.MaxFileSize > 0 {
		collectorCfg.MaxFileSize = c.config.Pack.MaxFileSize
	}

	c.collector = filesystem.NewCollector(collectorCfg, c.logger)
	c.renderer = render.NewRenderer()
	c.packSvc = apppack.NewService(c.collector, c.renderer, c.engine, c.tracer, c.logger)
}

// initRemote wires the remote job client and, when enabled, the local job
// history store.
func (c *Container) initRemote() error {
	clientCfg := remote.Config{
		APIURL:  c.config.Remote.APIURL,
		APIKey:  c.config.Remote.APIKey,
		Timeout: c.config.Remote.Timeout,
	}

	client, err := remote.NewClient(clientCfg, remote.WithLogger(c.logger))
	if err != nil {
		return fmt.Errorf("failed to initialize remote client: %w", err)
	}
	c.jobRunner = client

	if c.config.History.Enabled {
		path, err := config.ExpandPath(c.config.History.Path)
		if err != nil {
			return fmt.Errorf("failed to resolve history path: %w", err)
		}
		repo, err := storage.OpenHistory(path)
		if err != nil {
			return fmt.Errorf("failed to open job history: %w", err)
		}
		c.history = repo
	}

	return nil
}

// Close releases all container-owned resources.
func (c *Container) Close() error {
	var firstErr error

	if c.pools != nil {
		c.pools.ShutdownAll()
	}

	if c.counters != nil {
		if err := c.counters.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if c.history != nil {
		if err := c.history.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if c.tracer != nil {
		if err := c.tracer.Shutdown(context.Background()); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

// Config returns the active configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger.
func (c *Container) Logger() *logging.Logger {
	return c.logger
}

// Tracer returns the configured tracer.
func (c *Container) Tracer() *tracing.Tracer {
	return c.tracer
}

// MetricsEngine returns the token metrics engine.
func (c *Container) MetricsEngine() *appmetrics.Engine {
	return c.engine
}

// PackService returns the pack orchestration service.
func (c *Container) PackService() *apppack.Service {
	return c.packSvc
}

// JobRunner returns the remote generation job client.
func (c *Container) JobRunner() ports.JobRunner {
	return c.jobRunner
}

// JobHistory returns the local job history store, or nil when disabled.
func (c *Container) JobHistory() ports.JobHistory {
	return c.history
}

// DefaultEncoding returns the configured token encoding.
func (c *Container) DefaultEncoding() metrics.Encoding {
	if c.config.Metrics.Encoding != "" {
		return metrics.Encoding(c.config.Metrics.Encoding)
	}
	return metrics.DefaultEncoding
}
