package otel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rcsfx/extension/internal/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Config holds OTel configuration
type Config struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	LogWriter    io.Writer // log file; also receives periodic metric dumps
	Endpoint     string    // OTLP endpoint (optional, only used if set)
	Insecure     bool
}

// FromSettings maps the otel config section onto a provider Config.
func FromSettings(c config.OTelConfig, w io.Writer) Config {
	return Config{
		Enabled:      c.Enabled,
		ServiceName:  c.ServiceName,
		BatchTimeout: c.BatchTimeout,
		LogWriter:    w,
		Endpoint:     c.Endpoint,
		Insecure:     c.Insecure,
	}
}

// Provider manages OpenTelemetry providers for logs and metrics
type Provider struct {
	logProvider   *sdklog.LoggerProvider
	meterProvider *sdkmetric.MeterProvider
	config        Config
}

// New creates a new OTel provider with the given configuration.
// If OTel is disabled, returns a no-op provider.
func New(cfg Config) (*Provider, error) {
	p := &Provider{
		config: cfg,
	}

	if !cfg.Enabled {
		return p, nil
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "rcsfx"
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = 5 * time.Second
	}

	ctx := context.Background()

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	var processors []sdklog.Processor

	if cfg.LogWriter != nil {
		fileExporter, err := stdoutlog.New(
			stdoutlog.WithWriter(cfg.LogWriter),
			stdoutlog.WithPrettyPrint(),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create file log exporter: %w", err)
		}
		processors = append(processors, sdklog.NewBatchProcessor(fileExporter,
			sdklog.WithExportTimeout(cfg.BatchTimeout),
		))
	}

	if cfg.Endpoint != "" {
		otlpOpts := []otlploghttp.Option{
			otlploghttp.WithEndpoint(cfg.Endpoint),
		}
		if cfg.Insecure {
			otlpOpts = append(otlpOpts, otlploghttp.WithInsecure())
		}

		otlpExporter, err := otlploghttp.New(ctx, otlpOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP log exporter: %w", err)
		}
		processors = append(processors, sdklog.NewBatchProcessor(otlpExporter,
			sdklog.WithExportTimeout(cfg.BatchTimeout),
		))
	}

	if len(processors) == 0 {
		return nil, fmt.Errorf("OTel enabled but no log writer or endpoint configured")
	}

	opts := []sdklog.LoggerProviderOption{
		sdklog.WithResource(res),
	}
	for _, proc := range processors {
		opts = append(opts, sdklog.WithProcessor(proc))
	}
	p.logProvider = sdklog.NewLoggerProvider(opts...)

	// metrics only go to the file; the OTLP endpoint is log-only
	if cfg.LogWriter != nil {
		metricExporter, err := stdoutmetric.New(stdoutmetric.WithWriter(cfg.LogWriter))
		if err != nil {
			return nil, fmt.Errorf("failed to create metric exporter: %w", err)
		}
		p.meterProvider = sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter,
				sdkmetric.WithInterval(cfg.BatchTimeout),
			)),
		)
		// sim and dispatcher counters resolve their meter through the global provider
		otel.SetMeterProvider(p.meterProvider)
	}

	p.config = cfg
	return p, nil
}

// LoggerProvider returns the log provider for use with otelslog bridge.
// Returns nil if OTel is not enabled.
func (p *Provider) LoggerProvider() *sdklog.LoggerProvider {
	return p.logProvider
}

// Meter returns a named meter, or a no-op meter when metrics are off.
func (p *Provider) Meter(name string) metric.Meter {
	if p.meterProvider == nil {
		return noop.Meter{}
	}
	return p.meterProvider.Meter(name)
}

// Flush forces a flush of all pending logs and metrics.
// Called when a session ends so the tail of the session is exported.
func (p *Provider) Flush(ctx context.Context) error {
	if !p.config.Enabled {
		return nil
	}

	var errs []error
	if p.logProvider != nil {
		if err := p.logProvider.ForceFlush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("log flush failed: %w", err))
		}
	}
	if p.meterProvider != nil {
		if err := p.meterProvider.ForceFlush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metric flush failed: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Shutdown gracefully shuts down all providers.
// Should be called when the application exits.
func (p *Provider) Shutdown(ctx context.Context) error {
	if !p.config.Enabled {
		return nil
	}

	var errs []error
	if p.logProvider != nil {
		if err := p.logProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("log shutdown failed: %w", err))
		}
	}
	if p.meterProvider != nil {
		if err := p.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metric shutdown failed: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Enabled returns whether OTel is enabled
func (p *Provider) Enabled() bool {
	return p.config.Enabled
}
