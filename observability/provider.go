package observability

import (
	"context"
	"errors"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/kbukum/streamgate/logger"
)

// Provider owns the SDK providers installed by Init.
type Provider struct {
	tracer *sdktrace.TracerProvider
	meter  *sdkmetric.MeterProvider
}

// Init installs tracer and meter providers exporting over OTLP/HTTP. When
// cfg.Enabled is false it returns an empty Provider and leaves the global
// no-op providers in place.
func Init(ctx context.Context, cfg Config, serviceName, serviceVersion, environment string) (*Provider, error) {
	cfg.ApplyDefaults()
	if !cfg.Enabled {
		return &Provider{}, nil
	}

	res, err := newResource(ctx, serviceName, serviceVersion, environment)
	if err != nil {
		return nil, err
	}
	tp, err := initTracer(ctx, cfg, res)
	if err != nil {
		return nil, err
	}
	mp, err := initMeter(ctx, cfg, res)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, err
	}

	logger.Info("telemetry initialized", logger.Fields(
		"endpoint", cfg.Endpoint,
		"sample_rate", cfg.SampleRate,
		"metric_interval", cfg.MetricInterval.String(),
	))
	return &Provider{tracer: tp, meter: mp}, nil
}

// Shutdown flushes and stops the installed providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	var errs []error
	if p.tracer != nil {
		errs = append(errs, p.tracer.Shutdown(ctx))
	}
	if p.meter != nil {
		errs = append(errs, p.meter.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
