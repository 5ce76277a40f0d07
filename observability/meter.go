package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// Outcome labels used on every counter.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

func initMeter(ctx context.Context, cfg Config, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.MetricInterval))),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)
	return mp, nil
}

// Meter returns the streamgate meter from the global provider.
func Meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// Metrics holds the gateway's metric instruments.
type Metrics struct {
	requestTotal     metric.Int64Counter
	requestDuration  metric.Float64Histogram
	requestActive    metric.Int64UpDownCounter
	uploadSessions   metric.Int64Counter
	uploadPartBytes  metric.Int64Counter
	streamWindows    metric.Int64Counter
	streamBytes      metric.Int64Counter
	backendDuration  metric.Float64Histogram
	catalogPersisted metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.requestTotal, err = meter.Int64Counter("http.server.requests",
		metric.WithDescription("Total number of HTTP requests")); err != nil {
		return nil, fmt.Errorf("creating http.server.requests counter: %w", err)
	}
	if m.requestDuration, err = meter.Float64Histogram("http.server.duration",
		metric.WithDescription("Duration of HTTP requests"), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("creating http.server.duration histogram: %w", err)
	}
	if m.requestActive, err = meter.Int64UpDownCounter("http.server.active_requests",
		metric.WithDescription("Number of in-flight HTTP requests")); err != nil {
		return nil, fmt.Errorf("creating http.server.active_requests counter: %w", err)
	}
	if m.uploadSessions, err = meter.Int64Counter("streamgate.upload.sessions",
		metric.WithDescription("Multipart upload session transitions by stage and outcome")); err != nil {
		return nil, fmt.Errorf("creating streamgate.upload.sessions counter: %w", err)
	}
	if m.uploadPartBytes, err = meter.Int64Counter("streamgate.upload.part_bytes",
		metric.WithDescription("Bytes accepted into multipart upload parts"), metric.WithUnit("By")); err != nil {
		return nil, fmt.Errorf("creating streamgate.upload.part_bytes counter: %w", err)
	}
	if m.streamWindows, err = meter.Int64Counter("streamgate.stream.windows",
		metric.WithDescription("Range windows served by outcome")); err != nil {
		return nil, fmt.Errorf("creating streamgate.stream.windows counter: %w", err)
	}
	if m.streamBytes, err = meter.Int64Counter("streamgate.stream.bytes",
		metric.WithDescription("Bytes written to streaming clients"), metric.WithUnit("By")); err != nil {
		return nil, fmt.Errorf("creating streamgate.stream.bytes counter: %w", err)
	}
	if m.backendDuration, err = meter.Float64Histogram("streamgate.objectstore.duration",
		metric.WithDescription("Duration of object store calls"), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("creating streamgate.objectstore.duration histogram: %w", err)
	}
	if m.catalogPersisted, err = meter.Int64Counter("streamgate.catalog.records",
		metric.WithDescription("Video record writes by outcome")); err != nil {
		return nil, fmt.Errorf("creating streamgate.catalog.records counter: %w", err)
	}
	return m, nil
}

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}

// RecordRequestStart increments the in-flight request count.
func (m *Metrics) RecordRequestStart(ctx context.Context) {
	if m == nil {
		return
	}
	m.requestActive.Add(ctx, 1)
}

// RecordRequestEnd decrements in-flight requests and records the completed request.
func (m *Metrics) RecordRequestEnd(ctx context.Context, method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestActive.Add(ctx, -1)
	m.requestTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.Int("status", status),
	))
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
	))
}

// RecordUploadStage counts a begin, complete or abort attempt.
func (m *Metrics) RecordUploadStage(ctx context.Context, stage string, err error) {
	if m == nil {
		return
	}
	m.uploadSessions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String(AttrStatus, outcome(err)),
	))
}

// RecordPart counts the bytes of one part upload attempt.
func (m *Metrics) RecordPart(ctx context.Context, size int, err error) {
	if m == nil {
		return
	}
	m.uploadPartBytes.Add(ctx, int64(size), metric.WithAttributes(
		attribute.String(AttrStatus, outcome(err)),
	))
}

// RecordStream counts one served window and the bytes actually written.
func (m *Metrics) RecordStream(ctx context.Context, written int64, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String(AttrStatus, outcome(err)))
	m.streamWindows.Add(ctx, 1, attrs)
	m.streamBytes.Add(ctx, written, attrs)
}

// RecordBackend records the duration of one object store operation.
func (m *Metrics) RecordBackend(ctx context.Context, operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.backendDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String(AttrOperation, operation),
		attribute.String(AttrStatus, outcome(err)),
	))
}

// RecordCatalogWrite counts one video record write.
func (m *Metrics) RecordCatalogWrite(ctx context.Context, err error) {
	if m == nil {
		return
	}
	m.catalogPersisted.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrStatus, outcome(err)),
	))
}
