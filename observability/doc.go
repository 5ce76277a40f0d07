// Package observability wires OpenTelemetry tracing and metrics for
// streamgate.
//
// Init installs OTLP/HTTP exporters when enabled. When disabled the global
// no-op providers stay in place and every helper here still works:
//
//	p, err := observability.Init(ctx, cfg.Observability, "streamgate", version)
//	defer p.Shutdown(ctx)
//
//	ctx, span := observability.StartSpan(ctx, "objectstore.upload_part")
//	defer span.End()
//
// Metrics holds the gateway instruments. A nil *Metrics records nothing.
package observability
