package component

import "context"

// HealthStatus is reported on GET /health.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusUnhealthy HealthStatus = "unhealthy"
	StatusDegraded  HealthStatus = "degraded"
)

// Health is one component's entry in the health report.
type Health struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// Component is a piece of infrastructure the registry starts before the
// core services and stops after them: the catalog database, the object
// store client and the HTTP server.
type Component interface {
	// Name is the registry key. It must be unique.
	Name() string

	// Start opens connections or listeners. A component whose Start failed
	// is never stopped.
	Start(ctx context.Context) error

	// Stop releases what Start acquired. ctx carries the shutdown deadline.
	Stop(ctx context.Context) error

	// Health probes the component. It must be safe before Start.
	Health(ctx context.Context) Health
}

// Description holds summary information for the startup log.
type Description struct {
	// Name is the display name. If empty, the component's Name() is used.
	Name string
	// Type categorizes the component: "database", "objectstore", "server".
	Type string
	// Details is a one-liner such as "sqlite file:streamgate.db".
	Details string
	// Port is the primary port, 0 if not applicable.
	Port int
}

// Describable is optionally implemented by components that report their
// configuration at startup.
type Describable interface {
	Describe() Description
}
