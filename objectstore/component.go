package objectstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/streamgate/component"
	"github.com/kbukum/streamgate/logger"
	"github.com/kbukum/streamgate/observability"
)

// Component wraps a Client and implements component.Component.
type Component struct {
	cfg     Config
	metrics *observability.Metrics
	log     *logger.Logger

	mu     sync.RWMutex
	client Client
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// NewComponent creates an object store component. metrics may be nil.
func NewComponent(cfg Config, metrics *observability.Metrics, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Component{
		cfg:     cfg,
		metrics: metrics,
		log:     log.WithComponent("objectstore"),
	}
}

// Client returns the instrumented client, or nil if not started.
func (c *Component) Client() Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client
}

// Name returns the component name.
func (c *Component) Name() string { return "objectstore" }

// Start builds the configured backend client.
func (c *Component) Start(ctx context.Context) error {
	client, err := New(ctx, c.cfg, c.log)
	if err != nil {
		return fmt.Errorf("objectstore start: %w", err)
	}
	c.mu.Lock()
	c.client = Instrument(client, c.metrics)
	c.mu.Unlock()
	return nil
}

// Stop releases the client.
func (c *Component) Stop(_ context.Context) error {
	c.mu.Lock()
	c.client = nil
	c.mu.Unlock()
	return nil
}

// Health pings the backend when the provider supports it.
func (c *Component) Health(ctx context.Context) component.Health {
	client := c.Client()
	if client == nil {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: "not initialized"}
	}
	if p, ok := client.(Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return component.Health{
				Name:    c.Name(),
				Status:  component.StatusUnhealthy,
				Message: fmt.Sprintf("ping failed: %v", err),
			}
		}
	}
	return component.Health{Name: c.Name(), Status: component.StatusHealthy}
}

// Describe returns summary info for the startup log.
func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    "Object Store",
		Type:    "objectstore",
		Details: fmt.Sprintf("provider=%s %s", c.cfg.Provider, c.cfg.Target()),
	}
}
