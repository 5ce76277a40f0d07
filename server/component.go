package server

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/kbukum/streamgate/component"
)

const componentName = "http-server"

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// Component wraps Server for the component registry.
type Component struct {
	server  *Server
	started atomic.Bool
}

// NewComponent returns a component backed by s.
func NewComponent(s *Server) *Component {
	return &Component{server: s}
}

// Name returns the component name.
func (c *Component) Name() string { return componentName }

// Start starts serving.
func (c *Component) Start(ctx context.Context) error {
	if err := c.server.Start(ctx); err != nil {
		return err
	}
	c.started.Store(true)
	return nil
}

// Stop shuts the server down gracefully.
func (c *Component) Stop(ctx context.Context) error {
	if !c.started.Swap(false) {
		return nil
	}
	return c.server.Stop(ctx)
}

// Health reports whether the listener is up.
func (c *Component) Health(_ context.Context) component.Health {
	if !c.started.Load() {
		return component.Health{Name: componentName, Status: component.StatusUnhealthy, Message: "not listening"}
	}
	return component.Health{Name: componentName, Status: component.StatusHealthy, Message: c.server.Addr()}
}

// Describe returns summary info for the startup log.
func (c *Component) Describe() component.Description {
	cfg := c.server.config
	return component.Description{
		Name:    "HTTP Server",
		Type:    "server",
		Details: fmt.Sprintf("%s max_body=%s tls=%t", cfg.Addr(), cfg.MaxBodySize, cfg.TLS.Enabled()),
		Port:    cfg.Port,
	}
}
