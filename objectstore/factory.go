package objectstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/streamgate/logger"
)

// Factory builds a Client for one provider.
type Factory func(ctx context.Context, cfg Config, log *logger.Logger) (Client, error)

var (
	factoriesMu sync.RWMutex
	factories   = make(map[string]Factory)
)

// RegisterFactory registers a backend factory for the given provider name.
// Provider packages call it from an init function.
func RegisterFactory(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = f
}

// New creates a Client for cfg.Provider. The provider package must have been
// imported so its factory is registered.
func New(ctx context.Context, cfg Config, log *logger.Logger) (Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	factoriesMu.RLock()
	f, ok := factories[cfg.Provider]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("objectstore: unsupported provider %q (not registered)", cfg.Provider)
	}

	if log == nil {
		log = logger.GetGlobalLogger()
	}
	l := log.WithComponent("objectstore")
	l.Info("initializing object store", map[string]interface{}{
		"provider": cfg.Provider,
		"target":   cfg.Target(),
	})
	return f(ctx, cfg, l)
}
