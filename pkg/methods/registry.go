// Package methods implements the discovery methods the queue dispatches to.
package methods

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urmzd/lanscout/pkg/discovery"
)

// Func performs one attempt of a discovery method. The context carries the
// attempt deadline; timeout is passed for methods that size their own
// per-probe waits from it.
type Func func(ctx context.Context, timeout time.Duration) ([]discovery.RawDevice, error)

// Registry maps method names to implementations.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Func
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]Func)}
}

// Register adds or replaces the implementation for name.
func (r *Registry) Register(name string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[name] = fn
}

// Names returns the registered method names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Execute implements discovery.Executor.
func (r *Registry) Execute(ctx context.Context, method string, timeout time.Duration) ([]discovery.RawDevice, error) {
	r.mu.RLock()
	fn, ok := r.funcs[method]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", discovery.ErrUnknownMethod, method)
	}

	devices, err := fn(ctx, timeout)
	log.Debug().
		Str("method", method).
		Int("devices", len(devices)).
		Err(err).
		Msg("Discovery method finished")
	return devices, err
}

// Executor returns r.Execute as a discovery.Executor.
func (r *Registry) Executor() discovery.Executor {
	return r.Execute
}
