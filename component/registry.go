package component

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kbukum/storefront/logger"
)

// componentEntry holds a component and its started state.
type componentEntry struct {
	component Component
	started   bool
	skipped   bool
}

// Registry manages component lifecycle with deterministic ordering.
// Components are started in registration order and stopped in reverse order.
type Registry struct {
	entries   []*componentEntry
	lookup    map[string]*componentEntry
	onStarted []func(Component)
	log       *logger.Logger
	mu        sync.RWMutex
}

// NewRegistry creates a new component registry. A nil logger falls back to
// the global logger.
func NewRegistry(log *logger.Logger) *Registry {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Registry{
		entries: make([]*componentEntry, 0),
		lookup:  make(map[string]*componentEntry),
		log:     log,
	}
}

// Register adds a component to the registry. Components are started in
// the order they are registered, so register dependencies first.
func (r *Registry) Register(c Component) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := c.Name()
	if _, exists := r.lookup[name]; exists {
		return fmt.Errorf("component %s already registered", name)
	}

	entry := &componentEntry{component: c}
	r.entries = append(r.entries, entry)
	r.lookup[name] = entry

	r.log.Debug("Component registered", map[string]interface{}{
		logger.FieldStep: name,
	})
	return nil
}

// OnStarted registers a callback invoked after each component starts successfully.
func (r *Registry) OnStarted(fn func(Component)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onStarted = append(r.onStarted, fn)
}

// StartAll starts all components in registration order. The first failure of
// a non-optional component stops the walk; later components never start.
func (r *Registry) StartAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.log.Info("Starting all components", map[string]interface{}{
		"count": len(r.entries),
	})

	for _, entry := range r.entries {
		name := entry.component.Name()
		if entry.started {
			continue
		}

		r.log.Info("Starting component", map[string]interface{}{logger.FieldStep: name})
		begin := time.Now()
		if err := entry.component.Start(ctx); err != nil {
			if IsOptional(entry.component) {
				entry.skipped = true
				r.log.Warn("Optional component failed to start, continuing", logger.MergeWithError(
					map[string]interface{}{logger.FieldStep: name}, err))
				continue
			}
			r.log.Error("Component start failed", logger.MergeWithError(
				map[string]interface{}{logger.FieldStep: name}, err))
			return fmt.Errorf("failed to start %s: %w", name, err)
		}

		entry.started = true
		r.log.Info("Component started", logger.StepFields(name, time.Since(begin)))
		for _, fn := range r.onStarted {
			fn(entry.component)
		}
	}

	r.log.Info("All components started successfully")
	return nil
}

// StopAll gracefully stops all started components in reverse registration order.
func (r *Registry) StopAll(ctx context.Context) error {
	// Claim the started entries under the lock, then stop them without it:
	// a component draining in-flight work may itself call HealthAll.
	r.mu.Lock()
	var toStop []Component
	for i := len(r.entries) - 1; i >= 0; i-- {
		entry := r.entries[i]
		if !entry.started {
			continue
		}
		entry.started = false
		toStop = append(toStop, entry.component)
	}
	r.mu.Unlock()

	if len(toStop) == 0 {
		return nil
	}
	r.log.Info("Stopping all components", map[string]interface{}{"count": len(toStop)})

	var errs []error
	for _, c := range toStop {
		name := c.Name()
		stopCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := c.Stop(stopCtx); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop %s: %w", name, err))
			r.log.Error("Component stop failed", logger.MergeWithError(
				map[string]interface{}{logger.FieldStep: name}, err))
		} else {
			r.log.Info("Component stopped", map[string]interface{}{logger.FieldStep: name})
		}
		cancel()
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}

	r.log.Info("All components stopped successfully")
	return nil
}

// HealthAll returns health status for all registered components.
func (r *Registry) HealthAll(ctx context.Context) []Health {
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make([]Health, 0, len(r.entries))
	for _, entry := range r.entries {
		if entry.skipped {
			results = append(results, Health{
				Name:    entry.component.Name(),
				Status:  StatusDegraded,
				Message: "skipped during startup",
			})
			continue
		}
		results = append(results, entry.component.Health(ctx))
	}
	return results
}

// Get returns a registered component by name, or nil if not found.
func (r *Registry) Get(name string) Component {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if entry, exists := r.lookup[name]; exists {
		return entry.component
	}
	return nil
}

// Started reports whether the named component is currently started.
func (r *Registry) Started(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, exists := r.lookup[name]
	return exists && entry.started
}

// All returns all registered components in registration order.
func (r *Registry) All() []Component {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Component, 0, len(r.entries))
	for _, entry := range r.entries {
		result = append(result, entry.component)
	}
	return result
}
