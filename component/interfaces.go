package component

import "context"

// HealthStatus represents the health state of a component.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusUnhealthy HealthStatus = "unhealthy"
	StatusDegraded  HealthStatus = "degraded"
)

// Health holds health information for a component.
type Health struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// Component represents one ordered, lifecycle-managed startup step.
type Component interface {
	// Name returns the unique name of the component for registration.
	Name() string

	// Start performs the step's side effect. A non-nil error aborts startup
	// unless the component is Optional.
	Start(ctx context.Context) error

	// Stop releases whatever Start acquired.
	Stop(ctx context.Context) error

	// Health returns the current health status of the component.
	Health(ctx context.Context) Health
}

// Optional is implemented by components whose start failure must not abort
// the sequence. The registry logs the failure and moves on.
type Optional interface {
	Optional() bool
}

// Runner is implemented by components that own a long-running loop. Run
// blocks until ctx is canceled or the loop fails.
type Runner interface {
	Run(ctx context.Context) error
}

// Description holds summary information for the bootstrap display.
type Description struct {
	// Name is the human-readable display name (e.g., "HTTP Server", "PostgreSQL").
	// If empty, the component's Name() is used.
	Name string
	// Type categorizes the component: "database", "server", "kafka", etc.
	Type string
	// Details is a human-readable one-liner shown in the startup summary.
	Details string
}

// Describable is optionally implemented by Components to provide
// startup summary information for the bootstrap display.
type Describable interface {
	Describe() Description
}

// Route holds a single HTTP route for the startup summary.
type Route struct {
	Method  string
	Path    string
	Handler string
}

// RouteProvider is optionally implemented by server components to
// report registered HTTP routes for the startup summary.
type RouteProvider interface {
	Routes() []Route
}

// IsOptional reports whether c opted out of aborting the sequence.
func IsOptional(c Component) bool {
	o, ok := c.(Optional)
	return ok && o.Optional()
}
