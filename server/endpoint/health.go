package endpoint

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/storefront/component"
)

// HealthChecker returns health status for registered components.
type HealthChecker func(ctx context.Context) []component.Health

// StateFunc reports the service's lifecycle state, e.g. "serving".
type StateFunc func() string

// servingState is the only lifecycle state reported as ready.
const servingState = "serving"

// HealthReport is the /health response body.
type HealthReport struct {
	Status     component.HealthStatus `json:"status"`
	Service    string                 `json:"service"`
	InstanceID string                 `json:"instance_id,omitempty"`
	State      string                 `json:"state,omitempty"`
	Timestamp  string                 `json:"timestamp"`
	Components []component.Health     `json:"components"`
}

// Overall folds component statuses into one: any unhealthy step makes the
// service unhealthy, any degraded one (a skipped crash hook, a lagging
// consumer) makes it degraded.
func Overall(components []component.Health) component.HealthStatus {
	status := component.StatusHealthy
	for _, ch := range components {
		switch ch.Status {
		case component.StatusUnhealthy:
			return component.StatusUnhealthy
		case component.StatusDegraded:
			status = component.StatusDegraded
		}
	}
	return status
}

// Health returns a handler reporting component statuses and, when state is
// set, the lifecycle state. The handler answers 503 when the service is
// unhealthy or not yet serving.
func Health(info ServiceInfo, checker HealthChecker, state StateFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		report := HealthReport{
			Service:    info.Name,
			InstanceID: info.InstanceID,
			Timestamp:  time.Now().UTC().Format(time.RFC3339),
			Components: []component.Health{},
		}
		if checker != nil {
			report.Components = checker(c.Request.Context())
		}
		report.Status = Overall(report.Components)
		if state != nil {
			report.State = state()
			if report.State != servingState {
				report.Status = component.StatusUnhealthy
			}
		}

		code := http.StatusOK
		if report.Status == component.StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, report)
	}
}
