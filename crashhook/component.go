package crashhook

import (
	"context"

	"github.com/kbukum/storefront/component"
	apperrors "github.com/kbukum/storefront/errors"
	"github.com/kbukum/storefront/logger"
)

// Component is the crash-hook startup step. It is optional unless the
// configuration marks it required.
type Component struct {
	hook     *Hook
	required bool
	log      *logger.Logger
}

var (
	_ component.Component = (*Component)(nil)
	_ component.Optional  = (*Component)(nil)
)

// NewComponent wraps hook as a startup step.
func NewComponent(hook *Hook, required bool, log *logger.Logger) *Component {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Component{hook: hook, required: required, log: log.WithComponent("crash-hook")}
}

// Name returns the component name.
func (c *Component) Name() string { return "crash-hook" }

// Optional reports whether a start failure may be skipped.
func (c *Component) Optional() bool { return !c.required }

// Start installs the hook.
func (c *Component) Start(_ context.Context) error {
	if err := c.hook.Install(); err != nil {
		return apperrors.CrashHookFailed(err)
	}
	c.log.Info("Crash diagnostics installed", map[string]interface{}{"path": c.hook.Path()})
	return nil
}

// Stop uninstalls the hook.
func (c *Component) Stop(_ context.Context) error {
	return c.hook.Uninstall()
}

// Health reports degraded when diagnostics are not installed; the service
// still works without them.
func (c *Component) Health(_ context.Context) component.Health {
	if !c.hook.Installed() {
		return component.Health{Name: c.Name(), Status: component.StatusDegraded, Message: "crash diagnostics not installed"}
	}
	return component.Health{Name: c.Name(), Status: component.StatusHealthy}
}

// Describe returns infrastructure summary info for the bootstrap display.
func (c *Component) Describe() component.Description {
	return component.Description{Name: "Crash Hook", Type: "diagnostics", Details: c.hook.Path()}
}
