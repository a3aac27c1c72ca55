package migration

import (
	"context"
	"fmt"
	"io/fs"

	"github.com/kbukum/storefront/component"
	apperrors "github.com/kbukum/storefront/errors"
	"github.com/kbukum/storefront/logger"
)

// Component is the migration step. Each run opens its own handle and
// closes it, so Stop is a no-op.
type Component struct {
	open    Opener
	fsys    fs.FS
	path    string
	driver  DriverFunc
	log     *logger.Logger
	version uint
	applied bool
}

// NewComponent creates a migration step applying the files under path in fsys.
func NewComponent(open Opener, fsys fs.FS, path string, log *logger.Logger) *Component {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Component{
		open:   open,
		fsys:   fsys,
		path:   path,
		driver: Postgres,
		log:    log.WithComponent("migrations"),
	}
}

// WithDriver replaces the migrate database driver.
func (c *Component) WithDriver(fn DriverFunc) *Component {
	c.driver = fn
	return c
}

var _ component.Component = (*Component)(nil)

// Name returns the component name.
func (c *Component) Name() string { return "migrations" }

// Start applies every pending migration.
func (c *Component) Start(_ context.Context) error {
	db, err := c.open()
	if err != nil {
		return apperrors.MigrationFailed(err)
	}
	version, err := Apply(db, c.fsys, c.path, c.driver)
	if err != nil {
		return apperrors.MigrationFailed(err)
	}
	c.version = version
	c.applied = true
	c.log.Info("Migrations applied", map[string]interface{}{"version": version})
	return nil
}

// Stop is a no-op.
func (c *Component) Stop(_ context.Context) error { return nil }

// Version returns the schema version reached by Start.
func (c *Component) Version() uint { return c.version }

// Health reports whether migrations were applied.
func (c *Component) Health(_ context.Context) component.Health {
	if !c.applied {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: "migrations not applied"}
	}
	return component.Health{Name: c.Name(), Status: component.StatusHealthy}
}

// Describe returns infrastructure summary info for the bootstrap display.
func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    "Migrations",
		Type:    "migration",
		Details: fmt.Sprintf("source=%s version=%d", c.path, c.version),
	}
}
