package database

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/kbukum/storefront/component"
	apperrors "github.com/kbukum/storefront/errors"
	"github.com/kbukum/storefront/logger"
	"github.com/kbukum/storefront/util"
)

// DialectorFunc builds a GORM dialector from a connection string.
type DialectorFunc func(dsn string) gorm.Dialector

// Component wraps DB and implements component.Component for lifecycle management.
type Component struct {
	db        *DB
	cfg       Config
	log       *logger.Logger
	dialector DialectorFunc
}

// NewComponent creates the datastore step. PostgreSQL is the default driver.
func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Component{
		cfg:       cfg,
		log:       log.WithComponent("database"),
		dialector: func(dsn string) gorm.Dialector { return postgres.Open(dsn) },
	}
}

// WithDialector replaces the driver used to open the pool.
func (c *Component) WithDialector(fn DialectorFunc) *Component {
	c.dialector = fn
	return c
}

// DB returns the underlying *DB, or nil if not started.
func (c *Component) DB() *DB {
	return c.db
}

var _ component.Component = (*Component)(nil)

// Name returns the component name.
func (c *Component) Name() string { return "database" }

// Start opens the pool and pings the datastore once.
func (c *Component) Start(ctx context.Context) error {
	db, err := Open(ctx, c.dialector(c.cfg.DSN), c.cfg, c.log)
	if err != nil {
		return apperrors.DatastoreUnavailable(err)
	}
	c.db = db
	return nil
}

// Stop closes the pool.
func (c *Component) Stop(_ context.Context) error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Health returns the current health status of the database.
func (c *Component) Health(ctx context.Context) component.Health {
	if c.db == nil {
		return component.Health{
			Name:    c.Name(),
			Status:  component.StatusUnhealthy,
			Message: "database not initialized",
		}
	}

	stats, err := c.db.Check(ctx)
	if err != nil {
		return component.Health{
			Name:    c.Name(),
			Status:  component.StatusUnhealthy,
			Message: fmt.Sprintf("ping failed: %s", err),
		}
	}
	return component.Health{
		Name:    c.Name(),
		Status:  component.StatusHealthy,
		Message: fmt.Sprintf("open=%d in_use=%d idle=%d", stats.OpenConnections, stats.InUse, stats.Idle),
	}
}

// Describe returns infrastructure summary info for the bootstrap display.
func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    "PostgreSQL",
		Type:    "database",
		Details: strings.TrimSpace(fmt.Sprintf("%s pool=%d/%d", util.RedactDSN(c.cfg.DSN), c.cfg.MaxOpenConns, c.cfg.MaxIdleConns)),
	}
}
