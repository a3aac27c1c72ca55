package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/kbukum/storefront/logger"
)

// DB is the pool opened by the datastore step.
type DB struct {
	GormDB *gorm.DB
	sqlDB  *sql.DB
	log    *logger.Logger

	mu     sync.Mutex
	closed bool
}

// Open connects through dialector, pings once and sizes the pool.
// There are no retries: an unreachable datastore fails startup immediately.
func Open(ctx context.Context, dialector gorm.Dialector, cfg Config, log *logger.Logger) (*DB, error) {
	cfg.ApplyDefaults()

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:               newQueryLogger(log, cfg),
		DisableAutomaticPing: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.connectTimeout())
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	if d, err := time.ParseDuration(cfg.ConnMaxLifetime); err == nil {
		sqlDB.SetConnMaxLifetime(d)
	}
	if d, err := time.ParseDuration(cfg.ConnMaxIdleTime); err == nil {
		sqlDB.SetConnMaxIdleTime(d)
	}

	log.Info("Database connection established", map[string]interface{}{
		"max_open_conns": cfg.MaxOpenConns,
		"max_idle_conns": cfg.MaxIdleConns,
	})
	return &DB{GormDB: db, sqlDB: sqlDB, log: log}, nil
}

// Close closes the pool. Safe to call more than once.
func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	d.log.Info("Closing database connection")
	return d.sqlDB.Close()
}

// Check pings the datastore and returns the pool statistics.
func (d *DB) Check(ctx context.Context) (sql.DBStats, error) {
	if err := d.sqlDB.PingContext(ctx); err != nil {
		return sql.DBStats{}, err
	}
	return d.sqlDB.Stats(), nil
}
