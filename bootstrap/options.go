package bootstrap

import (
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/storefront/database"
	"github.com/kbukum/storefront/database/migration"
	"github.com/kbukum/storefront/kafka/consumer"
	"github.com/kbukum/storefront/logger"
)

// Option configures the App during creation.
type Option func(*appOptions)

type appOptions struct {
	logger          *logger.Logger
	gracefulTimeout *time.Duration
	tracer          trace.Tracer
	summaryOut      io.Writer
	signals         []os.Signal

	dialector       database.DialectorFunc
	migrationDriver migration.DriverFunc
	kafkaDial       consumer.DialFunc
	kafkaReader     consumer.ReaderFunc
	handler         consumer.MessageHandler
}

func resolveOptions(opts []Option) *appOptions {
	o := &appOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets the application logger. Defaults to the global logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *appOptions) {
		o.logger = l
	}
}

// WithGracefulTimeout overrides the settings' shutdown timeout.
func WithGracefulTimeout(d time.Duration) Option {
	return func(o *appOptions) {
		o.gracefulTimeout = &d
	}
}

// WithTracer sets the tracer used for step spans. Defaults to the global
// OpenTelemetry provider.
func WithTracer(t trace.Tracer) Option {
	return func(o *appOptions) {
		o.tracer = t
	}
}

// WithSummaryWriter sets where the startup summary is printed.
func WithSummaryWriter(w io.Writer) Option {
	return func(o *appOptions) {
		o.summaryOut = w
	}
}

// WithSignals replaces the signals that trigger shutdown
// (SIGINT and SIGTERM by default).
func WithSignals(sigs ...os.Signal) Option {
	return func(o *appOptions) {
		o.signals = sigs
	}
}

// WithDialector replaces the datastore driver.
func WithDialector(fn database.DialectorFunc) Option {
	return func(o *appOptions) {
		o.dialector = fn
	}
}

// WithMigrationDriver replaces the migrate database driver.
func WithMigrationDriver(fn migration.DriverFunc) Option {
	return func(o *appOptions) {
		o.migrationDriver = fn
	}
}

// WithKafkaDialer replaces how brokers are dialed.
func WithKafkaDialer(fn consumer.DialFunc) Option {
	return func(o *appOptions) {
		o.kafkaDial = fn
	}
}

// WithKafkaReader replaces how the group reader is built.
func WithKafkaReader(fn consumer.ReaderFunc) Option {
	return func(o *appOptions) {
		o.kafkaReader = fn
	}
}

// WithMessageHandler replaces the drain loop's handler, which logs each
// message by default.
func WithMessageHandler(h consumer.MessageHandler) Option {
	return func(o *appOptions) {
		o.handler = h
	}
}
