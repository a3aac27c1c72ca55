package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/kbukum/storefront/component"
	"github.com/kbukum/storefront/config"
	"github.com/kbukum/storefront/crashhook"
	"github.com/kbukum/storefront/database"
	"github.com/kbukum/storefront/database/migration"
	apperrors "github.com/kbukum/storefront/errors"
	"github.com/kbukum/storefront/kafka"
	"github.com/kbukum/storefront/kafka/consumer"
	"github.com/kbukum/storefront/logger"
	"github.com/kbukum/storefront/server"
	"github.com/kbukum/storefront/server/endpoint"
)

// App is one service instance: its ordered startup steps, its serve loops
// and the state of the sequence.
type App struct {
	Name       string
	Version    string
	Variant    Variant
	Settings   Settings
	Components *component.Registry
	Logger     *logger.Logger
	Summary    *Summary

	gracefulTimeout time.Duration
	tracer          trace.Tracer
	signals         []os.Signal

	server   *server.Server
	consumer *consumer.Consumer
	crash    *crashhook.Hook
	runners  []component.Runner

	onStart []Hook
	onStop  []Hook

	stopOnce sync.Once
	stopErr  error

	mu      sync.Mutex
	state   State
	history []State
	failure error
}

// New builds the step list for variant from its capabilities. resolved
// must hold every key the variant requires; settings may be nil, in which
// case defaults are used.
//
// Nothing is connected or bound until Run.
func New(variant Variant, resolved *config.Resolved, settings *Settings, opts ...Option) (*App, error) {
	if err := variant.Validate(); err != nil {
		return nil, err
	}
	if resolved == nil {
		return nil, apperrors.MissingRequiredKeys(variant.Keys().Strings())
	}
	var missing []string
	for _, key := range variant.Keys() {
		if _, ok := resolved.Lookup(key); !ok {
			missing = append(missing, string(key))
		}
	}
	if len(missing) > 0 {
		return nil, apperrors.MissingRequiredKeys(missing)
	}

	var s Settings
	if settings != nil {
		s = *settings
	}
	if s.Name == "" {
		s.Name = variant.Name
	}
	s.ApplyDefaults()
	if err := s.Validate(); err != nil {
		return nil, apperrors.InvalidSettings(err.Error(), err)
	}

	// Addresses come only from the resolved keys.
	s.Server.Addr = resolved.Get(variant.ServerKey)
	if variant.Capabilities.Has(Datastore) {
		s.Database.DSN = resolved.Get(variant.DatabaseKey)
	}
	if variant.Capabilities.Has(Broker) {
		s.Kafka.GroupID = resolved.Get(variant.GroupKey)
		s.Kafka.Brokers = kafka.ParseBrokers(resolved.Get(variant.BrokerKey))
		s.Kafka.Topic = kafka.DefaultTopic
		s.Kafka.SessionTimeout = kafka.DefaultSessionTimeout
	}

	o := resolveOptions(opts)
	log := o.logger
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	app := &App{
		Name:            s.Name,
		Version:         s.Version,
		Variant:         variant,
		Settings:        s,
		Components:      component.NewRegistry(log),
		Logger:          log,
		Summary:         NewSummary(s.Name, s.Version),
		gracefulTimeout: s.shutdownTimeout(),
		tracer:          o.tracer,
		signals:         o.signals,
		state:           Configured,
		history:         []State{Unconfigured, Configured},
	}
	if o.gracefulTimeout != nil {
		app.gracefulTimeout = *o.gracefulTimeout
	}
	if app.tracer == nil {
		app.tracer = defaultTracer()
	}
	if len(app.signals) == 0 {
		app.signals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}
	}
	if o.summaryOut != nil {
		app.Summary.SetOutput(o.summaryOut)
	}

	if err := app.buildSteps(o); err != nil {
		return nil, err
	}
	app.Components.OnStarted(app.stepStarted)

	log.Info("Service configured", map[string]interface{}{
		logger.FieldService:  app.Name,
		logger.FieldInstance: app.Summary.InstanceID(),
		"capabilities":       variant.Capabilities.String(),
		"keys":               resolved.Redacted(),
	})
	return app, nil
}

// buildSteps registers the steps in canonical order.
func (a *App) buildSteps(o *appOptions) error {
	v := a.Variant
	var steps []component.Component

	if v.Capabilities.Has(Datastore) {
		db := database.NewComponent(a.Settings.Database, a.Logger)
		if o.dialector != nil {
			db.WithDialector(o.dialector)
		}
		mig := migration.NewComponent(migration.DSN(a.Settings.Database.DSN), v.Migrations, v.migrationsPath(), a.Logger)
		if o.migrationDriver != nil {
			mig.WithDriver(o.migrationDriver)
		}
		steps = append(steps, db, mig)
	}

	a.crash = crashhook.New(a.Name, a.Settings.Crash)
	steps = append(steps, crashhook.NewComponent(a.crash, a.Settings.Crash.Required, a.Logger))

	if v.Capabilities.Has(Broker) {
		c, err := consumer.NewConsumer(a.Settings.Kafka, a.Logger)
		if err != nil {
			return apperrors.InvalidSettings(err.Error(), err)
		}
		if o.kafkaDial != nil {
			c.WithDialFunc(o.kafkaDial)
		}
		if o.kafkaReader != nil {
			c.WithReaderFunc(o.kafkaReader)
		}
		if o.handler != nil {
			c.WithHandler(o.handler)
		}
		a.consumer = c
		steps = append(steps, c)
		if v.Capabilities.Has(ConsumeMessages) {
			a.runners = append(a.runners, c)
		}
	}

	a.server = server.New(a.Settings.Server, a.Logger)
	a.server.ApplyDefaults(endpoint.ServiceInfo{
		Name:        a.Name,
		Version:     a.Version,
		Environment: a.Settings.Environment,
		InstanceID:  a.Summary.InstanceID(),
	}, a.Components.HealthAll, func() string { return a.State().String() })
	if v.Router != nil {
		v.Router(a.Name, a.Version)(a.server.GinEngine())
	}
	httpStep := server.NewComponent(a.server)
	steps = append(steps, httpStep)
	a.runners = append(a.runners, httpStep)

	for _, step := range steps {
		if err := a.Components.Register(traced(step, a.tracer, a.Name)); err != nil {
			return err
		}
	}
	return nil
}

// stepStarted advances the state for a step that came up.
func (a *App) stepStarted(c component.Component) {
	if next, ok := stepStates[c.Name()]; ok {
		a.advance(next)
	}
}

// Server returns the HTTP server.
func (a *App) Server() *server.Server { return a.server }

// Run executes the startup sequence and then serves until ctx is canceled,
// a shutdown signal arrives or a serve loop fails. Startup failures stop
// the steps already started, leave the App in Failed and are returned
// unchanged.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, a.signals...)
	defer stop()

	if err := a.Start(ctx); err != nil {
		return err
	}
	return a.serve(ctx)
}

// Start runs the startup steps and OnStart hooks without serving. Use
// Run unless the serve loops are managed elsewhere.
func (a *App) Start(ctx context.Context) error {
	begin := time.Now()
	ctx, span := a.tracer.Start(ctx, "bootstrap.startup")
	defer span.End()

	a.Logger.Info("Starting service", map[string]interface{}{
		logger.FieldService:  a.Name,
		"version":            a.Version,
		logger.FieldInstance: a.Summary.InstanceID(),
	})

	if err := a.Components.StartAll(ctx); err != nil {
		return a.abort(err)
	}
	if err := runHooks(ctx, a.onStart); err != nil {
		return a.abort(fmt.Errorf("onStart hook failed: %w", err))
	}

	for _, c := range a.Components.All() {
		if a.Components.Started(c.Name()) {
			a.Summary.TrackStep(c.Name(), "started", true)
		} else {
			a.Summary.TrackStep(c.Name(), "skipped", false)
		}
	}
	if a.consumer != nil && a.Components.Started(a.consumer.Name()) {
		a.Summary.TrackConsumer(a.consumer.Name(), a.consumer.GroupID(), a.consumer.Topic())
	}
	a.Summary.CollectFromRegistry(a.Components)
	a.Summary.SetStartupDuration(time.Since(begin))
	a.Summary.Display(a.Components)
	return nil
}

// abort records a startup failure and stops whatever already started.
func (a *App) abort(err error) error {
	a.fail(err)
	fields := map[string]interface{}{logger.FieldState: a.State().String()}
	if code := apperrors.CodeOf(err); code != "" {
		fields[logger.FieldCode] = string(code)
	}
	a.Logger.Error("Startup failed", logger.MergeWithError(fields, err))

	if stopErr := a.stop(); stopErr != nil {
		a.Logger.Warn("Cleanup after failed startup reported errors", map[string]interface{}{
			logger.FieldError: stopErr.Error(),
		})
	}
	return err
}

// serve runs the long-running loops under one cancellation context. The
// first loop to fail cancels the others; shutdown then drains the HTTP
// server and stops every step in reverse order.
func (a *App) serve(ctx context.Context) error {
	if !a.advance(Serving) {
		return fmt.Errorf("cannot serve from state %s", a.State())
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, r := range a.runners {
		name := r.(component.Component).Name()
		g.Go(func() error {
			defer a.crash.Guard(name)
			err := r.Run(gctx)
			if err != nil {
				a.fail(err)
			}
			return err
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		if cause := context.Cause(gctx); cause != nil && !errors.Is(cause, context.Canceled) {
			a.Logger.Warn("Serve loop ended", map[string]interface{}{logger.FieldError: cause.Error()})
		}
		a.Logger.Info("Shutdown requested", map[string]interface{}{
			"timeout": a.gracefulTimeout.String(),
		})
		return a.stop()
	})

	err := g.Wait()
	a.Logger.Info("Service stopped", map[string]interface{}{logger.FieldService: a.Name})
	return err
}

// Shutdown runs OnStop hooks and stops every started step in reverse
// order. It is safe to call more than once.
func (a *App) Shutdown() error {
	return a.stop()
}

func (a *App) stop() error {
	a.stopOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
		defer cancel()

		var errs []error
		if err := runHooks(ctx, a.onStop); err != nil {
			a.Logger.Error("OnStop hook error", map[string]interface{}{logger.FieldError: err.Error()})
			errs = append(errs, err)
		}
		if err := a.Components.StopAll(ctx); err != nil {
			a.Logger.Error("Shutdown completed with errors", map[string]interface{}{logger.FieldError: err.Error()})
			errs = append(errs, err)
		}
		a.stopErr = errors.Join(errs...)
	})
	return a.stopErr
}
