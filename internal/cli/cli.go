// Package cli is the shared entrypoint of the storefront services: flag
// parsing, configuration resolution, logging and tracing setup and the exit
// status.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/kbukum/storefront/bootstrap"
	"github.com/kbukum/storefront/config"
	apperrors "github.com/kbukum/storefront/errors"
	"github.com/kbukum/storefront/logger"
	"github.com/kbukum/storefront/observability"
	"github.com/kbukum/storefront/version"
)

// tracerFlushTimeout bounds the final span export on exit.
const tracerFlushTimeout = 5 * time.Second

// Exit statuses.
const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

// Flags are the command-line options shared by every service.
type Flags struct {
	EnvFile     string
	ConfigFile  string
	ShowVersion bool
}

// ParseFlags parses args for the named service.
func ParseFlags(service string, args []string, stderr io.Writer) (Flags, error) {
	var f Flags
	app := kingpin.New(service, fmt.Sprintf("Storefront %s service", service))
	app.UsageWriter(stderr)
	app.ErrorWriter(stderr)
	app.Flag("env-file", "Fallback key=value file read when required keys are missing from the environment").
		Envar("STOREFRONT_ENV_FILE").StringVar(&f.EnvFile)
	app.Flag("config", "YAML settings file (default: searched next to the binary)").
		Short('c').StringVar(&f.ConfigFile)
	app.Flag("version", "Print the build version and exit").BoolVar(&f.ShowVersion)

	if _, err := app.Parse(args); err != nil {
		return Flags{}, err
	}
	return f, nil
}

// Main runs variant until it stops and returns the process exit status.
func Main(ctx context.Context, variant bootstrap.Variant, args []string) int {
	flags, err := ParseFlags(variant.Name, args, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", variant.Name, err)
		return ExitUsage
	}
	if flags.ShowVersion {
		fmt.Fprintf(os.Stdout, "%s %s\n", variant.Name, version.Get())
		return ExitOK
	}

	svc, err := Prepare(ctx, variant, flags)
	log := svc.Log
	if log == nil {
		log = logger.NewDefault(variant.Name)
	}
	defer svc.Close(log)

	if err == nil {
		err = svc.App.Run(ctx)
	}
	if err != nil {
		log.Error("Service terminated", FailureFields(err))
		return ExitError
	}
	return ExitOK
}

// Service is a built application together with the process-wide logger
// and tracer provider it was configured with.
type Service struct {
	App     *bootstrap.App
	Log     *logger.Logger
	Tracing *observability.Provider
}

// Close flushes queued spans. It is safe on a partially prepared Service.
func (s *Service) Close(log *logger.Logger) {
	if s.Tracing == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), tracerFlushTimeout)
	defer cancel()
	if err := s.Tracing.Shutdown(ctx); err != nil {
		log.Warn("Tracer shutdown failed", map[string]interface{}{logger.FieldError: err.Error()})
	}
}

// Prepare resolves the required keys, loads settings, initializes the
// global logger and tracer provider and builds the application. The
// returned Service is never nil; its Log is nil when the failure happened
// before settings were loaded.
func Prepare(ctx context.Context, variant bootstrap.Variant, flags Flags) (*Service, error) {
	svc := &Service{}
	resolveOpts := []config.ResolveOption{config.WithServiceName(variant.Name)}
	if flags.EnvFile != "" {
		resolveOpts = append(resolveOpts, config.WithEnvFile(flags.EnvFile))
	}
	resolved, err := config.Resolve(variant.Keys(), resolveOpts...)
	if err != nil {
		return svc, err
	}

	var settings bootstrap.Settings
	var settingsOpts []config.SettingsOption
	if flags.ConfigFile != "" {
		settingsOpts = append(settingsOpts, config.WithConfigFile(flags.ConfigFile))
	}
	if err := config.LoadSettings(variant.Name, &settings, settingsOpts...); err != nil {
		return svc, err
	}
	svc.Log = logger.Init(settings.Logging, settings.Name)

	app, err := bootstrap.New(variant, resolved, &settings, bootstrap.WithLogger(svc.Log))
	if err != nil {
		return svc, err
	}
	svc.App = app

	svc.Tracing, err = observability.Setup(ctx, app.Settings.Tracing, observability.ServiceIdentity{
		Name:        app.Name,
		Version:     app.Version,
		Environment: app.Settings.Environment,
		InstanceID:  app.Summary.InstanceID(),
	}, svc.Log)
	// The app's step tracer comes from the global provider, which now
	// delegates to the installed one.
	return svc, err
}

// FailureFields describes err for the final log line: its code, its kind
// and, for missing configuration, every missing key.
func FailureFields(err error) map[string]interface{} {
	fields := map[string]interface{}{logger.FieldError: err.Error()}
	appErr, ok := apperrors.AsError(err)
	if !ok {
		return fields
	}
	fields[logger.FieldCode] = string(appErr.Code)
	fields["kind"] = string(appErr.Kind())
	for k, v := range appErr.Details {
		fields[k] = v
	}
	return fields
}
