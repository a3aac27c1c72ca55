package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/storefront/logger"
	"github.com/kbukum/storefront/validation"
)

// TracerName is the instrumentation scope of the startup spans.
const TracerName = "github.com/kbukum/storefront/bootstrap"

// TracerConfig is the tracing: section of the settings file.
type TracerConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// Endpoint is the OTLP HTTP collector host:port.
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure bool   `yaml:"insecure" mapstructure:"insecure"`
	// SampleRate is the fraction of traces kept, 0 to 1.
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate"`
}

// ApplyDefaults sets the local collector endpoint and full sampling.
func (c *TracerConfig) ApplyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4318"
	}
	if c.SampleRate == 0 {
		c.SampleRate = 1.0
	}
}

// Validate checks the sample rate range.
func (c *TracerConfig) Validate() error {
	return validation.New().
		Check(c.SampleRate >= 0 && c.SampleRate <= 1, "sample_rate", "must be between 0 and 1").
		Err()
}

// ServiceIdentity labels every exported span.
type ServiceIdentity struct {
	Name        string
	Version     string
	Environment string
	InstanceID  string
}

// Provider owns the process tracer provider. A disabled Provider hands out
// the global tracer and its Shutdown is a no-op.
type Provider struct {
	tp *sdktrace.TracerProvider
}

// Setup builds an OTLP/HTTP exporting provider and installs it as the
// global tracer provider. With tracing disabled nothing is installed.
func Setup(ctx context.Context, cfg TracerConfig, id ServiceIdentity, log *logger.Logger) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{}, nil
	}
	cfg.ApplyDefaults()

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating trace exporter: %w", err)
	}

	res, err := newResource(id)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	p := newProvider(sdktrace.NewBatchSpanProcessor(exporter), res, cfg.SampleRate)
	otel.SetTracerProvider(p.tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if log != nil {
		log.Info("Tracer initialized", map[string]interface{}{
			"endpoint":    cfg.Endpoint,
			"sample_rate": cfg.SampleRate,
		})
	}
	return p, nil
}

func newProvider(processor sdktrace.SpanProcessor, res *resource.Resource, sampleRate float64) *Provider {
	return &Provider{tp: sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(processor),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(sampleRate)),
	)}
}

func sampler(rate float64) sdktrace.Sampler {
	switch {
	case rate >= 1.0:
		return sdktrace.AlwaysSample()
	case rate <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(rate)
	}
}

// newResource merges the SDK defaults with the service labels. The labels
// carry no schema URL so the merge never conflicts with the SDK's.
func newResource(id ServiceIdentity) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(id.Name),
		semconv.ServiceVersion(id.Version),
		semconv.DeploymentEnvironment(id.Environment),
	}
	if id.InstanceID != "" {
		attrs = append(attrs, semconv.ServiceInstanceID(id.InstanceID))
	}
	return resource.Merge(resource.Default(), resource.NewSchemaless(attrs...))
}

// Enabled reports whether spans are exported.
func (p *Provider) Enabled() bool { return p != nil && p.tp != nil }

// Tracer returns the startup tracer.
func (p *Provider) Tracer() trace.Tracer {
	if !p.Enabled() {
		return otel.Tracer(TracerName)
	}
	return p.tp.Tracer(TracerName)
}

// Shutdown flushes queued spans and stops the exporter.
func (p *Provider) Shutdown(ctx context.Context) error {
	if !p.Enabled() {
		return nil
	}
	return p.tp.Shutdown(ctx)
}
