package bootstrap

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/storefront/component"
	"github.com/kbukum/storefront/observability"
)

// defaultTracer follows the global provider, including one installed
// after New.
func defaultTracer() trace.Tracer {
	return otel.Tracer(observability.TracerName)
}

// tracedStep runs a component's Start and Stop inside spans.
type tracedStep struct {
	component.Component
	tracer  trace.Tracer
	service string
}

func traced(c component.Component, tracer trace.Tracer, service string) *tracedStep {
	return &tracedStep{Component: c, tracer: tracer, service: service}
}

func (s *tracedStep) Start(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "bootstrap.start "+s.Name(), trace.WithAttributes(
		attribute.String("service.name", s.service),
		attribute.String("bootstrap.step", s.Name()),
		attribute.Bool("bootstrap.optional", component.IsOptional(s.Component)),
	))
	defer span.End()

	if err := s.Component.Start(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

func (s *tracedStep) Stop(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "bootstrap.stop "+s.Name(), trace.WithAttributes(
		attribute.String("bootstrap.step", s.Name()),
	))
	defer span.End()

	if err := s.Component.Stop(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// Optional forwards the wrapped component's marker.
func (s *tracedStep) Optional() bool {
	return component.IsOptional(s.Component)
}

// unwrap returns the component behind a traced step.
func unwrap(c component.Component) component.Component {
	if s, ok := c.(*tracedStep); ok {
		return s.Component
	}
	return c
}
