// Package observability installs the OpenTelemetry tracer provider that
// receives the bootstrap sequencer's step spans.
//
// Tracing is off unless the settings file enables it:
//
//	tracing:
//	  enabled: true
//	  endpoint: otel-collector:4318
//	  insecure: true
//	  sample_rate: 0.25
//
// Setup exports over OTLP/HTTP in batches; Shutdown flushes what is queued.
package observability
