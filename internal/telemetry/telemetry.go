package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const shutdownTimeout = 5 * time.Second

// Tracing registers an OTLP/HTTP tracer provider. It is opt-in: with no endpoint
// nothing is registered and every span is a no-op.
type Tracing struct {
	service  string
	endpoint string

	shutdown func(context.Context) error
}

func NewTracing(service, endpoint string) *Tracing {
	return &Tracing{
		service:  service,
		endpoint: endpoint,
		shutdown: func(context.Context) error { return nil },
	}
}

// Enabled reports whether spans are exported.
func (t *Tracing) Enabled() bool {
	return t.endpoint != ""
}

// Setup installs the global tracer provider when an endpoint is configured.
func (t *Tracing) Setup(ctx context.Context) error {
	if !t.Enabled() {
		return nil
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(t.endpoint))
	if err != nil {
		return fmt.Errorf("creating trace exporter: %w", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(t.service)))
	if err != nil {
		return fmt.Errorf("creating trace resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.shutdown = tp.Shutdown

	slog.InfoContext(ctx, "tracing enabled", "endpoint", t.endpoint)
	return nil
}

// Start waits for ctx to be canceled and then flushes pending spans.
func (t *Tracing) Start(ctx context.Context) error {
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := t.shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("flushing spans: %w", err)
	}
	return nil
}
