package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// Config selects what InitTelemetry reports and how much of it.
type Config struct {
	ServiceName string
	Version     string

	// SampleRatio is the fraction of root traces kept, between 0 and 1.
	SampleRatio float64

	// MetricInterval is how often metrics are exported. Default: 10s
	MetricInterval time.Duration
}

// InitTelemetry initializes OpenTelemetry with OTLP exporters for metrics and traces.
// Exporter endpoints and headers are read from the standard OTEL_EXPORTER_OTLP_*
// environment variables.
//
// Returns a shutdown function that should be called on graceful shutdown.
func InitTelemetry(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	if cfg.MetricInterval == 0 {
		cfg.MetricInterval = 10 * time.Second
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.Version),
		),
		resource.WithFromEnv(),
		resource.WithProcess(),
		resource.WithHost(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	traceShutdown, err := initTraceProvider(ctx, res, cfg.SampleRatio)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize trace provider, continuing without tracing")
		traceShutdown = func(ctx context.Context) error { return nil }
	}

	metricShutdown, err := initMeterProvider(ctx, res, cfg.MetricInterval)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize meter provider, continuing without metrics")
		metricShutdown = func(ctx context.Context) error { return nil }
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	log.Info().
		Str("service", cfg.ServiceName).
		Str("version", cfg.Version).
		Float64("sample_ratio", cfg.SampleRatio).
		Msg("OpenTelemetry initialized")

	shutdown := func(ctx context.Context) error {
		return errors.Join(traceShutdown(ctx), metricShutdown(ctx))
	}

	return shutdown, nil
}

func initTraceProvider(ctx context.Context, res *resource.Resource, ratio float64) (func(context.Context) error, error) {
	traceExporter, err := otlptracegrpc.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter,
			sdktrace.WithBatchTimeout(5*time.Second),
			sdktrace.WithMaxExportBatchSize(512),
		),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
	)

	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

func initMeterProvider(ctx context.Context, res *resource.Resource, interval time.Duration) (func(context.Context) error, error) {
	metricExporter, err := otlpmetricgrpc.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(
				metricExporter,
				sdkmetric.WithInterval(interval),
			),
		),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	return mp.Shutdown, nil
}
