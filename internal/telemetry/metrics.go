package telemetry

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	meterName  = "github.com/wolfeidau/linkstash"
	tracerName = "github.com/wolfeidau/linkstash"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Login metrics
	LoginsStartedTotal   metric.Int64Counter
	LoginsTotal          metric.Int64Counter
	LoginFailuresTotal   metric.Int64Counter
	ProviderExchangeTime metric.Float64Histogram
	LogoutsTotal         metric.Int64Counter

	// Credential verification
	AuthRejectsTotal metric.Int64Counter

	// API keys
	APIKeysCreatedTotal metric.Int64Counter
	APIKeysRevokedTotal metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

// initMetrics creates and registers all metric instruments
func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	m.LoginsStartedTotal, _ = meter.Int64Counter(
		"linkstash.logins.started.total",
		metric.WithDescription("Total number of authorization redirects issued"),
		metric.WithUnit("{login}"),
	)

	m.LoginsTotal, _ = meter.Int64Counter(
		"linkstash.logins.total",
		metric.WithDescription("Total number of sessions created by a completed login"),
		metric.WithUnit("{session}"),
	)

	m.LoginFailuresTotal, _ = meter.Int64Counter(
		"linkstash.logins.failures.total",
		metric.WithDescription("Total number of failed login callbacks by reason"),
		metric.WithUnit("{error}"),
	)

	m.ProviderExchangeTime, _ = meter.Float64Histogram(
		"linkstash.provider.exchange.duration",
		metric.WithDescription("Duration of the identity provider round-trip during login"),
		metric.WithUnit("ms"),
	)

	m.LogoutsTotal, _ = meter.Int64Counter(
		"linkstash.logouts.total",
		metric.WithDescription("Total number of sessions removed by logout"),
		metric.WithUnit("{session}"),
	)

	m.AuthRejectsTotal, _ = meter.Int64Counter(
		"linkstash.auth.rejects.total",
		metric.WithDescription("Total number of requests rejected by credential verification"),
		metric.WithUnit("{request}"),
	)

	m.APIKeysCreatedTotal, _ = meter.Int64Counter(
		"linkstash.apikeys.created.total",
		metric.WithDescription("Total number of API keys issued"),
		metric.WithUnit("{key}"),
	)

	m.APIKeysRevokedTotal, _ = meter.Int64Counter(
		"linkstash.apikeys.revoked.total",
		metric.WithDescription("Total number of API keys revoked"),
		metric.WithUnit("{key}"),
	)

	return m
}

// SessionCounter reports the number of live sessions.
type SessionCounter interface {
	Len() int
}

// RegisterSessionGauge publishes the live session count as an observable gauge.
func RegisterSessionGauge(sessions SessionCounter) error {
	meter := otel.GetMeterProvider().Meter(meterName)

	_, err := meter.Int64ObservableGauge(
		"linkstash.sessions.active",
		metric.WithDescription("Number of sessions held in the session table"),
		metric.WithUnit("{session}"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(sessions.Len()))
			return nil
		}),
	)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to register session gauge")
	}
	return err
}

// Tracer returns the service tracer.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}
