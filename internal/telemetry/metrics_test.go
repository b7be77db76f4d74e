package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type fixedCounter int

func (c fixedCounter) Len() int { return int(c) }

func TestGetMetrics_Singleton(t *testing.T) {
	m := GetMetrics()
	require.NotNil(t, m)
	require.Same(t, m, GetMetrics())
	require.NotNil(t, m.AuthRejectsTotal)
	require.NotNil(t, m.LoginsTotal)
}

func TestRegisterSessionGauge(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	prev := otel.GetMeterProvider()
	otel.SetMeterProvider(provider)
	t.Cleanup(func() { otel.SetMeterProvider(prev) })

	require.NoError(t, RegisterSessionGauge(fixedCounter(7)))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var found bool
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "linkstash.sessions.active" {
				continue
			}
			gauge, ok := m.Data.(metricdata.Gauge[int64])
			require.True(t, ok)
			require.Len(t, gauge.DataPoints, 1)
			require.Equal(t, int64(7), gauge.DataPoints[0].Value)
			found = true
		}
	}
	require.True(t, found)
}
