package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func metricsConfig(enabled bool) telemetry.MetricsConfig {
	return telemetry.MetricsConfig{
		Enabled:           enabled,
		CollectorEndpoint: "localhost:14317",
		ExportInterval:    60 * time.Second,
		ServiceName:       "charging-backend",
		Insecure:          true,
	}
}

// disabledMeterProvider builds a provider with Enabled=false. Instruments
// created from it are no-ops, which lets the instrument wrappers run
// without a collector.
func disabledMeterProvider(t *testing.T) *telemetry.MeterProvider {
	t.Helper()

	mp, err := telemetry.NewMeterProvider(context.Background(), metricsConfig(false), zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NotNil(t, mp)
	return mp
}

func TestNewMeterProvider_Disabled(t *testing.T) {
	ctx := context.Background()
	mp := disabledMeterProvider(t)

	assert.False(t, mp.IsEnabled())
	assert.Equal(t, "charging-backend", mp.GetConfig().ServiceName)
	assert.NotNil(t, mp.Meter("charging"))

	assert.NoError(t, mp.ForceFlush(ctx))

	// Shutdown of a disabled provider ignores context cancellation
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.NoError(t, mp.Shutdown(cancelled))
}

// Needs a reachable OTLP collector
func TestNewMeterProvider_Collector(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	ctx := context.Background()

	t.Run("enabled", func(t *testing.T) {
		cfg := metricsConfig(true)
		cfg.ExportInterval = time.Second

		mp, err := telemetry.NewMeterProvider(ctx, cfg, zaptest.NewLogger(t))
		require.NoError(t, err)
		require.NotNil(t, mp)

		assert.True(t, mp.IsEnabled())
		require.NotNil(t, mp.Meter("charging"))

		assert.NoError(t, mp.ForceFlush(ctx))
		assert.NoError(t, mp.Shutdown(ctx))
	})

	t.Run("zero export interval falls back to the 60s default", func(t *testing.T) {
		cfg := metricsConfig(true)
		cfg.ExportInterval = 0

		mp, err := telemetry.NewMeterProvider(ctx, cfg, zaptest.NewLogger(t))
		require.NoError(t, err)
		require.NotNil(t, mp)
		_ = mp.Shutdown(ctx)
	})

	t.Run("invalid endpoint", func(t *testing.T) {
		cfg := metricsConfig(true)
		cfg.CollectorEndpoint = "invalid-host:99999"
		cfg.ExportInterval = time.Second
		cfg.Insecure = false

		logger := zaptest.NewLogger(t, zaptest.Level(zap.ErrorLevel))
		timed, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
		defer cancel()

		mp, err := telemetry.NewMeterProvider(timed, cfg, logger)
		if err != nil {
			t.Logf("connection error: %v", err)
			return
		}
		_ = mp.Shutdown(ctx)
	})
}

func TestCounter(t *testing.T) {
	ctx := context.Background()
	meter := disabledMeterProvider(t).Meter("charging")

	counter, err := telemetry.NewCounter(meter, "charge_total", "Resolved charges", "{charge}")
	require.NoError(t, err)
	require.NotNil(t, counter)

	counter.Add(ctx, 5, telemetry.AttrConcept.String("initial"))
	counter.Add(ctx, 10, telemetry.AttrConcept.String("recurring"))
	counter.Inc(ctx)
	counter.Inc(ctx, telemetry.AttrChargeOutcome.String("error"))
}

func TestHistogram(t *testing.T) {
	ctx := context.Background()
	meter := disabledMeterProvider(t).Meter("charging")

	boundaries := map[string][]float64{
		"http buckets":        telemetry.HTTPDurationBuckets,
		"db buckets":          telemetry.DBDurationBuckets,
		"custom buckets":      {0.1, 0.5, 1.0, 5.0, 10.0},
		"sdk default buckets": nil,
	}
	for name, bounds := range boundaries {
		t.Run(name, func(t *testing.T) {
			histogram, err := telemetry.NewHistogram(meter, telemetry.HistogramOpts{
				Name:        "charge_duration_seconds",
				Description: "Charge resolution duration",
				Unit:        "s",
				Boundaries:  bounds,
			})
			require.NoError(t, err)
			require.NotNil(t, histogram)

			histogram.Record(ctx, 0.005)
			histogram.Record(ctx, 0.25, telemetry.AttrPaymentGateway.String("fastpay"))
			histogram.RecordDuration(ctx, 100*time.Millisecond, telemetry.AttrConcept.String("usage"))
		})
	}
}

func TestGauges(t *testing.T) {
	ctx := context.Background()
	meter := disabledMeterProvider(t).Meter("charging")

	gauge, err := telemetry.NewGauge(meter, "pending_orders", "Orders awaiting payment", "{order}")
	require.NoError(t, err)
	require.NotNil(t, gauge)

	gauge.Record(ctx, 10)
	gauge.Record(ctx, 15, attribute.String("state", "pending"))

	floatGauge, err := telemetry.NewFloatGauge(meter, "revenue_share_ratio", "Provider revenue share", "1")
	require.NoError(t, err)
	require.NotNil(t, floatGauge)

	floatGauge.Record(ctx, 0.7)
	floatGauge.Record(ctx, 0.3, attribute.String("party", "marketplace"))
}

func TestCommonAttributes(t *testing.T) {
	keys := map[string]attribute.Key{
		"customer_id":      telemetry.AttrCustomerID,
		"order_id":         telemetry.AttrOrderID,
		"http.method":      telemetry.AttrHTTPMethod,
		"http.status_code": telemetry.AttrHTTPStatusCode,
		"http.route":       telemetry.AttrHTTPRoute,
		"db.operation":     telemetry.AttrDBOperation,
		"db.table":         telemetry.AttrDBTable,
		"db.pool.state":    telemetry.AttrDBState,
		"concept":          telemetry.AttrConcept,
		"payment_gateway":  telemetry.AttrPaymentGateway,
		"charge_outcome":   telemetry.AttrChargeOutcome,
		"currency":         telemetry.AttrCurrency,
		"product_id":       telemetry.AttrProductID,
	}
	for want, key := range keys {
		assert.Equal(t, want, string(key))
	}
}

func TestDefaultBuckets(t *testing.T) {
	assert.Equal(t, []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}, telemetry.HTTPDurationBuckets)
	assert.Equal(t, []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}, telemetry.DBDurationBuckets)
	assert.Equal(t, []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1}, telemetry.SmallDurationBuckets)
}
