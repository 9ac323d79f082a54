// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ChargingMetrics provides business metrics for the charging engine.
// It tracks charge resolution activity, gateway checkouts, and rollbacks.
type ChargingMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	chargeResolvedTotal *Counter
	chargeAmountTotal   *Counter
	checkoutTotal       *Counter
	rollbackTotal       *Counter

	// Gauge metrics (point-in-time values)
	pendingCharges *Gauge

	// Histogram metrics
	resolutionDuration *Histogram
}

// ChargingMetricsConfig holds configuration for charging metrics.
type ChargingMetricsConfig struct {
	Meter  metric.Meter
	Logger *zap.Logger
}

// NewChargingMetrics creates a new ChargingMetrics instance.
func NewChargingMetrics(cfg ChargingMetricsConfig) (*ChargingMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	cm := &ChargingMetrics{
		meter:  cfg.Meter,
		logger: logger,
	}

	// Initialize counter metrics
	var err error

	cm.chargeResolvedTotal, err = NewCounter(
		cfg.Meter,
		"charging_charge_resolved_total",
		"Total number of charge resolutions",
		"{charges}",
	)
	if err != nil {
		return nil, err
	}

	cm.chargeAmountTotal, err = NewCounter(
		cfg.Meter,
		"charging_charge_amount_total",
		"Total charged amount in cents",
		"{cents}",
	)
	if err != nil {
		return nil, err
	}

	cm.checkoutTotal, err = NewCounter(
		cfg.Meter,
		"charging_gateway_checkout_total",
		"Total number of gateway checkouts started",
		"{checkouts}",
	)
	if err != nil {
		return nil, err
	}

	cm.rollbackTotal, err = NewCounter(
		cfg.Meter,
		"charging_charge_rollback_total",
		"Total number of pending charges rolled back",
		"{charges}",
	)
	if err != nil {
		return nil, err
	}

	cm.pendingCharges, err = NewGauge(
		cfg.Meter,
		"charging_pending_charges",
		"Number of orders currently waiting for gateway confirmation",
		"{orders}",
	)
	if err != nil {
		return nil, err
	}

	cm.resolutionDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "charging_resolution_duration_seconds",
		Description: "Time spent resolving a charge request",
		Unit:        "s",
		Boundaries:  HTTPDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	return cm, nil
}

// ChargeOutcome represents the result of a charge resolution for metrics labeling.
type ChargeOutcome string

const (
	ChargeOutcomeFree      ChargeOutcome = "free"
	ChargeOutcomeRedirect  ChargeOutcome = "redirect"
	ChargeOutcomeCommitted ChargeOutcome = "committed"
	ChargeOutcomeFailed    ChargeOutcome = "failed"
)

// RecordChargeResolved records a charge resolution event.
// This should be called from the application layer when a charge resolves.
func (cm *ChargingMetrics) RecordChargeResolved(ctx context.Context, concept string, outcome ChargeOutcome) {
	cm.chargeResolvedTotal.Inc(ctx,
		AttrConcept.String(concept),
		AttrChargeOutcome.String(string(outcome)),
	)
}

// RecordChargeAmount records the committed charge amount.
// Amount should be in the order's currency, recorded in cents.
func (cm *ChargingMetrics) RecordChargeAmount(ctx context.Context, concept, currency string, amount decimal.Decimal) {
	amountCents := amount.Mul(decimal.NewFromInt(100)).IntPart()
	cm.chargeAmountTotal.Add(ctx, amountCents,
		AttrConcept.String(concept),
		AttrCurrency.String(currency),
	)
}

// RecordCheckout records a gateway checkout attempt.
// This should be called when a redirect payment is started.
func (cm *ChargingMetrics) RecordCheckout(ctx context.Context, gateway string, outcome ChargeOutcome) {
	cm.checkoutTotal.Inc(ctx,
		AttrPaymentGateway.String(gateway),
		AttrChargeOutcome.String(string(outcome)),
	)
}

// RecordRollback records a pending charge rolled back by the timeout watchdog.
func (cm *ChargingMetrics) RecordRollback(ctx context.Context, concept string) {
	cm.rollbackTotal.Inc(ctx,
		AttrConcept.String(concept),
	)
}

// RecordPendingCharges records the number of orders waiting for confirmation.
// This is a gauge metric that should be updated periodically.
func (cm *ChargingMetrics) RecordPendingCharges(ctx context.Context, count int64) {
	cm.pendingCharges.Record(ctx, count)
}

// RecordResolutionDuration records how long a charge resolution took.
func (cm *ChargingMetrics) RecordResolutionDuration(ctx context.Context, seconds float64, concept string) {
	cm.resolutionDuration.Record(ctx, seconds,
		AttrConcept.String(concept),
	)
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewChargingMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
