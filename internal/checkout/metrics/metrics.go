package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	paymentsInitiatedTotal metric.Int64Counter
	settlementsTotal       metric.Int64Counter
	refundsTotal           metric.Int64Counter
	settlementDuration     metric.Float64Histogram
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.paymentsInitiatedTotal, err = meter.Int64Counter(
		"payments_initiated_total",
		metric.WithDescription("Total number of 3-D payment initiations"),
		metric.WithUnit("{payment}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create payments_initiated_total counter: %w", err)
	}

	m.settlementsTotal, err = meter.Int64Counter(
		"settlements_total",
		metric.WithDescription("Total number of settlement reconciliations by outcome"),
		metric.WithUnit("{settlement}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create settlements_total counter: %w", err)
	}

	m.refundsTotal, err = meter.Int64Counter(
		"refunds_total",
		metric.WithDescription("Total number of gateway refunds"),
		metric.WithUnit("{refund}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create refunds_total counter: %w", err)
	}

	m.settlementDuration, err = meter.Float64Histogram(
		"settlement_duration_seconds",
		metric.WithDescription("Duration of settlement reconciliations"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create settlement_duration histogram: %w", err)
	}

	return m, nil
}

func (m *Metrics) RecordPaymentInitiated(ctx context.Context, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.paymentsInitiatedTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", status),
	))
}

func (m *Metrics) RecordSettlement(ctx context.Context, outcome string) {
	m.settlementsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
	))
}

func (m *Metrics) RecordRefund(ctx context.Context, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.refundsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", status),
	))
}

func (m *Metrics) RecordSettlementDuration(ctx context.Context, durationSeconds float64) {
	m.settlementDuration.Record(ctx, durationSeconds)
}
