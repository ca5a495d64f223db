package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName is the meter name for audit engine metrics
const MeterName = "taxfiling-backend"

// AuditMetrics holds the business counters of the audit engine
type AuditMetrics struct {
	calculationsRecorded metric.Int64Counter
	amendmentsCreated    metric.Int64Counter
	amendmentsReviewed   metric.Int64Counter
	reportsGenerated     metric.Int64Counter
	exportsCompleted     metric.Int64Counter
}

var (
	auditMetricsOnce sync.Once
	auditMetrics     *AuditMetrics
)

// Metrics returns the process-wide audit metrics, creating them on first use
func Metrics() *AuditMetrics {
	auditMetricsOnce.Do(func() {
		meter := otel.GetMeterProvider().Meter(MeterName)
		auditMetrics = &AuditMetrics{}
		auditMetrics.calculationsRecorded, _ = meter.Int64Counter(
			"audit.calculations.recorded",
			metric.WithDescription("Calculation records persisted"))
		auditMetrics.amendmentsCreated, _ = meter.Int64Counter(
			"audit.amendments.created",
			metric.WithDescription("Amendments submitted for review"))
		auditMetrics.amendmentsReviewed, _ = meter.Int64Counter(
			"audit.amendments.reviewed",
			metric.WithDescription("Amendments approved or rejected"))
		auditMetrics.reportsGenerated, _ = meter.Int64Counter(
			"audit.reports.generated",
			metric.WithDescription("Summary reports generated"))
		auditMetrics.exportsCompleted, _ = meter.Int64Counter(
			"audit.exports.completed",
			metric.WithDescription("Report exports completed"))
	})
	return auditMetrics
}

// CalculationRecorded counts one persisted calculation record
func (m *AuditMetrics) CalculationRecorded(ctx context.Context, calculationType string) {
	if m == nil || m.calculationsRecorded == nil {
		return
	}
	m.calculationsRecorded.Add(ctx, 1,
		metric.WithAttributes(attribute.String("calculation_type", calculationType)))
}

// AmendmentCreated counts one submitted amendment
func (m *AuditMetrics) AmendmentCreated(ctx context.Context, amendmentType string) {
	if m == nil || m.amendmentsCreated == nil {
		return
	}
	m.amendmentsCreated.Add(ctx, 1,
		metric.WithAttributes(attribute.String("amendment_type", amendmentType)))
}

// AmendmentReviewed counts one review decision
func (m *AuditMetrics) AmendmentReviewed(ctx context.Context, outcome string) {
	if m == nil || m.amendmentsReviewed == nil {
		return
	}
	m.amendmentsReviewed.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)))
}

// ReportGenerated counts one generated summary report
func (m *AuditMetrics) ReportGenerated(ctx context.Context, reportType string) {
	if m == nil || m.reportsGenerated == nil {
		return
	}
	m.reportsGenerated.Add(ctx, 1,
		metric.WithAttributes(attribute.String("report_type", reportType)))
}

// ExportCompleted counts one completed export
func (m *AuditMetrics) ExportCompleted(ctx context.Context, format string) {
	if m == nil || m.exportsCompleted == nil {
		return
	}
	m.exportsCompleted.Add(ctx, 1,
		metric.WithAttributes(attribute.String("format", format)))
}
