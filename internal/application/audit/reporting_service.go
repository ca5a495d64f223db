package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/taxfiling/backend/internal/domain/audit"
	"github.com/taxfiling/backend/internal/domain/shared"
	"github.com/taxfiling/backend/internal/domain/shared/valueobject"
	"github.com/taxfiling/backend/internal/infrastructure/telemetry"
)

// Rates are percentages with two decimal places; averages keep the step
// precision of four.
const (
	ratePrecision    int32 = 2
	averagePrecision int32 = 4
)

// ReportingService aggregates calculation records into summary report
// snapshots. Every generation produces a new report row; existing
// snapshots are never overwritten, so repeated runs over the same period
// form their own audit trail.
type ReportingService struct {
	recordRepo    audit.CalculationRecordRepository
	amendmentRepo audit.AmendmentRepository
	reportRepo    audit.SummaryReportRepository
}

// NewReportingService creates a new ReportingService
func NewReportingService(
	recordRepo audit.CalculationRecordRepository,
	amendmentRepo audit.AmendmentRepository,
	reportRepo audit.SummaryReportRepository,
) *ReportingService {
	return &ReportingService{
		recordRepo:    recordRepo,
		amendmentRepo: amendmentRepo,
		reportRepo:    reportRepo,
	}
}

// GenerateSummaryRequest represents a request to generate a summary report
type GenerateSummaryRequest struct {
	CompanyID       uuid.UUID
	ReportType      string
	ReportPeriod    string
	CalculationType *audit.CalculationType
	GeneratedBy     uuid.UUID
}

// GenerateSummary aggregates a company's records for one period into a new
// summary report snapshot. An empty period yields a zero report with a
// vacuous 100% compliance rate and a 0% amendment rate.
func (s *ReportingService) GenerateSummary(
	ctx context.Context,
	req GenerateSummaryRequest,
) (*SummaryReportResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "audit", "generate_summary")
	defer span.End()

	telemetry.SetAttributes(span,
		"company_id", req.CompanyID.String(),
		"report_period", req.ReportPeriod,
	)

	if req.CalculationType != nil && !req.CalculationType.IsValid() {
		err := shared.NewDomainError("INVALID_CALCULATION_TYPE",
			fmt.Sprintf("Unknown calculation type %q", *req.CalculationType))
		telemetry.RecordError(span, err)
		return nil, err
	}

	start, end, err := audit.ParseReportPeriod(req.ReportPeriod)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	records, err := s.recordRepo.FindByPeriod(ctx, req.CompanyID, start, end, req.CalculationType)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to load records for period: %w", err)
	}

	input := audit.SummaryInput{
		ReportType:      reportTypeOrDefault(req.ReportType),
		ReportPeriod:    req.ReportPeriod,
		PeriodStart:     start,
		PeriodEnd:       end,
		CalculationType: req.CalculationType,
		Breakdown:       audit.TypeBreakdowns{},
	}

	total := int64(len(records))
	compliant := int64(0)
	for i := range records {
		record := &records[i]
		input.TotalTaxAmount = input.TotalTaxAmount.Add(record.TotalAmount)
		if record.Compliant {
			compliant++
		}
		if input.Currency == "" {
			input.Currency = record.Currency
		}
		tb := input.Breakdown[record.CalculationType]
		tb.Count++
		tb.Amount = tb.Amount.Add(record.TotalAmount)
		input.Breakdown[record.CalculationType] = tb
	}
	input.TotalCalculations = total
	if input.Currency == "" {
		input.Currency = valueobject.AED
	}

	if total > 0 {
		divisor := decimal.NewFromInt(total)
		input.AverageAmount = input.TotalTaxAmount.Div(divisor).Round(averagePrecision)
		input.ComplianceRate = decimal.NewFromInt(compliant * 100).Div(divisor).Round(ratePrecision)

		amendments, err := s.amendmentRepo.CountCreatedBetween(ctx, req.CompanyID, start, end)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("failed to count amendments for period: %w", err)
		}
		input.AmendmentRate = decimal.NewFromInt(amendments * 100).Div(divisor).Round(ratePrecision)
	} else {
		// Nothing recorded means nothing non-compliant and nothing amendable
		input.ComplianceRate = decimal.NewFromInt(100)
	}

	report, err := audit.NewSummaryReport(req.CompanyID, req.GeneratedBy, input)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.reportRepo.Create(ctx, report); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to persist summary report: %w", err)
	}

	telemetry.SetAttributes(span,
		"report_id", report.ID.String(),
		"total_calculations", total,
	)
	telemetry.Metrics().ReportGenerated(ctx, report.ReportType)

	return NewSummaryReportResponse(report), nil
}

// GetReport returns one summary report
func (s *ReportingService) GetReport(
	ctx context.Context,
	companyID, reportID uuid.UUID,
) (*SummaryReportResponse, error) {
	report, err := s.reportRepo.FindByID(ctx, companyID, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to get summary report: %w", err)
	}
	if report == nil {
		return nil, shared.NewDomainError("REPORT_NOT_FOUND",
			fmt.Sprintf("Summary report %s not found", reportID))
	}
	return NewSummaryReportResponse(report), nil
}

// ReportListFilter defines filtering options for report list queries
type ReportListFilter struct {
	ReportType   *string
	ReportPeriod *string
	Page         int
	PageSize     int
}

// ListReports returns a company's summary reports newest-first
func (s *ReportingService) ListReports(
	ctx context.Context,
	companyID uuid.UUID,
	filter ReportListFilter,
) ([]SummaryReportResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "audit", "list_reports")
	defer span.End()

	repoFilter := audit.SummaryReportFilter{
		Filter:       shared.DefaultFilter(),
		ReportType:   filter.ReportType,
		ReportPeriod: filter.ReportPeriod,
	}
	repoFilter.OrderBy = "generated_at"
	if filter.Page > 0 {
		repoFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		repoFilter.PageSize = filter.PageSize
	}

	reports, err := s.reportRepo.FindAll(ctx, companyID, repoFilter)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to query summary reports: %w", err)
	}

	responses := make([]SummaryReportResponse, 0, len(reports))
	for i := range reports {
		responses = append(responses, *NewSummaryReportResponse(&reports[i]))
	}
	return responses, nil
}

func reportTypeOrDefault(reportType string) string {
	if reportType == "" {
		return "MONTHLY"
	}
	return reportType
}
