package audit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taxfiling/backend/internal/domain/audit"
	"github.com/taxfiling/backend/internal/domain/shared"
)

type reportingFixture struct {
	svc        *ReportingService
	recordRepo *memRecordRepo
	amendRepo  *memAmendmentRepo
	reportRepo *memReportRepo
	versions   *audit.VersionGenerator
	companyID  uuid.UUID
	userID     uuid.UUID
}

func newReportingFixture() *reportingFixture {
	recordRepo := newMemRecordRepo()
	amendRepo := newMemAmendmentRepo()
	reportRepo := newMemReportRepo()
	return &reportingFixture{
		svc:        NewReportingService(recordRepo, amendRepo, reportRepo),
		recordRepo: recordRepo,
		amendRepo:  amendRepo,
		reportRepo: reportRepo,
		versions:   audit.NewVersionGenerator(),
		companyID:  uuid.New(),
		userID:     uuid.New(),
	}
}

func (f *reportingFixture) seedRecord(t *testing.T, calcType audit.CalculationType, amount int64, compliant bool, createdAt time.Time) *audit.CalculationRecord {
	t.Helper()
	record, err := audit.NewCalculationRecord(
		f.companyID, f.userID, calcType,
		audit.JSONMap{},
		audit.CalculationResult{
			TotalAmount: decimal.NewFromInt(amount),
			Currency:    "AED",
			Method:      "standard_rate",
			Breakdown: []audit.StepInput{
				{StepNumber: 1, Description: "Total", Result: decimal.NewFromInt(amount)},
			},
			Compliance: audit.RegulatoryCompliance{Compliant: compliant},
		},
		nil, f.versions.Next(),
	)
	require.NoError(t, err)
	record.CreatedAt = createdAt
	require.NoError(t, f.recordRepo.Create(context.Background(), record))
	return record
}

func (f *reportingFixture) seedAmendment(t *testing.T, originalID uuid.UUID, createdAt time.Time) {
	t.Helper()
	amendment, err := audit.NewAmendmentRecord(
		f.companyID, originalID, audit.RecordTypeCalculation,
		audit.AmendmentTypeCorrection, audit.UrgencyNormal,
		audit.JSONMap{"total_amount": "1000"},
		audit.JSONMap{"total_amount": "1100"},
		"correction", f.userID,
	)
	require.NoError(t, err)
	amendment.CreatedAt = createdAt
	require.NoError(t, f.amendRepo.Create(context.Background(), amendment))
}

func TestReportingService_GenerateSummary(t *testing.T) {
	f := newReportingFixture()
	ctx := context.Background()
	inJuly := time.Date(2026, 7, 10, 12, 0, 0, 0, time.UTC)

	// Three VAT records in July, one of them non-compliant
	r1 := f.seedRecord(t, audit.CalculationTypeVAT, 1000, true, inJuly)
	f.seedRecord(t, audit.CalculationTypeVAT, 2000, true, inJuly.Add(time.Hour))
	f.seedRecord(t, audit.CalculationTypeVAT, 3000, false, inJuly.Add(2*time.Hour))
	// Outside the period, must not count
	f.seedRecord(t, audit.CalculationTypeVAT, 9999, true, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
	// One amendment filed in July
	f.seedAmendment(t, r1.ID, inJuly.Add(3*time.Hour))

	resp, err := f.svc.GenerateSummary(ctx, GenerateSummaryRequest{
		CompanyID:    f.companyID,
		ReportType:   "MONTHLY",
		ReportPeriod: "2026-07",
		GeneratedBy:  f.userID,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(3), resp.TotalCalculations)
	assert.True(t, resp.TotalTaxAmount.Equal(decimal.NewFromInt(6000)), "total %s", resp.TotalTaxAmount)
	assert.True(t, resp.AverageAmount.Equal(decimal.NewFromInt(2000)), "average %s", resp.AverageAmount)
	assert.Equal(t, "66.67", resp.ComplianceRate.StringFixed(2))
	assert.Equal(t, "33.33", resp.AmendmentRate.StringFixed(2))
	assert.Equal(t, "AED", resp.Currency)

	require.Contains(t, resp.Breakdown, "VAT")
	assert.Equal(t, int64(3), resp.Breakdown["VAT"].Count)
	assert.True(t, resp.Breakdown["VAT"].Amount.Equal(decimal.NewFromInt(6000)))
}

func TestReportingService_GenerateSummary_EmptyPeriod(t *testing.T) {
	f := newReportingFixture()

	resp, err := f.svc.GenerateSummary(context.Background(), GenerateSummaryRequest{
		CompanyID:    f.companyID,
		ReportPeriod: "2026-01",
		GeneratedBy:  f.userID,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(0), resp.TotalCalculations)
	assert.True(t, resp.TotalTaxAmount.IsZero())
	assert.True(t, resp.AverageAmount.IsZero())
	assert.Equal(t, "100", resp.ComplianceRate.String())
	assert.True(t, resp.AmendmentRate.IsZero())
	assert.Equal(t, "MONTHLY", resp.ReportType)
	assert.Equal(t, "AED", resp.Currency)
}

func TestReportingService_GenerateSummary_TypeFilter(t *testing.T) {
	f := newReportingFixture()
	inJuly := time.Date(2026, 7, 10, 12, 0, 0, 0, time.UTC)

	f.seedRecord(t, audit.CalculationTypeVAT, 1000, true, inJuly)
	f.seedRecord(t, audit.CalculationTypeCIT, 5000, true, inJuly.Add(time.Hour))

	citType := audit.CalculationTypeCIT
	resp, err := f.svc.GenerateSummary(context.Background(), GenerateSummaryRequest{
		CompanyID:       f.companyID,
		ReportPeriod:    "2026-07",
		CalculationType: &citType,
		GeneratedBy:     f.userID,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1), resp.TotalCalculations)
	assert.True(t, resp.TotalTaxAmount.Equal(decimal.NewFromInt(5000)))
	assert.NotContains(t, resp.Breakdown, "VAT")
}

func TestReportingService_GenerateSummary_SnapshotsAccumulate(t *testing.T) {
	f := newReportingFixture()
	ctx := context.Background()

	first, err := f.svc.GenerateSummary(ctx, GenerateSummaryRequest{
		CompanyID: f.companyID, ReportPeriod: "2026-07", GeneratedBy: f.userID,
	})
	require.NoError(t, err)

	f.seedRecord(t, audit.CalculationTypeVAT, 1000, true, time.Date(2026, 7, 20, 0, 0, 0, 0, time.UTC))

	second, err := f.svc.GenerateSummary(ctx, GenerateSummaryRequest{
		CompanyID: f.companyID, ReportPeriod: "2026-07", GeneratedBy: f.userID,
	})
	require.NoError(t, err)

	// A new snapshot row per run; the first is untouched
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, int64(0), first.TotalCalculations)
	assert.Equal(t, int64(1), second.TotalCalculations)

	reports, err := f.svc.ListReports(ctx, f.companyID, ReportListFilter{})
	require.NoError(t, err)
	assert.Len(t, reports, 2)
}

func TestReportingService_GenerateSummary_InvalidPeriod(t *testing.T) {
	f := newReportingFixture()

	for _, period := range []string{"", "2026", "2026-13", "07-2026", "2026-7"} {
		_, err := f.svc.GenerateSummary(context.Background(), GenerateSummaryRequest{
			CompanyID: f.companyID, ReportPeriod: period, GeneratedBy: f.userID,
		})
		assert.Error(t, err, "period %q", period)
	}
}

func TestReportingService_GetReport(t *testing.T) {
	f := newReportingFixture()
	ctx := context.Background()

	created, err := f.svc.GenerateSummary(ctx, GenerateSummaryRequest{
		CompanyID: f.companyID, ReportPeriod: "2026-07", GeneratedBy: f.userID,
	})
	require.NoError(t, err)

	found, err := f.svc.GetReport(ctx, f.companyID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = f.svc.GetReport(ctx, f.companyID, uuid.New())
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "REPORT_NOT_FOUND", domainErr.Code)
}
