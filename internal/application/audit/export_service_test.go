package audit

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/taxfiling/backend/internal/domain/audit"
	"github.com/taxfiling/backend/internal/domain/shared"
	"github.com/taxfiling/backend/internal/infrastructure/export"
)

type exportFixture struct {
	reportingFixture
	exportSvc *ExportService
	reportID  uuid.UUID
}

func newExportFixture(t *testing.T) *exportFixture {
	t.Helper()

	f := &exportFixture{reportingFixture: *newReportingFixture()}

	storage, err := export.NewFilesystemStorage(&export.FilesystemStorageConfig{
		BasePath: t.TempDir(),
	})
	require.NoError(t, err)

	f.exportSvc = NewExportService(f.reportRepo, f.recordRepo,
		export.NewRegistry(), storage, zap.NewNop())

	inJuly := time.Date(2026, 7, 10, 12, 0, 0, 0, time.UTC)
	f.seedRecord(t, audit.CalculationTypeVAT, 1000, true, inJuly)
	f.seedRecord(t, audit.CalculationTypeVAT, 2000, true, inJuly.Add(time.Hour))

	report, err := f.svc.GenerateSummary(context.Background(), GenerateSummaryRequest{
		CompanyID: f.companyID, ReportPeriod: "2026-07", GeneratedBy: f.userID,
	})
	require.NoError(t, err)
	f.reportID = report.ID
	return f
}

func TestExportService_ExportReport_JSON(t *testing.T) {
	f := newExportFixture(t)
	ctx := context.Background()

	result, err := f.exportSvc.ExportReport(ctx, ExportReportRequest{
		CompanyID:        f.companyID,
		ReportID:         f.reportID,
		Format:           "json",
		IncludeBreakdown: true,
		RequestedBy:      f.userID,
	})
	require.NoError(t, err)

	assert.Equal(t, "json", result.Format)
	assert.True(t, strings.HasSuffix(result.FileName, ".json"))
	assert.Positive(t, result.Size)

	t.Run("report marked exported", func(t *testing.T) {
		report, err := f.reportRepo.FindByID(ctx, f.companyID, f.reportID)
		require.NoError(t, err)
		assert.True(t, report.IsExported())
		assert.Equal(t, "json", report.ExportFormat)
		assert.Equal(t, result.Path, report.ExportPath)
	})

	t.Run("artifact is retrievable and well formed", func(t *testing.T) {
		handle, err := f.exportSvc.GetArtifact(ctx, f.companyID, f.reportID)
		require.NoError(t, err)
		defer handle.Reader.Close()
		assert.Equal(t, "application/json", handle.ContentType)

		content, err := io.ReadAll(handle.Reader)
		require.NoError(t, err)

		var doc struct {
			Report struct {
				ReportPeriod string `json:"report_period"`
			} `json:"report"`
			Records []json.RawMessage `json:"records"`
		}
		require.NoError(t, json.Unmarshal(content, &doc))
		assert.Equal(t, "2026-07", doc.Report.ReportPeriod)
		assert.Len(t, doc.Records, 2)
	})
}

func TestExportService_ExportReport_CSVWithoutBreakdown(t *testing.T) {
	f := newExportFixture(t)
	ctx := context.Background()

	_, err := f.exportSvc.ExportReport(ctx, ExportReportRequest{
		CompanyID:        f.companyID,
		ReportID:         f.reportID,
		Format:           "csv",
		IncludeBreakdown: false,
		RequestedBy:      f.userID,
	})
	require.NoError(t, err)

	handle, err := f.exportSvc.GetArtifact(ctx, f.companyID, f.reportID)
	require.NoError(t, err)
	defer handle.Reader.Close()

	content, err := io.ReadAll(handle.Reader)
	require.NoError(t, err)
	rows, err := csv.NewReader(bytes.NewReader(content)).ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 3) // header + 2 records
	for _, col := range rows[0] {
		assert.False(t, strings.HasPrefix(col, "step_"), "column %q", col)
	}
}

func TestExportService_ExportReport_UnsupportedFormat(t *testing.T) {
	f := newExportFixture(t)
	ctx := context.Background()

	_, err := f.exportSvc.ExportReport(ctx, ExportReportRequest{
		CompanyID:   f.companyID,
		ReportID:    f.reportID,
		Format:      "pdf",
		RequestedBy: f.userID,
	})

	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "UNSUPPORTED_FORMAT", domainErr.Code)
	assert.Contains(t, domainErr.Message, "pdf")
	assert.Contains(t, domainErr.Message, "csv, json, xlsx")

	t.Run("report stays unexported", func(t *testing.T) {
		report, err := f.reportRepo.FindByID(ctx, f.companyID, f.reportID)
		require.NoError(t, err)
		assert.False(t, report.IsExported())
	})
}

func TestExportService_ExportReport_ReportNotFound(t *testing.T) {
	f := newExportFixture(t)

	_, err := f.exportSvc.ExportReport(context.Background(), ExportReportRequest{
		CompanyID:   f.companyID,
		ReportID:    uuid.New(),
		Format:      "json",
		RequestedBy: f.userID,
	})

	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "REPORT_NOT_FOUND", domainErr.Code)
}

func TestExportService_ExportReport_LastExportWins(t *testing.T) {
	f := newExportFixture(t)
	ctx := context.Background()

	_, err := f.exportSvc.ExportReport(ctx, ExportReportRequest{
		CompanyID: f.companyID, ReportID: f.reportID, Format: "json", RequestedBy: f.userID,
	})
	require.NoError(t, err)

	second, err := f.exportSvc.ExportReport(ctx, ExportReportRequest{
		CompanyID: f.companyID, ReportID: f.reportID, Format: "xlsx", RequestedBy: f.userID,
	})
	require.NoError(t, err)

	report, err := f.reportRepo.FindByID(ctx, f.companyID, f.reportID)
	require.NoError(t, err)
	assert.Equal(t, "xlsx", report.ExportFormat)
	assert.Equal(t, second.Path, report.ExportPath)
}

func TestExportService_GetArtifact_NotExported(t *testing.T) {
	f := newExportFixture(t)

	_, err := f.exportSvc.GetArtifact(context.Background(), f.companyID, f.reportID)

	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "NOT_EXPORTED", domainErr.Code)
}
