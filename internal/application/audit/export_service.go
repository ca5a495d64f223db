package audit

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taxfiling/backend/internal/domain/audit"
	"github.com/taxfiling/backend/internal/domain/shared"
	"github.com/taxfiling/backend/internal/infrastructure/export"
	"github.com/taxfiling/backend/internal/infrastructure/telemetry"
)

// ExportService renders summary reports into downloadable artifacts and
// records the export on the report. A failed render or upload leaves the
// report unmarked; export metadata is only written once the artifact is
// durably stored.
type ExportService struct {
	reportRepo audit.SummaryReportRepository
	recordRepo audit.CalculationRecordRepository
	registry   *export.Registry
	storage    export.ArtifactStorage
	logger     *zap.Logger
}

// NewExportService creates a new ExportService
func NewExportService(
	reportRepo audit.SummaryReportRepository,
	recordRepo audit.CalculationRecordRepository,
	registry *export.Registry,
	storage export.ArtifactStorage,
	logger *zap.Logger,
) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		reportRepo: reportRepo,
		recordRepo: recordRepo,
		registry:   registry,
		storage:    storage,
		logger:     logger,
	}
}

// ExportReportRequest represents a request to export a summary report
type ExportReportRequest struct {
	CompanyID        uuid.UUID
	ReportID         uuid.UUID
	Format           string
	IncludeBreakdown bool
	RequestedBy      uuid.UUID
}

// ExportReportResult represents the stored artifact
type ExportReportResult struct {
	ReportID   uuid.UUID `json:"report_id"`
	Format     string    `json:"format"`
	FileName   string    `json:"file_name"`
	Path       string    `json:"path"`
	URL        string    `json:"url"`
	Size       int64     `json:"size"`
	ExportedAt time.Time `json:"exported_at"`
}

// ExportReport renders a report in the requested format, stores the
// artifact and attaches the export metadata to the report
func (s *ExportService) ExportReport(
	ctx context.Context,
	req ExportReportRequest,
) (*ExportReportResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "audit", "export_report")
	defer span.End()

	telemetry.SetAttributes(span,
		"company_id", req.CompanyID.String(),
		"report_id", req.ReportID.String(),
		"format", req.Format,
		"include_breakdown", req.IncludeBreakdown,
	)

	encoder, ok := s.registry.Encoder(req.Format)
	if !ok {
		err := shared.NewDomainError("UNSUPPORTED_FORMAT",
			fmt.Sprintf("Unsupported export format %q; supported formats are %s",
				req.Format, strings.Join(s.registry.Formats(), ", ")))
		telemetry.RecordError(span, err)
		return nil, err
	}

	report, err := s.reportRepo.FindByID(ctx, req.CompanyID, req.ReportID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to get summary report: %w", err)
	}
	if report == nil {
		err := shared.NewDomainError("REPORT_NOT_FOUND",
			fmt.Sprintf("Summary report %s not found", req.ReportID))
		telemetry.RecordError(span, err)
		return nil, err
	}

	records, err := s.recordRepo.FindByPeriod(ctx, req.CompanyID,
		report.PeriodStart, report.PeriodEnd, report.CalculationType)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to load records for export: %w", err)
	}

	data, err := encoder.Encode(&export.Document{
		Report:           report,
		Records:          records,
		IncludeBreakdown: req.IncludeBreakdown,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to render %s export: %w", encoder.Format(), err)
	}

	exportedAt := time.Now().UTC()
	fileName := fmt.Sprintf("%s_%s_%s.%s",
		report.ReportType, report.ReportPeriod,
		exportedAt.Format("20060102T150405Z"), encoder.FileExtension())

	stored, err := s.storage.Store(ctx, &export.StoreRequest{
		CompanyID:   req.CompanyID,
		ReportID:    report.ID,
		FileName:    fileName,
		ContentType: encoder.ContentType(),
		Data:        data,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to store export artifact: %w", err)
	}

	if err := report.AttachExport(string(encoder.Format()), stored.Path, exportedAt); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.reportRepo.Save(ctx, report); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("Summary report exported",
		zap.String("report_id", report.ID.String()),
		zap.String("format", string(encoder.Format())),
		zap.String("path", stored.Path),
		zap.Int64("size", stored.Size))

	telemetry.Metrics().ExportCompleted(ctx, string(encoder.Format()))

	return &ExportReportResult{
		ReportID:   report.ID,
		Format:     string(encoder.Format()),
		FileName:   fileName,
		Path:       stored.Path,
		URL:        stored.URL,
		Size:       stored.Size,
		ExportedAt: exportedAt,
	}, nil
}

// GetArtifact streams a previously exported artifact. The report's export
// metadata is the source of truth for where the artifact lives.
func (s *ExportService) GetArtifact(
	ctx context.Context,
	companyID, reportID uuid.UUID,
) (*ArtifactHandle, error) {
	report, err := s.reportRepo.FindByID(ctx, companyID, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to get summary report: %w", err)
	}
	if report == nil {
		return nil, shared.NewDomainError("REPORT_NOT_FOUND",
			fmt.Sprintf("Summary report %s not found", reportID))
	}
	if !report.IsExported() {
		return nil, shared.NewDomainError("NOT_EXPORTED",
			fmt.Sprintf("Summary report %s has not been exported", reportID))
	}

	encoder, ok := s.registry.Encoder(report.ExportFormat)
	contentType := "application/octet-stream"
	if ok {
		contentType = encoder.ContentType()
	}

	reader, err := s.storage.Get(ctx, report.ExportPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open export artifact: %w", err)
	}
	return &ArtifactHandle{
		Reader:      reader,
		ContentType: contentType,
		Path:        report.ExportPath,
	}, nil
}

// ArtifactHandle wraps an open artifact stream; the caller owns Reader
type ArtifactHandle struct {
	Reader      io.ReadCloser
	ContentType string
	Path        string
}
