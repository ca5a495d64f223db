package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/taxfiling/backend/internal/domain/audit"
	"github.com/taxfiling/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormSummaryReportRepository implements SummaryReportRepository using GORM
type GormSummaryReportRepository struct {
	db *gorm.DB
}

// NewGormSummaryReportRepository creates a new GormSummaryReportRepository
func NewGormSummaryReportRepository(db *gorm.DB) *GormSummaryReportRepository {
	return &GormSummaryReportRepository{db: db}
}

// Create persists a new report snapshot. Each generation run inserts a new
// row; earlier snapshots of the same period stay untouched for "as of"
// comparisons.
func (r *GormSummaryReportRepository) Create(ctx context.Context, report *audit.SummaryReport) error {
	return r.db.WithContext(ctx).Create(report).Error
}

// FindByID finds a report for a company
func (r *GormSummaryReportRepository) FindByID(ctx context.Context, companyID, id uuid.UUID) (*audit.SummaryReport, error) {
	var report audit.SummaryReport
	if err := r.db.WithContext(ctx).
		First(&report, "id = ? AND company_id = ?", id, companyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &report, nil
}

// FindAll finds reports for a company with filtering, newest first
func (r *GormSummaryReportRepository) FindAll(ctx context.Context, companyID uuid.UUID, filter audit.SummaryReportFilter) ([]audit.SummaryReport, error) {
	var reports []audit.SummaryReport
	query := r.db.WithContext(ctx).Where("company_id = ?", companyID)

	if filter.ReportType != nil {
		query = query.Where("report_type = ?", *filter.ReportType)
	}
	if filter.ReportPeriod != nil {
		query = query.Where("report_period = ?", *filter.ReportPeriod)
	}

	orderBy := ValidateSortField(filter.OrderBy, SummaryReportSortFields, "generated_at")
	orderDir := ValidateSortOrder(filter.OrderDir)
	query = query.Order(fmt.Sprintf("%s %s", orderBy, orderDir))

	if filter.PageSize > 0 {
		query = query.Limit(filter.PageSize)
		if filter.Page > 0 {
			query = query.Offset((filter.Page - 1) * filter.PageSize)
		}
	}

	if err := query.Find(&reports).Error; err != nil {
		return nil, err
	}
	return reports, nil
}

// Save updates a report's export metadata with optimistic locking.
// Aggregated values are never rewritten after Create.
func (r *GormSummaryReportRepository) Save(ctx context.Context, report *audit.SummaryReport) error {
	result := r.db.WithContext(ctx).
		Model(&audit.SummaryReport{}).
		Where("id = ? AND version = ?", report.ID, report.Version-1).
		Updates(map[string]any{
			"exported_at":   report.ExportedAt,
			"export_format": report.ExportFormat,
			"export_path":   report.ExportPath,
			"updated_at":    report.UpdatedAt,
			"version":       report.Version,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// Ensure GormSummaryReportRepository implements the domain interface
var _ audit.SummaryReportRepository = (*GormSummaryReportRepository)(nil)
