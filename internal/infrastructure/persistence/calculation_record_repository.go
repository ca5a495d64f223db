package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/taxfiling/backend/internal/domain/audit"
	"github.com/taxfiling/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormCalculationRecordRepository implements CalculationRecordRepository using GORM
type GormCalculationRecordRepository struct {
	db *gorm.DB
}

// NewGormCalculationRecordRepository creates a new GormCalculationRecordRepository
func NewGormCalculationRecordRepository(db *gorm.DB) *GormCalculationRecordRepository {
	return &GormCalculationRecordRepository{db: db}
}

// Create atomically persists a record together with its breakdown steps.
// The explicit transaction matters: the connection is opened with
// SkipDefaultTransaction, and a record without its steps (or vice versa)
// must never become visible.
func (r *GormCalculationRecordRepository) Create(ctx context.Context, record *audit.CalculationRecord) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(record).Error
	})
}

// FindByID finds a record for a company with its steps in replay order
func (r *GormCalculationRecordRepository) FindByID(ctx context.Context, companyID, id uuid.UUID) (*audit.CalculationRecord, error) {
	var record audit.CalculationRecord
	if err := r.db.WithContext(ctx).
		Preload("Steps", func(db *gorm.DB) *gorm.DB {
			return db.Order("step_number ASC")
		}).
		First(&record, "id = ? AND company_id = ?", id, companyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// FindHistory finds records for a company, newest first
func (r *GormCalculationRecordRepository) FindHistory(ctx context.Context, companyID uuid.UUID, filter audit.CalculationRecordFilter) ([]audit.CalculationRecord, error) {
	var records []audit.CalculationRecord
	query := r.db.WithContext(ctx).Where("company_id = ?", companyID)

	if filter.CalculationType != nil {
		query = query.Where("calculation_type = ?", *filter.CalculationType)
	}
	if filter.ReferenceID != nil {
		query = query.Where("reference_id = ?", *filter.ReferenceID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at < ?", *filter.To)
	}

	orderBy := ValidateSortField(filter.OrderBy, CalculationRecordSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)
	query = query.Order(fmt.Sprintf("%s %s", orderBy, orderDir))

	if filter.PageSize > 0 {
		query = query.Limit(filter.PageSize)
		if filter.Page > 0 {
			query = query.Offset((filter.Page - 1) * filter.PageSize)
		}
	}

	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// FindByPeriod finds records created inside [start, end) with their steps
func (r *GormCalculationRecordRepository) FindByPeriod(ctx context.Context, companyID uuid.UUID, start, end time.Time, calculationType *audit.CalculationType) ([]audit.CalculationRecord, error) {
	var records []audit.CalculationRecord
	query := r.db.WithContext(ctx).
		Where("company_id = ? AND created_at >= ? AND created_at < ?", companyID, start, end)
	if calculationType != nil {
		query = query.Where("calculation_type = ?", *calculationType)
	}
	if err := query.
		Preload("Steps", func(db *gorm.DB) *gorm.DB {
			return db.Order("step_number ASC")
		}).
		Order("created_at ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// Save updates the record's mutable envelope with optimistic locking.
// Only status and validation sign-off columns are writable; the computation
// payload and the breakdown steps are immutable after Create.
func (r *GormCalculationRecordRepository) Save(ctx context.Context, record *audit.CalculationRecord) error {
	result := r.db.WithContext(ctx).
		Model(&audit.CalculationRecord{}).
		Where("id = ? AND version = ?", record.ID, record.Version-1).
		Updates(map[string]any{
			"status":       record.Status,
			"validated_by": record.ValidatedBy,
			"validated_at": record.ValidatedAt,
			"updated_at":   record.UpdatedAt,
			"version":      record.Version,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// CountCreatedBetween counts records created inside [start, end)
func (r *GormCalculationRecordRepository) CountCreatedBetween(ctx context.Context, companyID uuid.UUID, start, end time.Time, calculationType *audit.CalculationType) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).
		Model(&audit.CalculationRecord{}).
		Where("company_id = ? AND created_at >= ? AND created_at < ?", companyID, start, end)
	if calculationType != nil {
		query = query.Where("calculation_type = ?", *calculationType)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Ensure GormCalculationRecordRepository implements the domain interface
var _ audit.CalculationRecordRepository = (*GormCalculationRecordRepository)(nil)
