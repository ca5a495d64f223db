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

// GormAmendmentRepository implements AmendmentRepository using GORM
type GormAmendmentRepository struct {
	db *gorm.DB
}

// NewGormAmendmentRepository creates a new GormAmendmentRepository
func NewGormAmendmentRepository(db *gorm.DB) *GormAmendmentRepository {
	return &GormAmendmentRepository{db: db}
}

// Create persists a new pending amendment
func (r *GormAmendmentRepository) Create(ctx context.Context, amendment *audit.AmendmentRecord) error {
	return r.db.WithContext(ctx).Create(amendment).Error
}

// FindByID finds an amendment for a company
func (r *GormAmendmentRepository) FindByID(ctx context.Context, companyID, id uuid.UUID) (*audit.AmendmentRecord, error) {
	var amendment audit.AmendmentRecord
	if err := r.db.WithContext(ctx).
		First(&amendment, "id = ? AND company_id = ?", id, companyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &amendment, nil
}

// FindByOriginal finds all amendments against one original record, newest first
func (r *GormAmendmentRepository) FindByOriginal(ctx context.Context, companyID, originalRecordID uuid.UUID) ([]audit.AmendmentRecord, error) {
	var amendments []audit.AmendmentRecord
	if err := r.db.WithContext(ctx).
		Where("company_id = ? AND original_record_id = ?", companyID, originalRecordID).
		Order("amended_at DESC").
		Find(&amendments).Error; err != nil {
		return nil, err
	}
	return amendments, nil
}

// FindAll finds amendments for a company with filtering
func (r *GormAmendmentRepository) FindAll(ctx context.Context, companyID uuid.UUID, filter audit.AmendmentFilter) ([]audit.AmendmentRecord, error) {
	var amendments []audit.AmendmentRecord
	query := r.db.WithContext(ctx).Where("company_id = ?", companyID)

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.AmendmentType != nil {
		query = query.Where("amendment_type = ?", *filter.AmendmentType)
	}
	if filter.From != nil {
		query = query.Where("amended_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("amended_at < ?", *filter.To)
	}

	orderBy := ValidateSortField(filter.OrderBy, AmendmentSortFields, "amended_at")
	orderDir := ValidateSortOrder(filter.OrderDir)
	query = query.Order(fmt.Sprintf("%s %s", orderBy, orderDir))

	if filter.PageSize > 0 {
		query = query.Limit(filter.PageSize)
		if filter.Page > 0 {
			query = query.Offset((filter.Page - 1) * filter.PageSize)
		}
	}

	if err := query.Find(&amendments).Error; err != nil {
		return nil, err
	}
	return amendments, nil
}

// Save updates an amendment with optimistic locking. A concurrent reviewer
// who raced past the same PENDING state loses here with a conflict.
func (r *GormAmendmentRepository) Save(ctx context.Context, amendment *audit.AmendmentRecord) error {
	result := r.db.WithContext(ctx).
		Model(&audit.AmendmentRecord{}).
		Where("id = ? AND version = ?", amendment.ID, amendment.Version-1).
		Updates(map[string]any{
			"status":        amendment.Status,
			"reviewed_by":   amendment.ReviewedBy,
			"reviewed_at":   amendment.ReviewedAt,
			"review_note":   amendment.ReviewNote,
			"new_record_id": amendment.NewRecordID,
			"updated_at":    amendment.UpdatedAt,
			"version":       amendment.Version,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// CountCreatedBetween counts amendments created inside [start, end)
func (r *GormAmendmentRepository) CountCreatedBetween(ctx context.Context, companyID uuid.UUID, start, end time.Time) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&audit.AmendmentRecord{}).
		Where("company_id = ? AND amended_at >= ? AND amended_at < ?", companyID, start, end).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Ensure GormAmendmentRepository implements the domain interface
var _ audit.AmendmentRepository = (*GormAmendmentRepository)(nil)
