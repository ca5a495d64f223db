package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// JobStatus describes the lifecycle state of a scheduled summary run
type JobStatus string

const (
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusCompleted JobStatus = "COMPLETED"
	JobStatusFailed    JobStatus = "FAILED"
)

// SchedulerJobRecord is the persistence trail of one scheduled summary
// generation for one company and period
type SchedulerJobRecord struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	CompanyID    uuid.UUID  `gorm:"column:company_id;type:uuid;not null;index"`
	ReportPeriod string     `gorm:"column:report_period;size:7;not null"`
	Status       string     `gorm:"column:status;size:20;not null"`
	Error        string     `gorm:"column:error;type:text"`
	StartedAt    time.Time  `gorm:"column:started_at;not null"`
	CompletedAt  *time.Time `gorm:"column:completed_at"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at"`
}

// TableName returns the table name for GORM
func (SchedulerJobRecord) TableName() string {
	return "summary_scheduler_jobs"
}

// JobRepository persists scheduler job records
type JobRepository interface {
	RecordJobStart(ctx context.Context, companyID uuid.UUID, period string) (uuid.UUID, error)
	RecordJobComplete(ctx context.Context, jobID uuid.UUID, success bool, errMsg string) error
	LastCompletedPeriod(ctx context.Context) (string, error)
}

// GormJobRepository is the GORM-backed JobRepository
type GormJobRepository struct {
	db *gorm.DB
}

// NewGormJobRepository creates a new GormJobRepository
func NewGormJobRepository(db *gorm.DB) *GormJobRepository {
	return &GormJobRepository{db: db}
}

// RecordJobStart inserts a RUNNING job record and returns its ID
func (r *GormJobRepository) RecordJobStart(ctx context.Context, companyID uuid.UUID, period string) (uuid.UUID, error) {
	record := &SchedulerJobRecord{
		ID:           uuid.New(),
		CompanyID:    companyID,
		ReportPeriod: period,
		Status:       string(JobStatusRunning),
		StartedAt:    time.Now(),
	}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return uuid.Nil, err
	}
	return record.ID, nil
}

// RecordJobComplete marks a job record as completed or failed
func (r *GormJobRepository) RecordJobComplete(ctx context.Context, jobID uuid.UUID, success bool, errMsg string) error {
	status := JobStatusCompleted
	if !success {
		status = JobStatusFailed
	}
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&SchedulerJobRecord{}).
		Where("id = ?", jobID).
		Updates(map[string]any{
			"status":       string(status),
			"error":        errMsg,
			"completed_at": now,
		}).Error
}

// LastCompletedPeriod returns the most recent period with at least one
// completed job, or "" when no run has completed yet
func (r *GormJobRepository) LastCompletedPeriod(ctx context.Context) (string, error) {
	var period string
	err := r.db.WithContext(ctx).
		Model(&SchedulerJobRecord{}).
		Where("status = ?", string(JobStatusCompleted)).
		Order("report_period DESC").
		Limit(1).
		Pluck("report_period", &period).Error
	if err != nil {
		return "", err
	}
	return period, nil
}

// CompanySource enumerates companies that need a summary for a time window
type CompanySource interface {
	CompaniesWithActivity(ctx context.Context, start, end time.Time) ([]uuid.UUID, error)
}

// GormCompanySource lists distinct companies that recorded calculations
// inside the window
type GormCompanySource struct {
	db *gorm.DB
}

// NewGormCompanySource creates a new GormCompanySource
func NewGormCompanySource(db *gorm.DB) *GormCompanySource {
	return &GormCompanySource{db: db}
}

// CompaniesWithActivity returns distinct company IDs with calculation
// records created in [start, end)
func (s *GormCompanySource) CompaniesWithActivity(ctx context.Context, start, end time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := s.db.WithContext(ctx).
		Table("calculation_records").
		Distinct("company_id").
		Where("created_at >= ? AND created_at < ?", start, end).
		Pluck("company_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

var (
	_ JobRepository = (*GormJobRepository)(nil)
	_ CompanySource = (*GormCompanySource)(nil)
)
