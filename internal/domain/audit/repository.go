package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/taxfiling/backend/internal/domain/shared"
)

// CalculationRecordFilter defines filtering options for record queries
type CalculationRecordFilter struct {
	shared.Filter
	CalculationType *CalculationType
	ReferenceID     *uuid.UUID
	Status          *RecordStatus
	From            *time.Time
	To              *time.Time
}

// CalculationRecordRepository defines persistence for calculation records.
// Create persists the record and all of its breakdown steps as one atomic
// unit: either everything is written or nothing is.
type CalculationRecordRepository interface {
	// Create atomically persists a record together with its breakdown steps
	Create(ctx context.Context, record *CalculationRecord) error

	// FindByID finds a record for a company, breakdown steps included,
	// ordered by step number
	FindByID(ctx context.Context, companyID, id uuid.UUID) (*CalculationRecord, error)

	// FindHistory finds records for a company newest-first
	FindHistory(ctx context.Context, companyID uuid.UUID, filter CalculationRecordFilter) ([]CalculationRecord, error)

	// FindByPeriod finds records created inside [start, end), optionally
	// restricted to one calculation type
	FindByPeriod(ctx context.Context, companyID uuid.UUID, start, end time.Time, calculationType *CalculationType) ([]CalculationRecord, error)

	// Save updates a record's mutable envelope (status, validation sign-off)
	// with optimistic locking; the computation payload is never rewritten
	Save(ctx context.Context, record *CalculationRecord) error

	// CountCreatedBetween counts records created inside [start, end)
	CountCreatedBetween(ctx context.Context, companyID uuid.UUID, start, end time.Time, calculationType *CalculationType) (int64, error)
}

// AmendmentFilter defines filtering options for amendment queries
type AmendmentFilter struct {
	shared.Filter
	Status        *AmendmentStatus
	AmendmentType *AmendmentType
	From          *time.Time
	To            *time.Time
}

// AmendmentRepository defines persistence for amendment records
type AmendmentRepository interface {
	// Create persists a new pending amendment
	Create(ctx context.Context, amendment *AmendmentRecord) error

	// FindByID finds an amendment for a company
	FindByID(ctx context.Context, companyID, id uuid.UUID) (*AmendmentRecord, error)

	// FindByOriginal finds all amendments against one original record,
	// newest-first
	FindByOriginal(ctx context.Context, companyID, originalRecordID uuid.UUID) ([]AmendmentRecord, error)

	// FindAll finds amendments for a company with filtering, newest-first
	FindAll(ctx context.Context, companyID uuid.UUID, filter AmendmentFilter) ([]AmendmentRecord, error)

	// Save updates an amendment with optimistic locking
	Save(ctx context.Context, amendment *AmendmentRecord) error

	// CountCreatedBetween counts amendments created inside [start, end)
	CountCreatedBetween(ctx context.Context, companyID uuid.UUID, start, end time.Time) (int64, error)
}

// SummaryReportFilter defines filtering options for report queries
type SummaryReportFilter struct {
	shared.Filter
	ReportType   *string
	ReportPeriod *string
}

// SummaryReportRepository defines persistence for summary reports
type SummaryReportRepository interface {
	// Create persists a new report snapshot; prior snapshots for the same
	// period are never overwritten
	Create(ctx context.Context, report *SummaryReport) error

	// FindByID finds a report for a company
	FindByID(ctx context.Context, companyID, id uuid.UUID) (*SummaryReport, error)

	// FindAll finds reports for a company with filtering, newest-first
	FindAll(ctx context.Context, companyID uuid.UUID, filter SummaryReportFilter) ([]SummaryReport, error)

	// Save updates a report's export metadata with optimistic locking
	Save(ctx context.Context, report *SummaryReport) error
}
