package audit

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/taxfiling/backend/internal/domain/audit"
	"github.com/taxfiling/backend/internal/domain/shared"
)

// In-memory repository fakes with the same optimistic locking contract as
// the GORM implementations: Save succeeds only when the stored row is one
// version behind the aggregate being saved.

type memRecordRepo struct {
	mu      sync.Mutex
	records map[uuid.UUID]audit.CalculationRecord
}

func newMemRecordRepo() *memRecordRepo {
	return &memRecordRepo{records: make(map[uuid.UUID]audit.CalculationRecord)}
}

func copyRecord(record audit.CalculationRecord) audit.CalculationRecord {
	steps := make([]audit.BreakdownStep, len(record.Steps))
	copy(steps, record.Steps)
	record.Steps = steps
	return record
}

func (r *memRecordRepo) Create(_ context.Context, record *audit.CalculationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.records {
		if existing.CalculationVersion == record.CalculationVersion {
			return shared.ErrAlreadyExists
		}
	}
	r.records[record.ID] = copyRecord(*record)
	return nil
}

func (r *memRecordRepo) FindByID(_ context.Context, companyID, id uuid.UUID) (*audit.CalculationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[id]
	if !ok || record.CompanyID != companyID {
		return nil, nil
	}
	out := copyRecord(record)
	sort.Slice(out.Steps, func(i, j int) bool { return out.Steps[i].StepNumber < out.Steps[j].StepNumber })
	return &out, nil
}

func (r *memRecordRepo) FindHistory(_ context.Context, companyID uuid.UUID, filter audit.CalculationRecordFilter) ([]audit.CalculationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []audit.CalculationRecord
	for _, record := range r.records {
		if record.CompanyID != companyID {
			continue
		}
		if filter.CalculationType != nil && record.CalculationType != *filter.CalculationType {
			continue
		}
		if filter.Status != nil && record.Status != *filter.Status {
			continue
		}
		if filter.ReferenceID != nil && (record.ReferenceID == nil || *record.ReferenceID != *filter.ReferenceID) {
			continue
		}
		out = append(out, copyRecord(record))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CalculationVersion > out[j].CalculationVersion
	})
	return out, nil
}

func (r *memRecordRepo) FindByPeriod(_ context.Context, companyID uuid.UUID, start, end time.Time, calculationType *audit.CalculationType) ([]audit.CalculationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []audit.CalculationRecord
	for _, record := range r.records {
		if record.CompanyID != companyID {
			continue
		}
		if record.CreatedAt.Before(start) || !record.CreatedAt.Before(end) {
			continue
		}
		if calculationType != nil && record.CalculationType != *calculationType {
			continue
		}
		out = append(out, copyRecord(record))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CalculationVersion < out[j].CalculationVersion
	})
	return out, nil
}

func (r *memRecordRepo) Save(_ context.Context, record *audit.CalculationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.records[record.ID]
	if !ok || stored.CompanyID != record.CompanyID {
		return shared.ErrConcurrencyConflict
	}
	if stored.Version != record.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	// Envelope columns only; the computation payload is immutable
	stored.Status = record.Status
	stored.ValidatedBy = record.ValidatedBy
	stored.ValidatedAt = record.ValidatedAt
	stored.UpdatedAt = record.UpdatedAt
	stored.Version = record.Version
	r.records[record.ID] = stored
	return nil
}

func (r *memRecordRepo) CountCreatedBetween(_ context.Context, companyID uuid.UUID, start, end time.Time, calculationType *audit.CalculationType) (int64, error) {
	records, _ := r.FindByPeriod(context.Background(), companyID, start, end, calculationType)
	return int64(len(records)), nil
}

type memAmendmentRepo struct {
	mu         sync.Mutex
	amendments map[uuid.UUID]audit.AmendmentRecord
}

func newMemAmendmentRepo() *memAmendmentRepo {
	return &memAmendmentRepo{amendments: make(map[uuid.UUID]audit.AmendmentRecord)}
}

func (r *memAmendmentRepo) Create(_ context.Context, amendment *audit.AmendmentRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.amendments[amendment.ID] = *amendment
	return nil
}

func (r *memAmendmentRepo) FindByID(_ context.Context, companyID, id uuid.UUID) (*audit.AmendmentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	amendment, ok := r.amendments[id]
	if !ok || amendment.CompanyID != companyID {
		return nil, nil
	}
	out := amendment
	return &out, nil
}

func (r *memAmendmentRepo) FindByOriginal(_ context.Context, companyID, originalRecordID uuid.UUID) ([]audit.AmendmentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []audit.AmendmentRecord
	for _, amendment := range r.amendments {
		if amendment.CompanyID == companyID && amendment.OriginalRecordID == originalRecordID {
			out = append(out, amendment)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AmendedAt.After(out[j].AmendedAt) })
	return out, nil
}

func (r *memAmendmentRepo) FindAll(_ context.Context, companyID uuid.UUID, filter audit.AmendmentFilter) ([]audit.AmendmentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []audit.AmendmentRecord
	for _, amendment := range r.amendments {
		if amendment.CompanyID != companyID {
			continue
		}
		if filter.Status != nil && amendment.Status != *filter.Status {
			continue
		}
		if filter.AmendmentType != nil && amendment.AmendmentType != *filter.AmendmentType {
			continue
		}
		out = append(out, amendment)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AmendedAt.After(out[j].AmendedAt) })
	return out, nil
}

func (r *memAmendmentRepo) Save(_ context.Context, amendment *audit.AmendmentRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.amendments[amendment.ID]
	if !ok || stored.CompanyID != amendment.CompanyID {
		return shared.ErrConcurrencyConflict
	}
	if stored.Version != amendment.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	stored.Status = amendment.Status
	stored.ReviewedBy = amendment.ReviewedBy
	stored.ReviewedAt = amendment.ReviewedAt
	stored.ReviewNote = amendment.ReviewNote
	stored.NewRecordID = amendment.NewRecordID
	stored.UpdatedAt = amendment.UpdatedAt
	stored.Version = amendment.Version
	r.amendments[amendment.ID] = stored
	return nil
}

func (r *memAmendmentRepo) CountCreatedBetween(_ context.Context, companyID uuid.UUID, start, end time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, amendment := range r.amendments {
		if amendment.CompanyID != companyID {
			continue
		}
		if amendment.CreatedAt.Before(start) || !amendment.CreatedAt.Before(end) {
			continue
		}
		count++
	}
	return count, nil
}

type memReportRepo struct {
	mu      sync.Mutex
	reports map[uuid.UUID]audit.SummaryReport
}

func newMemReportRepo() *memReportRepo {
	return &memReportRepo{reports: make(map[uuid.UUID]audit.SummaryReport)}
}

func (r *memReportRepo) Create(_ context.Context, report *audit.SummaryReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports[report.ID] = *report
	return nil
}

func (r *memReportRepo) FindByID(_ context.Context, companyID, id uuid.UUID) (*audit.SummaryReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	report, ok := r.reports[id]
	if !ok || report.CompanyID != companyID {
		return nil, nil
	}
	out := report
	return &out, nil
}

func (r *memReportRepo) FindAll(_ context.Context, companyID uuid.UUID, filter audit.SummaryReportFilter) ([]audit.SummaryReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []audit.SummaryReport
	for _, report := range r.reports {
		if report.CompanyID != companyID {
			continue
		}
		if filter.ReportType != nil && report.ReportType != *filter.ReportType {
			continue
		}
		if filter.ReportPeriod != nil && report.ReportPeriod != *filter.ReportPeriod {
			continue
		}
		out = append(out, report)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GeneratedAt.After(out[j].GeneratedAt) })
	return out, nil
}

func (r *memReportRepo) Save(_ context.Context, report *audit.SummaryReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.reports[report.ID]
	if !ok || stored.CompanyID != report.CompanyID {
		return shared.ErrConcurrencyConflict
	}
	if stored.Version != report.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	stored.ExportedAt = report.ExportedAt
	stored.ExportFormat = report.ExportFormat
	stored.ExportPath = report.ExportPath
	stored.UpdatedAt = report.UpdatedAt
	stored.Version = report.Version
	r.reports[report.ID] = stored
	return nil
}

var (
	_ audit.CalculationRecordRepository = (*memRecordRepo)(nil)
	_ audit.AmendmentRepository         = (*memAmendmentRepo)(nil)
	_ audit.SummaryReportRepository     = (*memReportRepo)(nil)
)
