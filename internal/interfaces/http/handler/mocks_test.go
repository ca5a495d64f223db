package handler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/taxfiling/backend/internal/domain/audit"
)

// MockRecordRepository implements audit.CalculationRecordRepository
type MockRecordRepository struct {
	mock.Mock
}

func (m *MockRecordRepository) Create(ctx context.Context, record *audit.CalculationRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockRecordRepository) FindByID(ctx context.Context, companyID, id uuid.UUID) (*audit.CalculationRecord, error) {
	args := m.Called(ctx, companyID, id)
	if record, ok := args.Get(0).(*audit.CalculationRecord); ok {
		return record, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRecordRepository) FindHistory(ctx context.Context, companyID uuid.UUID, filter audit.CalculationRecordFilter) ([]audit.CalculationRecord, error) {
	args := m.Called(ctx, companyID, filter)
	if records, ok := args.Get(0).([]audit.CalculationRecord); ok {
		return records, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRecordRepository) FindByPeriod(ctx context.Context, companyID uuid.UUID, start, end time.Time, calculationType *audit.CalculationType) ([]audit.CalculationRecord, error) {
	args := m.Called(ctx, companyID, start, end, calculationType)
	if records, ok := args.Get(0).([]audit.CalculationRecord); ok {
		return records, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRecordRepository) Save(ctx context.Context, record *audit.CalculationRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockRecordRepository) CountCreatedBetween(ctx context.Context, companyID uuid.UUID, start, end time.Time, calculationType *audit.CalculationType) (int64, error) {
	args := m.Called(ctx, companyID, start, end, calculationType)
	return args.Get(0).(int64), args.Error(1)
}

// MockAmendmentRepository implements audit.AmendmentRepository
type MockAmendmentRepository struct {
	mock.Mock
}

func (m *MockAmendmentRepository) Create(ctx context.Context, amendment *audit.AmendmentRecord) error {
	args := m.Called(ctx, amendment)
	return args.Error(0)
}

func (m *MockAmendmentRepository) FindByID(ctx context.Context, companyID, id uuid.UUID) (*audit.AmendmentRecord, error) {
	args := m.Called(ctx, companyID, id)
	if amendment, ok := args.Get(0).(*audit.AmendmentRecord); ok {
		return amendment, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAmendmentRepository) FindByOriginal(ctx context.Context, companyID, originalRecordID uuid.UUID) ([]audit.AmendmentRecord, error) {
	args := m.Called(ctx, companyID, originalRecordID)
	if amendments, ok := args.Get(0).([]audit.AmendmentRecord); ok {
		return amendments, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAmendmentRepository) FindAll(ctx context.Context, companyID uuid.UUID, filter audit.AmendmentFilter) ([]audit.AmendmentRecord, error) {
	args := m.Called(ctx, companyID, filter)
	if amendments, ok := args.Get(0).([]audit.AmendmentRecord); ok {
		return amendments, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAmendmentRepository) Save(ctx context.Context, amendment *audit.AmendmentRecord) error {
	args := m.Called(ctx, amendment)
	return args.Error(0)
}

func (m *MockAmendmentRepository) CountCreatedBetween(ctx context.Context, companyID uuid.UUID, start, end time.Time) (int64, error) {
	args := m.Called(ctx, companyID, start, end)
	return args.Get(0).(int64), args.Error(1)
}

// MockReportRepository implements audit.SummaryReportRepository
type MockReportRepository struct {
	mock.Mock
}

func (m *MockReportRepository) Create(ctx context.Context, report *audit.SummaryReport) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

func (m *MockReportRepository) FindByID(ctx context.Context, companyID, id uuid.UUID) (*audit.SummaryReport, error) {
	args := m.Called(ctx, companyID, id)
	if report, ok := args.Get(0).(*audit.SummaryReport); ok {
		return report, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockReportRepository) FindAll(ctx context.Context, companyID uuid.UUID, filter audit.SummaryReportFilter) ([]audit.SummaryReport, error) {
	args := m.Called(ctx, companyID, filter)
	if reports, ok := args.Get(0).([]audit.SummaryReport); ok {
		return reports, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockReportRepository) Save(ctx context.Context, report *audit.SummaryReport) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

var (
	_ audit.CalculationRecordRepository = (*MockRecordRepository)(nil)
	_ audit.AmendmentRepository         = (*MockAmendmentRepository)(nil)
	_ audit.SummaryReportRepository     = (*MockReportRepository)(nil)
)
