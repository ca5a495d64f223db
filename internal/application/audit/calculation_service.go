package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/taxfiling/backend/internal/domain/audit"
	"github.com/taxfiling/backend/internal/domain/shared"
	"github.com/taxfiling/backend/internal/domain/shared/valueobject"
	"github.com/taxfiling/backend/internal/infrastructure/telemetry"
)

// CalculationService provides application-level operations on calculation
// records: recording, breakdown retrieval, history queries and validation.
type CalculationService struct {
	recordRepo audit.CalculationRecordRepository
	versions   *audit.VersionGenerator
}

// NewCalculationService creates a new CalculationService
func NewCalculationService(
	recordRepo audit.CalculationRecordRepository,
	versions *audit.VersionGenerator,
) *CalculationService {
	return &CalculationService{
		recordRepo: recordRepo,
		versions:   versions,
	}
}

// StepRequest is one breakdown step as submitted by a calculator
type StepRequest struct {
	StepNumber     int
	Description    string
	Formula        string
	InputValues    audit.JSONMap
	Calculation    string
	Result         decimal.Decimal
	Currency       string
	RegulatoryNote string
}

// RecordCalculationRequest represents a request to record a completed calculation
type RecordCalculationRequest struct {
	CompanyID           uuid.UUID
	UserID              uuid.UUID
	CalculationType     audit.CalculationType
	InputData           audit.JSONMap
	TotalAmount         decimal.Decimal
	Currency            string
	MethodUsed          string
	Compliant           bool
	RegulatoryReference string
	ReferenceID         *uuid.UUID
	Steps               []StepRequest
}

// RecordCalculation assigns the next calculation version and persists the
// record with its breakdown steps as one atomic unit
func (s *CalculationService) RecordCalculation(
	ctx context.Context,
	req RecordCalculationRequest,
) (*CalculationRecordResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "audit", "record_calculation")
	defer span.End()

	telemetry.SetAttributes(span,
		"company_id", req.CompanyID.String(),
		"calculation_type", string(req.CalculationType),
		"step_count", len(req.Steps),
	)

	breakdown := make([]audit.StepInput, 0, len(req.Steps))
	for _, step := range req.Steps {
		breakdown = append(breakdown, audit.StepInput{
			StepNumber:     step.StepNumber,
			Description:    step.Description,
			Formula:        step.Formula,
			InputValues:    step.InputValues,
			Calculation:    step.Calculation,
			Result:         step.Result,
			Currency:       valueobject.Currency(step.Currency),
			RegulatoryNote: step.RegulatoryNote,
		})
	}

	version := s.versions.Next()
	record, err := audit.NewCalculationRecord(
		req.CompanyID,
		req.UserID,
		req.CalculationType,
		req.InputData,
		audit.CalculationResult{
			TotalAmount: req.TotalAmount,
			Currency:    valueobject.Currency(req.Currency),
			Method:      req.MethodUsed,
			Breakdown:   breakdown,
			Compliance: audit.RegulatoryCompliance{
				Compliant: req.Compliant,
				Reference: req.RegulatoryReference,
			},
		},
		req.ReferenceID,
		version,
	)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.recordRepo.Create(ctx, record); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to persist calculation record: %w", err)
	}

	telemetry.SetAttributes(span, "calculation_version", version)
	telemetry.Metrics().CalculationRecorded(ctx, string(record.CalculationType))

	return NewCalculationRecordResponse(record, true), nil
}

// GetBreakdown returns a record with its full step-by-step derivation
func (s *CalculationService) GetBreakdown(
	ctx context.Context,
	companyID, recordID uuid.UUID,
) (*CalculationRecordResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "audit", "get_breakdown")
	defer span.End()

	record, err := s.findRecord(ctx, companyID, recordID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return NewCalculationRecordResponse(record, true), nil
}

// HistoryFilter defines filtering options for calculation history queries
type HistoryFilter struct {
	CalculationType *audit.CalculationType
	ReferenceID     *uuid.UUID
	Status          *audit.RecordStatus
	Page            int
	PageSize        int
}

// GetHistory returns a company's calculation records newest-first.
// Breakdown steps are not loaded for history listings.
func (s *CalculationService) GetHistory(
	ctx context.Context,
	companyID uuid.UUID,
	filter HistoryFilter,
) ([]CalculationRecordResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "audit", "get_history")
	defer span.End()

	repoFilter := audit.CalculationRecordFilter{
		Filter:          shared.DefaultFilter(),
		CalculationType: filter.CalculationType,
		ReferenceID:     filter.ReferenceID,
		Status:          filter.Status,
	}
	if filter.Page > 0 {
		repoFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		repoFilter.PageSize = filter.PageSize
	}

	records, err := s.recordRepo.FindHistory(ctx, companyID, repoFilter)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to query calculation history: %w", err)
	}

	responses := make([]CalculationRecordResponse, 0, len(records))
	for i := range records {
		responses = append(responses, *NewCalculationRecordResponse(&records[i], false))
	}
	return responses, nil
}

// ValidateRecord records a reviewer sign-off on a calculation record.
// Validating an already validated record is a no-op success.
func (s *CalculationService) ValidateRecord(
	ctx context.Context,
	companyID, recordID, validatedBy uuid.UUID,
) (*CalculationRecordResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "audit", "validate_record")
	defer span.End()

	record, err := s.findRecord(ctx, companyID, recordID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if record.IsValidated() {
		return NewCalculationRecordResponse(record, false), nil
	}

	if err := record.Validate(validatedBy); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.recordRepo.Save(ctx, record); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	return NewCalculationRecordResponse(record, false), nil
}

func (s *CalculationService) findRecord(
	ctx context.Context,
	companyID, recordID uuid.UUID,
) (*audit.CalculationRecord, error) {
	record, err := s.recordRepo.FindByID(ctx, companyID, recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to get calculation record: %w", err)
	}
	if record == nil {
		return nil, shared.NewDomainError("RECORD_NOT_FOUND",
			fmt.Sprintf("Calculation record %s not found", recordID))
	}
	return record, nil
}
