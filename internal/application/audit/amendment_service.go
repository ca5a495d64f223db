package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/taxfiling/backend/internal/domain/audit"
	"github.com/taxfiling/backend/internal/domain/shared"
	"github.com/taxfiling/backend/internal/domain/shared/valueobject"
	"github.com/taxfiling/backend/internal/infrastructure/telemetry"
)

// AmendmentService drives the amendment workflow: proposing a correction
// against a recorded calculation, reviewing it, and on approval producing
// the replacement record. Originals are never edited in place.
type AmendmentService struct {
	recordRepo    audit.CalculationRecordRepository
	amendmentRepo audit.AmendmentRepository
	txScope       TransactionScope
	versions      *audit.VersionGenerator
}

// NewAmendmentService creates a new AmendmentService
func NewAmendmentService(
	recordRepo audit.CalculationRecordRepository,
	amendmentRepo audit.AmendmentRepository,
	txScope TransactionScope,
	versions *audit.VersionGenerator,
) *AmendmentService {
	return &AmendmentService{
		recordRepo:    recordRepo,
		amendmentRepo: amendmentRepo,
		txScope:       txScope,
		versions:      versions,
	}
}

// CreateAmendmentRequest represents a request to propose an amendment
type CreateAmendmentRequest struct {
	CompanyID        uuid.UUID
	OriginalRecordID uuid.UUID
	AmendmentType    audit.AmendmentType
	Urgency          audit.Urgency
	NewVersion       audit.JSONMap
	Reason           string
	AmendedBy        uuid.UUID
}

// CreateAmendment proposes a pending amendment against an existing record.
// The original's audited fields are snapshotted as the previous version so
// the field-level diff stays reproducible even after later approvals.
func (s *AmendmentService) CreateAmendment(
	ctx context.Context,
	req CreateAmendmentRequest,
) (*AmendmentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "audit", "create_amendment")
	defer span.End()

	telemetry.SetAttributes(span,
		"company_id", req.CompanyID.String(),
		"original_record_id", req.OriginalRecordID.String(),
		"amendment_type", string(req.AmendmentType),
	)

	original, err := s.recordRepo.FindByID(ctx, req.CompanyID, req.OriginalRecordID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to get original record: %w", err)
	}
	if original == nil {
		err := shared.NewDomainError("RECORD_NOT_FOUND",
			fmt.Sprintf("Calculation record %s not found", req.OriginalRecordID))
		telemetry.RecordError(span, err)
		return nil, err
	}
	if original.Status == audit.RecordStatusSuperseded {
		err := shared.NewDomainError("INVALID_STATE",
			"Cannot amend a superseded record; amend its replacement instead")
		telemetry.RecordError(span, err)
		return nil, err
	}

	// Reject unamendable fields and unparsable values up front, not at
	// approval time when the proposer is no longer around.
	if _, _, err := amendedResult(original, req.NewVersion); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	amendment, err := audit.NewAmendmentRecord(
		req.CompanyID,
		req.OriginalRecordID,
		audit.RecordTypeCalculation,
		req.AmendmentType,
		req.Urgency,
		original.Snapshot(),
		req.NewVersion,
		req.Reason,
		req.AmendedBy,
	)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.amendmentRepo.Create(ctx, amendment); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to persist amendment: %w", err)
	}

	telemetry.Metrics().AmendmentCreated(ctx, string(amendment.AmendmentType))

	return NewAmendmentResponse(amendment), nil
}

// ReviewAmendmentRequest represents an approve or reject decision
type ReviewAmendmentRequest struct {
	CompanyID   uuid.UUID
	AmendmentID uuid.UUID
	ReviewedBy  uuid.UUID
	ReviewNote  string
}

// ApproveAmendmentResult carries the outcome of an approval
type ApproveAmendmentResult struct {
	Amendment *AmendmentResponse         `json:"amendment"`
	NewRecord *CalculationRecordResponse `json:"new_record"`
}

// ApproveAmendment approves a pending amendment. Inside one transaction it
// flips the amendment to APPROVED, supersedes any previously approved
// amendment for the same original, marks the original record SUPERSEDED and
// creates the replacement record referencing it. Two reviewers racing on
// the same amendment: exactly one wins, the other gets a concurrency
// conflict from the optimistic check.
func (s *AmendmentService) ApproveAmendment(
	ctx context.Context,
	req ReviewAmendmentRequest,
) (*ApproveAmendmentResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "audit", "approve_amendment")
	defer span.End()

	telemetry.SetAttributes(span,
		"company_id", req.CompanyID.String(),
		"amendment_id", req.AmendmentID.String(),
	)

	var result *ApproveAmendmentResult
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		amendment, err := repos.AmendmentRepo().FindByID(ctx, req.CompanyID, req.AmendmentID)
		if err != nil {
			return fmt.Errorf("failed to get amendment: %w", err)
		}
		if amendment == nil {
			return shared.NewDomainError("AMENDMENT_NOT_FOUND",
				fmt.Sprintf("Amendment %s not found", req.AmendmentID))
		}
		if !amendment.IsPending() {
			return shared.NewDomainError("INVALID_STATE",
				fmt.Sprintf("Amendment is already %s", amendment.Status))
		}

		original, err := repos.RecordRepo().FindByID(ctx, req.CompanyID, amendment.OriginalRecordID)
		if err != nil {
			return fmt.Errorf("failed to get original record: %w", err)
		}
		if original == nil {
			return shared.NewDomainError("RECORD_NOT_FOUND",
				fmt.Sprintf("Original record %s not found", amendment.OriginalRecordID))
		}

		calcType, amended, err := amendedResult(original, amendment.NewVersion)
		if err != nil {
			return err
		}

		newRecord, err := audit.NewCalculationRecord(
			req.CompanyID,
			amendment.AmendedBy,
			calcType,
			original.InputData,
			amended,
			&original.ID,
			s.versions.Next(),
		)
		if err != nil {
			return err
		}

		if err := amendment.Approve(req.ReviewedBy, newRecord.ID); err != nil {
			return err
		}
		// Optimistic save: the losing reviewer in a race fails here and
		// the whole transaction rolls back.
		if err := repos.AmendmentRepo().Save(ctx, amendment); err != nil {
			return err
		}

		// A newer approval displaces any earlier approved amendment
		priors, err := repos.AmendmentRepo().FindByOriginal(ctx, req.CompanyID, amendment.OriginalRecordID)
		if err != nil {
			return fmt.Errorf("failed to list prior amendments: %w", err)
		}
		for i := range priors {
			prior := &priors[i]
			if prior.ID == amendment.ID || prior.Status != audit.AmendmentStatusApproved {
				continue
			}
			if err := prior.MarkSuperseded(); err != nil {
				return err
			}
			if err := repos.AmendmentRepo().Save(ctx, prior); err != nil {
				return err
			}
		}

		if original.Status != audit.RecordStatusSuperseded {
			if err := original.MarkSuperseded(); err != nil {
				return err
			}
			if err := repos.RecordRepo().Save(ctx, original); err != nil {
				return err
			}
		}

		if err := repos.RecordRepo().Create(ctx, newRecord); err != nil {
			return fmt.Errorf("failed to persist replacement record: %w", err)
		}

		result = &ApproveAmendmentResult{
			Amendment: NewAmendmentResponse(amendment),
			NewRecord: NewCalculationRecordResponse(newRecord, true),
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span, "new_record_id", result.NewRecord.ID.String())
	telemetry.Metrics().AmendmentReviewed(ctx, "approved")

	return result, nil
}

// RejectAmendment rejects a pending amendment with a review note.
// The original record is left untouched.
func (s *AmendmentService) RejectAmendment(
	ctx context.Context,
	req ReviewAmendmentRequest,
) (*AmendmentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "audit", "reject_amendment")
	defer span.End()

	amendment, err := s.amendmentRepo.FindByID(ctx, req.CompanyID, req.AmendmentID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to get amendment: %w", err)
	}
	if amendment == nil {
		err := shared.NewDomainError("AMENDMENT_NOT_FOUND",
			fmt.Sprintf("Amendment %s not found", req.AmendmentID))
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := amendment.Reject(req.ReviewedBy, req.ReviewNote); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.amendmentRepo.Save(ctx, amendment); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.Metrics().AmendmentReviewed(ctx, "rejected")

	return NewAmendmentResponse(amendment), nil
}

// GetAmendment returns one amendment
func (s *AmendmentService) GetAmendment(
	ctx context.Context,
	companyID, amendmentID uuid.UUID,
) (*AmendmentResponse, error) {
	amendment, err := s.amendmentRepo.FindByID(ctx, companyID, amendmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get amendment: %w", err)
	}
	if amendment == nil {
		return nil, shared.NewDomainError("AMENDMENT_NOT_FOUND",
			fmt.Sprintf("Amendment %s not found", amendmentID))
	}
	return NewAmendmentResponse(amendment), nil
}

// AmendmentListFilter defines filtering options for amendment list queries
type AmendmentListFilter struct {
	Status           *audit.AmendmentStatus
	AmendmentType    *audit.AmendmentType
	OriginalRecordID *uuid.UUID
	Page             int
	PageSize         int
}

// ListAmendments returns a company's amendments newest-first
func (s *AmendmentService) ListAmendments(
	ctx context.Context,
	companyID uuid.UUID,
	filter AmendmentListFilter,
) ([]AmendmentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "audit", "list_amendments")
	defer span.End()

	var amendments []audit.AmendmentRecord
	var err error
	if filter.OriginalRecordID != nil {
		amendments, err = s.amendmentRepo.FindByOriginal(ctx, companyID, *filter.OriginalRecordID)
	} else {
		repoFilter := audit.AmendmentFilter{
			Filter:        shared.DefaultFilter(),
			Status:        filter.Status,
			AmendmentType: filter.AmendmentType,
		}
		if filter.Page > 0 {
			repoFilter.Page = filter.Page
		}
		if filter.PageSize > 0 {
			repoFilter.PageSize = filter.PageSize
		}
		amendments, err = s.amendmentRepo.FindAll(ctx, companyID, repoFilter)
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to query amendments: %w", err)
	}

	responses := make([]AmendmentResponse, 0, len(amendments))
	for i := range amendments {
		responses = append(responses, *NewAmendmentResponse(&amendments[i]))
	}
	return responses, nil
}

// amendableFields are the record fields a proposed new version may change.
// Everything else on a record is derived or identifying and cannot be
// amended; a withdrawal still goes through these fields (zero amount).
var amendableFields = map[string]struct{}{
	"total_amount":         {},
	"currency":             {},
	"method_used":          {},
	"compliant":            {},
	"regulatory_reference": {},
	"calculation_type":     {},
}

// amendedResult overlays a proposed new version onto the original's result.
// Breakdown steps are carried over from the original; an amendment corrects
// the audited outcome, not the derivation trail.
func amendedResult(
	original *audit.CalculationRecord,
	proposed audit.JSONMap,
) (audit.CalculationType, audit.CalculationResult, error) {
	calcType := original.CalculationType
	result := audit.CalculationResult{
		TotalAmount: original.TotalAmount,
		Currency:    original.Currency,
		Method:      original.MethodUsed,
		Compliance: audit.RegulatoryCompliance{
			Compliant: original.Compliant,
			Reference: original.RegulatoryReference,
		},
	}

	for field, value := range proposed {
		if _, ok := amendableFields[field]; !ok {
			return calcType, result, shared.NewDomainError("UNAMENDABLE_FIELD",
				fmt.Sprintf("Field %q cannot be amended", field))
		}
		switch field {
		case "total_amount":
			amount, err := decimalFromJSON(value)
			if err != nil {
				return calcType, result, shared.NewDomainError("INVALID_AMOUNT",
					fmt.Sprintf("Proposed total_amount is not a number: %v", value))
			}
			result.TotalAmount = amount
		case "currency":
			currency, ok := value.(string)
			if !ok || !valueobject.IsValidCurrency(currency) {
				return calcType, result, shared.NewDomainError("INVALID_CURRENCY",
					fmt.Sprintf("Proposed currency %v is not supported", value))
			}
			result.Currency = valueobject.Currency(currency)
		case "method_used":
			method, ok := value.(string)
			if !ok || method == "" {
				return calcType, result, shared.NewDomainError("INVALID_METHOD",
					"Proposed method_used must be a non-empty string")
			}
			result.Method = method
		case "compliant":
			compliant, ok := value.(bool)
			if !ok {
				return calcType, result, shared.NewDomainError("INVALID_INPUT",
					"Proposed compliant must be a boolean")
			}
			result.Compliance.Compliant = compliant
		case "regulatory_reference":
			reference, ok := value.(string)
			if !ok {
				return calcType, result, shared.NewDomainError("INVALID_INPUT",
					"Proposed regulatory_reference must be a string")
			}
			result.Compliance.Reference = reference
		case "calculation_type":
			raw, ok := value.(string)
			proposedType := audit.CalculationType(raw)
			if !ok || !proposedType.IsValid() {
				return calcType, result, shared.NewDomainError("INVALID_CALCULATION_TYPE",
					fmt.Sprintf("Proposed calculation type %v is not supported", value))
			}
			calcType = proposedType
		}
	}

	result.Breakdown = make([]audit.StepInput, 0, len(original.Steps))
	for _, step := range original.Steps {
		result.Breakdown = append(result.Breakdown, audit.StepInput{
			StepNumber:     step.StepNumber,
			Description:    step.Description,
			Formula:        step.Formula,
			InputValues:    step.InputValues,
			Calculation:    step.Calculation,
			Result:         step.Result,
			Currency:       step.Currency,
			RegulatoryNote: step.RegulatoryNote,
		})
	}

	return calcType, result, nil
}

func decimalFromJSON(value any) (decimal.Decimal, error) {
	switch v := value.(type) {
	case string:
		return decimal.NewFromString(v)
	case float64:
		return decimal.NewFromFloat(v), nil
	case json.Number:
		return decimal.NewFromString(v.String())
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	default:
		return decimal.Decimal{}, fmt.Errorf("unsupported numeric type %T", value)
	}
}
