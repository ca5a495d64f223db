package audit

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/taxfiling/backend/internal/domain/shared"
	"github.com/taxfiling/backend/internal/domain/shared/valueobject"
)

// RegulatoryCompliance is the compliance verdict handed over by a calculator
type RegulatoryCompliance struct {
	Compliant bool   `json:"compliant"`
	Reference string `json:"reference"`
}

// StepInput is one breakdown line as submitted by a calculator
type StepInput struct {
	StepNumber     int
	Description    string
	Formula        string
	InputValues    JSONMap
	Calculation    string
	Result         decimal.Decimal
	Currency       valueobject.Currency
	RegulatoryNote string
}

// CalculationResult is the value a calculator hands to the engine.
// The engine treats the producing formula as a black box; only the result
// shape is validated here.
type CalculationResult struct {
	TotalAmount decimal.Decimal
	Currency    valueobject.Currency
	Method      string
	Breakdown   []StepInput
	Compliance  RegulatoryCompliance
}

// BreakdownStep is one line of a record's derivation. Steps are owned
// exclusively by their CalculationRecord and are cascade-deleted with it.
type BreakdownStep struct {
	ID                  uuid.UUID            `gorm:"type:uuid;primary_key"`
	CalculationRecordID uuid.UUID            `gorm:"type:uuid;not null;index;uniqueIndex:idx_step_record_number,priority:1"`
	StepNumber          int                  `gorm:"not null;uniqueIndex:idx_step_record_number,priority:2"`
	Description         string               `gorm:"type:varchar(500);not null"`
	Formula             string               `gorm:"type:varchar(500)"`
	InputValues         JSONMap              `gorm:"type:jsonb;default:'{}'"`
	Calculation         string               `gorm:"type:text"`
	Result              decimal.Decimal      `gorm:"type:decimal(20,4);not null"`
	Currency            valueobject.Currency `gorm:"type:varchar(3);not null"`
	RegulatoryNote      string               `gorm:"type:varchar(500)"`
	CreatedAt           time.Time            `gorm:"not null"`
}

// TableName returns the table name for GORM
func (BreakdownStep) TableName() string {
	return "breakdown_steps"
}

// CalculationRecord is one immutable computation event. InputData, the
// final result fields and the breakdown steps are never mutated after
// creation; corrections happen only through an approved amendment that
// produces a brand-new record.
type CalculationRecord struct {
	shared.CompanyAggregateRoot
	CalculationVersion  string               `gorm:"type:varchar(30);not null;uniqueIndex"`
	UserID              uuid.UUID            `gorm:"type:uuid;not null;index"`
	CalculationType     CalculationType      `gorm:"type:varchar(20);not null;index"`
	ReferenceID         *uuid.UUID           `gorm:"type:uuid;index"`
	InputData           JSONMap              `gorm:"type:jsonb;default:'{}'"`
	TotalAmount         decimal.Decimal      `gorm:"type:decimal(20,4);not null"`
	Currency            valueobject.Currency `gorm:"type:varchar(3);not null"`
	MethodUsed          string               `gorm:"type:varchar(100);not null"`
	Compliant           bool                 `gorm:"not null;default:false"`
	RegulatoryReference string               `gorm:"type:varchar(255)"`
	Status              RecordStatus         `gorm:"type:varchar(20);not null;default:'ACTIVE';index"`
	ValidatedBy         *uuid.UUID           `gorm:"type:uuid"`
	ValidatedAt         *time.Time
	Steps               []BreakdownStep `gorm:"foreignKey:CalculationRecordID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (CalculationRecord) TableName() string {
	return "calculation_records"
}

// NewCalculationRecord creates a new calculation record from a calculator result.
// The version must come from the store's VersionGenerator.
func NewCalculationRecord(
	companyID uuid.UUID,
	userID uuid.UUID,
	calculationType CalculationType,
	inputData JSONMap,
	result CalculationResult,
	referenceID *uuid.UUID,
	version string,
) (*CalculationRecord, error) {
	if companyID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_COMPANY", "Company ID cannot be empty")
	}
	if userID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "User ID cannot be empty")
	}
	if !calculationType.IsValid() {
		return nil, shared.NewDomainError("INVALID_CALCULATION_TYPE",
			fmt.Sprintf("Unknown calculation type %q", calculationType))
	}
	if version == "" {
		return nil, shared.NewDomainError("INVALID_VERSION", "Calculation version cannot be empty")
	}
	if result.Currency == "" {
		return nil, shared.NewDomainError("INVALID_CURRENCY", "Result currency is required")
	}
	if !valueobject.IsValidCurrency(string(result.Currency)) {
		return nil, shared.NewDomainError("INVALID_CURRENCY",
			fmt.Sprintf("Unknown currency %q", result.Currency))
	}
	if result.TotalAmount.IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Total amount cannot be negative")
	}
	if result.Method == "" {
		return nil, shared.NewDomainError("INVALID_METHOD", "Calculation method is required")
	}
	if len(result.Breakdown) == 0 {
		return nil, shared.NewDomainError("EMPTY_BREAKDOWN", "Breakdown must contain at least one step")
	}

	record := &CalculationRecord{
		CompanyAggregateRoot: shared.NewCompanyAggregateRootWithCreator(companyID, userID),
		CalculationVersion:   version,
		UserID:               userID,
		CalculationType:      calculationType,
		ReferenceID:          referenceID,
		InputData:            inputData.Clone(),
		TotalAmount:          result.TotalAmount,
		Currency:             result.Currency,
		MethodUsed:           result.Method,
		Compliant:            result.Compliance.Compliant,
		RegulatoryReference:  result.Compliance.Reference,
		Status:               RecordStatusActive,
		Steps:                make([]BreakdownStep, 0, len(result.Breakdown)),
	}

	lastNumber := 0
	for i, step := range result.Breakdown {
		if step.StepNumber <= 0 {
			return nil, shared.NewDomainError("INVALID_STEP_NUMBER",
				fmt.Sprintf("Step %d has non-positive step number %d", i+1, step.StepNumber))
		}
		if step.StepNumber <= lastNumber {
			return nil, shared.NewDomainError("INVALID_STEP_ORDER",
				fmt.Sprintf("Step numbers must be strictly increasing; %d follows %d", step.StepNumber, lastNumber))
		}
		lastNumber = step.StepNumber
		if step.Description == "" {
			return nil, shared.NewDomainError("INVALID_STEP",
				fmt.Sprintf("Step %d is missing a description", step.StepNumber))
		}
		currency := step.Currency
		if currency == "" {
			currency = result.Currency
		}
		record.Steps = append(record.Steps, BreakdownStep{
			ID:                  uuid.New(),
			CalculationRecordID: record.ID,
			StepNumber:          step.StepNumber,
			Description:         step.Description,
			Formula:             step.Formula,
			InputValues:         step.InputValues.Clone(),
			Calculation:         step.Calculation,
			Result:              step.Result.Round(valueobject.StepPrecision),
			Currency:            currency,
			RegulatoryNote:      step.RegulatoryNote,
			CreatedAt:           record.CreatedAt,
		})
	}

	return record, nil
}

// Validate records a reviewer sign-off. Re-validating an already
// validated record is a no-op success, not an error.
func (r *CalculationRecord) Validate(validatedBy uuid.UUID) error {
	if validatedBy == uuid.Nil {
		return shared.NewDomainError("INVALID_USER", "Validating user ID is required")
	}
	if r.ValidatedBy != nil {
		return nil
	}
	now := time.Now()
	r.ValidatedBy = &validatedBy
	r.ValidatedAt = &now
	r.Status = RecordStatusActive
	r.UpdatedAt = now
	r.IncrementVersion()
	return nil
}

// MarkSuperseded flags the record as displaced by an approved amendment.
// Only the status changes; the computation payload stays untouched.
func (r *CalculationRecord) MarkSuperseded() error {
	if r.Status == RecordStatusSuperseded {
		return shared.NewDomainError("INVALID_STATE", "Record is already superseded")
	}
	r.Status = RecordStatusSuperseded
	r.UpdatedAt = time.Now()
	r.IncrementVersion()
	return nil
}

// MarkDisputed flags the record as under dispute
func (r *CalculationRecord) MarkDisputed() error {
	if r.Status != RecordStatusActive {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot dispute record in %s status", r.Status))
	}
	r.Status = RecordStatusDisputed
	r.UpdatedAt = time.Now()
	r.IncrementVersion()
	return nil
}

// IsValidated reports whether a reviewer has signed off the record
func (r *CalculationRecord) IsValidated() bool {
	return r.ValidatedBy != nil
}

// TotalMoney returns the final amount as a Money value object
func (r *CalculationRecord) TotalMoney() valueobject.Money {
	m, _ := valueobject.NewMoney(r.TotalAmount, r.Currency)
	return m
}

// Snapshot captures the record's audited fields as an opaque payload.
// Amendments store this as their PreviousVersion.
func (r *CalculationRecord) Snapshot() JSONMap {
	snapshot := JSONMap{
		"calculation_version":  r.CalculationVersion,
		"calculation_type":     string(r.CalculationType),
		"total_amount":         r.TotalAmount.String(),
		"currency":             string(r.Currency),
		"method_used":          r.MethodUsed,
		"compliant":            r.Compliant,
		"regulatory_reference": r.RegulatoryReference,
		"status":               string(r.Status),
	}
	if r.ReferenceID != nil {
		snapshot["reference_id"] = r.ReferenceID.String()
	}
	return snapshot
}
