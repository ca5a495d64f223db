package audit

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/taxfiling/backend/internal/domain/audit"
)

// BreakdownStepResponse represents one breakdown step in API responses
type BreakdownStepResponse struct {
	StepNumber     int             `json:"step_number"`
	Description    string          `json:"description"`
	Formula        string          `json:"formula,omitempty"`
	InputValues    audit.JSONMap   `json:"input_values,omitempty"`
	Calculation    string          `json:"calculation,omitempty"`
	Result         decimal.Decimal `json:"result"`
	Currency       string          `json:"currency"`
	RegulatoryNote string          `json:"regulatory_note,omitempty"`
}

// CalculationRecordResponse represents a calculation record in API responses
type CalculationRecordResponse struct {
	ID                  uuid.UUID               `json:"id"`
	CompanyID           uuid.UUID               `json:"company_id"`
	CalculationVersion  string                  `json:"calculation_version"`
	UserID              uuid.UUID               `json:"user_id"`
	CalculationType     string                  `json:"calculation_type"`
	ReferenceID         *uuid.UUID              `json:"reference_id,omitempty"`
	InputData           audit.JSONMap           `json:"input_data,omitempty"`
	TotalAmount         decimal.Decimal         `json:"total_amount"`
	Currency            string                  `json:"currency"`
	MethodUsed          string                  `json:"method_used"`
	Compliant           bool                    `json:"compliant"`
	RegulatoryReference string                  `json:"regulatory_reference,omitempty"`
	Status              string                  `json:"status"`
	ValidatedBy         *uuid.UUID              `json:"validated_by,omitempty"`
	ValidatedAt         *time.Time              `json:"validated_at,omitempty"`
	Steps               []BreakdownStepResponse `json:"breakdown,omitempty"`
	CreatedAt           time.Time               `json:"created_at"`
	UpdatedAt           time.Time               `json:"updated_at"`
	Version             int                     `json:"version"`
}

// NewCalculationRecordResponse maps a record to its API representation.
// Steps and input data are included only when withDetail is set.
func NewCalculationRecordResponse(record *audit.CalculationRecord, withDetail bool) *CalculationRecordResponse {
	resp := &CalculationRecordResponse{
		ID:                  record.ID,
		CompanyID:           record.CompanyID,
		CalculationVersion:  record.CalculationVersion,
		UserID:              record.UserID,
		CalculationType:     string(record.CalculationType),
		ReferenceID:         record.ReferenceID,
		TotalAmount:         record.TotalAmount,
		Currency:            string(record.Currency),
		MethodUsed:          record.MethodUsed,
		Compliant:           record.Compliant,
		RegulatoryReference: record.RegulatoryReference,
		Status:              string(record.Status),
		ValidatedBy:         record.ValidatedBy,
		ValidatedAt:         record.ValidatedAt,
		CreatedAt:           record.CreatedAt,
		UpdatedAt:           record.UpdatedAt,
		Version:             record.Version,
	}
	if withDetail {
		resp.InputData = record.InputData
		resp.Steps = make([]BreakdownStepResponse, 0, len(record.Steps))
		for _, step := range record.Steps {
			resp.Steps = append(resp.Steps, BreakdownStepResponse{
				StepNumber:     step.StepNumber,
				Description:    step.Description,
				Formula:        step.Formula,
				InputValues:    step.InputValues,
				Calculation:    step.Calculation,
				Result:         step.Result,
				Currency:       string(step.Currency),
				RegulatoryNote: step.RegulatoryNote,
			})
		}
	}
	return resp
}

// AmendmentResponse represents an amendment record in API responses
type AmendmentResponse struct {
	ID               uuid.UUID          `json:"id"`
	CompanyID        uuid.UUID          `json:"company_id"`
	OriginalRecordID uuid.UUID          `json:"original_record_id"`
	RecordType       string             `json:"record_type"`
	AmendmentType    string             `json:"amendment_type"`
	Urgency          string             `json:"urgency"`
	PreviousVersion  audit.JSONMap      `json:"previous_version,omitempty"`
	NewVersion       audit.JSONMap      `json:"new_version,omitempty"`
	Changes          audit.FieldChanges `json:"changes,omitempty"`
	Reason           string             `json:"reason"`
	AmendedBy        uuid.UUID          `json:"amended_by"`
	AmendedAt        time.Time          `json:"amended_at"`
	Status           string             `json:"status"`
	ReviewedBy       *uuid.UUID         `json:"reviewed_by,omitempty"`
	ReviewedAt       *time.Time         `json:"reviewed_at,omitempty"`
	ReviewNote       string             `json:"review_note,omitempty"`
	NewRecordID      *uuid.UUID         `json:"new_record_id,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
	Version          int                `json:"version"`
}

// NewAmendmentResponse maps an amendment to its API representation
func NewAmendmentResponse(amendment *audit.AmendmentRecord) *AmendmentResponse {
	return &AmendmentResponse{
		ID:               amendment.ID,
		CompanyID:        amendment.CompanyID,
		OriginalRecordID: amendment.OriginalRecordID,
		RecordType:       amendment.RecordType,
		AmendmentType:    string(amendment.AmendmentType),
		Urgency:          string(amendment.Urgency),
		PreviousVersion:  amendment.PreviousVersion,
		NewVersion:       amendment.NewVersion,
		Changes:          amendment.Changes,
		Reason:           amendment.Reason,
		AmendedBy:        amendment.AmendedBy,
		AmendedAt:        amendment.AmendedAt,
		Status:           string(amendment.Status),
		ReviewedBy:       amendment.ReviewedBy,
		ReviewedAt:       amendment.ReviewedAt,
		ReviewNote:       amendment.ReviewNote,
		NewRecordID:      amendment.NewRecordID,
		CreatedAt:        amendment.CreatedAt,
		UpdatedAt:        amendment.UpdatedAt,
		Version:          amendment.Version,
	}
}

// TypeBreakdownResponse represents one calculation type's rollup
type TypeBreakdownResponse struct {
	Count  int64           `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// SummaryReportResponse represents a summary report in API responses
type SummaryReportResponse struct {
	ID                uuid.UUID                        `json:"id"`
	CompanyID         uuid.UUID                        `json:"company_id"`
	ReportType        string                           `json:"report_type"`
	ReportPeriod      string                           `json:"report_period"`
	CalculationType   *string                          `json:"calculation_type,omitempty"`
	TotalCalculations int64                            `json:"total_calculations"`
	TotalTaxAmount    decimal.Decimal                  `json:"total_tax_amount"`
	Currency          string                           `json:"currency"`
	Breakdown         map[string]TypeBreakdownResponse `json:"breakdown_by_type"`
	AverageAmount     decimal.Decimal                  `json:"average_amount"`
	ComplianceRate    decimal.Decimal                  `json:"compliance_rate"`
	AmendmentRate     decimal.Decimal                  `json:"amendment_rate"`
	GeneratedBy       uuid.UUID                        `json:"generated_by"`
	GeneratedAt       time.Time                        `json:"generated_at"`
	ExportedAt        *time.Time                       `json:"exported_at,omitempty"`
	ExportFormat      string                           `json:"export_format,omitempty"`
	ExportPath        string                           `json:"export_path,omitempty"`
	CreatedAt         time.Time                        `json:"created_at"`
	Version           int                              `json:"version"`
}

// NewSummaryReportResponse maps a report to its API representation
func NewSummaryReportResponse(report *audit.SummaryReport) *SummaryReportResponse {
	resp := &SummaryReportResponse{
		ID:                report.ID,
		CompanyID:         report.CompanyID,
		ReportType:        report.ReportType,
		ReportPeriod:      report.ReportPeriod,
		TotalCalculations: report.TotalCalculations,
		TotalTaxAmount:    report.TotalTaxAmount,
		Currency:          string(report.Currency),
		Breakdown:         make(map[string]TypeBreakdownResponse, len(report.Breakdown)),
		AverageAmount:     report.AverageAmount,
		ComplianceRate:    report.ComplianceRate,
		AmendmentRate:     report.AmendmentRate,
		GeneratedBy:       report.GeneratedBy,
		GeneratedAt:       report.GeneratedAt,
		ExportedAt:        report.ExportedAt,
		ExportFormat:      report.ExportFormat,
		ExportPath:        report.ExportPath,
		CreatedAt:         report.CreatedAt,
		Version:           report.Version,
	}
	if report.CalculationType != nil {
		ct := string(*report.CalculationType)
		resp.CalculationType = &ct
	}
	for calcType, tb := range report.Breakdown {
		resp.Breakdown[string(calcType)] = TypeBreakdownResponse{Count: tb.Count, Amount: tb.Amount}
	}
	return resp
}
