package export

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/taxfiling/backend/internal/domain/audit"
)

// JSONEncoder renders the full structured document: report rollup plus
// every backing record, with nested breakdown steps when requested.
type JSONEncoder struct{}

func (e *JSONEncoder) Format() Format        { return FormatJSON }
func (e *JSONEncoder) ContentType() string   { return "application/json" }
func (e *JSONEncoder) FileExtension() string { return "json" }

type jsonReport struct {
	ReportID          string                       `json:"report_id"`
	CompanyID         string                       `json:"company_id"`
	ReportType        string                       `json:"report_type"`
	ReportPeriod      string                       `json:"report_period"`
	CalculationType   *string                      `json:"calculation_type,omitempty"`
	TotalCalculations int64                        `json:"total_calculations"`
	TotalTaxAmount    decimal.Decimal              `json:"total_tax_amount"`
	Currency          string                       `json:"currency"`
	AverageAmount     decimal.Decimal              `json:"average_amount"`
	ComplianceRate    decimal.Decimal              `json:"compliance_rate"`
	AmendmentRate     decimal.Decimal              `json:"amendment_rate"`
	Breakdown         map[string]jsonTypeBreakdown `json:"breakdown_by_type"`
	GeneratedBy       string                       `json:"generated_by"`
	GeneratedAt       time.Time                    `json:"generated_at"`
}

type jsonTypeBreakdown struct {
	Count  int64           `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

type jsonRecord struct {
	RecordID            string          `json:"record_id"`
	CalculationVersion  string          `json:"calculation_version"`
	CalculationType     string          `json:"calculation_type"`
	ReferenceID         *string         `json:"reference_id,omitempty"`
	TotalAmount         decimal.Decimal `json:"total_amount"`
	Currency            string          `json:"currency"`
	MethodUsed          string          `json:"method_used"`
	Compliant           bool            `json:"compliant"`
	RegulatoryReference string          `json:"regulatory_reference,omitempty"`
	Status              string          `json:"status"`
	CreatedAt           time.Time       `json:"created_at"`
	InputData           audit.JSONMap   `json:"input_data,omitempty"`
	Steps               []jsonStep      `json:"breakdown,omitempty"`
}

type jsonStep struct {
	StepNumber     int             `json:"step_number"`
	Description    string          `json:"description"`
	Formula        string          `json:"formula,omitempty"`
	InputValues    audit.JSONMap   `json:"input_values,omitempty"`
	Calculation    string          `json:"calculation,omitempty"`
	Result         decimal.Decimal `json:"result"`
	Currency       string          `json:"currency"`
	RegulatoryNote string          `json:"regulatory_note,omitempty"`
}

type jsonDocument struct {
	Report  jsonReport   `json:"report"`
	Records []jsonRecord `json:"records"`
}

// Encode renders the document as indented JSON
func (e *JSONEncoder) Encode(doc *Document) ([]byte, error) {
	if doc == nil || doc.Report == nil {
		return nil, fmt.Errorf("export document requires a report")
	}

	report := doc.Report
	out := jsonDocument{
		Report: jsonReport{
			ReportID:          report.ID.String(),
			CompanyID:         report.CompanyID.String(),
			ReportType:        report.ReportType,
			ReportPeriod:      report.ReportPeriod,
			TotalCalculations: report.TotalCalculations,
			TotalTaxAmount:    report.TotalTaxAmount,
			Currency:          string(report.Currency),
			AverageAmount:     report.AverageAmount,
			ComplianceRate:    report.ComplianceRate,
			AmendmentRate:     report.AmendmentRate,
			Breakdown:         make(map[string]jsonTypeBreakdown, len(report.Breakdown)),
			GeneratedBy:       report.GeneratedBy.String(),
			GeneratedAt:       report.GeneratedAt,
		},
		Records: make([]jsonRecord, 0, len(doc.Records)),
	}
	if report.CalculationType != nil {
		ct := string(*report.CalculationType)
		out.Report.CalculationType = &ct
	}
	for calcType, tb := range report.Breakdown {
		out.Report.Breakdown[string(calcType)] = jsonTypeBreakdown{Count: tb.Count, Amount: tb.Amount}
	}

	for i := range doc.Records {
		record := &doc.Records[i]
		jr := jsonRecord{
			RecordID:            record.ID.String(),
			CalculationVersion:  record.CalculationVersion,
			CalculationType:     string(record.CalculationType),
			TotalAmount:         record.TotalAmount,
			Currency:            string(record.Currency),
			MethodUsed:          record.MethodUsed,
			Compliant:           record.Compliant,
			RegulatoryReference: record.RegulatoryReference,
			Status:              string(record.Status),
			CreatedAt:           record.CreatedAt,
		}
		if record.ReferenceID != nil {
			ref := record.ReferenceID.String()
			jr.ReferenceID = &ref
		}
		if doc.IncludeBreakdown {
			jr.InputData = record.InputData
			jr.Steps = make([]jsonStep, 0, len(record.Steps))
			for _, step := range record.Steps {
				jr.Steps = append(jr.Steps, jsonStep{
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
		out.Records = append(out.Records, jr)
	}

	return json.MarshalIndent(out, "", "  ")
}
