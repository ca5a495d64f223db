package audit

import (
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/taxfiling/backend/internal/domain/shared"
	"github.com/taxfiling/backend/internal/domain/shared/valueobject"
)

var reportPeriodPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// ParseReportPeriod validates a YYYY-MM period and returns its half-open
// calendar month interval [start, end).
func ParseReportPeriod(period string) (start, end time.Time, err error) {
	if !reportPeriodPattern.MatchString(period) {
		return time.Time{}, time.Time{}, shared.NewDomainError("INVALID_PERIOD",
			fmt.Sprintf("Report period must be YYYY-MM, got %q", period))
	}
	start, err = time.Parse("2006-01", period)
	if err != nil {
		return time.Time{}, time.Time{}, shared.NewDomainError("INVALID_PERIOD",
			fmt.Sprintf("Report period must be YYYY-MM, got %q", period))
	}
	return start, start.AddDate(0, 1, 0), nil
}

// SummaryReport is a derived, point-in-time rollup of calculation records
// for a company and period. It is a read model: rebuildable from the record
// store at any time and never authoritative. Re-running a period produces a
// new report row; the only post-creation mutation is export metadata.
type SummaryReport struct {
	shared.CompanyAggregateRoot
	ReportType        string               `gorm:"type:varchar(50);not null;index"`
	ReportPeriod      string               `gorm:"type:varchar(7);not null;index"`
	PeriodStart       time.Time            `gorm:"not null"`
	PeriodEnd         time.Time            `gorm:"not null"`
	CalculationType   *CalculationType     `gorm:"type:varchar(20)"`
	TotalCalculations int64                `gorm:"not null;default:0"`
	TotalTaxAmount    decimal.Decimal      `gorm:"type:decimal(20,4);not null;default:0"`
	Currency          valueobject.Currency `gorm:"type:varchar(3);not null"`
	Breakdown         TypeBreakdowns       `gorm:"type:jsonb;default:'{}'"`
	AverageAmount     decimal.Decimal      `gorm:"type:decimal(20,4);not null;default:0"`
	ComplianceRate    decimal.Decimal      `gorm:"type:decimal(10,4);not null;default:0"`
	AmendmentRate     decimal.Decimal      `gorm:"type:decimal(10,4);not null;default:0"`
	GeneratedBy       uuid.UUID            `gorm:"type:uuid;not null"`
	GeneratedAt       time.Time            `gorm:"not null;index"`
	ExportedAt        *time.Time
	ExportFormat      string `gorm:"type:varchar(20)"`
	ExportPath        string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (SummaryReport) TableName() string {
	return "summary_reports"
}

// SummaryInput carries the aggregated values computed by the reporting engine
type SummaryInput struct {
	ReportType        string
	ReportPeriod      string
	PeriodStart       time.Time
	PeriodEnd         time.Time
	CalculationType   *CalculationType
	TotalCalculations int64
	TotalTaxAmount    decimal.Decimal
	Currency          valueobject.Currency
	Breakdown         TypeBreakdowns
	AverageAmount     decimal.Decimal
	ComplianceRate    decimal.Decimal
	AmendmentRate     decimal.Decimal
}

// NewSummaryReport creates a new summary report snapshot
func NewSummaryReport(companyID, generatedBy uuid.UUID, input SummaryInput) (*SummaryReport, error) {
	if companyID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_COMPANY", "Company ID cannot be empty")
	}
	if generatedBy == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "Generating user ID is required")
	}
	if input.ReportType == "" {
		return nil, shared.NewDomainError("INVALID_REPORT_TYPE", "Report type cannot be empty")
	}
	if !reportPeriodPattern.MatchString(input.ReportPeriod) {
		return nil, shared.NewDomainError("INVALID_PERIOD",
			fmt.Sprintf("Report period must be YYYY-MM, got %q", input.ReportPeriod))
	}
	if input.Currency == "" {
		input.Currency = valueobject.DefaultCurrency
	}
	if input.Breakdown == nil {
		input.Breakdown = TypeBreakdowns{}
	}

	report := &SummaryReport{
		CompanyAggregateRoot: shared.NewCompanyAggregateRootWithCreator(companyID, generatedBy),
		ReportType:           input.ReportType,
		ReportPeriod:         input.ReportPeriod,
		PeriodStart:          input.PeriodStart,
		PeriodEnd:            input.PeriodEnd,
		CalculationType:      input.CalculationType,
		TotalCalculations:    input.TotalCalculations,
		TotalTaxAmount:       input.TotalTaxAmount,
		Currency:             input.Currency,
		Breakdown:            input.Breakdown,
		AverageAmount:        input.AverageAmount,
		ComplianceRate:       input.ComplianceRate,
		AmendmentRate:        input.AmendmentRate,
		GeneratedBy:          generatedBy,
		GeneratedAt:          time.Now(),
	}
	return report, nil
}

// AttachExport stamps export metadata on the report. Last export wins;
// attaching never creates a new report row.
func (r *SummaryReport) AttachExport(format, path string, exportedAt time.Time) error {
	if format == "" {
		return shared.NewDomainError("INVALID_FORMAT", "Export format cannot be empty")
	}
	if path == "" {
		return shared.NewDomainError("INVALID_PATH", "Export path cannot be empty")
	}
	r.ExportedAt = &exportedAt
	r.ExportFormat = format
	r.ExportPath = path
	r.UpdatedAt = exportedAt
	r.IncrementVersion()
	return nil
}

// IsExported reports whether the report has at least one recorded export
func (r *SummaryReport) IsExported() bool {
	return r.ExportedAt != nil
}
