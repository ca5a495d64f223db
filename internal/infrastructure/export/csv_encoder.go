package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// CSVEncoder renders a flat tabular view of the report's records. Without
// breakdown it emits one row per record with a fixed column set; with
// breakdown it emits one row per (record, step) pair and appends the step
// columns. Step columns never appear in the header when breakdown is off.
type CSVEncoder struct{}

func (e *CSVEncoder) Format() Format        { return FormatCSV }
func (e *CSVEncoder) ContentType() string   { return "text/csv" }
func (e *CSVEncoder) FileExtension() string { return "csv" }

var csvRecordColumns = []string{
	"record_id",
	"calculation_version",
	"calculation_type",
	"reference_id",
	"total_amount",
	"currency",
	"method_used",
	"compliant",
	"regulatory_reference",
	"status",
	"created_at",
}

var csvStepColumns = []string{
	"step_number",
	"step_description",
	"step_formula",
	"step_result",
	"step_currency",
}

// Encode renders the document as CSV
func (e *CSVEncoder) Encode(doc *Document) ([]byte, error) {
	if doc == nil || doc.Report == nil {
		return nil, fmt.Errorf("export document requires a report")
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := csvRecordColumns
	if doc.IncludeBreakdown {
		header = append(append([]string{}, csvRecordColumns...), csvStepColumns...)
	}
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}

	for i := range doc.Records {
		record := &doc.Records[i]
		base := []string{
			record.ID.String(),
			record.CalculationVersion,
			string(record.CalculationType),
			refID(record.ReferenceID),
			record.TotalAmount.String(),
			string(record.Currency),
			record.MethodUsed,
			strconv.FormatBool(record.Compliant),
			record.RegulatoryReference,
			string(record.Status),
			record.CreatedAt.UTC().Format(time.RFC3339),
		}

		if !doc.IncludeBreakdown {
			if err := w.Write(base); err != nil {
				return nil, fmt.Errorf("failed to write csv row: %w", err)
			}
			continue
		}

		for _, step := range record.Steps {
			row := append(append([]string{}, base...),
				strconv.Itoa(step.StepNumber),
				step.Description,
				step.Formula,
				step.Result.String(),
				string(step.Currency),
			)
			if err := w.Write(row); err != nil {
				return nil, fmt.Errorf("failed to write csv row: %w", err)
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func refID(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
