package export

import (
	"fmt"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/taxfiling/backend/internal/domain/audit"
)

// XLSXEncoder renders a two-sheet workbook: a Summary sheet with the
// report rollup and per-type breakdown, and a Records sheet mirroring the
// CSV layout. Step columns follow the same breakdown rule as CSV.
type XLSXEncoder struct{}

func (e *XLSXEncoder) Format() Format        { return FormatXLSX }
func (e *XLSXEncoder) ContentType() string   { return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" }
func (e *XLSXEncoder) FileExtension() string { return "xlsx" }

const (
	sheetSummary = "Summary"
	sheetRecords = "Records"
)

// Encode renders the document as an XLSX workbook
func (e *XLSXEncoder) Encode(doc *Document) ([]byte, error) {
	if doc == nil || doc.Report == nil {
		return nil, fmt.Errorf("export document requires a report")
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return nil, fmt.Errorf("failed to name summary sheet: %w", err)
	}
	if _, err := f.NewSheet(sheetRecords); err != nil {
		return nil, fmt.Errorf("failed to create records sheet: %w", err)
	}

	if err := e.writeSummary(f, doc); err != nil {
		return nil, err
	}
	if err := e.writeRecords(f, doc); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *XLSXEncoder) writeSummary(f *excelize.File, doc *Document) error {
	report := doc.Report

	rows := [][]interface{}{
		{"Report ID", report.ID.String()},
		{"Company ID", report.CompanyID.String()},
		{"Report Type", report.ReportType},
		{"Report Period", report.ReportPeriod},
		{"Total Calculations", report.TotalCalculations},
		{"Total Tax Amount", report.TotalTaxAmount.String()},
		{"Currency", string(report.Currency)},
		{"Average Amount", report.AverageAmount.String()},
		{"Compliance Rate (%)", report.ComplianceRate.String()},
		{"Amendment Rate (%)", report.AmendmentRate.String()},
		{"Generated By", report.GeneratedBy.String()},
		{"Generated At", report.GeneratedAt.UTC().Format(time.RFC3339)},
	}
	if report.CalculationType != nil {
		rows = append(rows, []interface{}{"Calculation Type", string(*report.CalculationType)})
	}

	row := 1
	for _, pair := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sheetSummary, cell, &pair); err != nil {
			return fmt.Errorf("failed to write summary row: %w", err)
		}
		row++
	}

	// Per-type breakdown table below the rollup
	row++
	header := []interface{}{"Calculation Type", "Count", "Amount"}
	cell, _ := excelize.CoordinatesToCellName(1, row)
	if err := f.SetSheetRow(sheetSummary, cell, &header); err != nil {
		return fmt.Errorf("failed to write breakdown header: %w", err)
	}
	row++

	types := make([]string, 0, len(report.Breakdown))
	for calcType := range report.Breakdown {
		types = append(types, string(calcType))
	}
	sort.Strings(types)
	for _, calcType := range types {
		tb := report.Breakdown[audit.CalculationType(calcType)]
		line := []interface{}{calcType, tb.Count, tb.Amount.String()}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sheetSummary, cell, &line); err != nil {
			return fmt.Errorf("failed to write breakdown row: %w", err)
		}
		row++
	}

	return nil
}

func (e *XLSXEncoder) writeRecords(f *excelize.File, doc *Document) error {
	header := make([]interface{}, 0, len(csvRecordColumns)+len(csvStepColumns))
	for _, col := range csvRecordColumns {
		header = append(header, col)
	}
	if doc.IncludeBreakdown {
		for _, col := range csvStepColumns {
			header = append(header, col)
		}
	}
	cell, _ := excelize.CoordinatesToCellName(1, 1)
	if err := f.SetSheetRow(sheetRecords, cell, &header); err != nil {
		return fmt.Errorf("failed to write records header: %w", err)
	}

	row := 2
	for i := range doc.Records {
		record := &doc.Records[i]
		base := []interface{}{
			record.ID.String(),
			record.CalculationVersion,
			string(record.CalculationType),
			refID(record.ReferenceID),
			record.TotalAmount.String(),
			string(record.Currency),
			record.MethodUsed,
			record.Compliant,
			record.RegulatoryReference,
			string(record.Status),
			record.CreatedAt.UTC().Format(time.RFC3339),
		}

		if !doc.IncludeBreakdown {
			cell, _ := excelize.CoordinatesToCellName(1, row)
			if err := f.SetSheetRow(sheetRecords, cell, &base); err != nil {
				return fmt.Errorf("failed to write record row: %w", err)
			}
			row++
			continue
		}

		for _, step := range record.Steps {
			line := append(append([]interface{}{}, base...),
				step.StepNumber,
				step.Description,
				step.Formula,
				step.Result.String(),
				string(step.Currency),
			)
			cell, _ := excelize.CoordinatesToCellName(1, row)
			if err := f.SetSheetRow(sheetRecords, cell, &line); err != nil {
				return fmt.Errorf("failed to write record row: %w", err)
			}
			row++
		}
	}

	return nil
}
