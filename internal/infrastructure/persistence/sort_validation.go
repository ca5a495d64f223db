package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// CalculationRecordSortFields contains allowed sort fields for calculation records
var CalculationRecordSortFields = map[string]bool{
	"id":                  true,
	"created_at":          true,
	"updated_at":          true,
	"calculation_version": true,
	"calculation_type":    true,
	"total_amount":        true,
	"status":              true,
}

// AmendmentSortFields contains allowed sort fields for amendment records
var AmendmentSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"amended_at": true,
	"status":     true,
	"urgency":    true,
}

// SummaryReportSortFields contains allowed sort fields for summary reports
var SummaryReportSortFields = map[string]bool{
	"id":            true,
	"created_at":    true,
	"generated_at":  true,
	"report_period": true,
	"report_type":   true,
}
