package dto

import (
	"net/http"
	"strings"
)

// General error codes
const (
	ErrCodeInternal   = "INTERNAL_ERROR"
	ErrCodeBadRequest = "BAD_REQUEST"
	ErrCodeValidation = "VALIDATION_ERROR"
	ErrCodeNotFound   = "NOT_FOUND"
)

// domainErrorHTTPStatus maps the domain error codes raised by the audit
// services to HTTP status codes. Codes absent here fall through to the
// prefix rules in GetHTTPStatus.
var domainErrorHTTPStatus = map[string]int{
	ErrCodeNotFound:        http.StatusNotFound,
	"RECORD_NOT_FOUND":     http.StatusNotFound,
	"AMENDMENT_NOT_FOUND":  http.StatusNotFound,
	"REPORT_NOT_FOUND":     http.StatusNotFound,
	"NOT_EXPORTED":         http.StatusNotFound,
	"CONCURRENCY_CONFLICT": http.StatusConflict,
	"INVALID_STATE":        http.StatusConflict,
	"UNSUPPORTED_FORMAT":   http.StatusUnprocessableEntity,
	"UNAMENDABLE_FIELD":    http.StatusUnprocessableEntity,
	"EMPTY_BREAKDOWN":      http.StatusBadRequest,
	"STORAGE_FAILED":       http.StatusInternalServerError,
	"PERSISTENCE_FAILED":   http.StatusInternalServerError,
	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInternal:        http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for a domain error code.
// INVALID_* codes are client mistakes, everything unknown is a 500.
func GetHTTPStatus(code string) int {
	if status, ok := domainErrorHTTPStatus[code]; ok {
		return status
	}
	if strings.HasPrefix(code, "INVALID_") {
		return http.StatusBadRequest
	}
	if strings.HasSuffix(code, "_NOT_FOUND") {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
