// Package export turns summary reports and their backing calculation
// records into downloadable artifacts (JSON, CSV, XLSX) and stores them.
package export

import (
	"sort"
	"strings"

	"github.com/taxfiling/backend/internal/domain/audit"
)

// Format identifies an export encoding
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// Document is everything an encoder needs to render one export artifact.
// Records are the calculation records backing the report's period, in
// creation order. When IncludeBreakdown is false the per-step detail is
// left out of the artifact entirely.
type Document struct {
	Report           *audit.SummaryReport
	Records          []audit.CalculationRecord
	IncludeBreakdown bool
}

// Encoder renders a Document into one concrete file format
type Encoder interface {
	Format() Format
	ContentType() string
	FileExtension() string
	Encode(doc *Document) ([]byte, error)
}

// Registry maps format names to encoders
type Registry struct {
	encoders map[Format]Encoder
}

// NewRegistry creates a registry with all built-in encoders registered
func NewRegistry() *Registry {
	r := &Registry{encoders: make(map[Format]Encoder)}
	r.Register(&JSONEncoder{})
	r.Register(&CSVEncoder{})
	r.Register(&XLSXEncoder{})
	return r
}

// Register adds an encoder, replacing any previous one for the same format
func (r *Registry) Register(e Encoder) {
	r.encoders[e.Format()] = e
}

// Encoder looks up the encoder for a format name (case-insensitive)
func (r *Registry) Encoder(format string) (Encoder, bool) {
	e, ok := r.encoders[Format(strings.ToLower(format))]
	return e, ok
}

// Formats returns the supported format names, sorted
func (r *Registry) Formats() []string {
	names := make([]string, 0, len(r.encoders))
	for f := range r.encoders {
		names = append(names, string(f))
	}
	sort.Strings(names)
	return names
}
