package audit

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// CalculationType classifies the tax computation a record captures
type CalculationType string

const (
	CalculationTypeVAT             CalculationType = "VAT"
	CalculationTypeCIT             CalculationType = "CIT"
	CalculationTypeTransferPricing CalculationType = "TRANSFER_PRICING"
	CalculationTypeDMTT            CalculationType = "DMTT"
	CalculationTypePenalty         CalculationType = "PENALTY"
	CalculationTypeOther           CalculationType = "OTHER"
)

// IsValid reports whether the calculation type is a known value
func (t CalculationType) IsValid() bool {
	switch t {
	case CalculationTypeVAT, CalculationTypeCIT, CalculationTypeTransferPricing,
		CalculationTypeDMTT, CalculationTypePenalty, CalculationTypeOther:
		return true
	}
	return false
}

// AllCalculationTypes lists every supported calculation type
func AllCalculationTypes() []CalculationType {
	return []CalculationType{
		CalculationTypeVAT,
		CalculationTypeCIT,
		CalculationTypeTransferPricing,
		CalculationTypeDMTT,
		CalculationTypePenalty,
		CalculationTypeOther,
	}
}

// RecordStatus represents the lifecycle state of a calculation record
type RecordStatus string

const (
	RecordStatusActive     RecordStatus = "ACTIVE"
	RecordStatusSuperseded RecordStatus = "SUPERSEDED"
	RecordStatusDisputed   RecordStatus = "DISPUTED"
)

// IsValid reports whether the record status is a known value
func (s RecordStatus) IsValid() bool {
	switch s {
	case RecordStatusActive, RecordStatusSuperseded, RecordStatusDisputed:
		return true
	}
	return false
}

// AmendmentType classifies what kind of change an amendment requests
type AmendmentType string

const (
	AmendmentTypeCorrection       AmendmentType = "CORRECTION"
	AmendmentTypeReclassification AmendmentType = "RECLASSIFICATION"
	AmendmentTypeWithdrawal       AmendmentType = "WITHDRAWAL"
)

// IsValid reports whether the amendment type is a known value
func (t AmendmentType) IsValid() bool {
	switch t {
	case AmendmentTypeCorrection, AmendmentTypeReclassification, AmendmentTypeWithdrawal:
		return true
	}
	return false
}

// AmendmentStatus represents the review state of an amendment
type AmendmentStatus string

const (
	AmendmentStatusPending  AmendmentStatus = "PENDING"
	AmendmentStatusApproved AmendmentStatus = "APPROVED"
	AmendmentStatusRejected AmendmentStatus = "REJECTED"
	// AmendmentStatusSuperseded marks a previously approved amendment that was
	// displaced when a later amendment for the same original was approved.
	AmendmentStatusSuperseded AmendmentStatus = "SUPERSEDED"
)

// IsValid reports whether the amendment status is a known value
func (s AmendmentStatus) IsValid() bool {
	switch s {
	case AmendmentStatusPending, AmendmentStatusApproved, AmendmentStatusRejected, AmendmentStatusSuperseded:
		return true
	}
	return false
}

// IsTerminal reports whether no further review transition is allowed
func (s AmendmentStatus) IsTerminal() bool {
	return s == AmendmentStatusApproved || s == AmendmentStatusRejected || s == AmendmentStatusSuperseded
}

// Urgency is a scheduling hint for the human review queue.
// It never changes the review outcome: even CRITICAL amendments start PENDING.
type Urgency string

const (
	UrgencyLow      Urgency = "LOW"
	UrgencyNormal   Urgency = "NORMAL"
	UrgencyHigh     Urgency = "HIGH"
	UrgencyCritical Urgency = "CRITICAL"
)

// IsValid reports whether the urgency is a known value
func (u Urgency) IsValid() bool {
	switch u {
	case UrgencyLow, UrgencyNormal, UrgencyHigh, UrgencyCritical:
		return true
	}
	return false
}

// JSONMap is an opaque key/value payload stored verbatim as JSONB.
// Calculator-specific input fields pass through the engine untouched;
// once attached to a record the map is write-once.
type JSONMap map[string]any

// Value implements driver.Valuer interface for GORM to store as JSONB
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner interface for GORM to read from JSONB
func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = JSONMap{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan JSONMap: unsupported type")
	}

	if len(bytes) == 0 {
		*m = JSONMap{}
		return nil
	}
	return json.Unmarshal(bytes, m)
}

// Clone returns a deep copy of the map via a JSON round trip.
// Fetched payloads are read-only; callers that need to derive a new
// version must work on a clone.
func (m JSONMap) Clone() JSONMap {
	if m == nil {
		return JSONMap{}
	}
	data, err := json.Marshal(m)
	if err != nil {
		return JSONMap{}
	}
	var out JSONMap
	if err := json.Unmarshal(data, &out); err != nil {
		return JSONMap{}
	}
	return out
}

// FieldChange is one entry of an amendment's denormalized change summary
type FieldChange struct {
	Field    string `json:"field"`
	OldValue any    `json:"old_value"`
	NewValue any    `json:"new_value"`
	Reason   string `json:"reason"`
}

// FieldChanges is the JSONB-stored list of field changes
type FieldChanges []FieldChange

// Value implements driver.Valuer interface for GORM to store as JSONB
func (c FieldChanges) Value() (driver.Value, error) {
	if c == nil {
		return "[]", nil
	}
	return json.Marshal(c)
}

// Scan implements sql.Scanner interface for GORM to read from JSONB
func (c *FieldChanges) Scan(value interface{}) error {
	if value == nil {
		*c = FieldChanges{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan FieldChanges: unsupported type")
	}

	if len(bytes) == 0 {
		*c = FieldChanges{}
		return nil
	}
	return json.Unmarshal(bytes, c)
}

// DeriveFieldChanges computes the change summary from a previous and a
// proposed payload. The summary is a cache for audit display; it must always
// be re-derivable from the two payloads, so derivation is deterministic
// (fields sorted by name, values compared by JSON encoding).
func DeriveFieldChanges(previous, proposed JSONMap, reason string) FieldChanges {
	changes := make(FieldChanges, 0, len(proposed))
	for _, field := range sortedKeys(proposed) {
		newValue := proposed[field]
		oldValue, existed := previous[field]
		if existed && jsonEqual(oldValue, newValue) {
			continue
		}
		if !existed {
			oldValue = nil
		}
		changes = append(changes, FieldChange{
			Field:    field,
			OldValue: oldValue,
			NewValue: newValue,
			Reason:   reason,
		})
	}
	return changes
}

func sortedKeys(m JSONMap) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j] < keys[j-1]; j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
	return keys
}

func jsonEqual(a, b any) bool {
	aj, errA := json.Marshal(a)
	bj, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return string(aj) == string(bj)
}

// TypeBreakdown accumulates count and amount for one calculation type
type TypeBreakdown struct {
	Count  int64           `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// TypeBreakdowns is the JSONB-stored per-type rollup of a summary report
type TypeBreakdowns map[CalculationType]TypeBreakdown

// Value implements driver.Valuer interface for GORM to store as JSONB
func (b TypeBreakdowns) Value() (driver.Value, error) {
	if b == nil {
		return "{}", nil
	}
	return json.Marshal(b)
}

// Scan implements sql.Scanner interface for GORM to read from JSONB
func (b *TypeBreakdowns) Scan(value interface{}) error {
	if value == nil {
		*b = TypeBreakdowns{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("failed to scan TypeBreakdowns: unsupported type %T", value)
	}

	if len(bytes) == 0 {
		*b = TypeBreakdowns{}
		return nil
	}
	return json.Unmarshal(bytes, b)
}
