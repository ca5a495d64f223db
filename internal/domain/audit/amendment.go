package audit

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/taxfiling/backend/internal/domain/shared"
)

// RecordTypeCalculation is the record type for amendments against
// calculation records. Filings amended through the same queue use their
// own record type.
const RecordTypeCalculation = "CALCULATION"

// AmendmentRecord is a reviewed request to supersede a prior record
// without destroying it. State machine: PENDING -> APPROVED or
// PENDING -> REJECTED, both terminal. An APPROVED amendment may later be
// marked SUPERSEDED when a newer amendment for the same original is
// approved; at most one amendment per original is APPROVED at a time.
type AmendmentRecord struct {
	shared.CompanyAggregateRoot
	OriginalRecordID uuid.UUID       `gorm:"type:uuid;not null;index"`
	RecordType       string          `gorm:"type:varchar(30);not null"`
	AmendmentType    AmendmentType   `gorm:"type:varchar(20);not null"`
	Urgency          Urgency         `gorm:"type:varchar(10);not null;default:'NORMAL'"`
	PreviousVersion  JSONMap         `gorm:"type:jsonb;default:'{}'"`
	NewVersion       JSONMap         `gorm:"type:jsonb;default:'{}'"`
	Changes          FieldChanges    `gorm:"type:jsonb;default:'[]'"`
	Reason           string          `gorm:"type:varchar(1000);not null"`
	AmendedBy        uuid.UUID       `gorm:"type:uuid;not null;index"`
	AmendedAt        time.Time       `gorm:"not null;index"`
	Status           AmendmentStatus `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	ReviewedBy       *uuid.UUID      `gorm:"type:uuid"`
	ReviewedAt       *time.Time
	ReviewNote       string     `gorm:"type:varchar(1000)"`
	NewRecordID      *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (AmendmentRecord) TableName() string {
	return "amendment_records"
}

// NewAmendmentRecord creates a new pending amendment against an original record.
// Urgency is a queue hint only; every amendment starts PENDING.
func NewAmendmentRecord(
	companyID uuid.UUID,
	originalRecordID uuid.UUID,
	recordType string,
	amendmentType AmendmentType,
	urgency Urgency,
	previousVersion JSONMap,
	newVersion JSONMap,
	reason string,
	amendedBy uuid.UUID,
) (*AmendmentRecord, error) {
	if companyID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_COMPANY", "Company ID cannot be empty")
	}
	if originalRecordID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ORIGINAL", "Original record ID cannot be empty")
	}
	if recordType == "" {
		return nil, shared.NewDomainError("INVALID_RECORD_TYPE", "Record type cannot be empty")
	}
	if !amendmentType.IsValid() {
		return nil, shared.NewDomainError("INVALID_AMENDMENT_TYPE",
			fmt.Sprintf("Unknown amendment type %q", amendmentType))
	}
	if urgency == "" {
		urgency = UrgencyNormal
	}
	if !urgency.IsValid() {
		return nil, shared.NewDomainError("INVALID_URGENCY",
			fmt.Sprintf("Unknown urgency %q", urgency))
	}
	if len(newVersion) == 0 {
		return nil, shared.NewDomainError("EMPTY_AMENDMENT", "Amendment must propose at least one change")
	}
	if reason == "" {
		return nil, shared.NewDomainError("INVALID_REASON", "Amendment reason cannot be empty")
	}
	if amendedBy == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "Amending user ID is required")
	}

	return &AmendmentRecord{
		CompanyAggregateRoot: shared.NewCompanyAggregateRootWithCreator(companyID, amendedBy),
		OriginalRecordID:     originalRecordID,
		RecordType:           recordType,
		AmendmentType:        amendmentType,
		Urgency:              urgency,
		PreviousVersion:      previousVersion.Clone(),
		NewVersion:           newVersion.Clone(),
		Changes:              DeriveFieldChanges(previousVersion, newVersion, reason),
		Reason:               reason,
		AmendedBy:            amendedBy,
		AmendedAt:            time.Now(),
		Status:               AmendmentStatusPending,
	}, nil
}

// Approve transitions the amendment PENDING -> APPROVED, recording the
// reviewer and the replacement record it produced.
func (a *AmendmentRecord) Approve(reviewer uuid.UUID, newRecordID uuid.UUID) error {
	if reviewer == uuid.Nil {
		return shared.NewDomainError("INVALID_USER", "Reviewing user ID is required")
	}
	if newRecordID == uuid.Nil {
		return shared.NewDomainError("INVALID_RECORD", "Replacement record ID is required")
	}
	if a.Status != AmendmentStatusPending {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot approve amendment in %s status", a.Status))
	}
	now := time.Now()
	a.Status = AmendmentStatusApproved
	a.ReviewedBy = &reviewer
	a.ReviewedAt = &now
	a.NewRecordID = &newRecordID
	a.UpdatedAt = now
	a.IncrementVersion()
	return nil
}

// Reject transitions the amendment PENDING -> REJECTED with a reviewer note
func (a *AmendmentRecord) Reject(reviewer uuid.UUID, note string) error {
	if reviewer == uuid.Nil {
		return shared.NewDomainError("INVALID_USER", "Reviewing user ID is required")
	}
	if a.Status != AmendmentStatusPending {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot reject amendment in %s status", a.Status))
	}
	now := time.Now()
	a.Status = AmendmentStatusRejected
	a.ReviewedBy = &reviewer
	a.ReviewedAt = &now
	a.ReviewNote = note
	a.UpdatedAt = now
	a.IncrementVersion()
	return nil
}

// MarkSuperseded displaces a previously approved amendment when a newer
// amendment for the same original is approved.
func (a *AmendmentRecord) MarkSuperseded() error {
	if a.Status != AmendmentStatusApproved {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Only approved amendments can be superseded, not %s", a.Status))
	}
	a.Status = AmendmentStatusSuperseded
	a.UpdatedAt = time.Now()
	a.IncrementVersion()
	return nil
}

// IsPending reports whether the amendment still awaits review
func (a *AmendmentRecord) IsPending() bool {
	return a.Status == AmendmentStatusPending
}
