package audit

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestAmendment(t *testing.T) *AmendmentRecord {
	t.Helper()
	amendment, err := NewAmendmentRecord(
		uuid.New(), uuid.New(), RecordTypeCalculation,
		AmendmentTypeCorrection, UrgencyNormal,
		JSONMap{"total_amount": "6000"},
		JSONMap{"total_amount": "5500"},
		"Input revenue overstated",
		uuid.New(),
	)
	require.NoError(t, err)
	return amendment
}

func TestNewAmendmentRecord(t *testing.T) {
	companyID := uuid.New()
	originalID := uuid.New()
	amendedBy := uuid.New()

	t.Run("creates pending amendment", func(t *testing.T) {
		amendment, err := NewAmendmentRecord(
			companyID, originalID, RecordTypeCalculation,
			AmendmentTypeCorrection, UrgencyHigh,
			JSONMap{"total_amount": "6000"},
			JSONMap{"total_amount": "5500"},
			"Input revenue overstated", amendedBy,
		)
		require.NoError(t, err)
		assert.Equal(t, AmendmentStatusPending, amendment.Status)
		assert.Equal(t, originalID, amendment.OriginalRecordID)
		assert.Equal(t, AmendmentTypeCorrection, amendment.AmendmentType)
		assert.Equal(t, UrgencyHigh, amendment.Urgency)
		assert.Equal(t, amendedBy, amendment.AmendedBy)
		assert.Nil(t, amendment.ReviewedBy)
		assert.Nil(t, amendment.NewRecordID)
		require.Len(t, amendment.Changes, 1)
		assert.Equal(t, "total_amount", amendment.Changes[0].Field)
		assert.Equal(t, "6000", amendment.Changes[0].OldValue)
		assert.Equal(t, "5500", amendment.Changes[0].NewValue)
	})

	t.Run("critical urgency still starts pending", func(t *testing.T) {
		amendment, err := NewAmendmentRecord(
			companyID, originalID, RecordTypeCalculation,
			AmendmentTypeWithdrawal, UrgencyCritical,
			JSONMap{}, JSONMap{"status": "WITHDRAWN"},
			"Filed against the wrong period", amendedBy,
		)
		require.NoError(t, err)
		assert.Equal(t, AmendmentStatusPending, amendment.Status)
	})

	t.Run("defaults urgency to normal", func(t *testing.T) {
		amendment, err := NewAmendmentRecord(
			companyID, originalID, RecordTypeCalculation,
			AmendmentTypeCorrection, "",
			JSONMap{}, JSONMap{"x": 1}, "reason", amendedBy,
		)
		require.NoError(t, err)
		assert.Equal(t, UrgencyNormal, amendment.Urgency)
	})

	t.Run("fails without proposed changes", func(t *testing.T) {
		_, err := NewAmendmentRecord(
			companyID, originalID, RecordTypeCalculation,
			AmendmentTypeCorrection, UrgencyNormal,
			JSONMap{"a": 1}, JSONMap{}, "reason", amendedBy,
		)
		require.Error(t, err)
	})

	t.Run("fails without reason", func(t *testing.T) {
		_, err := NewAmendmentRecord(
			companyID, originalID, RecordTypeCalculation,
			AmendmentTypeCorrection, UrgencyNormal,
			JSONMap{}, JSONMap{"x": 1}, "", amendedBy,
		)
		require.Error(t, err)
	})

	t.Run("fails with unknown amendment type", func(t *testing.T) {
		_, err := NewAmendmentRecord(
			companyID, originalID, RecordTypeCalculation,
			AmendmentType("REWRITE"), UrgencyNormal,
			JSONMap{}, JSONMap{"x": 1}, "reason", amendedBy,
		)
		require.Error(t, err)
	})
}

func TestAmendmentStateMachine(t *testing.T) {
	t.Run("pending to approved", func(t *testing.T) {
		amendment := createTestAmendment(t)
		reviewer := uuid.New()
		newRecordID := uuid.New()

		require.NoError(t, amendment.Approve(reviewer, newRecordID))
		assert.Equal(t, AmendmentStatusApproved, amendment.Status)
		assert.Equal(t, reviewer, *amendment.ReviewedBy)
		assert.Equal(t, newRecordID, *amendment.NewRecordID)
		assert.NotNil(t, amendment.ReviewedAt)
	})

	t.Run("pending to rejected", func(t *testing.T) {
		amendment := createTestAmendment(t)
		reviewer := uuid.New()

		require.NoError(t, amendment.Reject(reviewer, "Evidence missing"))
		assert.Equal(t, AmendmentStatusRejected, amendment.Status)
		assert.Equal(t, "Evidence missing", amendment.ReviewNote)
		assert.Nil(t, amendment.NewRecordID)
	})

	t.Run("approved is terminal for review actions", func(t *testing.T) {
		amendment := createTestAmendment(t)
		require.NoError(t, amendment.Approve(uuid.New(), uuid.New()))

		require.Error(t, amendment.Approve(uuid.New(), uuid.New()))
		require.Error(t, amendment.Reject(uuid.New(), "too late"))
	})

	t.Run("rejected is terminal", func(t *testing.T) {
		amendment := createTestAmendment(t)
		require.NoError(t, amendment.Reject(uuid.New(), "no"))

		require.Error(t, amendment.Approve(uuid.New(), uuid.New()))
		require.Error(t, amendment.Reject(uuid.New(), "still no"))
		require.Error(t, amendment.MarkSuperseded())
	})

	t.Run("only approved can be superseded", func(t *testing.T) {
		pending := createTestAmendment(t)
		require.Error(t, pending.MarkSuperseded())

		approved := createTestAmendment(t)
		require.NoError(t, approved.Approve(uuid.New(), uuid.New()))
		require.NoError(t, approved.MarkSuperseded())
		assert.Equal(t, AmendmentStatusSuperseded, approved.Status)
	})
}

func TestDeriveFieldChanges(t *testing.T) {
	t.Run("summary is re-derivable from the two payloads", func(t *testing.T) {
		amendment := createTestAmendment(t)
		derived := DeriveFieldChanges(amendment.PreviousVersion, amendment.NewVersion, amendment.Reason)
		assert.Equal(t, amendment.Changes, derived)
	})

	t.Run("skips unchanged fields", func(t *testing.T) {
		changes := DeriveFieldChanges(
			JSONMap{"a": "1", "b": "2"},
			JSONMap{"a": "1", "b": "3"},
			"fix b",
		)
		require.Len(t, changes, 1)
		assert.Equal(t, "b", changes[0].Field)
	})

	t.Run("new fields have nil old value", func(t *testing.T) {
		changes := DeriveFieldChanges(JSONMap{}, JSONMap{"c": "9"}, "add c")
		require.Len(t, changes, 1)
		assert.Nil(t, changes[0].OldValue)
		assert.Equal(t, "9", changes[0].NewValue)
	})

	t.Run("fields come out sorted by name", func(t *testing.T) {
		changes := DeriveFieldChanges(JSONMap{}, JSONMap{"z": 1, "a": 2, "m": 3}, "r")
		require.Len(t, changes, 3)
		assert.Equal(t, "a", changes[0].Field)
		assert.Equal(t, "m", changes[1].Field)
		assert.Equal(t, "z", changes[2].Field)
	})
}
