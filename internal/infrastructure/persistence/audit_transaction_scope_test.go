package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appaudit "github.com/taxfiling/backend/internal/application/audit"
	"github.com/taxfiling/backend/internal/domain/audit"
)

func TestGormTransactionScope_CommitsOnSuccess(t *testing.T) {
	db := setupAuditTestDB(t)
	scope := NewGormTransactionScope(db)
	ctx := context.Background()

	companyID := uuid.New()
	record := buildRecord(t, companyID, audit.CalculationTypeVAT, "v-1")
	amendment := buildAmendment(t, companyID, record.ID)

	err := scope.Execute(ctx, func(repos appaudit.TransactionalRepositories) error {
		if err := repos.RecordRepo().Create(ctx, record); err != nil {
			return err
		}
		return repos.AmendmentRepo().Create(ctx, amendment)
	})
	require.NoError(t, err)

	found, err := NewGormCalculationRecordRepository(db).FindByID(ctx, companyID, record.ID)
	require.NoError(t, err)
	assert.NotNil(t, found)
	foundAmendment, err := NewGormAmendmentRepository(db).FindByID(ctx, companyID, amendment.ID)
	require.NoError(t, err)
	assert.NotNil(t, foundAmendment)
}

func TestGormTransactionScope_RollsBackOnError(t *testing.T) {
	db := setupAuditTestDB(t)
	scope := NewGormTransactionScope(db)
	ctx := context.Background()

	companyID := uuid.New()
	record := buildRecord(t, companyID, audit.CalculationTypeVAT, "v-1")
	boom := errors.New("review failed")

	err := scope.Execute(ctx, func(repos appaudit.TransactionalRepositories) error {
		if err := repos.RecordRepo().Create(ctx, record); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	found, err := NewGormCalculationRecordRepository(db).FindByID(ctx, companyID, record.ID)
	require.NoError(t, err)
	assert.Nil(t, found, "record created inside a failed transaction must not persist")
}
