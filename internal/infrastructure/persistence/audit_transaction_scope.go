package persistence

import (
	"context"

	appaudit "github.com/taxfiling/backend/internal/application/audit"
	"github.com/taxfiling/backend/internal/domain/audit"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// It provides atomic execution of multiple repository operations.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appaudit.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// gormTransactionalRepositories provides access to the audit repositories within a transaction
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// RecordRepo returns the calculation record repository scoped to the current transaction
func (r *gormTransactionalRepositories) RecordRepo() audit.CalculationRecordRepository {
	return NewGormCalculationRecordRepository(r.tx)
}

// AmendmentRepo returns the amendment repository scoped to the current transaction
func (r *gormTransactionalRepositories) AmendmentRepo() audit.AmendmentRepository {
	return NewGormAmendmentRepository(r.tx)
}

// Ensure the gorm implementations satisfy the application interfaces
var _ appaudit.TransactionScope = (*GormTransactionScope)(nil)
var _ appaudit.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
