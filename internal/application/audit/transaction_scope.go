package audit

import (
	"context"

	"github.com/taxfiling/backend/internal/domain/audit"
)

// TransactionScope provides transactional access to the audit repositories.
// When a function is executed within a transaction scope, all repository
// operations are part of the same database transaction and commit or roll
// back atomically. Amendment approval depends on this: the status flip, the
// supersede of any prior approved amendment, the original's status change
// and the insert of the replacement record form one all-or-nothing unit.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the audit repositories
// within a transaction. All repositories returned share the same underlying
// database transaction.
type TransactionalRepositories interface {
	// RecordRepo returns the calculation record repository scoped to the current transaction
	RecordRepo() audit.CalculationRecordRepository
	// AmendmentRepo returns the amendment repository scoped to the current transaction
	AmendmentRepo() audit.AmendmentRepository
}

// NoOpTransactionScope runs the function against the given repositories
// without a real transaction. Useful in tests where every repository
// already shares one connection.
type NoOpTransactionScope struct {
	recordRepo    audit.CalculationRecordRepository
	amendmentRepo audit.AmendmentRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories
func NewNoOpTransactionScope(
	recordRepo audit.CalculationRecordRepository,
	amendmentRepo audit.AmendmentRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		recordRepo:    recordRepo,
		amendmentRepo: amendmentRepo,
	}
}

// Execute runs the function without a real transaction
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// RecordRepo returns the calculation record repository
func (s *NoOpTransactionScope) RecordRepo() audit.CalculationRecordRepository {
	return s.recordRepo
}

// AmendmentRepo returns the amendment repository
func (s *NoOpTransactionScope) AmendmentRepo() audit.AmendmentRepository {
	return s.amendmentRepo
}

// Ensure NoOpTransactionScope implements both interfaces
var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
