package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/taxfiling/backend/internal/domain/audit"
	"github.com/taxfiling/backend/internal/domain/shared"
)

func setupAuditTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&audit.CalculationRecord{},
		&audit.BreakdownStep{},
		&audit.AmendmentRecord{},
		&audit.SummaryReport{},
	)
	require.NoError(t, err)

	return db
}

func buildRecord(t *testing.T, companyID uuid.UUID, calcType audit.CalculationType, version string) *audit.CalculationRecord {
	t.Helper()
	record, err := audit.NewCalculationRecord(
		companyID,
		uuid.New(),
		calcType,
		audit.JSONMap{"net": 1000},
		audit.CalculationResult{
			TotalAmount: decimal.NewFromInt(1050),
			Currency:    "AED",
			Method:      "standard_rate",
			Breakdown: []audit.StepInput{
				{StepNumber: 1, Description: "Taxable base", Result: decimal.NewFromInt(1000)},
				{StepNumber: 2, Description: "Apply 5% rate", Formula: "base * 0.05", Result: decimal.NewFromInt(50)},
			},
			Compliance: audit.RegulatoryCompliance{Compliant: true, Reference: "FTA VAT Art. 25"},
		},
		nil,
		version,
	)
	require.NoError(t, err)
	return record
}

func TestCalculationRecordRepository_CreateAndFindByID(t *testing.T) {
	db := setupAuditTestDB(t)
	repo := NewGormCalculationRecordRepository(db)
	ctx := context.Background()

	companyID := uuid.New()
	record := buildRecord(t, companyID, audit.CalculationTypeVAT, "v-1")
	require.NoError(t, repo.Create(ctx, record))

	found, err := repo.FindByID(ctx, companyID, record.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, record.ID, found.ID)
	assert.Equal(t, "v-1", found.CalculationVersion)
	assert.True(t, found.TotalAmount.Equal(decimal.NewFromInt(1050)))
	require.Len(t, found.Steps, 2)
	assert.Equal(t, 1, found.Steps[0].StepNumber)
	assert.Equal(t, 2, found.Steps[1].StepNumber)
	assert.Equal(t, "FTA VAT Art. 25", found.RegulatoryReference)
}

func TestCalculationRecordRepository_FindByIDScopedToCompany(t *testing.T) {
	db := setupAuditTestDB(t)
	repo := NewGormCalculationRecordRepository(db)
	ctx := context.Background()

	record := buildRecord(t, uuid.New(), audit.CalculationTypeVAT, "v-1")
	require.NoError(t, repo.Create(ctx, record))

	found, err := repo.FindByID(ctx, uuid.New(), record.ID)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestCalculationRecordRepository_FindHistory(t *testing.T) {
	db := setupAuditTestDB(t)
	repo := NewGormCalculationRecordRepository(db)
	ctx := context.Background()

	companyID := uuid.New()
	vat := buildRecord(t, companyID, audit.CalculationTypeVAT, "v-1")
	cit := buildRecord(t, companyID, audit.CalculationTypeCIT, "v-2")
	other := buildRecord(t, uuid.New(), audit.CalculationTypeVAT, "v-3")
	for _, r := range []*audit.CalculationRecord{vat, cit, other} {
		require.NoError(t, repo.Create(ctx, r))
	}

	t.Run("scoped to company", func(t *testing.T) {
		records, err := repo.FindHistory(ctx, companyID, audit.CalculationRecordFilter{})
		require.NoError(t, err)
		assert.Len(t, records, 2)
	})

	t.Run("filters by calculation type", func(t *testing.T) {
		citType := audit.CalculationTypeCIT
		records, err := repo.FindHistory(ctx, companyID, audit.CalculationRecordFilter{
			CalculationType: &citType,
		})
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, cit.ID, records[0].ID)
	})

	t.Run("rejects unknown sort fields", func(t *testing.T) {
		filter := audit.CalculationRecordFilter{}
		filter.OrderBy = "total_amount; DROP TABLE calculation_records"
		records, err := repo.FindHistory(ctx, companyID, filter)
		require.NoError(t, err)
		assert.Len(t, records, 2)
	})

	t.Run("paginates", func(t *testing.T) {
		filter := audit.CalculationRecordFilter{}
		filter.Page = 2
		filter.PageSize = 1
		records, err := repo.FindHistory(ctx, companyID, filter)
		require.NoError(t, err)
		assert.Len(t, records, 1)
	})
}

func TestCalculationRecordRepository_FindByPeriod(t *testing.T) {
	db := setupAuditTestDB(t)
	repo := NewGormCalculationRecordRepository(db)
	ctx := context.Background()

	companyID := uuid.New()
	inJuly := buildRecord(t, companyID, audit.CalculationTypeVAT, "v-1")
	inJuly.CreatedAt = time.Date(2026, 7, 10, 12, 0, 0, 0, time.UTC)
	inAugust := buildRecord(t, companyID, audit.CalculationTypeVAT, "v-2")
	inAugust.CreatedAt = time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(ctx, inJuly))
	require.NoError(t, repo.Create(ctx, inAugust))

	start := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	records, err := repo.FindByPeriod(ctx, companyID, start, end, nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, inJuly.ID, records[0].ID)
	assert.Len(t, records[0].Steps, 2)

	count, err := repo.CountCreatedBetween(ctx, companyID, start, end, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestCalculationRecordRepository_SaveOptimisticLock(t *testing.T) {
	db := setupAuditTestDB(t)
	repo := NewGormCalculationRecordRepository(db)
	ctx := context.Background()

	companyID := uuid.New()
	record := buildRecord(t, companyID, audit.CalculationTypeVAT, "v-1")
	require.NoError(t, repo.Create(ctx, record))

	first, err := repo.FindByID(ctx, companyID, record.ID)
	require.NoError(t, err)
	stale, err := repo.FindByID(ctx, companyID, record.ID)
	require.NoError(t, err)

	require.NoError(t, first.Validate(uuid.New()))
	require.NoError(t, repo.Save(ctx, first))

	require.NoError(t, stale.Validate(uuid.New()))
	err = repo.Save(ctx, stale)
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)

	reloaded, err := repo.FindByID(ctx, companyID, record.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ValidatedBy, reloaded.ValidatedBy)
}
