package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/imobgestao/locacoes/backend/lifecycle"
	"github.com/imobgestao/locacoes/backend/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newSQLiteStore(t *testing.T) *Store {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	store, err := NewGormStoreFromDB(db)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestGormRepositoryContractRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)

	readjust := "2024-12-20"
	contract := model.Contract{
		ID:                   "c1",
		Agency:               "imob-centro",
		Code:                 "LOC-001",
		StartDate:            "2024-01-01",
		EndDate:              "2025-06-01",
		NextReadjustmentDate: &readjust,
		RentAmount:           decimal.RequireFromString("2350.50"),
		PaymentDay:           10,
		Status:               lifecycle.StatusActive,
		CreatedAt:            time.Now(),
	}
	require.NoError(t, store.Contracts.Save(ctx, contract))

	got, err := store.Contracts.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "LOC-001", got.Code)
	assert.True(t, contract.RentAmount.Equal(got.RentAmount))
	require.NotNil(t, got.NextReadjustmentDate)
	assert.Equal(t, readjust, *got.NextReadjustmentDate)
	assert.Equal(t, lifecycle.StatusActive, got.Status)

	_, err = store.Contracts.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormRepositorySaveUpserts(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)

	require.NoError(t, store.Contracts.Save(ctx, model.Contract{ID: "c1", Agency: "a", Code: "old"}))
	require.NoError(t, store.Contracts.Save(ctx, model.Contract{ID: "c1", Agency: "a", Code: "new"}))

	n, err := store.Contracts.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := store.Contracts.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "new", got.Code)
}

func TestGormRepositoryUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)

	require.NoError(t, store.Contracts.Save(ctx, model.Contract{ID: "c1", Agency: "a", Status: lifecycle.StatusActive}))

	err := store.Contracts.Update(ctx, "c1", func(c *model.Contract) {
		c.Status = lifecycle.StatusClosed
	})
	require.NoError(t, err)

	got, err := store.Contracts.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusClosed, got.Status)

	err = store.Contracts.Update(ctx, "missing", func(c *model.Contract) {})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Contracts.Delete(ctx, "c1"))
	_, err = store.Contracts.Get(ctx, "c1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormRepositoryListByAgency(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)

	base := time.Now()
	require.NoError(t, store.Landlords.Save(ctx, model.Landlord{
		ID: "l1", Agency: "a", CreatedAt: base,
		Person: model.Person{Name: "Maria Souza", Document: "12345678909"},
	}))
	require.NoError(t, store.Landlords.Save(ctx, model.Landlord{
		ID: "l2", Agency: "a", CreatedAt: base.Add(time.Second),
		Person: model.Person{Name: "João Lima", Document: "98765432100"},
	}))
	require.NoError(t, store.Landlords.Save(ctx, model.Landlord{ID: "l3", Agency: "b", CreatedAt: base}))

	landlords, err := store.Landlords.ListByAgency(ctx, "a")
	require.NoError(t, err)
	require.Len(t, landlords, 2)
	assert.Equal(t, "l1", landlords[0].ID)
	assert.Equal(t, "Maria Souza", landlords[0].Name)

	all, err := store.Landlords.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestGormRepositoryBoletoAmounts(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)

	require.NoError(t, store.Boletos.Save(ctx, model.Boleto{
		ID: "b1", Agency: "a", ContractID: "c1", Reference: "2024-12",
		DueDate: "2024-12-10", Amount: decimal.RequireFromString("1999.99"), Status: model.BoletoOpen,
	}))

	got, err := store.Boletos.Get(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, "1999.99", got.Amount.StringFixed(2))
}

func TestGormRepositorySaveIfAbsent(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)

	sameMonth := func(b model.Boleto) bool { return b.ContractID == "c1" && b.Reference == "2024-06" }
	key := model.BoletoKey("c1", "2024-06")

	require.NoError(t, store.Boletos.SaveIfAbsent(ctx, model.Boleto{
		ID: "b1", Agency: "a", ContractID: "c1", Reference: "2024-06", OpenKey: &key, Status: model.BoletoOpen,
	}, sameMonth))

	err := store.Boletos.SaveIfAbsent(ctx, model.Boleto{
		ID: "b2", Agency: "a", ContractID: "c1", Reference: "2024-06", Status: model.BoletoOpen,
	}, sameMonth)
	assert.ErrorIs(t, err, ErrConflict)

	// The unique index catches what the predicate lets through
	err = store.Boletos.SaveIfAbsent(ctx, model.Boleto{
		ID: "b3", Agency: "a", ContractID: "c1", Reference: "2024-06", OpenKey: &key, Status: model.BoletoOpen,
	}, func(model.Boleto) bool { return false })
	assert.ErrorIs(t, err, ErrConflict)

	n, err := store.Boletos.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestGormIssueBoletoConcurrentSameMonth(t *testing.T) {
	store := newSQLiteStore(t)

	issued, duplicates := issueConcurrently(t, store.Boletos, 4)
	assert.Equal(t, 1, issued)
	assert.Equal(t, 3, duplicates)
}

func TestGormCancelledBoletoCanBeReissued(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	first, err := IssueBoleto(ctx, store.Boletos, testContract(), "2024-06", now)
	require.NoError(t, err)
	_, err = CancelBoleto(ctx, store.Boletos, first.ID, now)
	require.NoError(t, err)

	_, err = IssueBoleto(ctx, store.Boletos, testContract(), "2024-06", now)
	assert.NoError(t, err)
}
