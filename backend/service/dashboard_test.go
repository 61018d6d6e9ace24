package service

import (
	"context"
	"testing"
	"time"

	"github.com/imobgestao/locacoes/backend/lifecycle"
	"github.com/imobgestao/locacoes/backend/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)
	now := time.Date(2024, 11, 20, 10, 0, 0, 0, time.UTC)
	readjust := "2024-12-15"

	contracts := []model.Contract{
		{ID: "active", Agency: "imob", StartDate: "2024-01-01", EndDate: "2026-01-01", RentAmount: decimal.NewFromInt(1000)},
		{ID: "ending", Agency: "imob", StartDate: "2024-01-01", EndDate: "2024-12-31", RentAmount: decimal.NewFromInt(2000)},
		{ID: "readjust", Agency: "imob", StartDate: "2024-01-01", EndDate: "2026-01-01", NextReadjustmentDate: &readjust, RentAmount: decimal.NewFromInt(500)},
		{ID: "pending", Agency: "imob", StartDate: "2025-01-01", EndDate: "2026-01-01", RentAmount: decimal.NewFromInt(700)},
		{ID: "closed", Agency: "imob", StartDate: "2023-01-01", EndDate: "2024-01-01", RentAmount: decimal.NewFromInt(900)},
		{ID: "broken", Agency: "imob", StartDate: "2024-13-01", EndDate: "2026-01-01"},
		{ID: "elsewhere", Agency: "other", StartDate: "2024-01-01", EndDate: "2026-01-01", RentAmount: decimal.NewFromInt(9999)},
	}
	for _, c := range contracts {
		require.NoError(t, store.Contracts.Save(ctx, c))
	}
	require.NoError(t, store.Landlords.Save(ctx, model.Landlord{ID: "l1", Agency: "imob"}))
	require.NoError(t, store.Tenants.Save(ctx, model.Tenant{ID: "t1", Agency: "imob"}))
	require.NoError(t, store.Tenants.Save(ctx, model.Tenant{ID: "t2", Agency: "other"}))

	boletos := []model.Boleto{
		{ID: "b1", Agency: "imob", DueDate: "2024-11-25", Amount: decimal.RequireFromString("1000.00"), Status: model.BoletoOpen},
		{ID: "b2", Agency: "imob", DueDate: "2024-11-10", Amount: decimal.RequireFromString("2000.00"), Status: model.BoletoOpen},
		{ID: "b3", Agency: "imob", DueDate: "2024-10-10", Amount: decimal.RequireFromString("2000.00"), Status: model.BoletoPaid},
		{ID: "b4", Agency: "imob", DueDate: "2024-11-20", Amount: decimal.RequireFromString("300.50"), Status: model.BoletoOpen},
	}
	for _, b := range boletos {
		require.NoError(t, store.Boletos.Save(ctx, b))
	}

	d, err := Summarize(ctx, store, "imob", now)
	require.NoError(t, err)

	assert.Equal(t, 6, d.Contracts)
	assert.Equal(t, 1, d.ByStatus[lifecycle.StatusActive])
	assert.Equal(t, 2, d.ByStatus[lifecycle.StatusExpiring])
	assert.Equal(t, 1, d.ByStatus[lifecycle.StatusPending])
	assert.Equal(t, 1, d.ByStatus[lifecycle.StatusClosed])
	assert.Equal(t, 1, d.InvalidDates)
	assert.Equal(t, 1, d.LeaseEnding)
	assert.Equal(t, 1, d.Readjustments)
	assert.Len(t, d.UpcomingExpiry, 2)
	assert.Equal(t, "3500", d.MonthlyRent.String())

	assert.Equal(t, 1, d.Landlords)
	assert.Equal(t, 1, d.Tenants)
	assert.Equal(t, 0, d.Properties)

	// Due today is still open, due yesterday is overdue
	assert.Equal(t, 2, d.OpenBoletos)
	assert.Equal(t, "1300.50", d.OpenAmount.StringFixed(2))
	assert.Equal(t, 1, d.OverdueBoletos)
	assert.Equal(t, "2000.00", d.OverdueAmount.StringFixed(2))
}

func TestSummarizeEmptyAgency(t *testing.T) {
	d, err := Summarize(context.Background(), NewMemoryStore(0), "imob", time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, d.Contracts)
	assert.True(t, d.MonthlyRent.IsZero())
	assert.NotNil(t, d.UpcomingExpiry)
}
