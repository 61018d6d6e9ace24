package service

import (
	"context"
	"time"

	"github.com/imobgestao/locacoes/backend/lifecycle"
	"github.com/imobgestao/locacoes/backend/model"
	"github.com/shopspring/decimal"
)

// Dashboard summarizes an agency's portfolio
type Dashboard struct {
	Contracts      int                      `json:"contracts"`
	ByStatus       map[lifecycle.Status]int `json:"by_status"`
	LeaseEnding    int                      `json:"lease_ending"`
	Readjustments  int                      `json:"readjustments"`
	InvalidDates   int                      `json:"invalid_dates"`
	Landlords      int                      `json:"landlords"`
	Tenants        int                      `json:"tenants"`
	Properties     int                      `json:"properties"`
	MonthlyRent    decimal.Decimal          `json:"monthly_rent"` // sum over active and expiring contracts
	OpenBoletos    int                      `json:"open_boletos"`
	OpenAmount     decimal.Decimal          `json:"open_amount"`
	OverdueBoletos int                      `json:"overdue_boletos"`
	OverdueAmount  decimal.Decimal          `json:"overdue_amount"`
	UpcomingExpiry []model.ContractView     `json:"upcoming_expiry"`
}

// Summarize builds the dashboard of an agency as of now
func Summarize(ctx context.Context, store *Store, agency string, now time.Time) (Dashboard, error) {
	d := Dashboard{
		ByStatus:       make(map[lifecycle.Status]int),
		MonthlyRent:    decimal.Zero,
		OpenAmount:     decimal.Zero,
		OverdueAmount:  decimal.Zero,
		UpcomingExpiry: []model.ContractView{},
	}

	contracts, err := store.Contracts.ListByAgency(ctx, agency)
	if err != nil {
		return d, err
	}
	d.Contracts = len(contracts)
	for _, c := range contracts {
		view := model.NewContractView(c, now)
		if view.Derived == nil {
			d.InvalidDates++
			continue
		}
		d.ByStatus[view.Derived.Status]++

		switch view.Derived.Status {
		case lifecycle.StatusActive:
			d.MonthlyRent = d.MonthlyRent.Add(c.RentAmount)
		case lifecycle.StatusExpiring:
			d.MonthlyRent = d.MonthlyRent.Add(c.RentAmount)
			d.UpcomingExpiry = append(d.UpcomingExpiry, view)
			if view.Derived.ExpiringReason == lifecycle.ReasonLeaseEnding {
				d.LeaseEnding++
			} else {
				d.Readjustments++
			}
		}
	}

	landlords, err := store.Landlords.ListByAgency(ctx, agency)
	if err != nil {
		return d, err
	}
	d.Landlords = len(landlords)

	tenants, err := store.Tenants.ListByAgency(ctx, agency)
	if err != nil {
		return d, err
	}
	d.Tenants = len(tenants)

	properties, err := store.Properties.ListByAgency(ctx, agency)
	if err != nil {
		return d, err
	}
	d.Properties = len(properties)

	boletos, err := store.Boletos.ListByAgency(ctx, agency)
	if err != nil {
		return d, err
	}
	for _, b := range boletos {
		switch b.DisplayStatus(now) {
		case model.BoletoOpen:
			d.OpenBoletos++
			d.OpenAmount = d.OpenAmount.Add(b.Amount)
		case model.BoletoOverdue:
			d.OverdueBoletos++
			d.OverdueAmount = d.OverdueAmount.Add(b.Amount)
		}
	}

	return d, nil
}
