package model

import (
	"time"

	"github.com/imobgestao/locacoes/backend/lifecycle"
	"github.com/shopspring/decimal"
)

// Record is implemented by every stored entity
type Record interface {
	RecordID() string
	RecordAgency() string
	RecordCreatedAt() time.Time
}

// Contract represents a lease contract
type Contract struct {
	ID                   string           `json:"id" gorm:"primaryKey;size:36"`
	Agency               string           `json:"agency" gorm:"index;size:64"`
	Code                 string           `json:"code" gorm:"size:64"`
	PropertyID           string           `json:"property_id" gorm:"index;size:36"`
	LandlordID           string           `json:"landlord_id" gorm:"index;size:36"`
	TenantID             string           `json:"tenant_id" gorm:"index;size:36"`
	StartDate            string           `json:"start_date" gorm:"size:32"`
	EndDate              string           `json:"end_date" gorm:"size:32"`
	NextReadjustmentDate *string          `json:"next_readjustment_date,omitempty" gorm:"size:32"`
	ReadjustmentIndex    string           `json:"readjustment_index,omitempty" gorm:"size:16"` // IGP-M, IPCA, ...
	RentAmount           decimal.Decimal  `json:"rent_amount" gorm:"type:decimal(12,2)"`
	PaymentDay           int              `json:"payment_day"`
	Status               lifecycle.Status `json:"status" gorm:"size:16"` // last persisted status, see lifecycle
	DocumentKey          string           `json:"document_key,omitempty" gorm:"size:255"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`
}

func (c Contract) RecordID() string           { return c.ID }
func (c Contract) RecordAgency() string       { return c.Agency }
func (c Contract) RecordCreatedAt() time.Time { return c.CreatedAt }

// Dates parses the lifecycle dates of the contract
func (c Contract) Dates() (lifecycle.Dates, error) {
	return lifecycle.ParseDates(c.StartDate, c.EndDate, c.NextReadjustmentDate)
}

// Classify derives the lifecycle status of the contract as of now
func (c Contract) Classify(now time.Time) (lifecycle.Result, error) {
	d, err := c.Dates()
	if err != nil {
		return lifecycle.Result{}, err
	}
	return lifecycle.Classify(now, d), nil
}

// ContractView is a contract together with its freshly derived status
type ContractView struct {
	Contract
	Derived *lifecycle.Result `json:"derived,omitempty"`
	Label   string            `json:"label,omitempty"`
	Badge   string            `json:"badge,omitempty"`
	Error   string            `json:"derived_error,omitempty"`
}

// NewContractView classifies c as of now. Invalid dates are reported on the
// view instead of failing the whole listing.
func NewContractView(c Contract, now time.Time) ContractView {
	view := ContractView{Contract: c}
	res, err := c.Classify(now)
	if err != nil {
		view.Error = err.Error()
		return view
	}
	view.Derived = &res
	view.Label = res.Label()
	view.Badge = res.Badge()
	return view
}
