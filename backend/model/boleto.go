package model

import (
	"time"

	"github.com/imobgestao/locacoes/backend/lifecycle"
	"github.com/shopspring/decimal"
)

// Boleto statuses
const (
	BoletoOpen      = "open"
	BoletoPaid      = "paid"
	BoletoCancelled = "cancelled"
	BoletoOverdue   = "overdue" // derived only, never stored
)

// Boleto represents a monthly rent payment slip
type Boleto struct {
	ID         string          `json:"id" gorm:"primaryKey;size:36"`
	Agency     string          `json:"agency" gorm:"index;size:64"`
	ContractID string          `json:"contract_id" gorm:"index;size:36"`
	Reference  string          `json:"reference" gorm:"size:7"` // YYYY-MM
	DueDate    string          `json:"due_date" gorm:"size:10"`
	Amount     decimal.Decimal `json:"amount" gorm:"type:decimal(12,2)"`
	Status     string          `json:"status" gorm:"size:16"`
	// OpenKey is set while the boleto is not cancelled, making a second
	// live boleto for the same contract and month a unique index violation
	OpenKey   *string    `json:"-" gorm:"uniqueIndex;size:48"`
	PaidAt    *time.Time `json:"paid_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// BoletoKey identifies the live boleto of a contract for a reference month
func BoletoKey(contractID, reference string) string {
	return contractID + "/" + reference
}

func (b Boleto) RecordID() string           { return b.ID }
func (b Boleto) RecordAgency() string       { return b.Agency }
func (b Boleto) RecordCreatedAt() time.Time { return b.CreatedAt }

// DisplayStatus returns the status to show, reporting open boletos past
// their due date as overdue
func (b Boleto) DisplayStatus(now time.Time) string {
	if b.Status != BoletoOpen {
		return b.Status
	}
	due, err := lifecycle.ParseDate("due", b.DueDate)
	if err != nil {
		return b.Status
	}
	if lifecycle.CalendarDate(now).After(due) {
		return BoletoOverdue
	}
	return b.Status
}
