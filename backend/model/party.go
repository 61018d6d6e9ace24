package model

import "time"

// Person holds the registration data shared by landlords and tenants
type Person struct {
	Name     string `json:"name" binding:"required" gorm:"size:255"`
	Document string `json:"document" binding:"required,br_document" gorm:"index;size:18"` // CPF or CNPJ
	Email    string `json:"email,omitempty" binding:"omitempty,email" gorm:"size:255"`
	Phone    string `json:"phone,omitempty" binding:"omitempty,br_phone" gorm:"size:32"`
}

// Landlord represents a property owner (locador)
type Landlord struct {
	ID          string `json:"id" gorm:"primaryKey;size:36"`
	Agency      string `json:"agency" gorm:"index;size:64"`
	Person      `gorm:"embedded"`
	BankName    string    `json:"bank_name,omitempty" gorm:"size:64"`
	BankBranch  string    `json:"bank_branch,omitempty" gorm:"size:16"`
	BankAccount string    `json:"bank_account,omitempty" gorm:"size:32"`
	PixKey      string    `json:"pix_key,omitempty" gorm:"size:128"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (l Landlord) RecordID() string           { return l.ID }
func (l Landlord) RecordAgency() string       { return l.Agency }
func (l Landlord) RecordCreatedAt() time.Time { return l.CreatedAt }

func (l *Landlord) Stamp(id, agency string, created, updated time.Time) {
	l.ID, l.Agency, l.CreatedAt, l.UpdatedAt = id, agency, created, updated
}

// Tenant represents a lessee (locatário)
type Tenant struct {
	ID                string `json:"id" gorm:"primaryKey;size:36"`
	Agency            string `json:"agency" gorm:"index;size:64"`
	Person            `gorm:"embedded"`
	Occupation        string    `json:"occupation,omitempty" gorm:"size:128"`
	GuarantorName     string    `json:"guarantor_name,omitempty" gorm:"size:255"`
	GuarantorDocument string    `json:"guarantor_document,omitempty" binding:"omitempty,br_document" gorm:"size:18"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (t Tenant) RecordID() string           { return t.ID }
func (t Tenant) RecordAgency() string       { return t.Agency }
func (t Tenant) RecordCreatedAt() time.Time { return t.CreatedAt }

func (t *Tenant) Stamp(id, agency string, created, updated time.Time) {
	t.ID, t.Agency, t.CreatedAt, t.UpdatedAt = id, agency, created, updated
}
