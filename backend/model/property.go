package model

import (
	"strings"
	"time"
)

// Property kinds
const (
	KindResidential = "residential"
	KindCommercial  = "commercial"
)

// Property represents a rentable unit (imóvel)
type Property struct {
	ID         string    `json:"id" gorm:"primaryKey;size:36"`
	Agency     string    `json:"agency" gorm:"index;size:64"`
	Code       string    `json:"code" gorm:"size:64"`
	Kind       string    `json:"kind" binding:"required,oneof=residential commercial" gorm:"size:16"`
	LandlordID string    `json:"landlord_id" gorm:"index;size:36"`
	Street     string    `json:"street" binding:"required" gorm:"size:255"`
	Number     string    `json:"number" gorm:"size:16"`
	Complement string    `json:"complement,omitempty" gorm:"size:128"`
	District   string    `json:"district,omitempty" gorm:"size:128"`
	City       string    `json:"city" binding:"required" gorm:"size:128"`
	State      string    `json:"state" binding:"required,len=2" gorm:"size:2"`
	PostalCode string    `json:"postal_code,omitempty" gorm:"size:9"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (p Property) RecordID() string           { return p.ID }
func (p Property) RecordAgency() string       { return p.Agency }
func (p Property) RecordCreatedAt() time.Time { return p.CreatedAt }

func (p *Property) Stamp(id, agency string, created, updated time.Time) {
	p.ID, p.Agency, p.CreatedAt, p.UpdatedAt = id, agency, created, updated
}

// Address formats the address on one line
func (p Property) Address() string {
	parts := []string{strings.TrimSpace(p.Street + ", " + p.Number)}
	if p.Complement != "" {
		parts = append(parts, p.Complement)
	}
	if p.District != "" {
		parts = append(parts, p.District)
	}
	parts = append(parts, p.City+"/"+p.State)
	return strings.Join(parts, " - ")
}
