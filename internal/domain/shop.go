package domain

import (
	"time"

	"github.com/google/uuid"
)

// Shop is a vendor storefront. Each vendor owns at most one.
type Shop struct {
	ID              uuid.UUID `json:"id" db:"id"`
	OwnerID         uuid.UUID `json:"owner_id" db:"owner_id"`
	Name            string    `json:"name" db:"name"`
	Slug            string    `json:"slug" db:"slug"`
	Description     string    `json:"description" db:"description"`
	BankBIN         string    `json:"bank_bin,omitempty" db:"bank_bin"`
	BankAccountNo   string    `json:"bank_account_no,omitempty" db:"bank_account_no"`
	BankAccountName string    `json:"bank_account_name,omitempty" db:"bank_account_name"`
	IsActive        bool      `json:"is_active" db:"is_active"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// AcceptsBankTransfer reports whether the shop has a complete bank account
func (s *Shop) AcceptsBankTransfer() bool {
	return s.BankBIN != "" && s.BankAccountNo != "" && s.BankAccountName != ""
}
