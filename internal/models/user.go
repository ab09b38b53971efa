package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a freelancer account. Each user owns their own clients,
// projects, invoices and contracts.
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Email    string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password string `gorm:"size:255;not null" json:"-"` // Hashed, never exposed in JSON
	Name     string `gorm:"size:255" json:"name,omitempty"`

	// Business details shown on invoices and contracts.
	BusinessName    string `gorm:"size:255" json:"business_name,omitempty"`
	BusinessAddress string `gorm:"size:500" json:"business_address,omitempty"`

	// StripeAccountID is the connected account receiving payments.
	// Capability flags are synced from account.updated webhooks.
	StripeAccountID string `gorm:"size:255;index" json:"stripe_account_id,omitempty"`
	ChargesEnabled  bool   `json:"charges_enabled"`
	PayoutsEnabled  bool   `json:"payouts_enabled"`
}

// PaymentsReady returns true when the user can receive checkout payments.
func (u *User) PaymentsReady() bool {
	return u.StripeAccountID != "" && u.ChargesEnabled
}
