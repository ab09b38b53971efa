package models

import "time"

// Payment records a single provider payment credited to an invoice.
// The unique provider payment id makes crediting idempotent: a redelivered
// webhook for the same payment cannot insert a second row, and paid_amount
// is only moved together with inserting a row in the same transaction.
type Payment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	InvoiceID uint     `gorm:"index;not null" json:"invoice_id"`
	Invoice   *Invoice `gorm:"foreignKey:InvoiceID" json:"-"`

	// Amount in minor currency units.
	Amount   int64  `gorm:"not null" json:"amount"`
	Currency string `gorm:"size:3" json:"currency"`

	// ProviderPaymentID is the payment intent id at the provider.
	ProviderPaymentID string `gorm:"size:255;uniqueIndex;not null" json:"provider_payment_id"`

	ReceivedAt time.Time `json:"received_at"`
}
