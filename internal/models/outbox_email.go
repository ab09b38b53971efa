package models

import "time"

// Notification kinds handled by the outbox worker.
const (
	EmailInvoiceSent          = "invoice_sent"
	EmailInvoicePaid          = "invoice_paid"
	EmailInvoicePartiallyPaid = "invoice_partially_paid"
	EmailInvoiceReminder      = "invoice_reminder"
	EmailPaymentFailed        = "payment_failed"
	EmailContractSent         = "contract_sent"
	EmailContractSigned       = "contract_signed"
)

// OutboxEmail is a queued notification. Producers insert rows and return;
// the outbox worker delivers them with retry so a failed send never
// surfaces on the request path.
type OutboxEmail struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Kind    string `gorm:"size:50;not null;index" json:"kind"`
	ToEmail string `gorm:"size:255;not null" json:"to_email"`
	ToName  string `gorm:"size:255" json:"to_name,omitempty"`

	// Data is a JSON object merged into the email template.
	Data string `gorm:"type:text" json:"data,omitempty"`

	Attempts      int        `gorm:"default:0" json:"attempts"`
	NextAttemptAt time.Time  `gorm:"index" json:"next_attempt_at"`
	LastError     string     `gorm:"type:text" json:"last_error,omitempty"`
	SentAt        *time.Time `gorm:"index" json:"sent_at,omitempty"`
}
