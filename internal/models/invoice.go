package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// InvoiceStatus represents the status of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusDraft         InvoiceStatus = "draft"
	InvoiceStatusSent          InvoiceStatus = "sent"
	InvoiceStatusPaid          InvoiceStatus = "paid"
	InvoiceStatusPartiallyPaid InvoiceStatus = "partially_paid"
	InvoiceStatusCancelled     InvoiceStatus = "cancelled"
	InvoiceStatusOverdue       InvoiceStatus = "overdue"
)

// Invoice represents a billing invoice. All monetary amounts are in minor
// currency units (cents).
//
// Status transitions to paid/partially_paid are driven exclusively by
// payment webhooks; the checkout success redirect never mutates state.
type Invoice struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	// UserID is the owner of this invoice (for multi-tenant isolation)
	UserID uint `gorm:"index;not null" json:"user_id"`
	User   User `gorm:"foreignKey:UserID" json:"-"`

	ClientID uint    `gorm:"index;not null" json:"client_id"`
	Client   *Client `gorm:"foreignKey:ClientID" json:"client,omitempty"`

	ProjectID *uint    `gorm:"index" json:"project_id,omitempty"`
	Project   *Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`

	Number string `gorm:"size:50;index" json:"number"`

	IssueDate time.Time  `json:"issue_date"`
	DueDate   time.Time  `json:"due_date"`
	PaidDate  *time.Time `json:"paid_date,omitempty"`

	Status InvoiceStatus `gorm:"size:20;default:'draft'" json:"status"`

	Items []InvoiceItem `gorm:"foreignKey:InvoiceID" json:"items,omitempty"`

	Currency  string `gorm:"size:3;default:'usd'" json:"currency"`
	Subtotal  int64  `json:"subtotal"`
	TaxRate   float64 `gorm:"type:decimal(5,4)" json:"tax_rate"`
	TaxAmount int64  `json:"tax_amount"`
	Total     int64  `json:"total"`

	// PaidAmount only ever increases, and only together with inserting a
	// Payment row in the same transaction.
	PaidAmount int64 `json:"paid_amount"`

	AllowPartialPayments bool  `json:"allow_partial_payments"`
	MinimumPaymentAmount int64 `json:"minimum_payment_amount"`

	// PayToken grants scoped public access to the checkout flow and the
	// invoice PDF without authentication. Assigned when the invoice is sent.
	// Drafts share the empty string, so uniqueness is enforced by a partial
	// index in the SQL migrations rather than a gorm uniqueIndex.
	PayToken string `gorm:"size:64;index" json:"pay_token,omitempty"`

	Notes string `gorm:"type:text" json:"notes,omitempty"`
}

// GetUserID implements the Ownable interface for authorization.
func (i *Invoice) GetUserID() uint {
	return i.UserID
}

// IsDraft returns true if the invoice is in draft status.
func (i *Invoice) IsDraft() bool {
	return i.Status == InvoiceStatusDraft
}

// CanEdit returns true if the invoice can still be edited.
func (i *Invoice) CanEdit() bool {
	return i.Status == InvoiceStatusDraft
}

// IsPayable returns true if the invoice can still accept payments.
func (i *Invoice) IsPayable() bool {
	switch i.Status {
	case InvoiceStatusSent, InvoiceStatusPartiallyPaid, InvoiceStatusOverdue:
		return true
	}
	return false
}

// RemainingBalance returns the amount still owed.
func (i *Invoice) RemainingBalance() int64 {
	return i.Total - i.PaidAmount
}

// RecomputeTotals derives subtotal, tax and total from the line items.
func (i *Invoice) RecomputeTotals() {
	var subtotal int64
	for _, item := range i.Items {
		subtotal += item.Amount
	}
	i.Subtotal = subtotal
	i.TaxAmount = int64(float64(subtotal)*i.TaxRate + 0.5)
	i.Total = i.Subtotal + i.TaxAmount
}

// StatusForPaidAmount returns the status implied by a paid amount:
// paid iff the total is fully covered, partially_paid otherwise.
func (i *Invoice) StatusForPaidAmount(paid int64) InvoiceStatus {
	if paid >= i.Total {
		return InvoiceStatusPaid
	}
	if paid > 0 {
		return InvoiceStatusPartiallyPaid
	}
	return i.Status
}

// InvoiceItem represents a line item on an invoice.
type InvoiceItem struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	InvoiceID uint     `gorm:"index;not null" json:"invoice_id"`
	Invoice   *Invoice `gorm:"foreignKey:InvoiceID" json:"-"`

	Description string  `gorm:"size:500;not null" json:"description"`
	Quantity    float64 `gorm:"type:decimal(10,3);not null;default:1" json:"quantity"`
	// UnitPrice and Amount in minor currency units.
	UnitPrice int64 `gorm:"not null" json:"unit_price"`
	Amount    int64 `gorm:"not null" json:"amount"`

	// Position for ordering
	Position int `gorm:"default:0" json:"position"`
}

// ComputeAmount derives the line amount from quantity and unit price.
func (item *InvoiceItem) ComputeAmount() {
	item.Amount = int64(item.Quantity*float64(item.UnitPrice) + 0.5)
}

// GenerateInvoiceNumber generates the next invoice number for a user.
// Format: INV-YYYY-NNNN (e.g., INV-2026-0001)
func GenerateInvoiceNumber(db *gorm.DB, userID uint, year int) (string, error) {
	start := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)

	var count int64
	err := db.Model(&Invoice{}).
		Where("user_id = ? AND status <> ? AND issue_date >= ? AND issue_date < ?",
			userID, InvoiceStatusDraft, start, end).
		Count(&count).Error
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("INV-%d-%04d", year, count+1), nil
}
