package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"gorm.io/gorm"

	"github.com/diewo77/go-freelance/internal/models"
	"github.com/diewo77/go-freelance/internal/payments"
)

var (
	ErrInvoiceNotFound       = errors.New("invoice not found")
	ErrInvoiceClosed         = errors.New("invoice does not accept payments")
	ErrInvalidAmount         = errors.New("invalid payment amount")
	ErrPartialNotAllowed     = errors.New("partial payments are not enabled")
	ErrBelowMinimum          = errors.New("amount below the minimum payment")
	ErrPaymentsNotConfigured = errors.New("payments are not available for this invoice")
)

// CheckoutService validates a payment request against an invoice and asks
// the provider for a hosted checkout session. It never mutates local state;
// the invoice only changes when the payment webhook arrives.
type CheckoutService struct {
	db       *gorm.DB
	provider payments.Provider
	baseURL  string
}

func NewCheckoutService(db *gorm.DB, provider payments.Provider, baseURL string) *CheckoutService {
	return &CheckoutService{db: db, provider: provider, baseURL: baseURL}
}

// CreateSession resolves the invoice by pay token, validates the amount and
// the owner's payment setup, and returns the provider session.
// A zero amount defaults to the remaining balance.
func (s *CheckoutService) CreateSession(ctx context.Context, payToken string, amount int64) (*payments.Session, error) {
	if payToken == "" {
		return nil, ErrInvoiceNotFound
	}

	var invoice models.Invoice
	err := s.db.WithContext(ctx).
		Where("pay_token = ?", payToken).
		Preload("Client").
		Preload("User").
		First(&invoice).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("resolve invoice: %w", err)
	}

	if invoice.Status == models.InvoiceStatusPaid || invoice.Status == models.InvoiceStatusCancelled {
		return nil, ErrInvoiceClosed
	}
	if !invoice.IsPayable() {
		return nil, ErrInvoiceClosed
	}

	remaining := invoice.RemainingBalance()
	if amount == 0 {
		amount = remaining
	}
	if amount <= 0 || amount > remaining {
		return nil, ErrInvalidAmount
	}
	if amount != remaining {
		if !invoice.AllowPartialPayments {
			return nil, ErrPartialNotAllowed
		}
		if amount < invoice.MinimumPaymentAmount {
			return nil, ErrBelowMinimum
		}
	}

	if !invoice.User.PaymentsReady() {
		return nil, ErrPaymentsNotConfigured
	}

	metadata := map[string]string{
		"invoice_id":      strconv.FormatUint(uint64(invoice.ID), 10),
		"pay_token":       invoice.PayToken,
		"client_id":       strconv.FormatUint(uint64(invoice.ClientID), 10),
		"partial_payment": strconv.FormatBool(amount != remaining),
	}
	if invoice.ProjectID != nil {
		metadata["project_id"] = strconv.FormatUint(uint64(*invoice.ProjectID), 10)
	}

	session, err := s.provider.CreateCheckoutSession(ctx, payments.SessionParams{
		Amount:             amount,
		Currency:           invoice.Currency,
		Description:        fmt.Sprintf("Invoice %s", invoice.Number),
		ConnectedAccountID: invoice.User.StripeAccountID,
		Metadata:           metadata,
		SuccessURL:         s.baseURL + "/pay/" + invoice.PayToken + "/success",
		CancelURL:          s.baseURL + "/pay/" + invoice.PayToken,
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}
