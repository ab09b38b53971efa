package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/diewo77/go-freelance/internal/logger"
	"github.com/diewo77/go-freelance/internal/models"
	"github.com/diewo77/go-freelance/internal/outbox"
)

var (
	ErrNotDraft      = errors.New("invoice is not a draft")
	ErrEmptyInvoice  = errors.New("invoice has no line items")
	ErrNotRemindable = errors.New("invoice has no outstanding balance")
)

// InvoiceService owns invoice lifecycle transitions that are not driven by
// webhooks: sending, reminders and the overdue sweep.
type InvoiceService struct {
	db      *gorm.DB
	baseURL string
	log     zerolog.Logger
}

func NewInvoiceService(db *gorm.DB, baseURL string) *InvoiceService {
	return &InvoiceService{db: db, baseURL: baseURL, log: logger.WithComponent("invoice")}
}

// Send finalizes a draft: assigns the invoice number and pay token, moves
// it to sent and enqueues the notification email to the client.
func (s *InvoiceService) Send(ctx context.Context, userID, invoiceID uint) (*models.Invoice, error) {
	var invoice models.Invoice
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", invoiceID, userID).
		Preload("Items").
		Preload("Client").
		First(&invoice).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, err
	}

	if !invoice.IsDraft() {
		return nil, ErrNotDraft
	}
	if len(invoice.Items) == 0 {
		return nil, ErrEmptyInvoice
	}

	invoice.RecomputeTotals()
	if invoice.Total <= 0 {
		return nil, ErrEmptyInvoice
	}

	now := time.Now()
	if invoice.IssueDate.IsZero() {
		invoice.IssueDate = now
	}
	if invoice.DueDate.IsZero() {
		invoice.DueDate = now.AddDate(0, 0, 30)
	}

	number, err := models.GenerateInvoiceNumber(s.db, userID, invoice.IssueDate.Year())
	if err != nil {
		return nil, fmt.Errorf("generate invoice number: %w", err)
	}
	invoice.Number = number
	invoice.PayToken = uuid.NewString()
	invoice.Status = models.InvoiceStatusSent

	if err := s.db.WithContext(ctx).Save(&invoice).Error; err != nil {
		return nil, err
	}

	if invoice.Client != nil && invoice.Client.Email != "" {
		data := map[string]any{
			"invoice_number": invoice.Number,
			"total":          invoice.Total,
			"currency":       invoice.Currency,
			"due_date":       invoice.DueDate.Format("2006-01-02"),
			"pay_url":        s.baseURL + "/pay/" + invoice.PayToken,
		}
		if err := outbox.Enqueue(s.db, models.EmailInvoiceSent, invoice.Client.Email, invoice.Client.Name, data); err != nil {
			s.log.Error().Err(err).Uint("invoice_id", invoice.ID).Msg("failed to enqueue invoice email")
		}
	}
	return &invoice, nil
}

// Remind enqueues a payment reminder for an invoice that still has an
// outstanding balance.
func (s *InvoiceService) Remind(ctx context.Context, userID, invoiceID uint) error {
	var invoice models.Invoice
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", invoiceID, userID).
		Preload("Client").
		First(&invoice).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvoiceNotFound
		}
		return err
	}

	if !invoice.IsPayable() {
		return ErrNotRemindable
	}
	if invoice.Client == nil || invoice.Client.Email == "" {
		return ErrNotRemindable
	}

	data := map[string]any{
		"invoice_number": invoice.Number,
		"remaining":      invoice.RemainingBalance(),
		"currency":       invoice.Currency,
		"due_date":       invoice.DueDate.Format("2006-01-02"),
		"pay_url":        s.baseURL + "/pay/" + invoice.PayToken,
	}
	return outbox.Enqueue(s.db, models.EmailInvoiceReminder, invoice.Client.Email, invoice.Client.Name, data)
}

// MarkOverdue flips sent invoices past their due date to overdue. Run from
// cron via the -mark-overdue flag.
func (s *InvoiceService) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Invoice{}).
		Where("status = ? AND due_date < ?", models.InvoiceStatusSent, now).
		Update("status", models.InvoiceStatusOverdue)
	return res.RowsAffected, res.Error
}
