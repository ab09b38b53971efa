package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v74"
	"gorm.io/gorm"

	"github.com/diewo77/go-freelance/internal/logger"
	"github.com/diewo77/go-freelance/internal/models"
	"github.com/diewo77/go-freelance/internal/outbox"
)

var (
	ErrBadSignature = errors.New("webhook signature verification failed")
	ErrOverpayment  = errors.New("payment exceeds invoice balance")
)

// VerifyFunc checks a webhook payload against its signature header and
// returns the parsed event. The Stripe implementation lives on
// payments.StripeClient; tests inject a stub.
type VerifyFunc func(payload []byte, signature string) (stripe.Event, error)

// WebhookService applies provider webhook events to local state. All
// invoice mutations go through a single transaction per event, and the
// event ledger plus the unique provider payment id make processing
// idempotent against redelivery.
type WebhookService struct {
	db     *gorm.DB
	verify VerifyFunc
	log    zerolog.Logger
}

func NewWebhookService(db *gorm.DB, verify VerifyFunc) *WebhookService {
	return &WebhookService{
		db:     db,
		verify: verify,
		log:    logger.WithComponent("webhook"),
	}
}

// HandleEvent verifies the payload signature, records the event in the
// dedup ledger and dispatches on the event type. Duplicate deliveries of an
// already processed event return nil without touching any state.
func (s *WebhookService) HandleEvent(ctx context.Context, body []byte, signature string) error {
	event, err := s.verify(body, signature)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	}

	ledger, duplicate, err := s.recordEvent(ctx, &event, body)
	if err != nil {
		return err
	}
	if duplicate {
		s.log.Info().Str("event_id", event.ID).Msg("duplicate webhook delivery ignored")
		return nil
	}

	if err := s.dispatch(ctx, &event); err != nil {
		// Keep the ledger row unprocessed so the provider's redelivery
		// retries it.
		s.db.WithContext(ctx).Model(ledger).Update("processing_error", err.Error())
		return err
	}

	now := time.Now()
	return s.db.WithContext(ctx).Model(ledger).
		Updates(map[string]any{"processed_at": &now, "processing_error": ""}).Error
}

// recordEvent inserts the ledger row for this delivery. It reports
// duplicate=true when the event was already fully processed; an existing
// unprocessed row (a previous attempt that failed) is retried.
func (s *WebhookService) recordEvent(ctx context.Context, event *stripe.Event, body []byte) (*models.WebhookEvent, bool, error) {
	var existing models.WebhookEvent
	err := s.db.WithContext(ctx).
		Where("provider = ? AND provider_event_id = ?", "stripe", event.ID).
		First(&existing).Error
	if err == nil {
		if existing.ProcessedAt != nil {
			return &existing, true, nil
		}
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("lookup webhook event: %w", err)
	}

	row := models.WebhookEvent{
		Provider:        "stripe",
		ProviderEventID: event.ID,
		EventType:       string(event.Type),
		Payload:         string(body),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost the race against a concurrent delivery of the same event.
			return nil, true, nil
		}
		return nil, false, fmt.Errorf("record webhook event: %w", err)
	}
	return &row, false, nil
}

func (s *WebhookService) dispatch(ctx context.Context, event *stripe.Event) error {
	switch event.Type {
	case "checkout.session.completed":
		// Cosmetic: the credit happens on payment_intent.succeeded.
		s.log.Info().Str("event_id", event.ID).Msg("checkout session completed")
		return nil
	case "payment_intent.succeeded":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return err
		}
		return s.handlePaymentSucceeded(ctx, &pi)
	case "payment_intent.payment_failed":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return err
		}
		return s.handlePaymentFailed(ctx, &pi)
	case "account.updated":
		var account stripe.Account
		if err := json.Unmarshal(event.Data.Raw, &account); err != nil {
			return err
		}
		return s.handleAccountUpdated(ctx, &account)
	default:
		s.log.Warn().Str("type", string(event.Type)).Msg("unhandled webhook event type")
		return nil
	}
}

// handlePaymentSucceeded credits the invoice referenced by the payment
// intent metadata. The Payment row and the paid_amount increment commit in
// one transaction; the conditional update closes the race window between
// concurrent deliveries and enforces paid_amount <= total.
func (s *WebhookService) handlePaymentSucceeded(ctx context.Context, pi *stripe.PaymentIntent) error {
	invoiceID, ok := invoiceIDFromMetadata(pi.Metadata)
	if !ok {
		s.log.Warn().Str("payment_intent", pi.ID).Msg("payment intent without invoice metadata")
		return nil
	}

	amount := pi.AmountReceived
	if amount <= 0 {
		amount = pi.Amount
	}
	if amount <= 0 {
		return fmt.Errorf("payment intent %s carries no amount", pi.ID)
	}

	credited := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var invoice models.Invoice
		if err := tx.First(&invoice, invoiceID).Error; err != nil {
			return fmt.Errorf("invoice %d for payment %s: %w", invoiceID, pi.ID, err)
		}

		// One credit per provider payment, ever.
		var existing int64
		if err := tx.Model(&models.Payment{}).
			Where("provider_payment_id = ?", pi.ID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return nil
		}

		payment := models.Payment{
			InvoiceID:         invoice.ID,
			Amount:            amount,
			Currency:          string(pi.Currency),
			ProviderPaymentID: pi.ID,
			ReceivedAt:        time.Now(),
		}
		if err := tx.Create(&payment).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil
			}
			return err
		}

		res := tx.Model(&models.Invoice{}).
			Where("id = ? AND paid_amount + ? <= total", invoice.ID, amount).
			UpdateColumn("paid_amount", gorm.Expr("paid_amount + ?", amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: invoice %d amount %d", ErrOverpayment, invoice.ID, amount)
		}

		if err := tx.First(&invoice, invoice.ID).Error; err != nil {
			return err
		}
		invoice.Status = invoice.StatusForPaidAmount(invoice.PaidAmount)
		if invoice.Status == models.InvoiceStatusPaid && invoice.PaidDate == nil {
			now := time.Now()
			invoice.PaidDate = &now
		}
		if err := tx.Save(&invoice).Error; err != nil {
			return err
		}

		credited = true
		return nil
	})
	if err != nil {
		return err
	}
	if !credited {
		s.log.Info().Str("payment_intent", pi.ID).Msg("payment already credited, skipping")
		return nil
	}

	s.notifyPayment(ctx, invoiceID, amount)
	return nil
}

// notifyPayment enqueues payment emails to both the client and the
// developer. Enqueue failures are logged, never returned: the credit has
// already committed.
func (s *WebhookService) notifyPayment(ctx context.Context, invoiceID uint, amount int64) {
	var invoice models.Invoice
	err := s.db.WithContext(ctx).
		Preload("Client").
		Preload("User").
		First(&invoice, invoiceID).Error
	if err != nil {
		s.log.Error().Err(err).Uint("invoice_id", invoiceID).Msg("failed to load invoice for notification")
		return
	}

	kind := models.EmailInvoicePartiallyPaid
	if invoice.Status == models.InvoiceStatusPaid {
		kind = models.EmailInvoicePaid
	}
	data := map[string]any{
		"invoice_number": invoice.Number,
		"amount":         amount,
		"paid_amount":    invoice.PaidAmount,
		"total":          invoice.Total,
		"remaining":      invoice.RemainingBalance(),
		"currency":       invoice.Currency,
	}

	if invoice.Client != nil && invoice.Client.Email != "" {
		if err := outbox.Enqueue(s.db, kind, invoice.Client.Email, invoice.Client.Name, data); err != nil {
			s.log.Error().Err(err).Msg("failed to enqueue client payment email")
		}
	}
	if invoice.User.Email != "" {
		if err := outbox.Enqueue(s.db, kind, invoice.User.Email, invoice.User.Name, data); err != nil {
			s.log.Error().Err(err).Msg("failed to enqueue developer payment email")
		}
	}
}

// handlePaymentFailed reports the failure to the developer without touching
// the paid amount.
func (s *WebhookService) handlePaymentFailed(ctx context.Context, pi *stripe.PaymentIntent) error {
	invoiceID, ok := invoiceIDFromMetadata(pi.Metadata)
	if !ok {
		return nil
	}

	var invoice models.Invoice
	if err := s.db.WithContext(ctx).Preload("User").Preload("Client").First(&invoice, invoiceID).Error; err != nil {
		return fmt.Errorf("invoice %d for failed payment %s: %w", invoiceID, pi.ID, err)
	}

	reason := ""
	if pi.LastPaymentError != nil {
		reason = string(pi.LastPaymentError.Code)
	}
	s.log.Warn().
		Str("payment_intent", pi.ID).
		Uint("invoice_id", invoice.ID).
		Str("reason", reason).
		Msg("payment failed")

	if invoice.User.Email == "" {
		return nil
	}
	data := map[string]any{
		"invoice_number": invoice.Number,
		"amount":         pi.Amount,
		"currency":       invoice.Currency,
		"reason":         reason,
	}
	if err := outbox.Enqueue(s.db, models.EmailPaymentFailed, invoice.User.Email, invoice.User.Name, data); err != nil {
		s.log.Error().Err(err).Msg("failed to enqueue payment failure email")
	}
	return nil
}

// handleAccountUpdated syncs the connected account capability flags.
func (s *WebhookService) handleAccountUpdated(ctx context.Context, account *stripe.Account) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("stripe_account_id = ?", account.ID).
		Updates(map[string]any{
			"charges_enabled": account.ChargesEnabled,
			"payouts_enabled": account.PayoutsEnabled,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		s.log.Warn().Str("account", account.ID).Msg("account update for unknown user")
	}
	return nil
}

func invoiceIDFromMetadata(metadata map[string]string) (uint, bool) {
	raw, ok := metadata["invoice_id"]
	if !ok || raw == "" {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}
