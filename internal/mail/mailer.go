// Package mail delivers notification emails through SendGrid dynamic
// templates.
package mail

import (
	"context"
	"fmt"
	"net/http"

	sendgrid "github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/diewo77/go-freelance/internal/config"
)

// Message is a single rendered notification.
type Message struct {
	ToEmail    string
	ToName     string
	TemplateID string
	// Data is merged into the dynamic template.
	Data map[string]any
}

// Sender delivers a message. The outbox worker depends on this interface so
// tests can substitute a recording fake.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SendGridSender implements Sender with the SendGrid v3 mail API.
type SendGridSender struct {
	client *sendgrid.Client
	cfg    config.MailConfig
}

func NewSendGridSender(cfg config.MailConfig) *SendGridSender {
	return &SendGridSender{
		client: sendgrid.NewSendClient(cfg.APIKey),
		cfg:    cfg,
	}
}

func (s *SendGridSender) Send(ctx context.Context, msg Message) error {
	m := sgmail.NewV3Mail()
	m.SetFrom(sgmail.NewEmail(s.cfg.FromName, s.cfg.FromEmail))
	m.SetTemplateID(msg.TemplateID)

	p := sgmail.NewPersonalization()
	p.AddTos(sgmail.NewEmail(msg.ToName, msg.ToEmail))
	for k, v := range msg.Data {
		p.SetDynamicTemplateData(k, v)
	}
	m.AddPersonalizations(p)

	resp, err := s.client.SendWithContext(ctx, m)
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid returned status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// TemplateFor resolves the dynamic template id for a notification kind.
func TemplateFor(t config.TemplateIDs, kind string) (string, error) {
	switch kind {
	case "invoice_sent":
		return t.InvoiceSent, nil
	case "invoice_paid":
		return t.InvoicePaid, nil
	case "invoice_partially_paid":
		return t.InvoicePartiallyPaid, nil
	case "invoice_reminder":
		return t.InvoiceReminder, nil
	case "payment_failed":
		return t.PaymentFailed, nil
	case "contract_sent":
		return t.ContractSent, nil
	case "contract_signed":
		return t.ContractSigned, nil
	}
	return "", fmt.Errorf("unknown notification kind %q", kind)
}
