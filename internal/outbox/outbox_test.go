package outbox

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/diewo77/go-freelance/internal/config"
	"github.com/diewo77/go-freelance/internal/mail"
	"github.com/diewo77/go-freelance/internal/models"
)

type fakeSender struct {
	sent []mail.Message
	err  error
}

func (f *fakeSender) Send(_ context.Context, msg mail.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func testTemplates() config.TemplateIDs {
	return config.TemplateIDs{
		InvoiceSent:     "d-invoice-sent",
		InvoicePaid:     "d-invoice-paid",
		InvoiceReminder: "d-invoice-reminder",
	}
}

func setupOutboxDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(&models.OutboxEmail{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func TestOutboxDeliversDueRows(t *testing.T) {
	conn := setupOutboxDB(t)
	sender := &fakeSender{}
	worker := NewWorker(conn, sender, config.OutboxConfig{PollInterval: 1, MaxAttempts: 5}, testTemplates())

	err := Enqueue(conn, models.EmailInvoiceSent, "alice@acme.test", "Alice", map[string]any{"invoice_number": "INV-2026-0001"})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	worker.ProcessDue(context.Background())

	if len(sender.sent) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(sender.sent))
	}
	msg := sender.sent[0]
	if msg.ToEmail != "alice@acme.test" || msg.TemplateID != "d-invoice-sent" {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if msg.Data["invoice_number"] != "INV-2026-0001" {
		t.Fatalf("template data not carried through: %+v", msg.Data)
	}

	var row models.OutboxEmail
	if err := conn.First(&row).Error; err != nil {
		t.Fatalf("load row: %v", err)
	}
	if row.SentAt == nil {
		t.Fatal("row not marked sent")
	}
}

func TestOutboxRetriesWithBackoff(t *testing.T) {
	conn := setupOutboxDB(t)
	sender := &fakeSender{err: errors.New("provider unavailable")}
	worker := NewWorker(conn, sender, config.OutboxConfig{PollInterval: 1, MaxAttempts: 5}, testTemplates())

	if err := Enqueue(conn, models.EmailInvoicePaid, "alice@acme.test", "Alice", nil); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	worker.ProcessDue(context.Background())

	var row models.OutboxEmail
	if err := conn.First(&row).Error; err != nil {
		t.Fatalf("load row: %v", err)
	}
	if row.SentAt != nil {
		t.Fatal("failed row must not be marked sent")
	}
	if row.Attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", row.Attempts)
	}
	if row.LastError == "" {
		t.Fatal("last error not recorded")
	}
	if !row.NextAttemptAt.After(time.Now()) {
		t.Fatalf("next attempt should be in the future, got %v", row.NextAttemptAt)
	}

	// Not due yet, so a second pass must not retry.
	sender.err = nil
	worker.ProcessDue(context.Background())
	if len(sender.sent) != 0 {
		t.Fatal("row retried before its backoff elapsed")
	}

	// Once due again it goes through.
	conn.Model(&row).Update("next_attempt_at", time.Now().Add(-time.Second))
	worker.ProcessDue(context.Background())
	if len(sender.sent) != 1 {
		t.Fatalf("expected delivery after backoff, got %d", len(sender.sent))
	}
}

func TestOutboxUnknownKindIsPermanent(t *testing.T) {
	conn := setupOutboxDB(t)
	sender := &fakeSender{}
	worker := NewWorker(conn, sender, config.OutboxConfig{PollInterval: 1, MaxAttempts: 5}, testTemplates())

	if err := Enqueue(conn, "no_such_kind", "alice@acme.test", "Alice", nil); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	worker.ProcessDue(context.Background())

	var row models.OutboxEmail
	if err := conn.First(&row).Error; err != nil {
		t.Fatalf("load row: %v", err)
	}
	if row.Attempts != 5 {
		t.Fatalf("permanent failure should burn all attempts, got %d", row.Attempts)
	}
	if len(sender.sent) != 0 {
		t.Fatal("nothing should have been sent")
	}

	// Exhausted rows never come back.
	conn.Model(&row).Update("next_attempt_at", time.Now().Add(-time.Second))
	worker.ProcessDue(context.Background())
	if len(sender.sent) != 0 {
		t.Fatal("exhausted row was retried")
	}
}

func TestOutboxSkipsRowsExceedingMaxAttempts(t *testing.T) {
	conn := setupOutboxDB(t)
	sender := &fakeSender{err: errors.New("down")}
	worker := NewWorker(conn, sender, config.OutboxConfig{PollInterval: 1, MaxAttempts: 2}, testTemplates())

	if err := Enqueue(conn, models.EmailInvoiceReminder, "alice@acme.test", "Alice", nil); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	for i := 0; i < 3; i++ {
		conn.Model(&models.OutboxEmail{}).Where("1 = 1").Update("next_attempt_at", time.Now().Add(-time.Second))
		worker.ProcessDue(context.Background())
	}

	var row models.OutboxEmail
	if err := conn.First(&row).Error; err != nil {
		t.Fatalf("load row: %v", err)
	}
	if row.Attempts != 2 {
		t.Fatalf("expected attempts capped at 2, got %d", row.Attempts)
	}
}
