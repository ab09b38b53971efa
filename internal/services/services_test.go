package services

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/diewo77/go-freelance/internal/db"
	"github.com/diewo77/go-freelance/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

// seedSentInvoice creates a user with working payments, a client and a sent
// invoice of 10000 cents with a pay token.
func seedSentInvoice(t *testing.T, conn *gorm.DB, mutate func(*models.Invoice)) (models.User, models.Client, models.Invoice) {
	t.Helper()

	user := models.User{
		Email:           "dev@example.com",
		Password:        "x",
		Name:            "Dev",
		BusinessName:    "Dev LLC",
		StripeAccountID: "acct_123",
		ChargesEnabled:  true,
	}
	if err := conn.Create(&user).Error; err != nil {
		t.Fatalf("user: %v", err)
	}

	client := models.Client{UserID: user.ID, Name: "Alice", Company: "Acme Corp", Email: "alice@acme.test"}
	if err := conn.Create(&client).Error; err != nil {
		t.Fatalf("client: %v", err)
	}

	invoice := models.Invoice{
		UserID:    user.ID,
		ClientID:  client.ID,
		Number:    "INV-2026-0001",
		Status:    models.InvoiceStatusSent,
		Currency:  "usd",
		Subtotal:  10000,
		Total:     10000,
		PayToken:  "tok-" + t.Name(),
		IssueDate: time.Now(),
		DueDate:   time.Now().AddDate(0, 0, 30),
	}
	if mutate != nil {
		mutate(&invoice)
	}
	if err := conn.Create(&invoice).Error; err != nil {
		t.Fatalf("invoice: %v", err)
	}
	return user, client, invoice
}

func countOutbox(t *testing.T, conn *gorm.DB, kind string) int64 {
	t.Helper()
	var n int64
	if err := conn.Model(&models.OutboxEmail{}).Where("kind = ?", kind).Count(&n).Error; err != nil {
		t.Fatalf("count outbox: %v", err)
	}
	return n
}
