package handlers

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/diewo77/go-freelance/internal/auth"
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

func seedUserAndClient(t *testing.T, conn *gorm.DB) (models.User, models.Client) {
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
	return user, client
}

// authedRequest builds a request carrying the given user id in context, the
// way auth.Middleware would after validating the session cookie.
func authedRequest(t *testing.T, method, target string, body io.Reader, userID uint) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req.WithContext(auth.WithUserID(req.Context(), userID))
}
