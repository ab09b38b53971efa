package server

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stripe/stripe-go/v74"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/diewo77/go-freelance/internal/db"
	"github.com/diewo77/go-freelance/internal/services"
)

func testHandler(t *testing.T) http.Handler {
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

	rejectAll := func(_ []byte, _ string) (stripe.Event, error) {
		return stripe.Event{}, errors.New("signature mismatch")
	}
	return New(Deps{
		DB:          conn,
		CheckoutSvc: services.NewCheckoutService(conn, nil, "https://app.test"),
		WebhookSvc:  services.NewWebhookService(conn, rejectAll),
		InvoiceSvc:  services.NewInvoiceService(conn, "https://app.test"),
		ContractSvc: services.NewContractService(conn, "https://app.test"),
	})
}

func TestHealthz(t *testing.T) {
	h := testHandler(t)
	r := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	h := testHandler(t)
	for _, target := range []string{"/invoices", "/clients", "/projects", "/contracts", "/settings/payments"} {
		r := httptest.NewRequest(http.MethodGet, target, nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401 got %d", target, w.Code)
		}
	}
}

func TestPublicRoutesAreOpen(t *testing.T) {
	h := testHandler(t)

	// Unknown tokens are a 404, not a 401.
	r := httptest.NewRequest(http.MethodGet, "/pay/nope", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusNotFound {
		t.Fatalf("pay page: expected 404 got %d", w.Code)
	}

	// Webhooks with a bad signature are rejected with a 400.
	r = httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader("{}"))
	r.Header.Set("Stripe-Signature", "t=1,v1=bad")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("webhook: expected 400 got %d", w.Code)
	}
}
