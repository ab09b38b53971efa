package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/diewo77/go-freelance/internal/models"
	"github.com/diewo77/go-freelance/internal/payments"
	"github.com/diewo77/go-freelance/internal/services"
)

type fakeProvider struct {
	err error
}

func (f *fakeProvider) CreateCheckoutSession(_ context.Context, _ payments.SessionParams) (*payments.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &payments.Session{ID: "cs_test", URL: "https://checkout.test/cs_test"}, nil
}

func TestCheckoutHandler(t *testing.T) {
	conn := setupTestDB(t)
	user, client := seedUserAndClient(t, conn)

	invoice := models.Invoice{
		UserID:    user.ID,
		ClientID:  client.ID,
		Status:    models.InvoiceStatusSent,
		Currency:  "usd",
		Number:    "INV-2026-0001",
		PayToken:  "tok-checkout",
		Total:     10000,
		IssueDate: time.Now(),
		DueDate:   time.Now().AddDate(0, 0, 30),
	}
	if err := conn.Create(&invoice).Error; err != nil {
		t.Fatalf("invoice: %v", err)
	}

	h := NewCheckoutHandler(services.NewCheckoutService(conn, &fakeProvider{}, "https://app.test"))

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/checkout", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		h.Create(rr, req)
		return rr
	}

	// Full payment succeeds.
	rr := post(`{"pay_token": "tok-checkout"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("full payment: status=%d body=%s", rr.Code, rr.Body.String())
	}
	var session map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &session); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if session["url"] == "" {
		t.Fatalf("missing redirect url: %v", session)
	}

	// Unknown token.
	if rr := post(`{"pay_token": "nope"}`); rr.Code != http.StatusNotFound {
		t.Fatalf("unknown token: status=%d", rr.Code)
	}

	// Partial payment on an invoice that does not allow it.
	rr = post(`{"pay_token": "tok-checkout", "amount": 5000}`)
	if rr.Code != http.StatusBadRequest || !strings.Contains(rr.Body.String(), "partial_payments_not_allowed") {
		t.Fatalf("partial: status=%d body=%s", rr.Code, rr.Body.String())
	}

	// Over the remaining balance.
	rr = post(`{"pay_token": "tok-checkout", "amount": 20000}`)
	if rr.Code != http.StatusBadRequest || !strings.Contains(rr.Body.String(), "invalid_amount") {
		t.Fatalf("over balance: status=%d body=%s", rr.Code, rr.Body.String())
	}

	// Negative amounts never reach the service.
	if rr := post(`{"pay_token": "tok-checkout", "amount": -5}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("negative amount: status=%d", rr.Code)
	}

	// Garbage body.
	if rr := post(`{`); rr.Code != http.StatusBadRequest {
		t.Fatalf("bad json: status=%d", rr.Code)
	}
}

func TestCheckoutHandlerProviderFailure(t *testing.T) {
	conn := setupTestDB(t)
	user, client := seedUserAndClient(t, conn)

	invoice := models.Invoice{
		UserID:   user.ID,
		ClientID: client.ID,
		Status:   models.InvoiceStatusSent,
		Currency: "usd",
		PayToken: "tok-fail",
		Total:    10000,
	}
	if err := conn.Create(&invoice).Error; err != nil {
		t.Fatalf("invoice: %v", err)
	}

	h := NewCheckoutHandler(services.NewCheckoutService(conn, &fakeProvider{err: payments.ErrSessionFailed}, "https://app.test"))

	req := httptest.NewRequest(http.MethodPost, "/checkout", strings.NewReader(`{"pay_token": "tok-fail"}`))
	rr := httptest.NewRecorder()
	h.Create(rr, req)
	if rr.Code != http.StatusInternalServerError || !strings.Contains(rr.Body.String(), "checkout_failed") {
		t.Fatalf("provider failure: status=%d body=%s", rr.Code, rr.Body.String())
	}
}
