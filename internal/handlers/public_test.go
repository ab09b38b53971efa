package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/diewo77/go-freelance/internal/models"
	"github.com/diewo77/go-freelance/internal/services"
)

func TestPayPage(t *testing.T) {
	conn := setupTestDB(t)
	user, client := seedUserAndClient(t, conn)

	invoice := models.Invoice{
		UserID:               user.ID,
		ClientID:             client.ID,
		Status:               models.InvoiceStatusSent,
		Currency:             "usd",
		Number:               "INV-2026-0001",
		PayToken:             "tok-pay",
		Total:                10000,
		PaidAmount:           2500,
		AllowPartialPayments: true,
		DueDate:              time.Now().AddDate(0, 0, 10),
	}
	if err := conn.Create(&invoice).Error; err != nil {
		t.Fatalf("invoice: %v", err)
	}

	h := NewPublicHandler(conn, services.NewContractService(conn, "https://app.test"))

	req := httptest.NewRequest(http.MethodGet, "/pay/tok-pay", nil)
	req.SetPathValue("token", "tok-pay")
	rr := httptest.NewRecorder()
	h.PayPage(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}

	var page map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if page["remaining"] != float64(7500) {
		t.Fatalf("remaining = %v", page["remaining"])
	}
	if page["business_name"] != "Dev LLC" || page["client_name"] != "Acme Corp" {
		t.Fatalf("names: %v / %v", page["business_name"], page["client_name"])
	}
	if page["payable"] != true {
		t.Fatalf("payable = %v", page["payable"])
	}

	// Unknown tokens 404.
	req = httptest.NewRequest(http.MethodGet, "/pay/none", nil)
	req.SetPathValue("token", "none")
	rr = httptest.NewRecorder()
	h.PayPage(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown token: status=%d", rr.Code)
	}
}

func TestSignFlow(t *testing.T) {
	conn := setupTestDB(t)
	user, client := seedUserAndClient(t, conn)

	contract := models.Contract{
		UserID:   user.ID,
		ClientID: client.ID,
		Title:    "Agreement",
		Body:     "Terms.",
		Status:   models.ContractStatusDraft,
	}
	if err := conn.Create(&contract).Error; err != nil {
		t.Fatalf("contract: %v", err)
	}

	svc := services.NewContractService(conn, "https://app.test")
	sent, err := svc.Send(context.Background(), user.ID, contract.ID)
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	h := NewPublicHandler(conn, svc)

	// The sign page is reachable with the token.
	req := httptest.NewRequest(http.MethodGet, "/sign/"+sent.SignToken, nil)
	req.SetPathValue("token", sent.SignToken)
	rr := httptest.NewRecorder()
	h.SignPage(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("sign page: status=%d body=%s", rr.Code, rr.Body.String())
	}

	// Missing signature data is rejected.
	req = httptest.NewRequest(http.MethodPost, "/sign/"+sent.SignToken, strings.NewReader(`{"signer_name": "Alice"}`))
	req.SetPathValue("token", sent.SignToken)
	rr = httptest.NewRecorder()
	h.Sign(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("missing signature: status=%d", rr.Code)
	}

	// Signing records the artifacts.
	body := `{"signer_name": "Alice Smith", "signature_image": "data:image/png;base64,abc"}`
	req = httptest.NewRequest(http.MethodPost, "/sign/"+sent.SignToken, strings.NewReader(body))
	req.SetPathValue("token", sent.SignToken)
	req.RemoteAddr = "203.0.113.7:51234"
	rr = httptest.NewRecorder()
	h.Sign(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("sign: status=%d body=%s", rr.Code, rr.Body.String())
	}

	var got models.Contract
	if err := conn.First(&got, contract.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Status != models.ContractStatusSigned || got.SignerName != "Alice Smith" {
		t.Fatalf("contract after sign: status=%s signer=%q", got.Status, got.SignerName)
	}
	if got.SignerIP != "203.0.113.7" {
		t.Fatalf("signer ip = %q", got.SignerIP)
	}

	// Signing again fails.
	req = httptest.NewRequest(http.MethodPost, "/sign/"+sent.SignToken, strings.NewReader(body))
	req.SetPathValue("token", sent.SignToken)
	rr = httptest.NewRecorder()
	h.Sign(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("double sign: status=%d", rr.Code)
	}
}

func TestDeclineFlow(t *testing.T) {
	conn := setupTestDB(t)
	user, client := seedUserAndClient(t, conn)

	contract := models.Contract{
		UserID:   user.ID,
		ClientID: client.ID,
		Title:    "Agreement",
		Status:   models.ContractStatusDraft,
	}
	if err := conn.Create(&contract).Error; err != nil {
		t.Fatalf("contract: %v", err)
	}
	svc := services.NewContractService(conn, "https://app.test")
	sent, err := svc.Send(context.Background(), user.ID, contract.ID)
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	h := NewPublicHandler(conn, svc)

	req := httptest.NewRequest(http.MethodPost, "/sign/"+sent.SignToken+"/decline", nil)
	req.SetPathValue("token", sent.SignToken)
	rr := httptest.NewRecorder()
	h.Decline(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("decline: status=%d body=%s", rr.Code, rr.Body.String())
	}

	var got models.Contract
	if err := conn.First(&got, contract.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Status != models.ContractStatusDeclined {
		t.Fatalf("status = %s", got.Status)
	}
}

func TestContractPDFRequiresSignedForToken(t *testing.T) {
	conn := setupTestDB(t)
	user, client := seedUserAndClient(t, conn)

	contract := models.Contract{
		UserID:    user.ID,
		ClientID:  client.ID,
		Title:     "Agreement",
		Body:      "Terms.",
		Status:    models.ContractStatusSent,
		Number:    "CTR-2026-0001",
		SignToken: "tok-sign",
	}
	if err := conn.Create(&contract).Error; err != nil {
		t.Fatalf("contract: %v", err)
	}

	h := NewContractHandler(conn, services.NewContractService(conn, "https://app.test"))

	pdfReq := func(query string, userID uint) *httptest.ResponseRecorder {
		target := fmt.Sprintf("/contracts/%d/pdf%s", contract.ID, query)
		var req *http.Request
		if userID != 0 {
			req = authedRequest(t, http.MethodGet, target, nil, userID)
		} else {
			req = httptest.NewRequest(http.MethodGet, target, nil)
		}
		req.SetPathValue("id", fmt.Sprint(contract.ID))
		rr := httptest.NewRecorder()
		h.PDF(rr, req)
		return rr
	}

	// The token only works once the contract is signed.
	if rr := pdfReq("?token=tok-sign", 0); rr.Code != http.StatusForbidden {
		t.Fatalf("unsigned token pdf: status=%d", rr.Code)
	}
	// The owner can always download.
	if rr := pdfReq("", user.ID); rr.Code != http.StatusOK {
		t.Fatalf("owner pdf: status=%d", rr.Code)
	}

	now := time.Now()
	updates := map[string]any{
		"status":      models.ContractStatusSigned,
		"signer_name": "Alice Smith",
		"signed_at":   &now,
	}
	if err := conn.Model(&contract).Updates(updates).Error; err != nil {
		t.Fatalf("mark signed: %v", err)
	}

	if rr := pdfReq("?token=tok-sign", 0); rr.Code != http.StatusOK {
		t.Fatalf("signed token pdf: status=%d", rr.Code)
	} else if ct := rr.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("content type = %q", ct)
	}
}
