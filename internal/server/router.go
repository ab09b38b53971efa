package server

import (
	"context"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/diewo77/go-freelance/internal/auth"
	"github.com/diewo77/go-freelance/internal/handlers"
	"github.com/diewo77/go-freelance/internal/httpx"
	"github.com/diewo77/go-freelance/internal/logger"
	"github.com/diewo77/go-freelance/internal/models"
	"github.com/diewo77/go-freelance/internal/services"
)

// Deps bundles everything the router needs so main stays a thin bootstrap.
type Deps struct {
	DB          *gorm.DB
	CheckoutSvc *services.CheckoutService
	WebhookSvc  *services.WebhookService
	InvoiceSvc  *services.InvoiceService
	ContractSvc *services.ContractService
}

// New constructs the root http.Handler with all routes and middlewares applied.
func New(d Deps) http.Handler {
	mux := http.NewServeMux()

	// Configure a user verifier so RequireAuth can ensure the user still exists.
	auth.SetUserVerifier(func(_ context.Context, uid uint) bool {
		var count int64
		if err := d.DB.Model(&models.User{}).Where("id = ?", uid).Limit(1).Count(&count).Error; err != nil {
			return false
		}
		return count > 0
	})

	// --- Health endpoints ---
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		if err := d.DB.Exec("SELECT 1").Error; err != nil {
			httpx.JSONError(w, http.StatusServiceUnavailable, "degraded", nil)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// --- Auth ---
	authHandler := handlers.NewAuthHandler(d.DB)
	mux.HandleFunc("POST /signup", authHandler.Signup)
	mux.HandleFunc("POST /login", authHandler.Login)
	mux.HandleFunc("POST /logout", authHandler.Logout)

	protected := func(h http.HandlerFunc) http.Handler {
		return auth.RequireAuth(h)
	}

	// --- Clients ---
	ch := handlers.NewClientHandler(d.DB)
	mux.Handle("GET /clients", protected(ch.List))
	mux.Handle("POST /clients", protected(ch.Create))
	mux.Handle("GET /clients/{id}", protected(ch.View))
	mux.Handle("PUT /clients/{id}", protected(ch.Update))
	mux.Handle("DELETE /clients/{id}", protected(ch.Delete))

	// --- Projects ---
	ph := handlers.NewProjectHandler(d.DB)
	mux.Handle("GET /projects", protected(ph.List))
	mux.Handle("POST /projects", protected(ph.Create))
	mux.Handle("GET /projects/{id}", protected(ph.View))
	mux.Handle("PUT /projects/{id}", protected(ph.Update))
	mux.Handle("DELETE /projects/{id}", protected(ph.Delete))

	// --- Invoices ---
	ih := handlers.NewInvoiceHandler(d.DB, d.InvoiceSvc)
	mux.Handle("GET /invoices", protected(ih.List))
	mux.Handle("POST /invoices", protected(ih.Create))
	mux.Handle("GET /invoices/{id}", protected(ih.View))
	mux.Handle("PUT /invoices/{id}", protected(ih.Update))
	mux.Handle("DELETE /invoices/{id}", protected(ih.Delete))
	mux.Handle("POST /invoices/{id}/send", protected(ih.Send))
	mux.Handle("POST /invoices/{id}/remind", protected(ih.Remind))
	// PDF does its own owner-or-token authorization.
	mux.HandleFunc("GET /invoices/{id}/pdf", ih.PDF)

	// --- Contracts ---
	cth := handlers.NewContractHandler(d.DB, d.ContractSvc)
	mux.Handle("GET /contracts", protected(cth.List))
	mux.Handle("POST /contracts", protected(cth.Create))
	mux.Handle("GET /contracts/{id}", protected(cth.View))
	mux.Handle("PUT /contracts/{id}", protected(cth.Update))
	mux.Handle("DELETE /contracts/{id}", protected(cth.Delete))
	mux.Handle("POST /contracts/{id}/send", protected(cth.Send))
	mux.HandleFunc("GET /contracts/{id}/pdf", cth.PDF)

	// --- Settings ---
	sh := handlers.NewSettingsHandler(d.DB)
	mux.Handle("GET /settings/profile", protected(sh.Profile))
	mux.Handle("PUT /settings/profile", protected(sh.UpdateProfile))
	mux.Handle("GET /settings/payments", protected(sh.Payments))
	mux.Handle("PUT /settings/payments", protected(sh.UpdatePayments))

	// --- Public pay & sign flows (token authorized) ---
	pub := handlers.NewPublicHandler(d.DB, d.ContractSvc)
	mux.HandleFunc("GET /pay/{token}", pub.PayPage)
	mux.HandleFunc("GET /sign/{token}", pub.SignPage)
	mux.HandleFunc("POST /sign/{token}", pub.Sign)
	mux.HandleFunc("POST /sign/{token}/decline", pub.Decline)

	// --- Checkout & webhooks ---
	co := handlers.NewCheckoutHandler(d.CheckoutSvc)
	mux.HandleFunc("POST /checkout", co.Create)
	wh := handlers.NewWebhookHandler(d.WebhookSvc)
	mux.HandleFunc("POST /webhooks/stripe", wh.Stripe)

	return auth.Middleware(withRecover(withLogging(mux)))
}

func withLogging(next http.Handler) http.Handler {
	log := logger.WithComponent("http")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

func withRecover(next http.Handler) http.Handler {
	log := logger.WithComponent("http")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("handler panicked")
				httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
