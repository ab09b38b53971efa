// Package payments abstracts the payment provider behind a small interface
// so services can be exercised against a fake in tests. The only real
// implementation is Stripe.
package payments

import (
	"context"
	"errors"
)

var (
	// ErrSessionFailed wraps provider-side failures creating a checkout session.
	ErrSessionFailed = errors.New("checkout session creation failed")
)

// Session is a provider-hosted checkout flow.
type Session struct {
	ID  string `json:"session_id"`
	URL string `json:"url"`
}

// SessionParams carries everything needed to open a hosted checkout session.
// Amount is in minor currency units.
type SessionParams struct {
	Amount      int64
	Currency    string
	Description string

	// ConnectedAccountID is the freelancer's account receiving the funds.
	ConnectedAccountID string

	// Metadata is attached to the resulting payment intent and echoed back
	// on webhook events; it is how the webhook receiver finds the invoice.
	Metadata map[string]string

	SuccessURL string
	CancelURL  string
}

// Provider creates hosted checkout sessions.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, params SessionParams) (*Session, error)
}
