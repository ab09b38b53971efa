package payments

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/client"
	"github.com/stripe/stripe-go/v74/webhook"
)

// StripeClient implements Provider on top of the Stripe API.
type StripeClient struct {
	api            *client.API
	webhookSignKey string
}

// NewStripeClient initializes a Stripe client with the given API key and
// webhook signing secret. Constructed once at process start and passed to
// handlers; there is no package-level client.
func NewStripeClient(apiKey, webhookSignKey string) *StripeClient {
	var api client.API
	api.Init(apiKey, nil)

	return &StripeClient{
		api:            &api,
		webhookSignKey: webhookSignKey,
	}
}

// CreateCheckoutSession opens a hosted payment session on the freelancer's
// connected account.
func (c *StripeClient) CreateCheckoutSession(ctx context.Context, params SessionParams) (*Session, error) {
	sessionParams := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(params.SuccessURL + "?checkout_session={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(params.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(params.Currency),
					UnitAmount: stripe.Int64(params.Amount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(params.Description),
					},
				},
			},
		},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: params.Metadata,
		},
	}
	sessionParams.Context = ctx
	if params.ConnectedAccountID != "" {
		sessionParams.SetStripeAccount(params.ConnectedAccountID)
	}

	session, err := c.api.CheckoutSessions.New(sessionParams)
	if err != nil {
		if stripeErr, ok := err.(*stripe.Error); ok {
			return nil, fmt.Errorf("%w: %s", ErrSessionFailed, stripeErr.Msg)
		}
		return nil, fmt.Errorf("%w: %v", ErrSessionFailed, err)
	}

	return &Session{ID: session.ID, URL: session.URL}, nil
}

// VerifyWebhook checks the request signature against the signing secret and
// returns the parsed event. The api version mismatch flag is ignored so
// events from older dashboard configurations still verify.
func (c *StripeClient) VerifyWebhook(payload []byte, signature string) (stripe.Event, error) {
	return webhook.ConstructEventWithOptions(payload, signature, c.webhookSignKey, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
}
