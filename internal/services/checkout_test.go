package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/diewo77/go-freelance/internal/models"
	"github.com/diewo77/go-freelance/internal/payments"
)

// fakeProvider records the last session request and returns a fixed session.
type fakeProvider struct {
	lastParams payments.SessionParams
	calls      int
	err        error
}

func (f *fakeProvider) CreateCheckoutSession(_ context.Context, params payments.SessionParams) (*payments.Session, error) {
	f.calls++
	f.lastParams = params
	if f.err != nil {
		return nil, f.err
	}
	return &payments.Session{ID: "cs_test", URL: "https://checkout.test/cs_test"}, nil
}

func TestCheckoutFullBalance(t *testing.T) {
	conn := setupTestDB(t)
	_, _, invoice := seedSentInvoice(t, conn, nil)

	provider := &fakeProvider{}
	svc := NewCheckoutService(conn, provider, "https://app.test")

	session, err := svc.CreateSession(context.Background(), invoice.PayToken, 0)
	require.NoError(t, err)
	require.Equal(t, "cs_test", session.ID)
	require.NotEmpty(t, session.URL)

	require.Equal(t, int64(10000), provider.lastParams.Amount)
	require.Equal(t, "acct_123", provider.lastParams.ConnectedAccountID)
	require.Equal(t, "false", provider.lastParams.Metadata["partial_payment"])
	require.Equal(t, "https://app.test/pay/"+invoice.PayToken+"/success", provider.lastParams.SuccessURL)
}

func TestCheckoutUnknownToken(t *testing.T) {
	conn := setupTestDB(t)
	seedSentInvoice(t, conn, nil)

	svc := NewCheckoutService(conn, &fakeProvider{}, "https://app.test")

	_, err := svc.CreateSession(context.Background(), "no-such-token", 0)
	require.ErrorIs(t, err, ErrInvoiceNotFound)

	_, err = svc.CreateSession(context.Background(), "", 0)
	require.ErrorIs(t, err, ErrInvoiceNotFound)
}

func TestCheckoutRejectsClosedInvoice(t *testing.T) {
	for _, status := range []models.InvoiceStatus{
		models.InvoiceStatusPaid,
		models.InvoiceStatusCancelled,
		models.InvoiceStatusDraft,
	} {
		t.Run(string(status), func(t *testing.T) {
			conn := setupTestDB(t)
			_, _, invoice := seedSentInvoice(t, conn, func(i *models.Invoice) {
				i.Status = status
				i.PayToken = "tok-" + string(status)
			})

			provider := &fakeProvider{}
			svc := NewCheckoutService(conn, provider, "https://app.test")

			_, err := svc.CreateSession(context.Background(), invoice.PayToken, 0)
			require.ErrorIs(t, err, ErrInvoiceClosed)
			require.Zero(t, provider.calls)
		})
	}
}

func TestCheckoutRejectsOverBalance(t *testing.T) {
	conn := setupTestDB(t)
	_, _, invoice := seedSentInvoice(t, conn, func(i *models.Invoice) {
		i.PaidAmount = 4000
		i.Status = models.InvoiceStatusPartiallyPaid
		i.AllowPartialPayments = true
	})

	svc := NewCheckoutService(conn, &fakeProvider{}, "https://app.test")

	// Remaining is 6000; anything above is rejected.
	_, err := svc.CreateSession(context.Background(), invoice.PayToken, 7000)
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.CreateSession(context.Background(), invoice.PayToken, -100)
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.CreateSession(context.Background(), invoice.PayToken, 6000)
	require.NoError(t, err)
}

func TestCheckoutPartialDisabled(t *testing.T) {
	conn := setupTestDB(t)
	_, _, invoice := seedSentInvoice(t, conn, nil)

	svc := NewCheckoutService(conn, &fakeProvider{}, "https://app.test")

	_, err := svc.CreateSession(context.Background(), invoice.PayToken, 5000)
	require.ErrorIs(t, err, ErrPartialNotAllowed)

	// The full balance always goes through.
	_, err = svc.CreateSession(context.Background(), invoice.PayToken, 10000)
	require.NoError(t, err)
}

func TestCheckoutPartialMinimum(t *testing.T) {
	conn := setupTestDB(t)
	_, _, invoice := seedSentInvoice(t, conn, func(i *models.Invoice) {
		i.AllowPartialPayments = true
		i.MinimumPaymentAmount = 2000
	})

	provider := &fakeProvider{}
	svc := NewCheckoutService(conn, provider, "https://app.test")

	_, err := svc.CreateSession(context.Background(), invoice.PayToken, 1000)
	require.ErrorIs(t, err, ErrBelowMinimum)

	_, err = svc.CreateSession(context.Background(), invoice.PayToken, 2000)
	require.NoError(t, err)
	require.Equal(t, "true", provider.lastParams.Metadata["partial_payment"])
}

func TestCheckoutPaymentsNotConfigured(t *testing.T) {
	conn := setupTestDB(t)
	user, _, invoice := seedSentInvoice(t, conn, nil)

	require.NoError(t, conn.Model(&user).Update("charges_enabled", false).Error)

	provider := &fakeProvider{}
	svc := NewCheckoutService(conn, provider, "https://app.test")

	_, err := svc.CreateSession(context.Background(), invoice.PayToken, 0)
	require.ErrorIs(t, err, ErrPaymentsNotConfigured)
	require.Zero(t, provider.calls)
}
