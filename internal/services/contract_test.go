package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/diewo77/go-freelance/internal/models"
)

func seedContract(t *testing.T, conn *gorm.DB, mutate func(*models.Contract)) (models.User, models.Contract) {
	t.Helper()
	user, client, _ := seedSentInvoice(t, conn, nil)

	contract := models.Contract{
		UserID:   user.ID,
		ClientID: client.ID,
		Title:    "Web Development Agreement",
		Body:     "Scope of work.\n\nPayment terms.",
		Status:   models.ContractStatusDraft,
	}
	if mutate != nil {
		mutate(&contract)
	}
	if err := conn.Create(&contract).Error; err != nil {
		t.Fatalf("contract: %v", err)
	}
	return user, contract
}

func TestContractSendAssignsToken(t *testing.T) {
	conn := setupTestDB(t)
	user, contract := seedContract(t, conn, nil)

	svc := NewContractService(conn, "https://app.test")
	sent, err := svc.Send(context.Background(), user.ID, contract.ID)
	require.NoError(t, err)

	require.Equal(t, models.ContractStatusSent, sent.Status)
	require.True(t, strings.HasPrefix(sent.Number, "CTR-"), "number %q", sent.Number)
	require.NotEmpty(t, sent.SignToken)
	require.Equal(t, int64(1), countOutbox(t, conn, models.EmailContractSent))

	// Sending twice is rejected.
	_, err = svc.Send(context.Background(), user.ID, contract.ID)
	require.ErrorIs(t, err, ErrContractNotDraft)
}

func TestContractSignFlow(t *testing.T) {
	conn := setupTestDB(t)
	user, contract := seedContract(t, conn, nil)

	svc := NewContractService(conn, "https://app.test")
	sent, err := svc.Send(context.Background(), user.ID, contract.ID)
	require.NoError(t, err)

	signed, err := svc.Sign(context.Background(), sent.SignToken, "Alice Smith", "data:image/png;base64,abc", "203.0.113.7")
	require.NoError(t, err)
	require.Equal(t, models.ContractStatusSigned, signed.Status)
	require.Equal(t, "Alice Smith", signed.SignerName)
	require.Equal(t, "203.0.113.7", signed.SignerIP)
	require.NotNil(t, signed.SignedAt)

	// Both parties are notified.
	require.Equal(t, int64(2), countOutbox(t, conn, models.EmailContractSigned))

	// Signed artifacts are written once; a second sign attempt fails and
	// changes nothing.
	firstSignedAt := *signed.SignedAt
	_, err = svc.Sign(context.Background(), sent.SignToken, "Mallory", "data:image/png;base64,xyz", "198.51.100.9")
	require.ErrorIs(t, err, ErrContractClosed)

	var got models.Contract
	require.NoError(t, conn.First(&got, contract.ID).Error)
	require.Equal(t, "Alice Smith", got.SignerName)
	require.WithinDuration(t, firstSignedAt, *got.SignedAt, time.Second)
}

func TestContractSignExpired(t *testing.T) {
	conn := setupTestDB(t)
	user, contract := seedContract(t, conn, func(c *models.Contract) {
		past := time.Now().AddDate(0, 0, -1)
		c.ExpiresAt = &past
	})

	svc := NewContractService(conn, "https://app.test")
	sent, err := svc.Send(context.Background(), user.ID, contract.ID)
	require.NoError(t, err)

	_, err = svc.Sign(context.Background(), sent.SignToken, "Alice", "sig", "203.0.113.7")
	require.ErrorIs(t, err, ErrContractClosed)

	var got models.Contract
	require.NoError(t, conn.First(&got, contract.ID).Error)
	require.Equal(t, models.ContractStatusExpired, got.Status)
}

func TestContractDecline(t *testing.T) {
	conn := setupTestDB(t)
	user, contract := seedContract(t, conn, nil)

	svc := NewContractService(conn, "https://app.test")
	sent, err := svc.Send(context.Background(), user.ID, contract.ID)
	require.NoError(t, err)

	declined, err := svc.Decline(context.Background(), sent.SignToken)
	require.NoError(t, err)
	require.Equal(t, models.ContractStatusDeclined, declined.Status)

	// A declined contract cannot be signed afterwards.
	_, err = svc.Sign(context.Background(), sent.SignToken, "Alice", "sig", "203.0.113.7")
	require.ErrorIs(t, err, ErrContractClosed)
}
