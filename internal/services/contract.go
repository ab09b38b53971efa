package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/diewo77/go-freelance/internal/logger"
	"github.com/diewo77/go-freelance/internal/models"
	"github.com/diewo77/go-freelance/internal/outbox"
)

var (
	ErrContractNotFound = errors.New("contract not found")
	ErrContractNotDraft = errors.New("contract is not a draft")
	ErrContractClosed   = errors.New("contract can no longer be signed")
)

// ContractService owns contract lifecycle transitions: sending for
// signature, recording the signature and declines.
type ContractService struct {
	db      *gorm.DB
	baseURL string
	log     zerolog.Logger
}

func NewContractService(db *gorm.DB, baseURL string) *ContractService {
	return &ContractService{db: db, baseURL: baseURL, log: logger.WithComponent("contract")}
}

// Send moves a draft contract to sent, assigns its sign token and enqueues
// the signature request email.
func (s *ContractService) Send(ctx context.Context, userID, contractID uint) (*models.Contract, error) {
	var contract models.Contract
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", contractID, userID).
		Preload("Client").
		First(&contract).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrContractNotFound
		}
		return nil, err
	}

	if contract.Status != models.ContractStatusDraft {
		return nil, ErrContractNotDraft
	}

	if contract.Number == "" {
		var count int64
		if err := s.db.Model(&models.Contract{}).
			Where("user_id = ? AND status <> ?", userID, models.ContractStatusDraft).
			Count(&count).Error; err != nil {
			return nil, err
		}
		contract.Number = fmt.Sprintf("CTR-%d-%04d", time.Now().Year(), count+1)
	}
	contract.SignToken = uuid.NewString()
	contract.Status = models.ContractStatusSent

	if err := s.db.WithContext(ctx).Save(&contract).Error; err != nil {
		return nil, err
	}

	if contract.Client != nil && contract.Client.Email != "" {
		data := map[string]any{
			"contract_number": contract.Number,
			"contract_title":  contract.Title,
			"sign_url":        s.baseURL + "/sign/" + contract.SignToken,
		}
		if err := outbox.Enqueue(s.db, models.EmailContractSent, contract.Client.Email, contract.Client.Name, data); err != nil {
			s.log.Error().Err(err).Uint("contract_id", contract.ID).Msg("failed to enqueue contract email")
		}
	}
	return &contract, nil
}

// Sign records the signature artifacts exactly once and notifies both
// parties. Signing an expired contract marks it expired instead.
func (s *ContractService) Sign(ctx context.Context, signToken, signerName, signatureImage, signerIP string) (*models.Contract, error) {
	contract, err := s.bySignToken(ctx, signToken)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if !contract.CanSign(now) {
		if contract.Status == models.ContractStatusSent && contract.ExpiresAt != nil && now.After(*contract.ExpiresAt) {
			contract.Status = models.ContractStatusExpired
			_ = s.db.WithContext(ctx).Save(contract).Error
		}
		return nil, ErrContractClosed
	}

	contract.Status = models.ContractStatusSigned
	contract.SignerName = signerName
	contract.SignatureImage = signatureImage
	contract.SignerIP = signerIP
	contract.SignedAt = &now

	if err := s.db.WithContext(ctx).Save(contract).Error; err != nil {
		return nil, err
	}

	data := map[string]any{
		"contract_number": contract.Number,
		"contract_title":  contract.Title,
		"signer_name":     signerName,
		"signed_at":       now.Format(time.RFC3339),
	}
	if contract.Client != nil && contract.Client.Email != "" {
		if err := outbox.Enqueue(s.db, models.EmailContractSigned, contract.Client.Email, contract.Client.Name, data); err != nil {
			s.log.Error().Err(err).Msg("failed to enqueue client signed email")
		}
	}
	if contract.User.Email != "" {
		if err := outbox.Enqueue(s.db, models.EmailContractSigned, contract.User.Email, contract.User.Name, data); err != nil {
			s.log.Error().Err(err).Msg("failed to enqueue developer signed email")
		}
	}
	return contract, nil
}

// Decline marks a sent contract as declined.
func (s *ContractService) Decline(ctx context.Context, signToken string) (*models.Contract, error) {
	contract, err := s.bySignToken(ctx, signToken)
	if err != nil {
		return nil, err
	}
	if contract.Status != models.ContractStatusSent {
		return nil, ErrContractClosed
	}
	contract.Status = models.ContractStatusDeclined
	if err := s.db.WithContext(ctx).Save(contract).Error; err != nil {
		return nil, err
	}
	return contract, nil
}

func (s *ContractService) bySignToken(ctx context.Context, signToken string) (*models.Contract, error) {
	if signToken == "" {
		return nil, ErrContractNotFound
	}
	var contract models.Contract
	err := s.db.WithContext(ctx).
		Where("sign_token = ?", signToken).
		Preload("Client").
		Preload("User").
		First(&contract).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrContractNotFound
		}
		return nil, err
	}
	return &contract, nil
}
