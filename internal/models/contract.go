package models

import (
	"time"

	"gorm.io/gorm"
)

// ContractStatus represents the status of a contract.
type ContractStatus string

const (
	ContractStatusDraft    ContractStatus = "draft"
	ContractStatusSent     ContractStatus = "sent"
	ContractStatusSigned   ContractStatus = "signed"
	ContractStatusDeclined ContractStatus = "declined"
	ContractStatusExpired  ContractStatus = "expired"
)

// Contract represents an agreement sent to a client for e-signature.
// The signed artifacts (signature image, signer IP, timestamp) are
// immutable once the contract reaches signed status.
type Contract struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	UserID uint `gorm:"index;not null" json:"user_id"`
	User   User `gorm:"foreignKey:UserID" json:"-"`

	ClientID uint    `gorm:"index;not null" json:"client_id"`
	Client   *Client `gorm:"foreignKey:ClientID" json:"client,omitempty"`

	ProjectID *uint    `gorm:"index" json:"project_id,omitempty"`
	Project   *Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`

	Number string `gorm:"size:50;index" json:"number"`
	Title  string `gorm:"size:255;not null" json:"title"`
	Body   string `gorm:"type:text" json:"body,omitempty"`

	Status ContractStatus `gorm:"size:20;default:'draft'" json:"status"`

	// SignToken grants scoped public access to the signing flow and, once
	// signed, the contract PDF. Assigned when the contract is sent.
	// Drafts share the empty string, so uniqueness is enforced by a partial
	// index in the SQL migrations rather than a gorm uniqueIndex.
	SignToken string `gorm:"size:64;index" json:"sign_token,omitempty"`

	ExpiresAt *time.Time `json:"expires_at,omitempty"`

	// Signed artifacts, written exactly once.
	SignatureImage string     `gorm:"type:text" json:"signature_image,omitempty"`
	SignerName     string     `gorm:"size:255" json:"signer_name,omitempty"`
	SignerIP       string     `gorm:"size:45" json:"signer_ip,omitempty"`
	SignedAt       *time.Time `json:"signed_at,omitempty"`
}

// GetUserID implements the Ownable interface for authorization.
func (c *Contract) GetUserID() uint {
	return c.UserID
}

// CanEdit returns true if the contract can still be edited.
func (c *Contract) CanEdit() bool {
	return c.Status == ContractStatusDraft
}

// CanSign returns true if the contract is awaiting a signature.
func (c *Contract) CanSign(now time.Time) bool {
	if c.Status != ContractStatusSent {
		return false
	}
	if c.ExpiresAt != nil && now.After(*c.ExpiresAt) {
		return false
	}
	return true
}
