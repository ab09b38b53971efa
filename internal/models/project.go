package models

import (
	"time"

	"gorm.io/gorm"
)

// ProjectStatus represents the status of a project.
type ProjectStatus string

const (
	ProjectStatusActive    ProjectStatus = "active"
	ProjectStatusCompleted ProjectStatus = "completed"
	ProjectStatusArchived  ProjectStatus = "archived"
)

// Project groups invoices and contracts for a client engagement.
type Project struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	UserID uint `gorm:"index;not null" json:"user_id"`
	User   User `gorm:"foreignKey:UserID" json:"-"`

	ClientID uint    `gorm:"index;not null" json:"client_id"`
	Client   *Client `gorm:"foreignKey:ClientID" json:"client,omitempty"`

	Name        string        `gorm:"size:255;not null" json:"name"`
	Description string        `gorm:"type:text" json:"description,omitempty"`
	Status      ProjectStatus `gorm:"size:20;default:'active'" json:"status"`

	// HourlyRate in minor currency units (cents).
	HourlyRate int64  `json:"hourly_rate,omitempty"`
	Currency   string `gorm:"size:3;default:'usd'" json:"currency"`
}

// GetUserID implements the Ownable interface for authorization.
func (p *Project) GetUserID() uint {
	return p.UserID
}
