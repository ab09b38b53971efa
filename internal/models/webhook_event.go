package models

import "time"

// WebhookEvent stores provider webhook deliveries with deduplication
// metadata for idempotent processing. The provider may redeliver the same
// event; the unique (provider, provider_event_id) pair short-circuits
// reprocessing.
type WebhookEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Provider        string `gorm:"size:20;not null;uniqueIndex:ux_webhook_events_provider_event,priority:1" json:"provider"`
	ProviderEventID string `gorm:"size:255;not null;uniqueIndex:ux_webhook_events_provider_event,priority:2" json:"provider_event_id"`
	EventType       string `gorm:"size:100;not null;index" json:"event_type"`
	Payload         string `gorm:"type:text" json:"payload"`

	ProcessedAt     *time.Time `json:"processed_at,omitempty"`
	ProcessingError string     `gorm:"type:text" json:"processing_error,omitempty"`
}
