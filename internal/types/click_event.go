package types

import (
	"time"

	"github.com/google/uuid"
)

// ClickEvent is the immutable record of one click on a tracked link.
// Written once at ingestion, read many times during correlation and
// insight aggregation.
type ClickEvent struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	LinkID      uuid.UUID `gorm:"type:uuid;not null;index" json:"link_id"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	IPAddress   string    `gorm:"size:45;index" json:"ip_address,omitempty"`
	TrackerID   string    `gorm:"size:64;index" json:"tracker_id,omitempty"`
	Fingerprint string    `gorm:"size:64;index" json:"fingerprint,omitempty"`
	Referrer    string    `gorm:"size:500" json:"referrer,omitempty"`
	UTMSource   string    `gorm:"size:100" json:"utm_source,omitempty"`
	UTMMedium   string    `gorm:"size:100" json:"utm_medium,omitempty"`
	UTMCampaign string    `gorm:"size:100" json:"utm_campaign,omitempty"`
	Country     string    `gorm:"size:2" json:"country,omitempty"`
	Region      string    `gorm:"size:100" json:"region,omitempty"`
	City        string    `gorm:"size:100" json:"city,omitempty"`
	DeviceType  string    `gorm:"size:20" json:"device_type,omitempty"`
	Platform    Platform  `gorm:"size:20;not null;index" json:"platform"`
	ContentType string    `gorm:"size:40" json:"content_type,omitempty"`
	Attributed  bool      `gorm:"not null;default:false" json:"attributed"`
	ClickedAt   time.Time `gorm:"not null;index" json:"clicked_at"`
	CreatedAt   time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (ClickEvent) TableName() string { return "click_event" }
