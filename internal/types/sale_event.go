package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// SaleEvent is the immutable record of a settled payment. Amounts are
// integer minor-currency units (cents).
type SaleEvent struct {
	ID            uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	AmountCents   int64          `gorm:"not null" json:"amount_cents"`
	Currency      string         `gorm:"size:3;not null;default:'USD'" json:"currency"`
	ProductName   string         `gorm:"size:200" json:"product_name,omitempty"`
	CampaignID    string         `gorm:"size:100" json:"campaign_id,omitempty"`
	CustomerEmail string         `gorm:"size:255" json:"customer_email,omitempty"`
	CustomerIP    string         `gorm:"size:45" json:"customer_ip,omitempty"`
	TrackerID     string         `gorm:"size:64" json:"tracker_id,omitempty"`
	Fingerprint   string         `gorm:"size:64" json:"fingerprint,omitempty"`
	Country       string         `gorm:"size:2" json:"country,omitempty"`
	City          string         `gorm:"size:100" json:"city,omitempty"`
	Metadata      datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`
	OccurredAt    time.Time      `gorm:"not null;index" json:"occurred_at"`
	CreatedAt     time.Time      `gorm:"not null;default:now()" json:"created_at"`
}

func (SaleEvent) TableName() string { return "sale_event" }
