package types

import (
	"time"

	"github.com/google/uuid"
)

// AttributionStatus is the lifecycle state of an attribution.
// PENDING -> MATCHED | UNCERTAIN -> CONFIRMED | REJECTED.
// CONFIRMED and REJECTED are terminal and set only by user feedback.
type AttributionStatus string

const (
	// AttributionPending is the pre-scoring state of the lifecycle.
	// Scoring runs synchronously inside sale correlation, so no
	// persisted row ever carries it; it exists so the state machine
	// reads complete and external consumers can name the state.
	AttributionPending   AttributionStatus = "PENDING"
	AttributionMatched   AttributionStatus = "MATCHED"
	AttributionUncertain AttributionStatus = "UNCERTAIN"
	AttributionConfirmed AttributionStatus = "CONFIRMED"
	AttributionRejected  AttributionStatus = "REJECTED"
)

func (s AttributionStatus) Terminal() bool {
	return s == AttributionConfirmed || s == AttributionRejected
}

// MatchBreakdown records which individual signals fired for a match.
// Structured fields rather than an open-ended map so the audit trail
// stays queryable.
type MatchBreakdown struct {
	IPMatch          bool    `gorm:"column:ip" json:"ip_match"`
	TrackerMatch     bool    `gorm:"column:tracker" json:"tracker_match"`
	FingerprintMatch bool    `gorm:"column:fingerprint" json:"fingerprint_match"`
	GeoScore         float64 `gorm:"column:geo_score" json:"geo_score"`
	TimeDecay        float64 `gorm:"column:time_decay" json:"time_decay"`
	MultiSignal      bool    `gorm:"column:multi_signal" json:"multi_signal"`
	ContentBased     bool    `gorm:"column:content_based" json:"content_based"`
}

// SignalCount counts the deterministic signals that fired, for the
// multi-signal bonus. Geo counts when any geo credit was earned.
func (b MatchBreakdown) SignalCount() int {
	n := 0
	if b.IPMatch {
		n++
	}
	if b.TrackerMatch {
		n++
	}
	if b.FingerprintMatch {
		n++
	}
	if b.GeoScore > 0 {
		n++
	}
	return n
}

// Attribution links one sale to at most one click. ClickID is nil for
// probabilistic matches against a content post. Mutated only by feedback
// processing (status, confidence) or manual override (revenue share,
// notes); rejected rows are kept for training.
type Attribution struct {
	ID               uuid.UUID         `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SaleID           uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex" json:"sale_id"`
	ClickID          *uuid.UUID        `gorm:"type:uuid;index" json:"click_id,omitempty"`
	ContentPostID    *uuid.UUID        `gorm:"type:uuid" json:"content_post_id,omitempty"`
	UserID           uuid.UUID         `gorm:"type:uuid;not null;index" json:"user_id"`
	Status           AttributionStatus `gorm:"size:20;not null;index" json:"status"`
	Confidence       float64           `gorm:"not null" json:"confidence"`
	TimeDeltaMinutes float64           `gorm:"not null" json:"time_delta_minutes"`
	MatchedBy        MatchBreakdown    `gorm:"embedded;embeddedPrefix:matched_" json:"matched_by"`
	RevenueShare     float64           `gorm:"not null;default:1.0" json:"revenue_share"`
	Notes            string            `gorm:"type:text" json:"notes,omitempty"`
	WeightsVersion   string            `gorm:"size:40" json:"weights_version,omitempty"`
	CreatedAt        time.Time         `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt        time.Time         `gorm:"not null;default:now()" json:"updated_at"`
}

func (Attribution) TableName() string { return "attribution" }
