package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// RouterKind tags the routing behavior of a tracked link.
type RouterKind string

const (
	RouterStandard     RouterKind = "standard"
	RouterGeoAffiliate RouterKind = "geo_affiliate"
)

// GeoAffiliateRouter routes visitors to per-country affiliate URLs,
// falling back to Default when the visitor's country has no route.
type GeoAffiliateRouter struct {
	Routes  map[string]string `json:"routes"`
	Default string            `json:"default"`
}

// TrackedLink is a creator-owned short link. Router holds the
// GeoAffiliateRouter payload when Kind is geo_affiliate, null otherwise.
type TrackedLink struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Slug        string         `gorm:"size:60;not null;uniqueIndex" json:"slug"`
	Destination string         `gorm:"size:1000;not null" json:"destination"`
	Platform    Platform       `gorm:"size:20;not null" json:"platform"`
	Niche       string         `gorm:"size:60" json:"niche,omitempty"`
	Kind        RouterKind     `gorm:"size:20;not null;default:'standard'" json:"kind"`
	Router      datatypes.JSON `gorm:"type:jsonb" json:"router,omitempty"`
	CreatedAt   time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (TrackedLink) TableName() string { return "tracked_link" }

// GeoRouter decodes the geo-affiliate payload. Only meaningful when
// Kind is geo_affiliate.
func (l *TrackedLink) GeoRouter() (*GeoAffiliateRouter, error) {
	if l.Kind != RouterGeoAffiliate {
		return nil, fmt.Errorf("link %s is not geo-routed", l.ID)
	}
	var r GeoAffiliateRouter
	if err := json.Unmarshal(l.Router, &r); err != nil {
		return nil, fmt.Errorf("decode geo router: %w", err)
	}
	return &r, nil
}

// ResolveDestination picks the destination URL for a visitor country.
func (l *TrackedLink) ResolveDestination(country string) string {
	if l.Kind != RouterGeoAffiliate {
		return l.Destination
	}
	r, err := l.GeoRouter()
	if err != nil {
		return l.Destination
	}
	if dest, ok := r.Routes[strings.ToUpper(strings.TrimSpace(country))]; ok && dest != "" {
		return dest
	}
	if r.Default != "" {
		return r.Default
	}
	return l.Destination
}
