package insights

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/linkpulse/linkpulse-backend/internal/types"
)

// Dimension is one independent axis the learner aggregates along.
type Dimension string

const (
	DimHour        Dimension = "hour"
	DimDay         Dimension = "day"
	DimMonth       Dimension = "month"
	DimPlatform    Dimension = "platform"
	DimNiche       Dimension = "niche"
	DimCountry     Dimension = "country"
	DimDevice      Dimension = "device"
	DimContentType Dimension = "content_type"
)

// segmentKey identifies one aggregate bucket: a dimension segment,
// optionally restricted by niche, platform, or country.
type segmentKey struct {
	Dim      Dimension
	Segment  string
	Niche    string
	Platform types.Platform
	Country  string
}

func (k segmentKey) String() string {
	return fmt.Sprintf("%s=%s niche=%s platform=%s country=%s", k.Dim, k.Segment, k.Niche, k.Platform, k.Country)
}

// segmentStats carries the running totals for one bucket. Each bucket
// has its own lock so high click volume on one segment never serializes
// the rest.
type segmentStats struct {
	mu           sync.Mutex
	clicks       int64
	conversions  int64
	revenueCents int64
}

func (s *segmentStats) snapshot() (clicks, conversions, revenueCents int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clicks, s.conversions, s.revenueCents
}

// SegmentStat is the exported view of one bucket.
type SegmentStat struct {
	Dimension      Dimension `json:"dimension"`
	Segment        string    `json:"segment"`
	Clicks         int64     `json:"clicks"`
	Conversions    int64     `json:"conversions"`
	RevenueCents   int64     `json:"revenue_cents"`
	ConversionRate float64   `json:"conversion_rate"`
	Confidence     float64   `json:"confidence"`
}

func makeStat(key segmentKey, clicks, conversions, revenueCents int64) SegmentStat {
	rate := 0.0
	if clicks > 0 {
		rate = float64(conversions) / float64(clicks)
	}
	sample := clicks + conversions
	confidence := float64(sample) / 100.0
	if confidence > 1 {
		confidence = 1
	}
	return SegmentStat{
		Dimension:      key.Dim,
		Segment:        key.Segment,
		Clicks:         clicks,
		Conversions:    conversions,
		RevenueCents:   revenueCents,
		ConversionRate: rate,
		Confidence:     confidence,
	}
}

// rankStats orders by conversion rate scaled by sample confidence so a
// 1-click fluke never outranks a well-sampled segment.
func rankStats(stats []SegmentStat) {
	sort.Slice(stats, func(i, j int) bool {
		si := stats[i].ConversionRate * stats[i].Confidence
		sj := stats[j].ConversionRate * stats[j].Confidence
		if si != sj {
			return si > sj
		}
		return stats[i].Clicks > stats[j].Clicks
	})
}

func hourSegment(t time.Time) string  { return fmt.Sprintf("%d", t.UTC().Hour()) }
func daySegment(t time.Time) string   { return t.UTC().Weekday().String() }
func monthSegment(t time.Time) string { return t.UTC().Month().String() }

func normalizeNiche(niche string) string {
	return strings.ToUpper(strings.TrimSpace(niche))
}

func normalizeCountry(country string) string {
	return strings.ToUpper(strings.TrimSpace(country))
}
