package insights

import (
	"fmt"
	"time"

	"github.com/linkpulse/linkpulse-backend/internal/types"
)

// Recommendation is one prioritized, rule-derived suggestion. Priority
// 1 is the strongest.
type Recommendation struct {
	Priority int    `json:"priority"`
	Action   string `json:"action"`
	Reason   string `json:"reason"`
}

// NicheBenchmark compares a niche's conversion rate to the global
// average across all retained events.
type NicheBenchmark struct {
	Niche      string  `json:"niche"`
	NicheRate  float64 `json:"niche_rate"`
	GlobalRate float64 `json:"global_rate"`
}

// CreatorReport surfaces a creator's strongest segments and what to do
// about them.
type CreatorReport struct {
	GeneratedAt      time.Time        `json:"generated_at"`
	Niche            string           `json:"niche,omitempty"`
	Country          string           `json:"country,omitempty"`
	BestHours        []SegmentStat    `json:"best_hours"`
	BestDays         []SegmentStat    `json:"best_days"`
	BestPlatforms    []SegmentStat    `json:"best_platforms"`
	BestContentTypes []SegmentStat    `json:"best_content_types"`
	TopCountries     []SegmentStat    `json:"top_countries"`
	NicheBenchmark   *NicheBenchmark  `json:"niche_benchmark,omitempty"`
	Recommendations  []Recommendation `json:"recommendations"`
}

const reportTopN = 5

// CreatorReport builds the ranked segment report, optionally restricted
// to a niche and/or visitor country.
func (l *Learner) CreatorReport(niche, country string) *CreatorReport {
	niche = normalizeNiche(niche)
	country = normalizeCountry(country)

	report := &CreatorReport{
		GeneratedAt:      time.Now().UTC(),
		Niche:            niche,
		Country:          country,
		BestHours:        l.topSegments(DimHour, niche, country, reportTopN),
		BestDays:         l.topSegments(DimDay, niche, country, reportTopN),
		BestPlatforms:    l.topSegments(DimPlatform, niche, country, reportTopN),
		BestContentTypes: l.topSegments(DimContentType, niche, country, reportTopN),
		TopCountries:     l.topSegments(DimCountry, niche, "", reportTopN),
	}

	globalRate := l.globalConversionRate()
	if niche != "" {
		if stat, ok := l.segmentStat(segmentKey{Dim: DimNiche, Segment: niche}); ok {
			report.NicheBenchmark = &NicheBenchmark{
				Niche:      niche,
				NicheRate:  stat.ConversionRate,
				GlobalRate: globalRate,
			}
		}
	}

	report.Recommendations = buildRecommendations(report, globalRate)
	return report
}

// topSegments ranks a dimension's buckets under the requested filters.
func (l *Learner) topSegments(dim Dimension, niche, country string, n int) []SegmentStat {
	want := segmentKey{Dim: dim, Niche: niche, Country: country}
	var out []SegmentStat

	l.segMu.RLock()
	for key, seg := range l.segments {
		if key.Dim != dim || key.Niche != want.Niche || key.Country != want.Country || key.Platform != "" {
			continue
		}
		clicks, conversions, revenue := seg.snapshot()
		if clicks == 0 && conversions == 0 {
			continue
		}
		out = append(out, makeStat(key, clicks, conversions, revenue))
	}
	l.segMu.RUnlock()

	rankStats(out)
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func (l *Learner) segmentStat(key segmentKey) (SegmentStat, bool) {
	l.segMu.RLock()
	seg, ok := l.segments[key]
	l.segMu.RUnlock()
	if !ok {
		return SegmentStat{}, false
	}
	clicks, conversions, revenue := seg.snapshot()
	return makeStat(key, clicks, conversions, revenue), true
}

// globalConversionRate uses the unfiltered hour buckets as the
// denominator; every event lands in exactly one of them.
func (l *Learner) globalConversionRate() float64 {
	var clicks, conversions int64

	l.segMu.RLock()
	for key, seg := range l.segments {
		if key.Dim != DimHour || key.Niche != "" || key.Platform != "" || key.Country != "" {
			continue
		}
		c, conv, _ := seg.snapshot()
		clicks += c
		conversions += conv
	}
	l.segMu.RUnlock()

	if clicks == 0 {
		return 0
	}
	return float64(conversions) / float64(clicks)
}

// buildRecommendations derives 1-3 prioritized actions from simple rule
// thresholds on the ranked aggregates. Not a model; every rule is
// inspectable.
func buildRecommendations(r *CreatorReport, globalRate float64) []Recommendation {
	var recs []Recommendation

	if len(r.BestHours) > 0 {
		best := r.BestHours[0]
		avg := averageRate(r.BestHours)
		if best.Confidence >= 0.2 && avg > 0 && best.ConversionRate >= 1.5*avg {
			recs = append(recs, Recommendation{
				Priority: len(recs) + 1,
				Action:   fmt.Sprintf("Shift posting toward %s:00 UTC", best.Segment),
				Reason:   fmt.Sprintf("hour %s converts at %.1f%%, %.1fx your hourly average", best.Segment, best.ConversionRate*100, best.ConversionRate/avg),
			})
		}
	}

	if len(r.BestPlatforms) > 0 && globalRate > 0 {
		best := r.BestPlatforms[0]
		if best.Confidence >= 0.2 && best.ConversionRate >= 1.3*globalRate {
			recs = append(recs, Recommendation{
				Priority: len(recs) + 1,
				Action:   fmt.Sprintf("Favor %s for link placement", best.Segment),
				Reason:   fmt.Sprintf("%s converts at %.1f%% against a %.1f%% overall rate", best.Segment, best.ConversionRate*100, globalRate*100),
			})
		}
	}

	if r.NicheBenchmark != nil && r.NicheBenchmark.GlobalRate > 0 &&
		r.NicheBenchmark.NicheRate < r.NicheBenchmark.GlobalRate {
		recs = append(recs, Recommendation{
			Priority: len(recs) + 1,
			Action:   "Experiment with new content formats",
			Reason:   fmt.Sprintf("%s converts at %.1f%%, below the %.1f%% global average", r.NicheBenchmark.Niche, r.NicheBenchmark.NicheRate*100, r.NicheBenchmark.GlobalRate*100),
		})
	}

	if len(recs) == 0 {
		recs = append(recs, Recommendation{
			Priority: 1,
			Action:   "Keep sharing tracked links",
			Reason:   "not enough attributed conversions yet to rank segments with confidence",
		})
	}
	if len(recs) > 3 {
		recs = recs[:3]
	}
	return recs
}

func averageRate(stats []SegmentStat) float64 {
	if len(stats) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range stats {
		sum += s.ConversionRate
	}
	return sum / float64(len(stats))
}

// AggregateQuery restricts an aggregate report to a cohort, e.g.
// travel creators in the US on Instagram.
type AggregateQuery struct {
	Niche    string         `json:"niche,omitempty"`
	Country  string         `json:"country,omitempty"`
	Platform types.Platform `json:"platform,omitempty"`
}

// Trend compares the last 7 days with the 7 days before that.
type Trend struct {
	CurrentClicks      int64   `json:"current_clicks"`
	PriorClicks        int64   `json:"prior_clicks"`
	CurrentConversions int64   `json:"current_conversions"`
	PriorConversions   int64   `json:"prior_conversions"`
	ChangePct          float64 `json:"change_pct"`
}

// AggregateReport is the cohort view: totals, week-over-week trend, and
// a per-month seasonality index (month volume over the expected average
// month volume).
type AggregateReport struct {
	Query       AggregateQuery     `json:"query"`
	GeneratedAt time.Time          `json:"generated_at"`
	Clicks      int64              `json:"clicks"`
	Conversions int64              `json:"conversions"`
	Revenue     int64              `json:"revenue_cents"`
	Rate        float64            `json:"conversion_rate"`
	BestHours   []SegmentStat      `json:"best_hours"`
	Trend       Trend              `json:"trend"`
	Seasonality map[string]float64 `json:"seasonality"`
}

// AggregateReportAt is AggregateReport with an injectable clock for
// deterministic trend windows.
func (l *Learner) AggregateReportAt(query AggregateQuery, now time.Time) *AggregateReport {
	query.Niche = normalizeNiche(query.Niche)
	query.Country = normalizeCountry(query.Country)
	now = now.UTC()

	report := &AggregateReport{
		Query:       query,
		GeneratedAt: now,
		Seasonality: map[string]float64{},
	}

	weekAgo := now.Add(-7 * 24 * time.Hour)
	twoWeeksAgo := now.Add(-14 * 24 * time.Hour)

	hourClicks := map[string]*[3]int64{} // clicks, conversions, revenue per hour
	monthVolume := map[string]int64{}

	l.eventMu.Lock()
	l.events.forEach(func(ev rawEvent) {
		if !matchesQuery(ev, query) {
			return
		}
		switch ev.kind {
		case eventClick:
			report.Clicks++
			if ev.at.After(weekAgo) {
				report.Trend.CurrentClicks++
			} else if ev.at.After(twoWeeksAgo) {
				report.Trend.PriorClicks++
			}
		case eventConversion:
			report.Conversions++
			report.Revenue += ev.revenueCents
			if ev.at.After(weekAgo) {
				report.Trend.CurrentConversions++
			} else if ev.at.After(twoWeeksAgo) {
				report.Trend.PriorConversions++
			}
		}
		h := hourSegment(ev.at)
		cell, ok := hourClicks[h]
		if !ok {
			cell = &[3]int64{}
			hourClicks[h] = cell
		}
		if ev.kind == eventClick {
			cell[0]++
		} else {
			cell[1]++
			cell[2] += ev.revenueCents
		}
		monthVolume[monthSegment(ev.at)]++
	})
	l.eventMu.Unlock()

	if report.Clicks > 0 {
		report.Rate = float64(report.Conversions) / float64(report.Clicks)
	}
	if report.Trend.PriorConversions > 0 {
		report.Trend.ChangePct = 100 * float64(report.Trend.CurrentConversions-report.Trend.PriorConversions) / float64(report.Trend.PriorConversions)
	} else if report.Trend.CurrentConversions > 0 {
		report.Trend.ChangePct = 100
	}

	for h, cell := range hourClicks {
		report.BestHours = append(report.BestHours, makeStat(segmentKey{Dim: DimHour, Segment: h}, cell[0], cell[1], cell[2]))
	}
	rankStats(report.BestHours)
	if len(report.BestHours) > reportTopN {
		report.BestHours = report.BestHours[:reportTopN]
	}

	if len(monthVolume) > 0 {
		var total int64
		for _, v := range monthVolume {
			total += v
		}
		expected := float64(total) / float64(len(monthVolume))
		if expected > 0 {
			for m, v := range monthVolume {
				report.Seasonality[m] = float64(v) / expected
			}
		}
	}

	return report
}

// AggregateReport builds the cohort report as of now.
func (l *Learner) AggregateReport(query AggregateQuery) *AggregateReport {
	return l.AggregateReportAt(query, time.Now())
}

func matchesQuery(ev rawEvent, q AggregateQuery) bool {
	if q.Niche != "" && ev.niche != q.Niche {
		return false
	}
	if q.Country != "" && ev.country != q.Country {
		return false
	}
	if q.Platform != "" && ev.platform != q.Platform {
		return false
	}
	return true
}
