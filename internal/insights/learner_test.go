package insights

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/linkpulse/linkpulse-backend/internal/pkg/logger"
	"github.com/linkpulse/linkpulse-backend/internal/types"
)

func newTestLearner(cfg Config) *Learner {
	return NewLearner(logger.NewNop(), cfg)
}

// at builds a timestamp on a fixed date at the given UTC hour.
func at(hour int) time.Time {
	return time.Date(2026, time.March, 9, hour, 30, 0, 0, time.UTC) // a Monday
}

func recordTraffic(l *Learner, hour, clicks, conversions int, platform types.Platform, niche, country string) {
	for i := 0; i < clicks; i++ {
		l.RecordClick(ClickObservation{
			UserID:   uuid.New(),
			Platform: platform,
			Niche:    niche,
			Country:  country,
			At:       at(hour),
		})
	}
	for i := 0; i < conversions; i++ {
		l.RecordConversion(ConversionObservation{
			UserID:       uuid.New(),
			Platform:     platform,
			Niche:        niche,
			Country:      country,
			RevenueCents: 5000,
			At:           at(hour),
		})
	}
}

func TestCreatorReport_RanksStrongHours(t *testing.T) {
	l := newTestLearner(DefaultConfig())

	// hour 14: 50 clicks, 10 conversions. hour 2: 50 clicks, 1 conversion.
	recordTraffic(l, 14, 50, 10, types.PlatformInstagram, "travel", "US")
	recordTraffic(l, 2, 50, 1, types.PlatformInstagram, "travel", "US")

	report := l.CreatorReport("", "")
	if len(report.BestHours) != 2 {
		t.Fatalf("best hours = %d buckets, want 2", len(report.BestHours))
	}
	if report.BestHours[0].Segment != "14" {
		t.Fatalf("top hour = %s, want 14", report.BestHours[0].Segment)
	}
	if report.BestHours[0].ConversionRate <= report.BestHours[1].ConversionRate {
		t.Fatalf("ranking not by rate: %+v", report.BestHours)
	}
	if report.BestHours[0].Conversions != 10 || report.BestHours[0].Clicks != 50 {
		t.Fatalf("top hour totals = %+v", report.BestHours[0])
	}
}

func TestCreatorReport_NicheFilterIsolatesCohort(t *testing.T) {
	l := newTestLearner(DefaultConfig())

	recordTraffic(l, 14, 30, 9, types.PlatformInstagram, "travel", "US")
	recordTraffic(l, 14, 30, 1, types.PlatformInstagram, "fitness", "US")

	travel := l.CreatorReport("travel", "")
	if len(travel.BestHours) != 1 {
		t.Fatalf("travel best hours = %d, want 1", len(travel.BestHours))
	}
	if got := travel.BestHours[0].Conversions; got != 9 {
		t.Fatalf("travel conversions = %d, want 9 (fitness leaked in)", got)
	}
	if travel.NicheBenchmark == nil {
		t.Fatal("no niche benchmark")
	}
	wantRate := 9.0 / 30.0
	if got := travel.NicheBenchmark.NicheRate; got != wantRate {
		t.Fatalf("niche rate = %.4f, want %.4f", got, wantRate)
	}
	globalRate := 10.0 / 60.0
	if got := travel.NicheBenchmark.GlobalRate; got != globalRate {
		t.Fatalf("global rate = %.4f, want %.4f", got, globalRate)
	}
}

func TestCreatorReport_NicheAndCountryTogether(t *testing.T) {
	l := newTestLearner(DefaultConfig())

	recordTraffic(l, 14, 50, 15, types.PlatformInstagram, "travel", "US")
	recordTraffic(l, 14, 50, 2, types.PlatformInstagram, "travel", "DE")
	recordTraffic(l, 14, 50, 2, types.PlatformInstagram, "fitness", "US")

	report := l.CreatorReport("travel", "US")
	if len(report.BestHours) != 1 {
		t.Fatalf("best hours = %d buckets, want 1", len(report.BestHours))
	}
	if got := report.BestHours[0].Conversions; got != 15 {
		t.Fatalf("conversions = %d, want 15 (other cohorts leaked in)", got)
	}
	if len(report.BestDays) != 1 || report.BestDays[0].Conversions != 15 {
		t.Fatalf("best days = %+v, want the one US travel cohort", report.BestDays)
	}
	if len(report.BestPlatforms) != 1 || report.BestPlatforms[0].Segment != string(types.PlatformInstagram) {
		t.Fatalf("best platforms = %+v", report.BestPlatforms)
	}
}

func TestCreatorReport_RanksContentTypes(t *testing.T) {
	l := newTestLearner(DefaultConfig())

	for i := 0; i < 20; i++ {
		l.RecordClick(ClickObservation{UserID: uuid.New(), Platform: types.PlatformInstagram, ContentType: "reel", At: at(14)})
		l.RecordClick(ClickObservation{UserID: uuid.New(), Platform: types.PlatformInstagram, ContentType: "story", At: at(14)})
	}
	for i := 0; i < 8; i++ {
		l.RecordConversion(ConversionObservation{UserID: uuid.New(), Platform: types.PlatformInstagram, ContentType: "reel", RevenueCents: 5000, At: at(14)})
	}
	l.RecordConversion(ConversionObservation{UserID: uuid.New(), Platform: types.PlatformInstagram, ContentType: "story", RevenueCents: 5000, At: at(14)})

	report := l.CreatorReport("", "")
	if len(report.BestContentTypes) != 2 {
		t.Fatalf("content types = %d buckets, want 2", len(report.BestContentTypes))
	}
	if report.BestContentTypes[0].Segment != "reel" {
		t.Fatalf("top content type = %s, want reel", report.BestContentTypes[0].Segment)
	}
	if report.BestContentTypes[0].Conversions != 8 {
		t.Fatalf("reel conversions = %d, want 8", report.BestContentTypes[0].Conversions)
	}
}

func TestCreatorReport_ConfidenceGrowsWithSample(t *testing.T) {
	l := newTestLearner(DefaultConfig())

	recordTraffic(l, 14, 100, 5, types.PlatformInstagram, "", "")
	recordTraffic(l, 2, 2, 1, types.PlatformInstagram, "", "")

	report := l.CreatorReport("", "")
	var big, small SegmentStat
	for _, s := range report.BestHours {
		switch s.Segment {
		case "14":
			big = s
		case "2":
			small = s
		}
	}
	if big.Confidence != 1.0 {
		t.Fatalf("confidence with 105 events = %.2f, want capped at 1.0", big.Confidence)
	}
	if small.Confidence >= big.Confidence {
		t.Fatalf("3-event bucket confidence %.2f not below well-sampled %.2f", small.Confidence, big.Confidence)
	}

	// the tiny hot-rate bucket must not outrank the well-sampled one
	if report.BestHours[0].Segment != "14" {
		t.Fatalf("low-sample fluke ranked first: %+v", report.BestHours)
	}
}

func TestCreatorReport_FallbackRecommendation(t *testing.T) {
	l := newTestLearner(DefaultConfig())

	report := l.CreatorReport("", "")
	if len(report.Recommendations) != 1 {
		t.Fatalf("recommendations = %d, want the single fallback", len(report.Recommendations))
	}
	if report.Recommendations[0].Priority != 1 {
		t.Fatalf("fallback priority = %d", report.Recommendations[0].Priority)
	}
}

func TestCreatorReport_AtMostThreeRecommendations(t *testing.T) {
	l := newTestLearner(DefaultConfig())

	// strong hour skew, strong platform skew, and a lagging niche
	recordTraffic(l, 14, 60, 30, types.PlatformNewsletter, "gaming", "US")
	recordTraffic(l, 2, 60, 1, types.PlatformTikTok, "gaming", "US")
	recordTraffic(l, 5, 60, 1, types.PlatformTikTok, "gaming", "US")

	report := l.CreatorReport("gaming", "")
	if n := len(report.Recommendations); n < 1 || n > 3 {
		t.Fatalf("recommendations = %d, want 1..3", n)
	}
	for i, rec := range report.Recommendations {
		if rec.Priority != i+1 {
			t.Fatalf("priorities not sequential: %+v", report.Recommendations)
		}
		if rec.Action == "" || rec.Reason == "" {
			t.Fatalf("empty recommendation: %+v", rec)
		}
	}
}

func TestLearner_EvictionKeepsRatesExact(t *testing.T) {
	l := newTestLearner(Config{Retention: 90 * 24 * time.Hour, MaxEvents: 4})

	// 2 clicks + 2 conversions fill the ring; the next click evicts the
	// oldest click, whose contribution must be reversed.
	l.RecordClick(ClickObservation{Platform: types.PlatformBlog, At: at(10)})
	l.RecordClick(ClickObservation{Platform: types.PlatformBlog, At: at(10)})
	l.RecordConversion(ConversionObservation{Platform: types.PlatformBlog, RevenueCents: 100, At: at(10)})
	l.RecordConversion(ConversionObservation{Platform: types.PlatformBlog, RevenueCents: 100, At: at(10)})
	l.RecordClick(ClickObservation{Platform: types.PlatformBlog, At: at(11)})

	if got := l.EventCount(); got != 4 {
		t.Fatalf("event count = %d, want capped at 4", got)
	}

	report := l.AggregateReportAt(AggregateQuery{Platform: types.PlatformBlog}, at(12))
	if report.Clicks != 2 || report.Conversions != 2 {
		t.Fatalf("totals = %d clicks / %d conversions, want 2/2", report.Clicks, report.Conversions)
	}
	if report.Rate != 1.0 {
		t.Fatalf("rate = %.4f, want 1.0 over the retained window", report.Rate)
	}
	if report.Revenue != 200 {
		t.Fatalf("revenue = %d, want 200", report.Revenue)
	}
}

func TestLearner_PruneReversesExpiredEvents(t *testing.T) {
	l := newTestLearner(Config{Retention: 24 * time.Hour, MaxEvents: 1000})

	old := time.Now().UTC().Add(-48 * time.Hour)
	fresh := time.Now().UTC().Add(-time.Hour)

	l.RecordClick(ClickObservation{Platform: types.PlatformBlog, At: old})
	l.RecordConversion(ConversionObservation{Platform: types.PlatformBlog, RevenueCents: 500, At: old})
	l.RecordClick(ClickObservation{Platform: types.PlatformBlog, At: fresh})

	if pruned := l.Prune(time.Now().UTC()); pruned != 2 {
		t.Fatalf("pruned = %d, want 2", pruned)
	}
	if got := l.EventCount(); got != 1 {
		t.Fatalf("event count = %d, want 1", got)
	}

	report := l.AggregateReport(AggregateQuery{Platform: types.PlatformBlog})
	if report.Clicks != 1 || report.Conversions != 0 || report.Revenue != 0 {
		t.Fatalf("post-prune totals = %+v", report)
	}

	// idempotent
	if pruned := l.Prune(time.Now().UTC()); pruned != 0 {
		t.Fatalf("second prune removed %d events", pruned)
	}
}

func TestAggregateReport_CohortFilters(t *testing.T) {
	l := newTestLearner(DefaultConfig())

	recordTraffic(l, 14, 10, 4, types.PlatformInstagram, "travel", "US")
	recordTraffic(l, 14, 10, 1, types.PlatformInstagram, "travel", "DE")
	recordTraffic(l, 14, 10, 1, types.PlatformYouTube, "fitness", "US")

	report := l.AggregateReportAt(AggregateQuery{Niche: "travel", Country: "us"}, at(15))
	if report.Clicks != 10 || report.Conversions != 4 {
		t.Fatalf("cohort totals = %d/%d, want 10/4", report.Clicks, report.Conversions)
	}
	if report.Query.Country != "US" {
		t.Fatalf("country not normalized: %q", report.Query.Country)
	}
	if len(report.BestHours) != 1 || report.BestHours[0].Segment != "14" {
		t.Fatalf("best hours = %+v", report.BestHours)
	}
}

func TestAggregateReport_WeekOverWeekTrend(t *testing.T) {
	l := newTestLearner(DefaultConfig())
	now := time.Date(2026, time.March, 20, 12, 0, 0, 0, time.UTC)

	prior := now.Add(-10 * 24 * time.Hour)
	current := now.Add(-2 * 24 * time.Hour)

	for i := 0; i < 4; i++ {
		l.RecordConversion(ConversionObservation{Platform: types.PlatformBlog, RevenueCents: 100, At: prior})
	}
	for i := 0; i < 6; i++ {
		l.RecordConversion(ConversionObservation{Platform: types.PlatformBlog, RevenueCents: 100, At: current})
	}

	report := l.AggregateReportAt(AggregateQuery{}, now)
	if report.Trend.PriorConversions != 4 || report.Trend.CurrentConversions != 6 {
		t.Fatalf("trend = %+v", report.Trend)
	}
	if report.Trend.ChangePct != 50.0 {
		t.Fatalf("change pct = %.1f, want 50.0", report.Trend.ChangePct)
	}
}

func TestAggregateReport_SeasonalityIndex(t *testing.T) {
	l := newTestLearner(DefaultConfig())
	now := time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC)

	march := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	june := time.Date(2026, time.June, 10, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 30; i++ {
		l.RecordClick(ClickObservation{Platform: types.PlatformBlog, At: march})
	}
	for i := 0; i < 10; i++ {
		l.RecordClick(ClickObservation{Platform: types.PlatformBlog, At: june})
	}

	report := l.AggregateReportAt(AggregateQuery{}, now)
	if got := report.Seasonality["March"]; got != 1.5 {
		t.Fatalf("March index = %.2f, want 1.5", got)
	}
	if got := report.Seasonality["June"]; got != 0.5 {
		t.Fatalf("June index = %.2f, want 0.5", got)
	}
}

func TestBucketKeys_FilteredVariants(t *testing.T) {
	ev := rawEvent{
		kind:     eventClick,
		at:       at(14),
		platform: types.PlatformInstagram,
		niche:    "TRAVEL",
		country:  "US",
	}
	keys := bucketKeys(ev)

	seen := map[string]bool{}
	for _, k := range keys {
		seen[k.String()] = true
	}
	if len(seen) != len(keys) {
		t.Fatalf("duplicate bucket keys: %d keys, %d distinct", len(keys), len(seen))
	}

	// the unfiltered hour bucket and its niche-filtered variant both exist
	unfiltered := segmentKey{Dim: DimHour, Segment: "14"}
	filtered := segmentKey{Dim: DimHour, Segment: "14", Niche: "TRAVEL"}
	if !seen[unfiltered.String()] || !seen[filtered.String()] {
		t.Fatalf("missing hour buckets in %v", keys)
	}

	// a niche bucket never carries a niche filter of itself
	self := segmentKey{Dim: DimNiche, Segment: "TRAVEL", Niche: "TRAVEL"}
	if seen[self.String()] {
		t.Fatal("niche bucket filtered by its own niche")
	}

	// the niche+country pair gets its own variant
	combined := segmentKey{Dim: DimHour, Segment: "14", Niche: "TRAVEL", Country: "US"}
	if !seen[combined.String()] {
		t.Fatalf("missing combined niche+country hour bucket in %v", keys)
	}
}

func TestRankStats_ConfidenceTempersSmallSamples(t *testing.T) {
	stats := []SegmentStat{
		makeStat(segmentKey{Dim: DimHour, Segment: "fluke"}, 1, 1, 0),
		makeStat(segmentKey{Dim: DimHour, Segment: "solid"}, 100, 40, 0),
	}
	rankStats(stats)
	if stats[0].Segment != "solid" {
		t.Fatalf("ranking = %s first, want solid", stats[0].Segment)
	}
}

func TestHourSegmentFormat(t *testing.T) {
	for _, hour := range []int{0, 9, 14, 23} {
		if got, want := hourSegment(at(hour)), fmt.Sprintf("%d", hour); got != want {
			t.Fatalf("hourSegment(%d) = %q, want %q", hour, got, want)
		}
	}
}
