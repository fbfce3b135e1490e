package insights

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/linkpulse/linkpulse-backend/internal/pkg/logger"
	"github.com/linkpulse/linkpulse-backend/internal/types"
)

// ClickObservation is the learner's view of one click.
type ClickObservation struct {
	UserID      uuid.UUID
	Platform    types.Platform
	Niche       string
	Country     string
	Device      string
	ContentType string
	At          time.Time
}

// ConversionObservation is the learner's view of one attributed sale.
type ConversionObservation struct {
	UserID       uuid.UUID
	Platform     types.Platform
	Niche        string
	Country      string
	Device       string
	ContentType  string
	RevenueCents int64
	At           time.Time
}

type Config struct {
	Retention time.Duration // raw events older than this are pruned
	MaxEvents int           // hard cap on retained raw events
}

func DefaultConfig() Config {
	return Config{
		Retention: 90 * 24 * time.Hour,
		MaxEvents: 100_000,
	}
}

// Learner maintains running aggregates across independent dimensions
// (hour, day, month, platform, niche, country, device, content type),
// each optionally restricted by niche, platform, or country. Raw
// events are retained in a bounded ring so both caps (age and count)
// hold; evicting an event reverses its contribution, keeping every
// bucket's conversion rate exact over the retained window.
type Learner struct {
	log *logger.Logger
	cfg Config

	segMu    sync.RWMutex
	segments map[segmentKey]*segmentStats

	eventMu sync.Mutex
	events  *eventRing
}

func NewLearner(baseLog *logger.Logger, cfg Config) *Learner {
	if cfg.Retention <= 0 {
		cfg.Retention = 90 * 24 * time.Hour
	}
	if cfg.MaxEvents <= 0 {
		cfg.MaxEvents = 100_000
	}
	return &Learner{
		log:      baseLog.With("component", "PatternLearner"),
		cfg:      cfg,
		segments: make(map[segmentKey]*segmentStats),
		events:   newEventRing(cfg.MaxEvents),
	}
}

// RecordClick folds one click into every bucket it belongs to. One bad
// event never aborts processing of the next.
func (l *Learner) RecordClick(obs ClickObservation) {
	if obs.At.IsZero() {
		obs.At = time.Now().UTC()
	}
	ev := rawEvent{
		kind:        eventClick,
		at:          obs.At.UTC(),
		platform:    obs.Platform,
		niche:       normalizeNiche(obs.Niche),
		country:     normalizeCountry(obs.Country),
		device:      obs.Device,
		contentType: obs.ContentType,
	}
	l.ingest(ev)
}

// RecordConversion folds one attributed sale into its buckets.
func (l *Learner) RecordConversion(obs ConversionObservation) {
	if obs.At.IsZero() {
		obs.At = time.Now().UTC()
	}
	ev := rawEvent{
		kind:         eventConversion,
		at:           obs.At.UTC(),
		platform:     obs.Platform,
		niche:        normalizeNiche(obs.Niche),
		country:      normalizeCountry(obs.Country),
		device:       obs.Device,
		contentType:  obs.ContentType,
		revenueCents: obs.RevenueCents,
	}
	l.ingest(ev)
}

func (l *Learner) ingest(ev rawEvent) {
	l.eventMu.Lock()
	evicted := l.events.push(ev)
	l.eventMu.Unlock()

	l.apply(ev, +1)
	if evicted != nil {
		l.apply(*evicted, -1)
	}
}

// Prune drops raw events older than the retention window and reverses
// their contributions. Idempotent; safe to run from a periodic job.
func (l *Learner) Prune(now time.Time) int {
	cutoff := now.UTC().Add(-l.cfg.Retention)

	l.eventMu.Lock()
	expired := l.events.popOlderThan(cutoff)
	l.eventMu.Unlock()

	for i := range expired {
		l.apply(expired[i], -1)
	}
	if len(expired) > 0 {
		l.log.Debug("pruned expired insight events", "count", len(expired))
	}
	return len(expired)
}

// EventCount reports retained raw events.
func (l *Learner) EventCount() int {
	l.eventMu.Lock()
	defer l.eventMu.Unlock()
	return l.events.len()
}

func (l *Learner) apply(ev rawEvent, sign int64) {
	for _, key := range bucketKeys(ev) {
		l.bucket(key).apply(ev.kind, ev.revenueCents, sign)
	}
}

func (l *Learner) bucket(key segmentKey) *segmentStats {
	l.segMu.RLock()
	s, ok := l.segments[key]
	l.segMu.RUnlock()
	if ok {
		return s
	}
	l.segMu.Lock()
	defer l.segMu.Unlock()
	if s, ok = l.segments[key]; ok {
		return s
	}
	s = &segmentStats{}
	l.segments[key] = s
	return s
}

// bucketKeys expands one event into its aggregate buckets: every
// dimension it has a value for, unfiltered plus each applicable
// niche/platform/country restriction and the niche+country pair.
func bucketKeys(ev rawEvent) []segmentKey {
	base := []segmentKey{
		{Dim: DimHour, Segment: hourSegment(ev.at)},
		{Dim: DimDay, Segment: daySegment(ev.at)},
		{Dim: DimMonth, Segment: monthSegment(ev.at)},
	}
	if ev.platform != "" {
		base = append(base, segmentKey{Dim: DimPlatform, Segment: string(ev.platform)})
	}
	if ev.niche != "" {
		base = append(base, segmentKey{Dim: DimNiche, Segment: ev.niche})
	}
	if ev.country != "" {
		base = append(base, segmentKey{Dim: DimCountry, Segment: ev.country})
	}
	if ev.device != "" {
		base = append(base, segmentKey{Dim: DimDevice, Segment: ev.device})
	}
	if ev.contentType != "" {
		base = append(base, segmentKey{Dim: DimContentType, Segment: ev.contentType})
	}

	keys := make([]segmentKey, 0, len(base)*5)
	for _, k := range base {
		keys = append(keys, k)
		if ev.niche != "" && k.Dim != DimNiche {
			filtered := k
			filtered.Niche = ev.niche
			keys = append(keys, filtered)
		}
		if ev.platform != "" && k.Dim != DimPlatform {
			filtered := k
			filtered.Platform = ev.platform
			keys = append(keys, filtered)
		}
		if ev.country != "" && k.Dim != DimCountry {
			filtered := k
			filtered.Country = ev.country
			keys = append(keys, filtered)
		}
		// Niche and country arrive together on the same report
		// request, so that pair also needs its own bucket.
		if ev.niche != "" && ev.country != "" && k.Dim != DimNiche && k.Dim != DimCountry {
			filtered := k
			filtered.Niche = ev.niche
			filtered.Country = ev.country
			keys = append(keys, filtered)
		}
	}
	return keys
}

func (s *segmentStats) apply(kind eventKind, revenueCents, sign int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch kind {
	case eventClick:
		s.clicks += sign
		if s.clicks < 0 {
			s.clicks = 0
		}
	case eventConversion:
		s.conversions += sign
		s.revenueCents += revenueCents * sign
		if s.conversions < 0 {
			s.conversions = 0
		}
		if s.revenueCents < 0 {
			s.revenueCents = 0
		}
	}
}

type eventKind uint8

const (
	eventClick eventKind = iota
	eventConversion
)

type rawEvent struct {
	kind         eventKind
	at           time.Time
	platform     types.Platform
	niche        string
	country      string
	device       string
	contentType  string
	revenueCents int64
}

// eventRing is a fixed-capacity ring of raw events in arrival order.
// push returns the evicted oldest event once the cap is hit.
type eventRing struct {
	buf   []rawEvent
	head  int
	count int
}

func newEventRing(capacity int) *eventRing {
	return &eventRing{buf: make([]rawEvent, capacity)}
}

func (r *eventRing) push(ev rawEvent) *rawEvent {
	if r.count < len(r.buf) {
		r.buf[(r.head+r.count)%len(r.buf)] = ev
		r.count++
		return nil
	}
	evicted := r.buf[r.head]
	r.buf[r.head] = ev
	r.head = (r.head + 1) % len(r.buf)
	return &evicted
}

// popOlderThan removes events from the front while they predate the
// cutoff. Events arrive roughly in time order, so this stops at the
// first retained one.
func (r *eventRing) popOlderThan(cutoff time.Time) []rawEvent {
	var out []rawEvent
	for r.count > 0 {
		oldest := r.buf[r.head]
		if !oldest.at.Before(cutoff) {
			break
		}
		out = append(out, oldest)
		r.head = (r.head + 1) % len(r.buf)
		r.count--
	}
	return out
}

func (r *eventRing) len() int { return r.count }

// forEach visits retained events oldest first.
func (r *eventRing) forEach(fn func(rawEvent)) {
	for i := 0; i < r.count; i++ {
		fn(r.buf[(r.head+i)%len(r.buf)])
	}
}
