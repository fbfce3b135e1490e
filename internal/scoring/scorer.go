package scoring

import (
	"fmt"
	"math"
	"strings"
	"time"

	errs "github.com/linkpulse/linkpulse-backend/internal/pkg/errors"
	"github.com/linkpulse/linkpulse-backend/internal/pkg/logger"
	"github.com/linkpulse/linkpulse-backend/internal/types"
)

// Scorer computes the match confidence between one candidate click and
// one sale as a weighted combination of independent signals, clamped to
// [0,1]. Absent optional signals contribute zero; they are never
// errors.
type Scorer struct {
	log   *logger.Logger
	model *Model
}

func NewScorer(baseLog *logger.Logger, model *Model) *Scorer {
	return &Scorer{
		log:   baseLog.With("component", "Scorer"),
		model: model,
	}
}

// Score returns the confidence and the per-signal breakdown for a
// click/sale pair. Both timestamps must be set, and the sale must not
// precede the click.
func (s *Scorer) Score(click *types.ClickEvent, sale *types.SaleEvent) (float64, types.MatchBreakdown, error) {
	var breakdown types.MatchBreakdown
	if click == nil || sale == nil {
		return 0, breakdown, fmt.Errorf("%w: click and sale required", errs.ErrInvalidArgument)
	}
	if click.ClickedAt.IsZero() || sale.OccurredAt.IsZero() {
		return 0, breakdown, fmt.Errorf("%w: click and sale timestamps required", errs.ErrInvalidArgument)
	}
	if sale.OccurredAt.Before(click.ClickedAt) {
		return 0, breakdown, fmt.Errorf("%w: sale precedes click", errs.ErrInvalidArgument)
	}

	w := s.model.Current()
	score := 0.0

	if matchNonEmpty(click.IPAddress, sale.CustomerIP) {
		score += w.IPWeight
		breakdown.IPMatch = true
	}
	if matchNonEmpty(click.TrackerID, sale.TrackerID) {
		score += w.TrackerWeight
		breakdown.TrackerMatch = true
	}
	if matchNonEmpty(click.Fingerprint, sale.Fingerprint) {
		score += w.FingerprintWeight
		breakdown.FingerprintMatch = true
	}

	geo := geoScore(click, sale)
	if geo > 0 {
		score += w.GeoWeight * geo
		breakdown.GeoScore = geo
	}

	decay := timeDecay(w.DecayFor(click.Platform), sale.OccurredAt.Sub(click.ClickedAt))
	score += w.TimeWeight * decay
	breakdown.TimeDecay = decay

	if breakdown.SignalCount() >= 3 {
		score += w.MultiSignalBonus
		breakdown.MultiSignal = true
	}

	return clamp01(score), breakdown, nil
}

// ScoreContent scores a sale against a content post, the weaker
// fallback evidence when no click candidate exists. Confidence is pure
// recency: ceiling scaled by the platform time decay of the post age.
func (s *Scorer) ScoreContent(post *types.ContentPost, sale *types.SaleEvent, ceiling float64) (float64, types.MatchBreakdown, error) {
	var breakdown types.MatchBreakdown
	if post == nil || sale == nil {
		return 0, breakdown, fmt.Errorf("%w: post and sale required", errs.ErrInvalidArgument)
	}
	if post.PostedAt.IsZero() || sale.OccurredAt.IsZero() {
		return 0, breakdown, fmt.Errorf("%w: post and sale timestamps required", errs.ErrInvalidArgument)
	}
	if sale.OccurredAt.Before(post.PostedAt) {
		return 0, breakdown, fmt.Errorf("%w: sale precedes post", errs.ErrInvalidArgument)
	}
	if ceiling <= 0 || ceiling > 1 {
		ceiling = 0.85
	}

	w := s.model.Current()
	decay := timeDecay(w.DecayFor(post.Platform), sale.OccurredAt.Sub(post.PostedAt))
	breakdown.TimeDecay = decay
	breakdown.ContentBased = true

	return clamp01(ceiling * decay), breakdown, nil
}

func matchNonEmpty(a, b string) bool {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	return a != "" && a == b
}

// geoScore is tiered: country match alone earns partial credit, country
// plus city earns full credit.
func geoScore(click *types.ClickEvent, sale *types.SaleEvent) float64 {
	if !matchFold(click.Country, sale.Country) {
		return 0
	}
	if matchFold(click.City, sale.City) {
		return 1.0
	}
	return 0.5
}

func matchFold(a, b string) bool {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	return a != "" && strings.EqualFold(a, b)
}

func timeDecay(lambda float64, delta time.Duration) float64 {
	if delta < 0 {
		return 0
	}
	return math.Exp(-lambda * delta.Hours())
}

func clamp01(v float64) float64 {
	return math.Min(1.0, math.Max(0.0, v))
}
