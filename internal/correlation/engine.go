package correlation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/linkpulse/linkpulse-backend/internal/cache"
	errs "github.com/linkpulse/linkpulse-backend/internal/pkg/errors"
	"github.com/linkpulse/linkpulse-backend/internal/pkg/logger"
	"github.com/linkpulse/linkpulse-backend/internal/repos"
	"github.com/linkpulse/linkpulse-backend/internal/scoring"
	"github.com/linkpulse/linkpulse-backend/internal/training"
	"github.com/linkpulse/linkpulse-backend/internal/types"
)

type Config struct {
	AttributionWindow   time.Duration // max click-to-sale gap considered
	AutoAcceptThreshold float64       // >= this becomes MATCHED
	ConfidenceFloor     float64       // below this no attribution exists
	ContentThreshold    float64       // MATCHED bar for content-based evidence
	ContentCeiling      float64       // max confidence content evidence can earn
	CandidateLimit      int           // durable-store candidates per sale
}

func DefaultConfig() Config {
	return Config{
		AttributionWindow:   24 * time.Hour,
		AutoAcceptThreshold: 0.75,
		ConfidenceFloor:     0.50,
		ContentThreshold:    0.80,
		ContentCeiling:      0.85,
		CandidateLimit:      200,
	}
}

// Engine turns a settled sale into at most one attribution. Lookup is
// tiered: click cache first (IP, tracker, fingerprint, short-circuiting
// on first hit), then the durable store; when no click candidate
// clears the confidence floor it degrades to probabilistic matching
// against recent content posts. A sale is never failed by attribution
// trouble; every internal failure collapses to "no attribution".
type Engine struct {
	log     *logger.Logger
	clicks  repos.ClickEventRepo
	posts   repos.ContentPostRepo
	attrs   repos.AttributionRepo
	cache   *cache.TieredClickCache
	scorer  *scoring.Scorer
	model   *scoring.Model
	trainer *training.Trainer
	cfg     Config
}

func NewEngine(
	baseLog *logger.Logger,
	clicks repos.ClickEventRepo,
	posts repos.ContentPostRepo,
	attrs repos.AttributionRepo,
	clickCache *cache.TieredClickCache,
	scorer *scoring.Scorer,
	model *scoring.Model,
	trainer *training.Trainer,
	cfg Config,
) *Engine {
	if cfg.AttributionWindow <= 0 {
		cfg = DefaultConfig()
	}
	return &Engine{
		log:     baseLog.With("component", "CorrelationEngine"),
		clicks:  clicks,
		posts:   posts,
		attrs:   attrs,
		cache:   clickCache,
		scorer:  scorer,
		model:   model,
		trainer: trainer,
		cfg:     cfg,
	}
}

// Correlate finds the best click (or content post) explaining the sale
// and persists the resulting attribution. Returns nil with no error
// when nothing clears the confidence floor.
func (e *Engine) Correlate(ctx context.Context, sale *types.SaleEvent) (*types.Attribution, error) {
	if sale == nil || sale.UserID == uuid.Nil {
		return nil, fmt.Errorf("%w: sale with owning user required", errs.ErrInvalidArgument)
	}
	if sale.OccurredAt.IsZero() {
		return nil, fmt.Errorf("%w: sale timestamp required", errs.ErrInvalidArgument)
	}

	// Correlation is idempotent per sale: a retried sale returns the
	// attribution already on record instead of consuming another click.
	if existing, err := e.attrs.GetBySaleID(ctx, nil, sale.ID); err == nil && existing != nil {
		return existing, nil
	}

	candidates := e.findCandidates(ctx, sale)

	best, bestScore, bestBreakdown := e.pickBest(candidates, sale)
	if best != nil && bestScore >= e.cfg.ConfidenceFloor {
		return e.persistClickAttribution(ctx, sale, best, bestScore, bestBreakdown)
	}

	return e.correlateContent(ctx, sale)
}

// findCandidates checks the tiered cache by IP, tracker id, and
// fingerprint, short-circuiting on the first usable hit. A miss on all
// three falls through to the durable store.
func (e *Engine) findCandidates(ctx context.Context, sale *types.SaleEvent) []*types.ClickEvent {
	windowStart := sale.OccurredAt.Add(-e.cfg.AttributionWindow)

	if e.cache != nil {
		lookups := []func() (*types.ClickEvent, bool){
			func() (*types.ClickEvent, bool) { return e.cache.FindByIP(ctx, sale.UserID, sale.CustomerIP) },
			func() (*types.ClickEvent, bool) { return e.cache.FindByTracker(ctx, sale.UserID, sale.TrackerID) },
			func() (*types.ClickEvent, bool) { return e.cache.FindByFingerprint(ctx, sale.UserID, sale.Fingerprint) },
		}
		for _, lookup := range lookups {
			if click, ok := lookup(); ok && e.usable(click, sale, windowStart) {
				return []*types.ClickEvent{click}
			}
		}
	}

	clicks, err := e.clicks.GetByUserSince(ctx, nil, sale.UserID, windowStart, e.cfg.CandidateLimit)
	if err != nil {
		e.log.Warn("durable click lookup failed, continuing without candidates", "sale_id", sale.ID, "error", err)
		return nil
	}
	usable := clicks[:0]
	for _, click := range clicks {
		if e.usable(click, sale, windowStart) {
			usable = append(usable, click)
		}
	}
	return usable
}

// usable enforces causality (a sale cannot be caused by a future
// click), the attribution window, and single-use of a click.
func (e *Engine) usable(click *types.ClickEvent, sale *types.SaleEvent, windowStart time.Time) bool {
	if click == nil || click.Attributed {
		return false
	}
	if click.UserID != sale.UserID {
		return false
	}
	if click.ClickedAt.IsZero() || click.ClickedAt.After(sale.OccurredAt) {
		return false
	}
	return !click.ClickedAt.Before(windowStart)
}

func (e *Engine) pickBest(candidates []*types.ClickEvent, sale *types.SaleEvent) (*types.ClickEvent, float64, types.MatchBreakdown) {
	var (
		best          *types.ClickEvent
		bestScore     float64
		bestBreakdown types.MatchBreakdown
	)
	for _, click := range candidates {
		score, breakdown, err := e.scorer.Score(click, sale)
		if err != nil {
			e.log.Debug("candidate scoring failed, skipped", "click_id", click.ID, "sale_id", sale.ID, "error", err)
			continue
		}
		if best == nil || score > bestScore {
			best, bestScore, bestBreakdown = click, score, breakdown
		}
	}
	return best, bestScore, bestBreakdown
}

func (e *Engine) persistClickAttribution(ctx context.Context, sale *types.SaleEvent, click *types.ClickEvent, score float64, breakdown types.MatchBreakdown) (*types.Attribution, error) {
	status := types.AttributionUncertain
	if score >= e.cfg.AutoAcceptThreshold {
		status = types.AttributionMatched
	}
	clickID := click.ID
	attr := &types.Attribution{
		SaleID:           sale.ID,
		ClickID:          &clickID,
		UserID:           sale.UserID,
		Status:           status,
		Confidence:       score,
		TimeDeltaMinutes: sale.OccurredAt.Sub(click.ClickedAt).Minutes(),
		MatchedBy:        breakdown,
		RevenueShare:     1.0,
		WeightsVersion:   e.model.Current().Version,
	}
	if _, err := e.attrs.Create(ctx, nil, attr); err != nil {
		e.log.Error("attribution persist failed", "sale_id", sale.ID, "error", err)
		return nil, nil
	}
	if err := e.clicks.MarkAttributed(ctx, nil, click.ID); err != nil {
		e.log.Warn("mark click attributed failed", "click_id", click.ID, "error", err)
	}
	// The cached copies must flip too, or the next sale with the same
	// signals would reuse the click straight from the cache.
	click.Attributed = true
	if e.cache != nil {
		e.cache.MarkAttributed(ctx, click)
	}

	// A tracker-id match is a deterministic link between both ends,
	// the strongest signal the trainer gets.
	if breakdown.TrackerMatch && e.trainer != nil {
		e.trainer.RecordGroundTruth(ctx, click, sale, breakdown)
	}
	return attr, nil
}

// correlateContent is the probabilistic fallback: the same scoring
// machinery applied to recent content posts, with a lower ceiling and a
// stricter MATCHED bar for the weaker evidence.
func (e *Engine) correlateContent(ctx context.Context, sale *types.SaleEvent) (*types.Attribution, error) {
	windowStart := sale.OccurredAt.Add(-e.cfg.AttributionWindow)
	postList, err := e.posts.GetByUserSince(ctx, nil, sale.UserID, windowStart, 50)
	if err != nil {
		e.log.Warn("content post lookup failed", "sale_id", sale.ID, "error", err)
		return nil, nil
	}

	var (
		best          *types.ContentPost
		bestScore     float64
		bestBreakdown types.MatchBreakdown
	)
	for _, post := range postList {
		score, breakdown, scoreErr := e.scorer.ScoreContent(post, sale, e.cfg.ContentCeiling)
		if scoreErr != nil {
			continue
		}
		if best == nil || score > bestScore {
			best, bestScore, bestBreakdown = post, score, breakdown
		}
	}
	if best == nil || bestScore < e.cfg.ConfidenceFloor {
		return nil, nil
	}

	status := types.AttributionUncertain
	if bestScore >= e.cfg.ContentThreshold {
		status = types.AttributionMatched
	}
	postID := best.ID
	attr := &types.Attribution{
		SaleID:           sale.ID,
		ContentPostID:    &postID,
		UserID:           sale.UserID,
		Status:           status,
		Confidence:       bestScore,
		TimeDeltaMinutes: sale.OccurredAt.Sub(best.PostedAt).Minutes(),
		MatchedBy:        bestBreakdown,
		RevenueShare:     1.0,
		WeightsVersion:   e.model.Current().Version,
	}
	if _, err := e.attrs.Create(ctx, nil, attr); err != nil {
		e.log.Error("content attribution persist failed", "sale_id", sale.ID, "error", err)
		return nil, nil
	}
	return attr, nil
}
