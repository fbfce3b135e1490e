package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/linkpulse/linkpulse-backend/internal/cache"
	"github.com/linkpulse/linkpulse-backend/internal/correlation"
	"github.com/linkpulse/linkpulse-backend/internal/insights"
	"github.com/linkpulse/linkpulse-backend/internal/jobs"
	errs "github.com/linkpulse/linkpulse-backend/internal/pkg/errors"
	"github.com/linkpulse/linkpulse-backend/internal/pkg/logger"
	"github.com/linkpulse/linkpulse-backend/internal/repos"
	"github.com/linkpulse/linkpulse-backend/internal/scoring"
	"github.com/linkpulse/linkpulse-backend/internal/training"
	"github.com/linkpulse/linkpulse-backend/internal/types"
)

// ClickInput is the ingestion payload for one click on a tracked link.
type ClickInput struct {
	ClickID     *uuid.UUID     `json:"click_id,omitempty"`
	LinkID      uuid.UUID      `json:"link_id"`
	UserID      uuid.UUID      `json:"user_id"`
	IPAddress   string         `json:"ip_address,omitempty"`
	TrackerID   string         `json:"tracker_id,omitempty"`
	Fingerprint string         `json:"fingerprint,omitempty"`
	UserAgent   string         `json:"user_agent,omitempty"`
	AcceptLang  string         `json:"accept_language,omitempty"`
	Referrer    string         `json:"referrer,omitempty"`
	UTMSource   string         `json:"utm_source,omitempty"`
	UTMMedium   string         `json:"utm_medium,omitempty"`
	UTMCampaign string         `json:"utm_campaign,omitempty"`
	Country     string         `json:"country,omitempty"`
	Region      string         `json:"region,omitempty"`
	City        string         `json:"city,omitempty"`
	DeviceType  string         `json:"device_type,omitempty"`
	Platform    types.Platform `json:"platform"`
	Niche       string         `json:"niche,omitempty"`
	ContentType string         `json:"content_type,omitempty"`
	ClickedAt   *time.Time     `json:"clicked_at,omitempty"`
}

// SaleInput is the payload for one settled payment.
type SaleInput struct {
	UserID        uuid.UUID  `json:"user_id"`
	AmountCents   int64      `json:"amount_cents"`
	Currency      string     `json:"currency,omitempty"`
	ProductName   string     `json:"product_name,omitempty"`
	CampaignID    string     `json:"campaign_id,omitempty"`
	CustomerEmail string     `json:"customer_email,omitempty"`
	CustomerIP    string     `json:"customer_ip,omitempty"`
	TrackerID     string     `json:"tracker_id,omitempty"`
	Fingerprint   string     `json:"fingerprint,omitempty"`
	Country       string     `json:"country,omitempty"`
	City          string     `json:"city,omitempty"`
	OccurredAt    *time.Time `json:"occurred_at,omitempty"`
}

// ModelStatus is the introspection view of the learning system.
type ModelStatus struct {
	Weights      *types.ScoringWeights `json:"weights"`
	SampleCount  int                   `json:"sample_count"`
	IsLearning   bool                  `json:"is_learning"`
	CacheStats   cache.Stats           `json:"cache_stats"`
	DroppedTasks uint64                `json:"dropped_tasks"`
}

// AttributionService is the core surface the API layer consumes: click
// ingestion, sale correlation, feedback, and model introspection.
type AttributionService interface {
	IngestClick(ctx context.Context, tx *gorm.DB, in ClickInput) (uuid.UUID, error)
	CorrelateSale(ctx context.Context, tx *gorm.DB, in SaleInput) (*types.SaleEvent, *types.Attribution, error)
	SubmitFeedback(ctx context.Context, tx *gorm.DB, attributionID uuid.UUID, confirmed bool) (*types.Attribution, error)
	AdjustAttribution(ctx context.Context, tx *gorm.DB, attributionID uuid.UUID, revenueShare float64, notes string) (*types.Attribution, error)
	ListAttributions(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.Attribution, error)
	GetModelStatus(ctx context.Context) (*ModelStatus, error)
}

type attributionService struct {
	db      *gorm.DB
	log     *logger.Logger
	clicks  repos.ClickEventRepo
	sales   repos.SaleEventRepo
	attrs   repos.AttributionRepo
	links   repos.TrackedLinkRepo
	posts   repos.ContentPostRepo
	cache   *cache.TieredClickCache
	engine  *correlation.Engine
	model   *scoring.Model
	trainer *training.Trainer
	learner *insights.Learner
	runner  *jobs.BackgroundRunner
}

func NewAttributionService(
	db *gorm.DB,
	baseLog *logger.Logger,
	clicks repos.ClickEventRepo,
	sales repos.SaleEventRepo,
	attrs repos.AttributionRepo,
	links repos.TrackedLinkRepo,
	posts repos.ContentPostRepo,
	clickCache *cache.TieredClickCache,
	engine *correlation.Engine,
	model *scoring.Model,
	trainer *training.Trainer,
	learner *insights.Learner,
	runner *jobs.BackgroundRunner,
) AttributionService {
	return &attributionService{
		db:      db,
		log:     baseLog.With("service", "AttributionService"),
		clicks:  clicks,
		sales:   sales,
		attrs:   attrs,
		links:   links,
		posts:   posts,
		cache:   clickCache,
		engine:  engine,
		model:   model,
		trainer: trainer,
		learner: learner,
		runner:  runner,
	}
}

// IngestClick stores the click durably, then mirrors it into the click
// cache and the pattern learner off the request path. Fire-and-forget
// for the caller beyond the returned click id.
func (s *attributionService) IngestClick(ctx context.Context, tx *gorm.DB, in ClickInput) (uuid.UUID, error) {
	if in.LinkID == uuid.Nil || in.UserID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: link_id and user_id required", errs.ErrInvalidArgument)
	}
	if !in.Platform.Valid() {
		if strings.TrimSpace(string(in.Platform)) == "" {
			in.Platform = types.PlatformOther
		} else {
			return uuid.Nil, fmt.Errorf("%w: unknown platform %q", errs.ErrInvalidArgument, in.Platform)
		}
	}

	clickedAt := time.Now().UTC()
	if in.ClickedAt != nil && !in.ClickedAt.IsZero() {
		clickedAt = in.ClickedAt.UTC()
	}
	id := uuid.New()
	if in.ClickID != nil && *in.ClickID != uuid.Nil {
		id = *in.ClickID
	}
	fingerprint := strings.TrimSpace(in.Fingerprint)
	if fingerprint == "" {
		fingerprint = Fingerprint(in.UserAgent, in.AcceptLang, in.IPAddress)
	}

	click := &types.ClickEvent{
		ID:          id,
		LinkID:      in.LinkID,
		UserID:      in.UserID,
		IPAddress:   strings.TrimSpace(in.IPAddress),
		TrackerID:   strings.TrimSpace(in.TrackerID),
		Fingerprint: fingerprint,
		Referrer:    in.Referrer,
		UTMSource:   in.UTMSource,
		UTMMedium:   in.UTMMedium,
		UTMCampaign: in.UTMCampaign,
		Country:     strings.ToUpper(strings.TrimSpace(in.Country)),
		Region:      in.Region,
		City:        in.City,
		DeviceType:  in.DeviceType,
		Platform:    in.Platform,
		ContentType: strings.TrimSpace(in.ContentType),
		ClickedAt:   clickedAt,
	}

	if _, err := s.clicks.Create(ctx, tx, click); err != nil {
		return uuid.Nil, fmt.Errorf("store click: %w", err)
	}

	niche := strings.TrimSpace(in.Niche)
	s.runner.Submit("click_fanout", func(bg context.Context) {
		s.cache.Put(bg, click)
		if niche == "" {
			if link, err := s.links.GetByID(bg, nil, click.LinkID); err == nil {
				niche = link.Niche
			}
		}
		s.learner.RecordClick(insights.ClickObservation{
			UserID:      click.UserID,
			Platform:    click.Platform,
			Niche:       niche,
			Country:     click.Country,
			Device:      click.DeviceType,
			ContentType: click.ContentType,
			At:          click.ClickedAt,
		})
	})

	return click.ID, nil
}

// CorrelateSale stores the sale, then runs the correlation engine.
// A nil attribution with a nil error is the normal "no match" outcome.
func (s *attributionService) CorrelateSale(ctx context.Context, tx *gorm.DB, in SaleInput) (*types.SaleEvent, *types.Attribution, error) {
	if in.UserID == uuid.Nil {
		return nil, nil, fmt.Errorf("%w: user_id required", errs.ErrInvalidArgument)
	}
	if in.AmountCents <= 0 {
		return nil, nil, fmt.Errorf("%w: amount_cents must be positive", errs.ErrInvalidArgument)
	}

	occurredAt := time.Now().UTC()
	if in.OccurredAt != nil && !in.OccurredAt.IsZero() {
		occurredAt = in.OccurredAt.UTC()
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = "USD"
	}

	sale := &types.SaleEvent{
		ID:            uuid.New(),
		UserID:        in.UserID,
		AmountCents:   in.AmountCents,
		Currency:      currency,
		ProductName:   in.ProductName,
		CampaignID:    in.CampaignID,
		CustomerEmail: in.CustomerEmail,
		CustomerIP:    strings.TrimSpace(in.CustomerIP),
		TrackerID:     strings.TrimSpace(in.TrackerID),
		Fingerprint:   strings.TrimSpace(in.Fingerprint),
		Country:       strings.ToUpper(strings.TrimSpace(in.Country)),
		City:          in.City,
		OccurredAt:    occurredAt,
	}
	if _, err := s.sales.Create(ctx, tx, sale); err != nil {
		return nil, nil, fmt.Errorf("store sale: %w", err)
	}

	attr, err := s.engine.Correlate(ctx, sale)
	if err != nil {
		// Correlation trouble never fails sale processing.
		s.log.Warn("correlation failed, sale stored unattributed", "sale_id", sale.ID, "error", err)
		return sale, nil, nil
	}
	if attr != nil {
		s.feedConversion(sale, attr)
	}
	return sale, attr, nil
}

// feedConversion mirrors an attributed sale into the pattern learner
// off the request path.
func (s *attributionService) feedConversion(sale *types.SaleEvent, attr *types.Attribution) {
	s.runner.Submit("conversion_fanout", func(bg context.Context) {
		obs := insights.ConversionObservation{
			UserID:       sale.UserID,
			Country:      sale.Country,
			RevenueCents: sale.AmountCents,
			At:           sale.OccurredAt,
		}
		switch {
		case attr.ClickID != nil:
			if click, err := s.clicks.GetByID(bg, nil, *attr.ClickID); err == nil {
				obs.Platform = click.Platform
				obs.Device = click.DeviceType
				obs.ContentType = click.ContentType
				if link, linkErr := s.links.GetByID(bg, nil, click.LinkID); linkErr == nil {
					obs.Niche = link.Niche
				}
			}
		case attr.ContentPostID != nil:
			if post, err := s.posts.GetByID(bg, nil, *attr.ContentPostID); err == nil {
				obs.Platform = post.Platform
				obs.ContentType = post.ContentType
				obs.Niche = post.Niche
			}
		}
		s.learner.RecordConversion(obs)
	})
}

// SubmitFeedback applies a user confirm/reject to a non-terminal
// attribution and feeds the outcome to the trainer. The verdict pins
// confidence to 1.0 or 0.0; the model's original estimate survives in
// the trainer sample. Rejected rows are kept; the status flip
// preserves training data.
func (s *attributionService) SubmitFeedback(ctx context.Context, tx *gorm.DB, attributionID uuid.UUID, confirmed bool) (*types.Attribution, error) {
	attr, err := s.attrs.GetByID(ctx, tx, attributionID)
	if err != nil {
		return nil, fmt.Errorf("load attribution: %w", err)
	}
	if attr.Status.Terminal() {
		return nil, fmt.Errorf("%w: attribution %s already finalized as %s", errs.ErrInvalidArgument, attr.ID, attr.Status)
	}

	status := types.AttributionRejected
	confidence := 0.0
	if confirmed {
		status = types.AttributionConfirmed
		confidence = 1.0
	}
	predicted := attr.Confidence
	if err := s.attrs.Finalize(ctx, tx, attr.ID, status, confidence); err != nil {
		return nil, fmt.Errorf("finalize attribution: %w", err)
	}
	attr.Status = status
	attr.Confidence = confidence

	platform := types.PlatformOther
	if attr.ClickID != nil {
		if click, clickErr := s.clicks.GetByID(ctx, tx, *attr.ClickID); clickErr == nil {
			platform = click.Platform
		}
	}
	s.trainer.ProvideFeedback(ctx, attr.SaleID, predicted, confirmed, attr.MatchedBy, platform, attr.TimeDeltaMinutes/60)

	return attr, nil
}

// AdjustAttribution is the manual override path: revenue share and
// free-form notes only.
func (s *attributionService) AdjustAttribution(ctx context.Context, tx *gorm.DB, attributionID uuid.UUID, revenueShare float64, notes string) (*types.Attribution, error) {
	if revenueShare < 0 || revenueShare > 1 {
		return nil, fmt.Errorf("%w: revenue share must be in [0,1]", errs.ErrInvalidArgument)
	}
	attr, err := s.attrs.GetByID(ctx, tx, attributionID)
	if err != nil {
		return nil, fmt.Errorf("load attribution: %w", err)
	}
	attr.RevenueShare = revenueShare
	if strings.TrimSpace(notes) != "" {
		attr.Notes = notes
	}
	if err := s.attrs.Update(ctx, tx, attr); err != nil {
		return nil, fmt.Errorf("update attribution: %w", err)
	}
	return attr, nil
}

func (s *attributionService) ListAttributions(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.Attribution, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: user_id required", errs.ErrInvalidArgument)
	}
	return s.attrs.GetByUser(ctx, tx, userID, limit)
}

func (s *attributionService) GetModelStatus(ctx context.Context) (*ModelStatus, error) {
	return &ModelStatus{
		Weights:      s.model.Current(),
		SampleCount:  s.trainer.SampleCount(),
		IsLearning:   s.trainer.IsLearning(),
		CacheStats:   s.cache.Stats(),
		DroppedTasks: s.runner.Dropped(),
	}, nil
}
