package services

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	errs "github.com/linkpulse/linkpulse-backend/internal/pkg/errors"
	"github.com/linkpulse/linkpulse-backend/internal/pkg/logger"
	"github.com/linkpulse/linkpulse-backend/internal/repos"
	"github.com/linkpulse/linkpulse-backend/internal/types"
)

var slugRe = regexp.MustCompile(`^[a-z0-9\-]{3,60}$`)

// LinkInput creates a tracked link. GeoRouter must be set when Kind is
// geo_affiliate and absent otherwise.
type LinkInput struct {
	UserID      uuid.UUID                 `json:"user_id"`
	Slug        string                    `json:"slug"`
	Destination string                    `json:"destination"`
	Platform    types.Platform            `json:"platform"`
	Niche       string                    `json:"niche,omitempty"`
	Kind        types.RouterKind          `json:"kind,omitempty"`
	GeoRouter   *types.GeoAffiliateRouter `json:"geo_router,omitempty"`
}

type LinkService interface {
	CreateLink(ctx context.Context, tx *gorm.DB, in LinkInput) (*types.TrackedLink, error)
	GetBySlug(ctx context.Context, tx *gorm.DB, slug string) (*types.TrackedLink, error)
	ListLinks(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.TrackedLink, error)
	ResolveDestination(ctx context.Context, tx *gorm.DB, slug, country string) (*types.TrackedLink, string, error)
}

type linkService struct {
	db    *gorm.DB
	log   *logger.Logger
	links repos.TrackedLinkRepo
}

func NewLinkService(db *gorm.DB, baseLog *logger.Logger, links repos.TrackedLinkRepo) LinkService {
	return &linkService{
		db:    db,
		log:   baseLog.With("service", "LinkService"),
		links: links,
	}
}

func (s *linkService) CreateLink(ctx context.Context, tx *gorm.DB, in LinkInput) (*types.TrackedLink, error) {
	if in.UserID == uuid.Nil {
		return nil, fmt.Errorf("%w: user_id required", errs.ErrInvalidArgument)
	}
	slug := strings.ToLower(strings.TrimSpace(in.Slug))
	if !slugRe.MatchString(slug) {
		return nil, fmt.Errorf("%w: slug must be 3-60 chars of [a-z0-9-]", errs.ErrInvalidArgument)
	}
	if strings.TrimSpace(in.Destination) == "" {
		return nil, fmt.Errorf("%w: destination required", errs.ErrInvalidArgument)
	}
	if !in.Platform.Valid() {
		in.Platform = types.PlatformOther
	}

	kind := in.Kind
	if kind == "" {
		kind = types.RouterStandard
	}
	link := &types.TrackedLink{
		UserID:      in.UserID,
		Slug:        slug,
		Destination: strings.TrimSpace(in.Destination),
		Platform:    in.Platform,
		Niche:       strings.TrimSpace(in.Niche),
		Kind:        kind,
	}
	switch kind {
	case types.RouterStandard:
	case types.RouterGeoAffiliate:
		if in.GeoRouter == nil || len(in.GeoRouter.Routes) == 0 {
			return nil, fmt.Errorf("%w: geo_affiliate links need at least one route", errs.ErrInvalidArgument)
		}
		normalized := types.GeoAffiliateRouter{
			Routes:  make(map[string]string, len(in.GeoRouter.Routes)),
			Default: strings.TrimSpace(in.GeoRouter.Default),
		}
		for country, dest := range in.GeoRouter.Routes {
			normalized.Routes[strings.ToUpper(strings.TrimSpace(country))] = strings.TrimSpace(dest)
		}
		raw, err := json.Marshal(normalized)
		if err != nil {
			return nil, fmt.Errorf("encode geo router: %w", err)
		}
		link.Router = raw
	default:
		return nil, fmt.Errorf("%w: unknown router kind %q", errs.ErrInvalidArgument, kind)
	}

	return s.links.Create(ctx, tx, link)
}

func (s *linkService) GetBySlug(ctx context.Context, tx *gorm.DB, slug string) (*types.TrackedLink, error) {
	return s.links.GetBySlug(ctx, tx, strings.ToLower(strings.TrimSpace(slug)))
}

func (s *linkService) ListLinks(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.TrackedLink, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: user_id required", errs.ErrInvalidArgument)
	}
	return s.links.GetByUser(ctx, tx, userID)
}

// ResolveDestination picks the redirect target for a visitor, honoring
// the link's router variant.
func (s *linkService) ResolveDestination(ctx context.Context, tx *gorm.DB, slug, country string) (*types.TrackedLink, string, error) {
	link, err := s.GetBySlug(ctx, tx, slug)
	if err != nil {
		return nil, "", err
	}
	return link, link.ResolveDestination(country), nil
}
