package services

import (
	"context"

	"github.com/linkpulse/linkpulse-backend/internal/insights"
	"github.com/linkpulse/linkpulse-backend/internal/pkg/logger"
)

// InsightService exposes the pattern learner's reports to the API
// layer.
type InsightService interface {
	CreatorReport(ctx context.Context, niche, country string) *insights.CreatorReport
	AggregateReport(ctx context.Context, query insights.AggregateQuery) *insights.AggregateReport
}

type insightService struct {
	log     *logger.Logger
	learner *insights.Learner
}

func NewInsightService(baseLog *logger.Logger, learner *insights.Learner) InsightService {
	return &insightService{
		log:     baseLog.With("service", "InsightService"),
		learner: learner,
	}
}

func (s *insightService) CreatorReport(ctx context.Context, niche, country string) *insights.CreatorReport {
	return s.learner.CreatorReport(niche, country)
}

func (s *insightService) AggregateReport(ctx context.Context, query insights.AggregateQuery) *insights.AggregateReport {
	return s.learner.AggregateReport(query)
}
