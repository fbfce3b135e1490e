package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/linkpulse/linkpulse-backend/internal/cache"
	"github.com/linkpulse/linkpulse-backend/internal/clients/redis"
	"github.com/linkpulse/linkpulse-backend/internal/correlation"
	"github.com/linkpulse/linkpulse-backend/internal/data/db"
	"github.com/linkpulse/linkpulse-backend/internal/handlers"
	"github.com/linkpulse/linkpulse-backend/internal/insights"
	"github.com/linkpulse/linkpulse-backend/internal/jobs"
	"github.com/linkpulse/linkpulse-backend/internal/middleware"
	"github.com/linkpulse/linkpulse-backend/internal/observability"
	"github.com/linkpulse/linkpulse-backend/internal/pkg/logger"
	"github.com/linkpulse/linkpulse-backend/internal/repos"
	"github.com/linkpulse/linkpulse-backend/internal/scoring"
	"github.com/linkpulse/linkpulse-backend/internal/server"
	"github.com/linkpulse/linkpulse-backend/internal/services"
	"github.com/linkpulse/linkpulse-backend/internal/training"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	Log    *logger.Logger
	DB     *gorm.DB
	Router *gin.Engine
	Cfg    Config

	SharedCache redis.SharedCache
	ClickCache  *cache.TieredClickCache
	Model       *scoring.Model
	Trainer     *training.Trainer
	Learner     *insights.Learner
	Engine      *correlation.Engine

	Attribution services.AttributionService
	Insight     services.InsightService
	Links       services.LinkService

	runner       *jobs.BackgroundRunner
	scheduler    *jobs.Scheduler
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	otelShutdown := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: "linkpulse",
		Environment: cfg.Environment,
		Version:     cfg.Version,
	})

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	theDB := pg.DB()

	// A dead shared tier is a degraded cache, not a dead service.
	shared, err := redis.NewSharedCache(log)
	if err != nil {
		log.Warn("shared click cache unavailable, hot tier only", "error", err)
		shared = nil
	}

	// Repos
	clickRepo := repos.NewClickEventRepo(theDB, log)
	saleRepo := repos.NewSaleEventRepo(theDB, log)
	attrRepo := repos.NewAttributionRepo(theDB, log)
	postRepo := repos.NewContentPostRepo(theDB, log)
	linkRepo := repos.NewTrackedLinkRepo(theDB, log)
	weightsRepo := repos.NewScoringWeightsRepo(theDB, log)

	// Scoring pipeline
	weights, err := weightsRepo.LoadLatest(context.Background(), nil)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("load scoring weights: %w", err)
	}
	model := scoring.NewModel(weights)
	scorer := scoring.NewScorer(log, model)
	trainer := training.NewTrainer(log, model, weightsRepo, training.Config{
		LearningRate: cfg.LearningRate,
		RetrainEvery: cfg.RetrainEvery,
		MinSamples:   cfg.MinSamples,
	})

	clickCache := cache.NewTieredClickCache(log, shared, cfg.AttributionWindow, cfg.HotCacheCapPerUser)
	learner := insights.NewLearner(log, insights.Config{
		Retention: cfg.InsightRetention,
		MaxEvents: cfg.InsightMaxEvents,
	})
	engine := correlation.NewEngine(log, clickRepo, postRepo, attrRepo, clickCache, scorer, model, trainer, correlation.Config{
		AttributionWindow:   cfg.AttributionWindow,
		AutoAcceptThreshold: cfg.AutoAcceptThreshold,
		ConfidenceFloor:     cfg.ConfidenceFloor,
		ContentThreshold:    cfg.ContentThreshold,
		ContentCeiling:      cfg.ContentCeiling,
		CandidateLimit:      cfg.CandidateLimit,
	})

	runner := jobs.NewBackgroundRunner(log, int64(cfg.BackgroundWorkers))
	scheduler := jobs.NewScheduler(log, trainer, learner)

	// Services
	attribution := services.NewAttributionService(theDB, log, clickRepo, saleRepo, attrRepo, linkRepo, postRepo, clickCache, engine, model, trainer, learner, runner)
	insight := services.NewInsightService(log, learner)
	links := services.NewLinkService(theDB, log, linkRepo)

	// HTTP surface
	router := server.NewRouter(server.RouterConfig{
		ClickHandler:       handlers.NewClickHandler(log, attribution, links),
		SaleHandler:        handlers.NewSaleHandler(log, attribution),
		AttributionHandler: handlers.NewAttributionHandler(log, attribution),
		InsightHandler:     handlers.NewInsightHandler(log, insight),
		LinkHandler:        handlers.NewLinkHandler(log, links),
		RequestLog:         middleware.NewRequestLogMiddleware(log),
	})

	return &App{
		Log:          log,
		DB:           theDB,
		Router:       router,
		Cfg:          cfg,
		SharedCache:  shared,
		ClickCache:   clickCache,
		Model:        model,
		Trainer:      trainer,
		Learner:      learner,
		Engine:       engine,
		Attribution:  attribution,
		Insight:      insight,
		Links:        links,
		runner:       runner,
		scheduler:    scheduler,
		otelShutdown: otelShutdown,
	}, nil
}

func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if err := a.scheduler.Start(ctx); err != nil {
		a.Log.Warn("scheduler start failed", "error", err)
	}
}

func (a *App) Run(addr string) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Router.Run(addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if a.runner != nil {
		a.runner.Close()
	}
	if a.SharedCache != nil {
		if err := a.SharedCache.Close(); err != nil {
			a.Log.Warn("shared cache close failed", "error", err)
		}
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
