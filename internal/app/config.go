package app

import (
	"time"

	"github.com/linkpulse/linkpulse-backend/internal/pkg/logger"
	"github.com/linkpulse/linkpulse-backend/internal/utils"
)

type Config struct {
	Port        string
	Environment string
	Version     string

	AttributionWindow   time.Duration
	AutoAcceptThreshold float64
	ConfidenceFloor     float64
	ContentThreshold    float64
	ContentCeiling      float64
	CandidateLimit      int

	LearningRate float64
	RetrainEvery int
	MinSamples   int

	HotCacheCapPerUser int
	BackgroundWorkers  int

	InsightRetention time.Duration
	InsightMaxEvents int
}

func LoadConfig(log *logger.Logger) Config {
	return Config{
		Port:        utils.GetEnv("PORT", "8080", log),
		Environment: utils.GetEnv("APP_ENV", "development", log),
		Version:     utils.GetEnv("APP_VERSION", "dev", log),

		AttributionWindow:   utils.GetEnvAsDuration("ATTRIBUTION_WINDOW", 24*time.Hour, log),
		AutoAcceptThreshold: utils.GetEnvAsFloat("AUTO_ACCEPT_THRESHOLD", 0.75, log),
		ConfidenceFloor:     utils.GetEnvAsFloat("CONFIDENCE_FLOOR", 0.50, log),
		ContentThreshold:    utils.GetEnvAsFloat("CONTENT_MATCH_THRESHOLD", 0.80, log),
		ContentCeiling:      utils.GetEnvAsFloat("CONTENT_CONFIDENCE_CEILING", 0.85, log),
		CandidateLimit:      utils.GetEnvAsInt("CANDIDATE_LIMIT", 200, log),

		LearningRate: utils.GetEnvAsFloat("LEARNING_RATE", 0.01, log),
		RetrainEvery: utils.GetEnvAsInt("RETRAIN_EVERY", 10, log),
		MinSamples:   utils.GetEnvAsInt("MIN_TRAINING_SAMPLES", 10, log),

		HotCacheCapPerUser: utils.GetEnvAsInt("HOT_CACHE_CAP_PER_USER", 1000, log),
		BackgroundWorkers:  utils.GetEnvAsInt("BACKGROUND_WORKERS", 8, log),

		InsightRetention: utils.GetEnvAsDuration("INSIGHT_RETENTION", 90*24*time.Hour, log),
		InsightMaxEvents: utils.GetEnvAsInt("INSIGHT_MAX_EVENTS", 100_000, log),
	}
}
