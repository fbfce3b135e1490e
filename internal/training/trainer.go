package training

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/linkpulse/linkpulse-backend/internal/pkg/logger"
	"github.com/linkpulse/linkpulse-backend/internal/repos"
	"github.com/linkpulse/linkpulse-backend/internal/scoring"
	"github.com/linkpulse/linkpulse-backend/internal/types"
)

// Sample is one observed outcome the trainer learns from. Ground-truth
// samples come from deterministic click->sale links and carry full
// confidence; feedback samples come from user confirm/reject.
type Sample struct {
	SaleID         uuid.UUID
	Predicted      float64
	Outcome        bool
	Features       types.MatchBreakdown
	Platform       types.Platform
	TimeDeltaHours float64
	GroundTruth    bool
	RecordedAt     time.Time
}

type Config struct {
	LearningRate    float64 // per-feedback gradient step
	RetrainEvery    int     // retrain after this many new samples
	MinSamples      int     // never retrain below this total
	DecaySmoothing  float64 // share of the old lambda kept per update
	TimingWindow    int     // time-to-convert observations kept per platform
	MaxSampleBuffer int
}

func DefaultConfig() Config {
	return Config{
		LearningRate:    0.01,
		RetrainEvery:    10,
		MinSamples:      10,
		DecaySmoothing:  0.90,
		TimingWindow:    200,
		MaxSampleBuffer: 5000,
	}
}

// Trainer keeps the scoring weights aligned with observed ground truth.
// It owns a working copy of the weights; the published snapshot in the
// scoring model is only replaced on retrain, so scorer reads never
// block on training.
type Trainer struct {
	log   *logger.Logger
	model *scoring.Model
	store repos.ScoringWeightsRepo
	cfg   Config

	mu               sync.Mutex
	working          *types.ScoringWeights
	samples          []Sample
	sinceRetrain     int
	timingByPlatform map[types.Platform][]float64

	retraining atomic.Bool
}

func NewTrainer(baseLog *logger.Logger, model *scoring.Model, store repos.ScoringWeightsRepo, cfg Config) *Trainer {
	if cfg.LearningRate <= 0 {
		cfg.LearningRate = 0.01
	}
	if cfg.RetrainEvery <= 0 {
		cfg.RetrainEvery = 10
	}
	if cfg.MinSamples <= 0 {
		cfg.MinSamples = 10
	}
	if cfg.DecaySmoothing <= 0 || cfg.DecaySmoothing >= 1 {
		cfg.DecaySmoothing = 0.90
	}
	if cfg.TimingWindow <= 0 {
		cfg.TimingWindow = 200
	}
	if cfg.MaxSampleBuffer <= 0 {
		cfg.MaxSampleBuffer = 5000
	}
	return &Trainer{
		log:              baseLog.With("component", "Trainer"),
		model:            model,
		store:            store,
		cfg:              cfg,
		working:          model.Current().Clone(),
		timingByPlatform: make(map[types.Platform][]float64),
	}
}

// RecordGroundTruth logs a deterministic click->sale link, the
// strongest training signal. The observation feeds both the sample
// buffer (confidence fixed at 1.0) and the per-platform time-to-convert
// distribution behind the decay constants.
func (t *Trainer) RecordGroundTruth(ctx context.Context, click *types.ClickEvent, sale *types.SaleEvent, features types.MatchBreakdown) {
	if click == nil || sale == nil {
		return
	}
	deltaHours := sale.OccurredAt.Sub(click.ClickedAt).Hours()
	if deltaHours < 0 {
		return
	}

	t.mu.Lock()
	t.appendSampleLocked(Sample{
		SaleID:         sale.ID,
		Predicted:      1.0,
		Outcome:        true,
		Features:       features,
		Platform:       click.Platform,
		TimeDeltaHours: deltaHours,
		GroundTruth:    true,
		RecordedAt:     time.Now().UTC(),
	})
	t.recordTimingLocked(click.Platform, deltaHours)
	shouldRetrain := t.retrainDueLocked()
	t.mu.Unlock()

	if shouldRetrain {
		t.Retrain(ctx)
	}
}

// ProvideFeedback consumes a user confirm/reject for a prediction. The
// prediction error drives a small gradient step on the weights of the
// signals that fired, followed by renormalization so the five signal
// weights keep summing to 1.0.
func (t *Trainer) ProvideFeedback(ctx context.Context, saleID uuid.UUID, predicted float64, confirmed bool, features types.MatchBreakdown, platform types.Platform, timeDeltaHours float64) {
	actual := 0.0
	if confirmed {
		actual = 1.0
	}
	errTerm := actual - predicted

	t.mu.Lock()
	step := t.cfg.LearningRate * errTerm
	if features.IPMatch {
		t.working.IPWeight = clampWeight(t.working.IPWeight + step)
	}
	if features.TrackerMatch {
		t.working.TrackerWeight = clampWeight(t.working.TrackerWeight + step)
	}
	if features.FingerprintMatch {
		t.working.FingerprintWeight = clampWeight(t.working.FingerprintWeight + step)
	}
	if features.GeoScore > 0 {
		t.working.GeoWeight = clampWeight(t.working.GeoWeight + step*features.GeoScore)
	}
	if features.TimeDecay > 0 {
		t.working.TimeWeight = clampWeight(t.working.TimeWeight + step*features.TimeDecay)
	}
	normalizeSignalWeights(t.working)

	t.appendSampleLocked(Sample{
		SaleID:         saleID,
		Predicted:      predicted,
		Outcome:        confirmed,
		Features:       features,
		Platform:       platform,
		TimeDeltaHours: timeDeltaHours,
		RecordedAt:     time.Now().UTC(),
	})
	if confirmed && timeDeltaHours >= 0 {
		t.recordTimingLocked(platform, timeDeltaHours)
	}
	shouldRetrain := t.retrainDueLocked()
	t.mu.Unlock()

	if shouldRetrain {
		t.Retrain(ctx)
	}
}

// Retrain publishes a fresh snapshot from the working weights:
// recomputes per-platform decay constants, bumps the version, swaps the
// scoring model pointer, and persists the result. Runs are discrete and
// non-overlapping; a second caller while one is in flight is a no-op.
func (t *Trainer) Retrain(ctx context.Context) bool {
	if !t.retraining.CompareAndSwap(false, true) {
		return false
	}
	defer t.retraining.Store(false)

	t.mu.Lock()
	if len(t.samples) < t.cfg.MinSamples {
		t.mu.Unlock()
		return false
	}
	t.updateDecayLocked()
	normalizeSignalWeights(t.working)
	next := t.working.Clone()
	next.Version = bumpVersion(t.working.Version)
	next.SampleCount = len(t.samples)
	next.UpdatedAt = time.Now().UTC()
	t.working = next.Clone()
	t.sinceRetrain = 0
	t.mu.Unlock()

	t.model.Publish(next)
	if t.store != nil {
		if err := t.store.Save(ctx, nil, next); err != nil {
			t.log.Warn("persist weights failed", "version", next.Version, "error", err)
		}
	}
	t.log.Info("weights retrained", "version", next.Version, "samples", next.SampleCount)
	return true
}

// IsLearning reports whether a retrain pass is currently running.
func (t *Trainer) IsLearning() bool { return t.retraining.Load() }

func (t *Trainer) SampleCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.samples)
}

func (t *Trainer) appendSampleLocked(s Sample) {
	t.samples = append(t.samples, s)
	if len(t.samples) > t.cfg.MaxSampleBuffer {
		t.samples = t.samples[len(t.samples)-t.cfg.MaxSampleBuffer:]
	}
	t.sinceRetrain++
}

func (t *Trainer) recordTimingLocked(p types.Platform, deltaHours float64) {
	obs := append(t.timingByPlatform[p], deltaHours)
	if len(obs) > t.cfg.TimingWindow {
		obs = obs[len(obs)-t.cfg.TimingWindow:]
	}
	t.timingByPlatform[p] = obs
}

func (t *Trainer) retrainDueLocked() bool {
	return len(t.samples) >= t.cfg.MinSamples && t.sinceRetrain >= t.cfg.RetrainEvery
}

// updateDecayLocked re-estimates each platform's decay constant from
// the spread of its observed time-to-convert: purchases clustering
// tightly in time justify fast decay, a wide spread justifies slow
// decay. Exponential smoothing keeps small samples from causing
// abrupt swings.
func (t *Trainer) updateDecayLocked() {
	for platform, obs := range t.timingByPlatform {
		if len(obs) < 3 {
			continue
		}
		sigma := stddev(obs)
		estimate := clampDecay(1.0 / (sigma + 0.5))
		old := t.working.DecayFor(platform)
		t.working.PlatformDecay[platform] = t.cfg.DecaySmoothing*old + (1-t.cfg.DecaySmoothing)*estimate
	}
}

func normalizeSignalWeights(w *types.ScoringWeights) {
	sum := w.SignalSum()
	if sum <= 0 {
		return
	}
	w.IPWeight /= sum
	w.TrackerWeight /= sum
	w.FingerprintWeight /= sum
	w.GeoWeight /= sum
	w.TimeWeight /= sum
}

func clampWeight(v float64) float64 {
	return math.Min(1.0, math.Max(0.001, v))
}

func clampDecay(v float64) float64 {
	return math.Min(2.0, math.Max(0.01, v))
}

func stddev(obs []float64) float64 {
	mean := 0.0
	for _, v := range obs {
		mean += v
	}
	mean /= float64(len(obs))
	variance := 0.0
	for _, v := range obs {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(obs))
	return math.Sqrt(variance)
}

func bumpVersion(v string) string {
	trimmed := strings.TrimPrefix(strings.TrimSpace(v), "v")
	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return "v2"
	}
	return fmt.Sprintf("v%d", n+1)
}
