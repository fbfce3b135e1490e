package repos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/linkpulse/linkpulse-backend/internal/pkg/logger"
	"github.com/linkpulse/linkpulse-backend/internal/types"
)

// ScoringWeightsRepo persists learned model snapshots so restarts
// resume from the latest trained state. One row per version.
type ScoringWeightsRepo interface {
	LoadLatest(ctx context.Context, tx *gorm.DB) (*types.ScoringWeights, error)
	Save(ctx context.Context, tx *gorm.DB, weights *types.ScoringWeights) error
}

type scoringWeightsRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewScoringWeightsRepo(db *gorm.DB, baseLog *logger.Logger) ScoringWeightsRepo {
	return &scoringWeightsRepo{db: db, log: baseLog.With("repo", "ScoringWeightsRepo")}
}

// LoadLatest returns the most recent snapshot, or the untrained
// defaults when none has been saved yet.
func (r *scoringWeightsRepo) LoadLatest(ctx context.Context, tx *gorm.DB) (*types.ScoringWeights, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var rec types.ScoringWeightsRecord
	err := transaction.WithContext(ctx).
		Order("created_at DESC").
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return types.DefaultScoringWeights(), nil
	}
	if err != nil {
		return nil, err
	}

	decay := map[types.Platform]float64{}
	if len(rec.PlatformDecay) > 0 {
		if err := json.Unmarshal(rec.PlatformDecay, &decay); err != nil {
			r.log.Warn("decode platform decay failed, using defaults", "version", rec.Version, "error", err)
			decay = map[types.Platform]float64{}
		}
	}

	return &types.ScoringWeights{
		Version:           rec.Version,
		IPWeight:          rec.IPWeight,
		TrackerWeight:     rec.TrackerWeight,
		FingerprintWeight: rec.FingerprintWeight,
		GeoWeight:         rec.GeoWeight,
		TimeWeight:        rec.TimeWeight,
		MultiSignalBonus:  rec.MultiSignalBonus,
		PlatformDecay:     decay,
		SampleCount:       rec.SampleCount,
		UpdatedAt:         rec.CreatedAt,
	}, nil
}

func (r *scoringWeightsRepo) Save(ctx context.Context, tx *gorm.DB, weights *types.ScoringWeights) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	decay, err := json.Marshal(weights.PlatformDecay)
	if err != nil {
		return fmt.Errorf("encode platform decay: %w", err)
	}
	rec := types.ScoringWeightsRecord{
		Version:           weights.Version,
		IPWeight:          weights.IPWeight,
		TrackerWeight:     weights.TrackerWeight,
		FingerprintWeight: weights.FingerprintWeight,
		GeoWeight:         weights.GeoWeight,
		TimeWeight:        weights.TimeWeight,
		MultiSignalBonus:  weights.MultiSignalBonus,
		PlatformDecay:     decay,
		SampleCount:       weights.SampleCount,
		CreatedAt:         time.Now().UTC(),
	}
	return transaction.WithContext(ctx).Create(&rec).Error
}
