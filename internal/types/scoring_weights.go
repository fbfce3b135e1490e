package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ScoringWeights is one immutable snapshot of the learned model. The
// trainer builds a new snapshot and publishes it atomically; scorers
// never see a half-updated vector.
type ScoringWeights struct {
	Version           string               `json:"version"`
	IPWeight          float64              `json:"ip_weight"`
	TrackerWeight     float64              `json:"tracker_weight"`
	FingerprintWeight float64              `json:"fingerprint_weight"`
	GeoWeight         float64              `json:"geo_weight"`
	TimeWeight        float64              `json:"time_weight"`
	MultiSignalBonus  float64              `json:"multi_signal_bonus"`
	PlatformDecay     map[Platform]float64 `json:"platform_decay"`
	SampleCount       int                  `json:"sample_count"`
	UpdatedAt         time.Time            `json:"updated_at"`
}

// DefaultScoringWeights returns the untrained baseline model.
func DefaultScoringWeights() *ScoringWeights {
	return &ScoringWeights{
		Version:           "v1",
		IPWeight:          0.50,
		TrackerWeight:     0.35,
		FingerprintWeight: 0.25,
		GeoWeight:         0.15,
		TimeWeight:        0.10,
		MultiSignalBonus:  0.10,
		PlatformDecay:     map[Platform]float64{},
		UpdatedAt:         time.Now().UTC(),
	}
}

// DecayFor returns the per-platform decay constant, falling back to the
// platform baseline when no learned value exists yet.
func (w *ScoringWeights) DecayFor(p Platform) float64 {
	if w.PlatformDecay != nil {
		if lambda, ok := w.PlatformDecay[p]; ok && lambda > 0 {
			return lambda
		}
	}
	return DefaultDecay(p)
}

// SignalSum is the sum of the five signal weights. After every training
// pass this is 1.0 within floating-point tolerance.
func (w *ScoringWeights) SignalSum() float64 {
	return w.IPWeight + w.TrackerWeight + w.FingerprintWeight + w.GeoWeight + w.TimeWeight
}

// Clone deep-copies the snapshot so the trainer can mutate a scratch
// copy without touching the published one.
func (w *ScoringWeights) Clone() *ScoringWeights {
	out := *w
	out.PlatformDecay = make(map[Platform]float64, len(w.PlatformDecay))
	for k, v := range w.PlatformDecay {
		out.PlatformDecay[k] = v
	}
	return &out
}

// ScoringWeightsRecord is the persisted form of a snapshot, one row per
// version so restarts resume from the latest learned state.
type ScoringWeightsRecord struct {
	ID                uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Version           string         `gorm:"size:40;not null;index" json:"version"`
	IPWeight          float64        `gorm:"not null" json:"ip_weight"`
	TrackerWeight     float64        `gorm:"not null" json:"tracker_weight"`
	FingerprintWeight float64        `gorm:"not null" json:"fingerprint_weight"`
	GeoWeight         float64        `gorm:"not null" json:"geo_weight"`
	TimeWeight        float64        `gorm:"not null" json:"time_weight"`
	MultiSignalBonus  float64        `gorm:"not null" json:"multi_signal_bonus"`
	PlatformDecay     datatypes.JSON `gorm:"type:jsonb" json:"platform_decay"`
	SampleCount       int            `gorm:"not null;default:0" json:"sample_count"`
	CreatedAt         time.Time      `gorm:"not null;default:now()" json:"created_at"`
}

func (ScoringWeightsRecord) TableName() string { return "scoring_weights" }
