package scoring

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/linkpulse/linkpulse-backend/internal/pkg/logger"
	"github.com/linkpulse/linkpulse-backend/internal/types"
)

func newTestScorer() *Scorer {
	return NewScorer(logger.NewNop(), NewModel(types.DefaultScoringWeights()))
}

func baseClick(at time.Time) *types.ClickEvent {
	return &types.ClickEvent{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		Platform:  types.PlatformInstagram,
		ClickedAt: at,
	}
}

func baseSale(at time.Time) *types.SaleEvent {
	return &types.SaleEvent{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		AmountCents: 5000,
		OccurredAt:  at,
	}
}

func TestScore_SignalCombinations(t *testing.T) {
	s := newTestScorer()
	now := time.Now().UTC()

	tests := []struct {
		name     string
		mutate   func(c *types.ClickEvent, sa *types.SaleEvent)
		wantMin  float64
		wantMax  float64
		wantIP   bool
		wantTrk  bool
		wantFp   bool
		wantGeo  float64
		wantMult bool
	}{
		{
			name:    "no signals, fresh click",
			mutate:  func(c *types.ClickEvent, sa *types.SaleEvent) {},
			wantMin: 0.09, wantMax: 0.11, // time decay only
		},
		{
			name: "ip and tracker within minutes",
			mutate: func(c *types.ClickEvent, sa *types.SaleEvent) {
				c.IPAddress, sa.CustomerIP = "203.0.113.9", "203.0.113.9"
				c.TrackerID, sa.TrackerID = "trk-1", "trk-1"
			},
			wantMin: 0.75, wantMax: 1.0,
			wantIP:  true, wantTrk: true,
		},
		{
			name: "country match only earns partial geo credit",
			mutate: func(c *types.ClickEvent, sa *types.SaleEvent) {
				c.Country, sa.Country = "US", "US"
			},
			wantMin: 0.15, wantMax: 0.20,
			wantGeo: 0.5,
		},
		{
			name: "country plus city earns full geo credit",
			mutate: func(c *types.ClickEvent, sa *types.SaleEvent) {
				c.Country, sa.Country = "US", "us"
				c.City, sa.City = "Austin", "austin"
			},
			wantMin: 0.24, wantMax: 0.26,
			wantGeo: 1.0,
		},
		{
			name: "all signals clamp to one",
			mutate: func(c *types.ClickEvent, sa *types.SaleEvent) {
				c.IPAddress, sa.CustomerIP = "203.0.113.9", "203.0.113.9"
				c.TrackerID, sa.TrackerID = "trk-1", "trk-1"
				c.Fingerprint, sa.Fingerprint = "fp-1", "fp-1"
				c.Country, sa.Country = "US", "US"
				c.City, sa.City = "Austin", "Austin"
			},
			wantMin: 1.0, wantMax: 1.0,
			wantIP:  true, wantTrk: true, wantFp: true,
			wantGeo: 1.0, wantMult: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			click := baseClick(now.Add(-2 * time.Minute))
			sale := baseSale(now)
			tt.mutate(click, sale)

			score, breakdown, err := s.Score(click, sale)
			if err != nil {
				t.Fatalf("Score: %v", err)
			}
			if score < tt.wantMin || score > tt.wantMax {
				t.Fatalf("score = %.4f, want in [%.4f, %.4f]", score, tt.wantMin, tt.wantMax)
			}
			if breakdown.IPMatch != tt.wantIP || breakdown.TrackerMatch != tt.wantTrk || breakdown.FingerprintMatch != tt.wantFp {
				t.Fatalf("breakdown signals = %+v", breakdown)
			}
			if breakdown.GeoScore != tt.wantGeo {
				t.Fatalf("geo score = %.2f, want %.2f", breakdown.GeoScore, tt.wantGeo)
			}
			if breakdown.MultiSignal != tt.wantMult {
				t.Fatalf("multi-signal = %v, want %v", breakdown.MultiSignal, tt.wantMult)
			}
		})
	}
}

func TestScore_AlwaysInUnitInterval(t *testing.T) {
	s := newTestScorer()
	now := time.Now().UTC()

	deltas := []time.Duration{0, time.Minute, time.Hour, 6 * time.Hour, 23 * time.Hour, 200 * time.Hour}
	for _, delta := range deltas {
		click := baseClick(now.Add(-delta))
		sale := baseSale(now)
		click.IPAddress, sale.CustomerIP = "203.0.113.9", "203.0.113.9"
		click.TrackerID, sale.TrackerID = "trk-1", "trk-1"
		click.Fingerprint, sale.Fingerprint = "fp", "fp"
		click.Country, sale.Country = "US", "US"

		score, _, err := s.Score(click, sale)
		if err != nil {
			t.Fatalf("delta %v: %v", delta, err)
		}
		if score < 0 || score > 1 {
			t.Fatalf("delta %v: score %.4f outside [0,1]", delta, score)
		}
	}
}

func TestScore_TimeDecayMonotone(t *testing.T) {
	s := newTestScorer()
	now := time.Now().UTC()

	prev := math.Inf(1)
	for _, delta := range []time.Duration{time.Minute, time.Hour, 4 * time.Hour, 12 * time.Hour} {
		click := baseClick(now.Add(-delta))
		sale := baseSale(now)
		score, breakdown, err := s.Score(click, sale)
		if err != nil {
			t.Fatalf("delta %v: %v", delta, err)
		}
		if score >= prev {
			t.Fatalf("score did not decay: %.4f after %.4f", score, prev)
		}
		if breakdown.TimeDecay <= 0 || breakdown.TimeDecay > 1 {
			t.Fatalf("time decay %.4f outside (0,1]", breakdown.TimeDecay)
		}
		prev = score
	}
}

func TestScore_Validation(t *testing.T) {
	s := newTestScorer()
	now := time.Now().UTC()

	if _, _, err := s.Score(nil, baseSale(now)); err == nil {
		t.Fatal("nil click accepted")
	}
	if _, _, err := s.Score(baseClick(now), nil); err == nil {
		t.Fatal("nil sale accepted")
	}

	// sale before click violates causality
	click := baseClick(now)
	sale := baseSale(now.Add(-time.Minute))
	if _, _, err := s.Score(click, sale); err == nil {
		t.Fatal("sale preceding click accepted")
	}
}

func TestScoreContent_CeilingAndDecay(t *testing.T) {
	s := newTestScorer()
	now := time.Now().UTC()

	post := &types.ContentPost{
		ID:       uuid.New(),
		UserID:   uuid.New(),
		Platform: types.PlatformInstagram,
		PostedAt: now.Add(-time.Minute),
	}
	sale := baseSale(now)

	score, breakdown, err := s.ScoreContent(post, sale, 0.85)
	if err != nil {
		t.Fatalf("ScoreContent: %v", err)
	}
	if !breakdown.ContentBased {
		t.Fatal("content flag not set")
	}
	if score > 0.85 {
		t.Fatalf("score %.4f above ceiling", score)
	}
	if score < 0.80 {
		t.Fatalf("fresh post scored %.4f, want near ceiling", score)
	}

	// an old post decays well below the ceiling
	post.PostedAt = now.Add(-20 * time.Hour)
	old, _, err := s.ScoreContent(post, sale, 0.85)
	if err != nil {
		t.Fatalf("ScoreContent old: %v", err)
	}
	if old >= score {
		t.Fatalf("old post %.4f did not decay below fresh post %.4f", old, score)
	}

	// sale before post violates causality
	post.PostedAt = now.Add(time.Hour)
	if _, _, err := s.ScoreContent(post, sale, 0.85); err == nil {
		t.Fatal("sale preceding post accepted")
	}
}

func TestModel_PublishSwapsSnapshot(t *testing.T) {
	model := NewModel(types.DefaultScoringWeights())
	if got := model.Current().Version; got != "v1" {
		t.Fatalf("initial version = %q", got)
	}

	next := model.Current().Clone()
	next.Version = "v2"
	model.Publish(next)

	if got := model.Current().Version; got != "v2" {
		t.Fatalf("version after publish = %q", got)
	}
}
