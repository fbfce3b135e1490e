package scoring

import (
	"sync/atomic"

	"github.com/linkpulse/linkpulse-backend/internal/types"
)

// Model holds the live ScoringWeights snapshot. Scorers read the
// current pointer without locking; the trainer publishes a fresh
// immutable snapshot after each retrain.
type Model struct {
	current atomic.Pointer[types.ScoringWeights]
}

func NewModel(initial *types.ScoringWeights) *Model {
	if initial == nil {
		initial = types.DefaultScoringWeights()
	}
	m := &Model{}
	m.current.Store(initial)
	return m
}

// Current returns the live snapshot. Callers must treat it as
// read-only.
func (m *Model) Current() *types.ScoringWeights {
	return m.current.Load()
}

// Publish swaps in a new snapshot. The old one stays valid for readers
// that already hold it.
func (m *Model) Publish(w *types.ScoringWeights) {
	if w == nil {
		return
	}
	m.current.Store(w)
}
