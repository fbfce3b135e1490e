package jobs

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/linkpulse/linkpulse-backend/internal/pkg/logger"
)

// BackgroundRunner executes post-response side effects (cache writes,
// learner feeds) off the request path with bounded concurrency. Submit
// never blocks: when all slots are busy the task is dropped and logged,
// preserving the "never block or fail the primary request" contract.
// Panics inside a task are contained and logged.
type BackgroundRunner struct {
	log     *logger.Logger
	sem     *semaphore.Weighted
	ctx     context.Context
	cancel  context.CancelFunc
	dropped atomic.Uint64
}

func NewBackgroundRunner(baseLog *logger.Logger, maxConcurrent int64) *BackgroundRunner {
	if maxConcurrent <= 0 {
		maxConcurrent = 16
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &BackgroundRunner{
		log:    baseLog.With("component", "BackgroundRunner"),
		sem:    semaphore.NewWeighted(maxConcurrent),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Submit schedules fn on a free slot. Returns false when the runner is
// saturated or shut down and the task was dropped.
func (r *BackgroundRunner) Submit(name string, fn func(ctx context.Context)) bool {
	if r.ctx.Err() != nil {
		return false
	}
	if !r.sem.TryAcquire(1) {
		r.dropped.Add(1)
		r.log.Warn("background task dropped, runner saturated", "task", name)
		return false
	}
	go func() {
		defer r.sem.Release(1)
		defer func() {
			if rec := recover(); rec != nil {
				r.log.Error("background task panic", "task", name, "panic", rec)
			}
		}()
		fn(r.ctx)
	}()
	return true
}

// Dropped reports how many tasks were shed since startup.
func (r *BackgroundRunner) Dropped() uint64 { return r.dropped.Load() }

func (r *BackgroundRunner) Close() { r.cancel() }
