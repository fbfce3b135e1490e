package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron"

	"github.com/linkpulse/linkpulse-backend/internal/insights"
	"github.com/linkpulse/linkpulse-backend/internal/pkg/logger"
	"github.com/linkpulse/linkpulse-backend/internal/training"
)

// Scheduler runs the periodic maintenance jobs: model retrain and
// insight retention pruning. Both are discrete and idempotent; the
// trainer's own guard keeps retrains from overlapping.
type Scheduler struct {
	log     *logger.Logger
	cron    *cron.Cron
	trainer *training.Trainer
	learner *insights.Learner
}

func NewScheduler(baseLog *logger.Logger, trainer *training.Trainer, learner *insights.Learner) *Scheduler {
	return &Scheduler{
		log:     baseLog.With("component", "Scheduler"),
		cron:    cron.New(),
		trainer: trainer,
		learner: learner,
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	if err := s.cron.AddFunc("@every 10m", func() {
		if s.trainer.Retrain(ctx) {
			s.log.Debug("scheduled retrain completed")
		}
	}); err != nil {
		return err
	}
	if err := s.cron.AddFunc("@hourly", func() {
		if n := s.learner.Prune(time.Now()); n > 0 {
			s.log.Info("insight retention prune completed", "pruned", n)
		}
	}); err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info("maintenance jobs scheduled")
	return nil
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}
