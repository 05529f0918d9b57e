package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
)

// Run вызывает Tick по расписанию spec до отмены ctx.
//
// Тик, который не успел закончиться к следующему срабатыванию, не дублируется.
// При заданном Leader тикает только лидер.
func (s *Scheduler) Run(ctx context.Context, spec string) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	if _, err := c.AddFunc(spec, func() { s.fire(ctx) }); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	s.logger.Info("scheduler started", "spec", spec, "batch_size", s.batchSize)
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()

	s.logger.Info("scheduler stopped")
	return nil
}

func (s *Scheduler) fire(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	if s.leader != nil {
		lead, err := s.leader.TryLead(ctx)
		if err != nil {
			s.logger.Error("leader election failed", "error", err)
			return
		}
		if !lead {
			return
		}
	}

	if err := s.Tick(ctx); err != nil {
		s.logger.Error("scheduler tick failed", "error", err)
	}
}
