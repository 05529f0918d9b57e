package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/keepalive9s/taobao/internal/domain"
	"github.com/keepalive9s/taobao/internal/mq"
	"github.com/keepalive9s/taobao/internal/telemetry"
)

// Start запускает демон: consumer job.start (если есть Conn) и polling queued task'ов.
func (o *Orchestrator) Start(ctx context.Context) error {
	pool, err := ants.NewPool(o.maxJobs, ants.WithPanicHandler(func(p any) {
		o.logger.Error("job panicked", "panic", p)
	}))
	if err != nil {
		return fmt.Errorf("create job pool: %w", err)
	}
	o.pool = pool

	ctx, cancel := context.WithCancel(ctx)
	o.cancelFunc = cancel

	o.logger.Info("starting orchestrator",
		"max_jobs", o.maxJobs,
		"poll_interval", o.pollInterval,
		"batch_size", o.batchSize,
	)

	if o.conn != nil {
		o.consumer = mq.NewConsumer(o.conn, o.logger, mq.ConsumerConfig{
			Queue:    mq.QueueJobsStart,
			Handler:  o.handleJobStart,
			Prefetch: o.maxJobs,
		})

		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			if err := o.consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				o.logger.Error("job consumer error", "error", err)
			}
		}()
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.pollLoop(ctx)
	}()

	o.logger.Info("orchestrator started")
	return nil
}

// Stop останавливает приём job'ов и ждёт выполняющиеся.
// Отмена ctx доходит до Worker'ов: они останавливаются, возвращают товары и финализируются.
func (o *Orchestrator) Stop() {
	o.stoppedMu.Lock()
	o.stopped = true
	o.stoppedMu.Unlock()

	o.logger.Info("stopping orchestrator...", "active_jobs", o.ActiveJobs())

	if o.cancelFunc != nil {
		o.cancelFunc()
	}
	o.wg.Wait()

	if o.pool != nil {
		if err := o.pool.ReleaseTimeout(defaultDrainTimeout); err != nil {
			o.logger.Error("jobs did not drain in time", "error", err)
		}
	}

	o.logger.Info("orchestrator stopped")
}

// IsStopped проверяет, остановлен ли Orchestrator.
func (o *Orchestrator) IsStopped() bool {
	o.stoppedMu.RLock()
	defer o.stoppedMu.RUnlock()
	return o.stopped
}

// ActiveJobs возвращает число job'ов, выполняющихся в этом процессе.
func (o *Orchestrator) ActiveJobs() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.activeJobs)
}

// handleJobStart обрабатывает job.start. Битый payload уходит в DLQ.
func (o *Orchestrator) handleJobStart(ctx context.Context, msg *mq.Message) error {
	payload, err := mq.ParsePayload[mq.JobStartPayload](msg)
	if err != nil {
		return fmt.Errorf("%w: parse job.start payload: %w", mq.ErrReject, err)
	}
	if payload.TaskID == uuid.Nil {
		return fmt.Errorf("%w: job.start without task_id", mq.ErrReject)
	}

	telemetry.FromContext(ctx).Debug("received job.start", "task_id", payload.TaskID)

	err = o.dispatch(ctx, payload.TaskID)
	if errors.Is(err, ErrJobAlreadyActive) {
		return nil
	}
	return err
}

// pollLoop подбирает queued task'и, для которых job.start потерялся.
func (o *Orchestrator) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(o.pollInterval)
	defer ticker.Stop()

	o.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.poll(ctx)
		}
	}
}

func (o *Orchestrator) poll(ctx context.Context) {
	tasks, err := o.tasks.ListQueued(ctx, o.batchSize)
	if err != nil {
		o.logger.Error("failed to list queued tasks", "error", err)
		return
	}

	for i := range tasks {
		err := o.dispatch(ctx, tasks[i].ID)
		if err != nil && !errors.Is(err, ErrJobAlreadyActive) {
			o.logger.Error("failed to dispatch queued task", "task_id", tasks[i].ID, "error", err)
		}
	}
}

// dispatch забирает task из очереди и отдаёт job в пул.
// Submit блокируется, пока все слоты пула заняты.
func (o *Orchestrator) dispatch(ctx context.Context, taskID uuid.UUID) error {
	if o.IsStopped() {
		return ErrOrchestratorStopped
	}
	if !o.markActive(taskID) {
		return ErrJobAlreadyActive
	}

	claimed, err := o.tasks.ClaimQueued(ctx, taskID)
	if err != nil {
		o.unmarkActive(taskID)
		return fmt.Errorf("claim task: %w", err)
	}
	if !claimed {
		o.unmarkActive(taskID)
		o.logger.Debug("task not queued, skipping", "task_id", taskID)
		return nil
	}

	err = o.pool.Submit(func() {
		defer o.unmarkActive(taskID)

		if err := o.RunJob(ctx, taskID); err != nil {
			telemetry.JobsTotal.WithLabelValues(telemetry.ResultFailure).Inc()
			o.logger.Error("job failed", "task_id", taskID, "error", err)
		}
	})
	if err != nil {
		o.unmarkActive(taskID)
		if serr := o.tasks.SetStatus(ctx, taskID, domain.StatusQueued); serr != nil {
			o.logger.Error("failed to requeue task", "task_id", taskID, "error", serr)
		}
		return fmt.Errorf("submit job: %w", err)
	}
	return nil
}

func (o *Orchestrator) markActive(taskID uuid.UUID) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.activeJobs[taskID]; ok {
		return false
	}
	o.activeJobs[taskID] = struct{}{}
	return true
}

func (o *Orchestrator) unmarkActive(taskID uuid.UUID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.activeJobs, taskID)
}
