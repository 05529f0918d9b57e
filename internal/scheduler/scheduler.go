package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/keepalive9s/taobao/internal/domain"
)

const defaultBatchSize = 100

// TaskQueue — доступ к task'ам, ожидающим запуска.
type TaskQueue interface {
	// ListDue возвращает waiting task'и со StartTime <= now, старые первыми.
	ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Task, error)
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
}

// Publisher публикует job.start.
type Publisher interface {
	PublishJobStart(ctx context.Context, taskID uuid.UUID) error
}

// Scheduler переводит наступившие task'и в очередь.
type Scheduler struct {
	tasks     TaskQueue
	publisher Publisher
	leader    Leader
	logger    *slog.Logger
	batchSize int
	now       func() time.Time
}

// Config — конфигурация Scheduler.
type Config struct {
	Tasks     TaskQueue
	Publisher Publisher

	// Leader — лидерство между репликами. nil — тикает всегда.
	Leader Leader

	Logger    *slog.Logger
	BatchSize int // task'ов за один тик (default: 100)
}

// New создаёт новый Scheduler.
func New(cfg Config) *Scheduler {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		tasks:     cfg.Tasks,
		publisher: cfg.Publisher,
		leader:    cfg.Leader,
		logger:    logger,
		batchSize: batchSize,
		now:       time.Now,
	}
}

// Tick выполняет один тик: waiting → queued → job.start.
//
// Если публикация не удалась, task возвращается в waiting и будет
// подобран следующим тиком. Ошибка одного task'а не блокирует остальные.
func (s *Scheduler) Tick(ctx context.Context) error {
	due, err := s.tasks.ListDue(ctx, s.now(), s.batchSize)
	if err != nil {
		return fmt.Errorf("list due tasks: %w", err)
	}
	if len(due) == 0 {
		return nil
	}

	var queued int
	for i := range due {
		if err := s.Enqueue(ctx, &due[i]); err != nil {
			s.logger.Error("failed to enqueue task",
				"task_id", due[i].ID,
				"owner", due[i].Owner,
				"error", err,
			)
			continue
		}
		queued++
	}

	s.logger.Info("scheduler tick completed", "due", len(due), "queued", queued)
	return nil
}

// Enqueue переводит task в queued и публикует job.start.
// При ошибке публикации task возвращается в waiting.
func (s *Scheduler) Enqueue(ctx context.Context, task *domain.Task) error {
	if err := s.tasks.SetStatus(ctx, task.ID, domain.StatusQueued); err != nil {
		return fmt.Errorf("mark queued: %w", err)
	}

	if err := s.publisher.PublishJobStart(ctx, task.ID); err != nil {
		if rerr := s.tasks.SetStatus(ctx, task.ID, domain.StatusWaiting); rerr != nil {
			s.logger.Error("failed to return task to waiting", "task_id", task.ID, "error", rerr)
		}
		return fmt.Errorf("publish job.start: %w", err)
	}

	s.logger.Debug("task queued", "task_id", task.ID, "start_time", task.StartTime)
	return nil
}
