package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"golang.org/x/sync/errgroup"

	"github.com/keepalive9s/taobao/internal/domain"
	"github.com/keepalive9s/taobao/internal/mq"
	"github.com/keepalive9s/taobao/internal/telemetry"
	"github.com/keepalive9s/taobao/internal/worker"
)

// Default configuration values.
const (
	defaultPollInterval = 30 * time.Second
	defaultBatchSize    = 100
	defaultMaxJobs      = 8
	defaultDrainTimeout = 5 * time.Minute
)

// TaskStore — хранилище task'ов с операциями, нужными оркестратору.
type TaskStore interface {
	worker.TaskStore

	// SetEndTime меняет только EndTime, не трогая статус.
	SetEndTime(ctx context.Context, id uuid.UUID, end time.Time) error

	// ClaimQueued атомарно переводит task из queued в reading item list.
	// false — task уже забран или не в очереди.
	ClaimQueued(ctx context.Context, id uuid.UUID) (bool, error)

	// ListQueued возвращает queued task'и, старые первыми.
	ListQueued(ctx context.Context, limit int) ([]domain.Task, error)
}

// Orchestrator выполняет job'ы: по два Worker'а на task и одна финализация.
type Orchestrator struct {
	tasks    TaskStore
	catalog  worker.Catalog
	toggler  worker.Toggler
	counter  worker.Counter
	journal  worker.Journal
	backoff  []time.Duration
	pageSize int

	// MQ
	conn     *mq.Connection
	consumer *mq.Consumer

	// Job pool и task'и, которые сейчас выполняются в этом процессе
	pool       *ants.Pool
	maxJobs    int
	activeJobs map[uuid.UUID]struct{}
	mu         sync.Mutex

	// Polling fallback
	pollInterval time.Duration
	batchSize    int

	// Lifecycle
	logger     *slog.Logger
	now        func() time.Time
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	stopped    bool
	stoppedMu  sync.RWMutex
}

// Config — конфигурация Orchestrator.
type Config struct {
	// Ports
	Tasks   TaskStore
	Catalog worker.Catalog
	Toggler worker.Toggler
	Counter worker.Counter
	Journal worker.Journal

	// Backoff — таблица пауз RateController (default: worker.DefaultBackoff).
	Backoff []time.Duration

	// PageSize — размер страницы каталога (default: 200).
	PageSize int

	// Conn — RabbitMQ. nil — только polling.
	Conn *mq.Connection

	// MaxConcurrentJobs — размер пула job'ов (default: 8).
	MaxConcurrentJobs int

	// PollInterval — интервал polling queued task'ов (default: 30s).
	PollInterval time.Duration

	// BatchSize — task'ов за один poll (default: 100).
	BatchSize int

	Logger *slog.Logger
}

// New создаёт новый Orchestrator.
func New(cfg Config) *Orchestrator {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = worker.DefaultPageSize
	}

	backoff := cfg.Backoff
	if len(backoff) == 0 {
		backoff = worker.DefaultBackoff
	}

	maxJobs := cfg.MaxConcurrentJobs
	if maxJobs <= 0 {
		maxJobs = defaultMaxJobs
	}

	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		tasks:        cfg.Tasks,
		catalog:      cfg.Catalog,
		toggler:      cfg.Toggler,
		counter:      cfg.Counter,
		journal:      cfg.Journal,
		backoff:      backoff,
		pageSize:     pageSize,
		conn:         cfg.Conn,
		maxJobs:      maxJobs,
		activeJobs:   make(map[uuid.UUID]struct{}),
		pollInterval: pollInterval,
		batchSize:    batchSize,
		logger:       logger,
		now:          time.Now,
	}
}

// RunJob выполняет job по task'у и возвращается после финализации.
//
// Ошибки до старта воркеров (счётчик, чтение task'а, Count) возвращаются сразу.
// Ошибки Worker'ов остаются в их Result; наружу выходит только ошибка финализации.
func (o *Orchestrator) RunJob(ctx context.Context, taskID uuid.UUID) error {
	started := o.now()
	key := taskID.String()
	logger := telemetry.WithTaskID(o.logger, key)

	if err := o.counter.Reset(ctx, key); err != nil {
		return fmt.Errorf("reset progress counter: %w", err)
	}

	task, err := o.tasks.Get(ctx, taskID)
	if err != nil {
		return fmt.Errorf("get task: %w", err)
	}

	o.note(ctx, logger, task, task.JournalCategory(), "job started")

	total, err := o.catalog.Count(ctx, task.Owner, task.Source)
	if err != nil {
		return fmt.Errorf("count items: %w", err)
	}

	task.MarkReading(total)
	if err := o.tasks.Save(ctx, task); err != nil {
		return fmt.Errorf("save task: %w", err)
	}

	ranges := Partition(total, o.pageSize)
	logger.Info("job started",
		"owner", task.Owner,
		"source", task.Source,
		"total", total,
		"partition_1", ranges[0].String(),
		"partition_2", ranges[1].String(),
	)

	monitor := worker.NewDeadlineMonitor(o.tasks, taskID, &worker.StopSignal{})
	fin := NewFinalizer(len(ranges), func(fctx context.Context) error {
		// ctx отменён — процесс останавливается, окно task'а ещё не закрыто
		return o.finalize(fctx, taskID, started, ctx.Err() != nil, logger)
	})

	results := make([]worker.Result, len(ranges))
	var g errgroup.Group
	for i, pages := range ranges {
		w := worker.New(worker.Config{
			Partition: i + 1,
			Pages:     pages,
			PageSize:  o.pageSize,
			Task:      *task,
			Catalog:   o.catalog,
			Toggler:   o.toggler,
			Tasks:     o.tasks,
			Counter:   o.counter,
			Journal:   o.journal,
			Monitor:   monitor,
			Backoff:   o.backoff,
			Logger:    logger,
		})

		i := i
		g.Go(func() error {
			results[i] = w.Run(ctx)
			// финализация не должна прерываться остановкой процесса
			_, err := fin.Done(context.WithoutCancel(ctx))
			return err
		})
	}

	err = g.Wait()

	for _, r := range results {
		if r.Err != nil {
			logger.Warn("partition ended with error", "partition", r.Partition, "error", r.Err)
		}
	}
	return err
}

// finalize записывает итог job'а. Вызывается ровно один раз через Finalizer.
//
// interrupted — job прерван остановкой процесса. Если EndTime ещё не наступил,
// task возвращается в queued и будет подобран заново; товары к этому моменту уже восстановлены.
func (o *Orchestrator) finalize(ctx context.Context, taskID uuid.UUID, started time.Time, interrupted bool, logger *slog.Logger) error {
	key := taskID.String()

	succeeded, err := o.counter.Read(ctx, key)
	if err != nil {
		return fmt.Errorf("%w: read progress counter: %w", ErrFinalize, err)
	}

	task, err := o.tasks.Get(ctx, taskID)
	if err != nil {
		return fmt.Errorf("%w: get task: %w", ErrFinalize, err)
	}

	if interrupted && !task.Expired(o.now()) {
		return o.requeue(ctx, task, succeeded, logger)
	}

	task.MarkFinished(o.now(), succeeded)
	if err := o.tasks.Save(ctx, task); err != nil {
		return fmt.Errorf("%w: save task: %w", ErrFinalize, err)
	}

	if err := o.counter.Delete(ctx, key); err != nil {
		return fmt.Errorf("%w: delete progress counter: %w", ErrFinalize, err)
	}

	elapsed := o.now().Sub(started)
	telemetry.JobsTotal.WithLabelValues(telemetry.ResultSuccess).Inc()
	telemetry.JobDurationSeconds.Observe(elapsed.Seconds())

	o.note(ctx, logger, task, task.JournalCategory(), task.Status)
	logger.Info("job finished", "succeeded", succeeded, "duration", elapsed)
	return nil
}

// requeue возвращает прерванный task в очередь, не трогая EndTime.
func (o *Orchestrator) requeue(ctx context.Context, task *domain.Task, succeeded int64, logger *slog.Logger) error {
	task.Status = domain.StatusQueued
	if err := o.tasks.Save(ctx, task); err != nil {
		return fmt.Errorf("%w: requeue task: %w", ErrFinalize, err)
	}

	if err := o.counter.Delete(ctx, task.ID.String()); err != nil {
		return fmt.Errorf("%w: delete progress counter: %w", ErrFinalize, err)
	}

	telemetry.JobsTotal.WithLabelValues(telemetry.ResultInterrupted).Inc()
	o.note(ctx, logger, task, task.JournalCategory(),
		fmt.Sprintf("job interrupted by shutdown after %d successful operations, requeued", succeeded))
	logger.Warn("job interrupted, task requeued", "succeeded", succeeded)
	return nil
}

// note пишет в журнал продавца; ошибка только логируется.
func (o *Orchestrator) note(ctx context.Context, logger *slog.Logger, task *domain.Task, category, message string) {
	if err := o.journal.Append(ctx, task.Owner, category, message); err != nil {
		logger.Warn("failed to append journal entry", "category", category, "error", err)
	}
}
