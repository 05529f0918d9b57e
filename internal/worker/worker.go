package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/keepalive9s/taobao/internal/domain"
	"github.com/keepalive9s/taobao/internal/telemetry"
)

// DefaultPageSize — размер страницы каталога.
const DefaultPageSize = 200

// Категории журнала для исходов восстановления.
const (
	CategoryRestored      = "item restored"
	CategoryRestoreFailed = "item restore failed"
)

// PageRange — диапазон страниц каталога [Start, End], нумерация с 1.
// End < Start — пустой диапазон.
type PageRange struct {
	Start int
	End   int
}

// Empty возвращает true для пустого диапазона.
func (r PageRange) Empty() bool {
	return r.End < r.Start
}

// Pages возвращает количество страниц в диапазоне.
func (r PageRange) Pages() int {
	if r.Empty() {
		return 0
	}
	return r.End - r.Start + 1
}

func (r PageRange) String() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// Result — итог работы Worker'а по своей партиции.
type Result struct {
	Partition int

	// Fetched — сколько товаров попало в партицию.
	Fetched int

	// Cycles — успешные циклы в Execute.
	Cycles int

	// Recovered / RecoveryFailed — исходы восстановления.
	Recovered      int
	RecoveryFailed int

	// Err — ошибка Fetch/Execute. Recovery при этом выполнен.
	Err error
}

// Worker выполняет одну партицию: Fetch → Execute → Recovery.
//
// Все поля, кроме StopSignal внутри monitor, принадлежат только этому Worker'у.
type Worker struct {
	partition int
	pages     PageRange
	pageSize  int
	task      domain.Task
	counterID string

	catalog Catalog
	tasks   TaskStore
	counter Counter
	journal Journal
	monitor *DeadlineMonitor
	rc      *RateController

	items    []domain.Item
	snapshot *Snapshot

	logger *slog.Logger
}

// Config — конфигурация Worker.
type Config struct {
	// Partition — номер партиции (1 или 2), для журнала и логов.
	Partition int

	// Pages — диапазон страниц каталога.
	Pages PageRange

	// PageSize — размер страницы (default: 200).
	PageSize int

	// Task — task на момент старта: ID, Owner, Source, Description.
	Task domain.Task

	// Collaborators
	Catalog Catalog
	Toggler Toggler
	Tasks   TaskStore
	Counter Counter
	Journal Journal

	// Monitor — общий для обоих воркеров через StopSignal.
	Monitor *DeadlineMonitor

	// Backoff — таблица пауз RateController (default: DefaultBackoff).
	Backoff []time.Duration

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Worker.
func New(cfg Config) *Worker {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = telemetry.WithPartition(logger, cfg.Partition)

	return &Worker{
		partition: cfg.Partition,
		pages:     cfg.Pages,
		pageSize:  pageSize,
		task:      cfg.Task,
		counterID: cfg.Task.ID.String(),
		catalog:   cfg.Catalog,
		tasks:     cfg.Tasks,
		counter:   cfg.Counter,
		journal:   cfg.Journal,
		monitor:   cfg.Monitor,
		rc:        NewRateController(cfg.Toggler, cfg.Task.Owner, cfg.Backoff, logger),
		snapshot:  NewSnapshot(),
		logger:    logger,
	}
}

// Run выполняет полный жизненный цикл партиции.
//
// Recovery выполняется всегда, в том числе после ошибки и после отмены ctx:
// для него используется контекст без отмены.
func (w *Worker) Run(ctx context.Context) Result {
	res := Result{Partition: w.partition}

	w.note(ctx, w.task.JournalCategory(), fmt.Sprintf("sub-task %d started", w.partition))
	w.logger.Info("worker started", "pages", w.pages.String())

	err := w.fetch(ctx)
	if err == nil {
		err = w.execute(ctx, &res)
	}
	res.Fetched = len(w.items)

	rctx := context.WithoutCancel(ctx)
	if err != nil {
		res.Err = err
		w.logger.Error("worker aborted", "error", err)
		w.note(rctx, w.task.JournalCategory(), fmt.Sprintf("sub-task %d aborted", w.partition))
	}

	w.recover(rctx, &res)

	if err == nil {
		w.note(rctx, w.task.JournalCategory(), fmt.Sprintf("sub-task %d finished", w.partition))
	}

	w.logger.Info("worker finished",
		"fetched", res.Fetched,
		"cycles", res.Cycles,
		"recovered", res.Recovered,
		"recovery_failed", res.RecoveryFailed,
	)
	return res
}

// fetch читает свой диапазон страниц и снимает Snapshot.
// При ошибке уже прочитанные товары остаются в списке для Recovery.
func (w *Worker) fetch(ctx context.Context) error {
	for pageNo := w.pages.Start; pageNo <= w.pages.End; pageNo++ {
		page, err := w.catalog.FetchPage(ctx, w.task.Owner, w.task.Source, w.pageSize, pageNo)
		if err != nil {
			return fmt.Errorf("%w: page %d: %w", ErrFetchFailed, pageNo, err)
		}

		for _, item := range page {
			if w.snapshot.Record(item) {
				w.items = append(w.items, item)
			}
		}
	}

	w.note(ctx, w.task.JournalCategory(),
		fmt.Sprintf("sub-task %d assigned %d items", w.partition, len(w.items)))

	if err := w.tasks.SetStatus(ctx, w.task.ID, domain.StatusExecuting); err != nil {
		w.logger.Warn("failed to update task status", "status", domain.StatusExecuting, "error", err)
	}
	return nil
}

// execute повторяет проходы по списку, пока не поднят StopSignal.
// Пустая партиция сразу завершается.
func (w *Worker) execute(ctx context.Context, res *Result) error {
	if len(w.items) == 0 {
		return nil
	}

	for {
		stopped, err := w.executePass(ctx, res)
		if err != nil {
			return err
		}
		if stopped {
			return nil
		}
	}
}

// executePass — один проход по списку.
func (w *Worker) executePass(ctx context.Context, res *Result) (bool, error) {
	for i := range w.items {
		item := &w.items[i]

		stop, err := w.monitor.ShouldStop(ctx)
		if err != nil {
			return false, err
		}
		if stop {
			return true, nil
		}

		counted, err := w.cycle(ctx, item)
		if err != nil {
			// ctx отменён во время паузы
			w.monitor.Signal().Raise()
			return true, nil
		}
		if counted {
			res.Cycles++
		}
	}
	return false, nil
}

// cycle переключает товар и сразу возвращает обратно.
// Засчитывается только если оба шага приняты маркетплейсом.
func (w *Worker) cycle(ctx context.Context, item *domain.Item) (bool, error) {
	ok, err := w.rc.Toggle(ctx, item)
	if err != nil || !ok {
		return false, err
	}

	ok, err = w.rc.Toggle(ctx, item)
	if err != nil || !ok {
		return false, err
	}

	w.increment(ctx)
	telemetry.CyclesTotal.Inc()
	w.logger.Debug("cycle completed", "num_iid", item.NumIID)
	return true, nil
}

// increment увеличивает внешний счётчик прогресса на 1.
func (w *Worker) increment(ctx context.Context) {
	if err := w.counter.Increment(ctx, w.counterID, 1); err != nil {
		w.logger.Warn("failed to increment progress counter", "error", err)
	}
}

// note пишет в журнал продавца. Ошибки журнала не влияют на выполнение.
func (w *Worker) note(ctx context.Context, category, message string) {
	if err := w.journal.Append(ctx, w.task.Owner, category, message); err != nil {
		w.logger.Warn("failed to append journal entry",
			"category", category,
			"error", err,
		)
	}
}
