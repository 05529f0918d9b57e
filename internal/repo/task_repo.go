package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/keepalive9s/taobao/internal/domain"
)

const taskColumns = `id, owner, description, source, total_count, start_time, end_time, status, created_at`

// TaskRepo — репозиторий task'ов.
type TaskRepo struct {
	pool *pgxpool.Pool
}

// NewTaskRepo создаёт новый TaskRepo.
func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo {
	return &TaskRepo{pool: pool}
}

// Create сохраняет новый task.
func (r *TaskRepo) Create(ctx context.Context, task *domain.Task) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		task.ID,
		task.Owner,
		task.Description,
		string(task.Source),
		task.TotalCount,
		task.StartTime,
		task.EndTime,
		task.Status,
		task.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// Get возвращает task по ID.
func (r *TaskRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	return scanTask(row)
}

// Save перезаписывает изменяемые поля task'а.
func (r *TaskRepo) Save(ctx context.Context, task *domain.Task) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE tasks
		SET total_count = $2, end_time = $3, status = $4
		WHERE id = $1
	`, task.ID, task.TotalCount, task.EndTime, task.Status)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetStatus меняет только статус.
func (r *TaskRepo) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	return r.exec(ctx, `UPDATE tasks SET status = $2 WHERE id = $1`, id, status)
}

// SetEndTime меняет только EndTime.
func (r *TaskRepo) SetEndTime(ctx context.Context, id uuid.UUID, end time.Time) error {
	return r.exec(ctx, `UPDATE tasks SET end_time = $2 WHERE id = $1`, id, end)
}

// ClaimQueued переводит task из queued в reading item list.
// Условный UPDATE: из двух конкурентных вызовов true получит только один.
func (r *TaskRepo) ClaimQueued(ctx context.Context, id uuid.UUID) (bool, error) {
	result, err := r.pool.Exec(ctx, `
		UPDATE tasks SET status = $3
		WHERE id = $1 AND status = $2
	`, id, domain.StatusQueued, domain.StatusReading)
	if err != nil {
		return false, fmt.Errorf("claim task: %w", err)
	}
	return result.RowsAffected() == 1, nil
}

// ListQueued возвращает queued task'и, старые первыми.
func (r *TaskRepo) ListQueued(ctx context.Context, limit int) ([]domain.Task, error) {
	return r.list(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE status = $1
		ORDER BY start_time ASC
		LIMIT $2
	`, domain.StatusQueued, limit)
}

// ListDue возвращает waiting task'и, у которых наступил StartTime.
func (r *TaskRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Task, error) {
	return r.list(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE status = $1 AND start_time <= $2
		ORDER BY start_time ASC
		LIMIT $3
	`, domain.StatusWaiting, now, limit)
}

// ListByOwner возвращает task'и продавца, новые первыми.
func (r *TaskRepo) ListByOwner(ctx context.Context, owner string, limit int) ([]domain.Task, error) {
	return r.list(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE owner = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, owner, limit)
}

// ListOverlapping возвращает task'и продавца, чьё окно пересекается с [start, end).
func (r *TaskRepo) ListOverlapping(ctx context.Context, owner string, start, end time.Time) ([]domain.Task, error) {
	return r.list(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE owner = $1
		  AND start_time < $3
		  AND (end_time IS NULL OR end_time > $2)
		ORDER BY start_time ASC
	`, owner, start, end)
}

// Delete удаляет task, если он не выполняется.
// Task в queued/reading/executing не удаляется: ErrNotFound.
func (r *TaskRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.exec(ctx, `
		DELETE FROM tasks
		WHERE id = $1 AND status <> ALL($2)
	`, id, []string{domain.StatusQueued, domain.StatusReading, domain.StatusExecuting})
}

// --- Helpers ---

func (r *TaskRepo) exec(ctx context.Context, query string, args ...any) error {
	result, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("exec task query: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *TaskRepo) list(ctx context.Context, query string, args ...any) ([]domain.Task, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

func scanTask(row pgx.Row) (*domain.Task, error) {
	var task domain.Task
	var source string

	err := row.Scan(
		&task.ID,
		&task.Owner,
		&task.Description,
		&source,
		&task.TotalCount,
		&task.StartTime,
		&task.EndTime,
		&task.Status,
		&task.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan task: %w", err)
	}

	task.Source = domain.ItemState(source)
	return &task, nil
}
