package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/keepalive9s/taobao/internal/domain"
	"github.com/keepalive9s/taobao/internal/repo"
)

var (
	// ErrNotWaiting — task уже запускался, повторный start невозможен.
	ErrNotWaiting = errors.New("task is not waiting")

	// ErrTaskOverlap — у продавца уже есть task с пересекающимся окном.
	ErrTaskOverlap = errors.New("task window overlaps an existing task")

	// ErrTaskRunning — task выполняется, сначала его нужно остановить.
	ErrTaskRunning = errors.New("task is running")
)

// Backend — операции, которые выполняет CLI.
type Backend interface {
	CreateTask(ctx context.Context, task *domain.Task) error
	GetTask(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	ListTasks(ctx context.Context, owner string, limit int) ([]domain.Task, error)
	StartTask(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	StopTask(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	DeleteTask(ctx context.Context, id uuid.UUID) error
	ListLogs(ctx context.Context, owner string, limit int) ([]repo.LogEntry, error)
}

// TaskStore — то, что Client читает и пишет в БД.
type TaskStore interface {
	Create(ctx context.Context, task *domain.Task) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	ListByOwner(ctx context.Context, owner string, limit int) ([]domain.Task, error)
	ListOverlapping(ctx context.Context, owner string, start, end time.Time) ([]domain.Task, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// LogStore — журнал продавца.
type LogStore interface {
	ListByOwner(ctx context.Context, owner string, limit int) ([]repo.LogEntry, error)
}

// Enqueuer ставит task в очередь на запуск (scheduler.Scheduler).
type Enqueuer interface {
	Enqueue(ctx context.Context, task *domain.Task) error
}

// Stopper останавливает task (orchestrator.Orchestrator).
type Stopper interface {
	StopTask(ctx context.Context, id uuid.UUID) (*domain.Task, error)
}

// Client — Backend поверх БД и RabbitMQ.
type Client struct {
	tasks    TaskStore
	logs     LogStore
	enqueuer Enqueuer
	stopper  Stopper
}

// NewClient создаёт Client.
func NewClient(tasks TaskStore, logs LogStore, enqueuer Enqueuer, stopper Stopper) *Client {
	return &Client{tasks: tasks, logs: logs, enqueuer: enqueuer, stopper: stopper}
}

// CreateTask сохраняет task, если его окно не пересекается с другими task'ами продавца.
func (c *Client) CreateTask(ctx context.Context, task *domain.Task) error {
	overlapping, err := c.tasks.ListOverlapping(ctx, task.Owner, task.StartTime, task.Deadline())
	if err != nil {
		return fmt.Errorf("check overlapping tasks: %w", err)
	}
	if len(overlapping) > 0 {
		other := overlapping[0]
		return fmt.Errorf("%w: %s (%s - %s)", ErrTaskOverlap,
			other.ID, formatTime(other.StartTime), formatTime(other.Deadline()))
	}
	return c.tasks.Create(ctx, task)
}

func (c *Client) GetTask(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	return c.tasks.Get(ctx, id)
}

func (c *Client) ListTasks(ctx context.Context, owner string, limit int) ([]domain.Task, error) {
	return c.tasks.ListByOwner(ctx, owner, limit)
}

// StartTask запускает waiting task немедленно, не дожидаясь StartTime.
func (c *Client) StartTask(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	task, err := c.tasks.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !domain.IsWaiting(task.Status) {
		return nil, fmt.Errorf("%w: %s", ErrNotWaiting, task.Status)
	}

	if err := c.enqueuer.Enqueue(ctx, task); err != nil {
		return nil, err
	}
	task.Status = domain.StatusQueued
	return task, nil
}

func (c *Client) StopTask(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	return c.stopper.StopTask(ctx, id)
}

// DeleteTask удаляет task, который не выполняется.
func (c *Client) DeleteTask(ctx context.Context, id uuid.UUID) error {
	task, err := c.tasks.Get(ctx, id)
	if err != nil {
		return err
	}
	if domain.IsRunning(task.Status) {
		return fmt.Errorf("%w: %s, stop it first", ErrTaskRunning, task.Status)
	}
	return c.tasks.Delete(ctx, id)
}

func (c *Client) ListLogs(ctx context.Context, owner string, limit int) ([]repo.LogEntry, error) {
	return c.logs.ListByOwner(ctx, owner, limit)
}
