package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// StopSignal — общий для обоих воркеров флаг остановки.
// Монотонный: однажды поднятый, не сбрасывается.
type StopSignal struct {
	stopped atomic.Bool
}

// Raise поднимает флаг.
func (s *StopSignal) Raise() {
	s.stopped.Store(true)
}

// Stopped проверяет, поднят ли флаг.
func (s *StopSignal) Stopped() bool {
	return s.stopped.Load()
}

// DeadlineMonitor перечитывает task и поднимает StopSignal, когда EndTime прошёл.
type DeadlineMonitor struct {
	tasks  TaskStore
	taskID uuid.UUID
	stop   *StopSignal
	now    func() time.Time
}

// NewDeadlineMonitor создаёт DeadlineMonitor для task.
func NewDeadlineMonitor(tasks TaskStore, taskID uuid.UUID, stop *StopSignal) *DeadlineMonitor {
	return &DeadlineMonitor{
		tasks:  tasks,
		taskID: taskID,
		stop:   stop,
		now:    time.Now,
	}
}

// Signal возвращает общий StopSignal.
func (m *DeadlineMonitor) Signal() *StopSignal {
	return m.stop
}

// ShouldStop проверяет, нужно ли прекратить обработку.
//
// Порядок: уже поднятый флаг → отмена ctx (shutdown процесса) → EndTime task'а.
// Два последних случая поднимают флаг для соседнего воркера.
func (m *DeadlineMonitor) ShouldStop(ctx context.Context) (bool, error) {
	if m.stop.Stopped() {
		return true, nil
	}

	if ctx.Err() != nil {
		m.stop.Raise()
		return true, nil
	}

	task, err := m.tasks.Get(ctx, m.taskID)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrDeadlineCheck, err)
	}

	if task.Expired(m.now()) {
		m.stop.Raise()
		return true, nil
	}
	return false, nil
}
