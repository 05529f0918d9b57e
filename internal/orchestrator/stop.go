package orchestrator

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/keepalive9s/taobao/internal/domain"
)

// StopTask останавливает task оператором: EndTime = now.
//
// Работающий job увидит новый EndTime при следующей проверке DeadlineMonitor,
// вернёт товары и финализируется сам. Статус не меняется.
func (o *Orchestrator) StopTask(ctx context.Context, taskID uuid.UUID) (*domain.Task, error) {
	task, err := o.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}

	switch {
	case domain.IsWaiting(task.Status):
		return nil, ErrTaskNotStarted
	case domain.IsFinished(task.Status):
		return nil, ErrTaskFinished
	}

	now := o.now()
	if err := o.tasks.SetEndTime(ctx, taskID, now); err != nil {
		return nil, fmt.Errorf("set end time: %w", err)
	}
	task.Stop(now)

	o.logger.Info("task stopped by operator", "task_id", taskID, "status", task.Status)
	return task, nil
}
