package worker

import (
	"context"
	"fmt"

	"github.com/keepalive9s/taobao/internal/telemetry"
)

// maxRecoveryAttempts — корректирующих toggle на один товар.
const maxRecoveryAttempts = 2

// recover возвращает товары партиции в состояние из Snapshot.
//
// Товары, совпадающие со Snapshot, не трогаются (ноль вызовов toggle).
// Неудача по одному товару не прерывает восстановление остальных.
func (w *Worker) recover(ctx context.Context, res *Result) {
	w.note(ctx, w.task.JournalCategory(), fmt.Sprintf("recovering sub-task %d", w.partition))

	for i := range w.items {
		item := &w.items[i]
		if !w.snapshot.Drifted(*item) {
			continue
		}
		orig, _ := w.snapshot.Original(item.NumIID)

		for attempt := 1; attempt <= maxRecoveryAttempts && item.ApproveStatus != orig; attempt++ {
			ok, err := w.rc.Toggle(ctx, item)
			if err != nil {
				break
			}
			if ok {
				w.increment(ctx)
				continue
			}
			w.note(ctx, CategoryRestoreFailed, fmt.Sprintf("%s (attempt %d)", item.Title, attempt))
		}

		if item.ApproveStatus == orig {
			res.Recovered++
			telemetry.RecoveryTotal.WithLabelValues(telemetry.ResultSuccess).Inc()
			w.note(ctx, CategoryRestored, item.Title)
			continue
		}

		res.RecoveryFailed++
		telemetry.RecoveryTotal.WithLabelValues(telemetry.ResultFailure).Inc()
		w.logger.Warn("item not restored",
			"num_iid", item.NumIID,
			"status", item.ApproveStatus,
			"original", orig,
		)
		w.note(ctx, CategoryRestoreFailed, item.Title)
	}
}
