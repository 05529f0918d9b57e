package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/keepalive9s/taobao/internal/domain"
	"github.com/keepalive9s/taobao/internal/telemetry"
)

// DefaultBackoff — паузы перед попыткой по числу отказов подряд (индекс).
// Последний элемент используется для всех больших значений.
var DefaultBackoff = []time.Duration{
	400 * time.Millisecond,
	2500 * time.Millisecond,
	4 * time.Second,
	6 * time.Second,
}

// RateController переключает товары одной партиции с адаптивной паузой.
//
// Не потокобезопасен: принадлежит ровно одному Worker'у.
type RateController struct {
	toggler  Toggler
	owner    string
	steps    []time.Duration
	failures int
	sleep    func(ctx context.Context, d time.Duration) error
	logger   *slog.Logger
}

// NewRateController создаёт RateController. Пустой steps — DefaultBackoff.
func NewRateController(toggler Toggler, owner string, steps []time.Duration, logger *slog.Logger) *RateController {
	if len(steps) == 0 {
		steps = DefaultBackoff
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RateController{
		toggler: toggler,
		owner:   owner,
		steps:   steps,
		sleep:   sleepContext,
		logger:  logger,
	}
}

// Failures возвращает текущее число отказов подряд.
func (rc *RateController) Failures() int {
	return rc.failures
}

// Pause возвращает паузу, которая будет выдержана перед следующей попыткой.
func (rc *RateController) Pause() time.Duration {
	idx := rc.failures
	if idx >= len(rc.steps) {
		idx = len(rc.steps) - 1
	}
	return rc.steps[idx]
}

// Toggle выдерживает паузу и переключает товар в противоположное состояние.
//
// Listed → Delist, Unlisted → List, прочие состояния — no-op (false).
// При успехе item.ApproveStatus меняется на новое состояние.
// Ошибка возвращается только если ctx отменён во время паузы.
func (rc *RateController) Toggle(ctx context.Context, item *domain.Item) (bool, error) {
	pause := rc.Pause()
	telemetry.BackoffSleepSeconds.Observe(pause.Seconds())
	if err := rc.sleep(ctx, pause); err != nil {
		return false, err
	}

	var err error
	switch item.ApproveStatus {
	case domain.ItemListed:
		err = rc.toggler.Delist(ctx, rc.owner, item)
	case domain.ItemUnlisted:
		err = rc.toggler.List(ctx, rc.owner, item)
	default:
		telemetry.TogglesTotal.WithLabelValues(telemetry.ResultSkipped).Inc()
		return false, nil
	}

	if err != nil {
		rc.failures++
		telemetry.TogglesTotal.WithLabelValues(telemetry.ResultFailure).Inc()
		rc.logger.Debug("toggle rejected",
			"num_iid", item.NumIID,
			"status", item.ApproveStatus,
			"failures", rc.failures,
			"error", err,
		)
		return false, nil
	}

	rc.failures = 0
	item.ApproveStatus = item.ApproveStatus.Opposite()
	telemetry.TogglesTotal.WithLabelValues(telemetry.ResultSuccess).Inc()
	return true, nil
}

// sleepContext — context-aware ожидание.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
