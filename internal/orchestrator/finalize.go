package orchestrator

import (
	"context"
	"sync/atomic"
)

// Finalizer вызывает fn ровно один раз: когда Done вызван parties раз.
type Finalizer struct {
	remaining atomic.Int32
	fn        func(ctx context.Context) error
}

// NewFinalizer создаёт Finalizer на parties участников.
func NewFinalizer(parties int, fn func(ctx context.Context) error) *Finalizer {
	f := &Finalizer{fn: fn}
	f.remaining.Store(int32(parties))
	return f
}

// Done отмечает завершение одного участника.
// Последний вызов выполняет финализацию и возвращает (true, её ошибку).
func (f *Finalizer) Done(ctx context.Context) (bool, error) {
	if f.remaining.Add(-1) != 0 {
		return false, nil
	}
	return true, f.fn(ctx)
}
