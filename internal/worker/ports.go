package worker

import (
	"context"

	"github.com/google/uuid"
	"github.com/keepalive9s/taobao/internal/domain"
)

// Catalog — каталог товаров продавца.
type Catalog interface {
	// Count возвращает количество товаров продавца в состоянии state.
	Count(ctx context.Context, owner string, state domain.ItemState) (int, error)

	// FetchPage возвращает страницу pageNo (с 1) размера pageSize.
	FetchPage(ctx context.Context, owner string, state domain.ItemState, pageSize, pageNo int) ([]domain.Item, error)
}

// Toggler — примитив переключения состояния товара.
// nil — маркетплейс принял вызов, любая ошибка — отказ.
type Toggler interface {
	List(ctx context.Context, owner string, item *domain.Item) error
	Delist(ctx context.Context, owner string, item *domain.Item) error
}

// TaskStore — хранилище task'ов. Вызывается конкурентно из обоих воркеров.
type TaskStore interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	Save(ctx context.Context, task *domain.Task) error

	// SetStatus меняет только метку статуса, не трогая EndTime.
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
}

// Counter — внешний счётчик прогресса по ключу task'а.
// Increment должен быть атомарным при конкурентных вызовах.
type Counter interface {
	Reset(ctx context.Context, key string) error
	Increment(ctx context.Context, key string, delta int64) error
	Read(ctx context.Context, key string) (int64, error)
	Delete(ctx context.Context, key string) error
}

// Journal — человекочитаемый журнал продавца.
type Journal interface {
	Append(ctx context.Context, owner, category, message string) error
}
