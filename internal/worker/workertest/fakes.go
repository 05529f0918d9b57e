// Package workertest содержит in-memory реализации портов воркера для тестов.
package workertest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/keepalive9s/taobao/internal/domain"
)

// ErrRejected — отказ маркетплейса в фейковом Toggler.
var ErrRejected = errors.New("rejected")

// ErrNotFound — task не найден в фейковом TaskStore.
var ErrNotFound = errors.New("task not found")

// --- Catalog ---

// Catalog — каталог поверх фиксированного списка товаров.
type Catalog struct {
	mu       sync.Mutex
	items    []domain.Item
	failPage int
	fetched  []int
}

// NewCatalog создаёт каталог. Порядок items — порядок выдачи по страницам.
func NewCatalog(items []domain.Item) *Catalog {
	return &Catalog{items: items}
}

// FailOnPage заставляет FetchPage вернуть ошибку на странице pageNo.
func (c *Catalog) FailOnPage(pageNo int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failPage = pageNo
}

// FetchedPages возвращает номера запрошенных страниц.
func (c *Catalog) FetchedPages() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int(nil), c.fetched...)
}

func (c *Catalog) Count(_ context.Context, _ string, _ domain.ItemState) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items), nil
}

func (c *Catalog) FetchPage(_ context.Context, _ string, _ domain.ItemState, pageSize, pageNo int) ([]domain.Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.fetched = append(c.fetched, pageNo)
	if c.failPage != 0 && pageNo == c.failPage {
		return nil, fmt.Errorf("page %d unavailable", pageNo)
	}

	from := (pageNo - 1) * pageSize
	if from >= len(c.items) || from < 0 {
		return nil, nil
	}
	to := min(from+pageSize, len(c.items))
	return append([]domain.Item(nil), c.items[from:to]...), nil
}

// --- Toggler ---

// Toggler — маркетплейс, который принимает или отклоняет вызовы по правилу Reject.
type Toggler struct {
	// Reject решает, отклонить ли вызов. nil — принимать всё.
	Reject func(call int64, item domain.Item) bool

	calls   atomic.Int64
	lists   atomic.Int64
	delists atomic.Int64
}

// Calls возвращает общее число вызовов.
func (t *Toggler) Calls() int64 { return t.calls.Load() }

// Lists возвращает число вызовов List.
func (t *Toggler) Lists() int64 { return t.lists.Load() }

// Delists возвращает число вызовов Delist.
func (t *Toggler) Delists() int64 { return t.delists.Load() }

func (t *Toggler) List(_ context.Context, _ string, item *domain.Item) error {
	t.lists.Add(1)
	return t.answer(*item)
}

func (t *Toggler) Delist(_ context.Context, _ string, item *domain.Item) error {
	t.delists.Add(1)
	return t.answer(*item)
}

func (t *Toggler) answer(item domain.Item) error {
	call := t.calls.Add(1)
	if t.Reject != nil && t.Reject(call, item) {
		return ErrRejected
	}
	return nil
}

// --- TaskStore ---

// TaskStore — потокобезопасное хранилище task'ов.
type TaskStore struct {
	mu       sync.Mutex
	tasks    map[uuid.UUID]domain.Task
	saves    int
	statuses []string

	// OnGet вызывается перед каждым Get (для сценариев остановки).
	OnGet func(gets int64)
	gets  atomic.Int64
}

// NewTaskStore создаёт хранилище с task'ами.
func NewTaskStore(tasks ...domain.Task) *TaskStore {
	s := &TaskStore{tasks: make(map[uuid.UUID]domain.Task)}
	for _, t := range tasks {
		s.tasks[t.ID] = t
	}
	return s
}

// Create добавляет новый task.
func (s *TaskStore) Create(_ context.Context, task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[task.ID]; ok {
		return fmt.Errorf("task %s already exists", task.ID)
	}
	s.tasks[task.ID] = *task
	return nil
}

// Delete удаляет task, если он не выполняется.
func (s *TaskStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok || domain.IsRunning(t.Status) {
		return ErrNotFound
	}
	delete(s.tasks, id)
	return nil
}

func (s *TaskStore) ListByOwner(_ context.Context, owner string, limit int) ([]domain.Task, error) {
	return s.list(limit, func(t domain.Task) bool { return t.Owner == owner }), nil
}

func (s *TaskStore) ListOverlapping(_ context.Context, owner string, start, end time.Time) ([]domain.Task, error) {
	return s.list(0, func(t domain.Task) bool {
		return t.Owner == owner && t.Overlaps(start, end)
	}), nil
}

func (s *TaskStore) Get(_ context.Context, id uuid.UUID) (*domain.Task, error) {
	n := s.gets.Add(1)
	if s.OnGet != nil {
		s.OnGet(n)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (s *TaskStore) Save(_ context.Context, task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[task.ID]; !ok {
		return ErrNotFound
	}
	s.tasks[task.ID] = *task
	s.saves++
	s.statuses = append(s.statuses, task.Status)
	return nil
}

func (s *TaskStore) SetStatus(_ context.Context, id uuid.UUID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return ErrNotFound
	}
	t.Status = status
	s.tasks[id] = t
	s.statuses = append(s.statuses, status)
	return nil
}

func (s *TaskStore) SetEndTime(_ context.Context, id uuid.UUID, end time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return ErrNotFound
	}
	t.EndTime = &end
	s.tasks[id] = t
	return nil
}

// ClaimQueued переводит task из queued в reading, как условный UPDATE в БД.
func (s *TaskStore) ClaimQueued(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return false, ErrNotFound
	}
	if t.Status != domain.StatusQueued {
		return false, nil
	}
	t.Status = domain.StatusReading
	s.tasks[id] = t
	s.statuses = append(s.statuses, t.Status)
	return true, nil
}

func (s *TaskStore) ListQueued(_ context.Context, limit int) ([]domain.Task, error) {
	return s.list(limit, func(t domain.Task) bool { return t.Status == domain.StatusQueued }), nil
}

func (s *TaskStore) ListDue(_ context.Context, now time.Time, limit int) ([]domain.Task, error) {
	return s.list(limit, func(t domain.Task) bool {
		return domain.IsWaiting(t.Status) && !t.StartTime.After(now)
	}), nil
}

// list возвращает подходящие task'и, старые первыми.
func (s *TaskStore) list(limit int, match func(domain.Task) bool) []domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Task
	for _, t := range s.tasks {
		if match(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Snapshot возвращает копию task без учёта OnGet.
func (s *TaskStore) Snapshot(id uuid.UUID) domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasks[id]
}

// Update применяет fn к сохранённому task (действие оператора).
func (s *TaskStore) Update(id uuid.UUID, fn func(t *domain.Task)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.tasks[id]
	fn(&t)
	s.tasks[id] = t
}

// Statuses возвращает историю записанных статусов.
func (s *TaskStore) Statuses() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.statuses...)
}

// Saves возвращает число вызовов Save.
func (s *TaskStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// --- Counter ---

// Counter — счётчики прогресса в памяти.
type Counter struct {
	mu      sync.Mutex
	values  map[string]int64
	deletes int
}

// NewCounter создаёт пустой Counter.
func NewCounter() *Counter {
	return &Counter{values: make(map[string]int64)}
}

func (c *Counter) Reset(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = 0
	return nil
}

func (c *Counter) Increment(_ context.Context, key string, delta int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] += delta
	return nil
}

func (c *Counter) Read(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values[key], nil
}

func (c *Counter) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, key)
	c.deletes++
	return nil
}

// Value возвращает значение и признак наличия ключа.
func (c *Counter) Value(key string) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	return v, ok
}

// Deletes возвращает число вызовов Delete.
func (c *Counter) Deletes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deletes
}

// --- Journal ---

// Entry — запись журнала.
type Entry struct {
	Owner    string
	Category string
	Message  string
}

// Journal — журнал в памяти.
type Journal struct {
	mu      sync.Mutex
	entries []Entry
}

func (j *Journal) Append(_ context.Context, owner, category, message string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, Entry{Owner: owner, Category: category, Message: message})
	return nil
}

// Entries возвращает записи с категорией category.
func (j *Journal) Entries(category string) []Entry {
	j.mu.Lock()
	defer j.mu.Unlock()

	var out []Entry
	for _, e := range j.entries {
		if e.Category == category {
			out = append(out, e)
		}
	}
	return out
}

// --- Helpers ---

// Items создаёт n товаров в состоянии state с NumIID от 1.
func Items(n int, state domain.ItemState) []domain.Item {
	items := make([]domain.Item, n)
	for i := range items {
		items[i] = domain.Item{
			NumIID:        int64(i + 1),
			Title:         fmt.Sprintf("item-%d", i+1),
			ApproveStatus: state,
		}
	}
	return items
}
