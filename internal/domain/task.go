package domain

import (
	"time"

	"github.com/google/uuid"
)

// Task — задача циклического снятия/выставления товаров одного продавца.
//
// Task создаётся заранее (вне ядра) и запускается Scheduler'ом,
// когда наступает StartTime. Во время выполнения EndTime служит
// одновременно расписанием и сигналом отмены: оператор может
// сократить EndTime, и оба воркера остановятся на следующей проверке.
type Task struct {
	// ID — уникальный идентификатор task.
	ID uuid.UUID `json:"id"`

	// Owner — ник продавца, от имени которого идут вызовы маркетплейса.
	Owner string `json:"owner"`

	// Description — описание задачи, используется как префикс категории журнала.
	Description string `json:"description"`

	// Source — какие товары обрабатываются: выставленные или со склада.
	Source ItemState `json:"source"`

	// TotalCount — общее количество товаров на момент старта.
	TotalCount int `json:"total_count"`

	// StartTime — запланированное время запуска.
	StartTime time.Time `json:"start_time"`

	// EndTime — дедлайн. Перезаписывается при финализации и при ручной остановке.
	EndTime *time.Time `json:"end_time,omitempty"`

	// Status — человекочитаемая метка прогресса (см. status.go).
	Status string `json:"status"`

	// CreatedAt — время создания task.
	CreatedAt time.Time `json:"created_at"`
}

// NewTask создаёт task в статусе waiting.
func NewTask(owner, description string, source ItemState, start, end time.Time) *Task {
	return &Task{
		ID:          uuid.New(),
		Owner:       owner,
		Description: description,
		Source:      source,
		StartTime:   start,
		EndTime:     &end,
		Status:      StatusWaiting,
		CreatedAt:   time.Now().UTC(),
	}
}

// Deadline возвращает EndTime или нулевое время, если дедлайн не задан.
func (t *Task) Deadline() time.Time {
	if t.EndTime == nil {
		return time.Time{}
	}
	return *t.EndTime
}

// Expired возвращает true, если дедлайн прошёл к моменту now.
// Task без дедлайна считается истёкшим: бесконечный цикл не запускаем.
func (t *Task) Expired(now time.Time) bool {
	if t.EndTime == nil {
		return true
	}
	return t.EndTime.Before(now)
}

// Overlaps возвращает true, если окно task'а пересекается с [start, end).
// Task без дедлайна пересекается со всем, что начинается после его StartTime.
func (t *Task) Overlaps(start, end time.Time) bool {
	return t.StartTime.Before(end) && (t.EndTime == nil || t.EndTime.After(start))
}

// JournalCategory — категория записей журнала о ходе выполнения.
func (t *Task) JournalCategory() string {
	return t.Description + " progress"
}

// MarkReading переводит task в стадию чтения списка товаров.
func (t *Task) MarkReading(total int) {
	t.TotalCount = total
	t.Status = StatusReading
}

// MarkFinished фиксирует завершение: EndTime = now, статус с числом успешных операций.
func (t *Task) MarkFinished(now time.Time, succeeded int64) {
	t.EndTime = &now
	t.Status = FinishedStatus(succeeded)
}

// Stop сокращает EndTime до now — запрос мягкой отмены.
func (t *Task) Stop(now time.Time) {
	t.EndTime = &now
}
