package domain

import (
	"fmt"
	"strings"
)

// Метки статуса task.
//
// Жизненный цикл:
//
//	waiting → queued → reading item list → executing → finished (N successful operations)
//
// Статус — свободный текст для пользователя, поэтому записи обоих воркеров
// идут по принципу "последняя запись побеждает".
const (
	// StatusWaiting — task создан и ждёт StartTime.
	StatusWaiting = "waiting"

	// StatusQueued — Scheduler опубликовал job.start.
	StatusQueued = "queued"

	// StatusReading — идёт подсчёт и чтение списков товаров.
	StatusReading = "reading item list"

	// StatusExecuting — воркеры выполняют циклы.
	StatusExecuting = "executing"

	statusFinishedPrefix = "finished"
)

// FinishedStatus формирует финальную метку с числом успешных операций.
func FinishedStatus(succeeded int64) string {
	return fmt.Sprintf("%s (%d successful operations)", statusFinishedPrefix, succeeded)
}

// IsWaiting возвращает true, если task ещё не запускался.
func IsWaiting(status string) bool {
	return status == StatusWaiting
}

// IsFinished возвращает true, если task уже финализирован.
func IsFinished(status string) bool {
	return strings.HasPrefix(status, statusFinishedPrefix)
}

// IsRunning возвращает true, если task в процессе выполнения.
func IsRunning(status string) bool {
	switch status {
	case StatusQueued, StatusReading, StatusExecuting:
		return true
	default:
		return false
	}
}
