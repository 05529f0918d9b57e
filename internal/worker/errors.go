package worker

import "errors"

// Ошибки воркера.
var (
	// ErrFetchFailed — не удалось прочитать страницу каталога.
	ErrFetchFailed = errors.New("fetch item page failed")

	// ErrDeadlineCheck — не удалось перечитать task для проверки дедлайна.
	ErrDeadlineCheck = errors.New("deadline check failed")
)
