package orchestrator

import "errors"

// Ошибки оркестратора.
var (
	// ErrTaskNotStarted — task ещё ждёт запуска, останавливать нечего.
	ErrTaskNotStarted = errors.New("task has not started")

	// ErrTaskFinished — task уже завершён.
	ErrTaskFinished = errors.New("task already finished")

	// ErrFinalize — не удалось записать итог job'а.
	ErrFinalize = errors.New("finalize job failed")

	// ErrJobAlreadyActive — job по этому task уже выполняется в процессе.
	ErrJobAlreadyActive = errors.New("job already active")

	// ErrOrchestratorStopped — оркестратор остановлен.
	ErrOrchestratorStopped = errors.New("orchestrator stopped")
)
