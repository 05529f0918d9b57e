// Package worker выполняет одну партицию задачи циклического снятия/выставления товаров.
//
// # Обзор
//
// Orchestrator делит каталог продавца на две партиции (диапазоны страниц)
// и запускает по одному Worker'у на каждую. Worker'ы работают параллельно,
// но внутри партиции товары обрабатываются строго последовательно —
// так соблюдаются неопубликованные лимиты маркетплейса.
//
// Жизненный цикл Worker'а:
//
//  1. Fetch — постранично читает свой диапазон через Catalog, снимает Snapshot
//     исходного состояния каждого товара, ставит task статус "executing".
//  2. Execute — повторяет проход по всему списку, пока не поднят общий StopSignal.
//     Перед каждым товаром DeadlineMonitor перечитывает task и сравнивает EndTime с часами.
//     Каждый товар проходит цикл: снять → выставить (или наоборот).
//     Оба шага успешны — ProgressCounter +1.
//  3. Recovery — всегда, даже после ошибки: каждый товар, чьё состояние
//     отличается от Snapshot, получает до двух корректирующих toggle.
//
// # Ключевые компоненты
//
// ## RateController
//
// Адаптивная пауза перед каждой попыткой toggle по числу отказов подряд:
//
//	0 → 400ms, 1 → 2.5s, 2 → 4s, ≥3 → 6s
//
// Успех сбрасывает счётчик отказов, отказ увеличивает его.
// Явного сигнала backpressure от маркетплейса нет — только успех/отказ вызова.
//
// ## DeadlineMonitor и StopSignal
//
// StopSignal — общий для обоих Worker'ов монотонный флаг (atomic.Bool).
// Оператор сокращает EndTime task'а, оба Worker'а видят это на следующей
// проверке, дорабатывают текущий товар и переходят к Recovery.
//
// ## Порты
//
// Catalog, Toggler, TaskStore, Counter и Journal — внешние сервисы (ports.go).
// Реализации: internal/marketplace, internal/repo, internal/progress.
//
// # Ошибки
//
//   - Отказ toggle — ожидаемая ситуация, управляет backoff, ошибкой не считается.
//   - Ошибка Catalog/TaskStore в Fetch/Execute — возвращается в Result.Err,
//     Recovery всё равно выполняется на уже прочитанном списке.
//   - Неудачное восстановление товара после двух попыток пишется в журнал
//     и не прерывает восстановление остальных.
package worker
