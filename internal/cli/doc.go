// Package cli реализует taoshelf-ctl — утилиту оператора.
//
// # Обзор
//
// CLI работает напрямую с PostgreSQL и RabbitMQ: создаёт task'и,
// запускает их раньше StartTime, останавливает и показывает журнал продавца.
//
// # Ключевые компоненты
//
// ## Backend
//
// Интерфейс операций CLI. Client реализует его поверх repo.TaskRepo,
// repo.LogRepo, scheduler.Scheduler (постановка в очередь) и
// orchestrator.Orchestrator (остановка).
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON с отступами — с флагом --json
//
// Данные выводятся в stdout, сообщения — в stderr:
// taoshelf-ctl task list --owner shop --json | jq .
//
// ## Commands
//
//   - task: create, list, show, start, stop
//   - log
//
// Фабрики команд принимают backendFn и outputFn — замыкания, которые
// вызываются после парсинга PersistentFlags.
package cli
