// Package orchestrator запускает job по одному task.
//
// Один job — два Worker'а над непересекающимися диапазонами страниц каталога:
//
//	reset counter → load task → Count → reading item list → Partition
//	  ├── worker 1: fetch → execute → recover ─┐
//	  └── worker 2: fetch → execute → recover ─┴→ Finalizer (последний финиширует)
//
// Finalizer срабатывает ровно один раз: EndTime = now, статус
// "finished (N successful operations)" со значением счётчика прогресса,
// после чего счётчик удаляется.
//
// Orchestrator также работает как демон: потребляет job.start из RabbitMQ,
// подбирает queued task'и polling'ом и исполняет job'ы в пуле ants.
package orchestrator
