// Package scheduler запускает task'и, у которых наступил StartTime.
//
// Каждый тик: waiting task'и со StartTime <= now → статус queued → job.start в RabbitMQ.
// Если публикация не удалась, task возвращается в waiting.
//
// Структура:
//   - scheduler.go — Tick и постановка в очередь
//   - cron.go      — цикл тиков по cron-расписанию (SCHEDULER_SPEC)
//   - leader.go    — leader election через pg_try_advisory_lock
//
// Использование:
//
//	sched := scheduler.New(scheduler.Config{
//	    Tasks:     taskRepo,
//	    Publisher: publisher,
//	    Leader:    scheduler.NewPGLeader(pool, scheduler.LockKey),
//	    Logger:    logger,
//	})
//	err := sched.Run(ctx, "@every 5s")
package scheduler
