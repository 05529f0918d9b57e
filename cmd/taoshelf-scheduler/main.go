// taoshelf-scheduler — ставит в очередь task'и, у которых наступил StartTime.
//
// Реплик может быть несколько: тикает только держатель pg advisory lock.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/keepalive9s/taobao/internal/config"
	"github.com/keepalive9s/taobao/internal/mq"
	"github.com/keepalive9s/taobao/internal/repo"
	"github.com/keepalive9s/taobao/internal/scheduler"
	"github.com/keepalive9s/taobao/internal/telemetry"
)

func main() {
	logger := telemetry.SetupLogger()
	logger.Info("starting taoshelf-scheduler")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(ctx)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	pool, err := repo.NewPool(ctx, cfg.DB.URL, cfg.DB.MaxConns)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connected")

	// без брокера планировщику нечего делать: job.start — единственный выход
	mqConn, err := mq.Dial(cfg.MQ.URL, logger)
	if err != nil {
		logger.Error("failed to connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer mqConn.Close()

	if err := mq.SetupTopology(ctx, mqConn); err != nil {
		logger.Error("failed to setup topology", "error", err)
		os.Exit(1)
	}

	leader := scheduler.NewPGLeader(pool, scheduler.LockKey)
	defer leader.Release(context.Background())

	sched := scheduler.New(scheduler.Config{
		Tasks:     repo.NewTaskRepo(pool),
		Publisher: mq.NewPublisher(mqConn, logger),
		Leader:    leader,
		Logger:    logger,
		BatchSize: cfg.Scheduler.BatchSize,
	})

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if !mqConn.IsConnected() {
			http.Error(w, "amqp disconnected", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: ":" + cfg.Scheduler.Port, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	if err := sched.Run(ctx, cfg.Scheduler.Spec); err != nil {
		logger.Error("scheduler failed", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)

	logger.Info("taoshelf-scheduler stopped")
}
