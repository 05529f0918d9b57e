// taoshelf-worker — выполняет job'ы снятия/выставления товаров.
//
// Worker:
//   - Получает job.start из RabbitMQ (и подбирает queued task'и polling'ом)
//   - Запускает по два воркера на task в пуле ants
//   - Возвращает товары в исходное состояние и финализирует task
//
// Реплики масштабируются горизонтально: task забирается условным UPDATE.
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
	"github.com/keepalive9s/taobao/internal/marketplace"
	"github.com/keepalive9s/taobao/internal/mq"
	"github.com/keepalive9s/taobao/internal/orchestrator"
	"github.com/keepalive9s/taobao/internal/progress"
	"github.com/keepalive9s/taobao/internal/repo"
	"github.com/keepalive9s/taobao/internal/telemetry"
)

func main() {
	logger := telemetry.SetupLogger()
	logger.Info("starting taoshelf-worker")

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

	redisClient, err := progress.NewClient(ctx, cfg.Redis)
	if err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	logger.Info("redis connected")

	// RabbitMQ опционален: без него task'и подбираются polling'ом
	var mqConn *mq.Connection
	mqConn, err = mq.Dial(cfg.MQ.URL, logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, running in polling-only mode", "error", err)
		mqConn = nil
	} else {
		defer mqConn.Close()
		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}
		logger.Debug(mq.TopologyInfo())
	}

	market := marketplace.New(marketplace.Config{
		BaseURL: cfg.Marketplace.BaseURL,
		RPS:     cfg.Marketplace.RPS,
		Timeout: cfg.Marketplace.Timeout,
	})

	orch := orchestrator.New(orchestrator.Config{
		Tasks:             repo.NewTaskRepo(pool),
		Catalog:           market,
		Toggler:           market,
		Counter:           progress.NewRedisCounter(redisClient),
		Journal:           repo.NewLogRepo(pool),
		Backoff:           cfg.Backoff.Steps(),
		Conn:              mqConn,
		MaxConcurrentJobs: cfg.Worker.MaxConcurrentJobs,
		PollInterval:      cfg.Worker.PollInterval,
		Logger:            logger,
	})

	if err := orch.Start(ctx); err != nil {
		logger.Error("failed to start orchestrator", "error", err)
		os.Exit(1)
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if orch.IsStopped() {
			http.Error(w, "stopping", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: ":" + cfg.Worker.Port, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()

	// Stop ждёт, пока воркеры вернут товары и финализируют task'и
	orch.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)

	logger.Info("taoshelf-worker stopped")
}
