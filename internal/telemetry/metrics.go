package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Результаты для label "result".
const (
	ResultSuccess     = "success"
	ResultFailure     = "failure"
	ResultSkipped     = "skipped"
	ResultInterrupted = "interrupted"
)

var (
	// TogglesTotal — попытки переключения товара.
	TogglesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taoshelf_toggles_total",
		Help: "Item toggle attempts by result",
	}, []string{"result"})

	// BackoffSleepSeconds — паузы RateController перед попытками.
	BackoffSleepSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "taoshelf_backoff_sleep_seconds",
		Help:    "Adaptive pause before each toggle attempt",
		Buckets: []float64{0.1, 0.4, 1, 2.5, 4, 6, 10},
	})

	// CyclesTotal — успешные циклы (снять + выставить).
	CyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "taoshelf_cycles_total",
		Help: "Completed off-shelf/on-shelf cycles",
	})

	// RecoveryTotal — восстановление исходного состояния товаров.
	RecoveryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taoshelf_recovery_total",
		Help: "Item recovery outcomes by result",
	}, []string{"result"})

	// JobsTotal — завершённые задачи.
	JobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taoshelf_jobs_total",
		Help: "Finished jobs by result",
	}, []string{"result"})

	// JobDurationSeconds — длительность задачи от старта до финализации.
	JobDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "taoshelf_job_duration_seconds",
		Help:    "Job wall time from start to finalization",
		Buckets: prometheus.ExponentialBuckets(60, 2, 10),
	})
)
