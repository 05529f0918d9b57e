package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Redis.Address != "localhost:6379" {
		t.Errorf("expected default redis address, got %s", cfg.Redis.Address)
	}
	if cfg.Scheduler.Spec != "@every 5s" {
		t.Errorf("expected default scheduler spec, got %s", cfg.Scheduler.Spec)
	}

	want := []time.Duration{400 * time.Millisecond, 2500 * time.Millisecond, 4 * time.Second, 6 * time.Second}
	got := cfg.Backoff.Steps()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("backoff step %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"MARKETPLACE_RPS":     "2.5",
		"MAX_CONCURRENT_JOBS": "3",
		"BACKOFF_CALM":        "10ms",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Marketplace.RPS != 2.5 {
		t.Errorf("expected RPS 2.5, got %v", cfg.Marketplace.RPS)
	}
	if cfg.Worker.MaxConcurrentJobs != 3 {
		t.Errorf("expected 3 jobs, got %d", cfg.Worker.MaxConcurrentJobs)
	}
	if cfg.Backoff.Calm != 10*time.Millisecond {
		t.Errorf("expected calm 10ms, got %s", cfg.Backoff.Calm)
	}
}

func TestLoad_InvalidSchedulerSpec(t *testing.T) {
	_, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"SCHEDULER_SPEC": "not a cron",
	}))
	if err == nil {
		t.Error("expected error for invalid scheduler spec")
	}
}

func TestLoad_NonMonotonicBackoff(t *testing.T) {
	_, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"BACKOFF_HOT": "1s",
	}))
	if err == nil {
		t.Error("expected error when a later backoff step is shorter")
	}
}

func TestLoad_BackoffMustStrictlyIncrease(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"equal steps", map[string]string{"BACKOFF_WARM": "4s"}},
		{"zero after first", map[string]string{"BACKOFF_CALM": "0s", "BACKOFF_WARM": "0s"}},
		{"negative first", map[string]string{"BACKOFF_CALM": "-1s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(context.Background(), envconfig.MapLookuper(tt.env))
			if err == nil {
				t.Errorf("expected error for backoff %v", tt.env)
			}
		})
	}
}

func TestLoad_ZeroCalmStepAllowed(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"BACKOFF_CALM": "0s",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Backoff.Calm != 0 {
		t.Errorf("expected calm 0, got %s", cfg.Backoff.Calm)
	}
}

func TestLoad_NonPositiveRPS(t *testing.T) {
	_, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"MARKETPLACE_RPS": "0",
	}))
	if err == nil {
		t.Error("expected error for zero RPS")
	}
}
