package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keepalive9s/taobao/internal/domain"
	"github.com/keepalive9s/taobao/internal/repo"
	"github.com/keepalive9s/taobao/internal/worker/workertest"
)

// --- Fakes ---

type fakeTasks struct {
	*workertest.TaskStore
	created []*domain.Task
}

func (f *fakeTasks) Create(ctx context.Context, task *domain.Task) error {
	if err := f.TaskStore.Create(ctx, task); err != nil {
		return err
	}
	f.created = append(f.created, task)
	return nil
}

type fakeLogs struct{}

func (fakeLogs) ListByOwner(_ context.Context, owner string, _ int) ([]repo.LogEntry, error) {
	return []repo.LogEntry{{ID: 1, Owner: owner, Category: "daily progress", Message: "job started"}}, nil
}

type fakeEnqueuer struct {
	store *workertest.TaskStore
	err   error
}

func (e *fakeEnqueuer) Enqueue(ctx context.Context, task *domain.Task) error {
	if e.err != nil {
		return e.err
	}
	return e.store.SetStatus(ctx, task.ID, domain.StatusQueued)
}

type fakeStopper struct{ stopped []uuid.UUID }

func (s *fakeStopper) StopTask(_ context.Context, id uuid.UUID) (*domain.Task, error) {
	s.stopped = append(s.stopped, id)
	return &domain.Task{ID: id, Status: domain.StatusExecuting}, nil
}

type harness struct {
	tasks    *fakeTasks
	enqueuer *fakeEnqueuer
	stopper  *fakeStopper
	stdout   bytes.Buffer
	stderr   bytes.Buffer
}

func newHarness(tasks ...domain.Task) *harness {
	store := workertest.NewTaskStore(tasks...)
	return &harness{
		tasks:    &fakeTasks{TaskStore: store},
		enqueuer: &fakeEnqueuer{store: store},
		stopper:  &fakeStopper{},
	}
}

func (h *harness) run(t *testing.T, jsonMode bool, args ...string) error {
	t.Helper()
	client := NewClient(h.tasks, fakeLogs{}, h.enqueuer, h.stopper)
	backendFn := func() Backend { return client }
	outputFn := func() *Output { return NewOutputTo(jsonMode, &h.stdout, &h.stderr) }

	var cmd = NewTaskCmd(backendFn, outputFn)
	if args[0] == "log" {
		cmd = NewLogCmd(backendFn, outputFn)
		args = args[1:]
	}
	cmd.SetArgs(args)
	cmd.SetOut(&h.stderr)
	cmd.SetErr(&h.stderr)
	return cmd.ExecuteContext(context.Background())
}

func waitingTask() domain.Task {
	return *domain.NewTask("shop", "daily", domain.ItemListed, time.Now(), time.Now().Add(time.Hour))
}

// --- Tests ---

func TestTaskCreate(t *testing.T) {
	h := newHarness()

	err := h.run(t, true, "create", "--owner", "shop", "--source", "instock",
		"--start", "2030-01-02 10:00", "--end", "2030-01-02 12:00")
	require.NoError(t, err)

	require.Len(t, h.tasks.created, 1)
	got := h.tasks.created[0]
	assert.Equal(t, "shop", got.Owner)
	assert.Equal(t, domain.ItemUnlisted, got.Source)
	assert.Equal(t, domain.StatusWaiting, got.Status)
	assert.Equal(t, 2*time.Hour, got.Deadline().Sub(got.StartTime))

	var printed domain.Task
	require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &printed))
	assert.Equal(t, got.ID, printed.ID)
}

func TestTaskCreate_Validation(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"bad source", []string{"--source", "sold", "--end", "2030-01-02 12:00"}},
		{"bad end", []string{"--end", "tomorrow"}},
		{"end before start", []string{"--start", "2030-01-02 12:00", "--end", "2030-01-02 11:00"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			args := append([]string{"create", "--owner", "shop"}, tt.args...)
			assert.Error(t, h.run(t, false, args...))
			assert.Empty(t, h.tasks.created)
		})
	}
}

func TestTaskStart(t *testing.T) {
	task := waitingTask()
	h := newHarness(task)

	require.NoError(t, h.run(t, false, "start", task.ID.String()))

	assert.Equal(t, domain.StatusQueued, h.tasks.Snapshot(task.ID).Status)
	assert.Contains(t, h.stderr.String(), "Task queued")
}

func TestTaskStart_NotWaiting(t *testing.T) {
	task := waitingTask()
	task.Status = domain.StatusExecuting
	h := newHarness(task)

	err := h.run(t, false, "start", task.ID.String())
	assert.ErrorIs(t, err, ErrNotWaiting)
}

func TestTaskStart_PublishFailure(t *testing.T) {
	task := waitingTask()
	h := newHarness(task)
	h.enqueuer.err = errors.New("broker down")

	assert.Error(t, h.run(t, false, "start", task.ID.String()))
	assert.Equal(t, domain.StatusWaiting, h.tasks.Snapshot(task.ID).Status)
}

func TestTaskStop(t *testing.T) {
	id := uuid.New()
	h := newHarness()

	require.NoError(t, h.run(t, false, "stop", id.String()))
	assert.Equal(t, []uuid.UUID{id}, h.stopper.stopped)
}

func TestTaskShow_InvalidID(t *testing.T) {
	h := newHarness()
	assert.Error(t, h.run(t, false, "show", "not-a-uuid"))
}

func TestTaskList_Table(t *testing.T) {
	task := waitingTask()
	h := newHarness(task)

	require.NoError(t, h.run(t, false, "list", "--owner", "shop"))

	out := h.stdout.String()
	assert.Contains(t, out, "STATUS")
	assert.Contains(t, out, task.ID.String())
	assert.Contains(t, out, domain.StatusWaiting)
}

func TestTaskCreate_RejectsOverlappingWindow(t *testing.T) {
	h := newHarness()
	create := func(owner, start, end string) error {
		return h.run(t, false, "create", "--owner", owner, "--start", start, "--end", end)
	}

	require.NoError(t, create("shop", "2030-01-02 10:00", "2030-01-02 12:00"))

	err := create("shop", "2030-01-02 11:00", "2030-01-02 13:00")
	assert.ErrorIs(t, err, ErrTaskOverlap)

	err = create("shop", "2030-01-02 09:00", "2030-01-02 14:00")
	assert.ErrorIs(t, err, ErrTaskOverlap, "window covering an existing one")

	require.NoError(t, create("shop", "2030-01-02 12:00", "2030-01-02 13:00"), "adjacent window")
	require.NoError(t, create("other", "2030-01-02 10:30", "2030-01-02 11:30"), "another seller")

	assert.Len(t, h.tasks.created, 3)
}

func TestTaskCreate_OverlapWithUnboundedTask(t *testing.T) {
	start := time.Date(2030, 1, 2, 8, 0, 0, 0, time.Local)
	unbounded := domain.Task{ID: uuid.New(), Owner: "shop", StartTime: start, Status: domain.StatusExecuting}
	h := newHarness(unbounded)

	err := h.run(t, false, "create", "--owner", "shop",
		"--start", "2030-01-05 10:00", "--end", "2030-01-05 12:00")
	assert.ErrorIs(t, err, ErrTaskOverlap)
	assert.Empty(t, h.tasks.created)
}

func TestTaskDelete(t *testing.T) {
	tests := []struct {
		name    string
		status  string
		wantErr error
	}{
		{"waiting", domain.StatusWaiting, nil},
		{"finished", domain.FinishedStatus(12), nil},
		{"queued", domain.StatusQueued, ErrTaskRunning},
		{"reading", domain.StatusReading, ErrTaskRunning},
		{"executing", domain.StatusExecuting, ErrTaskRunning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := waitingTask()
			task.Status = tt.status
			h := newHarness(task)

			err := h.run(t, false, "delete", task.ID.String())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				_, getErr := h.tasks.Get(context.Background(), task.ID)
				assert.NoError(t, getErr, "running task must survive")
				return
			}

			require.NoError(t, err)
			_, getErr := h.tasks.Get(context.Background(), task.ID)
			assert.ErrorIs(t, getErr, workertest.ErrNotFound)
			assert.Contains(t, h.stderr.String(), "Task deleted")
		})
	}
}

func TestLog(t *testing.T) {
	h := newHarness()

	require.NoError(t, h.run(t, false, "log", "--owner", "shop"))
	assert.Contains(t, h.stdout.String(), "job started")
}
