package worker

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keepalive9s/taobao/internal/domain"
	"github.com/keepalive9s/taobao/internal/worker/workertest"
)

var noBackoff = []time.Duration{0}

func newTask(end time.Time) domain.Task {
	return domain.Task{
		ID:          uuid.New(),
		Owner:       "seller",
		Description: "daily",
		Source:      domain.ItemListed,
		EndTime:     &end,
		Status:      domain.StatusReading,
	}
}

type fixture struct {
	task    domain.Task
	catalog *workertest.Catalog
	toggler *workertest.Toggler
	tasks   *workertest.TaskStore
	counter *workertest.Counter
	journal *workertest.Journal
	stop    *StopSignal
}

func newFixture(items []domain.Item, end time.Time) *fixture {
	task := newTask(end)
	return &fixture{
		task:    task,
		catalog: workertest.NewCatalog(items),
		toggler: &workertest.Toggler{},
		tasks:   workertest.NewTaskStore(task),
		counter: workertest.NewCounter(),
		journal: &workertest.Journal{},
		stop:    &StopSignal{},
	}
}

func (f *fixture) worker(pages PageRange) *Worker {
	return New(Config{
		Partition: 1,
		Pages:     pages,
		PageSize:  2,
		Task:      f.task,
		Catalog:   f.catalog,
		Toggler:   f.toggler,
		Tasks:     f.tasks,
		Counter:   f.counter,
		Journal:   f.journal,
		Monitor:   NewDeadlineMonitor(f.tasks, f.task.ID, f.stop),
		Backoff:   noBackoff,
	})
}

// expireAfter сокращает EndTime task'а на n-м чтении.
func (f *fixture) expireAfter(n int64) {
	f.tasks.OnGet = func(gets int64) {
		if gets == n {
			f.tasks.Update(f.task.ID, func(t *domain.Task) { t.Stop(time.Now().Add(-time.Second)) })
		}
	}
}

// --- RateController Tests ---

func TestRateController_PauseGrowsWithFailures(t *testing.T) {
	toggler := &workertest.Toggler{Reject: func(int64, domain.Item) bool { return true }}
	rc := NewRateController(toggler, "seller", nil, nil)

	var slept []time.Duration
	rc.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	item := &domain.Item{NumIID: 1, ApproveStatus: domain.ItemListed}
	for n := 0; n < 5; n++ {
		ok, err := rc.Toggle(context.Background(), item)
		require.NoError(t, err)
		assert.False(t, ok)
	}

	assert.Equal(t, []time.Duration{
		400 * time.Millisecond,
		2500 * time.Millisecond,
		4 * time.Second,
		6 * time.Second,
		6 * time.Second,
	}, slept)
	assert.Equal(t, 5, rc.Failures())
	assert.Equal(t, domain.ItemListed, item.ApproveStatus, "rejected toggle must not change status")
}

func TestRateController_SuccessResetsFailures(t *testing.T) {
	reject := true
	toggler := &workertest.Toggler{Reject: func(int64, domain.Item) bool { return reject }}
	rc := NewRateController(toggler, "seller", noBackoff, nil)
	item := &domain.Item{NumIID: 1, ApproveStatus: domain.ItemUnlisted}

	for n := 0; n < 3; n++ {
		_, _ = rc.Toggle(context.Background(), item)
	}
	require.Equal(t, 3, rc.Failures())

	reject = false
	ok, err := rc.Toggle(context.Background(), item)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0, rc.Failures())
	assert.Equal(t, domain.ItemListed, item.ApproveStatus)
	assert.Equal(t, int64(4), toggler.Lists())
}

func TestRateController_OtherStateIsNoop(t *testing.T) {
	toggler := &workertest.Toggler{}
	rc := NewRateController(toggler, "seller", noBackoff, nil)
	item := &domain.Item{NumIID: 1, ApproveStatus: "sold_out"}

	ok, err := rc.Toggle(context.Background(), item)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(0), toggler.Calls())
	assert.Equal(t, 0, rc.Failures())
}

func TestRateController_CancelledDuringPause(t *testing.T) {
	toggler := &workertest.Toggler{}
	rc := NewRateController(toggler, "seller", []time.Duration{time.Hour}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := rc.Toggle(ctx, &domain.Item{ApproveStatus: domain.ItemListed})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(0), toggler.Calls())
}

// --- Snapshot Tests ---

func TestSnapshot_RecordOnce(t *testing.T) {
	s := NewSnapshot()

	assert.True(t, s.Record(domain.Item{NumIID: 7, ApproveStatus: domain.ItemListed}))
	assert.False(t, s.Record(domain.Item{NumIID: 7, ApproveStatus: domain.ItemUnlisted}))

	orig, ok := s.Original(7)
	require.True(t, ok)
	assert.Equal(t, domain.ItemListed, orig)
	assert.Equal(t, 1, s.Len())

	assert.True(t, s.Drifted(domain.Item{NumIID: 7, ApproveStatus: domain.ItemUnlisted}))
	assert.False(t, s.Drifted(domain.Item{NumIID: 7, ApproveStatus: domain.ItemListed}))
	assert.False(t, s.Drifted(domain.Item{NumIID: 8, ApproveStatus: domain.ItemListed}))
}

// --- DeadlineMonitor Tests ---

func TestDeadlineMonitor_ExpiredRaisesSignal(t *testing.T) {
	f := newFixture(nil, time.Now().Add(-time.Minute))
	m := NewDeadlineMonitor(f.tasks, f.task.ID, f.stop)

	stop, err := m.ShouldStop(context.Background())
	require.NoError(t, err)
	assert.True(t, stop)
	assert.True(t, f.stop.Stopped())
}

func TestDeadlineMonitor_NotExpired(t *testing.T) {
	f := newFixture(nil, time.Now().Add(time.Hour))
	m := NewDeadlineMonitor(f.tasks, f.task.ID, f.stop)

	stop, err := m.ShouldStop(context.Background())
	require.NoError(t, err)
	assert.False(t, stop)
	assert.False(t, f.stop.Stopped())
}

func TestDeadlineMonitor_RaisedSignalSkipsStore(t *testing.T) {
	f := newFixture(nil, time.Now().Add(time.Hour))
	reads := 0
	f.tasks.OnGet = func(int64) { reads++ }
	f.stop.Raise()

	stop, err := NewDeadlineMonitor(f.tasks, f.task.ID, f.stop).ShouldStop(context.Background())
	require.NoError(t, err)
	assert.True(t, stop)
	assert.Equal(t, 0, reads)
}

func TestDeadlineMonitor_CancelledContext(t *testing.T) {
	f := newFixture(nil, time.Now().Add(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stop, err := NewDeadlineMonitor(f.tasks, f.task.ID, f.stop).ShouldStop(ctx)
	require.NoError(t, err)
	assert.True(t, stop)
	assert.True(t, f.stop.Stopped())
}

func TestDeadlineMonitor_StoreError(t *testing.T) {
	f := newFixture(nil, time.Now().Add(time.Hour))

	_, err := NewDeadlineMonitor(f.tasks, uuid.New(), f.stop).ShouldStop(context.Background())
	assert.ErrorIs(t, err, ErrDeadlineCheck)
	assert.ErrorIs(t, err, workertest.ErrNotFound)
}

// --- Worker Tests ---

func TestWorker_EmptyPartition(t *testing.T) {
	f := newFixture(workertest.Items(3, domain.ItemListed), time.Now().Add(time.Hour))

	res := f.worker(PageRange{Start: 1, End: 0}).Run(context.Background())

	require.NoError(t, res.Err)
	assert.Equal(t, 0, res.Fetched)
	assert.Empty(t, f.catalog.FetchedPages())
	assert.Equal(t, int64(0), f.toggler.Calls())
}

func TestWorker_CycleCountedOnce(t *testing.T) {
	f := newFixture(workertest.Items(1, domain.ItemListed), time.Now().Add(time.Hour))
	f.expireAfter(2)

	res := f.worker(PageRange{Start: 1, End: 1}).Run(context.Background())

	require.NoError(t, res.Err)
	assert.Equal(t, 1, res.Cycles)
	assert.Equal(t, int64(1), f.toggler.Delists())
	assert.Equal(t, int64(1), f.toggler.Lists())

	v, _ := f.counter.Value(f.task.ID.String())
	assert.Equal(t, int64(1), v)
	assert.Equal(t, 0, res.Recovered, "item is back in its original state")
}

func TestWorker_RescansListUntilStopped(t *testing.T) {
	f := newFixture(workertest.Items(2, domain.ItemUnlisted), time.Now().Add(time.Hour))
	// 2 товара × 3 прохода, затем стоп на 7-м чтении
	f.expireAfter(7)

	res := f.worker(PageRange{Start: 1, End: 1}).Run(context.Background())

	require.NoError(t, res.Err)
	assert.Equal(t, 6, res.Cycles)
	assert.Equal(t, int64(12), f.toggler.Calls())
	assert.True(t, f.stop.Stopped())
}

func TestWorker_DeadlineAlreadyPassed(t *testing.T) {
	f := newFixture(workertest.Items(4, domain.ItemListed), time.Now().Add(-time.Minute))

	res := f.worker(PageRange{Start: 1, End: 2}).Run(context.Background())

	require.NoError(t, res.Err)
	assert.Equal(t, 4, res.Fetched)
	assert.Equal(t, 0, res.Cycles)
	assert.Equal(t, int64(0), f.toggler.Calls())
	assert.Equal(t, 0, res.Recovered)
	assert.Contains(t, f.tasks.Statuses(), domain.StatusExecuting)
}

func TestWorker_SiblingStopPreventsNewItems(t *testing.T) {
	f := newFixture(workertest.Items(2, domain.ItemListed), time.Now().Add(time.Hour))
	f.stop.Raise()

	res := f.worker(PageRange{Start: 1, End: 1}).Run(context.Background())

	require.NoError(t, res.Err)
	assert.Equal(t, int64(0), f.toggler.Calls())
}

func TestWorker_FetchFailureStillRecovers(t *testing.T) {
	f := newFixture(workertest.Items(5, domain.ItemListed), time.Now().Add(time.Hour))
	f.catalog.FailOnPage(2)

	res := f.worker(PageRange{Start: 1, End: 3}).Run(context.Background())

	assert.ErrorIs(t, res.Err, ErrFetchFailed)
	assert.Equal(t, 2, res.Fetched, "first page stays in the list")
	assert.Equal(t, int64(0), f.toggler.Calls())
	assert.Len(t, f.journal.Entries(f.task.JournalCategory()), 3) // started, aborted, recovering
}

func TestWorker_HalfCycleIsRecovered(t *testing.T) {
	f := newFixture(workertest.Items(1, domain.ItemListed), time.Now().Add(time.Hour))
	// снятие принимается, выставление отклоняется, пока не поднят стоп
	f.toggler.Reject = func(_ int64, item domain.Item) bool {
		return item.ApproveStatus == domain.ItemUnlisted && !f.stop.Stopped()
	}
	f.expireAfter(2)

	res := f.worker(PageRange{Start: 1, End: 1}).Run(context.Background())

	require.NoError(t, res.Err)
	assert.Equal(t, 0, res.Cycles)
	assert.Equal(t, 1, res.Recovered)
	assert.Len(t, f.journal.Entries(CategoryRestored), 1)

	v, _ := f.counter.Value(f.task.ID.String())
	assert.Equal(t, int64(1), v, "recovery toggle is counted")
}

func TestWorker_CancelledContextStillRecovers(t *testing.T) {
	f := newFixture(workertest.Items(1, domain.ItemListed), time.Now().Add(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())

	f.toggler.Reject = func(call int64, _ domain.Item) bool {
		if call == 1 {
			cancel()
			return false
		}
		return false
	}

	res := f.worker(PageRange{Start: 1, End: 1}).Run(ctx)

	require.NoError(t, res.Err)
	assert.Equal(t, 1, res.Recovered)
	assert.True(t, f.stop.Stopped())
}

// --- Recovery Tests ---

func TestRecover_MatchingSnapshotIsNoop(t *testing.T) {
	f := newFixture(workertest.Items(3, domain.ItemListed), time.Now().Add(time.Hour))
	w := f.worker(PageRange{Start: 1, End: 2})
	require.NoError(t, w.fetch(context.Background()))

	var res Result
	w.recover(context.Background(), &res)

	assert.Equal(t, int64(0), f.toggler.Calls())
	assert.Equal(t, 0, res.Recovered)
	assert.Equal(t, 0, res.RecoveryFailed)
}

func TestRecover_TwoAttemptsThenGivesUp(t *testing.T) {
	f := newFixture(workertest.Items(2, domain.ItemListed), time.Now().Add(time.Hour))
	f.toggler.Reject = func(int64, domain.Item) bool { return true }

	w := f.worker(PageRange{Start: 1, End: 1})
	require.NoError(t, w.fetch(context.Background()))
	for i := range w.items {
		w.items[i].ApproveStatus = domain.ItemUnlisted
	}

	var res Result
	w.recover(context.Background(), &res)

	assert.Equal(t, int64(4), f.toggler.Lists(), "two attempts per item")
	assert.Equal(t, 2, res.RecoveryFailed)
	assert.Len(t, f.journal.Entries(CategoryRestoreFailed), 6) // 2 попытки + итог на товар
	assert.Empty(t, f.journal.Entries(CategoryRestored))
}

func TestRecover_SecondAttemptSucceeds(t *testing.T) {
	f := newFixture(workertest.Items(1, domain.ItemUnlisted), time.Now().Add(time.Hour))
	f.toggler.Reject = func(call int64, _ domain.Item) bool { return call == 1 }

	w := f.worker(PageRange{Start: 1, End: 1})
	require.NoError(t, w.fetch(context.Background()))
	w.items[0].ApproveStatus = domain.ItemListed

	var res Result
	w.recover(context.Background(), &res)

	assert.Equal(t, 1, res.Recovered)
	assert.Equal(t, domain.ItemUnlisted, w.items[0].ApproveStatus)
	assert.Len(t, f.journal.Entries(CategoryRestoreFailed), 1)
}

func TestWorker_DuplicateItemsAcrossPages(t *testing.T) {
	items := workertest.Items(2, domain.ItemListed)
	items = append(items, items[1])
	f := newFixture(items, time.Now().Add(-time.Minute))

	res := f.worker(PageRange{Start: 1, End: 2}).Run(context.Background())

	require.NoError(t, res.Err)
	assert.Equal(t, 2, res.Fetched)
}

func TestPageRange(t *testing.T) {
	assert.True(t, PageRange{Start: 1, End: 0}.Empty())
	assert.Equal(t, 0, PageRange{Start: 1, End: 0}.Pages())
	assert.Equal(t, 2, PageRange{Start: 1, End: 2}.Pages())
	assert.Equal(t, "3-5", PageRange{Start: 3, End: 5}.String())
}
