package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"clok/internal/adapter/memory"
	"clok/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day1 = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

// writeCounter records the write calls that reach the store.
type writeCounter struct {
	*memory.DB
	mu     sync.Mutex
	writes int
}

func (w *writeCounter) bump() {
	w.mu.Lock()
	w.writes++
	w.mu.Unlock()
}

func (w *writeCounter) CreateClock(ctx context.Context, c domain.ClockEntry) (int64, error) {
	w.bump()
	return w.DB.CreateClock(ctx, c)
}

func (w *writeCounter) CloseClock(ctx context.Context, id int64, out time.Time, span int64) error {
	w.bump()
	return w.DB.CloseClock(ctx, id, out, span)
}

func (w *writeCounter) SetActiveClock(ctx context.Context, userID int64, clockID *int64) error {
	w.bump()
	return w.DB.SetActiveClock(ctx, userID, clockID)
}

func (w *writeCounter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writes
}

type fixture struct {
	store   *writeCounter
	clock   *ClockService
	reports *ReportService
	dir     *DirectoryService
	user    *domain.User
	job     *domain.Job
}

// newFixture wires the services over an in-memory store with one user whose
// active job is "acme". now is what a zero time resolves to.
func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	ctx := context.Background()
	store := &writeCounter{DB: memory.New()}
	opts := []Option{WithClock(domain.FixedClock(now)), WithLocation(time.UTC)}

	f := &fixture{
		store:   store,
		clock:   NewClockService(store, store, store, store, opts...),
		reports: NewReportService(store, store, store, opts...),
		dir:     NewDirectoryService(store, store, store, store),
	}

	var err error
	f.user, err = store.Create(ctx, "alice", "")
	require.NoError(t, err)
	f.job, err = f.dir.CreateJob(ctx, f.user.ID, "acme")
	require.NoError(t, err)
	_, err = f.dir.SetActiveJob(ctx, f.user.ID, f.job.ID)
	require.NoError(t, err)
	return f
}

func (f *fixture) reload(t *testing.T) *domain.User {
	t.Helper()
	u, err := f.dir.User(context.Background(), f.user.ID)
	require.NoError(t, err)
	return u
}

func TestClockInOutScenario(t *testing.T) {
	f := newFixture(t, day1)
	ctx := context.Background()

	in, err := f.clock.ClockIn(ctx, f.user.ID, f.job.ID, day1)
	require.NoError(t, err)
	assert.True(t, in.Open())
	assert.Equal(t, 20240101, in.DateKey)
	assert.Equal(t, 202401, in.WeekKey)
	assert.Equal(t, 202401, in.MonthKey)
	assert.Zero(t, in.TimeSpan)

	u := f.reload(t)
	require.NotNil(t, u.ActiveClockID)
	assert.Equal(t, in.ID, *u.ActiveClockID)

	out, err := f.clock.ClockOut(ctx, f.user.ID, f.job.ID, day1.Add(8*time.Hour))
	require.NoError(t, err)
	assert.False(t, out.Open())
	assert.Equal(t, int64(28800), out.TimeSpan)

	total, err := f.reports.HoursForDay(ctx, f.user.ID, 20240101, domain.Scope{})
	require.NoError(t, err)
	assert.Equal(t, int64(28800), total)
}

func TestClockInTwiceFails(t *testing.T) {
	f := newFixture(t, day1)
	ctx := context.Background()

	_, err := f.clock.ClockIn(ctx, f.user.ID, f.job.ID, day1)
	require.NoError(t, err)

	_, err = f.clock.ClockIn(ctx, f.user.ID, f.job.ID, day1.Add(time.Hour))
	assert.ErrorIs(t, err, domain.ErrAlreadyClockedIn)

	open, err := f.store.ListClocks(ctx, domain.ClockFilter{UserID: f.user.ID, JobID: f.job.ID, OpenOnly: true})
	require.NoError(t, err)
	assert.Len(t, open, 1, "exactly one open entry per user and job")
}

func TestClockInOnAnotherJob(t *testing.T) {
	f := newFixture(t, day1)
	ctx := context.Background()
	other, err := f.dir.CreateJob(ctx, f.user.ID, "side project")
	require.NoError(t, err)

	_, err = f.clock.ClockIn(ctx, f.user.ID, f.job.ID, day1)
	require.NoError(t, err)
	_, err = f.clock.ClockIn(ctx, f.user.ID, other.ID, day1)
	assert.NoError(t, err, "open sessions are tracked per job")
}

func TestClockOutBeforeClockInKeepsEntryOpen(t *testing.T) {
	f := newFixture(t, day1)
	ctx := context.Background()

	in, err := f.clock.ClockIn(ctx, f.user.ID, f.job.ID, day1)
	require.NoError(t, err)

	_, err = f.clock.ClockOut(ctx, f.user.ID, f.job.ID, day1.Add(-time.Minute))
	assert.ErrorIs(t, err, domain.ErrNonPositiveSpan)

	_, err = f.clock.ClockOut(ctx, f.user.ID, f.job.ID, day1)
	assert.ErrorIs(t, err, domain.ErrNonPositiveSpan, "a zero-length session is rejected too")

	stored, err := f.store.GetClock(ctx, in.ID)
	require.NoError(t, err)
	assert.True(t, stored.Open())
	assert.Zero(t, stored.TimeSpan)
	assert.True(t, stored.TimeIn.Equal(in.TimeIn))
}

func TestClockOutWithoutOpenSessionWritesNothing(t *testing.T) {
	f := newFixture(t, day1)
	ctx := context.Background()
	before := f.store.count()

	_, err := f.clock.ClockOut(ctx, f.user.ID, f.job.ID, day1)
	assert.ErrorIs(t, err, domain.ErrNoOpenSession)
	assert.Equal(t, before, f.store.count())
}

func TestClockOutWithoutActiveJob(t *testing.T) {
	f := newFixture(t, day1)
	ctx := context.Background()
	u, err := f.store.Create(ctx, "bob", "")
	require.NoError(t, err)

	_, err = f.clock.ClockOut(ctx, u.ID, 0, day1)
	assert.ErrorIs(t, err, domain.ErrNoOpenSession)

	_, err = f.clock.ClockIn(ctx, u.ID, 0, day1)
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
}

func TestSpanIsExactSeconds(t *testing.T) {
	f := newFixture(t, day1)
	ctx := context.Background()

	for i, d := range []time.Duration{time.Second, 59 * time.Second, 3*time.Hour + 17*time.Second, 36 * time.Hour} {
		start := day1.AddDate(0, 0, 3*i)
		_, err := f.clock.ClockIn(ctx, f.user.ID, f.job.ID, start)
		require.NoError(t, err)
		out, err := f.clock.ClockOut(ctx, f.user.ID, f.job.ID, start.Add(d))
		require.NoError(t, err)
		assert.Equal(t, int64(d/time.Second), out.TimeSpan)
	}
}

func TestTimesAreTruncatedToSeconds(t *testing.T) {
	f := newFixture(t, day1)
	ctx := context.Background()

	in, err := f.clock.ClockIn(ctx, f.user.ID, f.job.ID, day1.Add(400*time.Millisecond))
	require.NoError(t, err)
	assert.True(t, in.TimeIn.Equal(day1))

	out, err := f.clock.ClockOut(ctx, f.user.ID, f.job.ID, day1.Add(time.Minute+900*time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, int64(60), out.TimeSpan)
}

func TestZeroTimeUsesClock(t *testing.T) {
	f := newFixture(t, day1)
	ctx := context.Background()

	in, err := f.clock.ClockIn(ctx, f.user.ID, 0, time.Time{})
	require.NoError(t, err)
	assert.True(t, in.TimeIn.Equal(day1))
	assert.Equal(t, f.job.ID, in.JobID, "zero job means the active job")
}

func TestActiveClockPointerPolicy(t *testing.T) {
	f := newFixture(t, day1)
	ctx := context.Background()

	in, err := f.clock.ClockIn(ctx, f.user.ID, 0, day1)
	require.NoError(t, err)
	_, err = f.clock.ClockOut(ctx, f.user.ID, 0, day1.Add(time.Hour))
	require.NoError(t, err)

	u := f.reload(t)
	assert.Nil(t, u.ActiveClockID, "clock out clears the pointer to the closed entry")

	last, err := f.clock.LastRecord(ctx, f.user.ID, 0)
	require.NoError(t, err)
	require.NotNil(t, last, "last record falls back to the newest entry")
	assert.Equal(t, in.ID, last.ID)
	assert.False(t, last.Open())
}

func TestClockOutLeavesPointerToOtherJob(t *testing.T) {
	f := newFixture(t, day1)
	ctx := context.Background()
	other, err := f.dir.CreateJob(ctx, f.user.ID, "other")
	require.NoError(t, err)

	_, err = f.clock.ClockIn(ctx, f.user.ID, f.job.ID, day1)
	require.NoError(t, err)
	second, err := f.clock.ClockIn(ctx, f.user.ID, other.ID, day1.Add(time.Minute))
	require.NoError(t, err)

	_, err = f.clock.ClockOut(ctx, f.user.ID, f.job.ID, day1.Add(time.Hour))
	require.NoError(t, err)

	u := f.reload(t)
	require.NotNil(t, u.ActiveClockID)
	assert.Equal(t, second.ID, *u.ActiveClockID)
}

func TestOpenSession(t *testing.T) {
	f := newFixture(t, day1)
	ctx := context.Background()

	_, err := f.clock.OpenSession(ctx, f.user.ID, 0)
	assert.ErrorIs(t, err, domain.ErrNoOpenSession)

	in, err := f.clock.ClockIn(ctx, f.user.ID, 0, day1)
	require.NoError(t, err)
	open, err := f.clock.OpenSession(ctx, f.user.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, in.ID, open.ID)
}

func TestRecordSession(t *testing.T) {
	f := newFixture(t, day1)
	ctx := context.Background()

	e, err := f.clock.RecordSession(ctx, f.user.ID, 0, day1, day1.Add(90*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(5400), e.TimeSpan)
	assert.Nil(t, f.reload(t).ActiveClockID, "recorded sessions do not move the pointer")

	_, err = f.clock.RecordSession(ctx, f.user.ID, 0, day1, day1.Add(90*time.Minute))
	assert.ErrorIs(t, err, domain.ErrStoreConflict, "same session twice violates the natural key")

	_, err = f.clock.RecordSession(ctx, f.user.ID, 0, day1, day1)
	assert.ErrorIs(t, err, domain.ErrNonPositiveSpan)

	_, err = f.clock.RecordSession(ctx, f.user.ID, 0, time.Time{}, day1)
	assert.ErrorIs(t, err, domain.ErrInvalidTimestamp)
}

func TestUnknownUserAndJob(t *testing.T) {
	f := newFixture(t, day1)
	ctx := context.Background()

	_, err := f.clock.ClockIn(ctx, 999, f.job.ID, day1)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = f.clock.ClockIn(ctx, f.user.ID, 999, day1)
	assert.ErrorIs(t, err, domain.ErrJobNotFound)

	// Another user's job is not addressable.
	bob, err := f.store.Create(ctx, "bob", "")
	require.NoError(t, err)
	_, err = f.clock.ClockIn(ctx, bob.ID, f.job.ID, day1)
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
}

func TestConcurrentClockInCreatesOneEntry(t *testing.T) {
	f := newFixture(t, day1)
	ctx := context.Background()

	const n = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok, dupes int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.clock.ClockIn(ctx, f.user.ID, f.job.ID, day1.Add(time.Duration(i)*time.Second))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, domain.ErrAlreadyClockedIn):
				dupes++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, dupes)
}

func TestJournals(t *testing.T) {
	f := newFixture(t, day1)
	ctx := context.Background()

	in, err := f.clock.ClockIn(ctx, f.user.ID, 0, day1)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		j, err := f.clock.AddJournal(ctx, f.user.ID, in.ID, "  same note  ", time.Time{})
		require.NoError(t, err)
		assert.Equal(t, "same note", j.Entry)
		assert.True(t, j.Time.Equal(day1))
	}

	_, err = f.clock.ClockOut(ctx, f.user.ID, 0, day1.Add(time.Hour))
	require.NoError(t, err)
	_, err = f.clock.AddJournal(ctx, f.user.ID, in.ID, "after close", day1.Add(2*time.Hour))
	require.NoError(t, err, "closed entries accept notes")

	journals, err := f.clock.Journals(ctx, f.user.ID, in.ID)
	require.NoError(t, err)
	require.Len(t, journals, 4, "repeated notes never collapse")
	assert.Equal(t, "after close", journals[3].Entry)

	_, err = f.clock.AddJournal(ctx, f.user.ID, in.ID, "   ", time.Time{})
	assert.ErrorIs(t, err, domain.ErrEmptyJournal)

	_, err = f.clock.AddJournal(ctx, f.user.ID, 999, "x", time.Time{})
	assert.ErrorIs(t, err, domain.ErrClockNotFound)

	bob, err := f.store.Create(ctx, "bob", "")
	require.NoError(t, err)
	_, err = f.clock.AddJournal(ctx, bob.ID, in.ID, "not mine", time.Time{})
	assert.ErrorIs(t, err, domain.ErrClockNotFound)
}

func TestRecent(t *testing.T) {
	f := newFixture(t, day1)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		start := day1.AddDate(0, 0, i)
		_, err := f.clock.RecordSession(ctx, f.user.ID, 0, start, start.Add(time.Hour))
		require.NoError(t, err)
	}

	recent, err := f.clock.Recent(ctx, f.user.ID, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.True(t, recent[0].TimeIn.Equal(day1.AddDate(0, 0, 2)))
}

var errDiskFull = errors.New("disk full")

// brokenPointer fails every active-clock write while broken is set.
type brokenPointer struct {
	*memory.DB
	broken bool
}

func (b *brokenPointer) SetActiveClock(ctx context.Context, userID int64, clockID *int64) error {
	if b.broken {
		return errDiskFull
	}
	return b.DB.SetActiveClock(ctx, userID, clockID)
}

func newBrokenPointerService(f *fixture) (*brokenPointer, *ClockService) {
	store := &brokenPointer{DB: f.store.DB}
	return store, NewClockService(store, store, store, store, WithClock(domain.FixedClock(day1)), WithLocation(time.UTC))
}

func TestClockInUndoneWhenPointerWriteFails(t *testing.T) {
	f := newFixture(t, day1)
	ctx := context.Background()
	store, svc := newBrokenPointerService(f)

	store.broken = true
	_, err := svc.ClockIn(ctx, f.user.ID, 0, time.Time{})
	require.ErrorIs(t, err, errDiskFull)

	open, err := f.store.ListClocks(ctx, domain.ClockFilter{UserID: f.user.ID, OpenOnly: true})
	require.NoError(t, err)
	assert.Empty(t, open)
	assert.Nil(t, f.reload(t).ActiveClockID)

	store.broken = false
	entry, err := svc.ClockIn(ctx, f.user.ID, 0, time.Time{})
	require.NoError(t, err)
	require.NotNil(t, f.reload(t).ActiveClockID)
	assert.Equal(t, entry.ID, *f.reload(t).ActiveClockID)
}

func TestClockOutUndoneWhenPointerWriteFails(t *testing.T) {
	f := newFixture(t, day1)
	ctx := context.Background()
	store, svc := newBrokenPointerService(f)

	in, err := svc.ClockIn(ctx, f.user.ID, 0, day1)
	require.NoError(t, err)

	store.broken = true
	_, err = svc.ClockOut(ctx, f.user.ID, 0, day1.Add(time.Hour))
	require.ErrorIs(t, err, errDiskFull)

	stored, err := f.store.GetClock(ctx, in.ID)
	require.NoError(t, err)
	assert.True(t, stored.Open())
	assert.Zero(t, stored.TimeSpan)

	store.broken = false
	out, err := svc.ClockOut(ctx, f.user.ID, 0, day1.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, in.ID, out.ID)
	assert.Equal(t, int64(3600), out.TimeSpan)
	assert.Nil(t, f.reload(t).ActiveClockID)
}
