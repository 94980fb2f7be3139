package app

import (
	"context"
	"testing"
	"time"

	"clok/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedReports records sessions on 2024-01-01 (Monday) and the following days
// across two jobs and leaves one session open.
func seedReports(t *testing.T, f *fixture) *domain.Job {
	t.Helper()
	ctx := context.Background()
	other, err := f.dir.CreateJob(ctx, f.user.ID, "other")
	require.NoError(t, err)

	sessions := []struct {
		job      int64
		in       time.Time
		duration time.Duration
	}{
		{f.job.ID, day1, 2 * time.Hour},
		{f.job.ID, day1.Add(3 * time.Hour), time.Hour},
		{other.ID, day1.Add(5 * time.Hour), 30 * time.Minute},
		{f.job.ID, day1.AddDate(0, 0, 2), 4 * time.Hour},
		{f.job.ID, day1.AddDate(0, 0, 7), time.Hour},
		{f.job.ID, day1.AddDate(0, 1, 0), time.Hour},
	}
	for _, s := range sessions {
		_, err := f.clock.RecordSession(ctx, f.user.ID, s.job, s.in, s.in.Add(s.duration))
		require.NoError(t, err)
	}

	_, err = f.clock.ClockIn(ctx, f.user.ID, f.job.ID, day1.Add(8*time.Hour))
	require.NoError(t, err)
	return other
}

func TestHoursForDay(t *testing.T) {
	f := newFixture(t, day1.Add(9*time.Hour))
	ctx := context.Background()
	other := seedReports(t, f)

	got, err := f.reports.HoursForDay(ctx, f.user.ID, 20240101, domain.Scope{})
	require.NoError(t, err)
	assert.Equal(t, int64(3*3600), got, "active job only, open entry contributes nothing")

	got, err = f.reports.HoursForDay(ctx, f.user.ID, 20240101, domain.Scope{AllJobs: true})
	require.NoError(t, err)
	assert.Equal(t, int64(3*3600+1800), got)

	got, err = f.reports.HoursForDay(ctx, f.user.ID, 20240101, domain.Scope{JobID: other.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1800), got)

	got, err = f.reports.HoursForDay(ctx, f.user.ID, 0, domain.Scope{})
	require.NoError(t, err)
	assert.Equal(t, int64(3*3600), got, "zero key means today")

	got, err = f.reports.HoursForDay(ctx, f.user.ID, 20230615, domain.Scope{AllJobs: true})
	require.NoError(t, err)
	assert.Zero(t, got, "empty set sums to zero")

	_, err = f.reports.HoursForDay(ctx, f.user.ID, 20241301, domain.Scope{})
	assert.ErrorIs(t, err, domain.ErrInvalidTimestamp)
}

func TestHoursForWeekAndMonth(t *testing.T) {
	f := newFixture(t, day1.Add(9*time.Hour))
	ctx := context.Background()
	seedReports(t, f)

	week, err := f.reports.HoursForWeek(ctx, f.user.ID, 202401, domain.Scope{})
	require.NoError(t, err)
	assert.Equal(t, int64(7*3600), week)

	week, err = f.reports.HoursFor(ctx, f.user.ID, domain.Week, 202402, domain.Scope{})
	require.NoError(t, err)
	assert.Equal(t, int64(3600), week)

	month, err := f.reports.HoursForMonth(ctx, f.user.ID, 0, domain.Scope{AllJobs: true})
	require.NoError(t, err)
	assert.Equal(t, int64(8*3600+1800), month)

	_, err = f.reports.HoursForWeek(ctx, f.user.ID, 202454, domain.Scope{})
	assert.ErrorIs(t, err, domain.ErrInvalidTimestamp)
}

func TestHoursWithoutActiveJob(t *testing.T) {
	f := newFixture(t, day1)
	ctx := context.Background()
	seedReports(t, f)

	bob, err := f.store.Create(ctx, "bob", "")
	require.NoError(t, err)
	got, err := f.reports.HoursForDay(ctx, bob.ID, 20240101, domain.Scope{})
	require.NoError(t, err)
	assert.Zero(t, got)

	_, err = f.reports.HoursForDay(ctx, 999, 20240101, domain.Scope{})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestHoursForUnknownOrForeignJob(t *testing.T) {
	f := newFixture(t, day1)
	ctx := context.Background()
	seedReports(t, f)

	_, err := f.reports.HoursForDay(ctx, f.user.ID, 20240101, domain.Scope{JobID: 9999})
	assert.ErrorIs(t, err, domain.ErrJobNotFound)

	bob, err := f.store.Create(ctx, "bob", "")
	require.NoError(t, err)
	bobs, err := f.dir.CreateJob(ctx, bob.ID, "side")
	require.NoError(t, err)
	_, err = f.reports.HoursForDay(ctx, f.user.ID, 20240101, domain.Scope{JobID: bobs.ID})
	assert.ErrorIs(t, err, domain.ErrJobNotFound)

	_, err = f.reports.Summary(ctx, f.user.ID, domain.Scope{JobID: 9999})
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
}

func TestHoursForRangeIsExclusive(t *testing.T) {
	f := newFixture(t, day1)
	ctx := context.Background()
	seedReports(t, f)

	// day1 itself is on the lower bound and so excluded.
	got, err := f.reports.HoursForRange(ctx, f.user.ID, day1, day1.AddDate(0, 0, 2), domain.Scope{})
	require.NoError(t, err)
	assert.Equal(t, int64(3600), got)

	got, err = f.reports.HoursForRange(ctx, f.user.ID, day1.Add(-time.Second), day1.AddDate(0, 0, 2).Add(time.Second), domain.Scope{})
	require.NoError(t, err)
	assert.Equal(t, int64(7*3600), got)

	got, err = f.reports.HoursForRange(ctx, f.user.ID, day1.AddDate(0, 0, 3), day1, domain.Scope{AllJobs: true})
	require.NoError(t, err)
	assert.Zero(t, got, "inverted range is empty")

	_, err = f.reports.HoursForRange(ctx, f.user.ID, time.Time{}, day1, domain.Scope{})
	assert.ErrorIs(t, err, domain.ErrInvalidTimestamp)
}

func TestDaily(t *testing.T) {
	f := newFixture(t, day1.AddDate(0, 0, 2).Add(12*time.Hour))
	ctx := context.Background()
	seedReports(t, f)

	points, err := f.reports.Daily(ctx, f.user.ID, 4, domain.Scope{})
	require.NoError(t, err)
	require.Len(t, points, 4)

	assert.Equal(t, "2023-12-31", points[0].Day)
	assert.Equal(t, 20231231, points[0].DateKey)
	assert.Zero(t, points[0].Seconds)
	assert.Equal(t, int64(3*3600), points[1].Seconds)
	assert.Equal(t, 3.0, points[1].Hours)
	assert.Zero(t, points[2].Seconds)
	assert.Equal(t, 20240103, points[3].DateKey)
	assert.Equal(t, int64(4*3600), points[3].Seconds)

	points, err = f.reports.Daily(ctx, f.user.ID, 0, domain.Scope{})
	require.NoError(t, err)
	assert.Len(t, points, 1)

	points, err = f.reports.Daily(ctx, f.user.ID, 10000, domain.Scope{})
	require.NoError(t, err)
	assert.Len(t, points, maxDailyDays)
}

func TestSummary(t *testing.T) {
	now := day1.Add(9*time.Hour + 15*time.Minute)
	f := newFixture(t, now)
	ctx := context.Background()
	seedReports(t, f)

	sum, err := f.reports.Summary(ctx, f.user.ID, domain.Scope{})
	require.NoError(t, err)
	assert.Equal(t, int64(3*3600), sum.Today)
	assert.Equal(t, int64(7*3600), sum.Week)
	assert.Equal(t, int64(8*3600), sum.Month)
	require.NotNil(t, sum.Open)
	assert.Equal(t, int64(75*60), sum.OpenElapsed)
	assert.True(t, sum.Now.Equal(now))
}
