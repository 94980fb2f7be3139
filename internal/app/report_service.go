package app

import (
	"context"
	"fmt"
	"time"

	"clok/internal/domain"
)

const maxDailyDays = 366

// ReportService sums clocked time by calendar bucket or time range. It only
// reads from the store.
type ReportService struct {
	clocks domain.ClockRepository
	users  domain.UserRepository
	jobs   domain.JobRepository
	settings
}

// NewReportService creates a ReportService backed by the given repositories.
func NewReportService(clocks domain.ClockRepository, users domain.UserRepository, jobs domain.JobRepository, opts ...Option) *ReportService {
	return &ReportService{clocks: clocks, users: users, jobs: jobs, settings: newSettings(opts)}
}

// DayTotal is a single day returned by Daily.
type DayTotal struct {
	Day     string  `json:"day"`
	DateKey int     `json:"dateKey"`
	Seconds int64   `json:"seconds"`
	Hours   float64 `json:"hours"`
}

// Summary holds the current day, week and month totals plus the open
// session, if any. OpenElapsed is not included in the totals.
type Summary struct {
	Now         time.Time          `json:"now"`
	Today       int64              `json:"today"`
	Week        int64              `json:"week"`
	Month       int64              `json:"month"`
	Open        *domain.ClockEntry `json:"open"`
	OpenElapsed int64              `json:"openElapsed"`
}

// HoursForDay returns the seconds clocked on the day identified by key
// (YYYYMMDD). A zero key means today.
func (s *ReportService) HoursForDay(ctx context.Context, userID int64, key int, scope domain.Scope) (int64, error) {
	return s.hoursFor(ctx, userID, domain.Day, key, scope)
}

// HoursForWeek returns the seconds clocked in the ISO week identified by key
// (YYYYWW). A zero key means the current week.
func (s *ReportService) HoursForWeek(ctx context.Context, userID int64, key int, scope domain.Scope) (int64, error) {
	return s.hoursFor(ctx, userID, domain.Week, key, scope)
}

// HoursForMonth returns the seconds clocked in the month identified by key
// (YYYYMM). A zero key means the current month.
func (s *ReportService) HoursForMonth(ctx context.Context, userID int64, key int, scope domain.Scope) (int64, error) {
	return s.hoursFor(ctx, userID, domain.Month, key, scope)
}

// HoursFor dispatches on the period.
func (s *ReportService) HoursFor(ctx context.Context, userID int64, p domain.Period, key int, scope domain.Scope) (int64, error) {
	return s.hoursFor(ctx, userID, p, key, scope)
}

// HoursForRange returns the seconds of entries whose clock-in time lies
// strictly between start and end.
func (s *ReportService) HoursForRange(ctx context.Context, userID int64, start, end time.Time, scope domain.Scope) (int64, error) {
	if start.IsZero() || end.IsZero() {
		return 0, fmt.Errorf("%w: range needs start and end", domain.ErrInvalidTimestamp)
	}
	f, ok, err := s.filter(ctx, userID, scope)
	if err != nil || !ok {
		return 0, err
	}
	if !end.After(start) {
		return 0, nil
	}
	f.After = start
	f.Before = end
	return s.clocks.SumSpans(ctx, f)
}

// Daily returns per-day totals for the last days days, oldest first.
func (s *ReportService) Daily(ctx context.Context, userID int64, days int, scope domain.Scope) ([]DayTotal, error) {
	if days < 1 {
		days = 1
	}
	if days > maxDailyDays {
		days = maxDailyDays
	}
	f, ok, err := s.filter(ctx, userID, scope)
	if err != nil {
		return nil, err
	}

	today := s.instant(time.Time{})
	points := make([]DayTotal, 0, days)
	for i := days - 1; i >= 0; i-- {
		d := today.AddDate(0, 0, -i)
		p := DayTotal{Day: d.Format("2006-01-02"), DateKey: domain.DateKey(d)}
		if ok {
			f.DateKey = p.DateKey
			p.Seconds, err = s.clocks.SumSpans(ctx, f)
			if err != nil {
				return nil, err
			}
		}
		p.Hours = domain.Hours(p.Seconds)
		points = append(points, p)
	}
	return points, nil
}

// Summary returns the totals for the current day, week and month together
// with the open session and its elapsed time.
func (s *ReportService) Summary(ctx context.Context, userID int64, scope domain.Scope) (*Summary, error) {
	now := s.instant(time.Time{})
	out := &Summary{Now: now}

	f, ok, err := s.filter(ctx, userID, scope)
	if err != nil || !ok {
		return out, err
	}

	day, week, month := f, f, f
	day.DateKey = domain.DateKey(now)
	week.WeekKey = domain.WeekKey(now)
	month.MonthKey = domain.MonthKey(now)
	if out.Today, err = s.clocks.SumSpans(ctx, day); err != nil {
		return nil, err
	}
	if out.Week, err = s.clocks.SumSpans(ctx, week); err != nil {
		return nil, err
	}
	if out.Month, err = s.clocks.SumSpans(ctx, month); err != nil {
		return nil, err
	}

	open := f
	open.OpenOnly = true
	open.NewestFirst = true
	open.Limit = 1
	entries, err := s.clocks.ListClocks(ctx, open)
	if err != nil {
		return nil, err
	}
	if len(entries) > 0 {
		out.Open = &entries[0]
		out.OpenElapsed = out.Open.Elapsed(now)
	}
	return out, nil
}

func (s *ReportService) hoursFor(ctx context.Context, userID int64, p domain.Period, key int, scope domain.Scope) (int64, error) {
	if key == 0 {
		key = p.KeyFor(s.instant(time.Time{}))
	} else if !domain.ValidKey(p, key) {
		return 0, fmt.Errorf("%w: bad %s key %d", domain.ErrInvalidTimestamp, p, key)
	}
	f, ok, err := s.filter(ctx, userID, scope)
	if err != nil || !ok {
		return 0, err
	}
	switch p {
	case domain.Week:
		f.WeekKey = key
	case domain.Month:
		f.MonthKey = key
	default:
		f.DateKey = key
	}
	return s.clocks.SumSpans(ctx, f)
}

// filter builds the base filter for the scope. ok is false when the user has
// no active job and the scope names none, in which case every sum is zero.
// A named job that is missing or owned by someone else is ErrJobNotFound.
func (s *ReportService) filter(ctx context.Context, userID int64, scope domain.Scope) (domain.ClockFilter, bool, error) {
	user, err := loadUser(ctx, s.users, userID)
	if err != nil {
		return domain.ClockFilter{}, false, err
	}
	f := domain.ClockFilter{UserID: user.ID}
	if scope.AllJobs {
		return f, true, nil
	}
	if scope.JobID == 0 && user.ActiveJobID == nil {
		return f, false, nil
	}
	job, err := resolveJob(ctx, s.jobs, user, scope.JobID)
	if err != nil {
		return domain.ClockFilter{}, false, err
	}
	f.JobID = job.ID
	return f, true, nil
}
