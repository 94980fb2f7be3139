package domain

import (
	"context"
	"time"
)

// ClockEntry is one work session of a user on a job. A nil TimeOut means the
// session is still open.
type ClockEntry struct {
	ID       int64      `json:"id"`
	UserID   int64      `json:"userId"`
	JobID    int64      `json:"jobId"`
	DateKey  int        `json:"dateKey"`
	WeekKey  int        `json:"weekKey"`
	MonthKey int        `json:"monthKey"`
	TimeIn   time.Time  `json:"timeIn"`
	TimeOut  *time.Time `json:"timeOut"`
	TimeSpan int64      `json:"timeSpan"`
}

// NewClockEntry builds an open entry with bucket keys derived from timeIn.
func NewClockEntry(userID, jobID int64, timeIn time.Time) ClockEntry {
	return ClockEntry{
		UserID:   userID,
		JobID:    jobID,
		DateKey:  DateKey(timeIn),
		WeekKey:  WeekKey(timeIn),
		MonthKey: MonthKey(timeIn),
		TimeIn:   timeIn,
	}
}

// Open reports whether the entry has not been clocked out yet.
func (c *ClockEntry) Open() bool {
	return c.TimeOut == nil
}

// Close sets TimeOut and recomputes TimeSpan in whole seconds. It fails with
// ErrNonPositiveSpan and leaves the entry untouched when out is not after TimeIn.
func (c *ClockEntry) Close(out time.Time) error {
	span, err := SpanSeconds(c.TimeIn, out)
	if err != nil {
		return err
	}
	c.TimeOut = &out
	c.TimeSpan = span
	return nil
}

// Elapsed returns the seconds worked so far: TimeSpan for closed entries,
// now - TimeIn for open ones.
func (c *ClockEntry) Elapsed(now time.Time) int64 {
	if !c.Open() {
		return c.TimeSpan
	}
	if now.Before(c.TimeIn) {
		return 0
	}
	return int64(now.Sub(c.TimeIn) / time.Second)
}

// SpanSeconds returns out - in in whole seconds.
func SpanSeconds(in, out time.Time) (int64, error) {
	if !out.After(in) {
		return 0, ErrNonPositiveSpan
	}
	return int64(out.Sub(in) / time.Second), nil
}

// Journal is an immutable note attached to a clock entry.
type Journal struct {
	ID      int64     `json:"id"`
	ClockID int64     `json:"clockId"`
	Time    time.Time `json:"time"`
	Entry   string    `json:"entry"`
}

// ClockFilter selects clock entries. Zero-valued fields are ignored.
type ClockFilter struct {
	UserID   int64
	JobID    int64
	DateKey  int
	WeekKey  int
	MonthKey int
	// After and Before are exclusive bounds on TimeIn.
	After    time.Time
	Before   time.Time
	OpenOnly bool
	// NewestFirst orders by TimeIn descending instead of ascending.
	NewestFirst bool
	Limit       int
}

// ClockRepository is the port for clock entry persistence. Implementations
// report uniqueness violations as ErrStoreConflict.
type ClockRepository interface {
	CreateClock(ctx context.Context, c ClockEntry) (int64, error)
	GetClock(ctx context.Context, id int64) (*ClockEntry, error)
	CloseClock(ctx context.Context, id int64, timeOut time.Time, span int64) error
	// ReopenClock clears the clock-out time and span of an entry.
	ReopenClock(ctx context.Context, id int64) error
	// DeleteClock removes an entry and its journals.
	DeleteClock(ctx context.Context, id int64) error
	ListClocks(ctx context.Context, f ClockFilter) ([]ClockEntry, error)
	SumSpans(ctx context.Context, f ClockFilter) (int64, error)
}

// JournalRepository is the port for journal persistence.
type JournalRepository interface {
	AddJournal(ctx context.Context, clockID int64, at time.Time, entry string) (int64, error)
	ListJournals(ctx context.Context, clockID int64) ([]Journal, error)
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns the same instant.
type FixedClock time.Time

// Now returns the fixed instant.
func (c FixedClock) Now() time.Time { return time.Time(c) }
