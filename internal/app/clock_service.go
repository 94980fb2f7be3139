package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"clok/internal/domain"
)

// ClockService runs the clock-in/clock-out lifecycle and journal attachment.
// Check-then-write sequences are serialized per (user, job) inside the
// process; stores back this up with a unique index on open entries.
type ClockService struct {
	clocks   domain.ClockRepository
	journals domain.JournalRepository
	users    domain.UserRepository
	jobs     domain.JobRepository
	settings
	locks *keyLock
}

// NewClockService creates a ClockService backed by the given repositories.
func NewClockService(clocks domain.ClockRepository, journals domain.JournalRepository, users domain.UserRepository, jobs domain.JobRepository, opts ...Option) *ClockService {
	return &ClockService{
		clocks:   clocks,
		journals: journals,
		users:    users,
		jobs:     jobs,
		settings: newSettings(opts),
		locks:    newKeyLock(),
	}
}

// ClockIn opens a new entry for the user on the job. A zero jobID means the
// user's active job and a zero when means now.
func (s *ClockService) ClockIn(ctx context.Context, userID, jobID int64, when time.Time) (*domain.ClockEntry, error) {
	user, err := loadUser(ctx, s.users, userID)
	if err != nil {
		return nil, err
	}
	job, err := resolveJob(ctx, s.jobs, user, jobID)
	if err != nil {
		return nil, err
	}
	when = s.instant(when)

	unlock := s.locks.Lock(user.ID, job.ID)
	defer unlock()

	open, err := s.findOpen(ctx, user.ID, job.ID)
	if err != nil {
		return nil, err
	}
	if open != nil {
		return nil, domain.ErrAlreadyClockedIn
	}

	entry := domain.NewClockEntry(user.ID, job.ID, when)
	id, err := s.clocks.CreateClock(ctx, entry)
	if err != nil {
		return nil, fmt.Errorf("clock in: %w", err)
	}
	entry.ID = id

	if err := s.users.SetActiveClock(ctx, user.ID, &id); err != nil {
		if derr := s.clocks.DeleteClock(ctx, id); derr != nil {
			return nil, fmt.Errorf("clock in: set active clock: %w (undo: %v)", err, derr)
		}
		return nil, fmt.Errorf("clock in: set active clock: %w", err)
	}
	return &entry, nil
}

// ClockOut closes the user's open entry on the job. A zero jobID means the
// user's active job. The user's active-clock pointer is cleared when it
// points at the closed entry.
func (s *ClockService) ClockOut(ctx context.Context, userID, jobID int64, when time.Time) (*domain.ClockEntry, error) {
	user, err := loadUser(ctx, s.users, userID)
	if err != nil {
		return nil, err
	}
	if jobID == 0 && user.ActiveJobID == nil {
		return nil, domain.ErrNoOpenSession
	}
	job, err := resolveJob(ctx, s.jobs, user, jobID)
	if err != nil {
		return nil, err
	}
	when = s.instant(when)

	unlock := s.locks.Lock(user.ID, job.ID)
	defer unlock()

	entry, err := s.findOpen(ctx, user.ID, job.ID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, domain.ErrNoOpenSession
	}

	closed := *entry
	if err := closed.Close(when); err != nil {
		return nil, err
	}
	if err := s.clocks.CloseClock(ctx, closed.ID, *closed.TimeOut, closed.TimeSpan); err != nil {
		return nil, fmt.Errorf("clock out: %w", err)
	}

	if err := s.releasePointer(ctx, user.ID, closed.ID); err != nil {
		if rerr := s.clocks.ReopenClock(ctx, closed.ID); rerr != nil {
			return nil, fmt.Errorf("clock out: %w (undo: %v)", err, rerr)
		}
		return nil, fmt.Errorf("clock out: %w", err)
	}
	return &closed, nil
}

// releasePointer clears the user's active clock if it is clockID.
func (s *ClockService) releasePointer(ctx context.Context, userID, clockID int64) error {
	current, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if current == nil || current.ActiveClockID == nil || *current.ActiveClockID != clockID {
		return nil
	}
	if err := s.users.SetActiveClock(ctx, userID, nil); err != nil {
		return fmt.Errorf("clear active clock: %w", err)
	}
	return nil
}

// RecordSession stores an already finished session in one step. It does not
// move the user's pointers.
func (s *ClockService) RecordSession(ctx context.Context, userID, jobID int64, timeIn, timeOut time.Time) (*domain.ClockEntry, error) {
	if timeIn.IsZero() || timeOut.IsZero() {
		return nil, fmt.Errorf("%w: both times are required", domain.ErrInvalidTimestamp)
	}
	user, err := loadUser(ctx, s.users, userID)
	if err != nil {
		return nil, err
	}
	job, err := resolveJob(ctx, s.jobs, user, jobID)
	if err != nil {
		return nil, err
	}

	entry := domain.NewClockEntry(user.ID, job.ID, s.instant(timeIn))
	if err := entry.Close(s.instant(timeOut)); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(user.ID, job.ID)
	defer unlock()

	id, err := s.clocks.CreateClock(ctx, entry)
	if err != nil {
		return nil, fmt.Errorf("record session: %w", err)
	}
	entry.ID = id
	return &entry, nil
}

// OpenSession returns the open entry for the user on the job, or
// ErrNoOpenSession.
func (s *ClockService) OpenSession(ctx context.Context, userID, jobID int64) (*domain.ClockEntry, error) {
	user, err := loadUser(ctx, s.users, userID)
	if err != nil {
		return nil, err
	}
	if jobID == 0 && user.ActiveJobID == nil {
		return nil, domain.ErrNoOpenSession
	}
	job, err := resolveJob(ctx, s.jobs, user, jobID)
	if err != nil {
		return nil, err
	}
	entry, err := s.findOpen(ctx, user.ID, job.ID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, domain.ErrNoOpenSession
	}
	return entry, nil
}

// LastRecord returns the entry the user's active-clock pointer refers to,
// falling back to the most recent entry on the job. It returns nil when the
// user has no entries there.
func (s *ClockService) LastRecord(ctx context.Context, userID, jobID int64) (*domain.ClockEntry, error) {
	user, err := loadUser(ctx, s.users, userID)
	if err != nil {
		return nil, err
	}
	if user.ActiveClockID != nil {
		entry, err := s.clocks.GetClock(ctx, *user.ActiveClockID)
		if err != nil {
			return nil, err
		}
		if entry != nil && (jobID == 0 || entry.JobID == jobID) {
			return entry, nil
		}
	}
	if jobID == 0 && user.ActiveJobID == nil {
		return nil, nil
	}
	job, err := resolveJob(ctx, s.jobs, user, jobID)
	if err != nil {
		return nil, err
	}
	entries, err := s.clocks.ListClocks(ctx, domain.ClockFilter{
		UserID:      user.ID,
		JobID:       job.ID,
		NewestFirst: true,
		Limit:       1,
	})
	if err != nil || len(entries) == 0 {
		return nil, err
	}
	return &entries[0], nil
}

// Recent returns the user's most recent entries across all jobs.
func (s *ClockService) Recent(ctx context.Context, userID int64, limit int) ([]domain.ClockEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.clocks.ListClocks(ctx, domain.ClockFilter{UserID: userID, NewestFirst: true, Limit: limit})
}

// AddJournal attaches a note to one of the user's entries, open or closed.
// Every call stores a new row.
func (s *ClockService) AddJournal(ctx context.Context, userID, clockID int64, message string, when time.Time) (*domain.Journal, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, domain.ErrEmptyJournal
	}
	if _, err := s.ownedClock(ctx, userID, clockID); err != nil {
		return nil, err
	}

	when = s.instant(when)
	id, err := s.journals.AddJournal(ctx, clockID, when, message)
	if err != nil {
		return nil, fmt.Errorf("add journal: %w", err)
	}
	return &domain.Journal{ID: id, ClockID: clockID, Time: when, Entry: message}, nil
}

// Journals lists the notes of one of the user's entries, oldest first.
func (s *ClockService) Journals(ctx context.Context, userID, clockID int64) ([]domain.Journal, error) {
	if _, err := s.ownedClock(ctx, userID, clockID); err != nil {
		return nil, err
	}
	return s.journals.ListJournals(ctx, clockID)
}

func (s *ClockService) ownedClock(ctx context.Context, userID, clockID int64) (*domain.ClockEntry, error) {
	entry, err := s.clocks.GetClock(ctx, clockID)
	if err != nil {
		return nil, err
	}
	if entry == nil || entry.UserID != userID {
		return nil, domain.ErrClockNotFound
	}
	return entry, nil
}

func (s *ClockService) findOpen(ctx context.Context, userID, jobID int64) (*domain.ClockEntry, error) {
	entries, err := s.clocks.ListClocks(ctx, domain.ClockFilter{
		UserID:   userID,
		JobID:    jobID,
		OpenOnly: true,
		Limit:    1,
	})
	if err != nil || len(entries) == 0 {
		return nil, err
	}
	return &entries[0], nil
}

func loadUser(ctx context.Context, users domain.UserRepository, id int64) (*domain.User, error) {
	user, err := users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

// resolveJob returns the job the user addresses; zero means the active job.
func resolveJob(ctx context.Context, jobs domain.JobRepository, user *domain.User, jobID int64) (*domain.Job, error) {
	if jobID == 0 {
		if user.ActiveJobID == nil {
			return nil, domain.ErrJobNotFound
		}
		jobID = *user.ActiveJobID
	}
	job, err := jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil || job.UserID != user.ID {
		return nil, domain.ErrJobNotFound
	}
	return job, nil
}
