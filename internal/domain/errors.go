package domain

import "errors"

var (
	// ErrAlreadyClockedIn indicates an open entry already exists for the user and job.
	ErrAlreadyClockedIn = errors.New("already clocked in")
	// ErrNoOpenSession indicates there is no open entry to close.
	ErrNoOpenSession = errors.New("no open clock session")
	// ErrNonPositiveSpan indicates a clock-out time at or before the clock-in time.
	ErrNonPositiveSpan = errors.New("clock out must be after clock in")
	// ErrInvalidTimestamp indicates a timestamp or bucket key that could not be parsed.
	ErrInvalidTimestamp = errors.New("invalid timestamp")
	// ErrJobNotFound indicates the job does not exist or belongs to another user.
	ErrJobNotFound = errors.New("job not found")
	// ErrUserNotFound indicates the user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrClockNotFound indicates the clock entry does not exist or belongs to another user.
	ErrClockNotFound = errors.New("clock entry not found")
	// ErrStoreConflict is returned by stores when a write violates a uniqueness
	// constraint. ClockIn and ClockOut may be retried once.
	ErrStoreConflict = errors.New("store conflict")
	// ErrEmptyJournal indicates a journal message with no text.
	ErrEmptyJournal = errors.New("journal entry is empty")
	// ErrJobExists indicates the user already owns a job with that name.
	ErrJobExists = errors.New("job already exists")
	// ErrInvalidJobName indicates an empty or oversized job name.
	ErrInvalidJobName = errors.New("invalid job name")
)
