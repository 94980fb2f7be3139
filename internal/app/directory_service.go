package app

import (
	"context"
	"errors"
	"fmt"

	"clok/internal/domain"
)

// DirectoryService owns jobs and the per-user active job and active clock
// pointers.
type DirectoryService struct {
	users    domain.UserRepository
	jobs     domain.JobRepository
	clocks   domain.ClockRepository
	journals domain.JournalRepository
}

// NewDirectoryService creates a DirectoryService backed by the given repositories.
func NewDirectoryService(users domain.UserRepository, jobs domain.JobRepository, clocks domain.ClockRepository, journals domain.JournalRepository) *DirectoryService {
	return &DirectoryService{users: users, jobs: jobs, clocks: clocks, journals: journals}
}

// User returns the user or ErrUserNotFound.
func (s *DirectoryService) User(ctx context.Context, userID int64) (*domain.User, error) {
	return loadUser(ctx, s.users, userID)
}

// UserByName returns the user with the given login name or ErrUserNotFound.
func (s *DirectoryService) UserByName(ctx context.Context, username string) (*domain.User, error) {
	user, err := s.users.GetByUsername(ctx, domain.NormalizeUsername(username))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

// SetActiveJob points the user at job. Open sessions are left alone.
func (s *DirectoryService) SetActiveJob(ctx context.Context, userID, jobID int64) (*domain.Job, error) {
	user, err := loadUser(ctx, s.users, userID)
	if err != nil {
		return nil, err
	}
	if jobID == 0 {
		return nil, domain.ErrJobNotFound
	}
	job, err := resolveJob(ctx, s.jobs, user, jobID)
	if err != nil {
		return nil, err
	}
	if err := s.users.SetActiveJob(ctx, user.ID, &job.ID); err != nil {
		return nil, err
	}
	return job, nil
}

// ClearActiveSession drops the user's active-clock pointer.
func (s *DirectoryService) ClearActiveSession(ctx context.Context, userID int64) error {
	if _, err := loadUser(ctx, s.users, userID); err != nil {
		return err
	}
	return s.users.SetActiveClock(ctx, userID, nil)
}

// CreateJob adds a job for the user. Names are canonicalized and unique per
// user.
func (s *DirectoryService) CreateJob(ctx context.Context, userID int64, name string) (*domain.Job, error) {
	user, err := loadUser(ctx, s.users, userID)
	if err != nil {
		return nil, err
	}
	name, err = domain.CanonicalJobName(name)
	if err != nil {
		return nil, err
	}
	job, err := s.jobs.CreateJob(ctx, user.ID, name)
	if errors.Is(err, domain.ErrStoreConflict) {
		return nil, domain.ErrJobExists
	}
	return job, err
}

// JobByName looks up one of the user's jobs by name.
func (s *DirectoryService) JobByName(ctx context.Context, userID int64, name string) (*domain.Job, error) {
	name, err := domain.CanonicalJobName(name)
	if err != nil {
		return nil, domain.ErrJobNotFound
	}
	job, err := s.jobs.GetJobByName(ctx, userID, name)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, domain.ErrJobNotFound
	}
	return job, nil
}

// ListJobs returns the user's jobs ordered by name.
func (s *DirectoryService) ListJobs(ctx context.Context, userID int64) ([]domain.Job, error) {
	if _, err := loadUser(ctx, s.users, userID); err != nil {
		return nil, err
	}
	return s.jobs.ListJobs(ctx, userID)
}

// RenameJob changes the name of one of the user's jobs.
func (s *DirectoryService) RenameJob(ctx context.Context, userID, jobID int64, name string) (*domain.Job, error) {
	user, err := loadUser(ctx, s.users, userID)
	if err != nil {
		return nil, err
	}
	if jobID == 0 {
		return nil, domain.ErrJobNotFound
	}
	job, err := resolveJob(ctx, s.jobs, user, jobID)
	if err != nil {
		return nil, err
	}
	name, err = domain.CanonicalJobName(name)
	if err != nil {
		return nil, err
	}
	if err := s.jobs.RenameJob(ctx, job.ID, name); err != nil {
		if errors.Is(err, domain.ErrStoreConflict) {
			return nil, domain.ErrJobExists
		}
		return nil, err
	}
	job.Name = name
	return job, nil
}

// ExportedClock is a clock entry together with its journal notes.
type ExportedClock struct {
	domain.ClockEntry
	Journals []domain.Journal `json:"journals"`
}

// Export is a full dump of one user's data.
type Export struct {
	User   *domain.User    `json:"user"`
	Jobs   []domain.Job    `json:"jobs"`
	Clocks []ExportedClock `json:"clocks"`
}

// Export collects the user, their jobs and every clock entry with journals.
func (s *DirectoryService) Export(ctx context.Context, userID int64) (*Export, error) {
	user, err := loadUser(ctx, s.users, userID)
	if err != nil {
		return nil, err
	}
	jobs, err := s.jobs.ListJobs(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("export jobs: %w", err)
	}
	entries, err := s.clocks.ListClocks(ctx, domain.ClockFilter{UserID: user.ID})
	if err != nil {
		return nil, fmt.Errorf("export clocks: %w", err)
	}

	out := &Export{User: user, Jobs: jobs, Clocks: make([]ExportedClock, 0, len(entries))}
	for _, e := range entries {
		journals, err := s.journals.ListJournals(ctx, e.ID)
		if err != nil {
			return nil, fmt.Errorf("export journals: %w", err)
		}
		if journals == nil {
			journals = []domain.Journal{}
		}
		out.Clocks = append(out.Clocks, ExportedClock{ClockEntry: e, Journals: journals})
	}
	return out, nil
}
