// Package memory implements an in-memory repository for development and testing.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"clok/internal/domain"
)

// DB implements an in-memory database storage. It enforces the same
// uniqueness rules as the SQL schema and reports violations as
// domain.ErrStoreConflict.
type DB struct {
	mu       sync.Mutex
	users    []*domain.User
	jobs     []domain.Job
	clocks   []domain.ClockEntry
	journals []domain.Journal
	sessions map[string]*domain.Session

	userIDCounter    int64
	jobIDCounter     int64
	clockIDCounter   int64
	journalIDCounter int64
}

// New creates a new in-memory database.
func New() *DB {
	return &DB{
		sessions: make(map[string]*domain.Session),
	}
}

// Ensure interfaces are met.
var _ domain.ClockRepository = (*DB)(nil)
var _ domain.JournalRepository = (*DB)(nil)
var _ domain.JobRepository = (*DB)(nil)
var _ domain.UserRepository = (*DB)(nil)
var _ domain.SessionRepository = (*SessionRepo)(nil)

// --- ClockRepository ---

// CreateClock stores a new clock entry.
func (db *DB) CreateClock(ctx context.Context, c domain.ClockEntry) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, e := range db.clocks {
		if e.UserID != c.UserID || e.JobID != c.JobID {
			continue
		}
		// One open session per (user, job).
		if e.Open() && c.Open() {
			return 0, domain.ErrStoreConflict
		}
		// Natural key (job, user, time_in, time_out).
		if e.TimeIn.Equal(c.TimeIn) && sameTimeOut(e.TimeOut, c.TimeOut) {
			return 0, domain.ErrStoreConflict
		}
	}

	db.clockIDCounter++
	c.ID = db.clockIDCounter
	c.TimeIn = c.TimeIn.UTC()
	if c.TimeOut != nil {
		out := c.TimeOut.UTC()
		c.TimeOut = &out
	}
	db.clocks = append(db.clocks, c)
	return c.ID, nil
}

// GetClock retrieves a clock entry by ID.
func (db *DB) GetClock(ctx context.Context, id int64) (*domain.ClockEntry, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for i := range db.clocks {
		if db.clocks[i].ID == id {
			c := db.clocks[i]
			return &c, nil
		}
	}
	return nil, nil
}

// CloseClock sets the clock-out time and span of an entry.
func (db *DB) CloseClock(ctx context.Context, id int64, timeOut time.Time, span int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for i := range db.clocks {
		c := &db.clocks[i]
		if c.ID != id {
			continue
		}
		out := timeOut.UTC()
		for _, e := range db.clocks {
			if e.ID != id && e.UserID == c.UserID && e.JobID == c.JobID &&
				e.TimeIn.Equal(c.TimeIn) && sameTimeOut(e.TimeOut, &out) {
				return domain.ErrStoreConflict
			}
		}
		c.TimeOut = &out
		c.TimeSpan = span
		return nil
	}
	return domain.ErrClockNotFound
}

// ReopenClock clears the clock-out time and span of an entry.
func (db *DB) ReopenClock(ctx context.Context, id int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for i := range db.clocks {
		c := &db.clocks[i]
		if c.ID != id {
			continue
		}
		for _, e := range db.clocks {
			if e.ID != id && e.UserID == c.UserID && e.JobID == c.JobID && e.Open() {
				return domain.ErrStoreConflict
			}
		}
		c.TimeOut = nil
		c.TimeSpan = 0
		return nil
	}
	return domain.ErrClockNotFound
}

// DeleteClock removes an entry and its journals.
func (db *DB) DeleteClock(ctx context.Context, id int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for i := range db.clocks {
		if db.clocks[i].ID != id {
			continue
		}
		db.clocks = append(db.clocks[:i], db.clocks[i+1:]...)
		kept := db.journals[:0]
		for _, j := range db.journals {
			if j.ClockID != id {
				kept = append(kept, j)
			}
		}
		db.journals = kept
		return nil
	}
	return domain.ErrClockNotFound
}

// ListClocks returns the entries matching f ordered by clock-in time, then ID.
func (db *DB) ListClocks(ctx context.Context, f domain.ClockFilter) ([]domain.ClockEntry, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	result := make([]domain.ClockEntry, 0)
	for _, c := range db.clocks {
		if matches(c, f) {
			result = append(result, c)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if f.NewestFirst {
			a, b = b, a
		}
		if !a.TimeIn.Equal(b.TimeIn) {
			return a.TimeIn.Before(b.TimeIn)
		}
		return a.ID < b.ID
	})

	if f.Limit > 0 && len(result) > f.Limit {
		result = result[:f.Limit]
	}
	return result, nil
}

// SumSpans returns the total span of the entries matching f.
func (db *DB) SumSpans(ctx context.Context, f domain.ClockFilter) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var total int64
	for _, c := range db.clocks {
		if matches(c, f) {
			total += c.TimeSpan
		}
	}
	return total, nil
}

func matches(c domain.ClockEntry, f domain.ClockFilter) bool {
	switch {
	case f.UserID != 0 && c.UserID != f.UserID:
		return false
	case f.JobID != 0 && c.JobID != f.JobID:
		return false
	case f.DateKey != 0 && c.DateKey != f.DateKey:
		return false
	case f.WeekKey != 0 && c.WeekKey != f.WeekKey:
		return false
	case f.MonthKey != 0 && c.MonthKey != f.MonthKey:
		return false
	case !f.After.IsZero() && !c.TimeIn.After(f.After):
		return false
	case !f.Before.IsZero() && !c.TimeIn.Before(f.Before):
		return false
	case f.OpenOnly && !c.Open():
		return false
	}
	return true
}

func sameTimeOut(a, b *time.Time) bool {
	if a == nil || b == nil {
		// NULLs never collide in a SQL unique constraint.
		return false
	}
	return a.Equal(*b)
}

// --- JournalRepository ---

// AddJournal appends a journal note to a clock entry.
func (db *DB) AddJournal(ctx context.Context, clockID int64, at time.Time, entry string) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	found := false
	for _, c := range db.clocks {
		if c.ID == clockID {
			found = true
			break
		}
	}
	if !found {
		return 0, domain.ErrClockNotFound
	}

	db.journalIDCounter++
	db.journals = append(db.journals, domain.Journal{
		ID:      db.journalIDCounter,
		ClockID: clockID,
		Time:    at.UTC(),
		Entry:   entry,
	})
	return db.journalIDCounter, nil
}

// ListJournals returns the journals of a clock entry, oldest first.
func (db *DB) ListJournals(ctx context.Context, clockID int64) ([]domain.Journal, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	result := make([]domain.Journal, 0)
	for _, j := range db.journals {
		if j.ClockID == clockID {
			result = append(result, j)
		}
	}
	sort.SliceStable(result, func(i, k int) bool {
		return result[i].Time.Before(result[k].Time)
	})
	return result, nil
}

// --- JobRepository ---

// CreateJob creates a job owned by userID.
func (db *DB) CreateJob(ctx context.Context, userID int64, name string) (*domain.Job, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, j := range db.jobs {
		if j.UserID == userID && j.Name == name {
			return nil, domain.ErrStoreConflict
		}
	}

	db.jobIDCounter++
	j := domain.Job{ID: db.jobIDCounter, UserID: userID, Name: name}
	db.jobs = append(db.jobs, j)
	return &j, nil
}

// GetJob retrieves a job by ID.
func (db *DB) GetJob(ctx context.Context, id int64) (*domain.Job, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, j := range db.jobs {
		if j.ID == id {
			return &j, nil
		}
	}
	return nil, nil
}

// GetJobByName retrieves one of the user's jobs by name.
func (db *DB) GetJobByName(ctx context.Context, userID int64, name string) (*domain.Job, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, j := range db.jobs {
		if j.UserID == userID && j.Name == name {
			return &j, nil
		}
	}
	return nil, nil
}

// ListJobs lists the user's jobs ordered by name.
func (db *DB) ListJobs(ctx context.Context, userID int64) ([]domain.Job, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	result := make([]domain.Job, 0)
	for _, j := range db.jobs {
		if j.UserID == userID {
			result = append(result, j)
		}
	}
	sort.Slice(result, func(i, k int) bool {
		return result[i].Name < result[k].Name
	})
	return result, nil
}

// RenameJob changes a job's name.
func (db *DB) RenameJob(ctx context.Context, id int64, name string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	idx := -1
	for i, j := range db.jobs {
		if j.ID == id {
			idx = i
		}
	}
	if idx == -1 {
		return domain.ErrJobNotFound
	}
	for _, j := range db.jobs {
		if j.ID != id && j.UserID == db.jobs[idx].UserID && j.Name == name {
			return domain.ErrStoreConflict
		}
	}
	db.jobs[idx].Name = name
	return nil
}

// --- UserRepository ---

// GetByUsername retrieves a user by username.
func (db *DB) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.Username == username {
			return copyUser(u), nil
		}
	}
	// Return nil if not found
	return nil, nil
}

// GetByID retrieves a user by ID.
func (db *DB) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.ID == id {
			return copyUser(u), nil
		}
	}
	return nil, nil
}

// Create creates a new user.
func (db *DB) Create(ctx context.Context, username, passwordHash string) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.Username == username {
			return nil, domain.ErrStoreConflict
		}
	}

	db.userIDCounter++
	u := &domain.User{
		ID:           db.userIDCounter,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	db.users = append(db.users, u)
	return copyUser(u), nil
}

// Count returns the total number of users.
func (db *DB) Count(ctx context.Context) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.users), nil
}

// SetActiveJob updates the user's active job pointer.
func (db *DB) SetActiveJob(ctx context.Context, userID int64, jobID *int64) error {
	return db.updateUser(userID, func(u *domain.User) { u.ActiveJobID = copyID(jobID) })
}

// SetActiveClock updates the user's active clock pointer.
func (db *DB) SetActiveClock(ctx context.Context, userID int64, clockID *int64) error {
	return db.updateUser(userID, func(u *domain.User) { u.ActiveClockID = copyID(clockID) })
}

// TouchLogin records the time of the user's last login.
func (db *DB) TouchLogin(ctx context.Context, userID int64, at time.Time) error {
	at = at.UTC()
	return db.updateUser(userID, func(u *domain.User) { u.LastLogin = &at })
}

func (db *DB) updateUser(id int64, fn func(*domain.User)) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.ID == id {
			fn(u)
			return nil
		}
	}
	return domain.ErrUserNotFound
}

// copyUser returns a detached copy so callers cannot mutate stored pointers.
func copyUser(u *domain.User) *domain.User {
	c := *u
	c.ActiveJobID = copyID(u.ActiveJobID)
	c.ActiveClockID = copyID(u.ActiveClockID)
	if u.LastLogin != nil {
		t := *u.LastLogin
		c.LastLogin = &t
	}
	return &c
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

// --- SessionRepository ---

// SessionRepo implements session persistence.
type SessionRepo struct {
	db *DB
}

// NewSessionRepo creates a new session repository.
func (db *DB) NewSessionRepo() *SessionRepo {
	return &SessionRepo{db: db}
}

// Create creates a new session.
func (r *SessionRepo) Create(ctx context.Context, userID int64, token, userAgent, ip string, expiresAt time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.sessions[token] = &domain.Session{
		Token:     token,
		UserID:    userID,
		UserAgent: userAgent,
		IP:        ip,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}
	return nil
}

// GetByToken retrieves a session by token.
func (r *SessionRepo) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if s, ok := r.db.sessions[token]; ok {
		c := *s
		return &c, nil
	}
	return nil, nil
}

// Delete deletes a session.
func (r *SessionRepo) Delete(ctx context.Context, token string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.sessions, token)
	return nil
}

// DeleteExpired deletes all expired sessions.
func (r *SessionRepo) DeleteExpired(ctx context.Context) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	now := time.Now()
	for k, v := range r.db.sessions {
		if now.After(v.ExpiresAt) {
			delete(r.db.sessions, k)
		}
	}
	return nil
}
