package sqlstore

import (
	"context"
	"testing"
	"time"

	"clok/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// StoreTestSuite runs the repository contract against an in-memory SQLite database.
type StoreTestSuite struct {
	suite.Suite
	db   *DB
	ctx  context.Context
	user *domain.User
	job  *domain.Job
}

func (s *StoreTestSuite) SetupTest() {
	db, err := OpenSQLite(":memory:")
	require.NoError(s.T(), err, "failed to create test database")
	s.db = db
	s.ctx = context.Background()

	s.user, err = db.Create(s.ctx, "alice", "hash")
	require.NoError(s.T(), err)
	s.job, err = db.CreateJob(s.ctx, s.user.ID, "acme")
	require.NoError(s.T(), err)
}

func (s *StoreTestSuite) TearDownTest() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

func (s *StoreTestSuite) closed(in time.Time, d time.Duration) domain.ClockEntry {
	c := domain.NewClockEntry(s.user.ID, s.job.ID, in)
	require.NoError(s.T(), c.Close(in.Add(d)))
	return c
}

func (s *StoreTestSuite) TestOpenSessionIsUnique() {
	in := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	id, err := s.db.CreateClock(s.ctx, domain.NewClockEntry(s.user.ID, s.job.ID, in))
	require.NoError(s.T(), err)
	assert.NotZero(s.T(), id)

	_, err = s.db.CreateClock(s.ctx, domain.NewClockEntry(s.user.ID, s.job.ID, in.Add(time.Hour)))
	assert.ErrorIs(s.T(), err, domain.ErrStoreConflict)

	// Closing frees the slot.
	require.NoError(s.T(), s.db.CloseClock(s.ctx, id, in.Add(2*time.Hour), 7200))
	_, err = s.db.CreateClock(s.ctx, domain.NewClockEntry(s.user.ID, s.job.ID, in.Add(3*time.Hour)))
	assert.NoError(s.T(), err)
}

func (s *StoreTestSuite) TestNaturalKeyConflict() {
	in := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	c := s.closed(in, time.Hour)

	_, err := s.db.CreateClock(s.ctx, c)
	require.NoError(s.T(), err)
	_, err = s.db.CreateClock(s.ctx, c)
	assert.ErrorIs(s.T(), err, domain.ErrStoreConflict)
}

func (s *StoreTestSuite) TestGetAndCloseClock() {
	in := time.Date(2024, 3, 4, 22, 15, 0, 0, time.UTC)
	id, err := s.db.CreateClock(s.ctx, domain.NewClockEntry(s.user.ID, s.job.ID, in))
	require.NoError(s.T(), err)

	c, err := s.db.GetClock(s.ctx, id)
	require.NoError(s.T(), err)
	require.NotNil(s.T(), c)
	assert.True(s.T(), c.Open())
	assert.True(s.T(), c.TimeIn.Equal(in))
	assert.Equal(s.T(), 20240304, c.DateKey)
	assert.Equal(s.T(), 202410, c.WeekKey)
	assert.Equal(s.T(), 202403, c.MonthKey)

	out := in.Add(90 * time.Minute)
	require.NoError(s.T(), s.db.CloseClock(s.ctx, id, out, 5400))
	c, err = s.db.GetClock(s.ctx, id)
	require.NoError(s.T(), err)
	require.NotNil(s.T(), c.TimeOut)
	assert.True(s.T(), c.TimeOut.Equal(out))
	assert.Equal(s.T(), int64(5400), c.TimeSpan)

	missing, err := s.db.GetClock(s.ctx, 9999)
	assert.NoError(s.T(), err)
	assert.Nil(s.T(), missing)

	assert.ErrorIs(s.T(), s.db.CloseClock(s.ctx, 9999, out, 1), domain.ErrClockNotFound)
}

func (s *StoreTestSuite) TestReopenAndDeleteClock() {
	in := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	id, err := s.db.CreateClock(s.ctx, domain.NewClockEntry(s.user.ID, s.job.ID, in))
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.db.CloseClock(s.ctx, id, in.Add(time.Hour), 3600))

	require.NoError(s.T(), s.db.ReopenClock(s.ctx, id))
	c, err := s.db.GetClock(s.ctx, id)
	require.NoError(s.T(), err)
	assert.True(s.T(), c.Open())
	assert.Zero(s.T(), c.TimeSpan)

	_, err = s.db.AddJournal(s.ctx, id, in, "note")
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.db.DeleteClock(s.ctx, id))

	c, err = s.db.GetClock(s.ctx, id)
	require.NoError(s.T(), err)
	assert.Nil(s.T(), c)
	journals, err := s.db.ListJournals(s.ctx, id)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), journals)

	assert.ErrorIs(s.T(), s.db.ReopenClock(s.ctx, id), domain.ErrClockNotFound)
	assert.ErrorIs(s.T(), s.db.DeleteClock(s.ctx, id), domain.ErrClockNotFound)
}

func (s *StoreTestSuite) TestListAndSum() {
	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_, err := s.db.CreateClock(s.ctx, s.closed(base.Add(time.Duration(i)*time.Hour), 30*time.Minute))
		require.NoError(s.T(), err)
	}
	// A different day.
	_, err := s.db.CreateClock(s.ctx, s.closed(base.AddDate(0, 0, 1), time.Hour))
	require.NoError(s.T(), err)

	all, err := s.db.ListClocks(s.ctx, domain.ClockFilter{UserID: s.user.ID})
	require.NoError(s.T(), err)
	require.Len(s.T(), all, 4)
	assert.True(s.T(), all[0].TimeIn.Equal(base))

	newest, err := s.db.ListClocks(s.ctx, domain.ClockFilter{UserID: s.user.ID, NewestFirst: true, Limit: 2})
	require.NoError(s.T(), err)
	require.Len(s.T(), newest, 2)
	assert.True(s.T(), newest[0].TimeIn.Equal(base.AddDate(0, 0, 1)))

	ranged, err := s.db.ListClocks(s.ctx, domain.ClockFilter{UserID: s.user.ID, After: base, Before: base.Add(2 * time.Hour)})
	require.NoError(s.T(), err)
	require.Len(s.T(), ranged, 1, "range bounds are exclusive")
	assert.True(s.T(), ranged[0].TimeIn.Equal(base.Add(time.Hour)))

	day, err := s.db.SumSpans(s.ctx, domain.ClockFilter{UserID: s.user.ID, DateKey: 20240101})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(3*1800), day)

	week, err := s.db.SumSpans(s.ctx, domain.ClockFilter{UserID: s.user.ID, WeekKey: 202401})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(3*1800+3600), week)

	none, err := s.db.SumSpans(s.ctx, domain.ClockFilter{UserID: s.user.ID, MonthKey: 202402})
	require.NoError(s.T(), err)
	assert.Zero(s.T(), none)
}

func (s *StoreTestSuite) TestJournals() {
	in := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	clockID, err := s.db.CreateClock(s.ctx, domain.NewClockEntry(s.user.ID, s.job.ID, in))
	require.NoError(s.T(), err)

	_, err = s.db.AddJournal(s.ctx, clockID, in.Add(time.Minute), "second")
	require.NoError(s.T(), err)
	_, err = s.db.AddJournal(s.ctx, clockID, in, "first")
	require.NoError(s.T(), err)
	_, err = s.db.AddJournal(s.ctx, clockID, in, "same instant")
	require.NoError(s.T(), err)

	journals, err := s.db.ListJournals(s.ctx, clockID)
	require.NoError(s.T(), err)
	require.Len(s.T(), journals, 3)
	assert.Equal(s.T(), "first", journals[0].Entry)
	assert.Equal(s.T(), "second", journals[2].Entry)

	_, err = s.db.AddJournal(s.ctx, 9999, in, "orphan")
	assert.ErrorIs(s.T(), err, domain.ErrClockNotFound)
}

func (s *StoreTestSuite) TestJobs() {
	_, err := s.db.CreateJob(s.ctx, s.user.ID, "acme")
	assert.ErrorIs(s.T(), err, domain.ErrStoreConflict)

	beta, err := s.db.CreateJob(s.ctx, s.user.ID, "beta")
	require.NoError(s.T(), err)

	assert.ErrorIs(s.T(), s.db.RenameJob(s.ctx, beta.ID, "acme"), domain.ErrStoreConflict)
	require.NoError(s.T(), s.db.RenameJob(s.ctx, beta.ID, "aardvark"))
	assert.ErrorIs(s.T(), s.db.RenameJob(s.ctx, 9999, "x"), domain.ErrJobNotFound)

	jobs, err := s.db.ListJobs(s.ctx, s.user.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), jobs, 2)
	assert.Equal(s.T(), "aardvark", jobs[0].Name)

	byName, err := s.db.GetJobByName(s.ctx, s.user.ID, "acme")
	require.NoError(s.T(), err)
	require.NotNil(s.T(), byName)
	assert.Equal(s.T(), s.job.ID, byName.ID)

	missing, err := s.db.GetJob(s.ctx, 9999)
	assert.NoError(s.T(), err)
	assert.Nil(s.T(), missing)
}

func (s *StoreTestSuite) TestUsers() {
	_, err := s.db.Create(s.ctx, "alice", "other")
	assert.ErrorIs(s.T(), err, domain.ErrStoreConflict)

	clockID := int64(11)
	require.NoError(s.T(), s.db.SetActiveJob(s.ctx, s.user.ID, &s.job.ID))
	require.NoError(s.T(), s.db.SetActiveClock(s.ctx, s.user.ID, &clockID))
	login := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(s.T(), s.db.TouchLogin(s.ctx, s.user.ID, login))

	u, err := s.db.GetByUsername(s.ctx, "alice")
	require.NoError(s.T(), err)
	require.NotNil(s.T(), u)
	require.NotNil(s.T(), u.ActiveJobID)
	require.NotNil(s.T(), u.ActiveClockID)
	assert.Equal(s.T(), s.job.ID, *u.ActiveJobID)
	assert.Equal(s.T(), clockID, *u.ActiveClockID)
	require.NotNil(s.T(), u.LastLogin)
	assert.True(s.T(), u.LastLogin.Equal(login))

	require.NoError(s.T(), s.db.SetActiveClock(s.ctx, s.user.ID, nil))
	u, err = s.db.GetByID(s.ctx, s.user.ID)
	require.NoError(s.T(), err)
	assert.Nil(s.T(), u.ActiveClockID)

	assert.ErrorIs(s.T(), s.db.SetActiveJob(s.ctx, 9999, nil), domain.ErrUserNotFound)

	missing, err := s.db.GetByUsername(s.ctx, "nobody")
	assert.NoError(s.T(), err)
	assert.Nil(s.T(), missing)

	n, err := s.db.Count(s.ctx)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 1, n)
}

func (s *StoreTestSuite) TestSessions() {
	repo := NewSessionRepo(s.db)
	require.NoError(s.T(), repo.Create(s.ctx, s.user.ID, "live", "agent", "127.0.0.1", time.Now().Add(time.Hour)))
	require.NoError(s.T(), repo.Create(s.ctx, s.user.ID, "stale", "agent", "127.0.0.1", time.Now().Add(-time.Hour)))

	sess, err := repo.GetByToken(s.ctx, "live")
	require.NoError(s.T(), err)
	require.NotNil(s.T(), sess)
	assert.Equal(s.T(), "agent", sess.UserAgent)
	assert.Equal(s.T(), s.user.ID, sess.UserID)

	require.NoError(s.T(), repo.DeleteExpired(s.ctx))
	stale, err := repo.GetByToken(s.ctx, "stale")
	require.NoError(s.T(), err)
	assert.Nil(s.T(), stale)

	require.NoError(s.T(), repo.Delete(s.ctx, "live"))
	sess, err = repo.GetByToken(s.ctx, "live")
	require.NoError(s.T(), err)
	assert.Nil(s.T(), sess)
}

func TestStoreTestSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}

func TestRebind(t *testing.T) {
	pg := &DB{dialect: postgres}
	assert.Equal(t, "SELECT a FROM t WHERE x = $1 AND y = $2", pg.rebind("SELECT a FROM t WHERE x = ? AND y = ?"))

	lite := &DB{dialect: sqliteDialect}
	assert.Equal(t, "x = ?", lite.rebind("x = ?"))
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open("mysql", "dsn")
	assert.Error(t, err)
}
