package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"clok/internal/domain"
)

const userColumns = "id, username, password_hash, active_job_id, active_clock_id, created_at, last_login"

func scanUser(row interface{ Scan(...any) error }) (*domain.User, error) {
	var (
		u         domain.User
		job, clk  sql.NullInt64
		lastLogin sql.NullTime
	)
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &job, &clk, &u.CreatedAt, &lastLogin); err != nil {
		return nil, err
	}
	u.ActiveJobID = idPtr(job)
	u.ActiveClockID = idPtr(clk)
	u.CreatedAt = u.CreatedAt.UTC()
	u.LastLogin = timePtr(lastLogin)
	return &u, nil
}

// GetByUsername retrieves a user by username.
func (d *DB) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	u, err := scanUser(d.queryRow(ctx, "SELECT "+userColumns+" FROM users WHERE username = ?", username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

// GetByID retrieves a user by ID.
func (d *DB) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	u, err := scanUser(d.queryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

// Create creates a new user.
func (d *DB) Create(ctx context.Context, username, passwordHash string) (*domain.User, error) {
	u, err := scanUser(d.queryRow(ctx,
		"INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?) RETURNING "+userColumns,
		username, passwordHash, time.Now().UTC(),
	))
	if err != nil {
		return nil, mapErr(err)
	}
	return u, nil
}

// Count returns the total number of users.
func (d *DB) Count(ctx context.Context) (int, error) {
	var count int
	err := d.queryRow(ctx, "SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}

// SetActiveJob updates the user's active job pointer. nil clears it.
func (d *DB) SetActiveJob(ctx context.Context, userID int64, jobID *int64) error {
	return d.updateUser(ctx, "UPDATE users SET active_job_id = ? WHERE id = ?", nullID(jobID), userID)
}

// SetActiveClock updates the user's active clock pointer. nil clears it.
func (d *DB) SetActiveClock(ctx context.Context, userID int64, clockID *int64) error {
	return d.updateUser(ctx, "UPDATE users SET active_clock_id = ? WHERE id = ?", nullID(clockID), userID)
}

// TouchLogin records the time of the user's last login.
func (d *DB) TouchLogin(ctx context.Context, userID int64, at time.Time) error {
	return d.updateUser(ctx, "UPDATE users SET last_login = ? WHERE id = ?", at.UTC(), userID)
}

func (d *DB) updateUser(ctx context.Context, query string, args ...any) error {
	res, err := d.exec(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// SessionRepo implements session repository operations on DB.
type SessionRepo struct {
	db *DB
}

// NewSessionRepo wraps a DB as a SessionRepository.
func NewSessionRepo(db *DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// Create creates a new session.
func (r *SessionRepo) Create(ctx context.Context, userID int64, token, userAgent, ip string, expiresAt time.Time) error {
	_, err := r.db.exec(ctx,
		"INSERT INTO sessions (user_id, token, user_agent, ip, expires_at, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		userID, token, userAgent, ip, expiresAt.UTC(), time.Now().UTC(),
	)
	return err
}

// GetByToken retrieves a session by token.
func (r *SessionRepo) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	var s domain.Session
	err := r.db.queryRow(ctx,
		"SELECT token, user_id, user_agent, ip, expires_at, created_at FROM sessions WHERE token = ?",
		token,
	).Scan(&s.Token, &s.UserID, &s.UserAgent, &s.IP, &s.ExpiresAt, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Delete deletes a session by token.
func (r *SessionRepo) Delete(ctx context.Context, token string) error {
	_, err := r.db.exec(ctx, "DELETE FROM sessions WHERE token = ?", token)
	return err
}

// DeleteExpired deletes all expired sessions.
func (r *SessionRepo) DeleteExpired(ctx context.Context) error {
	_, err := r.db.exec(ctx, "DELETE FROM sessions WHERE expires_at < ?", time.Now().UTC())
	return err
}
