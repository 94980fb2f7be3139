// Package domain contains the core business entities and interfaces.
package domain

import (
	"context"
	"strings"
	"time"
)

// User represents an account that clocks in and out of jobs.
type User struct {
	ID            int64      `json:"id"`
	Username      string     `json:"username"`
	PasswordHash  string     `json:"-"`
	ActiveJobID   *int64     `json:"activeJobId"`
	ActiveClockID *int64     `json:"activeClockId"`
	CreatedAt     time.Time  `json:"createdAt"`
	LastLogin     *time.Time `json:"lastLogin,omitempty"`
}

// Session represents an active login session.
type Session struct {
	Token     string
	UserID    int64
	UserAgent string
	IP        string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// NormalizeUsername trims and lower-cases a login name or e-mail address.
func NormalizeUsername(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// UserRepository defines the port for user persistence operations.
type UserRepository interface {
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	Create(ctx context.Context, username, passwordHash string) (*User, error)
	Count(ctx context.Context) (int, error)
	SetActiveJob(ctx context.Context, userID int64, jobID *int64) error
	SetActiveClock(ctx context.Context, userID int64, clockID *int64) error
	TouchLogin(ctx context.Context, userID int64, at time.Time) error
}

// SessionRepository defines the port for session persistence operations.
type SessionRepository interface {
	Create(ctx context.Context, userID int64, token, userAgent, ip string, expiresAt time.Time) error
	GetByToken(ctx context.Context, token string) (*Session, error)
	Delete(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context) error
}
