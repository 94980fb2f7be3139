// Package app holds the application services and business logic.
package app

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"time"

	"clok/internal/domain"

	"golang.org/x/crypto/bcrypt"
)

const minPasswordLen = 8

var (
	// ErrInvalidCredentials indicates that the provided username or password was incorrect.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrSessionNotFound indicates that the requested session does not exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired indicates that the session has expired.
	ErrSessionExpired = errors.New("session expired")
	// ErrUserExists indicates that the username is already registered.
	ErrUserExists = errors.New("user already exists")
	// ErrWeakPassword indicates a password shorter than the minimum length.
	ErrWeakPassword = errors.New("password must be at least 8 characters")
)

// AuthService handles registration, authentication and session management.
type AuthService struct {
	users      domain.UserRepository
	sessions   domain.SessionRepository
	sessionTTL time.Duration
	now        func() time.Time
}

// NewAuthService creates a new authentication service.
func NewAuthService(users domain.UserRepository, sessions domain.SessionRepository) *AuthService {
	return &AuthService{
		users:      users,
		sessions:   sessions,
		sessionTTL: 24 * time.Hour,
		now:        time.Now,
	}
}

// WithSessionTTL overrides the session lifetime.
func (s *AuthService) WithSessionTTL(ttl time.Duration) *AuthService {
	if ttl > 0 {
		s.sessionTTL = ttl
	}
	return s
}

// SessionTTL returns the configured session lifetime.
func (s *AuthService) SessionTTL() time.Duration {
	return s.sessionTTL
}

// Register creates a user with a bcrypt password hash.
func (s *AuthService) Register(ctx context.Context, username, password string) (*domain.User, error) {
	username = domain.NormalizeUsername(username)
	if username == "" {
		return nil, ErrInvalidCredentials
	}
	if len(password) < minPasswordLen {
		return nil, ErrWeakPassword
	}

	existing, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user, err := s.users.Create(ctx, username, string(hash))
	if errors.Is(err, domain.ErrStoreConflict) {
		return nil, ErrUserExists
	}
	return user, err
}

// Login authenticates a user and creates a session.
func (s *AuthService) Login(ctx context.Context, username, password, userAgent, ip string) (string, error) {
	user, err := s.users.GetByUsername(ctx, domain.NormalizeUsername(username))
	if err != nil || user == nil || user.PasswordHash == "" {
		return "", ErrInvalidCredentials
	}

	if err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	return s.startSession(ctx, user, userAgent, ip)
}

// Logout invalidates a session.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.sessions.Delete(ctx, token)
}

// ValidateSession checks if a session token is valid and matches the user agent.
func (s *AuthService) ValidateSession(ctx context.Context, token, userAgent string) (*domain.User, error) {
	session, err := s.sessions.GetByToken(ctx, token)
	if err != nil || session == nil {
		return nil, ErrSessionNotFound
	}

	if s.now().After(session.ExpiresAt) {
		_ = s.sessions.Delete(ctx, token)
		return nil, ErrSessionExpired
	}

	if !ConstantTimeCompare(session.UserAgent, userAgent) {
		_ = s.sessions.Delete(ctx, token)
		return nil, ErrSessionExpired
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}

	return user, nil
}

// ValidateForwardAuth validates a request from an authenticating proxy.
// It trusts the Remote-User header set by the proxy.
func (s *AuthService) ValidateForwardAuth(ctx context.Context, remoteUser string) (*domain.User, error) {
	username := domain.NormalizeUsername(remoteUser)
	if username == "" {
		return nil, errors.New("no remote user header")
	}
	return s.provision(ctx, username)
}

// LoginWithUser creates a session for an already authenticated user (e.g. via SSO).
func (s *AuthService) LoginWithUser(ctx context.Context, username, userAgent, ip string) (string, error) {
	username = domain.NormalizeUsername(username)
	if username == "" {
		return "", ErrInvalidCredentials
	}
	user, err := s.provision(ctx, username)
	if err != nil {
		return "", err
	}
	return s.startSession(ctx, user, userAgent, ip)
}

// provision fetches the user, creating one without a password if missing.
func (s *AuthService) provision(ctx context.Context, username string) (*domain.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return user, nil
	}
	user, err = s.users.Create(ctx, username, "")
	if errors.Is(err, domain.ErrStoreConflict) {
		// Lost a race with a concurrent first login.
		user, err = s.users.GetByUsername(ctx, username)
	}
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

func (s *AuthService) startSession(ctx context.Context, user *domain.User, userAgent, ip string) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}

	now := s.now()
	if err := s.sessions.Create(ctx, user.ID, token, userAgent, ip, now.Add(s.sessionTTL)); err != nil {
		return "", err
	}
	if err := s.users.TouchLogin(ctx, user.ID, now); err != nil {
		return "", err
	}

	return token, nil
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// ConstantTimeCompare performs a constant-time comparison of two strings.
func ConstantTimeCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
