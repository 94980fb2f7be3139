package adapthttp

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strconv"

	"clok/internal/app"
	"clok/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

// writeDomainError maps service errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("internal error: %v", err)
		writeError(w, status, errors.New("internal error"))
		return
	}
	writeError(w, status, err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrAlreadyClockedIn),
		errors.Is(err, domain.ErrNoOpenSession),
		errors.Is(err, domain.ErrStoreConflict),
		errors.Is(err, domain.ErrJobExists),
		errors.Is(err, app.ErrUserExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNonPositiveSpan),
		errors.Is(err, domain.ErrInvalidTimestamp),
		errors.Is(err, domain.ErrEmptyJournal),
		errors.Is(err, domain.ErrInvalidJobName),
		errors.Is(err, app.ErrWeakPassword):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrJobNotFound),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrClockNotFound):
		return http.StatusNotFound
	case errors.Is(err, app.ErrInvalidCredentials):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// retryConflict runs fn again once when the store reports a uniqueness race.
func retryConflict[T any](fn func() (T, error)) (T, error) {
	v, err := fn()
	if errors.Is(err, domain.ErrStoreConflict) {
		return fn()
	}
	return v, err
}

// parseJSON decodes the request body. An empty body leaves dst untouched.
func parseJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid json: %w", err)
	}
	return nil
}

func intQuery(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func boolQuery(r *http.Request, key string) bool {
	b, _ := strconv.ParseBool(r.URL.Query().Get(key))
	return b
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", r.PathValue("id"))
	}
	return id, nil
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func withNoCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
