package adapthttp

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"clok/internal/domain"
)

func (s *Server) parseAt(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	return domain.ParseTimestamp(v, s.loc)
}

type clockRequest struct {
	jobRef
	At string `json:"at"`
}

func (s *Server) handleClockIn(w http.ResponseWriter, r *http.Request) {
	s.clockTransition(w, r, http.StatusCreated, s.clock.ClockIn)
}

func (s *Server) handleClockOut(w http.ResponseWriter, r *http.Request) {
	s.clockTransition(w, r, http.StatusOK, s.clock.ClockOut)
}

type transitionFunc func(ctx context.Context, userID, jobID int64, when time.Time) (*domain.ClockEntry, error)

func (s *Server) clockTransition(w http.ResponseWriter, r *http.Request, status int, fn transitionFunc) {
	user := userFromContext(r.Context())
	var body clockRequest
	if err := parseJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	jobID, err := s.resolveJobRef(r.Context(), user.ID, body.jobRef)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	at, err := s.parseAt(body.At)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	entry, err := retryConflict(func() (*domain.ClockEntry, error) {
		return fn(r.Context(), user.ID, jobID, at)
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, status, map[string]any{"entry": entry})
}

func (s *Server) handleRecordSession(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	var body struct {
		jobRef
		In  string `json:"in"`
		Out string `json:"out"`
	}
	if err := parseJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if body.In == "" || body.Out == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: in and out are required", domain.ErrInvalidTimestamp))
		return
	}
	jobID, err := s.resolveJobRef(r.Context(), user.ID, body.jobRef)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	in, err := s.parseAt(body.In)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out, err := s.parseAt(body.Out)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	entry, err := s.clock.RecordSession(r.Context(), user.ID, jobID, in, out)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"entry": entry})
}

func (s *Server) handleClockStatus(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	scope, err := s.scopeFromQuery(r, user.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	summary, err := s.reports.Summary(r.Context(), user.ID, scope)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	last, err := s.clock.LastRecord(r.Context(), user.ID, scope.JobID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	current, err := s.dir.User(r.Context(), user.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"summary":       summary,
		"last":          last,
		"activeJobId":   current.ActiveJobID,
		"activeClockId": current.ActiveClockID,
	})
}

func (s *Server) handleClockRecent(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	items, err := s.clock.Recent(r.Context(), user.ID, intQuery(r, "limit", 20))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleListJournal(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	items, err := s.clock.Journals(r.Context(), user.ID, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleAddJournal(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var body struct {
		Entry string `json:"entry"`
		At    string `json:"at"`
	}
	if err := parseJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	at, err := s.parseAt(body.At)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	journal, err := s.clock.AddJournal(r.Context(), user.ID, id, body.Entry, at)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"journal": journal})
}
