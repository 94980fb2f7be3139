package adapthttp

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"clok/internal/domain"
)

func (s *Server) scopeFromQuery(r *http.Request, userID int64) (domain.Scope, error) {
	if boolQuery(r, "all") {
		return domain.Scope{AllJobs: true}, nil
	}
	jobID, err := s.resolveJobRef(r.Context(), userID, queryJobRef(r))
	if err != nil {
		return domain.Scope{}, err
	}
	return domain.Scope{JobID: jobID}, nil
}

func (s *Server) handleHours(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	p, err := domain.ParsePeriod(r.PathValue("period"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	key := 0
	if v := strings.TrimSpace(r.URL.Query().Get("key")); v != "" {
		if key, err = domain.ParseKey(p, v, s.loc); err != nil {
			writeDomainError(w, err)
			return
		}
	}
	scope, err := s.scopeFromQuery(r, user.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	seconds, err := s.reports.HoursFor(r.Context(), user.ID, p, key, scope)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"period":   p.String(),
		"key":      key,
		"seconds":  seconds,
		"hours":    domain.Hours(seconds),
		"duration": domain.FormatDuration(seconds),
	})
}

func (s *Server) handleHoursRange(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	q := r.URL.Query()
	if q.Get("start") == "" || q.Get("end") == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: start and end are required", domain.ErrInvalidTimestamp))
		return
	}
	start, err := domain.ParseTimestamp(q.Get("start"), s.loc)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	end, err := domain.ParseTimestamp(q.Get("end"), s.loc)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	scope, err := s.scopeFromQuery(r, user.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	seconds, err := s.reports.HoursForRange(r.Context(), user.ID, start, end, scope)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"start":    start,
		"end":      end,
		"seconds":  seconds,
		"hours":    domain.Hours(seconds),
		"duration": domain.FormatDuration(seconds),
	})
}

func (s *Server) handleHoursDaily(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	scope, err := s.scopeFromQuery(r, user.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	points, err := s.reports.Daily(r.Context(), user.ID, intQuery(r, "days", 7), scope)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"points": points})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	export, err := s.dir.Export(r.Context(), user.ID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="clok-export.json"`)
	writeJSON(w, http.StatusOK, export)
}
