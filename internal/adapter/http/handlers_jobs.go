package adapthttp

import (
	"context"
	"net/http"
	"strconv"
	"strings"
)

// jobRef names a job by ID or by name. Both empty means the active job.
type jobRef struct {
	JobID int64  `json:"jobId"`
	Job   string `json:"job"`
}

func (s *Server) resolveJobRef(ctx context.Context, userID int64, ref jobRef) (int64, error) {
	if strings.TrimSpace(ref.Job) == "" {
		return ref.JobID, nil
	}
	job, err := s.dir.JobByName(ctx, userID, ref.Job)
	if err != nil {
		return 0, err
	}
	return job.ID, nil
}

// queryJobRef reads ?job= as a numeric ID or a name.
func queryJobRef(r *http.Request) jobRef {
	v := r.URL.Query().Get("job")
	if id, err := strconv.ParseInt(v, 10, 64); err == nil {
		return jobRef{JobID: id}
	}
	return jobRef{Job: v}
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	current, err := s.dir.User(r.Context(), user.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	jobs, err := s.dir.ListJobs(r.Context(), user.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": jobs, "activeJobId": current.ActiveJobID})
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	var body struct {
		Name   string `json:"name"`
		Active bool   `json:"active"`
	}
	if err := parseJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	job, err := s.dir.CreateJob(r.Context(), user.ID, body.Name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if body.Active {
		if _, err := s.dir.SetActiveJob(r.Context(), user.ID, job.ID); err != nil {
			writeDomainError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusCreated, map[string]any{"job": job})
}

func (s *Server) handleRenameJob(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var body struct {
		Name string `json:"name"`
	}
	if err := parseJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	job, err := s.dir.RenameJob(r.Context(), user.ID, id, body.Name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"job": job})
}

func (s *Server) handleSetActiveJob(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	var body jobRef
	if err := parseJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	jobID, err := s.resolveJobRef(r.Context(), user.ID, body)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	job, err := s.dir.SetActiveJob(r.Context(), user.ID, jobID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"job": job})
}
