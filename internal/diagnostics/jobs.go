package diagnostics

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/flemzord/confidant/internal/security"
)

// handleListJobs lists registered background jobs.
func (s *Server) handleListJobs() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		names := []string{}
		if s.deps.Jobs != nil {
			names = s.deps.Jobs.Names()
		}
		writeJSON(w, http.StatusOK, map[string][]string{"jobs": names})
	}
}

// handleRunJob runs a job immediately and waits for it.
func (s *Server) handleRunJob() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.deps.Jobs == nil {
			writeError(w, http.StatusNotFound, "no jobs registered")
			return
		}
		if err := s.limiter.Allow(security.BucketEngine); err != nil {
			s.fail(w, r, err)
			return
		}
		name := chi.URLParam(r, "name")
		if err := s.deps.Jobs.RunNow(r.Context(), name); err != nil {
			s.fail(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
