package diagnostics

import (
	"net/http"
	"time"

	"github.com/flemzord/confidant/internal/embedding"
)

// StatusResponse is the JSON response for GET /status.
type StatusResponse struct {
	Version   string           `json:"version"`
	Uptime    int64            `json:"uptime_seconds"`
	Engine    embedding.Status `json:"engine"`
	Providers []string         `json:"providers"`
	Jobs      []string         `json:"jobs"`
}

// handleStatus returns an overview of the running process.
func (s *Server) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := StatusResponse{
			Version:   s.deps.Version,
			Uptime:    int64(time.Since(s.startedAt).Seconds()),
			Engine:    s.deps.Engine.Status(),
			Providers: s.deps.Providers,
			Jobs:      []string{},
		}
		if resp.Providers == nil {
			resp.Providers = []string{}
		}
		if s.deps.Jobs != nil {
			resp.Jobs = s.deps.Jobs.Names()
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// handleGetConfig returns the effective configuration with secrets
// redacted.
func (s *Server) handleGetConfig() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.deps.ConfigView == nil {
			writeError(w, http.StatusNotFound, "config view not available")
			return
		}
		doc, err := s.deps.ConfigView()
		if err != nil {
			s.fail(w, r, err)
			return
		}
		s.deps.Redactor.RedactMap(doc)
		writeJSON(w, http.StatusOK, doc)
	}
}
