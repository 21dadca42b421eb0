package diagnostics

import (
	"context"
	"net/http"
	"time"

	"github.com/flemzord/confidant/internal/embedding"
)

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status string          `json:"status"` // "ok" or "degraded"
	Store  string          `json:"store,omitempty"`
	Engine embedding.Phase `json:"engine"`
}

// handleHealth returns 200 when the store answers, 503 otherwise. An
// unloaded engine is healthy: it loads on first use.
func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{
			Status: "ok",
			Engine: s.deps.Engine.Status().State.Phase,
		}

		if s.deps.Store != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := s.deps.Store.Ping(ctx); err != nil {
				s.logger.Warn("diagnostics: store ping failed", "error", err)
				resp.Status = "degraded"
				resp.Store = "unavailable"
			} else {
				resp.Store = "ok"
			}
		}

		status := http.StatusOK
		if resp.Status == "degraded" {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, resp)
	}
}
