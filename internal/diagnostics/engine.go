package diagnostics

import (
	"errors"
	"net/http"
	"strings"

	"github.com/flemzord/confidant/internal/security"
)

type loadRequest struct {
	Model string `json:"model"`
}

// handleEngineStatus returns the engine state, catalog and remotes.
func (s *Server) handleEngineStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, s.deps.Engine.Status())
	}
}

// handleEngineLoad loads a catalog model. Loading the current model is a
// no-op.
func (s *Server) handleEngineLoad() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.limiter.Allow(security.BucketEngine); err != nil {
			s.fail(w, r, err)
			return
		}
		var req loadRequest
		if err := s.decodeBody(r, &req); err != nil {
			s.fail(w, r, err)
			return
		}
		if strings.TrimSpace(req.Model) == "" {
			s.fail(w, r, errors.Join(security.ErrInvalidJSON, errors.New("model is required")))
			return
		}
		if err := s.deps.Engine.LoadModel(r.Context(), req.Model); err != nil {
			s.fail(w, r, err)
			return
		}
		s.logger.Info("diagnostics: model loaded", "model", req.Model)
		writeJSON(w, http.StatusOK, s.deps.Engine.Status())
	}
}

// handleEngineUnload unloads the current model, if any.
func (s *Server) handleEngineUnload() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.limiter.Allow(security.BucketEngine); err != nil {
			s.fail(w, r, err)
			return
		}
		if err := s.deps.Engine.UnloadModel(r.Context()); err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, s.deps.Engine.Status())
	}
}
