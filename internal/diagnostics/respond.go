package diagnostics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/flemzord/confidant/internal/cron"
	"github.com/flemzord/confidant/internal/embedding"
	"github.com/flemzord/confidant/internal/provider"
	"github.com/flemzord/confidant/internal/security"
)

// errorResponse is the JSON body of every error reply.
type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, security.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, security.ErrBodyTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, security.ErrInvalidJSON),
		errors.Is(err, security.ErrJSONTooDeep),
		errors.Is(err, embedding.ErrEmptyInput):
		return http.StatusBadRequest
	case errors.Is(err, embedding.ErrUnknownModel),
		errors.Is(err, provider.ErrUnknownProvider),
		errors.Is(err, cron.ErrUnknownJob):
		return http.StatusNotFound
	case errors.Is(err, embedding.ErrModelFileMissing),
		errors.Is(err, embedding.ErrNoModelAvailable),
		errors.Is(err, cron.ErrJobBusy):
		return http.StatusConflict
	case errors.Is(err, provider.ErrMissingCredential):
		return http.StatusUnprocessableEntity
	case errors.Is(err, provider.ErrGeneration):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("diagnostics: request failed", "path", r.URL.Path, "error", err)
	}
	writeError(w, status, s.deps.Redactor.Redact(err.Error()))
}

// decodeBody reads a size- and depth-checked JSON body into v. An empty
// body leaves v untouched.
func (s *Server) decodeBody(r *http.Request, v any) error {
	data, err := security.ReadJSONBody(r.Body, s.config.MaxBodyBytes)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.Join(security.ErrInvalidJSON, err)
	}
	return nil
}
