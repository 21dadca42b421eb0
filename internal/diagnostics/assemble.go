package diagnostics

import (
	"errors"
	"net/http"
	"strings"
	"time"

	ctxengine "github.com/flemzord/confidant/internal/context"
	"github.com/flemzord/confidant/internal/memory"
	"github.com/flemzord/confidant/internal/provider"
	"github.com/flemzord/confidant/internal/security"
)

// assembleRequest is the body of POST /assemble. Model and Config are
// decoded over the server defaults, so a request may set only the fields
// it wants to change.
type assembleRequest struct {
	BaseContext    string                      `json:"base_context"`
	UserMessage    string                      `json:"user_message"`
	ConversationID string                      `json:"conversation_id"`
	ReplyText      string                      `json:"reply_text"`
	Model          *provider.ModelRef          `json:"model"`
	Config         *ctxengine.GenerationConfig `json:"config"`
}

// assembleResponse is the assembly plus the token budget of a call that
// would carry it with no history.
type assembleResponse struct {
	ctxengine.AssemblyResult
	Budget    ctxengine.ContextBudget `json:"budget"`
	Available int                     `json:"available"`
	Exceeded  bool                    `json:"exceeded"`
}

// handleAssemble runs a dry-run assembly and returns the breakdown. No
// generation request is issued for the reply itself.
func (s *Server) handleAssemble() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.limiter.Allow(security.BucketAssemble); err != nil {
			s.fail(w, r, err)
			return
		}

		model := s.deps.DefaultModel
		gen := s.deps.DefaultGeneration
		body := assembleRequest{Model: &model, Config: &gen}
		if err := s.decodeBody(r, &body); err != nil {
			s.fail(w, r, err)
			return
		}
		if strings.TrimSpace(body.UserMessage) == "" {
			s.fail(w, r, errors.Join(security.ErrInvalidJSON, errors.New("user_message is required")))
			return
		}

		req := ctxengine.AssemblyRequest{
			BaseContext:    body.BaseContext,
			UserMessage:    body.UserMessage,
			Config:         gen,
			Model:          model,
			ConversationID: body.ConversationID,
		}
		if body.ReplyText != "" {
			req.ReplyTurn = &memory.Turn{
				ConversationID: body.ConversationID,
				Role:           provider.MessageRoleAssistant,
				Text:           body.ReplyText,
				CreatedAt:      time.Now(),
			}
		}

		res, err := s.deps.Assembler.Assemble(r.Context(), req)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		budget := ctxengine.ContextBudget{
			WindowSize: s.deps.ContextWindow,
			System:     res.Tokens,
			Reserved:   gen.MaxTokens,
		}
		writeJSON(w, http.StatusOK, assembleResponse{
			AssemblyResult: res,
			Budget:         budget,
			Available:      budget.Available(),
			Exceeded:       budget.Exceeded(),
		})
	}
}
