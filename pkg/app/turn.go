package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	ctxengine "github.com/flemzord/confidant/internal/context"
	"github.com/flemzord/confidant/internal/memory"
	"github.com/flemzord/confidant/internal/provider"
)

// ErrEmptyMessage is returned by PrepareTurn for a blank user message.
var ErrEmptyMessage = errors.New("app: empty user message")

// TurnRequest describes the next user turn of a conversation.
type TurnRequest struct {
	ConversationID string
	// SourceConversationID names a conversation whose trailing pairs fill
	// the history window when the current one is short.
	SourceConversationID string
	BaseContext          string
	UserMessage          string
	// ReplyToID is the stored turn the user is replying to, if any.
	ReplyToID string

	// Model and Generation default to the configured values.
	Model      *provider.ModelRef
	Generation *ctxengine.GenerationConfig
}

// PreparedTurn is everything needed to issue the generation call.
type PreparedTurn struct {
	Assembly ctxengine.AssemblyResult
	History  []memory.Turn
	Model    provider.ModelRef
	Request  provider.CompletionRequest
	// Budget estimates the token use of Request. History is already
	// trimmed to the configured context window.
	Budget ctxengine.ContextBudget
}

// PrepareTurn assembles the context block and resolves the history window
// of a new user message. Nothing is persisted.
func (a *App) PrepareTurn(ctx context.Context, req TurnRequest) (PreparedTurn, error) {
	if strings.TrimSpace(req.UserMessage) == "" {
		return PreparedTurn{}, ErrEmptyMessage
	}
	model := a.Config.Model
	if req.Model != nil {
		model = *req.Model
	}
	gen := a.Config.Generation
	if req.Generation != nil {
		gen = *req.Generation
	}

	reply, err := a.findTurn(ctx, req.ConversationID, req.ReplyToID)
	if err != nil {
		return PreparedTurn{}, err
	}

	assembly, err := a.Assembler.Assemble(ctx, ctxengine.AssemblyRequest{
		BaseContext:    req.BaseContext,
		UserMessage:    req.UserMessage,
		Config:         gen,
		Model:          model,
		ConversationID: req.ConversationID,
		ReplyTurn:      reply,
	})
	if err != nil {
		return PreparedTurn{}, err
	}

	history, err := a.History(ctx, req.ConversationID, req.SourceConversationID, gen.HistoryLimitPairs, req.UserMessage)
	if err != nil {
		return PreparedTurn{}, err
	}

	messages, budget := a.Assembler.FitHistory(assembly, memory.Messages(history), gen.MaxTokens)
	history = history[len(history)-len(messages):]

	return PreparedTurn{
		Assembly: assembly,
		History:  history,
		Model:    model,
		Budget:   budget,
		Request: provider.CompletionRequest{
			Model:       model.ID,
			System:      assembly.FullContext,
			Messages:    messages,
			MaxTokens:   gen.MaxTokens,
			Temperature: provider.Float(gen.Temperature),
			TopP:        provider.Float(gen.TopP),
		},
	}, nil
}

// History returns the bounded history window of a conversation ending
// with userMessage, borrowing from the source conversation when set.
func (a *App) History(ctx context.Context, conversationID, sourceConversationID string, historyLimitPairs int, userMessage string) ([]memory.Turn, error) {
	current, err := a.Store.FetchLastPairs(ctx, conversationID, historyLimitPairs)
	if err != nil {
		return nil, fmt.Errorf("app: loading history: %w", err)
	}
	if userMessage != "" {
		current = append(current, memory.Turn{
			ConversationID: conversationID,
			Role:           provider.MessageRoleUser,
			Text:           userMessage,
			CreatedAt:      time.Now(),
		})
	}
	return a.Resolver.Resolve(ctx, current, sourceConversationID, historyLimitPairs), nil
}

func (a *App) findTurn(ctx context.Context, conversationID, id string) (*memory.Turn, error) {
	if id == "" {
		return nil, nil
	}
	turns, err := a.Store.Turns(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("app: loading reply turn: %w", err)
	}
	for i := range turns {
		if turns[i].ID == id {
			return &turns[i], nil
		}
	}
	return nil, fmt.Errorf("app: reply turn %q not found in conversation %q", id, conversationID)
}
