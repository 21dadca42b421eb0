// Package memory holds the conversation data model, its storage contracts
// with in-memory implementations, similarity ranking helpers and the
// history inheritance resolver.
package memory

import (
	"context"
	"time"

	"github.com/flemzord/confidant/internal/provider"
)

// Turn is one message of a conversation.
type Turn struct {
	ID             string
	ConversationID string
	Role           provider.MessageRole
	Text           string
	CreatedAt      time.Time
	ReplyToID      string
	ReplyText      string
	Liked          bool
}

// Message converts the turn to a provider message.
func (t Turn) Message() provider.LLMMessage {
	return provider.LLMMessage{Role: t.Role, Content: t.Text}
}

// Messages converts turns to provider messages, preserving order.
func Messages(turns []Turn) []provider.LLMMessage {
	msgs := make([]provider.LLMMessage, len(turns))
	for i := range turns {
		msgs[i] = turns[i].Message()
	}
	return msgs
}

// PairSource reads trailing pairs of a conversation.
type PairSource interface {
	// FetchLastPairs returns the turns of the last pairLimit pairs of a
	// conversation in chronological order (at most 2*pairLimit turns).
	FetchLastPairs(ctx context.Context, conversationID string, pairLimit int) ([]Turn, error)
}

// TurnStore manages conversation turns.
// Implementations must be safe for concurrent use.
type TurnStore interface {
	PairSource

	// AppendTurn adds a turn to its conversation.
	AppendTurn(ctx context.Context, turn Turn) error

	// Turns returns all turns of a conversation in chronological order.
	Turns(ctx context.Context, conversationID string) ([]Turn, error)

	// Purge removes all turns of a conversation.
	Purge(ctx context.Context, conversationID string) error
}
