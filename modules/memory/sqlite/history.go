package sqlite

import (
	"context"
	"fmt"
	"slices"

	"github.com/flemzord/confidant/internal/memory"
	"github.com/flemzord/confidant/internal/provider"
)

const turnColumns = `id, conversation_id, role, text, created_at, reply_to_id, reply_text, liked`

// AppendTurn adds a turn at the end of its conversation. Missing IDs and
// timestamps are filled in.
func (s *Store) AppendTurn(ctx context.Context, turn memory.Turn) error {
	if turn.ID == "" {
		turn.ID = s.NewID()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = s.now()
	}
	liked := 0
	if turn.Liked {
		liked = 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO turns (id, conversation_id, seq, role, text, created_at, reply_to_id, reply_text, liked)
		VALUES (?, ?, COALESCE((SELECT MAX(seq) FROM turns WHERE conversation_id = ?), 0) + 1,
		        ?, ?, ?, ?, ?, ?)`,
		turn.ID, turn.ConversationID, turn.ConversationID,
		string(turn.Role), turn.Text, formatTime(turn.CreatedAt),
		turn.ReplyToID, turn.ReplyText, liked,
	)
	if err != nil {
		return fmt.Errorf("sqlite: append turn: %w", err)
	}
	return nil
}

// Turns returns all turns of a conversation in chronological order.
func (s *Store) Turns(ctx context.Context, conversationID string) ([]memory.Turn, error) {
	return s.queryTurns(ctx, `
		SELECT `+turnColumns+` FROM turns
		WHERE conversation_id = ?
		ORDER BY seq ASC`,
		conversationID,
	)
}

// FetchLastPairs returns the turns of the last pairLimit pairs. It reads
// a trailing window and widens it until enough pairs are found or the
// conversation is exhausted.
func (s *Store) FetchLastPairs(ctx context.Context, conversationID string, pairLimit int) ([]memory.Turn, error) {
	if pairLimit <= 0 {
		return []memory.Turn{}, nil
	}

	window := 2*pairLimit + 2
	for {
		turns, err := s.recentTurns(ctx, conversationID, window)
		if err != nil {
			return nil, err
		}
		pairs, _ := memory.SplitPairs(turns)
		if len(pairs) >= pairLimit || len(turns) < window {
			return memory.LastPairs(turns, pairLimit), nil
		}
		window *= 2
	}
}

func (s *Store) recentTurns(ctx context.Context, conversationID string, n int) ([]memory.Turn, error) {
	turns, err := s.queryTurns(ctx, `
		SELECT `+turnColumns+` FROM turns
		WHERE conversation_id = ?
		ORDER BY seq DESC
		LIMIT ?`,
		conversationID, n,
	)
	if err != nil {
		return nil, err
	}
	slices.Reverse(turns)
	return turns, nil
}

// Purge removes all turns of a conversation.
func (s *Store) Purge(ctx context.Context, conversationID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM turns WHERE conversation_id = ?", conversationID); err != nil {
		return fmt.Errorf("sqlite: purge turns: %w", err)
	}
	return nil
}

// CountTurns returns the number of turns stored for a conversation.
func (s *Store) CountTurns(ctx context.Context, conversationID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM turns WHERE conversation_id = ?", conversationID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite: count turns: %w", err)
	}
	return n, nil
}

func (s *Store) queryTurns(ctx context.Context, query string, args ...any) ([]memory.Turn, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query turns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	turns := []memory.Turn{}
	for rows.Next() {
		t, err := scanTurn(rows)
		if err != nil {
			return nil, err
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: turn rows: %w", err)
	}
	return turns, nil
}

func scanTurn(sc scanner) (memory.Turn, error) {
	var (
		t         memory.Turn
		role      string
		createdAt string
		liked     int
	)
	if err := sc.Scan(&t.ID, &t.ConversationID, &role, &t.Text, &createdAt, &t.ReplyToID, &t.ReplyText, &liked); err != nil {
		return t, fmt.Errorf("sqlite: scan turn: %w", err)
	}
	ts, err := parseTime(createdAt)
	if err != nil {
		return t, err
	}
	t.Role = provider.MessageRole(role)
	t.CreatedAt = ts
	t.Liked = liked != 0
	return t, nil
}
