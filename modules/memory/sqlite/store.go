package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/flemzord/confidant/internal/embedding"
	"github.com/flemzord/confidant/internal/memory"
)

const (
	factColumns    = `id, conversation_id, source_turn_id, persona_id, content, created_at, embedding`
	excerptColumns = `id, document_id, ordinal, text, embedding`
)

// ---------------------------------------------------------------------------
// Facts
// ---------------------------------------------------------------------------

// IndexFact stores or replaces a fact. Missing IDs and timestamps are
// filled in.
func (s *Store) IndexFact(ctx context.Context, fact memory.Fact) error {
	if fact.ID == "" {
		fact.ID = s.NewID()
	}
	if fact.CreatedAt.IsZero() {
		fact.CreatedAt = s.now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO facts (`+factColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		fact.ID, fact.ConversationID, fact.SourceTurnID, fact.PersonaID,
		fact.Content, formatTime(fact.CreatedAt), encodeVector(fact.Embedding),
	)
	if err != nil {
		return fmt.Errorf("sqlite: index fact: %w", err)
	}
	return nil
}

// DeleteFact removes a fact by ID.
func (s *Store) DeleteFact(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM facts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("sqlite: delete fact: %w", err)
	}
	return requireRow(res, memory.ErrFactNotFound)
}

// ListFacts returns stored facts oldest first.
func (s *Store) ListFacts(ctx context.Context, opts memory.ListOptions) ([]memory.Fact, error) {
	query := `SELECT ` + factColumns + ` FROM facts`
	if opts.MissingEmbedding {
		query += ` WHERE embedding IS NULL OR length(embedding) = 0`
	}
	query += ` ORDER BY created_at ASC, id ASC`

	var args []any
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}
	return s.queryFacts(ctx, query, args...)
}

// SetFactEmbedding replaces the vector of a stored fact.
func (s *Store) SetFactEmbedding(ctx context.Context, id string, v embedding.Vector) error {
	res, err := s.db.ExecContext(ctx, "UPDATE facts SET embedding = ? WHERE id = ?", encodeVector(v), id)
	if err != nil {
		return fmt.Errorf("sqlite: set fact embedding: %w", err)
	}
	return requireRow(res, memory.ErrFactNotFound)
}

// SimilaritySearchFacts ranks every embedded fact against query.
func (s *Store) SimilaritySearchFacts(ctx context.Context, query embedding.Vector, limit, minAgeDays int) ([]memory.Fact, error) {
	if limit <= 0 || len(query) == 0 {
		return nil, nil
	}
	facts, err := s.queryFacts(ctx, `SELECT `+factColumns+` FROM facts WHERE embedding IS NOT NULL`)
	if err != nil {
		return nil, err
	}
	return memory.RankFacts(facts, query, limit, minAgeDays, s.now()), nil
}

func (s *Store) queryFacts(ctx context.Context, query string, args ...any) ([]memory.Fact, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query facts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var facts []memory.Fact
	for rows.Next() {
		f, err := scanFact(rows)
		if err != nil {
			return nil, err
		}
		facts = append(facts, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: fact rows: %w", err)
	}
	return facts, nil
}

func scanFact(sc scanner) (memory.Fact, error) {
	var (
		f         memory.Fact
		createdAt string
		blob      []byte
	)
	if err := sc.Scan(&f.ID, &f.ConversationID, &f.SourceTurnID, &f.PersonaID, &f.Content, &createdAt, &blob); err != nil {
		return f, fmt.Errorf("sqlite: scan fact: %w", err)
	}
	ts, err := parseTime(createdAt)
	if err != nil {
		return f, err
	}
	vec, err := decodeVector(blob)
	if err != nil {
		return f, fmt.Errorf("sqlite: fact %s: %w", f.ID, err)
	}
	f.CreatedAt = ts
	f.Embedding = vec
	return f, nil
}

// ---------------------------------------------------------------------------
// Excerpts
// ---------------------------------------------------------------------------

// IndexExcerpt stores or replaces an excerpt.
func (s *Store) IndexExcerpt(ctx context.Context, ex memory.Excerpt) error {
	if ex.ID == "" {
		ex.ID = s.NewID()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO excerpts (`+excerptColumns+`)
		VALUES (?, ?, ?, ?, ?)`,
		ex.ID, ex.DocumentID, ex.Ordinal, ex.Text, encodeVector(ex.Embedding),
	)
	if err != nil {
		return fmt.Errorf("sqlite: index excerpt: %w", err)
	}
	return nil
}

// ListExcerpts returns stored excerpts by document and ordinal.
func (s *Store) ListExcerpts(ctx context.Context, opts memory.ListOptions) ([]memory.Excerpt, error) {
	query := `SELECT ` + excerptColumns + ` FROM excerpts`
	if opts.MissingEmbedding {
		query += ` WHERE embedding IS NULL OR length(embedding) = 0`
	}
	query += ` ORDER BY document_id ASC, ordinal ASC`

	var args []any
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}
	return s.queryExcerpts(ctx, query, args...)
}

// SetExcerptEmbedding replaces the vector of a stored excerpt.
func (s *Store) SetExcerptEmbedding(ctx context.Context, id string, v embedding.Vector) error {
	res, err := s.db.ExecContext(ctx, "UPDATE excerpts SET embedding = ? WHERE id = ?", encodeVector(v), id)
	if err != nil {
		return fmt.Errorf("sqlite: set excerpt embedding: %w", err)
	}
	return requireRow(res, memory.ErrExcerptNotFound)
}

// SimilaritySearchExcerpts ranks every embedded excerpt against query.
func (s *Store) SimilaritySearchExcerpts(ctx context.Context, query embedding.Vector, limit int) ([]memory.Excerpt, error) {
	if limit <= 0 || len(query) == 0 {
		return nil, nil
	}
	excerpts, err := s.queryExcerpts(ctx, `SELECT `+excerptColumns+` FROM excerpts WHERE embedding IS NOT NULL`)
	if err != nil {
		return nil, err
	}
	return memory.RankExcerpts(excerpts, query, limit), nil
}

func (s *Store) queryExcerpts(ctx context.Context, query string, args ...any) ([]memory.Excerpt, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query excerpts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var excerpts []memory.Excerpt
	for rows.Next() {
		var (
			ex   memory.Excerpt
			blob []byte
		)
		if err := rows.Scan(&ex.ID, &ex.DocumentID, &ex.Ordinal, &ex.Text, &blob); err != nil {
			return nil, fmt.Errorf("sqlite: scan excerpt: %w", err)
		}
		vec, err := decodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("sqlite: excerpt %s: %w", ex.ID, err)
		}
		ex.Embedding = vec
		excerpts = append(excerpts, ex)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: excerpt rows: %w", err)
	}
	return excerpts, nil
}

func requireRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
