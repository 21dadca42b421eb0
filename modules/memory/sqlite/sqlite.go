// Package sqlite implements persistent storage for conversation turns,
// facts and document excerpts. It uses modernc.org/sqlite (pure Go, no
// CGO) in WAL mode. Vectors are stored as little-endian float32 blobs and
// ranked in process.
package sqlite

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/flemzord/confidant/internal/memory"

	_ "modernc.org/sqlite" // SQLite driver registration
)

// Compile-time interface guards.
var (
	_ memory.TurnStore    = (*Store)(nil)
	_ memory.FactStore    = (*Store)(nil)
	_ memory.ExcerptStore = (*Store)(nil)
)

// Store is a SQLite-backed turn, fact and excerpt store.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time

	idMu    sync.Mutex
	entropy io.Reader
}

// Open opens (creating if needed) the database described by cfg and
// migrates its schema. The caller must Close the store.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	cfg.Defaults("")
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("sqlite: create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", cfg.Path, err)
	}

	// SQLite handles one writer at a time; a single connection keeps
	// PRAGMAs applied consistently.
	db.SetMaxOpenConns(1)

	if cfg.walEnabled() {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite: enable WAL: %w", err)
		}
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout=%d", cfg.BusyTimeout)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: set busy_timeout: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{
		db:      db,
		logger:  logger.With("component", "storage.sqlite"),
		now:     time.Now,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
	s.logger.Info("sqlite store opened", "path", cfg.Path, "wal", cfg.walEnabled(), "schema", schemaVersion)
	return s, nil
}

// WithClock overrides the clock used for default timestamps and fact age.
// Intended for tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: ping failed: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// NewID returns a fresh, lexically sortable identifier.
func (s *Store) NewID() string {
	s.idMu.Lock()
	defer s.idMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(s.now()), s.entropy).String()
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(v string) (time.Time, error) {
	t, err := time.Parse(timeLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite: parse time %q: %w", v, err)
	}
	return t, nil
}

// scanner abstracts *sql.Row and *sql.Rows for shared scan logic.
type scanner interface {
	Scan(dest ...any) error
}
