package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
	"go.uber.org/zap"

	applog "github.com/padraicbc/nflodds/logger"
)

var (
	// ErrNotFound wraps sql.ErrNoRows for lookups that may legitimately miss.
	ErrNotFound = fmt.Errorf("not found: %w", sql.ErrNoRows)
	// ErrDuplicate is returned when an insert hits a unique constraint.
	ErrDuplicate = errors.New("duplicate key")
)

const uniqueViolation = "23505"

const (
	lockFeedSQL   = "SELECT pg_advisory_lock(hashtext(?))"
	unlockFeedSQL = "SELECT pg_advisory_unlock(hashtext(?))"
)

// Store is the bun-backed entity store.
type Store struct {
	db  *bun.DB
	log *zap.Logger
}

// NewStore wraps an open connection pool.
func NewStore(db *bun.DB, log *zap.Logger) *Store {
	return &Store{db: db, log: applog.OrNop(log)}
}

// DB exposes the underlying pool for tooling such as cmd/migrate.
func (s *Store) DB() *bun.DB { return s.db }

// Repo returns a repository running each statement in its own implicit transaction.
func (s *Store) Repo() *Repo { return &Repo{db: s.db} }

// InTx runs fn inside one transaction. The transaction is committed when fn
// returns nil and rolled back otherwise, including on panic.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, r Repository) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(ctx, &Repo{db: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true

	return nil
}

// EnsureSport resolves the sport outside any caller transaction.
func (s *Store) EnsureSport(ctx context.Context, name string) (int64, error) {
	sport, _, err := s.Repo().EnsureSport(ctx, name)
	if err != nil {
		return 0, err
	}
	return sport.SportID, nil
}

// LockFeed takes a session-level advisory lock keyed on feed, blocking until
// it is granted or ctx is done. The lock lives on a dedicated connection so it
// outlasts the per-event transactions of a run. The returned func releases it.
func (s *Store) LockFeed(ctx context.Context, feed string) (func(), error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire lock connection: %w", err)
	}
	if _, err := conn.ExecContext(ctx, lockFeedSQL, feed); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("advisory lock %q: %w", feed, err)
	}

	return func() {
		if _, err := conn.ExecContext(context.Background(), unlockFeedSQL, feed); err != nil {
			s.log.Warn("failed to release feed lock", zap.String("feed", feed), zap.Error(err))
		}
		_ = conn.Close()
	}, nil
}

// Counts holds debug row counts.
type Counts struct {
	Teams   int `json:"teams"`
	Matches int `json:"matches"`
	Odds    int `json:"odds"`
}

// Counts returns the number of team, match and odds rows.
func (s *Store) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := s.db.NewRaw(`
		SELECT
			(SELECT count(*) FROM sports_teams) AS teams,
			(SELECT count(*) FROM matches)      AS matches,
			(SELECT count(*) FROM betting_odds) AS odds`,
	).Scan(ctx, &c.Teams, &c.Matches, &c.Odds)
	if err != nil {
		return Counts{}, fmt.Errorf("counting rows: %w", err)
	}
	return c, nil
}

func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.Field('C') == uniqueViolation
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
