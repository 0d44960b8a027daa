// Package postgres implements the idea store against a shared PostgreSQL
// database. Rows are scoped by owner so several users can share one table.
// Changes are observed through LISTEN/NOTIFY on NotifyChannel.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mesh-intelligence/ideas/internal/ident"
	"github.com/mesh-intelligence/ideas/internal/logger"
	"github.com/mesh-intelligence/ideas/pkg/types"
)

// Compile-time interface checks.
var (
	_ types.IdeaStore  = (*Store)(nil)
	_ types.ChangeFeed = (*Store)(nil)
)

const columns = `id, title, description, rating, created_at, updated_at`

// Store implements types.IdeaStore and types.ChangeFeed over a pgx pool.
type Store struct {
	pool    *pgxpool.Pool
	owner   string
	stamper *ident.Stamper
	newID   func() string
	log     *logger.Logger

	closeOnce sync.Once
	done      chan struct{} // closed by Close; ends subscriptions

	mu     sync.Mutex // guards closed and subs.Add
	closed bool
	subs   sync.WaitGroup
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used for timestamps.
func WithClock(c ident.Clock) Option {
	return func(s *Store) { s.stamper = ident.NewStamper(c) }
}

// WithIDGenerator replaces ident.NewID.
func WithIDGenerator(f func() string) Option {
	return func(s *Store) { s.newID = f }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Store) { s.log = l }
}

// Open connects to databaseURL and verifies the connection.
func Open(ctx context.Context, databaseURL, owner string, opts ...Option) (*Store, error) {
	if databaseURL == "" {
		return nil, types.ErrDatabaseURLEmpty
	}
	if owner == "" {
		return nil, types.ErrOwnerEmpty
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: creating pool: %w", types.ErrNetwork, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping: %w", types.ErrNetwork, err)
	}
	return New(pool, owner, opts...), nil
}

// New wraps an existing pool. The Store takes ownership of the pool and
// closes it in Close.
func New(pool *pgxpool.Pool, owner string, opts ...Option) *Store {
	s := &Store{
		pool:    pool,
		owner:   owner,
		stamper: ident.NewStamper(nil),
		newID:   ident.NewID,
		log:     logger.Discard(),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close ends subscriptions and closes the pool.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		close(s.done)
		s.subs.Wait()
		if s.pool != nil {
			s.pool.Close()
		}
	})
	return nil
}

// register counts a new subscription. It reports false once Close has
// started; no subscription may be added after that.
func (s *Store) register() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.subs.Add(1)
	return true
}

// GetAll returns the owner's ideas newest first.
func (s *Store) GetAll(ctx context.Context) ([]types.Idea, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+columns+` FROM ideas WHERE user_id = $1 ORDER BY created_at DESC, id`,
		s.owner)
	if err != nil {
		return nil, s.networkErr("get all", err)
	}
	ideas, err := collectIdeas(rows)
	if err != nil {
		return nil, s.networkErr("get all", err)
	}
	return ideas, nil
}

// GetPaginated returns up to limit ideas starting at offset, newest first.
func (s *Store) GetPaginated(ctx context.Context, offset, limit int) ([]types.Idea, error) {
	if offset < 0 || limit <= 0 {
		return nil, types.ErrInvalidPagination
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+columns+` FROM ideas WHERE user_id = $1
		 ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`,
		s.owner, limit, offset)
	if err != nil {
		return nil, s.networkErr("get page", err)
	}
	ideas, err := collectIdeas(rows)
	if err != nil {
		return nil, s.networkErr("get page", err)
	}
	s.log.Debug(logger.EventPagination, "page fetched",
		logger.Fields("offset", offset, "limit", limit, "count", len(ideas)))
	return ideas, nil
}

// Add validates draft and inserts a new idea.
func (s *Store) Add(ctx context.Context, draft types.Draft) (types.Idea, error) {
	draft = draft.Normalize()
	if err := draft.Validate(); err != nil {
		s.log.Warn(logger.EventValidation, "add rejected", logger.Fields("err", err))
		return types.Idea{}, err
	}

	now := s.stamper.Stamp()
	idea := types.Idea{
		ID:          s.newID(),
		Title:       draft.Title,
		Description: draft.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if draft.Rating != nil {
		idea.Rating = types.IntPtr(*draft.Rating)
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO ideas (id, user_id, title, description, rating, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		idea.ID, s.owner, idea.Title, nullable(idea.Description), idea.Rating, idea.CreatedAt, idea.UpdatedAt)
	if err != nil {
		return types.Idea{}, fmt.Errorf("adding idea: %w", s.networkErr("insert", err))
	}

	s.log.Info(logger.EventMutation, "idea added", logger.Fields("op", "add", "id", idea.ID))
	return idea, nil
}

// Update merges patch into the owner's idea with the given id. The row is
// locked for the read-merge-write so concurrent updates apply in turn.
func (s *Store) Update(ctx context.Context, id string, patch types.Patch) (types.Idea, error) {
	if id == "" {
		return types.Idea{}, types.ErrInvalidID
	}
	patch = patch.Normalize()

	var updated types.Idea
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx,
			`SELECT `+columns+` FROM ideas WHERE user_id = $1 AND id = $2 FOR UPDATE`,
			s.owner, id)
		current, err := scanIdea(row)
		if errors.Is(err, pgx.ErrNoRows) {
			return types.ErrNotFound
		}
		if err != nil {
			return s.networkErr("select for update", err)
		}

		merged := patch.ApplyTo(current)
		merged.ID = current.ID
		merged.CreatedAt = current.CreatedAt
		merged.UpdatedAt = s.stamper.StampAfter(current.UpdatedAt)
		if err := merged.Validate(); err != nil {
			return err
		}

		_, err = tx.Exec(ctx,
			`UPDATE ideas SET title = $3, description = $4, rating = $5, updated_at = $6
			 WHERE user_id = $1 AND id = $2`,
			s.owner, id, merged.Title, nullable(merged.Description), merged.Rating, merged.UpdatedAt)
		if err != nil {
			return s.networkErr("update", err)
		}
		updated = merged
		return nil
	})
	if err != nil {
		if errors.Is(err, types.ErrValidation) {
			s.log.Warn(logger.EventValidation, "update rejected", logger.Fields("id", id, "err", err))
		} else if !errors.Is(err, types.ErrNotFound) && !errors.Is(err, types.ErrNetwork) {
			err = s.networkErr("update", err)
		}
		return types.Idea{}, fmt.Errorf("updating idea %s: %w", id, err)
	}

	s.log.Info(logger.EventMutation, "idea updated", logger.Fields("op", "update", "id", id))
	return updated, nil
}

// Delete removes the owner's idea with the given id. An absent id is a no-op.
func (s *Store) Delete(ctx context.Context, id string) error {
	if id == "" {
		return types.ErrInvalidID
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM ideas WHERE user_id = $1 AND id = $2`, s.owner, id)
	if err != nil {
		return fmt.Errorf("deleting idea %s: %w", id, s.networkErr("delete", err))
	}
	if tag.RowsAffected() > 0 {
		s.log.Info(logger.EventMutation, "idea deleted", logger.Fields("op", "delete", "id", id))
	}
	return nil
}

// Clear removes all of the owner's ideas.
func (s *Store) Clear(ctx context.Context) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM ideas WHERE user_id = $1`, s.owner)
	if err != nil {
		return fmt.Errorf("clearing ideas: %w", s.networkErr("clear", err))
	}
	s.log.Info(logger.EventMutation, "ideas cleared", logger.Fields("op", "clear", "count", tag.RowsAffected()))
	return nil
}

func (s *Store) networkErr(op string, err error) error {
	s.log.Error(logger.EventDBError, "query failed", logger.Fields("op", op, "err", err))
	return fmt.Errorf("%w: %s: %w", types.ErrNetwork, op, err)
}

// nullable maps an empty description to SQL NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func scanIdea(row pgx.Row) (types.Idea, error) {
	var (
		idea types.Idea
		desc *string
	)
	if err := row.Scan(&idea.ID, &idea.Title, &desc, &idea.Rating, &idea.CreatedAt, &idea.UpdatedAt); err != nil {
		return types.Idea{}, err
	}
	if desc != nil {
		idea.Description = *desc
	}
	idea.CreatedAt = idea.CreatedAt.UTC()
	idea.UpdatedAt = idea.UpdatedAt.UTC()
	return idea, nil
}

func collectIdeas(rows pgx.Rows) ([]types.Idea, error) {
	defer rows.Close()
	ideas := []types.Idea{}
	for rows.Next() {
		idea, err := scanIdea(rows)
		if err != nil {
			return nil, err
		}
		ideas = append(ideas, idea)
	}
	return ideas, rows.Err()
}
