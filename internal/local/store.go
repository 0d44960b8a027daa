// Package local implements the idea store over a key-value blob: the whole
// collection is serialized as one JSON array under a fixed key and every
// mutation rewrites it. Mutations run one at a time, in arrival order, on a
// single writer goroutine so concurrent callers cannot lose each other's
// writes.
package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/mesh-intelligence/ideas/internal/ident"
	"github.com/mesh-intelligence/ideas/internal/kv"
	"github.com/mesh-intelligence/ideas/internal/logger"
	"github.com/mesh-intelligence/ideas/pkg/types"
)

// Compile-time interface checks.
var (
	_ types.IdeaStore  = (*Store)(nil)
	_ types.ChangeFeed = (*Store)(nil)
)

// queueDepth bounds how many mutations may wait for the writer before
// callers block on submit.
const queueDepth = 64

// Store implements types.IdeaStore and types.ChangeFeed over a kv.Store.
type Store struct {
	kv      kv.Store
	key     string
	stamper *ident.Stamper
	newID   func() string
	log     *logger.Logger

	mu     sync.RWMutex // guards closed and sends on queue
	closed bool
	queue  chan request
	idle   chan struct{} // closed when the writer exits

	feed *broadcaster

	// corruptSaved is only touched by the writer goroutine.
	corruptSaved bool
}

// request is one queued mutation.
type request struct {
	ctx  context.Context
	run  func(ctx context.Context) error
	done chan error
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used for CreatedAt and UpdatedAt.
func WithClock(c ident.Clock) Option {
	return func(s *Store) { s.stamper = ident.NewStamper(c) }
}

// WithIDGenerator replaces ident.NewID.
func WithIDGenerator(f func() string) Option {
	return func(s *Store) { s.newID = f }
}

// WithLogger sets the logger. The default discards entries.
func WithLogger(l *logger.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithKey overrides the storage key (default types.IdeasKey).
func WithKey(key string) Option {
	return func(s *Store) { s.key = key }
}

// New returns a Store over store and starts its writer. The Store owns
// store and closes it on Close.
func New(store kv.Store, opts ...Option) *Store {
	s := &Store{
		kv:      store,
		key:     types.IdeasKey,
		stamper: ident.NewStamper(nil),
		newID:   ident.NewID,
		log:     logger.Discard(),
		queue:   make(chan request, queueDepth),
		idle:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.feed = newBroadcaster(s.log)
	go s.writer()
	return s
}

// writer applies queued mutations one at a time, FIFO. Mutations publish
// their change from here, so feed order is write order.
func (s *Store) writer() {
	defer close(s.idle)
	for req := range s.queue {
		if err := req.ctx.Err(); err != nil {
			req.done <- err
			continue
		}
		req.done <- req.run(req.ctx)
	}
}

// submit queues run and waits for its result.
func (s *Store) submit(ctx context.Context, run func(ctx context.Context) error) error {
	req := request{ctx: ctx, run: run, done: make(chan error, 1)}

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return types.ErrClosed
	}
	s.queue <- req
	s.mu.RUnlock()

	return <-req.done
}

// Close waits for queued mutations to finish, stops the writer, ends every
// subscription, and closes the underlying kv store. Idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()

	<-s.idle
	s.feed.closeAll()
	return s.kv.Close()
}

func (s *Store) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// GetAll returns the collection in storage order (newest additions first).
func (s *Store) GetAll(ctx context.Context) ([]types.Idea, error) {
	if s.isClosed() {
		return nil, types.ErrClosed
	}
	ideas, _, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return ideas, nil
}

// GetPaginated returns ideas[offset:offset+limit] of the collection sorted
// by CreatedAt descending. Ties keep storage order.
func (s *Store) GetPaginated(ctx context.Context, offset, limit int) ([]types.Idea, error) {
	if offset < 0 || limit <= 0 {
		return nil, types.ErrInvalidPagination
	}
	ideas, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	SortNewestFirst(ideas)
	if offset >= len(ideas) {
		return []types.Idea{}, nil
	}
	end := min(offset+limit, len(ideas))
	return slices.Clone(ideas[offset:end]), nil
}

// SortNewestFirst stable-sorts ideas by CreatedAt descending in place.
func SortNewestFirst(ideas []types.Idea) {
	slices.SortStableFunc(ideas, func(a, b types.Idea) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}

// Add validates draft, stamps a new idea, and prepends it.
func (s *Store) Add(ctx context.Context, draft types.Draft) (types.Idea, error) {
	draft = draft.Normalize()
	if err := draft.Validate(); err != nil {
		s.log.Warn(logger.EventValidation, "add rejected", logger.Fields("err", err))
		return types.Idea{}, err
	}

	var created types.Idea
	err := s.submit(ctx, func(ctx context.Context) error {
		ideas, err := s.loadForWrite(ctx)
		if err != nil {
			return err
		}

		now := s.stamper.Stamp()
		created = types.Idea{
			ID:          s.uniqueID(ideas),
			Title:       draft.Title,
			Description: draft.Description,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if draft.Rating != nil {
			created.Rating = types.IntPtr(*draft.Rating)
		}

		if err := s.save(ctx, append([]types.Idea{created}, ideas...)); err != nil {
			return err
		}
		s.feed.publish(types.Change{Op: types.OpCreate, Idea: created.Clone()})
		return nil
	})
	if err != nil {
		return types.Idea{}, fmt.Errorf("adding idea: %w", err)
	}

	s.log.Info(logger.EventMutation, "idea added", logger.Fields("op", "add", "id", created.ID))
	return created, nil
}

// Update merges patch into the idea with the given id.
func (s *Store) Update(ctx context.Context, id string, patch types.Patch) (types.Idea, error) {
	if id == "" {
		return types.Idea{}, types.ErrInvalidID
	}
	patch = patch.Normalize()

	var updated types.Idea
	err := s.submit(ctx, func(ctx context.Context) error {
		ideas, err := s.loadForWrite(ctx)
		if err != nil {
			return err
		}

		idx := slices.IndexFunc(ideas, func(i types.Idea) bool { return i.ID == id })
		if idx < 0 {
			return types.ErrNotFound
		}

		merged := patch.ApplyTo(ideas[idx])
		merged.ID = ideas[idx].ID
		merged.CreatedAt = ideas[idx].CreatedAt
		merged.UpdatedAt = s.stamper.StampAfter(ideas[idx].UpdatedAt)
		if err := merged.Validate(); err != nil {
			return err
		}

		ideas[idx] = merged
		if err := s.save(ctx, ideas); err != nil {
			return err
		}
		updated = merged
		s.feed.publish(types.Change{Op: types.OpUpdate, Idea: merged.Clone()})
		return nil
	})
	if err != nil {
		if errors.Is(err, types.ErrValidation) {
			s.log.Warn(logger.EventValidation, "update rejected", logger.Fields("id", id, "err", err))
		}
		return types.Idea{}, fmt.Errorf("updating idea %s: %w", id, err)
	}

	s.log.Info(logger.EventMutation, "idea updated", logger.Fields("op", "update", "id", id))
	return updated, nil
}

// Delete removes the idea with the given id. An absent id is a no-op and
// does not rewrite the collection.
func (s *Store) Delete(ctx context.Context, id string) error {
	if id == "" {
		return types.ErrInvalidID
	}

	var removed *types.Idea
	err := s.submit(ctx, func(ctx context.Context) error {
		ideas, err := s.loadForWrite(ctx)
		if err != nil {
			return err
		}

		idx := slices.IndexFunc(ideas, func(i types.Idea) bool { return i.ID == id })
		if idx < 0 {
			return nil
		}
		gone := ideas[idx]
		if err := s.save(ctx, slices.Delete(ideas, idx, idx+1)); err != nil {
			return err
		}
		removed = &gone
		s.feed.publish(types.Change{Op: types.OpDelete, Idea: gone})
		return nil
	})
	if err != nil {
		return fmt.Errorf("deleting idea %s: %w", id, err)
	}

	if removed != nil {
		s.log.Info(logger.EventMutation, "idea deleted", logger.Fields("op", "delete", "id", id))
	}
	return nil
}

// Clear removes the stored collection.
func (s *Store) Clear(ctx context.Context) error {
	var removed []types.Idea
	err := s.submit(ctx, func(ctx context.Context) error {
		ideas, err := s.loadForWrite(ctx)
		if err != nil {
			return err
		}
		if err := s.kv.Remove(ctx, s.key); err != nil {
			return fmt.Errorf("%w: %w", types.ErrStorage, err)
		}
		removed = ideas
		for _, idea := range ideas {
			s.feed.publish(types.Change{Op: types.OpDelete, Idea: idea})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("clearing ideas: %w", err)
	}

	s.log.Info(logger.EventMutation, "ideas cleared", logger.Fields("op", "clear", "count", len(removed)))
	return nil
}

// Subscribe streams changes made through this Store.
func (s *Store) Subscribe(ctx context.Context) (<-chan types.Change, error) {
	if s.isClosed() {
		return nil, types.ErrClosed
	}
	return s.feed.subscribe(ctx), nil
}

// uniqueID draws IDs until one is not already in ideas.
func (s *Store) uniqueID(ideas []types.Idea) string {
	for {
		id := s.newID()
		if !slices.ContainsFunc(ideas, func(i types.Idea) bool { return i.ID == id }) {
			return id
		}
		s.log.Warn(logger.EventMutation, "generated id collided, retrying", logger.Fields("id", id))
	}
}

// load reads and decodes the collection. A missing key is an empty
// collection. A blob that does not decode is logged and treated as empty;
// its raw bytes are returned so a writer can preserve them.
func (s *Store) load(ctx context.Context) ([]types.Idea, []byte, error) {
	raw, err := s.kv.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, kv.ErrKeyNotFound) {
			return []types.Idea{}, nil, nil
		}
		s.log.Error(logger.EventStorageRead, "reading ideas failed", logger.Fields("key", s.key, "err", err))
		return nil, nil, fmt.Errorf("%w: %w", types.ErrStorage, err)
	}

	ideas, err := Decode(raw)
	if err != nil {
		s.log.Warn(logger.EventStorageCorrupt, "stored ideas are malformed, treating as empty",
			logger.Fields("key", s.key, "bytes", len(raw), "err", err))
		return []types.Idea{}, raw, nil
	}
	return ideas, nil, nil
}

// loadForWrite loads the collection and, the first time it finds a corrupt
// blob, copies the blob aside before it gets overwritten.
func (s *Store) loadForWrite(ctx context.Context) ([]types.Idea, error) {
	ideas, corrupt, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if corrupt != nil && !s.corruptSaved {
		backup := s.key + ".corrupt"
		if err := s.kv.Set(ctx, backup, corrupt); err != nil {
			return nil, fmt.Errorf("%w: preserving corrupt blob: %w", types.ErrStorage, err)
		}
		s.corruptSaved = true
		s.log.Warn(logger.EventStorageCorrupt, "malformed ideas preserved", logger.Fields("key", backup))
	}
	return ideas, nil
}

// save encodes and writes the whole collection.
func (s *Store) save(ctx context.Context, ideas []types.Idea) error {
	data, err := Encode(ideas)
	if err != nil {
		return fmt.Errorf("%w: encoding ideas: %w", types.ErrStorage, err)
	}
	if err := s.kv.Set(ctx, s.key, data); err != nil {
		s.log.Error(logger.EventStorageWrite, "writing ideas failed", logger.Fields("key", s.key, "err", err))
		return fmt.Errorf("%w: %w", types.ErrStorage, err)
	}
	s.log.Debug(logger.EventStorageWrite, "ideas written", logger.Fields("count", len(ideas), "bytes", len(data)))
	return nil
}

// Encode serializes ideas as a JSON array. A nil slice encodes as [].
func Encode(ideas []types.Idea) ([]byte, error) {
	if ideas == nil {
		ideas = []types.Idea{}
	}
	return json.Marshal(ideas)
}

// Decode parses a JSON array of ideas. JSON null decodes as empty.
func Decode(data []byte) ([]types.Idea, error) {
	var ideas []types.Idea
	if err := json.Unmarshal(data, &ideas); err != nil {
		return nil, err
	}
	if ideas == nil {
		ideas = []types.Idea{}
	}
	return ideas, nil
}
