package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mesh-intelligence/ideas/internal/logger"
	"github.com/mesh-intelligence/ideas/pkg/types"
)

// notification is the payload the ideas trigger sends.
type notification struct {
	Op     types.ChangeOp `json:"op"`
	UserID string         `json:"user_id"`
	Idea   types.Idea     `json:"idea"`
}

// Subscribe listens on NotifyChannel with a dedicated connection and streams
// the owner's changes, including those made by other processes. The channel
// closes when ctx ends, the connection fails, or the Store closes.
func (s *Store) Subscribe(ctx context.Context) (<-chan types.Change, error) {
	if !s.register() {
		return nil, types.ErrClosed
	}

	pooled, err := s.pool.Acquire(ctx)
	if err != nil {
		s.subs.Done()
		return nil, fmt.Errorf("%w: acquiring listen connection: %w", types.ErrNetwork, err)
	}
	// The connection leaves the pool so its LISTEN state never leaks to
	// other queries.
	conn := pooled.Hijack()
	if _, err := conn.Exec(ctx, "LISTEN "+NotifyChannel); err != nil {
		_ = conn.Close(context.Background())
		s.subs.Done()
		return nil, fmt.Errorf("%w: listen: %w", types.ErrNetwork, err)
	}

	listenCtx, cancel := context.WithCancel(ctx)
	out := make(chan types.Change)

	go func() {
		select {
		case <-s.done:
			cancel()
		case <-listenCtx.Done():
		}
	}()
	go func() {
		defer s.subs.Done()
		defer close(out)
		defer cancel()
		defer conn.Close(context.Background())

		s.log.Info(logger.EventFeed, "listening for changes", logger.Fields("channel", NotifyChannel))
		for {
			n, err := conn.WaitForNotification(listenCtx)
			if err != nil {
				if listenCtx.Err() == nil {
					s.log.Error(logger.EventFeed, "listen connection failed", logger.Fields("err", err))
				}
				return
			}

			var msg notification
			if err := json.Unmarshal([]byte(n.Payload), &msg); err != nil {
				s.log.Warn(logger.EventFeed, "malformed notification", logger.Fields("err", err))
				continue
			}
			if msg.UserID != s.owner {
				continue
			}
			msg.Idea.CreatedAt = msg.Idea.CreatedAt.UTC()
			msg.Idea.UpdatedAt = msg.Idea.UpdatedAt.UTC()

			select {
			case out <- types.Change{Op: msg.Op, Idea: msg.Idea}:
			case <-listenCtx.Done():
				return
			}
		}
	}()
	return out, nil
}
