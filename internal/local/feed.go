package local

import (
	"context"
	"sync"

	"github.com/mesh-intelligence/ideas/internal/logger"
	"github.com/mesh-intelligence/ideas/pkg/types"
)

// subscriberBuffer is how many changes a subscriber may fall behind before
// it is dropped.
const subscriberBuffer = 64

// broadcaster fans changes out to subscribers without ever blocking the
// publisher.
type broadcaster struct {
	log *logger.Logger

	mu     sync.Mutex
	subs   map[chan types.Change]struct{}
	closed bool
	done   chan struct{}
}

func newBroadcaster(log *logger.Logger) *broadcaster {
	return &broadcaster{
		log:  log,
		subs: make(map[chan types.Change]struct{}),
		done: make(chan struct{}),
	}
}

// subscribe registers a channel that is closed when ctx ends, the
// subscriber falls too far behind, or the broadcaster closes.
func (b *broadcaster) subscribe(ctx context.Context) <-chan types.Change {
	ch := make(chan types.Change, subscriberBuffer)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch
	}
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			b.drop(ch)
		case <-b.done:
		}
	}()
	return ch
}

// drop removes and closes ch if it is still registered.
func (b *broadcaster) drop(ch chan types.Change) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
}

func (b *broadcaster) publish(c types.Change) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- c:
		default:
			delete(b.subs, ch)
			close(ch)
			b.log.Warn(logger.EventFeed, "subscriber fell behind, dropped", logger.Fields("op", string(c.Op), "id", c.Idea.ID))
		}
	}
}

func (b *broadcaster) closeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.done)
	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
}
