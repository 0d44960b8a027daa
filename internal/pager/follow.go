package pager

import (
	"context"
	"slices"

	"github.com/mesh-intelligence/ideas/internal/logger"
	"github.com/mesh-intelligence/ideas/pkg/types"
)

// Apply patches the working set with a change from a feed. Created ideas
// are inserted at their CreatedAt-descending position. One that sorts after
// the last loaded item while more pages remain is left for a later page.
// Updates replace in place; deletes remove.
func (p *Pager) Apply(c types.Change) {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx := slices.IndexFunc(p.items, func(i types.Idea) bool { return i.ID == c.Idea.ID })

	switch c.Op {
	case types.OpCreate:
		if idx >= 0 {
			p.items[idx] = c.Idea
			return
		}
		pos, _ := slices.BinarySearchFunc(p.items, c.Idea, func(have, want types.Idea) int {
			// Descending by CreatedAt; equal timestamps place the new idea first.
			if have.CreatedAt.After(want.CreatedAt) {
				return -1
			}
			return 1
		})
		if pos == len(p.items) && p.hasMore {
			return
		}
		p.items = slices.Insert(p.items, pos, c.Idea)
	case types.OpUpdate:
		if idx >= 0 {
			p.items[idx] = c.Idea
		}
	case types.OpDelete:
		if idx >= 0 {
			p.items = slices.Delete(p.items, idx, idx+1)
		}
	default:
		p.log.Warn(logger.EventFeed, "unknown change op ignored", logger.Fields("op", string(c.Op)))
	}
}

// Follow applies changes from feed until it closes or ctx is done.
func (p *Pager) Follow(ctx context.Context, feed <-chan types.Change) {
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-feed:
			if !ok {
				return
			}
			p.Apply(c)
		}
	}
}
