// Package pager exposes an idea store as successive fixed-size pages for
// infinite-scroll consumers, accumulating the pages fetched so far into a
// working set.
package pager

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/mesh-intelligence/ideas/internal/logger"
	"github.com/mesh-intelligence/ideas/pkg/types"
)

// Source supplies pages ordered by CreatedAt descending. types.IdeaStore
// satisfies it.
type Source interface {
	GetPaginated(ctx context.Context, offset, limit int) ([]types.Idea, error)
}

// Pager tracks the current page, whether more pages exist, and the working
// set. Safe for concurrent use.
type Pager struct {
	src  Source
	size int
	log  *logger.Logger

	mu      sync.Mutex
	items   []types.Idea
	page    int
	hasMore bool
	loading bool
	loaded  bool // a page has been folded in since the last Refresh
	err     error
	gen     uint64 // bumped by Refresh; loads from older generations are discarded
}

// New returns a Pager over src with the given page size. A non-positive
// size means types.DefaultPageSize. A nil log discards entries.
func New(src Source, size int, log *logger.Logger) *Pager {
	if size <= 0 {
		size = types.DefaultPageSize
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Pager{src: src, size: size, log: log, hasMore: true}
}

// PageSize returns the configured page size.
func (p *Pager) PageSize() int { return p.size }

// LoadPage fetches page n. Page 0 replaces the working set; later pages are
// appended. HasMore becomes true only when a full page came back. On error
// the working set and page index are left as they were, Err reports the
// failure, and the error is returned.
func (p *Pager) LoadPage(ctx context.Context, n int) error {
	if n < 0 {
		return fmt.Errorf("page %d: %w", n, types.ErrInvalidPagination)
	}
	p.mu.Lock()
	p.loading = true
	p.err = nil
	gen := p.gen
	p.mu.Unlock()

	return p.fetch(ctx, n, n*p.size, gen)
}

// fetch requests one page at offset and folds the result into the working
// set as page n, unless a Refresh happened in the meantime.
func (p *Pager) fetch(ctx context.Context, n, offset int, gen uint64) error {
	data, err := p.src.GetPaginated(ctx, offset, p.size)

	p.mu.Lock()
	defer p.mu.Unlock()

	if gen != p.gen {
		p.log.Debug(logger.EventPagination, "stale page discarded", logger.Fields("page", n))
		return nil
	}
	p.loading = false

	if err != nil {
		p.err = err
		p.log.Error(logger.EventPagination, "loading page failed", logger.Fields("page", n, "err", err))
		return fmt.Errorf("loading page %d: %w", n, err)
	}

	if n == 0 {
		p.items = slices.Clone(data)
	} else {
		for _, idea := range data {
			if !slices.ContainsFunc(p.items, func(i types.Idea) bool { return i.ID == idea.ID }) {
				p.items = append(p.items, idea)
			}
		}
	}
	p.page = n
	p.loaded = true
	p.hasMore = len(data) == p.size
	p.log.Debug(logger.EventPagination, "page loaded",
		logger.Fields("page", n, "count", len(data), "has_more", p.hasMore))
	return nil
}

// Refresh resets to page 0 and reloads it. Any load still in flight is
// discarded when it completes.
func (p *Pager) Refresh(ctx context.Context) error {
	p.mu.Lock()
	p.gen++
	p.page = 0
	p.loaded = false
	p.hasMore = true
	p.loading = true
	p.err = nil
	gen := p.gen
	p.mu.Unlock()

	return p.fetch(ctx, 0, 0, gen)
}

// LoadNext loads the page after the current one. It is a no-op while a load
// is in flight or when no more pages exist. The page is requested at the
// working set's length rather than at page*size, so creates and deletes
// folded in by Apply neither repeat nor skip ideas.
func (p *Pager) LoadNext(ctx context.Context) error {
	p.mu.Lock()
	if p.loading || !p.hasMore {
		p.mu.Unlock()
		return nil
	}
	next, offset := p.page+1, len(p.items)
	if !p.loaded {
		next, offset = 0, 0
	}
	p.loading = true
	p.err = nil
	gen := p.gen
	p.mu.Unlock()

	return p.fetch(ctx, next, offset, gen)
}

// LoadAll loads pages until HasMore is false and returns the working set.
func (p *Pager) LoadAll(ctx context.Context) ([]types.Idea, error) {
	if err := p.Refresh(ctx); err != nil {
		return nil, err
	}
	for n := 1; p.HasMore(); n++ {
		if err := p.LoadPage(ctx, n); err != nil {
			return nil, err
		}
	}
	return p.Items(), nil
}

// Items returns a copy of the working set.
func (p *Pager) Items() []types.Idea {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.items)
}

// Page returns the index of the last page loaded.
func (p *Pager) Page() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.page
}

// HasMore reports whether another page may exist.
func (p *Pager) HasMore() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hasMore
}

// Loading reports whether a load is in flight.
func (p *Pager) Loading() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loading
}

// Err returns the error from the most recent load, or nil.
func (p *Pager) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}
