package cli

import (
	"context"
	"fmt"

	"github.com/mesh-intelligence/ideas/internal/backend"
	"github.com/mesh-intelligence/ideas/pkg/types"
)

// withBackend opens the backend, runs fn, and closes the backend. A close
// failure is reported only when fn succeeded.
func (a *app) withBackend(ctx context.Context, fn func(*backend.Backend) error) (err error) {
	b, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := b.Close(); cerr != nil && err == nil {
			err = &sysError{fmt.Errorf("close backend: %w", cerr)}
		}
	}()
	return fn(b)
}

// findIdea returns the idea with the given id from the full collection.
func findIdea(ctx context.Context, store types.IdeaStore, id string) (types.Idea, error) {
	ideas, err := store.GetAll(ctx)
	if err != nil {
		return types.Idea{}, err
	}
	for _, idea := range ideas {
		if idea.ID == id {
			return idea, nil
		}
	}
	return types.Idea{}, fmt.Errorf("idea %q: %w", id, types.ErrNotFound)
}
