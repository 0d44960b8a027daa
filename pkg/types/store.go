package types

import "context"

// IdeaStore is the sole authority for the durable state of the idea
// collection. The local and Postgres backends both implement it, so either
// can stand behind the pager and the CLI.
type IdeaStore interface {
	// GetAll returns the full collection in storage order. A missing or
	// unreadable collection yields an empty slice; only I/O failures are
	// returned as errors.
	GetAll(ctx context.Context) ([]Idea, error)

	// Add validates the draft, assigns an ID and timestamps, persists the
	// collection, and returns the created idea.
	Add(ctx context.Context, draft Draft) (Idea, error)

	// Update merges the patch into the idea with the given ID and refreshes
	// UpdatedAt. Returns ErrNotFound if no idea has that ID.
	Update(ctx context.Context, id string, patch Patch) (Idea, error)

	// Delete removes the idea with the given ID. Deleting an absent ID is a
	// no-op.
	Delete(ctx context.Context, id string) error

	// GetPaginated returns up to limit ideas starting at offset, ordered by
	// CreatedAt descending.
	GetPaginated(ctx context.Context, offset, limit int) ([]Idea, error)

	// Clear removes every idea.
	Clear(ctx context.Context) error
}

// ChangeFeed streams mutations as they happen.
type ChangeFeed interface {
	// Subscribe returns a channel of changes that closes when ctx is done or
	// the underlying store closes. A closed subscription cannot be resumed;
	// call Subscribe again for a new one.
	Subscribe(ctx context.Context) (<-chan Change, error)
}
