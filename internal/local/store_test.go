package local

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/ideas/internal/ident"
	"github.com/mesh-intelligence/ideas/internal/kv"
	"github.com/mesh-intelligence/ideas/pkg/types"
)

// steppingClock advances one minute on every reading.
type steppingClock struct {
	mu  sync.Mutex
	now time.Time
}

func newSteppingClock() *steppingClock {
	return &steppingClock{now: time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Minute)
	return c.now
}

// failingKV wraps a kv.Store and fails selected operations.
type failingKV struct {
	kv.Store
	getErr error
	setErr error
}

func (f *failingKV) Get(ctx context.Context, key string) ([]byte, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.Store.Get(ctx, key)
}

func (f *failingKV) Set(ctx context.Context, key string, value []byte) error {
	if f.setErr != nil {
		return f.setErr
	}
	return f.Store.Set(ctx, key, value)
}

// setupStore returns a Store over an in-memory kv with a stepping clock.
func setupStore(t *testing.T, opts ...Option) (*Store, kv.Store) {
	t.Helper()
	mem := kv.NewMemStore()
	opts = append([]Option{WithClock(newSteppingClock())}, opts...)
	s := New(mem, opts...)
	t.Cleanup(func() { s.Close() })
	return s, mem
}

func mustAdd(t *testing.T, s *Store, d types.Draft) types.Idea {
	t.Helper()
	idea, err := s.Add(context.Background(), d)
	require.NoError(t, err)
	return idea
}

func rawBlob(t *testing.T, store kv.Store) string {
	t.Helper()
	data, err := store.Get(context.Background(), types.IdeasKey)
	if errors.Is(err, kv.ErrKeyNotFound) {
		return ""
	}
	require.NoError(t, err)
	return string(data)
}

func TestAdd(t *testing.T) {
	ctx := context.Background()

	t.Run("assigns id and equal timestamps", func(t *testing.T) {
		s, _ := setupStore(t)
		idea := mustAdd(t, s, types.Draft{Title: "  Buy milk  ", Description: " 2 litres ", Rating: types.IntPtr(4)})

		assert.NotEmpty(t, idea.ID)
		assert.Equal(t, "Buy milk", idea.Title)
		assert.Equal(t, "2 litres", idea.Description)
		require.NotNil(t, idea.Rating)
		assert.Equal(t, 4, *idea.Rating)
		assert.False(t, idea.CreatedAt.IsZero())
		assert.Equal(t, idea.CreatedAt, idea.UpdatedAt)
	})

	t.Run("prepends to storage order", func(t *testing.T) {
		s, _ := setupStore(t)
		first := mustAdd(t, s, types.Draft{Title: "first"})
		second := mustAdd(t, s, types.Draft{Title: "second"})

		all, err := s.GetAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, second.ID, all[0].ID)
		assert.Equal(t, first.ID, all[1].ID)
	})

	t.Run("rejects invalid drafts without writing", func(t *testing.T) {
		s, mem := setupStore(t)
		mustAdd(t, s, types.Draft{Title: "keep"})
		before := rawBlob(t, mem)

		for _, d := range []types.Draft{
			{Title: ""},
			{Title: "   "},
			{Title: "t", Rating: types.IntPtr(11)},
			{Title: "t", Rating: types.IntPtr(-1)},
		} {
			_, err := s.Add(ctx, d)
			assert.ErrorIs(t, err, types.ErrValidation)
		}
		assert.Equal(t, before, rawBlob(t, mem))
	})

	t.Run("draft rating is copied", func(t *testing.T) {
		s, _ := setupStore(t)
		r := types.IntPtr(5)
		idea := mustAdd(t, s, types.Draft{Title: "t", Rating: r})
		*r = 9
		assert.Equal(t, 5, *idea.Rating)
	})

	t.Run("regenerates colliding ids", func(t *testing.T) {
		ids := []string{"dup", "dup", "fresh"}
		var n int
		gen := func() string {
			id := ids[n]
			n++
			return id
		}
		s, _ := setupStore(t, WithIDGenerator(gen))

		a := mustAdd(t, s, types.Draft{Title: "a"})
		b := mustAdd(t, s, types.Draft{Title: "b"})
		assert.Equal(t, "dup", a.ID)
		assert.Equal(t, "fresh", b.ID)
	})
}

func TestAddIDsAreUnique(t *testing.T) {
	s, _ := setupStore(t)
	seen := make(map[string]bool)
	for i := range 100 {
		idea := mustAdd(t, s, types.Draft{Title: fmt.Sprintf("idea %d", i)})
		assert.False(t, seen[idea.ID], "duplicate id %s", idea.ID)
		seen[idea.ID] = true
	}
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("merges fields and advances UpdatedAt", func(t *testing.T) {
		s, _ := setupStore(t)
		orig := mustAdd(t, s, types.Draft{Title: "Draft plan", Description: "keep me", Rating: types.IntPtr(2)})

		got, err := s.Update(ctx, orig.ID, types.Patch{Title: types.StringPtr(" Final plan "), Rating: types.IntPtr(8)})
		require.NoError(t, err)

		assert.Equal(t, orig.ID, got.ID)
		assert.Equal(t, "Final plan", got.Title)
		assert.Equal(t, "keep me", got.Description)
		assert.Equal(t, 8, *got.Rating)
		assert.Equal(t, orig.CreatedAt, got.CreatedAt)
		assert.True(t, got.UpdatedAt.After(orig.UpdatedAt))

		all, err := s.GetAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, got, all[0])
	})

	t.Run("clear rating", func(t *testing.T) {
		s, _ := setupStore(t)
		orig := mustAdd(t, s, types.Draft{Title: "t", Rating: types.IntPtr(2)})
		got, err := s.Update(ctx, orig.ID, types.Patch{ClearRating: true})
		require.NoError(t, err)
		assert.Nil(t, got.Rating)
	})

	t.Run("unknown id is not found and leaves collection unchanged", func(t *testing.T) {
		s, mem := setupStore(t)
		mustAdd(t, s, types.Draft{Title: "Buy milk"})
		before := rawBlob(t, mem)

		_, err := s.Update(ctx, "zzz", types.Patch{Title: types.StringPtr("x")})
		assert.ErrorIs(t, err, types.ErrNotFound)
		assert.Equal(t, before, rawBlob(t, mem))
	})

	t.Run("invalid merged record is rejected", func(t *testing.T) {
		s, mem := setupStore(t)
		orig := mustAdd(t, s, types.Draft{Title: "t"})
		before := rawBlob(t, mem)

		_, err := s.Update(ctx, orig.ID, types.Patch{Title: types.StringPtr("   ")})
		assert.ErrorIs(t, err, types.ErrEmptyTitle)
		_, err = s.Update(ctx, orig.ID, types.Patch{Rating: types.IntPtr(42)})
		assert.ErrorIs(t, err, types.ErrRatingOutOfRange)
		assert.Equal(t, before, rawBlob(t, mem))
	})

	t.Run("empty id is invalid", func(t *testing.T) {
		s, _ := setupStore(t)
		_, err := s.Update(ctx, "", types.Patch{})
		assert.ErrorIs(t, err, types.ErrInvalidID)
	})

	t.Run("UpdatedAt never moves back when the clock does", func(t *testing.T) {
		now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
		var mu sync.Mutex
		clock := ident.ClockFunc(func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			return now
		})
		s, _ := setupStore(t, WithClock(clock))
		orig := mustAdd(t, s, types.Draft{Title: "t"})

		mu.Lock()
		now = now.Add(-24 * time.Hour)
		mu.Unlock()

		prev := orig.UpdatedAt
		for range 3 {
			got, err := s.Update(ctx, orig.ID, types.Patch{Description: types.StringPtr("again")})
			require.NoError(t, err)
			assert.False(t, got.UpdatedAt.Before(prev))
			assert.False(t, got.UpdatedAt.Before(got.CreatedAt))
			prev = got.UpdatedAt
		}
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("removes the record", func(t *testing.T) {
		s, _ := setupStore(t)
		a := mustAdd(t, s, types.Draft{Title: "a"})
		b := mustAdd(t, s, types.Draft{Title: "b"})

		require.NoError(t, s.Delete(ctx, a.ID))
		all, err := s.GetAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, b.ID, all[0].ID)
	})

	t.Run("is idempotent", func(t *testing.T) {
		s, mem := setupStore(t)
		a := mustAdd(t, s, types.Draft{Title: "a"})
		mustAdd(t, s, types.Draft{Title: "b"})

		require.NoError(t, s.Delete(ctx, a.ID))
		once := rawBlob(t, mem)
		require.NoError(t, s.Delete(ctx, a.ID))
		assert.Equal(t, once, rawBlob(t, mem))
	})

	t.Run("absent id on empty store is a no-op", func(t *testing.T) {
		s, mem := setupStore(t)
		require.NoError(t, s.Delete(ctx, "nope"))
		assert.Equal(t, "", rawBlob(t, mem), "no write for a no-op delete")
	})
}

func TestGetPaginated(t *testing.T) {
	ctx := context.Background()

	t.Run("25 records at page size 10 yields 10, 10, 5, 0", func(t *testing.T) {
		s, _ := setupStore(t)
		for i := range 25 {
			mustAdd(t, s, types.Draft{Title: fmt.Sprintf("idea %02d", i)})
		}

		var sizes []int
		for page := 0; page < 4; page++ {
			got, err := s.GetPaginated(ctx, page*10, 10)
			require.NoError(t, err)
			sizes = append(sizes, len(got))
		}
		assert.Equal(t, []int{10, 10, 5, 0}, sizes)
	})

	t.Run("pages are newest first and complete", func(t *testing.T) {
		for _, total := range []int{0, 1, 9, 10, 11, 20, 29, 30, 31} {
			t.Run(fmt.Sprintf("%d records", total), func(t *testing.T) {
				s, _ := setupStore(t)
				var added []types.Idea
				for i := range total {
					added = append(added, mustAdd(t, s, types.Draft{Title: fmt.Sprintf("idea %d", i)}))
				}

				var all []types.Idea
				for offset := 0; ; offset += 10 {
					page, err := s.GetPaginated(ctx, offset, 10)
					require.NoError(t, err)
					all = append(all, page...)
					if len(page) < 10 {
						break
					}
				}

				require.Len(t, all, total)
				for i := range all {
					assert.Equal(t, added[total-1-i].ID, all[i].ID)
				}
			})
		}
	})

	t.Run("sorts by created_at even when storage order differs", func(t *testing.T) {
		s, mem := setupStore(t)
		base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		stored := []types.Idea{
			{ID: "old", Title: "old", CreatedAt: base, UpdatedAt: base},
			{ID: "new", Title: "new", CreatedAt: base.Add(2 * time.Hour), UpdatedAt: base.Add(2 * time.Hour)},
			{ID: "mid", Title: "mid", CreatedAt: base.Add(time.Hour), UpdatedAt: base.Add(time.Hour)},
		}
		data, err := Encode(stored)
		require.NoError(t, err)
		require.NoError(t, mem.Set(ctx, types.IdeasKey, data))

		got, err := s.GetPaginated(ctx, 0, 10)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, []string{"new", "mid", "old"}, []string{got[0].ID, got[1].ID, got[2].ID})
	})

	t.Run("invalid arguments", func(t *testing.T) {
		s, _ := setupStore(t)
		_, err := s.GetPaginated(ctx, -1, 10)
		assert.ErrorIs(t, err, types.ErrInvalidPagination)
		_, err = s.GetPaginated(ctx, 0, 0)
		assert.ErrorIs(t, err, types.ErrInvalidPagination)
	})
}

func TestGetAllSoftFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("missing key is empty", func(t *testing.T) {
		s, _ := setupStore(t)
		all, err := s.GetAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("malformed blob is empty", func(t *testing.T) {
		s, mem := setupStore(t)
		require.NoError(t, mem.Set(ctx, types.IdeasKey, []byte("{not json")))
		all, err := s.GetAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("null blob is empty", func(t *testing.T) {
		s, mem := setupStore(t)
		require.NoError(t, mem.Set(ctx, types.IdeasKey, []byte("null")))
		all, err := s.GetAll(ctx)
		require.NoError(t, err)
		assert.NotNil(t, all)
		assert.Empty(t, all)
	})

	t.Run("malformed blob is preserved before overwrite", func(t *testing.T) {
		s, mem := setupStore(t)
		require.NoError(t, mem.Set(ctx, types.IdeasKey, []byte("{not json")))

		mustAdd(t, s, types.Draft{Title: "fresh start"})

		backup, err := mem.Get(ctx, types.IdeasKey+".corrupt")
		require.NoError(t, err)
		assert.Equal(t, "{not json", string(backup))

		all, err := s.GetAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
	})

	t.Run("reads blobs with extra fields and null description", func(t *testing.T) {
		s, mem := setupStore(t)
		blob := `[{"id":"1718000000000","title":"Plan trip","description":null,"rating":3,` +
			`"created_at":"2024-06-10T06:13:20.000Z","updated_at":"2024-06-10T06:13:20.000Z","user_id":"x"}]`
		require.NoError(t, mem.Set(ctx, types.IdeasKey, []byte(blob)))

		all, err := s.GetAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, "1718000000000", all[0].ID)
		assert.Equal(t, "", all[0].Description)
		assert.Equal(t, 3, all[0].EffectiveRating())
		assert.Equal(t, 2024, all[0].CreatedAt.Year())
	})
}

func TestStorageErrors(t *testing.T) {
	ctx := context.Background()
	ioErr := errors.New("disk on fire")

	t.Run("read failure surfaces as ErrStorage", func(t *testing.T) {
		s := New(&failingKV{Store: kv.NewMemStore(), getErr: ioErr})
		defer s.Close()

		_, err := s.GetAll(ctx)
		assert.ErrorIs(t, err, types.ErrStorage)
		assert.True(t, types.IsRetryable(err))

		_, err = s.Add(ctx, types.Draft{Title: "t"})
		assert.ErrorIs(t, err, types.ErrStorage)
	})

	t.Run("write failure surfaces as ErrStorage", func(t *testing.T) {
		s := New(&failingKV{Store: kv.NewMemStore(), setErr: ioErr})
		defer s.Close()

		_, err := s.Add(ctx, types.Draft{Title: "t"})
		assert.ErrorIs(t, err, types.ErrStorage)
		assert.ErrorIs(t, err, ioErr)
	})
}

func TestConcurrentAddsAreSerialized(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()
	const n = 50

	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Add(ctx, types.Draft{Title: fmt.Sprintf("concurrent %d", i)})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	all, err := s.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, n)
}

func TestConcurrentMixedMutations(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	seed := make([]types.Idea, 10)
	for i := range seed {
		seed[i] = mustAdd(t, s, types.Draft{Title: fmt.Sprintf("seed %d", i)})
	}

	var wg sync.WaitGroup
	for i, idea := range seed {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				assert.NoError(t, s.Delete(ctx, idea.ID))
				return
			}
			_, err := s.Update(ctx, idea.ID, types.Patch{Rating: types.IntPtr(i)})
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := s.Add(ctx, types.Draft{Title: fmt.Sprintf("extra %d", i)})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	all, err := s.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 15)

	rated := 0
	for _, idea := range all {
		if idea.Rating != nil {
			rated++
		}
	}
	assert.Equal(t, 5, rated)
}

func TestClear(t *testing.T) {
	s, mem := setupStore(t)
	ctx := context.Background()
	mustAdd(t, s, types.Draft{Title: "a"})
	mustAdd(t, s, types.Draft{Title: "b"})

	require.NoError(t, s.Clear(ctx))
	assert.Equal(t, "", rawBlob(t, mem))

	all, err := s.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestClearPreservesCorruptBlob(t *testing.T) {
	s, mem := setupStore(t)
	ctx := context.Background()
	require.NoError(t, mem.Set(ctx, types.IdeasKey, []byte("{not json")))

	require.NoError(t, s.Clear(ctx))
	assert.Equal(t, "", rawBlob(t, mem))

	backup, err := mem.Get(ctx, types.IdeasKey+".corrupt")
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(backup))
}

func TestClosedStore(t *testing.T) {
	s := New(kv.NewMemStore())
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	ctx := context.Background()
	_, err := s.Add(ctx, types.Draft{Title: "t"})
	assert.ErrorIs(t, err, types.ErrClosed)
	_, err = s.GetAll(ctx)
	assert.ErrorIs(t, err, types.ErrClosed)
	_, err = s.Subscribe(ctx)
	assert.ErrorIs(t, err, types.ErrClosed)
}

func TestFileBackedRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	fs, err := kv.NewFileStore(dir)
	require.NoError(t, err)
	s := New(fs)
	added := mustAdd(t, s, types.Draft{Title: "persist me", Rating: types.IntPtr(7)})
	require.NoError(t, s.Close())

	fs2, err := kv.NewFileStore(dir)
	require.NoError(t, err)
	reopened := New(fs2)
	defer reopened.Close()

	all, err := reopened.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, added.ID, all[0].ID)
	assert.True(t, added.CreatedAt.Equal(all[0].CreatedAt))
	assert.Equal(t, 7, all[0].EffectiveRating())
}
