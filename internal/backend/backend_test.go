package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/ideas/pkg/types"
)

func TestOpenLocalBackends(t *testing.T) {
	for _, name := range []string{types.BackendMemory, types.BackendFile, types.BackendSQLite} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			dir := filepath.Join(t.TempDir(), "data")

			b, err := Open(ctx, types.Config{Backend: name, DataDir: dir}, nil)
			require.NoError(t, err)
			assert.Equal(t, name, b.Name())
			assert.Equal(t, types.DefaultPageSize, b.PageSize())

			created, err := b.Store().Add(ctx, types.Draft{Title: "first"})
			require.NoError(t, err)

			feed, err := b.Feed().Subscribe(ctx)
			require.NoError(t, err)

			require.NoError(t, b.Store().Delete(ctx, created.ID))
			change := <-feed
			assert.Equal(t, types.OpDelete, change.Op)
			assert.Equal(t, created.ID, change.Idea.ID)

			require.NoError(t, b.Close())
		})
	}
}

func TestOpenPersistsAcrossReopen(t *testing.T) {
	for _, name := range []string{types.BackendFile, types.BackendSQLite} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			cfg := types.Config{Backend: name, DataDir: t.TempDir(), PageSize: 5}

			b, err := Open(ctx, cfg, nil)
			require.NoError(t, err)
			created, err := b.Store().Add(ctx, types.Draft{Title: "kept"})
			require.NoError(t, err)
			require.NoError(t, b.Close())

			b, err = Open(ctx, cfg, nil)
			require.NoError(t, err)
			defer b.Close()
			assert.Equal(t, 5, b.PageSize())

			all, err := b.Store().GetAll(ctx)
			require.NoError(t, err)
			require.Len(t, all, 1)
			assert.Equal(t, created.ID, all[0].ID)
		})
	}
}

func TestOpenFileLayout(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	b, err := Open(ctx, types.Config{Backend: types.BackendFile, DataDir: dir}, nil)
	require.NoError(t, err)
	_, err = b.Store().Add(ctx, types.Draft{Title: "on disk"})
	require.NoError(t, err)
	require.NoError(t, b.Close())

	_, err = os.Stat(filepath.Join(dir, types.IdeasKey+".json"))
	assert.NoError(t, err)
}

func TestOpenErrors(t *testing.T) {
	tests := []struct {
		name    string
		cfg     types.Config
		wantErr error
	}{
		{"unknown backend", types.Config{Backend: "asyncstorage"}, types.ErrBackendUnknown},
		{"empty backend", types.Config{}, types.ErrBackendEmpty},
		{"file without data dir", types.Config{Backend: types.BackendFile}, ErrDataDirEmpty},
		{"sqlite without data dir", types.Config{Backend: types.BackendSQLite}, ErrDataDirEmpty},
		{"postgres without url", types.Config{Backend: types.BackendPostgres, OwnerID: "u1"}, types.ErrDatabaseURLEmpty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(context.Background(), tt.cfg, nil)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
