package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/itchan-dev/boardkeeper/backend/internal/board"
	"github.com/itchan-dev/boardkeeper/shared/domain"
	internal_errors "github.com/itchan-dev/boardkeeper/shared/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSnapshot(t *testing.T, name string) domain.BoardSnapshot {
	t.Helper()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	b, err := board.New(domain.BoardConfig{Name: name, Description: "desc", ActiveCapacity: 2, ArchiveCapacity: 2},
		board.WithClock(func() time.Time { now = now.Add(time.Second); return now }))
	require.NoError(t, err)
	for i := range 3 {
		id, err := b.CreateThread("t", "anon", "text", []byte{byte(i + 1)})
		require.NoError(t, err)
		_, err = b.Reply(id, "anon", "reply", nil)
		require.NoError(t, err)
	}
	require.NoError(t, b.Pin(b.Active()[0]))
	return b.Snapshot()
}

func TestNew(t *testing.T) {
	t.Run("creates snapshot directory", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "a", "b")
		storage, err := New(root)
		require.NoError(t, err)
		assert.Equal(t, root, storage.rootPath)
		assert.DirExists(t, filepath.Join(root, "snapshots"))
	})

	t.Run("cleans path", func(t *testing.T) {
		tmpDir := t.TempDir()
		storage, err := New(filepath.Join(tmpDir, "data", "..", "data"))
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(tmpDir, "data"), storage.rootPath)
	})
}

func TestSaveLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("round trip keeps order and records", func(t *testing.T) {
		storage, err := New(t.TempDir())
		require.NoError(t, err)
		snap := sampleSnapshot(t, "α")

		require.NoError(t, storage.SaveSnapshot(ctx, snap))
		loaded, err := storage.LoadSnapshot(ctx, "α")
		require.NoError(t, err)
		assert.Equal(t, snap, loaded)

		restored, err := board.FromSnapshot(loaded)
		require.NoError(t, err)
		assert.Equal(t, snap.Active, restored.Active())
		assert.Equal(t, snap.Archive, restored.Archive())
	})

	t.Run("overwrite replaces previous snapshot", func(t *testing.T) {
		storage, err := New(t.TempDir())
		require.NoError(t, err)
		first := sampleSnapshot(t, "b")
		second := first
		second.Description = "changed"

		require.NoError(t, storage.SaveSnapshot(ctx, first))
		require.NoError(t, storage.SaveSnapshot(ctx, second))
		loaded, err := storage.LoadSnapshot(ctx, "b")
		require.NoError(t, err)
		assert.Equal(t, "changed", loaded.Description)

		entries, err := os.ReadDir(filepath.Join(storage.rootPath, "snapshots"))
		require.NoError(t, err)
		assert.Len(t, entries, 1, "temp files are not left behind")
	})

	t.Run("unknown board", func(t *testing.T) {
		storage, err := New(t.TempDir())
		require.NoError(t, err)
		_, err = storage.LoadSnapshot(ctx, "nope")
		assert.ErrorIs(t, err, internal_errors.ErrSnapshotNotFound)
	})

	t.Run("corrupt file", func(t *testing.T) {
		storage, err := New(t.TempDir())
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(storage.snapshotPath("b"), []byte("not zstd"), 0o644))
		_, err = storage.LoadSnapshot(ctx, "b")
		assert.Error(t, err)
	})

	t.Run("file of another board", func(t *testing.T) {
		storage, err := New(t.TempDir())
		require.NoError(t, err)
		require.NoError(t, storage.SaveSnapshot(ctx, sampleSnapshot(t, "a")))
		require.NoError(t, os.Rename(storage.snapshotPath("a"), storage.snapshotPath("b")))
		_, err = storage.LoadSnapshot(ctx, "b")
		assert.ErrorIs(t, err, internal_errors.ErrInvalidSnapshot)
	})

	t.Run("cancelled context", func(t *testing.T) {
		storage, err := New(t.TempDir())
		require.NoError(t, err)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		assert.ErrorIs(t, storage.SaveSnapshot(cctx, sampleSnapshot(t, "a")), context.Canceled)
	})
}

func TestBoardsAndPing(t *testing.T) {
	ctx := context.Background()
	storage, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, storage.Ping(ctx))

	for _, name := range []string{"b", "α"} {
		require.NoError(t, storage.SaveSnapshot(ctx, sampleSnapshot(t, name)))
	}
	names, err := storage.Boards(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []domain.BoardName{"b", "α"}, names)
}
