package storage

import (
	"context"
	"testing"

	"github.com/annel0/voxel-explorer/internal/render"
	"github.com/annel0/voxel-explorer/internal/vec"
	"github.com/annel0/voxel-explorer/internal/world"
	"github.com/annel0/voxel-explorer/internal/world/block"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWorld(t *testing.T) (*world.World, *render.Recorder) {
	t.Helper()
	rec := render.NewRecorder()
	w, err := world.CreateWorld(rec, world.Options{
		ChunkSize: 4,
		MinChunk:  vec.Vec3{X: -1, Z: -1},
		MaxChunk:  vec.Vec3{X: 1, Y: 1, Z: 1},
	})
	require.NoError(t, err)
	return w, rec
}

func TestSaveAndLoadWorld(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryChunkRepo()

	src, _ := newTestWorld(t)
	src.SetBlockAt(vec.Vec3{X: -1, Y: 0, Z: -1}, block.GrassBlockID)
	src.SetBlockAt(vec.Vec3{X: 2, Y: 3, Z: 1}, block.PumpkinBlockID)

	saved, err := SaveWorld(ctx, repo, src, false)
	require.NoError(t, err)
	assert.Equal(t, 2, saved, "Сохраняются только изменённые чанки")
	assert.Empty(t, src.ChangedChunks(), "После сохранения изменений нет")

	saved, err = SaveWorld(ctx, repo, src, false)
	require.NoError(t, err)
	assert.Equal(t, 0, saved)

	dst, rec := newTestWorld(t)
	loaded, err := LoadWorld(ctx, repo, dst)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded)

	assert.Equal(t, block.GrassBlockID, dst.GetBlockAt(vec.Vec3{X: -1, Y: 0, Z: -1}))
	assert.Equal(t, block.PumpkinBlockID, dst.GetBlockAt(vec.Vec3{X: 2, Y: 3, Z: 1}))
	assert.Empty(t, dst.ChangedChunks(), "Загруженный мир не считается изменённым")

	dst.DrawAll()
	assert.Len(t, rec.Draws(), 2, "Перестроены только загруженные чанки")
}

func TestSaveWorldForce(t *testing.T) {
	repo := NewMemoryChunkRepo()
	w, _ := newTestWorld(t)

	saved, err := SaveWorld(context.Background(), repo, w, true)
	require.NoError(t, err)
	assert.Equal(t, 4, saved)
	assert.Equal(t, 4, repo.Len())
}

func TestSaveWorldKeepsChangesOnError(t *testing.T) {
	repo := NewMemoryChunkRepo()
	require.NoError(t, repo.Close())

	w, _ := newTestWorld(t)
	w.SetBlockAt(vec.Vec3{}, block.StoneBlockID)

	_, err := SaveWorld(context.Background(), repo, w, false)
	assert.ErrorIs(t, err, ErrNotReady)
	assert.Len(t, w.ChangedChunks(), 1, "Неудачное сохранение не сбрасывает изменения")
}

func TestLoadWorldSizeMismatch(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryChunkRepo()

	rec := ChunkRecord{Coord: vec.Vec3{}, Size: 2, Cells: make([]block.BlockID, 8)}
	require.NoError(t, repo.Save(ctx, rec))

	w, _ := newTestWorld(t)
	_, err := LoadWorld(ctx, repo, w)
	assert.Error(t, err)
}

func TestSaveAndLoadWorldBadger(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	repo, err := NewBadgerChunkRepo(dir)
	require.NoError(t, err)

	src, _ := newTestWorld(t)
	src.SetBlockAt(vec.Vec3{X: 3, Y: 1, Z: 3}, block.OakPlankBlockID)
	_, err = SaveWorld(ctx, repo, src, true)
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	repo, err = NewBadgerChunkRepo(dir)
	require.NoError(t, err)
	defer repo.Close()

	dst, _ := newTestWorld(t)
	loaded, err := LoadWorld(ctx, repo, dst)
	require.NoError(t, err)
	assert.Equal(t, 4, loaded)
	assert.Equal(t, block.OakPlankBlockID, dst.GetBlockAt(vec.Vec3{X: 3, Y: 1, Z: 3}))
}
