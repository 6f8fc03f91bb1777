package storage

import (
	"context"
	"testing"

	"github.com/annel0/voxel-explorer/internal/vec"
	"github.com/annel0/voxel-explorer/internal/world/block"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseRepo прогоняет общий контракт ChunkRepo
func exerciseRepo(t *testing.T, repo ChunkRepo) {
	ctx := context.Background()

	t.Run("Save and Load", func(t *testing.T) {
		rec := sampleRecord()
		if err := repo.Save(ctx, rec); err != nil {
			t.Fatalf("Ошибка сохранения чанка: %v", err)
		}

		got, found, err := repo.Load(ctx, rec.Coord)
		if err != nil {
			t.Fatalf("Ошибка загрузки чанка: %v", err)
		}
		if !found {
			t.Fatal("Чанк не найден")
		}
		assert.Equal(t, rec.Cells, got.Cells)
	})

	t.Run("Load Non-Existent Chunk", func(t *testing.T) {
		rec, found, err := repo.Load(ctx, vec.Vec3{X: 1000, Y: 1000, Z: 1000})
		require.NoError(t, err)
		assert.False(t, found, "Чанк найден, хотя не сохранялся")
		assert.Nil(t, rec.Cells)
	})

	t.Run("Overwrite", func(t *testing.T) {
		rec := sampleRecord()
		rec.Coord = vec.Vec3{X: 5}
		require.NoError(t, repo.Save(ctx, rec))

		rec.Cells[1] = block.LuckyBlockID
		require.NoError(t, repo.Save(ctx, rec))

		got, found, err := repo.Load(ctx, rec.Coord)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, block.LuckyBlockID, got.Cells[1])
	})

	t.Run("Batch Save", func(t *testing.T) {
		var recs []ChunkRecord
		for i := 0; i < 5; i++ {
			rec := sampleRecord()
			rec.Coord = vec.Vec3{X: i, Y: -1, Z: -i}
			rec.Cells[i] = block.DirtBlockID
			recs = append(recs, rec)
		}
		require.NoError(t, repo.BatchSave(ctx, recs))

		for i, rec := range recs {
			got, found, err := repo.Load(ctx, rec.Coord)
			require.NoError(t, err)
			require.True(t, found, "Чанк %d из батча", i)
			assert.Equal(t, block.DirtBlockID, got.Cells[i])
		}

		require.NoError(t, repo.BatchSave(ctx, nil), "Пустой батч допустим")
	})

	t.Run("Delete", func(t *testing.T) {
		rec := sampleRecord()
		rec.Coord = vec.Vec3{Z: 42}
		require.NoError(t, repo.Save(ctx, rec))
		require.NoError(t, repo.Delete(ctx, rec.Coord))

		_, found, err := repo.Load(ctx, rec.Coord)
		require.NoError(t, err)
		assert.False(t, found)

		// Удаление отсутствующего чанка не ошибка
		require.NoError(t, repo.Delete(ctx, rec.Coord))
	})
}

func TestMemoryChunkRepo(t *testing.T) {
	repo := NewMemoryChunkRepo()
	exerciseRepo(t, repo)

	t.Run("Context Cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := repo.Save(ctx, sampleRecord())
		assert.ErrorIs(t, err, context.Canceled)
		_, _, err = repo.Load(ctx, vec.Vec3{})
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("Batch Is Atomic", func(t *testing.T) {
		before := repo.Len()
		good := sampleRecord()
		good.Coord = vec.Vec3{X: 77}
		bad := sampleRecord()
		bad.Size = 3

		assert.Error(t, repo.BatchSave(context.Background(), []ChunkRecord{good, bad}))
		assert.Equal(t, before, repo.Len())
	})

	require.NoError(t, repo.Close())
	assert.ErrorIs(t, repo.Save(context.Background(), sampleRecord()), ErrNotReady)
}

func TestBadgerChunkRepo(t *testing.T) {
	dir := t.TempDir()
	repo, err := NewBadgerChunkRepo(dir)
	require.NoError(t, err)

	exerciseRepo(t, repo)

	keys, err := repo.Keys()
	require.NoError(t, err)
	assert.Contains(t, keys, "chunk:-3:0:7")

	require.NoError(t, repo.Close())
	require.NoError(t, repo.Close(), "Повторное закрытие безопасно")
	_, _, err = repo.Load(context.Background(), vec.Vec3{})
	assert.ErrorIs(t, err, ErrNotReady)

	// Данные переживают переоткрытие
	reopened, err := NewBadgerChunkRepo(dir)
	require.NoError(t, err)
	defer reopened.Close()

	got, found, err := reopened.Load(context.Background(), vec.Vec3{X: -3, Y: 0, Z: 7})
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, sampleRecord().Cells, got.Cells)
}

func TestOpenBackends(t *testing.T) {
	repo, err := Open(context.Background(), Config{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryChunkRepo{}, repo)

	repo, err = Open(context.Background(), Config{Backend: "badger", Path: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &BadgerChunkRepo{}, repo)
	require.NoError(t, repo.Close())

	_, err = Open(context.Background(), Config{Backend: "cassandra"})
	assert.Error(t, err)
}
