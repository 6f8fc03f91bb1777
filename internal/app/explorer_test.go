package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/annel0/voxel-explorer/internal/cache"
	"github.com/annel0/voxel-explorer/internal/config"
	"github.com/annel0/voxel-explorer/internal/storage"
	"github.com/annel0/voxel-explorer/internal/vec"
	"github.com/annel0/voxel-explorer/internal/world"
	"github.com/annel0/voxel-explorer/internal/world/block"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.World.CollectibleChance = 1
	cfg.Server.FrameRate = 1000
	cfg.Storage.AutosaveSeconds = 0
	return cfg
}

func TestExplorerGeneratesAndDraws(t *testing.T) {
	ctx := context.Background()
	e, err := New(ctx, testConfig(t))
	require.NoError(t, err)
	defer e.Close(ctx)

	require.NoError(t, e.Bootstrap(ctx))

	var lucky int
	e.State().WithWorld(func(w *world.World) { lucky = w.Count(block.LuckyBlockID) })
	assert.Positive(t, lucky)
	assert.Equal(t, lucky, e.State().Status().Total)

	require.True(t, e.Backend().ProgramReady())
	e.Tick()
	e.Tick()
	assert.Len(t, e.Backend().Draws(), 8, "Четыре чанка за два кадра")
	assert.Equal(t, uint64(2), e.State().Status().Frames)
}

func TestExplorerRunStopsAfterFrames(t *testing.T) {
	ctx := context.Background()
	e, err := New(ctx, testConfig(t))
	require.NoError(t, err)
	defer e.Close(ctx)

	require.NoError(t, e.Bootstrap(ctx))
	require.NoError(t, e.Run(ctx, Options{Frames: 3}))
	assert.Equal(t, 3, e.Frames())

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	require.NoError(t, e.Run(cctx, Options{}), "Отменённый контекст завершает цикл")
}

func TestExplorerPublishesBlockChanges(t *testing.T) {
	ctx := context.Background()
	e, err := New(ctx, testConfig(t))
	require.NoError(t, err)

	require.NoError(t, e.Bootstrap(ctx))
	assert.Zero(t, e.bus.Metrics().Published, "Генерация не публикует событий")

	e.State().WithWorld(func(w *world.World) {
		w.SetBlockAt(vec.Vec3{X: 0, Y: 5, Z: 0}, block.PumpkinBlockID)
	})

	saved, err := e.Save(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 4, saved, "После генерации изменены все чанки")

	require.NoError(t, e.Close(ctx))
	// BlockChanged + WorldSaved (автосохранение) + WorldSaved (финальное)
	assert.Equal(t, uint64(3), e.bus.Metrics().Published)
}

func TestExplorerRestoresFromBadger(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Storage.Backend = "badger"
	cfg.Storage.Path = t.TempDir()

	first, err := New(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, first.Bootstrap(ctx))

	var lucky int
	first.State().WithWorld(func(w *world.World) {
		lucky = w.Count(block.LuckyBlockID)
		w.RemoveBlock(vec.Vec3{X: -13, Y: 1, Z: -13})
	})
	require.NoError(t, first.Close(ctx))

	second, err := New(ctx, cfg)
	require.NoError(t, err)
	defer second.Close(ctx)
	require.NoError(t, second.Bootstrap(ctx))

	second.State().WithWorld(func(w *world.World) {
		assert.Equal(t, lucky-1, w.Count(block.LuckyBlockID), "Собранный блок не возвращается")
		assert.Empty(t, w.ChangedChunks())
	})
	assert.Equal(t, lucky-1, second.State().Status().Total)
}

func TestExplorerCachedStorage(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Storage.Backend = "badger"
	cfg.Storage.Path = t.TempDir()
	cfg.Storage.Cache.Enabled = true
	cfg.Storage.Cache.WriteBehind = true
	cfg.Storage.Cache.FlushMillis = 3600 * 1000

	first, err := New(ctx, cfg)
	require.NoError(t, err)
	assert.IsType(t, &cache.ChunkCache{}, first.repo)
	require.NoError(t, first.Bootstrap(ctx))

	saved, err := first.Save(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 4, saved)
	assert.Equal(t, 4, first.repo.(*cache.ChunkCache).Metrics().PendingWrites)
	require.NoError(t, first.Close(ctx), "Close сбрасывает очередь записи")

	second, err := New(ctx, cfg)
	require.NoError(t, err)
	defer second.Close(ctx)
	require.NoError(t, second.Bootstrap(ctx))
	assert.Equal(t, int64(4), second.repo.(*cache.ChunkCache).Metrics().Misses, "Мир прочитан из badger")
}

func TestExplorerServesSavedChunksFromCache(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Storage.Cache.Enabled = true

	e, err := New(ctx, cfg)
	require.NoError(t, err)
	defer e.Close(ctx)
	require.NoError(t, e.Bootstrap(ctx))
	_, err = e.Save(ctx, false)
	require.NoError(t, err)

	chunks := e.repo.(*cache.ChunkCache)
	before := chunks.Metrics().Hits
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		e.rest.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/chunks/0/0/0", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Equal(t, before+2, chunks.Metrics().Hits, "Сохранённый чанк читается из горячего слоя")
}

func TestExplorerReloadsInvalidatedChunk(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Storage.Cache.Enabled = true

	e, err := New(ctx, cfg)
	require.NoError(t, err)
	defer e.Close(ctx)
	require.NoError(t, e.Bootstrap(ctx))
	_, err = e.Save(ctx, false)
	require.NoError(t, err)

	// Запись другого узла: тыква в (0,10,0) чанка (0,0,0)
	var rec storage.ChunkRecord
	e.State().WithWorld(func(w *world.World) {
		ch, ok := w.ChunkAt(vec.Vec3{})
		require.True(t, ok)
		rec = storage.RecordOf(ch, time.Now())
	})
	rec.Cells[10*rec.Size] = block.PumpkinBlockID
	require.NoError(t, e.repo.Save(ctx, rec))

	require.NoError(t, e.reloadChunk(vec.Vec3{}))
	e.State().WithWorld(func(w *world.World) {
		assert.Equal(t, block.PumpkinBlockID, w.GetBlockAt(vec.Vec3{Y: 10}))
		assert.Empty(t, w.ChangedChunks(), "Перечитанный чанк не считается изменённым")
	})

	// Локальные правки не затираются
	e.State().WithWorld(func(w *world.World) {
		w.SetBlockAt(vec.Vec3{X: 1, Y: 10}, block.StoneBlockID)
	})
	rec.Cells[10*rec.Size] = block.DirtBlockID
	require.NoError(t, e.repo.Save(ctx, rec))
	require.NoError(t, e.reloadChunk(vec.Vec3{}))
	e.State().WithWorld(func(w *world.World) {
		assert.Equal(t, block.PumpkinBlockID, w.GetBlockAt(vec.Vec3{Y: 10}))
		assert.Equal(t, block.StoneBlockID, w.GetBlockAt(vec.Vec3{X: 1, Y: 10}))
	})

	require.NoError(t, e.reloadChunk(vec.Vec3{X: 7}), "Чанк вне мира пропускается")
}

func TestExplorerExportsInvalidatorStats(t *testing.T) {
	e, err := New(context.Background(), testConfig(t))
	require.NoError(t, err)
	defer e.Close(context.Background())

	e.registerInvalidatorMetrics(&cache.NATSInvalidator{})
	n, err := testutil.GatherAndCount(e.metrics,
		"voxel_chunk_invalidation_published_total",
		"voxel_chunk_invalidation_received_total",
		"voxel_chunk_invalidation_errors_total",
	)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestExplorerAtlasSize(t *testing.T) {
	cfg := testConfig(t)
	cfg.World.AtlasSize = 128
	e, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer e.Close(context.Background())
	assert.Equal(t, 128, e.registry.Atlas().Size)
}

func TestExplorerRejectsBadConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Backend = "floppy"
	_, err := New(context.Background(), cfg)
	assert.Error(t, err)

	cfg = testConfig(t)
	cfg.World.Generator = "caves"
	e, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer e.Close(context.Background())
	assert.Error(t, e.Bootstrap(context.Background()))
}
