package worldgen

import (
	"context"
	"testing"

	"github.com/annel0/voxel-explorer/internal/render"
	"github.com/annel0/voxel-explorer/internal/util"
	"github.com/annel0/voxel-explorer/internal/vec"
	"github.com/annel0/voxel-explorer/internal/world"
	"github.com/annel0/voxel-explorer/internal/world/block"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWorld(t *testing.T) (*world.World, *render.Recorder) {
	t.Helper()
	rec := render.NewRecorder()
	w, err := world.CreateWorld(rec, world.DefaultOptions())
	require.NoError(t, err)
	return w, rec
}

func TestMazeLayout(t *testing.T) {
	w, _ := newWorld(t)
	res, err := NewMazeGenerator(1, 1.0).Generate(context.Background(), w)
	require.NoError(t, err)

	// Пол
	for _, p := range []vec.Vec3{{X: -16, Z: -16}, {X: 15, Z: 15}, {X: 0, Z: 0}} {
		assert.Equal(t, block.GrassBlockID, w.GetBlockAt(p), "Пол в %v", p)
	}

	// Периметр высотой 3
	for h := 1; h <= 3; h++ {
		assert.Equal(t, block.StoneBlockID, w.GetBlockAt(vec.Vec3{X: -16, Y: h, Z: 0}))
		assert.Equal(t, block.StoneBlockID, w.GetBlockAt(vec.Vec3{X: 4, Y: h, Z: 15}))
	}
	assert.Equal(t, block.AirBlockID, w.GetBlockAt(vec.Vec3{X: -16, Y: 4, Z: 0}))

	// Стены лабиринта с проходом в центре
	assert.Equal(t, block.OakPlankBlockID, w.GetBlockAt(vec.Vec3{X: -6, Y: 1, Z: 5}))
	assert.Equal(t, block.OakPlankBlockID, w.GetBlockAt(vec.Vec3{X: 6, Y: 2, Z: -8}))
	assert.Equal(t, block.AirBlockID, w.GetBlockAt(vec.Vec3{X: 6, Y: 1, Z: 1}))
	assert.Equal(t, block.AirBlockID, w.GetBlockAt(vec.Vec3{X: 6, Y: 3, Z: 5}))

	// При шансе 1.0 заняты все узлы сетки: x, z из {-13, -9, ..., 11}
	assert.Equal(t, 49, res.Collectibles)
	assert.Equal(t, 49, w.Count(block.LuckyBlockID))
	assert.Equal(t, block.LuckyBlockID, w.GetBlockAt(vec.Vec3{X: -13, Y: 1, Z: 11}))

	// 32*32 пола + периметр 124*3 + стены 2*14*2 + блоки удачи
	assert.Equal(t, 1024+372+56+49, res.Blocks)
}

func TestMazeRebuildsEachChunkOnce(t *testing.T) {
	w, rec := newWorld(t)
	_, err := NewMazeGenerator(7, DefaultCollectibleChance).Generate(context.Background(), w)
	require.NoError(t, err)

	assert.Equal(t, 4, rec.Uploads())
	for _, c := range w.Chunks() {
		assert.Equal(t, 1, c.RebuildCount())
		assert.Greater(t, c.VertexCount(), 0)
	}
}

func TestMazeDeterministic(t *testing.T) {
	w1, _ := newWorld(t)
	w2, _ := newWorld(t)

	r1, err := NewMazeGenerator(99, DefaultCollectibleChance).Generate(context.Background(), w1)
	require.NoError(t, err)
	r2, err := NewMazeGenerator(99, DefaultCollectibleChance).Generate(context.Background(), w2)
	require.NoError(t, err)

	assert.Equal(t, r1, r2)
	for i, c := range w1.Chunks() {
		assert.Equal(t, c.Snapshot(), w2.Chunks()[i].Snapshot())
	}
}

func TestTerrainColumns(t *testing.T) {
	w, _ := newWorld(t)
	g := NewTerrainGenerator(3, 0.5)
	res, err := g.Generate(context.Background(), w)
	require.NoError(t, err)
	assert.Greater(t, res.Blocks, 0)
	assert.Equal(t, res.Collectibles, w.Count(block.LuckyBlockID))

	noise := util.NewNoise(3)
	min, max := w.Bounds()
	for _, col := range [][2]int{{-16, -16}, {0, 0}, {15, 7}} {
		x, z := col[0], col[1]
		top := g.SurfaceHeight(noise, min.Y, max.Y, x, z)
		assert.GreaterOrEqual(t, top, min.Y)
		assert.Less(t, top, max.Y-1)

		assert.Equal(t, block.GrassBlockID, w.GetBlockAt(vec.Vec3{X: x, Y: top, Z: z}))
		if top-1 >= min.Y {
			assert.Equal(t, block.DirtBlockID, w.GetBlockAt(vec.Vec3{X: x, Y: top - 1, Z: z}))
		}
		if top-3 >= min.Y {
			assert.Equal(t, block.StoneBlockID, w.GetBlockAt(vec.Vec3{X: x, Y: top - 3, Z: z}))
		}
	}
}

func TestNewByName(t *testing.T) {
	for _, name := range []string{"", "maze", "terrain", "empty"} {
		g, err := New(name, 1, 0.25)
		require.NoError(t, err, name)
		assert.NotEmpty(t, g.Name())
	}

	_, err := New("caves", 1, 0.25)
	assert.Error(t, err)

	w, rec := newWorld(t)
	g, _ := New("empty", 1, 0)
	res, err := g.Generate(context.Background(), w)
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
	assert.Equal(t, 0, rec.Uploads())
}
