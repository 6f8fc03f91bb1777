package worldgen

import (
	"context"
	"math/rand"

	"github.com/annel0/voxel-explorer/internal/logging"
	"github.com/annel0/voxel-explorer/internal/util"
	"github.com/annel0/voxel-explorer/internal/vec"
	"github.com/annel0/voxel-explorer/internal/world"
	"github.com/annel0/voxel-explorer/internal/world/block"
)

// TerrainGenerator строит холмистый ландшафт по шуму Перлина
type TerrainGenerator struct {
	Seed              int64
	NoiseScale        float64 // Масштаб шума высот
	MaxHeight         int     // Максимальная высота над дном мира
	DirtDepth         int     // Толщина слоя земли под травой
	PumpkinDensity    float64 // Шанс тыквы на поверхности
	CollectibleChance float64
}

// NewTerrainGenerator создаёт генератор ландшафта
func NewTerrainGenerator(seed int64, chance float64) *TerrainGenerator {
	return &TerrainGenerator{
		Seed:              seed,
		NoiseScale:        0.05, // Настройка сглаженности ландшафта
		MaxHeight:         8,
		DirtDepth:         2,
		PumpkinDensity:    0.02,
		CollectibleChance: chance,
	}
}

// Name возвращает имя генератора
func (g *TerrainGenerator) Name() string {
	return "terrain"
}

// SurfaceHeight возвращает мировую высоту травы в колонке (x, z)
func (g *TerrainGenerator) SurfaceHeight(noise *util.Noise, bottom, top, x, z int) int {
	h := noise.Noise2D(float64(x)*g.NoiseScale, float64(z)*g.NoiseScale)
	limit := g.MaxHeight
	if top-bottom-2 < limit {
		limit = top - bottom - 2
	}
	if limit < 0 {
		limit = 0
	}
	return bottom + int(h*float64(limit))
}

// Generate заполняет мир колоннами камня, земли и травы
func (g *TerrainGenerator) Generate(ctx context.Context, w *world.World) (Result, error) {
	min, max := w.Bounds()
	noise := util.NewNoise(g.Seed)
	rng := rand.New(rand.NewSource(g.Seed))

	res := run(ctx, g, w, func(b *world.BulkWriter) int {
		lucky := 0
		for x := min.X; x < max.X; x++ {
			for z := min.Z; z < max.Z; z++ {
				surface := g.SurfaceHeight(noise, min.Y, max.Y, x, z)
				for y := min.Y; y <= surface; y++ {
					id := block.StoneBlockID
					switch {
					case y == surface:
						id = block.GrassBlockID
					case y >= surface-g.DirtDepth:
						id = block.DirtBlockID
					}
					b.Set(vec.Vec3{X: x, Y: y, Z: z}, id)
				}

				above := vec.Vec3{X: x, Y: surface + 1, Z: z}
				onGrid := (x-min.X)%LuckyStep == LuckyInset && (z-min.Z)%LuckyStep == LuckyInset
				switch {
				case onGrid && rng.Float64() < g.CollectibleChance:
					if b.Set(above, block.LuckyBlockID) {
						lucky++
					}
				case rng.Float64() < g.PumpkinDensity:
					b.Set(above, block.PumpkinBlockID)
				}
			}
		}
		return lucky
	})

	logging.GetWorldLogger().Info("⛰️ Ландшафт построен: %d блоков, %d блоков удачи", res.Blocks, res.Collectibles)
	return res, nil
}
