package worldgen

import (
	"context"
	"math/rand"

	"github.com/annel0/voxel-explorer/internal/logging"
	"github.com/annel0/voxel-explorer/internal/vec"
	"github.com/annel0/voxel-explorer/internal/world"
	"github.com/annel0/voxel-explorer/internal/world/block"
)

// Параметры лабиринта
const (
	GroundLevel     = 0
	WallHeight      = 3
	MazeWallX       = 6 // стены лабиринта стоят на x = ±6
	MazeWallHalfLen = 8 // и тянутся по z от -8 до 8
	MazeGapHalf     = 1 // с проходом |z| <= 1
	MazeWallHeight  = 2
	LuckyInset      = 3 // отступ сетки собираемых блоков от края
	LuckyStep       = 4
)

// DefaultCollectibleChance - вероятность блока удачи в узле сетки
const DefaultCollectibleChance = 0.25

// MazeGenerator строит плоскую арену: травяной пол, каменный периметр,
// деревянные стены лабиринта и разбросанные блоки удачи.
type MazeGenerator struct {
	Seed              int64
	CollectibleChance float64
}

// NewMazeGenerator создаёт генератор лабиринта
func NewMazeGenerator(seed int64, chance float64) *MazeGenerator {
	return &MazeGenerator{Seed: seed, CollectibleChance: chance}
}

// Name возвращает имя генератора
func (g *MazeGenerator) Name() string {
	return "maze"
}

// Generate заполняет мир. Поле по XZ берётся из границ мира.
func (g *MazeGenerator) Generate(ctx context.Context, w *world.World) (Result, error) {
	min, max := w.Bounds()
	rng := rand.New(rand.NewSource(g.Seed))

	res := run(ctx, g, w, func(b *world.BulkWriter) int {
		// Пол
		for x := min.X; x < max.X; x++ {
			for z := min.Z; z < max.Z; z++ {
				b.Set(vec.Vec3{X: x, Y: GroundLevel, Z: z}, block.GrassBlockID)
			}
		}

		// Периметр
		for x := min.X; x < max.X; x++ {
			for z := min.Z; z < max.Z; z++ {
				if x != min.X && x != max.X-1 && z != min.Z && z != max.Z-1 {
					continue
				}
				for h := 1; h <= WallHeight; h++ {
					b.Set(vec.Vec3{X: x, Y: GroundLevel + h, Z: z}, block.StoneBlockID)
				}
			}
		}

		// Внутренние стены
		for _, x := range []int{-MazeWallX, MazeWallX} {
			for z := -MazeWallHalfLen; z <= MazeWallHalfLen; z++ {
				if abs(z) <= MazeGapHalf {
					continue
				}
				for h := 1; h <= MazeWallHeight; h++ {
					b.Set(vec.Vec3{X: x, Y: GroundLevel + h, Z: z}, block.OakPlankBlockID)
				}
			}
		}

		// Блоки удачи
		lucky := 0
		for x := min.X + LuckyInset; x < max.X-LuckyInset; x += LuckyStep {
			for z := min.Z + LuckyInset; z < max.Z-LuckyInset; z += LuckyStep {
				if rng.Float64() >= g.CollectibleChance {
					continue
				}
				if b.Set(vec.Vec3{X: x, Y: GroundLevel + 1, Z: z}, block.LuckyBlockID) {
					lucky++
				}
			}
		}
		return lucky
	})

	logging.GetWorldLogger().Info("🍀 Лабиринт построен: %d блоков, %d блоков удачи", res.Blocks, res.Collectibles)
	return res, nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
