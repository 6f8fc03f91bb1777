// Package worldgen заполняет мир блоками при старте.
package worldgen

import (
	"context"
	"fmt"

	"github.com/annel0/voxel-explorer/internal/world"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("github.com/annel0/voxel-explorer/internal/worldgen")

// Result описывает итог генерации
type Result struct {
	Blocks       int // Всего записано блоков
	Collectibles int // Сколько собираемых блоков размещено
}

// Generator заполняет мир
type Generator interface {
	Name() string
	Generate(ctx context.Context, w *world.World) (Result, error)
}

// New создаёт генератор по имени из конфигурации
func New(name string, seed int64, collectibleChance float64) (Generator, error) {
	switch name {
	case "", "maze":
		return NewMazeGenerator(seed, collectibleChance), nil
	case "terrain":
		return NewTerrainGenerator(seed, collectibleChance), nil
	case "empty":
		return emptyGenerator{}, nil
	default:
		return nil, fmt.Errorf("неизвестный генератор мира %q", name)
	}
}

// run оборачивает генерацию в span и Bulk-запись
func run(ctx context.Context, g Generator, w *world.World, fill func(b *world.BulkWriter) int) Result {
	_, span := tracer.Start(ctx, "worldgen."+g.Name())
	defer span.End()

	var res Result
	res.Blocks = w.Bulk(func(b *world.BulkWriter) {
		res.Collectibles = fill(b)
	})

	span.SetAttributes(
		attribute.Int("worldgen.blocks", res.Blocks),
		attribute.Int("worldgen.collectibles", res.Collectibles),
	)
	return res
}

type emptyGenerator struct{}

func (emptyGenerator) Name() string { return "empty" }

func (emptyGenerator) Generate(context.Context, *world.World) (Result, error) {
	return Result{}, nil
}
