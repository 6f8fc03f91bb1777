package eventbus

import (
	"context"
	"time"

	"github.com/annel0/voxel-explorer/internal/logging"
	"github.com/annel0/voxel-explorer/internal/world"
	"github.com/annel0/voxel-explorer/internal/world/block"
)

// BlockChanged полезная нагрузка события EventBlockChanged
type BlockChanged struct {
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Z      int    `json:"z"`
	ChunkX int    `json:"chunk_x"`
	ChunkY int    `json:"chunk_y"`
	ChunkZ int    `json:"chunk_z"`
	Old    string `json:"old"`
	New    string `json:"new"`
	OldID  uint8  `json:"old_id"`
	NewID  uint8  `json:"new_id"`
}

// WorldSaved полезная нагрузка события EventWorldSaved
type WorldSaved struct {
	Chunks int  `json:"chunks"`
	Final  bool `json:"final"`
}

// BlockPublisher публикует изменения блоков мира в шину.
// Реализует world.BlockListener.
type BlockPublisher struct {
	bus      EventBus
	source   string
	registry *block.Registry
	timeout  time.Duration
}

var _ world.BlockListener = (*BlockPublisher)(nil)

// NewBlockPublisher создаёт публикатор; registry нужен для имён блоков
func NewBlockPublisher(bus EventBus, source string, registry *block.Registry) *BlockPublisher {
	if registry == nil {
		registry = block.Default()
	}
	return &BlockPublisher{
		bus:      bus,
		source:   source,
		registry: registry,
		timeout:  time.Second,
	}
}

// OnBlockChanged публикует BlockChanged. Ошибки публикации только логируются.
func (p *BlockPublisher) OnBlockChanged(change world.BlockChange) {
	payload := BlockChanged{
		X: change.Position.X, Y: change.Position.Y, Z: change.Position.Z,
		ChunkX: change.Chunk.X, ChunkY: change.Chunk.Y, ChunkZ: change.Chunk.Z,
		Old:   p.registry.Name(change.Old),
		New:   p.registry.Name(change.New),
		OldID: uint8(change.Old),
		NewID: uint8(change.New),
	}

	// Сбор блока удачи важнее обычной стройки
	priority := 3
	if change.Old == block.LuckyBlockID {
		priority = 7
	}

	ev, err := NewEnvelope(p.source, EventBlockChanged, priority, payload)
	if err != nil {
		logging.GetEventBusLogger().Error("Не удалось сериализовать BlockChanged: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.bus.Publish(ctx, ev); err != nil {
		logging.GetEventBusLogger().Warn("Публикация BlockChanged %v: %v", change.Position, err)
	}
}

// PublishWorldSaved сообщает о сохранении мира
func (p *BlockPublisher) PublishWorldSaved(ctx context.Context, chunks int, final bool) error {
	ev, err := NewEnvelope(p.source, EventWorldSaved, 5, WorldSaved{Chunks: chunks, Final: final})
	if err != nil {
		return err
	}
	return p.bus.Publish(ctx, ev)
}
