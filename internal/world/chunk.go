package world

import (
	"errors"
	"fmt"
	"time"

	"github.com/annel0/voxel-explorer/internal/mesh"
	"github.com/annel0/voxel-explorer/internal/render"
	"github.com/annel0/voxel-explorer/internal/vec"
	"github.com/annel0/voxel-explorer/internal/world/block"
)

// ErrIndexOutOfBounds возвращается при обращении к ячейке вне [0, S)
var ErrIndexOutOfBounds = errors.New("координаты вне чанка")

// RebuildMode определяет, когда перестраивается меш после изменения
type RebuildMode int

const (
	RebuildEager    RebuildMode = iota // сразу после каждого изменения
	RebuildDeferred                    // перед ближайшей отрисовкой
)

// String возвращает имя режима для конфигурации
func (m RebuildMode) String() string {
	if m == RebuildDeferred {
		return "deferred"
	}
	return "eager"
}

// ParseRebuildMode разбирает имя режима из конфигурации
func ParseRebuildMode(s string) (RebuildMode, error) {
	switch s {
	case "", "eager":
		return RebuildEager, nil
	case "deferred":
		return RebuildDeferred, nil
	default:
		return RebuildEager, fmt.Errorf("неизвестный режим перестроения %q", s)
	}
}

// Chunk представляет кубический участок мира размером S x S x S блоков
// вместе с построенным по нему вершинным буфером.
// Не безопасен для конкурентного доступа: синхронизация на стороне владельца мира.
type Chunk struct {
	Coord  vec.Vec3 // Координаты чанка
	Origin vec.Vec3 // Мировые координаты ячейки (0,0,0)

	size     int
	cells    []block.BlockID
	mode     RebuildMode
	registry *block.Registry
	backend  render.Backend
	observer Observer

	buffer   render.BufferID
	vertices []float32
	dirty    bool
	rebuilds int

	ChangeCounter int // Счетчик изменений с последнего сохранения
}

// NewChunk создаёт пустой чанк (все ячейки - воздух)
func NewChunk(coord vec.Vec3, size int, mode RebuildMode, registry *block.Registry, backend render.Backend) *Chunk {
	return &Chunk{
		Coord:    coord,
		Origin:   ChunkOrigin(coord, size),
		size:     size,
		cells:    make([]block.BlockID, size*size*size),
		mode:     mode,
		registry: registry,
		backend:  backend,
		observer: nopObserver{},
	}
}

// Size возвращает длину ребра чанка
func (c *Chunk) Size() int {
	return c.size
}

// GetBlock возвращает тип блока по локальным координатам
func (c *Chunk) GetBlock(x, y, z int) (block.BlockID, error) {
	if !InChunk(x, y, z, c.size) {
		return block.AirBlockID, fmt.Errorf("%w: (%d,%d,%d) при размере %d", ErrIndexOutOfBounds, x, y, z, c.size)
	}
	return c.cells[ToIndex(x, y, z, c.size)], nil
}

// SetBlock записывает тип блока и применяет политику перестроения
func (c *Chunk) SetBlock(x, y, z int, id block.BlockID) error {
	if err := c.setCell(x, y, z, id); err != nil {
		return err
	}
	c.afterMutation()
	return nil
}

// setCell меняет ячейку без перестроения меша
func (c *Chunk) setCell(x, y, z int, id block.BlockID) error {
	if !InChunk(x, y, z, c.size) {
		return fmt.Errorf("%w: (%d,%d,%d) при размере %d", ErrIndexOutOfBounds, x, y, z, c.size)
	}
	c.cells[ToIndex(x, y, z, c.size)] = id
	c.dirty = true
	c.ChangeCounter++
	return nil
}

func (c *Chunk) afterMutation() {
	if c.mode == RebuildEager {
		c.Rebuild()
	}
}

// Rebuild заново строит вершинный буфер по всем непустым ячейкам
// и целиком выгружает его в бэкенд.
func (c *Chunk) Rebuild() {
	start := time.Now()

	c.vertices = c.vertices[:0]
	for i, id := range c.cells {
		if id == block.AirBlockID {
			continue
		}
		x, y, z := ToCoord(i, c.size)
		m := mesh.BlockTransform(c.Origin, vec.Vec3{X: x, Y: y, Z: z}, 1)
		c.vertices = mesh.EmitCube(c.vertices, m, c.registry.MustMaterial(id))
	}

	if c.buffer == render.NoBuffer {
		c.buffer = c.backend.CreateBuffer()
	}
	c.backend.BindBuffer(c.buffer)
	c.backend.BufferData(c.vertices)

	c.dirty = false
	c.rebuilds++
	c.observer.ChunkRebuilt(c.Coord, c.VertexCount(), time.Since(start))
}

// Draw отправляет один вызов отрисовки по текущему буферу.
// Чанк, который ни разу не перестраивался, ничего не рисует.
func (c *Chunk) Draw() {
	if c.dirty && c.mode == RebuildDeferred {
		c.Rebuild()
	}
	if c.buffer == render.NoBuffer {
		return
	}

	c.backend.BindBuffer(c.buffer)
	for _, attr := range mesh.Attributes {
		c.backend.VertexAttribPointer(attr)
	}
	n := c.VertexCount()
	c.backend.DrawArrays(0, n)
	c.observer.ChunkDrawn(c.Coord, n)
}

// Vertices возвращает вершинный буфер последнего перестроения (только для чтения).
// В отложенном режиме после правок он устаревает до следующей отрисовки, см. Dirty.
func (c *Chunk) Vertices() []float32 {
	return c.vertices
}

// VertexCount возвращает количество вершин на момент последнего перестроения
func (c *Chunk) VertexCount() int {
	return mesh.VertexCount(c.vertices)
}

// Dirty сообщает, что ячейки менялись после последнего перестроения
func (c *Chunk) Dirty() bool {
	return c.dirty
}

// RebuildCount возвращает количество перестроений
func (c *Chunk) RebuildCount() int {
	return c.rebuilds
}

// Filled возвращает количество непустых ячеек
func (c *Chunk) Filled() int {
	n := 0
	for _, id := range c.cells {
		if id != block.AirBlockID {
			n++
		}
	}
	return n
}

// HasChanges возвращает true, если в чанке есть несохранённые изменения
func (c *Chunk) HasChanges() bool {
	return c.ChangeCounter > 0
}

// ClearChanges сбрасывает счетчик изменений после сохранения
func (c *Chunk) ClearChanges() {
	c.ChangeCounter = 0
}

// Snapshot возвращает копию ячеек в порядке индексов
func (c *Chunk) Snapshot() []block.BlockID {
	return append([]block.BlockID(nil), c.cells...)
}

// Restore заменяет все ячейки чанка. Данные приходят извне,
// поэтому размер и типы блоков проверяются.
func (c *Chunk) Restore(cells []block.BlockID) error {
	if len(cells) != len(c.cells) {
		return fmt.Errorf("чанк %v: ожидалось %d ячеек, получено %d", c.Coord, len(c.cells), len(cells))
	}
	for i, id := range cells {
		if !c.registry.IsValid(id) {
			return fmt.Errorf("чанк %v ячейка %d: %w: %d", c.Coord, i, block.ErrUnknownBlockType, id)
		}
	}

	copy(c.cells, cells)
	c.dirty = true
	c.afterMutation()
	return nil
}

// Release освобождает буфер бэкенда
func (c *Chunk) Release() {
	if c.buffer != render.NoBuffer {
		c.backend.DeleteBuffer(c.buffer)
		c.buffer = render.NoBuffer
	}
	c.vertices = nil
}
