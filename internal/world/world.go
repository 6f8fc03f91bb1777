package world

import (
	"errors"
	"fmt"

	"github.com/annel0/voxel-explorer/internal/render"
	"github.com/annel0/voxel-explorer/internal/vec"
	"github.com/annel0/voxel-explorer/internal/world/block"
)

// DefaultChunkSize - длина ребра чанка по умолчанию
const DefaultChunkSize = 16

// Options задаёт параметры создания мира
type Options struct {
	ChunkSize int
	// MinChunk и MaxChunk - полуоткрытый диапазон координат чанков [Min, Max)
	MinChunk vec.Vec3
	MaxChunk vec.Vec3
	Mode     RebuildMode
	Registry *block.Registry
	Listener BlockListener // может быть nil
	Observer Observer      // может быть nil
}

// DefaultOptions возвращает мир 2x1x2 чанка вокруг начала координат
func DefaultOptions() Options {
	return Options{
		ChunkSize: DefaultChunkSize,
		MinChunk:  vec.Vec3{X: -1, Y: 0, Z: -1},
		MaxChunk:  vec.Vec3{X: 1, Y: 1, Z: 1},
		Mode:      RebuildEager,
		Registry:  block.Default(),
	}
}

// World - фиксированный набор чанков, покрывающих прямоугольную область.
// Поиск чанка по мировой точке выполняется за O(1).
type World struct {
	size     int
	min, max vec.Vec3
	registry *block.Registry
	listener BlockListener
	observer Observer

	chunks []*Chunk
	index  map[vec.Vec3]*Chunk
}

// CreateWorld создаёт пустые чанки для всего диапазона
func CreateWorld(backend render.Backend, opts Options) (*World, error) {
	if backend == nil {
		return nil, errors.New("не задан графический бэкенд")
	}
	if opts.ChunkSize <= 0 {
		return nil, fmt.Errorf("некорректный размер чанка %d", opts.ChunkSize)
	}
	if opts.MaxChunk.X <= opts.MinChunk.X || opts.MaxChunk.Y <= opts.MinChunk.Y || opts.MaxChunk.Z <= opts.MinChunk.Z {
		return nil, fmt.Errorf("пустой диапазон чанков [%v, %v)", opts.MinChunk, opts.MaxChunk)
	}
	if opts.Registry == nil {
		opts.Registry = block.Default()
	}

	w := &World{
		size:     opts.ChunkSize,
		min:      opts.MinChunk,
		max:      opts.MaxChunk,
		registry: opts.Registry,
		listener: opts.Listener,
		observer: opts.Observer,
		index:    make(map[vec.Vec3]*Chunk),
	}
	if w.observer == nil {
		w.observer = nopObserver{}
	}

	for cx := opts.MinChunk.X; cx < opts.MaxChunk.X; cx++ {
		for cy := opts.MinChunk.Y; cy < opts.MaxChunk.Y; cy++ {
			for cz := opts.MinChunk.Z; cz < opts.MaxChunk.Z; cz++ {
				coord := vec.Vec3{X: cx, Y: cy, Z: cz}
				c := NewChunk(coord, w.size, opts.Mode, w.registry, backend)
				c.observer = w.observer
				w.chunks = append(w.chunks, c)
				w.index[coord] = c
			}
		}
	}

	return w, nil
}

// ChunkSize возвращает длину ребра чанка
func (w *World) ChunkSize() int {
	return w.size
}

// Registry возвращает регистр блоков мира
func (w *World) Registry() *block.Registry {
	return w.registry
}

// Bounds возвращает полуоткрытый диапазон мировых координат [min, max)
func (w *World) Bounds() (min, max vec.Vec3) {
	return ChunkOrigin(w.min, w.size), ChunkOrigin(w.max, w.size)
}

// Chunks возвращает чанки в порядке создания
func (w *World) Chunks() []*Chunk {
	return append([]*Chunk(nil), w.chunks...)
}

// ChunkAt возвращает чанк по координатам чанка
func (w *World) ChunkAt(coord vec.Vec3) (*Chunk, bool) {
	c, ok := w.index[coord]
	return c, ok
}

// ChunkFor возвращает чанк, которому принадлежит мировая точка
func (w *World) ChunkFor(pos vec.Vec3) (*Chunk, bool) {
	return w.ChunkAt(ChunkCoordOf(pos, w.size))
}

// Contains проверяет, что точка лежит внутри мира
func (w *World) Contains(pos vec.Vec3) bool {
	_, ok := w.ChunkFor(pos)
	return ok
}

func (w *World) locate(pos vec.Vec3) (*Chunk, vec.Vec3, bool) {
	c, ok := w.ChunkFor(pos)
	if !ok {
		return nil, vec.Vec3{}, false
	}
	return c, WorldToLocal(pos, c.Origin, w.size), true
}

// GetBlockAt возвращает тип блока; вне мира - воздух
func (w *World) GetBlockAt(pos vec.Vec3) block.BlockID {
	c, l, ok := w.locate(pos)
	if !ok {
		return block.AirBlockID
	}
	id, _ := c.GetBlock(l.X, l.Y, l.Z)
	return id
}

// SetBlockAt записывает блок. Вне мира ничего не делает и возвращает false.
func (w *World) SetBlockAt(pos vec.Vec3, id block.BlockID) bool {
	c, l, ok := w.locate(pos)
	if !ok {
		return false
	}

	old, _ := c.GetBlock(l.X, l.Y, l.Z)
	if err := c.SetBlock(l.X, l.Y, l.Z, id); err != nil {
		// локальные координаты всегда в диапазоне после WorldToLocal
		panic(err)
	}

	if w.listener != nil && old != id {
		w.listener.OnBlockChanged(BlockChange{Position: pos, Chunk: c.Coord, Old: old, New: id})
	}
	return true
}

// PlaceIfEmpty ставит блок только в пустую ячейку.
// Занятая ячейка не меняется и не перестраивается.
func (w *World) PlaceIfEmpty(pos vec.Vec3, id block.BlockID) bool {
	if !w.Contains(pos) || w.GetBlockAt(pos) != block.AirBlockID {
		return false
	}
	return w.SetBlockAt(pos, id)
}

// RemoveBlock заменяет блок воздухом и возвращает удалённый тип
func (w *World) RemoveBlock(pos vec.Vec3) block.BlockID {
	old := w.GetBlockAt(pos)
	if old == block.AirBlockID {
		return old
	}
	w.SetBlockAt(pos, block.AirBlockID)
	return old
}

// DrawAll вызывает Draw у каждого чанка
func (w *World) DrawAll() {
	for _, c := range w.chunks {
		c.Draw()
	}
}

// RebuildAll перестраивает все чанки
func (w *World) RebuildAll() {
	for _, c := range w.chunks {
		c.Rebuild()
	}
}

// BulkWriter записывает блоки без перестроения после каждой записи
type BulkWriter struct {
	w       *World
	touched map[*Chunk]struct{}
	written int
}

// Set записывает блок; вне мира возвращает false
func (b *BulkWriter) Set(pos vec.Vec3, id block.BlockID) bool {
	c, l, ok := b.w.locate(pos)
	if !ok {
		return false
	}
	if err := c.setCell(l.X, l.Y, l.Z, id); err != nil {
		panic(err)
	}
	b.touched[c] = struct{}{}
	b.written++
	return true
}

// Get читает блок с учётом уже сделанных записей
func (b *BulkWriter) Get(pos vec.Vec3) block.BlockID {
	return b.w.GetBlockAt(pos)
}

// Bulk выполняет fn и затем перестраивает каждый затронутый чанк один раз.
// Подписчик изменений не уведомляется.
func (w *World) Bulk(fn func(b *BulkWriter)) int {
	b := &BulkWriter{w: w, touched: make(map[*Chunk]struct{})}
	fn(b)

	for _, c := range w.chunks {
		if _, ok := b.touched[c]; ok {
			c.afterMutation()
		}
	}
	return b.written
}

// ChangedChunks возвращает чанки с несохранёнными изменениями
func (w *World) ChangedChunks() []*Chunk {
	var out []*Chunk
	for _, c := range w.chunks {
		if c.HasChanges() {
			out = append(out, c)
		}
	}
	return out
}

// Count возвращает количество блоков указанного типа во всём мире
func (w *World) Count(id block.BlockID) int {
	n := 0
	for _, c := range w.chunks {
		for _, cell := range c.cells {
			if cell == id {
				n++
			}
		}
	}
	return n
}

// Close освобождает буферы всех чанков
func (w *World) Close() {
	for _, c := range w.chunks {
		c.Release()
	}
}
