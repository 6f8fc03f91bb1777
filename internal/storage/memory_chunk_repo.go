package storage

import (
	"context"
	"sync"

	"github.com/annel0/voxel-explorer/internal/vec"
)

// MemoryChunkRepo реализует ChunkRepo в памяти.
// Используется по умолчанию и в тестах.
// ВНИМАНИЕ: Данные теряются при перезапуске!
type MemoryChunkRepo struct {
	mu     sync.RWMutex
	data   map[vec.Vec3][]byte // координаты чанка -> закодированная запись
	closed bool
}

// NewMemoryChunkRepo создает новый репозиторий чанков в памяти
func NewMemoryChunkRepo() *MemoryChunkRepo {
	return &MemoryChunkRepo{
		data: make(map[vec.Vec3][]byte),
	}
}

// Save сохраняет чанк в памяти
func (r *MemoryChunkRepo) Save(ctx context.Context, rec ChunkRecord) error {
	return r.BatchSave(ctx, []ChunkRecord{rec})
}

// Load загружает чанк из памяти
func (r *MemoryChunkRepo) Load(ctx context.Context, coord vec.Vec3) (ChunkRecord, bool, error) {
	// Проверяем контекст на отмену
	select {
	case <-ctx.Done():
		return ChunkRecord{}, false, ctx.Err()
	default:
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return ChunkRecord{}, false, ErrNotReady
	}
	data, exists := r.data[coord]
	if !exists {
		return ChunkRecord{}, false, nil
	}

	rec, err := DecodeChunk(data)
	if err != nil {
		return ChunkRecord{}, false, err
	}
	return rec, true, nil
}

// Delete удаляет чанк из памяти
func (r *MemoryChunkRepo) Delete(ctx context.Context, coord vec.Vec3) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrNotReady
	}
	delete(r.data, coord)
	return nil
}

// BatchSave сохраняет несколько чанков. Либо сохраняются все, либо ни один.
func (r *MemoryChunkRepo) BatchSave(ctx context.Context, recs []ChunkRecord) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	encoded := make(map[vec.Vec3][]byte, len(recs))
	for _, rec := range recs {
		data, err := EncodeChunk(rec)
		if err != nil {
			return err
		}
		encoded[rec.Coord] = data
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrNotReady
	}
	for coord, data := range encoded {
		r.data[coord] = data
	}
	return nil
}

// Len возвращает количество сохранённых чанков
func (r *MemoryChunkRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data)
}

// Close помечает репозиторий закрытым
func (r *MemoryChunkRepo) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return nil
}
