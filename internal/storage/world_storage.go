package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/annel0/voxel-explorer/internal/logging"
	"github.com/annel0/voxel-explorer/internal/world"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("github.com/annel0/voxel-explorer/internal/storage")

// RecordOf снимает запись с чанка
func RecordOf(c *world.Chunk, now time.Time) ChunkRecord {
	return ChunkRecord{
		Coord:   c.Coord,
		Size:    c.Size(),
		Cells:   c.Snapshot(),
		SavedAt: now,
	}
}

// SaveWorld сохраняет изменённые чанки (или все при force) одним батчем
// и сбрасывает их счетчики изменений. Возвращает количество сохранённых чанков.
func SaveWorld(ctx context.Context, repo ChunkRepo, w *world.World, force bool) (int, error) {
	ctx, span := tracer.Start(ctx, "storage.SaveWorld")
	defer span.End()

	chunks := w.ChangedChunks()
	if force {
		chunks = w.Chunks()
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	now := time.Now()
	recs := make([]ChunkRecord, 0, len(chunks))
	for _, c := range chunks {
		recs = append(recs, RecordOf(c, now))
	}

	if err := repo.BatchSave(ctx, recs); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("сохранение %d чанков: %w", len(recs), err)
	}

	for _, c := range chunks {
		c.ClearChanges()
	}

	span.SetAttributes(attribute.Int("storage.chunks", len(recs)))
	logging.GetStorageLogger().Debug("💾 Сохранено %d чанков", len(recs))
	return len(recs), nil
}

// LoadWorld восстанавливает сохранённые чанки мира.
// Чанки без записи остаются как есть. Возвращает количество загруженных чанков.
func LoadWorld(ctx context.Context, repo ChunkRepo, w *world.World) (int, error) {
	ctx, span := tracer.Start(ctx, "storage.LoadWorld")
	defer span.End()

	loaded := 0
	for _, c := range w.Chunks() {
		rec, found, err := repo.Load(ctx, c.Coord)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return loaded, fmt.Errorf("загрузка чанка %v: %w", c.Coord, err)
		}
		if !found {
			continue
		}
		if rec.Size != c.Size() {
			return loaded, fmt.Errorf("чанк %v: сохранён с размером %d, мир использует %d", c.Coord, rec.Size, c.Size())
		}
		if err := c.Restore(rec.Cells); err != nil {
			return loaded, err
		}
		loaded++
	}

	span.SetAttributes(attribute.Int("storage.chunks", loaded))
	logging.GetStorageLogger().Info("📂 Загружено %d чанков из хранилища", loaded)
	return loaded, nil
}
