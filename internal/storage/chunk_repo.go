package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/annel0/voxel-explorer/internal/vec"
)

// ErrNotReady возвращается при обращении к закрытому хранилищу
var ErrNotReady = errors.New("хранилище не готово")

// ChunkRepo определяет интерфейс для сохранения и загрузки чанков.
// Записи адресуются координатами чанка.
type ChunkRepo interface {
	// Save сохраняет один чанк, перезаписывая предыдущую версию.
	Save(ctx context.Context, rec ChunkRecord) error

	// Load загружает чанк.
	// Возвращает:
	//   ChunkRecord - запись чанка
	//   bool - true если чанк найден, false если он ещё не сохранялся
	//   error - ошибка при загрузке или разборе
	Load(ctx context.Context, coord vec.Vec3) (ChunkRecord, bool, error)

	// Delete удаляет сохранённый чанк (для тестов или сброса мира).
	Delete(ctx context.Context, coord vec.Vec3) error

	// BatchSave сохраняет несколько чанков одной операцией (автосохранение).
	BatchSave(ctx context.Context, recs []ChunkRecord) error

	// Close освобождает соединения.
	Close() error
}

// chunkKey возвращает ключ вида "chunk:x:y:z"
func chunkKey(coord vec.Vec3) string {
	return "chunk:" + coord.Key()
}

// Config описывает выбор и настройки хранилища
type Config struct {
	Backend  string // memory | badger | redis | maria | mongo
	Path     string // каталог данных BadgerDB
	Redis    RedisConfig
	MariaDSN string
	Mongo    MongoConfig
}

// Open создаёт хранилище по конфигурации
func Open(ctx context.Context, cfg Config) (ChunkRepo, error) {
	var (
		repo ChunkRepo
		err  error
	)
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryChunkRepo(), nil
	case "badger":
		repo, err = wrapRepo(NewBadgerChunkRepo(cfg.Path))
	case "redis":
		repo, err = wrapRepo(NewRedisChunkRepo(ctx, cfg.Redis))
	case "maria", "mysql":
		repo, err = wrapRepo(NewMariaChunkRepo(ctx, cfg.MariaDSN))
	case "mongo":
		repo, err = wrapRepo(NewMongoChunkRepo(ctx, cfg.Mongo))
	default:
		return nil, fmt.Errorf("неизвестное хранилище %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("хранилище %s: %w", cfg.Backend, err)
	}
	return repo, nil
}

// wrapRepo не даёт типизированному nil попасть в интерфейс
func wrapRepo[T ChunkRepo](repo T, err error) (ChunkRepo, error) {
	if err != nil {
		return nil, err
	}
	return repo, nil
}
