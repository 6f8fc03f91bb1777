package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/annel0/voxel-explorer/internal/logging"
	"github.com/annel0/voxel-explorer/internal/vec"
	"github.com/go-redis/redis/v8"
)

// RedisConfig содержит настройки подключения к Redis
type RedisConfig struct {
	Addr      string        // Адрес Redis сервера
	Password  string        // Пароль (пустой если не требуется)
	DB        int           // Номер базы данных
	KeyPrefix string        // Префикс для ключей
	TTL       time.Duration // Время жизни записей, 0 - бессрочно
}

// DefaultRedisConfig возвращает конфигурацию по умолчанию
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:      "localhost:6379",
		KeyPrefix: "voxel:",
	}
}

// RedisChunkRepo хранит закодированные чанки в Redis
type RedisChunkRepo struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
}

// NewRedisChunkRepo подключается к Redis и проверяет соединение
func NewRedisChunkRepo(ctx context.Context, cfg RedisConfig) (*RedisChunkRepo, error) {
	if cfg.Addr == "" {
		cfg.Addr = DefaultRedisConfig().Addr
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Проверяем подключение
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("не удалось подключиться к Redis: %w", err)
	}

	logging.GetStorageLogger().Info("🔴 Подключено к Redis %s", cfg.Addr)
	return NewRedisChunkRepoWithClient(client, cfg.KeyPrefix, cfg.TTL), nil
}

// NewRedisChunkRepoWithClient использует готовый клиент (кластер, sentinel, тесты)
func NewRedisChunkRepoWithClient(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisChunkRepo {
	if prefix == "" {
		prefix = DefaultRedisConfig().KeyPrefix
	}
	return &RedisChunkRepo{client: client, keyPrefix: prefix, ttl: ttl}
}

func (r *RedisChunkRepo) key(coord vec.Vec3) string {
	return r.keyPrefix + chunkKey(coord)
}

// Save сохраняет чанк
func (r *RedisChunkRepo) Save(ctx context.Context, rec ChunkRecord) error {
	data, err := EncodeChunk(rec)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key(rec.Coord), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("ошибка сохранения чанка %v в Redis: %w", rec.Coord, err)
	}
	return nil
}

// Load загружает чанк
func (r *RedisChunkRepo) Load(ctx context.Context, coord vec.Vec3) (ChunkRecord, bool, error) {
	data, err := r.client.Get(ctx, r.key(coord)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ChunkRecord{}, false, nil
	}
	if err != nil {
		return ChunkRecord{}, false, fmt.Errorf("ошибка загрузки чанка %v из Redis: %w", coord, err)
	}

	rec, err := DecodeChunk(data)
	if err != nil {
		return ChunkRecord{}, false, err
	}
	return rec, true, nil
}

// Delete удаляет чанк
func (r *RedisChunkRepo) Delete(ctx context.Context, coord vec.Vec3) error {
	if err := r.client.Del(ctx, r.key(coord)).Err(); err != nil {
		return fmt.Errorf("ошибка удаления чанка %v из Redis: %w", coord, err)
	}
	return nil
}

// BatchSave сохраняет чанки одним pipeline
func (r *RedisChunkRepo) BatchSave(ctx context.Context, recs []ChunkRecord) error {
	if len(recs) == 0 {
		return nil
	}

	pipe := r.client.Pipeline()
	for _, rec := range recs {
		data, err := EncodeChunk(rec)
		if err != nil {
			return err
		}
		pipe.Set(ctx, r.key(rec.Coord), data, r.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("ошибка пакетного сохранения %d чанков в Redis: %w", len(recs), err)
	}
	return nil
}

// Close закрывает соединение с Redis
func (r *RedisChunkRepo) Close() error {
	return r.client.Close()
}
