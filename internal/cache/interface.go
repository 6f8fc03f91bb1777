// Package cache держит горячий слой чанков перед постоянным хранилищем.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/annel0/voxel-explorer/internal/vec"
)

// Config содержит конфигурацию кеша чанков.
type Config struct {
	// Capacity ограничивает число чанков в горячем слое
	Capacity int64
	// TTL записи в горячем слое; 0 означает отсутствие истечения
	TTL time.Duration

	// Write-Behind: запись в постоянное хранилище батчами в фоне
	WriteBehind   bool
	FlushInterval time.Duration
	BatchSize     int
}

func (c Config) withDefaults() Config {
	if c.Capacity <= 0 {
		c.Capacity = 1024
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = 5 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 64
	}
	return c
}

// Invalidator рассылает и принимает уведомления об устаревших чанках
// между процессами, разделяющими одно хранилище.
type Invalidator interface {
	// PublishInvalidation сообщает остальным узлам, что чанк изменился.
	PublishInvalidation(ctx context.Context, coord vec.Vec3) error

	// SubscribeInvalidations подписывается на уведомления других узлов.
	SubscribeInvalidations(ctx context.Context, handler InvalidationHandler) error

	// Close закрывает соединение.
	Close() error
}

// InvalidationHandler обрабатывает уведомление об инвалидации чанка.
type InvalidationHandler func(coord vec.Vec3) error

// Metrics содержит метрики кеша.
type Metrics struct {
	Requests int64   `json:"requests"`
	Hits     int64   `json:"hits"`
	Misses   int64   `json:"misses"`
	HitRatio float64 `json:"hit_ratio"`

	// Write-Behind метрики
	PendingWrites int   `json:"pending_writes"`
	Flushed       int64 `json:"flushed"`
	FlushErrors   int64 `json:"flush_errors"`

	Invalidations int64 `json:"invalidations"`
}

// ErrClosed возвращается при обращении к закрытому кешу
var ErrClosed = errors.New("кеш чанков закрыт")
