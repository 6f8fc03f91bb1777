package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/annel0/voxel-explorer/internal/logging"
	"github.com/annel0/voxel-explorer/internal/storage"
	"github.com/annel0/voxel-explorer/internal/vec"
	"github.com/annel0/voxel-explorer/internal/world/block"
	"github.com/dgraph-io/ristretto"
)

// ChunkCache реализует storage.ChunkRepo поверх другого хранилища.
//
// Особенности:
//   - Read-Through: промах горячего слоя читает постоянное хранилище
//   - Write-Behind: записи копятся и уходят батчами по таймеру или размеру
//   - Инвалидация через Invalidator при записи и удалении
type ChunkCache struct {
	hot         *ristretto.Cache
	cold        storage.ChunkRepo
	config      Config
	invalidator Invalidator
	log         *logging.Logger

	mu       sync.Mutex
	pending  map[vec.Vec3]storage.ChunkRecord // ещё не записаны
	flushing map[vec.Vec3]storage.ChunkRecord // пишутся прямо сейчас
	closed   bool
	onEvict  InvalidationHandler

	flushMu sync.Mutex
	kick    chan struct{}
	stop    chan struct{}
	wg      sync.WaitGroup

	requests      atomic.Int64
	hits          atomic.Int64
	misses        atomic.Int64
	flushed       atomic.Int64
	flushErrors   atomic.Int64
	invalidations atomic.Int64
}

var _ storage.ChunkRepo = (*ChunkCache)(nil)

// NewChunkCache оборачивает cold горячим слоем.
// invalidator может быть nil для одиночного процесса.
func NewChunkCache(ctx context.Context, cold storage.ChunkRepo, config Config, invalidator Invalidator) (*ChunkCache, error) {
	config = config.withDefaults()

	hot, err := ristretto.NewCache(&ristretto.Config{
		NumCounters:        config.Capacity * 10,
		MaxCost:            config.Capacity,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("горячий слой кеша: %w", err)
	}

	c := &ChunkCache{
		hot:         hot,
		cold:        cold,
		config:      config,
		invalidator: invalidator,
		log:         logging.GetStorageLogger(),
		pending:     make(map[vec.Vec3]storage.ChunkRecord),
		kick:        make(chan struct{}, 1),
		stop:        make(chan struct{}),
	}

	if invalidator != nil {
		if err := invalidator.SubscribeInvalidations(ctx, c.evict); err != nil {
			hot.Close()
			return nil, err
		}
	}
	if config.WriteBehind {
		c.startWriteBehind()
	}

	c.log.Info("🗃️ Кеш чанков: ёмкость %d (Write-Behind: %v)", config.Capacity, config.WriteBehind)
	return c, nil
}

// Save сохраняет чанк
func (c *ChunkCache) Save(ctx context.Context, rec storage.ChunkRecord) error {
	return c.BatchSave(ctx, []storage.ChunkRecord{rec})
}

// BatchSave кладёт записи в горячий слой и в постоянное хранилище.
// При Write-Behind запись в хранилище откладывается до сброса.
func (c *ChunkCache) BatchSave(ctx context.Context, recs []storage.ChunkRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, rec := range recs {
		if len(rec.Cells) != rec.Size*rec.Size*rec.Size {
			return fmt.Errorf("чанк %v: %d ячеек при размере %d", rec.Coord, len(rec.Cells), rec.Size)
		}
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.config.WriteBehind {
		for _, rec := range recs {
			c.pending[rec.Coord] = clone(rec)
		}
		full := len(c.pending) >= c.config.BatchSize
		c.mu.Unlock()
		if full {
			c.requestFlush()
		}
	} else {
		c.mu.Unlock()
		if err := c.cold.BatchSave(ctx, recs); err != nil {
			return err
		}
	}

	for _, rec := range recs {
		c.remember(rec)
	}
	c.hot.Wait()
	c.publish(ctx, recs)
	return nil
}

// Load возвращает чанк из очереди записи, горячего слоя или хранилища
func (c *ChunkCache) Load(ctx context.Context, coord vec.Vec3) (storage.ChunkRecord, bool, error) {
	if err := ctx.Err(); err != nil {
		return storage.ChunkRecord{}, false, err
	}
	c.requests.Add(1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return storage.ChunkRecord{}, false, ErrClosed
	}
	rec, ok := c.pending[coord]
	if !ok {
		rec, ok = c.flushing[coord]
	}
	c.mu.Unlock()
	if ok {
		c.hits.Add(1)
		return clone(rec), true, nil
	}

	if v, ok := c.hot.Get(coord.Key()); ok {
		c.hits.Add(1)
		return clone(v.(storage.ChunkRecord)), true, nil
	}

	c.misses.Add(1)
	rec, found, err := c.cold.Load(ctx, coord)
	if err != nil || !found {
		return rec, found, err
	}
	c.remember(rec)
	return rec, true, nil
}

// Delete удаляет чанк отовсюду
func (c *ChunkCache) Delete(ctx context.Context, coord vec.Vec3) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	delete(c.pending, coord)
	c.mu.Unlock()

	c.hot.Del(coord.Key())
	if err := c.cold.Delete(ctx, coord); err != nil {
		return err
	}
	c.publish(ctx, []storage.ChunkRecord{{Coord: coord}})
	return nil
}

// Flush записывает накопленные чанки в постоянное хранилище
func (c *ChunkCache) Flush(ctx context.Context) error {
	c.flushMu.Lock()
	defer c.flushMu.Unlock()

	c.mu.Lock()
	if len(c.pending) == 0 {
		c.mu.Unlock()
		return nil
	}
	batch := c.pending
	c.pending = make(map[vec.Vec3]storage.ChunkRecord)
	c.flushing = batch
	c.mu.Unlock()

	recs := make([]storage.ChunkRecord, 0, len(batch))
	for _, rec := range batch {
		recs = append(recs, rec)
	}

	start := time.Now()
	err := c.cold.BatchSave(ctx, recs)

	c.mu.Lock()
	c.flushing = nil
	if err != nil {
		// Не затираем более свежие записи, пришедшие во время сброса
		for coord, rec := range batch {
			if _, newer := c.pending[coord]; !newer {
				c.pending[coord] = rec
			}
		}
	}
	c.mu.Unlock()

	if err != nil {
		c.flushErrors.Add(1)
		c.log.Error("Write-Behind: сброс %d чанков не удался: %v", len(recs), err)
		return fmt.Errorf("сброс кеша: %w", err)
	}
	c.flushed.Add(int64(len(recs)))
	c.log.Debug("Write-Behind: записано %d чанков за %v", len(recs), time.Since(start))
	return nil
}

// Metrics возвращает текущие метрики кеша
func (c *ChunkCache) Metrics() Metrics {
	m := Metrics{
		Requests:      c.requests.Load(),
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		Flushed:       c.flushed.Load(),
		FlushErrors:   c.flushErrors.Load(),
		Invalidations: c.invalidations.Load(),
	}
	if total := m.Hits + m.Misses; total > 0 {
		m.HitRatio = float64(m.Hits) / float64(total)
	}
	c.mu.Lock()
	m.PendingWrites = len(c.pending)
	c.mu.Unlock()
	return m
}

// Close сбрасывает очередь записи и закрывает кеш вместе с хранилищем
func (c *ChunkCache) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	if c.config.WriteBehind {
		close(c.stop)
		c.wg.Wait()
	}
	flushErr := c.Flush(context.Background())

	if c.invalidator != nil {
		if err := c.invalidator.Close(); err != nil {
			c.log.Warn("Ошибка закрытия инвалидатора: %v", err)
		}
	}
	c.hot.Close()

	if err := c.cold.Close(); err != nil {
		return err
	}
	c.log.Info("🗃️ Кеш чанков закрыт")
	return flushErr
}

// OnInvalidate задаёт обработчик, вызываемый после удаления чанка,
// изменённого другим узлом. Обработчик может сразу перечитать его через Load.
func (c *ChunkCache) OnInvalidate(fn InvalidationHandler) {
	c.mu.Lock()
	c.onEvict = fn
	c.mu.Unlock()
}

// evict удаляет чанк, изменённый другим узлом
func (c *ChunkCache) evict(coord vec.Vec3) error {
	c.invalidations.Add(1)
	c.hot.Del(coord.Key())

	c.mu.Lock()
	fn := c.onEvict
	c.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(coord)
}

func (c *ChunkCache) remember(rec storage.ChunkRecord) {
	c.hot.SetWithTTL(rec.Coord.Key(), clone(rec), 1, c.config.TTL)
}

func (c *ChunkCache) publish(ctx context.Context, recs []storage.ChunkRecord) {
	if c.invalidator == nil {
		return
	}
	for _, rec := range recs {
		if err := c.invalidator.PublishInvalidation(ctx, rec.Coord); err != nil {
			c.log.Warn("Инвалидация чанка %v не отправлена: %v", rec.Coord, err)
		}
	}
}

func (c *ChunkCache) requestFlush() {
	select {
	case c.kick <- struct{}{}:
	default:
	}
}

// startWriteBehind запускает горутину фоновой записи
func (c *ChunkCache) startWriteBehind() {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		ticker := time.NewTicker(c.config.FlushInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
			case <-c.kick:
			case <-c.stop:
				return
			}
			_ = c.Flush(context.Background())
		}
	}()
}

func clone(rec storage.ChunkRecord) storage.ChunkRecord {
	rec.Cells = append([]block.BlockID(nil), rec.Cells...)
	return rec
}
