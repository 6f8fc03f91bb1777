package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/annel0/voxel-explorer/internal/vec"
	"github.com/dgraph-io/badger/v3"
)

// BadgerChunkRepo хранит чанки в BadgerDB под ключами "chunk:x:y:z"
type BadgerChunkRepo struct {
	db      *badger.DB
	dbPath  string
	mutex   sync.RWMutex
	isReady bool
}

// NewBadgerChunkRepo открывает хранилище в dataPath/world
func NewBadgerChunkRepo(dataPath string) (*BadgerChunkRepo, error) {
	dbPath := filepath.Join(dataPath, "world")
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	return &BadgerChunkRepo{
		db:      db,
		dbPath:  dbPath,
		isReady: true,
	}, nil
}

// Path возвращает каталог базы
func (r *BadgerChunkRepo) Path() string {
	return r.dbPath
}

// Close закрывает хранилище данных
func (r *BadgerChunkRepo) Close() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if !r.isReady {
		return nil
	}

	r.isReady = false
	return r.db.Close()
}

// Save сохраняет чанк
func (r *BadgerChunkRepo) Save(ctx context.Context, rec ChunkRecord) error {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if !r.isReady {
		return ErrNotReady
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := EncodeChunk(rec)
	if err != nil {
		return err
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(chunkKey(rec.Coord)), data)
	})
	if err != nil {
		return fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
	}
	return nil
}

// Load загружает чанк
func (r *BadgerChunkRepo) Load(ctx context.Context, coord vec.Vec3) (ChunkRecord, bool, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if !r.isReady {
		return ChunkRecord{}, false, ErrNotReady
	}
	if err := ctx.Err(); err != nil {
		return ChunkRecord{}, false, err
	}

	var data []byte
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(chunkKey(coord)))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ChunkRecord{}, false, nil
	}
	if err != nil {
		return ChunkRecord{}, false, fmt.Errorf("ошибка загрузки из BadgerDB: %w", err)
	}

	rec, err := DecodeChunk(data)
	if err != nil {
		return ChunkRecord{}, false, err
	}
	return rec, true, nil
}

// Delete удаляет чанк
func (r *BadgerChunkRepo) Delete(ctx context.Context, coord vec.Vec3) error {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if !r.isReady {
		return ErrNotReady
	}

	err := r.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(chunkKey(coord)))
	})
	if err != nil {
		return fmt.Errorf("ошибка удаления из BadgerDB: %w", err)
	}
	return nil
}

// BatchSave сохраняет несколько чанков через WriteBatch
func (r *BadgerChunkRepo) BatchSave(ctx context.Context, recs []ChunkRecord) error {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if !r.isReady {
		return ErrNotReady
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	wb := r.db.NewWriteBatch()
	defer wb.Cancel()

	for _, rec := range recs {
		data, err := EncodeChunk(rec)
		if err != nil {
			return err
		}
		if err := wb.Set([]byte(chunkKey(rec.Coord)), data); err != nil {
			return fmt.Errorf("ошибка записи батча в BadgerDB: %w", err)
		}
	}

	if err := wb.Flush(); err != nil {
		return fmt.Errorf("ошибка сброса батча в BadgerDB: %w", err)
	}
	return nil
}

// Keys возвращает все ключи чанков (для отладки и тестов)
func (r *BadgerChunkRepo) Keys() ([]string, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if !r.isReady {
		return nil, ErrNotReady
	}

	var keys []string
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte("chunk:")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	return keys, err
}
