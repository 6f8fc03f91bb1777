package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/annel0/voxel-explorer/internal/vec"
	_ "github.com/go-sql-driver/mysql"
)

// MariaChunkRepo реализует ChunkRepo для базы данных MariaDB/MySQL.
// Использует таблицу voxel_chunks, запись чанка хранится целиком в BLOB.
type MariaChunkRepo struct {
	db *sql.DB
}

// NewMariaChunkRepo создает новый репозиторий чанков для MariaDB.
// Автоматически создает таблицу, если она не существует.
//
// Параметры:
//
//	dsn - строка подключения к базе данных (user:pass@tcp(host:port)/dbname)
func NewMariaChunkRepo(ctx context.Context, dsn string) (*MariaChunkRepo, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("не удалось подключиться к MariaDB: %w", err)
	}

	// Проверяем соединение
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось проверить соединение с MariaDB: %w", err)
	}

	repo := NewMariaChunkRepoWithDB(db)

	// Создаем таблицу, если она не существует
	if err := repo.createTable(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось создать таблицу: %w", err)
	}

	return repo, nil
}

// NewMariaChunkRepoWithDB использует готовое подключение
func NewMariaChunkRepoWithDB(db *sql.DB) *MariaChunkRepo {
	return &MariaChunkRepo{db: db}
}

// createTable создает таблицу voxel_chunks, если она не существует.
func (r *MariaChunkRepo) createTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS voxel_chunks (
			cx         INT         NOT NULL,
			cy         INT         NOT NULL,
			cz         INT         NOT NULL,
			data       MEDIUMBLOB  NOT NULL,
			updated_at TIMESTAMP   DEFAULT CURRENT_TIMESTAMP
			           ON UPDATE   CURRENT_TIMESTAMP,
			PRIMARY KEY (cx, cy, cz)
		) ENGINE=InnoDB
	`

	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ошибка создания таблицы voxel_chunks: %w", err)
	}
	return nil
}

const mariaUpsert = `
	INSERT INTO voxel_chunks (cx, cy, cz, data)
	VALUES (?, ?, ?, ?)
	ON DUPLICATE KEY UPDATE
		data = VALUES(data),
		updated_at = CURRENT_TIMESTAMP
`

// Save сохраняет чанк.
// Использует INSERT ... ON DUPLICATE KEY UPDATE для обновления существующих записей.
func (r *MariaChunkRepo) Save(ctx context.Context, rec ChunkRecord) error {
	data, err := EncodeChunk(rec)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, mariaUpsert, rec.Coord.X, rec.Coord.Y, rec.Coord.Z, data)
	if err != nil {
		return fmt.Errorf("ошибка сохранения чанка %v: %w", rec.Coord, err)
	}
	return nil
}

// Load загружает чанк из базы данных
func (r *MariaChunkRepo) Load(ctx context.Context, coord vec.Vec3) (ChunkRecord, bool, error) {
	query := `SELECT data FROM voxel_chunks WHERE cx = ? AND cy = ? AND cz = ?`

	var data []byte
	err := r.db.QueryRowContext(ctx, query, coord.X, coord.Y, coord.Z).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		// Чанк ещё не сохранялся
		return ChunkRecord{}, false, nil
	}
	if err != nil {
		return ChunkRecord{}, false, fmt.Errorf("ошибка загрузки чанка %v: %w", coord, err)
	}

	rec, err := DecodeChunk(data)
	if err != nil {
		return ChunkRecord{}, false, err
	}
	return rec, true, nil
}

// Delete удаляет чанк
func (r *MariaChunkRepo) Delete(ctx context.Context, coord vec.Vec3) error {
	query := `DELETE FROM voxel_chunks WHERE cx = ? AND cy = ? AND cz = ?`
	if _, err := r.db.ExecContext(ctx, query, coord.X, coord.Y, coord.Z); err != nil {
		return fmt.Errorf("ошибка удаления чанка %v: %w", coord, err)
	}
	return nil
}

// BatchSave сохраняет чанки в одной транзакции
func (r *MariaChunkRepo) BatchSave(ctx context.Context, recs []ChunkRecord) error {
	if len(recs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback() // Откат, если не будет коммита

	stmt, err := tx.PrepareContext(ctx, mariaUpsert)
	if err != nil {
		return fmt.Errorf("ошибка подготовки запроса: %w", err)
	}
	defer stmt.Close()

	for _, rec := range recs {
		data, err := EncodeChunk(rec)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, rec.Coord.X, rec.Coord.Y, rec.Coord.Z, data); err != nil {
			return fmt.Errorf("ошибка сохранения чанка %v в батче: %w", rec.Coord, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ошибка коммита транзакции: %w", err)
	}
	return nil
}

// Close закрывает соединение с базой данных
func (r *MariaChunkRepo) Close() error {
	return r.db.Close()
}
