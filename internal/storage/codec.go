package storage

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/annel0/voxel-explorer/internal/vec"
	"github.com/annel0/voxel-explorer/internal/world/block"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/crypto/blake2b"
	"google.golang.org/protobuf/encoding/protowire"
)

// FormatVersion - версия формата записи чанка
const FormatVersion = 1

var (
	// ErrCorruptRecord возвращается для записей, которые не удаётся разобрать
	ErrCorruptRecord = errors.New("повреждённая запись чанка")
	// ErrChecksumMismatch возвращается, если контрольная сумма ячеек не совпала
	ErrChecksumMismatch = errors.New("контрольная сумма чанка не совпадает")
)

// ChunkRecord - сохраняемое состояние одного чанка
type ChunkRecord struct {
	Coord   vec.Vec3
	Size    int
	Cells   []block.BlockID
	SavedAt time.Time
}

// Номера полей записи
const (
	fieldVersion  protowire.Number = 1
	fieldX        protowire.Number = 2
	fieldY        protowire.Number = 3
	fieldZ        protowire.Number = 4
	fieldSize     protowire.Number = 5
	fieldCells    protowire.Number = 6
	fieldChecksum protowire.Number = 7
	fieldSavedAt  protowire.Number = 8
)

var (
	codecOnce    sync.Once
	codecErr     error
	compressor   *zstd.Encoder
	decompressor *zstd.Decoder
)

func initCodec() error {
	codecOnce.Do(func() {
		compressor, codecErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if codecErr != nil {
			return
		}
		decompressor, codecErr = zstd.NewReader(nil)
	})
	return codecErr
}

func cellBytes(cells []block.BlockID) []byte {
	raw := make([]byte, len(cells))
	for i, id := range cells {
		raw[i] = byte(id)
	}
	return raw
}

// EncodeChunk сериализует запись: ячейки сжимаются zstd,
// рядом хранится BLAKE2b-256 от несжатых ячеек.
func EncodeChunk(rec ChunkRecord) ([]byte, error) {
	if err := initCodec(); err != nil {
		return nil, fmt.Errorf("инициализация zstd: %w", err)
	}
	if rec.Size*rec.Size*rec.Size != len(rec.Cells) {
		return nil, fmt.Errorf("чанк %v: %d ячеек не соответствуют размеру %d", rec.Coord, len(rec.Cells), rec.Size)
	}

	raw := cellBytes(rec.Cells)
	sum := blake2b.Sum256(raw)
	packed := compressor.EncodeAll(raw, nil)

	var b []byte
	b = protowire.AppendTag(b, fieldVersion, protowire.VarintType)
	b = protowire.AppendVarint(b, FormatVersion)
	b = protowire.AppendTag(b, fieldX, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(rec.Coord.X)))
	b = protowire.AppendTag(b, fieldY, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(rec.Coord.Y)))
	b = protowire.AppendTag(b, fieldZ, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(rec.Coord.Z)))
	b = protowire.AppendTag(b, fieldSize, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(rec.Size))
	b = protowire.AppendTag(b, fieldCells, protowire.BytesType)
	b = protowire.AppendBytes(b, packed)
	b = protowire.AppendTag(b, fieldChecksum, protowire.BytesType)
	b = protowire.AppendBytes(b, sum[:])
	if !rec.SavedAt.IsZero() {
		b = protowire.AppendTag(b, fieldSavedAt, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(rec.SavedAt.UnixMilli()))
	}
	return b, nil
}

// DecodeChunk разбирает запись и проверяет контрольную сумму
func DecodeChunk(data []byte) (ChunkRecord, error) {
	if err := initCodec(); err != nil {
		return ChunkRecord{}, fmt.Errorf("инициализация zstd: %w", err)
	}

	var (
		rec      ChunkRecord
		version  uint64
		packed   []byte
		checksum []byte
	)

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return ChunkRecord{}, fmt.Errorf("%w: %v", ErrCorruptRecord, protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(data)
			if m < 0 {
				return ChunkRecord{}, fmt.Errorf("%w: %v", ErrCorruptRecord, protowire.ParseError(m))
			}
			data = data[m:]
			switch num {
			case fieldVersion:
				version = v
			case fieldX:
				rec.Coord.X = int(protowire.DecodeZigZag(v))
			case fieldY:
				rec.Coord.Y = int(protowire.DecodeZigZag(v))
			case fieldZ:
				rec.Coord.Z = int(protowire.DecodeZigZag(v))
			case fieldSize:
				rec.Size = int(v)
			case fieldSavedAt:
				rec.SavedAt = time.UnixMilli(int64(v))
			}
		case typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(data)
			if m < 0 {
				return ChunkRecord{}, fmt.Errorf("%w: %v", ErrCorruptRecord, protowire.ParseError(m))
			}
			data = data[m:]
			switch num {
			case fieldCells:
				packed = v
			case fieldChecksum:
				checksum = v
			}
		default:
			// Неизвестные поля пропускаются для совместимости
			m := protowire.ConsumeFieldValue(num, typ, data)
			if m < 0 {
				return ChunkRecord{}, fmt.Errorf("%w: %v", ErrCorruptRecord, protowire.ParseError(m))
			}
			data = data[m:]
		}
	}

	if version != FormatVersion {
		return ChunkRecord{}, fmt.Errorf("%w: версия формата %d", ErrCorruptRecord, version)
	}
	if rec.Size <= 0 {
		return ChunkRecord{}, fmt.Errorf("%w: размер %d", ErrCorruptRecord, rec.Size)
	}

	raw, err := decompressor.DecodeAll(packed, nil)
	if err != nil {
		return ChunkRecord{}, fmt.Errorf("%w: zstd: %v", ErrCorruptRecord, err)
	}
	if len(raw) != rec.Size*rec.Size*rec.Size {
		return ChunkRecord{}, fmt.Errorf("%w: %d ячеек при размере %d", ErrCorruptRecord, len(raw), rec.Size)
	}
	sum := blake2b.Sum256(raw)
	if !bytes.Equal(sum[:], checksum) {
		return ChunkRecord{}, fmt.Errorf("%w: чанк %v", ErrChecksumMismatch, rec.Coord)
	}

	rec.Cells = make([]block.BlockID, len(raw))
	for i, b := range raw {
		rec.Cells[i] = block.BlockID(b)
	}
	return rec, nil
}
