package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/annel0/voxel-explorer/internal/vec"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoConfig contains connection settings for the MongoDB chunk repository.
type MongoConfig struct {
	URI        string // e.g. mongodb://localhost:27017
	Database   string // e.g. voxel
	Collection string // e.g. chunks
}

// MongoChunkRepo implements ChunkRepo on a MongoDB backend.
type MongoChunkRepo struct {
	client     *mongo.Client
	collection *mongo.Collection
	ctxTimeout time.Duration
}

type chunkDoc struct {
	Key     string    `bson:"_id"`
	X       int       `bson:"cx"`
	Y       int       `bson:"cy"`
	Z       int       `bson:"cz"`
	Data    []byte    `bson:"data"`
	SavedAt time.Time `bson:"saved_at"`
}

// NewMongoChunkRepo establishes connection and returns repository.
func NewMongoChunkRepo(ctx context.Context, cfg MongoConfig) (*MongoChunkRepo, error) {
	if cfg.URI == "" {
		cfg.URI = "mongodb://localhost:27017"
	}
	if cfg.Database == "" {
		cfg.Database = "voxel"
	}
	if cfg.Collection == "" {
		cfg.Collection = "chunks"
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, err
	}
	// ping
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	repo := &MongoChunkRepo{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
		ctxTimeout: 5 * time.Second,
	}
	if err := repo.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return repo, nil
}

func (m *MongoChunkRepo) ensureIndexes(ctx context.Context) error {
	coordIdx := mongo.IndexModel{
		Keys:    bson.D{{Key: "cx", Value: 1}, {Key: "cy", Value: 1}, {Key: "cz", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("coord_unique"),
	}
	_, err := m.collection.Indexes().CreateOne(ctx, coordIdx)
	return err
}

func (m *MongoChunkRepo) doc(rec ChunkRecord) (chunkDoc, error) {
	data, err := EncodeChunk(rec)
	if err != nil {
		return chunkDoc{}, err
	}
	savedAt := rec.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now()
	}
	return chunkDoc{
		Key:     chunkKey(rec.Coord),
		X:       rec.Coord.X,
		Y:       rec.Coord.Y,
		Z:       rec.Coord.Z,
		Data:    data,
		SavedAt: savedAt,
	}, nil
}

// Save upserts a single chunk document.
func (m *MongoChunkRepo) Save(ctx context.Context, rec ChunkRecord) error {
	doc, err := m.doc(rec)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, m.ctxTimeout)
	defer cancel()
	_, err = m.collection.ReplaceOne(ctx, bson.M{"_id": doc.Key}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo save chunk %v: %w", rec.Coord, err)
	}
	return nil
}

// Load fetches a chunk by its coordinates.
func (m *MongoChunkRepo) Load(ctx context.Context, coord vec.Vec3) (ChunkRecord, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, m.ctxTimeout)
	defer cancel()

	var doc chunkDoc
	err := m.collection.FindOne(ctx, bson.M{"_id": chunkKey(coord)}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ChunkRecord{}, false, nil
	}
	if err != nil {
		return ChunkRecord{}, false, fmt.Errorf("mongo load chunk %v: %w", coord, err)
	}

	rec, err := DecodeChunk(doc.Data)
	if err != nil {
		return ChunkRecord{}, false, err
	}
	return rec, true, nil
}

// Delete removes a chunk document.
func (m *MongoChunkRepo) Delete(ctx context.Context, coord vec.Vec3) error {
	ctx, cancel := context.WithTimeout(ctx, m.ctxTimeout)
	defer cancel()
	_, err := m.collection.DeleteOne(ctx, bson.M{"_id": chunkKey(coord)})
	return err
}

// BatchSave upserts all chunks with one unordered bulk write.
func (m *MongoChunkRepo) BatchSave(ctx context.Context, recs []ChunkRecord) error {
	if len(recs) == 0 {
		return nil
	}

	models := make([]mongo.WriteModel, 0, len(recs))
	for _, rec := range recs {
		doc, err := m.doc(rec)
		if err != nil {
			return err
		}
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": doc.Key}).
			SetReplacement(doc).
			SetUpsert(true))
	}

	ctx, cancel := context.WithTimeout(ctx, m.ctxTimeout)
	defer cancel()
	if _, err := m.collection.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false)); err != nil {
		return fmt.Errorf("mongo batch save %d chunks: %w", len(recs), err)
	}
	return nil
}

// Close disconnects the client.
func (m *MongoChunkRepo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), m.ctxTimeout)
	defer cancel()
	return m.client.Disconnect(ctx)
}
