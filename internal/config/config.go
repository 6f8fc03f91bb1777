package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/annel0/voxel-explorer/internal/cache"
	"github.com/annel0/voxel-explorer/internal/logging"
	"github.com/annel0/voxel-explorer/internal/storage"
	"github.com/annel0/voxel-explorer/internal/vec"
	"github.com/annel0/voxel-explorer/internal/world"
	"github.com/annel0/voxel-explorer/internal/world/block"
	"gopkg.in/yaml.v3"
)

// EnvConfigPath переменная окружения с путём к YAML-конфигурации
const EnvConfigPath = "VOXEL_CONFIG"

// Config корневая структура конфигурации приложения.
type Config struct {
	World     WorldConfig     `yaml:"world"`
	Storage   StorageConfig   `yaml:"storage"`
	EventBus  EventBusConfig  `yaml:"eventbus"`
	Server    ServerConfig    `yaml:"server"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type WorldConfig struct {
	ChunkSize         int     `yaml:"chunk_size"`
	MinChunk          [3]int  `yaml:"min_chunk"`
	MaxChunk          [3]int  `yaml:"max_chunk"`
	RebuildMode       string  `yaml:"rebuild_mode"` // eager | deferred
	Generator         string  `yaml:"generator"`    // maze | terrain | empty
	Seed              int64   `yaml:"seed"`
	CollectibleChance float64 `yaml:"collectible_chance"`
	AtlasSize         int     `yaml:"atlas_size"`  // сторона текстурного атласа, пикселей
	BlocksFile        string  `yaml:"blocks_file"` // YAML-переопределения типов блоков
	Reach             float32 `yaml:"reach"`
}

type StorageConfig struct {
	Backend         string      `yaml:"backend"` // memory | badger | redis | maria | mongo
	Path            string      `yaml:"path"`
	AutosaveSeconds int         `yaml:"autosave_seconds"`
	Redis           RedisConfig `yaml:"redis"`
	MariaDSN        string      `yaml:"maria_dsn"`
	Mongo           MongoConfig `yaml:"mongo"`
	Cache           CacheConfig `yaml:"cache"`
}

// CacheConfig горячий слой чанков перед хранилищем
type CacheConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Capacity    int64  `yaml:"capacity"`
	TTLSeconds  int    `yaml:"ttl_seconds"`
	WriteBehind bool   `yaml:"write_behind"`
	FlushMillis int    `yaml:"flush_ms"`
	BatchSize   int    `yaml:"batch_size"`
	NATSURL     string `yaml:"nats_url"` // инвалидация между процессами; пусто - выключена
	Subject     string `yaml:"subject"`
}

type RedisConfig struct {
	Addr       string `yaml:"addr"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	KeyPrefix  string `yaml:"key_prefix"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

type MongoConfig struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

type EventBusConfig struct {
	URL       string `yaml:"url"` // пусто - шина в памяти
	Stream    string `yaml:"stream"`
	Retention int    `yaml:"retention_hours"`
	Buffer    int    `yaml:"buffer"`
}

type ServerConfig struct {
	RESTPort  int    `yaml:"rest_port"`
	GRPCPort  int    `yaml:"grpc_port"`
	FrameRate int    `yaml:"frame_rate"`
	JWTSecret string `yaml:"jwt_secret"` // base64, не короче 32 байт
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

type LoggingConfig struct {
	Dir   string `yaml:"dir"` // пусто - только консоль
	Level string `yaml:"level"`
}

// Default возвращает конфигурацию по умолчанию: мир-лабиринт 2x1x2 чанка в памяти
func Default() *Config {
	return &Config{
		World: WorldConfig{
			ChunkSize:         world.DefaultChunkSize,
			MinChunk:          [3]int{-1, 0, -1},
			MaxChunk:          [3]int{1, 1, 1},
			RebuildMode:       world.RebuildEager.String(),
			Generator:         "maze",
			Seed:              1,
			CollectibleChance: 0.25,
			AtlasSize:         block.DefaultAtlasSize,
			Reach:             2,
		},
		Storage: StorageConfig{
			Backend:         "memory",
			Path:            "data",
			AutosaveSeconds: 30,
			Redis: RedisConfig{
				Addr:      "localhost:6379",
				KeyPrefix: "voxel:",
			},
			Cache: CacheConfig{
				Capacity:    1024,
				FlushMillis: 5000,
				BatchSize:   64,
			},
		},
		EventBus: EventBusConfig{
			Stream:    "VOXEL_EVENTS",
			Retention: 24,
			Buffer:    1024,
		},
		Server: ServerConfig{
			FrameRate: 30,
		},
		Telemetry: TelemetryConfig{
			ServiceName: "voxel-explorer",
		},
		Logging: LoggingConfig{
			Level: "INFO",
		},
	}
}

// Load читает YAML файл поверх значений по умолчанию.
// Если path == "", пытается прочитать путь из VOXEL_CONFIG; без него возвращает Default().
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv(EnvConfigPath)
		if path == "" {
			logging.Debug("Конфигурация не задана, используются значения по умолчанию")
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("разбор %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate проверяет согласованность значений
func (c *Config) Validate() error {
	if c.World.ChunkSize <= 0 {
		return fmt.Errorf("world.chunk_size должен быть положительным, получено %d", c.World.ChunkSize)
	}
	for i := 0; i < 3; i++ {
		if c.World.MaxChunk[i] <= c.World.MinChunk[i] {
			return fmt.Errorf("world: пустой диапазон чанков %v..%v", c.World.MinChunk, c.World.MaxChunk)
		}
	}
	if c.World.AtlasSize <= 0 {
		return fmt.Errorf("world.atlas_size должен быть положительным, получено %d", c.World.AtlasSize)
	}
	if _, err := world.ParseRebuildMode(c.World.RebuildMode); err != nil {
		return err
	}
	if c.World.CollectibleChance < 0 || c.World.CollectibleChance > 1 {
		return fmt.Errorf("world.collectible_chance вне [0,1]: %v", c.World.CollectibleChance)
	}
	if c.Storage.Cache.Enabled && c.Storage.Cache.Capacity <= 0 {
		return fmt.Errorf("storage.cache.capacity должен быть положительным, получено %d", c.Storage.Cache.Capacity)
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	return nil
}

// WorldOptions переводит секцию world в параметры мира (без реестра и слушателей)
func (c *Config) WorldOptions() (world.Options, error) {
	mode, err := world.ParseRebuildMode(c.World.RebuildMode)
	if err != nil {
		return world.Options{}, err
	}
	return world.Options{
		ChunkSize: c.World.ChunkSize,
		MinChunk:  vec.FromArray(c.World.MinChunk),
		MaxChunk:  vec.FromArray(c.World.MaxChunk),
		Mode:      mode,
	}, nil
}

// StorageConfig переводит секцию storage в конфигурацию хранилища
func (c *Config) StorageConfig() storage.Config {
	s := c.Storage
	return storage.Config{
		Backend: s.Backend,
		Path:    s.Path,
		Redis: storage.RedisConfig{
			Addr:      s.Redis.Addr,
			Password:  s.Redis.Password,
			DB:        s.Redis.DB,
			KeyPrefix: s.Redis.KeyPrefix,
			TTL:       time.Duration(s.Redis.TTLSeconds) * time.Second,
		},
		MariaDSN: s.MariaDSN,
		Mongo: storage.MongoConfig{
			URI:        s.Mongo.URI,
			Database:   s.Mongo.Database,
			Collection: s.Mongo.Collection,
		},
	}
}

// CacheConfig переводит storage.cache в конфигурацию кеша чанков
func (c *Config) CacheConfig() cache.Config {
	cc := c.Storage.Cache
	return cache.Config{
		Capacity:      cc.Capacity,
		TTL:           time.Duration(cc.TTLSeconds) * time.Second,
		WriteBehind:   cc.WriteBehind,
		FlushInterval: time.Duration(cc.FlushMillis) * time.Millisecond,
		BatchSize:     cc.BatchSize,
	}
}

// Autosave возвращает период автосохранения; 0 - отключено
func (s *StorageConfig) Autosave() time.Duration {
	if s.AutosaveSeconds <= 0 {
		return 0
	}
	return time.Duration(s.AutosaveSeconds) * time.Second
}

// RetentionDuration возвращает срок хранения событий в JetStream
func (e *EventBusConfig) RetentionDuration() time.Duration {
	return time.Duration(e.Retention) * time.Hour
}

// GetRESTPort возвращает REST API порт с поддержкой fallback значений
func (s *ServerConfig) GetRESTPort() int {
	return getPortWithEnvFallback(s.RESTPort, "VOXEL_REST_PORT", 8088)
}

// GetGRPCPort возвращает порт gRPC health с поддержкой fallback значений
func (s *ServerConfig) GetGRPCPort() int {
	return getPortWithEnvFallback(s.GRPCPort, "VOXEL_GRPC_PORT", 9090)
}

// GetJWTSecret возвращает секрет из конфига или VOXEL_JWT_SECRET
func (s *ServerConfig) GetJWTSecret() string {
	if s.JWTSecret != "" {
		return s.JWTSecret
	}
	return os.Getenv("VOXEL_JWT_SECRET")
}

// FrameInterval возвращает период кадра
func (s *ServerConfig) FrameInterval() time.Duration {
	if s.FrameRate <= 0 {
		return time.Second / 30
	}
	return time.Second / time.Duration(s.FrameRate)
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	if configPort > 0 {
		return configPort
	}
	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}
	return defaultPort
}
