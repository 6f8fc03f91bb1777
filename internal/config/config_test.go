package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/annel0/voxel-explorer/internal/vec"
	"github.com/annel0/voxel-explorer/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv(EnvConfigPath, "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	require.NoError(t, cfg.Validate())

	opts, err := cfg.WorldOptions()
	require.NoError(t, err)
	assert.Equal(t, 16, opts.ChunkSize)
	assert.Equal(t, vec.Vec3{X: -1, Y: 0, Z: -1}, opts.MinChunk)
	assert.Equal(t, world.RebuildEager, opts.Mode)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
world:
  chunk_size: 8
  rebuild_mode: deferred
  generator: terrain
  max_chunk: [2, 2, 2]
storage:
  backend: redis
  redis:
    addr: cache:6379
    ttl_seconds: 60
eventbus:
  url: nats://127.0.0.1:4222
  retention_hours: 2
server:
  frame_rate: 60
logging:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.World.ChunkSize)
	assert.Equal(t, "terrain", cfg.World.Generator)
	assert.Equal(t, [3]int{-1, 0, -1}, cfg.World.MinChunk, "Незаданные поля сохраняют значения по умолчанию")
	assert.Equal(t, 0.25, cfg.World.CollectibleChance)

	opts, err := cfg.WorldOptions()
	require.NoError(t, err)
	assert.Equal(t, world.RebuildDeferred, opts.Mode)
	assert.Equal(t, vec.Vec3{X: 2, Y: 2, Z: 2}, opts.MaxChunk)

	sc := cfg.StorageConfig()
	assert.Equal(t, "redis", sc.Backend)
	assert.Equal(t, "cache:6379", sc.Redis.Addr)
	assert.Equal(t, "voxel:", sc.Redis.KeyPrefix)
	assert.Equal(t, time.Minute, sc.Redis.TTL)

	assert.Equal(t, 2*time.Hour, cfg.EventBus.RetentionDuration())
	assert.Equal(t, time.Second/60, cfg.Server.FrameInterval())
	assert.Equal(t, 30*time.Second, cfg.Storage.Autosave())
}

func TestLoadFromEnv(t *testing.T) {
	path := writeConfig(t, "world:\n  seed: 42\n")
	t.Setenv(EnvConfigPath, path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, int64(42), cfg.World.Seed)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	for name, body := range map[string]string{
		"syntax":      "world: [",
		"chunk size":  "world:\n  chunk_size: 0\n",
		"empty range": "world:\n  min_chunk: [0, 0, 0]\n  max_chunk: [0, 1, 1]\n",
		"mode":        "world:\n  rebuild_mode: lazy\n",
		"chance":      "world:\n  collectible_chance: 1.5\n",
		"log level":   "logging:\n  level: loud\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestPortFallback(t *testing.T) {
	var s ServerConfig
	t.Setenv("VOXEL_REST_PORT", "")
	assert.Equal(t, 8088, s.GetRESTPort())

	t.Setenv("VOXEL_REST_PORT", "9000")
	assert.Equal(t, 9000, s.GetRESTPort())

	t.Setenv("VOXEL_GRPC_PORT", "not-a-port")
	assert.Equal(t, 9090, s.GetGRPCPort())

	s.RESTPort = 7000
	assert.Equal(t, 7000, s.GetRESTPort(), "Конфиг важнее окружения")

	t.Setenv("VOXEL_JWT_SECRET", "from-env")
	assert.Equal(t, "from-env", s.GetJWTSecret())
	s.JWTSecret = "from-config"
	assert.Equal(t, "from-config", s.GetJWTSecret())
}

func TestAutosaveDisabled(t *testing.T) {
	s := StorageConfig{}
	assert.Equal(t, time.Duration(0), s.Autosave())
}

func TestCacheConfig(t *testing.T) {
	path := writeConfig(t, `
storage:
  backend: badger
  cache:
    enabled: true
    capacity: 256
    ttl_seconds: 60
    write_behind: true
    flush_ms: 250
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	cc := cfg.CacheConfig()
	assert.True(t, cfg.Storage.Cache.Enabled)
	assert.Equal(t, int64(256), cc.Capacity)
	assert.Equal(t, time.Minute, cc.TTL)
	assert.True(t, cc.WriteBehind)
	assert.Equal(t, 250*time.Millisecond, cc.FlushInterval)
	assert.Equal(t, 64, cc.BatchSize, "Размер батча из значений по умолчанию")

	bad := writeConfig(t, `
storage:
  cache:
    enabled: true
    capacity: 0
`)
	_, err = Load(bad)
	assert.Error(t, err)
}

func TestAtlasSize(t *testing.T) {
	assert.Equal(t, 64, Default().World.AtlasSize)

	cfg, err := Load(writeConfig(t, "world:\n  atlas_size: 128\n"))
	require.NoError(t, err)
	assert.Equal(t, 128, cfg.World.AtlasSize)

	_, err = Load(writeConfig(t, "world:\n  atlas_size: 0\n"))
	assert.Error(t, err)
}
