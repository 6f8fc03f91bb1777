// Package app собирает мир, хранилище, шину событий и API в один процесс.
package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/annel0/voxel-explorer/internal/api"
	"github.com/annel0/voxel-explorer/internal/auth"
	"github.com/annel0/voxel-explorer/internal/cache"
	"github.com/annel0/voxel-explorer/internal/config"
	"github.com/annel0/voxel-explorer/internal/eventbus"
	"github.com/annel0/voxel-explorer/internal/game"
	"github.com/annel0/voxel-explorer/internal/logging"
	"github.com/annel0/voxel-explorer/internal/observability"
	"github.com/annel0/voxel-explorer/internal/render"
	"github.com/annel0/voxel-explorer/internal/storage"
	"github.com/annel0/voxel-explorer/internal/vec"
	"github.com/annel0/voxel-explorer/internal/world"
	"github.com/annel0/voxel-explorer/internal/world/block"
	"github.com/annel0/voxel-explorer/internal/worldgen"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Source имя источника событий этого процесса
const Source = "voxel-explorer"

// Options управляют запуском Run
type Options struct {
	Serve  bool // поднимать REST и gRPC health
	Frames int  // остановиться после стольких кадров; 0 - до отмены контекста
}

// Explorer владеет всеми компонентами процесса
type Explorer struct {
	cfg *config.Config
	log *logging.Logger

	backend  *render.Recorder
	registry *block.Registry
	world    *world.World
	state    *game.State

	repo       storage.ChunkRepo
	bus        eventbus.EventBus
	publisher  *eventbus.BlockPublisher
	busMetrics *eventbus.MetricsExporter
	busLog     eventbus.Subscription
	running    bool

	metrics *prometheus.Registry
	tokens  *auth.TokenIssuer
	rest    *api.RestServer
	health  *api.HealthServer

	frames int
}

// New создаёт компоненты по конфигурации. Сетевые порты не открываются.
func New(ctx context.Context, cfg *config.Config) (*Explorer, error) {
	e := &Explorer{
		cfg:     cfg,
		log:     logging.GetWorldLogger(),
		backend: render.NewRecorder(),
		metrics: prometheus.NewRegistry(),
	}
	e.metrics.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if err := e.initRegistry(); err != nil {
		return nil, err
	}
	if err := e.initBus(ctx); err != nil {
		return nil, err
	}
	if err := e.initWorld(); err != nil {
		e.bus.Close()
		return nil, err
	}

	repo, err := storage.Open(ctx, cfg.StorageConfig())
	if err != nil {
		e.bus.Close()
		return nil, err
	}
	e.repo = repo
	if cfg.Storage.Cache.Enabled {
		if err := e.initCache(ctx); err != nil {
			e.Close(ctx)
			return nil, err
		}
	}

	e.tokens, err = auth.NewTokenIssuer(cfg.Server.GetJWTSecret(), Source, 0)
	if err != nil {
		e.Close(ctx)
		return nil, err
	}

	e.rest, err = api.NewRestServer(api.Config{
		Port:     fmt.Sprintf(":%d", cfg.Server.GetRESTPort()),
		State:    e.state,
		Repo:     e.repo,
		Tokens:   e.tokens,
		Registry: e.metrics,
	})
	if err != nil {
		e.Close(ctx)
		return nil, err
	}
	e.health = api.NewHealthServer()
	return e, nil
}

func (e *Explorer) initRegistry() error {
	reg, err := block.BuildRegistry(block.Atlas{Size: e.cfg.World.AtlasSize}, block.DefaultDefinitions)
	if err != nil {
		return err
	}
	if path := e.cfg.World.BlocksFile; path != "" {
		n, err := block.LoadYAML(reg, path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			e.log.Warn("Файл блоков %s не найден, используются встроенные", path)
		case err != nil:
			return fmt.Errorf("загрузка блоков: %w", err)
		default:
			e.log.Info("📦 Загружено %d описаний блоков из %s", n, path)
		}
	}
	e.registry = reg
	return nil
}

func (e *Explorer) initBus(ctx context.Context) error {
	bc := e.cfg.EventBus
	if bc.URL == "" {
		e.bus = eventbus.NewMemoryBus(bc.Buffer)
	} else {
		js, err := eventbus.NewJetStreamBus(bc.URL, bc.Stream, bc.RetentionDuration())
		if err != nil {
			return err
		}
		e.bus = js
	}

	sub, err := eventbus.StartLoggingListener(ctx, e.bus)
	if err != nil {
		return err
	}
	e.busLog = sub
	e.busMetrics = eventbus.NewMetricsExporter(e.bus, e.metrics)
	e.publisher = eventbus.NewBlockPublisher(e.bus, Source, e.registry)
	return nil
}

func (e *Explorer) initWorld() error {
	opts, err := e.cfg.WorldOptions()
	if err != nil {
		return err
	}
	wm := observability.NewWorldMetrics(e.metrics)
	opts.Registry = e.registry
	opts.Observer = wm
	opts.Listener = world.MultiListener(e.publisher, wm.BlockListener(e.registry))

	w, err := world.CreateWorld(e.backend, opts)
	if err != nil {
		return err
	}
	e.world = w
	e.state = game.NewState(w, e.backend, 0)
	if e.cfg.World.Reach > 0 {
		e.state.SetReach(e.cfg.World.Reach)
	}
	return e.backend.UseProgram(render.VertexShader, render.FragmentShader)
}

// initCache оборачивает хранилище кешем чанков
func (e *Explorer) initCache(ctx context.Context) error {
	cc := e.cfg.Storage.Cache
	var inv cache.Invalidator
	if cc.NATSURL != "" {
		nats, err := cache.NewNATSInvalidator(cc.NATSURL, cc.Subject, "")
		if err != nil {
			return err
		}
		inv = nats
	}
	chunks, err := cache.NewChunkCache(ctx, e.repo, e.cfg.CacheConfig(), inv)
	if err != nil {
		if inv != nil {
			inv.Close()
		}
		return err
	}
	e.repo = chunks
	chunks.OnInvalidate(e.reloadChunk)
	if nats, ok := inv.(*cache.NATSInvalidator); ok {
		e.registerInvalidatorMetrics(nats)
	}
	e.metrics.MustRegister(
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "voxel",
			Subsystem: "chunk_cache",
			Name:      "hits_total",
			Help:      "Чтения чанков из горячего слоя",
		}, func() float64 { return float64(chunks.Metrics().Hits) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "voxel",
			Subsystem: "chunk_cache",
			Name:      "misses_total",
			Help:      "Чтения чанков из постоянного хранилища",
		}, func() float64 { return float64(chunks.Metrics().Misses) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "voxel",
			Subsystem: "chunk_cache",
			Name:      "pending_writes",
			Help:      "Чанки в очереди Write-Behind",
		}, func() float64 { return float64(chunks.Metrics().PendingWrites) }),
	)
	return nil
}

func (e *Explorer) registerInvalidatorMetrics(nats *cache.NATSInvalidator) {
	stat := func(pick func(published, received, errs int64) int64) func() float64 {
		return func() float64 { return float64(pick(nats.Stats())) }
	}
	e.metrics.MustRegister(
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "voxel",
			Subsystem: "chunk_invalidation",
			Name:      "published_total",
			Help:      "Отправленные уведомления об изменении чанков",
		}, stat(func(p, _, _ int64) int64 { return p })),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "voxel",
			Subsystem: "chunk_invalidation",
			Name:      "received_total",
			Help:      "Полученные уведомления от других узлов",
		}, stat(func(_, r, _ int64) int64 { return r })),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "voxel",
			Subsystem: "chunk_invalidation",
			Name:      "errors_total",
			Help:      "Ошибки обработки уведомлений",
		}, stat(func(_, _, errs int64) int64 { return errs })),
	)
}

// reloadChunk перечитывает чанк, изменённый другим узлом.
// Чанк с несохранёнными локальными правками не трогается.
func (e *Explorer) reloadChunk(coord vec.Vec3) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rec, found, err := e.repo.Load(ctx, coord)
	if err != nil {
		return fmt.Errorf("перечитывание чанка %v: %w", coord, err)
	}
	if !found {
		return nil
	}

	e.state.WithWorld(func(w *world.World) {
		ch, ok := w.ChunkAt(coord)
		switch {
		case !ok:
		case ch.HasChanges():
			e.log.Warn("Чанк %v изменён другим узлом, но имеет локальные правки", coord)
		case rec.Size != ch.Size():
			err = fmt.Errorf("чанк %v: сохранён с размером %d, мир использует %d", coord, rec.Size, ch.Size())
		default:
			err = ch.Restore(rec.Cells)
		}
	})
	if err == nil {
		e.log.Debug("🔄 Чанк %v перечитан после изменения другим узлом", coord)
	}
	return err
}

// Bootstrap загружает сохранённый мир или генерирует новый
func (e *Explorer) Bootstrap(ctx context.Context) error {
	var (
		loaded int
		err    error
	)
	e.state.WithWorld(func(w *world.World) {
		loaded, err = storage.LoadWorld(ctx, e.repo, w)
	})
	if err != nil {
		return err
	}

	if loaded > 0 {
		var remaining int
		e.state.WithWorld(func(w *world.World) {
			remaining = w.Count(block.LuckyBlockID)
		})
		e.state.SetTotal(remaining)
		e.log.Info("🌍 Мир восстановлен: %d чанков, осталось %d блоков удачи", loaded, remaining)
		return nil
	}

	gen, err := worldgen.New(e.cfg.World.Generator, e.cfg.World.Seed, e.cfg.World.CollectibleChance)
	if err != nil {
		return err
	}
	var res worldgen.Result
	e.state.WithWorld(func(w *world.World) {
		res, err = gen.Generate(ctx, w)
	})
	if err != nil {
		return err
	}
	e.state.SetTotal(res.Collectibles)
	e.log.Info("🌍 Мир сгенерирован (%s): %d блоков, %d блоков удачи", gen.Name(), res.Blocks, res.Collectibles)
	return nil
}

// Camera возвращает камеру кадра n: облёт центра мира
func (e *Explorer) Camera(n int) game.Camera {
	min, max := e.world.Bounds()
	center := mgl32.Vec3{
		float32(min.X+max.X) / 2,
		float32(min.Y+max.Y) / 2,
		float32(min.Z+max.Z) / 2,
	}
	radius := float32(max.X-min.X) * 0.75
	angle := float64(n) * 0.01
	eye := center.Add(mgl32.Vec3{
		radius * float32(math.Cos(angle)),
		float32(max.Y-min.Y) * 0.75,
		radius * float32(math.Sin(angle)),
	})
	return game.Camera{Eye: eye, At: center}
}

// Tick рисует один кадр
func (e *Explorer) Tick() {
	cam := e.Camera(e.frames)
	view := mgl32.LookAtV(cam.Eye, cam.At, mgl32.Vec3{0, 1, 0})
	proj := mgl32.Perspective(mgl32.DegToRad(45), 4.0/3.0, 0.1, 100)
	e.state.Frame(view, proj)
	e.frames++
}

// Save сохраняет изменённые чанки и сообщает об этом в шину
func (e *Explorer) Save(ctx context.Context, final bool) (int, error) {
	var (
		saved int
		err   error
	)
	e.state.WithWorld(func(w *world.World) {
		saved, err = storage.SaveWorld(ctx, e.repo, w, false)
	})
	if err != nil {
		return 0, err
	}
	if saved > 0 || final {
		if err := e.publisher.PublishWorldSaved(ctx, saved, final); err != nil {
			e.log.Warn("Событие WorldSaved не опубликовано: %v", err)
		}
	}
	return saved, nil
}

// Run рисует кадры и автосохраняет мир до отмены ctx или достижения opts.Frames
func (e *Explorer) Run(ctx context.Context, opts Options) error {
	if opts.Serve {
		e.rest.Start()
		if err := e.health.Start(fmt.Sprintf(":%d", e.cfg.Server.GetGRPCPort())); err != nil {
			return err
		}
	}
	e.health.SetServing(true)
	if !e.running {
		e.busMetrics.Start(time.Second)
		e.running = true
	}

	frame := time.NewTicker(e.cfg.Server.FrameInterval())
	defer frame.Stop()

	var autosave <-chan time.Time
	if period := e.cfg.Storage.Autosave(); period > 0 {
		t := time.NewTicker(period)
		defer t.Stop()
		autosave = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-frame.C:
			e.Tick()
			if opts.Frames > 0 && e.frames >= opts.Frames {
				return nil
			}
		case <-autosave:
			if n, err := e.Save(ctx, false); err != nil {
				e.log.Error("❌ Автосохранение: %v", err)
			} else if n > 0 {
				e.log.Debug("💾 Автосохранение: %d чанков", n)
			}
		}
	}
}

// Frames возвращает количество нарисованных кадров
func (e *Explorer) Frames() int {
	return e.frames
}

// State возвращает состояние игры
func (e *Explorer) State() *game.State {
	return e.state
}

// Tokens возвращает издателя токенов API
func (e *Explorer) Tokens() *auth.TokenIssuer {
	return e.tokens
}

// Backend возвращает записывающий бэкенд отрисовки
func (e *Explorer) Backend() *render.Recorder {
	return e.backend
}

// Close останавливает серверы, сохраняет мир и освобождает ресурсы
func (e *Explorer) Close(ctx context.Context) error {
	var errs []error

	if e.health != nil {
		e.health.Stop()
	}
	if e.rest != nil {
		if err := e.rest.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if e.repo != nil {
		if n, err := e.Save(ctx, true); err != nil {
			errs = append(errs, fmt.Errorf("финальное сохранение: %w", err))
		} else {
			e.log.Info("💾 Финальное сохранение: %d чанков", n)
		}
		if err := e.repo.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if e.running {
		e.busMetrics.Stop()
		e.running = false
	}
	if e.busLog != nil {
		e.busLog.Unsubscribe()
	}
	if e.bus != nil {
		if err := e.bus.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if e.world != nil {
		e.state.WithWorld(func(w *world.World) { w.Close() })
	}
	return errors.Join(errs...)
}
