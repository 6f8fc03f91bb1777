package observability

import (
	"time"

	"github.com/annel0/voxel-explorer/internal/vec"
	"github.com/annel0/voxel-explorer/internal/world"
	"github.com/annel0/voxel-explorer/internal/world/block"
	"github.com/prometheus/client_golang/prometheus"
)

// WorldMetrics собирает Prometheus-метрики перестроений и отрисовки чанков.
// Реализует world.Observer.
type WorldMetrics struct {
	rebuilds        prometheus.Counter
	rebuildDuration prometheus.Histogram
	draws           prometheus.Counter
	drawnVertices   prometheus.Counter
	chunkVertices   *prometheus.GaugeVec
	blockChanges    *prometheus.CounterVec
}

var _ world.Observer = (*WorldMetrics)(nil)

// NewWorldMetrics создаёт метрики и регистрирует их в reg
func NewWorldMetrics(reg prometheus.Registerer) *WorldMetrics {
	m := &WorldMetrics{
		rebuilds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voxel",
			Name:      "chunk_rebuilds_total",
			Help:      "Число перестроений вершинных буферов чанков.",
		}),
		rebuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "voxel",
			Name:      "chunk_rebuild_duration_seconds",
			Help:      "Длительность перестроения чанка.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
		draws: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voxel",
			Name:      "chunk_draws_total",
			Help:      "Число вызовов отрисовки чанков.",
		}),
		drawnVertices: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voxel",
			Name:      "drawn_vertices_total",
			Help:      "Суммарное число отрисованных вершин.",
		}),
		chunkVertices: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "voxel",
			Name:      "chunk_vertices",
			Help:      "Вершин в буфере чанка после последнего перестроения.",
		}, []string{"chunk"}),
		blockChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voxel",
			Name:      "block_changes_total",
			Help:      "Изменения блоков по новому типу.",
		}, []string{"block"}),
	}

	reg.MustRegister(m.rebuilds, m.rebuildDuration, m.draws, m.drawnVertices, m.chunkVertices, m.blockChanges)
	return m
}

// ChunkRebuilt учитывает перестроение чанка
func (m *WorldMetrics) ChunkRebuilt(chunk vec.Vec3, vertices int, took time.Duration) {
	m.rebuilds.Inc()
	m.rebuildDuration.Observe(took.Seconds())
	m.chunkVertices.WithLabelValues(chunk.Key()).Set(float64(vertices))
}

// ChunkDrawn учитывает отрисовку чанка
func (m *WorldMetrics) ChunkDrawn(_ vec.Vec3, vertices int) {
	m.draws.Inc()
	m.drawnVertices.Add(float64(vertices))
}

// BlockListener возвращает слушатель, считающий изменения блоков по новому типу
func (m *WorldMetrics) BlockListener(registry *block.Registry) world.BlockListener {
	return world.BlockListenerFunc(func(change world.BlockChange) {
		m.blockChanges.WithLabelValues(registry.Name(change.New)).Inc()
	})
}
