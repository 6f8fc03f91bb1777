package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/annel0/voxel-explorer/internal/auth"
	"github.com/annel0/voxel-explorer/internal/game"
	"github.com/annel0/voxel-explorer/internal/logging"
	"github.com/annel0/voxel-explorer/internal/middleware"
	"github.com/annel0/voxel-explorer/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// RestServer представляет REST API для осмотра и правки мира
type RestServer struct {
	router     *gin.Engine
	state      *game.State
	repo       storage.ChunkRepo
	tokens     *auth.TokenIssuer
	port       string
	metrics    *ServerMetrics
	httpServer *http.Server
	log        *logging.Logger
}

// Config содержит конфигурацию для REST сервера
type Config struct {
	Port     string               // адрес для запуска сервера, например ":8080"
	State    *game.State          // состояние с миром
	Repo     storage.ChunkRepo    // хранилище для POST /api/world/save; может быть nil
	Tokens   *auth.TokenIssuer    // проверка JWT для изменяющих маршрутов
	Registry *prometheus.Registry // метрики HTTP и /metrics
	Service  string               // имя сервиса для otelgin и метрик
}

// GenericResponse общий формат ответа
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// NewRestServer создает новый REST API сервер
func NewRestServer(config Config) (*RestServer, error) {
	if config.State == nil {
		return nil, errors.New("REST сервер: не задано состояние игры")
	}
	if config.Tokens == nil {
		return nil, errors.New("REST сервер: не задан издатель токенов")
	}
	if config.Port == "" {
		config.Port = ":8080"
	}
	if config.Service == "" {
		config.Service = "voxel_explorer"
	}
	if config.Registry == nil {
		config.Registry = prometheus.NewRegistry()
	}

	router := gin.New()
	router.Use(gin.Recovery())

	// === Observability middleware ===
	router.Use(otelgin.Middleware(config.Service))
	router.Use(middleware.NewRequestLogger(logging.GetAPILogger()).Handler())

	promMw := middleware.NewPrometheusMiddleware(config.Service, config.Registry)
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router)

	server := &RestServer{
		router:  router,
		state:   config.State,
		repo:    config.Repo,
		tokens:  config.Tokens,
		port:    config.Port,
		metrics: NewServerMetrics(),
		log:     logging.GetAPILogger(),
	}
	server.setupRoutes()
	return server, nil
}

// setupRoutes настраивает маршруты REST API
func (rs *RestServer) setupRoutes() {
	rs.router.GET("/health", rs.handleHealth)

	api := rs.router.Group("/api")
	{
		api.GET("/status", rs.handleStatus)
		api.GET("/blocks", rs.handleBlockTypes)
		api.GET("/blocks/:x/:y/:z", rs.handleGetBlock)
		api.GET("/chunks", rs.handleChunks)
		api.GET("/chunks/:x/:y/:z", rs.handleSavedChunk)
	}

	// Изменение мира требует токен с ролью editor
	editor := api.Group("/")
	editor.Use(rs.jwtMiddleware(), rs.editorMiddleware())
	{
		editor.PUT("/blocks/:x/:y/:z", rs.handleSetBlock)
		editor.DELETE("/blocks/:x/:y/:z", rs.handleRemoveBlock)
		editor.POST("/world/save", rs.handleSave)
	}
}

// Handler возвращает http.Handler сервера (для тестов и встраивания)
func (rs *RestServer) Handler() http.Handler {
	return rs.router
}

// Start запускает REST сервер в отдельной горутине
func (rs *RestServer) Start() {
	rs.httpServer = &http.Server{
		Addr:              rs.port,
		Handler:           rs.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := rs.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			rs.log.Error("❌ Ошибка REST API сервера: %v", err)
		}
	}()

	rs.log.Info("✅ REST API сервер запущен на http://localhost%s", rs.port)
}

// Stop останавливает REST сервер, дожидаясь активных запросов
func (rs *RestServer) Stop(ctx context.Context) error {
	if rs.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := rs.httpServer.Shutdown(ctx); err != nil {
		rs.log.Error("❌ Ошибка при остановке HTTP сервера: %v", err)
		return err
	}
	rs.log.Info("🛑 REST API сервер остановлен")
	return nil
}
