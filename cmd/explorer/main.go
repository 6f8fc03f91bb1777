package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/annel0/voxel-explorer/internal/app"
	"github.com/annel0/voxel-explorer/internal/auth"
	"github.com/annel0/voxel-explorer/internal/config"
	"github.com/annel0/voxel-explorer/internal/logging"
	"github.com/annel0/voxel-explorer/internal/observability"
)

func main() {
	configPath := flag.String("config", "", "путь к YAML-конфигурации (по умолчанию $VOXEL_CONFIG)")
	frames := flag.Int("frames", 0, "остановиться после N кадров (0 - до сигнала)")
	noServe := flag.Bool("no-serve", false, "не поднимать REST и gRPC health")
	issueToken := flag.String("issue-token", "", "выпустить токен редактора для указанного субъекта и выйти")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	level, _ := logging.ParseLevel(cfg.Logging.Level)
	logging.GetLoggerManager().Configure(cfg.Logging.Dir, level)
	if err := logging.InitDefaultLogger("explorer"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.GetLoggerManager().CloseAll()

	if *issueToken != "" {
		if err := printToken(cfg, *issueToken); err != nil {
			log.Fatalf("❌ Ошибка выпуска токена: %v", err)
		}
		return
	}

	logging.Info("🧊 Запуск Voxel Explorer...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.InitTelemetry(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.Enabled)
	if err != nil {
		logging.Error("❌ Ошибка инициализации OpenTelemetry: %v", err)
		os.Exit(1)
	}

	explorer, err := app.New(ctx, cfg)
	if err != nil {
		logging.Error("❌ Ошибка создания мира: %v", err)
		os.Exit(1)
	}
	if err := explorer.Bootstrap(ctx); err != nil {
		logging.Error("❌ Ошибка подготовки мира: %v", err)
		explorer.Close(context.Background())
		os.Exit(1)
	}

	if !*noServe {
		restPort := cfg.Server.GetRESTPort()
		logging.Info("   🌐 REST API: http://localhost:%d", restPort)
		logging.Info("   ❤️  Health check: http://localhost:%d/health", restPort)
		logging.Info("   📈 Метрики: http://localhost:%d/metrics", restPort)
		logging.Info("   🩺 gRPC health: :%d", cfg.Server.GetGRPCPort())
	}

	if err := explorer.Run(ctx, app.Options{Serve: !*noServe, Frames: *frames}); err != nil {
		logging.Error("❌ Ошибка цикла кадров: %v", err)
	}
	st := explorer.State().Status()
	logging.Info("📊 Кадров: %d. %s", st.Frames, st.Message)

	// === GRACEFUL SHUTDOWN ===
	closeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := explorer.Close(closeCtx); err != nil {
		logging.Error("❌ Ошибка остановки: %v", err)
	}
	if err := shutdownTelemetry(closeCtx); err != nil {
		logging.Error("❌ Ошибка остановки OpenTelemetry: %v", err)
	}
	logging.Info("👋 Voxel Explorer остановлен")
}

// printToken печатает токен редактора, подписанный секретом из конфигурации
func printToken(cfg *config.Config, subject string) error {
	secret := cfg.Server.GetJWTSecret()
	if secret == "" {
		return fmt.Errorf("задайте server.jwt_secret или VOXEL_JWT_SECRET (например, %s)", auth.GenerateSecureSecret())
	}
	tokens, err := auth.NewTokenIssuer(secret, app.Source, 0)
	if err != nil {
		return err
	}
	token, err := tokens.Issue(subject, auth.RoleEditor)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
