package api

import (
	"net"

	"github.com/annel0/voxel-explorer/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName имя сервиса в gRPC health
const ServiceName = "voxel.Explorer"

// HealthServer отдаёт стандартный grpc.health.v1 для оркестраторов
type HealthServer struct {
	srv    *grpc.Server
	health *health.Server
}

// NewHealthServer создаёт сервер; до SetServing сервис NOT_SERVING
func NewHealthServer() *HealthServer {
	hs := &HealthServer{
		srv:    grpc.NewServer(),
		health: health.NewServer(),
	}
	healthpb.RegisterHealthServer(hs.srv, hs.health)
	hs.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return hs
}

// SetServing переключает статус сервиса и общий статус сервера
func (hs *HealthServer) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	hs.health.SetServingStatus(ServiceName, status)
	hs.health.SetServingStatus("", status)
}

// Serve обслуживает lis до Stop
func (hs *HealthServer) Serve(lis net.Listener) error {
	return hs.srv.Serve(lis)
}

// Start слушает addr и обслуживает в отдельной горутине
func (hs *HealthServer) Start(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	go func() {
		if err := hs.Serve(lis); err != nil {
			logging.GetAPILogger().Error("❌ gRPC health сервер: %v", err)
		}
	}()
	logging.GetAPILogger().Info("🩺 gRPC health доступен на %s", lis.Addr())
	return nil
}

// Stop переводит сервис в NOT_SERVING и останавливает сервер
func (hs *HealthServer) Stop() {
	hs.health.Shutdown()
	hs.srv.GracefulStop()
}
