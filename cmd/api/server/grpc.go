package server

import (
	grpcadapter "social-user-service/internal/adapter/grpc"
	"social-user-service/internal/adapter/grpc/middleware"
	"social-user-service/pkg/logger"

	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// SetupGRPC creates the gRPC server that exposes the standard health service
func SetupGRPC(health *grpcadapter.HealthService, rateLimiter *middleware.RateLimiter) *grpc.Server {
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			logger.RequestIDInterceptor(),
			rateLimiter.UnaryInterceptor(),
		),
	)
	healthpb.RegisterHealthServer(grpcServer, health.Server())
	reflection.Register(grpcServer)

	return grpcServer
}
