package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"social-user-service/cmd/api/di"
	grpcadapter "social-user-service/internal/adapter/grpc"
	"social-user-service/internal/config"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

// healthInterval is how often the gRPC health status is refreshed.
const healthInterval = 10 * time.Second

// Server struct holds all server dependencies
type Server struct {
	Config *config.Config
	Logger *zap.Logger
	Health *grpcadapter.HealthService
	GRPC   *grpc.Server
	Gin    *http.Server

	grpcLis net.Listener
	ginLis  net.Listener
}

// New creates a new server instance
func New(cfg *config.Config, l *zap.Logger, c *di.Container) *Server {
	return &Server{
		Config: cfg,
		Logger: l,
		Health: c.Health,
		GRPC:   SetupGRPC(c.Health, c.RateLimiter),
		Gin:    SetupGinServer(c.GinHandler, c.RateLimiter, c.Health, cfg.App.Env, httpAddress(cfg), l),
	}
}

// Listen binds both listeners so address errors surface before serving.
func (s *Server) Listen(ctx context.Context) error {
	lc := net.ListenConfig{}

	grpcLis, err := lc.Listen(ctx, "tcp", grpcAddress(s.Config))
	if err != nil {
		return fmt.Errorf("failed to listen for gRPC: %w", err)
	}

	ginLis, err := lc.Listen(ctx, "tcp", httpAddress(s.Config))
	if err != nil {
		_ = grpcLis.Close()
		return fmt.Errorf("failed to listen for HTTP: %w", err)
	}

	s.grpcLis, s.ginLis = grpcLis, ginLis
	return nil
}

// GRPCAddr returns the bound gRPC address. Valid after Listen.
func (s *Server) GRPCAddr() net.Addr {
	return s.grpcLis.Addr()
}

// HTTPAddr returns the bound HTTP address. Valid after Listen.
func (s *Server) HTTPAddr() net.Addr {
	return s.ginLis.Addr()
}

// Serve runs the gRPC and HTTP servers until both are stopped. When one of
// them fails the other is stopped too. Cancelling ctx does not stop the
// servers; call Shutdown for that.
func (s *Server) Serve(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	go s.Health.Watch(gctx, healthInterval)
	go func() {
		<-gctx.Done()
		if ctx.Err() == nil {
			s.GRPC.Stop()
			_ = s.Gin.Close()
		}
	}()

	g.Go(func() error {
		s.Logger.Info("gRPC server running", zap.String("address", s.grpcLis.Addr().String()))
		if err := s.GRPC.Serve(s.grpcLis); err != nil {
			return fmt.Errorf("gRPC server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		s.Logger.Info("REST API running",
			zap.String("address", s.ginLis.Addr().String()),
			zap.String("swagger", "/swagger/index.html"),
		)
		if err := s.Gin.Serve(s.ginLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("gin server: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// Shutdown stops the HTTP server gracefully within ctx and then the gRPC server.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error

	if s.Gin != nil {
		s.Logger.Info("shutting down Gin server...")
		if err := s.Gin.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("gin shutdown: %w", err))
		}
	}

	if s.GRPC != nil {
		s.Logger.Info("shutting down gRPC server...")
		stopped := make(chan struct{})
		go func() {
			s.GRPC.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-ctx.Done():
			s.GRPC.Stop()
			errs = append(errs, fmt.Errorf("gRPC shutdown: %w", ctx.Err()))
		}
	}

	return errors.Join(errs...)
}

func grpcAddress(cfg *config.Config) string {
	return ":" + cfg.App.GRPCPort
}

func httpAddress(cfg *config.Config) string {
	return ":" + cfg.App.HTTPPort
}
