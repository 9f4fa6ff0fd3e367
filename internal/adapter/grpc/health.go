package grpc

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Checker reports whether a dependency is reachable.
type Checker func(ctx context.Context) error

type namedCheck struct {
	name  string
	check Checker
}

// HealthReport is the outcome of one Refresh.
type HealthReport struct {
	Serving bool              `json:"-"`
	Status  string            `json:"status"`
	Service string            `json:"service"`
	Checks  map[string]string `json:"checks"`
}

// HealthService keeps the standard gRPC health server in sync with the
// state of the service dependencies. The HTTP /health endpoint reads the
// same checks.
type HealthService struct {
	server  *health.Server
	service string
	log     *zap.Logger

	mu     sync.Mutex
	checks []namedCheck
}

// NewHealthService creates a health service for the named gRPC service.
func NewHealthService(service string, log *zap.Logger) *HealthService {
	return &HealthService{
		server:  health.NewServer(),
		service: service,
		log:     log,
	}
}

// AddCheck registers a dependency check. Checks run in registration order.
func (h *HealthService) AddCheck(name string, check Checker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks = append(h.checks, namedCheck{name: name, check: check})
}

// Server returns the grpc_health_v1 implementation to register.
func (h *HealthService) Server() healthpb.HealthServer {
	return h.server
}

// Refresh runs every check and publishes the aggregate status for both the
// empty service name and the service name.
func (h *HealthService) Refresh(ctx context.Context) HealthReport {
	h.mu.Lock()
	checks := make([]namedCheck, len(h.checks))
	copy(checks, h.checks)
	h.mu.Unlock()

	report := HealthReport{
		Serving: true,
		Status:  "healthy",
		Service: h.service,
		Checks:  make(map[string]string, len(checks)),
	}

	for _, c := range checks {
		if err := c.check(ctx); err != nil {
			h.log.Warn("health check failed", zap.String("check", c.name), zap.Error(err))
			report.Serving = false
			report.Checks[c.name] = err.Error()
			continue
		}
		report.Checks[c.name] = "ok"
	}

	status := healthpb.HealthCheckResponse_SERVING
	if !report.Serving {
		report.Status = "unhealthy"
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.server.SetServingStatus("", status)
	h.server.SetServingStatus(h.service, status)

	return report
}

// Watch refreshes the status every interval until ctx is done.
func (h *HealthService) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	h.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Refresh(ctx)
		}
	}
}

// Shutdown marks every service NOT_SERVING and ignores later updates.
func (h *HealthService) Shutdown() {
	h.server.Shutdown()
}
