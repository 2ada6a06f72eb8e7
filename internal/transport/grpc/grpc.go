// Package grpc implements the gRPC status transport.
//
// It serves the standard grpc.health.v1 service, so orchestrators and
// grpc_health_probe can watch a realtime session, plus server reflection.
package grpc

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/Hihi1310/vietnamese-interpreter/internal/health"
	"github.com/Hihi1310/vietnamese-interpreter/internal/message"
	"github.com/Hihi1310/vietnamese-interpreter/internal/transport"
)

// ServiceName is the health service name reported alongside the server-wide "" entry.
const ServiceName = "vinterp.Interpreter"

const stopTimeout = 5 * time.Second

// Transport implements transport.Transport over gRPC.
type Transport struct {
	port    int
	checker *health.Checker
	logger  *slog.Logger
	health  *grpchealth.Server

	mu     sync.Mutex
	server *grpc.Server
}

// New creates a new gRPC transport on the given port. checker may be nil.
func New(port int, checker *health.Checker, logger *slog.Logger) *Transport {
	if checker == nil {
		checker = health.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	t := &Transport{
		port:    port,
		checker: checker,
		logger:  logger.With("transport", "grpc"),
		health:  grpchealth.NewServer(),
	}
	checker.Watch(t.setServing)
	return t
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "grpc" }

// Listen starts the gRPC server. It returns when ctx is cancelled or Close is called.
func (t *Transport) Listen(ctx context.Context, src transport.StatusSource) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", t.port))
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	return t.Serve(ctx, lis)
}

// Serve is Listen on an existing listener.
func (t *Transport) Serve(ctx context.Context, lis net.Listener) error {
	server := grpc.NewServer()
	healthpb.RegisterHealthServer(server, t.health)
	reflection.Register(server)

	t.mu.Lock()
	t.server = server
	t.mu.Unlock()

	t.logger.Info("grpc transport listening", "addr", lis.Addr().String())

	stop := context.AfterFunc(ctx, func() {
		t.logger.Info("grpc transport shutting down")
		_ = t.Close()
	})
	defer stop()

	if err := server.Serve(lis); err != nil && err != grpc.ErrServerStopped {
		return fmt.Errorf("grpc serve: %w", err)
	}
	return nil
}

// Publish tracks shutdown: once the controller reports it, probes see NOT_SERVING.
func (t *Transport) Publish(ctx context.Context, e message.Event) error {
	if e.Type == message.EventState && e.State == "shutdown" {
		t.setServing(false)
	}
	return nil
}

func (t *Transport) setServing(ready bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if ready {
		status = healthpb.HealthCheckResponse_SERVING
	}
	t.health.SetServingStatus("", status)
	t.health.SetServingStatus(ServiceName, status)
}

// Close gracefully stops the gRPC server.
func (t *Transport) Close() error {
	t.health.Shutdown()
	t.mu.Lock()
	server := t.server
	t.mu.Unlock()
	if server == nil {
		return nil
	}

	// Open Watch streams never finish on their own.
	done := make(chan struct{})
	go func() {
		server.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(stopTimeout):
		server.Stop()
	}
	return nil
}
