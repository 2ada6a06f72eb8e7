package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"

	"github.com/Hihi1310/vietnamese-interpreter/internal/health"
	"github.com/Hihi1310/vietnamese-interpreter/internal/message"
)

func startServer(t *testing.T, checker *health.Checker) (*Transport, healthpb.HealthClient) {
	t.Helper()
	tr := New(0, checker, nil)
	lis := bufconn.Listen(1 << 16)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- tr.Serve(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() {
		conn.Close()
		cancel()
		select {
		case err := <-errc:
			if err != nil {
				t.Errorf("Serve: %v", err)
			}
		case <-time.After(10 * time.Second):
			t.Error("Serve did not return after cancel")
		}
	})
	return tr, healthpb.NewHealthClient(conn)
}

func check(t *testing.T, client healthpb.HealthClient, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		t.Fatalf("Check(%q): %v", service, err)
	}
	return resp.GetStatus()
}

func TestHealthFollowsChecker(t *testing.T) {
	t.Parallel()
	checker := health.New()
	_, client := startServer(t, checker)

	if got := check(t, client, ""); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("before ready = %v, want NOT_SERVING", got)
	}
	checker.SetReady(true)
	if got := check(t, client, ServiceName); got != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("after ready = %v, want SERVING", got)
	}
	checker.SetReady(false)
	if got := check(t, client, ""); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("after not ready = %v, want NOT_SERVING", got)
	}
}

func TestShutdownEventStopsServing(t *testing.T) {
	t.Parallel()
	checker := health.New()
	checker.SetReady(true)
	tr, client := startServer(t, checker)

	if got := check(t, client, ""); got != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("initial = %v, want SERVING", got)
	}

	_ = tr.Publish(context.Background(), message.Event{Type: message.EventState, State: "translating"})
	if got := check(t, client, ""); got != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("after translating = %v, want SERVING", got)
	}

	_ = tr.Publish(context.Background(), message.Event{Type: message.EventState, State: "shutdown"})
	if got := check(t, client, ""); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("after shutdown = %v, want NOT_SERVING", got)
	}
}
