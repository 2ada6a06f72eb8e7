// Package http implements the HTTP/WebSocket status transport.
//
// It serves the session status as JSON, liveness and readiness probes, a
// WebSocket feed of controller events and the Swagger UI for the API.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/Hihi1310/vietnamese-interpreter/docs"
	"github.com/Hihi1310/vietnamese-interpreter/internal/health"
	"github.com/Hihi1310/vietnamese-interpreter/internal/message"
	"github.com/Hihi1310/vietnamese-interpreter/internal/transport"
)

const (
	clientBuffer = 32
	writeWait    = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Transport implements transport.Transport over HTTP and WebSocket.
type Transport struct {
	port    int
	checker *health.Checker
	logger  *slog.Logger

	mu      sync.Mutex
	server  *http.Server
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// New creates a new HTTP transport on the given port. checker may be nil.
func New(port int, checker *health.Checker, logger *slog.Logger) *Transport {
	if checker == nil {
		checker = health.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Transport{
		port:    port,
		checker: checker,
		logger:  logger.With("transport", "http"),
		clients: make(map[*client]struct{}),
	}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "http" }

// Handler builds the router serving status from src.
func (t *Transport) Handler(src transport.StatusSource) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", t.checker.LiveHandler()).Methods(http.MethodGet)
	r.HandleFunc("/readyz", t.checker.ReadyHandler()).Methods(http.MethodGet)
	r.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		t.handleStatus(w, r, src)
	}).Methods(http.MethodGet)
	r.HandleFunc("/ws", t.handleWS).Methods(http.MethodGet)
	r.PathPrefix("/swagger/").Handler(httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	return r
}

// Listen starts the HTTP server. It returns when ctx is cancelled or Close is called.
func (t *Transport) Listen(ctx context.Context, src transport.StatusSource) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", t.port))
	if err != nil {
		return fmt.Errorf("http listen: %w", err)
	}
	return t.Serve(ctx, ln, src)
}

// Serve is Listen on an existing listener.
func (t *Transport) Serve(ctx context.Context, ln net.Listener, src transport.StatusSource) error {
	server := &http.Server{
		Handler:           t.Handler(src),
		ReadHeaderTimeout: 10 * time.Second,
	}
	t.mu.Lock()
	t.server = server
	t.mu.Unlock()

	t.logger.Info("http transport listening", "addr", ln.Addr().String())

	stop := context.AfterFunc(ctx, func() {
		t.logger.Info("http transport shutting down")
		_ = t.Close()
	})
	defer stop()

	if err := server.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http serve: %w", err)
	}
	return nil
}

// handleStatus serves GET /status.
//
// @Summary     Current session status
// @Description Returns the session, the controller state and the utterance counters.
// @Tags        status
// @Produce     json
// @Success     200  {object}  message.Status
// @Router      /status [get]
func (t *Transport) handleStatus(w http.ResponseWriter, r *http.Request, src transport.StatusSource) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(src.Status())
}

// handleWS serves GET /ws.
//
// @Summary     Live event feed
// @Description Upgrades to a WebSocket that streams every controller event as a JSON text frame.
// @Tags        status
// @Success     101  {object}  message.Event
// @Router      /ws [get]
func (t *Transport) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		t.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	c := &client{conn: conn, send: make(chan []byte, clientBuffer)}

	t.mu.Lock()
	t.clients[c] = struct{}{}
	t.mu.Unlock()
	t.logger.Debug("websocket client connected", "remote", r.RemoteAddr)

	go t.writeLoop(c)

	// Incoming frames are ignored; reading detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	t.drop(c)
}

func (t *Transport) writeLoop(c *client) {
	defer c.conn.Close()
	for payload := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			t.drop(c)
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
}

func (t *Transport) drop(c *client) {
	t.mu.Lock()
	delete(t.clients, c)
	t.mu.Unlock()
	c.close()
}

// Publish sends e to every connected WebSocket client. Clients whose buffer
// is full are disconnected.
func (t *Transport) Publish(ctx context.Context, e message.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	t.mu.Lock()
	var slow []*client
	for c := range t.clients {
		select {
		case c.send <- payload:
		default:
			slow = append(slow, c)
		}
	}
	t.mu.Unlock()

	for _, c := range slow {
		t.logger.Warn("dropping slow websocket client")
		t.drop(c)
	}
	return nil
}

// Clients returns the number of connected WebSocket clients.
func (t *Transport) Clients() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.clients)
}

// Close shuts down the server and disconnects all clients.
func (t *Transport) Close() error {
	t.mu.Lock()
	server := t.server
	clients := make([]*client, 0, len(t.clients))
	for c := range t.clients {
		clients = append(clients, c)
	}
	t.mu.Unlock()

	for _, c := range clients {
		t.drop(c)
	}
	if server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}
