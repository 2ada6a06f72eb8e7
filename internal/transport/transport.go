// Package transport defines the live status surfaces of a realtime session.
//
// Each transport (HTTP/WebSocket, gRPC, MQTT) serves the session status and
// receives controller events. The controller never talks to a transport
// directly: events go through a Broadcaster so a slow subscriber cannot stall
// the pipeline.
package transport

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Hihi1310/vietnamese-interpreter/internal/message"
)

// StatusSource provides the current session status.
type StatusSource interface {
	Status() message.Status
}

// Transport is the interface that every status transport must implement.
type Transport interface {
	// Name returns the transport identifier (e.g., "grpc", "http", "mqtt").
	Name() string

	// Listen starts serving status from src. It blocks until ctx is
	// cancelled or Close is called.
	Listen(ctx context.Context, src StatusSource) error

	// Publish delivers one event to the transport's subscribers.
	Publish(ctx context.Context, e message.Event) error

	// Close gracefully shuts down the transport.
	Close() error
}

// DefaultQueueSize bounds the events waiting for delivery.
const DefaultQueueSize = 128

const publishTimeout = 2 * time.Second

// Broadcaster fans events out to transports from a bounded queue.
type Broadcaster struct {
	transports []Transport
	logger     *slog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan message.Event
	done   chan struct{}

	dropped atomic.Int64
}

// NewBroadcaster starts delivering to transports. queueSize <= 0 uses DefaultQueueSize.
func NewBroadcaster(transports []Transport, queueSize int, logger *slog.Logger) *Broadcaster {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	b := &Broadcaster{
		transports: transports,
		logger:     logger,
		queue:      make(chan message.Event, queueSize),
		done:       make(chan struct{}),
	}
	go b.run()
	return b
}

// Publish queues e without blocking. Events are dropped when the queue is full.
func (b *Broadcaster) Publish(e message.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	select {
	case b.queue <- e:
	default:
		if b.dropped.Add(1) == 1 {
			b.logger.Warn("event queue full, dropping events")
		}
	}
}

// Dropped returns how many events were discarded.
func (b *Broadcaster) Dropped() int64 { return b.dropped.Load() }

// Close delivers queued events and stops the broadcaster. Transports are not closed.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	if !b.closed {
		b.closed = true
		close(b.queue)
	}
	b.mu.Unlock()
	<-b.done
}

func (b *Broadcaster) run() {
	defer close(b.done)
	for e := range b.queue {
		for _, t := range b.transports {
			ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
			if err := t.Publish(ctx, e); err != nil {
				b.logger.Debug("publish failed", "transport", t.Name(), "type", e.Type, "error", err)
			}
			cancel()
		}
	}
}
