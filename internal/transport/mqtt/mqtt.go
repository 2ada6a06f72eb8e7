// Package mqtt implements the MQTT status transport.
//
// Events are published as JSON to <topic>/events/<type>. A retained status
// snapshot is kept at <topic>/status and <topic>/online carries a retained
// "true"/"false" presence flag backed by the broker's last will.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/Hihi1310/vietnamese-interpreter/internal/message"
	"github.com/Hihi1310/vietnamese-interpreter/internal/transport"
)

// ErrNotConnected is returned by Publish before the client has connected.
var ErrNotConnected = errors.New("mqtt: not connected")

const disconnectQuiesce = 250 // milliseconds

// Transport implements transport.Transport over MQTT.
type Transport struct {
	broker   string
	topic    string
	clientID string
	logger   *slog.Logger

	newClient func(*paho.ClientOptions) paho.Client

	mu     sync.Mutex
	client paho.Client
	src    transport.StatusSource

	closed    chan struct{}
	closeOnce sync.Once
}

// New creates a new MQTT transport.
func New(broker, topic, clientID string, logger *slog.Logger) *Transport {
	if logger == nil {
		logger = slog.Default()
	}
	return &Transport{
		broker:    broker,
		topic:     topic,
		clientID:  clientID,
		logger:    logger.With("transport", "mqtt"),
		newClient: paho.NewClient,
		closed:    make(chan struct{}),
	}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "mqtt" }

// Listen connects to the broker and blocks until ctx is cancelled or Close
// is called. The client keeps reconnecting on its own after the first attempt.
func (t *Transport) Listen(ctx context.Context, src transport.StatusSource) error {
	opts := paho.NewClientOptions().
		AddBroker(t.broker).
		SetClientID(t.clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(t.topic+"/online", "false", 1, true).
		SetOnConnectHandler(func(c paho.Client) {
			t.logger.Info("mqtt connected", "broker", t.broker)
			c.Publish(t.topic+"/online", 1, true, "true")
			t.publishStatus(c)
		}).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			t.logger.Warn("mqtt connection lost", "error", err)
		})

	client := t.newClient(opts)
	t.mu.Lock()
	t.client = client
	t.src = src
	t.mu.Unlock()

	t.logger.Info("mqtt transport connecting", "broker", t.broker, "topic", t.topic)
	token := client.Connect()
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("mqtt connect: %w", err)
		}
	case <-ctx.Done():
	case <-t.closed:
		return nil
	}

	select {
	case <-ctx.Done():
		return t.Close()
	case <-t.closed:
		return nil
	}
}

// Publish sends e to <topic>/events/<type> at QoS 0. State events also
// refresh the retained status snapshot.
func (t *Transport) Publish(ctx context.Context, e message.Event) error {
	t.mu.Lock()
	client := t.client
	t.mu.Unlock()
	if client == nil || !client.IsConnected() {
		return ErrNotConnected
	}

	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	if err := wait(ctx, client.Publish(t.EventTopic(e.Type), 0, false, payload)); err != nil {
		return err
	}
	if e.Type == message.EventState || e.Type == message.EventUtterance {
		t.publishStatus(client)
	}
	return nil
}

// EventTopic returns the topic events of type typ are published to.
func (t *Transport) EventTopic(typ message.EventType) string {
	return t.topic + "/events/" + string(typ)
}

func (t *Transport) publishStatus(client paho.Client) {
	t.mu.Lock()
	src := t.src
	t.mu.Unlock()
	if src == nil {
		return
	}
	payload, err := json.Marshal(src.Status())
	if err != nil {
		return
	}
	client.Publish(t.topic+"/status", 0, true, payload)
}

func wait(ctx context.Context, token paho.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close marks the session offline and disconnects from the broker.
func (t *Transport) Close() error {
	t.closeOnce.Do(func() { close(t.closed) })
	t.mu.Lock()
	client := t.client
	t.client = nil
	t.mu.Unlock()
	if client == nil {
		return nil
	}
	if client.IsConnected() {
		token := client.Publish(t.topic+"/online", 1, true, "false")
		token.WaitTimeout(time.Second)
	}
	client.Disconnect(disconnectQuiesce)
	return nil
}
