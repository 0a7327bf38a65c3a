package naoqi

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pepperlife/animcore/internal/infrastructure/mqtt"
	"github.com/pepperlife/animcore/internal/playback"
	"github.com/pepperlife/animcore/internal/timeline"
)

// defaultTimeout applies when Options.Timeout is zero.
const defaultTimeout = 5 * time.Second

// MQTTClient is the subset of the MQTT client the bridge uses.
// It is satisfied by *mqtt.Client.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Logger defines the logging interface used by the bridge.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Options configures a Bridge.
type Options struct {
	// MQTT carries requests and responses. Required.
	MQTT MQTTClient

	// Robot is sent with every request so a shared broker can serve several robots.
	Robot string

	// Timeout bounds one request/response exchange. Calls that block on the
	// robot get this much on top of their expected duration.
	Timeout time.Duration

	// QoS for requests and the response subscription.
	QoS byte

	// Logger is optional.
	Logger Logger
}

// Bridge implements the playback robot collaborators over MQTT.
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	mqtt    MQTTClient
	robot   string
	timeout time.Duration
	qos     byte
	logger  Logger

	mu      sync.Mutex
	pending map[string]chan ResponseMessage
	started bool
}

// Compile-time checks for the collaborators Bridge provides.
var (
	_ playback.MotionController = (*Bridge)(nil)
	_ playback.Waker            = (*Bridge)(nil)
	_ playback.BehaviorService  = (*Bridge)(nil)
	_ playback.SpeechService    = (*Bridge)(nil)
	_ playback.AudioPlayer      = (*Bridge)(nil)
	_ playback.PostureService   = (*Bridge)(nil)
)

// NewBridge creates a bridge. Call Start before use and Close when done.
func NewBridge(opts Options) (*Bridge, error) {
	if opts.MQTT == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}
	return &Bridge{
		mqtt:    opts.MQTT,
		robot:   opts.Robot,
		timeout: opts.Timeout,
		qos:     opts.QoS,
		logger:  opts.Logger,
		pending: make(map[string]chan ResponseMessage),
	}, nil
}

// Start subscribes to robot responses.
func (b *Bridge) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started {
		return nil
	}
	if err := b.mqtt.Subscribe(mqtt.Topics{}.AllResponses(), b.qos, b.handleResponse); err != nil {
		return fmt.Errorf("subscribing to responses: %w", err)
	}
	b.started = true
	return nil
}

// Close unsubscribes and fails every request still waiting for an answer.
func (b *Bridge) Close() error {
	b.mu.Lock()
	if !b.started {
		b.mu.Unlock()
		return nil
	}
	b.started = false
	pending := b.pending
	b.pending = make(map[string]chan ResponseMessage)
	b.mu.Unlock()

	if len(pending) > 0 {
		b.logger.Warn("bridge stopped with requests in flight", "pending", len(pending))
	}
	for _, ch := range pending {
		close(ch)
	}
	return b.mqtt.Unsubscribe(mqtt.Topics{}.AllResponses())
}

// Robot returns the playback collaborators backed by this bridge.
func (b *Bridge) Robot() playback.Robot {
	return playback.Robot{
		Motion:   b,
		Behavior: b,
		Speech:   b,
		Audio:    b,
		Posture:  b,
	}
}

// call publishes one request and waits for its response.
//
// The exchange is bounded by b.timeout plus extra, and by ctx. A cancelled
// ctx is returned as is; an expired exchange returns ErrTimeout.
func (b *Bridge) call(ctx context.Context, service, method string, params map[string]any, extra time.Duration) (json.RawMessage, error) {
	id := uuid.New().String()
	ch := make(chan ResponseMessage, 1)

	b.mu.Lock()
	if !b.started {
		b.mu.Unlock()
		return nil, ErrNotStarted
	}
	b.pending[id] = ch
	b.mu.Unlock()
	defer b.forget(id)

	payload, err := json.Marshal(RequestMessage{
		RequestID: id,
		Timestamp: time.Now().UTC(),
		Robot:     b.robot,
		Method:    method,
		Params:    params,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding %s.%s request: %w", service, method, err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, b.timeout+extra)
	defer cancel()

	start := time.Now()
	if err := b.mqtt.Publish(mqtt.Topics{}.Request(service, id), payload, b.qos, false); err != nil {
		return nil, fmt.Errorf("publishing %s.%s request: %w", service, method, err)
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return nil, fmt.Errorf("%s.%s: %w", service, method, ErrNotStarted)
		}
		b.logger.Debug("robot call answered",
			"service", service,
			"method", method,
			"request_id", id,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return resp.Data, responseError(service, method, resp)
	case <-waitCtx.Done():
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%s.%s: %w", service, method, err)
		}
		return nil, fmt.Errorf("%w: %s.%s after %v", ErrTimeout, service, method, b.timeout+extra)
	}
}

func (b *Bridge) forget(id string) {
	b.mu.Lock()
	delete(b.pending, id)
	b.mu.Unlock()
}

// handleResponse routes a response to the waiting call. Late or unknown
// responses are dropped.
func (b *Bridge) handleResponse(topic string, payload []byte) error {
	_, id, ok := mqtt.Topics{}.ParseResponse(topic)
	if !ok {
		return fmt.Errorf("%w: unexpected topic %s", ErrInvalidResponse, topic)
	}

	var resp ResponseMessage
	if err := json.Unmarshal(payload, &resp); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	if resp.RequestID == "" {
		resp.RequestID = id
	}
	if resp.RequestID != id {
		return fmt.Errorf("%w: request_id %q does not match topic %s", ErrInvalidResponse, resp.RequestID, topic)
	}

	b.mu.Lock()
	ch, found := b.pending[id]
	if found {
		delete(b.pending, id)
	}
	b.mu.Unlock()

	if !found {
		b.logger.Debug("dropping response without a waiting request", "topic", topic)
		return nil
	}
	ch <- resp
	return nil
}

// responseError converts a failed response into a Go error.
func responseError(service, method string, resp ResponseMessage) error {
	if resp.Success {
		return nil
	}
	if resp.Error == nil {
		return fmt.Errorf("%w: %s.%s", ErrRemote, service, method)
	}
	switch resp.Error.Code {
	case CodeUnsupported:
		return fmt.Errorf("%w: %s.%s: %s", playback.ErrUnsupported, service, method, resp.Error.Message)
	case CodeUnknownJoint:
		return fmt.Errorf("%w: %s", timeline.ErrLimitsUnavailable, resp.Error.Message)
	}
	return fmt.Errorf("%w: %s.%s: %s (%s)", ErrRemote, service, method, resp.Error.Message, resp.Error.Code)
}

