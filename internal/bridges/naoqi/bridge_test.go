package naoqi

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pepperlife/animcore/internal/infrastructure/mqtt"
	"github.com/pepperlife/animcore/internal/playback"
	"github.com/pepperlife/animcore/internal/timeline"
)

// responder answers one request; returning nil sends no response.
type responder func(service string, req RequestMessage) *ResponseMessage

// mockMQTT loops requests back through a responder, like the robot agent.
type mockMQTT struct {
	mu          sync.Mutex
	handler     mqtt.MessageHandler
	published   []string
	requests    []RequestMessage
	unsubscribe []string
	respond     responder
	publishErr  error
}

func (m *mockMQTT) Publish(topic string, payload []byte, _ byte, _ bool) error {
	if m.publishErr != nil {
		return m.publishErr
	}
	var req RequestMessage
	if err := json.Unmarshal(payload, &req); err != nil {
		return err
	}

	m.mu.Lock()
	m.published = append(m.published, topic)
	m.requests = append(m.requests, req)
	handler, respond := m.handler, m.respond
	m.mu.Unlock()

	parts := strings.Split(topic, "/")
	service := parts[2]
	if respond == nil {
		return nil
	}
	resp := respond(service, req)
	if resp == nil {
		return nil
	}
	resp.RequestID = req.RequestID
	body, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	go handler(mqtt.Topics{}.Response(service, req.RequestID), body) //nolint:errcheck // test responder
	return nil
}

func (m *mockMQTT) Subscribe(_ string, _ byte, handler mqtt.MessageHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = handler
	return nil
}

func (m *mockMQTT) Unsubscribe(topic string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unsubscribe = append(m.unsubscribe, topic)
	return nil
}

func (m *mockMQTT) lastRequest() RequestMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[len(m.requests)-1]
}

func okResp(data string) *ResponseMessage {
	return &ResponseMessage{Success: true, Data: json.RawMessage(data)}
}

func failed(code, msg string) *ResponseMessage {
	return &ResponseMessage{Error: &ResponseError{Code: code, Message: msg}}
}

func startBridge(t *testing.T, respond responder) (*Bridge, *mockMQTT) {
	t.Helper()
	m := &mockMQTT{respond: respond}
	b, err := NewBridge(Options{MQTT: m, Robot: "pepper", Timeout: time.Second, QoS: 1})
	if err != nil {
		t.Fatalf("NewBridge() error = %v", err)
	}
	if err := b.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return b, m
}

// pendingCount returns the number of calls waiting for a response.
func pendingCount(b *Bridge) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

func TestNewBridge_RequiresMQTT(t *testing.T) {
	if _, err := NewBridge(Options{}); err == nil {
		t.Error("NewBridge() without MQTT client should fail")
	}
}

func TestCall_NotStarted(t *testing.T) {
	b, err := NewBridge(Options{MQTT: &mockMQTT{}})
	if err != nil {
		t.Fatalf("NewBridge() error = %v", err)
	}
	if err := b.StopMove(context.Background()); !errors.Is(err, ErrNotStarted) {
		t.Errorf("StopMove() error = %v, want ErrNotStarted", err)
	}
}

func TestCall_RequestShape(t *testing.T) {
	b, m := startBridge(t, func(string, RequestMessage) *ResponseMessage { return okResp(`{}`) })

	err := b.SetAngles(context.Background(), []string{"HeadYaw"}, []float64{0.5}, 0.25)
	if err != nil {
		t.Fatalf("SetAngles() error = %v", err)
	}

	req := m.lastRequest()
	if req.Robot != "pepper" || req.Method != "set_angles" || req.RequestID == "" {
		t.Errorf("request = %+v", req)
	}
	if want := "animcore/request/motion/" + req.RequestID; m.published[0] != want {
		t.Errorf("topic = %q, want %q", m.published[0], want)
	}
	if got := req.Params["speed"]; got != 0.25 {
		t.Errorf("speed param = %v, want 0.25", got)
	}
	if pendingCount(b) != 0 {
		t.Errorf("pending = %d after answered call", pendingCount(b))
	}
}

func TestJointLimits(t *testing.T) {
	b, _ := startBridge(t, func(_ string, req RequestMessage) *ResponseMessage {
		switch req.Params["joint"] {
		case "HeadYaw":
			return okResp(`{"min":-2.0857,"max":2.0857,"max_velocity":8.26}`)
		case "Broken":
			return okResp(`{"min":-1}`)
		default:
			return failed(CodeUnknownJoint, "no such joint")
		}
	})
	ctx := context.Background()

	lim, err := b.JointLimits(ctx, "HeadYaw")
	if err != nil {
		t.Fatalf("JointLimits() error = %v", err)
	}
	if want := (timeline.Limits{Min: -2.0857, Max: 2.0857, MaxVelocity: 8.26}); lim != want {
		t.Errorf("JointLimits() = %+v, want %+v", lim, want)
	}

	if _, err := b.JointLimits(ctx, "Tail"); !errors.Is(err, timeline.ErrLimitsUnavailable) {
		t.Errorf("unknown joint error = %v, want ErrLimitsUnavailable", err)
	}
	if _, err := b.JointLimits(ctx, "Broken"); !errors.Is(err, ErrInvalidResponse) {
		t.Errorf("malformed limits error = %v, want ErrInvalidResponse", err)
	}
}

func TestBehaviorToggles(t *testing.T) {
	b, m := startBridge(t, func(_ string, req RequestMessage) *ResponseMessage {
		switch req.Method {
		case "get_enabled":
			if req.Params["service"] == "ALBasicAwareness" {
				return failed(CodeUnsupported, "no enable toggle")
			}
			return okResp(`{"enabled":true}`)
		case "get_paused":
			return okResp(`{"paused":"maybe"}`)
		default:
			return okResp(``)
		}
	})
	ctx := context.Background()

	enabled, err := b.Enabled(ctx, "ALBackgroundMovement")
	if err != nil || !enabled {
		t.Errorf("Enabled() = %v, %v; want true, nil", enabled, err)
	}
	if _, err := b.Enabled(ctx, "ALBasicAwareness"); !errors.Is(err, playback.ErrUnsupported) {
		t.Errorf("Enabled() error = %v, want playback.ErrUnsupported", err)
	}
	if _, err := b.Paused(ctx, "ALBasicAwareness"); !errors.Is(err, ErrInvalidResponse) {
		t.Errorf("Paused() error = %v, want ErrInvalidResponse", err)
	}

	if err := b.SetPaused(ctx, "ALBasicAwareness", true); err != nil {
		t.Fatalf("SetPaused() error = %v", err)
	}
	req := m.lastRequest()
	if req.Method != "set_paused" || req.Params["paused"] != true || req.Params["service"] != "ALBasicAwareness" {
		t.Errorf("SetPaused request = %+v", req)
	}
}

func TestRemoteFailure(t *testing.T) {
	b, _ := startBridge(t, func(string, RequestMessage) *ResponseMessage {
		return failed("fall_detected", "robot is falling")
	})

	err := b.Interpolate(context.Background(), []string{"HeadYaw"}, [][]float64{{0.1}}, [][]float64{{1}}, true)
	if !errors.Is(err, ErrRemote) {
		t.Fatalf("Interpolate() error = %v, want ErrRemote", err)
	}
	if !strings.Contains(err.Error(), "robot is falling") {
		t.Errorf("error %q does not carry the remote message", err)
	}
}

func TestAudio(t *testing.T) {
	b, m := startBridge(t, func(_ string, req RequestMessage) *ResponseMessage {
		if req.Method == "play_file" {
			return okResp(`{"id":42}`)
		}
		return okResp(`{}`)
	})
	ctx := context.Background()

	h, err := b.PlayFile(ctx, "/home/nao/wave.wav", 0.8, -0.5)
	if err != nil {
		t.Fatalf("PlayFile() error = %v", err)
	}
	if h != "42" {
		t.Errorf("handle = %q, want 42", h)
	}
	if err := b.Stop(ctx, h); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if got := m.lastRequest().Params["id"]; got != "42" {
		t.Errorf("stop id = %v, want 42", got)
	}
}

func TestPlayFile_NoTaskID(t *testing.T) {
	b, _ := startBridge(t, func(string, RequestMessage) *ResponseMessage { return okResp(`{}`) })
	if _, err := b.PlayFile(context.Background(), "x.wav", 1, 0); !errors.Is(err, ErrInvalidResponse) {
		t.Errorf("PlayFile() error = %v, want ErrInvalidResponse", err)
	}
}

func TestGoToPosture(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr error
	}{
		{name: "reached", data: `{"reached":true}`},
		{name: "no result field", data: `{}`},
		{name: "not reached", data: `{"reached":false}`, wantErr: ErrRemote},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, _ := startBridge(t, func(string, RequestMessage) *ResponseMessage { return okResp(tt.data) })
			err := b.GoToPosture(context.Background(), "Stand", 0.5)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("GoToPosture() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSpeech(t *testing.T) {
	b, m := startBridge(t, func(string, RequestMessage) *ResponseMessage { return okResp(``) })
	ctx := context.Background()

	if err := b.Say(ctx, `\rspd=80\hello`); err != nil {
		t.Fatalf("Say() error = %v", err)
	}
	if err := b.SayAsync(ctx, "bye"); err != nil {
		t.Fatalf("SayAsync() error = %v", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	methods := []string{m.requests[0].Method, m.requests[1].Method}
	if !reflect.DeepEqual(methods, []string{"say", "say_async"}) {
		t.Errorf("methods = %v", methods)
	}
	if m.requests[0].Params["text"] != `\rspd=80\hello` {
		t.Errorf("text = %v", m.requests[0].Params["text"])
	}
}

func TestCall_Timeout(t *testing.T) {
	m := &mockMQTT{respond: func(string, RequestMessage) *ResponseMessage { return nil }}
	b, err := NewBridge(Options{MQTT: m, Timeout: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("NewBridge() error = %v", err)
	}
	if err := b.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	err = b.StopMove(context.Background())
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("StopMove() error = %v, want ErrTimeout", err)
	}
	if pendingCount(b) != 0 {
		t.Errorf("pending = %d after timeout", pendingCount(b))
	}
}

func TestCall_ContextCancelled(t *testing.T) {
	b, _ := startBridge(t, func(string, RequestMessage) *ResponseMessage { return nil })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := b.SetAngles(ctx, []string{"HeadYaw"}, []float64{0}, 0.1)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("SetAngles() error = %v, want context.Canceled", err)
	}
	if errors.Is(err, ErrTimeout) {
		t.Error("cancellation reported as timeout")
	}
}

func TestCall_PublishError(t *testing.T) {
	b, m := startBridge(t, nil)
	m.publishErr = mqtt.ErrNotConnected

	if err := b.StopMove(context.Background()); !errors.Is(err, mqtt.ErrNotConnected) {
		t.Errorf("StopMove() error = %v, want mqtt.ErrNotConnected", err)
	}
}

func TestClose_FailsPendingCalls(t *testing.T) {
	b, m := startBridge(t, func(string, RequestMessage) *ResponseMessage { return nil })

	errc := make(chan error, 1)
	go func() { errc <- b.WaitUntilIdle(context.Background()) }()

	deadline := time.Now().Add(time.Second)
	for pendingCount(b) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	select {
	case err := <-errc:
		if !errors.Is(err, ErrNotStarted) {
			t.Errorf("WaitUntilIdle() error = %v, want ErrNotStarted", err)
		}
	case <-time.After(time.Second):
		t.Fatal("pending call not released by Close")
	}
	if want := (mqtt.Topics{}).AllResponses(); len(m.unsubscribe) != 1 || m.unsubscribe[0] != want {
		t.Errorf("unsubscribed = %v", m.unsubscribe)
	}
}

func TestHandleResponse(t *testing.T) {
	b, _ := startBridge(t, nil)

	tests := []struct {
		name    string
		topic   string
		payload string
		wantErr error
	}{
		{name: "not a response topic", topic: "animcore/request/motion/1", payload: `{}`, wantErr: ErrInvalidResponse},
		{name: "bad json", topic: "animcore/response/motion/1", payload: `{`, wantErr: ErrInvalidResponse},
		{name: "mismatched id", topic: "animcore/response/motion/1", payload: `{"request_id":"2"}`, wantErr: ErrInvalidResponse},
		{name: "unknown request is dropped", topic: "animcore/response/motion/1", payload: `{"request_id":"1","success":true}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := b.handleResponse(tt.topic, []byte(tt.payload))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("handleResponse() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLatestTime(t *testing.T) {
	got := latestTime([][]float64{{0.1, 1.5}, {0.2, 2.25}, {}})
	if got != 2250*time.Millisecond {
		t.Errorf("latestTime() = %v, want 2.25s", got)
	}
}

func TestRobot_WiresEveryCollaborator(t *testing.T) {
	b, _ := startBridge(t, nil)
	r := b.Robot()
	if r.Motion == nil || r.Behavior == nil || r.Speech == nil || r.Audio == nil || r.Posture == nil {
		t.Errorf("Robot() = %+v, want every collaborator set", r)
	}
}
