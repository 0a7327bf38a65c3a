package playback

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pepperlife/animcore/internal/timeline"
)

// recorder collects calls from every mock in order.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, fmt.Sprintf(format, args...))
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

// withPrefix returns the recorded events starting with prefix.
func (r *recorder) withPrefix(prefix string) []string {
	var out []string
	for _, e := range r.all() {
		if strings.HasPrefix(e, prefix) {
			out = append(out, e)
		}
	}
	return out
}

// index returns the position of the first event starting with prefix, or -1.
func (r *recorder) index(prefix string) int {
	for i, e := range r.all() {
		if strings.HasPrefix(e, prefix) {
			return i
		}
	}
	return -1
}

// ─── Motion ─────────────────────────────────────────────────────────────────

type interpolateCall struct {
	names  []string
	values [][]float64
	times  [][]float64
}

type mockMotion struct {
	rec    *recorder
	limits map[string]timeline.Limits

	// setAnglesErr is consulted for every SetAngles call.
	setAnglesErr func(names []string, angles []float64) error

	interpolateErr   error
	interpolatePanic bool

	// blockInterpolate makes Interpolate run until StopMove is called.
	blockInterpolate bool
	stopped          chan struct{}
	stopOnce         sync.Once

	mu          sync.Mutex
	setCalls    [][]float64
	setNames    [][]string
	interpolate []interpolateCall
	stops       int
	wakes       int
}

func newMockMotion(rec *recorder) *mockMotion {
	return &mockMotion{rec: rec, limits: map[string]timeline.Limits{}, stopped: make(chan struct{})}
}

func (m *mockMotion) JointLimits(_ context.Context, joint string) (timeline.Limits, error) {
	lim, ok := m.limits[joint]
	if !ok {
		return timeline.Limits{}, fmt.Errorf("%w: %s", timeline.ErrLimitsUnavailable, joint)
	}
	return lim, nil
}

func (m *mockMotion) SetAngles(_ context.Context, names []string, angles []float64, speed float64) error {
	m.rec.add("motion.SetAngles %s %.2f", strings.Join(names, ","), speed)
	m.mu.Lock()
	m.setNames = append(m.setNames, append([]string(nil), names...))
	m.setCalls = append(m.setCalls, append([]float64(nil), angles...))
	m.mu.Unlock()
	if m.setAnglesErr != nil {
		return m.setAnglesErr(names, angles)
	}
	return nil
}

func (m *mockMotion) Interpolate(_ context.Context, names []string, values, times [][]float64, absolute bool) error {
	m.rec.add("motion.Interpolate absolute=%v", absolute)
	m.mu.Lock()
	m.interpolate = append(m.interpolate, interpolateCall{names: names, values: values, times: times})
	m.mu.Unlock()
	if m.interpolatePanic {
		panic("controller exploded")
	}
	if m.blockInterpolate {
		<-m.stopped
		return errors.New("motion interrupted")
	}
	return m.interpolateErr
}

func (m *mockMotion) StopMove(context.Context) error {
	m.rec.add("motion.StopMove")
	m.mu.Lock()
	m.stops++
	m.mu.Unlock()
	m.stopOnce.Do(func() { close(m.stopped) })
	return nil
}

func (m *mockMotion) WaitUntilIdle(context.Context) error {
	m.rec.add("motion.WaitUntilIdle")
	return nil
}

func (m *mockMotion) WakeUp(context.Context) error {
	m.rec.add("motion.WakeUp")
	m.mu.Lock()
	m.wakes++
	m.mu.Unlock()
	return nil
}

func (m *mockMotion) stopCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stops
}

func (m *mockMotion) lastInterpolate() (interpolateCall, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.interpolate) == 0 {
		return interpolateCall{}, false
	}
	return m.interpolate[len(m.interpolate)-1], true
}

// ─── Behaviour services ─────────────────────────────────────────────────────

type mockService struct {
	toggle  toggle // toggleNone means neither query works
	enabled bool
	paused  bool
	setErr  error
}

type mockBehavior struct {
	rec      *recorder
	mu       sync.Mutex
	services map[string]*mockService
}

func newMockBehavior(rec *recorder, services map[string]*mockService) *mockBehavior {
	return &mockBehavior{rec: rec, services: services}
}

func (b *mockBehavior) get(name string) *mockService {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.services[name]; ok {
		return s
	}
	return &mockService{}
}

func (b *mockBehavior) Enabled(_ context.Context, service string) (bool, error) {
	s := b.get(service)
	if s.toggle != toggleEnabled {
		return false, fmt.Errorf("%w: %s has no enabled toggle", ErrUnsupported, service)
	}
	return s.enabled, nil
}

func (b *mockBehavior) SetEnabled(_ context.Context, service string, enabled bool) error {
	b.rec.add("behavior.SetEnabled %s %v", service, enabled)
	s := b.get(service)
	if s.setErr != nil {
		return s.setErr
	}
	b.mu.Lock()
	s.enabled = enabled
	b.mu.Unlock()
	return nil
}

func (b *mockBehavior) Paused(_ context.Context, service string) (bool, error) {
	s := b.get(service)
	if s.toggle != togglePaused {
		return false, fmt.Errorf("%w: %s has no pause toggle", ErrUnsupported, service)
	}
	return s.paused, nil
}

func (b *mockBehavior) SetPaused(_ context.Context, service string, paused bool) error {
	b.rec.add("behavior.SetPaused %s %v", service, paused)
	s := b.get(service)
	if s.setErr != nil {
		return s.setErr
	}
	b.mu.Lock()
	s.paused = paused
	b.mu.Unlock()
	return nil
}

// ─── Speech, audio, posture ─────────────────────────────────────────────────

type mockSpeech struct{ rec *recorder }

func (s *mockSpeech) Say(_ context.Context, text string) error {
	s.rec.add("speech.Say %s", text)
	return nil
}

func (s *mockSpeech) SayAsync(_ context.Context, text string) error {
	s.rec.add("speech.SayAsync %s", text)
	return nil
}

type mockAudio struct {
	rec     *recorder
	playErr error
	handle  AudioHandle
}

func (a *mockAudio) PlayFile(_ context.Context, path string, volume, pan float64) (AudioHandle, error) {
	a.rec.add("audio.PlayFile %s %.1f %.1f", path, volume, pan)
	if a.playErr != nil {
		return "", a.playErr
	}
	return a.handle, nil
}

func (a *mockAudio) Stop(_ context.Context, handle AudioHandle) error {
	a.rec.add("audio.Stop %s", handle)
	return nil
}

type mockPosture struct{ rec *recorder }

func (p *mockPosture) GoToPosture(_ context.Context, name string, speed float64) error {
	p.rec.add("posture.GoToPosture %s %.1f", name, speed)
	return nil
}

// ─── Sinks ──────────────────────────────────────────────────────────────────

type mockRepo struct {
	mu      sync.Mutex
	created []Execution
	updated []Execution
}

func (r *mockRepo) CreateExecution(_ context.Context, exec *Execution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, *exec)
	return nil
}

func (r *mockRepo) UpdateExecution(_ context.Context, exec *Execution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updated = append(r.updated, *exec)
	return nil
}

func (r *mockRepo) GetExecution(context.Context, string) (*Execution, error) {
	return nil, ErrExecutionNotFound
}

func (r *mockRepo) ListExecutions(context.Context, int) ([]Execution, error) {
	return nil, nil
}

type publishedMessage struct {
	topic   string
	payload []byte
}

type mockPublisher struct {
	mu       sync.Mutex
	messages []publishedMessage
}

func (p *mockPublisher) Publish(topic string, payload []byte, _ byte, _ bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, publishedMessage{topic: topic, payload: payload})
	return nil
}

type metricPoint struct {
	measurement string
	tags        map[string]string
	fields      map[string]interface{}
}

type mockMetrics struct {
	mu     sync.Mutex
	points []metricPoint
}

func (m *mockMetrics) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, _ time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.points = append(m.points, metricPoint{measurement: measurement, tags: tags, fields: fields})
}

// ─── Fixtures ───────────────────────────────────────────────────────────────

// testOptions returns fast options: no settle pause, short timeouts.
func testOptions() Options {
	opts := DefaultOptions()
	opts.GuardServices = []string{"ALBackgroundMovement", "ALBasicAwareness", "ALMystery"}
	opts.Preposition.Settle = 0
	opts.IdleTimeout = time.Second
	opts.CleanupTimeout = 2 * time.Second
	return opts
}

// testServices returns one enable-toggled service, one pause-toggled
// service, and leaves ALMystery unknown.
func testServices() map[string]*mockService {
	return map[string]*mockService{
		"ALBackgroundMovement": {toggle: toggleEnabled, enabled: true},
		"ALBasicAwareness":     {toggle: togglePaused, paused: false},
	}
}

// testRobot wires every mock to one recorder.
func testRobot() (Robot, *recorder, *mockMotion, *mockBehavior) {
	rec := &recorder{}
	motion := newMockMotion(rec)
	behavior := newMockBehavior(rec, testServices())
	return Robot{
		Motion:   motion,
		Behavior: behavior,
		Speech:   &mockSpeech{rec: rec},
		Posture:  &mockPosture{rec: rec},
	}, rec, motion, behavior
}

// twoJointTimeline is an already-normalised radians timeline.
func twoJointTimeline() *timeline.Timeline {
	return &timeline.Timeline{
		Format: timeline.FormatQiAnimJSON,
		Curves: []timeline.JointCurve{
			{Actuator: "HeadYaw", Times: []float64{0.1, 1.0}, Values: []float64{0.2, 0.5}},
			{Actuator: "HeadPitch", Times: []float64{0.2, 1.2}, Values: []float64{-0.1, 0.1}},
		},
	}
}

// wantGuardCalls are the behaviour calls of one run with testServices:
// suspension then restoration of the two readable services.
var wantGuardCalls = []string{
	"behavior.SetEnabled ALBackgroundMovement false",
	"behavior.SetPaused ALBasicAwareness true",
	"behavior.SetEnabled ALBackgroundMovement true",
	"behavior.SetPaused ALBasicAwareness false",
}
