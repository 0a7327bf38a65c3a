package playback

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pepperlife/animcore/internal/timeline"
)

// Stage is a step of a playback run.
type Stage string

// Playback stages, in execution order.
const (
	StageIdle        Stage = "idle"
	StageResolve     Stage = "resolve"
	StageParse       Stage = "parse"
	StageNormalize   Stage = "normalize"
	StageValidate    Stage = "validate"
	StageGuard       Stage = "guard_engaged"
	StageBoost       Stage = "start_boost"
	StageLeadIn      Stage = "lead_in_shift"
	StagePreposition Stage = "pre_positioned"
	StageInterpolate Stage = "interpolating"
	StageComplete    Stage = "complete"
)

// Status is the result of a playback run.
type Status string

// Execution statuses. StatusRunning is only seen on persisted records.
const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusAborted   Status = "aborted"
)

// Outcome is the result of Play.
type Outcome struct {
	Status Status

	// Reason is nil on success, otherwise the wrapped cause of the abort.
	Reason error

	// Stage is the last stage entered; StageComplete on success.
	Stage Stage

	// Warnings are soft failures that did not abort the run.
	Warnings []string

	// ExecutionID identifies the history record of the run.
	ExecutionID string
}

// Succeeded reports whether the run completed.
func (o Outcome) Succeeded() bool {
	return o.Status == StatusSucceeded
}

// Execution is the persisted record of one playback run.
type Execution struct {
	ID          string     `json:"id"`
	Robot       string     `json:"robot"`
	SourcePath  string     `json:"source_path"`
	Format      string     `json:"format,omitempty"`
	AudioPath   string     `json:"audio_path,omitempty"`
	UnitMode    string     `json:"unit_mode,omitempty"`
	Status      Status     `json:"status"`
	Stage       Stage      `json:"stage"`
	Joints      int        `json:"joints"`
	Clamped     int        `json:"clamped"`
	Warnings    []string   `json:"warnings,omitempty"`
	Error       string     `json:"error,omitempty"`
	DurationMS  int64      `json:"duration_ms"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ─── Robot collaborators ────────────────────────────────────────────────────

// MotionController drives the joints.
type MotionController interface {
	timeline.LimitsSource

	// SetAngles starts a move of names to angles at a speed fraction and
	// returns without waiting for it to finish.
	SetAngles(ctx context.Context, names []string, angles []float64, speed float64) error

	// Interpolate runs one timed multi-joint interpolation and blocks until
	// the controller reports completion.
	Interpolate(ctx context.Context, names []string, values, times [][]float64, absolute bool) error

	// StopMove stops the current move.
	StopMove(ctx context.Context) error

	// WaitUntilIdle blocks until no motion task is running.
	WaitUntilIdle(ctx context.Context) error
}

// Waker is implemented by motion controllers that can wake the robot.
type Waker interface {
	WakeUp(ctx context.Context) error
}

// BehaviorService toggles the robot's autonomous idle behaviours.
// A service may support only one of the two toggles; the other returns
// an error wrapping ErrUnsupported.
type BehaviorService interface {
	Enabled(ctx context.Context, service string) (bool, error)
	SetEnabled(ctx context.Context, service string, enabled bool) error
	Paused(ctx context.Context, service string) (bool, error)
	SetPaused(ctx context.Context, service string, paused bool) error
}

// SpeechService speaks text.
type SpeechService interface {
	// Say blocks until the sentence is spoken.
	Say(ctx context.Context, text string) error

	// SayAsync returns once the sentence is queued.
	SayAsync(ctx context.Context, text string) error
}

// AudioHandle identifies an audio playback started by an AudioPlayer.
type AudioHandle string

// AudioPlayer plays audio files.
type AudioPlayer interface {
	// PlayFile starts playing path and returns a handle for Stop.
	PlayFile(ctx context.Context, path string, volume, pan float64) (AudioHandle, error)

	// Stop stops the playback identified by handle.
	Stop(ctx context.Context, handle AudioHandle) error
}

// PostureService moves the robot to a predefined posture.
type PostureService interface {
	GoToPosture(ctx context.Context, name string, speed float64) error
}

// Robot groups the collaborators a Sequencer drives. Any of them may be nil;
// a nil Motion aborts every run with ErrMotionUnavailable.
type Robot struct {
	Motion   MotionController
	Behavior BehaviorService
	Speech   SpeechService
	Audio    AudioPlayer
	Posture  PostureService
}

// ─── Sinks ──────────────────────────────────────────────────────────────────

// EventPublisher publishes playback events (satisfied by the MQTT client).
type EventPublisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// MetricsWriter records telemetry points (satisfied by the InfluxDB client).
type MetricsWriter interface {
	WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time)
}

// Logger defines the logging interface used by the Player and Sequencer.
// It is satisfied by *logging.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// GenerateID returns a new random identifier for sessions and executions.
func GenerateID() string {
	return uuid.New().String()
}
