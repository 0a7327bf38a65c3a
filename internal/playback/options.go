package playback

import (
	"time"

	"github.com/pepperlife/animcore/internal/normalize"
)

// Options tune the Player and the Sequencer.
type Options struct {
	// Robot names the robot in history rows, events and telemetry.
	Robot string

	// WakeUp wakes the robot before the guard engages, when supported.
	WakeUp bool

	// GuardServices are suspended for the duration of a run, in order.
	GuardServices []string

	// NeutralPosture is reached at the end of every run; empty skips it.
	NeutralPosture string
	PostureSpeed   float64

	Boost       BoostOptions
	Preposition PrepositionOptions

	// ClampEpsilon is the normaliser's inward margin.
	ClampEpsilon float64

	// IdleTimeout bounds each wait for motion completion.
	IdleTimeout time.Duration

	// CleanupTimeout bounds the whole cleanup stage.
	CleanupTimeout time.Duration

	// SpeechBeforeGuard speaks behaviour-graph sentences before the idle
	// behaviours are suspended instead of right after.
	SpeechBeforeGuard bool

	// XARSpeedFactor multiplies behaviour-graph key times.
	XARSpeedFactor float64

	AudioVolume float64
	AudioPan    float64

	// EventTopic receives a JSON event after every run; empty disables events.
	EventTopic string
}

// BoostOptions control the start boost and the lead-in shift.
type BoostOptions struct {
	Enabled bool
	Speed   float64

	// MinLeadIn is the earliest first keyframe time, in seconds, kept after
	// a boost. Zero disables the shift.
	MinLeadIn float64
}

// PrepositionOptions control sequential pre-positioning.
type PrepositionOptions struct {
	Enabled bool
	Speed   float64

	// GuardBand is added to ClampEpsilon when computing a joint's target.
	GuardBand float64

	// Settle is the pause after each joint command.
	Settle time.Duration

	// WaitTimeout bounds the wait for completion after the last joint.
	WaitTimeout time.Duration
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Robot: "pepper",
		GuardServices: []string{
			"ALSpeakingMovement",
			"ALListeningMovement",
			"ALBackgroundMovement",
			"ALAutonomousBlinking",
			"ALBasicAwareness",
		},
		NeutralPosture: "Stand",
		PostureSpeed:   0.5,
		Boost: BoostOptions{
			Enabled:   true,
			Speed:     0.25,
			MinLeadIn: 0.6,
		},
		Preposition: PrepositionOptions{
			Enabled:     true,
			Speed:       0.15,
			GuardBand:   0.01,
			Settle:      120 * time.Millisecond,
			WaitTimeout: 2 * time.Second,
		},
		ClampEpsilon:      normalize.DefaultEpsilon,
		IdleTimeout:       5 * time.Second,
		CleanupTimeout:    15 * time.Second,
		SpeechBeforeGuard: true,
		XARSpeedFactor:    1,
		AudioVolume:       1,
	}
}

// withDefaults fills zero speeds, margins and timeouts.
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.PostureSpeed <= 0 {
		o.PostureSpeed = d.PostureSpeed
	}
	if o.Boost.Speed <= 0 {
		o.Boost.Speed = d.Boost.Speed
	}
	if o.Preposition.Speed <= 0 {
		o.Preposition.Speed = d.Preposition.Speed
	}
	if o.Preposition.WaitTimeout <= 0 {
		o.Preposition.WaitTimeout = d.Preposition.WaitTimeout
	}
	if o.ClampEpsilon <= 0 {
		o.ClampEpsilon = d.ClampEpsilon
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = d.IdleTimeout
	}
	if o.CleanupTimeout <= 0 {
		o.CleanupTimeout = d.CleanupTimeout
	}
	if o.XARSpeedFactor <= 0 {
		o.XARSpeedFactor = d.XARSpeedFactor
	}
	return o
}
