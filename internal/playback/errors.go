package playback

import "errors"

// Domain errors for the playback package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(outcome.Reason, playback.ErrMotionCommand) {
//	    // the robot rejected or failed a motion command
//	}
var (
	// ErrNoCurves is returned when an animation holds no playable curve.
	ErrNoCurves = errors.New("playback: no joint curves")

	// ErrMotionUnavailable is returned when no motion controller is configured.
	ErrMotionUnavailable = errors.New("playback: motion controller unavailable")

	// ErrMotionCommand wraps a failed motion controller call.
	ErrMotionCommand = errors.New("playback: motion command failed")

	// ErrUnsupported is returned by a collaborator that lacks an operation,
	// such as a behaviour service with no pause toggle.
	ErrUnsupported = errors.New("playback: operation unsupported")

	// ErrAudio wraps a failed audio call. It never aborts a run.
	ErrAudio = errors.New("playback: audio failed")

	// ErrPanic is returned when a collaborator panicked during a run.
	ErrPanic = errors.New("playback: panic during playback")

	// ErrExecutionNotFound is returned when an execution ID does not exist.
	ErrExecutionNotFound = errors.New("playback: execution not found")
)
