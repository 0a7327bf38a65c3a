package timeline

import "errors"

// Sentinel errors for timeline parsing and validation.
var (
	// ErrParse indicates a document could not be read as any supported format.
	ErrParse = errors.New("timeline: parse failed")

	// ErrDuplicateActuator indicates two curves drive the same actuator.
	// It must be detected before any motor command is issued.
	ErrDuplicateActuator = errors.New("timeline: duplicate actuator")

	// ErrInvalidCurve indicates a curve breaks the Times/Values invariants.
	ErrInvalidCurve = errors.New("timeline: invalid curve")

	// ErrLimitsUnavailable indicates a joint has no known limits.
	// It is soft: the joint is simply not clamped.
	ErrLimitsUnavailable = errors.New("timeline: joint limits unavailable")
)
