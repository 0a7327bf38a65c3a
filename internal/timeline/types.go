package timeline

import (
	"context"
	"fmt"
	"strings"
)

// Format identifies an on-disk animation family.
type Format int

// Supported formats.
const (
	FormatUnknown Format = iota
	FormatQiAnimJSON
	FormatQiAnimXML
	FormatXAR
)

// String returns the format name used in logs and history rows.
func (f Format) String() string {
	switch f {
	case FormatQiAnimJSON:
		return "qianim-json"
	case FormatQiAnimXML:
		return "qianim-xml"
	case FormatXAR:
		return "xar"
	default:
		return "unknown"
	}
}

// IsQiAnim reports whether f belongs to the QiAnim family.
func (f Format) IsQiAnim() bool {
	return f == FormatQiAnimJSON || f == FormatQiAnimXML
}

// JointCurve is the keyframe curve for one actuator.
// Times and Values are parallel; Times is strictly increasing with Times[0] > 0.
type JointCurve struct {
	Actuator string
	Times    []float64
	Values   []float64
}

// Len returns the number of keys.
func (c JointCurve) Len() int {
	return len(c.Times)
}

// Clone returns a deep copy of the curve.
func (c JointCurve) Clone() JointCurve {
	return JointCurve{
		Actuator: c.Actuator,
		Times:    append([]float64(nil), c.Times...),
		Values:   append([]float64(nil), c.Values...),
	}
}

// IsHand reports whether the actuator is a gripper driven in the 0..1 domain
// instead of an angle (LHand, RHand and any other "...Hand" actuator).
func IsHand(actuator string) bool {
	return strings.HasSuffix(actuator, "Hand")
}

// Timeline is the ordered set of curves for one animation.
type Timeline struct {
	Format Format
	Curves []JointCurve
}

// Names returns the actuator names in curve order.
func (t *Timeline) Names() []string {
	names := make([]string, len(t.Curves))
	for i, c := range t.Curves {
		names[i] = c.Actuator
	}
	return names
}

// Triple returns the names, per-joint values and per-joint times in the
// shape expected by a timed multi-joint interpolation.
func (t *Timeline) Triple() (names []string, values, times [][]float64) {
	names = make([]string, len(t.Curves))
	values = make([][]float64, len(t.Curves))
	times = make([][]float64, len(t.Curves))
	for i, c := range t.Curves {
		names[i] = c.Actuator
		values[i] = c.Values
		times[i] = c.Times
	}
	return names, values, times
}

// FirstValues returns every joint's first keyframe value, in curve order.
func (t *Timeline) FirstValues() []float64 {
	out := make([]float64, len(t.Curves))
	for i, c := range t.Curves {
		if len(c.Values) > 0 {
			out[i] = c.Values[0]
		}
	}
	return out
}

// EarliestTime returns the smallest first keyframe time across all curves,
// or 0 for an empty timeline.
func (t *Timeline) EarliestTime() float64 {
	earliest := 0.0
	for i, c := range t.Curves {
		if len(c.Times) == 0 {
			continue
		}
		if i == 0 || c.Times[0] < earliest {
			earliest = c.Times[0]
		}
	}
	return earliest
}

// Duration returns the largest last keyframe time across all curves.
func (t *Timeline) Duration() float64 {
	d := 0.0
	for _, c := range t.Curves {
		if n := len(c.Times); n > 0 && c.Times[n-1] > d {
			d = c.Times[n-1]
		}
	}
	return d
}

// Shift moves every key of every curve later by delta seconds.
func (t *Timeline) Shift(delta float64) {
	for i := range t.Curves {
		for j := range t.Curves[i].Times {
			t.Curves[i].Times[j] = roundMillis(t.Curves[i].Times[j] + delta)
		}
	}
}

// Clone returns a deep copy of the timeline.
func (t *Timeline) Clone() *Timeline {
	out := &Timeline{Format: t.Format, Curves: make([]JointCurve, len(t.Curves))}
	for i, c := range t.Curves {
		out.Curves[i] = c.Clone()
	}
	return out
}

// CheckUnique returns ErrDuplicateActuator if two curves share an actuator.
func (t *Timeline) CheckUnique() error {
	seen := make(map[string]struct{}, len(t.Curves))
	for _, c := range t.Curves {
		if _, dup := seen[c.Actuator]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateActuator, c.Actuator)
		}
		seen[c.Actuator] = struct{}{}
	}
	return nil
}

// Validate checks actuator uniqueness and every curve invariant.
//
// Returns:
//   - error: ErrDuplicateActuator or ErrInvalidCurve (wrapped), nil if valid
func (t *Timeline) Validate() error {
	if err := t.CheckUnique(); err != nil {
		return err
	}
	for _, c := range t.Curves {
		if c.Actuator == "" {
			return fmt.Errorf("%w: empty actuator name", ErrInvalidCurve)
		}
		if len(c.Times) == 0 || len(c.Times) != len(c.Values) {
			return fmt.Errorf("%w: %s has %d times and %d values",
				ErrInvalidCurve, c.Actuator, len(c.Times), len(c.Values))
		}
		if c.Times[0] <= 0 {
			return fmt.Errorf("%w: %s starts at %.3fs", ErrInvalidCurve, c.Actuator, c.Times[0])
		}
		for i := 1; i < len(c.Times); i++ {
			if c.Times[i] <= c.Times[i-1] {
				return fmt.Errorf("%w: %s time %d not increasing", ErrInvalidCurve, c.Actuator, i)
			}
		}
	}
	return nil
}

// Limits are the mechanical limits of one joint, in radians (0..1 for hands).
// MaxVelocity is in radians per second; zero means unknown.
type Limits struct {
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	MaxVelocity float64 `json:"max_velocity,omitempty"`
}

// Clamp narrows v into [Min+margin, Max-margin]. When the margin leaves an
// empty range the midpoint of the limits is returned.
func (l Limits) Clamp(v, margin float64) float64 {
	lo, hi := l.Min+margin, l.Max-margin
	if lo > hi {
		return (l.Min + l.Max) / 2
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Violation returns how far v lies outside [Min, Max], or 0 if inside.
func (l Limits) Violation(v float64) float64 {
	switch {
	case v < l.Min:
		return l.Min - v
	case v > l.Max:
		return v - l.Max
	default:
		return 0
	}
}

// LimitsSource answers joint limit queries. It returns ErrLimitsUnavailable
// (possibly wrapped) for joints it does not know.
type LimitsSource interface {
	JointLimits(ctx context.Context, joint string) (Limits, error)
}

// SpeechAction is one Say box of a behavior graph.
type SpeechAction struct {
	Text           string
	SpeedPercent   string
	ShapingPercent string

	// Blocking is set when the box holds a Lock resource: the next action
	// waits for the sentence to finish.
	Blocking bool
}

// Annotated returns the text wrapped in the speed and voice-shaping tags
// understood by the robot's text-to-speech engine.
func (s SpeechAction) Annotated() string {
	return fmt.Sprintf(`\RSPD=%s\ \VCT=%s\ %s \RST\`, s.SpeedPercent, s.ShapingPercent, s.Text)
}
