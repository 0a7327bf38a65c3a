package normalize

import (
	"context"
	"errors"
	"math"

	"github.com/pepperlife/animcore/internal/timeline"
)

const (
	// DefaultEpsilon is the inward clamping margin in radians.
	DefaultEpsilon = 1e-4

	// DegreesThreshold is the magnitude above which raw values are taken as
	// degrees when no joint limits are known.
	DegreesThreshold = 3.2
)

// UnitMode is the unit raw QiAnim values are interpreted in.
type UnitMode int

// Unit modes.
const (
	UnitRadians UnitMode = iota
	UnitDegrees
)

// String returns "radians" or "degrees".
func (u UnitMode) String() string {
	if u == UnitDegrees {
		return "degrees"
	}
	return "radians"
}

// Basis explains how a unit was decided.
type Basis string

// Decision bases.
const (
	BasisLimits    Basis = "limits"
	BasisMagnitude Basis = "magnitude"
)

// LimitTable holds the known limits of a timeline's joints.
type LimitTable map[string]timeline.Limits

// Report summarises one normalisation pass.
type Report struct {
	Unit  UnitMode
	Basis Basis

	// RadiansViolation and DegreesViolation are the scores compared when
	// Basis is BasisLimits.
	RadiansViolation float64
	DegreesViolation float64

	// Clamped counts values narrowed into their limits.
	Clamped int

	// NoLimits lists joints whose limits were unavailable.
	NoLimits []string
}

// QueryLimits asks src for the limits of every joint in tl.
//
// Joints that return an error are listed in unknown and left out of the
// table. Only context cancellation is returned as an error.
func QueryLimits(ctx context.Context, src timeline.LimitsSource, tl *timeline.Timeline) (table LimitTable, unknown []string, err error) {
	table = make(LimitTable, len(tl.Curves))
	if src == nil {
		return table, tl.Names(), nil
	}
	for _, c := range tl.Curves {
		lim, qerr := src.JointLimits(ctx, c.Actuator)
		if qerr != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(qerr, ctxErr) {
				return nil, nil, ctxErr
			}
			unknown = append(unknown, c.Actuator)
			continue
		}
		table[c.Actuator] = lim
	}
	return table, unknown, nil
}

// DecideUnit chooses one unit for the whole timeline.
func DecideUnit(tl *timeline.Timeline, table LimitTable) (UnitMode, Report) {
	r := Report{Basis: BasisLimits}
	eligible := 0
	for _, c := range tl.Curves {
		if timeline.IsHand(c.Actuator) {
			continue
		}
		lim, ok := table[c.Actuator]
		if !ok {
			continue
		}
		eligible++
		for _, v := range c.Values {
			r.RadiansViolation += lim.Violation(v)
			r.DegreesViolation += lim.Violation(timeline.Radians(v))
		}
	}

	if eligible > 0 {
		if r.DegreesViolation < r.RadiansViolation {
			r.Unit = UnitDegrees
		}
		return r.Unit, r
	}

	r.Basis = BasisMagnitude
	if maxMagnitude(tl) > DegreesThreshold {
		r.Unit = UnitDegrees
	}
	return r.Unit, r
}

func maxMagnitude(tl *timeline.Timeline) float64 {
	m := 0.0
	for _, c := range tl.Curves {
		for _, v := range c.Values {
			m = math.Max(m, math.Abs(v))
		}
	}
	return m
}

// Convert rewrites every non-hand value of tl from mode to radians in place.
func Convert(tl *timeline.Timeline, mode UnitMode) {
	if mode != UnitDegrees {
		return
	}
	for i := range tl.Curves {
		c := &tl.Curves[i]
		if timeline.IsHand(c.Actuator) {
			continue
		}
		for j, v := range c.Values {
			c.Values[j] = timeline.Radians(v)
		}
	}
}

// Clamp narrows every value of a joint in table into [min+eps, max-eps] in
// place and returns how many values changed.
func Clamp(tl *timeline.Timeline, table LimitTable, eps float64) int {
	changed := 0
	for i := range tl.Curves {
		c := &tl.Curves[i]
		lim, ok := table[c.Actuator]
		if !ok {
			continue
		}
		for j, v := range c.Values {
			if nv := lim.Clamp(v, eps); nv != v {
				c.Values[j] = nv
				changed++
			}
		}
	}
	return changed
}

// Options tune Normalize.
type Options struct {
	// Epsilon defaults to DefaultEpsilon when zero.
	Epsilon float64
}

// Normalize queries limits, decides and applies the unit, then clamps.
// tl is modified in place.
//
// Parameters:
//   - ctx: Bounds limit queries
//   - tl: Timeline to normalise
//   - src: Limits collaborator, may be nil (no clamping, magnitude heuristic)
//   - opts: Clamping epsilon
//
// Returns:
//   - Report: Decision and clamping summary
//   - error: Only ctx.Err() when cancelled during limit queries
func Normalize(ctx context.Context, tl *timeline.Timeline, src timeline.LimitsSource, opts Options) (Report, error) {
	eps := opts.Epsilon
	if eps == 0 {
		eps = DefaultEpsilon
	}

	table, unknown, err := QueryLimits(ctx, src, tl)
	if err != nil {
		return Report{}, err
	}

	mode, r := DecideUnit(tl, table)
	Convert(tl, mode)

	r.Clamped = Clamp(tl, table, eps)
	r.NoLimits = unknown
	return r, nil
}
