package timeline

import (
	"context"
	"fmt"
	"math"
	"sort"
)

// DefaultVelocitySafety is the fraction of a joint's max velocity a behavior
// graph may use before its curve is slowed down.
const DefaultVelocitySafety = 0.98

// XAROptions tune behavior-graph parsing.
type XAROptions struct {
	// SpeedFactor multiplies every key time: 0.5 plays twice as fast.
	// Zero or negative means 1.
	SpeedFactor float64

	// Limits, when set, is queried once per actuator. Values are clamped to
	// [Min, Max] and curves faster than VelocitySafety*MaxVelocity are slowed.
	Limits LimitsSource

	// VelocitySafety defaults to DefaultVelocitySafety.
	VelocitySafety float64
}

// Behavior is the parsed content of a behavior graph.
type Behavior struct {
	Timeline *Timeline

	// Speech holds the Say boxes in document order. Nothing has been spoken.
	Speech []SpeechAction

	// FrameRates lists the distinct valid Timeline frame rates, ascending.
	FrameRates []float64

	// DuplicateCurves counts curves dropped because another curve for the
	// same actuator covered a wider frame span.
	DuplicateCurves int

	// Slowed maps an actuator to the time scale applied to respect its max velocity.
	Slowed map[string]float64

	// Unclamped lists actuators whose limits could not be queried.
	Unclamped []string
}

type xarCurve struct {
	node       *xmlNode
	actuator   string
	fps        float64
	degrees    bool
	frameStart float64
	frameEnd   float64
}

type xarKey struct {
	frame float64
	value float64
}

// ParseXAR parses a behavior-graph document.
//
// Curves take the frame rate of their enclosing Timeline (fallback: the
// highest valid rate in the document, else 25). Curves with unit="0" (the
// default) are in degrees and converted to radians. When an actuator has
// several curves, the one spanning the most frames wins.
//
// Parameters:
//   - ctx: Bounds limit queries
//   - data: Raw .xar bytes
//   - opts: Speed factor and optional limits
//
// Returns:
//   - *Behavior: Timeline in radians plus ordered speech actions
//   - error: Wrapped ErrParse on malformed XML, or ctx.Err()
func ParseXAR(ctx context.Context, data []byte, opts XAROptions) (*Behavior, error) {
	root, err := decodeXML(data)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid behavior graph: %v", ErrParse, err)
	}

	if opts.SpeedFactor <= 0 {
		opts.SpeedFactor = 1
	}
	if opts.VelocitySafety <= 0 {
		opts.VelocitySafety = DefaultVelocitySafety
	}

	b := &Behavior{
		Timeline: &Timeline{Format: FormatXAR},
		Slowed:   make(map[string]float64),
	}

	var curves []xarCurve
	rates := make(map[float64]struct{})
	var visit func(n *xmlNode, fps float64)
	visit = func(n *xmlNode, fps float64) {
		switch n.name() {
		case "Timeline":
			if f, ok := floatAttr(n, "fps"); ok && f > 0 {
				fps = f
				rates[f] = struct{}{}
			}
		case "Box":
			if name, _ := n.attr("name"); name == "Say" {
				b.Speech = append(b.Speech, sayAction(n))
			}
		case "ActuatorCurve":
			if c, ok := newXARCurve(n, fps); ok {
				curves = append(curves, c)
			}
			return
		}
		for i := range n.Children {
			visit(&n.Children[i], fps)
		}
	}
	visit(root, 0)

	for f := range rates {
		b.FrameRates = append(b.FrameRates, f)
	}
	sort.Float64s(b.FrameRates)
	fallback := DefaultFPS
	if n := len(b.FrameRates); n > 0 {
		fallback = b.FrameRates[n-1]
	}

	selected, dropped := selectCurves(curves)
	b.DuplicateCurves = dropped

	for _, c := range selected {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if c.fps <= 0 {
			c.fps = fallback
		}
		curve, ok := buildXARCurve(c, opts.SpeedFactor)
		if !ok {
			continue
		}

		if opts.Limits != nil {
			lim, err := opts.Limits.JointLimits(ctx, c.actuator)
			switch {
			case err == nil:
				for i, v := range curve.Values {
					curve.Values[i] = lim.Clamp(v, 0)
				}
				if scale := velocityScale(curve, lim.MaxVelocity*opts.VelocitySafety); scale > 1 {
					for i := range curve.Times {
						curve.Times[i] = roundMillis(curve.Times[i] * scale)
					}
					b.Slowed[c.actuator] = scale
				}
			case ctx.Err() != nil:
				return nil, ctx.Err()
			default:
				b.Unclamped = append(b.Unclamped, c.actuator)
			}
		}

		curve.Times = NormalizeTimes(curve.Times)
		b.Timeline.Curves = append(b.Timeline.Curves, curve)
	}

	return b, nil
}

func sayAction(box *xmlNode) SpeechAction {
	params := make(map[string]string)
	for _, p := range box.children("Parameter") {
		name, _ := p.attr("name")
		value, _ := p.attr("value")
		params[name] = value
	}

	s := SpeechAction{
		Text:           params["Text"],
		SpeedPercent:   "100",
		ShapingPercent: "100",
	}
	if v, ok := params["Speed (%)"]; ok && v != "" {
		s.SpeedPercent = v
	}
	if v, ok := params["Voice shaping (%)"]; ok && v != "" {
		s.ShapingPercent = v
	}
	for _, r := range box.children("Resource") {
		if t, _ := r.attr("type"); t == "Lock" {
			s.Blocking = true
			break
		}
	}
	return s
}

func newXARCurve(n *xmlNode, fps float64) (xarCurve, bool) {
	actuator, _ := n.attr("actuator")
	if actuator == "" {
		return xarCurve{}, false
	}
	unit, ok := n.attr("unit")
	if !ok {
		unit = "0"
	}

	c := xarCurve{node: n, actuator: actuator, fps: fps, degrees: unit == "0"}
	found := false
	for _, k := range n.children("Key") {
		f, ok := floatAttr(k, "frame")
		if !ok {
			continue
		}
		if !found || f < c.frameStart {
			c.frameStart = f
		}
		if !found || f > c.frameEnd {
			c.frameEnd = f
		}
		found = true
	}
	return c, found
}

// selectCurves keeps one curve per actuator, in order of first appearance.
// The widest frame span wins; on a tie the later-starting curve wins.
func selectCurves(curves []xarCurve) (selected []xarCurve, dropped int) {
	index := make(map[string]int)
	for _, c := range curves {
		i, seen := index[c.actuator]
		if !seen {
			index[c.actuator] = len(selected)
			selected = append(selected, c)
			continue
		}
		dropped++
		cur := selected[i]
		span, curSpan := c.frameEnd-c.frameStart, cur.frameEnd-cur.frameStart
		if span > curSpan || (span == curSpan && c.frameStart > cur.frameStart) {
			selected[i] = c
		}
	}
	return selected, dropped
}

func buildXARCurve(c xarCurve, speedFactor float64) (JointCurve, bool) {
	var keys []xarKey
	for _, k := range c.node.children("Key") {
		frame, ok := floatAttr(k, "frame")
		if !ok {
			continue
		}
		value, ok := floatAttr(k, "value")
		if !ok {
			continue
		}
		keys = append(keys, xarKey{frame: frame, value: value})
	}
	sort.SliceStable(keys, func(i, j int) bool { return keys[i].frame < keys[j].frame })

	out := JointCurve{Actuator: c.actuator}
	last := math.Inf(-1)
	for _, k := range keys {
		t := k.frame / c.fps * speedFactor
		if t <= last {
			continue
		}
		v := k.value
		if c.degrees {
			v = Radians(v)
		}
		out.Times = append(out.Times, roundMillis(t))
		out.Values = append(out.Values, v)
		last = t
	}
	return out, len(out.Times) > 0
}

// velocityScale returns the factor by which curve times must be stretched so
// no segment exceeds vmax, or 1 when vmax is unknown or already respected.
func velocityScale(c JointCurve, vmax float64) float64 {
	if vmax <= 0 {
		return 1
	}
	observed := 0.0
	for i := 1; i < len(c.Times); i++ {
		dt := c.Times[i] - c.Times[i-1]
		if dt <= 0 {
			continue
		}
		if v := math.Abs(c.Values[i]-c.Values[i-1]) / dt; v > observed {
			observed = v
		}
	}
	if observed <= vmax {
		return 1
	}
	return observed / vmax
}
