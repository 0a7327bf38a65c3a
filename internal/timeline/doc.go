// Package timeline holds the keyframe data model and the parsers that build it.
//
// A Timeline is an ordered set of JointCurves, one per actuator, each a pair
// of parallel Times/Values slices. Two on-disk families are understood:
//
//   - QiAnim (.qianim): JSON or XML keyframe documents. Values are left in
//     whatever unit the author used; the normalize package decides later.
//   - Behavior graphs (.xar): XML containing Say boxes and ActuatorCurves.
//     Curves are converted to radians, deduplicated and limit-checked here.
//
// # Time normalisation
//
// Every parser funnels its key times through NormalizeTimes, so the same
// invariant holds whatever the source:
//
//   - times are rounded to the millisecond
//   - the first time is floored to 0.1s when it is not positive
//   - a time not strictly greater than its predecessor becomes predecessor+0.01s
//
// # Format detection
//
// SniffFormat looks at the first non-whitespace byte and returns a Format.
// The resolver calls it once; parsers never guess on their own.
//
// # Usage
//
//	data, _ := os.ReadFile("wave.qianim")
//	tl, err := timeline.ParseQiAnim(data, timeline.SniffFormat(data))
//	if err != nil {
//	    return err
//	}
//	names, values, times := tl.Triple()
//
// Behavior graphs return speech alongside the curves; nothing is spoken
// during parsing:
//
//	b, err := timeline.ParseXAR(ctx, data, timeline.XAROptions{Limits: motion})
//	for _, say := range b.Speech {
//	    fmt.Println(say.Text, say.Blocking)
//	}
package timeline
