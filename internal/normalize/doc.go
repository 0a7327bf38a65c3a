// Package normalize resolves the angle unit of QiAnim timelines and keeps
// every keyframe inside the robot's mechanical limits.
//
// QiAnim files do not say whether angles are degrees or radians. The unit is
// decided once for the whole timeline: for every non-hand joint whose limits
// are known, the values are scored by how far they fall outside the limits
// when read as radians and when read as degrees. The smaller total wins, ties
// going to radians. Without any usable limits, a value larger than 3.2 in
// magnitude (beyond pi) means degrees.
//
// Hand actuators use a 0..1 opening fraction and are never converted.
//
// Clamping narrows every value of a joint with known limits into
// [min+epsilon, max-epsilon]. It never fails; joints without limits pass
// through untouched.
package normalize
